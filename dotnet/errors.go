// Package dotnet decodes the CLI metadata of a .NET assembly into a linked
// graph of types, members and references.
package dotnet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skdltmxn/dotnet-go/internal/stream"
	"github.com/skdltmxn/dotnet-go/internal/tables"
)

// Sentinel errors for fatal conditions.
var (
	// ErrFormat indicates a structurally invalid image: a bad envelope, a
	// missing stream or an undefined table.
	ErrFormat = errors.New("dotnet: invalid assembly format")

	// ErrPrematureEOF indicates the image ended in the middle of a read.
	ErrPrematureEOF = errors.New("dotnet: premature end of data")

	// ErrUnconsumed indicates the resolution pass left a decoded table
	// unprocessed.
	ErrUnconsumed = errors.New("dotnet: decoded table left unconsumed")
)

// ParseError describes a fatal failure during parsing.
type ParseError struct {
	Phase   string       // Resolution phase or "envelope"/"tables"
	Table   tables.Table // Table being processed, tables.Invalid if none
	Row     uint32       // 1-based row, 0 if none
	Message string       // Description of the error
	Err     error        // Underlying error, if any
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("dotnet: ")
	b.WriteString(e.Phase)
	if e.Table != tables.Invalid {
		b.WriteString(": ")
		b.WriteString(e.Table.String())
		if e.Row != 0 {
			fmt.Fprintf(&b, " row %d", e.Row)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is classifies the error as ErrPrematureEOF when the cause is a short read
// and as ErrFormat otherwise.
func (e *ParseError) Is(target error) bool {
	short := errors.Is(e.Err, stream.ErrUnexpectedEOF)
	switch target {
	case ErrPrematureEOF:
		return short
	case ErrFormat:
		return !short
	}
	return false
}

// WarningKind categorizes a recoverable diagnostic.
type WarningKind string

const (
	MalformedSignature      WarningKind = "malformed_signature"
	UnresolvedReference     WarningKind = "unresolved_reference"
	UnsupportedTableVariant WarningKind = "unsupported_table_variant"
)

// Warning is a recoverable problem found while resolving the graph. The
// affected link or signature is left unset and parsing continues.
type Warning struct {
	Kind   WarningKind
	Table  tables.Table
	Row    uint32
	Detail string
	Err    error
}

// Targets for errors.Is against warnings.
var (
	ErrMalformedSignature      = &Warning{Kind: MalformedSignature}
	ErrUnresolvedReference     = &Warning{Kind: UnresolvedReference}
	ErrUnsupportedTableVariant = &Warning{Kind: UnsupportedTableVariant}
)

func (w *Warning) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(w.Kind))
	b.WriteString("] ")
	b.WriteString(w.Table.String())
	if w.Row != 0 {
		fmt.Fprintf(&b, " row %d", w.Row)
	}
	if w.Detail != "" {
		b.WriteString(": ")
		b.WriteString(w.Detail)
	}
	if w.Err != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(w.Err.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error
func (w *Warning) Unwrap() error { return w.Err }

// Is reports whether target is a warning of the same kind.
func (w *Warning) Is(target error) bool {
	if t, ok := target.(*Warning); ok {
		return w.Kind == t.Kind
	}
	return false
}
