package tables

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/skdltmxn/dotnet-go/internal/heap"
	"github.com/skdltmxn/dotnet-go/internal/stream"
)

// Errors returned by the table decoder
var (
	ErrUndefinedTable = errors.New("tables: stream declares an undefined table")
	ErrConsumed       = errors.New("tables: table already consumed")
)

// Header is the fixed part of the tables stream.
type Header struct {
	MajorVersion uint8
	MinorVersion uint8
	HeapSizes    uint8
	Valid        uint64
	Sorted       uint64
}

// Present reports whether table t has its valid bit set.
func (h *Header) Present(t Table) bool {
	return h.Valid&(1<<uint(t)) != 0
}

// PresentCount returns the number of tables with their valid bit set.
func (h *Header) PresentCount() int {
	return bits.OnesCount64(h.Valid)
}

// Decode decodes every table of the tables stream.
func Decode(data []byte, heaps heap.Heaps) (*Store, error) {
	return DecodeUntil(data, heaps, GenericParamConstraint)
}

// DecodeUntil decodes tables in ascending order and stops after last.
// Counts of the remaining tables are still available from the layout.
func DecodeUntil(data []byte, heaps heap.Heaps, last Table) (*Store, error) {
	r := stream.NewReader(data)

	var h Header
	if err := r.Skip(4); err != nil { // reserved
		return nil, fmt.Errorf("tables: truncated header: %w", err)
	}
	var err error
	if h.MajorVersion, err = r.ReadU8(); err != nil {
		return nil, fmt.Errorf("tables: truncated header: %w", err)
	}
	if h.MinorVersion, err = r.ReadU8(); err != nil {
		return nil, fmt.Errorf("tables: truncated header: %w", err)
	}
	if h.HeapSizes, err = r.ReadU8(); err != nil {
		return nil, fmt.Errorf("tables: truncated header: %w", err)
	}
	if err := r.Skip(1); err != nil { // reserved
		return nil, fmt.Errorf("tables: truncated header: %w", err)
	}
	if h.Valid, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("tables: truncated header: %w", err)
	}
	if h.Sorted, err = r.ReadU64(); err != nil {
		return nil, fmt.Errorf("tables: truncated header: %w", err)
	}

	var rows [MaxTables]uint32
	for i := 0; i < MaxTables; i++ {
		if h.Valid&(1<<uint(i)) == 0 {
			continue
		}
		if i >= Count {
			return nil, fmt.Errorf("%w: 0x%02x", ErrUndefinedTable, i)
		}
		if rows[i], err = r.ReadU32(); err != nil {
			return nil, fmt.Errorf("tables: truncated row counts: %w", err)
		}
	}
	if h.HeapSizes&HeapExtraData != 0 {
		if err := r.Skip(4); err != nil {
			return nil, fmt.Errorf("tables: truncated header: %w", err)
		}
	}

	s := &Store{Header: h, Layout: NewLayout(h.HeapSizes, rows)}
	d := &decoder{r: r, heaps: heaps, layout: s.Layout}

	// Tables are packed back to back, so they must be read in order
	for i := 0; i < Count && Table(i) <= last; i++ {
		t := Table(i)
		n := rows[i]
		if n == 0 {
			continue
		}
		if int64(n)*int64(schemas[t].RowSize(s.Layout)) > int64(r.Remaining()) {
			return nil, fmt.Errorf("tables: %s: %d rows overrun stream: %w", t, n, stream.ErrUnexpectedEOF)
		}

		decoded := make([]Row, n)
		for j := range decoded {
			row, err := d.readRow(schemas[t])
			if err != nil {
				return nil, fmt.Errorf("tables: %s row %d: %w", t, j+1, err)
			}
			decoded[j] = row
		}
		s.rows[t] = decoded
		s.present[t] = true
	}

	return s, nil
}

type decoder struct {
	r      *stream.Reader
	heaps  heap.Heaps
	layout *Layout
}

func (d *decoder) readRow(s *Schema) (Row, error) {
	values := make([]Value, len(s.Columns))
	for i, c := range s.Columns {
		num, err := d.r.ReadUint(d.layout.ColumnWidth(c))
		if err != nil {
			return Row{}, err
		}
		v := Value{Num: num}

		switch c.Kind {
		case StringRef:
			if v.Str, err = d.heaps.Strings.Get(num); err != nil {
				return Row{}, fmt.Errorf("%s: %w", c.Name, err)
			}
		case BlobRef:
			if v.Data, err = d.heaps.Blob.Get(num); err != nil {
				return Row{}, fmt.Errorf("%s: %w", c.Name, err)
			}
		case GUIDRef:
			g, err := d.heaps.GUID.Get(num)
			if err != nil {
				return Row{}, fmt.Errorf("%s: %w", c.Name, err)
			}
			v.Data = g[:]
		}
		values[i] = v
	}
	return Row{schema: s, values: values}, nil
}
