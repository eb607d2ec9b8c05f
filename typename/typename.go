// Package typename parses reflection-style type names such as
// "System.Collections.Generic.List`1[[System.String, mscorlib]]" into the
// same type trees the signature decoder produces.
package typename

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/skdltmxn/dotnet-go/signature"
)

// ErrSyntax is returned for names that do not follow the grammar.
var ErrSyntax = errors.New("typename: invalid type name")

// Ref is a type referenced by name. Nested types keep their declaring
// chain, outermost first.
type Ref struct {
	namespace string
	name      string
	Declaring []string
	Assembly  string
}

// Name returns the simple name of the type.
func (r *Ref) Name() string { return r.name }

// Namespace returns the namespace of the outermost declaring type.
func (r *Ref) Namespace() string { return r.namespace }

// FullName returns the namespace-qualified name with '+' separating
// nested types.
func (r *Ref) FullName() string {
	var sb strings.Builder
	if r.namespace != "" {
		sb.WriteString(r.namespace)
		sb.WriteByte('.')
	}
	for _, d := range r.Declaring {
		sb.WriteString(d)
		sb.WriteByte('+')
	}
	sb.WriteString(r.name)
	return sb.String()
}

// Parse parses a type name, discarding any assembly qualification.
func Parse(name string) (signature.Type, error) {
	t, _, err := ParseQualified(name)
	return t, err
}

// ParseQualified parses a type name and returns the assembly it is
// qualified with, or "" if it has none.
func ParseQualified(name string) (signature.Type, string, error) {
	p := &parser{src: name}
	t, asm, err := p.typeSpec(true)
	if err != nil {
		return nil, "", err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, "", p.errorf("unexpected %q", p.src[p.pos])
	}
	return t, asm, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrSyntax, fmt.Sprintf(format, args...), p.pos, p.src)
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) accept(c byte) bool {
	p.skipSpace()
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func isSpecial(c byte) bool {
	switch c {
	case '.', ',', '+', '[', ']', '*', '&', '\\':
		return true
	}
	return false
}

// ident reads one name segment, honouring backslash escapes.
func (p *parser) ident() (string, error) {
	p.skipSpace()
	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		if c == '\\' {
			if p.pos+1 >= len(p.src) {
				return "", p.errorf("dangling escape")
			}
			sb.WriteByte(p.src[p.pos+1])
			p.pos += 2
			continue
		}
		if isSpecial(c) || unicode.IsSpace(rune(c)) {
			break
		}
		sb.WriteByte(c)
		p.pos++
	}
	if sb.Len() == 0 {
		return "", p.errorf("expected identifier")
	}
	return sb.String(), nil
}

// typeSpec parses name, generic arguments, suffixes and, when allowed, the
// assembly qualification.
func (p *parser) typeSpec(allowAssembly bool) (signature.Type, string, error) {
	ref, err := p.qualifiedName()
	if err != nil {
		return nil, "", err
	}

	var args []signature.Type
	p.skipSpace()
	if p.peek() == '[' && p.isGenericOpen() {
		if args, err = p.genericArgs(); err != nil {
			return nil, "", err
		}
	}

	var t signature.Type
	if len(args) == 0 && len(ref.Declaring) == 0 {
		if prim, ok := signature.LookupPrimitive(ref.FullName()); ok {
			t = prim
		}
	}
	if t == nil {
		t = &signature.ClassType{Ref: ref}
		if len(args) > 0 {
			t = &signature.GenericInst{Generic: t, Args: args}
		}
	}

	if t, err = p.suffixes(t); err != nil {
		return nil, "", err
	}

	var asm string
	if allowAssembly {
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			asm = p.assemblyName()
			ref.Assembly = asm
		}
	}
	return t, asm, nil
}

func (p *parser) qualifiedName() (*Ref, error) {
	var parts []string
	first, err := p.ident()
	if err != nil {
		return nil, err
	}
	parts = append(parts, first)
	for p.peek() == '.' {
		p.pos++
		seg, err := p.ident()
		if err != nil {
			return nil, err
		}
		parts = append(parts, seg)
	}

	ref := &Ref{
		namespace: strings.Join(parts[:len(parts)-1], "."),
		name:      parts[len(parts)-1],
	}
	for p.peek() == '+' {
		p.pos++
		nested, err := p.ident()
		if err != nil {
			return nil, err
		}
		ref.Declaring = append(ref.Declaring, ref.name)
		ref.name = nested
	}
	return ref, nil
}

// isGenericOpen reports whether the '[' at the cursor opens a generic
// argument list rather than an array suffix.
func (p *parser) isGenericOpen() bool {
	i := p.pos + 1
	for i < len(p.src) && unicode.IsSpace(rune(p.src[i])) {
		i++
	}
	if i >= len(p.src) {
		return false
	}
	switch p.src[i] {
	case ']', ',', '*':
		return false
	}
	return true
}

func (p *parser) genericArgs() ([]signature.Type, error) {
	p.pos++ // '['
	var args []signature.Type
	for {
		var arg signature.Type
		var err error
		if p.accept('[') {
			if arg, _, err = p.typeSpec(true); err != nil {
				return nil, err
			}
			if !p.accept(']') {
				return nil, p.errorf("expected ']' after generic argument")
			}
		} else if arg, _, err = p.typeSpec(false); err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.accept(',') {
			continue
		}
		if p.accept(']') {
			return args, nil
		}
		return nil, p.errorf("expected ',' or ']' in generic arguments")
	}
}

func (p *parser) suffixes(t signature.Type) (signature.Type, error) {
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			t = &signature.Pointer{Elem: t}
		case '&':
			p.pos++
			t = &signature.ByRef{Elem: t}
		case '[':
			if p.isGenericOpen() {
				return nil, p.errorf("unexpected generic argument list")
			}
			p.pos++
			rank := uint32(1)
			bounded := false
			for {
				p.skipSpace()
				c := p.peek()
				if c == ',' {
					rank++
					p.pos++
					continue
				}
				if c == '*' {
					bounded = true
					p.pos++
					continue
				}
				break
			}
			if !p.accept(']') {
				return nil, p.errorf("expected ']' in array suffix")
			}
			if rank == 1 && !bounded {
				t = &signature.SZArray{Elem: t}
			} else {
				t = &signature.ArrayType{Elem: t, Shape: signature.ArrayShape{Rank: rank}}
			}
		default:
			return t, nil
		}
	}
}

// assemblyName consumes the assembly display name up to the ']' closing
// the enclosing generic argument, or to the end of input.
func (p *parser) assemblyName() string {
	start := p.pos
	for !p.eof() && p.src[p.pos] != ']' {
		if p.src[p.pos] == '\\' {
			p.pos++
		}
		p.pos++
	}
	if p.pos > len(p.src) {
		p.pos = len(p.src)
	}
	return strings.TrimSpace(p.src[start:p.pos])
}
