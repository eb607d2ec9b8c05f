package signature

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/dotnet-go/internal/stream"
)

// ErrMalformed is returned for any signature blob that does not follow the
// grammar or references an unknown type.
var ErrMalformed = errors.New("signature: malformed signature")

// maxDepth bounds nested type productions.
const maxDepth = 64

type parser struct {
	r     *stream.Reader
	group TypeGroup
	depth int
}

func newParser(blob []byte, group TypeGroup) *parser {
	return &parser{r: stream.NewReader(blob), group: group}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func (p *parser) u8() (uint8, error) {
	b, err := p.r.ReadU8()
	if err != nil {
		return 0, malformed("truncated at offset %d", p.r.Offset())
	}
	return b, nil
}

func (p *parser) peek() (ElementType, error) {
	b, err := p.r.PeekU8()
	if err != nil {
		return 0, malformed("truncated at offset %d", p.r.Offset())
	}
	return ElementType(b), nil
}

func (p *parser) compressed() (uint32, error) {
	v, err := p.r.ReadCompressedUint()
	if err != nil {
		return 0, malformed("bad compressed integer at offset %d: %v", p.r.Offset(), err)
	}
	return v, nil
}

func (p *parser) signed() (int32, error) {
	v, err := p.r.ReadCompressedInt()
	if err != nil {
		return 0, malformed("bad compressed integer at offset %d: %v", p.r.Offset(), err)
	}
	return v, nil
}

// typeDefOrRef reads a TypeDefOrRefOrSpecEncoded value and resolves it.
func (p *parser) typeDefOrRef() (TypeRef, error) {
	v, err := p.compressed()
	if err != nil {
		return nil, err
	}
	tag, row := uint8(v&3), v>>2
	if tag > TagTypeSpec || row == 0 {
		return nil, malformed("invalid type reference 0x%x", v)
	}
	if p.group == nil {
		return nil, malformed("no type group to resolve 0x%x", v)
	}
	ref := p.group.LookupType(tag, row)
	if ref == nil {
		return nil, malformed("unresolved type reference 0x%x", v)
	}
	return ref, nil
}

// customMods reads zero or more modifiers. A modifier that fails to decode
// rewinds to before its tag and ends the list.
func (p *parser) customMods() []CustomMod {
	var mods []CustomMod
	for {
		mark := p.r.Offset()
		tag, err := p.r.PeekU8()
		if err != nil {
			return mods
		}
		et := ElementType(tag)
		if et != ElementCModReqd && et != ElementCModOpt {
			return mods
		}
		_, _ = p.r.ReadU8()
		ref, err := p.typeDefOrRef()
		if err != nil {
			_ = p.r.Seek(mark)
			return mods
		}
		mods = append(mods, CustomMod{Required: et == ElementCModReqd, Type: ref})
	}
}

func (p *parser) parseType() (Type, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, malformed("type nesting too deep")
	}

	b, err := p.u8()
	if err != nil {
		return nil, err
	}
	et := ElementType(b)

	switch et {
	case ElementBoolean, ElementChar, ElementI1, ElementU1, ElementI2, ElementU2,
		ElementI4, ElementU4, ElementI8, ElementU8, ElementR4, ElementR8,
		ElementString, ElementObject, ElementI, ElementU, ElementTypedByRef:
		return Primitive(et), nil

	case ElementClass, ElementValueType:
		ref, err := p.typeDefOrRef()
		if err != nil {
			return nil, err
		}
		if et == ElementClass {
			return &ClassType{Ref: ref}, nil
		}
		return &ValueType{Ref: ref}, nil

	case ElementPtr:
		mods := p.customMods()
		next, err := p.peek()
		if err != nil {
			return nil, err
		}
		if next == ElementVoid {
			_, _ = p.u8()
			return &Pointer{Mods: mods}, nil
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &Pointer{Mods: mods, Elem: elem}, nil

	case ElementByRef:
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ByRef{Elem: elem}, nil

	case ElementSZArray:
		mods := p.customMods()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &SZArray{Mods: mods, Elem: elem}, nil

	case ElementArray:
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		shape, err := p.arrayShape()
		if err != nil {
			return nil, err
		}
		return &ArrayType{Elem: elem, Shape: shape}, nil

	case ElementGenericInst:
		return p.genericInst()

	case ElementVar, ElementMVar:
		idx, err := p.compressed()
		if err != nil {
			return nil, err
		}
		return &GenericVar{Index: idx, Method: et == ElementMVar}, nil

	case ElementFnPtr:
		sig, err := p.methodSig()
		if err != nil {
			return nil, err
		}
		return &FnPtr{Sig: sig}, nil

	case ElementCModReqd, ElementCModOpt:
		_ = p.r.Seek(p.r.Offset() - 1)
		mods := p.customMods()
		if len(mods) == 0 {
			return nil, malformed("bad custom modifier at offset %d", p.r.Offset())
		}
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &Modified{Mods: mods, Type: inner}, nil

	default:
		return nil, malformed("unexpected element type 0x%02x at offset %d", b, p.r.Offset()-1)
	}
}

func (p *parser) genericInst() (Type, error) {
	b, err := p.u8()
	if err != nil {
		return nil, err
	}
	et := ElementType(b)
	if et != ElementClass && et != ElementValueType {
		return nil, malformed("generic instantiation of element type 0x%02x", b)
	}
	ref, err := p.typeDefOrRef()
	if err != nil {
		return nil, err
	}
	var generic Type = &ClassType{Ref: ref}
	if et == ElementValueType {
		generic = &ValueType{Ref: ref}
	}

	count, err := p.compressed()
	if err != nil {
		return nil, err
	}
	if count == 0 || int(count) > p.r.Remaining() {
		return nil, malformed("bad generic argument count %d", count)
	}
	args := make([]Type, count)
	for i := range args {
		if args[i], err = p.parseType(); err != nil {
			return nil, err
		}
	}
	return &GenericInst{Generic: generic, Args: args}, nil
}

func (p *parser) arrayShape() (ArrayShape, error) {
	var shape ArrayShape
	var err error
	if shape.Rank, err = p.compressed(); err != nil {
		return shape, err
	}
	if shape.Rank == 0 {
		return shape, malformed("array of rank 0")
	}

	numSizes, err := p.compressed()
	if err != nil {
		return shape, err
	}
	if int(numSizes) > p.r.Remaining() {
		return shape, malformed("bad array size count %d", numSizes)
	}
	for i := uint32(0); i < numSizes; i++ {
		size, err := p.compressed()
		if err != nil {
			return shape, err
		}
		shape.Sizes = append(shape.Sizes, size)
	}

	numLo, err := p.compressed()
	if err != nil {
		return shape, err
	}
	if int(numLo) > p.r.Remaining() {
		return shape, malformed("bad array bound count %d", numLo)
	}
	for i := uint32(0); i < numLo; i++ {
		lo, err := p.signed()
		if err != nil {
			return shape, err
		}
		shape.LoBounds = append(shape.LoBounds, lo)
	}
	return shape, nil
}

// param reads a Param or RetType production.
func (p *parser) param(isReturn bool) (Param, error) {
	var out Param
	out.Mods = p.customMods()

	next, err := p.peek()
	if err != nil {
		return out, err
	}
	switch next {
	case ElementVoid:
		if !isReturn {
			return out, malformed("void parameter")
		}
		_, _ = p.u8()
		out.Type = Void
	case ElementTypedByRef:
		_, _ = p.u8()
		out.Type = TypedByRef
	case ElementByRef:
		_, _ = p.u8()
		elem, err := p.parseType()
		if err != nil {
			return out, err
		}
		out.Type = &ByRef{Elem: elem}
	default:
		if out.Type, err = p.parseType(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (p *parser) methodSig() (*MethodSig, error) {
	b, err := p.u8()
	if err != nil {
		return nil, err
	}
	sig := &MethodSig{CallConv: CallConv(b)}
	switch sig.CallConv.Kind() {
	case ConvField, ConvLocalSig, ConvProperty, ConvGenericInst:
		return nil, malformed("calling convention 0x%02x is not a method", b)
	}

	if sig.CallConv.IsGeneric() {
		if sig.GenericParamCount, err = p.compressed(); err != nil {
			return nil, err
		}
	}
	count, err := p.compressed()
	if err != nil {
		return nil, err
	}
	if int(count) > p.r.Remaining() {
		return nil, malformed("bad parameter count %d", count)
	}
	if sig.Return, err = p.param(true); err != nil {
		return nil, err
	}

	vararg := false
	for i := uint32(0); i < count; i++ {
		if next, err := p.peek(); err == nil && next == ElementSentinel {
			_, _ = p.u8()
			vararg = true
		}
		prm, err := p.param(false)
		if err != nil {
			return nil, err
		}
		if vararg {
			sig.VarargParams = append(sig.VarargParams, prm)
		} else {
			sig.Params = append(sig.Params, prm)
		}
	}
	return sig, nil
}

func (p *parser) fieldSig() (*FieldSig, error) {
	b, err := p.u8()
	if err != nil {
		return nil, err
	}
	if CallConv(b).Kind() != ConvField {
		return nil, malformed("field signature starts with 0x%02x", b)
	}
	sig := &FieldSig{Mods: p.customMods()}
	if sig.Type, err = p.parseType(); err != nil {
		return nil, err
	}
	return sig, nil
}

func (p *parser) propertySig() (*PropertySig, error) {
	b, err := p.u8()
	if err != nil {
		return nil, err
	}
	sig := &PropertySig{CallConv: CallConv(b)}
	if sig.CallConv.Kind() != ConvProperty {
		return nil, malformed("property signature starts with 0x%02x", b)
	}
	count, err := p.compressed()
	if err != nil {
		return nil, err
	}
	if int(count) > p.r.Remaining() {
		return nil, malformed("bad parameter count %d", count)
	}
	sig.Mods = p.customMods()
	if sig.Type, err = p.parseType(); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		prm, err := p.param(false)
		if err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, prm)
	}
	return sig, nil
}

func (p *parser) localVarSig() (*LocalVarSig, error) {
	b, err := p.u8()
	if err != nil {
		return nil, err
	}
	if CallConv(b).Kind() != ConvLocalSig {
		return nil, malformed("local signature starts with 0x%02x", b)
	}
	count, err := p.compressed()
	if err != nil {
		return nil, err
	}
	if int(count) > p.r.Remaining() {
		return nil, malformed("bad local count %d", count)
	}

	sig := &LocalVarSig{Locals: make([]Local, 0, count)}
	for i := uint32(0); i < count; i++ {
		var local Local
		// Constraints and modifiers may interleave
		for {
			local.Mods = append(local.Mods, p.customMods()...)
			next, err := p.peek()
			if err != nil {
				return nil, err
			}
			if next != ElementPinned {
				break
			}
			_, _ = p.u8()
			local.Pinned = true
		}
		if len(local.Mods) == 0 {
			local.Mods = nil
		}

		next, _ := p.peek()
		switch next {
		case ElementTypedByRef:
			_, _ = p.u8()
			local.Type = TypedByRef
		case ElementByRef:
			_, _ = p.u8()
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			local.Type = &ByRef{Elem: elem}
		default:
			if local.Type, err = p.parseType(); err != nil {
				return nil, err
			}
		}
		sig.Locals = append(sig.Locals, local)
	}
	return sig, nil
}

func (p *parser) methodSpecSig() (*MethodSpecSig, error) {
	b, err := p.u8()
	if err != nil {
		return nil, err
	}
	if CallConv(b).Kind() != ConvGenericInst {
		return nil, malformed("method instantiation starts with 0x%02x", b)
	}
	count, err := p.compressed()
	if err != nil {
		return nil, err
	}
	if count == 0 || int(count) > p.r.Remaining() {
		return nil, malformed("bad generic argument count %d", count)
	}
	sig := &MethodSpecSig{Args: make([]Type, count)}
	for i := range sig.Args {
		if sig.Args[i], err = p.parseType(); err != nil {
			return nil, err
		}
	}
	return sig, nil
}

// ParseType decodes a single type production, as stored in a TypeSpec blob.
func ParseType(blob []byte, group TypeGroup) (Type, error) {
	return newParser(blob, group).parseType()
}

// ParseMethod decodes a method signature.
func ParseMethod(blob []byte, group TypeGroup) (*MethodSig, error) {
	return newParser(blob, group).methodSig()
}

// ParseField decodes a field signature.
func ParseField(blob []byte, group TypeGroup) (*FieldSig, error) {
	return newParser(blob, group).fieldSig()
}

// ParseProperty decodes a property signature.
func ParseProperty(blob []byte, group TypeGroup) (*PropertySig, error) {
	return newParser(blob, group).propertySig()
}

// ParseLocalVars decodes a local variable signature.
func ParseLocalVars(blob []byte, group TypeGroup) (*LocalVarSig, error) {
	return newParser(blob, group).localVarSig()
}

// ParseMethodSpec decodes a generic method instantiation.
func ParseMethodSpec(blob []byte, group TypeGroup) (*MethodSpecSig, error) {
	return newParser(blob, group).methodSpecSig()
}

// Parse decodes any member signature, selecting the grammar from the
// calling convention byte.
func Parse(blob []byte, group TypeGroup) (Signature, error) {
	if len(blob) == 0 {
		return nil, malformed("empty signature")
	}
	var (
		sig Signature
		err error
	)
	switch CallConv(blob[0]).Kind() {
	case ConvField:
		sig, err = ParseField(blob, group)
	case ConvLocalSig:
		sig, err = ParseLocalVars(blob, group)
	case ConvProperty:
		sig, err = ParseProperty(blob, group)
	case ConvGenericInst:
		sig, err = ParseMethodSpec(blob, group)
	default:
		sig, err = ParseMethod(blob, group)
	}
	if err != nil {
		return nil, err
	}
	return sig, nil
}
