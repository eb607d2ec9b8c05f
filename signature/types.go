// Package signature decodes ECMA-335 binary signatures into type trees.
package signature

// ElementType is the tag byte of a type production.
type ElementType uint8

// Element types
const (
	ElementEnd         ElementType = 0x00
	ElementVoid        ElementType = 0x01
	ElementBoolean     ElementType = 0x02
	ElementChar        ElementType = 0x03
	ElementI1          ElementType = 0x04
	ElementU1          ElementType = 0x05
	ElementI2          ElementType = 0x06
	ElementU2          ElementType = 0x07
	ElementI4          ElementType = 0x08
	ElementU4          ElementType = 0x09
	ElementI8          ElementType = 0x0A
	ElementU8          ElementType = 0x0B
	ElementR4          ElementType = 0x0C
	ElementR8          ElementType = 0x0D
	ElementString      ElementType = 0x0E
	ElementPtr         ElementType = 0x0F
	ElementByRef       ElementType = 0x10
	ElementValueType   ElementType = 0x11
	ElementClass       ElementType = 0x12
	ElementVar         ElementType = 0x13
	ElementArray       ElementType = 0x14
	ElementGenericInst ElementType = 0x15
	ElementTypedByRef  ElementType = 0x16
	ElementI           ElementType = 0x18
	ElementU           ElementType = 0x19
	ElementFnPtr       ElementType = 0x1B
	ElementObject      ElementType = 0x1C
	ElementSZArray     ElementType = 0x1D
	ElementMVar        ElementType = 0x1E
	ElementCModReqd    ElementType = 0x1F
	ElementCModOpt     ElementType = 0x20
	ElementSentinel    ElementType = 0x41
	ElementPinned      ElementType = 0x45
)

// CallConv is the leading byte of a member signature.
type CallConv uint8

// Calling convention flags and kinds
const (
	HasThis      CallConv = 0x20
	ExplicitThis CallConv = 0x40
	Generic      CallConv = 0x10

	ConvDefault     CallConv = 0x00
	ConvC           CallConv = 0x01
	ConvStdCall     CallConv = 0x02
	ConvThisCall    CallConv = 0x03
	ConvFastCall    CallConv = 0x04
	ConvVarArg      CallConv = 0x05
	ConvField       CallConv = 0x06
	ConvLocalSig    CallConv = 0x07
	ConvProperty    CallConv = 0x08
	ConvUnmanaged   CallConv = 0x09
	ConvGenericInst CallConv = 0x0A
)

// Kind returns the signature kind in the low nibble.
func (c CallConv) Kind() CallConv {
	return c & 0x0F
}

// HasThis reports whether the HASTHIS flag is set.
func (c CallConv) HasThis() bool {
	return c&HasThis != 0
}

// ExplicitThis reports whether the EXPLICITTHIS flag is set.
func (c CallConv) ExplicitThis() bool {
	return c&ExplicitThis != 0
}

// IsGeneric reports whether the GENERIC flag is set.
func (c CallConv) IsGeneric() bool {
	return c&Generic != 0
}

// TypeRef is a named type a signature points at: a TypeDef, TypeRef or
// TypeSpec of the surrounding module.
type TypeRef interface {
	Name() string
	Namespace() string
}

// TypeDefOrRef tags of a TypeDefOrRefOrSpecEncoded value
const (
	TagTypeDef  uint8 = 0
	TagTypeRef  uint8 = 1
	TagTypeSpec uint8 = 2
)

// TypeGroup resolves TypeDefOrRefOrSpec references. It returns nil when the
// row has not been built.
type TypeGroup interface {
	LookupType(tag uint8, row uint32) TypeRef
}

// Type is a node of a decoded type tree.
type Type interface {
	String() string
	isType()
}

// Primitive is a built-in type identified by its element type alone.
type Primitive ElementType

// Common primitives
const (
	Void       = Primitive(ElementVoid)
	Boolean    = Primitive(ElementBoolean)
	Char       = Primitive(ElementChar)
	SByte      = Primitive(ElementI1)
	Byte       = Primitive(ElementU1)
	Int16      = Primitive(ElementI2)
	UInt16     = Primitive(ElementU2)
	Int32      = Primitive(ElementI4)
	UInt32     = Primitive(ElementU4)
	Int64      = Primitive(ElementI8)
	UInt64     = Primitive(ElementU8)
	Single     = Primitive(ElementR4)
	Double     = Primitive(ElementR8)
	String     = Primitive(ElementString)
	IntPtr     = Primitive(ElementI)
	UIntPtr    = Primitive(ElementU)
	Object     = Primitive(ElementObject)
	TypedByRef = Primitive(ElementTypedByRef)
)

// ClassType is CLASS <TypeDefOrRefOrSpec>.
type ClassType struct {
	Ref TypeRef
}

// ValueType is VALUETYPE <TypeDefOrRefOrSpec>.
type ValueType struct {
	Ref TypeRef
}

// ArrayShape describes the dimensions of a general array.
type ArrayShape struct {
	Rank     uint32
	Sizes    []uint32
	LoBounds []int32
}

// ArrayType is ARRAY <type> <shape>.
type ArrayType struct {
	Elem  Type
	Shape ArrayShape
}

// SZArray is a single-dimension zero-based array.
type SZArray struct {
	Mods []CustomMod
	Elem Type
}

// Pointer is an unmanaged pointer. A nil Elem is void*.
type Pointer struct {
	Mods []CustomMod
	Elem Type
}

// ByRef is a managed reference.
type ByRef struct {
	Elem Type
}

// GenericVar is a generic parameter of the type (VAR) or method (MVAR).
type GenericVar struct {
	Index  uint32
	Method bool
}

// GenericInst is an instantiation of a generic type.
type GenericInst struct {
	Generic Type // ClassType or ValueType
	Args    []Type
}

// Modified is a type preceded by custom modifiers.
type Modified struct {
	Mods []CustomMod
	Type Type
}

// FnPtr is a function pointer.
type FnPtr struct {
	Sig *MethodSig
}

// CustomMod is a CMOD_REQD or CMOD_OPT modifier.
type CustomMod struct {
	Required bool
	Type     TypeRef
}

func (Primitive) isType()    {}
func (*ClassType) isType()   {}
func (*ValueType) isType()   {}
func (*ArrayType) isType()   {}
func (*SZArray) isType()     {}
func (*Pointer) isType()     {}
func (*ByRef) isType()       {}
func (*GenericVar) isType()  {}
func (*GenericInst) isType() {}
func (*Modified) isType()    {}
func (*FnPtr) isType()       {}

// Signature is any decoded member signature.
type Signature interface {
	Convention() CallConv
	String() string
}

// Param is a return type or parameter. Type is a ByRef for by-reference
// parameters, TypedByRef or Void where allowed.
type Param struct {
	Mods []CustomMod
	Type Type
}

// IsByRef reports whether the parameter is passed by reference.
func (p *Param) IsByRef() bool {
	_, ok := p.Type.(*ByRef)
	return ok
}

// MethodSig is a MethodDefSig, MethodRefSig or StandAloneMethodSig.
type MethodSig struct {
	CallConv          CallConv
	GenericParamCount uint32
	Return            Param
	Params            []Param
	VarargParams      []Param // after SENTINEL
}

// FieldSig is a field signature.
type FieldSig struct {
	Mods []CustomMod
	Type Type
}

// PropertySig is a property signature.
type PropertySig struct {
	CallConv CallConv
	Mods     []CustomMod
	Type     Type
	Params   []Param
}

// Local is one local variable slot.
type Local struct {
	Mods   []CustomMod
	Pinned bool
	Type   Type
}

// LocalVarSig is a LocalVarSig of a method body.
type LocalVarSig struct {
	Locals []Local
}

// MethodSpecSig is the instantiation of a generic method.
type MethodSpecSig struct {
	Args []Type
}

// Convention returns the calling convention byte.
func (s *MethodSig) Convention() CallConv { return s.CallConv }

// Convention returns ConvField.
func (s *FieldSig) Convention() CallConv { return ConvField }

// Convention returns the calling convention byte.
func (s *PropertySig) Convention() CallConv { return s.CallConv }

// Convention returns ConvLocalSig.
func (s *LocalVarSig) Convention() CallConv { return ConvLocalSig }

// Convention returns ConvGenericInst.
func (s *MethodSpecSig) Convention() CallConv { return ConvGenericInst }
