package dotnet

import (
	"github.com/skdltmxn/dotnet-go/internal/tables"
	"github.com/skdltmxn/dotnet-go/signature"
)

// Field attributes
const (
	FieldAccessMask  = 0x0007
	FieldPrivate     = 0x0001
	FieldAssembly    = 0x0003
	FieldFamily      = 0x0004
	FieldPublic      = 0x0006
	FieldStatic      = 0x0010
	FieldInitOnly    = 0x0020
	FieldLiteral     = 0x0040
	FieldHasRVA      = 0x0100
	FieldPInvokeImpl = 0x2000
)

// Method attributes
const (
	MethodAccessMask  = 0x0007
	MethodPrivate     = 0x0001
	MethodPublic      = 0x0006
	MethodStatic      = 0x0010
	MethodFinal       = 0x0020
	MethodVirtual     = 0x0040
	MethodAbstract    = 0x0400
	MethodSpecialName = 0x0800
	MethodPInvokeImpl = 0x2000

	MethodImplCodeTypeMask = 0x0003
	MethodImplIL           = 0x0000
	MethodImplNative       = 0x0001
)

// Method semantics flags
const (
	SemanticsSetter   = 0x0001
	SemanticsGetter   = 0x0002
	SemanticsOther    = 0x0004
	SemanticsAddOn    = 0x0008
	SemanticsRemoveOn = 0x0010
	SemanticsFire     = 0x0020
)

// Method is a callable member: a *MethodDef or a *MethodRef.
type Method interface {
	CustomAttributeOwner
	Name() string

	// Signature returns the decoded method signature, or nil if its blob
	// was malformed.
	Signature() *signature.MethodSig

	isMethod()
}

// ImplMap describes a platform-invoke import of a method or field.
type ImplMap struct {
	Flags      uint16
	ImportName string
	Scope      *ModuleRefInfo
}

// Field is a field defined in this module.
type Field struct {
	attributeSet

	rid       uint32
	flags     uint16
	name      string
	sig       *signature.FieldSig
	owner     *TypeDef
	offset    uint32
	hasOffset bool
	rva       uint32
	marshal   []byte
	constant  *Constant
	implMap   *ImplMap
}

func (f *Field) Token() uint32      { return tables.Field.Token(f.rid) }
func (f *Field) Name() string       { return f.name }
func (f *Field) Flags() uint16      { return f.flags }
func (f *Field) IsStatic() bool     { return f.flags&FieldStatic != 0 }
func (f *Field) IsLiteral() bool    { return f.flags&FieldLiteral != 0 }
func (f *Field) Owner() *TypeDef    { return f.owner }
func (f *Field) RVA() uint32        { return f.rva }
func (f *Field) Marshal() []byte    { return f.marshal }
func (f *Field) Default() *Constant { return f.constant }
func (f *Field) ImplMap() *ImplMap  { return f.implMap }

// Signature returns the decoded field signature, or nil if its blob was
// malformed.
func (f *Field) Signature() *signature.FieldSig { return f.sig }

// Offset returns the explicit layout offset and whether one is declared.
func (f *Field) Offset() (uint32, bool) { return f.offset, f.hasOffset }

// MethodDef is a method defined in this module.
type MethodDef struct {
	attributeSet
	securitySet
	genericSet

	rid       uint32
	rva       uint32
	implFlags uint16
	flags     uint16
	name      string
	sig       *signature.MethodSig
	owner     *TypeDef
	params    []*Param
	ret       *Param
	implMap   *ImplMap
}

func (m *MethodDef) Token() uint32                   { return tables.Method.Token(m.rid) }
func (m *MethodDef) Name() string                    { return m.name }
func (m *MethodDef) Flags() uint16                   { return m.flags }
func (m *MethodDef) ImplFlags() uint16               { return m.implFlags }
func (m *MethodDef) RVA() uint32                     { return m.rva }
func (m *MethodDef) Signature() *signature.MethodSig { return m.sig }
func (m *MethodDef) Owner() *TypeDef                 { return m.owner }
func (m *MethodDef) ImplMap() *ImplMap               { return m.implMap }
func (m *MethodDef) IsStatic() bool                  { return m.flags&MethodStatic != 0 }
func (m *MethodDef) IsVirtual() bool                 { return m.flags&MethodVirtual != 0 }
func (m *MethodDef) IsAbstract() bool                { return m.flags&MethodAbstract != 0 }
func (m *MethodDef) isMethod()                       {}

// Params returns the Param rows of the method in table order. The return
// value parameter, if present, is only available through ReturnParam.
func (m *MethodDef) Params() []*Param { return m.params }

// ReturnParam returns the sequence 0 parameter carrying return value
// attributes, or nil.
func (m *MethodDef) ReturnParam() *Param { return m.ret }

// Param returns the parameter with the given 1-based sequence, or nil.
func (m *MethodDef) Param(sequence uint16) *Param {
	for _, p := range m.params {
		if p.sequence == sequence {
			return p
		}
	}
	return nil
}

// Param is a named method parameter. Sequence 0 describes the return value.
type Param struct {
	attributeSet

	rid      uint32
	flags    uint16
	sequence uint16
	name     string
	method   *MethodDef
	marshal  []byte
	constant *Constant
}

func (p *Param) Token() uint32      { return tables.Param.Token(p.rid) }
func (p *Param) Name() string       { return p.name }
func (p *Param) Flags() uint16      { return p.flags }
func (p *Param) Sequence() uint16   { return p.sequence }
func (p *Param) Method() *MethodDef { return p.method }
func (p *Param) Marshal() []byte    { return p.marshal }
func (p *Param) Default() *Constant { return p.constant }

// Type returns the parameter type from the owning method's signature, or nil
// if it is unknown.
func (p *Param) Type() signature.Type {
	if p.method == nil || p.method.sig == nil {
		return nil
	}
	sig := p.method.sig
	if p.sequence == 0 {
		return sig.Return.Type
	}
	if int(p.sequence) > len(sig.Params) {
		return nil
	}
	return sig.Params[p.sequence-1].Type
}

// Property is a property defined in this module.
type Property struct {
	attributeSet

	rid      uint32
	flags    uint16
	name     string
	sig      *signature.PropertySig
	owner    *TypeDef
	getter   *MethodDef
	setter   *MethodDef
	others   []*MethodDef
	constant *Constant
}

func (p *Property) Token() uint32                     { return tables.Property.Token(p.rid) }
func (p *Property) Name() string                      { return p.name }
func (p *Property) Flags() uint16                     { return p.flags }
func (p *Property) Signature() *signature.PropertySig { return p.sig }
func (p *Property) Owner() *TypeDef                   { return p.owner }
func (p *Property) Getter() *MethodDef                { return p.getter }
func (p *Property) Setter() *MethodDef                { return p.setter }
func (p *Property) Others() []*MethodDef              { return p.others }
func (p *Property) Default() *Constant                { return p.constant }

// Event is an event defined in this module.
type Event struct {
	attributeSet

	rid       uint32
	flags     uint16
	name      string
	eventType TypeReference
	owner     *TypeDef
	add       *MethodDef
	remove    *MethodDef
	fire      *MethodDef
	others    []*MethodDef
}

func (e *Event) Token() uint32            { return tables.Event.Token(e.rid) }
func (e *Event) Name() string             { return e.name }
func (e *Event) Flags() uint16            { return e.flags }
func (e *Event) EventType() TypeReference { return e.eventType }
func (e *Event) Owner() *TypeDef          { return e.owner }
func (e *Event) AddOn() *MethodDef        { return e.add }
func (e *Event) RemoveOn() *MethodDef     { return e.remove }
func (e *Event) Fire() *MethodDef         { return e.fire }
func (e *Event) Others() []*MethodDef     { return e.others }

// MemberRef is a reference to a field or method, a *FieldRef or *MethodRef.
type MemberRef interface {
	CustomAttributeOwner
	Name() string

	// Parent returns the TypeReference, *ModuleRefInfo (global member) or
	// *MethodDef (vararg call site) the member belongs to. It is nil when
	// unresolved.
	Parent() Entity

	isMemberRef()
}

type memberRef struct {
	attributeSet

	rid    uint32
	name   string
	parent Entity
}

func (m *memberRef) Token() uint32  { return tables.MemberRef.Token(m.rid) }
func (m *memberRef) Name() string   { return m.name }
func (m *memberRef) Parent() Entity { return m.parent }
func (m *memberRef) isMemberRef()   {}

// FieldRef is a reference to a field.
type FieldRef struct {
	memberRef
	sig *signature.FieldSig
}

// Signature returns the decoded field signature, or nil if malformed.
func (f *FieldRef) Signature() *signature.FieldSig { return f.sig }

// MethodRef is a reference to a method, or a vararg call site signature
// when its parent is a *MethodDef.
type MethodRef struct {
	memberRef
	sig *signature.MethodSig
}

// Signature returns the decoded method signature, or nil if malformed.
func (m *MethodRef) Signature() *signature.MethodSig { return m.sig }

func (m *MethodRef) isMethod() {}

// MethodSpec is an instantiation of a generic method.
type MethodSpec struct {
	attributeSet

	rid    uint32
	method Method
	sig    *signature.MethodSpecSig
}

func (m *MethodSpec) Token() uint32 { return tables.MethodSpec.Token(m.rid) }

// Method returns the instantiated generic method.
func (m *MethodSpec) Method() Method { return m.method }

// Signature returns the type arguments, or nil if malformed.
func (m *MethodSpec) Signature() *signature.MethodSpecSig { return m.sig }

// StandAloneSig is a signature not attached to a member, such as the locals
// of a method body or an indirect call site.
type StandAloneSig struct {
	attributeSet

	rid uint32
	sig signature.Signature
}

func (s *StandAloneSig) Token() uint32 { return tables.StandAloneSig.Token(s.rid) }

// Signature returns the decoded signature, or nil if malformed.
func (s *StandAloneSig) Signature() signature.Signature { return s.sig }
