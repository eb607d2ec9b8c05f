package dotnet

import (
	"github.com/skdltmxn/dotnet-go/internal/tables"
	"github.com/skdltmxn/dotnet-go/signature"
)

// maxNesting bounds walks up declaring-type chains.
const maxNesting = 64

// TypeReference is anything usable where a type is referenced: a TypeDef,
// TypeRef, TypeSpec or ExportedTypeRef.
type TypeReference interface {
	CustomAttributeOwner

	// Name returns the simple type name.
	Name() string

	// Namespace returns the declared namespace, empty for nested types.
	Namespace() string

	// FullName returns the namespace-qualified name with '+' separating
	// nested types. TypeSpecs render their signature.
	FullName() string

	isTypeReference()
}

// Type attributes
const (
	TypeVisibilityMask    = 0x00000007
	TypeNotPublic         = 0x00000000
	TypePublic            = 0x00000001
	TypeNestedPublic      = 0x00000002
	TypeNestedPrivate     = 0x00000003
	TypeNestedFamily      = 0x00000004
	TypeNestedAssembly    = 0x00000005
	TypeNestedFamANDAssem = 0x00000006
	TypeNestedFamORAssem  = 0x00000007
	TypeInterface         = 0x00000020
	TypeAbstract          = 0x00000080
	TypeSealed            = 0x00000100
	TypeSpecialName       = 0x00000400
	TypeImport            = 0x00001000
	TypeSerializable      = 0x00002000
	TypeBeforeFieldInit   = 0x00100000
)

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// TypeDef is a type defined in this module.
type TypeDef struct {
	attributeSet
	securitySet
	genericSet

	rid       uint32
	flags     uint32
	name      string
	namespace string

	extends     TypeReference
	interfaces  []*InterfaceImpl
	fields      []*Field
	methods     []*MethodDef
	properties  []*Property
	events      []*Event
	nested      []*TypeDef
	enclosing   *TypeDef
	layout      *ClassLayout
	methodImpls []*MethodImpl
}

func (t *TypeDef) Token() uint32      { return tables.TypeDef.Token(t.rid) }
func (t *TypeDef) Name() string       { return t.name }
func (t *TypeDef) Namespace() string  { return t.namespace }
func (t *TypeDef) Flags() uint32      { return t.flags }
func (t *TypeDef) isTypeReference()   {}
func (t *TypeDef) IsInterface() bool  { return t.flags&TypeInterface != 0 }
func (t *TypeDef) IsAbstract() bool   { return t.flags&TypeAbstract != 0 }
func (t *TypeDef) IsSealed() bool     { return t.flags&TypeSealed != 0 }
func (t *TypeDef) Visibility() uint32 { return t.flags & TypeVisibilityMask }

// FullName returns the namespace-qualified name, joining nested types with '+'.
func (t *TypeDef) FullName() string {
	name, top := t.name, t
	for depth := 0; top.enclosing != nil && depth < maxNesting; depth++ {
		top = top.enclosing
		name = top.name + "+" + name
	}
	return qualify(top.namespace, name)
}

// Extends returns the base type, or nil for interfaces and System.Object.
func (t *TypeDef) Extends() TypeReference { return t.extends }

// Interfaces returns the interfaces the type implements.
func (t *TypeDef) Interfaces() []*InterfaceImpl { return t.interfaces }

// Fields returns the fields the type owns.
func (t *TypeDef) Fields() []*Field { return t.fields }

// Methods returns the methods the type owns.
func (t *TypeDef) Methods() []*MethodDef { return t.methods }

// Properties returns the properties the type owns.
func (t *TypeDef) Properties() []*Property { return t.properties }

// Events returns the events the type owns.
func (t *TypeDef) Events() []*Event { return t.events }

// NestedClasses returns the types declared inside this one.
func (t *TypeDef) NestedClasses() []*TypeDef { return t.nested }

// EnclosingClass returns the declaring type of a nested type, or nil.
func (t *TypeDef) EnclosingClass() *TypeDef { return t.enclosing }

// Layout returns the explicit class layout, or nil if none is declared.
func (t *TypeDef) Layout() *ClassLayout { return t.layout }

// MethodImpls returns the method overrides declared by the type.
func (t *TypeDef) MethodImpls() []*MethodImpl { return t.methodImpls }

// Field returns the owned field with the given name, or nil.
func (t *TypeDef) Field(name string) *Field {
	for _, f := range t.fields {
		if f.name == name {
			return f
		}
	}
	return nil
}

// Method returns the first owned method with the given name, or nil.
func (t *TypeDef) Method(name string) *MethodDef {
	for _, m := range t.methods {
		if m.name == name {
			return m
		}
	}
	return nil
}

// ResolutionScope identifies where a TypeRef points.
type ResolutionScope uint8

const (
	ScopeExported    ResolutionScope = iota // no scope, found through ExportedType
	ScopeModule                             // this module
	ScopeModuleRef                          // another module of this assembly
	ScopeAssemblyRef                        // another assembly
	ScopeNested                             // nested in another TypeRef
)

func (s ResolutionScope) String() string {
	switch s {
	case ScopeExported:
		return "exported"
	case ScopeModule:
		return "module"
	case ScopeModuleRef:
		return "moduleref"
	case ScopeAssemblyRef:
		return "assemblyref"
	case ScopeNested:
		return "nested"
	default:
		return "unknown"
	}
}

// TypeRef is a reference to a type defined elsewhere.
type TypeRef struct {
	attributeSet

	rid       uint32
	name      string
	namespace string
	kind      ResolutionScope
	scope     Entity
	resolved  TypeReference
}

func (t *TypeRef) Token() uint32     { return tables.TypeRef.Token(t.rid) }
func (t *TypeRef) Name() string      { return t.name }
func (t *TypeRef) Namespace() string { return t.namespace }
func (t *TypeRef) isTypeReference()  {}

// ScopeKind returns the kind of resolution scope of the reference.
func (t *TypeRef) ScopeKind() ResolutionScope { return t.kind }

// Scope returns the *Module, *ModuleRefInfo, *AssemblyRefInfo or enclosing
// *TypeRef the reference is scoped to. It is nil for exported references.
func (t *TypeRef) Scope() Entity { return t.scope }

// Resolved returns the local *TypeDef or *ExportedTypeRef a module-scoped or
// exported reference matched, or nil.
func (t *TypeRef) Resolved() TypeReference { return t.resolved }

// FullName returns the namespace-qualified name, joining nested types with '+'.
func (t *TypeRef) FullName() string {
	name, top := t.name, t
	for depth := 0; depth < maxNesting; depth++ {
		outer, ok := top.scope.(*TypeRef)
		if !ok {
			break
		}
		top = outer
		name = top.name + "+" + name
	}
	return qualify(top.namespace, name)
}

// TypeSpec is a constructed type such as a generic instantiation or array.
type TypeSpec struct {
	attributeSet

	rid uint32
	sig signature.Type
}

func (t *TypeSpec) Token() uint32     { return tables.TypeSpec.Token(t.rid) }
func (t *TypeSpec) Namespace() string { return "" }
func (t *TypeSpec) isTypeReference()  {}

// Signature returns the decoded type, or nil if its blob was malformed.
func (t *TypeSpec) Signature() signature.Type { return t.sig }

// Name renders the type signature.
func (t *TypeSpec) Name() string { return t.FullName() }

// FullName renders the type signature.
func (t *TypeSpec) FullName() string {
	if t.sig == nil {
		return "?"
	}
	return t.sig.String()
}

// ExportedTypeRef is a type this assembly exports from another module or
// forwards to another assembly.
type ExportedTypeRef struct {
	attributeSet

	rid            uint32
	flags          uint32
	typeDefID      uint32
	name           string
	namespace      string
	implementation Entity
}

func (t *ExportedTypeRef) Token() uint32     { return tables.ExportedType.Token(t.rid) }
func (t *ExportedTypeRef) Name() string      { return t.name }
func (t *ExportedTypeRef) Namespace() string { return t.namespace }
func (t *ExportedTypeRef) Flags() uint32     { return t.flags }
func (t *ExportedTypeRef) isTypeReference()  {}

// TypeDefID returns the hint to the TypeDef row in the defining module.
func (t *ExportedTypeRef) TypeDefID() uint32 { return t.typeDefID }

// Implementation returns the *FileReference, *AssemblyRefInfo or enclosing
// *ExportedTypeRef holding the type.
func (t *ExportedTypeRef) Implementation() Entity { return t.implementation }

// IsForwarder reports whether the type is forwarded to another assembly.
func (t *ExportedTypeRef) IsForwarder() bool {
	_, ok := t.implementation.(*AssemblyRefInfo)
	return ok
}

// FullName returns the namespace-qualified name, joining nested types with '+'.
func (t *ExportedTypeRef) FullName() string {
	name, top := t.name, t
	for depth := 0; depth < maxNesting; depth++ {
		outer, ok := top.implementation.(*ExportedTypeRef)
		if !ok {
			break
		}
		top = outer
		name = top.name + "+" + name
	}
	return qualify(top.namespace, name)
}

// InterfaceImpl records that a type implements an interface.
type InterfaceImpl struct {
	attributeSet

	rid   uint32
	class *TypeDef
	iface TypeReference
}

func (i *InterfaceImpl) Token() uint32 { return tables.InterfaceImpl.Token(i.rid) }

// Class returns the implementing type.
func (i *InterfaceImpl) Class() *TypeDef { return i.class }

// Interface returns the implemented interface.
func (i *InterfaceImpl) Interface() TypeReference { return i.iface }

// ClassLayout is the explicit packing and size of a type.
type ClassLayout struct {
	PackingSize uint16
	ClassSize   uint32
}

// MethodImpl records that a method body implements a declaration, as for
// explicit interface implementations.
type MethodImpl struct {
	rid         uint32
	class       *TypeDef
	body        Method
	declaration Method
}

func (m *MethodImpl) Token() uint32 { return tables.MethodImpl.Token(m.rid) }

// Class returns the type declaring the override.
func (m *MethodImpl) Class() *TypeDef { return m.class }

// Body returns the implementing method.
func (m *MethodImpl) Body() Method { return m.body }

// Declaration returns the implemented method.
func (m *MethodImpl) Declaration() Method { return m.declaration }
