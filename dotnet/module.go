package dotnet

import (
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/skdltmxn/dotnet-go/internal/heap"
	"github.com/skdltmxn/dotnet-go/internal/tables"
	"github.com/skdltmxn/dotnet-go/pe"
)

// Module is a fully resolved metadata graph of one PE image. It is
// immutable once returned and safe for concurrent read access.
type Module struct {
	attributeSet

	generation     uint16
	name           string
	mvid           [16]byte
	encID          [16]byte
	encBaseID      [16]byte
	runtimeVersion string
	cliFlags       uint32

	assembly       *AssemblyInfo
	typeDefs       []*TypeDef
	typeRefs       []*TypeRef
	typeSpecs      []*TypeSpec
	exportedTypes  []*ExportedTypeRef
	fields         []*Field
	methods        []*MethodDef
	params         []*Param
	properties     []*Property
	events         []*Event
	interfaceImpls []*InterfaceImpl
	memberRefs     []MemberRef
	methodSpecs    []*MethodSpec
	genericParams  []*GenericParamDef
	constraints    []*GenericParamConstraint
	attributes     []*CustomAttribute
	declSecurity   []*DeclSecurity
	assemblyRefs   []*AssemblyRefInfo
	moduleRefs     []*ModuleRefInfo
	files          []*FileReference
	resources      []ManifestResource
	standAloneSigs []*StandAloneSig
	methodImpls    []*MethodImpl
	entryPoint     Entity

	fieldMap    tables.Remap
	methodMap   tables.Remap
	paramMap    tables.Remap
	propertyMap tables.Remap
	eventMap    tables.Remap

	userStrings heap.UserStrings
	warnings    []*Warning
}

// Open parses the assembly at path. The file is closed before Open returns.
func Open(path string, opts ParseOptions) (*Module, error) {
	img, err := pe.Open(path)
	if err != nil {
		return nil, newParseError("envelope", tables.Invalid, 0, "", err)
	}
	return ParseImage(img, opts)
}

// Parse parses an assembly of size bytes read from r.
func Parse(r io.ReaderAt, size int64, opts ParseOptions) (*Module, error) {
	img, err := pe.NewFile(r, size)
	if err != nil {
		return nil, newParseError("envelope", tables.Invalid, 0, "", err)
	}
	return ParseImage(img, opts)
}

// ParseImage resolves the metadata of an already parsed PE image.
func ParseImage(img *pe.File, opts ParseOptions) (*Module, error) {
	md, err := img.Metadata()
	if err != nil {
		return nil, newParseError("envelope", tables.Invalid, 0, "", err)
	}
	data, err := md.TablesStream()
	if err != nil {
		return nil, newParseError("envelope", tables.Invalid, 0, "", err)
	}

	heaps := heap.Heaps{}
	heaps.Strings, _ = md.Stream(pe.StreamStrings)
	heaps.Blob, _ = md.Stream(pe.StreamBlob)
	heaps.GUID, _ = md.Stream(pe.StreamGUID)
	heaps.UserStrings, _ = md.Stream(pe.StreamUserStrings)

	last := tables.GenericParamConstraint
	if opts.headerOnly {
		last = tables.Assembly
	}
	store, err := tables.DecodeUntil(data, heaps, last)
	if err != nil {
		return nil, newParseError("tables", tables.Invalid, 0, "", err)
	}

	m := &Module{
		runtimeVersion: md.Version,
		cliFlags:       img.CLI.Flags,
		userStrings:    heaps.UserStrings,
	}
	r := newResolver(img, store, m, opts)
	if err := r.run(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadAssemblyInfo reads only the assembly identity of the image at path.
// It returns nil without error for a module that is not an assembly
// manifest.
func ReadAssemblyInfo(path string) (*AssemblyInfo, error) {
	m, err := Open(path, NewParseOptions().WithHeaderOnly(true))
	if err != nil {
		return nil, err
	}
	return m.assembly, nil
}

func newParseError(phase string, t tables.Table, row uint32, msg string, err error) *ParseError {
	return &ParseError{Phase: phase, Table: t, Row: row, Message: msg, Err: err}
}

func (m *Module) Token() uint32 { return tables.Module.Token(1) }

// Name returns the module file name.
func (m *Module) Name() string { return m.name }

// Generation returns the edit-and-continue generation.
func (m *Module) Generation() uint16 { return m.generation }

// Mvid returns the module version identifier.
func (m *Module) Mvid() [16]byte { return m.mvid }

// EncID returns the edit-and-continue identifiers.
func (m *Module) EncID() (id, baseID [16]byte) { return m.encID, m.encBaseID }

// RuntimeVersion returns the metadata version string, e.g. "v4.0.30319".
func (m *Module) RuntimeVersion() string { return m.runtimeVersion }

// CLIFlags returns the flags of the CLI header.
func (m *Module) CLIFlags() uint32 { return m.cliFlags }

// Assembly returns the assembly identity, or nil for a module that is not
// an assembly manifest.
func (m *Module) Assembly() *AssemblyInfo { return m.assembly }

// Types returns all TypeDefs in table order, including <Module>.
func (m *Module) Types() []*TypeDef { return m.typeDefs }

// TypeRefs returns all TypeRefs in table order.
func (m *Module) TypeRefs() []*TypeRef { return m.typeRefs }

// TypeSpecs returns all TypeSpecs in table order.
func (m *Module) TypeSpecs() []*TypeSpec { return m.typeSpecs }

// ExportedTypes returns all exported and forwarded types.
func (m *Module) ExportedTypes() []*ExportedTypeRef { return m.exportedTypes }

// Fields returns all fields in physical table order.
func (m *Module) Fields() []*Field { return m.fields }

// Methods returns all methods in physical table order.
func (m *Module) Methods() []*MethodDef { return m.methods }

// Params returns all parameters in physical table order.
func (m *Module) Params() []*Param { return m.params }

// Properties returns all properties in physical table order.
func (m *Module) Properties() []*Property { return m.properties }

// Events returns all events in physical table order.
func (m *Module) Events() []*Event { return m.events }

// InterfaceImpls returns all interface implementations.
func (m *Module) InterfaceImpls() []*InterfaceImpl { return m.interfaceImpls }

// MemberRefs returns all member references.
func (m *Module) MemberRefs() []MemberRef { return m.memberRefs }

// MethodSpecs returns all generic method instantiations.
func (m *Module) MethodSpecs() []*MethodSpec { return m.methodSpecs }

// GenericParams returns all generic parameters in table order.
func (m *Module) GenericParams() []*GenericParamDef { return m.genericParams }

// GenericParamConstraints returns all resolved generic parameter constraints.
func (m *Module) GenericParamConstraints() []*GenericParamConstraint {
	return compact(m.constraints)
}

// AllCustomAttributes returns every custom attribute of the module,
// regardless of owner.
func (m *Module) AllCustomAttributes() []*CustomAttribute { return m.attributes }

// AllDeclSecurity returns every declarative security entry of the module.
func (m *Module) AllDeclSecurity() []*DeclSecurity { return m.declSecurity }

// AssemblyRefs returns the referenced assemblies.
func (m *Module) AssemblyRefs() []*AssemblyRefInfo { return m.assemblyRefs }

// ModuleRefs returns the referenced modules.
func (m *Module) ModuleRefs() []*ModuleRefInfo { return m.moduleRefs }

// Files returns the files of a multi-file assembly.
func (m *Module) Files() []*FileReference { return m.files }

// Resources returns the manifest resources whose implementation could be
// resolved.
func (m *Module) Resources() []ManifestResource {
	out := make([]ManifestResource, 0, len(m.resources))
	for _, r := range m.resources {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// StandAloneSigs returns the stand-alone signatures.
func (m *Module) StandAloneSigs() []*StandAloneSig { return m.standAloneSigs }

// MethodImpls returns all method overrides.
func (m *Module) MethodImpls() []*MethodImpl { return m.methodImpls }

// EntryPoint returns the *MethodDef or *FileReference named by the CLI
// header entry point token, or nil.
func (m *Module) EntryPoint() Entity { return m.entryPoint }

// TypeByName returns the TypeDef with the given full name, using '+' for
// nested types, or nil.
func (m *Module) TypeByName(fullName string) *TypeDef {
	for _, t := range m.typeDefs {
		if t.FullName() == fullName {
			return t
		}
	}
	return nil
}

// Warnings returns the recoverable problems found while resolving.
func (m *Module) Warnings() []*Warning { return m.warnings }

// Err combines all warnings into one error, or returns nil if there were
// none.
func (m *Module) Err() error {
	var err error
	for _, w := range m.warnings {
		err = multierr.Append(err, w)
	}
	return err
}

func (m *Module) String() string {
	return fmt.Sprintf("%s (%d types)", m.name, len(m.typeDefs))
}

// at returns the element for a 1-based row, or nil if out of range.
func at[T any](s []*T, rid uint32) *T {
	if rid == 0 || int(rid) > len(s) {
		return nil
	}
	return s[rid-1]
}

func compact[T any](s []*T) []*T {
	out := make([]*T, 0, len(s))
	for _, v := range s {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (m *Module) typeDef(rid uint32) *TypeDef   { return at(m.typeDefs, rid) }
func (m *Module) typeRef(rid uint32) *TypeRef   { return at(m.typeRefs, rid) }
func (m *Module) typeSpec(rid uint32) *TypeSpec { return at(m.typeSpecs, rid) }

// Ptr-indirected tables translate logical rows first.
func (m *Module) field(rid uint32) *Field       { return at(m.fields, m.fieldMap.Physical(rid)) }
func (m *Module) method(rid uint32) *MethodDef  { return at(m.methods, m.methodMap.Physical(rid)) }
func (m *Module) param(rid uint32) *Param       { return at(m.params, m.paramMap.Physical(rid)) }
func (m *Module) property(rid uint32) *Property { return at(m.properties, m.propertyMap.Physical(rid)) }
func (m *Module) event(rid uint32) *Event       { return at(m.events, m.eventMap.Physical(rid)) }

func (m *Module) memberRef(rid uint32) MemberRef {
	if rid == 0 || int(rid) > len(m.memberRefs) {
		return nil
	}
	return m.memberRefs[rid-1]
}

func (m *Module) resource(rid uint32) ManifestResource {
	if rid == 0 || int(rid) > len(m.resources) {
		return nil
	}
	return m.resources[rid-1]
}

// entity returns the entity at row rid of table t, or nil.
func (m *Module) entity(t tables.Table, rid uint32) Entity {
	switch t {
	case tables.Module:
		if rid == 1 {
			return m
		}
	case tables.TypeRef:
		if e := m.typeRef(rid); e != nil {
			return e
		}
	case tables.TypeDef:
		if e := m.typeDef(rid); e != nil {
			return e
		}
	case tables.Field:
		if e := m.field(rid); e != nil {
			return e
		}
	case tables.Method:
		if e := m.method(rid); e != nil {
			return e
		}
	case tables.Param:
		if e := m.param(rid); e != nil {
			return e
		}
	case tables.InterfaceImpl:
		if e := at(m.interfaceImpls, rid); e != nil {
			return e
		}
	case tables.MemberRef:
		if e := m.memberRef(rid); e != nil {
			return e
		}
	case tables.CustomAttribute:
		if e := at(m.attributes, rid); e != nil {
			return e
		}
	case tables.DeclSecurity:
		if e := at(m.declSecurity, rid); e != nil {
			return e
		}
	case tables.StandAloneSig:
		if e := at(m.standAloneSigs, rid); e != nil {
			return e
		}
	case tables.Event:
		if e := m.event(rid); e != nil {
			return e
		}
	case tables.Property:
		if e := m.property(rid); e != nil {
			return e
		}
	case tables.MethodImpl:
		if e := at(m.methodImpls, rid); e != nil {
			return e
		}
	case tables.ModuleRef:
		if e := at(m.moduleRefs, rid); e != nil {
			return e
		}
	case tables.TypeSpec:
		if e := m.typeSpec(rid); e != nil {
			return e
		}
	case tables.Assembly:
		if rid == 1 && m.assembly != nil {
			return m.assembly
		}
	case tables.AssemblyRef:
		if e := at(m.assemblyRefs, rid); e != nil {
			return e
		}
	case tables.File:
		if e := at(m.files, rid); e != nil {
			return e
		}
	case tables.ExportedType:
		if e := at(m.exportedTypes, rid); e != nil {
			return e
		}
	case tables.ManifestResource:
		if e := m.resource(rid); e != nil {
			return e
		}
	case tables.GenericParam:
		if e := at(m.genericParams, rid); e != nil {
			return e
		}
	case tables.MethodSpec:
		if e := at(m.methodSpecs, rid); e != nil {
			return e
		}
	case tables.GenericParamConstraint:
		if e := at(m.constraints, rid); e != nil {
			return e
		}
	}
	return nil
}
