package dotnet

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/skdltmxn/dotnet-go/internal/stream"
	"github.com/skdltmxn/dotnet-go/internal/tables"
	"github.com/skdltmxn/dotnet-go/pe"
	"github.com/skdltmxn/dotnet-go/signature"
)

// resolver turns the raw rows of a Store into the entity graph of a Module.
// Phases run in dependency order and each takes the tables it consumes.
type resolver struct {
	opts  ParseOptions
	log   *zap.Logger
	img   *pe.File
	store *tables.Store
	m     *Module
	phase string

	typeDefRows []tables.Row
}

type phase struct {
	name string
	run  func() error
}

func newResolver(img *pe.File, store *tables.Store, m *Module, opts ParseOptions) *resolver {
	return &resolver{opts: opts, log: opts.log(), img: img, store: store, m: m}
}

func (r *resolver) phases() []phase {
	if r.opts.headerOnly {
		return []phase{{"assembly", r.resolveAssembly}}
	}
	return []phase{
		{"ptr", r.resolvePtrTables},
		{"assembly", r.resolveAssembly},
		{"typedef", r.allocateTypeDefs},
		{"module", r.resolveModule},
		{"assemblyref", r.resolveAssemblyRefs},
		{"file", r.resolveFiles},
		{"resource", r.resolveResources},
		{"exportedtype", r.resolveExportedTypes},
		{"typeref", r.resolveTypeRefs},
		{"typespec", r.resolveTypeSpecs},
		{"extends", r.resolveExtends},
		{"interfaceimpl", r.resolveInterfaceImpls},
		{"field", r.resolveFields},
		{"method", r.resolveMethods},
		{"ownership", r.resolveOwnership},
		{"implmap", r.resolveImplMaps},
		{"declsecurity", r.resolveDeclSecurity},
		{"property", r.resolveProperties},
		{"classlayout", r.resolveClassLayouts},
		{"event", r.resolveEvents},
		{"fieldmarshal", r.resolveFieldMarshals},
		{"semantics", r.resolveSemantics},
		{"constant", r.resolveConstants},
		{"memberref", r.resolveMemberRefs},
		{"methodspec", r.resolveMethodSpecs},
		{"genericparam", r.resolveGenericParams},
		{"constraint", r.resolveConstraints},
		{"entrypoint", r.resolveEntryPoint},
		{"standalonesig", r.resolveStandAloneSigs},
		{"methodimpl", r.resolveMethodImpls},
		{"platform", r.resolvePlatformTables},
		{"customattribute", r.resolveCustomAttributes},
	}
}

func (r *resolver) run() error {
	for _, p := range r.phases() {
		r.phase = p.name
		r.log.Debug("resolving", zap.String("phase", p.name))
		if err := p.run(); err != nil {
			return err
		}
	}
	if r.opts.headerOnly {
		return nil
	}
	if left := r.store.Remaining(); len(left) > 0 {
		return newParseError("finish", left[0], 0, fmt.Sprintf("%d tables left", len(left)), ErrUnconsumed)
	}
	return nil
}

func (r *resolver) take(t tables.Table) ([]tables.Row, error) {
	rows, err := r.store.Take(t)
	if err != nil {
		return nil, newParseError(r.phase, t, 0, "", err)
	}
	return rows, nil
}

func (r *resolver) warn(kind WarningKind, t tables.Table, row uint32, err error, format string, args ...any) {
	w := &Warning{Kind: kind, Table: t, Row: row, Detail: fmt.Sprintf(format, args...), Err: err}
	r.m.warnings = append(r.m.warnings, w)
	r.log.Warn("metadata warning",
		zap.String("kind", string(kind)),
		zap.Stringer("table", t),
		zap.Uint32("row", row),
		zap.String("detail", w.Detail),
		zap.Error(err),
	)
}

func (r *resolver) unresolved(t tables.Table, row uint32, what string, target fmt.Stringer) {
	r.warn(UnresolvedReference, t, row, nil, "%s %s not found", what, target)
}

func (r *resolver) malformed(t tables.Table, row uint32, err error) {
	r.warn(MalformedSignature, t, row, err, "signature skipped")
}

// LookupType resolves TypeDefOrRef references inside signatures.
func (r *resolver) LookupType(tag uint8, row uint32) signature.TypeRef {
	switch tag {
	case signature.TagTypeDef:
		if t := r.m.typeDef(row); t != nil {
			return t
		}
	case signature.TagTypeRef:
		if t := r.m.typeRef(row); t != nil {
			return t
		}
	case signature.TagTypeSpec:
		if t := r.m.typeSpec(row); t != nil {
			return t
		}
	}
	return nil
}

func (r *resolver) typeRefOf(c tables.Coded) TypeReference {
	t, _ := r.m.entity(c.Table, c.Row).(TypeReference)
	return t
}

func (r *resolver) methodOf(c tables.Coded) Method {
	m, _ := r.m.entity(c.Table, c.Row).(Method)
	return m
}

// logicalRows is the row count list columns index: the Ptr table's when
// one exists.
func logicalRows(m tables.Remap, physical int) uint32 {
	if m != nil {
		return uint32(len(m))
	}
	return uint32(physical)
}

type rowRef uint32

func (r rowRef) String() string { return fmt.Sprintf("row %d", uint32(r)) }

func (r *resolver) resolvePtrTables() error {
	ptrs := []struct {
		table  tables.Table
		column string
		remap  *tables.Remap
	}{
		{tables.FieldPtr, "Field", &r.m.fieldMap},
		{tables.MethodPtr, "Method", &r.m.methodMap},
		{tables.ParamPtr, "Param", &r.m.paramMap},
		{tables.EventPtr, "Event", &r.m.eventMap},
		{tables.PropertyPtr, "Property", &r.m.propertyMap},
	}
	for _, p := range ptrs {
		rows, err := r.take(p.table)
		if err != nil {
			return err
		}
		*p.remap = tables.NewRemap(rows, p.column)
	}
	return nil
}

func (r *resolver) resolveAssembly() error {
	rows, err := r.take(tables.Assembly)
	if err != nil || len(rows) == 0 {
		return err
	}
	if len(rows) > 1 {
		r.warn(UnsupportedTableVariant, tables.Assembly, 2, nil, "%d Assembly rows, using the first", len(rows))
	}
	row := rows[0]
	r.m.assembly = &AssemblyInfo{
		hashAlg: row.Uint("HashAlgID"),
		version: Version{
			Major:    uint16(row.Uint("MajorVersion")),
			Minor:    uint16(row.Uint("MinorVersion")),
			Build:    uint16(row.Uint("BuildNumber")),
			Revision: uint16(row.Uint("RevisionNumber")),
		},
		flags:     row.Uint("Flags"),
		publicKey: row.Blob("PublicKey"),
		name:      row.Str("Name"),
		culture:   row.Str("Culture"),
	}
	return nil
}

// allocateTypeDefs creates every TypeDef up front so later phases can link
// to types defined after the referencing row.
func (r *resolver) allocateTypeDefs() error {
	rows, err := r.take(tables.TypeDef)
	if err != nil {
		return err
	}
	r.typeDefRows = rows
	r.m.typeDefs = make([]*TypeDef, len(rows))
	for i, row := range rows {
		r.m.typeDefs[i] = &TypeDef{
			rid:       uint32(i + 1),
			flags:     row.Uint("Flags"),
			name:      row.Str("Name"),
			namespace: row.Str("Namespace"),
		}
	}

	nested, err := r.take(tables.NestedClass)
	if err != nil {
		return err
	}
	for i, row := range nested {
		inner := r.m.typeDef(row.RID("NestedClass"))
		outer := r.m.typeDef(row.RID("EnclosingClass"))
		if inner == nil || outer == nil || inner == outer {
			r.warn(UnresolvedReference, tables.NestedClass, uint32(i+1), nil,
				"TypeDef %d nested in TypeDef %d", row.RID("NestedClass"), row.RID("EnclosingClass"))
			continue
		}
		inner.enclosing = outer
		outer.nested = append(outer.nested, inner)
	}
	return nil
}

func (r *resolver) resolveModule() error {
	rows, err := r.take(tables.Module)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		row := rows[0]
		r.m.generation = uint16(row.Uint("Generation"))
		r.m.name = row.Str("Name")
		r.m.mvid = row.GUID("Mvid")
		r.m.encID = row.GUID("EncID")
		r.m.encBaseID = row.GUID("EncBaseID")
	}

	refs, err := r.take(tables.ModuleRef)
	if err != nil {
		return err
	}
	r.m.moduleRefs = make([]*ModuleRefInfo, len(refs))
	for i, row := range refs {
		r.m.moduleRefs[i] = &ModuleRefInfo{rid: uint32(i + 1), name: row.Str("Name")}
	}
	return nil
}

func (r *resolver) resolveAssemblyRefs() error {
	rows, err := r.take(tables.AssemblyRef)
	if err != nil {
		return err
	}
	r.m.assemblyRefs = make([]*AssemblyRefInfo, len(rows))
	for i, row := range rows {
		r.m.assemblyRefs[i] = &AssemblyRefInfo{
			rid: uint32(i + 1),
			version: Version{
				Major:    uint16(row.Uint("MajorVersion")),
				Minor:    uint16(row.Uint("MinorVersion")),
				Build:    uint16(row.Uint("BuildNumber")),
				Revision: uint16(row.Uint("RevisionNumber")),
			},
			flags:            row.Uint("Flags"),
			publicKeyOrToken: row.Blob("PublicKeyOrToken"),
			name:             row.Str("Name"),
			culture:          row.Str("Culture"),
			hashValue:        row.Blob("HashValue"),
		}
	}
	return nil
}

func (r *resolver) resolveFiles() error {
	rows, err := r.take(tables.File)
	if err != nil {
		return err
	}
	r.m.files = make([]*FileReference, len(rows))
	for i, row := range rows {
		r.m.files[i] = &FileReference{
			rid:       uint32(i + 1),
			flags:     row.Uint("Flags"),
			name:      row.Str("Name"),
			hashValue: row.Blob("HashValue"),
		}
	}
	return nil
}

func (r *resolver) resolveResources() error {
	rows, err := r.take(tables.ManifestResource)
	if err != nil {
		return err
	}
	r.m.resources = make([]ManifestResource, len(rows))
	for i, row := range rows {
		id := uint32(i + 1)
		base := resource{rid: id, name: row.Str("Name"), flags: row.Uint("Flags")}
		offset := row.Uint("Offset")

		impl := row.Coded("Implementation")
		if impl.IsNull() {
			data, err := r.readResource(offset)
			if err != nil {
				return newParseError(r.phase, tables.ManifestResource, id, "local resource "+base.name, err)
			}
			r.m.resources[i] = &LocalResource{resource: base, data: data}
			continue
		}

		switch impl.Table {
		case tables.File:
			f := at(r.m.files, impl.Row)
			if f == nil {
				r.unresolved(tables.ManifestResource, id, "implementation", impl)
			}
			r.m.resources[i] = &FileResource{resource: base, file: f, offset: offset}
		case tables.AssemblyRef:
			a := at(r.m.assemblyRefs, impl.Row)
			if a == nil {
				r.unresolved(tables.ManifestResource, id, "implementation", impl)
			}
			r.m.resources[i] = &AssemblyResource{resource: base, assembly: a}
		default:
			r.warn(UnsupportedTableVariant, tables.ManifestResource, id, nil, "implementation %s", impl)
		}
	}
	return nil
}

// readResource reads a length-prefixed local resource at offset within the
// CLI resources directory.
func (r *resolver) readResource(offset uint32) ([]byte, error) {
	dir := r.img.CLI.Resources
	if dir.VirtualAddress == 0 || uint64(offset)+4 > uint64(dir.Size) {
		return nil, fmt.Errorf("offset 0x%x outside the %d byte resources directory", offset, dir.Size)
	}
	rd, err := r.img.ReaderAt(dir.VirtualAddress + offset)
	if err != nil {
		return nil, err
	}
	n, err := rd.ReadU32()
	if err != nil {
		return nil, err
	}
	if uint64(offset)+4+uint64(n) > uint64(dir.Size) {
		return nil, fmt.Errorf("%d byte resource overruns the resources directory: %w", n, stream.ErrUnexpectedEOF)
	}
	return rd.ReadBytes(int(n))
}

func (r *resolver) resolveExportedTypes() error {
	rows, err := r.take(tables.ExportedType)
	if err != nil {
		return err
	}
	r.m.exportedTypes = make([]*ExportedTypeRef, len(rows))
	for i, row := range rows {
		r.m.exportedTypes[i] = &ExportedTypeRef{
			rid:       uint32(i + 1),
			flags:     row.Uint("Flags"),
			typeDefID: row.Uint("TypeDefID"),
			name:      row.Str("TypeName"),
			namespace: row.Str("TypeNamespace"),
		}
	}
	for i, row := range rows {
		t := r.m.exportedTypes[i]
		impl := row.Coded("Implementation")
		e := r.m.entity(impl.Table, impl.Row)
		if e == nil || e == Entity(t) {
			r.unresolved(tables.ExportedType, t.rid, "implementation", impl)
			continue
		}
		t.implementation = e
	}
	return nil
}

func (r *resolver) findExported(name, namespace string) *ExportedTypeRef {
	for _, e := range r.m.exportedTypes {
		if e.name == name && e.namespace == namespace {
			return e
		}
	}
	return nil
}

func (r *resolver) findTypeDef(name, namespace string) *TypeDef {
	for _, t := range r.m.typeDefs {
		if t.name == name && t.namespace == namespace {
			return t
		}
	}
	return nil
}

func (r *resolver) resolveTypeRefs() error {
	rows, err := r.take(tables.TypeRef)
	if err != nil {
		return err
	}
	r.m.typeRefs = make([]*TypeRef, len(rows))
	for i, row := range rows {
		r.m.typeRefs[i] = &TypeRef{
			rid:       uint32(i + 1),
			name:      row.Str("Name"),
			namespace: row.Str("Namespace"),
		}
	}

	for i, row := range rows {
		t := r.m.typeRefs[i]
		scope := row.Coded("ResolutionScope")

		// A null scope means the type is found through ExportedType
		if scope.IsNull() {
			t.kind = ScopeExported
			if e := r.findExported(t.name, t.namespace); e != nil {
				t.resolved = e
			} else {
				r.warn(UnresolvedReference, tables.TypeRef, t.rid, nil, "no exported type %s", t.FullName())
			}
			continue
		}

		switch scope.Table {
		case tables.Module:
			t.kind = ScopeModule
			t.scope = r.m
			if d := r.findTypeDef(t.name, t.namespace); d != nil {
				t.resolved = d
			} else {
				r.warn(UnresolvedReference, tables.TypeRef, t.rid, nil, "no local type %s", t.FullName())
			}
		case tables.ModuleRef:
			t.kind = ScopeModuleRef
			if mr := at(r.m.moduleRefs, scope.Row); mr != nil {
				t.scope = mr
			} else {
				r.unresolved(tables.TypeRef, t.rid, "scope", scope)
			}
		case tables.AssemblyRef:
			t.kind = ScopeAssemblyRef
			if ar := at(r.m.assemblyRefs, scope.Row); ar != nil {
				t.scope = ar
			} else {
				r.unresolved(tables.TypeRef, t.rid, "scope", scope)
			}
		case tables.TypeRef:
			t.kind = ScopeNested
			if outer := r.m.typeRef(scope.Row); outer != nil && outer != t {
				t.scope = outer
			} else {
				r.unresolved(tables.TypeRef, t.rid, "scope", scope)
			}
		default:
			r.warn(UnsupportedTableVariant, tables.TypeRef, t.rid, nil, "resolution scope %s", scope)
		}
	}
	return nil
}

func (r *resolver) resolveTypeSpecs() error {
	rows, err := r.take(tables.TypeSpec)
	if err != nil {
		return err
	}
	r.m.typeSpecs = make([]*TypeSpec, len(rows))
	for i := range rows {
		r.m.typeSpecs[i] = &TypeSpec{rid: uint32(i + 1)}
	}
	for i, row := range rows {
		sig, err := signature.ParseType(row.Blob("Signature"), r)
		if err != nil {
			r.malformed(tables.TypeSpec, uint32(i+1), err)
			continue
		}
		r.m.typeSpecs[i].sig = sig
	}
	return nil
}

func (r *resolver) resolveExtends() error {
	for i, row := range r.typeDefRows {
		c := row.Coded("Extends")
		if c.IsNull() {
			continue
		}
		base := r.typeRefOf(c)
		if base == nil {
			r.unresolved(tables.TypeDef, uint32(i+1), "base type", c)
			continue
		}
		r.m.typeDefs[i].extends = base
	}
	return nil
}

func (r *resolver) resolveInterfaceImpls() error {
	rows, err := r.take(tables.InterfaceImpl)
	if err != nil {
		return err
	}
	r.m.interfaceImpls = make([]*InterfaceImpl, len(rows))
	for i, row := range rows {
		impl := &InterfaceImpl{rid: uint32(i + 1), class: r.m.typeDef(row.RID("Class"))}
		r.m.interfaceImpls[i] = impl

		c := row.Coded("Interface")
		if impl.iface = r.typeRefOf(c); impl.iface == nil {
			r.unresolved(tables.InterfaceImpl, impl.rid, "interface", c)
		}
		if impl.class == nil {
			r.unresolved(tables.InterfaceImpl, impl.rid, "class", rowRef(row.RID("Class")))
			continue
		}
		impl.class.interfaces = append(impl.class.interfaces, impl)
	}
	return nil
}
