package dotnet

import (
	"go.uber.org/zap"

	"github.com/skdltmxn/dotnet-go/internal/tables"
	"github.com/skdltmxn/dotnet-go/pe"
	"github.com/skdltmxn/dotnet-go/signature"
)

func (r *resolver) resolveFields() error {
	rows, err := r.take(tables.Field)
	if err != nil {
		return err
	}
	r.m.fields = make([]*Field, len(rows))
	for i, row := range rows {
		f := &Field{
			rid:   uint32(i + 1),
			flags: uint16(row.Uint("Flags")),
			name:  row.Str("Name"),
		}
		r.m.fields[i] = f
		sig, err := signature.ParseField(row.Blob("Signature"), r)
		if err != nil {
			r.malformed(tables.Field, f.rid, err)
			continue
		}
		f.sig = sig
	}

	layouts, err := r.take(tables.FieldLayout)
	if err != nil {
		return err
	}
	for i, row := range layouts {
		f := r.m.field(row.RID("Field"))
		if f == nil {
			r.unresolved(tables.FieldLayout, uint32(i+1), "field", rowRef(row.RID("Field")))
			continue
		}
		f.offset, f.hasOffset = row.Uint("Offset"), true
	}

	rvas, err := r.take(tables.FieldRVA)
	if err != nil {
		return err
	}
	for i, row := range rvas {
		f := r.m.field(row.RID("Field"))
		if f == nil {
			r.unresolved(tables.FieldRVA, uint32(i+1), "field", rowRef(row.RID("Field")))
			continue
		}
		f.rva = row.Uint("RVA")
	}
	return nil
}

func (r *resolver) resolveMethods() error {
	params, err := r.take(tables.Param)
	if err != nil {
		return err
	}
	r.m.params = make([]*Param, len(params))
	for i, row := range params {
		r.m.params[i] = &Param{
			rid:      uint32(i + 1),
			flags:    uint16(row.Uint("Flags")),
			sequence: uint16(row.Uint("Sequence")),
			name:     row.Str("Name"),
		}
	}

	rows, err := r.take(tables.Method)
	if err != nil {
		return err
	}
	r.m.methods = make([]*MethodDef, len(rows))
	for i, row := range rows {
		md := &MethodDef{
			rid:       uint32(i + 1),
			rva:       row.Uint("RVA"),
			implFlags: uint16(row.Uint("ImplFlags")),
			flags:     uint16(row.Uint("Flags")),
			name:      row.Str("Name"),
		}
		r.m.methods[i] = md
		sig, err := signature.ParseMethod(row.Blob("Signature"), r)
		if err != nil {
			r.malformed(tables.Method, md.rid, err)
			continue
		}
		md.sig = sig
	}

	ranges := tables.ListRanges(rows, "ParamList", logicalRows(r.m.paramMap, len(r.m.params)))
	for i, span := range ranges {
		md := r.m.methods[i]
		for _, j := range span.Rows() {
			p := r.m.param(j)
			if p == nil {
				r.unresolved(tables.Method, md.rid, "param", rowRef(j))
				continue
			}
			p.method = md
			if p.sequence == 0 {
				md.ret = p
				continue
			}
			md.params = append(md.params, p)
			if md.sig != nil && int(p.sequence) > len(md.sig.Params) {
				r.warn(UnresolvedReference, tables.Param, p.rid, nil,
					"sequence %d of %s exceeds its %d signature parameters", p.sequence, md.name, len(md.sig.Params))
			}
		}
	}
	return nil
}

// resolveOwnership hands fields and methods to the TypeDefs whose list
// columns cover them.
func (r *resolver) resolveOwnership() error {
	nFields := logicalRows(r.m.fieldMap, len(r.m.fields))
	for i, span := range tables.ListRanges(r.typeDefRows, "FieldList", nFields) {
		t := r.m.typeDefs[i]
		for j := span.Start; j < span.End; j++ {
			f := r.m.field(j)
			if f == nil {
				r.unresolved(tables.TypeDef, t.rid, "field", rowRef(j))
				continue
			}
			f.owner = t
			t.fields = append(t.fields, f)
		}
	}

	nMethods := logicalRows(r.m.methodMap, len(r.m.methods))
	for i, span := range tables.ListRanges(r.typeDefRows, "MethodList", nMethods) {
		t := r.m.typeDefs[i]
		for j := span.Start; j < span.End; j++ {
			md := r.m.method(j)
			if md == nil {
				r.unresolved(tables.TypeDef, t.rid, "method", rowRef(j))
				continue
			}
			md.owner = t
			t.methods = append(t.methods, md)
		}
	}
	return nil
}

func (r *resolver) resolveImplMaps() error {
	rows, err := r.take(tables.ImplMap)
	if err != nil {
		return err
	}
	for i, row := range rows {
		id := uint32(i + 1)
		im := &ImplMap{
			Flags:      uint16(row.Uint("MappingFlags")),
			ImportName: row.Str("ImportName"),
			Scope:      at(r.m.moduleRefs, row.RID("ImportScope")),
		}
		if im.Scope == nil {
			r.unresolved(tables.ImplMap, id, "import scope", rowRef(row.RID("ImportScope")))
		}

		c := row.Coded("MemberForwarded")
		switch c.Table {
		case tables.Field:
			if f := r.m.field(c.Row); f != nil {
				f.implMap = im
				continue
			}
		case tables.Method:
			if md := r.m.method(c.Row); md != nil {
				md.implMap = im
				continue
			}
		}
		r.unresolved(tables.ImplMap, id, "member", c)
	}
	return nil
}

func (r *resolver) resolveDeclSecurity() error {
	rows, err := r.take(tables.DeclSecurity)
	if err != nil {
		return err
	}
	r.m.declSecurity = make([]*DeclSecurity, len(rows))
	for i, row := range rows {
		ds := &DeclSecurity{
			rid:           uint32(i + 1),
			action:        uint16(row.Uint("Action")),
			permissionSet: row.Blob("PermissionSet"),
		}
		r.m.declSecurity[i] = ds

		c := row.Coded("Parent")
		switch c.Table {
		case tables.TypeDef:
			if t := r.m.typeDef(c.Row); t != nil {
				ds.parent = t
				t.addDeclSecurity(ds)
				continue
			}
		case tables.Method:
			if md := r.m.method(c.Row); md != nil {
				ds.parent = md
				md.addDeclSecurity(ds)
				continue
			}
		case tables.Assembly:
			if c.Row == 1 && r.m.assembly != nil {
				ds.parent = r.m.assembly
				r.m.assembly.addDeclSecurity(ds)
				continue
			}
		}
		r.unresolved(tables.DeclSecurity, ds.rid, "parent", c)
	}
	return nil
}

func (r *resolver) resolveProperties() error {
	rows, err := r.take(tables.Property)
	if err != nil {
		return err
	}
	r.m.properties = make([]*Property, len(rows))
	for i, row := range rows {
		p := &Property{
			rid:   uint32(i + 1),
			flags: uint16(row.Uint("Flags")),
			name:  row.Str("Name"),
		}
		r.m.properties[i] = p
		sig, err := signature.ParseProperty(row.Blob("Type"), r)
		if err != nil {
			r.malformed(tables.Property, p.rid, err)
			continue
		}
		p.sig = sig
	}

	maps, err := r.take(tables.PropertyMap)
	if err != nil {
		return err
	}
	ranges := tables.ListRanges(maps, "PropertyList", logicalRows(r.m.propertyMap, len(r.m.properties)))
	for i, row := range maps {
		t := r.m.typeDef(row.RID("Parent"))
		if t == nil {
			r.unresolved(tables.PropertyMap, uint32(i+1), "parent", rowRef(row.RID("Parent")))
			continue
		}
		for j := ranges[i].Start; j < ranges[i].End; j++ {
			p := r.m.property(j)
			if p == nil {
				r.unresolved(tables.PropertyMap, uint32(i+1), "property", rowRef(j))
				continue
			}
			p.owner = t
			t.properties = append(t.properties, p)
		}
	}
	return nil
}

func (r *resolver) resolveClassLayouts() error {
	rows, err := r.take(tables.ClassLayout)
	if err != nil {
		return err
	}
	for i, row := range rows {
		t := r.m.typeDef(row.RID("Parent"))
		if t == nil {
			r.unresolved(tables.ClassLayout, uint32(i+1), "parent", rowRef(row.RID("Parent")))
			continue
		}
		t.layout = &ClassLayout{
			PackingSize: uint16(row.Uint("PackingSize")),
			ClassSize:   row.Uint("ClassSize"),
		}
	}
	return nil
}

func (r *resolver) resolveEvents() error {
	rows, err := r.take(tables.Event)
	if err != nil {
		return err
	}
	r.m.events = make([]*Event, len(rows))
	for i, row := range rows {
		e := &Event{
			rid:   uint32(i + 1),
			flags: uint16(row.Uint("EventFlags")),
			name:  row.Str("Name"),
		}
		r.m.events[i] = e
		if c := row.Coded("EventType"); !c.IsNull() {
			if e.eventType = r.typeRefOf(c); e.eventType == nil {
				r.unresolved(tables.Event, e.rid, "event type", c)
			}
		}
	}

	maps, err := r.take(tables.EventMap)
	if err != nil {
		return err
	}
	ranges := tables.ListRanges(maps, "EventList", logicalRows(r.m.eventMap, len(r.m.events)))
	for i, row := range maps {
		t := r.m.typeDef(row.RID("Parent"))
		if t == nil {
			r.unresolved(tables.EventMap, uint32(i+1), "parent", rowRef(row.RID("Parent")))
			continue
		}
		for j := ranges[i].Start; j < ranges[i].End; j++ {
			e := r.m.event(j)
			if e == nil {
				r.unresolved(tables.EventMap, uint32(i+1), "event", rowRef(j))
				continue
			}
			e.owner = t
			t.events = append(t.events, e)
		}
	}
	return nil
}

func (r *resolver) resolveFieldMarshals() error {
	rows, err := r.take(tables.FieldMarshal)
	if err != nil {
		return err
	}
	for i, row := range rows {
		c := row.Coded("Parent")
		native := row.Blob("NativeType")
		switch c.Table {
		case tables.Field:
			if f := r.m.field(c.Row); f != nil {
				f.marshal = native
				continue
			}
		case tables.Param:
			if p := r.m.param(c.Row); p != nil {
				p.marshal = native
				continue
			}
		}
		r.unresolved(tables.FieldMarshal, uint32(i+1), "parent", c)
	}
	return nil
}

func (r *resolver) resolveSemantics() error {
	rows, err := r.take(tables.MethodSemantics)
	if err != nil {
		return err
	}
	for i, row := range rows {
		id := uint32(i + 1)
		sem := row.Uint("Semantics")
		md := r.m.method(row.RID("Method"))
		if md == nil {
			r.unresolved(tables.MethodSemantics, id, "method", rowRef(row.RID("Method")))
			continue
		}

		c := row.Coded("Association")
		switch c.Table {
		case tables.Event:
			e := r.m.event(c.Row)
			if e == nil {
				break
			}
			switch sem {
			case SemanticsAddOn:
				e.add = md
			case SemanticsRemoveOn:
				e.remove = md
			case SemanticsFire:
				e.fire = md
			case SemanticsOther:
				e.others = append(e.others, md)
			default:
				r.warn(UnsupportedTableVariant, tables.MethodSemantics, id, nil, "semantics 0x%x on event %s", sem, e.name)
			}
			continue
		case tables.Property:
			p := r.m.property(c.Row)
			if p == nil {
				break
			}
			switch sem {
			case SemanticsGetter:
				p.getter = md
			case SemanticsSetter:
				p.setter = md
			case SemanticsOther:
				p.others = append(p.others, md)
			default:
				r.warn(UnsupportedTableVariant, tables.MethodSemantics, id, nil, "semantics 0x%x on property %s", sem, p.name)
			}
			continue
		}
		r.unresolved(tables.MethodSemantics, id, "association", c)
	}
	return nil
}

func (r *resolver) resolveConstants() error {
	rows, err := r.take(tables.Constant)
	if err != nil {
		return err
	}
	for i, row := range rows {
		k := &Constant{Type: uint8(row.Uint("Type")), Value: row.Blob("Value")}
		c := row.Coded("Parent")
		switch c.Table {
		case tables.Field:
			if f := r.m.field(c.Row); f != nil {
				f.constant = k
				continue
			}
		case tables.Param:
			if p := r.m.param(c.Row); p != nil {
				p.constant = k
				continue
			}
		case tables.Property:
			if p := r.m.property(c.Row); p != nil {
				p.constant = k
				continue
			}
		}
		r.unresolved(tables.Constant, uint32(i+1), "parent", c)
	}
	return nil
}

func (r *resolver) resolveMemberRefs() error {
	rows, err := r.take(tables.MemberRef)
	if err != nil {
		return err
	}
	r.m.memberRefs = make([]MemberRef, len(rows))
	for i, row := range rows {
		base := memberRef{rid: uint32(i + 1), name: row.Str("Name")}
		c := row.Coded("Class")
		if base.parent = r.m.entity(c.Table, c.Row); base.parent == nil {
			r.unresolved(tables.MemberRef, base.rid, "parent", c)
		}

		blob := row.Blob("Signature")
		if len(blob) > 0 && signature.CallConv(blob[0]).Kind() == signature.ConvField {
			ref := &FieldRef{memberRef: base}
			if ref.sig, err = signature.ParseField(blob, r); err != nil {
				r.malformed(tables.MemberRef, base.rid, err)
			}
			r.m.memberRefs[i] = ref
			continue
		}
		ref := &MethodRef{memberRef: base}
		if ref.sig, err = signature.ParseMethod(blob, r); err != nil {
			r.malformed(tables.MemberRef, base.rid, err)
		}
		r.m.memberRefs[i] = ref
	}
	return nil
}

func (r *resolver) resolveMethodSpecs() error {
	rows, err := r.take(tables.MethodSpec)
	if err != nil {
		return err
	}
	r.m.methodSpecs = make([]*MethodSpec, len(rows))
	for i, row := range rows {
		ms := &MethodSpec{rid: uint32(i + 1)}
		r.m.methodSpecs[i] = ms
		c := row.Coded("Method")
		if ms.method = r.methodOf(c); ms.method == nil {
			r.unresolved(tables.MethodSpec, ms.rid, "method", c)
		}
		sig, err := signature.ParseMethodSpec(row.Blob("Instantiation"), r)
		if err != nil {
			r.malformed(tables.MethodSpec, ms.rid, err)
			continue
		}
		ms.sig = sig
	}
	return nil
}

func (r *resolver) resolveGenericParams() error {
	rows, err := r.take(tables.GenericParam)
	if err != nil {
		return err
	}
	r.m.genericParams = make([]*GenericParamDef, len(rows))
	for i, row := range rows {
		gp := &GenericParamDef{
			rid:    uint32(i + 1),
			number: uint16(row.Uint("Number")),
			flags:  uint16(row.Uint("Flags")),
			name:   row.Str("Name"),
		}
		r.m.genericParams[i] = gp

		c := row.Coded("Owner")
		switch c.Table {
		case tables.TypeDef:
			if t := r.m.typeDef(c.Row); t != nil {
				gp.owner = t
				t.addGenericParam(gp)
				continue
			}
		case tables.Method:
			if md := r.m.method(c.Row); md != nil {
				gp.owner = md
				md.addGenericParam(gp)
				continue
			}
		}
		r.unresolved(tables.GenericParam, gp.rid, "owner", c)
	}
	return nil
}

// resolveConstraints leaves a nil slot for an unresolvable constraint unless
// strict constraints were requested.
func (r *resolver) resolveConstraints() error {
	rows, err := r.take(tables.GenericParamConstraint)
	if err != nil {
		return err
	}
	r.m.constraints = make([]*GenericParamConstraint, len(rows))
	for i, row := range rows {
		id := uint32(i + 1)
		owner := at(r.m.genericParams, row.RID("Owner"))
		c := row.Coded("Constraint")
		con := r.typeRefOf(c)
		if owner == nil || con == nil {
			w := &Warning{
				Kind:   UnresolvedReference,
				Table:  tables.GenericParamConstraint,
				Row:    id,
				Detail: "owner " + rowRef(row.RID("Owner")).String() + " constraint " + c.String(),
			}
			if r.opts.strictConstraints {
				return newParseError(r.phase, tables.GenericParamConstraint, id, "unresolved constraint", w)
			}
			r.warn(w.Kind, w.Table, w.Row, nil, "%s", w.Detail)
			continue
		}
		gc := &GenericParamConstraint{rid: id, owner: owner, constraint: con}
		owner.constraints = append(owner.constraints, gc)
		r.m.constraints[i] = gc
	}
	return nil
}

func (r *resolver) resolveEntryPoint() error {
	token := r.img.CLI.EntryPointToken
	if token == 0 {
		return nil
	}
	// With a native entry point the field holds an RVA, not a token.
	if r.m.cliFlags&pe.COMImageFlagsNativeEntryPoint != 0 {
		return nil
	}

	tag, id := tables.SplitToken(token)
	switch t := tables.Table(tag); t {
	case tables.Method:
		if md := r.m.method(id); md != nil {
			r.m.entryPoint = md
			return nil
		}
	case tables.File:
		if f := at(r.m.files, id); f != nil {
			r.m.entryPoint = f
			return nil
		}
	default:
		r.warn(UnsupportedTableVariant, t, id, nil, "entry point token 0x%08x", token)
		return nil
	}
	r.warn(UnresolvedReference, tables.Table(tag), id, nil, "entry point token 0x%08x", token)
	return nil
}

func (r *resolver) resolveStandAloneSigs() error {
	rows, err := r.take(tables.StandAloneSig)
	if err != nil {
		return err
	}
	r.m.standAloneSigs = make([]*StandAloneSig, len(rows))
	for i, row := range rows {
		s := &StandAloneSig{rid: uint32(i + 1)}
		r.m.standAloneSigs[i] = s
		sig, err := signature.Parse(row.Blob("Signature"), r)
		if err != nil {
			r.malformed(tables.StandAloneSig, s.rid, err)
			continue
		}
		s.sig = sig
	}
	return nil
}

func (r *resolver) resolveMethodImpls() error {
	rows, err := r.take(tables.MethodImpl)
	if err != nil {
		return err
	}
	r.m.methodImpls = make([]*MethodImpl, len(rows))
	for i, row := range rows {
		mi := &MethodImpl{rid: uint32(i + 1), class: r.m.typeDef(row.RID("Class"))}
		r.m.methodImpls[i] = mi

		body, decl := row.Coded("MethodBody"), row.Coded("MethodDeclaration")
		if mi.body = r.methodOf(body); mi.body == nil {
			r.unresolved(tables.MethodImpl, mi.rid, "body", body)
		}
		if mi.declaration = r.methodOf(decl); mi.declaration == nil {
			r.unresolved(tables.MethodImpl, mi.rid, "declaration", decl)
		}
		if mi.class == nil {
			r.unresolved(tables.MethodImpl, mi.rid, "class", rowRef(row.RID("Class")))
			continue
		}
		mi.class.methodImpls = append(mi.class.methodImpls, mi)
	}
	return nil
}

// resolvePlatformTables attaches the processor and OS tables. They are
// obsolete but still consumed.
func (r *resolver) resolvePlatformTables() error {
	procs, err := r.take(tables.AssemblyProcessor)
	if err != nil {
		return err
	}
	oses, err := r.take(tables.AssemblyOS)
	if err != nil {
		return err
	}
	if a := r.m.assembly; a != nil {
		for _, row := range procs {
			a.processors = append(a.processors, row.Uint("Processor"))
		}
		for _, row := range oses {
			a.oses = append(a.oses, osInfo(row))
		}
	} else if len(procs)+len(oses) > 0 {
		r.warn(UnresolvedReference, tables.AssemblyProcessor, 1, nil, "platform rows without an Assembly row")
	}

	refProcs, err := r.take(tables.AssemblyRefProcessor)
	if err != nil {
		return err
	}
	for i, row := range refProcs {
		ref := at(r.m.assemblyRefs, row.RID("AssemblyRef"))
		if ref == nil {
			r.unresolved(tables.AssemblyRefProcessor, uint32(i+1), "assembly ref", rowRef(row.RID("AssemblyRef")))
			continue
		}
		ref.processors = append(ref.processors, row.Uint("Processor"))
	}

	refOSes, err := r.take(tables.AssemblyRefOS)
	if err != nil {
		return err
	}
	for i, row := range refOSes {
		ref := at(r.m.assemblyRefs, row.RID("AssemblyRef"))
		if ref == nil {
			r.unresolved(tables.AssemblyRefOS, uint32(i+1), "assembly ref", rowRef(row.RID("AssemblyRef")))
			continue
		}
		ref.oses = append(ref.oses, osInfo(row))
	}

	for _, t := range []tables.Table{tables.ENCLog, tables.ENCMap} {
		rows, err := r.take(t)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			r.log.Debug("ignoring edit-and-continue table", zap.Stringer("table", t), zap.Int("rows", len(rows)))
		}
	}
	return nil
}

func osInfo(row tables.Row) OSInfo {
	return OSInfo{
		PlatformID:   row.Uint("OSPlatformID"),
		MajorVersion: row.Uint("OSMajorVersion"),
		MinorVersion: row.Uint("OSMinorVersion"),
	}
}

// resolveCustomAttributes runs last since any entity may be a parent.
func (r *resolver) resolveCustomAttributes() error {
	rows, err := r.take(tables.CustomAttribute)
	if err != nil {
		return err
	}
	r.m.attributes = make([]*CustomAttribute, len(rows))
	for i, row := range rows {
		ca := &CustomAttribute{rid: uint32(i + 1), value: row.Blob("Value")}
		r.m.attributes[i] = ca

		ctor := row.Coded("Type")
		if ctor.Table == tables.Invalid {
			r.warn(UnsupportedTableVariant, tables.CustomAttribute, ca.rid, nil, "constructor %s", ctor)
		} else if ca.constructor = r.methodOf(ctor); ca.constructor == nil {
			r.unresolved(tables.CustomAttribute, ca.rid, "constructor", ctor)
		}

		p := row.Coded("Parent")
		if p.Table == tables.Invalid {
			r.warn(UnsupportedTableVariant, tables.CustomAttribute, ca.rid, nil, "parent %s", p)
			continue
		}
		owner, ok := r.m.entity(p.Table, p.Row).(CustomAttributeOwner)
		if !ok {
			r.unresolved(tables.CustomAttribute, ca.rid, "parent", p)
			continue
		}
		ca.parent = owner
		owner.addCustomAttribute(ca)
	}
	return nil
}
