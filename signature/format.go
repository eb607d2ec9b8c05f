package signature

import (
	"fmt"
	"strconv"
	"strings"
)

var primitiveNames = map[Primitive]string{
	Void:       "System.Void",
	Boolean:    "System.Boolean",
	Char:       "System.Char",
	SByte:      "System.SByte",
	Byte:       "System.Byte",
	Int16:      "System.Int16",
	UInt16:     "System.UInt16",
	Int32:      "System.Int32",
	UInt32:     "System.UInt32",
	Int64:      "System.Int64",
	UInt64:     "System.UInt64",
	Single:     "System.Single",
	Double:     "System.Double",
	String:     "System.String",
	IntPtr:     "System.IntPtr",
	UIntPtr:    "System.UIntPtr",
	Object:     "System.Object",
	TypedByRef: "System.TypedReference",
}

var primitivesByName = func() map[string]Primitive {
	m := make(map[string]Primitive, len(primitiveNames))
	for p, name := range primitiveNames {
		m[name] = p
	}
	return m
}()

// LookupPrimitive returns the primitive named by a fully qualified System
// type name such as "System.Int32".
func LookupPrimitive(fullName string) (Primitive, bool) {
	p, ok := primitivesByName[fullName]
	return p, ok
}

func (p Primitive) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Primitive(0x%02x)", uint8(p))
}

// FullName returns the namespace-qualified name of a type reference. A ref
// providing its own FullName method, such as a nested type, takes priority.
func FullName(ref TypeRef) string {
	if ref == nil {
		return "?"
	}
	if f, ok := ref.(interface{ FullName() string }); ok {
		return f.FullName()
	}
	if ns := ref.Namespace(); ns != "" {
		return ns + "." + ref.Name()
	}
	return ref.Name()
}

func (t *ClassType) String() string { return FullName(t.Ref) }

func (t *ValueType) String() string { return FullName(t.Ref) }

func (t *ArrayType) String() string {
	var sb strings.Builder
	sb.WriteString(t.Elem.String())
	sb.WriteByte('[')
	for i := uint32(1); i < t.Shape.Rank; i++ {
		sb.WriteByte(',')
	}
	sb.WriteByte(']')
	return sb.String()
}

func (t *SZArray) String() string { return t.Elem.String() + "[]" + formatMods(t.Mods) }

func (t *Pointer) String() string {
	if t.Elem == nil {
		return Void.String() + "*" + formatMods(t.Mods)
	}
	return t.Elem.String() + "*" + formatMods(t.Mods)
}

func (t *ByRef) String() string { return t.Elem.String() + "&" }

func (t *GenericVar) String() string {
	if t.Method {
		return "!!" + strconv.FormatUint(uint64(t.Index), 10)
	}
	return "!" + strconv.FormatUint(uint64(t.Index), 10)
}

func (t *GenericInst) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return t.Generic.String() + "<" + strings.Join(args, ", ") + ">"
}

func (t *Modified) String() string { return t.Type.String() + formatMods(t.Mods) }

func (t *FnPtr) String() string {
	return "method " + t.Sig.Return.String() + " *(" + formatParams(t.Sig.Params, t.Sig.VarargParams) + ")"
}

func formatMods(mods []CustomMod) string {
	var sb strings.Builder
	for _, m := range mods {
		if m.Required {
			sb.WriteString(" modreq(")
		} else {
			sb.WriteString(" modopt(")
		}
		sb.WriteString(FullName(m.Type))
		sb.WriteByte(')')
	}
	return sb.String()
}

func formatParams(params, vararg []Param) string {
	parts := make([]string, 0, len(params)+len(vararg)+1)
	for i := range params {
		parts = append(parts, params[i].String())
	}
	if len(vararg) > 0 {
		parts = append(parts, "...")
		for i := range vararg {
			parts = append(parts, vararg[i].String())
		}
	}
	return strings.Join(parts, ", ")
}

func (p *Param) String() string {
	if p.Type == nil {
		return "?"
	}
	return p.Type.String() + formatMods(p.Mods)
}

func (s *MethodSig) String() string {
	var sb strings.Builder
	if s.CallConv.HasThis() {
		sb.WriteString("instance ")
	}
	if s.CallConv.Kind() == ConvVarArg {
		sb.WriteString("vararg ")
	}
	sb.WriteString(s.Return.String())
	if s.GenericParamCount > 0 {
		fmt.Fprintf(&sb, " <%d>", s.GenericParamCount)
	}
	sb.WriteString(" (")
	sb.WriteString(formatParams(s.Params, s.VarargParams))
	sb.WriteByte(')')
	return sb.String()
}

func (s *FieldSig) String() string { return s.Type.String() + formatMods(s.Mods) }

func (s *PropertySig) String() string {
	var sb strings.Builder
	if s.CallConv.HasThis() {
		sb.WriteString("instance ")
	}
	sb.WriteString(s.Type.String())
	if len(s.Params) > 0 {
		sb.WriteString(" [")
		sb.WriteString(formatParams(s.Params, nil))
		sb.WriteByte(']')
	}
	return sb.String()
}

func (s *LocalVarSig) String() string {
	parts := make([]string, len(s.Locals))
	for i, l := range s.Locals {
		parts[i] = l.Type.String() + formatMods(l.Mods)
		if l.Pinned {
			parts[i] += " pinned"
		}
	}
	return "locals (" + strings.Join(parts, ", ") + ")"
}

func (s *MethodSpecSig) String() string {
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.String()
	}
	return "<" + strings.Join(args, ", ") + ">"
}
