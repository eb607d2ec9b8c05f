package signature

import (
	"errors"
	"testing"
)

type namedType struct {
	ns, name string
}

func (n namedType) Name() string      { return n.name }
func (n namedType) Namespace() string { return n.ns }

// testGroup resolves TypeDef rows 1.. from defs and TypeRef rows 1.. from refs.
type testGroup struct {
	defs []TypeRef
	refs []TypeRef
}

func (g *testGroup) LookupType(tag uint8, row uint32) TypeRef {
	var list []TypeRef
	switch tag {
	case TagTypeDef:
		list = g.defs
	case TagTypeRef:
		list = g.refs
	}
	if row == 0 || int(row) > len(list) {
		return nil
	}
	return list[row-1]
}

var group = &testGroup{
	defs: []TypeRef{namedType{"Acme", "Widget"}},
	refs: []TypeRef{
		namedType{"System.Collections.Generic", "List`1"},
		namedType{"System.Runtime.CompilerServices", "IsVolatile"},
		namedType{"System", "Guid"},
	},
}

func TestParseTypeStringArray(t *testing.T) {
	typ, err := ParseType([]byte{0x1D, 0x0E}, group)
	if err != nil {
		t.Fatalf("ParseType: %v", err)
	}
	arr, ok := typ.(*SZArray)
	if !ok {
		t.Fatalf("got %T, want *SZArray", typ)
	}
	if arr.Elem != String {
		t.Errorf("element: got %v, want System.String", arr.Elem)
	}
	if got := typ.String(); got != "System.String[]" {
		t.Errorf("String(): got %q", got)
	}
}

func TestParseTypes(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
		want string
	}{
		{"primitive", []byte{0x08}, "System.Int32"},
		{"class typedef", []byte{0x12, 0x00 | 1<<2}, "Acme.Widget"},
		{"valuetype typeref", []byte{0x11, 0x01 | 3<<2}, "System.Guid"},
		{"generic inst", []byte{0x15, 0x12, 0x01 | 1<<2, 0x01, 0x0E}, "System.Collections.Generic.List`1<System.String>"},
		{"void pointer", []byte{0x0F, 0x01}, "System.Void*"},
		{"int pointer", []byte{0x0F, 0x08}, "System.Int32*"},
		{"byref", []byte{0x10, 0x08}, "System.Int32&"},
		{"type var", []byte{0x13, 0x00}, "!0"},
		{"method var", []byte{0x1E, 0x02}, "!!2"},
		{"two dim array", []byte{0x14, 0x08, 0x02, 0x00, 0x00}, "System.Int32[,]"},
		{"typedbyref", []byte{0x16}, "System.TypedReference"},
		{"modified", []byte{0x20, 0x01 | 2<<2, 0x08}, "System.Int32 modopt(System.Runtime.CompilerServices.IsVolatile)"},
		{"szarray with mod", []byte{0x1D, 0x1F, 0x01 | 2<<2, 0x08}, "System.Int32[] modreq(System.Runtime.CompilerServices.IsVolatile)"},
		{"fnptr", []byte{0x1B, 0x00, 0x01, 0x01, 0x08}, "method System.Void *(System.Int32)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, err := ParseType(tt.blob, group)
			if err != nil {
				t.Fatalf("ParseType(% x): %v", tt.blob, err)
			}
			if got := typ.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArrayShape(t *testing.T) {
	// int32[0..3, -2..] : rank 2, sizes {4}, lo bounds {0, -2}
	typ, err := ParseType([]byte{0x14, 0x08, 0x02, 0x01, 0x04, 0x02, 0x00, 0x7D}, group)
	if err != nil {
		t.Fatalf("ParseType: %v", err)
	}
	arr := typ.(*ArrayType)
	if arr.Shape.Rank != 2 || len(arr.Shape.Sizes) != 1 || arr.Shape.Sizes[0] != 4 {
		t.Errorf("shape: got %+v", arr.Shape)
	}
	if len(arr.Shape.LoBounds) != 2 || arr.Shape.LoBounds[0] != 0 || arr.Shape.LoBounds[1] != -2 {
		t.Errorf("lo bounds: got %v", arr.Shape.LoBounds)
	}
}

func TestParseMethod(t *testing.T) {
	// instance string Foo(int32, ref Acme.Widget)
	blob := []byte{0x20, 0x02, 0x0E, 0x08, 0x10, 0x12, 0x04}
	sig, err := ParseMethod(blob, group)
	if err != nil {
		t.Fatalf("ParseMethod: %v", err)
	}
	if !sig.CallConv.HasThis() || sig.CallConv.Kind() != ConvDefault {
		t.Errorf("CallConv: got 0x%02x", sig.CallConv)
	}
	if sig.Return.Type != String {
		t.Errorf("return: got %v", sig.Return.Type)
	}
	if len(sig.Params) != 2 {
		t.Fatalf("params: got %d", len(sig.Params))
	}
	if sig.Params[0].Type != Int32 || sig.Params[0].IsByRef() {
		t.Errorf("param 0: got %v", sig.Params[0].Type)
	}
	if !sig.Params[1].IsByRef() {
		t.Errorf("param 1 should be byref, got %v", sig.Params[1].Type)
	}
	if got := sig.String(); got != "instance System.String (System.Int32, Acme.Widget&)" {
		t.Errorf("String(): got %q", got)
	}
}

func TestParseGenericMethod(t *testing.T) {
	// static !!0 M<T>(!!0)
	sig, err := ParseMethod([]byte{0x10, 0x01, 0x01, 0x1E, 0x00, 0x1E, 0x00}, group)
	if err != nil {
		t.Fatalf("ParseMethod: %v", err)
	}
	if sig.GenericParamCount != 1 || len(sig.Params) != 1 {
		t.Fatalf("got %+v", sig)
	}
	if !Equal(sig.Return.Type, &GenericVar{Index: 0, Method: true}) {
		t.Errorf("return: got %v", sig.Return.Type)
	}
}

func TestParseVarargMethod(t *testing.T) {
	// vararg void M(int32, ..., string)
	sig, err := ParseMethod([]byte{0x05, 0x02, 0x01, 0x08, 0x41, 0x0E}, group)
	if err != nil {
		t.Fatalf("ParseMethod: %v", err)
	}
	if len(sig.Params) != 1 || len(sig.VarargParams) != 1 || sig.VarargParams[0].Type != String {
		t.Errorf("got params %v vararg %v", sig.Params, sig.VarargParams)
	}
}

func TestParseMethodWithModifiedReturn(t *testing.T) {
	// int32 modreq(IsVolatile) M()
	sig, err := ParseMethod([]byte{0x00, 0x00, 0x1F, 0x01 | 2<<2, 0x08}, group)
	if err != nil {
		t.Fatalf("ParseMethod: %v", err)
	}
	if len(sig.Return.Mods) != 1 || !sig.Return.Mods[0].Required {
		t.Errorf("return mods: got %+v", sig.Return.Mods)
	}
}

func TestCustomModRewind(t *testing.T) {
	// A modifier naming an unknown TypeRef is not consumed, so the field
	// type production sees the CMOD tag and fails.
	_, err := ParseField([]byte{0x06, 0x20, 0x01 | 9<<2, 0x08}, group)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("got %v", err)
	}

	p := newParser([]byte{0x20, 0x01 | 9<<2, 0x08}, group)
	if mods := p.customMods(); len(mods) != 0 {
		t.Errorf("mods: got %v", mods)
	}
	if p.r.Offset() != 0 {
		t.Errorf("cursor not rewound: %d", p.r.Offset())
	}
}

func TestParseField(t *testing.T) {
	sig, err := ParseField([]byte{0x06, 0x1D, 0x12, 0x04}, group)
	if err != nil {
		t.Fatalf("ParseField: %v", err)
	}
	if got := sig.String(); got != "Acme.Widget[]" {
		t.Errorf("got %q", got)
	}
	if _, err := ParseField([]byte{0x00, 0x08}, group); !errors.Is(err, ErrMalformed) {
		t.Errorf("non-field: got %v", err)
	}
}

func TestParseProperty(t *testing.T) {
	// instance int32 Item[string]
	sig, err := ParseProperty([]byte{0x28, 0x01, 0x08, 0x0E}, group)
	if err != nil {
		t.Fatalf("ParseProperty: %v", err)
	}
	if !sig.CallConv.HasThis() || sig.Type != Int32 || len(sig.Params) != 1 {
		t.Errorf("got %+v", sig)
	}
	if got := sig.String(); got != "instance System.Int32 [System.String]" {
		t.Errorf("String(): got %q", got)
	}
}

func TestParseLocalVars(t *testing.T) {
	// locals (int32, pinned string&, typedref)
	sig, err := ParseLocalVars([]byte{0x07, 0x03, 0x08, 0x45, 0x10, 0x0E, 0x16}, group)
	if err != nil {
		t.Fatalf("ParseLocalVars: %v", err)
	}
	if len(sig.Locals) != 3 {
		t.Fatalf("locals: got %d", len(sig.Locals))
	}
	if sig.Locals[0].Type != Int32 || sig.Locals[0].Pinned {
		t.Errorf("local 0: got %+v", sig.Locals[0])
	}
	if !sig.Locals[1].Pinned || !Equal(sig.Locals[1].Type, &ByRef{Elem: String}) {
		t.Errorf("local 1: got %+v", sig.Locals[1])
	}
	if sig.Locals[2].Type != TypedByRef {
		t.Errorf("local 2: got %+v", sig.Locals[2])
	}
}

func TestParseMethodSpec(t *testing.T) {
	sig, err := ParseMethodSpec([]byte{0x0A, 0x02, 0x08, 0x12, 0x04}, group)
	if err != nil {
		t.Fatalf("ParseMethodSpec: %v", err)
	}
	if got := sig.String(); got != "<System.Int32, Acme.Widget>" {
		t.Errorf("got %q", got)
	}
}

func TestParseDispatch(t *testing.T) {
	tests := []struct {
		blob []byte
		want CallConv
	}{
		{[]byte{0x06, 0x08}, ConvField},
		{[]byte{0x07, 0x00}, ConvLocalSig},
		{[]byte{0x08, 0x00, 0x08}, ConvProperty},
		{[]byte{0x0A, 0x01, 0x08}, ConvGenericInst},
		{[]byte{0x20, 0x00, 0x01}, HasThis},
	}
	for _, tt := range tests {
		sig, err := Parse(tt.blob, group)
		if err != nil {
			t.Fatalf("Parse(% x): %v", tt.blob, err)
		}
		if sig.Convention() != tt.want {
			t.Errorf("Parse(% x): got convention 0x%02x, want 0x%02x", tt.blob, sig.Convention(), tt.want)
		}
	}
}

func TestMalformed(t *testing.T) {
	tests := []struct {
		name     string
		blob     []byte
		typeOnly bool
	}{
		{"empty", nil, false},
		{"truncated method", []byte{0x00, 0x01, 0x01}, false},
		{"void param", []byte{0x00, 0x01, 0x01, 0x01}, false},
		{"param count overrun", []byte{0x00, 0x09, 0x01}, false},
		{"truncated class ref", []byte{0x12}, true},
		{"unknown typedef", []byte{0x12, 0x00 | 5<<2}, true},
		{"null type ref", []byte{0x12, 0x00}, true},
		{"bad element", []byte{0x3F}, true},
		{"zero generic args", []byte{0x15, 0x12, 0x01 | 1<<2, 0x00}, true},
		{"rank zero", []byte{0x14, 0x08, 0x00}, true},
		{"bad compressed", []byte{0x13, 0xFF}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.typeOnly {
				_, err = ParseType(tt.blob, group)
			} else {
				_, err = Parse(tt.blob, group)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("% x: got %v, want ErrMalformed", tt.blob, err)
			}
		})
	}
}

func TestMalformedTypeSpec(t *testing.T) {
	if _, err := ParseType([]byte{0x1D}, group); !errors.Is(err, ErrMalformed) {
		t.Errorf("got %v", err)
	}
	if _, err := ParseType([]byte{0x12, 0x04}, nil); !errors.Is(err, ErrMalformed) {
		t.Errorf("nil group: got %v", err)
	}
}

func TestEqual(t *testing.T) {
	list := namedType{"System.Collections.Generic", "List`1"}
	a := &GenericInst{Generic: &ClassType{Ref: list}, Args: []Type{String}}
	b := &GenericInst{Generic: &ClassType{Ref: namedType{"System.Collections.Generic", "List`1"}}, Args: []Type{String}}
	c := &GenericInst{Generic: &ClassType{Ref: list}, Args: []Type{Int32}}

	if !Equal(a, b) {
		t.Error("same structure should be equal")
	}
	if Equal(a, c) {
		t.Error("different arguments should not be equal")
	}
	if Equal(&ClassType{Ref: list}, &ValueType{Ref: list}) {
		t.Error("class and valuetype should differ")
	}
	if !Equal(nil, nil) || Equal(String, nil) {
		t.Error("nil handling")
	}
}

func TestLookupPrimitive(t *testing.T) {
	if p, ok := LookupPrimitive("System.Int64"); !ok || p != Int64 {
		t.Errorf("got %v, %v", p, ok)
	}
	if _, ok := LookupPrimitive("System.Guid"); ok {
		t.Error("System.Guid is not a primitive")
	}
}
