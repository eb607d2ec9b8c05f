package typename

import (
	"errors"
	"testing"

	"github.com/skdltmxn/dotnet-go/signature"
)

const mscorlib = "mscorlib, Version=2.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089"

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"System.Collections.Generic.Mscorlib_CollectionDebugView`1", "System.Collections.Generic.Mscorlib_CollectionDebugView`1"},
		{"System.Collections.Generic.List`1", "System.Collections.Generic.List`1"},
		{"System.Collections.Generic.List`1[[System.String, " + mscorlib + "]], " + mscorlib, "System.Collections.Generic.List`1<System.String>"},
		{"System.Collections.Generic.Dictionary`2[[System.String, " + mscorlib + "],[System.Int32, " + mscorlib + "]], " + mscorlib, "System.Collections.Generic.Dictionary`2<System.String, System.Int32>"},
		{"System.Collections.Generic.Dictionary`2[System.String,System.Int32]", "System.Collections.Generic.Dictionary`2<System.String, System.Int32>"},
		{"System.String[], " + mscorlib, "System.String[]"},
		{"System.String[,], " + mscorlib, "System.String[,]"},
		{"System.Int32[*]", "System.Int32[]"},
		{"System.Int32*", "System.Int32*"},
		{"System.Int32&", "System.Int32&"},
		{"System.Int32[][]", "System.Int32[][]"},
		{"Acme.Outer+Inner", "Acme.Outer+Inner"},
		{"Widget", "Widget"},
		{"Acme.Odd\\,Name", "Acme.Odd,Name"},
	}
	for _, tt := range tests {
		got, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.input, err)
		}
		if got.String() != tt.want {
			t.Errorf("Parse(%q): got %q, want %q", tt.input, got.String(), tt.want)
		}
	}
}

func TestParseShapes(t *testing.T) {
	typ, err := Parse("System.Int32")
	if err != nil || typ != signature.Int32 {
		t.Errorf("System.Int32: got %v, %v", typ, err)
	}

	typ, _ = Parse("System.Int32[*]")
	if arr, ok := typ.(*signature.ArrayType); !ok || arr.Shape.Rank != 1 {
		t.Errorf("[*]: got %#v", typ)
	}

	typ, _ = Parse("Acme.Outer+Inner")
	cls, ok := typ.(*signature.ClassType)
	if !ok {
		t.Fatalf("nested: got %T", typ)
	}
	ref := cls.Ref.(*Ref)
	if ref.Name() != "Inner" || ref.Namespace() != "Acme" || len(ref.Declaring) != 1 || ref.Declaring[0] != "Outer" {
		t.Errorf("nested ref: got %+v", ref)
	}
}

func TestParseQualified(t *testing.T) {
	_, asm, err := ParseQualified("System.String[], " + mscorlib)
	if err != nil {
		t.Fatalf("ParseQualified: %v", err)
	}
	if asm != mscorlib {
		t.Errorf("assembly: got %q", asm)
	}

	_, asm, _ = ParseQualified("Acme.Widget")
	if asm != "" {
		t.Errorf("unqualified: got %q", asm)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"System.",
		"List`1[[System.String]",
		"System.Int32[",
		"System.Int32]",
		"Foo+",
		"Foo\\",
	}
	for _, input := range tests {
		if _, err := Parse(input); !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q): got %v, want ErrSyntax", input, err)
		}
	}
}

type namedType struct {
	ns, name string
}

func (n namedType) Name() string      { return n.name }
func (n namedType) Namespace() string { return n.ns }

type refGroup []signature.TypeRef

func (g refGroup) LookupType(tag uint8, row uint32) signature.TypeRef {
	if tag != signature.TagTypeRef || row == 0 || int(row) > len(g) {
		return nil
	}
	return g[row-1]
}

func TestMatchesBinarySignature(t *testing.T) {
	group := refGroup{
		namedType{"System.Collections.Generic", "List`1"},
		namedType{"System.Collections.Generic", "Dictionary`2"},
	}

	tests := []struct {
		text string
		blob []byte
	}{
		{
			"System.Collections.Generic.List`1[[System.String, " + mscorlib + "]]",
			[]byte{0x15, 0x12, 0x01 | 1<<2, 0x01, 0x0E},
		},
		{
			"System.Collections.Generic.Dictionary`2[[System.String, " + mscorlib + "],[System.Int32, " + mscorlib + "]]",
			[]byte{0x15, 0x12, 0x01 | 2<<2, 0x02, 0x0E, 0x08},
		},
		{
			"System.String[]",
			[]byte{0x1D, 0x0E},
		},
		{
			"System.Collections.Generic.List`1[[System.Int32[,]]]",
			[]byte{0x15, 0x12, 0x01 | 1<<2, 0x01, 0x14, 0x08, 0x02, 0x00, 0x00},
		},
	}
	for _, tt := range tests {
		fromText, err := Parse(tt.text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.text, err)
		}
		fromBlob, err := signature.ParseType(tt.blob, group)
		if err != nil {
			t.Fatalf("ParseType(% x): %v", tt.blob, err)
		}
		if !signature.Equal(fromText, fromBlob) {
			t.Errorf("%q: text tree %v differs from binary tree %v", tt.text, fromText, fromBlob)
		}
	}
}
