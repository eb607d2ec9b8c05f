package tables_test

import (
	"errors"
	"testing"

	"github.com/skdltmxn/dotnet-go/internal/asmtest"
	"github.com/skdltmxn/dotnet-go/internal/heap"
	"github.com/skdltmxn/dotnet-go/internal/tables"
	"github.com/skdltmxn/dotnet-go/pe"
)

func TestCompileSchema(t *testing.T) {
	s, err := tables.CompileSchema("TypeDef:Flags=4,Name=S,Namespace=S,Extends=C|TypeDefOrRef,FieldList=T|Field,MethodList=T|Method")
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	if s.Table != tables.TypeDef || len(s.Columns) != 6 {
		t.Fatalf("got table %s with %d columns", s.Table, len(s.Columns))
	}

	want := []tables.Column{
		{Name: "Flags", Kind: tables.Fixed4},
		{Name: "Name", Kind: tables.StringRef},
		{Name: "Namespace", Kind: tables.StringRef},
		{Name: "Extends", Kind: tables.CodedRef, Coded: tables.TypeDefOrRef},
		{Name: "FieldList", Kind: tables.TableRef, Table: tables.Field},
		{Name: "MethodList", Kind: tables.TableRef, Table: tables.Method},
	}
	for i, c := range want {
		if s.Columns[i] != c {
			t.Errorf("column %d: got %+v, want %+v", i, s.Columns[i], c)
		}
	}
	if i, ok := s.Index("FieldList"); !ok || i != 4 {
		t.Errorf("Index(FieldList): got %d, %v", i, ok)
	}
}

func TestCompileSchemaErrors(t *testing.T) {
	tests := []string{
		"Flags=4",
		"Nope:Flags=4",
		"TypeDef:Flags=X",
		"TypeDef:Flags=42",
		"TypeDef:Flags",
		"TypeDef:Flags=4,Flags=2",
		"TypeDef:Extends=C|NoSuchKind",
		"TypeDef:FieldList=T|NoSuchTable",
		"TypeDef:FieldList=T",
	}
	for _, g := range tests {
		if _, err := tables.CompileSchema(g); err == nil {
			t.Errorf("CompileSchema(%q): expected error", g)
		}
	}
}

func TestEveryTableHasSchema(t *testing.T) {
	for i := 0; i < tables.Count; i++ {
		tbl := tables.Table(i)
		s := tables.SchemaFor(tbl)
		if s == nil {
			t.Fatalf("%s has no schema", tbl)
		}
		if s.Table != tbl {
			t.Errorf("schema for %s names %s", tbl, s.Table)
		}
	}
	if tables.SchemaFor(tables.Table(0x2D)) != nil {
		t.Error("expected no schema past GenericParamConstraint")
	}
}

func TestCodedBits(t *testing.T) {
	tests := []struct {
		kind tables.CodedKind
		bits int
	}{
		{tables.TypeDefOrRef, 2},
		{tables.HasConstant, 2},
		{tables.HasCustomAttribute, 5},
		{tables.HasFieldMarshal, 1},
		{tables.HasDeclSecurity, 2},
		{tables.MemberRefParent, 3},
		{tables.HasSemantics, 1},
		{tables.MethodDefOrRef, 1},
		{tables.MemberForwarded, 1},
		{tables.Implementation, 2},
		{tables.CustomAttributeType, 3},
		{tables.ResolutionScope, 2},
		{tables.TypeOrMethodDef, 1},
	}
	for _, tt := range tests {
		if got := tt.kind.Bits(); got != tt.bits {
			t.Errorf("%s.Bits(): got %d, want %d", tt.kind, got, tt.bits)
		}
	}
}

func TestCodedRoundTrip(t *testing.T) {
	for _, kind := range tables.CodedKinds() {
		budget := uint32(1)<<(16-kind.Bits()) - 1
		for _, tbl := range kind.Candidates() {
			if tbl == tables.Invalid {
				continue
			}
			for _, row := range []uint32{0, 1, 2, budget / 2, budget} {
				v, err := kind.Encode(tbl, row)
				if err != nil {
					t.Fatalf("%s.Encode(%s, %d): %v", kind, tbl, row, err)
				}
				got := kind.Decode(v)
				if got.Table != tbl || got.Row != row {
					t.Errorf("%s: decode(encode(%s, %d)) = %v", kind, tbl, row, got)
				}
			}
		}
	}
}

func TestCodedDecode(t *testing.T) {
	// TypeDefOrRef: tag 1 is TypeRef
	c := tables.TypeDefOrRef.Decode(0x0D)
	if c.Table != tables.TypeRef || c.Row != 3 {
		t.Errorf("TypeDefOrRef.Decode(0x0D): got %v", c)
	}

	// CustomAttributeType: tag 3 is MemberRef, tag 0 is unused
	c = tables.CustomAttributeType.Decode(5<<3 | 3)
	if c.Table != tables.MemberRef || c.Row != 5 {
		t.Errorf("CustomAttributeType.Decode: got %v", c)
	}
	if c := tables.CustomAttributeType.Decode(5 << 3); c.Table != tables.Invalid {
		t.Errorf("unused tag: got %v", c)
	}

	if _, err := tables.TypeDefOrRef.Encode(tables.Method, 1); err == nil {
		t.Error("encoding a non-candidate table should fail")
	}
	if !tables.ResolutionScope.Decode(0).IsNull() {
		t.Error("coded value 0 should be null")
	}
}

func TestTableRefWidth(t *testing.T) {
	var rows [tables.MaxTables]uint32

	rows[tables.Field] = 65535
	l := tables.NewLayout(0, rows)
	if w := l.TableRefWidth(tables.Field); w != 2 {
		t.Errorf("65535 rows: got width %d, want 2", w)
	}

	rows[tables.Field] = 65536
	l = tables.NewLayout(0, rows)
	if w := l.TableRefWidth(tables.Field); w != 4 {
		t.Errorf("65536 rows: got width %d, want 4", w)
	}
}

func TestCodedWidth(t *testing.T) {
	tests := []struct {
		kind  tables.CodedKind
		table tables.Table
		rows  uint32
		width int
	}{
		{tables.TypeDefOrRef, tables.TypeSpec, 0, 2},
		{tables.TypeDefOrRef, tables.TypeRef, 1<<14 - 1, 2},
		{tables.TypeDefOrRef, tables.TypeRef, 1 << 14, 4},
		{tables.HasCustomAttribute, tables.Param, 1<<11 - 1, 2},
		{tables.HasCustomAttribute, tables.Param, 1 << 11, 4},
		{tables.MethodDefOrRef, tables.MemberRef, 1<<15 - 1, 2},
		{tables.MethodDefOrRef, tables.MemberRef, 1 << 15, 4},
	}
	for _, tt := range tests {
		var rows [tables.MaxTables]uint32
		rows[tt.table] = tt.rows
		l := tables.NewLayout(0, rows)
		if got := l.CodedWidth(tt.kind); got != tt.width {
			t.Errorf("%s with %d %s rows: got %d, want %d", tt.kind, tt.rows, tt.table, got, tt.width)
		}
	}
}

func TestHeapWidths(t *testing.T) {
	l := tables.NewLayout(tables.HeapStringsWide|tables.HeapBlobWide, [tables.MaxTables]uint32{})
	if l.StringWidth != 4 || l.GUIDWidth != 2 || l.BlobWidth != 4 {
		t.Errorf("got widths S=%d G=%d B=%d", l.StringWidth, l.GUIDWidth, l.BlobWidth)
	}
}

func TestSplitRanges(t *testing.T) {
	got := tables.SplitRanges([]uint32{0, 1, 3, 3, 6}, 5)
	want := []tables.Range{
		{},
		{Start: 1, End: 3},
		{Start: 3, End: 3},
		{Start: 3, End: 6},
		{},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSplitRangesProperties(t *testing.T) {
	tests := []struct {
		starts []uint32
		total  uint32
	}{
		{[]uint32{1}, 0},
		{[]uint32{1, 1, 1}, 4},
		{[]uint32{0, 0, 1, 2, 2, 5}, 7},
		{[]uint32{1, 2, 3, 4}, 4},
	}
	for _, tt := range tests {
		ranges := tables.SplitRanges(tt.starts, tt.total)
		var next uint32 = 1
		var last tables.Range
		for i, r := range ranges {
			if r.Len() == 0 {
				continue
			}
			if r.Start < next {
				t.Errorf("%v: range %d %+v overlaps previous", tt.starts, i, r)
			}
			next = r.End
			last = r
		}
		if last.Len() > 0 && last.End != tt.total+1 {
			t.Errorf("%v: last range ends at %d, want %d", tt.starts, last.End, tt.total+1)
		}
	}
}

func TestRemap(t *testing.T) {
	var identity tables.Remap
	if identity.Physical(7) != 7 {
		t.Error("nil remap should be identity")
	}

	m := tables.Remap{3, 1, 2}
	if got := m.Physical(1); got != 3 {
		t.Errorf("Physical(1): got %d, want 3", got)
	}
	if got := m.Physical(4); got != 0 {
		t.Errorf("Physical(4): got %d, want 0", got)
	}
}

func decodeImage(t *testing.T, b *asmtest.Builder, last tables.Table) *tables.Store {
	t.Helper()

	f, err := pe.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("pe.Parse: %v", err)
	}
	md, err := f.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	ts, err := md.TablesStream()
	if err != nil {
		t.Fatalf("TablesStream: %v", err)
	}

	var h heap.Heaps
	if data, ok := md.Stream(pe.StreamStrings); ok {
		h.Strings = heap.Strings(data)
	}
	if data, ok := md.Stream(pe.StreamBlob); ok {
		h.Blob = heap.Blob(data)
	}
	if data, ok := md.Stream(pe.StreamGUID); ok {
		h.GUID = heap.GUID(data)
	}

	s, err := tables.DecodeUntil(ts, h, last)
	if err != nil {
		t.Fatalf("DecodeUntil: %v", err)
	}
	return s
}

func TestDecode(t *testing.T) {
	b := asmtest.New()
	b.Row(tables.Module, 0, b.String("test.dll"), b.GUID([16]byte{1}), 0, 0)
	b.Row(tables.TypeDef, 0, b.String("<Module>"), 0, 0, 1, 1)
	b.Row(tables.TypeDef, 0x100001, b.String("Widget"), b.String("Acme"),
		asmtest.Coded(tables.TypeDefOrRef, tables.TypeRef, 1), 1, 1)
	b.Row(tables.TypeRef, asmtest.Coded(tables.ResolutionScope, tables.AssemblyRef, 1), b.String("Object"), b.String("System"))
	b.Row(tables.Field, 6, b.String("count"), b.Blob([]byte{0x06, 0x08}))
	b.Row(tables.Assembly, 0x8004, 1, 2, 3, 4, 0, 0, b.String("test"), 0)

	s := decodeImage(t, b, tables.GenericParamConstraint)

	if n := s.Rows(tables.TypeDef); n != 2 {
		t.Fatalf("TypeDef rows: got %d, want 2", n)
	}
	if got := s.Header.PresentCount(); got != 5 {
		t.Errorf("PresentCount: got %d, want 5", got)
	}

	typedefs, err := s.Take(tables.TypeDef)
	if err != nil {
		t.Fatalf("Take(TypeDef): %v", err)
	}
	w := typedefs[1]
	if w.Str("Name") != "Widget" || w.Str("Namespace") != "Acme" {
		t.Errorf("got %s.%s", w.Str("Namespace"), w.Str("Name"))
	}
	if w.Uint("Flags") != 0x100001 {
		t.Errorf("Flags: got 0x%x", w.Uint("Flags"))
	}
	if ext := w.Coded("Extends"); ext.Table != tables.TypeRef || ext.Row != 1 {
		t.Errorf("Extends: got %v", ext)
	}

	fields, _ := s.Take(tables.Field)
	if sig := fields[0].Blob("Signature"); len(sig) != 2 || sig[1] != 0x08 {
		t.Errorf("Field signature: got % x", sig)
	}

	modules, _ := s.Take(tables.Module)
	if g := modules[0].GUID("Mvid"); g[0] != 1 {
		t.Errorf("Mvid: got %x", g)
	}

	asm, _ := s.Take(tables.Assembly)
	if asm[0].Uint("MajorVersion") != 1 || asm[0].Uint("RevisionNumber") != 4 {
		t.Errorf("Assembly version: got %+v", asm[0].Values())
	}

	if _, err := s.Take(tables.TypeDef); !errors.Is(err, tables.ErrConsumed) {
		t.Errorf("second Take: got %v", err)
	}

	remaining := s.Remaining()
	if len(remaining) != 1 || remaining[0] != tables.TypeRef {
		t.Errorf("Remaining: got %v", remaining)
	}

	// Absent tables detach as empty
	rows, err := s.Take(tables.Event)
	if err != nil || rows != nil {
		t.Errorf("Take(Event): got %v, %v", rows, err)
	}
}

func TestDecodeUntil(t *testing.T) {
	b := asmtest.New()
	b.Row(tables.TypeDef, 0, b.String("A"), 0, 0, 0, 0)
	b.Row(tables.Assembly, 0, 1, 0, 0, 0, 0, 0, b.String("a"), 0)
	b.Row(tables.AssemblyRef, 4, 0, 0, 0, 0, 0, b.String("mscorlib"), 0, 0)

	s := decodeImage(t, b, tables.Assembly)

	if got := s.Rows(tables.AssemblyRef); got != 1 {
		t.Errorf("AssemblyRef count: got %d, want 1", got)
	}
	refs, err := s.Take(tables.AssemblyRef)
	if err != nil || refs != nil {
		t.Errorf("tables past the stop point should not be decoded: %v, %v", refs, err)
	}
	asm, err := s.Take(tables.Assembly)
	if err != nil || len(asm) != 1 || asm[0].Str("Name") != "a" {
		t.Errorf("Take(Assembly): got %v, %v", asm, err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	b := asmtest.New()
	b.Row(tables.TypeDef, 0, b.String("A"), 0, 0, 0, 0)
	ts := b.TablesStream()

	// Cut into the TypeDef row
	_, err := tables.Decode(ts[:len(ts)-8], heap.Heaps{Strings: heap.Strings("\x00A\x00")})
	if err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestDecodeUndefinedTable(t *testing.T) {
	ts := make([]byte, 24)
	ts[8+5] = 0x40 // valid bit 0x2E
	if _, err := tables.Decode(ts, heap.Heaps{}); !errors.Is(err, tables.ErrUndefinedTable) {
		t.Errorf("got %v", err)
	}
}
