package pe_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/skdltmxn/dotnet-go/internal/asmtest"
	"github.com/skdltmxn/dotnet-go/internal/tables"
	"github.com/skdltmxn/dotnet-go/pe"
)

func TestParse(t *testing.T) {
	b := asmtest.New()
	b.Row(tables.Module, 0, b.String("m.dll"), 0, 0, 0)
	b.EntryPoint(asmtest.Token(tables.Method, 1))

	f, err := pe.NewFile(bytes.NewReader(b.Bytes()), int64(len(b.Bytes())))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	if f.Magic != pe.MagicPE32 || f.Is64() {
		t.Errorf("Magic: got 0x%x", f.Magic)
	}
	if len(f.Sections) != 1 || f.Sections[0].NameString() != ".text" {
		t.Fatalf("Sections: got %+v", f.Sections)
	}
	if f.CLI == nil || f.CLI.EntryPointToken != 0x06000001 {
		t.Fatalf("CLI header: got %+v", f.CLI)
	}
	if f.CLI.Flags&pe.COMImageFlagsILOnly == 0 {
		t.Error("expected IL-only flag")
	}

	md, err := f.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if md.Version != "v4.0.30319" {
		t.Errorf("Version: got %q", md.Version)
	}
	for _, name := range []string{pe.StreamTables, pe.StreamStrings, pe.StreamUserStrings, pe.StreamGUID, pe.StreamBlob} {
		if _, ok := md.Stream(name); !ok {
			t.Errorf("missing stream %s", name)
		}
	}
	strs, _ := md.Stream(pe.StreamStrings)
	if !bytes.HasPrefix(strs, []byte("\x00m.dll\x00")) {
		t.Errorf("#Strings: got %q", strs)
	}
}

func TestRVAToOffset(t *testing.T) {
	f, err := pe.Parse(asmtest.New().Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tests := []struct {
		rva    uint32
		offset int
		ok     bool
	}{
		{asmtest.TextRVA, asmtest.TextFileOffset, true},
		{asmtest.TextRVA + 0x10, asmtest.TextFileOffset + 0x10, true},
		{asmtest.TextRVA - 1, 0, false},
		{0x100000, 0, false},
	}
	for _, tt := range tests {
		off, ok := f.RVAToOffset(tt.rva)
		if ok != tt.ok || off != tt.offset {
			t.Errorf("RVAToOffset(0x%x): got 0x%x, %v", tt.rva, off, ok)
		}
	}

	if _, err := f.ReadRVA(0x100000, 4); !errors.Is(err, pe.ErrRVANotMapped) {
		t.Errorf("ReadRVA unmapped: got %v", err)
	}
	if sec, off := f.FindSection(asmtest.TextRVA + 8); sec != 1 || off != 8 {
		t.Errorf("FindSection: got %d, 0x%x", sec, off)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := pe.Parse([]byte("not a PE file")); !errors.Is(err, pe.ErrNotPE) {
		t.Errorf("garbage: got %v", err)
	}

	image := asmtest.New().Bytes()
	// Clear the COM descriptor directory
	dir := 0x80 + 24 + 96 + 14*8
	binary.LittleEndian.PutUint32(image[dir:], 0)
	if _, err := pe.Parse(image); !errors.Is(err, pe.ErrNotCLI) {
		t.Errorf("no CLI header: got %v", err)
	}
}

func TestMetadataMissingTables(t *testing.T) {
	b := asmtest.New()
	b.Omit(pe.StreamTables)

	f, err := pe.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	md, err := f.Metadata()
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if _, err := md.TablesStream(); !errors.Is(err, pe.ErrStreamMissing) {
		t.Errorf("TablesStream: got %v", err)
	}
}

func TestParseMetadataBadSignature(t *testing.T) {
	if _, err := pe.ParseMetadata(make([]byte, 32)); !errors.Is(err, pe.ErrBadMetadata) {
		t.Errorf("got %v", err)
	}
}
