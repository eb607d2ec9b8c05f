// Package asmtest builds small in-memory .NET images for tests.
package asmtest

import (
	"encoding/binary"
	"fmt"

	"github.com/skdltmxn/dotnet-go/internal/stream"
	"github.com/skdltmxn/dotnet-go/internal/tables"
)

// Image layout constants
const (
	TextRVA        = 0x2000
	TextFileOffset = 0x200

	lfanew        = 0x80
	optionalSize  = 224
	cliHeaderSize = 72
	fileAlignment = 0x200
	metadataVer   = "v4.0.30319"
)

// Builder accumulates heaps and table rows and serialises them into a PE
// image with a single .text section.
type Builder struct {
	strings     []byte
	stringIndex map[string]uint32
	blob        []byte
	guid        []byte
	us          []byte
	resources   []byte

	rows       [tables.Count][][]uint32
	entryPoint uint32
	omit       map[string]bool
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{
		strings:     []byte{0},
		stringIndex: map[string]uint32{"": 0},
		blob:        []byte{0},
		us:          []byte{0},
		omit:        make(map[string]bool),
	}
}

// String interns s in the #Strings heap and returns its offset.
func (b *Builder) String(s string) uint32 {
	if off, ok := b.stringIndex[s]; ok {
		return off
	}
	off := uint32(len(b.strings))
	b.strings = append(b.strings, s...)
	b.strings = append(b.strings, 0)
	b.stringIndex[s] = off
	return off
}

// Blob appends data to the #Blob heap and returns its offset.
func (b *Builder) Blob(data []byte) uint32 {
	off := uint32(len(b.blob))
	b.blob = mustCompressed(b.blob, uint32(len(data)))
	b.blob = append(b.blob, data...)
	return off
}

// GUID appends g to the #GUID heap and returns its 1-based index.
func (b *Builder) GUID(g [16]byte) uint32 {
	b.guid = append(b.guid, g[:]...)
	return uint32(len(b.guid) / 16)
}

// UserString appends an ASCII literal to the #US heap and returns its offset.
func (b *Builder) UserString(s string) uint32 {
	off := uint32(len(b.us))
	data := make([]byte, 0, len(s)*2+1)
	for _, c := range s {
		data = binary.LittleEndian.AppendUint16(data, uint16(c))
	}
	data = append(data, 0)
	b.us = mustCompressed(b.us, uint32(len(data)))
	b.us = append(b.us, data...)
	return off
}

// Row appends a row to table t and returns its RID. Values are given in
// schema column order; heap columns take offsets from the heap methods.
func (b *Builder) Row(t tables.Table, values ...uint32) uint32 {
	s := tables.SchemaFor(t)
	if len(values) != len(s.Columns) {
		panic(fmt.Sprintf("asmtest: %s takes %d values, got %d", t, len(s.Columns), len(values)))
	}
	b.rows[t] = append(b.rows[t], values)
	return uint32(len(b.rows[t]))
}

// RowCount returns the number of rows appended to t so far.
func (b *Builder) RowCount(t tables.Table) uint32 {
	return uint32(len(b.rows[t]))
}

// EntryPoint sets the CLI header entry point token.
func (b *Builder) EntryPoint(token uint32) {
	b.entryPoint = token
}

// Resource appends a length-prefixed resource and returns its offset from
// the start of the CLI resources directory.
func (b *Builder) Resource(data []byte) uint32 {
	for len(b.resources)%8 != 0 {
		b.resources = append(b.resources, 0)
	}
	off := uint32(len(b.resources))
	b.resources = binary.LittleEndian.AppendUint32(b.resources, uint32(len(data)))
	b.resources = append(b.resources, data...)
	return off
}

// Omit drops the named metadata stream from the output.
func (b *Builder) Omit(stream string) {
	b.omit[stream] = true
}

// Coded encodes a coded index and panics if the table is not a candidate.
func Coded(k tables.CodedKind, t tables.Table, row uint32) uint32 {
	v, err := k.Encode(t, row)
	if err != nil {
		panic(err)
	}
	return v
}

// Token builds a metadata token.
func Token(t tables.Table, rid uint32) uint32 {
	return t.Token(rid)
}

// TablesStream serialises the #~ stream.
func (b *Builder) TablesStream() []byte {
	var heapSizes uint8
	if len(b.strings) >= 1<<16 {
		heapSizes |= tables.HeapStringsWide
	}
	if len(b.guid)/16 >= 1<<16 {
		heapSizes |= tables.HeapGUIDWide
	}
	if len(b.blob) >= 1<<16 {
		heapSizes |= tables.HeapBlobWide
	}

	var counts [tables.MaxTables]uint32
	var valid uint64
	for i := range b.rows {
		if n := len(b.rows[i]); n > 0 {
			counts[i] = uint32(n)
			valid |= 1 << uint(i)
		}
	}
	layout := tables.NewLayout(heapSizes, counts)

	out := make([]byte, 0, 256)
	out = binary.LittleEndian.AppendUint32(out, 0)
	out = append(out, 2, 0, heapSizes, 1)
	out = binary.LittleEndian.AppendUint64(out, valid)
	out = binary.LittleEndian.AppendUint64(out, 0)
	for i := 0; i < tables.MaxTables; i++ {
		if valid&(1<<uint(i)) != 0 {
			out = binary.LittleEndian.AppendUint32(out, counts[i])
		}
	}

	for i := range b.rows {
		s := tables.SchemaFor(tables.Table(i))
		for _, row := range b.rows[i] {
			for j, c := range s.Columns {
				out = appendUint(out, row[j], layout.ColumnWidth(c))
			}
		}
	}
	return pad4(out)
}

// Metadata serialises the metadata root with all its streams.
func (b *Builder) Metadata() []byte {
	type namedStream struct {
		name string
		data []byte
	}
	streams := []namedStream{
		{"#~", b.TablesStream()},
		{"#Strings", pad4(append([]byte(nil), b.strings...))},
		{"#US", pad4(append([]byte(nil), b.us...))},
		{"#GUID", append([]byte(nil), b.guid...)},
		{"#Blob", pad4(append([]byte(nil), b.blob...))},
	}
	kept := streams[:0]
	for _, s := range streams {
		if !b.omit[s.name] {
			kept = append(kept, s)
		}
	}

	version := pad4(append([]byte(metadataVer), 0))

	headerSize := 16 + len(version) + 4
	for _, s := range kept {
		headerSize += 8 + len(pad4(append([]byte(s.name), 0)))
	}

	out := make([]byte, 0, headerSize)
	out = binary.LittleEndian.AppendUint32(out, 0x424A5342)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = binary.LittleEndian.AppendUint32(out, 0)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(version)))
	out = append(out, version...)
	out = binary.LittleEndian.AppendUint16(out, 0)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(kept)))

	offset := headerSize
	for _, s := range kept {
		out = binary.LittleEndian.AppendUint32(out, uint32(offset))
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s.data)))
		out = append(out, pad4(append([]byte(s.name), 0))...)
		offset += len(s.data)
	}
	for _, s := range kept {
		out = append(out, s.data...)
	}
	return out
}

// Bytes serialises the complete PE image.
func (b *Builder) Bytes() []byte {
	metadata := b.Metadata()

	// .text body: CLI header, resources, metadata
	resOff := cliHeaderSize
	mdOff := resOff + len(b.resources)
	for mdOff%4 != 0 {
		mdOff++
	}
	bodyLen := mdOff + len(metadata)

	body := make([]byte, bodyLen)
	cli := body[:cliHeaderSize]
	binary.LittleEndian.PutUint32(cli[0:], cliHeaderSize)
	binary.LittleEndian.PutUint16(cli[4:], 2)
	binary.LittleEndian.PutUint16(cli[6:], 5)
	binary.LittleEndian.PutUint32(cli[8:], uint32(TextRVA+mdOff))
	binary.LittleEndian.PutUint32(cli[12:], uint32(len(metadata)))
	binary.LittleEndian.PutUint32(cli[16:], 1) // IL only
	binary.LittleEndian.PutUint32(cli[20:], b.entryPoint)
	if len(b.resources) > 0 {
		binary.LittleEndian.PutUint32(cli[24:], uint32(TextRVA+resOff))
		binary.LittleEndian.PutUint32(cli[28:], uint32(len(b.resources)))
	}
	copy(body[resOff:], b.resources)
	copy(body[mdOff:], metadata)

	rawSize := (bodyLen + fileAlignment - 1) &^ (fileAlignment - 1)
	image := make([]byte, TextFileOffset+rawSize)

	// DOS header
	binary.LittleEndian.PutUint16(image[0:], 0x5A4D)
	binary.LittleEndian.PutUint32(image[0x3C:], lfanew)

	// PE signature and COFF header
	p := image[lfanew:]
	binary.LittleEndian.PutUint32(p[0:], 0x00004550)
	binary.LittleEndian.PutUint16(p[4:], 0x14C) // i386
	binary.LittleEndian.PutUint16(p[6:], 1)
	binary.LittleEndian.PutUint16(p[20:], optionalSize)
	binary.LittleEndian.PutUint16(p[22:], 0x2102)

	// PE32 optional header
	opt := p[24:]
	binary.LittleEndian.PutUint16(opt[0:], 0x10b)
	binary.LittleEndian.PutUint32(opt[32:], 0x2000)
	binary.LittleEndian.PutUint32(opt[36:], fileAlignment)
	binary.LittleEndian.PutUint32(opt[56:], uint32(TextRVA+rawSize))
	binary.LittleEndian.PutUint32(opt[60:], TextFileOffset)
	binary.LittleEndian.PutUint32(opt[92:], 16)
	dir14 := opt[96+14*8:]
	binary.LittleEndian.PutUint32(dir14[0:], TextRVA)
	binary.LittleEndian.PutUint32(dir14[4:], cliHeaderSize)

	// Section table
	sec := p[24+optionalSize:]
	copy(sec[0:8], ".text")
	binary.LittleEndian.PutUint32(sec[8:], uint32(bodyLen))
	binary.LittleEndian.PutUint32(sec[12:], TextRVA)
	binary.LittleEndian.PutUint32(sec[16:], uint32(rawSize))
	binary.LittleEndian.PutUint32(sec[20:], TextFileOffset)
	binary.LittleEndian.PutUint32(sec[36:], 0x60000020)

	copy(image[TextFileOffset:], body)
	return image
}

func appendUint(dst []byte, v uint32, width int) []byte {
	switch width {
	case 1:
		return append(dst, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(dst, uint16(v))
	default:
		return binary.LittleEndian.AppendUint32(dst, v)
	}
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func mustCompressed(dst []byte, v uint32) []byte {
	out, err := stream.AppendCompressedUint(dst, v)
	if err != nil {
		panic(err)
	}
	return out
}
