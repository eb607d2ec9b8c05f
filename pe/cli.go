package pe

import (
	"fmt"

	"github.com/skdltmxn/dotnet-go/internal/stream"
)

// MetadataSignature is the magic value at the start of the metadata root ("BSJB").
const MetadataSignature = 0x424A5342

// Well-known metadata stream names
const (
	StreamTables       = "#~"
	StreamTablesUncomp = "#-"
	StreamStrings      = "#Strings"
	StreamBlob         = "#Blob"
	StreamGUID         = "#GUID"
	StreamUserStrings  = "#US"
)

// CLI header flags
const (
	COMImageFlagsILOnly           = 0x00000001
	COMImageFlags32BitRequired    = 0x00000002
	COMImageFlagsStrongNameSigned = 0x00000008
	COMImageFlagsNativeEntryPoint = 0x00000010
)

const cliHeaderSize = 72

// CLIHeader is the runtime header pointed to by the COM descriptor directory.
type CLIHeader struct {
	Cb                      uint32
	MajorRuntimeVersion     uint16
	MinorRuntimeVersion     uint16
	MetaData                DataDirectory
	Flags                   uint32
	EntryPointToken         uint32
	Resources               DataDirectory
	StrongNameSignature     DataDirectory
	CodeManagerTable        DataDirectory
	VTableFixups            DataDirectory
	ExportAddressTableJumps DataDirectory
	ManagedNativeHeader     DataDirectory
}

// StreamHeader describes one metadata stream relative to the metadata root.
type StreamHeader struct {
	Offset uint32
	Size   uint32
	Name   string
}

// Metadata is the parsed metadata root with its streams sliced out of the image.
type Metadata struct {
	MajorVersion uint16
	MinorVersion uint16
	Version      string
	Flags        uint16
	Headers      []StreamHeader

	streams map[string][]byte
}

// Stream returns the bytes of the named stream.
func (m *Metadata) Stream(name string) ([]byte, bool) {
	data, ok := m.streams[name]
	return data, ok
}

// TablesStream returns the compressed (#~) or uncompressed (#-) tables stream.
func (m *Metadata) TablesStream() ([]byte, error) {
	if data, ok := m.streams[StreamTables]; ok {
		return data, nil
	}
	if data, ok := m.streams[StreamTablesUncomp]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrStreamMissing, StreamTables)
}

func (f *File) parseCLIHeader() error {
	dir := f.Directory(DirectoryCOMDescriptor)
	if dir.VirtualAddress == 0 {
		return ErrNotCLI
	}

	r, err := f.ReaderAt(dir.VirtualAddress)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotCLI, err)
	}
	raw, err := r.SubReader(cliHeaderSize)
	if err != nil {
		return fmt.Errorf("pe: truncated CLI header: %w", err)
	}

	h := &CLIHeader{}
	h.Cb, _ = raw.ReadU32()
	h.MajorRuntimeVersion, _ = raw.ReadU16()
	h.MinorRuntimeVersion, _ = raw.ReadU16()
	h.MetaData = readDirectory(raw)
	h.Flags, _ = raw.ReadU32()
	h.EntryPointToken, _ = raw.ReadU32()
	h.Resources = readDirectory(raw)
	h.StrongNameSignature = readDirectory(raw)
	h.CodeManagerTable = readDirectory(raw)
	h.VTableFixups = readDirectory(raw)
	h.ExportAddressTableJumps = readDirectory(raw)
	h.ManagedNativeHeader = readDirectory(raw)

	f.CLI = h
	return nil
}

func readDirectory(r *stream.Reader) DataDirectory {
	var d DataDirectory
	d.VirtualAddress, _ = r.ReadU32()
	d.Size, _ = r.ReadU32()
	return d
}

// Metadata parses the metadata root referenced by the CLI header.
func (f *File) Metadata() (*Metadata, error) {
	if f.CLI == nil {
		return nil, ErrNotCLI
	}
	root, err := f.ReadRVA(f.CLI.MetaData.VirtualAddress, f.CLI.MetaData.Size)
	if err != nil {
		return nil, fmt.Errorf("pe: failed to read metadata root: %w", err)
	}
	return ParseMetadata(root)
}

// ParseMetadata parses a metadata root and slices out its streams.
func ParseMetadata(root []byte) (*Metadata, error) {
	r := stream.NewReader(root)

	sig, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if sig != MetadataSignature {
		return nil, fmt.Errorf("%w: signature 0x%08x", ErrBadMetadata, sig)
	}

	m := &Metadata{streams: make(map[string][]byte)}
	if m.MajorVersion, err = r.ReadU16(); err != nil {
		return nil, err
	}
	if m.MinorVersion, err = r.ReadU16(); err != nil {
		return nil, err
	}
	if err := r.Skip(4); err != nil { // reserved
		return nil, err
	}
	length, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if m.Version, err = r.ReadFixedString(int(length)); err != nil {
		return nil, err
	}
	r.Align(4)
	if m.Flags, err = r.ReadU16(); err != nil {
		return nil, err
	}
	count, err := r.ReadU16()
	if err != nil {
		return nil, err
	}

	m.Headers = make([]StreamHeader, 0, count)
	for i := 0; i < int(count); i++ {
		var h StreamHeader
		if h.Offset, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if h.Size, err = r.ReadU32(); err != nil {
			return nil, err
		}
		if h.Name, err = r.ReadCString(); err != nil {
			return nil, err
		}
		r.Align(4)

		data, err := r.Slice(int(h.Offset), int(h.Size))
		if err != nil {
			return nil, fmt.Errorf("%w: stream %s out of bounds", ErrBadMetadata, h.Name)
		}
		m.Headers = append(m.Headers, h)
		if _, dup := m.streams[h.Name]; !dup {
			m.streams[h.Name] = data.Data()
		}
	}

	return m, nil
}
