// Package pe provides parsing for the PE/COFF envelope of .NET assemblies:
// headers, section table, RVA translation and the CLI header.
package pe

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/skdltmxn/dotnet-go/internal/stream"
)

// Header signatures
const (
	DOSSignature = 0x5A4D     // MZ
	NTSignature  = 0x00004550 // PE\0\0
)

// Optional header magic values
const (
	MagicPE32     uint16 = 0x10b
	MagicPE32Plus uint16 = 0x20b
)

// Data directory indexes used by the CLI loader
const (
	DirectoryResource      = 2
	DirectoryCOMDescriptor = 14
)

const (
	dosLfanewOffset  = 0x3C
	coffHeaderSize   = 20
	sectionHeaderLen = 40
)

// Errors returned during envelope parsing
var (
	ErrNotPE         = errors.New("pe: invalid PE signature")
	ErrNotCLI        = errors.New("pe: image has no CLI header")
	ErrBadOptional   = errors.New("pe: invalid optional header")
	ErrRVANotMapped  = errors.New("pe: RVA is not inside any section")
	ErrStreamMissing = errors.New("pe: metadata stream missing")
	ErrBadMetadata   = errors.New("pe: invalid metadata root")
)

// DataDirectory is an (RVA, size) pair from the optional header.
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// COFFHeader is the file header following the PE signature.
type COFFHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// File represents a buffered PE image.
type File struct {
	data []byte

	COFF        COFFHeader
	Magic       uint16
	Directories []DataDirectory
	Sections    []SectionHeader
	CLI         *CLIHeader
}

// Open reads the PE image at path into memory. The file handle is released
// before Open returns.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pe: failed to open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("pe: failed to stat file: %w", err)
	}

	return NewFile(f, stat.Size())
}

// NewFile buffers size bytes from r and parses the PE envelope.
// The caller is responsible for closing the underlying reader if needed.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	data := make([]byte, size)
	if _, err := r.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("pe: failed to read image: %w", err)
	}
	return Parse(data)
}

// Parse parses a PE image already held in memory.
func Parse(data []byte) (*File, error) {
	f := &File{data: data}
	if err := f.parseHeaders(); err != nil {
		return nil, err
	}
	if err := f.parseCLIHeader(); err != nil {
		return nil, err
	}
	return f, nil
}

// Data returns the buffered image.
func (f *File) Data() []byte {
	return f.data
}

// Reader returns a new reader over the whole image.
func (f *File) Reader() *stream.Reader {
	return stream.NewReader(f.data)
}

// Is64 reports whether the image uses the PE32+ optional header.
func (f *File) Is64() bool {
	return f.Magic == MagicPE32Plus
}

func (f *File) parseHeaders() error {
	r := f.Reader()

	mz, err := r.ReadU16()
	if err != nil || mz != DOSSignature {
		return ErrNotPE
	}
	if err := r.Seek(dosLfanewOffset); err != nil {
		return ErrNotPE
	}
	lfanew, err := r.ReadU32()
	if err != nil {
		return ErrNotPE
	}
	if err := r.Seek(int(lfanew)); err != nil {
		return ErrNotPE
	}
	sig, err := r.ReadU32()
	if err != nil || sig != NTSignature {
		return ErrNotPE
	}

	coff, err := r.SubReader(coffHeaderSize)
	if err != nil {
		return fmt.Errorf("pe: truncated COFF header: %w", err)
	}
	f.COFF.Machine, _ = coff.ReadU16()
	f.COFF.NumberOfSections, _ = coff.ReadU16()
	f.COFF.TimeDateStamp, _ = coff.ReadU32()
	f.COFF.PointerToSymbolTable, _ = coff.ReadU32()
	f.COFF.NumberOfSymbols, _ = coff.ReadU32()
	f.COFF.SizeOfOptionalHeader, _ = coff.ReadU16()
	f.COFF.Characteristics, _ = coff.ReadU16()

	opt, err := r.SubReader(int(f.COFF.SizeOfOptionalHeader))
	if err != nil {
		return fmt.Errorf("pe: truncated optional header: %w", err)
	}
	if err := f.parseOptionalHeader(opt); err != nil {
		return err
	}

	sections := make([]SectionHeader, f.COFF.NumberOfSections)
	for i := range sections {
		raw, err := r.ReadBytesRef(sectionHeaderLen)
		if err != nil {
			return fmt.Errorf("pe: truncated section table: %w", err)
		}
		sections[i] = parseSectionHeader(raw)
	}
	f.Sections = sections

	return nil
}

func (f *File) parseOptionalHeader(r *stream.Reader) error {
	magic, err := r.ReadU16()
	if err != nil {
		return ErrBadOptional
	}
	f.Magic = magic

	// NumberOfRvaAndSizes precedes the data directories
	var countOffset int
	switch magic {
	case MagicPE32:
		countOffset = 92
	case MagicPE32Plus:
		countOffset = 108
	default:
		return fmt.Errorf("%w: magic 0x%x", ErrBadOptional, magic)
	}

	if err := r.Seek(countOffset); err != nil {
		return ErrBadOptional
	}
	count, err := r.ReadU32()
	if err != nil {
		return ErrBadOptional
	}
	if int(count)*8 > r.Remaining() {
		count = uint32(r.Remaining() / 8)
	}

	f.Directories = make([]DataDirectory, count)
	for i := range f.Directories {
		f.Directories[i].VirtualAddress, _ = r.ReadU32()
		f.Directories[i].Size, _ = r.ReadU32()
	}
	return nil
}

// Directory returns the data directory at index, or a zero directory if
// the optional header does not carry that many entries.
func (f *File) Directory(index int) DataDirectory {
	if index < 0 || index >= len(f.Directories) {
		return DataDirectory{}
	}
	return f.Directories[index]
}

// RVAToOffset translates an RVA into a file offset.
func (f *File) RVAToOffset(rva uint32) (int, bool) {
	for i := range f.Sections {
		sec := &f.Sections[i]
		if rva >= sec.VirtualAddress && rva < sec.VirtualAddress+sec.SizeOfRawData {
			return int(rva-sec.VirtualAddress) + int(sec.PointerToRawData), true
		}
	}
	return 0, false
}

// ReaderAt returns a reader over the image positioned at the given RVA.
func (f *File) ReaderAt(rva uint32) (*stream.Reader, error) {
	off, ok := f.RVAToOffset(rva)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%08x", ErrRVANotMapped, rva)
	}
	r := f.Reader()
	if err := r.Seek(off); err != nil {
		return nil, err
	}
	return r, nil
}

// ReadRVA returns size bytes of the image starting at rva.
func (f *File) ReadRVA(rva, size uint32) ([]byte, error) {
	r, err := f.ReaderAt(rva)
	if err != nil {
		return nil, err
	}
	return r.ReadBytesRef(int(size))
}
