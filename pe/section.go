package pe

import "encoding/binary"

// SectionHeader represents a PE section header.
// This matches the IMAGE_SECTION_HEADER structure.
type SectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32 // RVA of the section
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// NameString returns the section name as a string.
func (s *SectionHeader) NameString() string {
	// Find null terminator or use full 8 bytes
	n := 0
	for n < 8 && s.Name[n] != 0 {
		n++
	}
	return string(s.Name[:n])
}

// FindSection finds which section contains the given RVA.
// Returns section number (1-based) and offset within the section.
// Returns 0, 0 if the RVA is not within any section.
func (f *File) FindSection(rva uint32) (section uint16, offset uint32) {
	for i, sec := range f.Sections {
		size := sec.VirtualSize
		if size == 0 {
			size = sec.SizeOfRawData
		}
		if rva >= sec.VirtualAddress && rva < sec.VirtualAddress+size {
			return uint16(i + 1), rva - sec.VirtualAddress
		}
	}
	return 0, 0
}

func parseSectionHeader(raw []byte) SectionHeader {
	var sec SectionHeader
	copy(sec.Name[:], raw[0:8])
	sec.VirtualSize = binary.LittleEndian.Uint32(raw[8:])
	sec.VirtualAddress = binary.LittleEndian.Uint32(raw[12:])
	sec.SizeOfRawData = binary.LittleEndian.Uint32(raw[16:])
	sec.PointerToRawData = binary.LittleEndian.Uint32(raw[20:])
	sec.PointerToRelocations = binary.LittleEndian.Uint32(raw[24:])
	sec.PointerToLinenumbers = binary.LittleEndian.Uint32(raw[28:])
	sec.NumberOfRelocations = binary.LittleEndian.Uint16(raw[32:])
	sec.NumberOfLinenumbers = binary.LittleEndian.Uint16(raw[34:])
	sec.Characteristics = binary.LittleEndian.Uint32(raw[36:])
	return sec
}
