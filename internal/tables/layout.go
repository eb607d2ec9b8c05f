package tables

import "math/bits"

// Heap size flags in the tables stream header
const (
	HeapStringsWide = 0x01
	HeapGUIDWide    = 0x02
	HeapBlobWide    = 0x04
	HeapExtraData   = 0x40
)

// Layout holds the physical index widths derived from the runtime row
// counts and heap size flags.
type Layout struct {
	Rows        [MaxTables]uint32
	StringWidth int
	GUIDWidth   int
	BlobWidth   int
}

// NewLayout derives index widths from heapSizes and rows.
func NewLayout(heapSizes uint8, rows [MaxTables]uint32) *Layout {
	l := &Layout{Rows: rows, StringWidth: 2, GUIDWidth: 2, BlobWidth: 2}
	if heapSizes&HeapStringsWide != 0 {
		l.StringWidth = 4
	}
	if heapSizes&HeapGUIDWide != 0 {
		l.GUIDWidth = 4
	}
	if heapSizes&HeapBlobWide != 0 {
		l.BlobWidth = 4
	}
	return l
}

// TableRefWidth returns the width of a direct row reference into t.
func (l *Layout) TableRefWidth(t Table) int {
	if l.Rows[t] >= 1<<16 {
		return 4
	}
	return 2
}

// CodedWidth returns the width of a coded index of kind k: 4 bytes once the
// largest candidate no longer fits the bits left over by the tag.
func (l *Layout) CodedWidth(k CodedKind) int {
	var max uint32
	for _, t := range k.Candidates() {
		if t != Invalid && l.Rows[t] > max {
			max = l.Rows[t]
		}
	}
	if max == 0 {
		return 2
	}
	if bits.Len32(max)-1+k.Bits() >= 16 {
		return 4
	}
	return 2
}

// ColumnWidth returns the encoded width of column c.
func (l *Layout) ColumnWidth(c Column) int {
	switch c.Kind {
	case Fixed1:
		return 1
	case Fixed2:
		return 2
	case Fixed4:
		return 4
	case StringRef:
		return l.StringWidth
	case BlobRef:
		return l.BlobWidth
	case GUIDRef:
		return l.GUIDWidth
	case TableRef:
		return l.TableRefWidth(c.Table)
	case CodedRef:
		return l.CodedWidth(c.Coded)
	default:
		return 0
	}
}
