package tables

// Range is a half-open span [Start, End) of 1-based rows in a child table.
type Range struct {
	Start uint32
	End   uint32
}

// Len returns the number of rows in the range.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return int(r.End - r.Start)
}

// Rows returns the 1-based rows covered by the range.
func (r Range) Rows() []uint32 {
	out := make([]uint32, 0, r.Len())
	for i := r.Start; i < r.End; i++ {
		out = append(out, i)
	}
	return out
}

// SplitRanges derives the child ranges of list columns such as FieldList.
// Row i runs from its declared start to the next row's start, the last row
// to total+1. A start of 0 or past total yields an empty range.
func SplitRanges(starts []uint32, total uint32) []Range {
	out := make([]Range, len(starts))
	for i, start := range starts {
		if start == 0 || start > total {
			continue
		}
		end := total + 1
		if i+1 < len(starts) && starts[i+1] < end {
			end = starts[i+1]
		}
		if end < start {
			end = start
		}
		out[i] = Range{Start: start, End: end}
	}
	return out
}

// ListRanges splits the named list column of rows over a child table with
// total rows.
func ListRanges(rows []Row, column string, total uint32) []Range {
	starts := make([]uint32, len(rows))
	for i, row := range rows {
		starts[i] = row.RID(column)
	}
	return SplitRanges(starts, total)
}

// Remap translates logical rows through a Ptr table. A nil Remap is the
// identity.
type Remap []uint32

// NewRemap builds a Remap from the rows of a Ptr table whose single column
// holds the physical row. No rows yields the identity.
func NewRemap(rows []Row, column string) Remap {
	if len(rows) == 0 {
		return nil
	}
	m := make(Remap, len(rows))
	for i, row := range rows {
		m[i] = row.RID(column)
	}
	return m
}

// Physical returns the physical row for a logical one, or 0 if the logical
// row is outside the Ptr table.
func (m Remap) Physical(logical uint32) uint32 {
	if m == nil {
		return logical
	}
	if logical == 0 || int(logical) > len(m) {
		return 0
	}
	return m[logical-1]
}
