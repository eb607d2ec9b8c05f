package tables

// Value is one decoded column. Heap references are dereferenced at decode
// time; Num keeps the raw integer, heap offset, RID or coded value.
type Value struct {
	Num  uint32
	Str  string
	Data []byte
}

// Row is one raw table row, positionally matching its schema's columns.
type Row struct {
	schema *Schema
	values []Value
}

// NewRow builds a row from already decoded values.
func NewRow(s *Schema, values []Value) Row {
	return Row{schema: s, values: values}
}

// Schema returns the row's table schema.
func (r Row) Schema() *Schema {
	return r.schema
}

// Values returns the decoded columns in schema order.
func (r Row) Values() []Value {
	return r.values
}

func (r Row) get(name string) Value {
	return r.values[r.schema.mustIndex(name)]
}

// Uint returns a fixed-width integer column.
func (r Row) Uint(name string) uint32 {
	return r.get(name).Num
}

// Str returns a #Strings column.
func (r Row) Str(name string) string {
	return r.get(name).Str
}

// Blob returns a #Blob column.
func (r Row) Blob(name string) []byte {
	return r.get(name).Data
}

// GUID returns a #GUID column.
func (r Row) GUID(name string) [16]byte {
	var g [16]byte
	copy(g[:], r.get(name).Data)
	return g
}

// RID returns a direct row reference column. 0 means absent.
func (r Row) RID(name string) uint32 {
	return r.get(name).Num
}

// Raw returns the undecoded integer of any column.
func (r Row) Raw(name string) uint32 {
	return r.get(name).Num
}

// Coded returns a decoded coded index column.
func (r Row) Coded(name string) Coded {
	i := r.schema.mustIndex(name)
	return r.schema.Columns[i].Coded.Decode(r.values[i].Num)
}
