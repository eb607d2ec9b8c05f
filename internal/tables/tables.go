// Package tables decodes the physical metadata tables of the #~ stream into
// raw rows, driven by compiled per-table schemas.
package tables

import "fmt"

// Table identifies a metadata table by its ECMA-335 number.
type Table uint8

// Metadata tables
const (
	Module                 Table = 0x00
	TypeRef                Table = 0x01
	TypeDef                Table = 0x02
	FieldPtr               Table = 0x03
	Field                  Table = 0x04
	MethodPtr              Table = 0x05
	Method                 Table = 0x06
	ParamPtr               Table = 0x07
	Param                  Table = 0x08
	InterfaceImpl          Table = 0x09
	MemberRef              Table = 0x0A
	Constant               Table = 0x0B
	CustomAttribute        Table = 0x0C
	FieldMarshal           Table = 0x0D
	DeclSecurity           Table = 0x0E
	ClassLayout            Table = 0x0F
	FieldLayout            Table = 0x10
	StandAloneSig          Table = 0x11
	EventMap               Table = 0x12
	EventPtr               Table = 0x13
	Event                  Table = 0x14
	PropertyMap            Table = 0x15
	PropertyPtr            Table = 0x16
	Property               Table = 0x17
	MethodSemantics        Table = 0x18
	MethodImpl             Table = 0x19
	ModuleRef              Table = 0x1A
	TypeSpec               Table = 0x1B
	ImplMap                Table = 0x1C
	FieldRVA               Table = 0x1D
	ENCLog                 Table = 0x1E
	ENCMap                 Table = 0x1F
	Assembly               Table = 0x20
	AssemblyProcessor      Table = 0x21
	AssemblyOS             Table = 0x22
	AssemblyRef            Table = 0x23
	AssemblyRefProcessor   Table = 0x24
	AssemblyRefOS          Table = 0x25
	File                   Table = 0x26
	ExportedType           Table = 0x27
	ManifestResource       Table = 0x28
	NestedClass            Table = 0x29
	GenericParam           Table = 0x2A
	MethodSpec             Table = 0x2B
	GenericParamConstraint Table = 0x2C

	// Invalid marks an unused coded-index slot.
	Invalid Table = 0xFF
)

// Count is the number of defined tables.
const Count = int(GenericParamConstraint) + 1

// MaxTables is the number of bits in the valid/sorted masks.
const MaxTables = 64

var tableNames = [Count]string{
	"Module", "TypeRef", "TypeDef", "FieldPtr", "Field", "MethodPtr", "Method",
	"ParamPtr", "Param", "InterfaceImpl", "MemberRef", "Constant",
	"CustomAttribute", "FieldMarshal", "DeclSecurity", "ClassLayout",
	"FieldLayout", "StandAloneSig", "EventMap", "EventPtr", "Event",
	"PropertyMap", "PropertyPtr", "Property", "MethodSemantics", "MethodImpl",
	"ModuleRef", "TypeSpec", "ImplMap", "FieldRVA", "ENCLog", "ENCMap",
	"Assembly", "AssemblyProcessor", "AssemblyOS", "AssemblyRef",
	"AssemblyRefProcessor", "AssemblyRefOS", "File", "ExportedType",
	"ManifestResource", "NestedClass", "GenericParam", "MethodSpec",
	"GenericParamConstraint",
}

var tablesByName = func() map[string]Table {
	m := make(map[string]Table, Count)
	for i, name := range tableNames {
		m[name] = Table(i)
	}
	return m
}()

// String returns the table name.
func (t Table) String() string {
	if int(t) < Count {
		return tableNames[t]
	}
	if t == Invalid {
		return "Invalid"
	}
	return fmt.Sprintf("Table(0x%02x)", uint8(t))
}

// Valid reports whether t is a defined table.
func (t Table) Valid() bool {
	return int(t) < Count
}

// Token returns the metadata token for row rid of table t.
func (t Table) Token(rid uint32) uint32 {
	return uint32(t)<<24 | rid&0x00FFFFFF
}

// LookupTable returns the table with the given name.
func LookupTable(name string) (Table, bool) {
	t, ok := tablesByName[name]
	return t, ok
}

// SplitToken splits a metadata token into its table tag and row.
func SplitToken(token uint32) (tag uint8, rid uint32) {
	return uint8(token >> 24), token & 0x00FFFFFF
}
