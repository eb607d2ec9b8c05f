package tables

import (
	"fmt"
	"math/bits"
)

// CodedKind identifies one of the coded-index flavours.
type CodedKind uint8

// Coded index kinds
const (
	TypeDefOrRef CodedKind = iota
	HasConstant
	HasCustomAttribute
	HasFieldMarshal
	HasDeclSecurity
	MemberRefParent
	HasSemantics
	MethodDefOrRef
	MemberForwarded
	Implementation
	CustomAttributeType
	ResolutionScope
	TypeOrMethodDef

	codedKindCount
)

type codedInfo struct {
	name       string
	candidates []Table
}

var codedKinds = [codedKindCount]codedInfo{
	TypeDefOrRef: {"TypeDefOrRef", []Table{TypeDef, TypeRef, TypeSpec}},
	HasConstant:  {"HasConstant", []Table{Field, Param, Property}},
	HasCustomAttribute: {"HasCustomAttribute", []Table{
		Method, Field, TypeRef, TypeDef, Param, InterfaceImpl, MemberRef,
		Module, DeclSecurity, Property, Event, StandAloneSig, ModuleRef,
		TypeSpec, Assembly, AssemblyRef, File, ExportedType, ManifestResource,
		GenericParam, GenericParamConstraint, MethodSpec,
	}},
	HasFieldMarshal:     {"HasFieldMarshal", []Table{Field, Param}},
	HasDeclSecurity:     {"HasDeclSecurity", []Table{TypeDef, Method, Assembly}},
	MemberRefParent:     {"MemberRefParent", []Table{TypeDef, TypeRef, ModuleRef, Method, TypeSpec}},
	HasSemantics:        {"HasSemantics", []Table{Event, Property}},
	MethodDefOrRef:      {"MethodDefOrRef", []Table{Method, MemberRef}},
	MemberForwarded:     {"MemberForwarded", []Table{Field, Method}},
	Implementation:      {"Implementation", []Table{File, AssemblyRef, ExportedType}},
	CustomAttributeType: {"CustomAttributeType", []Table{Invalid, Invalid, Method, MemberRef, Invalid}},
	ResolutionScope:     {"ResolutionScope", []Table{Module, ModuleRef, AssemblyRef, TypeRef}},
	TypeOrMethodDef:     {"TypeOrMethodDef", []Table{TypeDef, Method}},
}

var codedKindsByName = func() map[string]CodedKind {
	m := make(map[string]CodedKind, codedKindCount)
	for i, info := range codedKinds {
		m[info.name] = CodedKind(i)
	}
	return m
}()

// CodedKinds returns every coded index kind.
func CodedKinds() []CodedKind {
	kinds := make([]CodedKind, codedKindCount)
	for i := range kinds {
		kinds[i] = CodedKind(i)
	}
	return kinds
}

// LookupCodedKind returns the coded index kind with the given name.
func LookupCodedKind(name string) (CodedKind, bool) {
	k, ok := codedKindsByName[name]
	return k, ok
}

func (k CodedKind) String() string {
	if k < codedKindCount {
		return codedKinds[k].name
	}
	return fmt.Sprintf("CodedKind(%d)", uint8(k))
}

// Candidates returns the ordered candidate tables. Unused tag values are
// reported as Invalid.
func (k CodedKind) Candidates() []Table {
	return codedKinds[k].candidates
}

// Bits returns the number of tag bits: ceil(log2(len(candidates))).
func (k CodedKind) Bits() int {
	n := len(codedKinds[k].candidates)
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func (k CodedKind) mask() uint32 {
	return 1<<k.Bits() - 1
}

// Coded is a decoded coded index. Row 0 means the reference is absent.
type Coded struct {
	Table Table
	Row   uint32
}

// IsNull reports whether the coded index references nothing.
func (c Coded) IsNull() bool {
	return c.Row == 0
}

func (c Coded) String() string {
	return fmt.Sprintf("%s[%d]", c.Table, c.Row)
}

// Decode splits a raw coded value into its table and row. A tag with no
// candidate yields the Invalid table.
func (k CodedKind) Decode(v uint32) Coded {
	tag := v & k.mask()
	c := Coded{Table: Invalid, Row: v >> k.Bits()}
	if cands := codedKinds[k].candidates; int(tag) < len(cands) {
		c.Table = cands[tag]
	}
	return c
}

// Encode is the inverse of Decode.
func (k CodedKind) Encode(table Table, row uint32) (uint32, error) {
	if table == Invalid {
		return 0, fmt.Errorf("tables: cannot encode Invalid table as %s", k)
	}
	for i, cand := range codedKinds[k].candidates {
		if cand == table {
			if row > ^uint32(0)>>k.Bits() {
				return 0, fmt.Errorf("tables: row %d does not fit %s", row, k)
			}
			return row<<k.Bits() | uint32(i), nil
		}
	}
	return 0, fmt.Errorf("tables: %s is not a %s candidate", table, k)
}
