package tables

import (
	"fmt"
	"strings"
)

// FieldKind selects how a column is read from the tables stream.
type FieldKind uint8

// Column reader kinds
const (
	Fixed1 FieldKind = iota
	Fixed2
	Fixed4
	StringRef
	BlobRef
	GUIDRef
	TableRef
	CodedRef
)

func (k FieldKind) String() string {
	switch k {
	case Fixed1:
		return "1"
	case Fixed2:
		return "2"
	case Fixed4:
		return "4"
	case StringRef:
		return "S"
	case BlobRef:
		return "B"
	case GUIDRef:
		return "G"
	case TableRef:
		return "T"
	case CodedRef:
		return "C"
	default:
		return fmt.Sprintf("FieldKind(%d)", uint8(k))
	}
}

// Column describes one field of a table row.
type Column struct {
	Name  string
	Kind  FieldKind
	Table Table     // target of a TableRef column
	Coded CodedKind // flavour of a CodedRef column
}

// Schema is the compiled, immutable layout of one table.
type Schema struct {
	Table   Table
	Name    string
	Columns []Column

	index map[string]int
}

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s *Schema) mustIndex(name string) int {
	i, ok := s.index[name]
	if !ok {
		panic(fmt.Sprintf("tables: %s has no column %q", s.Name, name))
	}
	return i
}

// RowSize returns the encoded size of one row under layout l.
func (s *Schema) RowSize(l *Layout) int {
	size := 0
	for _, c := range s.Columns {
		size += l.ColumnWidth(c)
	}
	return size
}

var grammars = [Count]string{
	Module:                 "Module:Generation=2,Name=S,Mvid=G,EncID=G,EncBaseID=G",
	TypeRef:                "TypeRef:ResolutionScope=C|ResolutionScope,Name=S,Namespace=S",
	TypeDef:                "TypeDef:Flags=4,Name=S,Namespace=S,Extends=C|TypeDefOrRef,FieldList=T|Field,MethodList=T|Method",
	FieldPtr:               "FieldPtr:Field=T|Field",
	Field:                  "Field:Flags=2,Name=S,Signature=B",
	MethodPtr:              "MethodPtr:Method=T|Method",
	Method:                 "Method:RVA=4,ImplFlags=2,Flags=2,Name=S,Signature=B,ParamList=T|Param",
	ParamPtr:               "ParamPtr:Param=T|Param",
	Param:                  "Param:Flags=2,Sequence=2,Name=S",
	InterfaceImpl:          "InterfaceImpl:Class=T|TypeDef,Interface=C|TypeDefOrRef",
	MemberRef:              "MemberRef:Class=C|MemberRefParent,Name=S,Signature=B",
	Constant:               "Constant:Type=1,Padding=1,Parent=C|HasConstant,Value=B",
	CustomAttribute:        "CustomAttribute:Parent=C|HasCustomAttribute,Type=C|CustomAttributeType,Value=B",
	FieldMarshal:           "FieldMarshal:Parent=C|HasFieldMarshal,NativeType=B",
	DeclSecurity:           "DeclSecurity:Action=2,Parent=C|HasDeclSecurity,PermissionSet=B",
	ClassLayout:            "ClassLayout:PackingSize=2,ClassSize=4,Parent=T|TypeDef",
	FieldLayout:            "FieldLayout:Offset=4,Field=T|Field",
	StandAloneSig:          "StandAloneSig:Signature=B",
	EventMap:               "EventMap:Parent=T|TypeDef,EventList=T|Event",
	EventPtr:               "EventPtr:Event=T|Event",
	Event:                  "Event:EventFlags=2,Name=S,EventType=C|TypeDefOrRef",
	PropertyMap:            "PropertyMap:Parent=T|TypeDef,PropertyList=T|Property",
	PropertyPtr:            "PropertyPtr:Property=T|Property",
	Property:               "Property:Flags=2,Name=S,Type=B",
	MethodSemantics:        "MethodSemantics:Semantics=2,Method=T|Method,Association=C|HasSemantics",
	MethodImpl:             "MethodImpl:Class=T|TypeDef,MethodBody=C|MethodDefOrRef,MethodDeclaration=C|MethodDefOrRef",
	ModuleRef:              "ModuleRef:Name=S",
	TypeSpec:               "TypeSpec:Signature=B",
	ImplMap:                "ImplMap:MappingFlags=2,MemberForwarded=C|MemberForwarded,ImportName=S,ImportScope=T|ModuleRef",
	FieldRVA:               "FieldRVA:RVA=4,Field=T|Field",
	ENCLog:                 "ENCLog:Token=4,FuncCode=4",
	ENCMap:                 "ENCMap:Token=4",
	Assembly:               "Assembly:HashAlgID=4,MajorVersion=2,MinorVersion=2,BuildNumber=2,RevisionNumber=2,Flags=4,PublicKey=B,Name=S,Culture=S",
	AssemblyProcessor:      "AssemblyProcessor:Processor=4",
	AssemblyOS:             "AssemblyOS:OSPlatformID=4,OSMajorVersion=4,OSMinorVersion=4",
	AssemblyRef:            "AssemblyRef:MajorVersion=2,MinorVersion=2,BuildNumber=2,RevisionNumber=2,Flags=4,PublicKeyOrToken=B,Name=S,Culture=S,HashValue=B",
	AssemblyRefProcessor:   "AssemblyRefProcessor:Processor=4,AssemblyRef=T|AssemblyRef",
	AssemblyRefOS:          "AssemblyRefOS:OSPlatformID=4,OSMajorVersion=4,OSMinorVersion=4,AssemblyRef=T|AssemblyRef",
	File:                   "File:Flags=4,Name=S,HashValue=B",
	ExportedType:           "ExportedType:Flags=4,TypeDefID=4,TypeName=S,TypeNamespace=S,Implementation=C|Implementation",
	ManifestResource:       "ManifestResource:Offset=4,Flags=4,Name=S,Implementation=C|Implementation",
	NestedClass:            "NestedClass:NestedClass=T|TypeDef,EnclosingClass=T|TypeDef",
	GenericParam:           "GenericParam:Number=2,Flags=2,Owner=C|TypeOrMethodDef,Name=S",
	MethodSpec:             "MethodSpec:Method=C|MethodDefOrRef,Instantiation=B",
	GenericParamConstraint: "GenericParamConstraint:Owner=T|GenericParam,Constraint=C|TypeDefOrRef",
}

// schemas is compiled once; a bad grammar is a programming error.
var schemas = func() [Count]*Schema {
	var out [Count]*Schema
	for i, g := range grammars {
		s, err := CompileSchema(g)
		if err != nil {
			panic(err)
		}
		if s.Table != Table(i) {
			panic(fmt.Sprintf("tables: grammar for table 0x%02x names %s", i, s.Name))
		}
		out[i] = s
	}
	return out
}()

// SchemaFor returns the compiled schema of table t, or nil if t is undefined.
func SchemaFor(t Table) *Schema {
	if !t.Valid() {
		return nil
	}
	return schemas[t]
}

// CompileSchema parses a grammar of the form
// "Table:Field=K,Field=K,..." where K is 1, 2 or 4 for fixed-width
// integers, S, B or G for heap references, T|<table> for a row reference
// and C|<coded kind> for a coded index.
func CompileSchema(grammar string) (*Schema, error) {
	name, body, ok := strings.Cut(grammar, ":")
	if !ok || name == "" {
		return nil, fmt.Errorf("tables: grammar %q has no table name", grammar)
	}
	table, ok := LookupTable(name)
	if !ok {
		return nil, fmt.Errorf("tables: grammar names unknown table %q", name)
	}

	s := &Schema{Table: table, Name: name, index: make(map[string]int)}
	for _, field := range strings.Split(body, ",") {
		fname, spec, ok := strings.Cut(field, "=")
		if !ok || fname == "" || spec == "" {
			return nil, fmt.Errorf("tables: %s: malformed field %q", name, field)
		}
		if _, dup := s.index[fname]; dup {
			return nil, fmt.Errorf("tables: %s: duplicate field %q", name, fname)
		}

		col, err := compileColumn(fname, spec)
		if err != nil {
			return nil, fmt.Errorf("tables: %s.%s: %w", name, fname, err)
		}
		s.index[fname] = len(s.Columns)
		s.Columns = append(s.Columns, col)
	}
	return s, nil
}

func compileColumn(name, spec string) (Column, error) {
	col := Column{Name: name}
	switch spec[0] {
	case '1':
		col.Kind = Fixed1
	case '2':
		col.Kind = Fixed2
	case '4':
		col.Kind = Fixed4
	case 'S':
		col.Kind = StringRef
	case 'B':
		col.Kind = BlobRef
	case 'G':
		col.Kind = GUIDRef
	case 'T':
		target, ok := cutTarget(spec)
		t, found := LookupTable(target)
		if !ok || !found {
			return col, fmt.Errorf("unknown table in %q", spec)
		}
		col.Kind = TableRef
		col.Table = t
		return col, nil
	case 'C':
		target, ok := cutTarget(spec)
		k, found := LookupCodedKind(target)
		if !ok || !found {
			return col, fmt.Errorf("unknown coded index in %q", spec)
		}
		col.Kind = CodedRef
		col.Coded = k
		return col, nil
	default:
		return col, fmt.Errorf("unrecognized reader kind %q", spec)
	}

	if len(spec) != 1 {
		return col, fmt.Errorf("unrecognized reader kind %q", spec)
	}
	return col, nil
}

func cutTarget(spec string) (string, bool) {
	_, target, ok := strings.Cut(spec, "|")
	return target, ok && target != ""
}
