package dotnet

import "fmt"

// Entity is any element of the metadata graph addressable by token.
type Entity interface {
	// Token returns the metadata token of the entity.
	Token() uint32
}

// CustomAttributeOwner is an entity that custom attributes can be applied to.
type CustomAttributeOwner interface {
	Entity
	CustomAttributes() []*CustomAttribute
	addCustomAttribute(ca *CustomAttribute)
}

type attributeSet struct {
	attrs []*CustomAttribute
}

// CustomAttributes returns the attributes applied to the entity.
func (s *attributeSet) CustomAttributes() []*CustomAttribute { return s.attrs }

func (s *attributeSet) addCustomAttribute(ca *CustomAttribute) {
	s.attrs = append(s.attrs, ca)
}

type securitySet struct {
	security []*DeclSecurity
}

// DeclSecurity returns the declarative security entries of the entity.
func (s *securitySet) DeclSecurity() []*DeclSecurity { return s.security }

func (s *securitySet) addDeclSecurity(d *DeclSecurity) {
	s.security = append(s.security, d)
}

type genericSet struct {
	generics []*GenericParamDef
}

// GenericParams returns the generic parameters declared by the entity, in
// declaration order.
func (s *genericSet) GenericParams() []*GenericParamDef { return s.generics }

func (s *genericSet) addGenericParam(gp *GenericParamDef) {
	s.generics = append(s.generics, gp)
}

// Version is a four-part assembly version.
type Version struct {
	Major    uint16
	Minor    uint16
	Build    uint16
	Revision uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Constant is a default value stored in the Constant table.
type Constant struct {
	Type  uint8 // Element type of the value
	Value []byte
}
