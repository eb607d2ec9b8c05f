package dotnet

import "github.com/skdltmxn/dotnet-go/internal/tables"

// CustomAttribute is an attribute instance applied to an entity.
type CustomAttribute struct {
	rid         uint32
	parent      CustomAttributeOwner
	constructor Method
	value       []byte
}

func (c *CustomAttribute) Token() uint32 { return tables.CustomAttribute.Token(c.rid) }

// Parent returns the entity the attribute is applied to.
func (c *CustomAttribute) Parent() CustomAttributeOwner { return c.parent }

// Constructor returns the attribute constructor, a *MethodDef or *MethodRef.
func (c *CustomAttribute) Constructor() Method { return c.constructor }

// Value returns the encoded constructor arguments and named values.
func (c *CustomAttribute) Value() []byte { return c.value }

// AttributeType returns the type declaring the constructor, or nil.
func (c *CustomAttribute) AttributeType() TypeReference {
	switch ctor := c.constructor.(type) {
	case *MethodDef:
		if ctor.owner != nil {
			return ctor.owner
		}
	case *MethodRef:
		if t, ok := ctor.parent.(TypeReference); ok {
			return t
		}
	}
	return nil
}

// Security actions
const (
	SecurityRequest           = 1
	SecurityDemand            = 2
	SecurityAssert            = 3
	SecurityDeny              = 4
	SecurityPermitOnly        = 5
	SecurityLinkDemand        = 6
	SecurityInheritanceDemand = 7
	SecurityRequestMinimum    = 8
	SecurityRequestOptional   = 9
	SecurityRequestRefuse     = 10
)

// DeclSecurity is a declarative security permission set.
type DeclSecurity struct {
	attributeSet

	rid           uint32
	action        uint16
	parent        Entity
	permissionSet []byte
}

func (d *DeclSecurity) Token() uint32         { return tables.DeclSecurity.Token(d.rid) }
func (d *DeclSecurity) Action() uint16        { return d.action }
func (d *DeclSecurity) PermissionSet() []byte { return d.permissionSet }

// Parent returns the *TypeDef, *MethodDef or *AssemblyInfo the permission
// set applies to.
func (d *DeclSecurity) Parent() Entity { return d.parent }

// Generic parameter attributes
const (
	GenericVarianceMask            = 0x0003
	GenericCovariant               = 0x0001
	GenericContravariant           = 0x0002
	GenericReferenceTypeConstraint = 0x0004
	GenericNotNullableConstraint   = 0x0008
	GenericDefaultCtorConstraint   = 0x0010
)

// GenericParamDef is a generic parameter of a type or method.
type GenericParamDef struct {
	attributeSet

	rid         uint32
	number      uint16
	flags       uint16
	name        string
	owner       Entity
	constraints []*GenericParamConstraint
}

func (g *GenericParamDef) Token() uint32 { return tables.GenericParam.Token(g.rid) }
func (g *GenericParamDef) Name() string  { return g.name }
func (g *GenericParamDef) Flags() uint16 { return g.flags }

// Number returns the 0-based position of the parameter.
func (g *GenericParamDef) Number() uint16 { return g.number }

// Owner returns the declaring *TypeDef or *MethodDef.
func (g *GenericParamDef) Owner() Entity { return g.owner }

// Constraints returns the type constraints of the parameter.
func (g *GenericParamDef) Constraints() []*GenericParamConstraint { return g.constraints }

// GenericParamConstraint is one type constraint of a generic parameter.
type GenericParamConstraint struct {
	attributeSet

	rid        uint32
	owner      *GenericParamDef
	constraint TypeReference
}

func (g *GenericParamConstraint) Token() uint32 {
	return tables.GenericParamConstraint.Token(g.rid)
}

// Owner returns the constrained parameter.
func (g *GenericParamConstraint) Owner() *GenericParamDef { return g.owner }

// Constraint returns the constraining type.
func (g *GenericParamConstraint) Constraint() TypeReference { return g.constraint }
