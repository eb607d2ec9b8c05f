package dotnet

import (
	"errors"
	"fmt"

	"github.com/skdltmxn/dotnet-go/internal/tables"
)

// ErrTokenNotFound is returned by Lookup for tokens naming no entity.
var ErrTokenNotFound = errors.New("dotnet: token not found")

// UserStringTag is the token table tag of #US heap literals.
const UserStringTag = 0x70

// UserString is a string literal referenced by ldstr.
type UserString struct {
	offset uint32
	Value  string
}

func (u *UserString) Token() uint32 { return UserStringTag<<24 | u.offset }

// Lookup returns the entity named by a metadata token, as found in method
// bodies. Tokens of Ptr-indirected tables are logical rows. A user string
// token yields a *UserString.
func (m *Module) Lookup(token uint32) (Entity, error) {
	tag, rid := tables.SplitToken(token)
	if tag == UserStringTag {
		s, err := m.userStrings.Get(rid)
		if err != nil {
			return nil, fmt.Errorf("%w: 0x%08x: %v", ErrTokenNotFound, token, err)
		}
		return &UserString{offset: rid, Value: s}, nil
	}

	if e := m.entity(tables.Table(tag), rid); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: 0x%08x", ErrTokenNotFound, token)
}

// LookupType returns the type named by a TypeDef, TypeRef or TypeSpec token.
func (m *Module) LookupType(token uint32) (TypeReference, error) {
	e, err := m.Lookup(token)
	if err != nil {
		return nil, err
	}
	t, ok := e.(TypeReference)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%08x is not a type", ErrTokenNotFound, token)
	}
	return t, nil
}

// LookupMethod returns the method named by a MethodDef, MemberRef or
// MethodSpec token. For a MethodSpec the generic method is returned along
// with the instantiation.
func (m *Module) LookupMethod(token uint32) (Method, *MethodSpec, error) {
	e, err := m.Lookup(token)
	if err != nil {
		return nil, nil, err
	}
	switch v := e.(type) {
	case *MethodDef:
		return v, nil, nil
	case *MethodRef:
		return v, nil, nil
	case *MethodSpec:
		return v.method, v, nil
	}
	return nil, nil, fmt.Errorf("%w: 0x%08x is not a method", ErrTokenNotFound, token)
}

// UserString returns the #US literal named by a 0x70 token.
func (m *Module) UserString(token uint32) (string, error) {
	tag, rid := tables.SplitToken(token)
	if tag != UserStringTag {
		return "", fmt.Errorf("%w: 0x%08x is not a user string", ErrTokenNotFound, token)
	}
	s, err := m.userStrings.Get(rid)
	if err != nil {
		return "", fmt.Errorf("%w: 0x%08x: %v", ErrTokenNotFound, token, err)
	}
	return s, nil
}
