package signature

// Equal reports whether two type trees have the same structure. Type
// references are compared by namespace-qualified name.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch x := a.(type) {
	case Primitive:
		y, ok := b.(Primitive)
		return ok && x == y
	case *ClassType:
		y, ok := b.(*ClassType)
		return ok && sameRef(x.Ref, y.Ref)
	case *ValueType:
		y, ok := b.(*ValueType)
		return ok && sameRef(x.Ref, y.Ref)
	case *ArrayType:
		y, ok := b.(*ArrayType)
		return ok && x.Shape.Rank == y.Shape.Rank && Equal(x.Elem, y.Elem)
	case *SZArray:
		y, ok := b.(*SZArray)
		return ok && sameMods(x.Mods, y.Mods) && Equal(x.Elem, y.Elem)
	case *Pointer:
		y, ok := b.(*Pointer)
		return ok && sameMods(x.Mods, y.Mods) && Equal(x.Elem, y.Elem)
	case *ByRef:
		y, ok := b.(*ByRef)
		return ok && Equal(x.Elem, y.Elem)
	case *GenericVar:
		y, ok := b.(*GenericVar)
		return ok && *x == *y
	case *GenericInst:
		y, ok := b.(*GenericInst)
		if !ok || len(x.Args) != len(y.Args) || !Equal(x.Generic, y.Generic) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *Modified:
		y, ok := b.(*Modified)
		return ok && sameMods(x.Mods, y.Mods) && Equal(x.Type, y.Type)
	case *FnPtr:
		y, ok := b.(*FnPtr)
		return ok && x.Sig.String() == y.Sig.String()
	default:
		return false
	}
}

func sameRef(a, b TypeRef) bool {
	return FullName(a) == FullName(b)
}

func sameMods(a, b []CustomMod) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Required != b[i].Required || !sameRef(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}
