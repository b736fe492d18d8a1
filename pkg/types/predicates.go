package types

// Static type queries used by the lowering engine. A nil type is treated as
// unknown everywhere.

// every reports whether pred holds for t, or for every member when t is a union.
func every(t Type, pred func(Type) bool) bool {
	if t == nil {
		return false
	}
	if u, ok := t.(*UnionType); ok {
		for _, m := range u.Types {
			if !every(m, pred) {
				return false
			}
		}
		return len(u.Types) > 0
	}
	return pred(t)
}

// IsString reports whether t is string-typed.
func IsString(t Type) bool {
	return every(t, func(t Type) bool { return t == String })
}

// IsNumber reports whether t is number-typed.
func IsNumber(t Type) bool {
	return every(t, func(t Type) bool { return t == Number })
}

// IsBoolean reports whether t is boolean-typed.
func IsBoolean(t Type) bool {
	return every(t, func(t Type) bool { return t == Boolean })
}

// IsArray reports whether t is a table-backed array or tuple.
func IsArray(t Type) bool {
	return every(t, func(t Type) bool {
		switch tt := t.(type) {
		case *ArrayType:
			return true
		case *TupleType:
			return !tt.LuaTuple
		}
		return false
	})
}

// IsLuaTuple reports whether t is a multi-value return marker type.
func IsLuaTuple(t Type) bool {
	tt, ok := t.(*TupleType)
	return ok && tt.LuaTuple
}

// IsFunction reports whether t is a function type.
func IsFunction(t Type) bool {
	_, ok := t.(*FunctionType)
	return ok
}

// IsDynamic reports whether nothing is statically known about t.
func IsDynamic(t Type) bool {
	return t == nil || t == Any || t == Unknown
}

// IsNullable reports whether t admits undefined.
func IsNullable(t Type) bool {
	if t == Undefined || t == Void || IsDynamic(t) {
		return true
	}
	if u, ok := t.(*UnionType); ok {
		for _, m := range u.Types {
			if IsNullable(m) {
				return true
			}
		}
	}
	return false
}

// HasLuaTruthiness reports whether Lua's truthiness (only nil and false are
// falsy) agrees with the source language for every value of t. Numbers and
// strings disagree (0, NaN and "" are falsy in the source language).
func HasLuaTruthiness(t Type) bool {
	if IsDynamic(t) {
		return false
	}
	if u, ok := t.(*UnionType); ok {
		for _, m := range u.Types {
			if !HasLuaTruthiness(m) {
				return false
			}
		}
		return true
	}
	return t != Number && t != String
}

// ElementType returns the type produced by indexing t with a number. index is
// the literal index when known, or -1.
func ElementType(t Type, index int) Type {
	switch tt := t.(type) {
	case *ArrayType:
		return tt.ElementType
	case *TupleType:
		if index >= 0 && index < len(tt.ElementTypes) {
			return tt.ElementTypes[index]
		}
		if tt.RestElementType != nil {
			return tt.RestElementType
		}
		return NewUnionType(tt.ElementTypes...)
	}
	return Any
}

// PropertyType looks up a named property on t and reports whether it is
// declared as a method.
func PropertyType(t Type, name string) (Type, bool) {
	if ot, ok := t.(*ObjectType); ok {
		if pt, exists := ot.Properties[name]; exists {
			return pt, ot.Methods[name]
		}
	}
	return Any, false
}

// ReturnType returns the return type of a callable t, or any.
func ReturnType(t Type) Type {
	if ft, ok := t.(*FunctionType); ok && ft.ReturnType != nil {
		return ft.ReturnType
	}
	return Any
}
