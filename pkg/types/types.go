package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the interface implemented by all type representations.
type Type interface {
	// String returns a string representation of the type, suitable for debugging or printing.
	String() string
	// Equals checks if this type is structurally equivalent to another type.
	Equals(other Type) bool

	// typeNode() is a marker method to ensure only types defined in this package
	// can be assigned to the Type interface.
	typeNode()
}

// --- Primitive Types ---

// Primitive represents a fundamental, non-composite type.
type Primitive struct {
	Name string
}

func (p *Primitive) String() string { return p.Name }
func (p *Primitive) typeNode()      {}
func (p *Primitive) Equals(other Type) bool {
	// Primitives are singletons, so pointer equality is sufficient.
	return p == other
}

// Pre-defined instances for common primitive types
var (
	Number    = &Primitive{Name: "number"}
	String    = &Primitive{Name: "string"}
	Boolean   = &Primitive{Name: "boolean"}
	Undefined = &Primitive{Name: "undefined"}
	Any       = &Primitive{Name: "any"}
	Unknown   = &Primitive{Name: "unknown"}
	Never     = &Primitive{Name: "never"}
	Void      = &Primitive{Name: "void"}
)

// Primitives maps type-annotation keywords to their primitive type.
var Primitives = map[string]*Primitive{
	"number":    Number,
	"string":    String,
	"boolean":   Boolean,
	"undefined": Undefined,
	"any":       Any,
	"unknown":   Unknown,
	"never":     Never,
	"void":      Void,
}

// --- Array Types ---

// ArrayType represents the type of an array.
type ArrayType struct {
	ElementType Type
}

func (at *ArrayType) String() string {
	elem := "<nil>"
	if at.ElementType != nil {
		elem = at.ElementType.String()
	}
	if _, ok := at.ElementType.(*UnionType); ok {
		return fmt.Sprintf("(%s)[]", elem)
	}
	return elem + "[]"
}
func (at *ArrayType) typeNode() {}
func (at *ArrayType) Equals(other Type) bool {
	otherAt, ok := other.(*ArrayType)
	if !ok {
		return false
	}
	return equalOrNil(at.ElementType, otherAt.ElementType)
}

// --- Tuple Types ---

// TupleType represents a fixed-length ordered tuple. When LuaTuple is set the
// tuple is not a table at runtime but a list of values returned by a call.
type TupleType struct {
	ElementTypes    []Type
	RestElementType Type
	LuaTuple        bool
}

func (tt *TupleType) String() string {
	parts := make([]string, 0, len(tt.ElementTypes)+1)
	for _, e := range tt.ElementTypes {
		parts = append(parts, typeString(e))
	}
	if tt.RestElementType != nil {
		parts = append(parts, "..."+typeString(tt.RestElementType)+"[]")
	}
	s := "[" + strings.Join(parts, ", ") + "]"
	if tt.LuaTuple {
		return "LuaTuple<" + s + ">"
	}
	return s
}
func (tt *TupleType) typeNode() {}
func (tt *TupleType) Equals(other Type) bool {
	o, ok := other.(*TupleType)
	if !ok || tt.LuaTuple != o.LuaTuple || len(tt.ElementTypes) != len(o.ElementTypes) {
		return false
	}
	for i := range tt.ElementTypes {
		if !equalOrNil(tt.ElementTypes[i], o.ElementTypes[i]) {
			return false
		}
	}
	return equalOrNil(tt.RestElementType, o.RestElementType)
}

// --- Function Types ---

// FunctionType represents the type of a function. IsMethod is set for
// functions declared with method syntax; they take an implicit self.
type FunctionType struct {
	ParameterTypes    []Type
	OptionalParams    []bool
	RestParameterType Type // element type of ...rest
	ReturnType        Type
	IsMethod          bool
}

func (ft *FunctionType) String() string {
	var params strings.Builder
	params.WriteString("(")
	for i, p := range ft.ParameterTypes {
		if i > 0 {
			params.WriteString(", ")
		}
		params.WriteString(typeString(p))
		if i < len(ft.OptionalParams) && ft.OptionalParams[i] {
			params.WriteString("?")
		}
	}
	if ft.RestParameterType != nil {
		if len(ft.ParameterTypes) > 0 {
			params.WriteString(", ")
		}
		params.WriteString("..." + typeString(ft.RestParameterType) + "[]")
	}
	params.WriteString(")")
	ret := "void"
	if ft.ReturnType != nil {
		ret = ft.ReturnType.String()
	}
	return fmt.Sprintf("%s => %s", params.String(), ret)
}
func (ft *FunctionType) typeNode() {}
func (ft *FunctionType) Equals(other Type) bool {
	o, ok := other.(*FunctionType)
	if !ok || len(ft.ParameterTypes) != len(o.ParameterTypes) || ft.IsMethod != o.IsMethod {
		return false
	}
	for i := range ft.ParameterTypes {
		if !equalOrNil(ft.ParameterTypes[i], o.ParameterTypes[i]) {
			return false
		}
	}
	return equalOrNil(ft.RestParameterType, o.RestParameterType) && equalOrNil(ft.ReturnType, o.ReturnType)
}

// --- Object Types ---

// ObjectType represents an object shape: named properties, some of which are
// declared as methods.
type ObjectType struct {
	Properties map[string]Type
	Methods    map[string]bool
	Order      []string // declaration order of Properties
}

// NewObjectType returns an empty object type.
func NewObjectType() *ObjectType {
	return &ObjectType{Properties: map[string]Type{}, Methods: map[string]bool{}}
}

// Add appends a property (or method) to the shape.
func (ot *ObjectType) Add(name string, t Type, method bool) {
	if _, exists := ot.Properties[name]; !exists {
		ot.Order = append(ot.Order, name)
	}
	ot.Properties[name] = t
	if method {
		ot.Methods[name] = true
	}
}

func (ot *ObjectType) String() string {
	parts := make([]string, 0, len(ot.Order))
	for _, name := range ot.Order {
		t := ot.Properties[name]
		if ot.Methods[name] {
			if ft, ok := t.(*FunctionType); ok {
				parts = append(parts, name+strings.Replace(ft.String(), " => ", ": ", 1))
				continue
			}
		}
		parts = append(parts, name+": "+typeString(t))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}
func (ot *ObjectType) typeNode() {}
func (ot *ObjectType) Equals(other Type) bool {
	o, ok := other.(*ObjectType)
	if !ok || len(ot.Properties) != len(o.Properties) {
		return false
	}
	for name, t := range ot.Properties {
		ot2, exists := o.Properties[name]
		if !exists || ot.Methods[name] != o.Methods[name] || !equalOrNil(t, ot2) {
			return false
		}
	}
	return true
}

// --- Union Types ---

// UnionType represents a union of multiple types (e.g., string | number).
type UnionType struct {
	Types []Type
}

// NewUnionType flattens nested unions and removes duplicates. A union of one
// member collapses to that member.
func NewUnionType(ts ...Type) Type {
	var flat []Type
	var add func(t Type)
	add = func(t Type) {
		if t == nil {
			return
		}
		if u, ok := t.(*UnionType); ok {
			for _, m := range u.Types {
				add(m)
			}
			return
		}
		for _, existing := range flat {
			if existing.Equals(t) {
				return
			}
		}
		flat = append(flat, t)
	}
	for _, t := range ts {
		add(t)
	}
	switch len(flat) {
	case 0:
		return Never
	case 1:
		return flat[0]
	}
	return &UnionType{Types: flat}
}

func (ut *UnionType) String() string {
	parts := make([]string, len(ut.Types))
	for i, t := range ut.Types {
		parts[i] = t.String()
	}
	return strings.Join(parts, " | ")
}
func (ut *UnionType) typeNode() {}
func (ut *UnionType) Equals(other Type) bool {
	o, ok := other.(*UnionType)
	if !ok || len(ut.Types) != len(o.Types) {
		return false
	}
	a := make([]string, len(ut.Types))
	b := make([]string, len(o.Types))
	for i := range ut.Types {
		a[i] = ut.Types[i].String()
		b[i] = o.Types[i].String()
	}
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func typeString(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func equalOrNil(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}
