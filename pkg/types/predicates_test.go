package types

import "testing"

func TestUnionFlattening(t *testing.T) {
	u := NewUnionType(Number, NewUnionType(String, Number), Number)
	if got := u.String(); got != "number | string" {
		t.Errorf("expected flattened union, got %s", got)
	}
	if NewUnionType(Boolean, Boolean) != Boolean {
		t.Errorf("single-member union should collapse")
	}
	if NewUnionType() != Never {
		t.Errorf("empty union should be never")
	}
}

func TestPredicates(t *testing.T) {
	tuple := &TupleType{ElementTypes: []Type{Number, String}}
	luaTuple := &TupleType{ElementTypes: []Type{Number, String}, LuaTuple: true}
	numbers := &ArrayType{ElementType: Number}

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"string union is string", IsString(NewUnionType(String, String)), true},
		{"mixed union is not string", IsString(NewUnionType(String, Number)), false},
		{"array is array", IsArray(numbers), true},
		{"tuple is array", IsArray(tuple), true},
		{"lua tuple is not array", IsArray(luaTuple), false},
		{"lua tuple", IsLuaTuple(luaTuple), true},
		{"any is dynamic", IsDynamic(Any), true},
		{"nil is dynamic", IsDynamic(nil), true},
		{"optional number is nullable", IsNullable(NewUnionType(Number, Undefined)), true},
		{"number is not nullable", IsNullable(Number), false},
		{"boolean has lua truthiness", HasLuaTruthiness(Boolean), true},
		{"object has lua truthiness", HasLuaTruthiness(NewObjectType()), true},
		{"number does not", HasLuaTruthiness(Number), false},
		{"string or boolean does not", HasLuaTruthiness(NewUnionType(String, Boolean)), false},
		{"any does not", HasLuaTruthiness(Any), false},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %v", tt.name, tt.want)
		}
	}
}

func TestElementAndPropertyTypes(t *testing.T) {
	tuple := &TupleType{ElementTypes: []Type{Number, String}}
	if ElementType(tuple, 1) != String {
		t.Errorf("expected string at index 1")
	}
	if got := ElementType(tuple, -1).String(); got != "number | string" {
		t.Errorf("unknown index should yield the union of elements, got %s", got)
	}
	rest := &TupleType{ElementTypes: []Type{Number}, RestElementType: Boolean}
	if ElementType(rest, 5) != Boolean {
		t.Errorf("index past the fixed elements should yield the rest type")
	}

	obj := NewObjectType()
	obj.Add("x", Number, false)
	obj.Add("m", &FunctionType{ReturnType: String, IsMethod: true}, true)
	if pt, method := PropertyType(obj, "m"); method != true || ReturnType(pt) != String {
		t.Errorf("expected method m returning string")
	}
	if pt, method := PropertyType(obj, "missing"); method || pt != Any {
		t.Errorf("missing property should be any")
	}
	if got := obj.String(); got != "{ x: number; m(): string }" {
		t.Errorf("unexpected object string %s", got)
	}
}
