package checker

import "github.com/nooga/tslua/pkg/types"

func fn(ret types.Type, params ...types.Type) *types.FunctionType {
	return &types.FunctionType{ParameterTypes: params, ReturnType: ret}
}

func variadic(ret types.Type) *types.FunctionType {
	return &types.FunctionType{RestParameterType: types.Any, ReturnType: ret}
}

// globalTypes are the Lua globals with a known signature. Any other
// unresolved name is a global of type any.
var globalTypes = map[string]types.Type{
	"print":        variadic(types.Void),
	"tostring":     fn(types.String, types.Any),
	"tonumber":     fn(types.Number, types.Any),
	"type":         fn(types.String, types.Any),
	"error":        variadic(types.Never),
	"assert":       variadic(types.Any),
	"select":       variadic(types.Any),
	"pcall":        variadic(types.Any),
	"setmetatable": fn(types.Any, types.Any, types.Any),
	"getmetatable": fn(types.Any, types.Any),
	"rawget":       fn(types.Any, types.Any, types.Any),
	"rawset":       fn(types.Any, types.Any, types.Any, types.Any),
	"typeIs":       fn(types.Boolean, types.Any, types.String),
	"typeOf":       fn(types.String, types.Any),
	"isNaN":        fn(types.Boolean, types.Number),
}

// NewGlobalEnvironment creates the outermost environment holding the typed
// Lua globals.
func NewGlobalEnvironment() *Environment {
	env := NewEnvironment()
	for name, t := range globalTypes {
		env.Define(&Symbol{Name: name, Kind: SymbolGlobal, Type: t, declared: true})
	}
	return env
}

// stringMemberType returns the type of a property read on a string.
func stringMemberType(name string) types.Type {
	switch name {
	case "length":
		return types.Number
	case "toUpperCase", "toLowerCase", "trim", "trimStart", "trimEnd":
		return fn(types.String)
	case "slice", "substring", "substr", "charAt", "repeat", "padStart", "padEnd":
		return variadic(types.String)
	case "indexOf", "lastIndexOf", "charCodeAt":
		return variadic(types.Number)
	case "includes", "startsWith", "endsWith":
		return variadic(types.Boolean)
	case "split":
		return variadic(&types.ArrayType{ElementType: types.String})
	case "byte", "find", "format", "gmatch", "gsub", "len", "lower", "match", "rep", "reverse", "sub", "upper":
		return variadic(types.Any)
	}
	return nil
}

// arrayMemberType returns the type of a property read on an array whose
// elements have type elem.
func arrayMemberType(name string, elem types.Type) types.Type {
	arr := &types.ArrayType{ElementType: elem}
	switch name {
	case "length":
		return types.Number
	case "push", "unshift", "indexOf", "lastIndexOf", "findIndex":
		return variadic(types.Number)
	case "pop", "shift", "find":
		return variadic(types.NewUnionType(elem, types.Undefined))
	case "join":
		return variadic(types.String)
	case "includes", "some", "every", "isEmpty":
		return variadic(types.Boolean)
	case "slice", "concat", "filter", "reverse", "sort", "copy":
		return variadic(arr)
	case "map":
		return variadic(&types.ArrayType{ElementType: types.Any})
	case "forEach":
		return variadic(types.Void)
	case "reduce":
		return variadic(types.Any)
	}
	return nil
}
