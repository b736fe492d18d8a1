package lower

import (
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// receiverCategory groups receivers whose method calls are rewritten.
type receiverCategory int

const (
	categoryString receiverCategory = iota
	categoryArray
	categoryGlobal
)

func (c receiverCategory) String() string {
	switch c {
	case categoryString:
		return "string"
	case categoryArray:
		return "array"
	case categoryGlobal:
		return "global"
	}
	return "unknown"
}

func receiverCategoryOf(t types.Type) (receiverCategory, bool) {
	switch {
	case types.IsString(t):
		return categoryString, true
	case types.IsArray(t):
		return categoryArray, true
	}
	return 0, false
}

type methodKey struct {
	category receiverCategory
	name     string
}

// methodCall is a call whose receiver and arguments are already lowered.
// Global calls have no receiver.
type methodCall struct {
	receiver     string
	receiverType types.Type
	args         []string
	argExprs     []parser.Expression
	statement    bool
	hasSpread    bool
}

// methodStrategy rewrites one call. Returning false declines, and the call
// falls back to the runtime library.
type methodStrategy func(l *Lowerer, call *methodCall) (callResult, bool)

// luaStringMethods are callable on strings through Lua's string metatable.
var luaStringMethods = map[string]bool{
	"byte": true, "find": true, "format": true, "gmatch": true, "gsub": true, "len": true,
	"lower": true, "match": true, "rep": true, "reverse": true, "sub": true, "upper": true,
}

// methodRegistry is never modified after initialization.
var methodRegistry = map[methodKey]methodStrategy{
	{categoryString, "toUpperCase"}: libraryCall("string.upper", 0),
	{categoryString, "toLowerCase"}: libraryCall("string.lower", 0),
	{categoryString, "trim"}:        stringMatch("^%s*(.-)%s*$"),
	{categoryString, "trimStart"}:   stringMatch("^%s*(.-)$"),
	{categoryString, "trimEnd"}:     stringMatch("^(.-)%s*$"),
	{categoryString, "repeat"}:      libraryCall("string.rep", 1),
	{categoryString, "charAt"}:      stringCharAt,

	{categoryArray, "push"}:    arrayPush,
	{categoryArray, "pop"}:     libraryCall("table.remove", 0),
	{categoryArray, "shift"}:   arrayShift,
	{categoryArray, "unshift"}: arrayUnshift,
	{categoryArray, "join"}:    arrayJoin,
	{categoryArray, "isEmpty"}: arrayIsEmpty,

	{categoryGlobal, "typeIs"}: globalTypeIs,
	{categoryGlobal, "typeOf"}: libraryCall("type", 1),
	{categoryGlobal, "isNaN"}:  globalIsNaN,
}

// libraryCall maps a call with exactly arity arguments to fn(receiver, args).
func libraryCall(fn string, arity int) methodStrategy {
	return func(l *Lowerer, call *methodCall) (callResult, bool) {
		if call.hasSpread || len(call.args) != arity {
			return callResult{}, false
		}
		return callResult{text: fn + "(" + joinNonEmpty(append([]string{call.receiver}, call.args...)...) + ")", form: formCall}, true
	}
}

func stringMatch(pattern string) methodStrategy {
	return func(l *Lowerer, call *methodCall) (callResult, bool) {
		if len(call.args) != 0 {
			return callResult{}, false
		}
		return callResult{text: "string.match(" + call.receiver + ", " + quoteString(pattern) + ")", form: formCall}, true
	}
}

func stringCharAt(l *Lowerer, call *methodCall) (callResult, bool) {
	if call.hasSpread || len(call.args) != 1 {
		return callResult{}, false
	}
	pos := offsetIndex(l.stable(call.args[0]))
	return callResult{text: "string.sub(" + call.receiver + ", " + pos + ", " + pos + ")", form: formCall}, true
}

// arrayPush appends in place when the result is unused.
func arrayPush(l *Lowerer, call *methodCall) (callResult, bool) {
	if !call.statement || call.hasSpread || len(call.args) != 1 {
		return callResult{}, false
	}
	if identPattern.MatchString(call.receiver) {
		r := call.receiver
		return callResult{text: r + "[#" + r + " + 1] = " + call.args[0], form: formStatement}, true
	}
	return callResult{text: "table.insert(" + call.receiver + ", " + call.args[0] + ")", form: formCall}, true
}

func arrayShift(l *Lowerer, call *methodCall) (callResult, bool) {
	if len(call.args) != 0 {
		return callResult{}, false
	}
	return callResult{text: "table.remove(" + call.receiver + ", 1)", form: formCall}, true
}

func arrayUnshift(l *Lowerer, call *methodCall) (callResult, bool) {
	if !call.statement || call.hasSpread || len(call.args) != 1 {
		return callResult{}, false
	}
	return callResult{text: "table.insert(" + call.receiver + ", 1, " + call.args[0] + ")", form: formCall}, true
}

// arrayJoin uses table.concat when every element is a string or number.
func arrayJoin(l *Lowerer, call *methodCall) (callResult, bool) {
	elem := types.ElementType(call.receiverType, -1)
	if call.hasSpread || len(call.args) > 1 || !(types.IsString(elem) || types.IsNumber(elem) || isStringOrNumber(elem)) {
		return callResult{}, false
	}
	sep := `","`
	if len(call.args) == 1 {
		if !types.IsString(call.argExprs[0].GetComputedType()) {
			return callResult{}, false
		}
		sep = call.args[0]
	}
	return callResult{text: "table.concat(" + call.receiver + ", " + sep + ")", form: formCall}, true
}

func isStringOrNumber(t types.Type) bool {
	u, ok := t.(*types.UnionType)
	if !ok {
		return false
	}
	for _, m := range u.Types {
		if m != types.String && m != types.Number {
			return false
		}
	}
	return true
}

func arrayIsEmpty(l *Lowerer, call *methodCall) (callResult, bool) {
	if len(call.args) != 0 {
		return callResult{}, false
	}
	return callResult{text: "(next(" + call.receiver + ") == nil)", form: formValue}, true
}

// globalTypeIs lowers typeIs(v, "number") to a Lua type test.
func globalTypeIs(l *Lowerer, call *methodCall) (callResult, bool) {
	if call.hasSpread || len(call.args) != 2 {
		return callResult{}, false
	}
	return callResult{text: "(type(" + call.args[0] + ") == " + call.args[1] + ")", form: formValue}, true
}

func globalIsNaN(l *Lowerer, call *methodCall) (callResult, bool) {
	if call.hasSpread || len(call.args) != 1 {
		return callResult{}, false
	}
	v := l.stable(call.args[0])
	return callResult{text: "(" + paren(v) + " ~= " + paren(v) + ")", form: formValue}, true
}
