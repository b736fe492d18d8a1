package lower

import (
	"github.com/nooga/tslua/pkg/types"
)

// truthy turns a value of type t into a Lua condition with the source
// language's falsy values: 0, NaN and "" are false there but not in Lua.
func (l *Lowerer) truthy(value string, t types.Type) string {
	switch {
	case types.HasLuaTruthiness(t):
		return value
	case types.IsNumber(t):
		v := l.stable(value)
		v = paren(v)
		return "(" + v + " ~= 0 and " + v + " == " + v + ")"
	case types.IsString(t):
		return "(" + paren(value) + ` ~= "")`
	}
	l.ctx.UsesRuntime = true
	return "TS.bool(" + value + ")"
}

// falsy is the negation of truthy.
func (l *Lowerer) falsy(value string, t types.Type) string {
	return "not " + paren(l.truthy(value, t))
}
