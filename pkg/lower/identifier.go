package lower

import (
	"github.com/nooga/tslua/pkg/checker"
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
)

var luaKeywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true, "end": true,
	"false": true, "for": true, "function": true, "goto": true, "if": true, "in": true,
	"local": true, "nil": true, "not": true, "or": true, "repeat": true, "return": true,
	"then": true, "true": true, "until": true, "while": true,
}

// reservedNames are identifiers the emitted code uses for itself.
var reservedNames = map[string]bool{
	"_exports": true,
	"TS":       true,
	"self":     true,
	"_":        true,
}

// isLuaName reports whether s can be written as a bare Lua name.
func isLuaName(s string) bool {
	return identPattern.MatchString(s) && !luaKeywords[s]
}

// checkName rejects identifiers that cannot be emitted as they are.
func (l *Lowerer) checkName(id *parser.Identifier) error {
	name := id.Value
	switch {
	case luaKeywords[name]:
		return l.errorf(id, errors.CodeReservedName, "'%s' is a reserved word in Lua", name)
	case reservedNames[name], tempPattern.MatchString(name):
		return l.errorf(id, errors.CodeReservedName, "'%s' is reserved for generated code", name)
	case !identPattern.MatchString(name):
		return l.errorf(id, errors.CodeReservedName, "'%s' is not a valid Lua identifier", name)
	}
	return nil
}

// exportTableOf returns the table an exported symbol lives in.
func (l *Lowerer) exportTableOf(sym *checker.Symbol) string {
	if sym.Namespace != nil {
		return sym.Namespace.Name
	}
	l.ctx.IsModule = true
	return "_exports"
}

// readsThroughTable reports whether every access to sym goes through its
// export table. Exported mutable variables live only in the table so other
// modules observe assignments.
func readsThroughTable(sym *checker.Symbol) bool {
	return sym != nil && sym.Exported && sym.Kind == checker.SymbolLet
}

// identifier lowers a reference.
func (l *Lowerer) identifier(id *parser.Identifier) (string, error) {
	if err := l.checkName(id); err != nil {
		return "", err
	}
	sym := l.info.SymbolOf(id)
	if sym == nil {
		return id.Value, nil
	}
	if readsThroughTable(sym) {
		return l.exportTableOf(sym) + "." + id.Value, nil
	}
	if l.info.QualifiedReference(id) {
		// Another block of a merged namespace declared the member; bind it
		// once at the top of this block.
		ns := l.exportTableOf(sym)
		l.ctx.HoistDeclaration(id.Value, "local "+id.Value+" = "+ns+"."+id.Value+";")
	}
	return id.Value, nil
}

// bindingName validates a declared name and returns the text assignments to
// it use.
func (l *Lowerer) bindingName(id *parser.Identifier) (string, *checker.Symbol, error) {
	if err := l.checkName(id); err != nil {
		return "", nil, err
	}
	sym := l.info.SymbolOf(id)
	if readsThroughTable(sym) {
		return l.exportTableOf(sym) + "." + id.Value, sym, nil
	}
	return id.Value, sym, nil
}

// declareName emits the binding of a declared identifier to value (which may
// be empty for a bare declaration) and registers exports. It returns the
// statement, or "" when nothing needs to be written.
func (l *Lowerer) declareName(id *parser.Identifier, value string) (string, error) {
	target, sym, err := l.bindingName(id)
	if err != nil {
		return "", err
	}
	l.exportBinding(id, sym)
	switch {
	case readsThroughTable(sym) || l.info.Hoisted(sym):
		if l.info.Hoisted(sym) && !readsThroughTable(sym) {
			l.ctx.Hoist(target)
		}
		if value == "" {
			return "", nil
		}
		return l.line(target + " = " + value + ";"), nil
	case value == "":
		return l.line("local " + target + ";"), nil
	}
	return l.line("local " + target + " = " + value + ";"), nil
}

// exportBinding attaches an exported immutable binding to its table at the
// end of the current block.
func (l *Lowerer) exportBinding(id *parser.Identifier, sym *checker.Symbol) {
	if sym == nil || !sym.Exported || readsThroughTable(sym) {
		return
	}
	l.ctx.Export(l.exportTableOf(sym), id.Value, id.Value)
}

// this lowers `this`, which is the method receiver.
func (l *Lowerer) this(e *parser.ThisExpression) (string, error) {
	if fn := l.currentFunction(); fn == nil || !fn.method {
		return "", l.errorf(e, errors.CodeNoThisOutsideMethod, "'this' can only be used inside a method")
	}
	return "self", nil
}
