package checker

import (
	"fmt"
	"sort"

	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/source"
	"github.com/nooga/tslua/pkg/types"
)

const checkerDebug = false

func debugPrintf(format string, args ...interface{}) {
	if checkerDebug {
		fmt.Printf(format, args...)
	}
}

// Info is the result of checking a program: name resolution, hoisting and
// namespace facts the lowering pass queries. Expression types are stored on
// the AST nodes themselves via SetComputedType.
type Info struct {
	symbols        map[*parser.Identifier]*Symbol
	qualified      map[*parser.Identifier]bool
	namespaces     map[*parser.NamespaceDeclaration]*Symbol
	namespaceFirst map[*parser.NamespaceDeclaration]bool
}

func newInfo() *Info {
	return &Info{
		symbols:        make(map[*parser.Identifier]*Symbol),
		qualified:      make(map[*parser.Identifier]bool),
		namespaces:     make(map[*parser.NamespaceDeclaration]*Symbol),
		namespaceFirst: make(map[*parser.NamespaceDeclaration]bool),
	}
}

// SymbolOf returns the symbol an identifier (reference or binding) resolves to.
func (i *Info) SymbolOf(id *parser.Identifier) *Symbol {
	return i.symbols[id]
}

// Hoisted reports whether the symbol must be forward-declared at the top of
// its block.
func (i *Info) Hoisted(sym *Symbol) bool {
	return sym != nil && sym.Hoisted
}

// QualifiedReference reports whether a reference resolved to a member of a
// merged namespace declared in another block, so it must be read through the
// namespace table.
func (i *Info) QualifiedReference(id *parser.Identifier) bool {
	return i.qualified[id]
}

// NamespaceOf returns the (shared) symbol of a namespace declaration.
func (i *Info) NamespaceOf(decl *parser.NamespaceDeclaration) *Symbol {
	return i.namespaces[decl]
}

// NamespaceFirst reports whether decl is the first declaration of its
// namespace name in the enclosing block.
func (i *Info) NamespaceFirst(decl *parser.NamespaceDeclaration) bool {
	return i.namespaceFirst[decl]
}

// functionContext collects return types while a function body is checked.
type functionContext struct {
	declared types.Type
	returns  []types.Type
}

// Checker resolves names and computes static types.
type Checker struct {
	env    *Environment
	global *Environment
	info   *Info
	source *source.SourceFile
	errors []errors.TsluaError

	functions        []*functionContext
	thisTypes        []types.Type
	resolvingAliases map[*parser.TypeAliasStatement]bool
}

// NewChecker creates a checker with a fresh global environment.
func NewChecker() *Checker {
	global := NewGlobalEnvironment()
	return &Checker{
		env:              NewEnclosedEnvironment(global),
		global:           global,
		info:             newInfo(),
		resolvingAliases: make(map[*parser.TypeAliasStatement]bool),
	}
}

// Check is a convenience wrapper around NewChecker().Check.
func Check(program *parser.Program) (*Info, []errors.TsluaError) {
	return NewChecker().Check(program)
}

// Check walks the program. Type errors do not stop the walk.
func (c *Checker) Check(program *parser.Program) (*Info, []errors.TsluaError) {
	c.source = program.Source
	c.checkStatements(program.Statements)
	return c.info, c.errors
}

func (c *Checker) addError(node parser.Node, message string) {
	tok := node.GetToken()
	c.errors = append(c.errors, &errors.TypeError{
		Position: errors.Position{
			Line:     tok.Line,
			Column:   tok.Column,
			StartPos: tok.StartPos,
			EndPos:   tok.EndPos,
			Source:   c.source,
		},
		Msg: message,
	})
}

func (c *Checker) pushEnv() *Environment {
	c.env = NewEnclosedEnvironment(c.env)
	return c.env
}

func (c *Checker) popEnv() {
	c.env = c.env.outer
}

// --- Declarations ---

// declare creates (or, for merged namespaces, reuses) the symbol for a
// binding identifier in the current scope.
func (c *Checker) declare(id *parser.Identifier, kind SymbolKind, decl parser.Node, exported bool) *Symbol {
	sym := &Symbol{Name: id.Value, Kind: kind, Decl: decl, Exported: exported, Namespace: c.env.namespace}
	c.env.Define(sym)
	c.info.symbols[id] = sym
	if exported && c.env.namespace != nil {
		c.env.namespace.Members[sym.Name] = sym
	}
	return sym
}

// predeclare registers every name a block declares before any statement of
// the block is checked. References that reach a symbol that is not yet
// declared mark it hoisted.
func (c *Checker) predeclare(stmts []parser.Statement) {
	for _, stmt := range stmts {
		exported := false
		if exp, ok := stmt.(*parser.ExportDeclaration); ok {
			if exp.Declaration == nil {
				continue
			}
			stmt = exp.Declaration
			exported = true
		}

		switch s := stmt.(type) {
		case *parser.VariableStatement:
			kind := SymbolLet
			if s.Kind == "const" {
				kind = SymbolConst
			}
			for _, d := range s.Declarations {
				for _, id := range BoundNames(d.Target) {
					c.declare(id, kind, s, exported)
				}
			}
		case *parser.FunctionDeclaration:
			sym := c.declare(s.Function.Name, SymbolFunction, s, exported)
			sym.Type = c.signatureOf(s.Function)
		case *parser.ClassDeclaration:
			if s.Name != nil {
				sym := c.declare(s.Name, SymbolClass, s, exported)
				sym.Type = types.Any
				sym.declared = true
			}
		case *parser.NamespaceDeclaration:
			if existing, ok := c.env.Lookup(s.Name.Value); ok && existing.Kind == SymbolNamespace {
				c.info.symbols[s.Name] = existing
				c.info.namespaces[s] = existing
				existing.Exported = existing.Exported || exported
				continue
			}
			sym := c.declare(s.Name, SymbolNamespace, s, exported)
			sym.Members = make(map[string]*Symbol)
			sym.Type = types.NewObjectType()
			c.info.namespaces[s] = sym
			c.info.namespaceFirst[s] = true
		case *parser.TypeAliasStatement:
			c.env.pending[s.Name.Value] = s
		}
	}
}

// BoundNames lists the identifiers a binding target introduces, left to right.
func BoundNames(target parser.Expression) []*parser.Identifier {
	switch t := target.(type) {
	case *parser.Identifier:
		return []*parser.Identifier{t}
	case *parser.ArrayPattern:
		var ids []*parser.Identifier
		for _, e := range t.Elements {
			if e != nil {
				ids = append(ids, BoundNames(e.Target)...)
			}
		}
		return ids
	case *parser.ObjectPattern:
		var ids []*parser.Identifier
		for _, p := range t.Properties {
			ids = append(ids, BoundNames(p.Target)...)
		}
		return ids
	}
	return nil
}

// markDeclared flags every symbol a statement declares as reached.
func (c *Checker) markDeclared(ids []*parser.Identifier) {
	for _, id := range ids {
		if sym := c.info.symbols[id]; sym != nil {
			sym.declared = true
		}
	}
}

// --- Statements ---

func (c *Checker) checkStatements(stmts []parser.Statement) {
	c.predeclare(stmts)
	for _, stmt := range stmts {
		c.checkStatement(stmt)
	}
}

func (c *Checker) checkBlock(block *parser.BlockStatement) {
	c.pushEnv()
	defer c.popEnv()
	c.checkStatements(block.Statements)
}

// checkBody checks the body of a control statement in its own scope.
func (c *Checker) checkBody(stmt parser.Statement) {
	if block, ok := stmt.(*parser.BlockStatement); ok {
		c.checkBlock(block)
		return
	}
	c.pushEnv()
	defer c.popEnv()
	c.checkStatements([]parser.Statement{stmt})
}

func (c *Checker) checkStatement(stmt parser.Statement) {
	debugPrintf("// [Checker] statement %T\n", stmt)
	switch s := stmt.(type) {
	case *parser.VariableStatement:
		c.checkVariableStatement(s)

	case *parser.FunctionDeclaration:
		sym := c.info.symbols[s.Function.Name]
		if sym == nil {
			sym = c.declare(s.Function.Name, SymbolFunction, s, false)
		}
		sym.declared = true
		sym.Type = c.checkFunction(s.Function, nil)

	case *parser.ExpressionStatement:
		c.visit(s.Expression)

	case *parser.ReturnStatement:
		var t types.Type = types.Void
		if s.ReturnValue != nil {
			t = c.visit(s.ReturnValue)
		}
		if n := len(c.functions); n > 0 {
			c.functions[n-1].returns = append(c.functions[n-1].returns, t)
		}

	case *parser.BlockStatement:
		c.checkBlock(s)

	case *parser.IfStatement:
		c.visit(s.Condition)
		c.checkBody(s.Consequence)
		if s.Alternative != nil {
			c.checkBody(s.Alternative)
		}

	case *parser.WhileStatement:
		c.visit(s.Condition)
		c.checkBody(s.Body)

	case *parser.DoWhileStatement:
		c.checkBody(s.Body)
		c.visit(s.Condition)

	case *parser.ForStatement:
		c.pushEnv()
		if s.Initializer != nil {
			c.checkStatements([]parser.Statement{s.Initializer})
		}
		if s.Condition != nil {
			c.visit(s.Condition)
		}
		if s.Update != nil {
			c.visit(s.Update)
		}
		c.checkBody(s.Body)
		c.popEnv()

	case *parser.ForOfStatement:
		iterable := c.visit(s.Iterable)
		elem := types.Type(types.Any)
		if types.IsString(iterable) {
			elem = types.String
		} else if types.IsArray(iterable) {
			elem = types.ElementType(iterable, -1)
		}
		c.pushEnv()
		c.bindLoopTarget(s, s.Kind, s.Target, elem)
		c.checkBody(s.Body)
		c.popEnv()

	case *parser.ForInStatement:
		c.visit(s.Object)
		c.pushEnv()
		c.bindLoopTarget(s, s.Kind, s.Target, types.String)
		c.checkBody(s.Body)
		c.popEnv()

	case *parser.SwitchStatement:
		c.visit(s.Expression)
		c.pushEnv()
		var all []parser.Statement
		for _, clause := range s.Cases {
			all = append(all, clause.Body...)
		}
		c.predeclare(all)
		for _, clause := range s.Cases {
			if clause.Condition != nil {
				c.visit(clause.Condition)
			}
			for _, body := range clause.Body {
				c.checkStatement(body)
			}
		}
		c.popEnv()

	case *parser.ExportDeclaration:
		if s.Default != nil {
			c.visit(s.Default)
			return
		}
		c.checkStatement(s.Declaration)

	case *parser.NamespaceDeclaration:
		c.checkNamespace(s)

	case *parser.TypeAliasStatement:
		if _, ok := c.env.pending[s.Name.Value]; ok {
			c.resolveTypeAlias(s.Name.Value, s)
		}

	case *parser.LabeledStatement:
		c.checkStatement(s.Body)

	case *parser.ThrowStatement:
		c.visit(s.Value)

	case *parser.BreakStatement, *parser.ContinueStatement, *parser.ClassDeclaration:
		// nothing to resolve

	default:
		c.addError(stmt, fmt.Sprintf("unexpected statement %T", stmt))
	}
}

func (c *Checker) bindLoopTarget(stmt parser.Statement, kind string, target parser.Expression, elem types.Type) {
	if kind == "" {
		c.assignTarget(target, elem)
		return
	}
	symKind := SymbolLet
	if kind == "const" {
		symKind = SymbolConst
	}
	ids := BoundNames(target)
	for _, id := range ids {
		c.declare(id, symKind, stmt, false)
	}
	c.bindPattern(target, elem)
	c.markDeclared(ids)
}

func (c *Checker) checkVariableStatement(s *parser.VariableStatement) {
	for _, d := range s.Declarations {
		declared := c.resolveTypeAnnotation(d.TypeAnnotation)
		var valueType types.Type
		if d.Value != nil {
			valueType = c.visit(d.Value)
		}
		t := declared
		if t == nil {
			t = valueType
		}
		if t == nil {
			t = types.Any
		}
		c.bindPattern(d.Target, t)
	}
	// Variables become visible once the whole statement is done.
	for _, d := range s.Declarations {
		c.markDeclared(BoundNames(d.Target))
	}
}

// bindPattern assigns types to the symbols of a declaration target.
func (c *Checker) bindPattern(target parser.Expression, t types.Type) {
	target.SetComputedType(t)
	switch p := target.(type) {
	case *parser.Identifier:
		if sym := c.info.symbols[p]; sym != nil {
			sym.Type = t
		}
	case *parser.ArrayPattern:
		for i, e := range p.Elements {
			if e == nil {
				continue
			}
			var et types.Type
			if e.Rest {
				et = &types.ArrayType{ElementType: types.ElementType(t, -1)}
			} else {
				et = types.ElementType(t, i)
			}
			if e.Default != nil {
				c.visit(e.Default)
			}
			c.bindPattern(e.Target, et)
		}
	case *parser.ObjectPattern:
		for _, prop := range p.Properties {
			pt, _ := c.memberType(t, prop.Key)
			if prop.Default != nil {
				c.visit(prop.Default)
			}
			c.bindPattern(prop.Target, pt)
		}
	}
}

// assignTarget resolves the targets of an assignment pattern.
func (c *Checker) assignTarget(target parser.Expression, t types.Type) {
	switch p := target.(type) {
	case *parser.ArrayPattern:
		target.SetComputedType(t)
		for i, e := range p.Elements {
			if e == nil {
				continue
			}
			if e.Default != nil {
				c.visit(e.Default)
			}
			et := types.ElementType(t, i)
			if e.Rest {
				et = &types.ArrayType{ElementType: types.ElementType(t, -1)}
			}
			c.assignTarget(e.Target, et)
		}
	case *parser.ObjectPattern:
		target.SetComputedType(t)
		for _, prop := range p.Properties {
			if prop.Default != nil {
				c.visit(prop.Default)
			}
			pt, _ := c.memberType(t, prop.Key)
			c.assignTarget(prop.Target, pt)
		}
	default:
		c.visit(target)
	}
}

func (c *Checker) checkNamespace(s *parser.NamespaceDeclaration) {
	sym := c.info.namespaces[s]
	sym.declared = true

	env := c.pushEnv()
	env.namespace = sym
	c.checkStatements(s.Body.Statements)
	c.popEnv()

	names := make([]string, 0, len(sym.Members))
	for name := range sym.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	obj := sym.Type.(*types.ObjectType)
	for _, name := range names {
		obj.Add(name, sym.Members[name].Type, false)
	}
}
