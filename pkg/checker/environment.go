package checker

import (
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// SymbolKind classifies what introduced a name.
type SymbolKind int

const (
	SymbolLet SymbolKind = iota
	SymbolConst
	SymbolFunction
	SymbolParam
	SymbolNamespace
	SymbolGlobal
	SymbolSelfFunction // the name of a named function expression, visible in its body
	SymbolClass
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolLet:
		return "let"
	case SymbolConst:
		return "const"
	case SymbolFunction:
		return "function"
	case SymbolParam:
		return "parameter"
	case SymbolNamespace:
		return "namespace"
	case SymbolGlobal:
		return "global"
	case SymbolSelfFunction:
		return "function expression name"
	case SymbolClass:
		return "class"
	}
	return "unknown"
}

// Symbol is one declared name. Every reference and every binding identifier
// resolves to exactly one Symbol.
type Symbol struct {
	Name string
	Kind SymbolKind
	Type types.Type
	Decl parser.Node // declaring statement or function literal

	Exported  bool
	Namespace *Symbol // enclosing namespace, when declared directly in one
	Members   map[string]*Symbol

	// Hoisted is set when a reference was seen before the declaration was
	// reached: before the statement starts for functions, before it ends for
	// variables.
	Hoisted    bool
	References int

	declared bool
}

// Environment is one lexical scope.
type Environment struct {
	symbols     map[string]*Symbol
	typeAliases map[string]types.Type
	pending     map[string]*parser.TypeAliasStatement // aliases not resolved yet
	outer       *Environment
	namespace   *Symbol // set for the body of a namespace declaration
}

// NewEnvironment creates a new top-level environment.
func NewEnvironment() *Environment {
	return &Environment{
		symbols:     make(map[string]*Symbol),
		typeAliases: make(map[string]types.Type),
		pending:     make(map[string]*parser.TypeAliasStatement),
	}
}

// NewEnclosedEnvironment creates a new environment nested within an outer one.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

// Define adds a symbol to this scope, replacing any previous one of the same name.
func (e *Environment) Define(sym *Symbol) {
	e.symbols[sym.Name] = sym
}

// Lookup finds a symbol declared directly in this scope.
func (e *Environment) Lookup(name string) (*Symbol, bool) {
	sym, ok := e.symbols[name]
	return sym, ok
}

// Resolve looks up a name in this environment and its outer scopes. The
// second result reports that the name was found among the exported members
// of a merged namespace rather than as a local of the scope, so references
// must go through the namespace table.
func (e *Environment) Resolve(name string) (*Symbol, bool) {
	for env := e; env != nil; env = env.outer {
		if sym, ok := env.symbols[name]; ok {
			return sym, false
		}
		if env.namespace != nil {
			if sym, ok := env.namespace.Members[name]; ok {
				return sym, true
			}
		}
	}
	return nil, false
}

// DefineTypeAlias registers a resolved alias in this scope.
func (e *Environment) DefineTypeAlias(name string, typ types.Type) {
	e.typeAliases[name] = typ
	delete(e.pending, name)
}

// ResolveTypeAlias finds a resolved alias, or the pending declaration of one.
func (e *Environment) ResolveTypeAlias(name string) (types.Type, *parser.TypeAliasStatement, *Environment) {
	for env := e; env != nil; env = env.outer {
		if t, ok := env.typeAliases[name]; ok {
			return t, nil, env
		}
		if decl, ok := env.pending[name]; ok {
			return nil, decl, env
		}
	}
	return nil, nil, nil
}
