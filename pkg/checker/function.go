package checker

import (
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// signatureOf builds a function type from annotations alone. It is used to
// give hoisted function declarations a type before their bodies are checked.
func (c *Checker) signatureOf(fn *parser.FunctionLiteral) *types.FunctionType {
	ft := &types.FunctionType{IsMethod: fn.IsMethod}
	c.addParameterTypes(ft, fn.Parameters, false)
	ft.ReturnType = c.resolveTypeAnnotation(fn.ReturnTypeAnnotation)
	if ft.ReturnType == nil {
		ft.ReturnType = types.Any
	}
	return ft
}

// addParameterTypes fills the parameter part of ft. With declare set it also
// defines the parameters in the current environment.
func (c *Checker) addParameterTypes(ft *types.FunctionType, params []*parser.Parameter, declare bool) {
	for _, p := range params {
		pt := c.resolveTypeAnnotation(p.TypeAnnotation)
		if declare && p.DefaultValue != nil {
			dt := c.visit(p.DefaultValue)
			if pt == nil {
				pt = dt
			}
		}
		if pt == nil {
			if p.IsRest {
				pt = &types.ArrayType{ElementType: types.Any}
			} else {
				pt = types.Any
			}
		}
		if declare {
			sym := c.declare(p.Name, SymbolParam, p.Name, false)
			sym.Type = pt
			sym.declared = true
			p.Name.SetComputedType(pt)
		}
		if p.IsRest {
			ft.RestParameterType = types.ElementType(pt, -1)
			continue
		}
		ft.ParameterTypes = append(ft.ParameterTypes, pt)
		ft.OptionalParams = append(ft.OptionalParams, p.Optional || p.DefaultValue != nil)
	}
}

// checkFunction checks a function literal. A named function expression gets
// its own name bound inside its body. `this` is untyped inside plain
// functions.
func (c *Checker) checkFunction(fn *parser.FunctionLiteral, self *parser.Identifier) *types.FunctionType {
	if self != nil {
		c.pushEnv()
		defer c.popEnv()
		sym := c.declare(self, SymbolSelfFunction, fn, false)
		sym.Type = c.signatureOf(fn)
		sym.declared = true
	}
	c.thisTypes = append(c.thisTypes, types.Any)
	defer func() { c.thisTypes = c.thisTypes[:len(c.thisTypes)-1] }()
	ft := c.checkCallable(fn.Parameters, fn.ReturnTypeAnnotation, fn.Body, fn.IsMethod)
	fn.SetComputedType(ft)
	return ft
}

// checkMethod checks a function stored in an object literal. Such functions
// receive the object as `this`.
func (c *Checker) checkMethod(fn *parser.FunctionLiteral, this types.Type) *types.FunctionType {
	c.thisTypes = append(c.thisTypes, this)
	defer func() { c.thisTypes = c.thisTypes[:len(c.thisTypes)-1] }()
	ft := c.checkCallable(fn.Parameters, fn.ReturnTypeAnnotation, fn.Body, true)
	fn.SetComputedType(ft)
	return ft
}

func (c *Checker) checkArrowFunction(fn *parser.ArrowFunctionLiteral) *types.FunctionType {
	ft := c.checkCallable(fn.Parameters, fn.ReturnTypeAnnotation, fn.Body, false)
	fn.SetComputedType(ft)
	return ft
}

func (c *Checker) checkCallable(params []*parser.Parameter, retAnnotation parser.Expression, body parser.Node, method bool) *types.FunctionType {
	c.pushEnv()
	defer c.popEnv()

	ft := &types.FunctionType{IsMethod: method}
	c.addParameterTypes(ft, params, true)
	declared := c.resolveTypeAnnotation(retAnnotation)

	ctx := &functionContext{declared: declared}
	c.functions = append(c.functions, ctx)
	switch b := body.(type) {
	case *parser.BlockStatement:
		c.checkStatements(b.Statements)
	case parser.Expression:
		ctx.returns = append(ctx.returns, c.visit(b))
	}
	c.functions = c.functions[:len(c.functions)-1]

	switch {
	case declared != nil:
		ft.ReturnType = declared
	case len(ctx.returns) == 0:
		ft.ReturnType = types.Void
	default:
		ft.ReturnType = types.NewUnionType(ctx.returns...)
	}
	return ft
}
