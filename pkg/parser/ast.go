package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/nooga/tslua/pkg/lexer"
	"github.com/nooga/tslua/pkg/source"
	"github.com/nooga/tslua/pkg/types"
)

// --- Interfaces ---

// Node is the base interface for all AST nodes. The node set is closed: the
// marker methods below are unexported, so only this package defines kinds and
// every consumer's type switch can be checked against this file.
type Node interface {
	TokenLiteral() string   // Returns the literal value of the token associated with the node
	String() string         // Returns a string representation of the node (for debugging)
	GetToken() lexer.Token  // The token the node starts at, for error positions
}

// Statement represents a statement node in the AST.
type Statement interface {
	Node
	statementNode()
}

// Expression represents an expression node in the AST.
type Expression interface {
	Node
	expressionNode()
	GetComputedType() types.Type
	SetComputedType(t types.Type)
}

// BaseExpression holds the type the checker resolved for an expression.
type BaseExpression struct {
	ComputedType types.Type
}

func (be *BaseExpression) GetComputedType() types.Type  { return be.ComputedType }
func (be *BaseExpression) SetComputedType(t types.Type) { be.ComputedType = t }
func (be *BaseExpression) expressionNode()              {}

func typeComment(t types.Type) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf(" /* type: %s */", t.String())
}

// --- Program Node ---

// Program is the root node of the AST.
type Program struct {
	Statements []Statement
	Source     *source.SourceFile
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}
func (p *Program) GetToken() lexer.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].GetToken()
	}
	return lexer.Token{Type: lexer.EOF, Line: 1, Column: 1}
}
func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// --- Statement Nodes ---

// VariableStatement is a `let`, `const` or `var` declaration list.
// <Kind> <Declarations...>;
type VariableStatement struct {
	Token        lexer.Token // LET, CONST or VAR
	Kind         string      // "let", "const" or "var"
	Declarations []*VariableDeclarator
}

// VariableDeclarator is one `target: Type = value` entry. Target is an
// *Identifier, *ArrayPattern or *ObjectPattern.
type VariableDeclarator struct {
	Token          lexer.Token
	Target         Expression
	TypeAnnotation Expression
	Value          Expression
}

func (vs *VariableStatement) statementNode()        {}
func (vs *VariableStatement) TokenLiteral() string  { return vs.Token.Literal }
func (vs *VariableStatement) GetToken() lexer.Token { return vs.Token }
func (vs *VariableStatement) String() string {
	decls := make([]string, len(vs.Declarations))
	for i, d := range vs.Declarations {
		decls[i] = d.String()
	}
	return vs.Kind + " " + strings.Join(decls, ", ") + ";"
}

func (vd *VariableDeclarator) String() string {
	var out bytes.Buffer
	out.WriteString(vd.Target.String())
	if vd.TypeAnnotation != nil {
		out.WriteString(": " + vd.TypeAnnotation.String())
	}
	if vd.Value != nil {
		out.WriteString(" = " + vd.Value.String())
	}
	return out.String()
}

// ReturnStatement represents `return <ReturnValue>;`.
type ReturnStatement struct {
	Token       lexer.Token
	ReturnValue Expression // may be nil
}

func (rs *ReturnStatement) statementNode()        {}
func (rs *ReturnStatement) TokenLiteral() string  { return rs.Token.Literal }
func (rs *ReturnStatement) GetToken() lexer.Token { return rs.Token }
func (rs *ReturnStatement) String() string {
	if rs.ReturnValue == nil {
		return "return;"
	}
	return "return " + rs.ReturnValue.String() + ";"
}

// ExpressionStatement wraps an expression used as a statement.
type ExpressionStatement struct {
	Token      lexer.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()        {}
func (es *ExpressionStatement) TokenLiteral() string  { return es.Token.Literal }
func (es *ExpressionStatement) GetToken() lexer.Token { return es.Token }
func (es *ExpressionStatement) String() string {
	if es.Expression == nil {
		return ";"
	}
	return es.Expression.String() + ";"
}

// BlockStatement represents a sequence of statements enclosed in braces.
type BlockStatement struct {
	Token      lexer.Token // The { token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()        {}
func (bs *BlockStatement) TokenLiteral() string  { return bs.Token.Literal }
func (bs *BlockStatement) GetToken() lexer.Token { return bs.Token }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{\n")
	for _, s := range bs.Statements {
		for _, line := range strings.Split(s.String(), "\n") {
			out.WriteString("  " + line + "\n")
		}
	}
	out.WriteString("}")
	return out.String()
}

// IfStatement represents `if (<Condition>) <Consequence> else <Alternative>`.
type IfStatement struct {
	Token       lexer.Token
	Condition   Expression
	Consequence Statement
	Alternative Statement // nil, *IfStatement or any other statement
}

func (is *IfStatement) statementNode()        {}
func (is *IfStatement) TokenLiteral() string  { return is.Token.Literal }
func (is *IfStatement) GetToken() lexer.Token { return is.Token }
func (is *IfStatement) String() string {
	s := "if (" + is.Condition.String() + ") " + is.Consequence.String()
	if is.Alternative != nil {
		s += " else " + is.Alternative.String()
	}
	return s
}

// WhileStatement represents `while (<Condition>) <Body>`.
type WhileStatement struct {
	Token     lexer.Token
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode()        {}
func (ws *WhileStatement) TokenLiteral() string  { return ws.Token.Literal }
func (ws *WhileStatement) GetToken() lexer.Token { return ws.Token }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

// DoWhileStatement represents `do <Body> while (<Condition>);`.
type DoWhileStatement struct {
	Token     lexer.Token
	Body      Statement
	Condition Expression
}

func (dws *DoWhileStatement) statementNode()        {}
func (dws *DoWhileStatement) TokenLiteral() string  { return dws.Token.Literal }
func (dws *DoWhileStatement) GetToken() lexer.Token { return dws.Token }
func (dws *DoWhileStatement) String() string {
	return "do " + dws.Body.String() + " while (" + dws.Condition.String() + ");"
}

// ForStatement represents `for (<Initializer>; <Condition>; <Update>) <Body>`.
// Each header part may be nil.
type ForStatement struct {
	Token       lexer.Token
	Initializer Statement // *VariableStatement or *ExpressionStatement
	Condition   Expression
	Update      Expression
	Body        Statement
}

func (fs *ForStatement) statementNode()        {}
func (fs *ForStatement) TokenLiteral() string  { return fs.Token.Literal }
func (fs *ForStatement) GetToken() lexer.Token { return fs.Token }
func (fs *ForStatement) String() string {
	var init, cond, upd string
	if fs.Initializer != nil {
		init = strings.TrimSuffix(fs.Initializer.String(), ";")
	}
	if fs.Condition != nil {
		cond = fs.Condition.String()
	}
	if fs.Update != nil {
		upd = fs.Update.String()
	}
	return fmt.Sprintf("for (%s; %s; %s) %s", init, cond, upd, fs.Body.String())
}

// ForOfStatement represents `for (const <Target> of <Iterable>) <Body>`.
type ForOfStatement struct {
	Token    lexer.Token
	Kind     string     // "let" or "const"
	Target   Expression // *Identifier, *ArrayPattern or *ObjectPattern
	Iterable Expression
	Body     Statement
}

func (fos *ForOfStatement) statementNode()        {}
func (fos *ForOfStatement) TokenLiteral() string  { return fos.Token.Literal }
func (fos *ForOfStatement) GetToken() lexer.Token { return fos.Token }
func (fos *ForOfStatement) String() string {
	return fmt.Sprintf("for (%s %s of %s) %s", fos.Kind, fos.Target, fos.Iterable, fos.Body)
}

// ForInStatement represents `for (const <Target> in <Object>) <Body>`. It is
// parsed so the compiler can reject it with a precise message.
type ForInStatement struct {
	Token  lexer.Token
	Kind   string
	Target Expression
	Object Expression
	Body   Statement
}

func (fis *ForInStatement) statementNode()        {}
func (fis *ForInStatement) TokenLiteral() string  { return fis.Token.Literal }
func (fis *ForInStatement) GetToken() lexer.Token { return fis.Token }
func (fis *ForInStatement) String() string {
	return fmt.Sprintf("for (%s %s in %s) %s", fis.Kind, fis.Target, fis.Object, fis.Body)
}

// BreakStatement represents `break;`.
type BreakStatement struct {
	Token lexer.Token
}

func (bs *BreakStatement) statementNode()        {}
func (bs *BreakStatement) TokenLiteral() string  { return bs.Token.Literal }
func (bs *BreakStatement) GetToken() lexer.Token { return bs.Token }
func (bs *BreakStatement) String() string        { return "break;" }

// ContinueStatement represents `continue;`.
type ContinueStatement struct {
	Token lexer.Token
}

func (cs *ContinueStatement) statementNode()        {}
func (cs *ContinueStatement) TokenLiteral() string  { return cs.Token.Literal }
func (cs *ContinueStatement) GetToken() lexer.Token { return cs.Token }
func (cs *ContinueStatement) String() string        { return "continue;" }

// ThrowStatement represents `throw <Value>;`.
type ThrowStatement struct {
	Token lexer.Token
	Value Expression
}

func (ts *ThrowStatement) statementNode()        {}
func (ts *ThrowStatement) TokenLiteral() string  { return ts.Token.Literal }
func (ts *ThrowStatement) GetToken() lexer.Token { return ts.Token }
func (ts *ThrowStatement) String() string        { return "throw " + ts.Value.String() + ";" }

// SwitchStatement represents `switch (<Expression>) { <Cases> }`.
type SwitchStatement struct {
	Token      lexer.Token
	Expression Expression
	Cases      []*SwitchCase
}

// SwitchCase is one `case <Condition>:` or `default:` clause. Condition is nil
// for the default clause.
type SwitchCase struct {
	Token     lexer.Token
	Condition Expression
	Body      []Statement
}

func (ss *SwitchStatement) statementNode()        {}
func (ss *SwitchStatement) TokenLiteral() string  { return ss.Token.Literal }
func (ss *SwitchStatement) GetToken() lexer.Token { return ss.Token }
func (ss *SwitchStatement) String() string {
	var out bytes.Buffer
	out.WriteString("switch (" + ss.Expression.String() + ") {\n")
	for _, c := range ss.Cases {
		if c.Condition == nil {
			out.WriteString("default:\n")
		} else {
			out.WriteString("case " + c.Condition.String() + ":\n")
		}
		for _, s := range c.Body {
			out.WriteString("  " + s.String() + "\n")
		}
	}
	out.WriteString("}")
	return out.String()
}

// IsDefault reports whether the clause is the default clause.
func (sc *SwitchCase) IsDefault() bool { return sc.Condition == nil }

// FunctionDeclaration represents a named `function` at statement level.
type FunctionDeclaration struct {
	Token    lexer.Token
	Function *FunctionLiteral
}

func (fd *FunctionDeclaration) statementNode()        {}
func (fd *FunctionDeclaration) TokenLiteral() string  { return fd.Token.Literal }
func (fd *FunctionDeclaration) GetToken() lexer.Token { return fd.Token }
func (fd *FunctionDeclaration) String() string        { return fd.Function.String() }

// ExportDeclaration represents `export <Declaration>` or `export default <Value>`.
type ExportDeclaration struct {
	Token       lexer.Token
	Declaration Statement  // set for `export let/const/function/namespace`
	Default     Expression // set for `export default <expr>`
}

func (ed *ExportDeclaration) statementNode()        {}
func (ed *ExportDeclaration) TokenLiteral() string  { return ed.Token.Literal }
func (ed *ExportDeclaration) GetToken() lexer.Token { return ed.Token }
func (ed *ExportDeclaration) String() string {
	if ed.Default != nil {
		return "export default " + ed.Default.String() + ";"
	}
	return "export " + ed.Declaration.String()
}

// NamespaceDeclaration represents `namespace <Name> { <Body> }`.
type NamespaceDeclaration struct {
	Token lexer.Token
	Name  *Identifier
	Body  *BlockStatement
}

func (nd *NamespaceDeclaration) statementNode()        {}
func (nd *NamespaceDeclaration) TokenLiteral() string  { return nd.Token.Literal }
func (nd *NamespaceDeclaration) GetToken() lexer.Token { return nd.Token }
func (nd *NamespaceDeclaration) String() string {
	return "namespace " + nd.Name.Value + " " + nd.Body.String()
}

// TypeAliasStatement represents `type <Name> = <Type>;` and, with IsInterface
// set, `interface <Name> { ... }`.
type TypeAliasStatement struct {
	Token       lexer.Token
	Name        *Identifier
	Type        Expression
	IsInterface bool
}

func (ta *TypeAliasStatement) statementNode()        {}
func (ta *TypeAliasStatement) TokenLiteral() string  { return ta.Token.Literal }
func (ta *TypeAliasStatement) GetToken() lexer.Token { return ta.Token }
func (ta *TypeAliasStatement) String() string {
	if ta.IsInterface {
		return "interface " + ta.Name.Value + " " + ta.Type.String()
	}
	return "type " + ta.Name.Value + " = " + ta.Type.String() + ";"
}

// LabeledStatement represents `<Label>: <Body>`.
type LabeledStatement struct {
	Token lexer.Token
	Label *Identifier
	Body  Statement
}

func (ls *LabeledStatement) statementNode()        {}
func (ls *LabeledStatement) TokenLiteral() string  { return ls.Token.Literal }
func (ls *LabeledStatement) GetToken() lexer.Token { return ls.Token }
func (ls *LabeledStatement) String() string        { return ls.Label.Value + ": " + ls.Body.String() }

// ClassDeclaration represents `class <Name> { ... }`. Only the name is kept;
// the body is skipped so the compiler can reject the construct by position.
type ClassDeclaration struct {
	Token lexer.Token
	Name  *Identifier
}

func (cd *ClassDeclaration) statementNode()        {}
func (cd *ClassDeclaration) TokenLiteral() string  { return cd.Token.Literal }
func (cd *ClassDeclaration) GetToken() lexer.Token { return cd.Token }
func (cd *ClassDeclaration) String() string {
	if cd.Name == nil {
		return "class { ... }"
	}
	return "class " + cd.Name.Value + " { ... }"
}

// --- Expression Nodes ---

// Identifier represents a name.
type Identifier struct {
	BaseExpression
	Token lexer.Token
	Value string
}

func (i *Identifier) TokenLiteral() string  { return i.Token.Literal }
func (i *Identifier) GetToken() lexer.Token { return i.Token }
func (i *Identifier) String() string        { return i.Value }

// NumberLiteral represents a numeric literal.
type NumberLiteral struct {
	BaseExpression
	Token lexer.Token
	Value float64
}

func (n *NumberLiteral) TokenLiteral() string  { return n.Token.Literal }
func (n *NumberLiteral) GetToken() lexer.Token { return n.Token }
func (n *NumberLiteral) String() string        { return n.Token.Literal }

// StringLiteral represents a string literal; Value is unescaped.
type StringLiteral struct {
	BaseExpression
	Token lexer.Token
	Value string
}

func (s *StringLiteral) TokenLiteral() string  { return s.Token.Literal }
func (s *StringLiteral) GetToken() lexer.Token { return s.Token }
func (s *StringLiteral) String() string        { return strconv.Quote(s.Value) }

// TemplateLiteral represents an untagged template. Strings holds the cooked
// text around the interpolations and is always one longer than Expressions.
type TemplateLiteral struct {
	BaseExpression
	Token       lexer.Token // The opening backtick
	Strings     []string
	Expressions []Expression
}

func (tl *TemplateLiteral) TokenLiteral() string  { return tl.Token.Literal }
func (tl *TemplateLiteral) GetToken() lexer.Token { return tl.Token }
func (tl *TemplateLiteral) String() string {
	var out strings.Builder
	out.WriteString("`")
	for i, str := range tl.Strings {
		str = strings.ReplaceAll(str, "`", "\\`")
		str = strings.ReplaceAll(str, "${", "\\${")
		out.WriteString(str)
		if i < len(tl.Expressions) {
			out.WriteString("${" + tl.Expressions[i].String() + "}")
		}
	}
	out.WriteString("`")
	return out.String()
}

// TaggedTemplateExpression represents tag`...`.
type TaggedTemplateExpression struct {
	BaseExpression
	Token    lexer.Token // The opening backtick
	Tag      Expression
	Template *TemplateLiteral
}

func (tt *TaggedTemplateExpression) TokenLiteral() string  { return tt.Token.Literal }
func (tt *TaggedTemplateExpression) GetToken() lexer.Token { return tt.Token }
func (tt *TaggedTemplateExpression) String() string {
	return tt.Tag.String() + tt.Template.String()
}

// BooleanLiteral represents `true` or `false`.
type BooleanLiteral struct {
	BaseExpression
	Token lexer.Token
	Value bool
}

func (b *BooleanLiteral) TokenLiteral() string  { return b.Token.Literal }
func (b *BooleanLiteral) GetToken() lexer.Token { return b.Token }
func (b *BooleanLiteral) String() string        { return b.Token.Literal }

// NullLiteral represents `null`.
type NullLiteral struct {
	BaseExpression
	Token lexer.Token
}

func (nl *NullLiteral) TokenLiteral() string  { return nl.Token.Literal }
func (nl *NullLiteral) GetToken() lexer.Token { return nl.Token }
func (nl *NullLiteral) String() string        { return "null" }

// UndefinedLiteral represents `undefined`.
type UndefinedLiteral struct {
	BaseExpression
	Token lexer.Token
}

func (ul *UndefinedLiteral) TokenLiteral() string  { return ul.Token.Literal }
func (ul *UndefinedLiteral) GetToken() lexer.Token { return ul.Token }
func (ul *UndefinedLiteral) String() string        { return "undefined" }

// ThisExpression represents `this`.
type ThisExpression struct {
	BaseExpression
	Token lexer.Token
}

func (te *ThisExpression) TokenLiteral() string  { return te.Token.Literal }
func (te *ThisExpression) GetToken() lexer.Token { return te.Token }
func (te *ThisExpression) String() string        { return "this" }

// ArrayLiteral represents `[a, b, ...c]`.
type ArrayLiteral struct {
	BaseExpression
	Token    lexer.Token
	Elements []Expression
}

func (al *ArrayLiteral) TokenLiteral() string  { return al.Token.Literal }
func (al *ArrayLiteral) GetToken() lexer.Token { return al.Token }
func (al *ArrayLiteral) String() string {
	elems := make([]string, len(al.Elements))
	for i, e := range al.Elements {
		if e != nil {
			elems[i] = e.String()
		}
	}
	return "[" + strings.Join(elems, ", ") + "]" + typeComment(al.ComputedType)
}

// ObjectProperty is one `key: value`, shorthand `key` or method `key() {}`
// entry of an object literal.
type ObjectProperty struct {
	Token     lexer.Token
	Key       string
	Value     Expression
	Shorthand bool
	Method    bool
}

// ObjectLiteral represents `{ a: 1, b, m() {} }`.
type ObjectLiteral struct {
	BaseExpression
	Token      lexer.Token
	Properties []*ObjectProperty
}

func (ol *ObjectLiteral) TokenLiteral() string  { return ol.Token.Literal }
func (ol *ObjectLiteral) GetToken() lexer.Token { return ol.Token }
func (ol *ObjectLiteral) String() string {
	props := make([]string, len(ol.Properties))
	for i, p := range ol.Properties {
		if p.Shorthand {
			props[i] = p.Key
		} else {
			props[i] = p.Key + ": " + p.Value.String()
		}
	}
	return "{ " + strings.Join(props, ", ") + " }"
}

// SpreadElement represents `...argument` inside array literals and calls.
type SpreadElement struct {
	BaseExpression
	Token    lexer.Token
	Argument Expression
}

func (se *SpreadElement) TokenLiteral() string  { return se.Token.Literal }
func (se *SpreadElement) GetToken() lexer.Token { return se.Token }
func (se *SpreadElement) String() string        { return "..." + se.Argument.String() }

// Parameter is a function parameter.
type Parameter struct {
	Token          lexer.Token
	Name           *Identifier
	TypeAnnotation Expression
	DefaultValue   Expression
	Optional       bool
	IsRest         bool
}

func (p *Parameter) String() string {
	s := p.Name.Value
	if p.IsRest {
		s = "..." + s
	}
	if p.Optional {
		s += "?"
	}
	if p.TypeAnnotation != nil {
		s += ": " + p.TypeAnnotation.String()
	}
	if p.DefaultValue != nil {
		s += " = " + p.DefaultValue.String()
	}
	return s
}

// FunctionLiteral represents `function <Name>(<Parameters>): <Ret> { <Body> }`.
// IsMethod marks object-literal methods, which receive an implicit self.
type FunctionLiteral struct {
	BaseExpression
	Token                lexer.Token
	Name                 *Identifier // Optional function name
	Parameters           []*Parameter
	ReturnTypeAnnotation Expression
	Body                 *BlockStatement
	IsMethod             bool
}

func (fl *FunctionLiteral) TokenLiteral() string  { return fl.Token.Literal }
func (fl *FunctionLiteral) GetToken() lexer.Token { return fl.Token }
func (fl *FunctionLiteral) String() string {
	var out bytes.Buffer
	out.WriteString("function")
	if fl.Name != nil {
		out.WriteString(" " + fl.Name.Value)
	}
	out.WriteString("(" + joinParams(fl.Parameters) + ")")
	if fl.ReturnTypeAnnotation != nil {
		out.WriteString(": " + fl.ReturnTypeAnnotation.String())
	}
	out.WriteString(" " + fl.Body.String())
	return out.String()
}

// ArrowFunctionLiteral represents `(<Parameters>) => <Body>`.
type ArrowFunctionLiteral struct {
	BaseExpression
	Token                lexer.Token // The '=>' token
	Parameters           []*Parameter
	ReturnTypeAnnotation Expression
	Body                 Node // Expression or *BlockStatement
}

func (afl *ArrowFunctionLiteral) TokenLiteral() string  { return afl.Token.Literal }
func (afl *ArrowFunctionLiteral) GetToken() lexer.Token { return afl.Token }
func (afl *ArrowFunctionLiteral) String() string {
	s := "(" + joinParams(afl.Parameters) + ")"
	if afl.ReturnTypeAnnotation != nil {
		s += ": " + afl.ReturnTypeAnnotation.String()
	}
	return s + " => " + afl.Body.String()
}

func joinParams(params []*Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// PrefixExpression represents `<Operator><Right>` for ! - + ~ typeof.
type PrefixExpression struct {
	BaseExpression
	Token    lexer.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Literal }
func (pe *PrefixExpression) GetToken() lexer.Token { return pe.Token }
func (pe *PrefixExpression) String() string {
	if pe.Operator == "typeof" {
		return "(typeof " + pe.Right.String() + ")"
	}
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// UpdateExpression represents prefix or postfix increment/decrement.
type UpdateExpression struct {
	BaseExpression
	Token    lexer.Token
	Operator string // "++" or "--"
	Argument Expression
	Prefix   bool
}

func (ue *UpdateExpression) TokenLiteral() string  { return ue.Token.Literal }
func (ue *UpdateExpression) GetToken() lexer.Token { return ue.Token }
func (ue *UpdateExpression) String() string {
	if ue.Prefix {
		return ue.Operator + ue.Argument.String()
	}
	return ue.Argument.String() + ue.Operator
}

// InfixExpression represents `<Left> <Operator> <Right>`, logical operators included.
type InfixExpression struct {
	BaseExpression
	Token    lexer.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Literal }
func (ie *InfixExpression) GetToken() lexer.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// AssignmentExpression represents `<Left> <Operator> <Value>` for = and all
// compound assignment operators. Left is an *Identifier, *MemberExpression,
// *IndexExpression or a pattern.
type AssignmentExpression struct {
	BaseExpression
	Token    lexer.Token
	Operator string
	Left     Expression
	Value    Expression
}

func (ae *AssignmentExpression) TokenLiteral() string  { return ae.Token.Literal }
func (ae *AssignmentExpression) GetToken() lexer.Token { return ae.Token }
func (ae *AssignmentExpression) String() string {
	return "(" + ae.Left.String() + " " + ae.Operator + " " + ae.Value.String() + ")"
}

// TernaryExpression represents `<Condition> ? <Consequence> : <Alternative>`.
type TernaryExpression struct {
	BaseExpression
	Token       lexer.Token // The '?' token
	Condition   Expression
	Consequence Expression
	Alternative Expression
}

func (te *TernaryExpression) TokenLiteral() string  { return te.Token.Literal }
func (te *TernaryExpression) GetToken() lexer.Token { return te.Token }
func (te *TernaryExpression) String() string {
	return "(" + te.Condition.String() + " ? " + te.Consequence.String() + " : " + te.Alternative.String() + ")"
}

// CallExpression represents `<Function>(<Arguments>)`.
type CallExpression struct {
	BaseExpression
	Token     lexer.Token // The '(' token
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Literal }
func (ce *CallExpression) GetToken() lexer.Token { return ce.Token }
func (ce *CallExpression) String() string {
	args := make([]string, len(ce.Arguments))
	for i, a := range ce.Arguments {
		args[i] = a.String()
	}
	return ce.Function.String() + "(" + strings.Join(args, ", ") + ")"
}

// MemberExpression represents `<Object>.<Property>`.
type MemberExpression struct {
	BaseExpression
	Token    lexer.Token // The '.' token
	Object   Expression
	Property *Identifier
}

func (me *MemberExpression) TokenLiteral() string  { return me.Token.Literal }
func (me *MemberExpression) GetToken() lexer.Token { return me.Token }
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Property.Value
}

// IndexExpression represents `<Left>[<Index>]`.
type IndexExpression struct {
	BaseExpression
	Token lexer.Token // The '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Literal }
func (ie *IndexExpression) GetToken() lexer.Token { return ie.Token }
func (ie *IndexExpression) String() string {
	return ie.Left.String() + "[" + ie.Index.String() + "]"
}

// TypeAssertionExpression represents `<Expression> as <Type>`.
type TypeAssertionExpression struct {
	BaseExpression
	Token      lexer.Token
	Expression Expression
	Type       Expression
}

func (ta *TypeAssertionExpression) TokenLiteral() string  { return ta.Token.Literal }
func (ta *TypeAssertionExpression) GetToken() lexer.Token { return ta.Token }
func (ta *TypeAssertionExpression) String() string {
	return "(" + ta.Expression.String() + " as " + ta.Type.String() + ")"
}

// ImportCallExpression represents a dynamic `import(<Argument>)`.
type ImportCallExpression struct {
	BaseExpression
	Token    lexer.Token
	Argument Expression
}

func (ic *ImportCallExpression) TokenLiteral() string  { return ic.Token.Literal }
func (ic *ImportCallExpression) GetToken() lexer.Token { return ic.Token }
func (ic *ImportCallExpression) String() string        { return "import(" + ic.Argument.String() + ")" }

// NewExpression represents `new <Callee>(<Arguments>)`; parsed only to be rejected.
type NewExpression struct {
	BaseExpression
	Token     lexer.Token
	Callee    Expression
	Arguments []Expression
}

func (ne *NewExpression) TokenLiteral() string  { return ne.Token.Literal }
func (ne *NewExpression) GetToken() lexer.Token { return ne.Token }
func (ne *NewExpression) String() string        { return "new " + ne.Callee.String() + "(...)" }

// --- Binding patterns ---

// PatternElement is one slot of an array pattern. A nil *PatternElement in
// ArrayPattern.Elements is a hole.
type PatternElement struct {
	Target  Expression // *Identifier, member/index target, or nested pattern
	Default Expression
	Rest    bool
}

func (pe *PatternElement) String() string {
	s := pe.Target.String()
	if pe.Rest {
		s = "..." + s
	}
	if pe.Default != nil {
		s += " = " + pe.Default.String()
	}
	return s
}

// ArrayPattern represents `[a, , b = 1, ...rest]` on the left of `=`.
type ArrayPattern struct {
	BaseExpression
	Token    lexer.Token
	Elements []*PatternElement
}

func (ap *ArrayPattern) TokenLiteral() string  { return ap.Token.Literal }
func (ap *ArrayPattern) GetToken() lexer.Token { return ap.Token }
func (ap *ArrayPattern) String() string {
	parts := make([]string, len(ap.Elements))
	for i, e := range ap.Elements {
		if e != nil {
			parts[i] = e.String()
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// PatternProperty is one `key: target = default` entry of an object pattern.
type PatternProperty struct {
	Key     string
	Target  Expression
	Default Expression
}

// ObjectPattern represents `{ a, b: c = 1 }` on the left of `=`.
type ObjectPattern struct {
	BaseExpression
	Token      lexer.Token
	Properties []*PatternProperty
}

func (op *ObjectPattern) TokenLiteral() string  { return op.Token.Literal }
func (op *ObjectPattern) GetToken() lexer.Token { return op.Token }
func (op *ObjectPattern) String() string {
	parts := make([]string, len(op.Properties))
	for i, p := range op.Properties {
		parts[i] = p.Key + ": " + p.Target.String()
		if p.Default != nil {
			parts[i] += " = " + p.Default.String()
		}
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// --- Type annotation nodes ---
// Type annotations are parsed into these expression kinds; the checker turns
// them into types.Type values.

// TypeReference is a named type with optional type arguments (`number`,
// `Array<T>`, `LuaTuple<[A, B]>`, `Alias`).
type TypeReference struct {
	BaseExpression
	Token         lexer.Token
	Name          string
	TypeArguments []Expression
}

func (tr *TypeReference) TokenLiteral() string  { return tr.Token.Literal }
func (tr *TypeReference) GetToken() lexer.Token { return tr.Token }
func (tr *TypeReference) String() string {
	if len(tr.TypeArguments) == 0 {
		return tr.Name
	}
	args := make([]string, len(tr.TypeArguments))
	for i, a := range tr.TypeArguments {
		args[i] = a.String()
	}
	return tr.Name + "<" + strings.Join(args, ", ") + ">"
}

// ArrayTypeExpression is `T[]`.
type ArrayTypeExpression struct {
	BaseExpression
	Token       lexer.Token
	ElementType Expression
}

func (at *ArrayTypeExpression) TokenLiteral() string  { return at.Token.Literal }
func (at *ArrayTypeExpression) GetToken() lexer.Token { return at.Token }
func (at *ArrayTypeExpression) String() string        { return at.ElementType.String() + "[]" }

// TupleTypeExpression is `[A, B, ...C[]]`.
type TupleTypeExpression struct {
	BaseExpression
	Token        lexer.Token
	ElementTypes []Expression
	RestType     Expression // the array type after `...`
}

func (tt *TupleTypeExpression) TokenLiteral() string  { return tt.Token.Literal }
func (tt *TupleTypeExpression) GetToken() lexer.Token { return tt.Token }
func (tt *TupleTypeExpression) String() string {
	parts := make([]string, 0, len(tt.ElementTypes)+1)
	for _, e := range tt.ElementTypes {
		parts = append(parts, e.String())
	}
	if tt.RestType != nil {
		parts = append(parts, "..."+tt.RestType.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FunctionTypeExpression is `(a: A) => R`.
type FunctionTypeExpression struct {
	BaseExpression
	Token      lexer.Token
	Parameters []*Parameter
	ReturnType Expression
}

func (ft *FunctionTypeExpression) TokenLiteral() string  { return ft.Token.Literal }
func (ft *FunctionTypeExpression) GetToken() lexer.Token { return ft.Token }
func (ft *FunctionTypeExpression) String() string {
	return "(" + joinParams(ft.Parameters) + ") => " + ft.ReturnType.String()
}

// ObjectTypeMember is a property (`name: T`) or method (`name(a: A): R`)
// signature inside an object type literal.
type ObjectTypeMember struct {
	Token    lexer.Token
	Name     string
	Type     Expression // for methods, a *FunctionTypeExpression
	Optional bool
	IsMethod bool
}

// ObjectTypeExpression is `{ a: A; m(): R }`.
type ObjectTypeExpression struct {
	BaseExpression
	Token   lexer.Token
	Members []*ObjectTypeMember
}

func (ot *ObjectTypeExpression) TokenLiteral() string  { return ot.Token.Literal }
func (ot *ObjectTypeExpression) GetToken() lexer.Token { return ot.Token }
func (ot *ObjectTypeExpression) String() string {
	parts := make([]string, len(ot.Members))
	for i, m := range ot.Members {
		parts[i] = m.Name + ": " + m.Type.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// UnionTypeExpression is `A | B`.
type UnionTypeExpression struct {
	BaseExpression
	Token lexer.Token
	Types []Expression
}

func (ut *UnionTypeExpression) TokenLiteral() string  { return ut.Token.Literal }
func (ut *UnionTypeExpression) GetToken() lexer.Token { return ut.Token }
func (ut *UnionTypeExpression) String() string {
	parts := make([]string, len(ut.Types))
	for i, t := range ut.Types {
		parts[i] = t.String()
	}
	return strings.Join(parts, " | ")
}
