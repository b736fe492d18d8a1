package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/lexer"
	"github.com/nooga/tslua/pkg/source"
)

// --- Debug Flag ---
const debugParser = false

func debugPrint(format string, args ...interface{}) {
	if debugParser {
		fmt.Printf("[Parser Debug] "+format+"\n", args...)
	}
}

// --- End Debug Flag ---

// Parser takes a lexer and builds an AST.
//
// The whole token stream is read up front so that arrow functions and
// parenthesized function types can be parsed speculatively and rewound.
type Parser struct {
	l      *lexer.Lexer
	source *source.SourceFile // cached from lexer
	errors []errors.TsluaError

	tokens []lexer.Token
	pos    int

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// Parsing functions types for Pratt parser
type (
	prefixParseFn func() Expression
	infixParseFn  func(Expression) Expression // Arg is the left side expression
)

// Precedence levels for VALUE operators
const (
	_ int = iota
	LOWEST
	ASSIGNMENT  // =, +=, -=, *=, /=, %=, **=, &=, |=, ^=, <<=, >>=, >>>=, &&=, ||=, ??=
	TERNARY     // ?:
	COALESCE    // ??
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	BITWISE_OR  // |
	BITWISE_XOR // ^
	BITWISE_AND // &
	EQUALS      // ==, !=, ===, !==
	LESSGREATER // >, <, >=, <=, in, instanceof
	SHIFT       // <<, >>, >>>
	SUM         // + or -
	PRODUCT     // * or / or %
	POWER       // ** (right-associative)
	PREFIX      // -X or !X or ++X or --X or ~X
	POSTFIX     // X++ or X--
	ASSERTION   // value as Type
	CALL        // myFunction(X)
	INDEX       // array[index]
	MEMBER      // object.property
)

// Precedences map for VALUE operator tokens
var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:                      ASSIGNMENT,
	lexer.PLUS_ASSIGN:                 ASSIGNMENT,
	lexer.MINUS_ASSIGN:                ASSIGNMENT,
	lexer.ASTERISK_ASSIGN:             ASSIGNMENT,
	lexer.SLASH_ASSIGN:                ASSIGNMENT,
	lexer.PERCENT_ASSIGN:              ASSIGNMENT,
	lexer.EXPONENT_ASSIGN:             ASSIGNMENT,
	lexer.BITWISE_AND_ASSIGN:          ASSIGNMENT,
	lexer.BITWISE_OR_ASSIGN:           ASSIGNMENT,
	lexer.BITWISE_XOR_ASSIGN:          ASSIGNMENT,
	lexer.LEFT_SHIFT_ASSIGN:           ASSIGNMENT,
	lexer.RIGHT_SHIFT_ASSIGN:          ASSIGNMENT,
	lexer.UNSIGNED_RIGHT_SHIFT_ASSIGN: ASSIGNMENT,
	lexer.LOGICAL_AND_ASSIGN:          ASSIGNMENT,
	lexer.LOGICAL_OR_ASSIGN:           ASSIGNMENT,
	lexer.COALESCE_ASSIGN:             ASSIGNMENT,

	lexer.QUESTION:    TERNARY,
	lexer.COALESCE:    COALESCE,
	lexer.LOGICAL_OR:  LOGICAL_OR,
	lexer.LOGICAL_AND: LOGICAL_AND,

	lexer.PIPE:        BITWISE_OR,
	lexer.BITWISE_XOR: BITWISE_XOR,
	lexer.BITWISE_AND: BITWISE_AND,

	lexer.EQ:            EQUALS,
	lexer.NOT_EQ:        EQUALS,
	lexer.STRICT_EQ:     EQUALS,
	lexer.STRICT_NOT_EQ: EQUALS,

	lexer.LT:         LESSGREATER,
	lexer.GT:         LESSGREATER,
	lexer.LE:         LESSGREATER,
	lexer.GE:         LESSGREATER,
	lexer.IN:         LESSGREATER,
	lexer.INSTANCEOF: LESSGREATER,

	lexer.LEFT_SHIFT:           SHIFT,
	lexer.RIGHT_SHIFT:          SHIFT,
	lexer.UNSIGNED_RIGHT_SHIFT: SHIFT,

	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.SLASH:    PRODUCT,
	lexer.ASTERISK: PRODUCT,
	lexer.PERCENT:  PRODUCT,
	lexer.EXPONENT: POWER,

	lexer.AS: ASSERTION,

	lexer.LPAREN:         CALL,
	lexer.TEMPLATE_START: CALL,
	lexer.LBRACKET:       INDEX,
	lexer.DOT:      MEMBER,

	lexer.INC: POSTFIX,
	lexer.DEC: POSTFIX,
}

var assignmentOperators = map[lexer.TokenType]bool{
	lexer.ASSIGN: true, lexer.PLUS_ASSIGN: true, lexer.MINUS_ASSIGN: true,
	lexer.ASTERISK_ASSIGN: true, lexer.SLASH_ASSIGN: true, lexer.PERCENT_ASSIGN: true,
	lexer.EXPONENT_ASSIGN: true, lexer.BITWISE_AND_ASSIGN: true, lexer.BITWISE_OR_ASSIGN: true,
	lexer.BITWISE_XOR_ASSIGN: true, lexer.LEFT_SHIFT_ASSIGN: true, lexer.RIGHT_SHIFT_ASSIGN: true,
	lexer.UNSIGNED_RIGHT_SHIFT_ASSIGN: true, lexer.LOGICAL_AND_ASSIGN: true,
	lexer.LOGICAL_OR_ASSIGN: true, lexer.COALESCE_ASSIGN: true,
}

// NewParser creates a new Parser.
func NewParser(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		source: l.Source(),
		errors: []errors.TsluaError{},
	}

	for {
		tok := l.NextToken()
		p.tokens = append(p.tokens, tok)
		if tok.Type == lexer.EOF {
			break
		}
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	for _, kw := range []lexer.TokenType{lexer.OF, lexer.TYPE, lexer.AS, lexer.NAMESPACE, lexer.INTERFACE} {
		p.registerPrefix(kw, p.parseIdentifier)
	}
	p.registerPrefix(lexer.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TEMPLATE_START, p.parseTemplateLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.NULL, p.parseNullLiteral)
	p.registerPrefix(lexer.UNDEFINED, p.parseUndefinedLiteral)
	p.registerPrefix(lexer.THIS, p.parseThisExpression)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpression)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.PLUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.BITWISE_NOT, p.parsePrefixExpression)
	p.registerPrefix(lexer.TYPEOF, p.parsePrefixExpression)
	p.registerPrefix(lexer.INC, p.parsePrefixUpdateExpression)
	p.registerPrefix(lexer.DEC, p.parsePrefixUpdateExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(lexer.LBRACE, p.parseObjectLiteral)
	p.registerPrefix(lexer.FUNCTION, p.parseFunctionLiteral)
	p.registerPrefix(lexer.IMPORT, p.parseImportCallExpression)
	p.registerPrefix(lexer.NEW, p.parseNewExpression)
	p.registerPrefix(lexer.SPREAD, p.parseSpreadElement)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for tokType, prec := range precedences {
		switch {
		case assignmentOperators[tokType]:
			p.registerInfix(tokType, p.parseAssignmentExpression)
		case prec >= SHIFT && prec <= POWER, prec >= BITWISE_OR && prec <= LESSGREATER,
			prec == COALESCE, prec == LOGICAL_OR, prec == LOGICAL_AND:
			p.registerInfix(tokType, p.parseInfixExpression)
		}
	}
	p.registerInfix(lexer.QUESTION, p.parseTernaryExpression)
	p.registerInfix(lexer.LPAREN, p.parseCallExpression)
	p.registerInfix(lexer.TEMPLATE_START, p.parseTaggedTemplate)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpression)
	p.registerInfix(lexer.DOT, p.parseMemberExpression)
	p.registerInfix(lexer.INC, p.parsePostfixUpdateExpression)
	p.registerInfix(lexer.DEC, p.parsePostfixUpdateExpression)
	p.registerInfix(lexer.AS, p.parseTypeAssertionExpression)

	p.pos = -1
	p.nextToken()
	return p
}

// Errors returns the errors collected so far.
func (p *Parser) Errors() []errors.TsluaError {
	return p.errors
}

func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.syncTokens()
}

func (p *Parser) syncTokens() {
	p.curToken = p.tokens[p.pos]
	p.peekToken = p.lookAhead(1)
}

// lookAhead returns the token n positions after the current one, or EOF.
func (p *Parser) lookAhead(n int) lexer.Token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

// mark and reset implement speculative parsing.
type parserMark struct {
	pos    int
	errors int
	tokens []lexer.Token
}

func (p *Parser) mark() parserMark {
	return parserMark{pos: p.pos, errors: len(p.errors), tokens: p.tokens}
}

func (p *Parser) reset(m parserMark) {
	p.pos = m.pos
	p.errors = p.errors[:m.errors]
	p.tokens = m.tokens
	p.syncTokens()
}

// expectPeekGT expects a '>' closing a type argument list. A '>>' or '>>>'
// token is split so that nested lists like Array<Array<number>> close.
func (p *Parser) expectPeekGT() bool {
	switch p.peekToken.Type {
	case lexer.GT:
		p.nextToken()
		return true
	case lexer.RIGHT_SHIFT, lexer.UNSIGNED_RIGHT_SHIFT, lexer.GE, lexer.RIGHT_SHIFT_ASSIGN:
		tok := p.peekToken
		first := lexer.Token{Type: lexer.GT, Literal: ">", Line: tok.Line, Column: tok.Column, StartPos: tok.StartPos, EndPos: tok.StartPos + 1}
		restLit := tok.Literal[1:]
		rest := lexer.Token{Type: lexer.TokenType(restLit), Literal: restLit, Line: tok.Line, Column: tok.Column + 1, StartPos: tok.StartPos + 1, EndPos: tok.EndPos}
		// Copy on write: a speculative parse may rewind to the original slice.
		i := p.pos + 1
		tokens := make([]lexer.Token, 0, len(p.tokens)+1)
		tokens = append(tokens, p.tokens[:i]...)
		tokens = append(tokens, first, rest)
		tokens = append(tokens, p.tokens[i+1:]...)
		p.tokens = tokens
		p.nextToken()
		return true
	}
	p.peekError(lexer.GT)
	return false
}

// ParseProgram parses the whole token stream.
func (p *Parser) ParseProgram() (*Program, []errors.TsluaError) {
	program := &Program{Statements: []Statement{}, Source: p.source}

	for !p.curTokenIs(lexer.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		if len(p.errors) > 0 {
			// One bad statement usually derails everything after it.
			break
		}
		p.nextToken()
	}

	return program, p.errors
}

// --- Statements ---

// parseStatement starts at the first token of a statement and leaves the
// parser on its last token.
func (p *Parser) parseStatement() Statement {
	debugPrint("parseStatement: cur=%s %q", p.curToken.Type, p.curToken.Literal)
	switch p.curToken.Type {
	case lexer.SEMICOLON:
		return nil
	case lexer.LET, lexer.CONST, lexer.VAR:
		return p.parseVariableStatement(true)
	case lexer.FUNCTION:
		if p.peekTokenIs(lexer.IDENT) || lexer.IsContextualKeyword(p.peekToken.Type) {
			return p.parseFunctionDeclaration()
		}
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.DO:
		return p.parseDoWhileStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.BREAK:
		stmt := &BreakStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case lexer.CONTINUE:
		stmt := &ContinueStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case lexer.THROW:
		return p.parseThrowStatement()
	case lexer.SWITCH:
		return p.parseSwitchStatement()
	case lexer.LBRACE:
		return p.parseBlockStatement()
	case lexer.EXPORT:
		return p.parseExportDeclaration()
	case lexer.CLASS:
		return p.parseClassDeclaration()
	case lexer.NAMESPACE:
		if p.peekTokenIs(lexer.IDENT) {
			return p.parseNamespaceDeclaration()
		}
	case lexer.TYPE:
		if p.peekTokenIs(lexer.IDENT) {
			return p.parseTypeAliasStatement()
		}
	case lexer.INTERFACE:
		if p.peekTokenIs(lexer.IDENT) {
			return p.parseInterfaceDeclaration()
		}
	case lexer.IMPORT:
		if !p.peekTokenIs(lexer.LPAREN) {
			p.addError(p.curToken, "import declarations are not supported")
			return nil
		}
	case lexer.IDENT:
		if p.peekTokenIs(lexer.COLON) {
			return p.parseLabeledStatement()
		}
	}
	return p.parseExpressionStatement()
}

func (p *Parser) skipSemicolon() {
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
}

// parseVariableStatement parses `let a = 1, [b, c] = d`. The terminating
// semicolon is consumed only when consumeSemicolon is set (for-loop headers
// handle their own).
func (p *Parser) parseVariableStatement(consumeSemicolon bool) *VariableStatement {
	stmt := &VariableStatement{Token: p.curToken, Kind: p.curToken.Literal}

	for {
		p.nextToken()
		decl := &VariableDeclarator{Token: p.curToken}
		decl.Target = p.parseBindingTarget()
		if decl.Target == nil {
			return nil
		}
		if p.peekTokenIs(lexer.COLON) {
			p.nextToken()
			p.nextToken()
			decl.TypeAnnotation = p.parseTypeExpression()
			if decl.TypeAnnotation == nil {
				return nil
			}
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			decl.Value = p.parseExpression(LOWEST)
			if decl.Value == nil {
				return nil
			}
		}
		stmt.Declarations = append(stmt.Declarations, decl)
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}

	if consumeSemicolon {
		p.skipSemicolon()
	}
	return stmt
}

func (p *Parser) parseReturnStatement() *ReturnStatement {
	stmt := &ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(lexer.SEMICOLON) || p.peekTokenIs(lexer.RBRACE) || p.peekTokenIs(lexer.EOF) ||
		p.peekToken.Line != p.curToken.Line {
		p.skipSemicolon()
		return stmt
	}
	p.nextToken()
	stmt.ReturnValue = p.parseExpression(LOWEST)
	if stmt.ReturnValue == nil {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseExpressionStatement() *ExpressionStatement {
	stmt := &ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseThrowStatement() *ThrowStatement {
	stmt := &ThrowStatement{Token: p.curToken}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseLabeledStatement() *LabeledStatement {
	stmt := &LabeledStatement{Token: p.curToken, Label: &Identifier{Token: p.curToken, Value: p.curToken.Literal}}
	p.nextToken() // ':'
	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseEmbeddedStatement parses the body of if/while/for. A bare `;` body is
// an empty block.
func (p *Parser) parseEmbeddedStatement() Statement {
	if p.curTokenIs(lexer.SEMICOLON) {
		return &BlockStatement{Token: p.curToken}
	}
	return p.parseStatement()
}

func (p *Parser) parseIfStatement() *IfStatement {
	stmt := &IfStatement{Token: p.curToken}
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Consequence = p.parseEmbeddedStatement()
	if stmt.Consequence == nil {
		return nil
	}
	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken()
		p.nextToken()
		stmt.Alternative = p.parseEmbeddedStatement()
		if stmt.Alternative == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() *WhileStatement {
	stmt := &WhileStatement{Token: p.curToken}
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseEmbeddedStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseDoWhileStatement() *DoWhileStatement {
	stmt := &DoWhileStatement{Token: p.curToken}
	p.nextToken()
	stmt.Body = p.parseEmbeddedStatement()
	if stmt.Body == nil {
		return nil
	}
	if !p.expectPeek(lexer.WHILE) || !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

// parseForStatement handles `for (;;)`, `for (x of xs)` and `for (x in o)`.
func (p *Parser) parseForStatement() Statement {
	forToken := p.curToken
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()

	// for (const x of xs) / for (const x in o)
	if p.curTokenIs(lexer.LET) || p.curTokenIs(lexer.CONST) || p.curTokenIs(lexer.VAR) {
		m := p.mark()
		kind := p.curToken.Literal
		p.nextToken()
		target := p.parseBindingTarget()
		if target != nil && (p.peekTokenIs(lexer.OF) || p.peekTokenIs(lexer.IN)) {
			return p.parseForEachRest(forToken, kind, target)
		}
		p.reset(m)
	} else if p.curTokenIs(lexer.IDENT) && (p.peekTokenIs(lexer.OF) || p.peekTokenIs(lexer.IN)) {
		target := &Identifier{Token: p.curToken, Value: p.curToken.Literal}
		return p.parseForEachRest(forToken, "", target)
	}

	stmt := &ForStatement{Token: forToken}
	switch {
	case p.curTokenIs(lexer.SEMICOLON):
	case p.curTokenIs(lexer.LET) || p.curTokenIs(lexer.CONST) || p.curTokenIs(lexer.VAR):
		init := p.parseVariableStatement(false)
		if init == nil {
			return nil
		}
		stmt.Initializer = init
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
	default:
		init := &ExpressionStatement{Token: p.curToken, Expression: p.parseExpression(LOWEST)}
		if init.Expression == nil {
			return nil
		}
		stmt.Initializer = init
		if !p.expectPeek(lexer.SEMICOLON) {
			return nil
		}
	}

	if !p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		stmt.Condition = p.parseExpression(LOWEST)
		if stmt.Condition == nil {
			return nil
		}
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	if !p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		stmt.Update = p.parseExpression(LOWEST)
		if stmt.Update == nil {
			return nil
		}
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseEmbeddedStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseForEachRest parses from the `of`/`in` keyword to the end of the body.
func (p *Parser) parseForEachRest(forToken lexer.Token, kind string, target Expression) Statement {
	p.nextToken()
	isIn := p.curTokenIs(lexer.IN)
	p.nextToken()
	iterable := p.parseExpression(LOWEST)
	if iterable == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	body := p.parseEmbeddedStatement()
	if body == nil {
		return nil
	}
	if isIn {
		return &ForInStatement{Token: forToken, Kind: kind, Target: target, Object: iterable, Body: body}
	}
	return &ForOfStatement{Token: forToken, Kind: kind, Target: target, Iterable: iterable, Body: body}
}

func (p *Parser) parseSwitchStatement() *SwitchStatement {
	stmt := &SwitchStatement{Token: p.curToken}
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Expression = p.parseExpression(LOWEST)
	if stmt.Expression == nil || !p.expectPeek(lexer.RPAREN) || !p.expectPeek(lexer.LBRACE) {
		return nil
	}

	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		clause := &SwitchCase{Token: p.curToken}
		switch p.curToken.Type {
		case lexer.CASE:
			p.nextToken()
			clause.Condition = p.parseExpression(LOWEST)
			if clause.Condition == nil {
				return nil
			}
		case lexer.DEFAULT:
		default:
			p.addError(p.curToken, fmt.Sprintf("expected 'case' or 'default', got %s instead", p.curToken.Type))
			return nil
		}
		if !p.expectPeek(lexer.COLON) {
			return nil
		}
		for !p.peekTokenIs(lexer.CASE) && !p.peekTokenIs(lexer.DEFAULT) && !p.peekTokenIs(lexer.RBRACE) {
			if p.peekTokenIs(lexer.EOF) {
				p.peekError(lexer.RBRACE)
				return nil
			}
			p.nextToken()
			s := p.parseStatement()
			if len(p.errors) > 0 {
				return nil
			}
			if s != nil {
				clause.Body = append(clause.Body, s)
			}
		}
		stmt.Cases = append(stmt.Cases, clause)
	}
	p.nextToken() // '}'
	return stmt
}

// parseBlockStatement starts on '{' and ends on the matching '}'.
func (p *Parser) parseBlockStatement() *BlockStatement {
	block := &BlockStatement{Token: p.curToken, Statements: []Statement{}}
	p.nextToken()

	for !p.curTokenIs(lexer.RBRACE) {
		if p.curTokenIs(lexer.EOF) {
			p.addError(p.curToken, "expected '}' before end of input")
			return nil
		}
		stmt := p.parseStatement()
		if len(p.errors) > 0 {
			return nil
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseFunctionDeclaration() Statement {
	tok := p.curToken
	fn, ok := p.parseFunctionLiteral().(*FunctionLiteral)
	if !ok || fn == nil {
		return nil
	}
	return &FunctionDeclaration{Token: tok, Function: fn}
}

func (p *Parser) parseExportDeclaration() Statement {
	stmt := &ExportDeclaration{Token: p.curToken}
	switch p.peekToken.Type {
	case lexer.DEFAULT:
		p.nextToken()
		p.nextToken()
		stmt.Default = p.parseExpression(LOWEST)
		if stmt.Default == nil {
			return nil
		}
		p.skipSemicolon()
		return stmt
	case lexer.LET, lexer.CONST, lexer.VAR, lexer.FUNCTION, lexer.NAMESPACE, lexer.TYPE, lexer.INTERFACE, lexer.CLASS:
		p.nextToken()
		stmt.Declaration = p.parseStatement()
		if stmt.Declaration == nil {
			return nil
		}
		return stmt
	}
	p.addError(p.peekToken, fmt.Sprintf("unsupported export form starting with %s", p.peekToken.Type))
	return nil
}

func (p *Parser) parseNamespaceDeclaration() Statement {
	stmt := &NamespaceDeclaration{Token: p.curToken}
	p.nextToken()
	stmt.Name = &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if p.peekTokenIs(lexer.DOT) {
		p.addError(p.peekToken, "dotted namespace names are not supported")
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseClassDeclaration skips a class body, keeping only its name.
func (p *Parser) parseClassDeclaration() Statement {
	stmt := &ClassDeclaration{Token: p.curToken}
	if p.peekTokenIs(lexer.IDENT) {
		p.nextToken()
		stmt.Name = &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	}
	for !p.peekTokenIs(lexer.LBRACE) {
		if p.peekTokenIs(lexer.EOF) {
			p.peekError(lexer.LBRACE)
			return nil
		}
		p.nextToken()
	}
	p.nextToken()
	depth := 1
	for depth > 0 {
		p.nextToken()
		switch p.curToken.Type {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			depth--
		case lexer.EOF:
			p.addError(p.curToken, "expected '}' before end of input")
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseTypeAliasStatement() Statement {
	stmt := &TypeAliasStatement{Token: p.curToken}
	p.nextToken()
	stmt.Name = &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if p.peekTokenIs(lexer.LT) {
		p.addError(p.peekToken, "generic type parameters are not supported")
		return nil
	}
	if !p.expectPeek(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()
	stmt.Type = p.parseTypeExpression()
	if stmt.Type == nil {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseInterfaceDeclaration() Statement {
	stmt := &TypeAliasStatement{Token: p.curToken, IsInterface: true}
	p.nextToken()
	stmt.Name = &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if p.peekTokenIs(lexer.IDENT) && p.peekToken.Literal == "extends" {
		p.addError(p.peekToken, "interface inheritance is not supported")
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	stmt.Type = p.parseObjectTypeExpression()
	if stmt.Type == nil {
		return nil
	}
	return stmt
}

// --- Binding targets ---

// parseBindingTarget parses the name or pattern on the left of a declaration.
func (p *Parser) parseBindingTarget() Expression {
	switch {
	case p.curTokenIs(lexer.IDENT) || lexer.IsContextualKeyword(p.curToken.Type):
		return &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	case p.curTokenIs(lexer.LBRACKET):
		return p.parseArrayBindingPattern()
	case p.curTokenIs(lexer.LBRACE):
		return p.parseObjectBindingPattern()
	}
	p.addError(p.curToken, fmt.Sprintf("expected binding name or pattern, got %s instead", p.curToken.Type))
	return nil
}

func (p *Parser) parseArrayBindingPattern() Expression {
	pattern := &ArrayPattern{Token: p.curToken}
	for !p.peekTokenIs(lexer.RBRACKET) {
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			pattern.Elements = append(pattern.Elements, nil)
			continue
		}
		elem := &PatternElement{}
		if p.curTokenIs(lexer.SPREAD) {
			elem.Rest = true
			p.nextToken()
		}
		elem.Target = p.parseBindingTarget()
		if elem.Target == nil {
			return nil
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			elem.Default = p.parseExpression(LOWEST)
			if elem.Default == nil {
				return nil
			}
		}
		pattern.Elements = append(pattern.Elements, elem)
		if elem.Rest && !p.peekTokenIs(lexer.RBRACKET) {
			p.addError(p.peekToken, "rest element must be last in an array pattern")
			return nil
		}
		if !p.peekTokenIs(lexer.RBRACKET) && !p.expectPeek(lexer.COMMA) {
			return nil
		}
	}
	p.nextToken()
	return pattern
}

func (p *Parser) parseObjectBindingPattern() Expression {
	pattern := &ObjectPattern{Token: p.curToken}
	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		if p.curTokenIs(lexer.SPREAD) {
			p.addError(p.curToken, "rest properties in object patterns are not supported")
			return nil
		}
		key, ok := p.parsePropertyKey()
		if !ok {
			return nil
		}
		prop := &PatternProperty{Key: key}
		if p.peekTokenIs(lexer.COLON) {
			p.nextToken()
			p.nextToken()
			prop.Target = p.parseBindingTarget()
			if prop.Target == nil {
				return nil
			}
		} else {
			if !p.curTokenIs(lexer.IDENT) && !lexer.IsContextualKeyword(p.curToken.Type) {
				p.addError(p.curToken, fmt.Sprintf("%q cannot be used as a shorthand binding", key))
				return nil
			}
			prop.Target = &Identifier{Token: p.curToken, Value: key}
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			prop.Default = p.parseExpression(LOWEST)
			if prop.Default == nil {
				return nil
			}
		}
		pattern.Properties = append(pattern.Properties, prop)
		if !p.peekTokenIs(lexer.RBRACE) && !p.expectPeek(lexer.COMMA) {
			return nil
		}
	}
	p.nextToken()
	return pattern
}

// parsePropertyKey reads an object key: identifier, keyword, string or number.
func (p *Parser) parsePropertyKey() (string, bool) {
	switch {
	case p.curTokenIs(lexer.IDENT), lexer.IsKeyword(p.curToken.Type), p.curTokenIs(lexer.STRING):
		return p.curToken.Literal, true
	case p.curTokenIs(lexer.NUMBER):
		return p.curToken.Literal, true
	case p.curTokenIs(lexer.LBRACKET):
		p.addError(p.curToken, "computed property names are not supported")
		return "", false
	}
	p.addError(p.curToken, fmt.Sprintf("expected property name, got %s instead", p.curToken.Type))
	return "", false
}

// toAssignmentPattern reinterprets an array or object literal on the left of
// `=` as a destructuring pattern.
func (p *Parser) toAssignmentPattern(expr Expression) Expression {
	switch e := expr.(type) {
	case *Identifier, *MemberExpression, *IndexExpression:
		return e
	case *ArrayLiteral:
		pattern := &ArrayPattern{Token: e.Token}
		for i, el := range e.Elements {
			if el == nil {
				pattern.Elements = append(pattern.Elements, nil)
				continue
			}
			pe := &PatternElement{}
			if spread, ok := el.(*SpreadElement); ok {
				if i != len(e.Elements)-1 {
					p.addError(spread.Token, "rest element must be last in an array pattern")
					return nil
				}
				pe.Rest = true
				el = spread.Argument
			}
			if assign, ok := el.(*AssignmentExpression); ok && assign.Operator == "=" {
				pe.Default = assign.Value
				el = assign.Left
			}
			pe.Target = p.toAssignmentPattern(el)
			if pe.Target == nil {
				return nil
			}
			pattern.Elements = append(pattern.Elements, pe)
		}
		return pattern
	case *ObjectLiteral:
		pattern := &ObjectPattern{Token: e.Token}
		for _, prop := range e.Properties {
			if prop.Method {
				p.addError(prop.Token, "invalid destructuring assignment target")
				return nil
			}
			pp := &PatternProperty{Key: prop.Key}
			value := prop.Value
			if assign, ok := value.(*AssignmentExpression); ok && assign.Operator == "=" {
				pp.Default = assign.Value
				value = assign.Left
			}
			pp.Target = p.toAssignmentPattern(value)
			if pp.Target == nil {
				return nil
			}
			pattern.Properties = append(pattern.Properties, pp)
		}
		return pattern
	case *ArrayPattern, *ObjectPattern:
		return e
	}
	p.addError(expr.GetToken(), "invalid assignment target")
	return nil
}

// --- Expressions ---

func (p *Parser) parseExpression(precedence int) Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		// A ++/-- on the next line starts a new statement.
		if (p.peekTokenIs(lexer.INC) || p.peekTokenIs(lexer.DEC)) && p.peekToken.Line != p.curToken.Line {
			return leftExp
		}
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) parseIdentifier() Expression {
	ident := &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if p.peekTokenIs(lexer.ARROW) {
		param := &Parameter{Token: p.curToken, Name: ident}
		p.nextToken()
		return p.parseArrowFunctionBody(p.curToken, []*Parameter{param}, nil)
	}
	return ident
}

func (p *Parser) parseNumberLiteral() Expression {
	lit := &NumberLiteral{Token: p.curToken}
	text := strings.ReplaceAll(p.curToken.Literal, "_", "")

	if len(text) > 1 && text[0] == '0' && strings.ContainsAny(text[1:2], "xXbBoO") {
		value, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			p.addError(p.curToken, fmt.Sprintf("could not parse %q as number", p.curToken.Literal))
			return nil
		}
		lit.Value = float64(value)
		return lit
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.addError(p.curToken, fmt.Sprintf("could not parse %q as number", p.curToken.Literal))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() Expression {
	return &StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

// parseTemplateLiteral starts on TEMPLATE_START and ends on TEMPLATE_END.
// Adjacent interpolations and interpolations at either end get empty
// strings around them, so text and expressions alternate.
func (p *Parser) parseTemplateLiteral() Expression {
	lit := p.parseTemplate()
	if lit == nil {
		return nil
	}
	return lit
}

func (p *Parser) parseTemplate() *TemplateLiteral {
	lit := &TemplateLiteral{Token: p.curToken}
	expectingString := true
	p.nextToken()

	for !p.curTokenIs(lexer.TEMPLATE_END) {
		switch p.curToken.Type {
		case lexer.TEMPLATE_STRING:
			lit.Strings = append(lit.Strings, p.curToken.Literal)
			expectingString = false
			p.nextToken()

		case lexer.TEMPLATE_INTERPOLATION:
			if expectingString {
				lit.Strings = append(lit.Strings, "")
			}
			p.nextToken()
			expr := p.parseExpression(LOWEST)
			if expr == nil {
				return nil
			}
			lit.Expressions = append(lit.Expressions, expr)
			if !p.expectPeek(lexer.RBRACE) {
				return nil
			}
			p.nextToken()
			expectingString = true

		case lexer.ILLEGAL:
			p.addError(p.curToken, p.curToken.Literal)
			return nil

		default:
			p.addError(p.curToken, "unterminated template literal, expected closing backtick")
			return nil
		}
	}

	if expectingString {
		lit.Strings = append(lit.Strings, "")
	}
	debugPrint("parseTemplate: %d strings, %d expressions", len(lit.Strings), len(lit.Expressions))
	return lit
}

// parseTaggedTemplate parses tag`...`, starting on the backtick.
func (p *Parser) parseTaggedTemplate(tag Expression) Expression {
	expr := &TaggedTemplateExpression{Token: p.curToken, Tag: tag}
	expr.Template = p.parseTemplate()
	if expr.Template == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseBooleanLiteral() Expression {
	return &BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseNullLiteral() Expression {
	return &NullLiteral{Token: p.curToken}
}

func (p *Parser) parseUndefinedLiteral() Expression {
	return &UndefinedLiteral{Token: p.curToken}
}

func (p *Parser) parseThisExpression() Expression {
	return &ThisExpression{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() Expression {
	expr := &PrefixExpression{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	if expr.Right == nil {
		return nil
	}
	return expr
}

func (p *Parser) parsePrefixUpdateExpression() Expression {
	expr := &UpdateExpression{Token: p.curToken, Operator: p.curToken.Literal, Prefix: true}
	p.nextToken()
	expr.Argument = p.parseExpression(PREFIX)
	if expr.Argument == nil {
		return nil
	}
	if !isSimpleTarget(expr.Argument) {
		p.addError(expr.Token, "invalid increment/decrement operand")
		return nil
	}
	return expr
}

func (p *Parser) parsePostfixUpdateExpression(left Expression) Expression {
	if !isSimpleTarget(left) {
		p.addError(p.curToken, "invalid increment/decrement operand")
		return nil
	}
	return &UpdateExpression{Token: p.curToken, Operator: p.curToken.Literal, Argument: left}
}

func isSimpleTarget(e Expression) bool {
	switch e.(type) {
	case *Identifier, *MemberExpression, *IndexExpression:
		return true
	}
	return false
}

// parseGroupedExpression handles `(expr)` and arrow functions with a
// parenthesized parameter list.
func (p *Parser) parseGroupedExpression() Expression {
	if arrow := p.tryParseArrowFunction(); arrow != nil {
		return arrow
	}
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return exp
}

// tryParseArrowFunction speculatively parses `(params): Ret => body` starting
// at '('. It rewinds and returns nil when the tokens do not form an arrow
// function head.
func (p *Parser) tryParseArrowFunction() Expression {
	m := p.mark()
	params, ok := p.parseFunctionParameters()
	if ok {
		var ret Expression
		if p.peekTokenIs(lexer.COLON) {
			p.nextToken()
			p.nextToken()
			ret = p.parseTypeExpression()
		}
		if (ret != nil || !p.curTokenIs(lexer.COLON)) && p.peekTokenIs(lexer.ARROW) && len(p.errors) == m.errors {
			p.nextToken()
			return p.parseArrowFunctionBody(p.curToken, params, ret)
		}
	}
	p.reset(m)
	return nil
}

// parseArrowFunctionBody starts on '=>'.
func (p *Parser) parseArrowFunctionBody(arrow lexer.Token, params []*Parameter, ret Expression) Expression {
	fn := &ArrowFunctionLiteral{Token: arrow, Parameters: params, ReturnTypeAnnotation: ret}
	p.nextToken()
	if p.curTokenIs(lexer.LBRACE) {
		body := p.parseBlockStatement()
		if body == nil {
			return nil
		}
		fn.Body = body
		return fn
	}
	body := p.parseExpression(ASSIGNMENT - 1)
	if body == nil {
		return nil
	}
	fn.Body = body
	return fn
}

// parseFunctionParameters starts on '(' and ends on ')'.
func (p *Parser) parseFunctionParameters() ([]*Parameter, bool) {
	var params []*Parameter
	if !p.curTokenIs(lexer.LPAREN) {
		p.addError(p.curToken, fmt.Sprintf("expected (, got %s instead", p.curToken.Type))
		return nil, false
	}
	for !p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		param := &Parameter{Token: p.curToken}
		if p.curTokenIs(lexer.SPREAD) {
			param.IsRest = true
			p.nextToken()
		}
		if p.curTokenIs(lexer.LBRACKET) || p.curTokenIs(lexer.LBRACE) {
			p.addError(p.curToken, "destructuring parameters are not supported")
			return nil, false
		}
		if !p.curTokenIs(lexer.IDENT) && !lexer.IsContextualKeyword(p.curToken.Type) {
			p.addError(p.curToken, fmt.Sprintf("expected parameter name, got %s instead", p.curToken.Type))
			return nil, false
		}
		param.Name = &Identifier{Token: p.curToken, Value: p.curToken.Literal}
		if p.peekTokenIs(lexer.QUESTION) {
			p.nextToken()
			param.Optional = true
		}
		if p.peekTokenIs(lexer.COLON) {
			p.nextToken()
			p.nextToken()
			param.TypeAnnotation = p.parseTypeExpression()
			if param.TypeAnnotation == nil {
				return nil, false
			}
		}
		if p.peekTokenIs(lexer.ASSIGN) {
			p.nextToken()
			p.nextToken()
			param.DefaultValue = p.parseExpression(LOWEST)
			if param.DefaultValue == nil {
				return nil, false
			}
		}
		params = append(params, param)
		if param.IsRest && !p.peekTokenIs(lexer.RPAREN) {
			p.addError(p.peekToken, "rest parameter must be last")
			return nil, false
		}
		if !p.peekTokenIs(lexer.RPAREN) && !p.expectPeek(lexer.COMMA) {
			return nil, false
		}
	}
	p.nextToken()
	return params, true
}

// parseFunctionLiteral parses `function name?(params): Ret { body }`.
func (p *Parser) parseFunctionLiteral() Expression {
	fn := &FunctionLiteral{Token: p.curToken}
	if p.peekTokenIs(lexer.ASTERISK) {
		p.addError(p.peekToken, "generator functions are not supported")
		return nil
	}
	if p.peekTokenIs(lexer.IDENT) || lexer.IsContextualKeyword(p.peekToken.Type) {
		p.nextToken()
		fn.Name = &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	}
	if p.peekTokenIs(lexer.LT) {
		p.addError(p.peekToken, "generic functions are not supported")
		return nil
	}
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	if !p.parseFunctionRest(fn) {
		return nil
	}
	return fn
}

// parseFunctionRest parses parameters, return type and body starting on '('.
func (p *Parser) parseFunctionRest(fn *FunctionLiteral) bool {
	params, ok := p.parseFunctionParameters()
	if !ok {
		return false
	}
	fn.Parameters = params
	if p.peekTokenIs(lexer.COLON) {
		p.nextToken()
		p.nextToken()
		fn.ReturnTypeAnnotation = p.parseTypeExpression()
		if fn.ReturnTypeAnnotation == nil {
			return false
		}
	}
	if !p.expectPeek(lexer.LBRACE) {
		return false
	}
	fn.Body = p.parseBlockStatement()
	return fn.Body != nil
}

func (p *Parser) parseArrayLiteral() Expression {
	array := &ArrayLiteral{Token: p.curToken}
	for !p.peekTokenIs(lexer.RBRACKET) {
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			array.Elements = append(array.Elements, nil)
			continue
		}
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		array.Elements = append(array.Elements, elem)
		if !p.peekTokenIs(lexer.RBRACKET) && !p.expectPeek(lexer.COMMA) {
			return nil
		}
	}
	p.nextToken()
	return array
}

func (p *Parser) parseObjectLiteral() Expression {
	obj := &ObjectLiteral{Token: p.curToken}
	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		if p.curTokenIs(lexer.SPREAD) {
			p.addError(p.curToken, "object spread is not supported")
			return nil
		}
		keyTok := p.curToken
		key, ok := p.parsePropertyKey()
		if !ok {
			return nil
		}
		prop := &ObjectProperty{Token: keyTok, Key: key}
		switch {
		case p.peekTokenIs(lexer.COLON):
			p.nextToken()
			p.nextToken()
			prop.Value = p.parseExpression(LOWEST)
			if prop.Value == nil {
				return nil
			}
		case p.peekTokenIs(lexer.LPAREN):
			p.nextToken()
			fn := &FunctionLiteral{Token: keyTok, Name: &Identifier{Token: keyTok, Value: key}, IsMethod: true}
			if !p.parseFunctionRest(fn) {
				return nil
			}
			prop.Value = fn
			prop.Method = true
		default:
			if !p.curTokenIs(lexer.IDENT) && !lexer.IsContextualKeyword(p.curToken.Type) {
				p.addError(keyTok, fmt.Sprintf("%q cannot be used as a shorthand property", key))
				return nil
			}
			ident := &Identifier{Token: keyTok, Value: key}
			prop.Shorthand = true
			prop.Value = ident
			if p.peekTokenIs(lexer.ASSIGN) {
				// Only valid once the literal is reinterpreted as a pattern.
				p.nextToken()
				assign := &AssignmentExpression{Token: p.curToken, Operator: "=", Left: ident}
				p.nextToken()
				assign.Value = p.parseExpression(LOWEST)
				if assign.Value == nil {
					return nil
				}
				prop.Value = assign
			}
		}
		obj.Properties = append(obj.Properties, prop)
		if !p.peekTokenIs(lexer.RBRACE) && !p.expectPeek(lexer.COMMA) {
			return nil
		}
	}
	p.nextToken()
	return obj
}

func (p *Parser) parseSpreadElement() Expression {
	spread := &SpreadElement{Token: p.curToken}
	p.nextToken()
	spread.Argument = p.parseExpression(ASSIGNMENT)
	if spread.Argument == nil {
		return nil
	}
	return spread
}

func (p *Parser) parseImportCallExpression() Expression {
	expr := &ImportCallExpression{Token: p.curToken}
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	expr.Argument = p.parseExpression(LOWEST)
	if expr.Argument == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseNewExpression() Expression {
	expr := &NewExpression{Token: p.curToken}
	p.nextToken()
	expr.Callee = p.parseExpression(CALL)
	if expr.Callee == nil {
		return nil
	}
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		args, ok := p.parseCallArguments()
		if !ok {
			return nil
		}
		expr.Arguments = args
	}
	return expr
}

func (p *Parser) parseInfixExpression(left Expression) Expression {
	expr := &InfixExpression{Token: p.curToken, Operator: p.curToken.Literal, Left: left}
	precedence := p.curPrecedence()
	if p.curTokenIs(lexer.EXPONENT) {
		precedence-- // right-associative
	}
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseAssignmentExpression(left Expression) Expression {
	expr := &AssignmentExpression{Token: p.curToken, Operator: p.curToken.Literal}
	if expr.Operator == "=" {
		expr.Left = p.toAssignmentPattern(left)
	} else if isSimpleTarget(left) {
		expr.Left = left
	} else {
		p.addError(p.curToken, "invalid left-hand side in assignment")
	}
	if expr.Left == nil {
		return nil
	}
	p.nextToken()
	expr.Value = p.parseExpression(ASSIGNMENT - 1)
	if expr.Value == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseTernaryExpression(condition Expression) Expression {
	expr := &TernaryExpression{Token: p.curToken, Condition: condition}
	p.nextToken()
	expr.Consequence = p.parseExpression(LOWEST)
	if expr.Consequence == nil || !p.expectPeek(lexer.COLON) {
		return nil
	}
	p.nextToken()
	expr.Alternative = p.parseExpression(ASSIGNMENT - 1)
	if expr.Alternative == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseCallExpression(function Expression) Expression {
	expr := &CallExpression{Token: p.curToken, Function: function}
	args, ok := p.parseCallArguments()
	if !ok {
		return nil
	}
	expr.Arguments = args
	return expr
}

// parseCallArguments starts on '(' and ends on ')'.
func (p *Parser) parseCallArguments() ([]Expression, bool) {
	args := []Expression{}
	for !p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if !p.peekTokenIs(lexer.RPAREN) && !p.expectPeek(lexer.COMMA) {
			return nil, false
		}
	}
	p.nextToken()
	return args, true
}

func (p *Parser) parseMemberExpression(object Expression) Expression {
	expr := &MemberExpression{Token: p.curToken, Object: object}
	if !p.expectPeekIdentifierOrKeyword() {
		return nil
	}
	expr.Property = &Identifier{Token: p.curToken, Value: p.curToken.Literal}
	return expr
}

func (p *Parser) parseIndexExpression(left Expression) Expression {
	expr := &IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)
	if expr.Index == nil || !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return expr
}

func (p *Parser) parseTypeAssertionExpression(left Expression) Expression {
	expr := &TypeAssertionExpression{Token: p.curToken, Expression: left}
	p.nextToken()
	expr.Type = p.parseTypeExpression()
	if expr.Type == nil {
		return nil
	}
	return expr
}

// --- Type expressions ---

// parseTypeExpression parses a type annotation starting at the current
// token: a union of array-suffixed primary types.
func (p *Parser) parseTypeExpression() Expression {
	tok := p.curToken
	if p.curTokenIs(lexer.PIPE) {
		p.nextToken()
	}
	first := p.parseArraySuffixedType()
	if first == nil {
		return nil
	}
	if !p.peekTokenIs(lexer.PIPE) {
		return first
	}
	union := &UnionTypeExpression{Token: tok, Types: []Expression{first}}
	for p.peekTokenIs(lexer.PIPE) {
		p.nextToken()
		p.nextToken()
		member := p.parseArraySuffixedType()
		if member == nil {
			return nil
		}
		union.Types = append(union.Types, member)
	}
	return union
}

func (p *Parser) parseArraySuffixedType() Expression {
	t := p.parsePrimaryType()
	for t != nil && p.peekTokenIs(lexer.LBRACKET) && p.lookAhead(2).Type == lexer.RBRACKET {
		p.nextToken()
		arr := &ArrayTypeExpression{Token: p.curToken, ElementType: t}
		p.nextToken()
		t = arr
	}
	return t
}

func (p *Parser) parsePrimaryType() Expression {
	switch p.curToken.Type {
	case lexer.IDENT, lexer.UNDEFINED, lexer.NULL:
		ref := &TypeReference{Token: p.curToken, Name: p.curToken.Literal}
		for p.peekTokenIs(lexer.DOT) {
			p.nextToken()
			if !p.expectPeek(lexer.IDENT) {
				return nil
			}
			ref.Name += "." + p.curToken.Literal
		}
		if p.peekTokenIs(lexer.LT) {
			p.nextToken()
			for {
				p.nextToken()
				arg := p.parseTypeExpression()
				if arg == nil {
					return nil
				}
				ref.TypeArguments = append(ref.TypeArguments, arg)
				if !p.peekTokenIs(lexer.COMMA) {
					break
				}
				p.nextToken()
			}
			if !p.expectPeekGT() {
				return nil
			}
		}
		return ref
	case lexer.STRING:
		return &TypeReference{Token: p.curToken, Name: "string"}
	case lexer.NUMBER:
		return &TypeReference{Token: p.curToken, Name: "number"}
	case lexer.TRUE, lexer.FALSE:
		return &TypeReference{Token: p.curToken, Name: "boolean"}
	case lexer.LBRACKET:
		return p.parseTupleTypeExpression()
	case lexer.LBRACE:
		return p.parseObjectTypeExpression()
	case lexer.LPAREN:
		if fn := p.tryParseFunctionType(); fn != nil {
			return fn
		}
		p.nextToken()
		inner := p.parseTypeExpression()
		if inner == nil || !p.expectPeek(lexer.RPAREN) {
			return nil
		}
		return inner
	}
	p.addError(p.curToken, fmt.Sprintf("expected type, got %s instead", p.curToken.Type))
	return nil
}

func (p *Parser) tryParseFunctionType() Expression {
	m := p.mark()
	tok := p.curToken
	params, ok := p.parseFunctionParameters()
	if ok && p.peekTokenIs(lexer.ARROW) {
		p.nextToken()
		p.nextToken()
		ret := p.parseTypeExpression()
		if ret != nil {
			return &FunctionTypeExpression{Token: tok, Parameters: params, ReturnType: ret}
		}
	}
	p.reset(m)
	return nil
}

func (p *Parser) parseTupleTypeExpression() Expression {
	tuple := &TupleTypeExpression{Token: p.curToken}
	for !p.peekTokenIs(lexer.RBRACKET) {
		p.nextToken()
		if p.curTokenIs(lexer.SPREAD) {
			p.nextToken()
			tuple.RestType = p.parseTypeExpression()
			if tuple.RestType == nil {
				return nil
			}
			if !p.peekTokenIs(lexer.RBRACKET) {
				p.addError(p.peekToken, "rest element must be last in a tuple type")
				return nil
			}
			break
		}
		elem := p.parseTypeExpression()
		if elem == nil {
			return nil
		}
		tuple.ElementTypes = append(tuple.ElementTypes, elem)
		if !p.peekTokenIs(lexer.RBRACKET) && !p.expectPeek(lexer.COMMA) {
			return nil
		}
	}
	p.nextToken()
	return tuple
}

// parseObjectTypeExpression parses `{ a: A; m(x: X): R }` starting on '{'.
func (p *Parser) parseObjectTypeExpression() Expression {
	obj := &ObjectTypeExpression{Token: p.curToken}
	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		member := &ObjectTypeMember{Token: p.curToken}
		name, ok := p.parsePropertyKey()
		if !ok {
			return nil
		}
		member.Name = name
		if p.peekTokenIs(lexer.QUESTION) {
			p.nextToken()
			member.Optional = true
		}
		switch {
		case p.peekTokenIs(lexer.LPAREN):
			p.nextToken()
			fnTok := p.curToken
			params, ok := p.parseFunctionParameters()
			if !ok {
				return nil
			}
			fnType := &FunctionTypeExpression{Token: fnTok, Parameters: params}
			if p.peekTokenIs(lexer.COLON) {
				p.nextToken()
				p.nextToken()
				fnType.ReturnType = p.parseTypeExpression()
				if fnType.ReturnType == nil {
					return nil
				}
			} else {
				fnType.ReturnType = &TypeReference{Token: fnTok, Name: "any"}
			}
			member.Type = fnType
			member.IsMethod = true
		case p.peekTokenIs(lexer.COLON):
			p.nextToken()
			p.nextToken()
			member.Type = p.parseTypeExpression()
			if member.Type == nil {
				return nil
			}
		default:
			p.peekError(lexer.COLON)
			return nil
		}
		obj.Members = append(obj.Members, member)
		if p.peekTokenIs(lexer.SEMICOLON) || p.peekTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	p.nextToken()
	return obj
}

// --- Helpers ---

func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// expectPeekIdentifierOrKeyword accepts any keyword as a property name.
func (p *Parser) expectPeekIdentifierOrKeyword() bool {
	if p.peekTokenIs(lexer.IDENT) || lexer.IsKeyword(p.peekToken.Type) {
		p.nextToken()
		return true
	}
	p.peekError(lexer.IDENT)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead", t, p.peekToken.Type)
	if p.peekToken.Type == lexer.ILLEGAL {
		msg = p.peekToken.Literal
	}
	p.addError(p.peekToken, msg)
}

func (p *Parser) noPrefixParseFnError(tok lexer.Token) {
	if tok.Type == lexer.ILLEGAL {
		p.addError(tok, tok.Literal)
		return
	}
	p.addError(tok, fmt.Sprintf("no prefix parse function for %s found", tok.Type))
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) addError(tok lexer.Token, msg string) {
	p.errors = append(p.errors, &errors.SyntaxError{
		Position: errors.Position{
			Line:     tok.Line,
			Column:   tok.Column,
			StartPos: tok.StartPos,
			EndPos:   tok.EndPos,
			Source:   p.source,
		},
		Msg: msg,
	})
}
