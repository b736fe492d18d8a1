package lexer

import (
	"strings"

	"github.com/nooga/tslua/pkg/source"
)

// TokenType represents the type of a token.
type TokenType string

// Token represents a lexical token.
type Token struct {
	Type     TokenType
	Literal  string // The actual text of the token (lexeme), unescaped for strings
	Line     int    // 1-based line number where the token starts
	Column   int    // 1-based column number where the token starts
	StartPos int    // 0-based byte offset where the token starts
	EndPos   int    // 0-based byte offset after the token ends
}

// --- Token Types ---
const (
	// Special
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers + Literals
	IDENT     TokenType = "IDENT"
	NUMBER    TokenType = "NUMBER"
	STRING    TokenType = "STRING"
	NULL      TokenType = "NULL"
	UNDEFINED TokenType = "UNDEFINED"

	// Template literals: TEMPLATE_START, then TEMPLATE_STRING and
	// TEMPLATE_INTERPOLATION <expression tokens> RBRACE in any order, then
	// TEMPLATE_END.
	TEMPLATE_START         TokenType = "TEMPLATE_START"
	TEMPLATE_STRING        TokenType = "TEMPLATE_STRING"
	TEMPLATE_INTERPOLATION TokenType = "${"
	TEMPLATE_END           TokenType = "TEMPLATE_END"

	// Operators
	ASSIGN      TokenType = "="
	PLUS        TokenType = "+"
	MINUS       TokenType = "-"
	BANG        TokenType = "!"
	ASTERISK    TokenType = "*"
	SLASH       TokenType = "/"
	PERCENT     TokenType = "%"
	EXPONENT    TokenType = "**"
	LT          TokenType = "<"
	GT          TokenType = ">"
	EQ          TokenType = "=="
	NOT_EQ      TokenType = "!="
	LE          TokenType = "<="
	GE          TokenType = ">="
	DOT         TokenType = "."
	SPREAD      TokenType = "..."
	BITWISE_AND TokenType = "&"
	PIPE        TokenType = "|" // bitwise or, and union in types
	BITWISE_XOR TokenType = "^"
	BITWISE_NOT TokenType = "~"

	LEFT_SHIFT           TokenType = "<<"
	RIGHT_SHIFT          TokenType = ">>"
	UNSIGNED_RIGHT_SHIFT TokenType = ">>>"

	// Compound Assignment
	PLUS_ASSIGN                 TokenType = "+="
	MINUS_ASSIGN                TokenType = "-="
	ASTERISK_ASSIGN             TokenType = "*="
	SLASH_ASSIGN                TokenType = "/="
	PERCENT_ASSIGN              TokenType = "%="
	EXPONENT_ASSIGN             TokenType = "**="
	BITWISE_AND_ASSIGN          TokenType = "&="
	BITWISE_OR_ASSIGN           TokenType = "|="
	BITWISE_XOR_ASSIGN          TokenType = "^="
	LEFT_SHIFT_ASSIGN           TokenType = "<<="
	RIGHT_SHIFT_ASSIGN          TokenType = ">>="
	UNSIGNED_RIGHT_SHIFT_ASSIGN TokenType = ">>>="
	LOGICAL_AND_ASSIGN          TokenType = "&&="
	LOGICAL_OR_ASSIGN           TokenType = "||="
	COALESCE_ASSIGN             TokenType = "??="

	// Increment/Decrement
	INC TokenType = "++"
	DEC TokenType = "--"

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	COLON     TokenType = ":"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"
	ARROW     TokenType = "=>"

	// Keywords
	FUNCTION   TokenType = "FUNCTION"
	LET        TokenType = "LET"
	CONST      TokenType = "CONST"
	VAR        TokenType = "VAR"
	TRUE       TokenType = "TRUE"
	FALSE      TokenType = "FALSE"
	IF         TokenType = "IF"
	ELSE       TokenType = "ELSE"
	RETURN     TokenType = "RETURN"
	WHILE      TokenType = "WHILE"
	DO         TokenType = "DO"
	FOR        TokenType = "FOR"
	OF         TokenType = "OF"
	IN         TokenType = "IN"
	BREAK      TokenType = "BREAK"
	CONTINUE   TokenType = "CONTINUE"
	TYPE       TokenType = "TYPE"
	INTERFACE  TokenType = "INTERFACE"
	SWITCH     TokenType = "SWITCH"
	CASE       TokenType = "CASE"
	DEFAULT    TokenType = "DEFAULT"
	EXPORT     TokenType = "EXPORT"
	IMPORT     TokenType = "IMPORT"
	NAMESPACE  TokenType = "NAMESPACE"
	TYPEOF     TokenType = "TYPEOF"
	INSTANCEOF TokenType = "INSTANCEOF"
	AS         TokenType = "AS"
	THIS       TokenType = "THIS"
	THROW      TokenType = "THROW"
	NEW        TokenType = "NEW"
	CLASS      TokenType = "CLASS"

	// Logical Operators
	LOGICAL_AND TokenType = "&&"
	LOGICAL_OR  TokenType = "||"
	COALESCE    TokenType = "??"

	STRICT_EQ     TokenType = "==="
	STRICT_NOT_EQ TokenType = "!=="

	QUESTION TokenType = "?"
)

var keywords = map[string]TokenType{
	"function":   FUNCTION,
	"let":        LET,
	"const":      CONST,
	"var":        VAR,
	"true":       TRUE,
	"false":      FALSE,
	"if":         IF,
	"else":       ELSE,
	"return":     RETURN,
	"null":       NULL,
	"undefined":  UNDEFINED,
	"while":      WHILE,
	"do":         DO,
	"for":        FOR,
	"of":         OF,
	"in":         IN,
	"break":      BREAK,
	"continue":   CONTINUE,
	"type":       TYPE,
	"interface":  INTERFACE,
	"switch":     SWITCH,
	"case":       CASE,
	"default":    DEFAULT,
	"export":     EXPORT,
	"import":     IMPORT,
	"namespace":  NAMESPACE,
	"typeof":     TYPEOF,
	"instanceof": INSTANCEOF,
	"as":         AS,
	"this":       THIS,
	"throw":      THROW,
	"new":        NEW,
	"class":      CLASS,
}

// contextualKeywords can also be used as plain identifiers.
var contextualKeywords = map[TokenType]bool{
	OF: true, TYPE: true, AS: true, NAMESPACE: true, INTERFACE: true,
}

// LookupIdent checks the keywords table for an identifier.
func LookupIdent(ident string) TokenType {
	if tokType, ok := keywords[ident]; ok {
		return tokType
	}
	return IDENT
}

// IsContextualKeyword reports whether t may appear where an identifier is expected.
func IsContextualKeyword(t TokenType) bool {
	return contextualKeywords[t]
}

// IsKeyword reports whether t is any keyword token. Keywords are valid
// property names after a dot and as object literal keys.
func IsKeyword(t TokenType) bool {
	for _, kw := range keywords {
		if kw == t {
			return true
		}
	}
	return false
}

// operators is ordered longest first so that scanning picks the longest match.
var operators = []TokenType{
	UNSIGNED_RIGHT_SHIFT_ASSIGN,
	STRICT_EQ, STRICT_NOT_EQ, EXPONENT_ASSIGN, LEFT_SHIFT_ASSIGN, RIGHT_SHIFT_ASSIGN,
	UNSIGNED_RIGHT_SHIFT, LOGICAL_AND_ASSIGN, LOGICAL_OR_ASSIGN, COALESCE_ASSIGN, SPREAD,
	EQ, NOT_EQ, LE, GE, ARROW, EXPONENT, LEFT_SHIFT, RIGHT_SHIFT,
	PLUS_ASSIGN, MINUS_ASSIGN, ASTERISK_ASSIGN, SLASH_ASSIGN, PERCENT_ASSIGN,
	BITWISE_AND_ASSIGN, BITWISE_OR_ASSIGN, BITWISE_XOR_ASSIGN,
	LOGICAL_AND, LOGICAL_OR, COALESCE, INC, DEC,
	ASSIGN, PLUS, MINUS, BANG, ASTERISK, SLASH, PERCENT, LT, GT, DOT,
	BITWISE_AND, PIPE, BITWISE_XOR, BITWISE_NOT, QUESTION,
	COMMA, SEMICOLON, COLON, LPAREN, RPAREN, LBRACE, RBRACE, LBRACKET, RBRACKET,
}

// Lexer holds the state of the scanner.
type Lexer struct {
	input        string
	source       *source.SourceFile
	position     int  // current position in input (points to current char's byte offset)
	readPosition int  // current reading position in input (byte offset after current char)
	ch           byte // current char under examination
	line         int  // current 1-based line number
	column       int  // current 1-based column number

	braceDepth   int   // open `{` outside template text
	templates    []int // braceDepth at each open `${`
	templateText bool  // the next token is template text or its closing backtick
}

// NewLexer creates a new Lexer over a bare string.
func NewLexer(input string) *Lexer {
	return NewLexerWithSource(source.NewEvalSource(input))
}

// NewLexerWithSource creates a new Lexer that remembers its source file for
// error positions.
func NewLexerWithSource(src *source.SourceFile) *Lexer {
	l := &Lexer{input: src.Content, source: src, line: 1}
	l.readChar()
	return l
}

// Source returns the source file being scanned.
func (l *Lexer) Source() *source.SourceFile {
	return l.source
}

// readChar gives us the next character and advances our position in the input string.
// It also updates the line and column count.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar looks ahead in the input without consuming the character.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespace consumes whitespace and comments. It returns false when a
// block comment is left unterminated.
func (l *Lexer) skipWhitespace() bool {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			if !l.skipMultilineComment() {
				return false
			}
		default:
			return true
		}
	}
}

// NextToken scans the input and returns the next token.
func (l *Lexer) NextToken() Token {
	if l.templateText {
		return l.readTemplateText()
	}
	startLine, startCol, startPos := l.line, l.column, l.position
	if !l.skipWhitespace() {
		return Token{Type: ILLEGAL, Literal: "unterminated multiline comment", Line: startLine, Column: startCol, StartPos: startPos, EndPos: l.position}
	}

	// Capture token start position *after* skipping whitespace
	startLine, startCol, startPos = l.line, l.column, l.position
	tok := Token{Line: startLine, Column: startCol, StartPos: startPos}

	switch {
	case l.ch == 0:
		tok.Type = EOF
		tok.EndPos = startPos
		return tok
	case l.ch == '"' || l.ch == '\'':
		literal, ok := l.readString(l.ch)
		tok.EndPos = l.position
		if !ok {
			tok.Type = ILLEGAL
			tok.Literal = "invalid string literal"
			return tok
		}
		tok.Type = STRING
		tok.Literal = literal
		return tok
	case l.ch == '`':
		l.readChar()
		l.templateText = true
		tok.Type = TEMPLATE_START
		tok.Literal = "`"
		tok.EndPos = l.position
		return tok
	case isLetter(l.ch):
		tok.Literal = l.readIdentifier()
		tok.Type = LookupIdent(tok.Literal)
		tok.EndPos = l.position
		return tok
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		tok.Literal = l.readNumber()
		tok.Type = NUMBER
		tok.EndPos = l.position
		return tok
	}

	rest := l.input[l.position:]
	for _, op := range operators {
		if strings.HasPrefix(rest, string(op)) {
			for i := 0; i < len(op); i++ {
				l.readChar()
			}
			tok.Type = op
			tok.Literal = string(op)
			tok.EndPos = l.position
			l.trackBraces(op)
			return tok
		}
	}

	// Illegal character
	tok.Type = ILLEGAL
	tok.Literal = string(l.ch)
	l.readChar()
	tok.EndPos = l.position
	return tok
}

// trackBraces keeps count of open braces so the `}` closing an
// interpolation switches back to template text.
func (l *Lexer) trackBraces(op TokenType) {
	switch op {
	case LBRACE:
		l.braceDepth++
	case RBRACE:
		if n := len(l.templates); n > 0 && l.templates[n-1] == l.braceDepth {
			l.templates = l.templates[:n-1]
			l.templateText = true
			return
		}
		l.braceDepth--
	}
}

// readTemplateText scans template text up to the next `${` or closing
// backtick. Text tokens carry the cooked value; the delimiters are returned
// as their own tokens.
func (l *Lexer) readTemplateText() Token {
	tok := Token{Line: l.line, Column: l.column, StartPos: l.position}
	switch {
	case l.ch == '`':
		l.readChar()
		l.templateText = false
		tok.Type = TEMPLATE_END
		tok.Literal = "`"
		tok.EndPos = l.position
		return tok
	case l.ch == '$' && l.peekChar() == '{':
		l.readChar()
		l.readChar()
		l.templateText = false
		l.templates = append(l.templates, l.braceDepth)
		tok.Type = TEMPLATE_INTERPOLATION
		tok.Literal = "${"
		tok.EndPos = l.position
		return tok
	}

	var builder strings.Builder
	badEscape := false
	for {
		switch {
		case l.ch == 0:
			l.templateText = false
			tok.Type = ILLEGAL
			tok.Literal = "unterminated template literal"
			tok.EndPos = l.position
			return tok
		case l.ch == '`', l.ch == '$' && l.peekChar() == '{':
			tok.Type = TEMPLATE_STRING
			tok.Literal = builder.String()
			if badEscape {
				tok.Type = ILLEGAL
				tok.Literal = "invalid escape in template literal"
			}
			tok.EndPos = l.position
			return tok
		case l.ch == '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				builder.WriteByte('\n')
			case 't':
				builder.WriteByte('\t')
			case 'r':
				builder.WriteByte('\r')
			case '0':
				builder.WriteByte(0)
			case '\\', '\'', '"', '`', '$':
				builder.WriteByte(l.ch)
			case '\n':
				// Line continuation.
			case 0:
				continue
			default:
				badEscape = true
			}
		case l.ch == '\r':
			// Raw line breaks are normalized to \n.
			builder.WriteByte('\n')
			if l.peekChar() == '\n' {
				l.readChar()
			}
		default:
			builder.WriteByte(l.ch)
		}
		l.readChar()
	}
}

// readIdentifier reads an identifier (letters, digits, _, $) and advances the lexer's position.
func (l *Lexer) readIdentifier() string {
	startPos := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[startPos:l.position]
}

// readNumber reads a number literal: decimal with optional fraction and
// exponent, or hex/binary/octal with a prefix. Numeric separators are kept in
// the literal; the parser strips them.
func (l *Lexer) readNumber() string {
	startPos := l.position
	base := 10

	if l.ch == '0' {
		switch l.peekChar() {
		case 'x', 'X':
			base = 16
		case 'b', 'B':
			base = 2
		case 'o', 'O':
			base = 8
		}
		if base != 10 {
			l.readChar()
			l.readChar()
		}
	}

	for isDigitForBase(l.ch, base) || (l.ch == '_' && isDigitForBase(l.peekChar(), base)) {
		l.readChar()
	}
	if base != 10 {
		return l.input[startPos:l.position]
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) || (l.ch == '_' && isDigit(l.peekChar())) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	return l.input[startPos:l.position]
}

// readString reads a string literal enclosed in the given quote character.
// Returns the unescaped content and whether the literal was well formed.
// Advances the lexer's position to *after* the closing quote if successful.
func (l *Lexer) readString(quote byte) (string, bool) {
	var builder strings.Builder
	l.readChar() // opening quote

	for {
		if l.ch == quote {
			l.readChar()
			return builder.String(), true
		}
		if l.ch == 0 || l.ch == '\n' || l.ch == '\r' {
			return "", false
		}

		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				builder.WriteByte('\n')
			case 't':
				builder.WriteByte('\t')
			case 'r':
				builder.WriteByte('\r')
			case '0':
				builder.WriteByte(0)
			case '\\', '\'', '"':
				builder.WriteByte(l.ch)
			default:
				return "", false
			}
		} else {
			builder.WriteByte(l.ch)
		}
		l.readChar()
	}
}

// skipMultilineComment consumes a /* ... */ comment.
// Returns false when EOF is reached first.
func (l *Lexer) skipMultilineComment() bool {
	l.readChar() // '/'
	l.readChar() // '*'
	for {
		if l.ch == 0 {
			return false
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return true
		}
		l.readChar()
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isDigitForBase(ch byte, base int) bool {
	switch base {
	case 16:
		return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
	case 10:
		return isDigit(ch)
	case 8:
		return '0' <= ch && ch <= '7'
	case 2:
		return ch == '0' || ch == '1'
	default:
		return false
	}
}
