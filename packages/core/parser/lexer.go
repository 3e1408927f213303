package parser

import (
	"strings"
)

// TokenType identifies the kind of a Token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal
	TokenIdent
	TokenNumber
	TokenString
	TokenDollar
	TokenDollarBrace
	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
	TokenRightBrace
	TokenComma
	TokenDot
	TokenEquals
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of input"
	case TokenIllegal:
		return "illegal"
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenDollar:
		return "'$'"
	case TokenDollarBrace:
		return "'${'"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenLeftBracket:
		return "'['"
	case TokenRightBracket:
		return "']'"
	case TokenRightBrace:
		return "'}'"
	case TokenComma:
		return "','"
	case TokenDot:
		return "'.'"
	case TokenEquals:
		return "'='"
	default:
		return "unknown"
	}
}

// Token is a lexical unit of an expression body. For strings Value holds the
// decoded contents; for illegal tokens it holds the reason.
type Token struct {
	Type   TokenType
	Value  string
	Offset int
	End    int
}

// Lexer scans the body of a ${...} expression. It starts at an arbitrary
// offset of the template source and stops wherever the parser stops asking.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	prev    TokenType
}

// NewLexer returns a Lexer over the contents of a ${...} expression.
func NewLexer(input string) *Lexer {
	return newLexerAt(input, 0)
}

func newLexerAt(input string, offset int) *Lexer {
	l := &Lexer{
		input:   input,
		readPos: offset,
		prev:    TokenIllegal,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
	} else {
		l.ch = l.input[l.readPos]
		l.pos = l.readPos
	}
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

// NextToken scans the next token. It returns TokenEOF at end of input.
func (l *Lexer) NextToken() Token {
	tok := l.nextToken()
	l.prev = tok.Type
	return tok
}

func (l *Lexer) nextToken() Token {
	l.skipWhitespace()

	start := l.pos
	single := func(t TokenType) Token {
		l.readChar()
		return Token{Type: t, Value: l.input[start:l.pos], Offset: start, End: l.pos}
	}

	if l.atEnd() {
		return Token{Type: TokenEOF, Offset: start, End: start}
	}

	// Path segments after a dot may be numeric or contain dashes (header names).
	if l.prev == TokenDot && isSegmentChar(l.ch) {
		return l.readSegment()
	}

	switch l.ch {
	case '$':
		if l.peekChar() == '{' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenDollarBrace, Value: "${", Offset: start, End: l.pos}
		}
		return single(TokenDollar)
	case '(':
		return single(TokenLeftParen)
	case ')':
		return single(TokenRightParen)
	case '[':
		return single(TokenLeftBracket)
	case ']':
		return single(TokenRightBracket)
	case '}':
		return single(TokenRightBrace)
	case ',':
		return single(TokenComma)
	case '.':
		return single(TokenDot)
	case '=':
		return single(TokenEquals)
	case '"', '\'':
		return l.readString(l.ch)
	}

	if isLetter(l.ch) {
		return l.readIdentifier()
	}
	if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
		return l.readNumber()
	}

	l.readChar()
	return Token{Type: TokenIllegal, Value: "unexpected character " + quoteChar(l.input[start]), Offset: start, End: l.pos}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() Token {
	start := l.pos
	// Dashes are kept so the parser can reject them with a precise message.
	for isSegmentChar(l.ch) {
		l.readChar()
	}
	return Token{Type: TokenIdent, Value: l.input[start:l.pos], Offset: start, End: l.pos}
}

func (l *Lexer) readSegment() Token {
	start := l.pos
	for isSegmentChar(l.ch) {
		l.readChar()
	}
	return Token{Type: TokenIdent, Value: l.input[start:l.pos], Offset: start, End: l.pos}
}

func (l *Lexer) readNumber() Token {
	start := l.pos
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '-' || next == '+' {
			l.readChar()
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return Token{Type: TokenNumber, Value: l.input[start:l.pos], Offset: start, End: l.pos}
}

func (l *Lexer) readString(quote byte) Token {
	start := l.pos
	l.readChar()

	var sb strings.Builder
	for {
		switch {
		case l.atEnd():
			return Token{Type: TokenIllegal, Value: "unterminated string", Offset: start, End: l.pos}
		case l.ch == quote:
			l.readChar()
			return Token{Type: TokenString, Value: sb.String(), Offset: start, End: l.pos}
		case l.ch == '\\':
			l.readChar()
			if l.atEnd() {
				return Token{Type: TokenIllegal, Value: "unterminated string", Offset: start, End: l.pos}
			}
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(l.ch)
			}
			l.readChar()
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isSegmentChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '-'
}

// isIdentifier reports whether s is a valid function or variable name.
func isIdentifier(s string) bool {
	if s == "" || !isLetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isLetter(s[i]) && !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func quoteChar(ch byte) string {
	return "'" + string(ch) + "'"
}
