package parser

import (
	"strconv"
	"strings"
)

// Parser reads one expression body from a template source.
type Parser struct {
	lexer    *Lexer
	curToken Token
	peeked   *Token
	source   string
	base     int
}

func newParser(source string, offset, base int) *Parser {
	return &Parser{
		lexer:  newLexerAt(source, offset),
		source: source,
		base:   base,
	}
}

// ParseTemplate splits src into literal text and ${...} expressions.
// A source without "${" parses to a single literal equal to src.
// "$${" is an escape for a literal "${".
func ParseTemplate(src string) (*Template, error) {
	return parseTemplate(src, 0)
}

// ParseExpression parses a single expression, either bare ("md5($password)")
// or wrapped ("${md5($password)}").
func ParseExpression(src string) (Node, error) {
	trimmed := strings.TrimSpace(src)
	if strings.HasPrefix(trimmed, "${") {
		tmpl, err := ParseTemplate(trimmed)
		if err != nil {
			return nil, err
		}
		if !tmpl.IsSingle() {
			return nil, newSyntaxError(src, 0, "expected a single ${...} expression")
		}
		return tmpl.Expression(), nil
	}

	p := newParser(src, 0, 0)
	p.nextToken()
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.nextToken()
	if p.curToken.Type != TokenEOF {
		return nil, p.errorf(p.curToken.Offset, "unexpected trailing input")
	}
	return node, nil
}

func parseTemplate(src string, base int) (*Template, error) {
	t := &Template{Source: src, Offset: base}

	var text strings.Builder
	textStart := 0
	flush := func() {
		if text.Len() > 0 {
			t.Segments = append(t.Segments, &Literal{Value: text.String(), Offset: base + textStart})
			text.Reset()
		}
	}

	i := 0
	for i < len(src) {
		if src[i] == '$' && i+2 < len(src) && src[i+1] == '$' && src[i+2] == '{' {
			if text.Len() == 0 {
				textStart = i
			}
			text.WriteString("${")
			i += 3
			continue
		}
		if src[i] == '$' && i+1 < len(src) && src[i+1] == '{' {
			flush()
			node, end, err := parseEmbedded(src, i, base)
			if err != nil {
				return nil, err
			}
			t.Segments = append(t.Segments, node)
			i = end
			continue
		}
		if text.Len() == 0 {
			textStart = i
		}
		text.WriteByte(src[i])
		i++
	}
	flush()

	return t, nil
}

// parseEmbedded parses the ${...} starting at start and returns the offset
// just past its closing brace.
func parseEmbedded(src string, start, base int) (Node, int, error) {
	p := newParser(src, start+2, base)
	p.nextToken()
	if p.curToken.Type == TokenEOF {
		return nil, 0, p.errorf(start, "unterminated expression, missing '}'")
	}

	node, err := p.parseExpression()
	if err != nil {
		return nil, 0, err
	}

	p.nextToken()
	switch p.curToken.Type {
	case TokenRightBrace:
		return node, p.curToken.End, nil
	case TokenEOF:
		return nil, 0, p.errorf(start, "unterminated expression, missing '}'")
	default:
		return nil, 0, p.unexpected("'}'")
	}
}

func (p *Parser) nextToken() {
	if p.peeked != nil {
		p.curToken = *p.peeked
		p.peeked = nil
		return
	}
	p.curToken = p.lexer.NextToken()
}

func (p *Parser) peekToken() Token {
	if p.peeked == nil {
		tok := p.lexer.NextToken()
		p.peeked = &tok
	}
	return *p.peeked
}

func (p *Parser) parseExpression() (Node, error) {
	switch p.curToken.Type {
	case TokenDollar:
		start := p.curToken.Offset
		p.nextToken()
		if p.curToken.Type != TokenIdent {
			return nil, p.errorf(p.curToken.Offset, "expected variable name after '$'")
		}
		return p.parseRef(start)
	case TokenIdent:
		if p.peekToken().Type == TokenLeftParen {
			return p.parseCall()
		}
		return p.parseRef(p.curToken.Offset)
	case TokenRightBrace:
		return nil, p.errorf(p.curToken.Offset, "empty expression")
	case TokenIllegal:
		return nil, p.illegal()
	default:
		return nil, p.errorf(p.curToken.Offset, "expected function call or variable reference, got %s", p.curToken.Type)
	}
}

func (p *Parser) parseRef(start int) (Node, error) {
	name := p.curToken.Value
	if !isIdentifier(name) {
		return nil, p.errorf(p.curToken.Offset, "malformed identifier %q", name)
	}

	ref := &VarRef{Path: []string{name}, Offset: p.base + start}
	for {
		switch p.peekToken().Type {
		case TokenDot:
			p.nextToken()
			p.nextToken()
			if p.curToken.Type != TokenIdent {
				return nil, p.errorf(p.curToken.Offset, "expected field name after '.'")
			}
			ref.Path = append(ref.Path, p.curToken.Value)
		case TokenLeftBracket:
			p.nextToken()
			p.nextToken()
			switch p.curToken.Type {
			case TokenNumber:
				idx, err := strconv.Atoi(p.curToken.Value)
				if err != nil || idx < 0 {
					return nil, p.errorf(p.curToken.Offset, "invalid index %q", p.curToken.Value)
				}
				ref.Path = append(ref.Path, p.curToken.Value)
			case TokenString:
				ref.Path = append(ref.Path, p.curToken.Value)
			default:
				return nil, p.errorf(p.curToken.Offset, "expected index or quoted key inside '[]'")
			}
			p.nextToken()
			if p.curToken.Type != TokenRightBracket {
				return nil, p.unexpected("']'")
			}
		default:
			return ref, nil
		}
	}
}

func (p *Parser) parseCall() (Node, error) {
	call := &Call{Name: p.curToken.Value, Offset: p.base + p.curToken.Offset}
	if !isIdentifier(call.Name) {
		return nil, p.errorf(p.curToken.Offset, "malformed function name %q", call.Name)
	}
	start := p.curToken.Offset

	p.nextToken() // (
	if p.peekToken().Type == TokenRightParen {
		p.nextToken()
		return call, nil
	}

	seen := make(map[string]bool)
	for {
		p.nextToken()
		if p.curToken.Type == TokenIdent && p.peekToken().Type == TokenEquals {
			name := p.curToken.Value
			if !isIdentifier(name) {
				return nil, p.errorf(p.curToken.Offset, "malformed keyword argument %q", name)
			}
			if seen[name] {
				return nil, p.errorf(p.curToken.Offset, "duplicate keyword argument %q", name)
			}
			seen[name] = true

			p.nextToken() // =
			p.nextToken()
			value, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			call.Kwargs = append(call.Kwargs, &Kwarg{Name: name, Value: value})
		} else {
			if len(call.Kwargs) > 0 {
				return nil, p.errorf(p.curToken.Offset, "positional argument follows keyword argument")
			}
			value, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, value)
		}

		p.nextToken()
		switch p.curToken.Type {
		case TokenComma:
			if p.peekToken().Type == TokenRightParen {
				p.nextToken()
				return call, nil
			}
		case TokenRightParen:
			return call, nil
		case TokenEOF:
			return nil, p.errorf(start, "unterminated call to %s, missing ')'", call.Name)
		default:
			return nil, p.unexpected("',' or ')'")
		}
	}
}

func (p *Parser) parseValue() (Node, error) {
	tok := p.curToken
	switch tok.Type {
	case TokenString:
		if strings.Contains(tok.Value, "${") {
			return parseTemplate(tok.Value, p.base+tok.Offset+1)
		}
		return &Literal{Value: tok.Value, Offset: p.base + tok.Offset}, nil
	case TokenNumber:
		return p.parseNumber()
	case TokenIdent:
		switch tok.Value {
		case "true", "True":
			return &Literal{Value: true, Offset: p.base + tok.Offset}, nil
		case "false", "False":
			return &Literal{Value: false, Offset: p.base + tok.Offset}, nil
		case "null", "None", "nil":
			return &Literal{Value: nil, Offset: p.base + tok.Offset}, nil
		}
		if p.peekToken().Type == TokenLeftParen {
			return p.parseCall()
		}
		return nil, p.errorf(tok.Offset, "unexpected identifier %q, variable references need a leading '$'", tok.Value)
	case TokenDollar:
		p.nextToken()
		if p.curToken.Type != TokenIdent {
			return nil, p.errorf(p.curToken.Offset, "expected variable name after '$'")
		}
		return p.parseRef(tok.Offset)
	case TokenDollarBrace:
		p.nextToken()
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.nextToken()
		if p.curToken.Type != TokenRightBrace {
			return nil, p.unexpected("'}'")
		}
		return node, nil
	case TokenIllegal:
		return nil, p.illegal()
	case TokenEOF:
		return nil, p.errorf(tok.Offset, "unexpected end of input, expected a value")
	default:
		return nil, p.errorf(tok.Offset, "expected a value, got %s", tok.Type)
	}
}

func (p *Parser) parseNumber() (Node, error) {
	tok := p.curToken
	if strings.ContainsAny(tok.Value, ".eE") {
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf(tok.Offset, "invalid number %q", tok.Value)
		}
		return &Literal{Value: f, Offset: p.base + tok.Offset}, nil
	}
	n, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, p.errorf(tok.Offset, "invalid number %q", tok.Value)
	}
	return &Literal{Value: n, Offset: p.base + tok.Offset}, nil
}

func (p *Parser) errorf(offset int, format string, args ...any) *SyntaxError {
	err := newSyntaxError(p.source, offset, format, args...)
	err.Offset += p.base
	return err
}

func (p *Parser) illegal() *SyntaxError {
	return p.errorf(p.curToken.Offset, "%s", p.curToken.Value)
}

func (p *Parser) unexpected(want string) *SyntaxError {
	switch p.curToken.Type {
	case TokenEOF:
		return p.errorf(p.curToken.Offset, "unexpected end of input, expected %s", want)
	case TokenIllegal:
		return p.illegal()
	default:
		return p.errorf(p.curToken.Offset, "expected %s, got %s", want, p.curToken.Type)
	}
}
