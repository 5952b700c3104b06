package index

import "fmt"

// Parser compiles the convenience infix DSL into the query AST by
// recursive descent (parseOr -> parseAnd -> parseNot -> parseComparison),
// emitting Term/Wildcard/Range nodes from a single comparison operator
// set.
type Parser struct {
	lexer *Lexer
	cur   Token
}

// Parse compiles a convenience query string into an AST node.
func Parse(input string) (Node, error) {
	p := &Parser{lexer: NewLexer(input)}
	p.advance()
	if p.cur.Type == TokenEOF {
		return MatchAll(), nil
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, fmt.Errorf("index: unexpected token %s at position %d", p.cur.Type, p.cur.Pos)
	}
	return Normalize(node), nil
}

func (p *Parser) advance() { p.cur = p.lexer.Next() }

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	nodes := []Node{left}
	for p.cur.Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, right)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return Or(nodes...), nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	nodes := []Node{left}
	for p.cur.Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, right)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return And(nodes...), nil
}

func (p *Parser) parseNot() (Node, error) {
	if p.cur.Type == TokenNot {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not(inner), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, error) {
	if p.cur.Type == TokenLParen {
		p.advance()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, fmt.Errorf("index: expected ')' at position %d", p.cur.Pos)
		}
		p.advance()
		return node, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Node, error) {
	if p.cur.Type != TokenIdent {
		return nil, fmt.Errorf("index: expected field name at position %d, got %s", p.cur.Pos, p.cur.Type)
	}
	field := p.cur.Value
	p.advance()

	op := p.cur.Type
	switch op {
	case TokenEquals, TokenNotEquals, TokenLess, TokenLessEq, TokenGreater, TokenGreaterEq:
		p.advance()
	default:
		return nil, fmt.Errorf("index: expected comparison operator for field %q at position %d", field, p.cur.Pos)
	}

	if p.cur.Type != TokenIdent && p.cur.Type != TokenString && p.cur.Type != TokenNumber {
		return nil, fmt.Errorf("index: expected value for field %q at position %d", field, p.cur.Pos)
	}
	val := p.cur.Value
	p.advance()

	switch op {
	case TokenEquals:
		if containsGlob(val) {
			return Wildcard(field, val), nil
		}
		return Term(field, val), nil
	case TokenNotEquals:
		return Not(Term(field, val)), nil
	case TokenLess:
		return typedRange(field, nil, strPtr(val), false, false), nil
	case TokenLessEq:
		return typedRange(field, nil, strPtr(val), false, true), nil
	case TokenGreater:
		return typedRange(field, strPtr(val), nil, false, false), nil
	case TokenGreaterEq:
		return typedRange(field, strPtr(val), nil, true, false), nil
	default:
		return nil, fmt.Errorf("index: unhandled operator %s", op)
	}
}
