// Package parser builds a term.Term from Lambo source using a
// binding-power (Pratt) parser. The pipe operator's binding power and
// its argument-swapping desugaring follow the reference parser this
// language was distilled from; let/with...in desugaring to
// App(Lambda(body), value) and n-ary lambda sugar are additions.
package parser

import (
	"fmt"

	"github.com/eug-vs/lambo/internal/lexer"
	"github.com/eug-vs/lambo/internal/primitive"
	"github.com/eug-vs/lambo/internal/term"
)

type parser struct {
	lex *lexer.Lexer
	cur lexer.Token
	ctx []string
}

// Parse tokenizes and parses src into a Term with every variable
// reference resolved to a de Bruijn depth.
func Parse(src string) (term.Term, error) {
	p := &parser{lex: lexer.New(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	t, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != lexer.EOF {
		return nil, fmt.Errorf("parser: unexpected trailing input")
	}
	return t, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func isIn(t lexer.Token) bool {
	return t.Kind == lexer.Ident && t.Text == "in"
}

func bindingPower(k lexer.Kind) (int, int) {
	if k == lexer.Pipe {
		return 10, 11
	}
	return 100, 101
}

func (p *parser) parseExpr(minBP int) (term.Term, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if p.cur.Kind == lexer.EOF || p.cur.Kind == lexer.RParen || isIn(p.cur) {
			break
		}
		lbp, rbp := bindingPower(p.cur.Kind)
		if lbp < minBP {
			break
		}
		isPipe := p.cur.Kind == lexer.Pipe
		if isPipe {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		rhs, err := p.parseExpr(rbp)
		if err != nil {
			return nil, err
		}
		if isPipe {
			// a | f parses as App(f, a): the pipe swaps sides.
			lhs = term.App{Fun: rhs, Arg: lhs}
		} else {
			lhs = term.App{Fun: lhs, Arg: rhs}
		}
	}
	return lhs, nil
}

func (p *parser) parsePrimary() (term.Term, error) {
	tok := p.cur
	switch tok.Kind {
	case lexer.Number:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return term.Num{Value: tok.Num}, nil

	case lexer.Str:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return term.Bytes{Value: []byte(tok.Text)}, nil

	case lexer.Lambda:
		return p.parseLambda()

	case lexer.LParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.cur.Kind != lexer.RParen {
			return nil, fmt.Errorf("parser: expected ')'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil

	case lexer.Ident:
		switch tok.Text {
		case "let", "with":
			return p.parseLetOrWith()
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		for i := len(p.ctx) - 1; i >= 0; i-- {
			if p.ctx[i] == tok.Text {
				return term.Var{Depth: uint32(len(p.ctx) - i)}, nil
			}
		}
		if id, ok := primitive.ByName[tok.Text]; ok {
			return term.Prim{ID: id}, nil
		}
		return nil, fmt.Errorf("parser: unbound identifier %q", tok.Text)
	}
	return nil, fmt.Errorf("parser: unexpected token")
}

func (p *parser) parseLambda() (term.Term, error) {
	if err := p.advance(); err != nil { // consume λ / \
		return nil, err
	}
	var names []string
	for p.cur.Kind == lexer.Ident {
		names = append(names, p.cur.Text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("parser: expected a parameter name after lambda")
	}
	if p.cur.Kind != lexer.Dot {
		return nil, fmt.Errorf("parser: expected '.' after lambda parameters")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	p.ctx = append(p.ctx, names...)
	body, err := p.parseExpr(0)
	p.ctx = p.ctx[:len(p.ctx)-len(names)]
	if err != nil {
		return nil, err
	}
	result := body
	for range names {
		result = term.Lambda{Body: result}
	}
	return result, nil
}

func (p *parser) parseLetOrWith() (term.Term, error) {
	if err := p.advance(); err != nil { // consume let / with
		return nil, err
	}
	if p.cur.Kind != lexer.Ident {
		return nil, fmt.Errorf("parser: expected a name after let/with")
	}
	name := p.cur.Text
	if err := p.advance(); err != nil {
		return nil, err
	}
	value, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if !isIn(p.cur) {
		return nil, fmt.Errorf("parser: expected 'in' after let/with value")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	p.ctx = append(p.ctx, name)
	body, err := p.parseExpr(0)
	p.ctx = p.ctx[:len(p.ctx)-1]
	if err != nil {
		return nil, err
	}
	return term.App{Fun: term.Lambda{Body: body}, Arg: value}, nil
}
