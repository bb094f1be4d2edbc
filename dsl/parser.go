package dsl

import (
	"fmt"
	"strconv"

	"github.com/pulsekit/go-pulse/wave"
)

// Parser parses waveform expression text into a wave.Expr tree.
// Operator precedence, loosest to tightest: addition/subtraction,
// multiplication/division, unary minus; function application binds
// tighter than all operators. Parsing is pure: it never touches a time
// domain and has no side effects.
type Parser struct {
	lex  *Lexer
	cur  Token
	peek Token
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lex: NewLexer(input)}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

// Parse parses a complete waveform expression. On malformed input it
// returns a *SyntaxError locating the offending token.
func Parse(input string) (wave.Expr, error) {
	p := NewParser(input)
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, p.errorAt(p.cur, "end of input")
	}
	return expr, nil
}

// errorAt builds a SyntaxError for the given token.
func (p *Parser) errorAt(tok Token, expected string) *SyntaxError {
	got := tok.Type.String()
	if tok.Type == TokenIdent || tok.Type == TokenNumber || tok.Type == TokenIllegal {
		got = fmt.Sprintf("%q", tok.Literal)
	}
	return &SyntaxError{Line: tok.Line, Col: tok.Col, Expected: expected, Got: got}
}

// parseExpr handles + and -.
func (p *Parser) parseExpr() (wave.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		op := p.cur
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if op.Type == TokenMinus {
			right = negate(right)
		}
		left = wave.Add(left, right)
	}
	return left, nil
}

// parseTerm handles * and /. Division is only defined for constant
// divisors: the data model has no quotient node, so a non-constant right
// operand is a syntax error at the divisor's position.
func (p *Parser) parseTerm() (wave.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenStar || p.cur.Type == TokenSlash {
		op := p.cur
		p.next()
		divisorTok := p.cur
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op.Type == TokenStar {
			left = wave.Mul(left, right)
			continue
		}
		v, ok := constFold(right)
		if !ok {
			return nil, p.errorAt(divisorTok, "constant divisor")
		}
		if v == 0 {
			return nil, p.errorAt(divisorTok, "nonzero divisor")
		}
		left = wave.Scaled(left, 1/v)
	}
	return left, nil
}

func (p *Parser) parseUnary() (wave.Expr, error) {
	if p.cur.Type == TokenMinus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negate(operand), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (wave.Expr, error) {
	switch p.cur.Type {
	case TokenNumber:
		tok := p.cur
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorAt(tok, "number")
		}
		p.next()
		return wave.Const(v), nil

	case TokenIdent:
		tok := p.cur
		if p.peek.Type == TokenLParen {
			return p.parseCall()
		}
		if tok.Literal == "t" {
			p.next()
			return wave.T(), nil
		}
		return nil, p.errorAt(tok, "'t', a number, or a function call")

	case TokenLParen:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, p.errorAt(p.cur, "')'")
		}
		p.next()
		return expr, nil

	default:
		return nil, p.errorAt(p.cur, "expression")
	}
}

// arg is a parsed call argument together with its first token, kept for
// error positions.
type arg struct {
	expr wave.Expr
	tok  Token
}

// parseCall parses name(arg, arg, ...) with an optional single ';'
// separating filter feedback coefficients.
func (p *Parser) parseCall() (wave.Expr, error) {
	name := p.cur
	p.next() // name
	p.next() // (

	var args []arg
	semi := -1
	if p.cur.Type != TokenRParen {
		for {
			tok := p.cur
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg{expr: expr, tok: tok})
			if p.cur.Type == TokenComma {
				p.next()
				continue
			}
			if p.cur.Type == TokenSemicolon {
				if semi >= 0 {
					return nil, p.errorAt(p.cur, "at most one ';' in a filter call")
				}
				semi = len(args)
				p.next()
				continue
			}
			break
		}
	}
	if p.cur.Type != TokenRParen {
		return nil, p.errorAt(p.cur, "')' or ','")
	}
	p.next()

	if semi >= 0 && name.Literal != "filter" {
		return nil, p.errorAt(name, "';' only inside filter(...)")
	}
	return p.buildCall(name, args, semi)
}

// buildCall maps a parsed function call onto a wave node.
func (p *Parser) buildCall(name Token, args []arg, semi int) (wave.Expr, error) {
	switch name.Literal {
	case "shift":
		if len(args) != 2 {
			return nil, p.errorAt(name, "shift(expr, dt)")
		}
		dt, err := p.constArg(args[1], "shift offset")
		if err != nil {
			return nil, err
		}
		return wave.Shifted(args[0].expr, dt), nil

	case "scale":
		if len(args) != 2 {
			return nil, p.errorAt(name, "scale(expr, factor)")
		}
		k, err := p.constArg(args[1], "scale factor")
		if err != nil {
			return nil, err
		}
		return wave.Scaled(args[0].expr, k), nil

	case "window":
		if len(args) != 3 {
			return nil, p.errorAt(name, "window(expr, start, stop)")
		}
		start, err := p.constArg(args[1], "window start")
		if err != nil {
			return nil, err
		}
		stop, err := p.constArg(args[2], "window stop")
		if err != nil {
			return nil, err
		}
		return wave.Windowed(args[0].expr, start, stop), nil

	case "conv":
		if len(args) != 2 && len(args) != 3 {
			return nil, p.errorAt(name, "conv(expr, kernel) or conv(expr, kernel, rate)")
		}
		node := wave.Convolved(args[0].expr, args[1].expr)
		if len(args) == 3 {
			rate, err := p.constArg(args[2], "kernel rate")
			if err != nil {
				return nil, err
			}
			node.Rate = rate
		}
		return node, nil

	case "filter":
		if len(args) < 2 {
			return nil, p.errorAt(name, "filter(expr, b0, b1, ...)")
		}
		split := len(args)
		if semi >= 0 {
			split = semi
		}
		if split < 2 {
			return nil, p.errorAt(name, "at least one feed-forward coefficient")
		}
		ff, err := p.constArgs(args[1:split], "filter coefficient")
		if err != nil {
			return nil, err
		}
		fb, err := p.constArgs(args[split:], "filter coefficient")
		if err != nil {
			return nil, err
		}
		return wave.IIR(args[0].expr, ff, fb), nil
	}

	prim := wave.PrimitiveName(name.Literal)
	arity, ok := wave.PrimitiveArity[prim]
	if !ok {
		return nil, p.errorAt(name, "a known function name")
	}
	if len(args) != arity {
		return nil, p.errorAt(name, fmt.Sprintf("%d argument(s) to %s", arity, name.Literal))
	}
	params, err := p.constArgs(args, "numeric argument")
	if err != nil {
		return nil, err
	}
	return &wave.Primitive{Name: prim, Args: params}, nil
}

func (p *Parser) constArg(a arg, what string) (float64, error) {
	v, ok := constFold(a.expr)
	if !ok {
		return 0, p.errorAt(a.tok, "constant "+what)
	}
	return v, nil
}

func (p *Parser) constArgs(args []arg, what string) ([]float64, error) {
	if len(args) == 0 {
		return nil, nil
	}
	vs := make([]float64, len(args))
	for i, a := range args {
		v, err := p.constArg(a, what)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return vs, nil
}

// negate returns the additive inverse of e without growing the tree for
// the common constant and scale cases.
func negate(e wave.Expr) wave.Expr {
	switch n := e.(type) {
	case *wave.Constant:
		return wave.Const(-n.Value)
	case *wave.Scale:
		return wave.Scaled(n.Expr, -n.Factor)
	default:
		return wave.Scaled(e, -1)
	}
}

// constFold evaluates e when it denotes a time-independent value.
func constFold(e wave.Expr) (float64, bool) {
	switch n := e.(type) {
	case *wave.Constant:
		return n.Value, true
	case *wave.Scale:
		v, ok := constFold(n.Expr)
		return v * n.Factor, ok
	case *wave.Shift:
		return constFold(n.Expr)
	case *wave.Sum:
		total := 0.0
		for _, c := range n.Children {
			v, ok := constFold(c)
			if !ok {
				return 0, false
			}
			total += v
		}
		return total, true
	case *wave.Product:
		total := 1.0
		for _, c := range n.Children {
			v, ok := constFold(c)
			if !ok {
				return 0, false
			}
			total *= v
		}
		return total, true
	default:
		return 0, false
	}
}
