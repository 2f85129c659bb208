package parser

import (
	"fmt"
	"strings"

	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
)

// maxExprDepth bounds expression nesting.
const maxExprDepth = 64

// keyword operators usable between two operands.
var wordOperators = map[string]ast.Operator{
	"in":          ast.OperatorIn,
	"contains":    ast.OperatorContains,
	"matches":     ast.OperatorMatches,
	"starts_with": ast.OperatorStartsWith,
	"ends_with":   ast.OperatorEndsWith,
}

// exprParser is a recursive-descent parser over a token stream.
//
// Grammar, lowest precedence first:
//
//	or         = and { ("||" | "or") and }
//	and        = not { ("&&" | "and") not }
//	not        = "not" not | comparison
//	comparison = additive [ compOp additive ]
//	additive   = multiplicative { ("+" | "-") multiplicative }
//	multiplicative = unary { ("*" | "/" | "%") unary }
//	unary      = ("-" | "!") unary | primary
//	primary    = number | string | true | false | null | list | "(" or ")"
//	           | ident "(" [ or { "," or } ] ")" | ident { "." ident }
type exprParser struct {
	tokens []token
	pos    int
	depth  int
	loc    ast.Location
}

// ParseExpression parses an expression source into an AST. loc identifies
// where the expression lives in its template; node locations carry the
// column inside the expression.
func ParseExpression(src string, loc ast.Location) (ast.Expr, *stlErrors.Error) {
	if strings.TrimSpace(src) == "" {
		return nil, &stlErrors.Error{
			Type:     stlErrors.ErrorTypeSyntax,
			Message:  "Expression is empty",
			Location: loc,
		}
	}

	tokens, err := tokenize(src)
	if err != nil {
		lexErr := err.(*lexError)
		return nil, &stlErrors.Error{
			Type:     stlErrors.ErrorTypeSyntax,
			Message:  fmt.Sprintf("Invalid expression %q: %s", src, lexErr.message),
			Location: loc.At(lexErr.column),
		}
	}

	p := &exprParser{tokens: tokens, loc: loc}
	expr, perr := p.parseOr()
	if perr != nil {
		perr.Message = fmt.Sprintf("Invalid expression %q: %s", src, perr.Message)
		return nil, perr
	}

	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, &stlErrors.Error{
			Type:     stlErrors.ErrorTypeSyntax,
			Message:  fmt.Sprintf("Invalid expression %q: unexpected %s after end of expression", src, tok.describe()),
			Location: loc.At(tok.column),
		}
	}

	return expr, nil
}

// MustParseExpression parses an expression and panics on error. Intended for tests
// and statically known expressions.
func MustParseExpression(src string) ast.Expr {
	expr, err := ParseExpression(src, ast.Location{})
	if err != nil {
		panic(err.Short())
	}
	return expr
}

func (p *exprParser) peek() token { return p.tokens[p.pos] }

func (p *exprParser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *exprParser) errorf(tok token, format string, args ...any) *stlErrors.Error {
	return &stlErrors.Error{
		Type:     stlErrors.ErrorTypeSyntax,
		Message:  fmt.Sprintf(format, args...),
		Location: p.loc.At(tok.column),
	}
}

func (p *exprParser) isOp(tok token, ops ...string) bool {
	if tok.kind != tokenOperator && tok.kind != tokenIdent {
		return false
	}
	for _, op := range ops {
		if tok.text == op {
			return true
		}
	}
	return false
}

func (p *exprParser) enter(tok token) *stlErrors.Error {
	p.depth++
	if p.depth > maxExprDepth {
		return p.errorf(tok, "expression nesting exceeds maximum depth %d", maxExprDepth)
	}
	return nil
}

func (p *exprParser) leave() { p.depth-- }

func (p *exprParser) parseOr() (ast.Expr, *stlErrors.Error) {
	if err := p.enter(p.peek()); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isOp(p.peek(), "||", "or") {
		op := p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OperatorOr, Left: left, Right: right, Location: p.loc.At(op.column)}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (ast.Expr, *stlErrors.Error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isOp(p.peek(), "&&", "and") {
		op := p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OperatorAnd, Left: left, Right: right, Location: p.loc.At(op.column)}
	}
	return left, nil
}

func (p *exprParser) parseNot() (ast.Expr, *stlErrors.Error) {
	if tok := p.peek(); tok.kind == tokenIdent && tok.text == "not" {
		p.next()
		if err := p.enter(tok); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OperatorNot, X: x, Location: p.loc.At(tok.column)}, nil
	}
	return p.parseComparison()
}

func (p *exprParser) comparisonOp(tok token) (ast.Operator, bool) {
	switch tok.kind {
	case tokenOperator:
		switch tok.text {
		case "==", "!=", "<", ">", "<=", ">=":
			return ast.Operator(tok.text), true
		}
	case tokenIdent:
		op, ok := wordOperators[tok.text]
		return op, ok
	}
	return "", false
}

func (p *exprParser) parseComparison() (ast.Expr, *stlErrors.Error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	op, ok := p.comparisonOp(p.peek())
	if !ok {
		return left, nil
	}
	opTok := p.next()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if _, chained := p.comparisonOp(p.peek()); chained {
		return nil, p.errorf(p.peek(), "comparisons cannot be chained; combine them with 'and'")
	}
	return &ast.Binary{Op: op, Left: left, Right: right, Location: p.loc.At(opTok.column)}, nil
}

func (p *exprParser) parseAdditive() (ast.Expr, *stlErrors.Error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp(p.peek(), "+", "-") && p.peek().kind == tokenOperator {
		op := p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.Operator(op.text), Left: left, Right: right, Location: p.loc.At(op.column)}
	}
	return left, nil
}

func (p *exprParser) parseMultiplicative() (ast.Expr, *stlErrors.Error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOp(p.peek(), "*", "/", "%") && p.peek().kind == tokenOperator {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.Operator(op.text), Left: left, Right: right, Location: p.loc.At(op.column)}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (ast.Expr, *stlErrors.Error) {
	tok := p.peek()
	if tok.kind == tokenOperator && (tok.text == "-" || tok.text == "!") {
		p.next()
		if err := p.enter(tok); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold negative number literals.
		if lit, ok := x.(*ast.Literal); ok && tok.text == "-" && lit.Kind == ast.LiteralNumber {
			return &ast.Literal{Kind: ast.LiteralNumber, Number: -lit.Number, Location: p.loc.At(tok.column)}, nil
		}
		return &ast.Unary{Op: ast.Operator(tok.text), X: x, Location: p.loc.At(tok.column)}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (ast.Expr, *stlErrors.Error) {
	tok := p.next()
	loc := p.loc.At(tok.column)

	switch tok.kind {
	case tokenNumber:
		return &ast.Literal{Kind: ast.LiteralNumber, Number: tok.number, Location: loc}, nil

	case tokenString:
		return &ast.Literal{Kind: ast.LiteralString, Str: tok.text, Location: loc}, nil

	case tokenLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return nil, p.errorf(closing, "expected ')' but found %s", closing.describe())
		}
		return inner, nil

	case tokenLBracket:
		return p.parseList(tok)

	case tokenIdent:
		switch tok.text {
		case "true", "false":
			return &ast.Literal{Kind: ast.LiteralBoolean, Bool: tok.text == "true", Location: loc}, nil
		case "null", "nil":
			return &ast.Literal{Kind: ast.LiteralNull, Location: loc}, nil
		case "and", "or", "not":
			return nil, p.errorf(tok, "unexpected keyword %q", tok.text)
		}
		if _, isOp := wordOperators[tok.text]; isOp && p.peek().kind != tokenLParen {
			return nil, p.errorf(tok, "operator %q is missing its left operand", tok.text)
		}
		if p.peek().kind == tokenLParen {
			return p.parseCall(tok)
		}
		return p.parseRef(tok)

	case tokenEOF:
		return nil, p.errorf(tok, "unexpected end of expression")
	}

	return nil, p.errorf(tok, "unexpected %s", tok.describe())
}

func (p *exprParser) parseList(open token) (ast.Expr, *stlErrors.Error) {
	list := &ast.List{Location: p.loc.At(open.column)}
	if p.peek().kind == tokenRBracket {
		p.next()
		return list, nil
	}
	for {
		el, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		list.Elems = append(list.Elems, el)

		tok := p.next()
		switch tok.kind {
		case tokenComma:
			continue
		case tokenRBracket:
			return list, nil
		default:
			return nil, p.errorf(tok, "expected ',' or ']' in list but found %s", tok.describe())
		}
	}
}

func (p *exprParser) parseCall(name token) (ast.Expr, *stlErrors.Error) {
	p.next() // (
	call := &ast.Call{Name: name.text, Location: p.loc.At(name.column)}
	if p.peek().kind == tokenRParen {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		tok := p.next()
		switch tok.kind {
		case tokenComma:
			continue
		case tokenRParen:
			return call, nil
		default:
			return nil, p.errorf(tok, "expected ',' or ')' in call to %s but found %s", name.text, tok.describe())
		}
	}
}

func (p *exprParser) parseRef(root token) (ast.Expr, *stlErrors.Error) {
	ref := &ast.Ref{Root: root.text, Location: p.loc.At(root.column)}
	for p.peek().kind == tokenDot {
		p.next()
		field := p.next()
		if field.kind != tokenIdent {
			return nil, p.errorf(field, "expected field name after '.' but found %s", field.describe())
		}
		ref.Path = append(ref.Path, field.text)
	}
	return ref, nil
}
