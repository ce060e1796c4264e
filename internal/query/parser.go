package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/pkg/types"
)

// Parser parses a single predicate clause into a Clause.
type Parser struct {
	input     string
	lexer     *Lexer
	curToken  Token
	peekToken Token
}

// NewParser creates a new Parser for the given clause text.
func NewParser(input string) *Parser {
	p := &Parser{
		input: input,
		lexer: NewLexer(input),
	}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// ParseClause parses one predicate clause. Malformed clauses produce a
// query error naming the offending clause text.
func ParseClause(input string) (Clause, error) {
	return NewParser(input).Parse()
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// errBadClause builds the standard malformed-clause error.
func (p *Parser) errBadClause(msg string) error {
	return errors.NewQueryError(errors.CodeBadClause,
		fmt.Sprintf("malformed clause %q: %s", p.input, msg))
}

// Parse parses the full clause and requires the input to be consumed.
func (p *Parser) Parse() (Clause, error) {
	if !p.curTokenIs(TokenIdent) {
		return nil, p.errBadClause("expected column name")
	}
	column := p.curToken.Literal
	p.nextToken()

	var (
		clause Clause
		err    error
	)
	switch p.curToken.Type {
	case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe:
		clause, err = p.parseCompare(column)
	case TokenIs:
		clause, err = p.parseNullCheck(column)
	case TokenBetween:
		clause, err = p.parseBetween(column)
	default:
		return nil, p.errBadClause("expected comparison operator, IS, or BETWEEN")
	}
	if err != nil {
		return nil, err
	}

	if !p.curTokenIs(TokenEOF) {
		return nil, p.errBadClause(fmt.Sprintf("unexpected trailing input at %q", p.curToken.Literal))
	}
	return clause, nil
}

// parseCompare parses "column OP literal".
func (p *Parser) parseCompare(column string) (Clause, error) {
	op := p.curToken.Literal
	p.nextToken()

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &Compare{Col: column, Op: op, Lit: lit}, nil
}

// parseNullCheck parses "column IS [NOT] NULL".
func (p *Parser) parseNullCheck(column string) (Clause, error) {
	p.nextToken() // Skip IS

	not := false
	if p.curTokenIs(TokenNot) {
		not = true
		p.nextToken()
	}

	if !p.curTokenIs(TokenNull) {
		return nil, p.errBadClause("expected NULL after IS")
	}
	p.nextToken()

	return &NullCheck{Col: column, Not: not}, nil
}

// parseBetween parses "column BETWEEN low AND high". Bounds must be
// numeric literals.
func (p *Parser) parseBetween(column string) (Clause, error) {
	p.nextToken() // Skip BETWEEN

	low, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	if !p.curTokenIs(TokenAnd) {
		return nil, p.errBadClause("expected AND in BETWEEN clause")
	}
	p.nextToken()

	high, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	if _, ok := low.Numeric(); !ok {
		return nil, errors.NewQueryError(errors.CodeBadLiteral,
			fmt.Sprintf("clause %q: BETWEEN bound %q is not numeric", p.input, low))
	}
	if _, ok := high.Numeric(); !ok {
		return nil, errors.NewQueryError(errors.CodeBadLiteral,
			fmt.Sprintf("clause %q: BETWEEN bound %q is not numeric", p.input, high))
	}

	return &Between{Col: column, Low: low, High: high}, nil
}

// parseLiteral parses a numeric, quoted, or bare-word literal.
func (p *Parser) parseLiteral() (types.Value, error) {
	switch p.curToken.Type {
	case TokenNumber:
		lit := p.curToken.Literal
		p.nextToken()
		if !strings.ContainsAny(lit, ".eE") {
			if v, err := strconv.ParseInt(lit, 10, 64); err == nil {
				return types.IntValue(v), nil
			}
		}
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return types.Null(), errors.NewQueryError(errors.CodeBadLiteral,
				fmt.Sprintf("clause %q: invalid number %q", p.input, lit))
		}
		return types.FloatValue(v), nil
	case TokenString:
		lit := p.curToken.Literal
		p.nextToken()
		return types.TextValue(lit), nil
	case TokenIdent:
		// Bare words compare as text.
		lit := p.curToken.Literal
		p.nextToken()
		return types.TextValue(lit), nil
	default:
		return types.Null(), p.errBadClause("expected literal value")
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}
