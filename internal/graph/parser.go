package graph

import (
	"fmt"

	"github.com/codegraph/retrieval/internal/rerrors"
)

// Parse parses a semicolon-separated sequence of statements. Keywords
// are case-insensitive; identifiers are case-sensitive. On any error
// the caller gets a *rerrors.Error with CategoryQueryParse; no partial
// AST is returned.
func Parse(query string) ([]*Statement, error) {
	toks, err := newLexer(query).tokenize()
	if err != nil {
		return nil, rerrors.QueryParse("%v", err)
	}
	p := &parser{toks: toks}
	stmts, err := p.parseProgram()
	if err != nil {
		return nil, rerrors.QueryParse("%v", err)
	}
	return stmts, nil
}

type parser struct {
	toks    []token
	pos     int
	anonSeq int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) at(kind tokenKind) bool { return p.cur().kind == kind }

func (p *parser) atKeyword(kw string) bool {
	return p.cur().kind == tokKeyword && p.cur().text == kw
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if !p.at(kind) {
		return token{}, fmt.Errorf("expected %s at position %d, got %q", what, p.cur().pos, p.cur().text)
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return fmt.Errorf("expected keyword %s at position %d", kw, p.cur().pos)
	}
	p.advance()
	return nil
}

func (p *parser) parseProgram() ([]*Statement, error) {
	var stmts []*Statement
	for {
		if p.at(tokEOF) {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.at(tokSemicolon) {
			p.advance()
			continue
		}
		break
	}
	if !p.at(tokEOF) {
		return nil, fmt.Errorf("unexpected trailing input at position %d", p.cur().pos)
	}
	if len(stmts) == 0 {
		return nil, fmt.Errorf("empty query")
	}
	return stmts, nil
}

func (p *parser) parseStatement() (*Statement, error) {
	switch {
	case p.atKeyword("CREATE"):
		return p.parseCreateOrMatch(StmtCreate)
	case p.atKeyword("MATCH"):
		return p.parseCreateOrMatch(StmtMatch)
	case p.atKeyword("CALL"):
		return p.parseCall()
	default:
		return nil, fmt.Errorf("expected CREATE, MATCH, or CALL at position %d", p.cur().pos)
	}
}

func (p *parser) parseCreateOrMatch(kind StatementKind) (*Statement, error) {
	p.advance() // CREATE or MATCH

	stmt := &Statement{Kind: kind}
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	stmt.Patterns = append(stmt.Patterns, pat)
	for p.at(tokComma) {
		p.advance()
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		stmt.Patterns = append(stmt.Patterns, pat)
	}

	if p.atKeyword("WHERE") {
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = expr
	}

	if p.atKeyword("RETURN") {
		ret, err := p.parseReturn()
		if err != nil {
			return nil, err
		}
		stmt.Return = ret.clause
		stmt.Distinct = ret.distinct
	}

	if p.atKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		keys, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = keys
	}

	if p.atKeyword("LIMIT") {
		p.advance()
		numTok, err := p.expect(tokNumber, "number")
		if err != nil {
			return nil, err
		}
		n := int(numTok.num)
		stmt.Limit = &n
	}

	return stmt, nil
}

func (p *parser) parseCall() (*Statement, error) {
	p.advance() // CALL
	nameTok, err := p.expect(tokIdent, "procedure name")
	if err != nil {
		return nil, err
	}
	name := nameTok.text
	for p.at(tokDot) {
		p.advance()
		part, err := p.expect(tokIdent, "identifier")
		if err != nil {
			return nil, err
		}
		name += "." + part.text
	}
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return &Statement{Kind: StmtCall, Call: &CallExpr{Name: name}}, nil
}

func (p *parser) parsePattern() (Pattern, error) {
	var pat Pattern
	first, err := p.parseNodePattern()
	if err != nil {
		return pat, err
	}
	pat.Nodes = append(pat.Nodes, first)

	for p.at(tokDash) {
		rel, err := p.parseRelPattern()
		if err != nil {
			return pat, err
		}
		node, err := p.parseNodePattern()
		if err != nil {
			return pat, err
		}
		pat.Rels = append(pat.Rels, rel)
		pat.Nodes = append(pat.Nodes, node)
	}
	return pat, nil
}

func (p *parser) parseNodePattern() (NodePattern, error) {
	var np NodePattern
	if _, err := p.expect(tokLParen, "("); err != nil {
		return np, err
	}
	if p.at(tokIdent) {
		np.Var = p.advance().text
	}
	for p.at(tokColon) {
		p.advance()
		lbl, err := p.expect(tokIdent, "label")
		if err != nil {
			return np, err
		}
		np.Labels = append(np.Labels, lbl.text)
	}
	if p.at(tokLBrace) {
		props, err := p.parsePropMap()
		if err != nil {
			return np, err
		}
		np.Props = props
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return np, err
	}
	if np.Var == "" {
		np.Var = p.nextAnon()
		np.Anonymous = true
	}
	return np, nil
}

func (p *parser) parseRelPattern() (RelPattern, error) {
	var rp RelPattern
	if _, err := p.expect(tokDash, "-"); err != nil {
		return rp, err
	}
	if _, err := p.expect(tokLBracket, "["); err != nil {
		return rp, err
	}
	if p.at(tokIdent) {
		rp.Var = p.advance().text
	}
	if p.at(tokColon) {
		p.advance()
		typ, err := p.expect(tokIdent, "relationship type")
		if err != nil {
			return rp, err
		}
		rp.Type = typ.text
	}
	if p.at(tokLBrace) {
		props, err := p.parsePropMap()
		if err != nil {
			return rp, err
		}
		rp.Props = props
	}
	if _, err := p.expect(tokRBracket, "]"); err != nil {
		return rp, err
	}
	if _, err := p.expect(tokArrow, "->"); err != nil {
		return rp, err
	}
	if rp.Var == "" {
		rp.Var = p.nextAnon()
		rp.Anonymous = true
	}
	return rp, nil
}

func (p *parser) nextAnon() string {
	p.anonSeq++
	return fmt.Sprintf("__anon%d", p.anonSeq)
}

func (p *parser) parsePropMap() (map[string]Expr, error) {
	if _, err := p.expect(tokLBrace, "{"); err != nil {
		return nil, err
	}
	props := map[string]Expr{}
	if p.at(tokRBrace) {
		p.advance()
		return props, nil
	}
	for {
		key, err := p.expect(tokIdent, "property key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokColon, ":"); err != nil {
			return nil, err
		}
		val, err := p.parsePrimaryExpr()
		if err != nil {
			return nil, err
		}
		props[key.text] = val
		if p.at(tokComma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokRBrace, "}"); err != nil {
		return nil, err
	}
	return props, nil
}

// --- expressions ---

func (p *parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.atKeyword("NOT") {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "NOT", Expr: inner}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[tokenKind]string{
	tokEq: "=", tokNeq: "<>", tokLt: "<", tokLe: "<=", tokGt: ">", tokGe: ">=",
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.cur().kind]; ok {
		p.advance()
		right, err := p.parsePrimaryExpr()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: op, Left: left, Right: right}, nil
	}
	if p.atKeyword("STARTS") {
		p.advance()
		if err := p.expectKeyword("WITH"); err != nil {
			return nil, err
		}
		right, err := p.parsePrimaryExpr()
		if err != nil {
			return nil, err
		}
		return StringTest{Op: "STARTS WITH", Left: left, Right: right}, nil
	}
	if p.atKeyword("ENDS") {
		p.advance()
		if err := p.expectKeyword("WITH"); err != nil {
			return nil, err
		}
		right, err := p.parsePrimaryExpr()
		if err != nil {
			return nil, err
		}
		return StringTest{Op: "ENDS WITH", Left: left, Right: right}, nil
	}
	if p.atKeyword("CONTAINS") {
		p.advance()
		right, err := p.parsePrimaryExpr()
		if err != nil {
			return nil, err
		}
		return StringTest{Op: "CONTAINS", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parsePrimaryExpr() (Expr, error) {
	switch {
	case p.at(tokString):
		return Literal{Value: p.advance().text}, nil
	case p.at(tokNumber):
		return Literal{Value: p.advance().num}, nil
	case p.atKeyword("TRUE"):
		p.advance()
		return Literal{Value: true}, nil
	case p.atKeyword("FALSE"):
		p.advance()
		return Literal{Value: false}, nil
	case p.atKeyword("NULL"):
		p.advance()
		return Literal{Value: nil}, nil
	case p.at(tokStar):
		p.advance()
		return StarArg{}, nil
	case p.at(tokLParen):
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case p.at(tokIdent):
		name := p.advance().text
		if p.at(tokLParen) {
			return p.parseFuncCallRest(name)
		}
		if p.at(tokDot) {
			p.advance()
			prop, err := p.expect(tokIdent, "property name")
			if err != nil {
				return nil, err
			}
			return PropertyRef{Var: name, Prop: prop.text}, nil
		}
		return Variable{Name: name}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q at position %d", p.cur().text, p.cur().pos)
	}
}

func (p *parser) parseFuncCallRest(name string) (Expr, error) {
	p.advance() // (
	var args []Expr
	if !p.at(tokRParen) {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		for p.at(tokComma) {
			p.advance()
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return FuncCall{Name: name, Args: args}, nil
}

type returnResult struct {
	clause   *ReturnClause
	distinct bool
}

func (p *parser) parseReturn() (returnResult, error) {
	p.advance() // RETURN
	var res returnResult
	if p.atKeyword("DISTINCT") {
		p.advance()
		res.distinct = true
	}
	clause := &ReturnClause{}
	item, err := p.parseReturnItem()
	if err != nil {
		return res, err
	}
	clause.Items = append(clause.Items, item)
	for p.at(tokComma) {
		p.advance()
		item, err := p.parseReturnItem()
		if err != nil {
			return res, err
		}
		clause.Items = append(clause.Items, item)
	}
	res.clause = clause
	return res, nil
}

func (p *parser) parseReturnItem() (ReturnItem, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return ReturnItem{}, err
	}
	item := ReturnItem{Expr: expr, Alias: defaultAlias(expr)}
	if p.atKeyword("AS") {
		p.advance()
		alias, err := p.parseAliasName()
		if err != nil {
			return item, err
		}
		item.Alias = alias
	}
	return item, nil
}

// parseAliasName accepts a plain identifier or a keyword-like name,
// matching the spec's "accepts keyword-like names" allowance.
func (p *parser) parseAliasName() (string, error) {
	if p.at(tokIdent) || p.at(tokKeyword) {
		return p.advance().text, nil
	}
	return "", fmt.Errorf("expected alias at position %d", p.cur().pos)
}

func defaultAlias(e Expr) string {
	switch v := e.(type) {
	case Variable:
		return v.Name
	case PropertyRef:
		return v.Var + "." + v.Prop
	case FuncCall:
		return v.Name
	default:
		return ""
	}
}

func (p *parser) parseOrderBy() ([]OrderKey, error) {
	var keys []OrderKey
	for {
		name, err := p.parseAliasName()
		if err != nil {
			return nil, err
		}
		keys = append(keys, OrderKey{Key: name})
		if p.at(tokComma) {
			p.advance()
			continue
		}
		break
	}
	return keys, nil
}
