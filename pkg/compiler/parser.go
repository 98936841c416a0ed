package compiler

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"gbbasic/pkg/ast"
	"gbbasic/pkg/loc"
)

// ParseConfig carries the per-page parser switches.
type ParseConfig struct {
	Page           int
	CaseSensitive  bool
	AutoLineNumber bool
}

// Parser consumes the flat token slice of one page and builds its AST.
//
// Grammar:
//
//	page       = line*
//	line       = [NUMBER] [IDENTIFIER ":"] [statement (":" statement)*] [COMMENT] NEWLINE
//	statement  = let | dim | const | def | for | while | do | if | select | jump
//	           | on | RETURN | END | exit | print | read | data | restore | command
//	let        = ["LET"] IDENTIFIER ["(" args ")"] "=" expression
//	for        = "FOR" IDENTIFIER "=" expression "TO" expression ["STEP" expression] body "NEXT" [IDENTIFIER]
//	if         = "IF" expression "THEN" (inline ["ELSE" inline] | body ("ELSE IF" ... | "ELSE" body)* "END IF")
//	command    = COMMAND [option] [expression ("," expression)*]
//	expression = or
//	or         = and (("OR" | "XOR") and)*
//	and        = not ("AND" not)*
//	not        = "NOT" not | comparison
//	comparison = additive (("=" | "<>" | "<" | ">" | "<=" | ">=") additive)*
//	additive   = term (("+" | "-") term)*
//	term       = unary (("*" | "/" | "MOD") unary)*
//	unary      = ("-" | "+") unary | primary
//	primary    = NUMBER | STRING | IDENTIFIER ["(" args ")"] | "(" expression ")"
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
	cfg         ParseConfig
	fold        cases.Caser
	lastEnd     loc.TextLocation
}

func NewParser(tokens []Token, rawSource string, cfg ParseConfig) *Parser {
	return &Parser{
		tokens:      tokens,
		sourceLines: strings.Split(rawSource, "\n"),
		cfg:         cfg,
		fold:        cases.Fold(),
		lastEnd:     loc.At(cfg.Page, 0, 0),
	}
}

// ParsePage lexes and parses one page of source.
func ParsePage(src string, cfg ParseConfig) (*ast.Page, error) {
	tokens, err := Lex(src)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			se.At.Page = cfg.Page
		}
		return nil, err
	}
	return NewParser(tokens, src, cfg).Parse()
}

// fmtError wraps an error message with the source line where the token appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	lineIdx := tok.Line - 1 // Lines are 1-based

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return &SyntaxError{At: p.at(tok), Msg: fmt.Sprintf(format, args...), Snippet: snippet}
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// peekNext returns the token immediately after the current one.
func (p *Parser) peekNext() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+1]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	if tok.Type != EOF && tok.Type != NEWLINE {
		p.lastEnd = p.endOf(tok)
	}
	return tok
}

func (p *Parser) check(tt TokenType) bool { return p.peek().Type == tt }

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) at(tok Token) loc.TextLocation {
	return loc.At(p.cfg.Page, tok.Line-1, tok.Col-1)
}

func (p *Parser) endOf(tok Token) loc.TextLocation {
	return loc.At(p.cfg.Page, tok.Line-1, tok.Col-1+tok.Width)
}

func (p *Parser) tokenRange(tok Token) loc.Range {
	return loc.Span(p.at(tok), p.endOf(tok))
}

// span runs from start to the end of the last consumed token.
func (p *Parser) span(start loc.TextLocation) loc.Range {
	return loc.Span(start, p.lastEnd)
}

// name canonicalises an identifier.
func (p *Parser) name(tok Token) string {
	if p.cfg.CaseSensitive {
		return tok.Lexeme
	}
	return p.fold.String(tok.Lexeme)
}

// atStatementEnd reports whether the current token ends a statement.
func (p *Parser) atStatementEnd() bool {
	switch p.peek().Type {
	case COLON, NEWLINE, EOF, COMMENT, ELSE:
		return true
	}
	return false
}

// Parse builds the page.
func (p *Parser) Parse() (*ast.Page, error) {
	body, err := p.parseBody(nil)
	if err != nil {
		return nil, err
	}
	return &ast.Page{
		Index: p.cfg.Page,
		Body:  body,
		Pos:   loc.Span(loc.At(p.cfg.Page, 0, 0), p.at(p.peek())),
	}, nil
}

// parseBody reads lines until stop reports a terminator at the start of a
// statement, or until EOF. The terminator is left for the caller.
func (p *Parser) parseBody(stop func() bool) ([]ast.Node, error) {
	body := []ast.Node{}
	lineStart := p.pos == 0 || p.tokens[p.pos-1].Type == NEWLINE

	for {
		tok := p.peek()
		switch tok.Type {
		case EOF:
			return body, nil
		case NEWLINE:
			p.advance()
			if lineStart {
				body = append(body, &ast.Blank{Pos: loc.Span(p.at(tok), p.at(tok))})
			}
			lineStart = true
			continue
		case COLON:
			p.advance()
			lineStart = false
			continue
		}

		if lineStart {
			lineStart = false
			head, err := p.parseLineHead()
			if err != nil {
				return nil, err
			}
			body = append(body, head...)
			continue
		}

		if stop != nil && stop() {
			return body, nil
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)

		if t := p.peek(); !p.atStatementEnd() || t.Type == ELSE {
			if t.Type == ELSE && stop != nil && stop() {
				continue
			}
			return nil, p.fmtError(t, "unexpected %s (%q) after statement", t.Type, t.Lexeme)
		}
	}
}

// parseLineHead reads the optional line number and label of a line.
func (p *Parser) parseLineHead() ([]ast.Node, error) {
	var out []ast.Node
	first := p.peek()
	numbered := false

	if first.Type == NUMBER {
		p.advance()
		n, err := numberValue(first.Lexeme)
		if err != nil {
			return nil, p.fmtError(first, "%v", err)
		}
		out = append(out, &ast.Label{Number: n, Numbered: true, Pos: p.tokenRange(first)})
		numbered = true
	}

	if t := p.peek(); t.Type == IDENTIFIER && p.peekNext().Type == COLON {
		p.advance()
		p.advance()
		out = append(out, &ast.Label{Name: p.name(t), Pos: p.span(p.at(t))})
	}

	if !numbered && !p.cfg.AutoLineNumber && first.Type != COMMENT {
		return nil, p.fmtError(first, "line number required")
	}
	return out, nil
}

func (p *Parser) parseStatement() (ast.Node, error) {
	tok := p.peek()
	switch tok.Type {
	case COMMENT:
		p.advance()
		return &ast.Rem{Text: tok.Lexeme, Pos: p.tokenRange(tok)}, nil
	case LET:
		return p.parseLet(true)
	case IDENTIFIER:
		return p.parseLet(false)
	case DIM:
		return p.parseDim()
	case CONST:
		return p.parseConst()
	case DEF:
		return p.parseDef()
	case FOR:
		return p.parseFor()
	case WHILE:
		return p.parseWhile()
	case DO:
		return p.parseDo()
	case IF:
		return p.parseIf()
	case SELECT:
		return p.parseSelect()
	case GOTO, GOSUB:
		p.advance()
		return p.parseTarget(tok.Type == GOSUB, p.at(tok))
	case ON:
		return p.parseOn()
	case RETURN:
		p.advance()
		return &ast.Keyword{Kind: ast.RETURN, Pos: p.tokenRange(tok)}, nil
	case END:
		switch p.peekNext().Type {
		case IF:
			return nil, p.fmtError(tok, "END IF without IF")
		case SELECT:
			return nil, p.fmtError(tok, "END SELECT without SELECT CASE")
		}
		p.advance()
		return &ast.Keyword{Kind: ast.END, Pos: p.tokenRange(tok)}, nil
	case EXIT:
		return p.parseExit()
	case PRINT:
		return p.parsePrint()
	case READ:
		return p.parseRead()
	case DATA:
		return p.parseData()
	case RESTORE:
		return p.parseRestore()
	case COMMAND:
		return p.parseCommand()
	case NEXT:
		return nil, p.fmtError(tok, "NEXT without FOR")
	case WEND:
		return nil, p.fmtError(tok, "WEND without WHILE")
	case LOOP:
		return nil, p.fmtError(tok, "LOOP without DO")
	case ELSE, ELSEIF:
		return nil, p.fmtError(tok, "%s without IF", tok.Type)
	case CASE:
		return nil, p.fmtError(tok, "CASE outside SELECT CASE")
	}
	return nil, p.fmtError(tok, "unexpected %s (%q) at start of statement", tok.Type, tok.Lexeme)
}

//  Declarations

func (p *Parser) parseLet(explicit bool) (ast.Node, error) {
	start := p.at(p.peek())
	if explicit {
		p.advance()
	}
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	let := &ast.Let{Name: p.name(nameTok), Explicit: explicit}
	if p.check(LPAREN) {
		if let.Index, err = p.parseArgs(); err != nil {
			return nil, err
		}
		if len(let.Index) == 0 {
			return nil, p.fmtError(nameTok, "missing index for %s", nameTok.Lexeme)
		}
	}
	if _, err := p.expect(EQUALS); err != nil {
		return nil, err
	}
	if let.Value, err = p.parseExpression(); err != nil {
		return nil, err
	}
	let.Pos = p.span(start)
	return let, nil
}

func (p *Parser) parseDim() (ast.Node, error) {
	dimTok := p.advance()
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if !p.check(LPAREN) {
		return nil, p.fmtError(p.peek(), "expected dimensions after DIM %s", nameTok.Lexeme)
	}
	dims, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if len(dims) < 1 || len(dims) > 2 {
		return nil, p.fmtError(nameTok, "arrays have 1 or 2 dimensions, %s has %d", nameTok.Lexeme, len(dims))
	}
	return &ast.Dim{Name: p.name(nameTok), Dims: dims, Pos: p.span(p.at(dimTok))}, nil
}

func (p *Parser) parseConst() (ast.Node, error) {
	constTok := p.advance()
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(EQUALS); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Const{Name: p.name(nameTok), Value: value, Pos: p.span(p.at(constTok))}, nil
}

func (p *Parser) parseDef() (ast.Node, error) {
	defTok := p.advance()
	if p.check(FN) {
		p.advance()
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		var params []string
		for !p.check(RPAREN) {
			if len(params) > 0 {
				if _, err := p.expect(COMMA); err != nil {
					return nil, err
				}
			}
			paramTok, err := p.expect(IDENTIFIER)
			if err != nil {
				return nil, err
			}
			param := p.name(paramTok)
			for _, existing := range params {
				if existing == param {
					return nil, p.fmtError(paramTok, "duplicate parameter %s", paramTok.Lexeme)
				}
			}
			params = append(params, param)
		}
		p.advance() // consume )
		if _, err := p.expect(EQUALS); err != nil {
			return nil, err
		}
		body, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.DefFn{Name: p.name(nameTok), Params: params, Body: body, Pos: p.span(p.at(defTok))}, nil
	}

	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(EQUALS); err != nil {
		return nil, err
	}
	targetTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	return &ast.Def{Name: p.name(nameTok), Target: p.name(targetTok), Pos: p.span(p.at(defTok))}, nil
}

//  Control flow

func (p *Parser) parseFor() (ast.Node, error) {
	forTok := p.advance()
	varTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	f := &ast.For{Var: p.name(varTok)}
	if _, err := p.expect(EQUALS); err != nil {
		return nil, err
	}
	if f.From, err = p.parseExpression(); err != nil {
		return nil, err
	}
	if _, err := p.expect(TO); err != nil {
		return nil, err
	}
	if f.To, err = p.parseExpression(); err != nil {
		return nil, err
	}
	if p.check(STEP) {
		p.advance()
		if f.Step, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}

	if f.Body, err = p.parseBody(func() bool { return p.check(NEXT) }); err != nil {
		return nil, err
	}
	if !p.check(NEXT) {
		return nil, p.fmtError(forTok, "FOR without NEXT")
	}
	p.advance()
	if t := p.peek(); t.Type == IDENTIFIER {
		p.advance()
		f.NextVar = p.name(t)
		if f.NextVar != f.Var {
			return nil, p.fmtError(t, "NEXT %s does not match FOR %s", t.Lexeme, varTok.Lexeme)
		}
	}
	f.Pos = p.span(p.at(forTok))
	return f, nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	whileTok := p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody(func() bool { return p.check(WEND) })
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(WEND); err != nil {
		return nil, p.fmtError(whileTok, "WHILE without WEND")
	}
	return &ast.While{Cond: cond, Body: body, Pos: p.span(p.at(whileTok))}, nil
}

// parseLoopCondition reads an optional WHILE or UNTIL clause.
func (p *Parser) parseLoopCondition() (ast.Node, bool, error) {
	switch p.peek().Type {
	case WHILE, UNTIL:
		until := p.advance().Type == UNTIL
		cond, err := p.parseExpression()
		return cond, until, err
	}
	return nil, false, nil
}

func (p *Parser) parseDo() (ast.Node, error) {
	doTok := p.advance()
	d := &ast.Do{}
	cond, until, err := p.parseLoopCondition()
	if err != nil {
		return nil, err
	}
	if cond != nil {
		d.Cond, d.Until, d.AtTop = cond, until, true
	}
	if d.Body, err = p.parseBody(func() bool { return p.check(LOOP) }); err != nil {
		return nil, err
	}
	loopTok, err := p.expect(LOOP)
	if err != nil {
		return nil, p.fmtError(doTok, "DO without LOOP")
	}
	cond, until, err = p.parseLoopCondition()
	if err != nil {
		return nil, err
	}
	if cond != nil {
		if d.AtTop {
			return nil, p.fmtError(loopTok, "DO loop has a condition at both ends")
		}
		d.Cond, d.Until = cond, until
	}
	d.Pos = p.span(p.at(doTok))
	return d, nil
}

func (p *Parser) parseIf() (ast.Node, error) {
	ifTok := p.advance()
	start := p.at(ifTok)
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	// IF cond GOTO target
	if t := p.peek(); t.Type == GOTO {
		p.advance()
		jump, err := p.parseTarget(false, p.at(t))
		if err != nil {
			return nil, err
		}
		branch := &ast.Branch{Kind: ast.IF, Cond: cond, Body: []ast.Node{jump}, Pos: p.span(start)}
		return &ast.If{Branches: []*ast.Branch{branch}, Inline: true, Pos: p.span(start)}, nil
	}

	if _, err := p.expect(THEN); err != nil {
		return nil, err
	}

	switch p.peek().Type {
	case NEWLINE, EOF, COMMENT:
		return p.parseBlockIf(start, cond)
	}

	body, err := p.parseInlineBody()
	if err != nil {
		return nil, err
	}
	branches := []*ast.Branch{{Kind: ast.IF, Cond: cond, Body: body, Pos: p.span(start)}}
	if t := p.peek(); t.Type == ELSE {
		p.advance()
		elseBody, err := p.parseInlineBody()
		if err != nil {
			return nil, err
		}
		branches = append(branches, &ast.Branch{Kind: ast.ELSE, Body: elseBody, Pos: p.span(p.at(t))})
	}
	return &ast.If{Branches: branches, Inline: true, Pos: p.span(start)}, nil
}

// parseInlineBody reads the statements of a single-line IF up to ELSE or
// the end of the line. A bare line number is a GOTO.
func (p *Parser) parseInlineBody() ([]ast.Node, error) {
	if t := p.peek(); t.Type == NUMBER {
		jump, err := p.parseTarget(false, p.at(t))
		if err != nil {
			return nil, err
		}
		return []ast.Node{jump}, nil
	}
	body := []ast.Node{}
	for {
		switch p.peek().Type {
		case COLON:
			p.advance()
			continue
		case NEWLINE, EOF, ELSE:
			return body, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
		if !p.atStatementEnd() {
			t := p.peek()
			return nil, p.fmtError(t, "unexpected %s (%q) after statement", t.Type, t.Lexeme)
		}
	}
}

func (p *Parser) parseBlockIf(start loc.TextLocation, cond ast.Node) (ast.Node, error) {
	stop := func() bool {
		switch p.peek().Type {
		case ELSE, ELSEIF:
			return true
		case END:
			return p.peekNext().Type == IF
		}
		return false
	}

	n := &ast.If{}
	kind, branchStart := ast.IF, start
	for {
		body, err := p.parseBody(stop)
		if err != nil {
			return nil, err
		}
		n.Branches = append(n.Branches, &ast.Branch{Kind: kind, Cond: cond, Body: body, Pos: p.span(branchStart)})

		t := p.peek()
		switch {
		case t.Type == ELSEIF || (t.Type == ELSE && p.peekNext().Type == IF):
			if kind == ast.ELSE {
				return nil, p.fmtError(t, "ELSE IF after ELSE")
			}
			if p.advance().Type == ELSE {
				p.advance()
			}
			if cond, err = p.parseExpression(); err != nil {
				return nil, err
			}
			if _, err := p.expect(THEN); err != nil {
				return nil, err
			}
			kind, branchStart = ast.ELSE_IF, p.at(t)
		case t.Type == ELSE:
			if kind == ast.ELSE {
				return nil, p.fmtError(t, "duplicate ELSE")
			}
			p.advance()
			kind, cond, branchStart = ast.ELSE, nil, p.at(t)
		case t.Type == END:
			p.advance()
			p.advance() // IF
			n.Pos = p.span(start)
			return n, nil
		default:
			return nil, p.fmtError(p.peek(), "IF without END IF (opened on line %d)", start.Row+1)
		}
	}
}

func (p *Parser) parseSelect() (ast.Node, error) {
	selTok := p.advance()
	if _, err := p.expect(CASE); err != nil {
		return nil, err
	}
	subject, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	stop := func() bool {
		return p.check(CASE) || (p.check(END) && p.peekNext().Type == SELECT)
	}
	pre, err := p.parseBody(stop)
	if err != nil {
		return nil, err
	}
	for _, n := range pre {
		if !ast.IsMeaningless(n.Type()) {
			return nil, p.fmtError(selTok, "%s before the first CASE", n.Type())
		}
	}

	s := &ast.SelectCase{Subject: subject}
	seenElse := false
	for p.check(CASE) {
		caseTok := p.advance()
		c := &ast.Case{}
		if p.check(ELSE) {
			p.advance()
			c.Else = true
		} else {
			if c.Values, err = p.parseExprList(); err != nil {
				return nil, err
			}
		}
		if seenElse {
			return nil, p.fmtError(caseTok, "CASE after CASE ELSE")
		}
		seenElse = c.Else
		if c.Body, err = p.parseBody(stop); err != nil {
			return nil, err
		}
		c.Pos = p.span(p.at(caseTok))
		s.Cases = append(s.Cases, c)
	}

	if !p.check(END) {
		return nil, p.fmtError(selTok, "SELECT CASE without END SELECT")
	}
	p.advance()
	p.advance() // SELECT
	s.Pos = p.span(p.at(selTok))
	return s, nil
}

// parseTarget reads the line number or label of a jump.
func (p *Parser) parseTarget(gosub bool, start loc.TextLocation) (*ast.Jump, error) {
	tok := p.advance()
	j := &ast.Jump{Gosub: gosub}
	switch tok.Type {
	case NUMBER:
		n, err := numberValue(tok.Lexeme)
		if err != nil {
			return nil, p.fmtError(tok, "%v", err)
		}
		j.Number, j.Numbered = n, true
	case IDENTIFIER:
		j.Name = p.name(tok)
	default:
		return nil, p.fmtError(tok, "expected line number or label, got %s (%q)", tok.Type, tok.Lexeme)
	}
	j.Pos = p.span(start)
	return j, nil
}

func (p *Parser) parseOn() (ast.Node, error) {
	onTok := p.advance()
	selector, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	kind := p.peek()
	if kind.Type != GOTO && kind.Type != GOSUB {
		return nil, p.fmtError(kind, "expected GOTO or GOSUB after ON, got %s (%q)", kind.Type, kind.Lexeme)
	}
	p.advance()
	n := &ast.OnJump{Gosub: kind.Type == GOSUB, Selector: selector}
	for {
		t := p.peek()
		jump, err := p.parseTarget(n.Gosub, p.at(t))
		if err != nil {
			return nil, err
		}
		n.Targets = append(n.Targets, jump)
		if !p.check(COMMA) {
			break
		}
		p.advance()
	}
	n.Pos = p.span(p.at(onTok))
	return n, nil
}

func (p *Parser) parseExit() (ast.Node, error) {
	exitTok := p.advance()
	t := p.peek()
	switch t.Type {
	case FOR, WHILE, DO:
		p.advance()
		return &ast.Keyword{Kind: ast.EXIT, Arg: t.Type.String(), Pos: p.span(p.at(exitTok))}, nil
	}
	return nil, p.fmtError(t, "expected FOR, WHILE or DO after EXIT")
}

//  I/O

func (p *Parser) parsePrint() (ast.Node, error) {
	printTok := p.advance()
	n := &ast.Print{}
	for !p.atStatementEnd() {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		n.Items = append(n.Items, item)
		if t := p.peek(); t.Type == SEMICOLON || t.Type == COMMA {
			p.advance()
			n.Separators = append(n.Separators, t.Lexeme)
			continue
		}
		break
	}
	n.Pos = p.span(p.at(printTok))
	return n, nil
}

func (p *Parser) parseRead() (ast.Node, error) {
	readTok := p.advance()
	n := &ast.Read{}
	for {
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		var target ast.Node = &ast.Ident{Name: p.name(nameTok), Raw: nameTok.Lexeme, Pos: p.tokenRange(nameTok)}
		if p.check(LPAREN) {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			target = &ast.Call{Name: p.name(nameTok), Raw: nameTok.Lexeme, Args: args, Pos: p.span(p.at(nameTok))}
		}
		n.Targets = append(n.Targets, target)
		if !p.check(COMMA) {
			break
		}
		p.advance()
	}
	n.Pos = p.span(p.at(readTok))
	return n, nil
}

func (p *Parser) parseData() (ast.Node, error) {
	dataTok := p.advance()
	n := &ast.Data{}
	for {
		t := p.peek()
		switch t.Type {
		case STRING:
			p.advance()
			n.Values = append(n.Values, &ast.String{Value: t.Lexeme, Pos: p.tokenRange(t)})
		case NUMBER, MINUS:
			negative := t.Type == MINUS
			if negative {
				p.advance()
			}
			numTok, err := p.expect(NUMBER)
			if err != nil {
				return nil, err
			}
			v, err := numberValue(numTok.Lexeme)
			if err != nil {
				return nil, p.fmtError(numTok, "%v", err)
			}
			if negative {
				v = -v
			}
			n.Values = append(n.Values, &ast.Number{Value: v, Pos: p.span(p.at(t))})
		default:
			return nil, p.fmtError(t, "DATA expects numbers or strings, got %s (%q)", t.Type, t.Lexeme)
		}
		if !p.check(COMMA) {
			break
		}
		p.advance()
	}
	n.Pos = p.span(p.at(dataTok))
	return n, nil
}

func (p *Parser) parseRestore() (ast.Node, error) {
	restoreTok := p.advance()
	n := &ast.Restore{}
	if t := p.peek(); t.Type == NUMBER || t.Type == IDENTIFIER {
		target, err := p.parseTarget(false, p.at(t))
		if err != nil {
			return nil, err
		}
		n.Target = target
	}
	n.Pos = p.span(p.at(restoreTok))
	return n, nil
}

func (p *Parser) parseCommand() (ast.Node, error) {
	kwTok := p.advance()
	b, ok := LookupCommand(kwTok.Lexeme)
	if !ok {
		return nil, p.fmtError(kwTok, "unknown command %s", kwTok.Lexeme)
	}
	cmd := &ast.Command{Kind: b.Node, Keyword: b.Keyword}

	if t := p.peek(); !p.atStatementEnd() && t.Type != STRING && t.Type != NUMBER {
		if sub := strings.ToUpper(t.Lexeme); b.HasSub(sub) {
			p.advance()
			cmd.Sub = sub
		}
	}
	if !p.atStatementEnd() {
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		cmd.Args = args
	}
	cmd.Pos = p.span(p.at(kwTok))
	return cmd, nil
}

//  Expressions

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (ast.Node, error) {
	return p.parseOr()
}

// parseExprList reads expression ("," expression)*.
func (p *Parser) parseExprList() ([]ast.Node, error) {
	var out []ast.Node
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if !p.check(COMMA) {
			return out, nil
		}
		p.advance()
	}
}

// parseArgs reads "(" [expression ("," expression)*] ")".
func (p *Parser) parseArgs() ([]ast.Node, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	args := []ast.Node{}
	if p.check(RPAREN) {
		p.advance()
		return args, nil
	}
	args, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// binaryLevel parses a left-associative level whose operators are ops.
func (p *Parser) binaryLevel(next func() (ast.Node, error), ops ...TokenType) (ast.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		matched := false
		for _, op := range ops {
			if t.Type == op {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		start := left.Location().Begin
		left = &ast.Binary{Op: strings.ToUpper(t.Lexeme), L: left, R: right, Pos: p.span(start)}
	}
}

// parseOr handles OR and XOR, the lowest precedence.
func (p *Parser) parseOr() (ast.Node, error) {
	return p.binaryLevel(p.parseAnd, OR, XOR)
}

// parseAnd handles AND.
func (p *Parser) parseAnd() (ast.Node, error) {
	return p.binaryLevel(p.parseNot, AND)
}

// parseNot handles prefix NOT, which binds looser than comparisons.
func (p *Parser) parseNot() (ast.Node, error) {
	if t := p.peek(); t.Type == NOT {
		p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: "NOT", X: x, Pos: p.span(p.at(t))}, nil
	}
	return p.parseComparison()
}

// parseComparison handles = <> < > <= >=.
func (p *Parser) parseComparison() (ast.Node, error) {
	return p.binaryLevel(p.parseAdditive, EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ)
}

// parseAdditive handles + and -.
func (p *Parser) parseAdditive() (ast.Node, error) {
	return p.binaryLevel(p.parseTerm, PLUS, MINUS)
}

// parseTerm handles *, / and MOD.
func (p *Parser) parseTerm() (ast.Node, error) {
	return p.binaryLevel(p.parseUnary, STAR, SLASH, MOD)
}

// parseUnary handles prefix - and +.
func (p *Parser) parseUnary() (ast.Node, error) {
	t := p.peek()
	switch t.Type {
	case MINUS:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: "-", X: x, Pos: p.span(p.at(t))}, nil
	case PLUS:
		p.advance()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

// parsePrimary handles literals, identifiers, calls and parentheses.
func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		v, err := numberValue(tok.Lexeme)
		if err != nil {
			return nil, p.fmtError(tok, "%v", err)
		}
		return &ast.Number{Value: v, Pos: p.tokenRange(tok)}, nil
	case STRING:
		p.advance()
		return &ast.String{Value: tok.Lexeme, Pos: p.tokenRange(tok)}, nil
	case IDENTIFIER:
		p.advance()
		if p.check(LPAREN) {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &ast.Call{Name: p.name(tok), Raw: tok.Lexeme, Args: args, Pos: p.span(p.at(tok))}, nil
		}
		return &ast.Ident{Name: p.name(tok), Raw: tok.Lexeme, Pos: p.tokenRange(tok)}, nil
	case LPAREN:
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, p.fmtError(tok, "expected expression, got %s (%q)", tok.Type, tok.Lexeme)
}
