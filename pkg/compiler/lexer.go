package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gbbasic/pkg/loc"
)

// keywords maps the upper-cased spelling of every reserved word to its
// TokenType. Built-in statement keywords come from the command catalog.
var keywords = map[string]TokenType{
	"LET":     LET,
	"DIM":     DIM,
	"CONST":   CONST,
	"DEF":     DEF,
	"FN":      FN,
	"FOR":     FOR,
	"TO":      TO,
	"STEP":    STEP,
	"NEXT":    NEXT,
	"WHILE":   WHILE,
	"WEND":    WEND,
	"DO":      DO,
	"LOOP":    LOOP,
	"UNTIL":   UNTIL,
	"IF":      IF,
	"THEN":    THEN,
	"ELSE":    ELSE,
	"ELSEIF":  ELSEIF,
	"END":     END,
	"SELECT":  SELECT,
	"CASE":    CASE,
	"GOTO":    GOTO,
	"GOSUB":   GOSUB,
	"ON":      ON,
	"RETURN":  RETURN,
	"EXIT":    EXIT,
	"PRINT":   PRINT,
	"READ":    READ,
	"DATA":    DATA,
	"RESTORE": RESTORE,
	"AND":     AND,
	"OR":      OR,
	"XOR":     XOR,
	"NOT":     NOT,
	"MOD":     MOD,
}

// Keywords lists every reserved word of the dialect, unordered.
func Keywords() []string {
	out := make([]string, 0, len(keywords)+len(commands)+1)
	for k := range keywords {
		out = append(out, k)
	}
	out = append(out, "REM")
	for _, b := range commands {
		out = append(out, b.Keyword)
	}
	return out
}

// Lexer holds the state of the scanner over one page.
type Lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// advance consumes the current rune and updates line and column.
func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// skipWhitespace skips spaces, tabs and carriage returns. Newlines are tokens.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		r := l.peek()
		if r == '\n' || !unicode.IsSpace(r) {
			return
		}
		l.advance()
	}
}

// scanRestOfLine consumes up to, not including, the next newline.
func (l *Lexer) scanRestOfLine() string {
	start := l.pos
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
	return strings.TrimSpace(string(l.src[start:l.pos]))
}

func (l *Lexer) errorf(line, col int, format string, args ...any) error {
	snippet := "<source unavailable>"
	lines := strings.Split(string(l.src), "\n")
	if line-1 >= 0 && line-1 < len(lines) {
		snippet = strings.TrimSpace(lines[line-1])
	}
	return &SyntaxError{At: loc.At(0, line-1, col-1), Msg: fmt.Sprintf(format, args...), Snippet: snippet}
}

// scanIdent collects an identifier, a keyword or a REM comment.
func (l *Lexer) scanIdent() Token {
	line, col, start := l.line, l.col, l.pos
	for l.pos < len(l.src) && (unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_') {
		l.advance()
	}
	word := string(l.src[start:l.pos])
	upper := strings.ToUpper(word)

	if upper == "REM" {
		text := l.scanRestOfLine()
		return Token{Type: COMMENT, Lexeme: text, Line: line, Col: col, Width: l.pos - start}
	}
	tt := IDENTIFIER
	if kw, ok := keywords[upper]; ok {
		tt = kw
	} else if _, ok := commands[upper]; ok {
		tt = COMMAND
	}
	return Token{Type: tt, Lexeme: word, Line: line, Col: col, Width: l.pos - start}
}

// scanNumber collects a decimal, &H hexadecimal or &B binary literal.
func (l *Lexer) scanNumber() (Token, error) {
	line, col, start := l.line, l.col, l.pos

	if l.peek() == '&' {
		l.advance()
		base := unicode.ToUpper(l.peek())
		if base != 'H' && base != 'B' {
			return Token{}, l.errorf(line, col, "expected H or B after '&'")
		}
		l.advance()
		digits := 0
		for l.pos < len(l.src) && isDigitIn(l.peek(), base) {
			l.advance()
			digits++
		}
		if digits == 0 {
			return Token{}, l.errorf(line, col, "missing digits in %s", string(l.src[start:l.pos]))
		}
	} else {
		for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}

	return Token{Type: NUMBER, Lexeme: string(l.src[start:l.pos]), Line: line, Col: col, Width: l.pos - start}, nil
}

func isDigitIn(r rune, base rune) bool {
	if base == 'B' {
		return r == '0' || r == '1'
	}
	return unicode.Is(unicode.ASCII_Hex_Digit, r)
}

// numberValue converts a NUMBER lexeme to its value.
func numberValue(lexeme string) (int, error) {
	upper := strings.ToUpper(lexeme)
	var v int64
	var err error
	switch {
	case strings.HasPrefix(upper, "&H"):
		v, err = strconv.ParseInt(upper[2:], 16, 32)
	case strings.HasPrefix(upper, "&B"):
		v, err = strconv.ParseInt(upper[2:], 2, 32)
	default:
		v, err = strconv.ParseInt(upper, 10, 32)
	}
	if err != nil || v > 0xFFFF {
		return 0, fmt.Errorf("number %s out of range", lexeme)
	}
	return int(v), nil
}

// scanString collects a string literal "...". A doubled quote stands for
// one quote character.
func (l *Lexer) scanString() (Token, error) {
	line, col, start := l.line, l.col, l.pos
	l.advance() // consume opening "
	var val []rune

	for {
		if l.pos >= len(l.src) || l.peek() == '\n' {
			return Token{}, l.errorf(line, col, "unterminated string literal")
		}
		r := l.advance()
		if r == '"' {
			if l.peek() == '"' {
				l.advance()
				val = append(val, '"')
				continue
			}
			break
		}
		val = append(val, r)
	}

	return Token{Type: STRING, Lexeme: string(val), Line: line, Col: col, Width: l.pos - start}, nil
}

// nextToken skips whitespace and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Lexeme: "", Line: l.line, Col: l.col}, nil
	}

	ch := l.peek()
	line, col := l.line, l.col

	if unicode.IsLetter(ch) || ch == '_' {
		return l.scanIdent(), nil
	}
	if unicode.IsDigit(ch) || ch == '&' {
		return l.scanNumber()
	}
	if ch == '"' {
		return l.scanString()
	}
	if ch == '\'' {
		l.advance()
		text := l.scanRestOfLine()
		return Token{Type: COMMENT, Lexeme: text, Line: line, Col: col, Width: l.col - col}, nil
	}

	tok := func(tt TokenType, lexeme string) (Token, error) {
		return Token{Type: tt, Lexeme: lexeme, Line: line, Col: col, Width: len([]rune(lexeme))}, nil
	}

	l.advance() // consume the character before the switch
	switch ch {
	case '\n':
		return Token{Type: NEWLINE, Lexeme: "\n", Line: line, Col: col, Width: 1}, nil
	case '(':
		return tok(LPAREN, "(")
	case ')':
		return tok(RPAREN, ")")
	case ',':
		return tok(COMMA, ",")
	case ';':
		return tok(SEMICOLON, ";")
	case ':':
		return tok(COLON, ":")
	case '+':
		return tok(PLUS, "+")
	case '-':
		return tok(MINUS, "-")
	case '*':
		return tok(STAR, "*")
	case '/':
		return tok(SLASH, "/")
	case '=':
		return tok(EQUALS, "=")
	case '<':
		if l.peek() == '>' {
			l.advance()
			return tok(NOT_EQ, "<>")
		}
		if l.peek() == '=' {
			l.advance()
			return tok(LESS_EQ, "<=")
		}
		return tok(LESS, "<")
	case '>':
		if l.peek() == '=' {
			l.advance()
			return tok(GREATER_EQ, ">=")
		}
		return tok(GREATER, ">")
	default:
		return Token{}, l.errorf(line, col, "unexpected character %q", ch)
	}
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a *SyntaxError on the first illegal character or unterminated
// literal.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}
