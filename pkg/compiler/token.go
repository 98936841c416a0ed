package compiler

import "fmt"

// TokenType identifies the kind of a lexical token.
type TokenType int

const (
	// Special
	EOF     TokenType = iota
	ILLEGAL           // unrecognised character
	NEWLINE           // end of a source line
	COMMENT           // REM or ' text, Lexeme holds the text

	// Literals
	NUMBER
	STRING
	IDENTIFIER

	// Statement keywords
	LET
	DIM
	CONST
	DEF
	FN
	FOR
	TO
	STEP
	NEXT
	WHILE
	WEND
	DO
	LOOP
	UNTIL
	IF
	THEN
	ELSE
	ELSEIF
	END
	SELECT
	CASE
	GOTO
	GOSUB
	ON
	RETURN
	EXIT
	PRINT
	READ
	DATA
	RESTORE
	COMMAND // any built-in statement keyword (LOCATE, SPRITE, PLAY, ...)

	// Word operators
	AND
	OR
	XOR
	NOT
	MOD

	// Symbols
	PLUS       // +
	MINUS      // -
	STAR       // *
	SLASH      // /
	EQUALS     // =
	NOT_EQ     // <>
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
	LPAREN     // (
	RPAREN     // )
	COMMA      // ,
	SEMICOLON  // ;
	COLON      // :

	tokenTypeCount
)

var tokenNames = [...]string{
	EOF:        "EOF",
	ILLEGAL:    "ILLEGAL",
	NEWLINE:    "NEWLINE",
	COMMENT:    "COMMENT",
	NUMBER:     "NUMBER",
	STRING:     "STRING",
	IDENTIFIER: "IDENTIFIER",
	LET:        "LET",
	DIM:        "DIM",
	CONST:      "CONST",
	DEF:        "DEF",
	FN:         "FN",
	FOR:        "FOR",
	TO:         "TO",
	STEP:       "STEP",
	NEXT:       "NEXT",
	WHILE:      "WHILE",
	WEND:       "WEND",
	DO:         "DO",
	LOOP:       "LOOP",
	UNTIL:      "UNTIL",
	IF:         "IF",
	THEN:       "THEN",
	ELSE:       "ELSE",
	ELSEIF:     "ELSEIF",
	END:        "END",
	SELECT:     "SELECT",
	CASE:       "CASE",
	GOTO:       "GOTO",
	GOSUB:      "GOSUB",
	ON:         "ON",
	RETURN:     "RETURN",
	EXIT:       "EXIT",
	PRINT:      "PRINT",
	READ:       "READ",
	DATA:       "DATA",
	RESTORE:    "RESTORE",
	COMMAND:    "COMMAND",
	AND:        "AND",
	OR:         "OR",
	XOR:        "XOR",
	NOT:        "NOT",
	MOD:        "MOD",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	STAR:       "STAR",
	SLASH:      "SLASH",
	EQUALS:     "EQUALS",
	NOT_EQ:     "NOT_EQ",
	LESS:       "LESS",
	GREATER:    "GREATER",
	LESS_EQ:    "LESS_EQ",
	GREATER_EQ: "GREATER_EQ",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	COMMA:      "COMMA",
	SEMICOLON:  "SEMICOLON",
	COLON:      "COLON",
}

var _ = [1]struct{}{}[len(tokenNames)-int(tokenTypeCount)]

func (t TokenType) String() string {
	if int(t) >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical unit. Line and Col are 1-based and relative to
// the page; Width is the length of the token in source runes.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Col    int
	Width  int
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d col %d", t.Type, t.Lexeme, t.Line, t.Col)
}
