package ast

import "fmt"

// NodeType tags every node kind of the language surface.
type NodeType int

const (
	INVALID_NODE NodeType = iota

	// Structure
	PROGRAM
	PAGE
	BLANK // empty line
	REM   // comment
	LABEL
	LINE_NUMBER

	// Control flow
	IF
	ELSE_IF
	ELSE
	SELECT
	CASE
	CASE_ELSE
	FOR
	WHILE
	DO
	GOTO
	GOSUB
	ON_GOTO
	ON_GOSUB
	RETURN
	EXIT
	END

	// Declarations
	CONST
	LET
	DIM
	DEF
	DEF_FN

	// I/O and general built-ins
	PRINT
	LOCATE
	CLS
	COLOR
	READ
	DATA
	RESTORE
	POKE
	WAIT
	FILE
	SERIAL

	// Graphics, sound and game objects
	PALETTE
	TILE
	MAP
	FONT
	SPRITE
	SCENE
	ACTOR
	EMOTE
	PROJECTILE
	TRIGGER
	WIDGET
	MENU
	LABEL_WIDGET
	PROGRESS_BAR
	SOUND
	PLAY
	STOP
	TOUCH
	VIEWPORT
	RTC

	// Expressions
	NUMBER
	STRING
	IDENTIFIER
	CALL
	UNARY
	BINARY

	nodeTypeCount
)

var nodeTypeNames = [...]string{
	INVALID_NODE: "INVALID",
	PROGRAM:      "PROGRAM",
	PAGE:         "PAGE",
	BLANK:        "BLANK",
	REM:          "REM",
	LABEL:        "LABEL",
	LINE_NUMBER:  "LINE_NUMBER",
	IF:           "IF",
	ELSE_IF:      "ELSE_IF",
	ELSE:         "ELSE",
	SELECT:       "SELECT",
	CASE:         "CASE",
	CASE_ELSE:    "CASE_ELSE",
	FOR:          "FOR",
	WHILE:        "WHILE",
	DO:           "DO",
	GOTO:         "GOTO",
	GOSUB:        "GOSUB",
	ON_GOTO:      "ON_GOTO",
	ON_GOSUB:     "ON_GOSUB",
	RETURN:       "RETURN",
	EXIT:         "EXIT",
	END:          "END",
	CONST:        "CONST",
	LET:          "LET",
	DIM:          "DIM",
	DEF:          "DEF",
	DEF_FN:       "DEF_FN",
	PRINT:        "PRINT",
	LOCATE:       "LOCATE",
	CLS:          "CLS",
	COLOR:        "COLOR",
	READ:         "READ",
	DATA:         "DATA",
	RESTORE:      "RESTORE",
	POKE:         "POKE",
	WAIT:         "WAIT",
	FILE:         "FILE",
	SERIAL:       "SERIAL",
	PALETTE:      "PALETTE",
	TILE:         "TILE",
	MAP:          "MAP",
	FONT:         "FONT",
	SPRITE:       "SPRITE",
	SCENE:        "SCENE",
	ACTOR:        "ACTOR",
	EMOTE:        "EMOTE",
	PROJECTILE:   "PROJECTILE",
	TRIGGER:      "TRIGGER",
	WIDGET:       "WIDGET",
	MENU:         "MENU",
	LABEL_WIDGET: "LABEL_WIDGET",
	PROGRESS_BAR: "PROGRESS_BAR",
	SOUND:        "SOUND",
	PLAY:         "PLAY",
	STOP:         "STOP",
	TOUCH:        "TOUCH",
	VIEWPORT:     "VIEWPORT",
	RTC:          "RTC",
	NUMBER:       "NUMBER",
	STRING:       "STRING",
	IDENTIFIER:   "IDENTIFIER",
	CALL:         "CALL",
	UNARY:        "UNARY",
	BINARY:       "BINARY",
}

// Fails to compile when a NodeType is missing from nodeTypeNames.
var _ = [1]struct{}{}[len(nodeTypeNames)-int(nodeTypeCount)]

func (t NodeType) String() string {
	if int(t) >= 0 && int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// IsMeaningless reports filler node types that pattern matching skips by default.
func IsMeaningless(t NodeType) bool {
	return t == BLANK || t == REM
}

// IsExpression reports whether t is an expression node type.
func IsExpression(t NodeType) bool {
	return t >= NUMBER && t < nodeTypeCount
}

// IsBuiltin reports whether t is a built-in command handled by a Command node.
func IsBuiltin(t NodeType) bool {
	return (t >= LOCATE && t <= COLOR) || (t >= POKE && t <= RTC)
}

// IsBlock reports node types that own an ordered statement body.
func IsBlock(t NodeType) bool {
	switch t {
	case PAGE, IF, ELSE_IF, ELSE, SELECT, CASE, CASE_ELSE, FOR, WHILE, DO:
		return true
	}
	return false
}
