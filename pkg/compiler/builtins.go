package compiler

import (
	"strings"

	"gbbasic/pkg/assets"
	"gbbasic/pkg/ast"
	"gbbasic/pkg/symbols"
)

// ArgKind is what a built-in statement expects in one argument position.
type ArgKind int

const (
	ArgNumber ArgKind = iota // any numeric expression
	ArgString                // string literal
	ArgTarget                // variable the kernel writes to
	ArgAsset                 // asset name or constant index
)

func (k ArgKind) String() string {
	switch k {
	case ArgNumber:
		return "number"
	case ArgString:
		return "string"
	case ArgTarget:
		return "variable"
	case ArgAsset:
		return "asset"
	}
	return "?"
}

// Arg is one argument slot. Asset is only meaningful for ArgAsset.
type Arg struct {
	Kind  ArgKind
	Asset assets.Kind
}

var (
	argNum    = Arg{Kind: ArgNumber}
	argStr    = Arg{Kind: ArgString}
	argTarget = Arg{Kind: ArgTarget}
)

func argAsset(k assets.Kind) Arg { return Arg{Kind: ArgAsset, Asset: k} }

// sysOpcode marks forms compiled to a dedicated opcode rather than SYS.
const sysOpcode = -1

// sysTab is the kernel routine behind PRINT's "," separator.
const sysTab = 0x04

// Form is one accepted shape of a built-in statement.
type Form struct {
	Sub    string // option keyword after the command, "" for none
	Args   []Arg
	Sys    int           // kernel routine id
	Record symbols.Usage // kernel record passed as a trailing argument
}

// Requirement is a hardware feature a built-in depends on.
type Requirement int

const (
	NeedsNothing Requirement = iota
	NeedsRTC
	NeedsSRAM
)

// Builtin describes a built-in statement.
type Builtin struct {
	Keyword string
	Node    ast.NodeType
	Forms   []Form
	Needs   Requirement
}

// Form finds the form selected by sub.
func (b *Builtin) Form(sub string) (*Form, bool) {
	for i := range b.Forms {
		if b.Forms[i].Sub == sub {
			return &b.Forms[i], true
		}
	}
	return nil, false
}

// HasSub reports whether word is one of the option keywords of b.
func (b *Builtin) HasSub(word string) bool {
	for _, f := range b.Forms {
		if f.Sub != "" && f.Sub == word {
			return true
		}
	}
	return false
}

var builtinList = []*Builtin{
	{Keyword: "LOCATE", Node: ast.LOCATE, Forms: []Form{{Args: []Arg{argNum, argNum}, Sys: sysOpcode}}},
	{Keyword: "CLS", Node: ast.CLS, Forms: []Form{{Sys: 0x01}}},
	{Keyword: "COLOR", Node: ast.COLOR, Forms: []Form{{Args: []Arg{argNum}, Sys: 0x02}}},
	{Keyword: "POKE", Node: ast.POKE, Forms: []Form{{Args: []Arg{argNum, argNum}, Sys: sysOpcode}}},
	{Keyword: "WAIT", Node: ast.WAIT, Forms: []Form{{Args: []Arg{argNum}, Sys: 0x03}}},
	{Keyword: "FILE", Node: ast.FILE, Needs: NeedsSRAM, Forms: []Form{
		{Sub: "READ", Args: []Arg{argNum, argTarget}, Sys: 0x10},
		{Sub: "WRITE", Args: []Arg{argNum, argNum}, Sys: 0x11},
	}},
	{Keyword: "SERIAL", Node: ast.SERIAL, Forms: []Form{
		{Sub: "SEND", Args: []Arg{argNum}, Sys: 0x12},
		{Sub: "RECV", Args: []Arg{argTarget}, Sys: 0x13},
	}},

	{Keyword: "PALETTE", Node: ast.PALETTE, Forms: []Form{{Args: []Arg{argNum, argNum, argNum, argNum, argNum}, Sys: 0x20}}},
	{Keyword: "TILE", Node: ast.TILE, Forms: []Form{{Args: []Arg{argAsset(assets.KindTiles), argNum, argNum, argNum}, Sys: 0x21}}},
	{Keyword: "MAP", Node: ast.MAP, Forms: []Form{{Args: []Arg{argAsset(assets.KindMap), argNum, argNum}, Sys: 0x22}}},
	{Keyword: "FONT", Node: ast.FONT, Forms: []Form{{Args: []Arg{argAsset(assets.KindFont)}, Sys: 0x23}}},
	{Keyword: "SPRITE", Node: ast.SPRITE, Forms: []Form{
		{Args: []Arg{argNum, argAsset(assets.KindTiles), argNum, argNum, argNum}, Sys: 0x24},
		{Sub: "ON", Sys: 0x25},
		{Sub: "OFF", Sys: 0x26},
	}},
	{Keyword: "SCENE", Node: ast.SCENE, Forms: []Form{{Args: []Arg{argAsset(assets.KindScene)}, Sys: 0x30}}},
	{Keyword: "ACTOR", Node: ast.ACTOR, Forms: []Form{
		{Args: []Arg{argNum, argAsset(assets.KindActor), argNum, argNum}, Sys: 0x31},
		{Sub: "MOVE", Args: []Arg{argNum, argNum, argNum}, Sys: 0x32},
		{Sub: "OFF", Args: []Arg{argNum}, Sys: 0x33},
	}},
	{Keyword: "EMOTE", Node: ast.EMOTE, Forms: []Form{{Args: []Arg{argNum, argNum}, Sys: 0x34}}},
	{Keyword: "PROJECTILE", Node: ast.PROJECTILE, Forms: []Form{{Args: []Arg{argNum, argNum, argNum, argNum}, Sys: 0x35}}},
	{Keyword: "TRIGGER", Node: ast.TRIGGER, Forms: []Form{
		{Args: []Arg{argNum, argNum, argNum, argNum, argNum}, Sys: 0x36},
		{Sub: "OFF", Args: []Arg{argNum}, Sys: 0x37},
	}},
	{Keyword: "WIDGET", Node: ast.WIDGET, Forms: []Form{
		{Sub: "ON", Sys: 0x40},
		{Sub: "OFF", Sys: 0x41},
	}},
	{Keyword: "MENU", Node: ast.MENU, Forms: []Form{{Args: []Arg{argStr, argTarget}, Sys: 0x42}}},
	{Keyword: "LABEL", Node: ast.LABEL_WIDGET, Forms: []Form{{Args: []Arg{argNum, argNum, argStr}, Sys: 0x43}}},
	{Keyword: "PROGRESS", Node: ast.PROGRESS_BAR, Forms: []Form{{Args: []Arg{argNum, argNum, argNum, argNum}, Sys: 0x44}}},

	{Keyword: "SOUND", Node: ast.SOUND, Forms: []Form{{Args: []Arg{argAsset(assets.KindSfx)}, Sys: 0x50}}},
	{Keyword: "PLAY", Node: ast.PLAY, Forms: []Form{{Args: []Arg{argAsset(assets.KindMusic)}, Sys: 0x51}}},
	{Keyword: "STOP", Node: ast.STOP, Forms: []Form{{Sys: 0x52}}},

	{Keyword: "TOUCH", Node: ast.TOUCH, Forms: []Form{
		{Sub: "ON", Sys: 0x60, Record: symbols.UsageTouch},
		{Sub: "OFF", Sys: 0x61},
	}},
	{Keyword: "VIEWPORT", Node: ast.VIEWPORT, Forms: []Form{
		{Args: []Arg{argNum, argNum, argNum, argNum}, Sys: 0x62, Record: symbols.UsageViewport},
	}},
	{Keyword: "RTC", Node: ast.RTC, Needs: NeedsRTC, Forms: []Form{
		{Sub: "READ", Args: []Arg{argTarget, argTarget, argTarget}, Sys: 0x70},
		{Sub: "WRITE", Args: []Arg{argNum, argNum, argNum}, Sys: 0x71},
	}},
}

// commands indexes builtinList by keyword.
var commands = func() map[string]*Builtin {
	out := make(map[string]*Builtin, len(builtinList))
	for _, b := range builtinList {
		out[b.Keyword] = b
	}
	return out
}()

// LookupCommand finds a built-in statement by keyword, in any case.
func LookupCommand(keyword string) (*Builtin, bool) {
	b, ok := commands[strings.ToUpper(keyword)]
	return b, ok
}

// records are the kernel-owned RAM blocks some built-ins need, by usage.
var records = map[symbols.Usage]struct {
	name string
	size int
}{
	symbols.UsageTouch:    {"#touch", 4},
	symbols.UsageViewport: {"#viewport", 8},
}

// Function is a built-in function, compiled to FN id, argc.
type Function struct {
	Name  string
	ID    int
	Arity int
	Fold  func(args []int) (int, bool) // nil when the result is only known at run time
}

var functionList = []*Function{
	{Name: "RND", ID: 0x01, Arity: 1},
	{Name: "ABS", ID: 0x02, Arity: 1, Fold: func(a []int) (int, bool) {
		if a[0] < 0 {
			return word(-a[0]), true
		}
		return a[0], true
	}},
	{Name: "SGN", ID: 0x03, Arity: 1, Fold: func(a []int) (int, bool) {
		switch {
		case a[0] < 0:
			return -1, true
		case a[0] > 0:
			return 1, true
		}
		return 0, true
	}},
	{Name: "MIN", ID: 0x04, Arity: 2, Fold: func(a []int) (int, bool) { return min(a[0], a[1]), true }},
	{Name: "MAX", ID: 0x05, Arity: 2, Fold: func(a []int) (int, bool) { return max(a[0], a[1]), true }},
	{Name: "PEEK", ID: 0x06, Arity: 1},
	{Name: "INKEY", ID: 0x07, Arity: 0},
	{Name: "BTN", ID: 0x08, Arity: 1},
	{Name: "TICKS", ID: 0x09, Arity: 0},
	{Name: "TOUCHX", ID: 0x0A, Arity: 0},
	{Name: "TOUCHY", ID: 0x0B, Arity: 0},
}

var functions = func() map[string]*Function {
	out := make(map[string]*Function, len(functionList))
	for _, f := range functionList {
		out[f.Name] = f
	}
	return out
}()

// LookupFunction finds a built-in function by name, in any case.
func LookupFunction(name string) (*Function, bool) {
	f, ok := functions[strings.ToUpper(name)]
	return f, ok
}
