package ast

import (
	"fmt"
	"strconv"
	"strings"

	"gbbasic/pkg/loc"
)

//  Structure

// Program is the root: one Page per source page.
type Program struct {
	Pages []*Page
	Pos   loc.Range
	m     memo
}

func (*Program) Type() NodeType { return PROGRAM }
func (n *Program) Children() []Node {
	return n.m.children(func() []Node {
		out := make([]Node, 0, len(n.Pages))
		for _, p := range n.Pages {
			out = append(out, p)
		}
		return out
	})
}
func (n *Program) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Program) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("pages=%d", len(n.Pages)) })
}
func (n *Program) Dump() string { return n.m.rendered(n) }

// Page is one independently parsed source page.
type Page struct {
	Index int
	Body  []Node
	Pos   loc.Range
	m     memo
}

func (*Page) Type() NodeType         { return PAGE }
func (n *Page) Children() []Node     { return n.m.children(func() []Node { return concat(n.Body) }) }
func (n *Page) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Page) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("#%d", n.Index+1) })
}
func (n *Page) Dump() string { return n.m.rendered(n) }

// Blank is an empty source line.
type Blank struct {
	Pos loc.Range
	m   memo
}

func (*Blank) Type() NodeType         { return BLANK }
func (n *Blank) Children() []Node     { return nil }
func (n *Blank) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Blank) Abstract() string     { return "" }
func (n *Blank) Dump() string         { return n.m.rendered(n) }

// Rem is a comment.
//
//	REM hello
//	' hello
type Rem struct {
	Text string
	Pos  loc.Range
	m    memo
}

func (*Rem) Type() NodeType         { return REM }
func (n *Rem) Children() []Node     { return nil }
func (n *Rem) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Rem) Abstract() string     { return "" }
func (n *Rem) Dump() string         { return n.m.rendered(n) }

// Label marks a jump target: either a line number or "name:".
type Label struct {
	Name     string // canonical name, empty for line numbers
	Number   int
	Numbered bool
	Pos      loc.Range
	m        memo
}

func (n *Label) Type() NodeType {
	if n.Numbered {
		return LINE_NUMBER
	}
	return LABEL
}
func (n *Label) Children() []Node     { return nil }
func (n *Label) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Label) Abstract() string {
	return n.m.signature(func() string {
		if n.Numbered {
			return strconv.Itoa(n.Number)
		}
		return n.Name
	})
}
func (n *Label) Dump() string { return n.m.rendered(n) }

// Key is the global symbol of the label.
func (n *Label) Key() string { return LabelKey(n.Name, n.Number, n.Numbered) }

// LabelKey names a jump target the same way for labels and jumps.
func LabelKey(name string, number int, numbered bool) string {
	if numbered {
		return "N" + strconv.Itoa(number)
	}
	return "L_" + name
}

//  Declarations

// Const declares a compile-time constant.
//
//	CONST SPEED = 3
type Const struct {
	Name  string
	Value Node
	Pos   loc.Range
	m     memo
}

func (*Const) Type() NodeType         { return CONST }
func (n *Const) Children() []Node     { return n.m.children(func() []Node { return list(n.Value) }) }
func (n *Const) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Const) Abstract() string     { return n.m.signature(func() string { return n.Name }) }
func (n *Const) Dump() string         { return n.m.rendered(n) }

// Let assigns a variable or an array element.
//
//	LET x = 1
//	a(3) = x + 1
type Let struct {
	Name     string
	Index    []Node // element indices, empty for scalars
	Value    Node
	Explicit bool // written with the LET keyword
	Pos      loc.Range
	m        memo
}

func (*Let) Type() NodeType { return LET }
func (n *Let) Children() []Node {
	return n.m.children(func() []Node { return concat(n.Index, []Node{n.Value}) })
}
func (n *Let) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Let) Abstract() string {
	return n.m.signature(func() string {
		if len(n.Index) > 0 {
			return fmt.Sprintf("%s(%d)", n.Name, len(n.Index))
		}
		return n.Name
	})
}
func (n *Let) Dump() string { return n.m.rendered(n) }

// Dim declares an array.
//
//	DIM grid(3, 4)
type Dim struct {
	Name string
	Dims []Node
	Pos  loc.Range
	m    memo
}

func (*Dim) Type() NodeType         { return DIM }
func (n *Dim) Children() []Node     { return n.m.children(func() []Node { return concat(n.Dims) }) }
func (n *Dim) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Dim) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("%s/%d", n.Name, len(n.Dims)) })
}
func (n *Dim) Dump() string { return n.m.rendered(n) }

// Def declares an alias of another identifier.
//
//	DEF hp = player_health
type Def struct {
	Name   string
	Target string
	Pos    loc.Range
	m      memo
}

func (*Def) Type() NodeType         { return DEF }
func (n *Def) Children() []Node     { return nil }
func (n *Def) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Def) Abstract() string {
	return n.m.signature(func() string { return n.Name + " -> " + n.Target })
}
func (n *Def) Dump() string { return n.m.rendered(n) }

// DefFn declares an inline function macro.
//
//	DEF FN sq(x) = x * x
type DefFn struct {
	Name   string
	Params []string
	Body   Node
	Pos    loc.Range
	m      memo
}

func (*DefFn) Type() NodeType         { return DEF_FN }
func (n *DefFn) Children() []Node     { return n.m.children(func() []Node { return list(n.Body) }) }
func (n *DefFn) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *DefFn) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("%s/%d", n.Name, len(n.Params)) })
}
func (n *DefFn) Dump() string { return n.m.rendered(n) }

//  Control flow

// For is a counted loop closed by NEXT.
//
//	FOR i = 1 TO 10 STEP 2 ... NEXT i
type For struct {
	Var            string
	From, To, Step Node // Step may be nil
	Body           []Node
	NextVar        string
	Pos            loc.Range
	m              memo
}

func (*For) Type() NodeType { return FOR }
func (n *For) Children() []Node {
	return n.m.children(func() []Node { return concat([]Node{n.From, n.To, n.Step}, n.Body) })
}
func (n *For) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *For) Abstract() string     { return n.m.signature(func() string { return n.Var }) }
func (n *For) Dump() string         { return n.m.rendered(n) }

// While loops while Cond holds.
//
//	WHILE x < 10 ... WEND
type While struct {
	Cond Node
	Body []Node
	Pos  loc.Range
	m    memo
}

func (*While) Type() NodeType { return WHILE }
func (n *While) Children() []Node {
	return n.m.children(func() []Node { return concat([]Node{n.Cond}, n.Body) })
}
func (n *While) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *While) Abstract() string     { return "" }
func (n *While) Dump() string         { return n.m.rendered(n) }

// Do is DO ... LOOP with an optional WHILE/UNTIL condition at either end.
type Do struct {
	Cond  Node // nil loops forever
	Until bool
	AtTop bool // condition written after DO rather than after LOOP
	Body  []Node
	Pos   loc.Range
	m     memo
}

func (*Do) Type() NodeType { return DO }
func (n *Do) Children() []Node {
	return n.m.children(func() []Node {
		if n.AtTop {
			return concat([]Node{n.Cond}, n.Body)
		}
		return concat(n.Body, []Node{n.Cond})
	})
}
func (n *Do) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Do) Abstract() string {
	return n.m.signature(func() string {
		switch {
		case n.Cond == nil:
			return "forever"
		case n.Until:
			return "until"
		}
		return "while"
	})
}
func (n *Do) Dump() string { return n.m.rendered(n) }

// If holds one IF branch, any number of ELSE IF branches and an optional ELSE.
type If struct {
	Branches []*Branch
	Inline   bool // single-line IF ... THEN ... [ELSE ...]
	Pos      loc.Range
	m        memo
}

func (*If) Type() NodeType { return IF }
func (n *If) Children() []Node {
	return n.m.children(func() []Node {
		out := make([]Node, 0, len(n.Branches))
		for _, b := range n.Branches {
			out = append(out, b)
		}
		return out
	})
}
func (n *If) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *If) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("branches=%d", len(n.Branches)) })
}
func (n *If) Dump() string { return n.m.rendered(n) }

// Branch is one arm of an If. Kind is IF, ELSE_IF or ELSE; Cond is nil for ELSE.
type Branch struct {
	Kind NodeType
	Cond Node
	Body []Node
	Pos  loc.Range
	m    memo
}

func (n *Branch) Type() NodeType {
	if n.Kind == INVALID_NODE {
		return IF
	}
	return n.Kind
}
func (n *Branch) Children() []Node {
	return n.m.children(func() []Node { return concat([]Node{n.Cond}, n.Body) })
}
func (n *Branch) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Branch) Abstract() string     { return "" }
func (n *Branch) Dump() string         { return n.m.rendered(n) }

// SelectCase is SELECT CASE subject ... END SELECT.
type SelectCase struct {
	Subject Node
	Cases   []*Case
	Pos     loc.Range
	m       memo
}

func (*SelectCase) Type() NodeType { return SELECT }
func (n *SelectCase) Children() []Node {
	return n.m.children(func() []Node {
		out := list(n.Subject)
		for _, c := range n.Cases {
			out = append(out, c)
		}
		return out
	})
}
func (n *SelectCase) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *SelectCase) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("cases=%d", len(n.Cases)) })
}
func (n *SelectCase) Dump() string { return n.m.rendered(n) }

// Case is one arm of a SelectCase; Values is empty for CASE ELSE.
type Case struct {
	Values []Node
	Else   bool
	Body   []Node
	Pos    loc.Range
	m      memo
}

func (n *Case) Type() NodeType {
	if n.Else {
		return CASE_ELSE
	}
	return CASE
}
func (n *Case) Children() []Node {
	return n.m.children(func() []Node { return concat(n.Values, n.Body) })
}
func (n *Case) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Case) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("values=%d", len(n.Values)) })
}
func (n *Case) Dump() string { return n.m.rendered(n) }

// Jump is GOTO or GOSUB to a label or line number.
type Jump struct {
	Gosub    bool
	Name     string
	Number   int
	Numbered bool
	Pos      loc.Range
	m        memo
}

func (n *Jump) Type() NodeType {
	if n.Gosub {
		return GOSUB
	}
	return GOTO
}
func (n *Jump) Children() []Node     { return nil }
func (n *Jump) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Jump) Abstract() string     { return n.m.signature(func() string { return n.Target() }) }
func (n *Jump) Dump() string         { return n.m.rendered(n) }

// Target is the printable jump target.
func (n *Jump) Target() string {
	if n.Numbered {
		return strconv.Itoa(n.Number)
	}
	return n.Name
}

// Key is the global symbol of the target label.
func (n *Jump) Key() string { return LabelKey(n.Name, n.Number, n.Numbered) }

// OnJump is ON selector GOTO|GOSUB t1, t2, ...
type OnJump struct {
	Gosub    bool
	Selector Node
	Targets  []*Jump
	Pos      loc.Range
	m        memo
}

func (n *OnJump) Type() NodeType {
	if n.Gosub {
		return ON_GOSUB
	}
	return ON_GOTO
}
func (n *OnJump) Children() []Node {
	return n.m.children(func() []Node {
		out := list(n.Selector)
		for _, t := range n.Targets {
			out = append(out, t)
		}
		return out
	})
}
func (n *OnJump) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *OnJump) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("targets=%d", len(n.Targets)) })
}
func (n *OnJump) Dump() string { return n.m.rendered(n) }

// Keyword is a statement with no operands: RETURN, END or EXIT.
// Arg carries the loop kind for EXIT (FOR, WHILE, DO).
type Keyword struct {
	Kind NodeType
	Arg  string
	Pos  loc.Range
	m    memo
}

func (n *Keyword) Type() NodeType       { return n.Kind }
func (n *Keyword) Children() []Node     { return nil }
func (n *Keyword) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Keyword) Abstract() string     { return n.Arg }
func (n *Keyword) Dump() string         { return n.m.rendered(n) }

//  I/O

// Print writes its items; Separators[i] follows Items[i] (";" or ",").
// A trailing separator suppresses the newline.
type Print struct {
	Items      []Node
	Separators []string
	Pos        loc.Range
	m          memo
}

func (*Print) Type() NodeType         { return PRINT }
func (n *Print) Children() []Node     { return n.m.children(func() []Node { return concat(n.Items) }) }
func (n *Print) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Print) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("items=%d", len(n.Items)) })
}
func (n *Print) Dump() string { return n.m.rendered(n) }

// Newline reports whether the statement ends with a line break.
func (n *Print) Newline() bool {
	return len(n.Separators) < len(n.Items) || len(n.Items) == 0
}

// Read fills variables or array elements from DATA.
type Read struct {
	Targets []Node // *Ident or *Call
	Pos     loc.Range
	m       memo
}

func (*Read) Type() NodeType         { return READ }
func (n *Read) Children() []Node     { return n.m.children(func() []Node { return concat(n.Targets) }) }
func (n *Read) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Read) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("targets=%d", len(n.Targets)) })
}
func (n *Read) Dump() string { return n.m.rendered(n) }

// Data lists constant values consumed by READ.
type Data struct {
	Values []Node
	Pos    loc.Range
	m      memo
}

func (*Data) Type() NodeType         { return DATA }
func (n *Data) Children() []Node     { return n.m.children(func() []Node { return concat(n.Values) }) }
func (n *Data) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Data) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("values=%d", len(n.Values)) })
}
func (n *Data) Dump() string { return n.m.rendered(n) }

// Restore rewinds the READ pointer, optionally to the DATA after a label.
type Restore struct {
	Target *Jump // nil rewinds to the first DATA
	Pos    loc.Range
	m      memo
}

func (*Restore) Type() NodeType { return RESTORE }
func (n *Restore) Children() []Node {
	return n.m.children(func() []Node {
		if n.Target == nil {
			return nil
		}
		return []Node{n.Target}
	})
}
func (n *Restore) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Restore) Abstract() string     { return "" }
func (n *Restore) Dump() string         { return n.m.rendered(n) }

// Command is any built-in statement: LOCATE, CLS, SPRITE, SCENE, PLAY, ...
// Sub holds an option keyword that follows the command (ON, OFF, READ, ...).
type Command struct {
	Kind    NodeType
	Keyword string
	Sub     string
	Args    []Node
	Pos     loc.Range
	m       memo
}

func (n *Command) Type() NodeType       { return n.Kind }
func (n *Command) Children() []Node     { return n.m.children(func() []Node { return concat(n.Args) }) }
func (n *Command) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Command) Abstract() string {
	return n.m.signature(func() string {
		if n.Sub != "" {
			return fmt.Sprintf("%s/%d", n.Sub, len(n.Args))
		}
		return fmt.Sprintf("/%d", len(n.Args))
	})
}
func (n *Command) Dump() string { return n.m.rendered(n) }

//  Expressions

// Number is an integer literal.
type Number struct {
	Value int
	Pos   loc.Range
	m     memo
}

func (*Number) Type() NodeType         { return NUMBER }
func (n *Number) Children() []Node     { return nil }
func (n *Number) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Number) Abstract() string {
	return n.m.signature(func() string { return strconv.Itoa(n.Value) })
}
func (n *Number) Dump() string { return n.m.rendered(n) }

// String is a string literal.
type String struct {
	Value string
	Pos   loc.Range
	m     memo
}

func (*String) Type() NodeType         { return STRING }
func (n *String) Children() []Node     { return nil }
func (n *String) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *String) Abstract() string {
	return n.m.signature(func() string { return strconv.Quote(n.Value) })
}
func (n *String) Dump() string { return n.m.rendered(n) }

// Ident is a bare identifier. Name is canonical (case-folded when the parser
// is case-insensitive), Raw is the source spelling.
type Ident struct {
	Name string
	Raw  string
	Pos  loc.Range
	m    memo
}

func (*Ident) Type() NodeType         { return IDENTIFIER }
func (n *Ident) Children() []Node     { return nil }
func (n *Ident) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Ident) Abstract() string     { return n.Name }
func (n *Ident) Dump() string         { return n.m.rendered(n) }

// Call is name(args): an array element, a DEF FN call or a built-in function.
type Call struct {
	Name string
	Raw  string
	Args []Node
	Pos  loc.Range
	m    memo
}

func (*Call) Type() NodeType         { return CALL }
func (n *Call) Children() []Node     { return n.m.children(func() []Node { return concat(n.Args) }) }
func (n *Call) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Call) Abstract() string {
	return n.m.signature(func() string { return fmt.Sprintf("%s/%d", n.Name, len(n.Args)) })
}
func (n *Call) Dump() string { return n.m.rendered(n) }

// Unary is -x or NOT x.
type Unary struct {
	Op  string
	X   Node
	Pos loc.Range
	m   memo
}

func (*Unary) Type() NodeType         { return UNARY }
func (n *Unary) Children() []Node     { return n.m.children(func() []Node { return list(n.X) }) }
func (n *Unary) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Unary) Abstract() string     { return n.Op }
func (n *Unary) Dump() string         { return n.m.rendered(n) }

// Binary is L Op R. Op is the upper-case operator text (+, -, MOD, AND, <=, ...).
type Binary struct {
	Op   string
	L, R Node
	Pos  loc.Range
	m    memo
}

func (*Binary) Type() NodeType         { return BINARY }
func (n *Binary) Children() []Node     { return n.m.children(func() []Node { return list(n.L, n.R) }) }
func (n *Binary) Location() loc.Range { return n.m.location(n, n.Pos) }
func (n *Binary) Abstract() string     { return n.Op }
func (n *Binary) Dump() string         { return n.m.rendered(n) }

// Source renders an expression back to BASIC-like text, for messages.
func Source(n Node) string {
	switch e := n.(type) {
	case nil:
		return ""
	case *Number:
		return strconv.Itoa(e.Value)
	case *String:
		return strconv.Quote(e.Value)
	case *Ident:
		if e.Raw != "" {
			return e.Raw
		}
		return e.Name
	case *Call:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = Source(a)
		}
		name := e.Raw
		if name == "" {
			name = e.Name
		}
		return name + "(" + strings.Join(args, ", ") + ")"
	case *Unary:
		if e.Op == "NOT" {
			return "NOT " + Source(e.X)
		}
		return e.Op + Source(e.X)
	case *Binary:
		return "(" + Source(e.L) + " " + e.Op + " " + Source(e.R) + ")"
	}
	return n.Type().String()
}
