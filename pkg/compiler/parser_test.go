package compiler

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"gbbasic/pkg/ast"
	"gbbasic/pkg/loc"
)

func parse(t *testing.T, src string) *ast.Page {
	t.Helper()
	page, err := ParsePage(src, ParseConfig{AutoLineNumber: true})
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	return page
}

func nodeTypes(nodes []ast.Node) []ast.NodeType {
	out := make([]ast.NodeType, len(nodes))
	for i, n := range nodes {
		out[i] = n.Type()
	}
	return out
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []ast.NodeType
	}{
		{"NumberedLines", "10 PRINT \"HI\"; X\n20 GOTO 10\n", []ast.NodeType{ast.LINE_NUMBER, ast.PRINT, ast.LINE_NUMBER, ast.GOTO}},
		{"NamedLabel", "start: x = 1\nGOSUB start", []ast.NodeType{ast.LABEL, ast.LET, ast.GOSUB}},
		{"Separators", "a = 1: b = 2 ' done", []ast.NodeType{ast.LET, ast.LET, ast.REM}},
		{"BlankLines", "x = 1\n\n\ny = 2", []ast.NodeType{ast.LET, ast.BLANK, ast.BLANK, ast.LET}},
		{"Declarations", "CONST n = 4\nDIM a(n, 2)\nDEF p = a\nDEF FN sq(v) = v * v", []ast.NodeType{ast.CONST, ast.DIM, ast.DEF, ast.DEF_FN}},
		{"Loops", "FOR i = 1 TO 3\nNEXT\nWHILE x\nWEND\nDO\nLOOP UNTIL x", []ast.NodeType{ast.FOR, ast.WHILE, ast.DO}},
		{"Jumps", "ON x GOTO 10, 20\nON x GOSUB a\nRETURN\nEND", []ast.NodeType{ast.ON_GOTO, ast.ON_GOSUB, ast.RETURN, ast.END}},
		{"Data", "READ a, b(1)\nDATA 1, -2, \"three\"\nRESTORE\nRESTORE 10", []ast.NodeType{ast.READ, ast.DATA, ast.RESTORE, ast.RESTORE}},
		{"Commands", "CLS\nLOCATE 1, 2\nSPRITE ON\nPLAY \"theme\"", []ast.NodeType{ast.CLS, ast.LOCATE, ast.SPRITE, ast.PLAY}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page := parse(t, tc.src)
			if got := nodeTypes(page.Body); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestParseFor(t *testing.T) {
	page := parse(t, "FOR i = 1 TO 10 STEP 2\n  PRINT i\nNEXT i")
	f, ok := page.Body[0].(*ast.For)
	if !ok {
		t.Fatalf("expected *ast.For, got %T", page.Body[0])
	}
	if f.Var != "i" || f.NextVar != "i" || f.Step == nil {
		t.Errorf("unexpected loop header: %+v", f)
	}
	if got := nodeTypes(f.Body); !reflect.DeepEqual(got, []ast.NodeType{ast.PRINT}) {
		t.Errorf("body: got %v", got)
	}
	if got := f.Location(); got.Begin != loc.At(0, 0, 0) || got.End.Row != 2 {
		t.Errorf("location: got %v", got)
	}
}

func TestParseIf(t *testing.T) {
	t.Run("Inline", func(t *testing.T) {
		n := parse(t, "IF a THEN PRINT 1: PRINT 2 ELSE 100").Body[0].(*ast.If)
		if !n.Inline || len(n.Branches) != 2 {
			t.Fatalf("expected inline IF with 2 branches, got %+v", n)
		}
		if len(n.Branches[0].Body) != 2 {
			t.Errorf("THEN body: got %v", nodeTypes(n.Branches[0].Body))
		}
		jump, ok := n.Branches[1].Body[0].(*ast.Jump)
		if !ok || !jump.Numbered || jump.Number != 100 {
			t.Errorf("ELSE body: got %v", n.Branches[1].Body)
		}
	})

	t.Run("IfGoto", func(t *testing.T) {
		n := parse(t, "IF a > 1 GOTO done").Body[0].(*ast.If)
		jump := n.Branches[0].Body[0].(*ast.Jump)
		if jump.Name != "done" {
			t.Errorf("target: got %q", jump.Name)
		}
	})

	t.Run("Block", func(t *testing.T) {
		src := "IF a = 1 THEN\n  PRINT 1\nELSE IF a = 2 THEN\n  PRINT 2\nELSEIF a = 3 THEN\n  PRINT 3\nELSE\n  PRINT 0\nEND IF"
		n := parse(t, src).Body[0].(*ast.If)
		var kinds []ast.NodeType
		for _, b := range n.Branches {
			kinds = append(kinds, b.Kind)
		}
		want := []ast.NodeType{ast.IF, ast.ELSE_IF, ast.ELSE_IF, ast.ELSE}
		if !reflect.DeepEqual(kinds, want) {
			t.Errorf("expected %v, got %v", want, kinds)
		}
		if n.Inline {
			t.Error("block IF marked inline")
		}
	})
}

func TestParseSelect(t *testing.T) {
	src := "SELECT CASE x\n  ' pick\n  CASE 1, 2\n    PRINT 1\n  CASE ELSE\n    PRINT 0\nEND SELECT"
	n := parse(t, src).Body[0].(*ast.SelectCase)
	if len(n.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(n.Cases))
	}
	if len(n.Cases[0].Values) != 2 || n.Cases[0].Else {
		t.Errorf("first case: %+v", n.Cases[0])
	}
	if !n.Cases[1].Else {
		t.Errorf("second case should be CASE ELSE")
	}
}

func TestParseExpressions(t *testing.T) {
	value := func(src string) ast.Node {
		return parse(t, "x = "+src).Body[0].(*ast.Let).Value
	}

	t.Run("MultiplicationBindsTighter", func(t *testing.T) {
		b := value("1 + 2 * 3").(*ast.Binary)
		if b.Op != "+" {
			t.Fatalf("root op: got %q", b.Op)
		}
		if r, ok := b.R.(*ast.Binary); !ok || r.Op != "*" {
			t.Errorf("right operand: got %v", b.R)
		}
	})

	t.Run("LeftAssociative", func(t *testing.T) {
		b := value("8 - 4 - 2").(*ast.Binary)
		if l, ok := b.L.(*ast.Binary); !ok || l.Op != "-" {
			t.Errorf("left operand: got %v", b.L)
		}
	})

	t.Run("NotBelowComparison", func(t *testing.T) {
		u := value("NOT a = b").(*ast.Unary)
		if u.Op != "NOT" {
			t.Fatalf("op: got %q", u.Op)
		}
		if b, ok := u.X.(*ast.Binary); !ok || b.Op != "=" {
			t.Errorf("operand: got %v", u.X)
		}
	})

	t.Run("WordOperatorsUpperCased", func(t *testing.T) {
		b := value("a or b and c").(*ast.Binary)
		if b.Op != "OR" {
			t.Errorf("root op: got %q", b.Op)
		}
	})

	t.Run("UnaryMinus", func(t *testing.T) {
		b := value("-2 * 3").(*ast.Binary)
		if u, ok := b.L.(*ast.Unary); !ok || u.Op != "-" {
			t.Errorf("left operand: got %v", b.L)
		}
	})

	t.Run("Call", func(t *testing.T) {
		c := value("MAX(a, (b))").(*ast.Call)
		if c.Name != "max" || len(c.Args) != 2 {
			t.Errorf("got %+v", c)
		}
	})
}

func TestParseCaseFolding(t *testing.T) {
	page, err := ParsePage("Score = 1", ParseConfig{AutoLineNumber: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := page.Body[0].(*ast.Let).Name; got != "score" {
		t.Errorf("folded name: got %q", got)
	}
	page, err = ParsePage("Score = 1", ParseConfig{AutoLineNumber: true, CaseSensitive: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := page.Body[0].(*ast.Let).Name; got != "Score" {
		t.Errorf("case-sensitive name: got %q", got)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		src  string
		sub  string
		args int
	}{
		{"SPRITE ON", "ON", 0},
		{"ACTOR MOVE 1, 2, 3", "MOVE", 3},
		{"FILE READ 0, x", "READ", 2},
		{"LOCATE 1, 2", "", 2},
		{"TILE \"hero\", 0, 1, 2", "", 4},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			cmd := parse(t, tc.src).Body[0].(*ast.Command)
			if cmd.Sub != tc.sub || len(cmd.Args) != tc.args {
				t.Errorf("expected sub %q with %d args, got %q with %d", tc.sub, tc.args, cmd.Sub, len(cmd.Args))
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"NextWithoutFor", "NEXT i", "NEXT without FOR"},
		{"ForWithoutNext", "FOR i = 1 TO 2\nPRINT i", "FOR without NEXT"},
		{"NextMismatch", "FOR i = 1 TO 2\nNEXT j", "does not match"},
		{"WendWithoutWhile", "WEND", "WEND without WHILE"},
		{"WhileWithoutWend", "WHILE 1\nPRINT 1", "WHILE without WEND"},
		{"LoopWithoutDo", "LOOP", "LOOP without DO"},
		{"DoConditionTwice", "DO WHILE 1\nLOOP UNTIL 0", "both ends"},
		{"EndIfWithoutIf", "END IF", "END IF without IF"},
		{"IfWithoutEndIf", "IF a THEN\nPRINT 1", "without END IF"},
		{"ElseAfterElse", "IF a THEN\nELSE\nELSE\nEND IF", "duplicate ELSE"},
		{"CaseOutsideSelect", "CASE 1", "CASE outside SELECT CASE"},
		{"CaseAfterElse", "SELECT CASE x\nCASE ELSE\nCASE 1\nEND SELECT", "CASE after CASE ELSE"},
		{"StatementBeforeCase", "SELECT CASE x\nPRINT 1\nCASE 1\nEND SELECT", "before the first CASE"},
		{"DuplicateParameter", "DEF FN f(a, a) = a", "duplicate parameter"},
		{"UnclosedParen", "x = (1 + 2", "expected RPAREN"},
		{"MissingExpression", "x = ", "expected expression"},
		{"TrailingGarbage", "PRINT 1 2", "after statement"},
		{"ExitWithoutKind", "EXIT", "after EXIT"},
		{"ThreeDimensions", "DIM a(1, 2, 3)", "1 or 2 dimensions"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePage(tc.src, ParseConfig{Page: 3, AutoLineNumber: true})
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError, got %v", err)
			}
			if !strings.Contains(se.Msg, tc.want) {
				t.Errorf("expected %q in %q", tc.want, se.Msg)
			}
			if se.At.Page != 3 {
				t.Errorf("error page: got %d", se.At.Page)
			}
		})
	}
}

func TestParseLineNumberRequired(t *testing.T) {
	cfg := ParseConfig{}
	if _, err := ParsePage("10 PRINT 1\n' note\n20 END", cfg); err != nil {
		t.Fatalf("numbered program: %v", err)
	}
	_, err := ParsePage("10 PRINT 1\nPRINT 2", cfg)
	var se *SyntaxError
	if !errors.As(err, &se) || !strings.Contains(se.Msg, "line number required") {
		t.Fatalf("expected line number error, got %v", err)
	}
	if se.At.Row != 1 {
		t.Errorf("error row: got %d", se.At.Row)
	}
}

func TestParseIsRepeatable(t *testing.T) {
	src := "10 FOR i = 1 TO 3\n20 IF i = 2 THEN PRINT i ELSE PRINT 0\n30 NEXT\n40 GOSUB 60\n50 END\n60 RETURN"
	first := ast.Shape(parse(t, src))
	second := ast.Shape(parse(t, src))
	if first != second {
		t.Errorf("shapes differ:\n%s\n%s", first, second)
	}
}
