package compiler

import (
	"strings"
	"testing"

	"gbbasic/pkg/symbols"
)

// generateText compiles src up to GENERATE and returns the assembly of
// every object.
func generateText(t *testing.T, src string, modify func(o *Options)) (string, *collector, bool) {
	t.Helper()
	c := &collector{}
	p := newProgram(src)
	p.Assets = testBundle(t)
	opts := c.options()
	opts.Passes = PassGenerate
	if modify != nil {
		modify(&opts)
	}
	ok := Build(p, opts)
	return strings.Join(p.Compiled.Assembly, "\n"), c, ok
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		modify func(o *Options)
		want   []string
		absent []string
	}{
		{
			name: "ConstFolded",
			src:  "CONST n = 2 * 3\nPRINT n",
			want: []string{"    PUSH 6\n    PRINT"},
		},
		{
			name: "ConstVisibleAfterDeclaration",
			src:  "PRINT n\nCONST n = 5\nPRINT n",
			want: []string{"    LOAD 49152\n    PRINT", "    PUSH 5\n    PRINT"},
		},
		{
			name: "KernelAlias",
			src:  "PRINT ly",
			want: []string{"    LOAD 65348\n    PRINT"},
		},
		{
			name: "DefAliasesVariable",
			src:  "score = 1\nDEF s = score\nPRINT s",
			want: []string{"    STORE 49152", "    LOAD 49152\n    PRINT"},
		},
		{
			name: "DefFnInlined",
			src:  "DEF FN sq(v) = v * v\nPRINT sq(3)",
			want: []string{"    PUSH 3\n    PUSH 3\n    MUL\n    PRINT"},
		},
		{
			name:   "ParameterScopedToBody",
			src:    "DEF FN inc(v) = v + 1\nPRINT v",
			want:   []string{"    LOAD 49152\n    PRINT"},
			absent: []string{"ADD"},
		},
		{
			name: "ArrayElements",
			src:  "DIM a(3)\na(2) = 7\nPRINT a(2)",
			want: []string{"    PUSH 2\n    PUSH 7\n    STOREX 49152", "    PUSH 2\n    LOADX 49152"},
		},
		{
			name:   "ArrayIndexBaseOne",
			src:    "DIM a(3)\na(1) = 7",
			modify: func(o *Options) { o.Strategies.IndexBase = 1 },
			want:   []string{"    PUSH 1\n    PUSH 1\n    SUB\n    PUSH 7\n    STOREX 49152"},
		},
		{
			name: "BinaryOperators",
			src:  "x = 1\ny = x MOD 3 <> x",
			want: []string{"    LOAD 49152\n    PUSH 3\n    MOD\n    LOAD 49152\n    NE\n    STORE 49154"},
		},
		{
			name: "TwoDimensions",
			src:  "DIM g(1, 2)\ng(1, 2) = 5",
			want: []string{"    PUSH 1\n    PUSH 3\n    MUL\n    PUSH 2\n    ADD\n    PUSH 5\n    STOREX 49152"},
		},
		{
			name: "BuiltinFunction",
			src:  "PRINT ABS(-4)",
			want: []string{"    PUSH 4\n    NEG\n    FN 2, 1\n    PRINT"},
		},
		{
			name:   "PrintSeparators",
			src:    `PRINT "a", 1;`,
			want:   []string{"    PRINTS _S0\n    SYS 4, 0\n    PUSH 1\n    PRINT\n", `_S0: .STRING "a"`},
			absent: []string{"NEWLINE"},
		},
		{
			name: "Locate",
			src:  "LOCATE 1, 2",
			want: []string{"    PUSH 1\n    PUSH 2\n    LOCATE"},
		},
		{
			name: "Poke",
			src:  "POKE &HC800, 1",
			want: []string{"    PUSH 51200\n    PUSH 1\n    STOREB"},
		},
		{
			name: "SysCall",
			src:  "WAIT 10",
			want: []string{"    PUSH 10\n    SYS 3, 1"},
		},
		{
			name: "KernelRecord",
			src:  "TOUCH ON",
			want: []string{"    PUSH 49152\n    SYS 96, 1"},
		},
		{
			name: "ForLoop",
			src:  "FOR i = 1 TO 3\nNEXT",
			want: []string{
				"    PUSH 1\n    STORE 49152\n    PUSH 3\n    PUSH 1\n    FOR 49152, 49154\n_L0:",
				"    NEXT 49152, 49154, _L0\n_L1:",
			},
		},
		{
			name: "ReadData",
			src:  "READ a\nDATA 5",
			want: []string{"    RESTORE 49152, DATA_0", "    READ 49152\n    STORE 49154", "DATA_0:\n    .WORD 5"},
		},
		{
			name: "Gosub",
			src:  "GOSUB work\nEND\nwork: RETURN",
			want: []string{"    CALL L_work", "L_work:", "    RET"},
		},
		{
			name: "SelectCase",
			src:  "SELECT CASE x\nCASE 1\nPRINT 1\nEND SELECT",
			want: []string{"    DUP\n    PUSH 1\n    EQ\n    JNZ _L1\n    POP\n    JMP _L0"},
		},
		{
			name: "OnGoto",
			src:  "ON x GOTO 10, 20\n10 END\n20 END",
			want: []string{"    PUSH 2\n    EQ\n    JNZ _L2", "    POP\n    JMP N20"},
		},
		{
			name: "AssetByName",
			src:  `PLAY "theme"`,
			want: []string{"    PUSH 2\n    SYS 81, 1"},
		},
		{
			name: "AssetByIndex",
			src:  "PLAY 0",
			want: []string{"    PUSH 2\n    SYS 81, 1"},
		},
		{
			name: "AssetExpression",
			src:  "PLAY n",
			want: []string{"    LOAD 49152\n    PUSH 2\n    ADD\n    SYS 81, 1"},
		},
		{
			name:   "AssetExpressionIndexBaseOne",
			src:    "SOUND n",
			modify: func(o *Options) { o.Strategies.IndexBase = 1 },
			want:   []string{"    LOAD 49152\n    PUSH 2\n    ADD\n    SYS 80, 1"},
		},
		{
			name: "SceneWithOnePlayer",
			src:  `SCENE "start"`,
			want: []string{"    PUSH 7\n    SYS 48, 1"},
		},
		{
			name:   "LastPageHalts",
			src:    "PRINT 1",
			want:   []string{"    HALT"},
			absent: []string{"RESTORE"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text, c, ok := generateText(t, tc.src, tc.modify)
			if !ok {
				t.Fatalf("Build: %v", c.diags)
			}
			for _, w := range tc.want {
				if !strings.Contains(text, w) {
					t.Errorf("expected %q in\n%s", w, text)
				}
			}
			for _, a := range tc.absent {
				if strings.Contains(text, a) {
					t.Errorf("did not expect %q in\n%s", a, text)
				}
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		modify func(o *Options)
		want   string
	}{
		{"Arity", "LOCATE 1", nil, "LOCATE expects 2 argument(s), got 1"},
		{"MissingOption", "WIDGET", nil, "WIDGET needs one of the options ON, OFF"},
		{"NeedsRTC", "RTC READ h, m, s", nil, "requires a cartridge with a real-time clock"},
		{"NeedsSRAM", "FILE WRITE 1, 2", nil, "requires a cartridge with SRAM"},
		{"UnknownAsset", `PLAY "nope"`, nil, `unknown music asset "nope"`},
		{"AssetIndexRange", "PLAY 1", nil, "music index 1 out of range"},
		{"AssetIndexBaseOne", "PLAY 0", func(o *Options) { o.Strategies.IndexBase = 1 }, "music index 0 out of range"},
		{"TwoPlayers", `SCENE "duel"`, nil, "2 player actors"},
		{"StringArgument", "MENU 1, x", nil, "must be a string literal"},
		{"TargetArgument", "SERIAL RECV 1", nil, "must be a variable"},
		{"FunctionArity", "x = SGN(1, 2)", nil, "SGN expects 1 argument(s), got 2"},
		{"UnknownCall", "x = nothing(1)", nil, "is not a DIM'd array or a function"},
		{"ArrayWithoutIndex", "DIM a(2)\nx = a", nil, "array a needs an index"},
		{"ArrayDimensions", "DIM a(2)\nx = a(1, 1)", nil, "array a has 1 dimension(s), got 2 index(es)"},
		{"AssignConstant", "CONST k = 1\nk = 2", nil, "cannot assign to constant k"},
		{"ConstNeedsValue", "CONST k = y", nil, "CONST k needs a constant value"},
		{"DimNeedsConstant", "DIM a(n)", nil, "array size must be constant"},
		{"DimTwice", "DIM a(2)\nDIM a(3)", nil, "a is already declared"},
		{"ExitOutsideLoop", "EXIT FOR", nil, "EXIT FOR outside a FOR loop"},
		{"ExitWrongLoop", "WHILE 1\nEXIT DO\nWEND", nil, "EXIT DO outside a DO loop"},
		{"StringInExpression", `PRINT "a" + 1`, nil, "is not allowed in an expression"},
		{"DuplicateLabel", "10 PRINT 1\n10 PRINT 2", nil, "label 10 already defined"},
		{"RestoreUndefined", "RESTORE done\nDATA 1", nil, "RESTORE to undefined label done"},
		{"RestorePastData", "DATA 1\ndone: RESTORE done", nil, "no DATA after label done"},
		{"ReadWithoutData", "READ x", nil, "READ without any DATA"},
		{"RecursiveFn", "DEF FN f(v) = f(v)", nil, "DEF FN f calls itself"},
		{"FnArity", "DEF FN f(v) = v\nPRINT f(1, 2)", nil, "DEF FN f expects 1 argument(s), got 2"},
		{"ShadowBuiltin", "DIM abs(2)", nil, "is a built-in function"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, c, ok := generateText(t, tc.src, tc.modify)
			if ok {
				t.Fatalf("expected %q, the build succeeded", tc.want)
			}
			if !c.has(tc.want) {
				t.Errorf("expected %q in %v", tc.want, c.diags)
			}
		})
	}
}

func TestHardwareFeatures(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		modify func(o *Options)
	}{
		{"RTC", "RTC READ h, m, s", func(o *Options) { o.Strategies.RTC = true }},
		{"SRAM", "FILE WRITE 1, 2", func(o *Options) { o.Strategies.SRAMType = SRAM8K }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, c, ok := generateText(t, tc.src, tc.modify); !ok {
				t.Errorf("Build: %v", c.diags)
			}
		})
	}
}

func TestDeclarationRequired(t *testing.T) {
	required := func(o *Options) { o.Strategies.DeclarationRequired = true }
	tests := []struct {
		name string
		src  string
		want string // empty when the program is valid
	}{
		{"UndeclaredRead", "PRINT y", "unresolved reference y"},
		{"ImplicitAssignment", "y = 1", "unresolved reference y"},
		{"UndeclaredReadTarget", "READ y\nDATA 1", "unresolved reference y"},
		{"ExplicitLet", "LET y = 1\nPRINT y", ""},
		{"Dim", "DIM a(2)\na(1) = 3\nPRINT a(1)", ""},
		{"ForDeclares", "FOR i = 1 TO 2\nNEXT", ""},
		{"Const", "CONST k = 1\nPRINT k", ""},
		{"KernelAlias", "PRINT ly", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, c, ok := generateText(t, tc.src, required)
			if tc.want == "" {
				if !ok {
					t.Errorf("Build: %v", c.diags)
				}
				return
			}
			if ok || !c.has(tc.want) {
				t.Errorf("expected %q, got ok=%v %v", tc.want, ok, c.diags)
			}
		})
	}
}

func TestFailOnError(t *testing.T) {
	src := "PRINT a\nPRINT b"
	for _, tc := range []struct {
		fail bool
		want int
	}{{false, 2}, {true, 1}} {
		_, c, ok := generateText(t, src, func(o *Options) {
			o.Strategies.DeclarationRequired = true
			o.Strategies.FailOnError = tc.fail
		})
		if ok {
			t.Fatal("expected the build to fail")
		}
		if got := len(c.errors()); got != tc.want {
			t.Errorf("FailOnError=%v: expected %d error(s), got %v", tc.fail, tc.want, c.errors())
		}
	}
}

func TestCaseSensitive(t *testing.T) {
	text, c, ok := generateText(t, "Score = 1\nscore = 2\nPRINT Score", func(o *Options) {
		o.Strategies.CaseSensitive = true
	})
	if !ok {
		t.Fatalf("Build: %v", c.diags)
	}
	if !strings.Contains(text, "    STORE 49154") || !strings.Contains(text, "    LOAD 49152") {
		t.Errorf("expected two variables in\n%s", text)
	}

	text, c, ok = generateText(t, "Score = 1\nscore = 2\nPRINT Score", nil)
	if !ok {
		t.Fatalf("Build: %v", c.diags)
	}
	if strings.Contains(text, "49154") {
		t.Errorf("expected one folded variable in\n%s", text)
	}
}

func TestKernelAliases(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"TopLevel", "ly = 5\nPRINT ly", []string{"    STORE 65348", "    LOAD 65348\n    PRINT"}},
		{"AfterLeadingFor", "FOR i = 1 TO 2\nNEXT\nLY = 5\nPRINT LY", []string{"    STORE 65348", "    LOAD 65348\n    PRINT"}},
		{"AfterLeadingIf", "IF 1 THEN\nPRINT 1\nEND IF\nPRINT ly", []string{"    LOAD 65348\n    PRINT"}},
		{"InsideWhile", "WHILE 1\nPRINT ly\nWEND", []string{"    LOAD 65348\n    PRINT"}},
		{"AfterLeadingSelect", "SELECT CASE 1\nCASE 1\nPRINT 1\nEND SELECT\nly = 2", []string{"    STORE 65348"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &collector{}
			p := newProgram(tc.src)
			opts := c.options()
			opts.Passes = PassGenerate
			if !Build(p, opts) {
				t.Fatalf("Build failed: %v", c.diags)
			}
			text := strings.Join(p.Compiled.Assembly, "\n")
			for _, w := range tc.want {
				if !strings.Contains(text, w) {
					t.Errorf("expected %q in:\n%s", w, text)
				}
			}
			if _, ok := p.Compiled.Allocations.Get("ly"); ok {
				t.Error("kernel alias must not take a heap variable")
			}
		})
	}
}

func TestLoopRecords(t *testing.T) {
	records := func(t *testing.T, src string) (outer, inner symbols.RamLocation) {
		t.Helper()
		c := &collector{}
		p := newProgram(src)
		opts := c.options()
		opts.Passes = PassGenerate
		if !Build(p, opts) {
			t.Fatalf("Build failed: %v", c.diags)
		}
		var ok1, ok2 bool
		outer, ok1 = p.Compiled.Allocations.Get("i#loop0")
		inner, ok2 = p.Compiled.Allocations.Get("j#loop1")
		if !ok1 || !ok2 {
			t.Fatalf("missing loop records in %s", p.Compiled.Allocations)
		}
		return outer, inner
	}

	t.Run("SiblingsShare", func(t *testing.T) {
		a, b := records(t, "FOR i = 1 TO 2\nNEXT i\nFOR j = 1 TO 2\nNEXT j")
		if a.Address != b.Address {
			t.Errorf("sequential loops should reuse one record: 0x%04X and 0x%04X", a.Address, b.Address)
		}
	})

	t.Run("SubroutineLoopKeepsCallerRecord", func(t *testing.T) {
		a, b := records(t, "FOR i = 1 TO 2\nGOSUB work\nNEXT i\nEND\nwork: FOR j = 1 TO 2\nNEXT j\nRETURN")
		if a.Address < b.End() && b.Address < a.End() {
			t.Errorf("records overlap: 0x%04X..0x%04X and 0x%04X..0x%04X", a.Address, a.End(), b.Address, b.End())
		}
	})

	t.Run("OnGosubKeepsCallerRecord", func(t *testing.T) {
		a, b := records(t, "FOR i = 1 TO 2\nON i GOSUB work\nNEXT i\nEND\nwork: FOR j = 1 TO 2\nNEXT j\nRETURN")
		if a.Address < b.End() && b.Address < a.End() {
			t.Errorf("records overlap: 0x%04X..0x%04X and 0x%04X..0x%04X", a.Address, a.End(), b.Address, b.End())
		}
	})
}
