package compiler

import (
	"reflect"
	"testing"

	"gbbasic/pkg/loc"
)

func asmLines(text ...string) []asmLine {
	out := make([]asmLine, len(text))
	for i, s := range text {
		out[i] = asmLine{text: s, at: loc.At(0, i, 0)}
	}
	return out
}

func texts(lines []asmLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

func TestOptimize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			"FoldBinary",
			[]string{"    PUSH 2", "    PUSH 3", "    MUL", "    STORE 10"},
			[]string{"    PUSH 6", "    STORE 10"},
		},
		{
			"FoldChain",
			[]string{"    PUSH 1", "    PUSH 2", "    ADD", "    PUSH 3", "    MUL"},
			[]string{"    PUSH 9"},
		},
		{
			"FoldAcrossComments",
			[]string{"    PUSH 5", "; note", "    NEG"},
			[]string{"    PUSH -5", "; note"},
		},
		{
			"WrapToWord",
			[]string{"    PUSH 32767", "    PUSH 1", "    ADD"},
			[]string{"    PUSH -32768"},
		},
		{
			"ComparisonIsAllOnes",
			[]string{"    PUSH 1", "    PUSH 1", "    EQ"},
			[]string{"    PUSH -1"},
		},
		{
			"KeepDivisionByZero",
			[]string{"    PUSH 1", "    PUSH 0", "    DIV"},
			[]string{"    PUSH 1", "    PUSH 0", "    DIV"},
		},
		{
			"NoFoldAcrossLabel",
			[]string{"    PUSH 1", "_L0:", "    PUSH 2", "    ADD"},
			[]string{"    PUSH 1", "_L0:", "    PUSH 2", "    ADD"},
		},
		{
			"NoFoldOfLabelOperand",
			[]string{"    PUSH _S0", "    PUSH 1", "    ADD"},
			[]string{"    PUSH _S0", "    PUSH 1", "    ADD"},
		},
		{
			"BranchAlwaysTaken",
			[]string{"    PUSH 0", "    JZ _L1", "    PRINT", "_L1:", "    HALT"},
			[]string{"_L1:", "    HALT"},
		},
		{
			"BranchNeverTaken",
			[]string{"    PUSH -1", "    JZ _L1", "    PRINT", "_L1:"},
			[]string{"    PRINT", "_L1:"},
		},
		{
			"UnreachableAfterReturn",
			[]string{"    RET", "    PUSH 1", "    PRINT", "; next", "N20:", "    RET"},
			[]string{"    RET", "N20:", "    RET"},
		},
		{
			"DataSurvivesDeadCode",
			[]string{"    HALT", `_S0: .STRING "hi"`, "_L0:"},
			[]string{"    HALT", `_S0: .STRING "hi"`, "_L0:"},
		},
		{
			"JumpToNextLabel",
			[]string{"    JMP _L2", "; gap", "_L2:", "    NOP"},
			[]string{"_L2:", "    NOP"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := texts(optimize(asmLines(tc.in...)))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestOptimizeKeepsLocations(t *testing.T) {
	lines := asmLines("    PUSH 2", "    PUSH 3", "    ADD")
	lines[0].at = loc.At(1, 4, 2)
	got := optimize(lines)
	if len(got) != 1 || got[0].at != loc.At(1, 4, 2) {
		t.Errorf("expected the folded push to keep its location, got %+v", got)
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		op   string
		a, b int
		want int
		ok   bool
	}{
		{"+", 1, 2, 3, true},
		{"-", 0, 1, -1, true},
		{"*", 300, 300, 24464, true},
		{"/", 7, 2, 3, true},
		{"/", -7, 2, -3, true},
		{"MOD", -7, 2, -1, true},
		{"/", 1, 0, 0, false},
		{"MOD", 1, 0, 0, false},
		{"AND", 12, 10, 8, true},
		{"OR", 12, 10, 14, true},
		{"XOR", 12, 10, 6, true},
		{"=", 3, 3, -1, true},
		{"<>", 3, 3, 0, true},
		{"<", 2, 1, 0, true},
		{">=", 2, 2, -1, true},
		{"?", 1, 1, 0, false},
	}
	for _, tc := range tests {
		got, ok := foldBinary(tc.op, tc.a, tc.b)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("%d %s %d: expected (%d, %v), got (%d, %v)", tc.a, tc.op, tc.b, tc.want, tc.ok, got, ok)
		}
	}
	if v, _ := foldUnary("NOT", 0); v != -1 {
		t.Errorf("NOT 0: got %d", v)
	}
	if v, _ := foldUnary("-", -32768); v != -32768 {
		t.Errorf("-(-32768): got %d", v)
	}
}
