package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"gbbasic/pkg/loc"
)

// word truncates v to the interpreter's signed 16-bit word.
func word(v int) int { return int(int16(v)) }

// boolWord is the interpreter's truth value: all bits set for true.
func boolWord(b bool) int {
	if b {
		return -1
	}
	return 0
}

func foldUnary(op string, x int) (int, bool) {
	switch op {
	case "-":
		return word(-x), true
	case "NOT":
		return word(^x), true
	}
	return 0, false
}

// foldBinary evaluates a binary operator on two words. Division and modulo
// by zero are left to the run time.
func foldBinary(op string, a, b int) (int, bool) {
	a, b = word(a), word(b)
	switch op {
	case "+":
		return word(a + b), true
	case "-":
		return word(a - b), true
	case "*":
		return word(a * b), true
	case "/":
		if b == 0 {
			return 0, false
		}
		return word(a / b), true
	case "MOD":
		if b == 0 {
			return 0, false
		}
		return word(a % b), true
	case "AND":
		return word(a & b), true
	case "OR":
		return word(a | b), true
	case "XOR":
		return word(a ^ b), true
	case "=":
		return boolWord(a == b), true
	case "<>":
		return boolWord(a != b), true
	case "<":
		return boolWord(a < b), true
	case ">":
		return boolWord(a > b), true
	case "<=":
		return boolWord(a <= b), true
	case ">=":
		return boolWord(a >= b), true
	}
	return 0, false
}

// binaryOps maps BASIC operators to mnemonics and back.
var binaryOps = map[string]string{
	"+": "ADD", "-": "SUB", "*": "MUL", "/": "DIV", "MOD": "MOD",
	"AND": "AND", "OR": "OR", "XOR": "XOR",
	"=": "EQ", "<>": "NE", "<": "LT", ">": "GT", "<=": "LE", ">=": "GE",
}

var mnemonicOps = func() map[string]string {
	out := make(map[string]string, len(binaryOps))
	for op, m := range binaryOps {
		out[m] = op
	}
	return out
}()

// asmLine is one line of generated assembly and the statement that produced it.
type asmLine struct {
	text string
	at   loc.TextLocation
}

type lineKind int

const (
	lineBlank lineKind = iota
	lineComment
	lineLabel
	lineInstr
	lineData
)

type instr struct {
	op   string
	args []string
}

// classify splits a generated line into its kind and, for instructions, the
// mnemonic and operands.
func classify(text string) (lineKind, instr) {
	t := strings.TrimSpace(text)
	switch {
	case t == "":
		return lineBlank, instr{}
	case strings.HasPrefix(t, ";"):
		return lineComment, instr{}
	case strings.Contains(t, ".STRING"), strings.HasPrefix(t, "."):
		return lineData, instr{}
	case strings.HasSuffix(t, ":"):
		return lineLabel, instr{op: strings.TrimSuffix(t, ":")}
	}
	fields := strings.Fields(strings.ReplaceAll(t, ",", " "))
	return lineInstr, instr{op: strings.ToUpper(fields[0]), args: fields[1:]}
}

func immediate(in instr) (int, bool) {
	if in.op != "PUSH" || len(in.args) != 1 {
		return 0, false
	}
	v, err := strconv.ParseInt(in.args[0], 0, 32)
	if err != nil {
		return 0, false
	}
	return word(int(v)), true
}

// optimize runs the peephole passes over lines until nothing changes.
func optimize(lines []asmLine) []asmLine {
	passes := []func([]asmLine) ([]asmLine, bool){foldConstants, foldBranches, dropUnreachable, dropJumpToNext}
	for changed := true; changed; {
		changed = false
		for _, pass := range passes {
			var c bool
			lines, c = pass(lines)
			changed = changed || c
		}
	}
	return lines
}

// window returns the indices of the next n instructions starting at i,
// skipping comments. It stops at labels and data.
func window(lines []asmLine, i, n int) []int {
	var out []int
	for j := i; j < len(lines) && len(out) < n; j++ {
		kind, _ := classify(lines[j].text)
		switch kind {
		case lineComment, lineBlank:
			continue
		case lineInstr:
			out = append(out, j)
		default:
			return out
		}
	}
	return out
}

func remove(lines []asmLine, drop map[int]bool) []asmLine {
	out := lines[:0:0]
	for i, l := range lines {
		if !drop[i] {
			out = append(out, l)
		}
	}
	return out
}

// foldConstants replaces PUSH a / PUSH b / op and PUSH a / NEG|NOT by one PUSH.
func foldConstants(lines []asmLine) ([]asmLine, bool) {
	for i := range lines {
		w := window(lines, i, 3)
		if len(w) < 2 || w[0] != i {
			continue
		}
		_, first := classify(lines[w[0]].text)
		a, ok := immediate(first)
		if !ok {
			continue
		}
		_, second := classify(lines[w[1]].text)
		if second.op == "NEG" || second.op == "NOT" {
			op := "-"
			if second.op == "NOT" {
				op = "NOT"
			}
			v, _ := foldUnary(op, a)
			lines[w[0]].text = fmt.Sprintf("    PUSH %d", v)
			return remove(lines, map[int]bool{w[1]: true}), true
		}
		if len(w) < 3 {
			continue
		}
		b, ok := immediate(second)
		if !ok {
			continue
		}
		_, third := classify(lines[w[2]].text)
		op, isBinary := mnemonicOps[third.op]
		if !isBinary {
			continue
		}
		v, ok := foldBinary(op, a, b)
		if !ok {
			continue
		}
		lines[w[0]].text = fmt.Sprintf("    PUSH %d", v)
		return remove(lines, map[int]bool{w[1]: true, w[2]: true}), true
	}
	return lines, false
}

// foldBranches turns a conditional jump on a constant into JMP or nothing.
func foldBranches(lines []asmLine) ([]asmLine, bool) {
	for i := range lines {
		w := window(lines, i, 2)
		if len(w) < 2 || w[0] != i {
			continue
		}
		_, first := classify(lines[w[0]].text)
		v, ok := immediate(first)
		if !ok {
			continue
		}
		_, second := classify(lines[w[1]].text)
		if second.op != "JZ" && second.op != "JNZ" {
			continue
		}
		taken := (v == 0) == (second.op == "JZ")
		if taken {
			lines[w[1]].text = "    JMP " + second.args[0]
			return remove(lines, map[int]bool{w[0]: true}), true
		}
		return remove(lines, map[int]bool{w[0]: true, w[1]: true}), true
	}
	return lines, false
}

// dropUnreachable removes instructions between an unconditional transfer and
// the next label.
func dropUnreachable(lines []asmLine) ([]asmLine, bool) {
	drop := make(map[int]bool)
	dead := false
	for i, l := range lines {
		kind, in := classify(l.text)
		switch kind {
		case lineLabel, lineData:
			dead = false
		case lineInstr:
			if dead {
				drop[i] = true
				continue
			}
			switch in.op {
			case "JMP", "RET", "HALT":
				dead = true
			}
		case lineComment:
			if dead {
				drop[i] = true
			}
		}
	}
	if len(drop) == 0 {
		return lines, false
	}
	return remove(lines, drop), true
}

// dropJumpToNext removes a JMP whose target label follows it directly.
func dropJumpToNext(lines []asmLine) ([]asmLine, bool) {
	for i, l := range lines {
		kind, in := classify(l.text)
		if kind != lineInstr || in.op != "JMP" {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			k, next := classify(lines[j].text)
			if k == lineComment || k == lineBlank {
				continue
			}
			if k != lineLabel {
				break
			}
			if next.op == in.args[0] {
				return remove(lines, map[int]bool{i: true}), true
			}
		}
	}
	return lines, false
}
