// Package asm assembles the kernel byte-code from text and links per-page
// objects into one relocated code image.
package asm

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Labels starting with this prefix are private to the object that defines them.
const LocalPrefix = "_"

// Reloc is a 16-bit operand that holds the address of a label. Offset is
// relative to the start of the object.
type Reloc struct {
	Offset int
	Symbol string
	Line   int
	Local  bool
	Target int // object offset of a local label
}

// Object is one assembled unit before placement.
type Object struct {
	Name      string
	Code      []byte
	Globals   map[string]int // exported label -> object offset
	Relocs    []Reloc
	SourceMap map[int]int // object offset -> source line
}

// Origin tells which object line produced an address.
type Origin struct {
	Object string
	Line   int
}

// Linked is the result of placing objects back to back at Base.
type Linked struct {
	Base      int
	Code      []byte
	Symbols   map[string]int // global label -> absolute address
	Placement map[string]int // object name -> absolute address
	SourceMap map[int]Origin
}

// UndefinedSymbolError is reported once per unresolved reference.
type UndefinedSymbolError struct {
	Object string
	Symbol string
	Line   int
}

func (e *UndefinedSymbolError) Error() string {
	return fmt.Sprintf("%s line %d: undefined label '%s'", e.Object, e.Line, e.Symbol)
}

// DuplicateSymbolError is reported when two objects export the same label.
type DuplicateSymbolError struct {
	Symbol string
	First  string
	Second string
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("duplicate label '%s' in %s and %s", e.Symbol, e.First, e.Second)
}

// LineError is a syntax or encoding error on one line of assembly.
type LineError struct {
	Line int
	Msg  string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("asm line %d: %s", e.Line, e.Msg)
}

func lineErrorf(line int, format string, args ...any) error {
	return &LineError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Assembler holds the label table of one object; use a fresh one per object.
type Assembler struct {
	labels map[string]int
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

// Assemble builds a self-contained program placed at address 0. Every label
// must be defined in code.
func Assemble(code string) ([]byte, map[uint16]int, error) {
	obj, err := NewAssembler().AssembleObject("main", code)
	if err != nil {
		return nil, nil, err
	}
	linked, err := Link(0, obj)
	if err != nil {
		return nil, nil, err
	}
	sourceMap := make(map[uint16]int, len(linked.SourceMap))
	for addr, o := range linked.SourceMap {
		sourceMap[uint16(addr)] = o.Line
	}
	return linked.Code, sourceMap, nil
}

// AssembleObject assembles code into a relocatable object. References to
// global labels stay unresolved until Link.
func (a *Assembler) AssembleObject(name, code string) (*Object, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}

	return a.pass2(name, lines)
}

func (a *Assembler) pass1(lines []string) error {
	address := 0

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if _, exists := a.labels[lbl]; exists {
				return lineErrorf(lineNo, "label %q defined twice", lbl)
			}
			a.labels[lbl] = address
		}

		if p.mnemonic == "" {
			continue
		}

		length, err := directiveLength(p)
		if err != nil {
			return err
		}
		if length < 0 {
			l, ok := instructionLength(p.mnemonic)
			if !ok {
				return lineErrorf(lineNo, "unknown mnemonic %s", p.mnemonic)
			}
			length = l
		}

		if address+length > 0x10000 {
			return lineErrorf(lineNo, "code exceeds 64 KiB")
		}
		address += length
	}

	return nil
}

// directiveLength returns -1 for instructions.
func directiveLength(p parsedLine) (int, error) {
	switch p.mnemonic {
	case ".STRING":
		if len(p.operands) != 1 {
			return 0, lineErrorf(p.lineNo, ".STRING takes one quoted operand")
		}
		// 1 byte per character + 1 null byte
		return len(p.operands[0]) + 1, nil
	case ".BYTE":
		if len(p.operands) == 0 {
			return 0, lineErrorf(p.lineNo, ".BYTE needs a value")
		}
		return len(p.operands), nil
	case ".WORD":
		if len(p.operands) == 0 {
			return 0, lineErrorf(p.lineNo, ".WORD needs a value")
		}
		return 2 * len(p.operands), nil
	}
	return -1, nil
}

func (a *Assembler) pass2(name string, lines []string) (*Object, error) {
	obj := &Object{
		Name:      name,
		Code:      make([]byte, 0),
		Globals:   make(map[string]int),
		SourceMap: make(map[int]int),
	}
	for lbl, off := range a.labels {
		if !strings.HasPrefix(lbl, LocalPrefix) {
			obj.Globals[lbl] = off
		}
	}

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		if p.mnemonic == "" {
			continue
		}

		obj.SourceMap[len(obj.Code)] = lineNo
		ops := p.operands

		switch p.mnemonic {
		case ".STRING":
			for i := 0; i < len(ops[0]); i++ {
				obj.Code = append(obj.Code, ops[0][i])
			}
			obj.Code = append(obj.Code, 0x00)
			continue
		case ".BYTE":
			for _, op := range ops {
				v, err := parseNumber(op, 0xFF, lineNo)
				if err != nil {
					return nil, err
				}
				obj.Code = append(obj.Code, byte(v))
			}
			continue
		case ".WORD":
			for _, op := range ops {
				if err := a.emitOperand(obj, op, lineNo); err != nil {
					return nil, err
				}
			}
			continue
		}

		n, opcode, ok := operandCount(p.mnemonic)
		if !ok {
			return nil, lineErrorf(lineNo, "unknown mnemonic %s", p.mnemonic)
		}
		if len(ops) != n {
			return nil, lineErrorf(lineNo, "%s takes %d operand(s)", p.mnemonic, n)
		}
		obj.Code = append(obj.Code, opcode)
		for _, op := range ops {
			if err := a.emitOperand(obj, op, lineNo); err != nil {
				return nil, err
			}
		}
	}

	return obj, nil
}

// emitOperand appends a 16-bit operand, recording a relocation for labels.
func (a *Assembler) emitOperand(obj *Object, token string, lineNo int) error {
	if c := token[0]; c == '-' || (c >= '0' && c <= '9') {
		v, err := parseNumber(token, 0xFFFF, lineNo)
		if err != nil {
			return err
		}
		obj.Code = append(obj.Code, byte(v&0xFF), byte(v>>8))
		return nil
	}
	if !isIdentifier(token) {
		return lineErrorf(lineNo, "bad operand %q", token)
	}
	r := Reloc{Offset: len(obj.Code), Symbol: token, Line: lineNo}
	if strings.HasPrefix(token, LocalPrefix) {
		off, ok := a.labels[token]
		if !ok {
			return lineErrorf(lineNo, "undefined local label %q", token)
		}
		r.Local = true
		r.Target = off
	}
	obj.Relocs = append(obj.Relocs, r)
	obj.Code = append(obj.Code, 0x00, 0x00)
	return nil
}

// Link places objects back to back starting at base and patches every
// relocation. All undefined and duplicate symbols are reported together.
func Link(base int, objs ...*Object) (*Linked, error) {
	out := &Linked{
		Base:      base,
		Symbols:   make(map[string]int),
		Placement: make(map[string]int),
		SourceMap: make(map[int]Origin),
	}
	owner := make(map[string]string)
	var errs []error

	at := base
	for _, obj := range objs {
		out.Placement[obj.Name] = at
		names := make([]string, 0, len(obj.Globals))
		for name := range obj.Globals {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if prev, dup := owner[name]; dup {
				errs = append(errs, &DuplicateSymbolError{Symbol: name, First: prev, Second: obj.Name})
				continue
			}
			owner[name] = obj.Name
			out.Symbols[name] = at + obj.Globals[name]
		}
		for off, line := range obj.SourceMap {
			out.SourceMap[at+off] = Origin{Object: obj.Name, Line: line}
		}
		at += len(obj.Code)
	}
	if at > 0x10000 {
		errs = append(errs, fmt.Errorf("linked program ends at 0x%X, past addressable memory", at))
	}

	out.Code = make([]byte, 0, at-base)
	for _, obj := range objs {
		start := len(out.Code)
		out.Code = append(out.Code, obj.Code...)
		for _, r := range obj.Relocs {
			var addr int
			if r.Local {
				addr = out.Placement[obj.Name] + r.Target
			} else {
				v, ok := out.Symbols[r.Symbol]
				if !ok {
					errs = append(errs, &UndefinedSymbolError{Object: obj.Name, Symbol: r.Symbol, Line: r.Line})
					continue
				}
				addr = v
			}
			out.Code[start+r.Offset] = byte(addr & 0xFF)
			out.Code[start+r.Offset+1] = byte(addr >> 8)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	// .STRING keeps its quoted operand verbatim, including ';' and spaces.
	upperRaw := strings.ToUpper(raw)
	if directiveIdx := strings.Index(upperRaw, ".STRING"); directiveIdx != -1 {
		preDirective := raw[:directiveIdx]
		if colonIdx := strings.Index(preDirective, ":"); colonIdx != -1 {
			label := strings.TrimSpace(preDirective[:colonIdx])
			if label != "" {
				if !isIdentifier(label) {
					return p, lineErrorf(lineNo, "bad label %q", label)
				}
				p.labels = append(p.labels, label)
			}
		}

		rest := raw[directiveIdx+len(".STRING"):]
		opening := strings.Index(rest, "\"")
		closing := strings.LastIndex(rest, "\"")
		if opening != -1 && closing != -1 && opening != closing {
			p.mnemonic = ".STRING"
			content := rest[opening : closing+1]
			unquoted, err := strconv.Unquote(content)
			if err != nil {
				return p, lineErrorf(lineNo, "malformed string literal")
			}
			p.operands = []string{unquoted}
			return p, nil
		}
		return p, lineErrorf(lineNo, "malformed string literal")
	}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, lineErrorf(lineNo, "bad label %q", beforeColon)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}

	return p, nil
}

func stripComments(line string) string {
	if semicolon := strings.Index(line, ";"); semicolon >= 0 {
		return line[:semicolon]
	}
	return line
}

// parseNumber accepts decimal, 0x hex and negative values down to -32768,
// which encode as two's complement.
func parseNumber(token string, max int64, lineNo int) (int, error) {
	v, err := strconv.ParseInt(token, 0, 32)
	if err != nil {
		return 0, lineErrorf(lineNo, "bad operand %q", token)
	}
	if v > max || v < -(max+1)/2 {
		return 0, lineErrorf(lineNo, "operand %s out of range", token)
	}
	if v < 0 {
		v += max + 1
	}
	return int(v), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}
