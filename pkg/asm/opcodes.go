package asm

import "fmt"

// Opcodes of the kernel's byte-code interpreter. Every instruction is one
// opcode byte followed by zero or more 16-bit little-endian operands. The
// interpreter is a word-sized stack machine.
const (
	OpHALT   byte = 0x00
	OpNOP    byte = 0x01
	OpPUSH   byte = 0x02 // PUSH imm           push imm
	OpLOAD   byte = 0x03 // LOAD addr          push [addr]
	OpSTORE  byte = 0x04 // STORE addr         [addr] = pop
	OpLOADX  byte = 0x05 // LOADX addr         i = pop; push [addr + 2i]
	OpSTOREX byte = 0x06 // STOREX addr        v = pop; i = pop; [addr + 2i] = v
	OpPOP    byte = 0x07
	OpLOADB  byte = 0x08 // a = pop; push byte [a]
	OpSTOREB byte = 0x09 // v = pop; a = pop; byte [a] = v
	OpDUP    byte = 0x0A

	OpADD byte = 0x10
	OpSUB byte = 0x11
	OpMUL byte = 0x12
	OpDIV byte = 0x13
	OpMOD byte = 0x14
	OpNEG byte = 0x15
	OpAND byte = 0x16
	OpOR  byte = 0x17
	OpXOR byte = 0x18
	OpNOT byte = 0x19
	OpEQ  byte = 0x1A
	OpNE  byte = 0x1B
	OpLT  byte = 0x1C
	OpGT  byte = 0x1D
	OpLE  byte = 0x1E
	OpGE  byte = 0x1F

	OpJMP  byte = 0x20 // JMP target
	OpJZ   byte = 0x21 // JZ target          jump when pop == 0
	OpJNZ  byte = 0x22 // JNZ target
	OpCALL byte = 0x23 // CALL target
	OpRET  byte = 0x24
	OpFOR  byte = 0x25 // FOR var, rec       step = pop; limit = pop; [rec] = limit, [rec+2] = step
	OpNEXT byte = 0x26 // NEXT var, rec, top [var] += step; jump to top unless past limit

	OpPRINT   byte = 0x30 // print pop as a number
	OpPRINTS  byte = 0x31 // PRINTS addr       print the zero-terminated string at addr
	OpNEWLINE byte = 0x32
	OpLOCATE  byte = 0x33 // y = pop; x = pop
	OpREAD    byte = 0x34 // READ ptr          push the DATA word at [ptr], advance [ptr]
	OpRESTORE byte = 0x35 // RESTORE ptr, at   [ptr] = at

	OpSYS byte = 0x40 // SYS id, argc       built-in statement, pops argc arguments
	OpFN  byte = 0x41 // FN id, argc        built-in function, pops argc, pushes result
)

// Mnemonics grouped by operand count. All operands are 16-bit.
var zeroOperandOps = map[string]byte{
	"HALT":    OpHALT,
	"NOP":     OpNOP,
	"POP":     OpPOP,
	"LOADB":   OpLOADB,
	"STOREB":  OpSTOREB,
	"DUP":     OpDUP,
	"ADD":     OpADD,
	"SUB":     OpSUB,
	"MUL":     OpMUL,
	"DIV":     OpDIV,
	"MOD":     OpMOD,
	"NEG":     OpNEG,
	"AND":     OpAND,
	"OR":      OpOR,
	"XOR":     OpXOR,
	"NOT":     OpNOT,
	"EQ":      OpEQ,
	"NE":      OpNE,
	"LT":      OpLT,
	"GT":      OpGT,
	"LE":      OpLE,
	"GE":      OpGE,
	"RET":     OpRET,
	"PRINT":   OpPRINT,
	"NEWLINE": OpNEWLINE,
	"LOCATE":  OpLOCATE,
}

var oneOperandOps = map[string]byte{
	"PUSH":   OpPUSH,
	"LOAD":   OpLOAD,
	"STORE":  OpSTORE,
	"LOADX":  OpLOADX,
	"STOREX": OpSTOREX,
	"JMP":    OpJMP,
	"JZ":     OpJZ,
	"JNZ":    OpJNZ,
	"CALL":   OpCALL,
	"PRINTS": OpPRINTS,
	"READ":   OpREAD,
}

var twoOperandOps = map[string]byte{
	"FOR":     OpFOR,
	"RESTORE": OpRESTORE,
	"SYS":     OpSYS,
	"FN":      OpFN,
}

var threeOperandOps = map[string]byte{
	"NEXT": OpNEXT,
}

// operandCount returns the number of 16-bit operands of mnemonic.
func operandCount(mnemonic string) (int, byte, bool) {
	if op, ok := zeroOperandOps[mnemonic]; ok {
		return 0, op, true
	}
	if op, ok := oneOperandOps[mnemonic]; ok {
		return 1, op, true
	}
	if op, ok := twoOperandOps[mnemonic]; ok {
		return 2, op, true
	}
	if op, ok := threeOperandOps[mnemonic]; ok {
		return 3, op, true
	}
	return 0, 0, false
}

// instructionLength returns the encoded size of an instruction in bytes.
func instructionLength(mnemonic string) (int, bool) {
	n, _, ok := operandCount(mnemonic)
	if !ok {
		return 0, false
	}
	return 1 + 2*n, true
}

var mnemonics = func() map[byte]string {
	out := make(map[byte]string)
	for _, table := range []map[string]byte{zeroOperandOps, oneOperandOps, twoOperandOps, threeOperandOps} {
		for name, op := range table {
			out[op] = name
		}
	}
	return out
}()

// Disassemble renders code one instruction per line, for debugging.
// Bytes that do not decode are printed as .BYTE.
func Disassemble(code []byte, base int) []string {
	var out []string
	for pc := 0; pc < len(code); {
		name, ok := mnemonics[code[pc]]
		if !ok {
			out = append(out, fmt.Sprintf("%04X  .BYTE 0x%02X", base+pc, code[pc]))
			pc++
			continue
		}
		n, _, _ := operandCount(name)
		if pc+1+2*n > len(code) {
			out = append(out, fmt.Sprintf("%04X  .BYTE 0x%02X", base+pc, code[pc]))
			pc++
			continue
		}
		line := fmt.Sprintf("%04X  %s", base+pc, name)
		for i := 0; i < n; i++ {
			v := int(code[pc+1+2*i]) | int(code[pc+2+2*i])<<8
			if i == 0 {
				line += fmt.Sprintf(" 0x%04X", v)
			} else {
				line += fmt.Sprintf(", 0x%04X", v)
			}
		}
		out = append(out, line)
		pc += 1 + 2*n
	}
	return out
}
