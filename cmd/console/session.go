package main

import (
	"fmt"
	"strings"

	"gbbasic/pkg/assets"
	"gbbasic/pkg/compiler"
	"gbbasic/pkg/loc"
)

// Without -kernel the console checks source against a blank two-bank image
// exporting just the symbols the compiler needs.
const stubSymbols = `
00:0150 __gbb_bootstrap
00:C000 __gbb_heap
00:D000 __gbb_heap_end
`

func stubKernel() []byte {
	rom := make([]byte, 2*0x4000)
	rom[0x100] = 0xC3
	return rom
}

// session is the state of one console run. Every entry is compiled as a
// single page; names seen so far feed completion.
type session struct {
	rom     []byte
	symbols string
	aliases string
	bundle  *assets.Bundle

	opts     compiler.Options
	registry *compiler.Registry
	program  []string // accepted entries, replayed with every compile
}

func newSession(rom []byte, symbols, aliases string, bundle *assets.Bundle) *session {
	s := &session{
		rom:      rom,
		symbols:  symbols,
		aliases:  aliases,
		bundle:   bundle,
		opts:     compiler.DefaultOptions(),
		registry: compiler.NewRegistry(),
	}
	s.opts.Passes = compiler.PassParse
	s.opts.Piping.Verbosity = 0
	s.opts.Identifiers = s.registry
	s.seed()
	return s
}

func (s *session) seed() {
	for _, k := range compiler.Keywords() {
		s.registry.Add(compiler.IdentKeyword, k, loc.Invalid())
	}
}

const help = `:parse      check entries only (default)
:generate   also resolve and print assembly
:ast        print the AST of the program so far
:list       print the program so far
:reset      forget the program
:quit       leave`

// eval runs one console entry and returns what to print. done is set when
// the user asks to leave.
func (s *session) eval(entry string) (out string, done bool) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return "", false
	}
	if strings.HasPrefix(entry, ":") {
		return s.command(strings.ToLower(entry))
	}

	src := strings.Join(append(append([]string(nil), s.program...), entry), "\n")
	prog, diags, ok := s.compile(src)
	var sb strings.Builder
	for _, d := range diags {
		sb.WriteString(d.Error())
		sb.WriteString("\n")
	}
	if !ok {
		return sb.String(), false
	}
	s.program = append(s.program, entry)
	if s.opts.Passes == compiler.PassGenerate && len(prog.Compiled.Assembly) > 0 {
		sb.WriteString(prog.Compiled.Assembly[0])
	} else {
		sb.WriteString("ok\n")
	}
	return sb.String(), false
}

func (s *session) command(cmd string) (string, bool) {
	switch cmd {
	case ":quit", ":q":
		return "", true
	case ":help", ":h":
		return help + "\n", false
	case ":parse":
		s.opts.Passes = compiler.PassParse
		return "passes: PARSE\n", false
	case ":generate":
		s.opts.Passes = compiler.PassGenerate
		return "passes: GENERATE\n", false
	case ":reset":
		s.program = nil
		s.registry.Reset()
		s.seed()
		return "program cleared\n", false
	case ":list":
		var sb strings.Builder
		for i, line := range s.program {
			fmt.Fprintf(&sb, "%4d  %s\n", i+1, line)
		}
		return sb.String(), false
	case ":ast":
		if len(s.program) == 0 {
			return "", false
		}
		prog, diags, ok := s.compile(strings.Join(s.program, "\n"))
		if !ok {
			return fmt.Sprintf("%v\n", diags), false
		}
		return prog.ASTText, false
	}
	return fmt.Sprintf("unknown command %s, type :help\n", cmd), false
}

func (s *session) compile(src string) (*compiler.Program, []compiler.Diagnostic, bool) {
	var diags []compiler.Diagnostic
	opts := s.opts
	opts.OnError = func(d compiler.Diagnostic) { diags = append(diags, d) }
	prog := &compiler.Program{
		Title:      "CONSOLE",
		Pages:      []string{src},
		KernelROM:  s.rom,
		SymbolText: s.symbols,
		AliasText:  s.aliases,
		Assets:     s.bundle,
	}
	ok := compiler.Build(prog, opts)
	return prog, diags, ok
}

// complete offers registry names for the word being typed.
func (s *session) complete(line string) []string {
	start := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}) + 1
	word := line[start:]
	if word == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, id := range s.registry.Lookup(word) {
		if seen[id.Name] {
			continue
		}
		seen[id.Name] = true
		out = append(out, line[:start]+id.Name)
	}
	return out
}
