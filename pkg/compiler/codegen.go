package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"gbbasic/pkg/assets"
	"gbbasic/pkg/ast"
	"gbbasic/pkg/loc"
)

// maxInlineDepth bounds nested DEF FN expansion.
const maxInlineDepth = 32

// dataLabel names the DATA value with the given ordinal.
func dataLabel(ordinal int) string { return fmt.Sprintf("DATA_%d", ordinal) }

// CodeGen walks one page and emits assembly for the kernel's byte-code
// interpreter.
type CodeGen struct {
	res      *resolution
	opts     *Options
	kindBase map[assets.Kind]int

	out        []asmLine
	at         loc.TextLocation
	nextLabel  int
	stringPool []string
	loopStack  []loopLabel
	depth      int
	err        error
}

type loopLabel struct {
	kind ast.NodeType
	end  string
}

// fnFrame binds the arguments of one DEF FN expansion. Arguments are
// generated in the frame of the caller.
type fnFrame struct {
	args  []ast.Node
	outer *fnFrame
}

func newCodeGen(res *resolution, opts *Options, kindBase map[assets.Kind]int) *CodeGen {
	return &CodeGen{res: res, opts: opts, kindBase: kindBase}
}

func (cg *CodeGen) newLabel() string {
	l := fmt.Sprintf("_L%d", cg.nextLabel)
	cg.nextLabel++
	return l
}

func (cg *CodeGen) newString(s string) string {
	l := fmt.Sprintf("_S%d", len(cg.stringPool))
	cg.stringPool = append(cg.stringPool, s)
	return l
}

func (cg *CodeGen) line(format string, args ...any) {
	cg.out = append(cg.out, asmLine{text: "    " + fmt.Sprintf(format, args...), at: cg.at})
}

func (cg *CodeGen) label(name string) {
	cg.out = append(cg.out, asmLine{text: name + ":", at: cg.at})
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.out = append(cg.out, asmLine{text: "; " + fmt.Sprintf(format, args...), at: cg.at})
}

func (cg *CodeGen) fail(n ast.Node, format string, args ...any) {
	if cg.err == nil {
		cg.err = Diagnostic{Message: fmt.Sprintf(format, args...), Location: n.Location().Begin}
	}
}

// Page generates the object of one page. The first page rewinds the READ
// pointer; the last one halts, the others fall through to the next page.
func (cg *CodeGen) Page(p *ast.Page, first, last bool) ([]asmLine, error) {
	cg.at = p.Location().Begin
	cg.comment("page %d", p.Index+1)
	if first && cg.res.readPtr >= 0 {
		cg.line("RESTORE %d, %s", cg.res.readPtr, dataLabel(0))
	}
	cg.block(p.Body)

	cg.at = p.Location().End
	after := cg.newLabel()
	if last {
		cg.line("HALT")
	} else if len(cg.stringPool) > 0 {
		cg.line("JMP %s", after)
	}
	for i, s := range cg.stringPool {
		cg.out = append(cg.out, asmLine{text: fmt.Sprintf("_S%d: .STRING %s", i, strconv.Quote(s)), at: cg.at})
	}
	cg.label(after)
	return cg.out, cg.err
}

// Data generates the table READ walks: one word per DATA value, strings
// stored after the table.
func (cg *CodeGen) Data() []asmLine {
	cg.at = loc.At(0, 0, 0)
	cg.comment("data")
	for i, v := range cg.res.data {
		cg.at = v.Location().Begin
		switch e := v.(type) {
		case *ast.Number:
			cg.label(dataLabel(i))
			cg.line(".WORD %d", uint16(e.Value))
		case *ast.String:
			cg.label(dataLabel(i))
			cg.line(".WORD %s", cg.newString(e.Value))
		}
	}
	for i, s := range cg.stringPool {
		cg.out = append(cg.out, asmLine{text: fmt.Sprintf("_S%d: .STRING %s", i, strconv.Quote(s)), at: cg.at})
	}
	return cg.out
}

func (cg *CodeGen) block(body []ast.Node) {
	for _, n := range body {
		if cg.err != nil {
			return
		}
		cg.stmt(n)
	}
}

//  Statements

func (cg *CodeGen) stmt(n ast.Node) {
	switch n.(type) {
	case *ast.Blank, *ast.Rem, *ast.Const, *ast.Def, *ast.DefFn, *ast.Data:
		return
	}
	cg.at = n.Location().Begin
	cg.comment("%s %s", cg.at, n.Type())

	switch s := n.(type) {
	case *ast.Label:
		cg.label(s.Key())
	case *ast.Let:
		b := cg.res.bindings[s]
		if len(s.Index) > 0 {
			cg.index(b, s.Index, nil)
			cg.expr(s.Value, nil)
			cg.line("STOREX %d", b.addr)
			return
		}
		cg.expr(s.Value, nil)
		cg.line("STORE %d", b.addr)
	case *ast.Dim:
		// Arrays live in RAM reserved by the resolver.
	case *ast.For:
		cg.forLoop(s)
	case *ast.While:
		top, end := cg.newLabel(), cg.newLabel()
		cg.label(top)
		cg.expr(s.Cond, nil)
		cg.line("JZ %s", end)
		cg.loop(ast.WHILE, end, s.Body)
		cg.line("JMP %s", top)
		cg.label(end)
	case *ast.Do:
		cg.doLoop(s)
	case *ast.If:
		cg.ifStmt(s)
	case *ast.SelectCase:
		cg.selectCase(s)
	case *ast.Jump:
		cg.jump(s)
	case *ast.OnJump:
		cg.onJump(s)
	case *ast.Keyword:
		switch s.Kind {
		case ast.RETURN:
			cg.line("RET")
		case ast.END:
			cg.line("HALT")
		case ast.EXIT:
			for i := len(cg.loopStack) - 1; i >= 0; i-- {
				if cg.loopStack[i].kind.String() == s.Arg {
					cg.line("JMP %s", cg.loopStack[i].end)
					return
				}
			}
			cg.fail(s, "EXIT %s outside a %s loop", s.Arg, s.Arg)
		}
	case *ast.Print:
		cg.print(s)
	case *ast.Read:
		for _, t := range s.Targets {
			b := cg.res.bindings[t]
			if c, ok := t.(*ast.Call); ok {
				cg.index(b, c.Args, nil)
				cg.line("READ %d", cg.res.readPtr)
				cg.line("STOREX %d", b.addr)
				continue
			}
			cg.line("READ %d", cg.res.readPtr)
			cg.line("STORE %d", b.addr)
		}
	case *ast.Restore:
		if cg.res.readPtr < 0 {
			return
		}
		cg.line("RESTORE %d, %s", cg.res.readPtr, dataLabel(cg.res.restores[s]))
	case *ast.Command:
		cg.command(s)
	default:
		cg.fail(n, "cannot generate code for %s", n.Type())
	}
}

func (cg *CodeGen) loop(kind ast.NodeType, end string, body []ast.Node) {
	cg.loopStack = append(cg.loopStack, loopLabel{kind: kind, end: end})
	cg.block(body)
	cg.loopStack = cg.loopStack[:len(cg.loopStack)-1]
}

// forLoop runs the body at least once; NEXT steps the variable and jumps
// back while it has not passed the limit.
func (cg *CodeGen) forLoop(s *ast.For) {
	v := cg.res.bindings[s]
	rec := cg.res.loops[s]
	top, end := cg.newLabel(), cg.newLabel()

	cg.expr(s.From, nil)
	cg.line("STORE %d", v.addr)
	cg.expr(s.To, nil)
	if s.Step != nil {
		cg.expr(s.Step, nil)
	} else {
		cg.line("PUSH 1")
	}
	cg.line("FOR %d, %d", v.addr, rec)
	cg.label(top)
	cg.loop(ast.FOR, end, s.Body)
	cg.line("NEXT %d, %d, %s", v.addr, rec, top)
	cg.label(end)
}

func (cg *CodeGen) doLoop(s *ast.Do) {
	top, end := cg.newLabel(), cg.newLabel()
	exitIf := "JZ"
	if s.Until {
		exitIf = "JNZ"
	}
	cg.label(top)
	if s.Cond != nil && s.AtTop {
		cg.expr(s.Cond, nil)
		cg.line("%s %s", exitIf, end)
	}
	cg.loop(ast.DO, end, s.Body)
	switch {
	case s.Cond == nil || s.AtTop:
		cg.line("JMP %s", top)
	case s.Until:
		cg.expr(s.Cond, nil)
		cg.line("JZ %s", top)
	default:
		cg.expr(s.Cond, nil)
		cg.line("JNZ %s", top)
	}
	cg.label(end)
}

func (cg *CodeGen) ifStmt(s *ast.If) {
	end := cg.newLabel()
	for i, b := range s.Branches {
		next := end
		if i < len(s.Branches)-1 {
			next = cg.newLabel()
		}
		if b.Cond != nil {
			cg.expr(b.Cond, nil)
			cg.line("JZ %s", next)
		}
		cg.block(b.Body)
		if next != end {
			cg.line("JMP %s", end)
			cg.label(next)
		}
	}
	cg.label(end)
}

// selectCase keeps the subject on the stack while the values are compared
// and pops it on entry to the chosen case.
func (cg *CodeGen) selectCase(s *ast.SelectCase) {
	end := cg.newLabel()
	cg.expr(s.Subject, nil)

	labels := make([]string, len(s.Cases))
	elseLabel := ""
	for i, c := range s.Cases {
		labels[i] = cg.newLabel()
		if c.Else {
			elseLabel = labels[i]
			continue
		}
		for _, v := range c.Values {
			cg.line("DUP")
			cg.expr(v, nil)
			cg.line("EQ")
			cg.line("JNZ %s", labels[i])
		}
	}
	if elseLabel != "" {
		cg.line("JMP %s", elseLabel)
	} else {
		cg.line("POP")
		cg.line("JMP %s", end)
	}
	for i, c := range s.Cases {
		cg.at = c.Location().Begin
		cg.label(labels[i])
		cg.line("POP")
		cg.block(c.Body)
		cg.line("JMP %s", end)
	}
	cg.label(end)
}

func (cg *CodeGen) jump(j *ast.Jump) {
	if j.Gosub {
		cg.line("CALL %s", j.Key())
		return
	}
	cg.line("JMP %s", j.Key())
}

func (cg *CodeGen) onJump(s *ast.OnJump) {
	end := cg.newLabel()
	cg.expr(s.Selector, nil)
	labels := make([]string, len(s.Targets))
	for i := range s.Targets {
		labels[i] = cg.newLabel()
		cg.line("DUP")
		cg.line("PUSH %d", i+1)
		cg.line("EQ")
		cg.line("JNZ %s", labels[i])
	}
	cg.line("POP")
	cg.line("JMP %s", end)
	for i, t := range s.Targets {
		cg.label(labels[i])
		cg.line("POP")
		cg.jump(t)
		if s.Gosub {
			cg.line("JMP %s", end)
		}
	}
	cg.label(end)
}

func (cg *CodeGen) print(s *ast.Print) {
	for i, item := range s.Items {
		if str, ok := item.(*ast.String); ok {
			cg.line("PRINTS %s", cg.newString(str.Value))
		} else {
			cg.expr(item, nil)
			cg.line("PRINT")
		}
		if i < len(s.Separators) && s.Separators[i] == "," {
			cg.line("SYS %d, 0", sysTab)
		}
	}
	if s.Newline() {
		cg.line("NEWLINE")
	}
}

func (cg *CodeGen) command(s *ast.Command) {
	form := cg.res.forms[s]
	argc := len(form.Args)
	for i, want := range form.Args {
		arg := s.Args[i]
		switch want.Kind {
		case ArgNumber:
			cg.expr(arg, nil)
		case ArgString:
			cg.line("PUSH %s", cg.newString(arg.(*ast.String).Value))
		case ArgTarget:
			cg.line("PUSH %d", cg.res.bindings[arg].addr)
		case ArgAsset:
			base := cg.kindBase[want.Asset]
			if idx, ok := cg.res.assets[arg]; ok {
				cg.line("PUSH %d", base+idx)
				continue
			}
			cg.expr(arg, nil)
			if adj := base - cg.opts.Strategies.IndexBase; adj != 0 {
				cg.line("PUSH %d", adj)
				cg.line("ADD")
			}
		}
	}
	if rec, ok := cg.res.records[s]; ok {
		cg.line("PUSH %d", rec)
		argc++
	}

	if form.Sys != sysOpcode {
		cg.line("SYS %d, %d", form.Sys, argc)
		return
	}
	switch s.Kind {
	case ast.LOCATE:
		cg.line("LOCATE")
	case ast.POKE:
		cg.line("STOREB")
	default:
		cg.fail(s, "%s has no opcode", s.Keyword)
	}
}

//  Expressions

// index leaves the 0-based element index of an array reference on the stack.
func (cg *CodeGen) index(b binding, args []ast.Node, env *fnFrame) {
	base := cg.opts.Strategies.IndexBase
	for i, a := range args {
		cg.expr(a, env)
		if base != 0 {
			cg.line("PUSH %d", base)
			cg.line("SUB")
		}
		if i == 0 && len(args) == 2 {
			cg.line("PUSH %d", b.dims[1])
			cg.line("MUL")
		}
	}
	if len(args) == 2 {
		cg.line("ADD")
	}
}

func (cg *CodeGen) expr(n ast.Node, env *fnFrame) {
	switch e := n.(type) {
	case *ast.Number:
		cg.line("PUSH %d", uint16(e.Value))
	case *ast.Ident:
		b := cg.res.bindings[e]
		switch b.kind {
		case bindConst:
			cg.line("PUSH %d", b.value)
		case bindVariable:
			cg.line("LOAD %d", b.addr)
		case bindParam:
			if env == nil || b.value >= len(env.args) {
				cg.fail(e, "parameter %s used outside its DEF FN", e.Raw)
				return
			}
			cg.expr(env.args[b.value], env.outer)
		case bindBuiltinFn:
			cg.line("FN %d, 0", b.builtin.ID)
		case bindFunction:
			cg.inline(e, b.fn, nil, env)
		}
	case *ast.Call:
		b := cg.res.bindings[e]
		switch b.kind {
		case bindBuiltinFn:
			for _, a := range e.Args {
				cg.expr(a, env)
			}
			cg.line("FN %d, %d", b.builtin.ID, len(e.Args))
		case bindFunction:
			cg.inline(e, b.fn, e.Args, env)
		case bindArray:
			cg.index(b, e.Args, env)
			cg.line("LOADX %d", b.addr)
		}
	case *ast.Unary:
		cg.expr(e.X, env)
		if e.Op == "NOT" {
			cg.line("NOT")
		} else {
			cg.line("NEG")
		}
	case *ast.Binary:
		cg.expr(e.L, env)
		cg.expr(e.R, env)
		cg.line("%s", binaryOps[strings.ToUpper(e.Op)])
	default:
		cg.fail(n, "cannot generate code for %s", n.Type())
	}
}

// inline expands a DEF FN call in place.
func (cg *CodeGen) inline(call ast.Node, fn *ast.DefFn, args []ast.Node, env *fnFrame) {
	if cg.depth >= maxInlineDepth {
		cg.fail(call, "DEF FN %s expands more than %d levels deep", fn.Name, maxInlineDepth)
		return
	}
	cg.depth++
	cg.expr(fn.Body, &fnFrame{args: args, outer: env})
	cg.depth--
}

// assemblyText joins generated lines.
func assemblyText(lines []asmLine) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.text)
		sb.WriteString("\n")
	}
	return sb.String()
}
