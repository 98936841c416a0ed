package compiler

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"golang.org/x/text/cases"

	"gbbasic/pkg/assets"
	"gbbasic/pkg/ast"
	"gbbasic/pkg/kernel"
	"gbbasic/pkg/loc"
	"gbbasic/pkg/symbols"
)

// maxAliasDepth bounds MACRO_ALIAS chains.
const maxAliasDepth = 16

type bindingKind int

const (
	bindConst bindingKind = iota
	bindVariable
	bindArray
	bindParam
	bindFunction
	bindBuiltinFn
)

// binding is what one identifier reference resolved to.
type binding struct {
	kind    bindingKind
	name    string // RAM name for variables and arrays
	addr    int
	value   int // constant value, or parameter slot
	dims    []int
	fn      *ast.DefFn
	builtin *Function
}

// resolution holds everything the generator needs, keyed by node. The tree
// itself is never modified.
type resolution struct {
	bindings map[ast.Node]binding
	loops    map[*ast.For]int     // loop record address
	assets   map[ast.Node]int     // constant asset argument -> 0-based index in its kind
	forms    map[*ast.Command]*Form
	records  map[*ast.Command]int // kernel record address
	restores map[*ast.Restore]int // DATA ordinal
	data     []ast.Node           // every DATA value in program order
	readPtr  int                  // -1 without READ
	reads    map[string]int       // reads per RAM name
	labels   map[string]loc.TextLocation
}

func newResolution() *resolution {
	return &resolution{
		bindings: make(map[ast.Node]binding),
		loops:    make(map[*ast.For]int),
		assets:   make(map[ast.Node]int),
		forms:    make(map[*ast.Command]*Form),
		records:  make(map[*ast.Command]int),
		restores: make(map[*ast.Restore]int),
		readPtr:  -1,
		reads:    make(map[string]int),
		labels:   make(map[string]loc.TextLocation),
	}
}

// resolver walks the pages in order and fills a resolution.
type resolver struct {
	opts   *Options
	bundle *assets.Bundle
	macros *symbols.MacroTable
	alloc  *symbols.Allocator
	syms   symbols.Resolver
	res    *resolution

	dims      map[string][]int
	fnBodies  map[int]*ast.DefFn
	labelData map[string]int // label key -> ordinal of the next DATA value
	restoreTo []*ast.Restore
	loops     []ast.NodeType
	defining  *ast.DefFn

	errors int
	stop   bool
}

func newResolver(opts *Options, bundle *assets.Bundle, k *kernel.Image) *resolver {
	start, _ := k.Heap()
	macros := symbols.NewMacroTable()
	alloc := symbols.NewAllocator(start, opts.Strategies.HeapSize)
	r := &resolver{
		opts:      opts,
		bundle:    bundle,
		macros:    macros,
		alloc:     alloc,
		syms:      symbols.Resolver{Macros: macros, RAM: alloc},
		res:       newResolution(),
		dims:      make(map[string][]int),
		fnBodies:  make(map[int]*ast.DefFn),
		labelData: make(map[string]int),
	}

	fold := cases.Fold()
	for _, a := range k.Aliases() {
		name := a.Name
		if !opts.Strategies.CaseSensitive {
			name = fold.String(name)
		}
		macros.Insert(symbols.Macro{
			Name:   name,
			Type:   symbols.VariableAlias,
			Data:   a.Symbol.Addr,
			Target: a.Symbol.Name,
			Scope:  loc.Span(loc.At(0, 0, 0), loc.Max()),
		})
	}
	return r
}

func (r *resolver) errorf(n ast.Node, format string, args ...any) {
	r.errors++
	r.opts.report(Diagnostic{Message: fmt.Sprintf(format, args...), Location: n.Location().Begin})
}

// fatal reports a resource error and stops the walk.
func (r *resolver) fatal(at loc.TextLocation, err error) {
	r.errors++
	r.stop = true
	r.opts.report(Diagnostic{Message: err.Error(), Location: at})
}

// page resolves one page.
func (r *resolver) page(p *ast.Page) {
	r.body(p.Body)
}

// finish resolves what can only be known once every page has been seen.
func (r *resolver) finish() {
	if r.stop {
		return
	}
	for _, restore := range r.restoreTo {
		target := restore.Target
		ord, ok := r.labelData[target.Key()]
		switch {
		case !ok:
			r.errorf(restore, "RESTORE to undefined label %s", target.Target())
		case ord >= len(r.res.data):
			r.errorf(restore, "no DATA after label %s", target.Target())
		default:
			r.res.restores[restore] = ord
		}
	}
	if r.res.readPtr >= 0 && len(r.res.data) == 0 {
		r.opts.report(Diagnostic{Message: "READ without any DATA", Location: loc.At(0, 0, 0)})
		r.errors++
	}
}

func (r *resolver) body(nodes []ast.Node) {
	for _, n := range nodes {
		if r.stop {
			return
		}
		before := r.errors
		r.statement(n)
		if r.opts.Strategies.FailOnError && r.errors > before {
			r.stop = true
		}
	}
}

// closeBlock ends the macro scopes opened inside a block, that is every
// macro inserted since mark.
func (r *resolver) closeBlock(n ast.Node, mark int) {
	r.macros.CloseScope(mark, n.Location().End)
}

func (r *resolver) statement(n ast.Node) {
	switch s := n.(type) {
	case *ast.Blank, *ast.Rem, *ast.Jump:
	case *ast.Label:
		key := s.Key()
		if prev, dup := r.res.labels[key]; dup {
			r.errorf(s, "label %s already defined at %s", labelText(s), prev)
			return
		}
		r.res.labels[key] = s.Location().Begin
		r.labelData[key] = len(r.res.data)
	case *ast.Const:
		r.constDecl(s)
	case *ast.Let:
		r.let(s)
	case *ast.Dim:
		r.dim(s)
	case *ast.Def:
		r.def(s)
	case *ast.DefFn:
		r.defFn(s)
	case *ast.For:
		r.forLoop(s)
	case *ast.While:
		r.expr(s.Cond)
		mark := r.macros.Mark()
		r.loopBody(ast.WHILE, s.Body)
		r.closeBlock(s, mark)
	case *ast.Do:
		if s.Cond != nil && s.AtTop {
			r.expr(s.Cond)
		}
		mark := r.macros.Mark()
		r.loopBody(ast.DO, s.Body)
		if s.Cond != nil && !s.AtTop {
			r.expr(s.Cond)
		}
		r.closeBlock(s, mark)
	case *ast.If:
		for _, b := range s.Branches {
			if b.Cond != nil {
				r.expr(b.Cond)
			}
			mark := r.macros.Mark()
			r.body(b.Body)
			r.closeBlock(b, mark)
		}
	case *ast.SelectCase:
		r.expr(s.Subject)
		for _, c := range s.Cases {
			for _, v := range c.Values {
				r.expr(v)
			}
			mark := r.macros.Mark()
			r.body(c.Body)
			r.closeBlock(c, mark)
		}
	case *ast.OnJump:
		r.expr(s.Selector)
	case *ast.Keyword:
		if s.Kind == ast.EXIT {
			r.exit(s)
		}
	case *ast.Print:
		for _, item := range s.Items {
			if _, ok := item.(*ast.String); ok {
				continue
			}
			r.expr(item)
		}
	case *ast.Read:
		r.read(s)
	case *ast.Data:
		r.res.data = append(r.res.data, s.Values...)
	case *ast.Restore:
		if s.Target != nil {
			r.restoreTo = append(r.restoreTo, s)
		}
	case *ast.Command:
		r.command(s)
	default:
		r.errorf(n, "unexpected %s statement", n.Type())
	}
}

func labelText(l *ast.Label) string {
	if l.Numbered {
		return fmt.Sprint(l.Number)
	}
	return l.Name
}

//  Lookup

// lookup resolves name as seen from at. It never allocates.
func (r *resolver) lookup(name string, at loc.TextLocation, depth int) (binding, error) {
	if depth > maxAliasDepth {
		return binding{}, fmt.Errorf("alias %s expands more than %d levels deep", name, maxAliasDepth)
	}
	if f, ok := LookupFunction(name); ok {
		return binding{kind: bindBuiltinFn, name: f.Name, builtin: f}, nil
	}
	found, err := r.syms.Resolve(name, at)
	if err != nil {
		return binding{}, err
	}
	if m := found.Macro; m != nil {
		switch m.Type {
		case symbols.Constant:
			return binding{kind: bindConst, name: name, value: m.Data}, nil
		case symbols.VariableAlias:
			return binding{kind: bindVariable, name: m.Target, addr: m.Data}, nil
		case symbols.MacroAlias:
			return r.lookup(m.Target, at, depth+1)
		case symbols.StackReference:
			return binding{kind: bindParam, name: name, value: m.Data}, nil
		case symbols.Function:
			return binding{kind: bindFunction, name: name, fn: r.fnBodies[m.Order]}, nil
		}
	}
	ram := found.RAM
	if ram.Usage == symbols.UsageArray {
		return binding{kind: bindArray, name: ram.Name, addr: ram.Address, dims: r.dims[ram.Name]}, nil
	}
	return binding{kind: bindVariable, name: ram.Name, addr: ram.Address}, nil
}

// allocate reserves RAM, stopping the walk on OUT_OF_MEMORY.
func (r *resolver) allocate(name string, size int, usage symbols.Usage, at loc.TextLocation) (symbols.RamLocation, bool) {
	ram, err := r.alloc.Allocate(name, size, usage, at)
	if err != nil {
		r.fatal(at, err)
		return ram, false
	}
	return ram, true
}

// target resolves the scalar variable written by an assignment, FOR, READ or
// a built-in output argument. declares reports whether the statement is an
// explicit declaration.
func (r *resolver) target(node ast.Node, name string, declares bool) (binding, bool) {
	at := node.Location().Begin
	b, err := r.lookup(name, at, 0)
	if err == nil {
		switch b.kind {
		case bindVariable:
			return b, true
		case bindConst:
			r.errorf(node, "cannot assign to constant %s", name)
		case bindArray:
			r.errorf(node, "array %s needs an index", name)
		case bindParam:
			r.errorf(node, "cannot assign to parameter %s", name)
		case bindFunction:
			r.errorf(node, "cannot assign to DEF FN %s", name)
		case bindBuiltinFn:
			r.errorf(node, "%s is a built-in function", b.name)
		}
		return b, false
	}
	if !errors.Is(err, symbols.ErrUnresolved) {
		r.errorf(node, "%v", err)
		return b, false
	}
	if r.opts.Strategies.DeclarationRequired && !declares {
		r.errorf(node, "unresolved reference %s", name)
		return b, false
	}
	ram, ok := r.allocate(name, 2, symbols.UsageVariable, at)
	if !ok {
		return b, false
	}
	return binding{kind: bindVariable, name: ram.Name, addr: ram.Address}, true
}

// element resolves an array element reference.
func (r *resolver) element(node ast.Node, name string, index []ast.Node) (binding, bool) {
	b, err := r.lookup(name, node.Location().Begin, 0)
	if err != nil || b.kind != bindArray {
		r.errorf(node, "%s is not a DIM'd array", name)
		return b, false
	}
	if len(index) != len(b.dims) {
		r.errorf(node, "array %s has %d dimension(s), got %d index(es)", name, len(b.dims), len(index))
		return b, false
	}
	for _, i := range index {
		r.expr(i)
	}
	return b, true
}

//  Declarations

func (r *resolver) constDecl(n *ast.Const) {
	v, ok := r.constEval(n.Value)
	if !ok {
		r.errorf(n, "CONST %s needs a constant value, got %s", n.Name, ast.Source(n.Value))
		return
	}
	if _, builtin := LookupFunction(n.Name); builtin {
		r.errorf(n, "%s is a built-in function", n.Name)
		return
	}
	r.macros.Insert(symbols.Macro{
		Name:  n.Name,
		Type:  symbols.Constant,
		Data:  v,
		Scope: loc.Span(n.Location().End, loc.Max()),
	})
}

func (r *resolver) let(n *ast.Let) {
	r.expr(n.Value)
	if r.stop {
		return
	}
	var b binding
	var ok bool
	if len(n.Index) > 0 {
		b, ok = r.element(n, n.Name, n.Index)
	} else {
		b, ok = r.target(n, n.Name, n.Explicit)
	}
	if ok {
		r.res.bindings[n] = b
	}
}

func (r *resolver) dim(n *ast.Dim) {
	if _, builtin := LookupFunction(n.Name); builtin {
		r.errorf(n, "%s is a built-in function", n.Name)
		return
	}
	if _, exists := r.alloc.Lookup(n.Name); exists {
		r.errorf(n, "%s is already declared", n.Name)
		return
	}
	elements := 1
	dims := make([]int, 0, len(n.Dims))
	for _, d := range n.Dims {
		v, ok := r.constEval(d)
		if !ok {
			r.errorf(d, "array size must be constant, got %s", ast.Source(d))
			return
		}
		e := v + 1 - r.opts.Strategies.IndexBase
		if e < 1 {
			r.errorf(d, "array %s has no elements in dimension %s", n.Name, ast.Source(d))
			return
		}
		dims = append(dims, e)
		elements *= e
	}
	ram, ok := r.allocate(n.Name, 2*elements, symbols.UsageArray, n.Location().Begin)
	if !ok {
		return
	}
	r.dims[n.Name] = dims
	r.res.bindings[n] = binding{kind: bindArray, name: ram.Name, addr: ram.Address, dims: dims}
}

func (r *resolver) def(n *ast.Def) {
	at := n.Location().Begin
	m := symbols.Macro{Name: n.Name, Type: symbols.MacroAlias, Target: n.Target, Scope: loc.Span(n.Location().End, loc.Max())}
	if b, err := r.lookup(n.Target, at, 0); err == nil && b.kind == bindVariable {
		m.Type, m.Data, m.Target = symbols.VariableAlias, b.addr, b.name
	}
	r.macros.Insert(m)
}

func (r *resolver) defFn(n *ast.DefFn) {
	if _, builtin := LookupFunction(n.Name); builtin {
		r.errorf(n, "%s is a built-in function", n.Name)
		return
	}
	for i, p := range n.Params {
		if _, builtin := LookupFunction(p); builtin {
			r.errorf(n, "parameter %s shadows a built-in function", p)
			return
		}
		r.macros.Insert(symbols.Macro{Name: p, Type: symbols.StackReference, Data: i, Scope: n.Body.Location()})
	}
	m := r.macros.Insert(symbols.Macro{
		Name:   n.Name,
		Type:   symbols.Function,
		Data:   len(n.Params),
		Params: slices.Clone(n.Params),
		Scope:  loc.Span(n.Location().Begin, loc.Max()),
	})
	r.fnBodies[m.Order] = n

	r.defining = n
	r.expr(n.Body)
	r.defining = nil
}

//  Control flow

func (r *resolver) loopBody(kind ast.NodeType, body []ast.Node) {
	r.loops = append(r.loops, kind)
	r.body(body)
	r.loops = r.loops[:len(r.loops)-1]
}

func (r *resolver) forLoop(n *ast.For) {
	r.expr(n.From)
	r.expr(n.To)
	if n.Step != nil {
		r.expr(n.Step)
	}
	if r.stop {
		return
	}
	b, ok := r.target(n, n.Var, true)
	if !ok {
		return
	}
	r.res.bindings[n] = b
	r.res.reads[b.name]++

	record := fmt.Sprintf("%s#loop%d", n.Var, len(r.res.loops))
	rec, ok := r.allocate(record, 4, symbols.UsageLoop, n.Location().Begin)
	if !ok {
		return
	}
	r.res.loops[n] = rec.Address

	mark := r.macros.Mark()
	r.loopBody(ast.FOR, n.Body)
	if r.stop {
		return
	}
	// A subroutine called from the body runs while this loop is live, so
	// its own loops must not take over the record.
	if !callsSubroutine(n) {
		if err := r.alloc.Release(record, n.Location().End); err != nil {
			r.errorf(n, "%v", err)
		}
	}
	r.closeBlock(n, mark)
}

func callsSubroutine(n *ast.For) bool {
	return ast.From(n).Children(ast.Is(ast.GOSUB, ast.ON_GOSUB).DoRecursive(true)).Count() > 0
}

func (r *resolver) exit(n *ast.Keyword) {
	want := map[string]ast.NodeType{"FOR": ast.FOR, "WHILE": ast.WHILE, "DO": ast.DO}[n.Arg]
	if !slices.Contains(r.loops, want) {
		r.errorf(n, "EXIT %s outside a %s loop", n.Arg, n.Arg)
	}
}

//  I/O

func (r *resolver) read(n *ast.Read) {
	if r.res.readPtr < 0 {
		ptr, ok := r.allocate("#read", 2, symbols.UsageRead, n.Location().Begin)
		if !ok {
			return
		}
		r.res.readPtr = ptr.Address
	}
	for _, t := range n.Targets {
		switch e := t.(type) {
		case *ast.Ident:
			if b, ok := r.target(e, e.Name, false); ok {
				r.res.bindings[e] = b
			}
		case *ast.Call:
			if b, ok := r.element(e, e.Name, e.Args); ok {
				r.res.bindings[e] = b
			}
		}
		if r.stop {
			return
		}
	}
}

func (r *resolver) command(n *ast.Command) {
	b, _ := LookupCommand(n.Keyword)
	form, ok := b.Form(n.Sub)
	if !ok {
		r.errorf(n, "%s needs one of the options %s", b.Keyword, strings.Join(subsOf(b), ", "))
		return
	}
	switch b.Needs {
	case NeedsRTC:
		if !r.opts.Strategies.RTC {
			r.errorf(n, "%s requires a cartridge with a real-time clock", b.Keyword)
			return
		}
	case NeedsSRAM:
		if r.opts.Strategies.SRAMType == SRAMNone {
			r.errorf(n, "%s requires a cartridge with SRAM", b.Keyword)
			return
		}
	}
	if len(n.Args) != len(form.Args) {
		r.errorf(n, "%s expects %d argument(s), got %d", formName(b, form), len(form.Args), len(n.Args))
		return
	}

	for i, want := range form.Args {
		arg := n.Args[i]
		switch want.Kind {
		case ArgNumber:
			r.expr(arg)
		case ArgString:
			if _, ok := arg.(*ast.String); !ok {
				r.errorf(arg, "%s argument %d must be a string literal", formName(b, form), i+1)
			}
		case ArgTarget:
			id, ok := arg.(*ast.Ident)
			if !ok {
				r.errorf(arg, "%s argument %d must be a variable", formName(b, form), i+1)
				continue
			}
			if bound, ok := r.target(id, id.Name, false); ok {
				r.res.bindings[id] = bound
			}
		case ArgAsset:
			r.asset(arg, want.Asset)
		}
		if r.stop {
			return
		}
	}

	if form.Record != symbols.UsageNone {
		rec := records[form.Record]
		ram, ok := r.allocate(rec.name, rec.size, form.Record, n.Location().Begin)
		if !ok {
			return
		}
		r.res.records[n] = ram.Address
	}

	if n.Kind == ast.SCENE {
		if idx, ok := r.res.assets[n.Args[0]]; ok {
			players := 0
			for _, a := range r.bundle.SceneActors(idx) {
				if r.opts.isPlayer(a) {
					players++
				}
			}
			if players > 1 {
				r.errorf(n, "scene %s has %d player actors, at most one is allowed", r.bundle.Names(assets.KindScene)[idx], players)
			}
		}
	}
	r.res.forms[n] = form
}

func subsOf(b *Builtin) []string {
	var out []string
	for _, f := range b.Forms {
		name := f.Sub
		if name == "" {
			name = "(none)"
		}
		out = append(out, name)
	}
	return out
}

func formName(b *Builtin, f *Form) string {
	if f.Sub == "" {
		return b.Keyword
	}
	return b.Keyword + " " + f.Sub
}

// asset checks an asset argument against the bundle. Names and constant
// indices are validated now; other expressions are checked by the kernel.
func (r *resolver) asset(arg ast.Node, kind assets.Kind) {
	if s, ok := arg.(*ast.String); ok {
		idx, found := r.bundle.Index(kind, s.Value)
		if !found {
			r.errorf(arg, "unknown %s asset %q", kind, s.Value)
			return
		}
		r.res.assets[arg] = idx
		return
	}
	if v, ok := r.constEval(arg); ok {
		idx := v - r.opts.Strategies.IndexBase
		if !r.bundle.Has(kind, idx) {
			r.errorf(arg, "%s index %d out of range, the bundle has %d", kind, v, r.bundle.Count(kind))
			return
		}
		r.res.assets[arg] = idx
		return
	}
	r.expr(arg)
}

//  Expressions

func (r *resolver) expr(n ast.Node) {
	if r.stop {
		return
	}
	switch e := n.(type) {
	case *ast.Number:
	case *ast.String:
		r.errorf(e, "string %s is not allowed in an expression", ast.Source(e))
	case *ast.Ident:
		r.ident(e)
	case *ast.Call:
		r.call(e)
	case *ast.Unary:
		r.expr(e.X)
	case *ast.Binary:
		r.expr(e.L)
		r.expr(e.R)
	default:
		r.errorf(n, "unexpected %s in expression", n.Type())
	}
}

func (r *resolver) ident(n *ast.Ident) {
	at := n.Location().Begin
	b, err := r.lookup(n.Name, at, 0)
	if err != nil {
		if !errors.Is(err, symbols.ErrUnresolved) {
			r.errorf(n, "%v", err)
			return
		}
		if r.opts.Strategies.DeclarationRequired {
			r.errorf(n, "unresolved reference %s", n.Raw)
			return
		}
		ram, ok := r.allocate(n.Name, 2, symbols.UsageVariable, at)
		if !ok {
			return
		}
		b = binding{kind: bindVariable, name: ram.Name, addr: ram.Address}
	}
	switch b.kind {
	case bindArray:
		r.errorf(n, "array %s needs an index", n.Raw)
		return
	case bindFunction:
		if len(b.fn.Params) > 0 {
			r.errorf(n, "DEF FN %s needs %d argument(s)", n.Raw, len(b.fn.Params))
			return
		}
		if b.fn == r.defining {
			r.errorf(n, "DEF FN %s calls itself", n.Raw)
			return
		}
	case bindBuiltinFn:
		if b.builtin.Arity > 0 {
			r.errorf(n, "%s needs %d argument(s)", b.builtin.Name, b.builtin.Arity)
			return
		}
	case bindVariable:
		r.res.reads[b.name]++
	}
	r.res.bindings[n] = b
}

func (r *resolver) call(n *ast.Call) {
	b, err := r.lookup(n.Name, n.Location().Begin, 0)
	if err != nil {
		if !errors.Is(err, symbols.ErrUnresolved) {
			r.errorf(n, "%v", err)
		} else {
			r.errorf(n, "%s is not a DIM'd array or a function", n.Raw)
		}
		return
	}
	switch b.kind {
	case bindBuiltinFn:
		if len(n.Args) != b.builtin.Arity {
			r.errorf(n, "%s expects %d argument(s), got %d", b.builtin.Name, b.builtin.Arity, len(n.Args))
			return
		}
	case bindFunction:
		if b.fn == r.defining {
			r.errorf(n, "DEF FN %s calls itself", n.Raw)
			return
		}
		if len(n.Args) != len(b.fn.Params) {
			r.errorf(n, "DEF FN %s expects %d argument(s), got %d", n.Raw, len(b.fn.Params), len(n.Args))
			return
		}
	case bindArray:
		if len(n.Args) != len(b.dims) {
			r.errorf(n, "array %s has %d dimension(s), got %d index(es)", n.Raw, len(b.dims), len(n.Args))
			return
		}
		r.res.reads[b.name]++
	default:
		r.errorf(n, "%s is not a DIM'd array or a function", n.Raw)
		return
	}
	for _, a := range n.Args {
		r.expr(a)
	}
	r.res.bindings[n] = b
}

// constEval folds n when it only involves literals, constants and foldable
// built-in functions. It never reports or allocates.
func (r *resolver) constEval(n ast.Node) (int, bool) {
	switch e := n.(type) {
	case *ast.Number:
		return word(e.Value), true
	case *ast.Ident:
		b, err := r.lookup(e.Name, e.Location().Begin, 0)
		if err != nil || b.kind != bindConst {
			return 0, false
		}
		return b.value, true
	case *ast.Unary:
		x, ok := r.constEval(e.X)
		if !ok {
			return 0, false
		}
		return foldUnary(e.Op, x)
	case *ast.Binary:
		a, ok := r.constEval(e.L)
		if !ok {
			return 0, false
		}
		b, ok := r.constEval(e.R)
		if !ok {
			return 0, false
		}
		return foldBinary(e.Op, a, b)
	case *ast.Call:
		f, ok := LookupFunction(e.Name)
		if !ok || f.Fold == nil || len(e.Args) != f.Arity {
			return 0, false
		}
		args := make([]int, len(e.Args))
		for i, a := range e.Args {
			if args[i], ok = r.constEval(a); !ok {
				return 0, false
			}
		}
		v, ok := f.Fold(args)
		return word(v), ok
	}
	return 0, false
}

// unused reports RAM variables and arrays that are never read.
func (r *resolver) unused() []Diagnostic {
	var out []Diagnostic
	for _, ram := range r.alloc.Dictionary().Entries() {
		if ram.Usage != symbols.UsageVariable && ram.Usage != symbols.UsageArray {
			continue
		}
		if r.res.reads[ram.Name] == 0 {
			out = append(out, Diagnostic{
				Message:  fmt.Sprintf("%s %s is never read", strings.ToLower(ram.Usage.String()), ram.Name),
				Warning:  true,
				Location: ram.Location,
			})
		}
	}
	return out
}
