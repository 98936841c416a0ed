package compiler

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"gbbasic/pkg/asm"
	"gbbasic/pkg/assets"
	"gbbasic/pkg/ast"
	"gbbasic/pkg/cart"
	"gbbasic/pkg/kernel"
	"gbbasic/pkg/loc"
)

// guard turns a panic inside a stage into an error diagnostic.
func guard(opts *Options, stage string, ok *bool) {
	if v := recover(); v != nil {
		opts.report(Diagnostic{Message: fmt.Sprintf("internal error during %s: %v", stage, v), Location: loc.Invalid()})
		*ok = false
	}
}

func fail(opts *Options, format string, args ...any) bool {
	opts.report(Diagnostic{Message: fmt.Sprintf(format, args...), Location: loc.Invalid()})
	return false
}

// Build runs Load, Compile and Link in turn, stopping at the first failure.
// Link is skipped unless opts.Passes is PassFull.
func Build(p *Program, opts Options) bool {
	if !Load(p, opts) || !Compile(p, opts) {
		return false
	}
	if opts.Passes < PassFull {
		return true
	}
	return Link(p, opts)
}

// Load checks the options against each other and the kernel, and stages the
// kernel image.
func Load(p *Program, opts Options) (ok bool) {
	defer guard(&opts, "load", &ok)
	p.loaded = false
	p.kernel = nil

	s := opts.Strategies
	switch {
	case len(p.Pages) == 0:
		return fail(&opts, "program has no pages")
	case s.IndexBase != 0 && s.IndexBase != 1:
		return fail(&opts, "index base must be 0 or 1, got %d", s.IndexBase)
	case s.HeapSize <= 0:
		return fail(&opts, "heap size must be positive, got %d", s.HeapSize)
	case s.StackSize < 0:
		return fail(&opts, "stack size must not be negative, got %d", s.StackSize)
	}

	k, err := kernel.Parse(p.KernelROM, p.SymbolText, p.AliasText)
	if err != nil {
		return fail(&opts, "load kernel: %v", err)
	}
	if err := cart.Validate(s.cartConfig(p.Title), k); err != nil {
		return fail(&opts, "%v", err)
	}
	start, end := k.Heap()
	if window := end - start; s.HeapSize+s.StackSize > window {
		return fail(&opts, "heap (%d) and stack (%d) need %d bytes, the kernel RAM window is %d bytes",
			s.HeapSize, s.StackSize, s.HeapSize+s.StackSize, window)
	}

	p.kernel = k
	p.loaded = true
	opts.printf(1, "Loaded kernel: %d bank(s), %d page(s)", k.Banks(), len(p.Pages))
	return true
}

// Compile parses every page and, depending on opts.Passes, resolves and
// generates code for them.
func Compile(p *Program, opts Options) (ok bool) {
	defer guard(&opts, "compile", &ok)
	if !p.loaded {
		return fail(&opts, "compile needs a successful load")
	}
	p.reset()

	pages, ok := parsePages(p, &opts)
	if !ok {
		return false
	}
	p.AST = &ast.Program{Pages: pages, Pos: loc.Span(pages[0].Location().Begin, pages[len(pages)-1].Location().End)}
	p.ASTText = p.AST.Dump()
	registerSource(opts.Identifiers, p.AST)
	opts.printf(1, "Parsed %d page(s)", len(pages))
	if opts.Passes == PassParse {
		return true
	}

	r := newResolver(&opts, p.Assets, p.kernel)
	ctx := opts.context()
	for _, pg := range pages {
		if err := ctx.Err(); err != nil {
			return fail(&opts, "compile cancelled: %v", err)
		}
		r.page(pg)
		if r.stop {
			break
		}
	}
	r.finish()
	p.Compiled.Macros = r.macros.All()
	p.Compiled.Allocations = r.alloc.Dictionary()
	registerSymbols(opts.Identifiers, r)
	if r.errors > 0 {
		return false
	}
	if err := r.alloc.Check(); err != nil {
		return fail(&opts, "%v", err)
	}

	objects, ok := generate(p, &opts, r, pages)
	if !ok {
		return false
	}
	p.stage = PassGenerate
	opts.printf(1, "Generated %d object(s)", len(objects))
	if opts.Passes == PassGenerate {
		return true
	}

	linked, err := asm.Link(cart.BankWindow, p.Compiled.Objects...)
	if err != nil {
		reportLink(&opts, err, objects)
		return false
	}
	for _, w := range r.unused() {
		opts.report(w)
	}
	p.Compiled.Code = linked.Code
	p.Compiled.EffectiveSize.Code = len(linked.Code)
	p.Compiled.EffectiveSize.RAM = r.alloc.EstimateFootprint()
	p.Compiled.BuildID = ulid.Make().String()
	p.stage = PassFull
	opts.printf(1, "Compiled %d byte(s) of code, %d byte(s) of RAM", len(linked.Code), p.Compiled.EffectiveSize.RAM)
	return true
}

// parsePages parses every page, concurrently when the work queue is on.
// Diagnostics come out in page order either way.
func parsePages(p *Program, opts *Options) ([]*ast.Page, bool) {
	s := opts.Strategies
	pages := make([]*ast.Page, len(p.Pages))
	errs := make([]error, len(p.Pages))
	parse := func(i int) {
		pages[i], errs[i] = ParsePage(p.Pages[i], ParseConfig{
			Page:           i,
			CaseSensitive:  s.CaseSensitive,
			AutoLineNumber: s.AutoLineNumber,
		})
	}

	ctx := opts.context()
	if opts.Piping.UseWorkQueue {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i := range p.Pages {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				parse(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fail(opts, "compile cancelled: %v", err)
		}
	} else {
		for i := range p.Pages {
			if err := ctx.Err(); err != nil {
				return nil, fail(opts, "compile cancelled: %v", err)
			}
			parse(i)
			opts.printf(2, "Parsed page %d", i+1)
		}
	}

	ok := true
	for _, err := range errs {
		if err == nil {
			continue
		}
		ok = false
		var se *SyntaxError
		if errors.As(err, &se) {
			opts.report(Diagnostic{Message: se.Msg + "\n  |> " + se.Snippet, Location: se.At})
		} else {
			opts.report(Diagnostic{Message: err.Error(), Location: loc.Invalid()})
		}
	}
	return pages, ok
}

// kindBases gives the first global asset index of every kind. The cartridge
// table lists kinds in assets.Kinds order.
func kindBases(b *assets.Bundle) map[assets.Kind]int {
	out := make(map[assets.Kind]int)
	next := 0
	for _, k := range assets.Kinds() {
		out[k] = next
		next += b.Count(k)
	}
	return out
}

// generate emits and assembles one object per page, then the DATA table.
// It returns the generated lines of every object for source mapping.
func generate(p *Program, opts *Options, r *resolver, pages []*ast.Page) ([][]asmLine, bool) {
	bases := kindBases(p.Assets)
	var objects [][]asmLine
	var names []string
	for i, pg := range pages {
		lines, err := newCodeGen(r.res, opts, bases).Page(pg, i == 0, i == len(pages)-1)
		if err != nil {
			var d Diagnostic
			if errors.As(err, &d) {
				opts.report(d)
				return nil, false
			}
			return nil, fail(opts, "%v", err)
		}
		objects = append(objects, lines)
		names = append(names, fmt.Sprintf("page%d", i+1))
	}
	if len(r.res.data) > 0 {
		objects = append(objects, newCodeGen(r.res, opts, bases).Data())
		names = append(names, "data")
	}

	for i, lines := range objects {
		if opts.Passes == PassFull && opts.Strategies.OptimizeCode {
			before := len(lines)
			lines = optimize(lines)
			objects[i] = lines
			opts.printf(2, "Optimised %s: %d -> %d line(s)", names[i], before, len(lines))
		}
		text := assemblyText(lines)
		opts.printf(3, "%s:\n%s", names[i], text)
		obj, err := asm.NewAssembler().AssembleObject(names[i], text)
		if err != nil {
			return nil, fail(opts, "assemble %s: %v", names[i], err)
		}
		p.Compiled.Objects = append(p.Compiled.Objects, obj)
		p.Compiled.Assembly = append(p.Compiled.Assembly, text)
	}
	return objects, true
}

// reportLink maps link errors back to the statements that caused them.
func reportLink(opts *Options, err error, objects [][]asmLine) {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		var undef *asm.UndefinedSymbolError
		if !errors.As(e, &undef) {
			opts.report(Diagnostic{Message: e.Error(), Location: loc.Invalid()})
			continue
		}
		at := loc.Invalid()
		if idx := objectIndex(undef.Object); idx >= 0 && idx < len(objects) {
			if line := undef.Line - 1; line >= 0 && line < len(objects[idx]) {
				at = objects[idx][line].at
			}
		}
		opts.report(Diagnostic{Message: fmt.Sprintf("jump to undefined label %s", displayLabel(undef.Symbol)), Location: at})
	}
}

// objectIndex maps "page<n>" to n-1 and "data" past the pages.
func objectIndex(name string) int {
	var n int
	if _, err := fmt.Sscanf(name, "page%d", &n); err == nil {
		return n - 1
	}
	return -1
}

func displayLabel(key string) string {
	switch {
	case strings.HasPrefix(key, "N"):
		return key[1:]
	case strings.HasPrefix(key, "L_"):
		return key[2:]
	}
	return key
}

// Link splices the compiled code and the asset blobs into the kernel image.
func Link(p *Program, opts Options) (ok bool) {
	defer guard(&opts, "link", &ok)
	if !p.loaded || p.stage != PassFull {
		return fail(&opts, "link needs a successful FULL compile")
	}

	var blobs []cart.Blob
	for _, kind := range assets.Kinds() {
		names := p.Assets.Names(kind)
		for i, name := range names {
			data, err := p.Assets.Encode(kind, i)
			if err != nil {
				return fail(&opts, "encode %s %q: %v", kind, name, err)
			}
			blobs = append(blobs, cart.Blob{Kind: kind, Name: name, Data: data})
		}
	}

	img, err := cart.Build(opts.Strategies.cartConfig(p.Title), cart.Input{
		Kernel: p.kernel,
		Code:   p.Compiled.Code,
		Blobs:  blobs,
		Dedupe: opts.Strategies.OptimizeAssets,
	})
	if err != nil {
		return fail(&opts, "%v", err)
	}

	p.image = img
	p.Compiled.Bytes = img.ROM
	p.Compiled.Placements = img.Placements
	es := &p.Compiled.EffectiveSize
	es.addAssets(img.Sizes)
	es.Tables = img.TableSize
	es.Total = es.Code + es.Tables
	for _, n := range img.Sizes {
		es.Total += n
	}
	es.Banks = img.Banks
	opts.printf(1, "Linked %d bank(s), build %s", img.Banks, p.Compiled.BuildID)
	opts.printf(1, "%s", es)
	return true
}

// registerSource records keywords, built-in functions and labels.
func registerSource(reg *Registry, prog *ast.Program) {
	if reg == nil {
		return
	}
	for _, k := range Keywords() {
		reg.Add(IdentKeyword, k, loc.Invalid())
	}
	for _, f := range functionList {
		reg.Add(IdentFunction, f.Name, loc.Invalid())
	}
	ast.From(prog).Children(ast.Is(ast.LABEL, ast.LINE_NUMBER).DoRecursive(true)).Each(func(n ast.Node) {
		l := n.(*ast.Label)
		reg.Add(IdentLabel, labelText(l), l.Location().Begin)
	})
}

// registerSymbols records the macros and RAM names of a resolution.
func registerSymbols(reg *Registry, r *resolver) {
	if reg == nil {
		return
	}
	for _, m := range r.macros.All() {
		reg.Add(IdentMacro, m.Name, m.Scope.Begin)
	}
	for _, ram := range r.alloc.Dictionary().Entries() {
		if strings.Contains(ram.Name, "#") {
			continue
		}
		reg.Add(IdentVariable, ram.Name, ram.Location)
	}
}
