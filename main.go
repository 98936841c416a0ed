//go:build !js

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	"gbbasic/pkg/assets"
	"gbbasic/pkg/compiler"
	"gbbasic/pkg/utils"
)

// project is the layout of a -config file. Paths are relative to the
// working directory; flags override them.
type project struct {
	Title      string              `toml:"title"`
	Kernel     string              `toml:"kernel"`
	Symbols    string              `toml:"symbols"`
	Aliases    string              `toml:"aliases"`
	Assets     string              `toml:"assets"`
	Out        string              `toml:"out"`
	Strategies compiler.Strategies `toml:"strategies"`
	Piping     compiler.Piping     `toml:"piping"`
}

func defaultProject() project {
	d := compiler.DefaultOptions()
	return project{Title: "GBBASIC", Strategies: d.Strategies, Piping: d.Piping}
}

// loadProject reads a config file over the defaults.
func loadProject(path string) (project, error) {
	p := defaultProject()
	if path == "" {
		return p, nil
	}
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return p, fmt.Errorf("config %s: %w", path, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return p, fmt.Errorf("config %s: unknown key %s", path, keys[0])
	}
	return p, nil
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

// formatDiagnostic renders d with the page file name, coloured when color is set.
func formatDiagnostic(d compiler.Diagnostic, files []string, color bool) string {
	text := d.Error()
	if !d.Location.Invalid() && d.Location.Page >= 0 && d.Location.Page < len(files) {
		text = fmt.Sprintf("%s:%d:%d: ", files[d.Location.Page], d.Location.Row+1, d.Location.Column+1)
		if d.Warning {
			text += "warning: "
		} else {
			text += "error: "
		}
		text += d.Message
	}
	if !color {
		return text
	}
	if d.Warning {
		return ansiYellow + text + ansiReset
	}
	return ansiRed + text + ansiReset
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// run does one gbbc invocation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer, color bool) int {
	fs := flag.NewFlagSet("gbbc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inPath := fs.String("in", "", "page file or directory of .bas pages, comma separated")
	kernelPath := fs.String("kernel", "", "kernel ROM image")
	symbolsPath := fs.String("symbols", "", "kernel symbol table (default: kernel with .sym extension)")
	aliasesPath := fs.String("aliases", "", "kernel alias table")
	assetsPath := fs.String("assets", "", "asset bundle (YAML or JSON)")
	outPath := fs.String("out", "", "output ROM (default: first page with .gb extension)")
	configPath := fs.String("config", "", "project file (TOML)")
	passesName := fs.String("passes", "FULL", "how far to compile: PARSE, GENERATE or FULL")
	verbosity := fs.Int("v", 1, "verbosity 0-3")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	proj, err := loadProject(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	override("kernel", &proj.Kernel, *kernelPath)
	override("symbols", &proj.Symbols, *symbolsPath)
	override("aliases", &proj.Aliases, *aliasesPath)
	override("assets", &proj.Assets, *assetsPath)
	override("out", &proj.Out, *outPath)
	if set["v"] {
		proj.Piping.Verbosity = *verbosity
	}

	inputs := fs.Args()
	if *inPath != "" {
		inputs = append(strings.Split(*inPath, ","), inputs...)
	}
	if len(inputs) == 0 || proj.Kernel == "" {
		fmt.Fprintln(stderr, "nothing to do: provide -in pages and -kernel")
		fs.Usage()
		return 2
	}
	passes, err := compiler.ParsePasses(*passesName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	files, pages, err := utils.ReadPages(inputs)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read pages: %v\n", err)
		return 1
	}
	rom, err := os.ReadFile(proj.Kernel)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read kernel %q: %v\n", proj.Kernel, err)
		return 1
	}
	if proj.Symbols == "" {
		proj.Symbols = utils.WithExt(proj.Kernel, ".sym")
	}
	symText, err := readOptional(proj.Symbols)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read symbols %q: %v\n", proj.Symbols, err)
		return 1
	}
	aliasText, err := readOptional(proj.Aliases)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read aliases %q: %v\n", proj.Aliases, err)
		return 1
	}
	var bundle *assets.Bundle
	if proj.Assets != "" {
		if bundle, err = assets.Load(proj.Assets); err != nil {
			fmt.Fprintf(stderr, "failed to load assets: %v\n", err)
			return 1
		}
	}

	opts := compiler.DefaultOptions()
	opts.Strategies = proj.Strategies
	opts.Piping = proj.Piping
	opts.Passes = passes
	opts.OnPrint = func(msg string) { fmt.Fprintln(stdout, msg) }
	opts.OnError = func(d compiler.Diagnostic) { fmt.Fprintln(stderr, formatDiagnostic(d, files, color)) }

	prog := &compiler.Program{
		Title:      proj.Title,
		Pages:      pages,
		KernelROM:  rom,
		SymbolText: symText,
		AliasText:  aliasText,
		Assets:     bundle,
	}
	if !compiler.Build(prog, opts) {
		return 1
	}

	switch passes {
	case compiler.PassParse:
		fmt.Fprint(stdout, prog.ASTText)
		return 0
	case compiler.PassGenerate:
		for _, text := range prog.Compiled.Assembly {
			fmt.Fprint(stdout, text)
		}
		return 0
	}

	out := proj.Out
	if out == "" {
		out = utils.WithExt(files[0], ".gb")
	}
	if err := os.WriteFile(out, prog.Compiled.Bytes, 0o644); err != nil {
		fmt.Fprintf(stderr, "failed to write ROM %q: %v\n", out, err)
		return 1
	}
	fmt.Fprintf(stdout, "linked %d bytes -> %s\n", len(prog.Compiled.Bytes), out)
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, isTerminal(os.Stderr)))
}
