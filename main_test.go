package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gbbasic/pkg/compiler"
	"gbbasic/pkg/loc"
)

const testSymbols = `
00:0150 __gbb_bootstrap
00:C000 __gbb_heap
00:D000 __gbb_heap_end
`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeKernel(t *testing.T, dir string) string {
	t.Helper()
	rom := make([]byte, 2*0x4000)
	rom[0x100] = 0xC3
	writeFile(t, dir, "kernel.sym", []byte(testSymbols))
	return writeFile(t, dir, "kernel.gb", rom)
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "game.toml", []byte(`
title = "QUEST"
kernel = "k.gb"

[strategies]
heap_size = 512
index_base = 1

[piping]
use_work_queue = true
`))
	p, err := loadProject(path)
	if err != nil {
		t.Fatalf("loadProject: %v", err)
	}
	if p.Title != "QUEST" || p.Kernel != "k.gb" {
		t.Errorf("got %+v", p)
	}
	if p.Strategies.HeapSize != 512 || p.Strategies.IndexBase != 1 || !p.Piping.UseWorkQueue {
		t.Errorf("strategies: %+v, piping: %+v", p.Strategies, p.Piping)
	}
	// Keys missing from the file keep their defaults.
	if p.Strategies.StackSize != 256 || p.Strategies.BootstrapBank != 1 || p.Piping.Verbosity != 1 {
		t.Errorf("defaults lost: %+v", p.Strategies)
	}

	bad := writeFile(t, dir, "bad.toml", []byte("[strategies]\nheap = 1\n"))
	if _, err := loadProject(bad); err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Errorf("expected an unknown key error, got %v", err)
	}
}

func TestFormatDiagnostic(t *testing.T) {
	files := []string{"main.bas", "loop.bas"}
	tests := []struct {
		name  string
		d     compiler.Diagnostic
		color bool
		want  string
	}{
		{"WithFile", compiler.Diagnostic{Message: "boom", Location: loc.At(1, 2, 3)}, false, "loop.bas:3:4: error: boom"},
		{"Warning", compiler.Diagnostic{Message: "unused", Warning: true, Location: loc.At(0, 0, 0)}, false, "main.bas:1:1: warning: unused"},
		{"NoLocation", compiler.Diagnostic{Message: "no pages", Location: loc.Invalid()}, false, "error: no pages"},
		{"Colour", compiler.Diagnostic{Message: "boom", Location: loc.Invalid()}, true, ansiRed + "error: boom" + ansiReset},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatDiagnostic(tc.d, files, tc.color); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	kernel := writeKernel(t, dir)
	pages := filepath.Join(dir, "game")
	if err := os.Mkdir(pages, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, pages, "01.bas", []byte("10 FOR i = 1 TO 3\n20 PRINT i\n30 NEXT\n40 GOSUB 100\n50 END"))
	writeFile(t, pages, "02.bas", []byte("100 PRINT \"done\"\n110 RETURN"))
	out := filepath.Join(dir, "game.gb")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-in", pages, "-kernel", kernel, "-out", out}, &stdout, &stderr, false)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	rom, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(rom) == 0 || len(rom)%0x4000 != 0 {
		t.Errorf("ROM is %d bytes", len(rom))
	}
	if !strings.Contains(stdout.String(), "Effective size:") {
		t.Errorf("expected a size report in %q", stdout.String())
	}
}

func TestRunReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	kernel := writeKernel(t, dir)
	page := writeFile(t, dir, "main.bas", []byte("GOTO 100"))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-kernel", kernel, "-v", "0", page}, &stdout, &stderr, false); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if want := "main.bas:1:1: error: jump to undefined label 100"; !strings.Contains(stderr.String(), want) {
		t.Errorf("expected %q in %q", want, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("expected -v 0 to silence progress, got %q", stdout.String())
	}
}

func TestRunPasses(t *testing.T) {
	dir := t.TempDir()
	kernel := writeKernel(t, dir)
	page := writeFile(t, dir, "main.bas", []byte("x = 1\nPRINT x"))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-kernel", kernel, "-v", "0", "-passes", "generate", page}, &stdout, &stderr, false); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "STORE 49152") {
		t.Errorf("expected assembly, got %q", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "main.gb")); !os.IsNotExist(err) {
		t.Error("GENERATE should not write a ROM")
	}

	if code := run([]string{"-kernel", kernel, "-passes", "nope", page}, &stdout, &stderr, false); code != 2 {
		t.Errorf("expected exit 2 for bad passes, got %d", code)
	}
	if code := run(nil, &stdout, &stderr, false); code != 2 {
		t.Errorf("expected exit 2 without inputs, got %d", code)
	}
}
