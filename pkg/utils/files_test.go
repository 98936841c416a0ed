package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReadPages(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("02_loop.bas", "GOTO 10")
	write("01_main.BAS", "10 PRINT 1")
	write("notes.txt", "ignored")

	paths, pages, err := ReadPages([]string{dir})
	if err != nil {
		t.Fatalf("ReadPages: %v", err)
	}
	wantPaths := []string{filepath.Join(dir, "01_main.BAS"), filepath.Join(dir, "02_loop.bas")}
	if !reflect.DeepEqual(paths, wantPaths) {
		t.Errorf("paths: expected %v, got %v", wantPaths, paths)
	}
	if want := []string{"10 PRINT 1", "GOTO 10"}; !reflect.DeepEqual(pages, want) {
		t.Errorf("pages: expected %q, got %q", want, pages)
	}

	_, pages, err = ReadPages([]string{filepath.Join(dir, "notes.txt")})
	if err != nil || len(pages) != 1 || pages[0] != "ignored" {
		t.Errorf("single file: %q, %v", pages, err)
	}
}

func TestReadPagesErrors(t *testing.T) {
	empty := t.TempDir()
	if _, _, err := ReadPages([]string{empty}); err == nil {
		t.Error("expected an error for a directory without pages")
	}
	if _, _, err := ReadPages([]string{filepath.Join(empty, "missing.bas")}); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestWithExt(t *testing.T) {
	tests := map[string]string{
		"game/main.bas": "game/main.gb",
		"game":          "game.gb",
	}
	for in, want := range tests {
		if got := WithExt(in, ".gb"); got != want {
			t.Errorf("WithExt(%q): expected %q, got %q", in, want, got)
		}
	}
}
