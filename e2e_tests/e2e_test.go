package e2e_tests

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gbbasic/pkg/asm"
	"gbbasic/pkg/assets"
	"gbbasic/pkg/cart"
	"gbbasic/pkg/compiler"
	"gbbasic/pkg/kernel"
	"gbbasic/pkg/utils"
)

const symbols = `
; test kernel
00:0150 __gbb_bootstrap
00:C000 __gbb_heap
00:D000 __gbb_heap_end
00:FF00 rP1
`

const bundle = `
tiles:
  - name: hero
    pixels:
      - "3000000000000003"
      - "0300000000000030"
      - "0030000000000300"
      - "0003000000003000"
      - "0000300000030000"
      - "0000030000300000"
      - "0000003003000000"
      - "0000000330000000"
maps:
  - name: field
    tiles: hero
    width: 2
    height: 1
    cells: [1, 0]
music:
  - name: theme
    data: [1, 2, 3, 4]
sfx:
  - name: jump
    data: [9, 8]
  - name: land
    data: [9, 8]
actors:
  - name: player
    tiles: hero
    frames: 2
    behaviour: player
scenes:
  - name: start
    map: field
    actors: [player]
`

var pages = map[string]string{
	"01_main.bas": `10 CLS
20 SCENE "start"
30 PLAY "theme"
40 FOR i = 1 TO 10
50   IF joy AND 1 THEN SOUND "jump"
60   GOSUB 1000
70 NEXT i
80 GOTO 40
`,
	"02_sub.bas": `1000 READ n
1010 IF n < 0 THEN RESTORE 2000 : READ n
1020 PRINT "N="; n
1030 joy = pad
1040 RETURN
2000 DATA 1, 2, 3, -1
`,
}

type project struct {
	dir    string
	kernel []byte
}

func newProject(t *testing.T) project {
	t.Helper()
	dir := t.TempDir()
	for name, body := range pages {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "assets.yaml"), []byte(bundle), 0o644); err != nil {
		t.Fatal(err)
	}
	rom := make([]byte, 2*kernel.BankSize)
	rom[0x100] = 0xC3
	return project{dir: dir, kernel: rom}
}

func (p project) program(t *testing.T) *compiler.Program {
	t.Helper()
	_, srcs, err := utils.ReadPages([]string{p.dir})
	if err != nil {
		t.Fatalf("ReadPages: %v", err)
	}
	b, err := assets.Load(filepath.Join(p.dir, "assets.yaml"))
	if err != nil {
		t.Fatalf("assets.Load: %v", err)
	}
	return &compiler.Program{
		Title:      "quest",
		Pages:      srcs,
		KernelROM:  p.kernel,
		SymbolText: symbols,
		AliasText:  "pad = rP1\n",
		Assets:     b,
	}
}

func TestBuildCartridge(t *testing.T) {
	prog := newProject(t).program(t)

	var errs []compiler.Diagnostic
	opts := compiler.DefaultOptions()
	opts.Piping.UseWorkQueue = true
	opts.OnError = func(d compiler.Diagnostic) {
		if !d.Warning {
			errs = append(errs, d)
		}
	}
	if !compiler.Build(prog, opts) {
		t.Fatalf("Build: %v", errs)
	}

	rom := prog.Compiled.Bytes
	code := prog.Compiled.Code
	boot := opts.Strategies.BootstrapBank

	t.Run("Header", func(t *testing.T) {
		title := string(bytes.TrimRight(rom[kernel.HeaderTitle:kernel.HeaderCGB], "\x00"))
		if title != "QUEST" {
			t.Errorf("title: got %q", title)
		}
		if rom[kernel.HeaderCGB] != 0x80 {
			t.Errorf("compatibility byte: got 0x%02X", rom[kernel.HeaderCGB])
		}
		if rom[kernel.HeaderChecksum] != kernel.HeaderChecksumOf(rom) {
			t.Error("header checksum mismatch")
		}
	})

	t.Run("Bootstrap", func(t *testing.T) {
		if !bytes.Equal(rom[boot*cart.BankSize:boot*cart.BankSize+len(code)], code) {
			t.Error("code is not at the start of the bootstrap bank")
		}
		splice := 0x150
		if int(rom[splice]) != boot {
			t.Errorf("splice bank: got %d", rom[splice])
		}
		if addr := int(rom[splice+1]) | int(rom[splice+2])<<8; addr != cart.BankWindow {
			t.Errorf("splice code address: got 0x%04X", addr)
		}
		if table := int(rom[splice+3]) | int(rom[splice+4])<<8; table != cart.BankWindow+len(code) {
			t.Errorf("splice table address: got 0x%04X", table)
		}
	})

	t.Run("AssetTable", func(t *testing.T) {
		tableAt := boot*cart.BankSize + len(code)
		count := int(rom[tableAt]) | int(rom[tableAt+1])<<8
		if count != len(prog.Compiled.Placements) {
			t.Fatalf("table lists %d asset(s), %d placed", count, len(prog.Compiled.Placements))
		}
		for i, pl := range prog.Compiled.Placements {
			entry := rom[tableAt+2+i*cart.TableEntrySize:]
			if int(entry[0])|int(entry[1])<<8 != pl.Bank || int(entry[2])|int(entry[3])<<8 != pl.Addr {
				t.Errorf("entry %d: got %v, placed %+v", i, entry[:cart.TableEntrySize], pl)
			}
			kind, idx := pl.Kind, indexOf(prog.Assets.Names(pl.Kind), pl.Name)
			want, err := prog.Assets.Encode(kind, idx)
			if err != nil {
				t.Fatal(err)
			}
			at := pl.Bank*cart.BankSize + pl.Addr - cart.BankWindow
			if !bytes.Equal(rom[at:at+pl.Size], want) {
				t.Errorf("%s %q is not stored at bank %d 0x%04X", kind, pl.Name, pl.Bank, pl.Addr)
			}
		}
	})

	t.Run("Dedupe", func(t *testing.T) {
		var jump, land cart.Placement
		for _, pl := range prog.Compiled.Placements {
			switch pl.Name {
			case "jump":
				jump = pl
			case "land":
				land = pl
			}
		}
		if jump.Bank != land.Bank || jump.Addr != land.Addr {
			t.Errorf("identical sfx should share storage: %+v %+v", jump, land)
		}
		if prog.Compiled.EffectiveSize.Sfx != 2 {
			t.Errorf("sfx bytes: got %d", prog.Compiled.EffectiveSize.Sfx)
		}
	})

	t.Run("Relink", func(t *testing.T) {
		objs := prog.Compiled.Objects
		linked, err := asm.Link(cart.BankWindow, objs...)
		if err != nil {
			t.Fatalf("Link: %v", err)
		}
		if !bytes.Equal(linked.Code, code) {
			t.Error("relinking the objects gave different code")
		}
		if _, ok := linked.Symbols["N1000"]; !ok {
			t.Error("expected line 1000 in the linked symbols")
		}
	})
}

func TestBuildWithoutAssetDedupe(t *testing.T) {
	prog := newProject(t).program(t)
	opts := compiler.DefaultOptions()
	opts.Strategies.OptimizeAssets = false
	if !compiler.Build(prog, opts) {
		t.Fatal("Build failed")
	}
	if prog.Compiled.EffectiveSize.Sfx != 4 {
		t.Errorf("sfx bytes: got %d", prog.Compiled.EffectiveSize.Sfx)
	}
}

func TestOptimisationShrinksCode(t *testing.T) {
	build := func(optimize bool) int {
		prog := newProject(t).program(t)
		opts := compiler.DefaultOptions()
		opts.Strategies.OptimizeCode = optimize
		if !compiler.Build(prog, opts) {
			t.Fatalf("Build(optimize=%v) failed", optimize)
		}
		return len(prog.Compiled.Code)
	}
	if plain, opt := build(false), build(true); opt > plain {
		t.Errorf("optimised code is larger: %d > %d", opt, plain)
	}
}

func TestBootstrapBankBeyondKernel(t *testing.T) {
	p := newProject(t)
	p.kernel = make([]byte, kernel.BankSize)
	p.kernel[0x100] = 0xC3
	prog := p.program(t)

	var msgs []string
	opts := compiler.DefaultOptions()
	opts.Strategies.BootstrapBank = 2
	opts.OnError = func(d compiler.Diagnostic) { msgs = append(msgs, d.Message) }
	if compiler.Build(prog, opts) {
		t.Fatal("expected Build to fail")
	}
	if prog.Compiled.Bytes != nil {
		t.Error("expected no image")
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0], "bootstrap") {
		t.Errorf("got %v", msgs)
	}
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
