package compiler

import (
	"fmt"
	"strings"

	"gbbasic/pkg/asm"
	"gbbasic/pkg/assets"
	"gbbasic/pkg/ast"
	"gbbasic/pkg/cart"
	"gbbasic/pkg/kernel"
	"gbbasic/pkg/symbols"
)

// Program is the unit of work of the pipeline. The caller fills the inputs;
// Load, Compile and Link fill the rest.
type Program struct {
	// Inputs
	Title      string
	Pages      []string
	KernelROM  []byte
	SymbolText string
	AliasText  string
	Assets     *assets.Bundle

	// Outputs
	ASTText  string
	AST      *ast.Program
	Compiled Compiled

	kernel *kernel.Image
	loaded bool
	stage  Passes // how far the last Compile got
	image  *cart.Image
}

// Compiled is what Compile and Link produce.
type Compiled struct {
	Macros        []symbols.Macro
	Allocations   *symbols.Dictionary
	Objects       []*asm.Object // one per page, then the DATA table when present
	Assembly      []string      // assembly text per object
	Code          []byte        // linked program, placed at cart.BankWindow
	Bytes         []byte        // the cartridge image
	Placements    []cart.Placement
	EffectiveSize EffectiveSize
	BuildID       string
}

// EffectiveSize is the byte budget per section of the image.
type EffectiveSize struct {
	Code   int
	RAM    int
	Tiles  int
	Maps   int
	Fonts  int
	Music  int
	Sfx    int
	Actors int
	Scenes int
	Tables int
	Total  int
	Banks  int
}

func (e EffectiveSize) String() string {
	var sb strings.Builder
	row := func(name string, n int) {
		if n > 0 {
			fmt.Fprintf(&sb, "  %-8s %6d bytes\n", name, n)
		}
	}
	sb.WriteString("Effective size:\n")
	row("code", e.Code)
	row("tables", e.Tables)
	row("tiles", e.Tiles)
	row("maps", e.Maps)
	row("fonts", e.Fonts)
	row("music", e.Music)
	row("sfx", e.Sfx)
	row("actors", e.Actors)
	row("scenes", e.Scenes)
	fmt.Fprintf(&sb, "  %-8s %6d bytes\n", "total", e.Total)
	fmt.Fprintf(&sb, "  %-8s %6d bytes\n", "ram", e.RAM)
	fmt.Fprintf(&sb, "  %-8s %6d\n", "banks", e.Banks)
	return sb.String()
}

func (e *EffectiveSize) addAssets(sizes map[assets.Kind]int) {
	e.Tiles = sizes[assets.KindTiles]
	e.Maps = sizes[assets.KindMap]
	e.Fonts = sizes[assets.KindFont]
	e.Music = sizes[assets.KindMusic]
	e.Sfx = sizes[assets.KindSfx]
	e.Actors = sizes[assets.KindActor]
	e.Scenes = sizes[assets.KindScene]
}

// reset clears the outputs so the Program can be compiled again.
func (p *Program) reset() {
	p.ASTText = ""
	p.AST = nil
	p.Compiled = Compiled{}
	p.stage = PassParse
	p.image = nil
}
