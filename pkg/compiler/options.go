package compiler

import (
	"context"
	"fmt"
	"strings"

	"gbbasic/pkg/assets"
	"gbbasic/pkg/cart"
)

// Compatibility tiers of the cartridge.
const (
	CompatClassic   = cart.Classic
	CompatColor     = cart.Color
	CompatExtension = cart.Extension
)

// SRAM size classes.
const (
	SRAMNone = cart.SRAMNone
	SRAM8K   = cart.SRAM8K
	SRAM32K  = cart.SRAM32K
	SRAM64K  = cart.SRAM64K
	SRAM128K = cart.SRAM128K
)

// Strategies are the hardware and language switches of one compile.
type Strategies struct {
	Compatibility       int  `toml:"compatibility"`
	SRAMType            int  `toml:"sram"`
	RTC                 bool `toml:"rtc"`
	CaseSensitive       bool `toml:"case_sensitive"`
	AutoLineNumber      bool `toml:"auto_line_number"`
	DeclarationRequired bool `toml:"declaration_required"`
	IndexBase           int  `toml:"index_base"`
	BootstrapBank       int  `toml:"bootstrap_bank"`
	HeapSize            int  `toml:"heap_size"`
	StackSize           int  `toml:"stack_size"`
	FailOnError         bool `toml:"fail_on_error"`
	OptimizeCode        bool `toml:"optimize_code"`
	OptimizeAssets      bool `toml:"optimize_assets"`
}

// Piping controls how the pipeline runs and how chatty it is.
type Piping struct {
	UseWorkQueue bool `toml:"use_work_queue"`
	Verbosity    int  `toml:"verbosity"`
}

// Passes selects how far Compile goes.
type Passes int

const (
	PassParse    Passes = iota // AST only
	PassGenerate               // plus resolution and per-page objects
	PassFull                   // plus optimisation, cross-page linking and warnings
)

func (p Passes) String() string {
	switch p {
	case PassParse:
		return "PARSE"
	case PassGenerate:
		return "GENERATE"
	case PassFull:
		return "FULL"
	}
	return fmt.Sprintf("Passes(%d)", int(p))
}

// ParsePasses accepts the names printed by Passes.String, in any case.
func ParsePasses(s string) (Passes, error) {
	switch strings.ToUpper(s) {
	case "PARSE":
		return PassParse, nil
	case "GENERATE":
		return PassGenerate, nil
	case "FULL":
		return PassFull, nil
	}
	return 0, fmt.Errorf("unknown passes %q (want PARSE, GENERATE or FULL)", s)
}

// Options configure one pipeline run. The pipeline never modifies them.
type Options struct {
	Strategies Strategies
	Piping     Piping
	Passes     Passes

	// OnPrint receives progress text, OnError every diagnostic as it is found.
	// Both may be nil.
	OnPrint func(msg string)
	OnError func(d Diagnostic)

	// IsPlayer classifies scene actors. When nil, actors whose behaviour is
	// "player" are players.
	IsPlayer func(a assets.Actor) bool

	// Identifiers, when set, collects every name the compiler sees.
	Identifiers *Registry

	// Context cancels a run between pages. Nil means context.Background().
	Context context.Context
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Strategies: Strategies{
			Compatibility:  CompatClassic | CompatColor,
			SRAMType:       SRAMNone,
			AutoLineNumber: true,
			IndexBase:      0,
			BootstrapBank:  1,
			HeapSize:       1024,
			StackSize:      256,
			OptimizeCode:   true,
			OptimizeAssets: true,
		},
		Piping: Piping{Verbosity: 1},
		Passes: PassFull,
	}
}

func (o *Options) context() context.Context {
	if o.Context == nil {
		return context.Background()
	}
	return o.Context
}

func (o *Options) isPlayer(a assets.Actor) bool {
	if o.IsPlayer != nil {
		return o.IsPlayer(a)
	}
	return strings.EqualFold(a.Behaviour, "player")
}

func (o *Options) printf(level int, format string, args ...any) {
	if o.OnPrint == nil || o.Piping.Verbosity < level {
		return
	}
	o.OnPrint(fmt.Sprintf(format, args...))
}

func (o *Options) report(d Diagnostic) {
	if o.OnError != nil {
		o.OnError(d)
	}
}

func (s Strategies) cartConfig(title string) cart.Config {
	return cart.Config{
		Title:         title,
		Compatibility: s.Compatibility,
		SRAM:          s.SRAMType,
		RTC:           s.RTC,
		BootstrapBank: s.BootstrapBank,
	}
}
