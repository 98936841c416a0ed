// Package kernel reads the prebuilt runtime image that compiled programs are
// spliced into, together with its symbol and alias side tables.
//
// Symbol table lines have the form
//
//	BB:AAAA name      ; comment
//
// where BB is the ROM bank (or 00 for RAM) and AAAA the CPU address, both hex.
// Alias table lines have the form
//
//	NAME = symbol
//
// and expose a kernel RAM location to BASIC under NAME.
package kernel

import (
	"bufio"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// BankSize is the size of one switchable ROM bank.
const BankSize = 0x4000

// Symbols every kernel must export.
const (
	SymBootstrap = "__gbb_bootstrap"
	SymHeap      = "__gbb_heap"
	SymHeapEnd   = "__gbb_heap_end"
)

// Header offsets inside bank 0.
const (
	HeaderTitle    = 0x134
	HeaderCGB      = 0x143
	HeaderSGB      = 0x146
	HeaderCartType = 0x147
	HeaderROMSize  = 0x148
	HeaderRAMSize  = 0x149
	HeaderChecksum = 0x14D
	HeaderGlobal   = 0x14E
	HeaderEnd      = 0x150
)

var (
	ErrEmptyImage     = errors.New("kernel image is empty")
	ErrImageSize      = errors.New("kernel image size is not a whole number of banks")
	ErrHeaderMismatch = errors.New("kernel header disagrees with image size")
	ErrSymbolSyntax   = errors.New("malformed symbol line")
	ErrAliasSyntax    = errors.New("malformed alias line")
	ErrMissingSymbol  = errors.New("missing kernel symbol")
)

// Symbol is one exported kernel location.
type Symbol struct {
	Name string
	Bank int
	Addr int
}

func (s Symbol) String() string {
	return fmt.Sprintf("%02X:%04X %s", s.Bank, s.Addr, s.Name)
}

// Alias exposes a kernel symbol to programs under another name.
type Alias struct {
	Name   string
	Symbol Symbol
	Line   int
}

// Image is a parsed kernel.
type Image struct {
	ROM     []byte
	symbols map[string]Symbol
	aliases []Alias
}

// Parse validates rom and both side tables.
func Parse(rom []byte, symbolText, aliasText string) (*Image, error) {
	if len(rom) == 0 {
		return nil, ErrEmptyImage
	}
	if len(rom)%BankSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageSize, len(rom))
	}
	img := &Image{ROM: rom, symbols: make(map[string]Symbol)}
	if img.HasHeader() {
		code := int(rom[HeaderROMSize])
		if want, ok := ROMSizeCode(img.Banks()); !ok || want != code {
			return nil, fmt.Errorf("%w: ROM size code 0x%02X, image has %d banks", ErrHeaderMismatch, code, img.Banks())
		}
	}

	if err := img.parseSymbols(symbolText); err != nil {
		return nil, err
	}
	for _, name := range []string{SymBootstrap, SymHeap, SymHeapEnd} {
		if _, ok := img.symbols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSymbol, name)
		}
	}
	if end, start := img.symbols[SymHeapEnd].Addr, img.symbols[SymHeap].Addr; end <= start {
		return nil, fmt.Errorf("%w: heap window 0x%04X..0x%04X is empty", ErrMissingSymbol, start, end)
	}
	if err := img.parseAliases(aliasText); err != nil {
		return nil, err
	}
	return img, nil
}

func (img *Image) parseSymbols(text string) error {
	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(sc.Text()))
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("%w on line %d: %q", ErrSymbolSyntax, lineNo, line)
		}
		bankText, addrText, ok := strings.Cut(fields[0], ":")
		if !ok {
			return fmt.Errorf("%w on line %d: %q", ErrSymbolSyntax, lineNo, line)
		}
		bank, err := strconv.ParseUint(bankText, 16, 8)
		if err != nil {
			return fmt.Errorf("%w on line %d: bad bank %q", ErrSymbolSyntax, lineNo, bankText)
		}
		addr, err := strconv.ParseUint(addrText, 16, 16)
		if err != nil {
			return fmt.Errorf("%w on line %d: bad address %q", ErrSymbolSyntax, lineNo, addrText)
		}
		name := fields[1]
		img.symbols[name] = Symbol{Name: name, Bank: int(bank), Addr: int(addr)}
	}
	return sc.Err()
}

func (img *Image) parseAliases(text string) error {
	sc := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	seen := make(map[string]int)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(sc.Text()))
		if line == "" {
			continue
		}
		name, target, ok := strings.Cut(line, "=")
		name, target = strings.TrimSpace(name), strings.TrimSpace(target)
		if !ok || name == "" || target == "" || strings.ContainsAny(name, " \t") {
			return fmt.Errorf("%w on line %d: %q", ErrAliasSyntax, lineNo, line)
		}
		sym, found := img.symbols[target]
		if !found {
			return fmt.Errorf("%w: alias %s on line %d refers to %s", ErrMissingSymbol, name, lineNo, target)
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("%w on line %d: %s already defined on line %d", ErrAliasSyntax, lineNo, name, prev)
		}
		seen[name] = lineNo
		img.aliases = append(img.aliases, Alias{Name: name, Symbol: sym, Line: lineNo})
	}
	return sc.Err()
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

// Banks is the number of 16 KiB banks in the image.
func (img *Image) Banks() int { return len(img.ROM) / BankSize }

// Symbol returns the named symbol.
func (img *Image) Symbol(name string) (Symbol, bool) {
	s, ok := img.symbols[name]
	return s, ok
}

// Symbols lists every symbol sorted by bank and address.
func (img *Image) Symbols() []Symbol {
	out := make([]Symbol, 0, len(img.symbols))
	for _, s := range img.symbols {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bank != out[j].Bank {
			return out[i].Bank < out[j].Bank
		}
		if out[i].Addr != out[j].Addr {
			return out[i].Addr < out[j].Addr
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Aliases lists the alias table in file order.
func (img *Image) Aliases() []Alias {
	return append([]Alias(nil), img.aliases...)
}

// Heap returns the kernel's working RAM window [start, end).
func (img *Image) Heap() (int, int) {
	return img.symbols[SymHeap].Addr, img.symbols[SymHeapEnd].Addr
}

// Offset maps a ROM symbol to its file offset. Bank 0 is fixed at 0x0000;
// every other bank is mapped at 0x4000.
func Offset(s Symbol) int {
	if s.Bank == 0 {
		return s.Addr
	}
	return s.Bank*BankSize + s.Addr - BankSize
}

// Bootstrap is the location the kernel jumps to once it has initialised.
func (img *Image) Bootstrap() Symbol { return img.symbols[SymBootstrap] }

// HasHeader reports whether bank 0 carries a cartridge header with a valid
// header checksum.
func (img *Image) HasHeader() bool {
	if len(img.ROM) < HeaderEnd {
		return false
	}
	return HeaderChecksumOf(img.ROM) == img.ROM[HeaderChecksum]
}

// BankBlank reports whether bank holds nothing but 0x00 or 0xFF fill.
func (img *Image) BankBlank(bank int) bool {
	if bank < 0 || bank >= img.Banks() {
		return true
	}
	data := img.ROM[bank*BankSize : (bank+1)*BankSize]
	fill := data[0]
	if fill != 0x00 && fill != 0xFF {
		return false
	}
	for _, b := range data {
		if b != fill {
			return false
		}
	}
	return true
}

// HeaderChecksumOf computes the header checksum over 0x134..0x14C.
func HeaderChecksumOf(rom []byte) byte {
	var x byte
	for _, b := range rom[HeaderTitle:HeaderChecksum] {
		x = x - b - 1
	}
	return x
}

// ROMSizeCode maps a bank count to the header ROM size byte (32 KiB << code).
func ROMSizeCode(banks int) (int, bool) {
	for code := 0; code <= 8; code++ {
		if 2<<code == banks {
			return code, true
		}
	}
	return 0, false
}
