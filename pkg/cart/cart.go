// Package cart lays out the final cartridge image: kernel banks, the
// program in the bootstrap bank, asset blobs in the banks that follow, and a
// valid header.
package cart

import (
	"errors"
	"fmt"
	"strings"

	"gbbasic/pkg/assets"
	"gbbasic/pkg/kernel"
)

// BankSize is the size of one switchable ROM bank.
const BankSize = kernel.BankSize

// BankWindow is where a switchable bank is mapped in the CPU address space.
const BankWindow = 0x4000

// TableEntrySize is bank (2) + address (2) + size (2), all little-endian.
const TableEntrySize = 6

// SpliceSize is what the linker writes at the kernel's bootstrap symbol:
// bootstrap bank, program entry, asset table address.
const SpliceSize = 5

var (
	ErrConfig        = errors.New("invalid cartridge configuration")
	ErrBootstrapBank = errors.New("invalid bootstrap bank")
	ErrBankOverflow  = errors.New("bank overflow")
	ErrROMTooLarge   = errors.New("cartridge too large")
)

// Compatibility tiers.
const (
	Classic   = 1 << 0
	Color     = 1 << 1
	Extension = 1 << 2
)

// SRAM size classes.
const (
	SRAMNone = iota
	SRAM8K
	SRAM32K
	SRAM64K
	SRAM128K
)

// Header cartridge types.
const (
	TypeMBC5             = 0x19
	TypeMBC5RAMBattery   = 0x1B
	TypeMBC3TimerBattery = 0x0F
	TypeMBC3TimerRAMBatt = 0x10
)

// Config selects the hardware the image targets.
type Config struct {
	Title         string
	Compatibility int
	SRAM          int
	RTC           bool
	BootstrapBank int
}

// Blob is one asset payload.
type Blob struct {
	Kind assets.Kind
	Name string
	Data []byte
}

// Placement tells where a blob ended up.
type Placement struct {
	Kind assets.Kind
	Name string
	Bank int
	Addr int
	Size int
}

// Input is everything Build lays out. Code must be linked for the bootstrap
// bank's window, starting at BankWindow.
type Input struct {
	Kernel *kernel.Image
	Code   []byte
	Blobs  []Blob
	Dedupe bool // store byte-identical blobs once
}

// Image is the finished cartridge.
type Image struct {
	ROM        []byte
	Banks      int
	Placements []Placement
	TableAddr  int
	TableSize  int
	CodeSize   int
	Sizes      map[assets.Kind]int // stored bytes per asset kind
}

func maxBanks(cfg Config) int {
	if cfg.RTC {
		return 128
	}
	return 512
}

// RAMSizeCode maps an SRAM class to the header RAM size byte.
func RAMSizeCode(sram int) (int, bool) {
	switch sram {
	case SRAMNone:
		return 0x00, true
	case SRAM8K:
		return 0x02, true
	case SRAM32K:
		return 0x03, true
	case SRAM64K:
		return 0x05, true
	case SRAM128K:
		return 0x04, true
	}
	return 0, false
}

// Validate checks cfg against the kernel before any layout work.
func Validate(cfg Config, k *kernel.Image) error {
	if cfg.Compatibility&(Classic|Color) == 0 {
		return fmt.Errorf("%w: neither the classic nor the color tier is selected", ErrConfig)
	}
	if cfg.Compatibility&Extension != 0 && cfg.Compatibility&Classic == 0 {
		return fmt.Errorf("%w: the extension tier requires the classic tier", ErrConfig)
	}
	if _, ok := RAMSizeCode(cfg.SRAM); !ok {
		return fmt.Errorf("%w: unknown SRAM class %d", ErrConfig, cfg.SRAM)
	}
	if cfg.RTC && cfg.SRAM > SRAM32K {
		return fmt.Errorf("%w: the real-time clock mapper supports at most 32 KiB of SRAM", ErrConfig)
	}
	if k == nil {
		return nil
	}
	banks := k.Banks()
	if cfg.BootstrapBank < 1 || cfg.BootstrapBank >= banks {
		return fmt.Errorf("%w: bank %d, kernel has %d bank(s)", ErrBootstrapBank, cfg.BootstrapBank, banks)
	}
	for b := cfg.BootstrapBank; b < banks; b++ {
		if !k.BankBlank(b) {
			return fmt.Errorf("%w: bank %d, kernel occupies bank %d", ErrBootstrapBank, cfg.BootstrapBank, b)
		}
	}
	boot := k.Bootstrap()
	if off := kernel.Offset(boot); off < 0 || off+SpliceSize > cfg.BootstrapBank*BankSize {
		return fmt.Errorf("%w: bootstrap symbol %s lies outside the kernel banks", ErrConfig, boot)
	}
	return nil
}

// Build lays out the cartridge.
func Build(cfg Config, in Input) (*Image, error) {
	if err := Validate(cfg, in.Kernel); err != nil {
		return nil, err
	}
	if in.Kernel == nil {
		return nil, fmt.Errorf("%w: no kernel", ErrConfig)
	}

	out := &Image{Sizes: make(map[assets.Kind]int), CodeSize: len(in.Code)}
	boot := cfg.BootstrapBank

	// Banks past the bootstrap bank, each a growing byte slice.
	var banks [][]byte
	seen := make(map[string]Placement)
	for _, blob := range in.Blobs {
		if len(blob.Data) > BankSize {
			return nil, fmt.Errorf("%w: %s %q is %d bytes, a bank holds %d", ErrBankOverflow, blob.Kind, blob.Name, len(blob.Data), BankSize)
		}
		if in.Dedupe {
			if p, ok := seen[string(blob.Data)]; ok {
				p.Kind, p.Name = blob.Kind, blob.Name
				out.Placements = append(out.Placements, p)
				continue
			}
		}
		slot := -1
		for i, b := range banks {
			if len(b)+len(blob.Data) <= BankSize {
				slot = i
				break
			}
		}
		if slot < 0 {
			banks = append(banks, make([]byte, 0, BankSize))
			slot = len(banks) - 1
		}
		p := Placement{
			Kind: blob.Kind,
			Name: blob.Name,
			Bank: boot + 1 + slot,
			Addr: BankWindow + len(banks[slot]),
			Size: len(blob.Data),
		}
		banks[slot] = append(banks[slot], blob.Data...)
		out.Placements = append(out.Placements, p)
		out.Sizes[blob.Kind] += len(blob.Data)
		if in.Dedupe {
			seen[string(blob.Data)] = p
		}
	}

	// Bootstrap bank: code, then the asset table.
	table := make([]byte, 0, 2+TableEntrySize*len(out.Placements))
	table = append(table, byte(len(out.Placements)), byte(len(out.Placements)>>8))
	for _, p := range out.Placements {
		table = append(table, byte(p.Bank), byte(p.Bank>>8), byte(p.Addr), byte(p.Addr>>8), byte(p.Size), byte(p.Size>>8))
	}
	if need := len(in.Code) + len(table); need > BankSize {
		return nil, fmt.Errorf("%w: code (%d bytes) and asset table (%d bytes) need %d bytes, bank %d holds %d",
			ErrBankOverflow, len(in.Code), len(table), need, boot, BankSize)
	}
	out.TableAddr = BankWindow + len(in.Code)
	out.TableSize = len(table)

	used := boot + 1 + len(banks)
	total := 2
	for total < used {
		total *= 2
	}
	if total > maxBanks(cfg) {
		return nil, fmt.Errorf("%w: %d banks needed, the mapper addresses %d", ErrROMTooLarge, total, maxBanks(cfg))
	}

	rom := make([]byte, total*BankSize)
	copy(rom, in.Kernel.ROM)
	bootAt := boot * BankSize
	copy(rom[bootAt:], in.Code)
	copy(rom[bootAt+len(in.Code):], table)
	for i, b := range banks {
		copy(rom[(boot+1+i)*BankSize:], b)
	}

	splice := kernel.Offset(in.Kernel.Bootstrap())
	rom[splice] = byte(boot)
	rom[splice+1], rom[splice+2] = byte(BankWindow&0xFF), byte(BankWindow>>8)
	rom[splice+3], rom[splice+4] = byte(out.TableAddr), byte(out.TableAddr>>8)

	if err := writeHeader(rom, cfg, total); err != nil {
		return nil, err
	}
	out.ROM = rom
	out.Banks = total
	return out, nil
}

func writeHeader(rom []byte, cfg Config, banks int) error {
	title := []byte(strings.ToUpper(cfg.Title))
	if len(title) > kernel.HeaderCGB-kernel.HeaderTitle {
		title = title[:kernel.HeaderCGB-kernel.HeaderTitle]
	}
	for i := kernel.HeaderTitle; i < kernel.HeaderCGB; i++ {
		rom[i] = 0
	}
	copy(rom[kernel.HeaderTitle:], title)

	switch {
	case cfg.Compatibility&Color == 0:
		rom[kernel.HeaderCGB] = 0x00
	case cfg.Compatibility&Classic == 0:
		rom[kernel.HeaderCGB] = 0xC0
	default:
		rom[kernel.HeaderCGB] = 0x80
	}
	if cfg.Compatibility&Extension != 0 {
		rom[kernel.HeaderSGB] = 0x03
		rom[0x14B] = 0x33 // extension features require the new licensee code
	} else {
		rom[kernel.HeaderSGB] = 0x00
	}

	switch {
	case cfg.RTC && cfg.SRAM != SRAMNone:
		rom[kernel.HeaderCartType] = TypeMBC3TimerRAMBatt
	case cfg.RTC:
		rom[kernel.HeaderCartType] = TypeMBC3TimerBattery
	case cfg.SRAM != SRAMNone:
		rom[kernel.HeaderCartType] = TypeMBC5RAMBattery
	default:
		rom[kernel.HeaderCartType] = TypeMBC5
	}

	romCode, ok := kernel.ROMSizeCode(banks)
	if !ok {
		return fmt.Errorf("%w: %d banks", ErrROMTooLarge, banks)
	}
	rom[kernel.HeaderROMSize] = byte(romCode)
	ramCode, _ := RAMSizeCode(cfg.SRAM)
	rom[kernel.HeaderRAMSize] = byte(ramCode)

	rom[kernel.HeaderChecksum] = kernel.HeaderChecksumOf(rom)
	sum := GlobalChecksum(rom)
	rom[kernel.HeaderGlobal] = byte(sum >> 8)
	rom[kernel.HeaderGlobal+1] = byte(sum)
	return nil
}

// GlobalChecksum sums every byte except the two checksum bytes.
func GlobalChecksum(rom []byte) uint16 {
	var sum uint16
	for i, b := range rom {
		if i == kernel.HeaderGlobal || i == kernel.HeaderGlobal+1 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}
