// Package symbols tracks where working RAM goes and which compile-time
// substitutions are visible at a given source location.
package symbols

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gbbasic/pkg/loc"
)

var (
	ErrOutOfMemory   = errors.New("out of memory")
	ErrOverlap       = errors.New("overlapping allocation")
	ErrInvalidSize   = errors.New("invalid allocation size")
	ErrNotReleasable = errors.New("allocation cannot be released")
	ErrUnknownName   = errors.New("unknown allocation")
)

// LocationType tells where an allocation lives. Only the heap exists for now.
type LocationType int

const (
	Heap LocationType = iota
)

func (t LocationType) String() string {
	if t == Heap {
		return "HEAP"
	}
	return fmt.Sprintf("LocationType(%d)", int(t))
}

// Usage records why a block of working RAM was reserved.
type Usage int

const (
	UsageNone Usage = iota
	UsageVariable
	UsageArray
	UsageLoop
	UsageRead
	UsageTouch
	UsageViewport
)

var usageNames = [...]string{
	UsageNone:     "NONE",
	UsageVariable: "VARIABLE",
	UsageArray:    "ARRAY",
	UsageLoop:     "LOOP",
	UsageRead:     "READ",
	UsageTouch:    "TOUCH",
	UsageViewport: "VIEWPORT",
}

func (u Usage) String() string {
	if int(u) >= 0 && int(u) < len(usageNames) {
		return usageNames[u]
	}
	return fmt.Sprintf("Usage(%d)", int(u))
}

// RamLocation is one heap allocation. Address is absolute; Scope runs from the
// declaration to the point where the allocation was released (or loc.Max).
type RamLocation struct {
	Type     LocationType
	Name     string
	Address  int
	Size     int
	Usage    Usage
	Location loc.TextLocation
	Scope    loc.Range
	Released bool
}

// End is the first address past the allocation.
func (r RamLocation) End() int { return r.Address + r.Size }

func (r RamLocation) overlaps(addr, size int) bool {
	return addr < r.End() && r.Address < addr+size
}

func (r RamLocation) String() string {
	return fmt.Sprintf("%-20s %s 0x%04X..0x%04X (%d bytes) %s at %s",
		r.Name, r.Type, r.Address, r.End(), r.Size, r.Usage, r.Location)
}

// Dictionary maps declared names to allocations and keeps declaration order.
type Dictionary struct {
	entries map[string]RamLocation
	order   []string
}

func NewDictionary() *Dictionary {
	return &Dictionary{entries: make(map[string]RamLocation)}
}

func (d *Dictionary) set(r RamLocation) {
	if _, ok := d.entries[r.Name]; !ok {
		d.order = append(d.order, r.Name)
	}
	d.entries[r.Name] = r
}

// Get returns the allocation registered under name.
func (d *Dictionary) Get(name string) (RamLocation, bool) {
	if d == nil {
		return RamLocation{}, false
	}
	r, ok := d.entries[name]
	return r, ok
}

// Len is the number of allocations.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// Entries lists allocations in declaration order.
func (d *Dictionary) Entries() []RamLocation {
	if d == nil {
		return nil
	}
	out := make([]RamLocation, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.entries[name])
	}
	return out
}

// Bytes sums allocation sizes per usage.
func (d *Dictionary) Bytes() map[Usage]int {
	out := make(map[Usage]int)
	for _, r := range d.Entries() {
		out[r.Usage] += r.Size
	}
	return out
}

// String returns a dump ordered by address.
func (d *Dictionary) String() string {
	entries := d.Entries()
	if len(entries) == 0 {
		return "Heap: (empty)\n"
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Address < entries[j].Address })
	var sb strings.Builder
	sb.WriteString("Heap:\n")
	for _, r := range entries {
		fmt.Fprintf(&sb, "  %s\n", r)
	}
	return sb.String()
}

// Allocator hands out heap addresses inside [Base, Base+Size).
//
// It is also an overlap checker: non-LOOP allocations never share bytes with
// anything, and a LOOP allocation may reuse the bytes of another LOOP only once
// that loop's scope has been closed by Release (sibling loops, never nested).
type Allocator struct {
	Base int
	Size int

	dict *Dictionary
}

func NewAllocator(base, size int) *Allocator {
	return &Allocator{Base: base, Size: size, dict: NewDictionary()}
}

// Dictionary exposes the allocations made so far.
func (a *Allocator) Dictionary() *Dictionary { return a.dict }

// Lookup returns the allocation for name.
func (a *Allocator) Lookup(name string) (RamLocation, bool) {
	return a.dict.Get(name)
}

// Allocate reserves size bytes for name. If name is already live, the existing
// allocation is returned unchanged.
func (a *Allocator) Allocate(name string, size int, usage Usage, at loc.TextLocation) (RamLocation, error) {
	if existing, ok := a.dict.Get(name); ok && !existing.Released {
		return existing, nil
	}
	if size <= 0 {
		return RamLocation{}, fmt.Errorf("%w: %q requests %d bytes", ErrInvalidSize, name, size)
	}

	// Candidate offsets: the heap start and the end of every existing entry.
	candidates := []int{0}
	for _, e := range a.dict.Entries() {
		candidates = append(candidates, e.End()-a.Base)
	}
	sort.Ints(candidates)

	firstFree := -1
	for _, off := range candidates {
		if a.conflicts(a.Base+off, size, usage) {
			continue
		}
		if firstFree < 0 {
			firstFree = off
		}
		if off+size <= a.Size {
			r := RamLocation{
				Type:     Heap,
				Name:     name,
				Address:  a.Base + off,
				Size:     size,
				Usage:    usage,
				Location: at,
				Scope:    loc.Span(at, loc.Max()),
			}
			a.dict.set(r)
			return r, nil
		}
	}

	return RamLocation{}, fmt.Errorf("%w: %q (%s) needs %d bytes at offset %d, heap budget is %d bytes",
		ErrOutOfMemory, name, usage, size, firstFree, a.Size)
}

func (a *Allocator) conflicts(addr, size int, usage Usage) bool {
	for _, e := range a.dict.Entries() {
		if !e.overlaps(addr, size) {
			continue
		}
		if usage == UsageLoop && e.Usage == UsageLoop && e.Released {
			continue
		}
		return true
	}
	return false
}

// Release closes the scope of a LOOP allocation at end so that a later sibling
// loop may reuse its bytes. Other usages live for the whole program.
func (a *Allocator) Release(name string, end loc.TextLocation) error {
	r, ok := a.dict.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	if r.Usage != UsageLoop {
		return fmt.Errorf("%w: %q is a %s allocation", ErrNotReleasable, name, r.Usage)
	}
	if r.Released {
		return nil
	}
	r.Released = true
	r.Scope.End = end
	a.dict.set(r)
	return nil
}

// EstimateFootprint is the heap high-water mark in bytes.
func (a *Allocator) EstimateFootprint() int {
	high := 0
	for _, e := range a.dict.Entries() {
		if off := e.End() - a.Base; off > high {
			high = off
		}
	}
	return high
}

// Check verifies that every allocation lies in the heap window and that no
// two allocations overlap unless both are LOOP records with disjoint scopes.
func (a *Allocator) Check() error {
	entries := a.dict.Entries()
	for i, x := range entries {
		if x.Address < a.Base || x.End() > a.Base+a.Size {
			return fmt.Errorf("%w: %q lies outside the heap window", ErrOutOfMemory, x.Name)
		}
		for _, y := range entries[i+1:] {
			if !x.overlaps(y.Address, y.Size) {
				continue
			}
			if x.Usage == UsageLoop && y.Usage == UsageLoop && disjoint(x.Scope, y.Scope) {
				continue
			}
			return fmt.Errorf("%w: %q and %q", ErrOverlap, x.Name, y.Name)
		}
	}
	return nil
}

func disjoint(a, b loc.Range) bool {
	return loc.LessEqual(a.End, b.Begin) || loc.LessEqual(b.End, a.Begin)
}
