package symbols

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/slices"

	"gbbasic/pkg/loc"
)

var ErrUnresolved = errors.New("unresolved reference")

// MacroType tells how a compile-time substitution is expanded.
type MacroType int

const (
	MacroAlias MacroType = iota
	Function
	Constant
	VariableAlias
	StackReference
)

var macroTypeNames = [...]string{
	MacroAlias:     "MACRO_ALIAS",
	Function:       "FUNCTION",
	Constant:       "CONSTANT",
	VariableAlias:  "VARIABLE_ALIAS",
	StackReference: "STACK_REFERENCE",
}

func (t MacroType) String() string {
	if int(t) >= 0 && int(t) < len(macroTypeNames) {
		return macroTypeNames[t]
	}
	return fmt.Sprintf("MacroType(%d)", int(t))
}

// Macro is one compile-time substitution, visible only inside Scope.
//
// Data depends on Type: the target name for MACRO_ALIAS, the folded value for
// CONSTANT, the absolute address for VARIABLE_ALIAS, the parameter slot for
// STACK_REFERENCE. FUNCTION macros carry their parameter names in Params and
// the body is kept by the compiler, keyed by Name and Order.
type Macro struct {
	Name   string
	Type   MacroType
	Data   int
	Target string
	Params []string
	Scope  loc.Range
	Order  int
}

func (m Macro) String() string {
	var detail string
	switch m.Type {
	case MacroAlias:
		detail = "-> " + m.Target
	case Function:
		detail = "(" + strings.Join(m.Params, ", ") + ")"
	case VariableAlias:
		detail = fmt.Sprintf("@0x%04X", m.Data)
		if m.Target != "" {
			detail += " " + m.Target
		}
	default:
		detail = fmt.Sprintf("= %d", m.Data)
	}
	return fmt.Sprintf("%-16s %-15s %s %s", m.Name, m.Type, detail, m.Scope)
}

// MacroTable holds macros ordered by name, then type, then declaration order.
// Names are not unique across the program; lookups are range-containment
// queries over the entries sharing a name.
type MacroTable struct {
	macros []Macro
	next   int
}

func NewMacroTable() *MacroTable {
	return &MacroTable{}
}

func macroLess(a, b Macro) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Order < b.Order
}

// Insert adds m and returns it with its declaration order assigned.
func (t *MacroTable) Insert(m Macro) Macro {
	m.Order = t.next
	t.next++
	i := sort.Search(len(t.macros), func(i int) bool { return !macroLess(t.macros[i], m) })
	t.macros = append(t.macros, Macro{})
	copy(t.macros[i+1:], t.macros[i:])
	t.macros[i] = m
	return m
}

// Lookup finds the macro named name whose scope contains at. The innermost
// scope (latest Begin) wins; ties go to the most recently declared entry.
func (t *MacroTable) Lookup(name string, at loc.TextLocation) (Macro, bool) {
	start := sort.Search(len(t.macros), func(i int) bool { return t.macros[i].Name >= name })
	best := -1
	for i := start; i < len(t.macros) && t.macros[i].Name == name; i++ {
		m := t.macros[i]
		if !m.Scope.Contains(at) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		cur := t.macros[best]
		c := loc.Compare(m.Scope.Begin, cur.Scope.Begin)
		if c > 0 || (c == 0 && m.Order > cur.Order) {
			best = i
		}
	}
	if best < 0 {
		return Macro{}, false
	}
	return t.macros[best], true
}

// Declared reports whether any macro named name exists, regardless of scope.
func (t *MacroTable) Declared(name string) bool {
	return slices.IndexFunc(t.macros, func(m Macro) bool { return m.Name == name }) >= 0
}

// Mark returns the order the next inserted macro will get. Pass it to
// CloseScope to end everything declared since.
func (t *MacroTable) Mark() int { return t.next }

// CloseScope ends every still-open macro inserted at or after mark.
func (t *MacroTable) CloseScope(mark int, end loc.TextLocation) int {
	closed := 0
	for i := range t.macros {
		m := &t.macros[i]
		if m.Scope.Open() && m.Order >= mark {
			m.Scope.End = end
			closed++
		}
	}
	return closed
}

// All returns a copy of the table in its lookup order.
func (t *MacroTable) All() []Macro {
	return slices.Clone(t.macros)
}

// Len is the number of macros.
func (t *MacroTable) Len() int { return len(t.macros) }

// Resolution is the outcome of resolving an identifier.
type Resolution struct {
	Macro *Macro
	RAM   *RamLocation
}

// Resolver searches the active macros first, then the RAM dictionary.
type Resolver struct {
	Macros *MacroTable
	RAM    *Allocator
}

// Resolve looks up name as seen from at.
func (r Resolver) Resolve(name string, at loc.TextLocation) (Resolution, error) {
	if r.Macros != nil {
		if m, ok := r.Macros.Lookup(name, at); ok {
			return Resolution{Macro: &m}, nil
		}
	}
	if r.RAM != nil {
		if ram, ok := r.RAM.Lookup(name); ok {
			return Resolution{RAM: &ram}, nil
		}
	}
	return Resolution{}, fmt.Errorf("%w: %q at %s", ErrUnresolved, name, at)
}
