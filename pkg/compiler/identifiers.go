package compiler

import (
	"sort"
	"strings"
	"sync"

	"gbbasic/pkg/loc"
)

// IdentifierKind tells what a registered name is.
type IdentifierKind string

const (
	IdentKeyword  IdentifierKind = "keyword"
	IdentFunction IdentifierKind = "function"
	IdentLabel    IdentifierKind = "label"
	IdentMacro    IdentifierKind = "macro"
	IdentVariable IdentifierKind = "variable"
)

// Identifier is one name known to an editing session.
type Identifier struct {
	Kind IdentifierKind
	Name string
	At   loc.TextLocation // invalid for keywords and built-ins
}

// Registry accumulates the identifiers seen across compiles for completion.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	items map[string]Identifier
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Identifier)}
}

// Add records name. A later Add of the same kind and name moves it to at.
func (r *Registry) Add(kind IdentifierKind, name string, at loc.TextLocation) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = make(map[string]Identifier)
	}
	r.items[string(kind)+"\x00"+name] = Identifier{Kind: kind, Name: name, At: at}
}

// Identifiers returns every entry ordered by name, then kind.
func (r *Registry) Identifiers() []Identifier {
	r.mu.Lock()
	out := make([]Identifier, 0, len(r.items))
	for _, id := range r.items {
		out = append(out, id)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Lookup returns the entries whose name starts with prefix, ignoring case.
func (r *Registry) Lookup(prefix string) []Identifier {
	prefix = strings.ToUpper(prefix)
	var out []Identifier
	for _, id := range r.Identifiers() {
		if strings.HasPrefix(strings.ToUpper(id.Name), prefix) {
			out = append(out, id)
		}
	}
	return out
}

// Reset forgets everything, for the start of a new session.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]Identifier)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
