package ast

import "golang.org/x/exp/slices"

// Where is a filter over nodes. The zero value matches nothing meaningful;
// start from Any or Is.
type Where struct {
	types             []NodeType
	failIfNotAllMatch bool
	recursive         bool
	ignoreMeaningless bool
}

// Any matches every node type.
func Any() Where {
	return Where{ignoreMeaningless: true}
}

// Is matches the listed node types.
func Is(types ...NodeType) Where {
	return Where{types: slices.Clone(types), ignoreMeaningless: true}
}

// DoFailIfNotAllMatch makes a step fail when one of the listed types is
// absent. With Any, the step fails when nothing matched at all.
func (w Where) DoFailIfNotAllMatch(b bool) Where {
	w.failIfNotAllMatch = b
	return w
}

// DoRecursive searches all descendants instead of the immediate children.
func (w Where) DoRecursive(b bool) Where {
	w.recursive = b
	return w
}

// DoIgnoreMeaningless skips BLANK and REM nodes (the default).
func (w Where) DoIgnoreMeaningless(b bool) Where {
	w.ignoreMeaningless = b
	return w
}

// Match reports whether n passes the filter.
func (w Where) Match(n Node) bool {
	if n == nil {
		return false
	}
	t := n.Type()
	if len(w.types) == 0 {
		return !(w.ignoreMeaningless && IsMeaningless(t))
	}
	// Listing a meaningless type explicitly asks for it.
	return slices.Contains(w.types, t)
}

// satisfied checks the fail-if-not-all-match constraint for one source node.
func (w Where) satisfied(found []Node) bool {
	if !w.failIfNotAllMatch {
		return true
	}
	if len(w.types) == 0 {
		return len(found) > 0
	}
	for _, t := range w.types {
		if slices.IndexFunc(found, func(n Node) bool { return n.Type() == t }) < 0 {
			return false
		}
	}
	return true
}

func (w Where) collect(n Node, out []Node, first bool) []Node {
	for _, c := range n.Children() {
		if w.Match(c) {
			out = append(out, c)
			if first {
				return out
			}
		}
		if w.recursive {
			before := len(out)
			out = w.collect(c, out, first)
			if first && len(out) > before {
				return out
			}
		}
	}
	return out
}

// Select is a chainable query result. Every step returns a new value; once a
// step fails, every later step is a no-op and the chain stays failed.
type Select struct {
	nodes []Node
	ok    bool
}

// From starts a query at n.
func From(n Node) Select {
	if n == nil {
		return Select{ok: true}
	}
	return Select{nodes: []Node{n}, ok: true}
}

// FromAll starts a query over a list of nodes.
func FromAll(nodes []Node) Select {
	return Select{nodes: slices.Clone(nodes), ok: true}
}

func failed() Select { return Select{} }

// Children narrows to the children (or descendants) of every current node
// that match w.
func (s Select) Children(w Where) Select {
	return s.descend(w, false)
}

// FirstChild narrows to the first matching child of every current node.
func (s Select) FirstChild(w Where) Select {
	return s.descend(w, true)
}

func (s Select) descend(w Where, first bool) Select {
	if !s.ok {
		return failed()
	}
	var out []Node
	for _, n := range s.nodes {
		found := w.collect(n, nil, first)
		if first && w.failIfNotAllMatch && len(found) == 0 {
			return failed()
		}
		if !first && !w.satisfied(found) {
			return failed()
		}
		out = append(out, found...)
	}
	return Select{nodes: out, ok: true}
}

// Only keeps the current nodes that match w. With DoFailIfNotAllMatch, one
// non-matching node fails the chain.
func (s Select) Only(w Where) Select {
	if !s.ok {
		return failed()
	}
	var out []Node
	for _, n := range s.nodes {
		if w.Match(n) {
			out = append(out, n)
		} else if w.failIfNotAllMatch {
			return failed()
		}
	}
	return Select{nodes: out, ok: true}
}

// Filter keeps the current nodes for which pred is true.
func (s Select) Filter(pred func(Node) bool) Select {
	if !s.ok {
		return failed()
	}
	var out []Node
	for _, n := range s.nodes {
		if pred(n) {
			out = append(out, n)
		}
	}
	return Select{nodes: out, ok: true}
}

// OK reports whether every step so far succeeded.
func (s Select) OK() bool { return s.ok }

// Count is the number of current matches, 0 once the chain failed.
func (s Select) Count() int {
	if !s.ok {
		return 0
	}
	return len(s.nodes)
}

// First returns the first match, or nil.
func (s Select) First() Node {
	if !s.ok || len(s.nodes) == 0 {
		return nil
	}
	return s.nodes[0]
}

// Nodes returns a copy of the current matches.
func (s Select) Nodes() []Node {
	if !s.ok {
		return nil
	}
	return slices.Clone(s.nodes)
}

// Each calls fn for every match.
func (s Select) Each(fn func(Node)) {
	if !s.ok {
		return
	}
	for _, n := range s.nodes {
		fn(n)
	}
}

// Range calls fn with the index of every match until fn returns false.
func (s Select) Range(fn func(i int, n Node) bool) {
	if !s.ok {
		return
	}
	for i, n := range s.nodes {
		if !fn(i, n) {
			return
		}
	}
}
