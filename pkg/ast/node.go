// Package ast is the abstract syntax tree of a GB BASIC program together with
// a small declarative query language (Where/Select) for walking it.
//
// Trees are produced once by the parser and never mutated afterwards. Derived
// views (children, location, abstract signature, debug dump) are computed on
// first use and cached per node, so passes may traverse the same subtree any
// number of times, from any goroutine.
package ast

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"gbbasic/pkg/loc"
)

// Node is implemented by every tree node.
type Node interface {
	// Type is the immutable node tag.
	Type() NodeType
	// Location spans the node and all of its descendants.
	Location() loc.Range
	// Children lists child nodes in source order. Pure and re-callable; each
	// call returns a fresh slice.
	Children() []Node
	// Abstract is a stable, type-specific signature suitable for grouping
	// diagnostics that describe the same construct.
	Abstract() string
	// Dump is an indented debug rendering of the subtree.
	Dump() string
}

// memo caches the derived views of one node.
type memo struct {
	kidsOnce sync.Once
	kids     []Node

	locOnce sync.Once
	loc     loc.Range

	absOnce  sync.Once
	abstract string

	dumpOnce sync.Once
	dump     string
}

func (m *memo) children(build func() []Node) []Node {
	m.kidsOnce.Do(func() { m.kids = build() })
	return slices.Clone(m.kids)
}

func (m *memo) location(n Node, pos loc.Range) loc.Range {
	m.locOnce.Do(func() {
		r := pos
		for _, c := range n.Children() {
			r = r.Union(c.Location())
		}
		m.loc = r
	})
	return m.loc
}

func (m *memo) signature(build func() string) string {
	m.absOnce.Do(func() { m.abstract = build() })
	return m.abstract
}

func (m *memo) rendered(n Node) string {
	m.dumpOnce.Do(func() {
		var sb strings.Builder
		sb.WriteString(n.Type().String())
		if abs := n.Abstract(); abs != "" && abs != n.Type().String() {
			sb.WriteString(" ")
			sb.WriteString(abs)
		}
		if r := n.Location(); r.Valid() {
			sb.WriteString(" @")
			sb.WriteString(r.Begin.String())
		}
		sb.WriteString("\n")
		for _, c := range n.Children() {
			for _, line := range strings.SplitAfter(c.Dump(), "\n") {
				if line == "" {
					continue
				}
				sb.WriteString("  ")
				sb.WriteString(line)
			}
		}
		m.dump = sb.String()
	})
	return m.dump
}

// list drops nil entries so optional fields never show up as children.
func list(parts ...Node) []Node {
	out := make([]Node, 0, len(parts))
	for _, p := range parts {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func concat(groups ...[]Node) []Node {
	var out []Node
	for _, g := range groups {
		out = append(out, list(g...)...)
	}
	if out == nil {
		out = []Node{}
	}
	return out
}

// Walk visits node and its descendants depth-first in pre-order. When fn
// returns false the children of that node are skipped.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, c := range node.Children() {
		Walk(c, fn)
	}
}

// Shape is a compact rendering of node types and child counts, used to compare
// trees structurally.
func Shape(node Node) string {
	var sb strings.Builder
	var rec func(Node)
	rec = func(n Node) {
		sb.WriteString(n.Type().String())
		kids := n.Children()
		if len(kids) == 0 {
			return
		}
		sb.WriteString("(")
		for i, c := range kids {
			if i > 0 {
				sb.WriteString(" ")
			}
			rec(c)
		}
		sb.WriteString(")")
	}
	rec(node)
	return sb.String()
}
