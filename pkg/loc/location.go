// Package loc identifies points and spans in a multi-page BASIC source.
package loc

import (
	"fmt"
	"math"
)

// TextLocation is one point of the source: a page index plus a 0-based
// row and column inside that page.
type TextLocation struct {
	Page   int
	Row    int
	Column int
}

// At builds a location.
func At(page, row, column int) TextLocation {
	return TextLocation{Page: page, Row: row, Column: column}
}

// Invalid is the sentinel for constructs without a single originating
// position, e.g. synthesized nodes.
func Invalid() TextLocation {
	return TextLocation{Page: -1, Row: -1, Column: -1}
}

// Max is greater than every valid location. Open-ended scopes end here.
func Max() TextLocation {
	return TextLocation{Page: math.MaxInt32, Row: math.MaxInt32, Column: math.MaxInt32}
}

// Invalid reports whether any field carries the sentinel.
func (l TextLocation) Invalid() bool {
	return l.Page < 0 || l.Row < 0 || l.Column < 0
}

func (l TextLocation) String() string {
	if l.Invalid() {
		return "<invalid>"
	}
	if l == Max() {
		return "<end>"
	}
	// Human readable positions are 1-based.
	return fmt.Sprintf("%d:%d:%d", l.Page+1, l.Row+1, l.Column+1)
}

// Compare orders locations by page, then row, then column.
// Invalid locations are not ordered; callers that care must check Invalid first.
func Compare(a, b TextLocation) int {
	switch {
	case a.Page != b.Page:
		return sign(a.Page - b.Page)
	case a.Row != b.Row:
		return sign(a.Row - b.Row)
	default:
		return sign(a.Column - b.Column)
	}
}

// Less is a strict weak order over valid locations. It is false whenever
// either side is invalid.
func Less(a, b TextLocation) bool {
	if a.Invalid() || b.Invalid() {
		return false
	}
	return Compare(a, b) < 0
}

// LessEqual is Less or equal, with the same invalid rule.
func LessEqual(a, b TextLocation) bool {
	if a.Invalid() || b.Invalid() {
		return false
	}
	return Compare(a, b) <= 0
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}

// Range is the half-open span [Begin, End).
type Range struct {
	Begin TextLocation
	End   TextLocation
}

// Span builds a range.
func Span(begin, end TextLocation) Range {
	return Range{Begin: begin, End: end}
}

// InvalidRange has both ends set to the sentinel.
func InvalidRange() Range {
	return Range{Begin: Invalid(), End: Invalid()}
}

// Valid reports whether both ends are valid and ordered.
func (r Range) Valid() bool {
	return !r.Begin.Invalid() && !r.End.Invalid() && Compare(r.Begin, r.End) <= 0
}

// Open reports whether the range runs to the end of the program.
func (r Range) Open() bool {
	return r.End == Max()
}

// Contains reports Begin <= l < End.
func (r Range) Contains(l TextLocation) bool {
	if !r.Valid() || l.Invalid() {
		return false
	}
	return Compare(r.Begin, l) <= 0 && Compare(l, r.End) < 0
}

// Encloses reports whether o lies completely inside r.
func (r Range) Encloses(o Range) bool {
	if !r.Valid() || !o.Valid() {
		return false
	}
	return Compare(r.Begin, o.Begin) <= 0 && Compare(o.End, r.End) <= 0
}

// Union returns the smallest range covering both. Invalid operands are ignored.
func (r Range) Union(o Range) Range {
	if !o.Valid() {
		return r
	}
	if !r.Valid() {
		return o
	}
	out := r
	if Compare(o.Begin, out.Begin) < 0 {
		out.Begin = o.Begin
	}
	if Compare(o.End, out.End) > 0 {
		out.End = o.End
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Begin, r.End)
}
