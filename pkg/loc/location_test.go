package loc

import (
	"sort"
	"testing"
)

func TestLessStrictWeakOrder(t *testing.T) {
	locs := []TextLocation{
		At(0, 0, 0), At(0, 0, 5), At(0, 1, 0), At(0, 1, 2),
		At(1, 0, 0), At(1, 3, 3), At(2, 0, 1),
	}

	for _, a := range locs {
		if Less(a, a) {
			t.Errorf("irreflexivity violated for %v", a)
		}
		for _, b := range locs {
			if Less(a, b) && Less(b, a) {
				t.Errorf("asymmetry violated for %v, %v", a, b)
			}
			for _, c := range locs {
				if Less(a, b) && Less(b, c) && !Less(a, c) {
					t.Errorf("transitivity violated for %v < %v < %v", a, b, c)
				}
			}
		}
	}

	shuffled := []TextLocation{locs[5], locs[0], locs[6], locs[2], locs[1], locs[4], locs[3]}
	sort.Slice(shuffled, func(i, j int) bool { return Less(shuffled[i], shuffled[j]) })
	for i := range locs {
		if shuffled[i] != locs[i] {
			t.Fatalf("sorted order mismatch at %d: got %v, want %v", i, shuffled[i], locs[i])
		}
	}
}

func TestInvalidNeverOrdered(t *testing.T) {
	inv := Invalid()
	if !inv.Invalid() {
		t.Fatal("Invalid() must report Invalid")
	}
	for _, x := range []TextLocation{At(0, 0, 0), At(3, 2, 1), Max()} {
		if Less(inv, x) {
			t.Errorf("Invalid < %v must be false", x)
		}
		if Less(x, inv) {
			t.Errorf("%v < Invalid must be false", x)
		}
	}
	if !At(0, -1, 0).Invalid() {
		t.Error("a single negative field must make the location invalid")
	}
}

func TestRangeContainsHalfOpen(t *testing.T) {
	r := Span(At(0, 0, 0), At(0, 10, 0))
	tests := []struct {
		at   TextLocation
		want bool
	}{
		{At(0, 0, 0), true},
		{At(0, 9, 99), true},
		{At(0, 10, 0), false},
		{At(1, 0, 0), false},
		{Invalid(), false},
	}
	for _, tc := range tests {
		if got := r.Contains(tc.at); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.at, got, tc.want)
		}
	}

	open := Span(At(0, 4, 0), Max())
	if !open.Open() || !open.Contains(At(7, 0, 0)) {
		t.Error("open range must contain every later location")
	}
}

func TestRangeUnion(t *testing.T) {
	a := Span(At(0, 2, 0), At(0, 4, 0))
	b := Span(At(0, 1, 3), At(0, 3, 0))
	got := a.Union(b)
	want := Span(At(0, 1, 3), At(0, 4, 0))
	if got != want {
		t.Errorf("Union = %v, want %v", got, want)
	}
	if a.Union(InvalidRange()) != a {
		t.Error("union with invalid range must be identity")
	}
	if !want.Encloses(a) || a.Encloses(want) {
		t.Error("Encloses mismatch")
	}
}
