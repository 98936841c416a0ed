package main

import (
	"strings"
	"testing"
)

func TestSession(t *testing.T) {
	s := newSession(stubKernel(), stubSymbols, "", nil)

	tests := []struct {
		entry string
		want  string
	}{
		{"x = 1", "ok"},
		{"PRINT (", "error"},
		{":generate", "passes: GENERATE"},
		{"PRINT x", "LOAD 49152"},
		{":list", "   2  PRINT x"},
		{":ast", "PRINT"},
		{":bogus", "unknown command"},
		{":reset", "program cleared"},
	}
	for _, tc := range tests {
		out, done := s.eval(tc.entry)
		if done {
			t.Fatalf("%q ended the session", tc.entry)
		}
		if !strings.Contains(out, tc.want) {
			t.Errorf("%q: expected %q in %q", tc.entry, tc.want, out)
		}
	}
	if len(s.program) != 0 {
		t.Errorf("expected an empty program after :reset, got %v", s.program)
	}
	if _, done := s.eval(":quit"); !done {
		t.Error("expected :quit to end the session")
	}
}

func TestSessionRejectsBadEntries(t *testing.T) {
	s := newSession(stubKernel(), stubSymbols, "", nil)
	s.eval(":generate")
	s.eval("10 PRINT 1")
	s.eval("10 PRINT 2")
	if len(s.program) != 1 {
		t.Errorf("expected the duplicate line to be rejected, got %v", s.program)
	}
}

func TestComplete(t *testing.T) {
	s := newSession(stubKernel(), stubSymbols, "", nil)
	s.eval(":generate")
	s.eval("score = 1")

	got := s.complete("PRINT sco")
	if len(got) != 1 || got[0] != "PRINT score" {
		t.Errorf("got %v", got)
	}
	found := false
	for _, c := range s.complete("pri") {
		if c == "PRINT" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected PRINT among %v", s.complete("pri"))
	}
	if got := s.complete("x = "); got != nil {
		t.Errorf("expected nothing after a space, got %v", got)
	}
}
