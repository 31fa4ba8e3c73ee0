package dx

import "testing"

func TestActivityCode(t *testing.T) {
	for code := 1; code <= 8; code++ {
		a := Activity(code)
		parsed, ok := ParseActivity(a.Code())
		if !ok || parsed != a {
			t.Errorf("ParseActivity(%q) = %v, %v; want %v", a.Code(), parsed, ok, a)
		}
	}
	for _, code := range []string{"00", "09", "10", "1", "001", "ab", ""} {
		if _, ok := ParseActivity(code); ok {
			t.Errorf("ParseActivity(%q) accepted an unknown code", code)
		}
	}
}

func TestSourceLetters(t *testing.T) {
	if len(sourceNames) != 11 {
		t.Fatalf("len(sourceNames) = %d, want 11", len(sourceNames))
	}
	for s := range sourceNames {
		parsed, ok := ParseSource(s.Letter())
		if !ok || parsed != s {
			t.Errorf("ParseSource(%q) = %v, %v; want %v", s.Letter(), parsed, ok, s)
		}
	}
	if _, ok := ParseSource('S'); ok {
		t.Error("ParseSource('S') accepted an upper case letter")
	}
}

func TestStringers(t *testing.T) {
	if got := ActivityGMA.String(); got != "GlobalMountainActivity" {
		t.Errorf("ActivityGMA.String() = %q", got)
	}
	if got := Activity(42).String(); got != "Activity(42)" {
		t.Errorf("Activity(42).String() = %q", got)
	}
	if got := SourceRBN.String(); got != "RBN" {
		t.Errorf("SourceRBN.String() = %q", got)
	}
}
