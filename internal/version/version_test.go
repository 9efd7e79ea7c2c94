package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	v, c, b := Info()
	if !strings.HasPrefix(s, v+" ("+c+")") || !strings.HasSuffix(s, "built "+b) {
		t.Errorf("String() = %q, inconsistent with Info() = %q %q %q", s, v, c, b)
	}
}

func TestShortRevision(t *testing.T) {
	tests := map[string]string{
		"":                                         "",
		"abc":                                      "abc",
		"0123456789abcdef0123456789abcdef01234567": "0123456",
	}
	for in, want := range tests {
		if got := shortRevision(in); got != want {
			t.Errorf("shortRevision(%q) = %q, want %q", in, got, want)
		}
	}
}
