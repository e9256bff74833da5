package main

import "testing"

func TestComma(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0"},
		{in: 999, want: "999"},
		{in: 1000, want: "1,000"},
		{in: 1234567, want: "1,234,567"},
		{in: -45000, want: "-45,000"},
	}
	for _, tc := range tests {
		if got := comma(tc.in); got != tc.want {
			t.Fatalf("comma(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("a very long item name", 10); got != "a very ..." {
		t.Fatalf("truncate long = %q", got)
	}
	if got := truncate("abc", 2); got != "ab" {
		t.Fatalf("truncate tiny = %q", got)
	}
}
