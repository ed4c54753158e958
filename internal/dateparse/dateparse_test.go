package dateparse

import (
	"testing"
	"time"
)

// Wednesday
var testNow = time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)

func TestParseDateFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-06-01", "2024-06-01"},
		{"01/06/2024", "2024-06-01"},
		{"1/6/2024", "2024-06-01"},
		{"01-06-2024", "2024-06-01"},
		{"today", "2024-05-15"},
		{" Tomorrow ", "2024-05-16"},
		{"+0d", "2024-05-15"},
		{"+10d", "2024-05-25"},
		{"+2w", "2024-05-29"},
		{"+1m", "2024-06-15"},
		{"fri", "2024-05-17"},
		{"Monday", "2024-05-20"},
		{"wednesday", "2024-05-22"}, // never today
	}
	for _, tt := range tests {
		got, err := ParseDateFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseDateFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDateFrom(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDateFrom_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "soon", "+d", "+3y", "+-2d", "2024-13-01", "32/01/2024"} {
		if got, err := ParseDateFrom(input, testNow); err == nil {
			t.Errorf("ParseDateFrom(%q) = %q, want error", input, got)
		}
	}
}

func TestNotBefore(t *testing.T) {
	if got, err := NotBefore("today", testNow); err != nil || got != "2024-05-15" {
		t.Errorf("NotBefore(today) = %q, %v", got, err)
	}
	if _, err := NotBefore("2024-05-14", testNow); err == nil {
		t.Error("expected error for a past date")
	}
	if _, err := NotBefore("nope", testNow); err == nil {
		t.Error("expected parse error")
	}
}
