package suggest

import (
	"reflect"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"grower", "grower", 0},
		{"grover", "grower", 1},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		if got := distance(tt.a, tt.b); got != tt.want {
			t.Errorf("distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestClosest(t *testing.T) {
	keys := []string{"remote.kind", "remote.url", "remote.redis_addr", "sync.interval", "sync.max_attempts"}

	if got := Closest("remote.urk", keys); len(got) == 0 || got[0] != "remote.url" {
		t.Errorf("Closest(remote.urk) = %v", got)
	}
	if got := Closest("interval", keys); !reflect.DeepEqual(got, []string{"sync.interval"}) {
		t.Errorf("Closest(interval) = %v", got)
	}
	if got := Closest("zzzzzz", keys); got != nil {
		t.Errorf("Closest(zzzzzz) = %v, want nil", got)
	}
	if got := Closest("", keys); got != nil {
		t.Errorf("Closest(\"\") = %v, want nil", got)
	}

	types := []string{"Starter", "Grower", "Finisher", "Nursery"}
	if got := Closest("GROWR", types); len(got) == 0 || got[0] != "Grower" {
		t.Errorf("Closest(GROWR) = %v", got)
	}
}

func TestHint(t *testing.T) {
	if got := Hint("grover", []string{"Grower", "Starter"}); got != " (did you mean Grower?)" {
		t.Errorf("Hint = %q", got)
	}
	if got := Hint("sent", []string{"sent", "send", "spent"}); got != " (did you mean sent, send or spent?)" {
		t.Errorf("Hint = %q", got)
	}
	if got := Hint("xyz", []string{"Grower"}); got != "" {
		t.Errorf("Hint = %q, want empty", got)
	}
}
