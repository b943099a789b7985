package timeutil

import (
	"math"
	"testing"
	"time"
)

func TestSkewSecondsCeil(t *testing.T) {
	cases := []struct {
		name string
		d    time.Duration
		want int64
	}{
		{"zero", 0, 0},
		{"negative clamps to zero", -1 * time.Second, 0},
		{"sub-second rounds up to one", 1 * time.Nanosecond, 1},
		{"just under a second rounds up", 999 * time.Millisecond, 1},
		{"exact second stays exact", 1 * time.Second, 1},
		{"one and a half seconds rounds up to two", 1500 * time.Millisecond, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := SkewSecondsCeil(c.d); got != c.want {
				t.Fatalf("SkewSecondsCeil(%v) = %d, want %d", c.d, got, c.want)
			}
		})
	}
}

func TestNormalizeSkew(t *testing.T) {
	if got := NormalizeSkew(0); got != 0 {
		t.Fatalf("NormalizeSkew(0) = %v, want 0", got)
	}
	// A session comparing its own clock against a server msg_id's embedded
	// timestamp sees sub-second jitter constantly; NormalizeSkew turns such
	// a figure into whole seconds, rounding up.
	if got := NormalizeSkew(1500 * time.Millisecond); got != 2*time.Second {
		t.Fatalf("NormalizeSkew(1.5s) = %v, want 2s", got)
	}
}

func TestAddSkewUnix(t *testing.T) {
	if got := AddSkewUnix(100, 0); got != 100 {
		t.Fatalf("AddSkewUnix(100, 0) = %d, want 100", got)
	}
	if got := AddSkewUnix(100, 30*time.Second+time.Nanosecond); got != 131 {
		t.Fatalf("AddSkewUnix(100, ~30s) = %d, want 131", got)
	}
	if got := AddSkewUnix(math.MaxInt64-1, 5*time.Second); got != math.MaxInt64 {
		t.Fatalf("AddSkewUnix near overflow = %d, want MaxInt64", got)
	}
}
