package economy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputeAccrual(t *testing.T) {
	rate := decimal.RequireFromString("0.000005")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name          string
		now           time.Time
		wantEarnings  string
		wantRemaining int64
	}{
		{"no time passed", base, "0", 3600},
		{"clock skew", base.Add(-10 * time.Minute), "0", 3600},
		{"sub-second truncated", base.Add(999 * time.Millisecond), "0", 3600},
		{"one second", base.Add(1500 * time.Millisecond), "0.000005", 3599},
		{"half capacity", base.Add(30 * time.Minute), "0.009", 1800},
		{"exactly capped", base.Add(time.Hour), "0.018", 0},
		{"over capacity", base.Add(2 * time.Hour), "0.018", 0},
	}

	for _, tc := range cases {
		got := ComputeAccrual(rate, 3600, base, tc.now)
		if !got.Earnings.Equal(decimal.RequireFromString(tc.wantEarnings)) {
			t.Fatalf("%s: earnings = %s; want %s", tc.name, got.Earnings, tc.wantEarnings)
		}
		if got.RemainingSeconds != tc.wantRemaining {
			t.Fatalf("%s: remaining = %d; want %d", tc.name, got.RemainingSeconds, tc.wantRemaining)
		}
	}
}

func TestComputeAccrualCapHolds(t *testing.T) {
	f := Floor{ID: 4, Rate: decimal.RequireFromString("0.0005"), CapacitySeconds: 7200}
	base := time.Unix(1_700_000_000, 0)

	for _, extra := range []time.Duration{0, time.Second, time.Hour, 24 * time.Hour, 365 * 24 * time.Hour} {
		got := f.Accrue(base, base.Add(2*time.Hour+extra))
		if !got.Earnings.Equal(f.MaxEarnings()) {
			t.Fatalf("extra %v: earnings = %s; want cap %s", extra, got.Earnings, f.MaxEarnings())
		}
		if got.RemainingSeconds != 0 {
			t.Fatalf("extra %v: remaining = %d; want 0", extra, got.RemainingSeconds)
		}
	}
}

func TestComputeAccrualMonotonic(t *testing.T) {
	f := Floor{ID: 2, Rate: decimal.RequireFromString("0.00001"), CapacitySeconds: 600}
	base := time.Unix(1_700_000_000, 0)

	prev := decimal.Zero
	for s := 0; s <= 900; s += 7 {
		got := f.Accrue(base, base.Add(time.Duration(s)*time.Second)).Earnings
		if got.LessThan(prev) {
			t.Fatalf("earnings decreased at %ds: %s < %s", s, got, prev)
		}
		if got.GreaterThan(f.MaxEarnings()) {
			t.Fatalf("earnings above cap at %ds: %s", s, got)
		}
		prev = got
	}
}

func TestFormatTimer(t *testing.T) {
	cases := map[int64]string{
		0:     "00:00:00",
		59:    "00:00:59",
		3600:  "01:00:00",
		14399: "03:59:59",
		-5:    "00:00:00",
	}
	for in, want := range cases {
		if got := FormatTimer(in); got != want {
			t.Fatalf("FormatTimer(%d) = %s; want %s", in, got, want)
		}
	}
}
