package economy

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if _, ok := cfg.Floor(0); ok {
		t.Fatalf("floor 0 must not exist")
	}
	if _, ok := cfg.Floor(len(cfg.Floors) + 1); ok {
		t.Fatalf("floor past the table must not exist")
	}
}

func TestAggregateRate(t *testing.T) {
	cfg := Default()
	want := decimal.RequireFromString("0.000005").Add(decimal.RequireFromString("0.00001"))
	if got := cfg.AggregateRate(2); !got.Equal(want) {
		t.Fatalf("AggregateRate(2) = %s; want %s", got, want)
	}
	if got := cfg.AggregateRate(100); !got.Equal(cfg.AggregateRate(len(cfg.Floors))) {
		t.Fatalf("AggregateRate past the table should stop at the last floor")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"gap in ids":        func(c *Config) { c.Floors[2].ID = 7 },
		"zero rate":         func(c *Config) { c.Floors[1].Rate = decimal.Zero },
		"zero capacity":     func(c *Config) { c.Floors[1].CapacitySeconds = 0 },
		"paid first floor":  func(c *Config) { c.Floors[0].UnlockCost = 1 },
		"bad chance":        func(c *Config) { c.StealChance = 1.5 },
		"inverted fraction": func(c *Config) { c.StealMinFraction = decimal.RequireFromString("0.1") },
		"duplicate task":    func(c *Config) { c.Tasks[1].ID = c.Tasks[0].ID },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestParse(t *testing.T) {
	doc := `
floors:
  - id: 1
    rate: "0.000005"
    unlock_cost: 0
    capacity_seconds: 14400
  - id: 2
    rate: "0.00001"
    unlock_cost: 5
    capacity_seconds: 14400
steal:
  chance: 0.25
  min_fraction: 0.02
  max_fraction: 0.04
  precision: 4
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Floors) != 2 || cfg.Floors[1].CapacitySeconds != 14400 {
		t.Fatalf("unexpected floors: %+v", cfg.Floors)
	}
	if cfg.StealChance != 0.25 || cfg.StealPrecision != 4 {
		t.Fatalf("steal section not applied: %+v", cfg)
	}
	if !cfg.StealMinFraction.Equal(decimal.RequireFromString("0.02")) || !cfg.StealMaxFraction.Equal(decimal.RequireFromString("0.04")) {
		t.Fatalf("fractions = [%s, %s)", cfg.StealMinFraction, cfg.StealMaxFraction)
	}
	if len(cfg.Tasks) != len(Default().Tasks) {
		t.Fatalf("tasks should keep defaults when omitted")
	}
}

func TestParseRejectsInconsistentTable(t *testing.T) {
	doc := `
floors:
  - id: 1
    rate: "0.000005"
    capacity_seconds: 3600
  - id: 3
    rate: "0.00015"
    unlock_cost: 15
    capacity_seconds: 3600
`
	_, err := Parse([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "contiguous") {
		t.Fatalf("expected contiguity error, got %v", err)
	}
}
