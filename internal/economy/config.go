package economy

import (
	"fmt"
	"os"

	"ton_miner/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Floor - статическое описание этажа. Ёмкость всегда в секундах.
type Floor struct {
	ID              int             `json:"id"`
	Rate            decimal.Decimal `json:"rate"` // валюта в секунду
	UnlockCost      int64           `json:"unlock_cost"`
	CapacitySeconds int64           `json:"capacity_seconds"`
}

// MaxEarnings is the most a floor can hold before it caps out.
func (f Floor) MaxEarnings() decimal.Decimal {
	return f.Rate.Mul(decimal.NewFromInt(f.CapacitySeconds))
}

// Config is the immutable economy table shared by every controller.
type Config struct {
	Floors []Floor

	StealChance float64
	// доля от баланса цели, [min, max)
	StealMinFraction decimal.Decimal
	StealMaxFraction decimal.Decimal
	// StealPrecision is the number of decimal places kept when flooring a stolen amount.
	StealPrecision int32

	Tasks []domain.Task
}

// Default returns the production table.
func Default() *Config {
	return &Config{
		Floors: []Floor{
			{ID: 1, Rate: decimal.RequireFromString("0.000005"), UnlockCost: 0, CapacitySeconds: 3600},
			{ID: 2, Rate: decimal.RequireFromString("0.00001"), UnlockCost: 5, CapacitySeconds: 3600},
			{ID: 3, Rate: decimal.RequireFromString("0.00015"), UnlockCost: 15, CapacitySeconds: 3600},
			{ID: 4, Rate: decimal.RequireFromString("0.0005"), UnlockCost: 25, CapacitySeconds: 3600},
			{ID: 5, Rate: decimal.RequireFromString("0.001"), UnlockCost: 50, CapacitySeconds: 3600},
			{ID: 6, Rate: decimal.RequireFromString("0.0015"), UnlockCost: 200, CapacitySeconds: 3600},
		},
		StealChance:      0.5,
		StealMinFraction: decimal.RequireFromString("0.01"),
		StealMaxFraction: decimal.RequireFromString("0.06"),
		StealPrecision:   0,
		Tasks: []domain.Task{
			{
				ID:          "play_vs_earn",
				Title:       "🎮 PLAY VS EARN 💰",
				Description: "Choose whatever you want! 🔥\nPlay hard, earn even harder! 🏆",
				Reward:      10,
				URL:         "https://example.com/game",
			},
			{
				ID:          "join_gate_wallet",
				Title:       "Join Gate.io Wallet Miniapp and get free 2U!",
				Description: "Join Miniapp Rewards: 2U Invite Rewards: 50GW MemeGala: Share 4500U",
				Reward:      5,
				URL:         "https://gate.io",
			},
			{
				ID:          "earn_usdt",
				Title:       "earning 100,000 USDT per month",
				Description: "Join the game as a promotional agent, and earning 100,000 USDT per month won't just be a dream.",
				Reward:      15,
				URL:         "https://example.com/agent",
			},
		},
	}
}

// Floor returns the definition of floor id.
func (c *Config) Floor(id int) (Floor, bool) {
	if id < 1 || id > len(c.Floors) {
		return Floor{}, false
	}
	return c.Floors[id-1], true
}

// AggregateRate is the sum of rates of floors 1..unlocked.
func (c *Config) AggregateRate(unlocked int) decimal.Decimal {
	total := decimal.Zero
	for i := 0; i < unlocked && i < len(c.Floors); i++ {
		total = total.Add(c.Floors[i].Rate)
	}
	return total
}

// Task looks up a catalog task by id.
func (c *Config) Task(id string) (domain.Task, bool) {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

// Validate checks the table for internal consistency.
func (c *Config) Validate() error {
	if len(c.Floors) == 0 {
		return fmt.Errorf("economy: no floors configured")
	}
	for i, f := range c.Floors {
		if f.ID != i+1 {
			return fmt.Errorf("economy: floor ids must be contiguous from 1, got %d at position %d", f.ID, i+1)
		}
		if !f.Rate.IsPositive() {
			return fmt.Errorf("economy: floor %d rate must be positive", f.ID)
		}
		if f.CapacitySeconds <= 0 {
			return fmt.Errorf("economy: floor %d capacity must be positive", f.ID)
		}
		if f.UnlockCost < 0 {
			return fmt.Errorf("economy: floor %d unlock cost must not be negative", f.ID)
		}
	}
	if c.Floors[0].UnlockCost != 0 {
		return fmt.Errorf("economy: floor 1 must be free")
	}
	if c.StealChance < 0 || c.StealChance > 1 {
		return fmt.Errorf("economy: steal chance %v out of [0,1]", c.StealChance)
	}
	if !c.StealMinFraction.IsPositive() || c.StealMinFraction.GreaterThanOrEqual(c.StealMaxFraction) || c.StealMaxFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("economy: steal fractions must satisfy 0 < min < max <= 1")
	}
	if c.StealPrecision < 0 {
		return fmt.Errorf("economy: steal precision must not be negative")
	}
	seen := make(map[string]bool, len(c.Tasks))
	for _, t := range c.Tasks {
		if t.ID == "" || seen[t.ID] {
			return fmt.Errorf("economy: task ids must be unique and non-empty (%q)", t.ID)
		}
		if t.Reward < 0 {
			return fmt.Errorf("economy: task %s reward must not be negative", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

type fileFloor struct {
	ID              int    `yaml:"id"`
	Rate            string `yaml:"rate"`
	UnlockCost      int64  `yaml:"unlock_cost"`
	CapacitySeconds int64  `yaml:"capacity_seconds"`
}

type fileConfig struct {
	Floors []fileFloor `yaml:"floors"`
	Steal  *struct {
		Chance      float64 `yaml:"chance"`
		MinFraction string  `yaml:"min_fraction"`
		MaxFraction string  `yaml:"max_fraction"`
		Precision   int32   `yaml:"precision"`
	} `yaml:"steal"`
	Tasks []domain.Task `yaml:"tasks"`
}

// Load reads an economy table from a yaml file. Sections left out of the file
// keep their Default values. The result is validated.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes an economy yaml document.
func Parse(raw []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("economy.yaml: %w", err)
	}

	cfg := Default()
	if len(fc.Floors) > 0 {
		cfg.Floors = make([]Floor, 0, len(fc.Floors))
		for _, ff := range fc.Floors {
			rate, err := decimal.NewFromString(ff.Rate)
			if err != nil {
				return nil, fmt.Errorf("economy.yaml: floor %d rate: %w", ff.ID, err)
			}
			cfg.Floors = append(cfg.Floors, Floor{
				ID:              ff.ID,
				Rate:            rate,
				UnlockCost:      ff.UnlockCost,
				CapacitySeconds: ff.CapacitySeconds,
			})
		}
	}
	if fc.Steal != nil {
		cfg.StealChance = fc.Steal.Chance
		minFraction, err := decimal.NewFromString(fc.Steal.MinFraction)
		if err != nil {
			return nil, fmt.Errorf("economy.yaml: steal min_fraction: %w", err)
		}
		maxFraction, err := decimal.NewFromString(fc.Steal.MaxFraction)
		if err != nil {
			return nil, fmt.Errorf("economy.yaml: steal max_fraction: %w", err)
		}
		cfg.StealMinFraction = minFraction
		cfg.StealMaxFraction = maxFraction
		cfg.StealPrecision = fc.Steal.Precision
	}
	if fc.Tasks != nil {
		cfg.Tasks = fc.Tasks
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
