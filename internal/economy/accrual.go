package economy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Accrual is what a floor has earned since its last collection.
type Accrual struct {
	Earnings         decimal.Decimal
	RemainingSeconds int64
}

// ComputeAccrual returns the capped earnings of a floor. Elapsed time is counted
// in whole seconds and never goes below zero, so a clock behind lastCollectedAt
// yields nothing.
func ComputeAccrual(rate decimal.Decimal, capacitySeconds int64, lastCollectedAt, now time.Time) Accrual {
	elapsed := int64(now.Sub(lastCollectedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	accumulated := elapsed
	if accumulated > capacitySeconds {
		accumulated = capacitySeconds
	}
	return Accrual{
		Earnings:         rate.Mul(decimal.NewFromInt(accumulated)),
		RemainingSeconds: capacitySeconds - accumulated,
	}
}

// Accrue runs ComputeAccrual with the floor's own rate and capacity.
func (f Floor) Accrue(lastCollectedAt, now time.Time) Accrual {
	return ComputeAccrual(f.Rate, f.CapacitySeconds, lastCollectedAt, now)
}

// FormatTimer renders seconds as HH:MM:SS.
func FormatTimer(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
