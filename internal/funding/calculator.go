package funding

import "math"

// NegativeFeePolicy decides how the fee applies to a negative rate's receivable.
type NegativeFeePolicy string

const (
	SubtractFee NegativeFeePolicy = "subtract"
	AddFee      NegativeFeePolicy = "add"
)

func ParsePolicy(s string) NegativeFeePolicy {
	if NegativeFeePolicy(s) == AddFee {
		return AddFee
	}
	return SubtractFee
}

// Derived holds the comparable figures for one funding reading. All values are percentages.
type Derived struct {
	APR                   float64
	DailyRatePercent      float64
	SingleCycleNetPercent float64
	DailyNetPercent       float64
}

// Calculate derives annualized and fee-adjusted figures from a raw funding fraction.
// feePercent is the single-leg fee in percentage points, charged once per cycle or day.
func Calculate(rawRate, feePercent float64, perDay int, policy NegativeFeePolicy) Derived {
	if perDay < 1 {
		perDay = 1
	}
	daily := rawRate * float64(perDay) * 100
	d := Derived{
		APR:              daily * 365,
		DailyRatePercent: daily,
	}
	if rawRate >= 0 {
		// The conversion rounds the product before the subtraction so it cannot be fused.
		d.SingleCycleNetPercent = float64(rawRate*100) - feePercent
		d.DailyNetPercent = daily - feePercent
		return d
	}
	cycle := math.Abs(rawRate * 100)
	day := math.Abs(daily)
	if policy == AddFee {
		d.SingleCycleNetPercent = cycle + feePercent
		d.DailyNetPercent = day + feePercent
		return d
	}
	d.SingleCycleNetPercent = cycle - feePercent
	d.DailyNetPercent = day - feePercent
	return d
}
