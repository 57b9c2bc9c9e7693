package arbitrage

import (
	"fmt"
	"sort"

	"funding-radar/internal/exchange"
	"funding-radar/internal/funding"
)

type SingleLegConfig struct {
	MinPositiveAPR         float64
	MinNegativeAPR         float64
	FilterNegativeDailyNet bool
}

type SingleLegOpportunity struct {
	Exchange              exchange.Exchange
	Symbol                string
	RawRate               float64
	APR                   float64
	SingleCycleNetPercent float64
	DailyNetPercent       float64
	FrequencyPerDay       int
	IntervalHours         float64
	HasInterval           bool
}

// Settlement renders the cadence as "8.0h" when inferred, else "3 times/day".
func (o SingleLegOpportunity) Settlement() string {
	if o.HasInterval {
		return fmt.Sprintf("%.1fh", o.IntervalHours)
	}
	return fmt.Sprintf("%d times/day", o.FrequencyPerDay)
}

type SingleLegReport struct {
	Positive []SingleLegOpportunity
	Negative []SingleLegOpportunity
}

func (r SingleLegReport) Empty() bool {
	return len(r.Positive) == 0 && len(r.Negative) == 0
}

// SingleLeg classifies every observation against the APR thresholds. Positive
// opportunities sort by APR descending, negative ones most negative first.
func SingleLeg(view funding.View, cfg SingleLegConfig) SingleLegReport {
	var report SingleLegReport
	for _, obs := range view.Observations() {
		if cfg.FilterNegativeDailyNet && obs.DailyNetPercent < 0 {
			continue
		}
		opp := SingleLegOpportunity{
			Exchange:              obs.Exchange,
			Symbol:                obs.Symbol,
			RawRate:               obs.RawRate,
			APR:                   obs.APR,
			SingleCycleNetPercent: obs.SingleCycleNetPercent,
			DailyNetPercent:       obs.DailyNetPercent,
			FrequencyPerDay:       obs.FrequencyPerDay,
			IntervalHours:         obs.IntervalHours,
			HasInterval:           obs.HasInterval,
		}
		if obs.APR >= cfg.MinPositiveAPR {
			report.Positive = append(report.Positive, opp)
		}
		if obs.APR <= cfg.MinNegativeAPR {
			report.Negative = append(report.Negative, opp)
		}
	}
	sort.SliceStable(report.Positive, func(i, j int) bool {
		return report.Positive[i].APR > report.Positive[j].APR
	})
	sort.SliceStable(report.Negative, func(i, j int) bool {
		return report.Negative[i].APR < report.Negative[j].APR
	})
	return report
}
