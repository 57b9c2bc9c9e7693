package funding

import (
	"time"

	"funding-radar/internal/exchange"
	"funding-radar/internal/metrics"
)

// Engine turns raw tuples into observations and writes them into the snapshot.
type Engine struct {
	tracker    *Tracker
	snapshot   *Snapshot
	feePercent float64
	policy     NegativeFeePolicy
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewEngine(tracker *Tracker, snapshot *Snapshot, feePercent float64, policy NegativeFeePolicy, m *metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Engine{
		tracker:    tracker,
		snapshot:   snapshot,
		feePercent: feePercent,
		policy:     policy,
		metrics:    m,
		now:        time.Now,
	}
}

func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot
}

func (e *Engine) Ledger() *Ledger {
	return e.tracker.Ledger()
}

func (e *Engine) Record(ex exchange.Exchange, t exchange.Tuple) Observation {
	freq := e.tracker.Observe(ex, t.Symbol, t.NextSettlement, t.HasNextSettlement)
	derived := Calculate(t.Rate, e.feePercent, freq.PerDay, e.policy)
	obs := Observation{
		Exchange:              ex,
		Symbol:                t.Symbol,
		RawRate:               t.Rate,
		APR:                   derived.APR,
		SingleCycleNetPercent: derived.SingleCycleNetPercent,
		DailyNetPercent:       derived.DailyNetPercent,
		DailyRatePercent:      derived.DailyRatePercent,
		NextSettlement:        t.NextSettlement,
		HasNextSettlement:     t.HasNextSettlement,
		FrequencyPerDay:       freq.PerDay,
		IntervalHours:         freq.IntervalHours,
		HasInterval:           freq.HasInterval,
		ObservedAt:            e.now().UTC(),
	}
	if e.snapshot.Put(obs) {
		e.metrics.Observations.Inc()
	}
	return obs
}
