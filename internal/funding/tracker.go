package funding

import (
	"math"
	"sync"
	"time"

	"funding-radar/internal/exchange"
	"funding-radar/internal/metrics"

	"go.uber.org/zap"
)

const (
	minInterval    = time.Hour
	maxInterval    = 24 * time.Hour
	dayMillis      = int64(24 * time.Hour / time.Millisecond)
	hourMillis     = int64(time.Hour / time.Millisecond)
	fallbackPerDay = 3
)

// Frequency is a settlement cadence; IntervalHours is set only when it was inferred.
type Frequency struct {
	PerDay        int
	IntervalHours float64
	HasInterval   bool
}

type ledgerKey struct {
	exchange exchange.Exchange
	symbol   string
}

// Tracker infers settlement cadence from consecutive next-settlement observations.
type Tracker struct {
	ledger   *Ledger
	defaults map[exchange.Exchange]int
	log      *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	accepted map[ledgerKey]int64
}

func NewTracker(ledger *Ledger, defaults map[exchange.Exchange]int, log *zap.Logger, m *metrics.Metrics) *Tracker {
	if ledger == nil {
		ledger = NewLedger()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Tracker{
		ledger:   ledger,
		defaults: defaults,
		log:      log,
		metrics:  m,
		accepted: make(map[ledgerKey]int64),
	}
}

func (t *Tracker) Ledger() *Ledger {
	return t.ledger
}

// Observe records next in the ledger and returns the cadence it implies. An unchanged
// timestamp reuses the last accepted interval; a missing, first, backwards or out-of-range
// one yields the exchange default.
func (t *Tracker) Observe(ex exchange.Exchange, symbol string, next time.Time, hasNext bool) Frequency {
	if !hasNext {
		return t.fallback(ex)
	}
	key := ledgerKey{exchange: ex, symbol: symbol}
	current := next.UnixMilli()
	previous, hasPrevious := t.ledger.Previous(ex, symbol)
	t.ledger.Record(ex, symbol, current)
	if !hasPrevious {
		return t.fallback(ex)
	}
	if current == previous {
		t.mu.Lock()
		intervalMs, ok := t.accepted[key]
		t.mu.Unlock()
		if ok {
			return frequencyFor(intervalMs)
		}
		return t.fallback(ex)
	}
	if current < previous {
		return t.fallback(ex)
	}
	intervalMs := current - previous
	if intervalMs < int64(minInterval/time.Millisecond) || intervalMs > int64(maxInterval/time.Millisecond) {
		t.metrics.AnomalousIntervals.Inc()
		t.log.Warn("anomalous settlement interval",
			zap.String("exchange", string(ex)),
			zap.String("symbol", symbol),
			zap.Duration("interval", time.Duration(intervalMs)*time.Millisecond),
		)
		return t.fallback(ex)
	}
	t.mu.Lock()
	t.accepted[key] = intervalMs
	t.mu.Unlock()
	return frequencyFor(intervalMs)
}

func (t *Tracker) fallback(ex exchange.Exchange) Frequency {
	perDay := t.defaults[ex]
	if perDay < 1 {
		perDay = fallbackPerDay
	}
	return Frequency{PerDay: perDay}
}

func frequencyFor(intervalMs int64) Frequency {
	perDay := int(math.Round(float64(dayMillis) / float64(intervalMs)))
	if perDay < 1 {
		perDay = 1
	}
	return Frequency{
		PerDay:        perDay,
		IntervalHours: math.Round(float64(intervalMs)/float64(hourMillis)*10) / 10,
		HasInterval:   true,
	}
}
