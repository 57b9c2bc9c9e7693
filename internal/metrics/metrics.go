package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	Cycles              Counter
	RESTFailures        Counter
	WSFallbacks         Counter
	ExchangeFailures    Counter
	Observations        Counter
	AnomalousIntervals  Counter
	LedgerFlushFailures Counter
	NotifyFailures      Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		Cycles:              n,
		RESTFailures:        n,
		WSFallbacks:         n,
		ExchangeFailures:    n,
		Observations:        n,
		AnomalousIntervals:  n,
		LedgerFlushFailures: n,
		NotifyFailures:      n,
	}
}
