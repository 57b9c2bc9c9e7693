package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "funding_radar"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry            *prometheus.Registry
	cycles              prometheus.Counter
	restFailures        prometheus.Counter
	wsFallbacks         prometheus.Counter
	exchangeFailures    prometheus.Counter
	observations        prometheus.Counter
	anomalousIntervals  prometheus.Counter
	ledgerFlushFailures prometheus.Counter
	notifyFailures      prometheus.Counter
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      name,
		Help:      help,
	})
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry:            prometheus.NewRegistry(),
		cycles:              newCounter("cycles_total", "Total number of retrieval cycles run."),
		restFailures:        newCounter("rest_failures_total", "Total number of failed or malformed REST requests."),
		wsFallbacks:         newCounter("ws_fallbacks_total", "Total number of WebSocket fallback sessions opened."),
		exchangeFailures:    newCounter("exchange_failures_total", "Total number of cycles where an exchange produced no observations."),
		observations:        newCounter("observations_total", "Total number of funding observations recorded."),
		anomalousIntervals:  newCounter("anomalous_intervals_total", "Total number of settlement intervals rejected as out of bounds."),
		ledgerFlushFailures: newCounter("ledger_flush_failures_total", "Total number of failed settlement ledger writes."),
		notifyFailures:      newCounter("notify_failures_total", "Total number of failed report deliveries."),
	}
	p.registry.MustRegister(
		p.cycles,
		p.restFailures,
		p.wsFallbacks,
		p.exchangeFailures,
		p.observations,
		p.anomalousIntervals,
		p.ledgerFlushFailures,
		p.notifyFailures,
	)
	p.Metrics = &Metrics{
		Cycles:              promCounter{p.cycles},
		RESTFailures:        promCounter{p.restFailures},
		WSFallbacks:         promCounter{p.wsFallbacks},
		ExchangeFailures:    promCounter{p.exchangeFailures},
		Observations:        promCounter{p.observations},
		AnomalousIntervals:  promCounter{p.anomalousIntervals},
		LedgerFlushFailures: promCounter{p.ledgerFlushFailures},
		NotifyFailures:      promCounter{p.notifyFailures},
	}
	return p
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
