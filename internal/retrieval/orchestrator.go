package retrieval

import (
	"context"
	"time"

	"funding-radar/internal/exchange"
	"funding-radar/internal/metrics"
	"funding-radar/internal/rest"
	"funding-radar/internal/ws"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sink receives each accepted tuple as soon as it is parsed.
type Sink func(ex exchange.Exchange, t exchange.Tuple)

type Source struct {
	Adapter   exchange.Adapter
	REST      *rest.Client
	WSTimeout time.Duration
}

type Outcome struct {
	Exchange exchange.Exchange
	Source   string
	Tuples   int
	States   []State
}

const (
	SourceREST = "rest"
	SourceWS   = "ws"
	SourceNone = "none"
)

type Orchestrator struct {
	sources        []Source
	sink           Sink
	maxConcurrency int
	log            *zap.Logger
	metrics        *metrics.Metrics
}

func New(sources []Source, sink Sink, maxConcurrency int, log *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Orchestrator{
		sources:        sources,
		sink:           sink,
		maxConcurrency: maxConcurrency,
		log:            log,
		metrics:        m,
	}
}

// Run retrieves funding for the canonical symbols from every source. One exchange's
// failure never affects another; outcomes are returned in source order.
func (o *Orchestrator) Run(ctx context.Context, symbols []string) []Outcome {
	if len(symbols) == 0 {
		return nil
	}
	outcomes := make([]Outcome, len(o.sources))
	var g errgroup.Group
	if o.maxConcurrency > 0 {
		g.SetLimit(o.maxConcurrency)
	}
	for i, src := range o.sources {
		i, src := i, src
		g.Go(func() error {
			outcomes[i] = o.retrieve(ctx, src, symbols)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) retrieve(ctx context.Context, src Source, symbols []string) Outcome {
	name := src.Adapter.Name()
	log := o.log.With(zap.String("exchange", string(name)))
	native, want := nativeSymbols(src.Adapter, symbols)
	sm := NewStateMachine()
	out := Outcome{Exchange: name, Source: SourceNone}

	sm.Apply(EventBegin)
	if n := o.tryREST(ctx, src, native, want, log); n > 0 {
		sm.Apply(EventRESTProductive)
		out.Source, out.Tuples, out.States = SourceREST, n, sm.History
		log.Debug("rest retrieval complete", zap.Int("tuples", n))
		return out
	}
	sm.Apply(EventRESTEmpty)
	o.metrics.WSFallbacks.Inc()
	n := o.tryWS(ctx, src, native, want, log)
	sm.Apply(EventWSFinished)
	out.States = sm.History
	if n == 0 {
		o.metrics.ExchangeFailures.Inc()
		log.Warn("exchange produced no funding data", zap.Int("symbols", len(native)))
		return out
	}
	out.Source, out.Tuples = SourceWS, n
	log.Info("ws fallback retrieval complete", zap.Int("tuples", n))
	return out
}

func (o *Orchestrator) tryREST(ctx context.Context, src Source, native []string, want map[string]bool, log *zap.Logger) int {
	if src.REST == nil {
		return 0
	}
	accepted := 0
	for _, url := range src.Adapter.RESTRequests(native) {
		if ctx.Err() != nil {
			break
		}
		body, err := src.REST.Get(ctx, url)
		if err != nil {
			o.metrics.RESTFailures.Inc()
			log.Warn("rest request failed", zap.String("url", url), zap.Error(err))
			continue
		}
		tuples, err := src.Adapter.ParseREST(body)
		if err != nil {
			o.metrics.RESTFailures.Inc()
			log.Warn("rest response malformed", zap.String("url", url), zap.Error(err))
			continue
		}
		accepted += o.forward(src.Adapter.Name(), tuples, want)
	}
	return accepted
}

func (o *Orchestrator) tryWS(ctx context.Context, src Source, native []string, want map[string]bool, log *zap.Logger) int {
	url := src.Adapter.WSURL()
	if url == "" || len(native) == 0 {
		return 0
	}
	name := src.Adapter.Name()
	accepted := 0
	session := ws.NewSession(url, src.WSTimeout, log)
	frames, err := session.Run(ctx, src.Adapter.SubscribeMessages(native), func(frame []byte) {
		accepted += o.forward(name, src.Adapter.ParseFrame(frame), want)
	})
	if err != nil {
		log.Warn("ws session failed", zap.String("url", url), zap.Error(err))
	}
	log.Debug("ws session ended", zap.Int("frames", frames), zap.Int("tuples", accepted))
	return accepted
}

func (o *Orchestrator) forward(name exchange.Exchange, tuples []exchange.Tuple, want map[string]bool) int {
	n := 0
	for _, t := range tuples {
		if !want[t.Symbol] {
			continue
		}
		if o.sink != nil {
			o.sink(name, t)
		}
		n++
	}
	return n
}

func nativeSymbols(adapter exchange.Adapter, symbols []string) ([]string, map[string]bool) {
	native := make([]string, 0, len(symbols))
	want := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		formatted := adapter.FormatSymbol(sym)
		if formatted == "" || want[formatted] {
			continue
		}
		want[formatted] = true
		native = append(native, formatted)
	}
	return native, want
}
