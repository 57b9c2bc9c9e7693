package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"funding-radar/internal/alerts"
	"funding-radar/internal/arbitrage"
	"funding-radar/internal/config"
	"funding-radar/internal/exchange"
	"funding-radar/internal/funding"
	"funding-radar/internal/metrics"
	"funding-radar/internal/rest"
	"funding-radar/internal/retrieval"
	"funding-radar/internal/state"
	"funding-radar/internal/universe"

	"go.uber.org/zap"
)

type Notifier interface {
	Send(ctx context.Context, message string) error
}

type SymbolSource interface {
	Symbols(ctx context.Context) ([]string, error)
}

type App struct {
	cfg          *config.Config
	log          *zap.Logger
	store        state.Store
	metrics      *metrics.Metrics
	prom         *metrics.Prometheus
	universe     SymbolSource
	engine       *funding.Engine
	orchestrator *retrieval.Orchestrator
	notifier     Notifier

	flushing atomic.Bool
	flushWG  sync.WaitGroup
}

// Cycle summarizes one retrieval pass.
type Cycle struct {
	Symbols   []string
	Outcomes  []retrieval.Outcome
	View      funding.View
	SingleLeg arbitrage.SingleLegReport
	Cross     []arbitrage.CrossExchangeOpportunity
	Messages  []string
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	ctx := context.Background()
	store, err := state.Open(ctx, cfg.State)
	if err != nil {
		return nil, err
	}
	var prom *metrics.Prometheus
	m := metrics.NewNoop()
	if cfg.Metrics.EnabledValue() {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}
	a, err := assemble(ctx, cfg, log, store, m)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.prom = prom
	a.universe = universe.New(cfg.Universe, rest.New(cfg.REST.Timeout, 0, log), store, log.Named("universe"))
	a.notifier = alerts.NewTelegram(cfg.Telegram, log.Named("telegram"))
	return a, nil
}

// assemble builds the funding engine and retrieval orchestrator over an open store.
func assemble(ctx context.Context, cfg *config.Config, log *zap.Logger, store state.Store, m *metrics.Metrics) (*App, error) {
	ledger, err := funding.LoadLedger(ctx, store)
	if err != nil {
		log.Warn("settlement ledger unreadable, starting empty", zap.Error(err))
		ledger = funding.NewLedger()
	}
	enabled := cfg.EnabledExchanges()
	names := make([]exchange.Exchange, 0, len(enabled))
	defaults := make(map[exchange.Exchange]int, len(enabled))
	sources := make([]retrieval.Source, 0, len(enabled))
	for _, exCfg := range enabled {
		name := exchange.Exchange(exCfg.Name)
		adapter, err := exchange.New(name, exchange.Endpoints{RESTURL: exCfg.RESTURL, WSURL: exCfg.WSURL})
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		defaults[name] = exCfg.DefaultFrequency
		sources = append(sources, retrieval.Source{
			Adapter:   adapter,
			REST:      rest.New(cfg.REST.Timeout, exCfg.RequestsPerSecond, log.Named(exCfg.Name)),
			WSTimeout: exCfg.WSTimeout,
		})
	}
	tracker := funding.NewTracker(ledger, defaults, log.Named("tracker"), m)
	snapshot := funding.NewSnapshot(names)
	engine := funding.NewEngine(tracker, snapshot, cfg.Detector.FeePercentValue(), funding.ParsePolicy(cfg.Detector.NegativeFeePolicy), m)
	sink := func(ex exchange.Exchange, t exchange.Tuple) {
		engine.Record(ex, t)
	}
	return &App{
		cfg:          cfg,
		log:          log,
		store:        store,
		metrics:      m,
		engine:       engine,
		orchestrator: retrieval.New(sources, sink, cfg.Cycle.MaxConcurrency, log.Named("retrieval"), m),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer a.finalFlush()
	if a.prom != nil {
		a.serveMetrics(ctx)
	}

	if _, err := a.RunCycle(ctx); err != nil {
		a.log.Warn("cycle failed", zap.Error(err))
	}
	ticker := time.NewTicker(a.cfg.Cycle.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.RunCycle(ctx); err != nil {
				a.log.Warn("cycle failed", zap.Error(err))
			}
		}
	}
}

// RunOnce runs a single cycle and waits for the ledger to be persisted.
func (a *App) RunOnce(ctx context.Context) error {
	defer a.store.Close()
	defer a.finalFlush()
	_, err := a.RunCycle(ctx)
	return err
}

// RunCycle resets the snapshot, retrieves every exchange, and builds and delivers
// both reports from one frozen view before the next cycle can clear it.
func (a *App) RunCycle(ctx context.Context) (Cycle, error) {
	a.metrics.Cycles.Inc()
	snapshot := a.engine.Snapshot()
	snapshot.Clear()

	symbols, err := a.universe.Symbols(ctx)
	if err != nil {
		return Cycle{}, err
	}
	cycle := Cycle{Symbols: symbols}
	if len(symbols) == 0 {
		a.log.Info("no symbols to track, skipping retrieval")
		return cycle, nil
	}

	started := time.Now()
	cycle.Outcomes = a.orchestrator.Run(ctx, symbols)
	cycle.View = snapshot.Freeze()
	a.logOutcomes(cycle.Outcomes, cycle.View, time.Since(started))

	det := a.cfg.Detector
	cycle.SingleLeg = arbitrage.SingleLeg(cycle.View, arbitrage.SingleLegConfig{
		MinPositiveAPR:         det.MinPositiveAPRValue(),
		MinNegativeAPR:         det.MinNegativeAPRValue(),
		FilterNegativeDailyNet: det.FilterNegativeDailyNetValue(),
	})
	cycle.Cross = arbitrage.CrossExchange(cycle.View, det.FeePercentValue())
	opts := arbitrage.RenderOptions{
		MinPositiveAPR: det.MinPositiveAPRValue(),
		MinNegativeAPR: det.MinNegativeAPRValue(),
		MaxItems:       det.MaxItems,
	}
	if text, ok := arbitrage.RenderSingleLeg(cycle.SingleLeg, opts); ok {
		cycle.Messages = append(cycle.Messages, text)
	}
	if text, ok := arbitrage.RenderCrossExchange(cycle.Cross, opts); ok {
		cycle.Messages = append(cycle.Messages, text)
	}
	a.deliver(ctx, cycle.Messages)
	a.flushLedger(ctx)
	return cycle, nil
}

func (a *App) logOutcomes(outcomes []retrieval.Outcome, view funding.View, elapsed time.Duration) {
	fields := make([]zap.Field, 0, len(outcomes)+2)
	for _, out := range outcomes {
		fields = append(fields, zap.String(string(out.Exchange), out.Source))
	}
	fields = append(fields, zap.Int("observations", view.Len()), zap.Duration("elapsed", elapsed))
	a.log.Info("retrieval complete", fields...)
}

func (a *App) deliver(ctx context.Context, messages []string) {
	if a.notifier == nil {
		return
	}
	for _, msg := range messages {
		if err := a.notifier.Send(ctx, msg); err != nil {
			a.metrics.NotifyFailures.Inc()
			a.log.Warn("report delivery failed", zap.Error(err))
		}
	}
}

// flushLedger persists the settlement ledger in the background when it changed.
// A flush still running from an earlier cycle causes this one to be skipped.
func (a *App) flushLedger(ctx context.Context) {
	ledger := a.engine.Ledger()
	if !ledger.Dirty() || !a.flushing.CompareAndSwap(false, true) {
		return
	}
	a.flushWG.Add(1)
	go func() {
		defer a.flushWG.Done()
		defer a.flushing.Store(false)
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Cycle.FlushTimeout)
		defer cancel()
		if _, err := ledger.Flush(flushCtx, a.store); err != nil {
			a.metrics.LedgerFlushFailures.Inc()
			a.log.Warn("settlement ledger flush failed", zap.Error(err))
		}
	}()
}

func (a *App) finalFlush() {
	a.flushWG.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Cycle.FlushTimeout)
	defer cancel()
	if _, err := a.engine.Ledger().Flush(ctx, a.store); err != nil {
		a.log.Warn("final settlement ledger flush failed", zap.Error(err))
	}
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	server := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	a.log.Info("metrics server listening", zap.String("address", a.cfg.Metrics.Address), zap.String("path", a.cfg.Metrics.Path))
}
