package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"funding-radar/internal/config"
	"funding-radar/internal/exchange"
	"funding-radar/internal/funding"
	"funding-radar/internal/logging"
	"funding-radar/internal/metrics"
	"funding-radar/internal/rest"
	"funding-radar/internal/retrieval"
	"funding-radar/internal/ws"

	"go.uber.org/zap"
)

const defaultProbeEnvFile = ".env"

func main() {
	configPath := flag.String("config", "", "optional config path for exchange endpoints")
	exchangeName := flag.String("exchange", "", "exchange to probe (binance, bybit, okx, gate, bitget)")
	symbolList := flag.String("symbols", "BTC,ETH", "comma separated symbols")
	mode := flag.String("mode", "auto", "retrieval mode: rest, ws or auto")
	flag.Parse()

	if err := config.LoadEnv(defaultProbeEnvFile); err != nil {
		fatal(err)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	exCfg, ok := cfg.Exchange(*exchangeName)
	if !ok {
		fatal(fmt.Errorf("%w: %q", exchange.ErrUnknownExchange, *exchangeName))
	}
	adapter, err := exchange.New(exchange.Exchange(exCfg.Name), exchange.Endpoints{RESTURL: exCfg.RESTURL, WSURL: exCfg.WSURL})
	if err != nil {
		fatal(err)
	}
	symbols := parseSymbols(*symbolList)
	if len(symbols) == 0 {
		fatal(errors.New("at least one symbol is required"))
	}
	native := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		native = append(native, adapter.FormatSymbol(sym))
	}
	client := rest.New(cfg.REST.Timeout, exCfg.RequestsPerSecond, log)

	ctx := context.Background()
	var tuples []exchange.Tuple
	switch strings.ToLower(*mode) {
	case "rest":
		tuples, err = probeREST(ctx, client, adapter, native)
	case "ws":
		tuples, err = probeWS(ctx, adapter, native, exCfg.WSTimeout, log)
	case "auto":
		tuples, err = probeAuto(ctx, client, adapter, symbols, exCfg.WSTimeout, log)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		fatal(err)
	}
	printTuples(tuples, exCfg.DefaultFrequency, cfg.Detector)
}

func probeREST(ctx context.Context, client *rest.Client, adapter exchange.Adapter, native []string) ([]exchange.Tuple, error) {
	var out []exchange.Tuple
	for _, url := range adapter.RESTRequests(native) {
		body, err := client.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		tuples, err := adapter.ParseREST(body)
		if err != nil {
			return nil, err
		}
		out = append(out, tuples...)
	}
	return filter(out, native), nil
}

func probeWS(ctx context.Context, adapter exchange.Adapter, native []string, timeout time.Duration, log *zap.Logger) ([]exchange.Tuple, error) {
	latest := make(map[string]exchange.Tuple)
	session := ws.NewSession(adapter.WSURL(), timeout, log)
	frames, err := session.Run(ctx, adapter.SubscribeMessages(native), func(frame []byte) {
		for _, t := range adapter.ParseFrame(frame) {
			latest[t.Symbol] = t
		}
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("ws frames received: %d\n", frames)
	out := make([]exchange.Tuple, 0, len(latest))
	for _, t := range latest {
		out = append(out, t)
	}
	return filter(out, native), nil
}

func probeAuto(ctx context.Context, client *rest.Client, adapter exchange.Adapter, symbols []string, timeout time.Duration, log *zap.Logger) ([]exchange.Tuple, error) {
	var out []exchange.Tuple
	orch := retrieval.New(
		[]retrieval.Source{{Adapter: adapter, REST: client, WSTimeout: timeout}},
		func(_ exchange.Exchange, t exchange.Tuple) { out = append(out, t) },
		1, log, metrics.NewNoop(),
	)
	outcomes := orch.Run(ctx, symbols)
	for _, o := range outcomes {
		fmt.Printf("source: %s states: %v\n", o.Source, o.States)
		if o.Source == retrieval.SourceNone {
			return nil, fmt.Errorf("%s returned no data over rest or ws", o.Exchange)
		}
	}
	return out, nil
}

func filter(tuples []exchange.Tuple, native []string) []exchange.Tuple {
	want := make(map[string]bool, len(native))
	for _, sym := range native {
		want[sym] = true
	}
	out := tuples[:0]
	for _, t := range tuples {
		if want[t.Symbol] {
			out = append(out, t)
		}
	}
	return out
}

func printTuples(tuples []exchange.Tuple, perDay int, det config.DetectorConfig) {
	sort.Slice(tuples, func(i, j int) bool { return tuples[i].Symbol < tuples[j].Symbol })
	policy := funding.ParsePolicy(det.NegativeFeePolicy)
	for _, t := range tuples {
		d := funding.Calculate(t.Rate, det.FeePercentValue(), perDay, policy)
		next := "-"
		if t.HasNextSettlement {
			next = t.NextSettlement.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%-16s rate=%.6f%% apr=%.2f%% daily_net=%.4f%% next=%s\n", t.Symbol, t.Rate*100, d.APR, d.DailyNetPercent, next)
	}
	if len(tuples) == 0 {
		fmt.Println("no funding data")
	}
}

func parseSymbols(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if sym := exchange.Canonical(strings.TrimSpace(part)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
