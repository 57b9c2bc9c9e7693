package universe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"funding-radar/internal/config"
	"funding-radar/internal/exchange"
	"funding-radar/internal/rest"
	"funding-radar/internal/state"

	"go.uber.org/zap"
)

// Discoverer supplies the canonical BASEUSDT symbols to track, ranked by liquidity.
type Discoverer struct {
	cfg   config.UniverseConfig
	rest  *rest.Client
	store state.Store
	log   *zap.Logger
	now   func() time.Time
}

func New(cfg config.UniverseConfig, client *rest.Client, store state.Store, log *zap.Logger) *Discoverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discoverer{cfg: cfg, rest: client, store: store, log: log, now: time.Now}
}

// Symbols returns the configured static list when set, else a cached or freshly
// fetched ranking. A failed fetch falls back to a stale cache when one exists.
func (d *Discoverer) Symbols(ctx context.Context) ([]string, error) {
	if len(d.cfg.Symbols) > 0 {
		return canonicalize(d.cfg.Symbols), nil
	}
	cache, cached, err := state.LoadUniverse(ctx, d.store)
	if err != nil {
		d.log.Warn("universe cache unreadable", zap.Error(err))
		cached = false
	}
	if cached && cache.Source == d.cfg.URL && d.fresh(cache) {
		return cache.Symbols, nil
	}
	symbols, err := d.fetch(ctx)
	if err != nil {
		if cached && len(cache.Symbols) > 0 {
			d.log.Warn("universe fetch failed, using stale cache", zap.Error(err), zap.Int("symbols", len(cache.Symbols)))
			return cache.Symbols, nil
		}
		return nil, err
	}
	if err := state.SaveUniverse(ctx, d.store, state.UniverseCache{
		FetchedAtMS: d.now().UnixMilli(),
		Source:      d.cfg.URL,
		Symbols:     symbols,
	}); err != nil {
		d.log.Warn("universe cache write failed", zap.Error(err))
	}
	d.log.Info("universe refreshed", zap.Int("symbols", len(symbols)))
	return symbols, nil
}

func (d *Discoverer) fresh(cache state.UniverseCache) bool {
	age := d.now().Sub(time.UnixMilli(cache.FetchedAtMS))
	return age >= 0 && age < d.cfg.CacheTTL
}

type ranked struct {
	symbol string
	volume float64
}

func (d *Discoverer) fetch(ctx context.Context) ([]string, error) {
	if d.rest == nil || d.cfg.URL == "" {
		return nil, errors.New("universe source is not configured")
	}
	body, err := d.rest.Get(ctx, d.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("universe fetch: %w", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("universe decode: %w", err)
	}
	var candidates []ranked
	for _, row := range rows {
		symbol := stringField(row, d.cfg.SymbolField)
		filter := stringField(row, d.cfg.FilterField)
		if symbol == "" || !strings.HasSuffix(strings.ToUpper(filter), strings.ToUpper(d.cfg.FilterSuffix)) {
			continue
		}
		volume, ok := floatField(row, d.cfg.VolumeField)
		if !ok {
			continue
		}
		candidates = append(candidates, ranked{symbol: symbol, volume: volume})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].volume > candidates[j].volume
	})
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.symbol)
	}
	symbols := canonicalize(names)
	if d.cfg.TopN > 0 && len(symbols) > d.cfg.TopN {
		symbols = symbols[:d.cfg.TopN]
	}
	if len(symbols) == 0 {
		return nil, errors.New("universe source returned no symbols")
	}
	return symbols, nil
}

func canonicalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		c := exchange.Canonical(sym)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func stringField(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return strings.TrimSpace(s)
}

func floatField(row map[string]any, key string) (float64, bool) {
	switch v := row[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
