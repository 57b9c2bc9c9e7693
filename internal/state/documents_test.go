package state

import (
	"context"
	"sync"
	"testing"

	"funding-radar/internal/config"
)

type memoryStore struct {
	mu    sync.Mutex
	items map[string]string
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.items[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]string)
	}
	m.items[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}

func TestLedgerRoundTrip(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	next := int64(1_700_000_000_000)
	doc := LedgerDocument{
		"binance": {"BTCUSDT": &next, "ETHUSDT": nil},
		"okx":     {},
	}
	if err := SaveLedger(ctx, store, doc); err != nil {
		t.Fatalf("save ledger: %v", err)
	}
	got, ok, err := LoadLedger(ctx, store)
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if !ok {
		t.Fatalf("expected ledger to be present")
	}
	if got["binance"]["BTCUSDT"] == nil || *got["binance"]["BTCUSDT"] != next {
		t.Fatalf("unexpected BTCUSDT entry: %v", got["binance"]["BTCUSDT"])
	}
	if v, present := got["binance"]["ETHUSDT"]; !present || v != nil {
		t.Fatalf("expected explicit null ETHUSDT entry, got %v (present=%v)", v, present)
	}
	if _, present := got["okx"]; !present {
		t.Fatalf("expected empty okx map to survive")
	}
}

func TestLedgerReadsStoredJSON(t *testing.T) {
	store := &memoryStore{items: map[string]string{
		LedgerKey: `{"gate":{"BTC_USDT":1700000000000,"ETH_USDT":null}}`,
	}}
	got, ok, err := LoadLedger(context.Background(), store)
	if err != nil || !ok {
		t.Fatalf("expected ledger, got ok=%v err=%v", ok, err)
	}
	if *got["gate"]["BTC_USDT"] != 1_700_000_000_000 {
		t.Fatalf("unexpected value: %v", *got["gate"]["BTC_USDT"])
	}
}

func TestLoadLedgerMissing(t *testing.T) {
	_, ok, err := LoadLedger(context.Background(), &memoryStore{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected missing ledger")
	}
}

func TestLoadLedgerRejectsGarbage(t *testing.T) {
	store := &memoryStore{items: map[string]string{LedgerKey: "{not json"}}
	if _, _, err := LoadLedger(context.Background(), store); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	if err := SaveLedger(context.Background(), nil, LedgerDocument{}); err != nil {
		t.Fatalf("expected nil store save to succeed, got %v", err)
	}
	if _, ok, err := LoadUniverse(context.Background(), nil); ok || err != nil {
		t.Fatalf("expected nil store load to be empty, got ok=%v err=%v", ok, err)
	}
}

func TestUniverseRoundTrip(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	cache := UniverseCache{FetchedAtMS: 42, Source: "https://example", Symbols: []string{"BTCUSDT", "ETHUSDT"}}
	if err := SaveUniverse(ctx, store, cache); err != nil {
		t.Fatalf("save universe: %v", err)
	}
	got, ok, err := LoadUniverse(ctx, store)
	if err != nil || !ok {
		t.Fatalf("load universe: ok=%v err=%v", ok, err)
	}
	if got.FetchedAtMS != 42 || len(got.Symbols) != 2 || got.Symbols[1] != "ETHUSDT" {
		t.Fatalf("unexpected cache: %+v", got)
	}
}

func TestOpenSQLiteMemory(t *testing.T) {
	store, err := Open(context.Background(), configForSQLite(":memory:"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if err := SaveLedger(context.Background(), store, LedgerDocument{"bybit": {}}); err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := configForSQLite("x")
	cfg.Backend = "redis"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func configForSQLite(path string) config.StateConfig {
	return config.StateConfig{Backend: "sqlite", SQLitePath: path}
}
