package state

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	LedgerKey   = "funding:settlement_ledger"
	UniverseKey = "universe:ranked_symbols"
)

// LedgerDocument maps exchange -> symbol -> last observed next settlement time in epoch millis.
// A nil entry means the symbol was seen without a settlement time.
type LedgerDocument map[string]map[string]*int64

type UniverseCache struct {
	FetchedAtMS int64    `json:"fetched_at_ms"`
	Source      string   `json:"source"`
	Symbols     []string `json:"symbols"`
}

func LoadLedger(ctx context.Context, store Store) (LedgerDocument, bool, error) {
	var doc LedgerDocument
	ok, err := loadJSON(ctx, store, LedgerKey, &doc)
	if err != nil || !ok {
		return nil, false, err
	}
	return doc, true, nil
}

func SaveLedger(ctx context.Context, store Store, doc LedgerDocument) error {
	return saveJSON(ctx, store, LedgerKey, doc)
}

func LoadUniverse(ctx context.Context, store Store) (UniverseCache, bool, error) {
	var cache UniverseCache
	ok, err := loadJSON(ctx, store, UniverseKey, &cache)
	if err != nil || !ok {
		return UniverseCache{}, false, err
	}
	return cache, true, nil
}

func SaveUniverse(ctx context.Context, store Store, cache UniverseCache) error {
	return saveJSON(ctx, store, UniverseKey, cache)
}

func loadJSON(ctx context.Context, store Store, key string, out any) (bool, error) {
	if store == nil {
		return false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, err
	}
	return true, nil
}

func saveJSON(ctx context.Context, store Store, key string, value any) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, string(payload))
}
