package funding

import (
	"context"
	"sync"

	"funding-radar/internal/exchange"
	"funding-radar/internal/state"
)

// Ledger remembers the last observed next-settlement time per (exchange, symbol).
// It outlives cycles and is never cleared.
type Ledger struct {
	mu      sync.Mutex
	entries map[exchange.Exchange]map[string]int64
	dirty   bool
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[exchange.Exchange]map[string]int64)}
}

// LoadLedger reads the persisted document. A missing document yields an empty ledger.
func LoadLedger(ctx context.Context, store state.Store) (*Ledger, error) {
	l := NewLedger()
	doc, ok, err := state.LoadLedger(ctx, store)
	if err != nil || !ok {
		return l, err
	}
	for ex, symbols := range doc {
		for sym, ms := range symbols {
			if ms == nil {
				continue
			}
			l.set(exchange.Exchange(ex), sym, *ms)
		}
	}
	return l, nil
}

func (l *Ledger) Previous(ex exchange.Exchange, symbol string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ms, ok := l.entries[ex][symbol]
	return ms, ok
}

// Record stores ms for the key and reports whether the stored value changed.
func (l *Ledger) Record(ex exchange.Exchange, symbol string, ms int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.entries[ex][symbol]; ok && prev == ms {
		return false
	}
	l.set(ex, symbol, ms)
	l.dirty = true
	return true
}

func (l *Ledger) set(ex exchange.Exchange, symbol string, ms int64) {
	bySymbol, ok := l.entries[ex]
	if !ok {
		bySymbol = make(map[string]int64)
		l.entries[ex] = bySymbol
	}
	bySymbol[symbol] = ms
}

func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// TakeDirty returns a copy of the ledger and clears the pending flag, or false when nothing changed.
func (l *Ledger) TakeDirty() (state.LedgerDocument, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.dirty {
		return nil, false
	}
	l.dirty = false
	doc := make(state.LedgerDocument, len(l.entries))
	for ex, symbols := range l.entries {
		out := make(map[string]*int64, len(symbols))
		for sym, ms := range symbols {
			v := ms
			out[sym] = &v
		}
		doc[string(ex)] = out
	}
	return doc, true
}

func (l *Ledger) markDirty() {
	l.mu.Lock()
	l.dirty = true
	l.mu.Unlock()
}

// Flush writes the ledger when it changed since the last flush. A failed write
// leaves the ledger pending so the next flush retries it.
func (l *Ledger) Flush(ctx context.Context, store state.Store) (bool, error) {
	doc, ok := l.TakeDirty()
	if !ok {
		return false, nil
	}
	if err := state.SaveLedger(ctx, store, doc); err != nil {
		l.markDirty()
		return false, err
	}
	return true, nil
}
