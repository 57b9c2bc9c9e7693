package funding

import (
	"sort"
	"sync"
	"time"

	"funding-radar/internal/exchange"
)

// Observation is one symbol's funding reading on one exchange with its derived figures.
type Observation struct {
	Exchange              exchange.Exchange
	Symbol                string
	RawRate               float64
	APR                   float64
	SingleCycleNetPercent float64
	DailyNetPercent       float64
	DailyRatePercent      float64
	NextSettlement        time.Time
	HasNextSettlement     bool
	FrequencyPerDay       int
	IntervalHours         float64
	HasInterval           bool
	ObservedAt            time.Time
}

// Snapshot is the current cycle's exchange -> symbol -> Observation table.
// Its exchange key set is fixed at construction.
type Snapshot struct {
	mu        sync.RWMutex
	exchanges []exchange.Exchange
	data      map[exchange.Exchange]map[string]Observation
}

// NewSnapshot fixes the exchange key set for the lifetime of the snapshot.
func NewSnapshot(exchanges []exchange.Exchange) *Snapshot {
	s := &Snapshot{exchanges: append([]exchange.Exchange(nil), exchanges...)}
	s.Clear()
	return s
}

// Clear drops every observation while keeping one empty map per configured exchange.
func (s *Snapshot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[exchange.Exchange]map[string]Observation, len(s.exchanges))
	for _, ex := range s.exchanges {
		s.data[ex] = make(map[string]Observation)
	}
}

// Put stores obs, replacing any earlier observation for the same key.
// Observations for exchanges outside the configured set are rejected.
func (s *Snapshot) Put(obs Observation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySymbol, ok := s.data[obs.Exchange]
	if !ok {
		return false
	}
	bySymbol[obs.Symbol] = obs
	return true
}

func (s *Snapshot) Exchanges() []exchange.Exchange {
	return append([]exchange.Exchange(nil), s.exchanges...)
}

func (s *Snapshot) Symbols(ex exchange.Exchange) map[string]Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySymbol, ok := s.data[ex]
	if !ok {
		return nil
	}
	out := make(map[string]Observation, len(bySymbol))
	for sym, obs := range bySymbol {
		out[sym] = obs
	}
	return out
}

// Freeze returns an immutable copy for report building.
func (s *Snapshot) Freeze() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{counts: make(map[exchange.Exchange]int, len(s.exchanges))}
	for _, ex := range s.exchanges {
		bySymbol := s.data[ex]
		v.counts[ex] = len(bySymbol)
		symbols := make([]string, 0, len(bySymbol))
		for sym := range bySymbol {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			v.observations = append(v.observations, bySymbol[sym])
		}
	}
	return v
}

// View is a read-only copy of a Snapshot, ordered by configured exchange then symbol.
type View struct {
	observations []Observation
	counts       map[exchange.Exchange]int
}

func (v View) Observations() []Observation {
	return append([]Observation(nil), v.observations...)
}

func (v View) Len() int {
	return len(v.observations)
}

func (v View) Count(ex exchange.Exchange) int {
	return v.counts[ex]
}
