package arbitrage

import (
	"math"
	"sort"

	"funding-radar/internal/exchange"
	"funding-radar/internal/funding"
)

// spreadEpsilon keeps float noise from turning an exact fee match into an opportunity.
const spreadEpsilon = 1e-9

type CrossExchangeOpportunity struct {
	NormalizedSymbol string
	LongExchange     exchange.Exchange
	LongSymbol       string
	LongRate         float64
	ShortExchange    exchange.Exchange
	ShortSymbol      string
	ShortRate        float64
	RateDiffPercent  float64
	NetProfitPercent float64
}

type leg struct {
	exchange exchange.Exchange
	symbol   string
	rate     float64
}

// CrossExchange pairs exchanges quoting the same base asset and keeps spreads that
// beat the round-trip fee on both legs. It returns nil when nothing qualifies.
func CrossExchange(view funding.View, feePercent float64) []CrossExchangeOpportunity {
	groups := make(map[string][]leg)
	var bases []string
	for _, obs := range view.Observations() {
		base := exchange.Normalize(obs.Symbol)
		legs, seen := groups[base]
		if !seen {
			bases = append(bases, base)
		}
		if hasExchange(legs, obs.Exchange) {
			continue
		}
		groups[base] = append(legs, leg{exchange: obs.Exchange, symbol: obs.Symbol, rate: obs.RawRate})
	}
	sort.Strings(bases)

	roundTrip := 2 * feePercent
	var out []CrossExchangeOpportunity
	for _, base := range bases {
		legs := groups[base]
		if len(legs) < 2 {
			continue
		}
		for i := 0; i < len(legs); i++ {
			for j := i + 1; j < len(legs); j++ {
				a, b := legs[i], legs[j]
				diff := math.Abs((a.rate - b.rate) * 100)
				net := diff - roundTrip
				if net <= spreadEpsilon {
					continue
				}
				long, short := a, b
				if b.rate < a.rate {
					long, short = b, a
				}
				out = append(out, CrossExchangeOpportunity{
					NormalizedSymbol: base,
					LongExchange:     long.exchange,
					LongSymbol:       long.symbol,
					LongRate:         long.rate,
					ShortExchange:    short.exchange,
					ShortSymbol:      short.symbol,
					ShortRate:        short.rate,
					RateDiffPercent:  diff,
					NetProfitPercent: net,
				})
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetProfitPercent > out[j].NetProfitPercent
	})
	return out
}

func hasExchange(legs []leg, ex exchange.Exchange) bool {
	for _, l := range legs {
		if l.exchange == ex {
			return true
		}
	}
	return false
}
