package exchange

import (
	"fmt"
	"strings"
)

type bybitAdapter struct {
	restURL string
	wsURL   string
}

func (b *bybitAdapter) Name() Exchange { return Bybit }

func (b *bybitAdapter) WSURL() string { return b.wsURL }

func (b *bybitAdapter) FormatSymbol(canonical string) string {
	return Canonical(canonical)
}

func (b *bybitAdapter) RESTRequests(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	return []string{b.restURL + "/v5/market/tickers?category=linear"}
}

func (b *bybitAdapter) ParseREST(body []byte) ([]Tuple, error) {
	payload, err := decodeAny(body)
	if err != nil {
		return nil, err
	}
	m, ok := toMap(payload)
	if !ok {
		return nil, fmt.Errorf("bybit: unexpected tickers payload")
	}
	if code, ok := floatFromAny(m["retCode"]); ok && code != 0 {
		return nil, fmt.Errorf("bybit: retCode %v: %s", code, stringFromMap(m, "retMsg"))
	}
	result, _ := toMap(m["result"])
	rows, _ := toSlice(result["list"])
	var out []Tuple
	for _, row := range rows {
		item, ok := toMap(row)
		if !ok {
			continue
		}
		if t, ok := tupleFrom(stringFromMap(item, "symbol"), firstPresent(item, "fundingRate"), item["nextFundingTime"]); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (b *bybitAdapter) SubscribeMessages(symbols []string) []any {
	var msgs []any
	for _, batch := range Batches(symbols, SubscribeBatchSize) {
		args := make([]string, 0, len(batch))
		for _, sym := range batch {
			args = append(args, "tickers."+sym)
		}
		msgs = append(msgs, map[string]any{"op": "subscribe", "args": args})
	}
	return msgs
}

func (b *bybitAdapter) ParseFrame(frame []byte) []Tuple {
	payload, err := decodeAny(frame)
	if err != nil {
		return nil
	}
	m, ok := toMap(payload)
	if !ok || !strings.HasPrefix(stringFromMap(m, "topic"), "tickers.") {
		return nil
	}
	data, ok := toMap(m["data"])
	if !ok {
		return nil
	}
	// Deltas omit fundingRate when it did not change; tupleFrom drops them.
	if t, ok := tupleFrom(stringFromMap(data, "symbol"), firstPresent(data, "fundingRate"), data["nextFundingTime"]); ok {
		return []Tuple{t}
	}
	return nil
}
