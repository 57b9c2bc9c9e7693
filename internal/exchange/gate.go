package exchange

import (
	"errors"
	"fmt"
	"time"
)

type gateAdapter struct {
	restURL string
	wsURL   string
	now     func() time.Time
}

func (g *gateAdapter) Name() Exchange { return Gate }

func (g *gateAdapter) WSURL() string { return g.wsURL }

func (g *gateAdapter) FormatSymbol(canonical string) string {
	base := Normalize(canonical)
	if base == "" {
		return ""
	}
	return base + "_USDT"
}

func (g *gateAdapter) RESTRequests(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	return []string{g.restURL + "/api/v4/futures/usdt/contracts"}
}

func (g *gateAdapter) ParseREST(body []byte) ([]Tuple, error) {
	payload, err := decodeAny(body)
	if err != nil {
		return nil, err
	}
	rows, ok := toSlice(payload)
	if !ok {
		if m, isMap := toMap(payload); isMap {
			return nil, fmt.Errorf("gate: %s: %s", stringFromMap(m, "label"), stringFromMap(m, "message"))
		}
		return nil, errors.New("gate: unexpected contracts payload")
	}
	var out []Tuple
	for _, row := range rows {
		item, ok := toMap(row)
		if !ok {
			continue
		}
		name := stringFromMap(item, "name", "contract")
		if t, ok := tupleFrom(name, firstPresent(item, "funding_rate"), item["funding_next_apply"]); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (g *gateAdapter) SubscribeMessages(symbols []string) []any {
	var msgs []any
	for _, batch := range Batches(symbols, SubscribeBatchSize) {
		payload := append([]string(nil), batch...)
		msgs = append(msgs, map[string]any{
			"time":    g.now().Unix(),
			"channel": "futures.tickers",
			"event":   "subscribe",
			"payload": payload,
		})
	}
	return msgs
}

// Ticker updates carry no settlement time.
func (g *gateAdapter) ParseFrame(frame []byte) []Tuple {
	payload, err := decodeAny(frame)
	if err != nil {
		return nil
	}
	m, ok := toMap(payload)
	if !ok || stringFromMap(m, "channel") != "futures.tickers" || stringFromMap(m, "event") != "update" {
		return nil
	}
	rows, _ := toSlice(m["result"])
	var out []Tuple
	for _, row := range rows {
		item, ok := toMap(row)
		if !ok {
			continue
		}
		if t, ok := tupleFrom(stringFromMap(item, "contract"), firstPresent(item, "funding_rate"), nil); ok {
			out = append(out, t)
		}
	}
	return out
}
