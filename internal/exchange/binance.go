package exchange

import (
	"errors"
	"fmt"
	"strings"
)

type binanceAdapter struct {
	restURL string
	wsURL   string
}

func (b *binanceAdapter) Name() Exchange { return Binance }

func (b *binanceAdapter) WSURL() string { return b.wsURL }

func (b *binanceAdapter) FormatSymbol(canonical string) string {
	return Canonical(canonical)
}

func (b *binanceAdapter) RESTRequests(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	return []string{b.restURL + "/fapi/v1/premiumIndex"}
}

func (b *binanceAdapter) ParseREST(body []byte) ([]Tuple, error) {
	payload, err := decodeAny(body)
	if err != nil {
		return nil, err
	}
	rows, ok := toSlice(payload)
	if !ok {
		if m, isMap := toMap(payload); isMap {
			if msg := stringFromMap(m, "msg"); msg != "" {
				return nil, fmt.Errorf("binance: %s", msg)
			}
			rows = []any{m}
		} else {
			return nil, errors.New("binance: unexpected premiumIndex payload")
		}
	}
	var out []Tuple
	for _, row := range rows {
		m, ok := toMap(row)
		if !ok {
			continue
		}
		if t, ok := tupleFrom(stringFromMap(m, "symbol"), firstPresent(m, "lastFundingRate"), m["nextFundingTime"]); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (b *binanceAdapter) SubscribeMessages(symbols []string) []any {
	var msgs []any
	for i, batch := range Batches(symbols, SubscribeBatchSize) {
		params := make([]string, 0, len(batch))
		for _, sym := range batch {
			params = append(params, strings.ToLower(sym)+"@markPrice")
		}
		msgs = append(msgs, map[string]any{
			"method": "SUBSCRIBE",
			"params": params,
			"id":     i + 1,
		})
	}
	return msgs
}

func (b *binanceAdapter) ParseFrame(frame []byte) []Tuple {
	payload, err := decodeAny(frame)
	if err != nil {
		return nil
	}
	m, ok := toMap(payload)
	if !ok {
		return nil
	}
	if inner, ok := toMap(m["data"]); ok {
		m = inner
	}
	if stringFromMap(m, "e") != "markPriceUpdate" {
		return nil
	}
	if t, ok := tupleFrom(stringFromMap(m, "s"), firstPresent(m, "r"), m["T"]); ok {
		return []Tuple{t}
	}
	return nil
}
