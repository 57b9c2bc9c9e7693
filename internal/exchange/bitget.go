package exchange

import "fmt"

const bitgetProductType = "USDT-FUTURES"

type bitgetAdapter struct {
	restURL string
	wsURL   string
}

func (b *bitgetAdapter) Name() Exchange { return Bitget }

func (b *bitgetAdapter) WSURL() string { return b.wsURL }

func (b *bitgetAdapter) FormatSymbol(canonical string) string {
	return Canonical(canonical)
}

func (b *bitgetAdapter) RESTRequests(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	return []string{b.restURL + "/api/v2/mix/market/current-fund-rate?productType=" + bitgetProductType}
}

func (b *bitgetAdapter) ParseREST(body []byte) ([]Tuple, error) {
	payload, err := decodeAny(body)
	if err != nil {
		return nil, err
	}
	m, ok := toMap(payload)
	if !ok {
		return nil, fmt.Errorf("bitget: unexpected current-fund-rate payload")
	}
	if code := stringFromMap(m, "code"); code != "" && code != "00000" {
		return nil, fmt.Errorf("bitget: code %s: %s", code, stringFromMap(m, "msg"))
	}
	rows, _ := toSlice(m["data"])
	var out []Tuple
	for _, row := range rows {
		item, ok := toMap(row)
		if !ok {
			continue
		}
		next := firstPresent(item, "nextUpdate", "nextFundingTime")
		if t, ok := tupleFrom(stringFromMap(item, "symbol"), firstPresent(item, "fundingRate"), next); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (b *bitgetAdapter) SubscribeMessages(symbols []string) []any {
	var msgs []any
	for _, batch := range Batches(symbols, SubscribeBatchSize) {
		args := make([]map[string]string, 0, len(batch))
		for _, sym := range batch {
			args = append(args, map[string]string{
				"instType": bitgetProductType,
				"channel":  "ticker",
				"instId":   sym,
			})
		}
		msgs = append(msgs, map[string]any{"op": "subscribe", "args": args})
	}
	return msgs
}

func (b *bitgetAdapter) ParseFrame(frame []byte) []Tuple {
	payload, err := decodeAny(frame)
	if err != nil {
		return nil
	}
	m, ok := toMap(payload)
	if !ok {
		return nil
	}
	arg, _ := toMap(m["arg"])
	if stringFromMap(arg, "channel") != "ticker" {
		return nil
	}
	rows, _ := toSlice(m["data"])
	var out []Tuple
	for _, row := range rows {
		item, ok := toMap(row)
		if !ok {
			continue
		}
		symbol := stringFromMap(item, "instId", "symbol")
		if t, ok := tupleFrom(symbol, firstPresent(item, "fundingRate"), item["nextFundingTime"]); ok {
			out = append(out, t)
		}
	}
	return out
}
