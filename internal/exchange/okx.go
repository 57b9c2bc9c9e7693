package exchange

import (
	"fmt"
	"net/url"
)

type okxAdapter struct {
	restURL string
	wsURL   string
}

func (o *okxAdapter) Name() Exchange { return OKX }

func (o *okxAdapter) WSURL() string { return o.wsURL }

func (o *okxAdapter) FormatSymbol(canonical string) string {
	base := Normalize(canonical)
	if base == "" {
		return ""
	}
	return base + "-USDT-SWAP"
}

// RESTRequests issues one call per instrument; the public endpoint takes a single instId.
func (o *okxAdapter) RESTRequests(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, o.restURL+"/api/v5/public/funding-rate?instId="+url.QueryEscape(sym))
	}
	return out
}

func (o *okxAdapter) ParseREST(body []byte) ([]Tuple, error) {
	payload, err := decodeAny(body)
	if err != nil {
		return nil, err
	}
	m, ok := toMap(payload)
	if !ok {
		return nil, fmt.Errorf("okx: unexpected funding-rate payload")
	}
	if code := stringFromMap(m, "code"); code != "" && code != "0" {
		return nil, fmt.Errorf("okx: code %s: %s", code, stringFromMap(m, "msg"))
	}
	return o.parseRows(m["data"]), nil
}

func (o *okxAdapter) SubscribeMessages(symbols []string) []any {
	var msgs []any
	for _, batch := range Batches(symbols, SubscribeBatchSize) {
		args := make([]map[string]string, 0, len(batch))
		for _, sym := range batch {
			args = append(args, map[string]string{"channel": "funding-rate", "instId": sym})
		}
		msgs = append(msgs, map[string]any{"op": "subscribe", "args": args})
	}
	return msgs
}

func (o *okxAdapter) ParseFrame(frame []byte) []Tuple {
	payload, err := decodeAny(frame)
	if err != nil {
		return nil
	}
	m, ok := toMap(payload)
	if !ok {
		return nil
	}
	arg, _ := toMap(m["arg"])
	if stringFromMap(arg, "channel") != "funding-rate" {
		return nil
	}
	return o.parseRows(m["data"])
}

// fundingTime is the upcoming settlement; nextFundingTime is the one after it.
func (o *okxAdapter) parseRows(v any) []Tuple {
	rows, _ := toSlice(v)
	var out []Tuple
	for _, row := range rows {
		item, ok := toMap(row)
		if !ok {
			continue
		}
		if t, ok := tupleFrom(stringFromMap(item, "instId"), firstPresent(item, "fundingRate"), item["fundingTime"]); ok {
			out = append(out, t)
		}
	}
	return out
}
