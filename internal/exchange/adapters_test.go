package exchange

import (
	"strings"
	"testing"
	"time"
)

func mustAdapter(t *testing.T, name Exchange) Adapter {
	t.Helper()
	adapter, err := New(name, Endpoints{RESTURL: "https://rest.example/", WSURL: "wss://ws.example"})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func findTuple(tuples []Tuple, symbol string) (Tuple, bool) {
	for _, tuple := range tuples {
		if tuple.Symbol == symbol {
			return tuple, true
		}
	}
	return Tuple{}, false
}

func TestBinanceParseREST(t *testing.T) {
	adapter := mustAdapter(t, Binance)
	body := []byte(`[
		{"symbol":"BTCUSDT","markPrice":"50000","lastFundingRate":"0.00010000","nextFundingTime":1700000000000},
		{"symbol":"ETHUSDT","lastFundingRate":"","nextFundingTime":0},
		{"symbol":"SOLUSDT","lastFundingRate":"-0.0002","nextFundingTime":0}
	]`)
	tuples, err := adapter.ParseREST(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tuples) != 2 {
		t.Fatalf("expected 2 tuples, got %d", len(tuples))
	}
	btc, _ := findTuple(tuples, "BTCUSDT")
	if btc.Rate != 0.0001 || !btc.HasNextSettlement || btc.NextSettlement.UnixMilli() != 1700000000000 {
		t.Fatalf("unexpected btc tuple: %+v", btc)
	}
	sol, _ := findTuple(tuples, "SOLUSDT")
	if sol.HasNextSettlement {
		t.Fatalf("expected zero next funding time to be absent")
	}
}

func TestBinanceParseRESTError(t *testing.T) {
	adapter := mustAdapter(t, Binance)
	if _, err := adapter.ParseREST([]byte(`{"code":-1121,"msg":"Invalid symbol."}`)); err == nil {
		t.Fatalf("expected error payload to fail")
	}
	if _, err := adapter.ParseREST([]byte(`<html>`)); err == nil {
		t.Fatalf("expected malformed body to fail")
	}
}

func TestBinanceRequestsAndSubscribe(t *testing.T) {
	adapter := mustAdapter(t, Binance)
	reqs := adapter.RESTRequests([]string{"BTCUSDT"})
	if len(reqs) != 1 || reqs[0] != "https://rest.example/fapi/v1/premiumIndex" {
		t.Fatalf("unexpected requests: %v", reqs)
	}
	symbols := make([]string, 12)
	for i := range symbols {
		symbols[i] = "BTCUSDT"
	}
	msgs := adapter.SubscribeMessages(symbols)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 batched messages, got %d", len(msgs))
	}
	first := msgs[0].(map[string]any)
	params := first["params"].([]string)
	if len(params) != 10 || params[0] != "btcusdt@markPrice" || first["method"] != "SUBSCRIBE" {
		t.Fatalf("unexpected subscribe message: %v", first)
	}
}

func TestBinanceParseFrame(t *testing.T) {
	adapter := mustAdapter(t, Binance)
	frame := []byte(`{"e":"markPriceUpdate","E":1699999999000,"s":"BTCUSDT","p":"50000","r":"0.00030000","T":1700006400000}`)
	tuples := adapter.ParseFrame(frame)
	if len(tuples) != 1 || tuples[0].Rate != 0.0003 || tuples[0].NextSettlement.UnixMilli() != 1700006400000 {
		t.Fatalf("unexpected tuples: %+v", tuples)
	}
	wrapped := []byte(`{"stream":"btcusdt@markPrice","data":{"e":"markPriceUpdate","s":"BTCUSDT","r":"0.0001","T":1700006400000}}`)
	if got := adapter.ParseFrame(wrapped); len(got) != 1 {
		t.Fatalf("expected combined stream frame to parse, got %+v", got)
	}
	if got := adapter.ParseFrame([]byte(`{"result":null,"id":1}`)); got != nil {
		t.Fatalf("expected ack to be ignored, got %+v", got)
	}
	if got := adapter.ParseFrame([]byte(`not json`)); got != nil {
		t.Fatalf("expected garbage to be ignored, got %+v", got)
	}
}

func TestBybitParseRESTAndFrame(t *testing.T) {
	adapter := mustAdapter(t, Bybit)
	body := []byte(`{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[
		{"symbol":"BTCUSDT","fundingRate":"0.0001","nextFundingTime":"1700000000000"},
		{"symbol":"NEWUSDT","fundingRate":"","nextFundingTime":"0"}
	]}}`)
	tuples, err := adapter.ParseREST(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tuples) != 1 || tuples[0].Symbol != "BTCUSDT" || tuples[0].NextSettlement.UnixMilli() != 1700000000000 {
		t.Fatalf("unexpected tuples: %+v", tuples)
	}
	if _, err := adapter.ParseREST([]byte(`{"retCode":10001,"retMsg":"params error"}`)); err == nil {
		t.Fatalf("expected retCode error")
	}

	msgs := adapter.SubscribeMessages([]string{"BTCUSDT", "ETHUSDT"})
	args := msgs[0].(map[string]any)["args"].([]string)
	if args[1] != "tickers.ETHUSDT" {
		t.Fatalf("unexpected args: %v", args)
	}

	snapshot := []byte(`{"topic":"tickers.BTCUSDT","type":"snapshot","data":{"symbol":"BTCUSDT","fundingRate":"-0.0005","nextFundingTime":"1700028800000"}}`)
	if got := adapter.ParseFrame(snapshot); len(got) != 1 || got[0].Rate != -0.0005 {
		t.Fatalf("unexpected snapshot tuples: %+v", got)
	}
	delta := []byte(`{"topic":"tickers.BTCUSDT","type":"delta","data":{"symbol":"BTCUSDT","lastPrice":"50001"}}`)
	if got := adapter.ParseFrame(delta); got != nil {
		t.Fatalf("expected delta without rate to be skipped, got %+v", got)
	}
	if got := adapter.ParseFrame([]byte(`{"success":true,"op":"subscribe"}`)); got != nil {
		t.Fatalf("expected ack to be ignored")
	}
}

func TestOKXParseRESTAndFrame(t *testing.T) {
	adapter := mustAdapter(t, OKX)
	reqs := adapter.RESTRequests([]string{"BTC-USDT-SWAP", "ETH-USDT-SWAP"})
	if len(reqs) != 2 || !strings.HasSuffix(reqs[1], "/api/v5/public/funding-rate?instId=ETH-USDT-SWAP") {
		t.Fatalf("unexpected requests: %v", reqs)
	}
	body := []byte(`{"code":"0","msg":"","data":[{"instId":"BTC-USDT-SWAP","fundingRate":"0.0001","fundingTime":"1700006400000","nextFundingTime":"1700035200000"}]}`)
	tuples, err := adapter.ParseREST(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tuples) != 1 || tuples[0].NextSettlement.UnixMilli() != 1700006400000 {
		t.Fatalf("expected fundingTime as next settlement, got %+v", tuples)
	}
	if _, err := adapter.ParseREST([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`)); err == nil {
		t.Fatalf("expected error code to fail")
	}

	msgs := adapter.SubscribeMessages([]string{"BTC-USDT-SWAP"})
	arg := msgs[0].(map[string]any)["args"].([]map[string]string)[0]
	if arg["channel"] != "funding-rate" || arg["instId"] != "BTC-USDT-SWAP" {
		t.Fatalf("unexpected arg: %v", arg)
	}
	frame := []byte(`{"arg":{"channel":"funding-rate","instId":"BTC-USDT-SWAP"},"data":[{"instId":"BTC-USDT-SWAP","fundingRate":"0.0002","fundingTime":"1700006400000"}]}`)
	if got := adapter.ParseFrame(frame); len(got) != 1 || got[0].Rate != 0.0002 {
		t.Fatalf("unexpected frame tuples: %+v", got)
	}
	if got := adapter.ParseFrame([]byte(`{"event":"subscribe","arg":{"channel":"funding-rate"}}`)); got != nil {
		t.Fatalf("expected event to be ignored, got %+v", got)
	}
}

func TestGateParseRESTAndFrame(t *testing.T) {
	adapter := mustAdapter(t, Gate)
	body := []byte(`[{"name":"BTC_USDT","funding_rate":"0.0001","funding_next_apply":1700006400,"funding_interval":28800}]`)
	tuples, err := adapter.ParseREST(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tuples) != 1 || !tuples[0].NextSettlement.Equal(time.Unix(1700006400, 0)) {
		t.Fatalf("expected seconds timestamp, got %+v", tuples)
	}
	if _, err := adapter.ParseREST([]byte(`{"label":"INVALID_PARAM_VALUE","message":"bad"}`)); err == nil {
		t.Fatalf("expected error payload to fail")
	}

	msgs := adapter.SubscribeMessages([]string{"BTC_USDT", "ETH_USDT"})
	msg := msgs[0].(map[string]any)
	if msg["channel"] != "futures.tickers" || msg["event"] != "subscribe" || len(msg["payload"].([]string)) != 2 {
		t.Fatalf("unexpected subscribe: %v", msg)
	}
	frame := []byte(`{"time":1700000000,"channel":"futures.tickers","event":"update","result":[{"contract":"BTC_USDT","funding_rate":"0.0003"},{"contract":"ETH_USDT"}]}`)
	got := adapter.ParseFrame(frame)
	if len(got) != 1 || got[0].Symbol != "BTC_USDT" || got[0].HasNextSettlement {
		t.Fatalf("unexpected frame tuples: %+v", got)
	}
}

func TestBitgetParseRESTAndFrame(t *testing.T) {
	adapter := mustAdapter(t, Bitget)
	body := []byte(`{"code":"00000","msg":"success","data":[{"symbol":"BTCUSDT","fundingRate":"0.0001","fundingRateInterval":"8","nextUpdate":"1700006400000"}]}`)
	tuples, err := adapter.ParseREST(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tuples) != 1 || tuples[0].NextSettlement.UnixMilli() != 1700006400000 {
		t.Fatalf("unexpected tuples: %+v", tuples)
	}
	if _, err := adapter.ParseREST([]byte(`{"code":"40034","msg":"Parameter does not exist"}`)); err == nil {
		t.Fatalf("expected error code to fail")
	}
	frame := []byte(`{"action":"snapshot","arg":{"instType":"USDT-FUTURES","channel":"ticker","instId":"BTCUSDT"},"data":[{"instId":"BTCUSDT","fundingRate":"-0.0001","nextFundingTime":"1700006400000"}]}`)
	if got := adapter.ParseFrame(frame); len(got) != 1 || got[0].Rate != -0.0001 {
		t.Fatalf("unexpected frame tuples: %+v", got)
	}
	if got := adapter.ParseFrame([]byte(`pong`)); got != nil {
		t.Fatalf("expected pong to be ignored")
	}
}
