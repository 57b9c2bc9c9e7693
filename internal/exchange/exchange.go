package exchange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Exchange string

const (
	Binance Exchange = "binance"
	Bybit   Exchange = "bybit"
	OKX     Exchange = "okx"
	Gate    Exchange = "gate"
	Bitget  Exchange = "bitget"
)

// SubscribeBatchSize caps the number of instruments per subscription message.
const SubscribeBatchSize = 10

var ErrUnknownExchange = errors.New("unknown exchange")

// Tuple is one funding reading as reported by an exchange. Symbol is exchange-native.
type Tuple struct {
	Symbol            string
	Rate              float64
	NextSettlement    time.Time
	HasNextSettlement bool
}

type Endpoints struct {
	RESTURL string
	WSURL   string
}

// Adapter translates between one exchange's wire formats and Tuples.
type Adapter interface {
	Name() Exchange
	WSURL() string
	// FormatSymbol converts a canonical BASEUSDT symbol to the exchange-native form.
	FormatSymbol(canonical string) string
	RESTRequests(symbols []string) []string
	ParseREST(body []byte) ([]Tuple, error)
	SubscribeMessages(symbols []string) []any
	// ParseFrame never fails; frames it does not understand yield no tuples.
	ParseFrame(frame []byte) []Tuple
}

// New returns the adapter for name, or ErrUnknownExchange for a venue without one.
func New(name Exchange, endpoints Endpoints) (Adapter, error) {
	rest := strings.TrimRight(endpoints.RESTURL, "/")
	switch name {
	case Binance:
		return &binanceAdapter{restURL: rest, wsURL: endpoints.WSURL}, nil
	case Bybit:
		return &bybitAdapter{restURL: rest, wsURL: endpoints.WSURL}, nil
	case OKX:
		return &okxAdapter{restURL: rest, wsURL: endpoints.WSURL}, nil
	case Gate:
		return &gateAdapter{restURL: rest, wsURL: endpoints.WSURL, now: time.Now}, nil
	case Bitget:
		return &bitgetAdapter{restURL: rest, wsURL: endpoints.WSURL}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExchange, name)
	}
}
