package exchange

import "strings"

const quoteAsset = "USDT"

var quoteSuffixes = []string{"-USDT-SWAP", "_USDT", "-USDT", quoteAsset}

// Normalize strips quote and contract suffixes, returning the base asset.
// Normalizing an already-normalized symbol returns it unchanged.
func Normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, suffix := range quoteSuffixes {
		if len(s) > len(suffix) && strings.HasSuffix(s, suffix) {
			return s[:len(s)-len(suffix)]
		}
	}
	return s
}

// Canonical returns the BASEUSDT form used as the cross-exchange symbol key.
func Canonical(symbol string) string {
	base := Normalize(symbol)
	if base == "" {
		return ""
	}
	return base + quoteAsset
}

func Batches(items []string, size int) [][]string {
	if size <= 0 {
		size = len(items)
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
