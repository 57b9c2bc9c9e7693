package arbitrage

import (
	"fmt"
	"strings"
)

type RenderOptions struct {
	MinPositiveAPR float64
	MinNegativeAPR float64
	MaxItems       int
}

// RenderSingleLeg formats the threshold report. ok is false when both lists are empty.
func RenderSingleLeg(report SingleLegReport, opts RenderOptions) (string, bool) {
	if report.Empty() {
		return "", false
	}
	var b strings.Builder
	b.WriteString("Funding rate alerts\n")
	if len(report.Positive) > 0 {
		fmt.Fprintf(&b, "\nPositive APR >= %.2f%% (short perp to collect)\n", opts.MinPositiveAPR)
		writeSingleLeg(&b, report.Positive, opts.MaxItems)
	}
	if len(report.Negative) > 0 {
		fmt.Fprintf(&b, "\nNegative APR <= %.2f%% (long perp to collect)\n", opts.MinNegativeAPR)
		writeSingleLeg(&b, report.Negative, opts.MaxItems)
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func writeSingleLeg(b *strings.Builder, opps []SingleLegOpportunity, maxItems int) {
	shown := limit(len(opps), maxItems)
	for _, o := range opps[:shown] {
		fmt.Fprintf(b, "%s %s | rate %.4f%% | APR %.2f%% | cycle net %.4f%% | daily net %.4f%% | %s\n",
			o.Exchange, o.Symbol, o.RawRate*100, o.APR, o.SingleCycleNetPercent, o.DailyNetPercent, o.Settlement())
	}
	if rest := len(opps) - shown; rest > 0 {
		fmt.Fprintf(b, "... and %d more\n", rest)
	}
}

// RenderCrossExchange formats spread opportunities. ok is false when there are none,
// in which case no section should be emitted.
func RenderCrossExchange(opps []CrossExchangeOpportunity, opts RenderOptions) (string, bool) {
	if len(opps) == 0 {
		return "", false
	}
	var b strings.Builder
	b.WriteString("Cross-exchange funding spreads\n\n")
	shown := limit(len(opps), opts.MaxItems)
	for _, o := range opps[:shown] {
		fmt.Fprintf(&b, "%s | long %s %s (%.4f%%) / short %s %s (%.4f%%) | spread %.4f%% | net %.4f%%\n",
			o.NormalizedSymbol,
			o.LongExchange, o.LongSymbol, o.LongRate*100,
			o.ShortExchange, o.ShortSymbol, o.ShortRate*100,
			o.RateDiffPercent, o.NetProfitPercent)
	}
	if rest := len(opps) - shown; rest > 0 {
		fmt.Fprintf(&b, "... and %d more\n", rest)
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func limit(n, maxItems int) int {
	if maxItems > 0 && n > maxItems {
		return maxItems
	}
	return n
}
