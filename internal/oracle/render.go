package oracle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tradepilot/internal/types"
)

func renderSystemPrompt(input types.ComposeContext) string {
	var b strings.Builder
	b.WriteString("You are an automated trading strategy deciding target positions.\n")
	b.WriteString("Respond with a single JSON object and nothing else:\n")
	b.WriteString(`{"items":[{"symbol":"BTC-USDT","action":"buy|sell|flat|noop","target_qty":0.5,"confidence":0.8,"rationale":"..."}],"notes":[]}` + "\n")
	b.WriteString("target_qty is the desired resulting position quantity (signed, negative for short), never a delta.\n")
	b.WriteString("Use action noop when the position should stay unchanged, flat to close it.\n")
	if input.Constraints.MaxPositionSize > 0 {
		fmt.Fprintf(&b, "Absolute position size per instrument is capped at %.8g.\n", input.Constraints.MaxPositionSize)
	}
	if input.Constraints.MaxPositions > 0 {
		fmt.Fprintf(&b, "At most %d concurrent open positions.\n", input.Constraints.MaxPositions)
	}
	return b.String()
}

func renderUserPrompt(input types.ComposeContext) string {
	sections := []string{
		renderStrategySection(input),
		renderPortfolioSection(input.Portfolio),
		renderFeatureSection(input.Features),
		renderDigestSection(input.Digest),
	}
	out := make([]string, 0, len(sections))
	for _, sec := range sections {
		if strings.TrimSpace(sec) != "" {
			out = append(out, strings.TrimSpace(sec))
		}
	}
	return strings.Join(out, "\n\n")
}

func renderStrategySection(input types.ComposeContext) string {
	var b strings.Builder
	b.WriteString("## Strategy\n")
	b.WriteString(strings.TrimSpace(input.PromptText))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Decision time: %s\n", time.UnixMilli(input.Ts).UTC().Format(time.RFC3339))
	return b.String()
}

func renderPortfolioSection(view types.PortfolioView) string {
	var b strings.Builder
	b.WriteString("## Portfolio\n")
	fmt.Fprintf(&b, "cash=%.2f total_value=%.2f unrealized_pnl=%.2f\n",
		view.Cash, view.TotalValue, view.TotalUnrealizedPnl)
	symbols := make([]string, 0, len(view.Positions))
	for sym := range view.Positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		pos := view.Positions[sym]
		if pos.Quantity == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s qty=%.8g avg=%.4f mark=%.4f upnl=%.2f\n",
			sym, pos.Quantity, pos.AvgPrice, pos.MarkPrice, pos.UnrealizedPnl)
	}
	return b.String()
}

func renderFeatureSection(features []types.FeatureVector) string {
	if len(features) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Features\n")
	for _, fv := range features {
		keys := make([]string, 0, len(fv.Values))
		for k := range fv.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%.6g", k, fv.Values[k]))
		}
		fmt.Fprintf(&b, "%s: %s\n", fv.Instrument.Symbol, strings.Join(parts, " "))
	}
	return b.String()
}

func renderDigestSection(digest types.TradeDigest) string {
	if len(digest.ByInstrument) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Recent trading\n")
	symbols := make([]string, 0, len(digest.ByInstrument))
	for sym := range digest.ByInstrument {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		entry := digest.ByInstrument[sym]
		fmt.Fprintf(&b, "%s trades=%d realized_pnl=%.2f win_rate=%.2f last_trade=%s\n",
			sym, entry.TradeCount, entry.RealizedPnl, entry.WinRate,
			formatTs(entry.LastTradeTs))
	}
	return b.String()
}

func formatTs(ts int64) string {
	if ts == 0 {
		return "never"
	}
	return time.UnixMilli(ts).UTC().Format(time.RFC3339)
}
