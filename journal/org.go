package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. Structured
// facts go in the PROPERTIES drawer, followed by empty review headings.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s #%d (%s)\n", t.Asset, t.Seq, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":RUN_ID: %s\n", t.RunID)
	fmt.Fprintf(&b, ":ASSET: %s\n", t.Asset)
	fmt.Fprintf(&b, ":QUANTITY: %g\n", t.Quantity)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.5f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %.5f\n", t.ExitPrice)
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.OpenTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.CloseTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":BARS_HELD: %d\n", t.BarsHeld)
	fmt.Fprintf(&b, ":PNL: %.2f\n", t.PnL)
	fmt.Fprintf(&b, ":PNL_PCT: %.2f\n", t.PnLPct)
	fmt.Fprintf(&b, ":COMMISSION: %.2f\n", t.Commission)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// shortID keeps the tail of an ID, which is where run-scoped trade IDs
// differ.
func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
