package alert

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/0xsamyy/fibwatch/internal/market"
)

// Event is one entering alert produced by a cycle.
type Event struct {
	Token      string
	Pair       market.Pair
	Level75    decimal.Decimal
	BandLow    decimal.Decimal
	BandHigh   decimal.Decimal
	AlertsSent int
}

// HTML renders the event as a Telegram HTML message.
func (e Event) HTML() string {
	name := e.Pair.BaseSymbol
	if name == "" {
		name = market.Shorten(e.Token)
	}

	var b strings.Builder
	b.WriteString("🚨 <b>75% Fib Retracement Alert!</b> 🚨\n\n")
	fmt.Fprintf(&b, "Token: <b>%s</b> (<code>%s</code>)\n", html.EscapeString(name), html.EscapeString(e.Token))
	fmt.Fprintf(&b, "Level hit: <code>%s</code> USD\n", market.FormatUSD(e.Level75))
	fmt.Fprintf(&b, "Range: <code>[%s – %s]</code> USD\n", market.FormatUSD(e.BandLow), market.FormatUSD(e.BandHigh))
	fmt.Fprintf(&b, "Price: <code>%s</code> USD\n", market.FormatUSD(e.Pair.PriceUSD))
	fmt.Fprintf(&b, "Alerts: <b>%d/%d</b>", e.AlertsSent, Budget)
	if e.AlertsSent >= Budget {
		b.WriteString(" (monitoring stopped)")
	}
	if e.Pair.URL != "" {
		fmt.Fprintf(&b, "\n\n<a href=\"%s\">DexScreener</a>", html.EscapeString(e.Pair.URL))
	}
	return b.String()
}
