package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/0xsamyy/fibwatch/internal/alert"
	"github.com/0xsamyy/fibwatch/internal/fib"
	"github.com/0xsamyy/fibwatch/internal/health"
	"github.com/0xsamyy/fibwatch/internal/market"
	"github.com/0xsamyy/fibwatch/internal/watchlist"
)

// WatchList is the subset of the watch-list the commands mutate.
type WatchList interface {
	AddWithRange(addr string, r *alert.Range) bool
	Remove(addr string) error
	Clear() int
	List() []watchlist.Entry
}

// Checker queues an immediate evaluation cycle.
type Checker interface {
	Trigger() bool
}

// HealthReporter builds the /health report.
type HealthReporter interface {
	Snapshot(ctx context.Context) health.Report
}

// Commands turns admin chat text into replies. It has no Telegram dependency
// so it can be driven directly.
type Commands struct {
	wl      WatchList
	checker Checker
	hlth    HealthReporter
	persist func(ctx context.Context)
	kill    func()
	log     zerolog.Logger
}

// NewCommands wires the command set. persist runs after every mutation; kill
// runs shortly after /kill is acknowledged. Either may be nil.
func NewCommands(wl WatchList, checker Checker, hlth HealthReporter, persist func(ctx context.Context), kill func(), log zerolog.Logger) *Commands {
	return &Commands{
		wl:      wl,
		checker: checker,
		hlth:    hlth,
		persist: persist,
		kill:    kill,
		log:     log.With().Str("component", "commands").Logger(),
	}
}

// Dispatch executes one command and returns the HTML reply.
func (c *Commands) Dispatch(ctx context.Context, text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "unknown command. try <code>/help</code>"
	}
	cmd := strings.ToLower(fields[0])
	if idx := strings.IndexRune(cmd, '@'); idx != -1 {
		cmd = cmd[:idx]
	}
	args := fields[1:]

	switch cmd {
	case "/start":
		return "Bot is up. Use <code>/add &lt;token&gt;</code> to begin."
	case "/help":
		return helpText
	case "/add":
		return c.add(ctx, args)
	case "/remove":
		return c.remove(ctx, args)
	case "/list":
		return c.list()
	case "/clear":
		n := c.wl.Clear()
		c.afterMutation(ctx)
		return fmt.Sprintf("Cleared all tracked tokens (<code>%d</code> removed).", n)
	case "/check":
		if c.checker == nil || !c.checker.Trigger() {
			return "⏳ a check is already queued"
		}
		return "🔎 check queued"
	case "/health":
		return c.health(ctx)
	case "/kill":
		if c.kill != nil {
			go func() {
				time.Sleep(200 * time.Millisecond)
				c.kill()
			}()
		} else {
			c.log.Warn().Msg("kill requested but no kill function is set")
		}
		return "🛑 shutting down..."
	default:
		return "unknown command. try <code>/help</code>"
	}
}

var helpText = strings.TrimSpace(`
🛠 <b>fibwatch</b>

Watches Solana tokens on DexScreener and alerts when the price enters the 75% fib retracement band (±2%). Each token gets at most 2 alerts.

<b>Commands:</b>
- <code>/add &lt;token&gt;</code> - Watch a token (range from recent price changes)
- <code>/add &lt;token&gt; &lt;low&gt; &lt;high&gt;</code> - Watch with a manual USD range
- <code>/remove &lt;token&gt;</code> - Stop watching a token
- <code>/list</code> - Show watched tokens
- <code>/clear</code> - Remove every token
- <code>/check</code> - Run a check now
- <code>/health</code> - Show service health
- <code>/kill</code> - Shutdown the service
`)

func (c *Commands) add(ctx context.Context, args []string) string {
	if len(args) != 1 && len(args) != 3 {
		return "usage: <code>/add &lt;token&gt; [low high]</code>"
	}
	addr, err := market.ParseAddress(args[0])
	if err != nil {
		return fmt.Sprintf("add failed: <code>%s</code>", escapeHTML(err.Error()))
	}

	var rng *alert.Range
	if len(args) == 3 {
		rng, err = parseRange(args[1], args[2])
		if err != nil {
			return escapeHTML(err.Error())
		}
	}

	added := c.wl.AddWithRange(addr, rng)
	c.afterMutation(ctx)

	var b strings.Builder
	switch {
	case added:
		fmt.Fprintf(&b, "➕ watching <code>%s</code>\n", escapeHTML(addr))
	case rng != nil:
		fmt.Fprintf(&b, "✏️ updated range for <code>%s</code>\n", escapeHTML(addr))
	default:
		return fmt.Sprintf("already watching <code>%s</code>", escapeHTML(addr))
	}

	if rng == nil {
		b.WriteString("Range: derived from recent price changes\n")
	} else {
		level := fib.Level75(rng.Low, rng.High)
		lo, hi := fib.Band(level)
		fmt.Fprintf(&b, "Range: <code>[%s – %s]</code> USD\n", market.FormatUSD(rng.Low), market.FormatUSD(rng.High))
		fmt.Fprintf(&b, "Fib75: <code>%s</code> USD\n", market.FormatUSD(level))
		fmt.Fprintf(&b, "Band: <code>[%s – %s]</code> USD\n", market.FormatUSD(lo), market.FormatUSD(hi))
	}
	if added {
		fmt.Fprintf(&b, "Alerts: <b>0/%d</b>", alert.Budget)
	}
	return strings.TrimRight(b.String(), "\n")
}

func parseRange(lowS, highS string) (*alert.Range, error) {
	low, err1 := decimal.NewFromString(lowS)
	high, err2 := decimal.NewFromString(highS)
	if err1 != nil || err2 != nil {
		return nil, errors.New("invalid number: use plain decimals for low/high")
	}
	if !low.IsPositive() || !low.LessThan(high) {
		return nil, errors.New("constraint: 0 < low < high")
	}
	return &alert.Range{Low: low, High: high}, nil
}

func (c *Commands) remove(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return "usage: <code>/remove &lt;token&gt;</code>"
	}
	addr := args[0]
	if err := c.wl.Remove(addr); err != nil {
		if errors.Is(err, watchlist.ErrNotWatched) {
			return "Not tracking that token."
		}
		return fmt.Sprintf("remove failed: <code>%s</code>", escapeHTML(err.Error()))
	}
	c.afterMutation(ctx)
	return "removed <code>" + escapeHTML(addr) + "</code>"
}

func (c *Commands) list() string {
	entries := c.wl.List()
	if len(entries) == 0 {
		return "<b>No tokens are being tracked.</b>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Watched Tokens (%d):</b>", len(entries))
	for _, e := range entries {
		st := e.State
		name := market.Shorten(e.Token)
		if st.Last != nil && st.Last.Symbol != "" {
			name = st.Last.Symbol
		}
		status := "watching"
		if st.Stopped {
			status = "stopped"
		}

		fmt.Fprintf(&b, "\n\n<b>%s</b> <code>%s</code>\n", escapeHTML(name), escapeHTML(e.Token))
		fmt.Fprintf(&b, "  Status: %s | Alerts: %d/%d", status, st.AlertsSent, alert.Budget)
		if st.WasInBand {
			b.WriteString(" | in band")
		}
		if st.Range != nil {
			fmt.Fprintf(&b, "\n  Manual range: [%s – %s] USD", market.FormatUSD(st.Range.Low), market.FormatUSD(st.Range.High))
		}
		switch {
		case st.Last == nil:
			b.WriteString("\n  Last check: n/a")
		case !st.Last.Defined:
			fmt.Fprintf(&b, "\n  Price: %s USD | Fib75: n/a", market.FormatUSD(st.Last.PriceUSD))
		default:
			fmt.Fprintf(&b, "\n  Price: %s USD | Fib75: %s USD | Band: [%s – %s] USD",
				market.FormatUSD(st.Last.PriceUSD),
				market.FormatUSD(st.Last.Level75),
				market.FormatUSD(st.Last.BandLow),
				market.FormatUSD(st.Last.BandHigh))
		}
		if st.Last != nil && st.Last.PairURL != "" {
			fmt.Fprintf(&b, "\n  Pair: %s", escapeHTML(st.Last.PairURL))
		}
	}
	return b.String()
}

func (c *Commands) health(ctx context.Context) string {
	if c.hlth == nil {
		return "health reporting is not configured"
	}
	rep := c.hlth.Snapshot(ctx)

	var b strings.Builder
	b.WriteString("📊 <b>Health Report</b>\n")
	fmt.Fprintf(&b, "- Watched: <code>%d</code>\n", rep.Watched)
	fmt.Fprintf(&b, "- Stopped: <code>%d</code>\n", rep.Stopped)
	fmt.Fprintf(&b, "- Alerts sent: <code>%d</code>\n", rep.AlertsSent)
	if rep.HasCycle {
		fmt.Fprintf(&b, "- Last cycle: <code>%s</code> at <code>%s</code> took <code>%s</code>\n",
			escapeHTML(rep.LastCycleID), rep.LastCycleAt.Format(time.RFC3339), rep.LastCycleTook.Round(time.Millisecond))
		fmt.Fprintf(&b, "- Last cycle events: <code>%d</code>, failures: <code>%d</code>\n", rep.LastEvents, rep.LastFailures)
	} else {
		b.WriteString("- Last cycle: <code>none yet</code>\n")
	}
	switch {
	case rep.PersistPath == "":
		b.WriteString("- Store: <code>memory only</code>\n")
	case rep.PersistErr != "":
		fmt.Fprintf(&b, "- Store: <code>%s</code> error: <code>%s</code>\n", escapeHTML(rep.PersistPath), escapeHTML(rep.PersistErr))
	default:
		fmt.Fprintf(&b, "- Tracked (store): <code>%d</code>\n", rep.TrackedPersisted)
	}
	fmt.Fprintf(&b, "- Time: <code>%s</code>", rep.GeneratedAt.Format(time.RFC3339))
	return b.String()
}

func (c *Commands) afterMutation(ctx context.Context) {
	if c.persist != nil {
		c.persist(ctx)
	}
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer(
		`&`, "&amp;",
		`<`, "&lt;",
		`>`, "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}
