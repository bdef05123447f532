// Package alert runs evaluation cycles over the watch-list and turns
// entering-band transitions into alert events.
package alert

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/0xsamyy/fibwatch/internal/fib"
	"github.com/0xsamyy/fibwatch/internal/market"
	"github.com/0xsamyy/fibwatch/internal/metrics"
)

// PairSource supplies the raw pairs for one token.
type PairSource interface {
	FetchPairs(ctx context.Context, token string) ([]market.Pair, error)
}

// StateStore is the owned per-token state the engine reads and mutates.
type StateStore interface {
	// State returns a copy of the token's state; ok is false when the token is
	// not on the watch-list.
	State(token string) (TokenState, bool)
	// Apply runs fn on the token's state under the store lock and reports
	// whether the token was still present.
	Apply(token string, fn func(*TokenState)) bool
}

// Report summarises one cycle.
type Report struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration

	Evaluated int
	Skipped   int
	Discarded int
	Events    []Event
	Failures  map[string]error
	Abandoned bool
}

// Engine evaluates the watch-list once per RunCycle call. It holds no
// per-token state of its own.
type Engine struct {
	store       StateStore
	src         PairSource
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds the number of in-flight pair fetches.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l.With().Str("component", "engine").Logger() }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an Engine over the given state store and pair source.
func NewEngine(store StateStore, src PairSource, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		src:         src,
		concurrency: 4,
		now:         time.Now,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type fetchResult struct {
	pairs []market.Pair
	err   error
}

// RunCycle evaluates every active token in tokens. Fetches run concurrently;
// state transitions are applied one token at a time after its fetch has
// finished. A failing token never affects the others, and RunCycle never
// returns an error: failures are listed in the report.
func (e *Engine) RunCycle(ctx context.Context, tokens []string) Report {
	rep := Report{
		ID:        uuid.NewString(),
		StartedAt: e.now(),
		Failures:  make(map[string]error),
	}
	log := e.log.With().Str("cycle", rep.ID).Logger()

	active := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		st, ok := e.store.State(tok)
		if !ok || st.Stopped {
			rep.Skipped++
			continue
		}
		active = append(active, tok)
	}
	sort.Strings(active)

	results := make([]fetchResult, len(active))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, tok := range active {
		g.Go(func() error {
			results[i] = e.fetch(ctx, tok)
			return nil
		})
	}
	_ = g.Wait()

	for i, tok := range active {
		if ctx.Err() != nil {
			rep.Abandoned = true
			break
		}
		res := results[i]
		if res.err != nil {
			rep.Failures[tok] = res.err
			log.Warn().Err(res.err).Str("token", tok).Msg("fetch failed; treating as no data this cycle")
		}

		// A failed fetch steps the token like an empty pair list: out of band.
		ev, present := e.evaluate(tok, res.pairs)
		if !present {
			rep.Discarded++
			log.Debug().Str("token", tok).Msg("token removed during cycle; result discarded")
			continue
		}
		if res.err != nil {
			continue
		}
		rep.Evaluated++
		if ev != nil {
			rep.Events = append(rep.Events, *ev)
			e.metrics.RecordAlert()
			log.Info().
				Str("token", tok).
				Str("pair", ev.Pair.PairAddress).
				Str("price", ev.Pair.PriceUSD.String()).
				Str("level75", ev.Level75.String()).
				Int("alerts_sent", ev.AlertsSent).
				Msg("entered fib band")
		}
	}

	rep.Duration = e.now().Sub(rep.StartedAt)
	status := "ok"
	if rep.Abandoned {
		status = "abandoned"
	}
	e.metrics.RecordCycle(status, rep.Duration)
	log.Info().
		Int("tokens", len(active)).
		Int("evaluated", rep.Evaluated).
		Int("events", len(rep.Events)).
		Int("failures", len(rep.Failures)).
		Bool("abandoned", rep.Abandoned).
		Dur("took", rep.Duration).
		Msg("cycle finished")
	return rep
}

func (e *Engine) fetch(ctx context.Context, tok string) (res fetchResult) {
	defer func() {
		if r := recover(); r != nil {
			res = fetchResult{err: fmt.Errorf("fetch %s panicked: %v", tok, r)}
			e.log.Error().Str("token", tok).Bytes("stack", debug.Stack()).Msg("recovered panic in fetch")
		}
	}()
	pairs, err := e.src.FetchPairs(ctx, tok)
	if err != nil {
		return fetchResult{err: err}
	}
	return fetchResult{pairs: pairs}
}

// evaluate selects the pair, computes the band and steps the token's state in
// one atomic Apply. present is false when the token left the watch-list after
// the cycle's snapshot was taken.
func (e *Engine) evaluate(tok string, pairs []market.Pair) (ev *Event, present bool) {
	now := e.now()
	present = e.store.Apply(tok, func(st *TokenState) {
		if st.Stopped {
			return
		}

		inBand := false
		pair, ok := market.SelectPair(pairs)
		var res fib.Result
		if ok {
			if st.Range != nil {
				pair.LowUSD, pair.HighUSD = st.Range.Low, st.Range.High
			}
			res = fib.Evaluate(pair)
			inBand = res.Defined && res.InBand
			st.Last = &Observation{
				Symbol:    pair.BaseSymbol,
				PairURL:   pair.URL,
				PriceUSD:  pair.PriceUSD,
				Level75:   res.Level75,
				BandLow:   res.BandLow,
				BandHigh:  res.BandHigh,
				Defined:   res.Defined,
				CheckedAt: now,
			}
		}

		if st.Step(inBand) {
			ev = &Event{
				Token:      tok,
				Pair:       pair,
				Level75:    res.Level75,
				BandLow:    res.BandLow,
				BandHigh:   res.BandHigh,
				AlertsSent: st.AlertsSent,
			}
		}
	})
	if !present {
		return nil, false
	}
	return ev, true
}
