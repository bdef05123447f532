package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tg "github.com/go-telegram/bot"
	"github.com/rs/zerolog"

	"github.com/0xsamyy/fibwatch/internal/alert"
	"github.com/0xsamyy/fibwatch/internal/config"
	"github.com/0xsamyy/fibwatch/internal/dexscreener"
	"github.com/0xsamyy/fibwatch/internal/health"
	"github.com/0xsamyy/fibwatch/internal/metrics"
	"github.com/0xsamyy/fibwatch/internal/scheduler"
	"github.com/0xsamyy/fibwatch/internal/store"
	"github.com/0xsamyy/fibwatch/internal/telegram"
	"github.com/0xsamyy/fibwatch/internal/watchlist"
)

func main() {
	cfg := config.MustLoad()
	logger := newLogger(cfg.LogLevel)
	logger.Info().Msg(cfg.RedactedSummary())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	persister, err := store.Open(cfg.PersistPath)
	if err != nil {
		logger.Error().Err(err).Msg("store unavailable; running in memory")
		persister = store.Memory{}
	}
	defer func() {
		if e := persister.Close(); e != nil {
			logger.Warn().Err(e).Msg("store close")
		}
	}()

	wl := watchlist.New()
	if snap, err := persister.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not load saved watch-list; starting empty")
	} else {
		wl.Restore(snap)
		watched, stopped, _ := wl.Stats()
		logger.Info().Int("watched", watched).Int("stopped", stopped).Msg("watch-list restored")
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, m, logger)
	}

	dex := dexscreener.New(cfg.DexScreenerURL,
		dexscreener.WithRateLimit(cfg.RequestsPerMin),
		dexscreener.WithLogger(logger),
		dexscreener.WithMetrics(m),
	)
	engine := alert.NewEngine(wl, dex,
		alert.WithConcurrency(cfg.FetchConcurrency),
		alert.WithLogger(logger),
		alert.WithMetrics(m),
	)

	bot, err := tg.New(cfg.TelegramBotToken, tg.WithErrorsHandler(func(err error) {
		logger.Warn().Err(err).Str("component", "telegram").Msg("bot error")
	}))
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init")
	}

	sched := scheduler.New(engine, wl, telegram.NewNotifier(bot, cfg.AlertChatID), persister, cfg.PollInterval,
		scheduler.WithPruneStopped(cfg.PruneStopped),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(m),
	)
	hlth := health.New(wl, sched, persister)
	cmds := telegram.NewCommands(wl, sched, hlth, sched.Persist, cancel, logger)
	th := telegram.New(bot, cmds, cfg.TelegramAdminChatID, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	logger.Info().Msg("started; awaiting Telegram commands")
	th.Run(ctx)
	wg.Wait()

	sched.Persist(context.Background())
	logger.Info().Msg("shutdown complete")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).With().Timestamp().Str("service", "fibwatch").Logger()
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server")
	}
}
