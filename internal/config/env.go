package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xhit/go-str2duration/v2"
)

// Config holds all runtime configuration for the service.
type Config struct {
	// Required
	TelegramBotToken    string
	TelegramAdminChatID int64

	// Optional (with defaults)
	AlertChatID      int64         // default: admin chat
	PollInterval     time.Duration // default: 5m
	PersistPath      string        // default: "" (in-memory only)
	DexScreenerURL   string        // default: https://api.dexscreener.com
	RequestsPerMin   int           // default: 60
	FetchConcurrency int           // default: 4
	PruneStopped     bool          // default: false
	MetricsAddr      string        // default: "" (disabled)
	LogLevel         string        // default: info
}

const (
	defaultPollInterval   = 5 * time.Minute
	minPollInterval       = 10 * time.Second
	defaultDexScreenerURL = "https://api.dexscreener.com"
)

// ConfigurationError lists every problem found while loading. It is fatal at
// startup.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "config validation error:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// Load reads environment variables, applies defaults, validates,
// and returns a Config instance. It attempts to load .env if present.
func Load() (Config, error) {
	// Load .env if it exists; ignore if missing.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }

	var cfg Config
	var errs []string

	// --- Required Fields ---

	// Required: TELEGRAM_BOT_TOKEN
	cfg.TelegramBotToken = get("TELEGRAM_BOT_TOKEN")
	if cfg.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required (get it from @BotFather)")
	}

	// Required: TELEGRAM_ADMIN_CHAT_ID (must be a valid int64)
	adminStr := get("TELEGRAM_ADMIN_CHAT_ID")
	if adminStr == "" {
		errs = append(errs, "TELEGRAM_ADMIN_CHAT_ID is required (your numeric chat id)")
	} else {
		id, err := strconv.ParseInt(adminStr, 10, 64)
		if err != nil || id == 0 {
			errs = append(errs, fmt.Sprintf("TELEGRAM_ADMIN_CHAT_ID must be a valid integer, got %q", adminStr))
		} else {
			cfg.TelegramAdminChatID = id
		}
	}

	// --- Optional Fields with Defaults ---

	// Optional: ALERT_CHAT_ID (default: admin chat; channels are negative ids)
	cfg.AlertChatID = cfg.TelegramAdminChatID
	if s := get("ALERT_CHAT_ID"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id == 0 {
			errs = append(errs, fmt.Sprintf("ALERT_CHAT_ID must be a valid integer, got %q", s))
		} else {
			cfg.AlertChatID = id
		}
	}

	// Optional: POLL_INTERVAL (e.g. 5m, 90s, 1d); POLL_SECONDS kept for old deployments
	cfg.PollInterval = defaultPollInterval
	if s := get("POLL_INTERVAL"); s != "" {
		d, err := str2duration.ParseDuration(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("POLL_INTERVAL must be a duration like 5m or 1d, got %q", s))
		} else {
			cfg.PollInterval = d
		}
	} else if s := get("POLL_SECONDS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("POLL_SECONDS must be an integer, got %q", s))
		} else {
			cfg.PollInterval = time.Duration(n) * time.Second
		}
	}
	if cfg.PollInterval < minPollInterval {
		errs = append(errs, fmt.Sprintf("poll interval must be at least %s, got %s", minPollInterval, cfg.PollInterval))
	}

	// Optional: PERSIST_PATH (.db/.bolt, .json, .yaml/.yml)
	cfg.PersistPath = get("PERSIST_PATH")
	if cfg.PersistPath == "" {
		cfg.PersistPath = get("PERSIST_JSON_PATH")
	}

	// Optional: DEXSCREENER_URL (must be http(s))
	cfg.DexScreenerURL = get("DEXSCREENER_URL")
	if cfg.DexScreenerURL == "" {
		cfg.DexScreenerURL = defaultDexScreenerURL
	} else if l := strings.ToLower(cfg.DexScreenerURL); !strings.HasPrefix(l, "https://") && !strings.HasPrefix(l, "http://") {
		errs = append(errs, fmt.Sprintf("DEXSCREENER_URL must start with http:// or https://, got %q", cfg.DexScreenerURL))
	}

	cfg.RequestsPerMin = positiveInt(get("DEXSCREENER_RPM"), 60, "DEXSCREENER_RPM", &errs)
	cfg.FetchConcurrency = positiveInt(get("FETCH_CONCURRENCY"), 4, "FETCH_CONCURRENCY", &errs)

	// Optional: PRUNE_STOPPED (bool)
	if s := get("PRUNE_STOPPED"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("PRUNE_STOPPED must be true or false, got %q", s))
		}
		cfg.PruneStopped = b
	}

	cfg.MetricsAddr = get("METRICS_ADDR")

	// Optional: LOG_LEVEL (default: info)
	logLevel := strings.ToLower(get("LOG_LEVEL"))
	switch logLevel {
	case "", "info", "debug", "warn", "error":
		// OK (empty becomes "info")
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of debug|info|warn|error, got %q", logLevel))
	}
	if logLevel == "" {
		logLevel = "info"
	}
	cfg.LogLevel = logLevel

	if len(errs) > 0 {
		return Config{}, &ConfigurationError{Problems: errs}
	}

	return cfg, nil
}

func positiveInt(s string, def int, name string, errs *[]string) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be a positive integer, got %q", name, s))
		return def
	}
	return n
}

// MustLoad is a convenience for main(): exit fast with a readable error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		// Print a clean error (no stack trace) so non-Go users can fix env quickly.
		fmt.Fprintf(os.Stderr, "\nFATAL: %v\n\n", err)
		os.Exit(1)
	}
	return cfg
}

// RedactedSummary returns a safe human-readable snapshot of the config.
// Useful to log at startup for quick debugging without leaking secrets.
func (c Config) RedactedSummary() string {
	persist := c.PersistPath
	if persist == "" {
		persist = "(memory)"
	}
	return fmt.Sprintf(
		"config{ poll=%s, persist=%s, dexscreener=%s, rpm=%d, concurrency=%d, prune_stopped=%t, metrics=%q, telegram_bot_token=%s, admin_chat_id=%d, alert_chat_id=%d, log_level=%s }",
		c.PollInterval,
		persist,
		c.DexScreenerURL,
		c.RequestsPerMin,
		c.FetchConcurrency,
		c.PruneStopped,
		c.MetricsAddr,
		redactToken(c.TelegramBotToken),
		c.TelegramAdminChatID,
		c.AlertChatID,
		c.LogLevel,
	)
}

func redactToken(tok string) string {
	if len(tok) > 6 {
		return tok[:6] + "...(redacted)"
	}
	if tok == "" {
		return "(empty)"
	}
	return "***"
}
