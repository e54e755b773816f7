package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fortyfives/server/engine"
)

// Config is everything the runner reads from the environment.
type Config struct {
	Seats        []string
	Names        []string
	DeckSeed     int64
	SeedFromEnv  bool
	WinningScore int
	MaxRounds    int
	MaxAttempts  int
	BenchGames   int

	DatabaseURL string
	AutoMigrate bool
	Port        string

	EloStart float64
	EloK     float64

	// Bench stop conditions, checked between games.
	StopImmediate bool
	MaxSeconds    int
	StopFile      string

	LogFormat string
	Color     bool
	Debug     bool
}

func loadConfig() Config {
	cfg := Config{
		Seats:        splitList(getenv("SEATS", "console,random,random")),
		Names:        splitList(os.Getenv("NAMES")),
		WinningScore: atoiDef(os.Getenv("WINNING_SCORE"), engine.WinningScore),
		MaxRounds:    atoiDef(os.Getenv("MAX_ROUNDS"), 0),
		MaxAttempts:  atoiDef(os.Getenv("MAX_ATTEMPTS"), engine.DefaultMaxAttempts),
		BenchGames:   atoiDef(os.Getenv("BENCH_GAMES"), 20),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		AutoMigrate:  asBool(os.Getenv("AUTO_MIGRATE")),
		Port:         getenv("PORT", "8080"),
		EloStart:     floatDef(os.Getenv("ELO_START"), 1500),
		EloK:         floatDef(os.Getenv("ELO_K"), 24),

		StopImmediate: asBool(os.Getenv("STOP_IMMEDIATE")),
		MaxSeconds:    atoiDef(os.Getenv("MAX_SECONDS"), 0),
		StopFile:      os.Getenv("STOP_FILE"),

		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "console")),
		Color:     os.Getenv("NO_COLOR") == "" && strings.TrimSpace(os.Getenv("USE_COLOR")) != "0",
		Debug:     asBool(os.Getenv("DEBUG")),
	}
	if s := os.Getenv("DECK_SEED"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			cfg.DeckSeed, cfg.SeedFromEnv = v, true
		}
	}
	if !cfg.SeedFromEnv {
		cfg.DeckSeed = int64(secureBaseSeed() >> 1)
	}
	if cfg.WinningScore != engine.WinningScore {
		log.Printf("WINNING_SCORE=%d is display only; games end above %d", cfg.WinningScore, engine.WinningScore)
	}
	return cfg
}

// newLogger builds the zap logger for the engine and agents.
// LOG_FORMAT=json selects the production encoder; anything else gets the dev console one.
func newLogger(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.LogFormat {
	case "json":
		zc = zap.NewProductionConfig()
	case "off", "none":
		return zap.NewNop(), nil
	default:
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
		if cfg.Color {
			zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		// Warn and up only; the console renderer narrates the game itself.
		zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	if cfg.Debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

func mustEnv(zl *zap.Logger, keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			zl.Fatal("missing required env var; put it in .env (dev) or set it on the host (prod)", zap.String("key", k))
		}
	}
}
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
func floatDef(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func (c Config) String() string {
	return fmt.Sprintf("seats=%v names=%v seed=%d max_rounds=%d attempts=%d",
		c.Seats, c.Names, c.DeckSeed, c.MaxRounds, c.MaxAttempts)
}
