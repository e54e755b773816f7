package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	mrand "math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fortyfives/server/agent"
	"fortyfives/server/engine"
	"fortyfives/server/llm"
	"fortyfives/server/store"
)

//
// ===== bootstrap =====
//

// Tries: env var file, ./secrets/openai_api_key.txt, ./server/openai_api_key.txt,
// ./openai_api_key.txt and /run/secrets/openai_api_key.
func loadAPIKeyFromSecret() {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return
	}
	var candidates []string
	if p := os.Getenv("OPENAI_API_KEY_FILE"); strings.TrimSpace(p) != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates,
		"./secrets/openai_api_key.txt",
		"./server/openai_api_key.txt",
		"./openai_api_key.txt",
		"/run/secrets/openai_api_key",
	)
	for _, path := range candidates {
		if b, err := os.ReadFile(path); err == nil {
			key := strings.TrimSpace(string(b))
			if key != "" {
				os.Setenv("OPENAI_API_KEY", key)
				return
			}
		}
	}
}

var stopFlag atomic.Bool

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()
	loadAPIKeyFromSecret()

	cfg := loadConfig()
	useColor = cfg.Color

	mode := "play"
	for _, a := range os.Args[1:] {
		switch a {
		case "--play":
			mode = "play"
		case "--bench":
			mode = "bench"
		case "--serve":
			mode = "serve"
		case "--migrate":
			mode = "migrate"
		default:
			log.Fatalf("unknown flag %q (want --play, --bench, --serve or --migrate)", a)
		}
	}

	zl, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()
	zl.Debug("config", zap.Stringer("config", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel)

	switch mode {
	case "migrate":
		mustEnv(zl, "DATABASE_URL")
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			zl.Fatal("open ledger", zap.Error(err))
		}
		defer db.Close()
		if err := store.Migrate(ctx, db); err != nil {
			zl.Fatal("migrate", zap.Error(err))
		}
		zl.Info("migrated")
		fmt.Println(good("migrated"))
	case "serve":
		runServe(ctx, cfg, zl)
	case "bench":
		db := openLedger(ctx, cfg, zl)
		if db != nil {
			defer db.Close()
		}
		runBench(ctx, cfg, zl, db)
	default:
		db := openLedger(ctx, cfg, zl)
		if db != nil {
			defer db.Close()
		}
		runPlay(ctx, cfg, zl, db)
	}
}

func watchSignals(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	stopFlag.Store(true)
	cancel()
}

// openLedger returns nil when DATABASE_URL is unset or unusable; play and bench run without it.
func openLedger(ctx context.Context, cfg Config, zl *zap.Logger) *store.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Warn("DB disabled (open failed)", zap.Error(err))
		return nil
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, db); err != nil {
			zl.Warn("migrate failed (continuing without DB)", zap.Error(err))
			db.Close()
			return nil
		}
	}
	return db
}

// checkModels warns about llm seats that cannot reach a model; those seats play
// their fallback moves.
func checkModels(specs []string, zl *zap.Logger) {
	for i, s := range specs {
		kind, model, ok := strings.Cut(s, ":")
		if !ok || strings.ToLower(strings.TrimSpace(kind)) != agent.KindLLM {
			continue
		}
		if err := llm.Configured(model); err != nil {
			zl.Warn("llm seat will play random moves", zap.Int("seat", i+1), zap.String("model", model), zap.Error(err))
		}
	}
}

//
// ===== randomness =====
//

type seedStream struct{ state uint64 }

func newSeedStream(base uint64) seedStream { return seedStream{state: base} }
func (s *seedStream) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z ^= z >> 30
	z *= 0xBF58476D1CE4E5B9
	z ^= z >> 27
	z *= 0x94D049BB133111EB
	z ^= z >> 31
	return z
}
func secureBaseSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return binary.LittleEndian.Uint64(b[:]) ^ uint64(time.Now().UnixNano()) ^ uint64(os.Getpid())
	}
	return uint64(time.Now().UnixNano()) ^ 0xA5A5A5A5A5A5A5A5
}

//
// ===== play =====
//

func runPlay(ctx context.Context, cfg Config, zl *zap.Logger, db *store.DB) {
	section(os.Stdout, "FORTY-FIVES")

	f := agent.Factory{Seed: cfg.DeckSeed, In: os.Stdin, Out: os.Stdout, Log: zl}
	seats, kinds, err := f.Seats(cfg.Seats, cfg.Names)
	if err != nil {
		zl.Fatal("seats", zap.Error(err))
	}
	checkModels(cfg.Seats, zl)

	var humans []engine.ParticipantID
	for i, k := range kinds {
		if k == agent.KindConsole {
			humans = append(humans, seats[i].ID)
		}
	}

	rec := newRecorder(db, zl)
	gameID := uuid.NewString()
	g, err := engine.NewGame(gameID, seats, engine.GameConfig{
		Shuffle:     engine.SeededShuffler(cfg.DeckSeed),
		MaxAttempts: cfg.MaxAttempts,
		MaxRounds:   cfg.MaxRounds,
		Logger:      zl,
		Observer:    newRenderer(os.Stdout, humans, cfg.Debug),
		OnRound:     rec.round,
	})
	if err != nil {
		zl.Fatal("new game", zap.Error(err))
	}
	rec.start(gameID, cfg.DeckSeed, cfg.MaxRounds, seats, kinds)

	fmt.Printf("%s game %s seed=%d first past %d wins\n", dim("•"), gameID, cfg.DeckSeed, engine.WinningScore)
	for i, s := range seats {
		fmt.Printf("  seat %d %s %s\n", i+1, seatTag(s.ID), dim(kinds[i]))
	}

	res, err := g.Play(ctx)
	rec.finish(res, err)
	switch {
	case errors.Is(err, io.EOF):
		fmt.Println(warn("input closed; game abandoned"))
	case errors.Is(err, context.Canceled):
		fmt.Println(warn("interrupted"))
	case err != nil:
		zl.Warn("game stopped", zap.String("game", gameID), zap.Error(err))
	}
	printGameResult(os.Stdout, res)
}

func printGameResult(w io.Writer, res engine.GameResult) {
	section(w, "RESULT")
	fmt.Fprintf(w, "%s %s after %d rounds\n", bold("Scores →"), scoresTag(res.Scores), len(res.Rounds))
	switch {
	case res.Winner != "":
		fmt.Fprintf(w, "%s %s\n", bold("Winner →"), good(string(res.Winner)))
	case len(res.Leaders) > 1:
		fmt.Fprintf(w, "%s tie between %v\n", bold("Winner →"), res.Leaders)
	}
	if res.Capped {
		fmt.Fprintln(w, dim("round cap reached before anyone passed the limit"))
	}
}

//
// ===== bench =====
//

// benchNames gives every seat a stable name for ratings: the configured name,
// else the seat spec, with "#n" added to repeats.
func benchNames(specs, names []string) []string {
	out := make([]string, len(specs))
	seen := map[string]int{}
	for i, spec := range specs {
		n := strings.TrimSpace(spec)
		if i < len(names) && strings.TrimSpace(names[i]) != "" {
			n = strings.TrimSpace(names[i])
		}
		if n == "" {
			n = agent.KindRandom
		}
		seen[n]++
		if seen[n] > 1 {
			n = fmt.Sprintf("%s#%d", n, seen[n])
		}
		out[i] = n
	}
	return out
}

func runBench(ctx context.Context, cfg Config, zl *zap.Logger, db *store.DB) {
	section(os.Stdout, "BENCH")
	for _, s := range cfg.Seats {
		if k, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":"); k == agent.KindConsole {
			zl.Fatal("console seats cannot sit in a bench; use random or llm:<model>", zap.String("seat", s))
		}
	}
	checkModels(cfg.Seats, zl)
	names := benchNames(cfg.Seats, cfg.Names)

	var deadline time.Time
	if cfg.MaxSeconds > 0 {
		deadline = time.Now().Add(time.Duration(cfg.MaxSeconds) * time.Second)
	}
	checkStop := func() bool {
		select {
		case <-ctx.Done():
			stopFlag.Store(true)
		default:
		}
		if stopFlag.Load() {
			return true
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			stopFlag.Store(true)
			return true
		}
		if cfg.StopFile != "" {
			if _, err := os.Stat(cfg.StopFile); err == nil {
				stopFlag.Store(true)
				return true
			}
		}
		return false
	}
	// Graceful by default: Ctrl+C lets the current game finish.
	playCtx := context.Background()
	if cfg.StopImmediate {
		playCtx = ctx
	}

	base := uint64(cfg.DeckSeed)
	sm := newSeedStream(base)
	elo := NewElo(cfg.EloStart, cfg.EloK)
	glicko := NewGlickoTable(0.5)
	stats := BenchStats{}
	labels := make(map[engine.ParticipantID]string, len(names))
	for _, n := range names {
		labels[engine.ParticipantID(n)] = n
	}
	llmCalls := map[string][2]int64{}

	zl.Info("bench starting", zap.Uint64("seed_base", base), zap.Int("games", cfg.BenchGames), zap.Strings("seats", names))
	fmt.Printf("%s seed base %d, games=%d seats=%v\n", dim("•"), base, cfg.BenchGames, names)
	fmt.Println(dim("Ctrl+C → graceful stop by default. Set STOP_IMMEDIATE=1 for hard stop."))

	played := 0
	for i := 0; i < cfg.BenchGames; i++ {
		if checkStop() {
			fmt.Println(warn("stopping early"))
			break
		}
		seed := int64(sm.next() >> 1)
		f := agent.Factory{Seed: seed, Log: zl}
		seats, kinds, err := f.Seats(cfg.Seats, names)
		if err != nil {
			zl.Fatal("seats", zap.Error(err))
		}
		var obs engine.Observer
		if cfg.Debug {
			obs = newRenderer(os.Stdout, nil, true)
		}
		rec := newRecorder(db, zl)
		g, err := engine.NewGame("", seats, engine.GameConfig{
			Shuffle:     engine.SeededShuffler(seed),
			MaxAttempts: cfg.MaxAttempts,
			MaxRounds:   cfg.MaxRounds,
			Logger:      zl,
			Observer:    obs,
			OnRound:     rec.round,
		})
		if err != nil {
			zl.Fatal("new game", zap.Error(err))
		}
		rec.start(g.ID, seed, cfg.MaxRounds, seats, kinds)
		for _, s := range seats {
			if _, seen := elo.Ratings[string(s.ID)]; seen {
				continue
			}
			if r, ok := rec.rating(s.ID, cfg.EloStart); ok {
				elo.Set(string(s.ID), r)
			}
		}

		res, err := g.Play(playCtx)
		rec.finish(res, err)
		for _, s := range seats {
			if a, ok := s.Agent.(*agent.LLM); ok {
				c, fb := a.Stats()
				t := llmCalls[string(s.ID)]
				llmCalls[string(s.ID)] = [2]int64{t[0] + c, t[1] + fb}
			}
		}
		if err != nil {
			zl.Warn("bench game failed", zap.Int("game", i+1), zap.Int("of", cfg.BenchGames), zap.Error(err))
			fmt.Printf("%s game %d/%d failed\n", bad("✗"), i+1, cfg.BenchGames)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		played++

		scores := make(map[string]int, len(res.Scores))
		for id, v := range res.Scores {
			scores[string(id)] = v
		}
		deltas := elo.UpdateGame(scores)
		glicko.UpdateGame(scores)
		stats.Record(res, labels)

		made, failed := bidTallies(res.Rounds)
		for _, s := range seats {
			rec.saveRating(s.ID, store.RatingDelta{
				Elo:        elo.Rating(string(s.ID)),
				Won:        res.Winner == s.ID,
				Rounds:     len(res.Rounds),
				BidsMade:   made[s.ID],
				BidsFailed: failed[s.ID],
			})
		}

		winner := string(res.Winner)
		if winner == "" {
			winner = "tie"
		}
		fmt.Printf("%s game %d/%d rounds=%d winner=%s %s\n",
			dim("✓"), i+1, cfg.BenchGames, len(res.Rounds), good(winner), dim(eloDeltas(deltas)))
	}

	printBenchSummary(os.Stdout, played, elo, glicko, stats, llmCalls)
}

func bidTallies(rounds []engine.RoundResult) (made, failed map[engine.ParticipantID]int) {
	made = map[engine.ParticipantID]int{}
	failed = map[engine.ParticipantID]int{}
	for _, r := range rounds {
		if r.MadeBid {
			made[r.Bidder]++
		} else {
			failed[r.Bidder]++
		}
	}
	return made, failed
}

func eloDeltas(d map[string]float64) string {
	var parts []string
	for _, l := range sortedKeys(d) {
		parts = append(parts, fmt.Sprintf("%s%+.1f", l, d[l]))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func printBenchSummary(w io.Writer, played int, elo *Elo, glicko *GlickoTable, stats BenchStats, llmCalls map[string][2]int64) {
	section(w, "SUMMARY")
	fmt.Fprintf(w, "%s games=%d\n", bold("RESULTS →"), played)
	rng := mrand.New(mrand.NewSource(1))
	for _, s := range stats.Sorted() {
		lo, hi := WilsonCI95(s.Wins, s.Ties, s.Games)
		blo, bhi := BootstrapCI95(rng, s.FinalScores, 1000)
		fmt.Fprintf(w, "%s %s wins=%d ties=%d win-rate=%.3f 95%% CI=[%.3f, %.3f]\n",
			dim("•"), cyan(s.Label), s.Wins, s.Ties, s.WinRate(), lo, hi)
		fmt.Fprintf(w, "    bids=%d (forced %d) made=%d failed=%d make-rate=%.2f tricks=%d bonuses=%d\n",
			s.BidsWon, s.ForcedBids, s.BidsMade, s.BidsFailed, s.MakeRate(), s.Tricks, s.Bonuses)
		fmt.Fprintf(w, "    final score mean 95%% CI=[%.1f, %.1f]\n", blo, bhi)
		if t, ok := llmCalls[s.Label]; ok {
			fmt.Fprintf(w, "    model calls=%d fallbacks=%d\n", t[0], t[1])
		}
	}
	fmt.Fprintf(w, "%s", bold("Elo final →"))
	for _, l := range elo.Ranked() {
		fmt.Fprintf(w, " %s:%.1f", l, elo.Ratings[l])
	}
	fmt.Fprintf(w, " (games=%d)\n", elo.Games)
	fmt.Fprintf(w, "%s", bold("Glicko2 final →"))
	for _, l := range elo.Ranked() {
		if p, ok := glicko.Players[l]; ok {
			fmt.Fprintf(w, " %s:r=%.1f RD=%.0f", l, p.Rating, p.RD)
		}
	}
	fmt.Fprintln(w)
}

//
// ===== serve =====
//

func runServe(ctx context.Context, cfg Config, zl *zap.Logger) {
	mustEnv(zl, "DATABASE_URL")
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("open ledger", zap.Error(err))
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, db); err != nil {
			zl.Fatal("migrate", zap.Error(err))
		}
		zl.Info("migrated")
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: Router(db), ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	zl.Info("listening", zap.String("addr", srv.Addr))
	fmt.Printf("listening on http://localhost:%s (Ctrl+C to stop)\n", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("serve", zap.Error(err))
	}
}
