package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fortyfives/server/engine"
	"fortyfives/server/store"
)

// recorder mirrors one game into the ledger. With a nil db every call is a no-op;
// the first failed write turns recording off for the rest of the game.
type recorder struct {
	db     *store.DB
	log    *zap.Logger
	gameID string
	agents map[engine.ParticipantID]int64
}

func newRecorder(db *store.DB, log *zap.Logger) *recorder {
	return &recorder{db: db, log: log, agents: make(map[engine.ParticipantID]int64)}
}

func (r *recorder) enabled() bool { return r != nil && r.db != nil }

func (r *recorder) disable(what string, err error) {
	r.log.Warn("ledger write failed; recording off for this game", zap.String("op", what), zap.Error(err))
	r.db = nil
}

func (r *recorder) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// start registers the seats as agents and opens the game row.
func (r *recorder) start(gameID string, seed int64, maxRounds int, seats []engine.Seat, kinds []string) {
	if !r.enabled() {
		return
	}
	ctx, cancel := r.ctx()
	defer cancel()
	r.gameID = gameID
	parts := make([]store.Participant, len(seats))
	for i, s := range seats {
		id, err := r.db.UpsertAgent(ctx, string(s.ID), kinds[i])
		if err != nil {
			r.disable("upsert agent", err)
			return
		}
		r.agents[s.ID] = id
		parts[i] = store.Participant{Seat: i, Name: string(s.ID), AgentID: id, Kind: kinds[i]}
	}
	if err := r.db.CreateGame(ctx, gameID, seed, maxRounds, parts); err != nil {
		r.disable("create game", err)
	}
}

// round is the engine.GameConfig.OnRound hook.
func (r *recorder) round(res engine.RoundResult) {
	if !r.enabled() || r.gameID == "" {
		return
	}
	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.db.InsertRound(ctx, r.gameID, res); err != nil {
		r.disable("insert round", err)
	}
}

func (r *recorder) finish(res engine.GameResult, playErr error) {
	if !r.enabled() || r.gameID == "" {
		return
	}
	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.db.CompleteGame(ctx, res, playErr); err != nil {
		r.disable("complete game", err)
		return
	}
	r.log.Info("game persisted", zap.String("game", r.gameID))
}

// rating loads the career Elo for a seat, creating the row at start if needed.
func (r *recorder) rating(id engine.ParticipantID, start float64) (float64, bool) {
	if !r.enabled() {
		return 0, false
	}
	aid, ok := r.agents[id]
	if !ok {
		return 0, false
	}
	ctx, cancel := r.ctx()
	defer cancel()
	rt, err := r.db.GetOrInitRating(ctx, aid, start)
	if err != nil {
		r.log.Warn("load rating failed", zap.String("seat", string(id)), zap.Error(err))
		return 0, false
	}
	return rt.Elo, true
}

func (r *recorder) saveRating(id engine.ParticipantID, d store.RatingDelta) {
	if !r.enabled() {
		return
	}
	aid, ok := r.agents[id]
	if !ok {
		return
	}
	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.db.UpdateRating(ctx, aid, d); err != nil {
		r.log.Warn("save rating failed", zap.String("seat", string(id)), zap.Error(err))
	}
}
