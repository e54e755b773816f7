package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type GameConfig struct {
	Shuffle     Shuffler
	MaxAttempts int
	// MaxRounds stops a game that never crosses WinningScore. 0 means no cap.
	MaxRounds int
	Logger    *zap.Logger
	Observer  Observer
	// OnRound, if set, sees each finished round before the next one is dealt.
	OnRound func(RoundResult)
}

type GameResult struct {
	ID      string                `json:"id"`
	Seats   []ParticipantID       `json:"seats"`
	Rounds  []RoundResult         `json:"rounds"`
	Scores  map[ParticipantID]int `json:"scores"`
	Leaders []ParticipantID       `json:"leaders"`
	// Winner is empty when the top score is shared.
	Winner ParticipantID `json:"winner,omitempty"`
	Capped bool          `json:"capped"`
}

// Game plays rounds over one ScoreBoard until a score passes WinningScore.
type Game struct {
	ID string

	cfg    GameConfig
	log    *zap.Logger
	seats  []Seat
	board  *ScoreBoard
	rounds []RoundResult
}

// NewGame seats the agents. An empty id gets a fresh UUID.
func NewGame(id string, seats []Seat, cfg GameConfig) (*Game, error) {
	if err := checkSeatCount(len(seats)); err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	ids := make([]ParticipantID, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	board := NewScoreBoard(ids...)
	if len(board.Participants()) != len(seats) {
		return nil, fmt.Errorf("duplicate seat ids in %v", ids)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Game{
		ID:    id,
		cfg:   cfg,
		log:   log.With(zap.String("game", id)),
		seats: append([]Seat(nil), seats...),
		board: board,
	}, nil
}

func (g *Game) Board() *ScoreBoard { return g.board }

func (g *Game) Rounds() []RoundResult { return append([]RoundResult(nil), g.rounds...) }

// ShouldContinue is true while every score is at or below WinningScore.
func (g *Game) ShouldContinue() bool {
	return !g.board.AnyAbove(WinningScore)
}

// PlayRound runs the next round to Terminal.
func (g *Game) PlayRound(ctx context.Context) (RoundResult, error) {
	r, err := NewRound(len(g.rounds)+1, g.seats, g.board, RoundConfig{
		Shuffle:     g.cfg.Shuffle,
		MaxAttempts: g.cfg.MaxAttempts,
		Logger:      g.log,
		Observer:    g.cfg.Observer,
	})
	if err != nil {
		return RoundResult{}, err
	}
	res, err := r.Play(ctx)
	if err != nil {
		return RoundResult{}, err
	}
	g.rounds = append(g.rounds, res)
	if g.cfg.OnRound != nil {
		g.cfg.OnRound(res)
	}
	return res, nil
}

// Play issues rounds until ShouldContinue is false or MaxRounds is reached.
func (g *Game) Play(ctx context.Context) (GameResult, error) {
	g.log.Info("game start", zap.Int("seats", len(g.seats)))
	capped := false
	for g.ShouldContinue() {
		if g.cfg.MaxRounds > 0 && len(g.rounds) >= g.cfg.MaxRounds {
			capped = true
			g.log.Warn("round cap reached", zap.Int("max_rounds", g.cfg.MaxRounds))
			break
		}
		if _, err := g.PlayRound(ctx); err != nil {
			return g.Result(capped), fmt.Errorf("game %s: %w", g.ID, err)
		}
	}
	res := g.Result(capped)
	g.log.Info("game over", zap.Int("rounds", len(res.Rounds)), zap.String("winner", string(res.Winner)),
		zap.String("scores", g.board.String()), zap.Bool("capped", capped))
	return res, nil
}

func (g *Game) Result(capped bool) GameResult {
	res := GameResult{
		ID:      g.ID,
		Seats:   g.board.Participants(),
		Rounds:  g.Rounds(),
		Scores:  g.board.Scores(),
		Leaders: g.board.Leaders(),
		Capped:  capped,
	}
	if w, ok := g.board.Winner(); ok {
		res.Winner = w
	}
	return res
}
