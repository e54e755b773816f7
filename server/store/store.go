package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortyfives/server/engine"
)

//go:embed schema.sql
var schema embed.FS

var ErrNotFound = errors.New("not found")

type DB struct{ *pgxpool.Pool }

func Open(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close()                         { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   Agents and ratings
------------------------------*/

// UpsertAgent registers an agent by its display name and returns its id.
func (db *DB) UpsertAgent(ctx context.Context, name, kind string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO agents(name, kind)
        VALUES ($1,$2)
        ON CONFLICT (name) DO UPDATE
          SET kind = EXCLUDED.kind
        RETURNING id
    `, strings.TrimSpace(name), kind).Scan(&id)
	return id, err
}

type Rating struct {
	AgentID    int64
	Elo        float64
	Games      int
	Wins       int
	Rounds     int
	BidsMade   int
	BidsFailed int
}

// GetOrInitRating makes sure a ratings row exists, seeded at start, and returns it.
func (db *DB) GetOrInitRating(ctx context.Context, agentID int64, start float64) (Rating, error) {
	if _, err := db.Exec(ctx, `
		INSERT INTO agent_ratings(agent_id, elo) VALUES ($1,$2)
		ON CONFLICT (agent_id) DO NOTHING
	`, agentID, start); err != nil {
		return Rating{}, err
	}
	r := Rating{AgentID: agentID}
	err := db.QueryRow(ctx, `
		SELECT elo, games, wins, rounds, bids_made, bids_failed
		  FROM agent_ratings WHERE agent_id = $1
	`, agentID).Scan(&r.Elo, &r.Games, &r.Wins, &r.Rounds, &r.BidsMade, &r.BidsFailed)
	return r, err
}

// RatingDelta is what one finished game adds to an agent's career row.
type RatingDelta struct {
	Elo        float64 // new absolute value
	Won        bool
	Rounds     int
	BidsMade   int
	BidsFailed int
}

func (db *DB) UpdateRating(ctx context.Context, agentID int64, d RatingDelta) error {
	win := 0
	if d.Won {
		win = 1
	}
	_, err := db.Exec(ctx, `
		UPDATE agent_ratings
		   SET elo = $2,
		       games = games + 1,
		       wins = wins + $3,
		       rounds = rounds + $4,
		       bids_made = bids_made + $5,
		       bids_failed = bids_failed + $6,
		       updated_at = now()
		 WHERE agent_id = $1
	`, agentID, d.Elo, win, d.Rounds, d.BidsMade, d.BidsFailed)
	return err
}

/* -----------------------------
   Games
------------------------------*/

type Participant struct {
	Seat    int
	Name    string
	AgentID int64
	Kind    string
}

func parseGameID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("game id %q: %w", id, err)
	}
	return u, nil
}

// CreateGame inserts the game row and its seats atomically.
func (db *DB) CreateGame(ctx context.Context, id string, deckSeed int64, maxRounds int, seats []Participant) error {
	gid, err := parseGameID(id)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // safe if already committed

	if _, err := tx.Exec(ctx, `
		INSERT INTO games(id, deck_seed, max_rounds) VALUES ($1,$2,$3)
	`, gid, deckSeed, maxRounds); err != nil {
		return err
	}
	for _, p := range seats {
		var agentID any
		if p.AgentID > 0 {
			agentID = p.AgentID
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO game_participants(game_id, seat, name, agent_id, kind)
			VALUES ($1,$2,$3,$4,$5)
		`, gid, p.Seat, p.Name, agentID, p.Kind); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// InsertRound records a settled round and its tricks.
func (db *DB) InsertRound(ctx context.Context, gameID string, r engine.RoundResult) error {
	gid, err := parseGameID(gameID)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var bonus any
	if r.BonusTo != "" {
		bonus = string(r.BonusTo)
	}
	scores := make(map[string]int, len(r.Scores))
	for k, v := range r.Scores {
		scores[string(k)] = v
	}
	if _, err := tx.Exec(ctx, `
        INSERT INTO rounds(
            game_id, number, bidder, bid, forced, trump, kitty,
            bonus_to, bidder_before, bidder_after, made_bid, scores
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    `, gid, r.Number, string(r.Bidder), r.Bid, r.ForcedBid, string(r.Trump), cardStrings(r.Kitty),
		bonus, r.BidderBefore, r.BidderAfter, r.MadeBid, scores); err != nil {
		return err
	}
	for _, t := range r.Tricks {
		seats := make([]string, len(t.Plays))
		cards := make([]string, len(t.Plays))
		for i, p := range t.Plays {
			seats[i] = string(p.Seat)
			cards[i] = p.Card.String()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO tricks(game_id, round_number, number, leader, winner, winning_card, seats, cards)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, gid, r.Number, t.Number, string(t.Leader), string(t.Winner), t.WinningCard.String(), seats, cards); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE games SET rounds = $2 WHERE id = $1`, gid, r.Number); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CompleteGame stamps the end time, winner and final scores. A non-nil playErr is kept as text.
func (db *DB) CompleteGame(ctx context.Context, res engine.GameResult, playErr error) error {
	gid, err := parseGameID(res.ID)
	if err != nil {
		return err
	}
	var winner, errText any
	if res.Winner != "" {
		winner = string(res.Winner)
	}
	if playErr != nil {
		errText = truncate(playErr.Error(), 500)
	}
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `
		UPDATE games
		   SET ended_at = now(), rounds = $2, capped = $3, winner = $4, error = $5
		 WHERE id = $1
	`, gid, len(res.Rounds), res.Capped, winner, errText); err != nil {
		return err
	}
	for name, score := range res.Scores {
		if _, err := tx.Exec(ctx, `
			UPDATE game_participants SET final_score = $3 WHERE game_id = $1 AND name = $2
		`, gid, string(name), score); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

/* -----------------------------
   Reads for the API
------------------------------*/

type SeatSummary struct {
	Seat       int    `json:"seat"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	FinalScore *int   `json:"final_score,omitempty"`
}

type GameSummary struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	Rounds    int           `json:"rounds"`
	Capped    bool          `json:"capped"`
	Winner    *string       `json:"winner,omitempty"`
	Error     *string       `json:"error,omitempty"`
	Seats     []SeatSummary `json:"seats"`
}

type TrickRow struct {
	Number      int      `json:"number"`
	Leader      string   `json:"leader"`
	Winner      string   `json:"winner"`
	WinningCard string   `json:"winning_card"`
	Seats       []string `json:"seats"`
	Cards       []string `json:"cards"`
}

type RoundRow struct {
	Number       int            `json:"number"`
	Bidder       string         `json:"bidder"`
	Bid          int            `json:"bid"`
	Forced       bool           `json:"forced"`
	Trump        string         `json:"trump"`
	Kitty        []string       `json:"kitty"`
	BonusTo      *string        `json:"bonus_to,omitempty"`
	BidderBefore int            `json:"bidder_before"`
	BidderAfter  int            `json:"bidder_after"`
	MadeBid      bool           `json:"made_bid"`
	Scores       map[string]int `json:"scores"`
	Tricks       []TrickRow     `json:"tricks"`
}

type GameDetail struct {
	GameSummary
	DeckSeed  int64      `json:"deck_seed"`
	MaxRounds int        `json:"max_rounds"`
	Log       []RoundRow `json:"log"`
}

type LeaderRow struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Elo        float64 `json:"elo"`
	Games      int     `json:"games"`
	Wins       int     `json:"wins"`
	Rounds     int     `json:"rounds"`
	BidsMade   int     `json:"bids_made"`
	BidsFailed int     `json:"bids_failed"`
}

func (db *DB) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT id::text, started_at, ended_at, rounds, capped, winner, error
		  FROM games
		 ORDER BY started_at DESC
		 LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.ID, &g.StartedAt, &g.EndedAt, &g.Rounds, &g.Capped, &g.Winner, &g.Error); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Seats, err = db.seats(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (db *DB) seats(ctx context.Context, gameID string) ([]SeatSummary, error) {
	gid, err := parseGameID(gameID)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, `
		SELECT seat, name, kind, final_score
		  FROM game_participants WHERE game_id = $1 ORDER BY seat
	`, gid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SeatSummary
	for rows.Next() {
		var s SeatSummary
		if err := rows.Scan(&s.Seat, &s.Name, &s.Kind, &s.FinalScore); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GameDetail returns one game with every round and trick, or ErrNotFound.
func (db *DB) GameDetail(ctx context.Context, id string) (GameDetail, error) {
	gid, err := uuid.Parse(id)
	if err != nil {
		return GameDetail{}, ErrNotFound
	}
	var d GameDetail
	err = db.QueryRow(ctx, `
		SELECT id::text, started_at, ended_at, rounds, capped, winner, error, deck_seed, max_rounds
		  FROM games WHERE id = $1
	`, gid).Scan(&d.ID, &d.StartedAt, &d.EndedAt, &d.Rounds, &d.Capped, &d.Winner, &d.Error, &d.DeckSeed, &d.MaxRounds)
	if errors.Is(err, pgx.ErrNoRows) {
		return GameDetail{}, ErrNotFound
	}
	if err != nil {
		return GameDetail{}, err
	}
	if d.Seats, err = db.seats(ctx, d.ID); err != nil {
		return GameDetail{}, err
	}

	rows, err := db.Query(ctx, `
		SELECT number, bidder, bid, forced, trump, kitty, bonus_to,
		       bidder_before, bidder_after, made_bid, scores
		  FROM rounds WHERE game_id = $1 ORDER BY number
	`, gid)
	if err != nil {
		return GameDetail{}, err
	}
	defer rows.Close()
	index := map[int]int{}
	for rows.Next() {
		var r RoundRow
		if err := rows.Scan(&r.Number, &r.Bidder, &r.Bid, &r.Forced, &r.Trump, &r.Kitty, &r.BonusTo,
			&r.BidderBefore, &r.BidderAfter, &r.MadeBid, &r.Scores); err != nil {
			return GameDetail{}, err
		}
		index[r.Number] = len(d.Log)
		d.Log = append(d.Log, r)
	}
	if err := rows.Err(); err != nil {
		return GameDetail{}, err
	}

	trows, err := db.Query(ctx, `
		SELECT round_number, number, leader, winner, winning_card, seats, cards
		  FROM tricks WHERE game_id = $1 ORDER BY round_number, number
	`, gid)
	if err != nil {
		return GameDetail{}, err
	}
	defer trows.Close()
	for trows.Next() {
		var (
			round int
			t     TrickRow
		)
		if err := trows.Scan(&round, &t.Number, &t.Leader, &t.Winner, &t.WinningCard, &t.Seats, &t.Cards); err != nil {
			return GameDetail{}, err
		}
		if i, ok := index[round]; ok {
			d.Log[i].Tricks = append(d.Log[i].Tricks, t)
		}
	}
	return d, trows.Err()
}

func (db *DB) Leaderboard(ctx context.Context) ([]LeaderRow, error) {
	rows, err := db.Query(ctx, `
		SELECT a.name, a.kind, r.elo, r.games, r.wins, r.rounds, r.bids_made, r.bids_failed
		  FROM agent_ratings r
		  JOIN agents a ON a.id = r.agent_id
		 ORDER BY r.elo DESC, a.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaderRow
	for rows.Next() {
		var l LeaderRow
		if err := rows.Scan(&l.Name, &l.Kind, &l.Elo, &l.Games, &l.Wins, &l.Rounds, &l.BidsMade, &l.BidsFailed); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func cardStrings(cs []engine.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
