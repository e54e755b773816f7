package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortyfives/server/agent"
	"fortyfives/server/engine"
)

func TestRendererHidesOtherHands(t *testing.T) {
	useColor = false
	var out bytes.Buffer
	r := newRenderer(&out, []engine.ParticipantID{"ann"}, false)
	two := []engine.Card{engine.MustCard(engine.Two, engine.Clubs), engine.AceOfHearts}

	r.Observe(engine.Event{Kind: engine.EventDeal, Round: 1, Seat: "ann", Cards: two})
	r.Observe(engine.Event{Kind: engine.EventDeal, Round: 1, Seat: "bob", Cards: two})
	r.Observe(engine.Event{Kind: engine.EventBid, Round: 1, Seat: "bob"})
	r.Observe(engine.Event{Kind: engine.EventBid, Round: 1, Seat: "ann", Bid: 20})
	r.Observe(engine.Event{Kind: engine.EventDiscard, Round: 1, Seat: "bob", Cards: two})
	r.Observe(engine.Event{Kind: engine.EventRejected, Round: 1, Seat: "bob", Err: errors.New("hidden")})
	r.Observe(engine.Event{Kind: engine.EventRoundEnd, Round: 1, Scores: map[engine.ParticipantID]int{"ann": 20, "bob": -5}})

	s := out.String()
	assert.Contains(t, s, "ROUND 1")
	assert.Contains(t, s, "ann dealt [2c Ah]")
	assert.NotContains(t, s, "bob dealt")
	assert.Contains(t, s, "bob passes")
	assert.Contains(t, s, "ann bids 20")
	assert.Contains(t, s, "bob discards 2")
	assert.NotContains(t, s, "hidden")
	assert.Contains(t, s, "ann=20 bob=-5")
}

func TestRendererFollowsAWholeGame(t *testing.T) {
	useColor = false
	var out bytes.Buffer
	seats := []engine.Seat{
		{ID: "ann", Agent: agent.NewRandom(1)},
		{ID: "bob", Agent: agent.NewRandom(2)},
	}
	g, err := engine.NewGame("", seats, engine.GameConfig{
		Shuffle:  engine.SeededShuffler(4),
		Observer: newRenderer(&out, nil, true),
	})
	require.NoError(t, err)
	res, err := g.Play(context.Background())
	require.NoError(t, err)
	printGameResult(&out, res)

	s := out.String()
	assert.Contains(t, s, "ROUND 1")
	assert.Contains(t, s, "names")
	assert.Contains(t, s, "trick 5 to")
	assert.Contains(t, s, "RESULT")
}

func TestBenchNames(t *testing.T) {
	got := benchNames([]string{"random", "random", "llm:gpt-4o-mini", "random"}, []string{"", "", "", "dan"})
	assert.Equal(t, []string{"random", "random#2", "llm:gpt-4o-mini", "dan"}, got)
}

func TestBidTallies(t *testing.T) {
	made, failed := bidTallies([]engine.RoundResult{
		{Bidder: "ann", MadeBid: true},
		{Bidder: "ann", MadeBid: false},
		{Bidder: "bob", MadeBid: true},
	})
	assert.Equal(t, 1, made["ann"])
	assert.Equal(t, 1, failed["ann"])
	assert.Equal(t, 1, made["bob"])
	assert.Zero(t, failed["bob"])
}

func TestSeedStreamIsDeterministic(t *testing.T) {
	a, b := newSeedStream(7), newSeedStream(7)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.next(), b.next())
	}
	s7, s8 := newSeedStream(7), newSeedStream(8)
	assert.NotEqual(t, s7.next(), s8.next())
}

func TestRecorderWithoutLedgerIsNoop(t *testing.T) {
	rec := newRecorder(nil, nil)
	rec.start("id", 1, 0, nil, nil)
	rec.round(engine.RoundResult{})
	rec.finish(engine.GameResult{}, nil)
	_, ok := rec.rating("ann", 1500)
	assert.False(t, ok)
}

func TestPrintBenchSummary(t *testing.T) {
	useColor = false
	elo := NewElo(1500, 24)
	gl := NewGlickoTable(0.5)
	scores := map[string]int{"ann": 130, "bob": 40}
	elo.UpdateGame(scores)
	gl.UpdateGame(scores)
	stats := BenchStats{}
	stats.Record(engine.GameResult{
		Seats:   []engine.ParticipantID{"ann", "bob"},
		Scores:  map[engine.ParticipantID]int{"ann": 130, "bob": 40},
		Leaders: []engine.ParticipantID{"ann"},
		Winner:  "ann",
	}, map[engine.ParticipantID]string{"ann": "ann", "bob": "bob"})

	var out bytes.Buffer
	printBenchSummary(&out, 1, elo, gl, stats, map[string][2]int64{"bob": {12, 3}})
	s := out.String()
	assert.Contains(t, s, "games=1")
	assert.Contains(t, s, "model calls=12 fallbacks=3")
	assert.Contains(t, s, "Elo final → ann:1512.0 bob:1488.0 (games=1)")
	assert.Contains(t, s, "Glicko2 final → ann:r=")
}
