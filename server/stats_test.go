package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortyfives/server/engine"
)

func TestBenchStatsRecord(t *testing.T) {
	labels := map[engine.ParticipantID]string{"ann": "ann", "bob": "bob"}
	res := engine.GameResult{
		Seats:   []engine.ParticipantID{"ann", "bob"},
		Scores:  map[engine.ParticipantID]int{"ann": 125, "bob": 90},
		Leaders: []engine.ParticipantID{"ann"},
		Winner:  "ann",
		Rounds: []engine.RoundResult{
			{Bidder: "ann", Bid: 20, MadeBid: true, BonusTo: "ann", Tricks: []engine.TrickResult{{Winner: "ann"}, {Winner: "bob"}}},
			{Bidder: "bob", Bid: 15, ForcedBid: true, Tricks: []engine.TrickResult{{Winner: "ann"}}},
		},
	}
	tie := engine.GameResult{
		Seats:   []engine.ParticipantID{"ann", "bob"},
		Scores:  map[engine.ParticipantID]int{"ann": 125, "bob": 125},
		Leaders: []engine.ParticipantID{"ann", "bob"},
	}
	b := BenchStats{}
	b.Record(res, labels)
	b.Record(tie, labels)

	ann, bob := b["ann"], b["bob"]
	require.NotNil(t, ann)
	require.NotNil(t, bob)
	assert.Equal(t, 2, ann.Games)
	assert.Equal(t, 1, ann.Wins)
	assert.Equal(t, 1, ann.Ties)
	assert.Equal(t, 1, bob.Ties)
	assert.Equal(t, 1, ann.BidsMade)
	assert.Equal(t, 1, bob.BidsFailed)
	assert.Equal(t, 1, bob.ForcedBids)
	assert.Equal(t, 2, ann.Tricks)
	assert.Equal(t, 1, ann.Bonuses)
	assert.InDelta(t, 0.75, ann.WinRate(), 1e-9)
	assert.InDelta(t, 1.0, ann.MakeRate(), 1e-9)
	assert.Equal(t, []float64{125, 125}, ann.FinalScores)
	assert.Equal(t, "ann", b.Sorted()[0].Label)
}

func TestWilsonCI95(t *testing.T) {
	lo, hi := WilsonCI95(0, 0, 0)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)

	lo, hi = WilsonCI95(50, 0, 100)
	assert.InDelta(t, 0.5, (lo+hi)/2, 1e-9)
	assert.Less(t, lo, 0.5)
	assert.Greater(t, hi, 0.5)

	lo, hi = WilsonCI95(10, 0, 10)
	assert.Greater(t, lo, 0.6)
	assert.InDelta(t, 1.0, hi, 1e-9)
}

func TestBootstrapCI95(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	lo, hi := BootstrapCI95(rng, nil, 100)
	assert.Zero(t, lo)
	assert.Zero(t, hi)

	lo, hi = BootstrapCI95(rng, []float64{10, 10, 10}, 200)
	assert.Equal(t, 10.0, lo)
	assert.Equal(t, 10.0, hi)

	lo, hi = BootstrapCI95(rng, []float64{0, 20, 40, 60, 80, 100}, 500)
	assert.LessOrEqual(t, lo, 50.0)
	assert.GreaterOrEqual(t, hi, 50.0)
}
