package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playSeeded(t *testing.T, seed int64, maxRounds int) GameResult {
	t.Helper()
	g, err := NewGame("", threeSeats(&scripted{}, &scripted{}, &scripted{}), GameConfig{
		Shuffle:   SeededShuffler(seed),
		MaxRounds: maxRounds,
	})
	require.NoError(t, err)
	res, err := g.Play(context.Background())
	require.NoError(t, err)
	return res
}

func TestGamePlaysUntilAScorePassesTheLimit(t *testing.T) {
	res := playSeeded(t, 7, 0)
	_, err := uuid.Parse(res.ID)
	assert.NoError(t, err)
	assert.False(t, res.Capped)
	require.NotEmpty(t, res.Rounds)

	top := res.Scores[res.Leaders[0]]
	assert.Greater(t, top, WinningScore)
	for i, r := range res.Rounds {
		assert.Equal(t, i+1, r.Number)
		assert.Len(t, r.Tricks, TricksPerRound)
	}
	// every round but the last left all scores at or under the limit
	for _, r := range res.Rounds[:len(res.Rounds)-1] {
		for _, v := range r.Scores {
			assert.LessOrEqual(t, v, WinningScore)
		}
	}
	assert.Equal(t, res.Scores, res.Rounds[len(res.Rounds)-1].Scores)
}

func TestGameIsRepeatableForASeed(t *testing.T) {
	a := playSeeded(t, 99, 0)
	b := playSeeded(t, 99, 0)
	assert.Equal(t, a.Rounds, b.Rounds)
	assert.Equal(t, a.Scores, b.Scores)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGameRoundCap(t *testing.T) {
	res := playSeeded(t, 3, 1)
	assert.True(t, res.Capped)
	assert.Len(t, res.Rounds, 1)
}

func TestNewGame(t *testing.T) {
	g, err := NewGame("fixed", threeSeats(&scripted{}, &scripted{}, &scripted{}), GameConfig{})
	require.NoError(t, err)
	assert.Equal(t, "fixed", g.ID)
	assert.True(t, g.ShouldContinue())

	_, err = NewGame("", []Seat{{ID: "ann", Agent: &scripted{}}, {ID: "ann", Agent: &scripted{}}}, GameConfig{})
	assert.Error(t, err)

	require.NoError(t, g.Board().Set("bob", WinningScore+1))
	assert.False(t, g.ShouldContinue())
	res := g.Result(false)
	assert.Equal(t, ParticipantID("bob"), res.Winner)
}

func TestGameReportsEachRound(t *testing.T) {
	var seen []int
	g, err := NewGame("", threeSeats(&scripted{}, &scripted{}, &scripted{}), GameConfig{
		Shuffle:   SeededShuffler(11),
		MaxRounds: 3,
		OnRound:   func(r RoundResult) { seen = append(seen, r.Number) },
	})
	require.NoError(t, err)
	res, err := g.Play(context.Background())
	require.NoError(t, err)
	require.Len(t, seen, len(res.Rounds))
	for i, n := range seen {
		assert.Equal(t, i+1, n)
	}
}
