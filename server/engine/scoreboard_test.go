package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreBoard(t *testing.T) {
	sb := NewScoreBoard("ann", "bob", "cat", "ann")
	assert.Equal(t, []ParticipantID{"ann", "bob", "cat"}, sb.Participants())

	require.NoError(t, sb.Increment("ann", 10))
	require.NoError(t, sb.Decrement("bob", 15))
	require.NoError(t, sb.Set("cat", 10))
	assert.Error(t, sb.Increment("dan", 5))
	assert.Equal(t, 0, sb.Score("dan"))

	assert.Equal(t, map[ParticipantID]int{"ann": 10, "bob": -15, "cat": 10}, sb.Scores())
	assert.Equal(t, []ParticipantID{"ann", "cat"}, sb.Leaders())
	_, ok := sb.Winner()
	assert.False(t, ok, "tie has no winner")

	require.NoError(t, sb.Increment("cat", 115))
	w, ok := sb.Winner()
	require.True(t, ok)
	assert.Equal(t, ParticipantID("cat"), w)
	assert.True(t, sb.AnyAbove(WinningScore))
	assert.Equal(t, "ann:10 bob:-15 cat:125", sb.String())

	snap := sb.Scores()
	snap["ann"] = 999
	assert.Equal(t, 10, sb.Score("ann"))
}

func TestScoreBoardThresholdIsStrict(t *testing.T) {
	sb := NewScoreBoard("ann", "bob")
	require.NoError(t, sb.Set("ann", WinningScore))
	assert.False(t, sb.AnyAbove(WinningScore))
	require.NoError(t, sb.Increment("ann", 1))
	assert.True(t, sb.AnyAbove(WinningScore))
}
