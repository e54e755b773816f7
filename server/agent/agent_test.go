package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortyfives/server/engine"
)

func hand(t *testing.T, ss ...string) []engine.Card {
	t.Helper()
	out, err := parseCards(ss)
	require.NoError(t, err)
	return out
}

func TestObservations(t *testing.T) {
	o := BidObservation(hand(t, "2c"), 20)
	assert.Equal(t, []string{Pass, "25", "30"}, o.Legal)
	assert.Equal(t, DecisionBid, o.Decision)

	o = PlayObservation(hand(t, "2d", "2c", "Ah", "4h"), engine.Clubs, hand(t, "Kc"))
	assert.Equal(t, []string{"2c", "Ah"}, o.Legal)
	assert.Equal(t, []string{"Kc"}, o.Played)

	o = DiscardObservation(hand(t, "2h", "3h", "4h", "Ah", "2d", "Jh", "Qh", "Kh"), engine.Diamonds)
	assert.Equal(t, []string{"2h", "3h", "4h", "Jh", "Qh", "Kh"}, o.Legal)
	assert.Equal(t, 3, o.MinPick)
	assert.Equal(t, 6, o.MaxPick)

	o = DiscardObservation(hand(t, "2d", "3d", "4d", "Ah", "5d"), engine.Diamonds)
	assert.Empty(t, o.Legal)
	assert.Equal(t, 0, o.MinPick)
	assert.Equal(t, 0, o.MaxPick)
}

func TestValidate(t *testing.T) {
	bid := BidObservation(nil, 0)
	assert.NoError(t, Validate(bid, ActionOut{Choice: "15"}))
	assert.Error(t, Validate(bid, ActionOut{Choice: "17"}))

	d := DiscardObservation(hand(t, "2h", "3h", "4h", "Ah", "2d", "Jh", "Qh", "Kh"), engine.Diamonds)
	assert.NoError(t, Validate(d, ActionOut{Choices: []string{"2h", "3h", "4h"}}))
	assert.Error(t, Validate(d, ActionOut{Choices: []string{"2h", "3h"}}), "keeps six")
	assert.Error(t, Validate(d, ActionOut{Choices: []string{"2h", "2h", "3h"}}))
	assert.Error(t, Validate(d, ActionOut{Choices: []string{"2d", "2h", "3h"}}))
}

func TestParseBid(t *testing.T) {
	for in, want := range map[string]int{"": 0, "pass": 0, " PASS ": 0, "0": 0, "25": 25} {
		got, err := ParseBid(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBid("lots")
	assert.Error(t, err)
}

func TestRandomAnswersAreLegal(t *testing.T) {
	ctx := context.Background()
	b := NewRandom(5)
	h := hand(t, "2h", "3h", "4h", "Ah", "2d", "Jh", "Qh", "Kh")
	for i := 0; i < 50; i++ {
		bid, err := b.PlaceBid(ctx, h, 20)
		require.NoError(t, err)
		assert.True(t, engine.IsValidBid(20, bid))
		bid, err = b.PlaceBid(ctx, h, 30)
		require.NoError(t, err)
		assert.Zero(t, bid)

		c, err := b.SelectCard(ctx, h, engine.Clubs, hand(t, "Kc"))
		require.NoError(t, err)
		assert.Equal(t, engine.AceOfHearts, c, "only trump held is the ace of hearts")
	}

	s, err := b.SelectTrump(ctx, hand(t, "2c", "5s", "Kd"))
	require.NoError(t, err)
	assert.Equal(t, engine.Spades, s)
}

func TestOffSuitDiscards(t *testing.T) {
	h := hand(t, "2h", "3h", "4h", "Ah", "2d", "Jh", "Qh", "Kh")
	d := OffSuitDiscards(h, engine.Diamonds)
	assert.Equal(t, hand(t, "2h", "3h", "4h", "Jh", "Qh", "Kh"), d)
	assert.NoError(t, engine.ValidateDiscards(engine.Diamonds, h, d))

	// seven trumps and one off-suit card: two trumps must go too
	heavy := hand(t, "Jd", "5d", "Ad", "Ah", "Kd", "2d", "3d", "9c")
	d = OffSuitDiscards(heavy, engine.Diamonds)
	assert.Equal(t, hand(t, "9c", "2d", "3d"), d)
	assert.NoError(t, engine.ValidateDiscards(engine.Diamonds, heavy, d))
}

func TestRandomPlaysWholeGames(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		seats := []engine.Seat{
			{ID: "ann", Agent: NewRandom(seed)},
			{ID: "bob", Agent: NewRandom(seed + 100)},
			{ID: "cat", Agent: NewRandom(seed + 200)},
			{ID: "dan", Agent: NewRandom(seed + 300)},
		}
		g, err := engine.NewGame("", seats, engine.GameConfig{Shuffle: engine.SeededShuffler(seed)})
		require.NoError(t, err)
		res, err := g.Play(context.Background())
		require.NoError(t, err, "seed %d", seed)
		assert.False(t, g.ShouldContinue())
		assert.NotEmpty(t, res.Leaders)
	}
}

func TestConsoleReadsUntilValid(t *testing.T) {
	ctx := context.Background()
	in := strings.NewReader(strings.Join([]string{
		"17", "abc", "20", // bid
		"", "stars", "d", // trump
		"9", "0", "1", // card: out of range, illegal 2d, then 2c
		"2d", "0 1", "0,1,2", // discard
	}, "\n") + "\n")
	var out bytes.Buffer
	c := NewConsole("ann", in, &out)

	bid, err := c.PlaceBid(ctx, hand(t, "2c"), 15)
	require.NoError(t, err)
	assert.Equal(t, 20, bid)

	s, err := c.SelectTrump(ctx, hand(t, "2c"))
	require.NoError(t, err)
	assert.Equal(t, engine.Diamonds, s)

	card, err := c.SelectCard(ctx, hand(t, "2d", "2c", "4h"), engine.Clubs, hand(t, "Kc"))
	require.NoError(t, err)
	assert.Equal(t, hand(t, "2c")[0], card)

	eight := hand(t, "2h", "3h", "4h", "Ah", "2d", "Jh", "Qh", "Kh")
	d, err := c.SelectDiscards(ctx, eight, engine.Diamonds)
	require.NoError(t, err)
	assert.Equal(t, hand(t, "2h", "3h", "4h"), d)

	assert.Contains(t, out.String(), "17 is not a valid bid!")
	assert.Contains(t, out.String(), "A suit must be selected!")
	assert.Contains(t, out.String(), "9 is not a valid selection!")

	c.Rejected(errors.New("nope"))
	assert.Contains(t, out.String(), "Move rejected: nope")

	_, err = c.PlaceBid(ctx, nil, 0)
	assert.ErrorIs(t, err, io.EOF)
}

type fakeChooser struct {
	choice string
	subset []string
	err    error
}

func (f fakeChooser) Choose(context.Context, string, string, string, []string) (string, error) {
	return f.choice, f.err
}

func (f fakeChooser) ChooseSubset(context.Context, string, string, string, []string, int, int) ([]string, error) {
	return f.subset, f.err
}

func TestLLMUsesModelAnswer(t *testing.T) {
	ctx := context.Background()
	a := NewLLM("fake", NewRandom(1), nil)
	a.Chooser = fakeChooser{choice: "25", subset: []string{"2h", "3h", "4h"}}

	bid, err := a.PlaceBid(ctx, hand(t, "2c"), 20)
	require.NoError(t, err)
	assert.Equal(t, 25, bid)

	eight := hand(t, "2h", "3h", "4h", "Ah", "2d", "Jh", "Qh", "Kh")
	d, err := a.SelectDiscards(ctx, eight, engine.Diamonds)
	require.NoError(t, err)
	assert.Equal(t, hand(t, "2h", "3h", "4h"), d)

	calls, fallbacks := a.Stats()
	assert.Equal(t, int64(2), calls)
	assert.Zero(t, fallbacks)
}

func TestLLMFallsBack(t *testing.T) {
	ctx := context.Background()
	a := NewLLM("fake", NewRandom(1), nil)
	a.Chooser = fakeChooser{err: errors.New("http 500")}

	c, err := a.SelectCard(ctx, hand(t, "2d", "Ah", "4h"), engine.Clubs, hand(t, "Kc"))
	require.NoError(t, err)
	assert.Equal(t, engine.AceOfHearts, c)

	a.Chooser = fakeChooser{choice: "Ks"}
	s, err := a.SelectTrump(ctx, hand(t, "5s"))
	require.NoError(t, err)
	assert.Equal(t, engine.Spades, s)

	calls, fallbacks := a.Stats()
	assert.Equal(t, int64(2), calls)
	assert.Equal(t, int64(2), fallbacks)
}

func TestFactory(t *testing.T) {
	f := Factory{Seed: 1, In: strings.NewReader(""), Out: io.Discard}
	seats, labels, err := f.Seats([]string{"random", "console", "llm:gpt-4o-mini"}, []string{"ann", "", "cat"})
	require.NoError(t, err)
	require.Len(t, seats, 3)
	assert.Equal(t, engine.ParticipantID("ann"), seats[0].ID)
	assert.Equal(t, engine.ParticipantID("seat2"), seats[1].ID)
	assert.Equal(t, []string{"random", "console", "llm:gpt-4o-mini"}, labels)
	assert.IsType(t, &Random{}, seats[0].Agent)
	assert.IsType(t, &Console{}, seats[1].Agent)
	assert.IsType(t, &LLM{}, seats[2].Agent)

	_, _, err = f.Build("llm", 0, "x")
	assert.Error(t, err)
	_, _, err = f.Build("oracle", 0, "x")
	assert.Error(t, err)
	_, _, err = Factory{}.Build("console", 0, "x")
	assert.Error(t, err)
}
