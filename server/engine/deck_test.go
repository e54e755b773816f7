package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHasEveryCardOnce(t *testing.T) {
	d := NewDeck()
	require.Equal(t, 52, d.Len())
	seen := map[Card]int{}
	for _, c := range d.Cards() {
		seen[c]++
	}
	for _, s := range Suits {
		for _, r := range Ranks {
			assert.Equal(t, 1, seen[Card{r, s}], "%s", Card{r, s})
		}
	}
}

func TestDeckDrawAndInsert(t *testing.T) {
	d := NewDeck()
	top, err := d.Draw()
	require.NoError(t, err)
	assert.Equal(t, Card{Two, Hearts}, top)
	assert.False(t, d.Contains(top))

	assert.ErrorIs(t, d.Insert(Card{Three, Hearts}), ErrDuplicateCard)
	assert.ErrorIs(t, d.Insert(Card{Three, Hearts}), ErrInvalidCard)
	assert.ErrorIs(t, d.Insert(Card{0, Hearts}), ErrInvalidCard)

	require.NoError(t, d.Insert(top))
	cards := d.Cards()
	assert.Equal(t, top, cards[len(cards)-1])

	for d.Len() > 0 {
		_, err := d.Draw()
		require.NoError(t, err)
	}
	_, err = d.Draw()
	assert.ErrorIs(t, err, ErrDeckExhausted)
}

func TestDeckFromRejectsDuplicates(t *testing.T) {
	_, err := DeckFrom([]Card{{Two, Clubs}, {Two, Clubs}})
	assert.ErrorIs(t, err, ErrDuplicateCard)
}

func TestDeckShuffleMustPermute(t *testing.T) {
	d := NewDeck()
	drop := func(cards []Card) []Card { return cards[1:] }
	assert.Error(t, d.Shuffle(drop))

	dup := func(cards []Card) []Card {
		out := append([]Card(nil), cards...)
		out[1] = out[0]
		return out
	}
	assert.ErrorIs(t, d.Shuffle(dup), ErrDuplicateCard)
	assert.Equal(t, NewDeck().Cards(), d.Cards())
}

func TestHand(t *testing.T) {
	h := NewHand(Card{Two, Clubs}, AceOfHearts, Card{Five, Clubs})
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []Card{{Two, Clubs}, {Five, Clubs}}, h.InSuit(Clubs))
	assert.Empty(t, h.InSuit(Spades))

	require.NoError(t, h.Remove(AceOfHearts))
	assert.ErrorIs(t, h.Remove(AceOfHearts), ErrCardNotInHand)
	assert.Equal(t, []Card{{Two, Clubs}, {Five, Clubs}}, h.Cards())

	h.Add(Card{King, Spades})
	assert.True(t, h.Contains(Card{King, Spades}))
	assert.Equal(t, "2c 5c Ks", h.String())
}
