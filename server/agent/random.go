package agent

import (
	"context"
	"math/rand"

	"fortyfives/server/engine"
)

// Random is the house bot: it bids the minimum raise one time in three, names the suit
// of a held five, plays a random legal card and throws away its off-suit cards.
type Random struct {
	RNG *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{RNG: rand.New(rand.NewSource(seed))}
}

func (b *Random) PlaceBid(_ context.Context, _ []engine.Card, current int) (int, error) {
	valid := engine.SelectValidBids(current)
	if len(valid) == 0 || b.RNG.Intn(3) != 0 {
		return 0, nil
	}
	return valid[0], nil
}

func (b *Random) SelectTrump(_ context.Context, hand []engine.Card) (engine.Suit, error) {
	for _, c := range hand {
		if c.Rank == engine.Five {
			return c.Suit, nil
		}
	}
	if len(hand) == 0 {
		return engine.Suits[b.RNG.Intn(len(engine.Suits))], nil
	}
	return hand[b.RNG.Intn(len(hand))].Suit, nil
}

func (b *Random) SelectCard(_ context.Context, hand []engine.Card, trump engine.Suit, played []engine.Card) (engine.Card, error) {
	legal := engine.SelectLegalPlays(trump, hand, played)
	if len(legal) == 0 {
		return engine.Card{}, engine.ErrCardNotInHand
	}
	return legal[b.RNG.Intn(len(legal))], nil
}

func (b *Random) SelectDiscards(_ context.Context, hand []engine.Card, trump engine.Suit) ([]engine.Card, error) {
	return OffSuitDiscards(hand, trump), nil
}

// OffSuitDiscards drops every off-suit card while keeping at least MinimumKeep. When the
// hand still holds more than HandSize trumps, the lowest of them go as well.
func OffSuitDiscards(hand []engine.Card, trump engine.Suit) []engine.Card {
	o := DiscardObservation(hand, trump)
	out := engine.SelectDiscardable(trump, hand)
	if len(out) > o.MaxPick {
		out = out[:o.MaxPick]
	}
	if len(out) >= o.MinPick {
		return out
	}
	in := engine.InSuitCards(trump, hand)
	order := engine.RankOrder(trump, true)
	rank := func(c engine.Card) int {
		t := engine.TokenOf(c)
		for i, x := range order {
			if x == t {
				return i
			}
		}
		return -1
	}
	for len(out) < o.MinPick && len(in) > 0 {
		low := 0
		for i := range in {
			if rank(in[i]) < rank(in[low]) {
				low = i
			}
		}
		out = append(out, in[low])
		in = append(in[:low], in[low+1:]...)
	}
	return out
}
