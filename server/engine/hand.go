package engine

import "fmt"

// Hand holds one participant's cards in the order received.
type Hand struct {
	cards []Card
}

func NewHand(cards ...Card) *Hand {
	return &Hand{cards: append([]Card(nil), cards...)}
}

func (h *Hand) Len() int { return len(h.cards) }

func (h *Hand) Add(c Card) { h.cards = append(h.cards, c) }

func (h *Hand) Contains(c Card) bool { return containsCard(h.cards, c) }

// Remove takes the first copy of c out of the hand.
func (h *Hand) Remove(c Card) error {
	i := indexOfCard(h.cards, c)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCardNotInHand, c)
	}
	h.cards = append(h.cards[:i], h.cards[i+1:]...)
	return nil
}

// Cards returns a copy in hand order.
func (h *Hand) Cards() []Card { return append([]Card(nil), h.cards...) }

// InSuit returns the cards whose native suit is s. See InSuitCards for the trump view.
func (h *Hand) InSuit(s Suit) []Card {
	var out []Card
	for _, c := range h.cards {
		if c.Suit == s {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hand) String() string { return FormatCards(h.cards) }
