package engine

import "fmt"

// Deck is the draw pile for one round. Index 0 is the top.
type Deck struct {
	cards []Card
}

// NewDeck builds the 52 cards suit by suit, ranks ascending.
func NewDeck() *Deck {
	d := &Deck{cards: make([]Card, 0, len(Suits)*len(Ranks))}
	for _, s := range Suits {
		for _, r := range Ranks {
			d.cards = append(d.cards, Card{Rank: r, Suit: s})
		}
	}
	return d
}

// DeckFrom builds a deck in the given top-first order, rejecting duplicates and invalid cards.
func DeckFrom(cards []Card) (*Deck, error) {
	d := &Deck{cards: make([]Card, 0, len(cards))}
	for _, c := range cards {
		if err := d.Insert(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Deck) Len() int { return len(d.cards) }

func (d *Deck) Contains(c Card) bool { return containsCard(d.cards, c) }

// Cards returns a top-first copy.
func (d *Deck) Cards() []Card { return append([]Card(nil), d.cards...) }

// Shuffle reorders the deck with s. The result must be a permutation of the deck.
func (d *Deck) Shuffle(s Shuffler) error {
	if s == nil {
		return nil
	}
	out := s(append([]Card(nil), d.cards...))
	if len(out) != len(d.cards) {
		return fmt.Errorf("%w: shuffle returned %d cards, want %d", ErrInvalidCard, len(out), len(d.cards))
	}
	seen := make(map[Card]bool, len(out))
	for _, c := range out {
		if seen[c] || !d.Contains(c) {
			return fmt.Errorf("%w: shuffle produced %s", ErrDuplicateCard, c)
		}
		seen[c] = true
	}
	d.cards = out
	return nil
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckExhausted
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, nil
}

// Insert puts c at the bottom of the deck.
func (d *Deck) Insert(c Card) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %d/%q", ErrInvalidCard, int(c.Rank), string(c.Suit))
	}
	if d.Contains(c) {
		return fmt.Errorf("%w: %s already in deck", ErrDuplicateCard, c)
	}
	d.cards = append(d.cards, c)
	return nil
}
