package engine

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Card is an immutable playing card. The zero value is not a valid card.
type Card struct {
	Rank Rank
	Suit Suit
}

// AceOfHearts is the permanent trump.
var AceOfHearts = Card{Rank: Ace, Suit: Hearts}

func NewCard(rank Rank, suit Suit) (Card, error) {
	if !rank.Valid() {
		return Card{}, fmt.Errorf("%w: rank %d", ErrInvalidCard, int(rank))
	}
	if !suit.Valid() {
		return Card{}, fmt.Errorf("%w: suit %q", ErrInvalidCard, string(suit))
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// MustCard is NewCard for literals known to be valid.
func MustCard(rank Rank, suit Suit) Card {
	c, err := NewCard(rank, suit)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Card) Color() Color { return c.Suit.Color() }

func (c Card) Valid() bool { return c.Rank.Valid() && c.Suit.Valid() }

// String gives the short form, e.g. "As", "10h", "5c".
func (c Card) String() string {
	return c.Rank.String() + string(c.Suit.Letter())
}

func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard reads "As", "10h", "Th", "5C" or "5♣".
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Card{}, fmt.Errorf("%w: empty", ErrInvalidCard)
	}
	runes := []rune(s)
	suit, ok := parseSuitRune(runes[len(runes)-1])
	if !ok {
		return Card{}, fmt.Errorf("%w: suit in %q", ErrInvalidCard, s)
	}
	rank, err := parseRank(string(runes[:len(runes)-1]))
	if err != nil {
		return Card{}, fmt.Errorf("%w: rank in %q", ErrInvalidCard, s)
	}
	return NewCard(rank, suit)
}

func parseSuitRune(r rune) (Suit, bool) {
	switch r {
	case 'h', 'H', '♥':
		return Hearts, true
	case 'd', 'D', '♦':
		return Diamonds, true
	case 'c', 'C', '♣':
		return Clubs, true
	case 's', 'S', '♠':
		return Spades, true
	}
	return "", false
}

// ParseSuit accepts a suit name ("spades") or its letter ("s").
func ParseSuit(s string) (Suit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, su := range Suits {
		if s == string(su) {
			return su, nil
		}
	}
	if r := []rune(s); len(r) == 1 {
		if su, ok := parseSuitRune(r[0]); ok {
			return su, nil
		}
	}
	return "", fmt.Errorf("%w: suit %q", ErrInvalidCard, s)
}

func parseRank(s string) (Rank, error) {
	switch strings.ToUpper(s) {
	case "A":
		return Ace, nil
	case "K":
		return King, nil
	case "Q":
		return Queen, nil
	case "J":
		return Jack, nil
	case "T":
		return Ten, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return Rank(n), nil
}

// Shuffler returns a permutation of the given cards.
type Shuffler func([]Card) []Card

// NoShuffle keeps the fresh deck order.
func NoShuffle(cards []Card) []Card { return cards }

// SeededShuffler is a Fisher-Yates shuffle over a seeded source. Seed 0 uses the clock.
func SeededShuffler(seed int64) Shuffler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))
	return func(cards []Card) []Card {
		out := append([]Card(nil), cards...)
		for i := len(out) - 1; i > 0; i-- {
			j := r.Intn(i + 1)
			out[i], out[j] = out[j], out[i]
		}
		return out
	}
}

func containsCard(cards []Card, c Card) bool {
	return indexOfCard(cards, c) >= 0
}

func indexOfCard(cards []Card, c Card) int {
	for i, x := range cards {
		if x == c {
			return i
		}
	}
	return -1
}

// FormatCards joins cards with spaces.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
