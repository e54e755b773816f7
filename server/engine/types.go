package engine

import "strconv"

// Suit is one of the four French suits.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Suits lists every suit in deck-building order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

type Color string

const (
	Red   Color = "red"
	Black Color = "black"
)

var suitColor = map[Suit]Color{
	Hearts:   Red,
	Diamonds: Red,
	Clubs:    Black,
	Spades:   Black,
}

// Color reports the suit colour; unknown suits are black.
func (s Suit) Color() Color {
	if c, ok := suitColor[s]; ok {
		return c
	}
	return Black
}

func (s Suit) Valid() bool {
	_, ok := suitColor[s]
	return ok
}

// Letter is the one-character suffix used in the short card form ("As", "10h").
func (s Suit) Letter() byte {
	switch s {
	case Hearts:
		return 'h'
	case Diamonds:
		return 'd'
	case Clubs:
		return 'c'
	case Spades:
		return 's'
	}
	return '?'
}

// Rank is the face value, 2..14 with Ace high.
type Rank int

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// Ranks lists every rank in ascending face order.
var Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

func (r Rank) Valid() bool { return r >= Two && r <= Ace }

func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	}
	if r.Valid() {
		return strconv.Itoa(int(r))
	}
	return "?"
}

// ParticipantID names a seat at the table.
type ParticipantID string

const (
	HandSize       = 5
	KittySize      = 3
	MinimumKeep    = 2
	TricksPerRound = 5
	TrickPoints    = 5
	BonusPoints    = 5
	WinningScore   = 120

	// MaxSeats is the largest table the deck always covers: the deal takes
	// HandSize per seat plus the kitty, and the exchange can redraw up to
	// HandSize-MinimumKeep per seat.
	MaxSeats = (52 - KittySize) / (2*HandSize - MinimumKeep)
)

// Bids is the fixed ascending bid ladder. 0 means pass.
var Bids = []int{15, 20, 25, 30}

// Phase is a step of the round state machine.
type Phase int

const (
	PhaseDealing Phase = iota
	PhaseBidding
	PhaseTrumpSelection
	PhaseExchange
	PhaseTricks
	PhaseSettlement
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseDealing:
		return "dealing"
	case PhaseBidding:
		return "bidding"
	case PhaseTrumpSelection:
		return "trump selection"
	case PhaseExchange:
		return "exchange"
	case PhaseTricks:
		return "tricks"
	case PhaseSettlement:
		return "settlement"
	case PhaseTerminal:
		return "terminal"
	}
	return "unknown"
}

// Play is one card put on the table during a trick.
type Play struct {
	Seat ParticipantID `json:"seat"`
	Card Card          `json:"card"`
}

// TrickResult records one resolved trick.
type TrickResult struct {
	Number      int           `json:"number"`
	Leader      ParticipantID `json:"leader"`
	Plays       []Play        `json:"plays"`
	Winner      ParticipantID `json:"winner"`
	WinningCard Card          `json:"winning_card"`
}
