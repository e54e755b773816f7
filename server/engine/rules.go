package engine

import "fmt"

// Token is a card's key in a ranking table: its face rank, or TokenAceOfHearts.
type Token int

// TokenAceOfHearts ranks the permanent trump between King and the bare Ace.
const TokenAceOfHearts Token = 100

func (t Token) String() string {
	if t == TokenAceOfHearts {
		return "AH"
	}
	return Rank(t).String()
}

func tok(r Rank) Token { return Token(r) }

type tableKey struct {
	color  Color
	inSuit bool
}

// Orders run lowest to highest.
var rankTables = map[tableKey][]Token{
	{Red, true}: {
		tok(Two), tok(Three), tok(Four), tok(Six), tok(Seven), tok(Eight), tok(Nine), tok(Ten),
		tok(Queen), tok(King), TokenAceOfHearts, tok(Ace), tok(Five), tok(Jack),
	},
	{Black, true}: {
		tok(Ten), tok(Nine), tok(Eight), tok(Seven), tok(Six), tok(Four), tok(Three), tok(Two),
		tok(Queen), tok(King), TokenAceOfHearts, tok(Ace), tok(Five), tok(Jack),
	},
	{Red, false}: {
		tok(Ace), tok(Two), tok(Three), tok(Four), tok(Five), tok(Six), tok(Seven), tok(Eight),
		tok(Nine), tok(Ten), tok(Jack), tok(Queen), tok(King),
	},
	{Black, false}: {
		tok(Ten), tok(Nine), tok(Eight), tok(Seven), tok(Six), tok(Five), tok(Four), tok(Three),
		tok(Two), tok(Ace), tok(Jack), tok(Queen), tok(King),
	},
}

func isAceOfHearts(c Card) bool { return c == AceOfHearts }

// IsInSuit reports whether c counts as trump when playing is the playing suit.
// The Ace of Hearts always does.
func IsInSuit(playing Suit, c Card) bool {
	return c.Suit == playing || isAceOfHearts(c)
}

// TokenOf maps a card to its ranking-table token.
func TokenOf(c Card) Token {
	if isAceOfHearts(c) {
		return TokenAceOfHearts
	}
	return tok(c.Rank)
}

// RankOrder returns a copy of the lowest-to-highest order for the suit's colour.
func RankOrder(playing Suit, inSuit bool) []Token {
	return append([]Token(nil), rankTables[tableKey{playing.Color(), inSuit}]...)
}

func tokenIndex(order []Token, t Token) int {
	for i, x := range order {
		if x == t {
			return i
		}
	}
	return -1
}

// InSuitCards keeps the cards for which IsInSuit holds, in order.
func InSuitCards(playing Suit, cards []Card) []Card {
	var out []Card
	for _, c := range cards {
		if IsInSuit(playing, c) {
			out = append(out, c)
		}
	}
	return out
}

// OutOfSuitCards is the complement of InSuitCards; it never contains the Ace of Hearts.
func OutOfSuitCards(playing Suit, cards []Card) []Card {
	var out []Card
	for _, c := range cards {
		if !IsInSuit(playing, c) {
			out = append(out, c)
		}
	}
	return out
}

// HighestInSuit returns the strongest in-suit card among cards.
func HighestInSuit(playing Suit, cards []Card) (Card, error) {
	in := InSuitCards(playing, cards)
	switch len(in) {
	case 0:
		return Card{}, fmt.Errorf("%w: %s among %s", ErrNoCardsInSuit, playing, FormatCards(cards))
	case 1:
		return in[0], nil
	}
	order := RankOrder(playing, true)
	best, bestIdx := Card{}, -1
	for _, c := range in {
		i := tokenIndex(order, TokenOf(c))
		if i < 0 {
			return Card{}, fmt.Errorf("%w: %s has no rank in %s order", ErrInvalidCard, c, playing)
		}
		if i > bestIdx {
			best, bestIdx = c, i
		}
	}
	return best, nil
}

// HighestOutOfSuit ranks a trick without trump: the first card's suit acts as the playing suit.
func HighestOutOfSuit(cards []Card) (Card, error) {
	if len(cards) == 0 {
		return Card{}, ErrEmptyTrick
	}
	return HighestInSuit(cards[0].Suit, cards)
}

// ResolveTrick returns the position in plays of the winning card.
func ResolveTrick(playing Suit, plays []Card) (int, error) {
	if len(plays) == 0 {
		return -1, ErrEmptyTrick
	}
	var (
		winner Card
		err    error
	)
	if len(InSuitCards(playing, plays)) > 0 {
		winner, err = HighestInSuit(playing, plays)
	} else {
		winner, err = HighestOutOfSuit(plays)
	}
	if err != nil {
		return -1, err
	}
	return indexOfCard(plays, winner), nil
}

// SelectLegalPlays lists the cards of hand that may be played after played.
// Only an in-suit lead obliges following, and only when the hand holds in-suit cards.
func SelectLegalPlays(playing Suit, hand []Card, played []Card) []Card {
	all := append([]Card(nil), hand...)
	if len(played) == 0 || !IsInSuit(playing, played[0]) {
		return all
	}
	if in := InSuitCards(playing, hand); len(in) > 0 {
		return in
	}
	return all
}

// SelectValidBids lists the bids allowed over current (0 = no bid yet).
func SelectValidBids(current int) []int {
	if current == 0 {
		return append([]int(nil), Bids...)
	}
	var out []int
	for _, b := range Bids {
		if b > current {
			out = append(out, b)
		}
	}
	return out
}

// SelectDiscardable is the most a participant may throw away during the exchange.
func SelectDiscardable(playing Suit, hand []Card) []Card {
	return OutOfSuitCards(playing, hand)
}

// IsValidBid reports whether bid is a pass or an allowed raise over current.
func IsValidBid(current, bid int) bool {
	if bid == 0 {
		return true
	}
	for _, b := range SelectValidBids(current) {
		if b == bid {
			return true
		}
	}
	return false
}
