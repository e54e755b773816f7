package agent

import (
	"fmt"
	"strconv"
	"strings"

	"fortyfives/server/engine"
)

type Decision string

const (
	DecisionBid     Decision = "bid"
	DecisionTrump   Decision = "trump"
	DecisionPlay    Decision = "play"
	DecisionDiscard Decision = "discard"
)

// Pass is the bid choice for not bidding.
const Pass = "pass"

// Observation is what a seat is shown before a decision. It is also the JSON we send the model.
type Observation struct {
	Decision   Decision `json:"decision"`
	Hand       []string `json:"hand"`               // e.g. ["Ah","10c"]
	Trump      string   `json:"trump,omitempty"`    // hearts|diamonds|clubs|spades
	CurrentBid int      `json:"current_bid"`        // 0 = no bid yet
	Played     []string `json:"played,omitempty"`   // cards already on this trick, lead first
	Legal      []string `json:"legal"`              // the options the answer must come from
	MinPick    int      `json:"min_pick,omitempty"` // discard only
	MaxPick    int      `json:"max_pick,omitempty"` // discard only
}

type ActionOut struct {
	Choice  string   `json:"choice,omitempty"`
	Choices []string `json:"choices,omitempty"` // discard only
	Comment string   `json:"comment,omitempty"` // <=120 chars
}

func BidObservation(hand []engine.Card, current int) Observation {
	legal := []string{Pass}
	for _, b := range engine.SelectValidBids(current) {
		legal = append(legal, strconv.Itoa(b))
	}
	return Observation{Decision: DecisionBid, Hand: cardsToStr(hand), CurrentBid: current, Legal: legal}
}

func TrumpObservation(hand []engine.Card) Observation {
	legal := make([]string, len(engine.Suits))
	for i, s := range engine.Suits {
		legal[i] = string(s)
	}
	return Observation{Decision: DecisionTrump, Hand: cardsToStr(hand), Legal: legal}
}

func PlayObservation(hand []engine.Card, trump engine.Suit, played []engine.Card) Observation {
	return Observation{
		Decision: DecisionPlay,
		Hand:     cardsToStr(hand),
		Trump:    string(trump),
		Played:   cardsToStr(played),
		Legal:    cardsToStr(engine.SelectLegalPlays(trump, hand, played)),
	}
}

// DiscardObservation bounds the pick so that between MinimumKeep and HandSize cards stay.
func DiscardObservation(hand []engine.Card, trump engine.Suit) Observation {
	candidates := engine.ExchangeCandidates(trump, hand)
	maxPick := len(hand) - engine.MinimumKeep
	if maxPick > len(candidates) {
		maxPick = len(candidates)
	}
	minPick := len(hand) - engine.HandSize
	if minPick < 0 {
		minPick = 0
	}
	return Observation{
		Decision: DecisionDiscard,
		Hand:     cardsToStr(hand),
		Trump:    string(trump),
		Legal:    cardsToStr(candidates),
		MinPick:  minPick,
		MaxPick:  maxPick,
	}
}

func cardsToStr(cs []engine.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Validate the answer against the observation.
func Validate(o Observation, a ActionOut) error {
	if o.Decision != DecisionDiscard {
		if !contains(o.Legal, a.Choice) {
			return fmt.Errorf("illegal %s %q (legal: %v)", o.Decision, a.Choice, o.Legal)
		}
		return nil
	}
	seen := map[string]bool{}
	for _, c := range a.Choices {
		if !contains(o.Legal, c) {
			return fmt.Errorf("cannot discard %q (candidates: %v)", c, o.Legal)
		}
		if seen[c] {
			return fmt.Errorf("%q picked twice", c)
		}
		seen[c] = true
	}
	if n := len(a.Choices); n < o.MinPick || n > o.MaxPick {
		return fmt.Errorf("discard %d cards, allowed %d..%d", n, o.MinPick, o.MaxPick)
	}
	return nil
}

// ParseBid reads "pass", "" or a number.
func ParseBid(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == Pass || s == "0" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a bid", s)
	}
	return n, nil
}

func parseCards(ss []string) ([]engine.Card, error) {
	out := make([]engine.Card, 0, len(ss))
	for _, s := range ss {
		c, err := engine.ParseCard(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
