package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"fortyfives/server/engine"
)

//
// ===== pretty printing =====
//

var useColor bool

const (
	colReset  = "\033[0m"
	colBold   = "\033[1m"
	colDim    = "\033[2m"
	colGreen  = "\033[32m"
	colRed    = "\033[31m"
	colYellow = "\033[33m"
	colBlue   = "\033[34m"
	colMag    = "\033[35m"
	colCyan   = "\033[36m"
)

func c(code, s string) string {
	if !useColor {
		return s
	}
	return code + s + colReset
}
func bold(s string) string { return c(colBold, s) }
func dim(s string) string  { return c(colDim, s) }
func good(s string) string { return c(colGreen, s) }
func warn(s string) string { return c(colYellow, s) }
func bad(s string) string  { return c(colRed, s) }
func cyan(s string) string { return c(colCyan, s) }
func mag(s string) string  { return c(colMag, s) }
func blue(s string) string { return c(colBlue, s) }

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s %s %s\n", dim("──"), bold(title), dim("──"))
}
func sub(w io.Writer, title string) { fmt.Fprintf(w, "%s %s\n", dim("•"), bold(title)) }

// suitGlyph colours red suits red.
func suitGlyph(s engine.Suit) string {
	if s.Color() == engine.Red {
		return bad(string(s))
	}
	return blue(string(s))
}

func cardTag(cd engine.Card) string {
	if cd.Color() == engine.Red {
		return bad(cd.String())
	}
	return cd.String()
}

func cardsTag(cs []engine.Card) string {
	parts := make([]string, len(cs))
	for i, cd := range cs {
		parts[i] = cardTag(cd)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func seatTag(id engine.ParticipantID) string { return cyan(string(id)) }

func scoresTag(scores map[engine.ParticipantID]int) string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		v := scores[engine.ParticipantID(id)]
		s := fmt.Sprintf("%s=%d", id, v)
		switch {
		case v > engine.WinningScore:
			s = good(s)
		case v < 0:
			s = warn(s)
		}
		parts[i] = s
	}
	return strings.Join(parts, " ")
}

// renderer narrates engine events. Private hands are only printed for seats in
// reveal (the human players), or for every seat when all is set.
type renderer struct {
	out    io.Writer
	reveal map[engine.ParticipantID]bool
	all    bool
	round  int
}

func newRenderer(out io.Writer, reveal []engine.ParticipantID, all bool) *renderer {
	r := &renderer{out: out, reveal: make(map[engine.ParticipantID]bool), all: all}
	for _, id := range reveal {
		r.reveal[id] = true
	}
	return r
}

func (r *renderer) visible(id engine.ParticipantID) bool { return r.all || r.reveal[id] }

func (r *renderer) Observe(e engine.Event) {
	w := r.out
	if e.Round != r.round {
		r.round = e.Round
		section(w, fmt.Sprintf("ROUND %d", e.Round))
	}
	switch e.Kind {
	case engine.EventDeal:
		if r.visible(e.Seat) {
			fmt.Fprintf(w, "%s dealt %s\n", seatTag(e.Seat), cardsTag(e.Cards))
		}
	case engine.EventBid:
		if e.Bid == 0 {
			fmt.Fprintf(w, "%s %s\n", seatTag(e.Seat), dim("passes"))
		} else {
			fmt.Fprintf(w, "%s bids %s\n", seatTag(e.Seat), bold(fmt.Sprint(e.Bid)))
		}
	case engine.EventForcedBid:
		fmt.Fprintf(w, "%s everyone passed, %s is held to %d\n", warn("!"), seatTag(e.Seat), e.Bid)
	case engine.EventTrump:
		fmt.Fprintf(w, "%s names %s trump\n", seatTag(e.Seat), suitGlyph(e.Suit))
	case engine.EventKitty:
		if r.visible(e.Seat) {
			fmt.Fprintf(w, "%s takes the kitty %s\n", seatTag(e.Seat), cardsTag(e.Cards))
		} else {
			fmt.Fprintf(w, "%s takes the kitty\n", seatTag(e.Seat))
		}
	case engine.EventDiscard:
		if r.visible(e.Seat) {
			fmt.Fprintf(w, "%s discards %s\n", seatTag(e.Seat), cardsTag(e.Cards))
		} else {
			fmt.Fprintf(w, "%s discards %d\n", seatTag(e.Seat), len(e.Cards))
		}
	case engine.EventPlay:
		if len(e.Cards) == 1 {
			fmt.Fprintf(w, "  %s plays %s\n", seatTag(e.Seat), cardTag(e.Cards[0]))
		}
	case engine.EventTrick:
		fmt.Fprintf(w, "%s trick %d to %s with %s (+%d)\n", mag("»"), e.Trick, seatTag(e.Seat), cardTag(e.Cards[0]), e.Points)
	case engine.EventBonus:
		fmt.Fprintf(w, "%s bonus to %s for %s (+%d)\n", good("★"), seatTag(e.Seat), cardTag(e.Cards[0]), e.Points)
	case engine.EventBidFailed:
		fmt.Fprintf(w, "%s %s bid %d but took %d\n", bad("✗"), seatTag(e.Seat), e.Bid, e.Points)
	case engine.EventRejected:
		if r.visible(e.Seat) {
			fmt.Fprintf(w, "%s %s: %v\n", warn("rejected"), seatTag(e.Seat), e.Err)
		}
	case engine.EventRoundEnd:
		sub(w, fmt.Sprintf("round %d scores", e.Round))
		fmt.Fprintf(w, "  %s\n", scoresTag(e.Scores))
	}
}
