package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fortyfives/server/engine"
)

// Console is a human at the terminal. Input is read a line at a time; bad input is
// reported and asked for again until the reader runs dry.
type Console struct {
	Name string
	in   *bufio.Scanner
	out  io.Writer
}

func NewConsole(name string, in io.Reader, out io.Writer) *Console {
	return &Console{Name: name, in: bufio.NewScanner(in), out: out}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.printf("%s", prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) showHand(hand []engine.Card, numbered bool) {
	c.printf("%s, your hand is:\n", c.Name)
	for i, card := range hand {
		if numbered {
			c.printf("  [%d] %s\n", i, card)
		} else {
			c.printf("  %s\n", card)
		}
	}
}

func (c *Console) PlaceBid(ctx context.Context, hand []engine.Card, current int) (int, error) {
	c.showHand(hand, false)
	c.printf("Current bid is %d\n", current)
	for {
		c.printf("Possible bids are: %v\n", engine.SelectValidBids(current))
		raw, err := c.readLine(ctx, "What is your bid? (ENTER to pass): ")
		if err != nil {
			return 0, err
		}
		bid, err := ParseBid(raw)
		if err != nil || !engine.IsValidBid(current, bid) {
			c.printf("%s is not a valid bid!\n", raw)
			continue
		}
		return bid, nil
	}
}

func (c *Console) SelectTrump(ctx context.Context, hand []engine.Card) (engine.Suit, error) {
	c.showHand(hand, false)
	for {
		c.printf("Available suits: %v\n", engine.Suits)
		raw, err := c.readLine(ctx, "Choose suit: ")
		if err != nil {
			return "", err
		}
		if raw == "" {
			c.printf("A suit must be selected!\n")
			continue
		}
		s, err := engine.ParseSuit(raw)
		if err != nil {
			c.printf("%s is not a valid suit!\n", raw)
			continue
		}
		return s, nil
	}
}

// pick reads an index into hand or a card in short form.
func pick(raw string, hand []engine.Card) (engine.Card, error) {
	if i, err := strconv.Atoi(raw); err == nil {
		if i < 0 || i >= len(hand) {
			return engine.Card{}, fmt.Errorf("%d is not a valid selection", i)
		}
		return hand[i], nil
	}
	card, err := engine.ParseCard(raw)
	if err != nil {
		return engine.Card{}, fmt.Errorf("%s is not a valid card selection", raw)
	}
	return card, nil
}

func (c *Console) SelectCard(ctx context.Context, hand []engine.Card, trump engine.Suit, played []engine.Card) (engine.Card, error) {
	legal := engine.SelectLegalPlays(trump, hand, played)
	c.printf("Trump is %s. Cards played, in order: %s\n", trump, engine.FormatCards(played))
	c.showHand(hand, true)
	for {
		raw, err := c.readLine(ctx, "Enter card selection: ")
		if err != nil {
			return engine.Card{}, err
		}
		if raw == "" {
			c.printf("A card must be chosen!\n")
			continue
		}
		card, err := pick(raw, hand)
		if err != nil {
			c.printf("%v!\n", err)
			continue
		}
		if !contains(cardsToStr(legal), card.String()) {
			c.printf("%s is not a valid card! Legal: %s\n", card, engine.FormatCards(legal))
			continue
		}
		return card, nil
	}
}

func (c *Console) SelectDiscards(ctx context.Context, hand []engine.Card, trump engine.Suit) ([]engine.Card, error) {
	o := DiscardObservation(hand, trump)
	c.printf("Trump is %s. You may discard %d to %d of: %s\n", trump, o.MinPick, o.MaxPick, strings.Join(o.Legal, " "))
	c.showHand(hand, true)
	for {
		raw, err := c.readLine(ctx, "Cards to discard, space separated (ENTER for none): ")
		if err != nil {
			return nil, err
		}
		fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' })
		var (
			out   []engine.Card
			names []string
			bad   error
		)
		for _, f := range fields {
			card, err := pick(f, hand)
			if err != nil {
				bad = err
				break
			}
			out = append(out, card)
			names = append(names, card.String())
		}
		if bad == nil {
			bad = Validate(o, ActionOut{Choices: names})
		}
		if bad != nil {
			c.printf("%v!\n", bad)
			continue
		}
		return out, nil
	}
}

// Rejected shows the engine's reason before it asks again.
func (c *Console) Rejected(err error) {
	c.printf("Move rejected: %v\n", err)
}
