package agent

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"go.uber.org/zap"

	"fortyfives/server/engine"
	"fortyfives/server/llm"
)

const systemPrompt = `You are playing Forty-Fives, a trick-taking card game.
Trump is the playing suit; the Ace of Hearts is always trump.
Trump order, high to low: Jack, Five, Ace of the suit, Ace of Hearts, King, Queen, then pips
(red suits: high pips beat low; black suits: low pips beat high).
Each trick is worth 5 points and the highest trump taken earns 5 more. A bidder who fails
to earn the bid loses it. You receive a JSON observation; answer only with one of the
"legal" options (for a discard, between min_pick and max_pick of them).`

// Chooser is the model call. It defaults to llm.PingChoose / llm.PingChooseSubset.
type Chooser interface {
	Choose(ctx context.Context, model, system, user string, choices []string) (string, error)
	ChooseSubset(ctx context.Context, model, system, user string, choices []string, min, max int) ([]string, error)
}

type pingChooser struct{ opts llm.PingOptions }

func (p pingChooser) Choose(ctx context.Context, model, system, user string, choices []string) (string, error) {
	c, _, err := llm.PingChoose(ctx, model, system, user, choices, p.opts)
	return c, err
}

func (p pingChooser) ChooseSubset(ctx context.Context, model, system, user string, choices []string, min, max int) ([]string, error) {
	c, _, err := llm.PingChooseSubset(ctx, model, system, user, choices, min, max, p.opts)
	return c, err
}

// LLM asks a chat model for every decision. When the model errors or answers outside
// the legal set, the Fallback agent decides instead and the miss is counted.
type LLM struct {
	Model    string
	Fallback engine.Agent
	Chooser  Chooser
	Log      *zap.Logger

	calls     atomic.Int64
	fallbacks atomic.Int64
}

func NewLLM(model string, fallback engine.Agent, log *zap.Logger) *LLM {
	if log == nil {
		log = zap.NewNop()
	}
	return &LLM{
		Model:    model,
		Fallback: fallback,
		Chooser:  pingChooser{opts: llm.EnvPingOptions()},
		Log:      log.With(zap.String("model", model)),
	}
}

// Stats returns model calls made and how many of them fell back.
func (a *LLM) Stats() (calls, fallbacks int64) {
	return a.calls.Load(), a.fallbacks.Load()
}

func (a *LLM) choose(ctx context.Context, o Observation) (string, bool) {
	a.calls.Add(1)
	user, _ := json.Marshal(o)
	choice, err := a.Chooser.Choose(ctx, a.Model, systemPrompt, string(user), o.Legal)
	if err == nil {
		err = Validate(o, ActionOut{Choice: choice})
	}
	if err != nil {
		a.fallbacks.Add(1)
		a.Log.Warn("model answer unusable, falling back", zap.String("decision", string(o.Decision)), zap.Error(err))
		return "", false
	}
	return choice, true
}

func (a *LLM) PlaceBid(ctx context.Context, hand []engine.Card, current int) (int, error) {
	o := BidObservation(hand, current)
	if choice, ok := a.choose(ctx, o); ok {
		if bid, err := ParseBid(choice); err == nil {
			return bid, nil
		}
	}
	return a.Fallback.PlaceBid(ctx, hand, current)
}

func (a *LLM) SelectTrump(ctx context.Context, hand []engine.Card) (engine.Suit, error) {
	o := TrumpObservation(hand)
	if choice, ok := a.choose(ctx, o); ok {
		if s, err := engine.ParseSuit(choice); err == nil {
			return s, nil
		}
	}
	return a.Fallback.SelectTrump(ctx, hand)
}

func (a *LLM) SelectCard(ctx context.Context, hand []engine.Card, trump engine.Suit, played []engine.Card) (engine.Card, error) {
	o := PlayObservation(hand, trump, played)
	if choice, ok := a.choose(ctx, o); ok {
		if c, err := engine.ParseCard(choice); err == nil {
			return c, nil
		}
	}
	return a.Fallback.SelectCard(ctx, hand, trump, played)
}

func (a *LLM) SelectDiscards(ctx context.Context, hand []engine.Card, trump engine.Suit) ([]engine.Card, error) {
	o := DiscardObservation(hand, trump)
	a.calls.Add(1)
	user, _ := json.Marshal(o)
	picked, err := a.Chooser.ChooseSubset(ctx, a.Model, systemPrompt, string(user), o.Legal, o.MinPick, o.MaxPick)
	if err == nil {
		err = Validate(o, ActionOut{Choices: picked})
	}
	var cards []engine.Card
	if err == nil {
		cards, err = parseCards(picked)
	}
	if err != nil {
		a.fallbacks.Add(1)
		a.Log.Warn("model discard unusable, falling back", zap.Int("hand", len(hand)), zap.Error(err))
		return a.Fallback.SelectDiscards(ctx, hand, trump)
	}
	return cards, nil
}

// Rejected is logged; the engine only re-asks when the fallback itself produced a bad answer.
func (a *LLM) Rejected(err error) {
	a.Log.Warn("answer rejected by engine", zap.Error(err))
}
