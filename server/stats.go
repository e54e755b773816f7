package main

import (
	"math"
	"math/rand"
	"sort"

	"fortyfives/server/engine"
)

// AgentStats accumulates bench results for one agent label.
type AgentStats struct {
	Label  string
	Games  int
	Wins   int
	Ties   int // shared top score
	Capped int

	Rounds     int
	BidsWon    int // rounds this agent was the bidder
	ForcedBids int
	BidsMade   int
	BidsFailed int
	Tricks     int
	Bonuses    int

	FinalScores []float64
}

func (s *AgentStats) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return (float64(s.Wins) + 0.5*float64(s.Ties)) / float64(s.Games)
}

func (s *AgentStats) MakeRate() float64 {
	if s.BidsWon == 0 {
		return 0
	}
	return float64(s.BidsMade) / float64(s.BidsWon)
}

// BenchStats is keyed by agent label. Seats with the same label pool together.
type BenchStats map[string]*AgentStats

func (b BenchStats) get(label string) *AgentStats {
	s, ok := b[label]
	if !ok {
		s = &AgentStats{Label: label}
		b[label] = s
	}
	return s
}

// Record folds one game into the totals. labels maps seat ids to agent labels.
func (b BenchStats) Record(res engine.GameResult, labels map[engine.ParticipantID]string) {
	tied := res.Winner == "" && len(res.Leaders) > 1
	leader := make(map[engine.ParticipantID]bool, len(res.Leaders))
	for _, id := range res.Leaders {
		leader[id] = true
	}
	for _, id := range res.Seats {
		s := b.get(labels[id])
		s.Games++
		s.Rounds += len(res.Rounds)
		s.FinalScores = append(s.FinalScores, float64(res.Scores[id]))
		switch {
		case res.Winner == id:
			s.Wins++
		case tied && leader[id]:
			s.Ties++
		}
		if res.Capped {
			s.Capped++
		}
	}
	for _, r := range res.Rounds {
		s := b.get(labels[r.Bidder])
		s.BidsWon++
		if r.ForcedBid {
			s.ForcedBids++
		}
		if r.MadeBid {
			s.BidsMade++
		} else {
			s.BidsFailed++
		}
		for _, t := range r.Tricks {
			b.get(labels[t.Winner]).Tricks++
		}
		if r.BonusTo != "" {
			b.get(labels[r.BonusTo]).Bonuses++
		}
	}
}

// Sorted returns the stats by win rate, best first.
func (b BenchStats) Sorted() []*AgentStats {
	out := make([]*AgentStats, 0, len(b))
	for _, s := range b {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WinRate() != out[j].WinRate() {
			return out[i].WinRate() > out[j].WinRate()
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// --------- CI helpers ---------

// WilsonCI95 for a Bernoulli win rate, counting ties as half a win.
func WilsonCI95(wins, ties, total int) (low, hi float64) {
	if total <= 0 {
		return 0, 1
	}
	z := 1.96
	n := float64(total)
	p := (float64(wins) + 0.5*float64(ties)) / n
	den := 1 + (z*z)/n
	center := p + (z*z)/(2*n)
	half := z * math.Sqrt((p*(1-p))/n+(z*z)/(4*n*n))
	return (center - half) / den, (center + half) / den
}

// BootstrapCI95 for the mean of vals (final scores per game).
func BootstrapCI95(rng *rand.Rand, vals []float64, B int) (low, hi float64) {
	n := len(vals)
	if n == 0 || B <= 1 {
		return 0, 0
	}
	res := make([]float64, B)
	for b := 0; b < B; b++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += vals[rng.Intn(n)]
		}
		res[b] = sum / float64(n)
	}
	sort.Float64s(res)
	l := int(0.025 * float64(B-1))
	h := int(0.975 * float64(B-1))
	return res[l], res[h]
}
