package main

import (
	"math"
	"sort"
)

// Elo rates every agent label seen at the table. A game with n seats is scored as
// n-1 head-to-head results per seat, so K is shared across the opponents.
type Elo struct {
	Ratings map[string]float64
	Start   float64
	K       float64
	Games   int
}

func NewElo(start, k float64) *Elo {
	return &Elo{Ratings: make(map[string]float64), Start: start, K: k}
}

// Rating returns the current rating, seeding unseen labels at Start.
func (e *Elo) Rating(label string) float64 {
	if r, ok := e.Ratings[label]; ok {
		return r
	}
	e.Ratings[label] = e.Start
	return e.Start
}

// Set overrides a rating, e.g. with one loaded from the ledger.
func (e *Elo) Set(label string, r float64) { e.Ratings[label] = r }

func expect(ra, rb float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (rb-ra)/400.0))
}

// pairScore is 1, 0.5 or 0 for a against b by final score.
func pairScore(a, b int) float64 {
	switch {
	case a > b:
		return 1
	case a == b:
		return 0.5
	}
	return 0
}

// UpdateGame applies one finished game. scores is keyed by agent label; labels
// that share a seat name must be merged by the caller. Returns the applied deltas.
func (e *Elo) UpdateGame(scores map[string]int) map[string]float64 {
	labels := make([]string, 0, len(scores))
	for l := range scores {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	deltas := make(map[string]float64, len(labels))
	n := len(labels)
	if n < 2 {
		return deltas
	}
	before := make(map[string]float64, n)
	for _, l := range labels {
		before[l] = e.Rating(l)
	}
	k := e.K / float64(n-1)
	for _, a := range labels {
		var sum float64
		for _, b := range labels {
			if a == b {
				continue
			}
			sum += pairScore(scores[a], scores[b]) - expect(before[a], before[b])
		}
		deltas[a] = k * sum
	}
	for _, l := range labels {
		e.Ratings[l] = before[l] + deltas[l]
	}
	e.Games++
	return deltas
}

// Ranked lists labels by rating, highest first.
func (e *Elo) Ranked() []string {
	out := make([]string, 0, len(e.Ratings))
	for l := range e.Ratings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if e.Ratings[out[i]] != e.Ratings[out[j]] {
			return e.Ratings[out[i]] > e.Ratings[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
