package main

import (
	"math"
	"sort"
)

// Glicko-2 paper constants.
const (
	g2Scale = 173.7178 // r <-> mu
	pi2     = math.Pi * math.Pi
)

// Glicko2 holds one agent's public values on the 1500 scale.
type Glicko2 struct {
	Rating     float64
	RD         float64
	Volatility float64
	Games      int
}

func NewGlicko2() *Glicko2 {
	return &Glicko2{Rating: 1500, RD: 350, Volatility: 0.06}
}

func toMuPhi(r, rd float64) (mu, phi float64)   { return (r - 1500.0) / g2Scale, rd / g2Scale }
func fromMuPhi(mu, phi float64) (r, rd float64) { return mu*g2Scale + 1500.0, phi * g2Scale }

func gPhi(phi float64) float64 { return 1.0 / math.Sqrt(1.0+3.0*phi*phi/pi2) }
func gExp(mu, muj, phij float64) float64 {
	return 1.0 / (1.0 + math.Exp(-gPhi(phij)*(mu-muj)))
}

// opponent is another seat as it stood before the game, and the score against it.
type opponent struct {
	rating, rd float64
	s          float64
}

// update is the Glicko-2 rating-period step against every opponent of one game.
func (a *Glicko2) update(opps []opponent, tau float64) {
	muA, phiA := toMuPhi(a.Rating, a.RD)
	a.Games++
	if len(opps) == 0 {
		a.Rating, a.RD = fromMuPhi(muA, math.Sqrt(phiA*phiA+a.Volatility*a.Volatility))
		return
	}

	var sumG2E, sumGSE float64
	for _, o := range opps {
		muB, phiB := toMuPhi(o.rating, o.rd)
		gB := gPhi(phiB)
		e := gExp(muA, muB, phiB)
		sumG2E += gB * gB * e * (1.0 - e)
		sumGSE += gB * (o.s - e)
	}
	v := 1.0 / sumG2E
	delta := v * sumGSE

	vol := a.Volatility
	if math.Abs(delta) >= 1e-12 {
		vol = solveVolatility(delta, phiA, v, a.Volatility, tau)
	}
	phiStar := math.Sqrt(phiA*phiA + vol*vol)
	phiNew := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muNew := muA + phiNew*phiNew*sumGSE

	a.Rating, a.RD = fromMuPhi(muNew, phiNew)
	a.Volatility = vol
}

// solveVolatility finds sigma' with the Illinois iteration from the Glicko-2 paper.
func solveVolatility(delta, phi, v, sigma, tau float64) float64 {
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta*delta - phi*phi - v - ex)
		den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
		return num/den - (x-a)/(tau*tau)
	}
	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 && k < 1e6 {
			k++
		}
		B = a - k*tau
	}
	fA, fB := f(A), f(B)
	for it := 0; it < 100 && math.Abs(B-A) > 1e-6; it++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if math.IsNaN(fC) || math.IsInf(fC, 0) {
			break
		}
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2.0)
}

// GlickoTable rates bench seats. Each game is one rating period in which every
// seat met every other seat once, scored like Elo.UpdateGame.
type GlickoTable struct {
	Players map[string]*Glicko2
	Tau     float64
}

func NewGlickoTable(tau float64) *GlickoTable {
	return &GlickoTable{Players: make(map[string]*Glicko2), Tau: tau}
}

func (t *GlickoTable) get(label string) *Glicko2 {
	p, ok := t.Players[label]
	if !ok {
		p = NewGlicko2()
		t.Players[label] = p
	}
	return p
}

func (t *GlickoTable) UpdateGame(scores map[string]int) {
	labels := make([]string, 0, len(scores))
	for l := range scores {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	before := make(map[string]Glicko2, len(labels))
	for _, l := range labels {
		before[l] = *t.get(l)
	}
	for _, a := range labels {
		opps := make([]opponent, 0, len(labels)-1)
		for _, b := range labels {
			if a == b {
				continue
			}
			opps = append(opps, opponent{rating: before[b].Rating, rd: before[b].RD, s: pairScore(scores[a], scores[b])})
		}
		t.Players[a].update(opps, t.Tau)
	}
}
