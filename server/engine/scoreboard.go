package engine

import (
	"fmt"
	"strings"
)

// ScoreBoard keeps one integer score per participant, in seating order.
type ScoreBoard struct {
	order  []ParticipantID
	values map[ParticipantID]int
}

func NewScoreBoard(ids ...ParticipantID) *ScoreBoard {
	sb := &ScoreBoard{values: make(map[ParticipantID]int, len(ids))}
	for _, id := range ids {
		if _, ok := sb.values[id]; ok {
			continue
		}
		sb.order = append(sb.order, id)
		sb.values[id] = 0
	}
	return sb
}

func (sb *ScoreBoard) has(id ParticipantID) error {
	if _, ok := sb.values[id]; !ok {
		return fmt.Errorf("unknown participant %q", id)
	}
	return nil
}

func (sb *ScoreBoard) Increment(id ParticipantID, n int) error {
	if err := sb.has(id); err != nil {
		return err
	}
	sb.values[id] += n
	return nil
}

func (sb *ScoreBoard) Decrement(id ParticipantID, n int) error {
	return sb.Increment(id, -n)
}

func (sb *ScoreBoard) Set(id ParticipantID, v int) error {
	if err := sb.has(id); err != nil {
		return err
	}
	sb.values[id] = v
	return nil
}

// Score returns 0 for unknown participants.
func (sb *ScoreBoard) Score(id ParticipantID) int { return sb.values[id] }

func (sb *ScoreBoard) Participants() []ParticipantID {
	return append([]ParticipantID(nil), sb.order...)
}

// Scores is a snapshot copy.
func (sb *ScoreBoard) Scores() map[ParticipantID]int {
	out := make(map[ParticipantID]int, len(sb.values))
	for k, v := range sb.values {
		out[k] = v
	}
	return out
}

// Leaders returns every participant holding the top score, in seating order.
func (sb *ScoreBoard) Leaders() []ParticipantID {
	var out []ParticipantID
	for i, id := range sb.order {
		v := sb.values[id]
		switch {
		case i == 0 || v > sb.values[out[0]]:
			out = []ParticipantID{id}
		case v == sb.values[out[0]]:
			out = append(out, id)
		}
	}
	return out
}

// Winner is the sole leader. ok is false on a tie; no tiebreak is applied.
func (sb *ScoreBoard) Winner() (ParticipantID, bool) {
	l := sb.Leaders()
	if len(l) != 1 {
		return "", false
	}
	return l[0], true
}

// AnyAbove reports whether some score strictly exceeds threshold.
func (sb *ScoreBoard) AnyAbove(threshold int) bool {
	for _, v := range sb.values {
		if v > threshold {
			return true
		}
	}
	return false
}

func (sb *ScoreBoard) String() string {
	parts := make([]string, len(sb.order))
	for i, id := range sb.order {
		parts[i] = fmt.Sprintf("%s:%d", id, sb.values[id])
	}
	return strings.Join(parts, " ")
}
