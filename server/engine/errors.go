package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCard    = errors.New("invalid card")
	ErrDuplicateCard  = fmt.Errorf("%w: duplicate card", ErrInvalidCard)
	ErrDeckExhausted  = errors.New("deck exhausted")
	ErrCardNotInHand  = errors.New("card not in hand")
	ErrInvalidDiscard = errors.New("invalid discard")
	ErrEmptyTrick     = errors.New("trick has no plays")
	ErrNoCardsInSuit  = errors.New("no cards in suit")
	ErrIllegalMove    = errors.New("illegal move")
)

// PhaseError reports a round step called outside its phase.
type PhaseError string

func (e PhaseError) Error() string { return string(e) }
