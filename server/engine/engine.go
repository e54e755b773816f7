package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Agent makes the decisions for one seat. Answers outside the candidate set are
// rejected and asked again; any error returned by the agent ends the round.
type Agent interface {
	PlaceBid(ctx context.Context, hand []Card, current int) (int, error)
	SelectTrump(ctx context.Context, hand []Card) (Suit, error)
	SelectCard(ctx context.Context, hand []Card, trump Suit, played []Card) (Card, error)
	SelectDiscards(ctx context.Context, hand []Card, trump Suit) ([]Card, error)
}

// Rejecter is implemented by agents that want to hear why an answer was refused.
type Rejecter interface {
	Rejected(err error)
}

type Seat struct {
	ID    ParticipantID
	Agent Agent
}

const DefaultMaxAttempts = 5

type RoundConfig struct {
	Shuffle     Shuffler
	MaxAttempts int
	Logger      *zap.Logger
	Observer    Observer
}

// RoundResult summarizes a settled round.
type RoundResult struct {
	Number       int                   `json:"number"`
	Bidder       ParticipantID         `json:"bidder"`
	Bid          int                   `json:"bid"`
	ForcedBid    bool                  `json:"forced_bid"`
	Trump        Suit                  `json:"trump"`
	Kitty        []Card                `json:"kitty"`
	Discards     map[ParticipantID]int `json:"discards"`
	Tricks       []TrickResult         `json:"tricks"`
	BonusTo      ParticipantID         `json:"bonus_to,omitempty"`
	BidderBefore int                   `json:"bidder_before"`
	BidderAfter  int                   `json:"bidder_after"`
	MadeBid      bool                  `json:"made_bid"`
	Scores       map[ParticipantID]int `json:"scores"`
}

// Round drives one deal from Dealing to Terminal.
type Round struct {
	Number int

	cfg   RoundConfig
	log   *zap.Logger
	seats []Seat
	hands map[ParticipantID]*Hand
	board *ScoreBoard

	phase    Phase
	deck     *Deck
	kitty    []Card
	bid      int
	bidder   int
	forced   bool
	preScore int
	trump    Suit
	starter  int
	discards map[ParticipantID]int
	tricks   []TrickResult
	bonusTo  ParticipantID
	madeBid  bool
}

func checkSeatCount(n int) error {
	if n < 2 || n > MaxSeats {
		return fmt.Errorf("need 2 to %d seats, got %d", MaxSeats, n)
	}
	return nil
}

func NewRound(number int, seats []Seat, board *ScoreBoard, cfg RoundConfig) (*Round, error) {
	if err := checkSeatCount(len(seats)); err != nil {
		return nil, err
	}
	if board == nil {
		return nil, errors.New("nil score board")
	}
	hands := make(map[ParticipantID]*Hand, len(seats))
	for _, s := range seats {
		if s.Agent == nil {
			return nil, fmt.Errorf("seat %q has no agent", s.ID)
		}
		if _, dup := hands[s.ID]; dup {
			return nil, fmt.Errorf("duplicate seat %q", s.ID)
		}
		if err := board.has(s.ID); err != nil {
			return nil, err
		}
		hands[s.ID] = NewHand()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Shuffle == nil {
		cfg.Shuffle = SeededShuffler(0)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Round{
		Number:   number,
		cfg:      cfg,
		log:      log.With(zap.Int("round", number)),
		seats:    append([]Seat(nil), seats...),
		hands:    hands,
		board:    board,
		phase:    PhaseDealing,
		discards: make(map[ParticipantID]int, len(seats)),
	}, nil
}

func (r *Round) Phase() Phase { return r.phase }

func (r *Round) Trump() Suit { return r.trump }

// Bid returns the winning bidder and amount once bidding is over.
func (r *Round) Bid() (ParticipantID, int) {
	if r.phase <= PhaseBidding {
		return "", 0
	}
	return r.seats[r.bidder].ID, r.bid
}

func (r *Round) Kitty() []Card { return append([]Card(nil), r.kitty...) }

func (r *Round) Tricks() []TrickResult { return append([]TrickResult(nil), r.tricks...) }

// Hand returns a copy of the seat's cards.
func (r *Round) Hand(id ParticipantID) []Card {
	if h, ok := r.hands[id]; ok {
		return h.Cards()
	}
	return nil
}

func (r *Round) DeckLen() int {
	if r.deck == nil {
		return 0
	}
	return r.deck.Len()
}

func (r *Round) expect(p Phase) error {
	if r.phase != p {
		return PhaseError(fmt.Sprintf("round %d: in %s, not %s", r.Number, r.phase, p))
	}
	return nil
}

func (r *Round) emit(e Event) {
	if r.cfg.Observer == nil {
		return
	}
	e.Round = r.Number
	r.cfg.Observer.Observe(e)
}

func (r *Round) draw() (Card, error) {
	c, err := r.deck.Draw()
	if err != nil {
		return Card{}, fmt.Errorf("round %d: %w", r.Number, err)
	}
	return c, nil
}

// Play runs every remaining phase.
func (r *Round) Play(ctx context.Context) (RoundResult, error) {
	if r.phase == PhaseDealing {
		if err := r.Deal(); err != nil {
			return RoundResult{}, err
		}
	}
	if r.phase == PhaseBidding {
		if err := r.RunBidding(ctx); err != nil {
			return RoundResult{}, err
		}
	}
	if r.phase == PhaseTrumpSelection {
		if err := r.RunTrumpSelection(ctx); err != nil {
			return RoundResult{}, err
		}
	}
	if r.phase == PhaseExchange {
		if err := r.RunExchange(ctx); err != nil {
			return RoundResult{}, err
		}
	}
	for r.phase == PhaseTricks {
		if _, err := r.PlayTrick(ctx); err != nil {
			return RoundResult{}, err
		}
	}
	return r.Settle()
}

// Deal shuffles a fresh deck and hands out 3 each, 3 to the kitty, then 2 each.
func (r *Round) Deal() error {
	if err := r.expect(PhaseDealing); err != nil {
		return err
	}
	r.deck = NewDeck()
	if err := r.deck.Shuffle(r.cfg.Shuffle); err != nil {
		return err
	}
	for _, s := range r.seats {
		for i := 0; i < 3; i++ {
			c, err := r.draw()
			if err != nil {
				return err
			}
			r.hands[s.ID].Add(c)
		}
	}
	for i := 0; i < KittySize; i++ {
		c, err := r.draw()
		if err != nil {
			return err
		}
		r.kitty = append(r.kitty, c)
	}
	for _, s := range r.seats {
		for i := 0; i < HandSize-3; i++ {
			c, err := r.draw()
			if err != nil {
				return err
			}
			r.hands[s.ID].Add(c)
		}
	}
	r.log.Debug("dealt", zap.Int("seats", len(r.seats)), zap.Int("deck_left", r.deck.Len()))
	for _, s := range r.seats {
		r.emit(Event{Kind: EventDeal, Seat: s.ID, Cards: r.hands[s.ID].Cards()})
	}
	r.phase = PhaseBidding
	return nil
}

func recoverable(err error) bool {
	return errors.Is(err, ErrIllegalMove) || errors.Is(err, ErrInvalidDiscard)
}

// attempt asks until try succeeds, try fails unrecoverably, or attempts run out.
func (r *Round) attempt(ctx context.Context, s Seat, what string, try func() error) error {
	var last error
	for i := 0; i < r.cfg.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := try()
		if err == nil {
			return nil
		}
		if !recoverable(err) {
			return fmt.Errorf("round %d %s by %s: %w", r.Number, what, s.ID, err)
		}
		last = err
		r.log.Warn("answer rejected", zap.String("seat", string(s.ID)), zap.String("decision", what),
			zap.Int("attempt", i+1), zap.Error(err))
		r.emit(Event{Kind: EventRejected, Seat: s.ID, Err: err})
		if rj, ok := s.Agent.(Rejecter); ok {
			rj.Rejected(err)
		}
	}
	return fmt.Errorf("round %d %s by %s: no legal answer in %d attempts: %w", r.Number, what, s.ID, r.cfg.MaxAttempts, last)
}

// RunBidding asks each seat once, in seat order. If all pass, seat 0 is forced to the minimum bid.
func (r *Round) RunBidding(ctx context.Context) error {
	if err := r.expect(PhaseBidding); err != nil {
		return err
	}
	for i, s := range r.seats {
		var bid int
		err := r.attempt(ctx, s, "bid", func() error {
			b, err := s.Agent.PlaceBid(ctx, r.hands[s.ID].Cards(), r.bid)
			if err != nil {
				return err
			}
			if !IsValidBid(r.bid, b) {
				return fmt.Errorf("%w: bid %d over %d, valid %v", ErrIllegalMove, b, r.bid, SelectValidBids(r.bid))
			}
			bid = b
			return nil
		})
		if err != nil {
			return err
		}
		r.emit(Event{Kind: EventBid, Seat: s.ID, Bid: bid})
		if bid > r.bid {
			r.bid, r.bidder = bid, i
		}
	}
	if r.bid == 0 {
		r.bid, r.bidder, r.forced = Bids[0], 0, true
		r.emit(Event{Kind: EventForcedBid, Seat: r.seats[0].ID, Bid: r.bid})
	}
	bidder := r.seats[r.bidder].ID
	r.preScore = r.board.Score(bidder)
	r.log.Info("bidding closed", zap.String("bidder", string(bidder)), zap.Int("bid", r.bid), zap.Bool("forced", r.forced))
	r.phase = PhaseTrumpSelection
	return nil
}

// RunTrumpSelection lets the bidder name the playing suit.
func (r *Round) RunTrumpSelection(ctx context.Context) error {
	if err := r.expect(PhaseTrumpSelection); err != nil {
		return err
	}
	s := r.seats[r.bidder]
	err := r.attempt(ctx, s, "trump", func() error {
		suit, err := s.Agent.SelectTrump(ctx, r.hands[s.ID].Cards())
		if err != nil {
			return err
		}
		if !suit.Valid() {
			return fmt.Errorf("%w: suit %q", ErrIllegalMove, string(suit))
		}
		r.trump = suit
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Info("trump selected", zap.String("bidder", string(s.ID)), zap.String("trump", string(r.trump)))
	r.emit(Event{Kind: EventTrump, Seat: s.ID, Suit: r.trump})
	r.phase = PhaseExchange
	return nil
}

// ExchangeCandidates is what a seat may discard. It is SelectDiscardable, widened to
// the whole hand when even discarding every out-of-suit card would keep more than HandSize.
func ExchangeCandidates(trump Suit, hand []Card) []Card {
	d := SelectDiscardable(trump, hand)
	if len(hand)-len(d) > HandSize {
		return append([]Card(nil), hand...)
	}
	return d
}

// ValidateDiscards checks a discard answer against the hand's candidates and keep bounds.
func ValidateDiscards(trump Suit, hand []Card, discards []Card) error {
	candidates := ExchangeCandidates(trump, hand)
	seen := make(map[Card]bool, len(discards))
	for _, c := range discards {
		if seen[c] {
			return fmt.Errorf("%w: %s discarded twice", ErrIllegalMove, c)
		}
		seen[c] = true
		if !containsCard(candidates, c) {
			return fmt.Errorf("%w: %s is not discardable, candidates %s", ErrIllegalMove, c, FormatCards(candidates))
		}
	}
	kept := len(hand) - len(discards)
	if kept < MinimumKeep {
		return fmt.Errorf("%w: keeps %d, minimum %d", ErrInvalidDiscard, kept, MinimumKeep)
	}
	if kept > HandSize {
		return fmt.Errorf("%w: keeps %d, maximum %d", ErrInvalidDiscard, kept, HandSize)
	}
	return nil
}

// RunExchange gives the kitty to the bidder, then lets every seat from the bidder on
// discard and draw back up to HandSize.
func (r *Round) RunExchange(ctx context.Context) error {
	if err := r.expect(PhaseExchange); err != nil {
		return err
	}
	bidder := r.seats[r.bidder]
	for _, c := range r.kitty {
		r.hands[bidder.ID].Add(c)
	}
	r.emit(Event{Kind: EventKitty, Seat: bidder.ID, Cards: r.Kitty()})

	n := len(r.seats)
	for k := 0; k < n; k++ {
		s := r.seats[(r.bidder+k)%n]
		hand := r.hands[s.ID]
		var discards []Card
		err := r.attempt(ctx, s, "discard", func() error {
			d, err := s.Agent.SelectDiscards(ctx, hand.Cards(), r.trump)
			if err != nil {
				return err
			}
			if err := ValidateDiscards(r.trump, hand.Cards(), d); err != nil {
				return err
			}
			discards = d
			return nil
		})
		if err != nil {
			return err
		}
		for _, c := range discards {
			if err := hand.Remove(c); err != nil {
				return err
			}
		}
		r.discards[s.ID] = len(discards)
		for hand.Len() < HandSize {
			c, err := r.draw()
			if err != nil {
				return err
			}
			hand.Add(c)
		}
		r.log.Debug("exchanged", zap.String("seat", string(s.ID)), zap.Int("discarded", len(discards)))
		r.emit(Event{Kind: EventDiscard, Seat: s.ID, Cards: discards})
	}
	r.starter = r.bidder
	r.phase = PhaseTricks
	return nil
}

// PlayTrick plays one trick starting from the previous winner (the bidder for the first).
func (r *Round) PlayTrick(ctx context.Context) (TrickResult, error) {
	if err := r.expect(PhaseTricks); err != nil {
		return TrickResult{}, err
	}
	n := len(r.seats)
	number := len(r.tricks) + 1
	leader := r.seats[r.starter].ID
	var (
		played []Card
		plays  []Play
	)
	for k := 0; k < n; k++ {
		s := r.seats[(r.starter+k)%n]
		hand := r.hands[s.ID]
		if hand.Len() == 0 {
			return TrickResult{}, fmt.Errorf("round %d trick %d: %s has no cards", r.Number, number, s.ID)
		}
		var card Card
		err := r.attempt(ctx, s, "play", func() error {
			c, err := s.Agent.SelectCard(ctx, hand.Cards(), r.trump, append([]Card(nil), played...))
			if err != nil {
				return err
			}
			legal := SelectLegalPlays(r.trump, hand.Cards(), played)
			if !containsCard(legal, c) {
				return fmt.Errorf("%w: %s not in legal plays %s", ErrIllegalMove, c, FormatCards(legal))
			}
			card = c
			return nil
		})
		if err != nil {
			return TrickResult{}, err
		}
		if err := hand.Remove(card); err != nil {
			return TrickResult{}, err
		}
		played = append(played, card)
		plays = append(plays, Play{Seat: s.ID, Card: card})
		r.emit(Event{Kind: EventPlay, Seat: s.ID, Trick: number, Cards: []Card{card}})
	}

	w, err := ResolveTrick(r.trump, played)
	if err != nil {
		return TrickResult{}, fmt.Errorf("round %d trick %d: %w", r.Number, number, err)
	}
	winnerIdx := (r.starter + w) % n
	winner := r.seats[winnerIdx].ID
	if err := r.board.Increment(winner, TrickPoints); err != nil {
		return TrickResult{}, err
	}
	res := TrickResult{Number: number, Leader: leader, Plays: plays, Winner: winner, WinningCard: played[w]}
	r.tricks = append(r.tricks, res)
	r.starter = winnerIdx
	r.log.Debug("trick won", zap.Int("trick", number), zap.String("winner", string(winner)),
		zap.Stringer("card", played[w]))
	r.emit(Event{Kind: EventTrick, Seat: winner, Trick: number, Cards: []Card{played[w]}, Points: TrickPoints})
	if len(r.tricks) == TricksPerRound {
		r.phase = PhaseSettlement
	}
	return res, nil
}

// Settle pays the highest-trump bonus and applies the failed-bid penalty.
func (r *Round) Settle() (RoundResult, error) {
	if err := r.expect(PhaseSettlement); err != nil {
		return RoundResult{}, err
	}
	winning := make([]Card, len(r.tricks))
	for i, t := range r.tricks {
		winning[i] = t.WinningCard
	}
	// No bonus when no trick was won with a trump.
	if len(InSuitCards(r.trump, winning)) > 0 {
		best, err := HighestInSuit(r.trump, winning)
		if err != nil {
			return RoundResult{}, fmt.Errorf("round %d settlement: %w", r.Number, err)
		}
		for _, t := range r.tricks {
			if t.WinningCard == best {
				if err := r.board.Increment(t.Winner, BonusPoints); err != nil {
					return RoundResult{}, err
				}
				r.bonusTo = t.Winner
				r.emit(Event{Kind: EventBonus, Seat: t.Winner, Cards: []Card{best}, Points: BonusPoints})
				break
			}
		}
	}

	bidder := r.seats[r.bidder].ID
	gain := r.board.Score(bidder) - r.preScore
	r.madeBid = gain >= r.bid
	if !r.madeBid {
		if err := r.board.Set(bidder, r.preScore-r.bid); err != nil {
			return RoundResult{}, err
		}
		r.emit(Event{Kind: EventBidFailed, Seat: bidder, Bid: r.bid, Points: gain})
	}
	r.log.Info("round settled", zap.String("bidder", string(bidder)), zap.Int("bid", r.bid),
		zap.Int("gain", gain), zap.Bool("made", r.madeBid), zap.String("scores", r.board.String()))
	r.phase = PhaseTerminal
	r.emit(Event{Kind: EventRoundEnd, Seat: bidder, Bid: r.bid, Points: gain, Scores: r.board.Scores()})
	return r.Result(), nil
}

// Result is valid once the round is Terminal.
func (r *Round) Result() RoundResult {
	res := RoundResult{
		Number:    r.Number,
		Bid:       r.bid,
		ForcedBid: r.forced,
		Trump:     r.trump,
		Kitty:     r.Kitty(),
		Discards:  make(map[ParticipantID]int, len(r.discards)),
		Tricks:    r.Tricks(),
		BonusTo:   r.bonusTo,
		MadeBid:   r.madeBid,
		Scores:    r.board.Scores(),
	}
	for k, v := range r.discards {
		res.Discards[k] = v
	}
	if r.phase > PhaseBidding {
		res.Bidder = r.seats[r.bidder].ID
		res.BidderBefore = r.preScore
		res.BidderAfter = r.board.Score(res.Bidder)
	}
	return res
}
