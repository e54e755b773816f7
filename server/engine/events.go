package engine

type EventKind string

const (
	EventDeal      EventKind = "deal"
	EventBid       EventKind = "bid"
	EventForcedBid EventKind = "forced_bid"
	EventTrump     EventKind = "trump"
	EventKitty     EventKind = "kitty"
	EventDiscard   EventKind = "discard"
	EventPlay      EventKind = "play"
	EventTrick     EventKind = "trick"
	EventBonus     EventKind = "bonus"
	EventBidFailed EventKind = "bid_failed"
	EventRejected  EventKind = "rejected"
	EventRoundEnd  EventKind = "round_end"
)

// Event is emitted as the round progresses. Only the fields relevant to Kind are set.
// Deal events carry the seat's private hand; renderers decide what to show.
type Event struct {
	Kind   EventKind
	Round  int
	Seat   ParticipantID
	Bid    int
	Suit   Suit
	Trick  int
	Cards  []Card
	Points int
	Scores map[ParticipantID]int
	Err    error
}

type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans an event out to each non-nil observer.
type Observers []Observer

func (os Observers) Observe(e Event) {
	for _, o := range os {
		if o != nil {
			o.Observe(e)
		}
	}
}
