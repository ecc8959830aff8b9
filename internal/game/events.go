package game

// EventType enumerates observable consequences of a transition.
type EventType string

const (
	EventCardPlayed     EventType = "cardPlayed"
	EventPriestPeek     EventType = "priestPeek"
	EventBaronReveal    EventType = "baronReveal"
	EventGuardReveal    EventType = "guardReveal"
	EventPrinceDiscard  EventType = "princeDiscard"
	EventKingSwap       EventType = "kingSwap"
	EventEliminated     EventType = "eliminated"
	EventChancellorDraw EventType = "chancellorDraw"
	EventRoundOver      EventType = "roundOver"
	EventGameOver       EventType = "gameOver"
)

// Event describes one observable consequence of a transition. Only is the
// visibility filter: nil means broadcast to the whole room, otherwise the
// event may be shown only to the listed player ids. The room translates
// events into protocol messages after storing the new state.
type Event struct {
	Type     EventType
	Only     []string // nil = broadcast
	ActorID  string
	TargetID string
	Card     Card
	HasCard  bool // Card is meaningful (zero value collides with Spy)
	Card2    Card // second card for swaps and Baron comparisons
	Guess    Card
	Hit      bool
	Fizzled  bool
	Result   *RoundResult
	WinnerID string
}
