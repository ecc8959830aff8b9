package game

// Phase is the coarse lifecycle of a room's game.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseRoundEnd Phase = "roundEnd"
	PhaseGameOver Phase = "gameOver"
)

// TurnPhase is the fine-grained cursor inside a single turn.
type TurnPhase string

const (
	TurnDrawing         TurnPhase = "drawing"
	TurnChoosing        TurnPhase = "choosing"
	TurnSelectingTarget TurnPhase = "selectingTarget"
	TurnGuardGuessing   TurnPhase = "guardGuessing"
	TurnChancellorPick  TurnPhase = "chancellorPick"
)

// KnowledgeSource says how a piece of hand knowledge was acquired.
type KnowledgeSource string

const (
	SourcePriest KnowledgeSource = "priest"
	SourceBaron  KnowledgeSource = "baron"
	SourceKing   KnowledgeSource = "king"
)

// Knowledge is one player's private memory of another player's hand card.
// It is removed as soon as the referenced hand changes.
type Knowledge struct {
	AboutID string
	Card    Card
	Source  KnowledgeSource
}

// Player is one seat at the table. Identity and Tokens persist across
// rounds; everything else is reset when a new round is dealt.
type Player struct {
	ID         string
	Name       string
	IsBot      bool
	Difficulty string
	Hand       []Card
	Discards   []Card
	Alive      bool
	Protected  bool
	Tokens     int
	PlayedSpy  bool
	Known      []Knowledge
}

// RoundEndReason classifies how a round was decided.
type RoundEndReason string

const (
	ReasonLastStanding RoundEndReason = "lastStanding"
	ReasonHighestCard  RoundEndReason = "highestCard"
	ReasonTiebreak     RoundEndReason = "tiebreak"
)

// RoundResult records the outcome of a finished round. RevealedHands is
// populated only on deck-exhaustion endings. SpyBonusID is set when
// exactly one alive player had played a Spy.
type RoundResult struct {
	WinnerIDs     []string
	Reason        RoundEndReason
	RevealedHands map[string]Card
	SpyBonusID    string
}

// Pending is the card currently being resolved together with its
// accumulating target selection.
type Pending struct {
	Card     Card
	ActorID  string
	TargetID string
}

// State is the authoritative game state of one room. All transitions are
// pure: they deep-clone the state, mutate the clone, and return it.
type State struct {
	Phase           Phase
	Players         []*Player // seat order = turn order
	Deck            []Card    // back of the slice is the next draw
	SetAside        []Card    // zero or one card, never revealed
	FaceUp          []Card    // 2-player variant only, public
	Current         int
	Turn            TurnPhase
	Round           int
	LastResult      *RoundResult
	ChancellorDrawn []Card // cards drawn by a pending Chancellor, actor-visible only
	Pending         *Pending
	WinnerID        string
	TokensToWin     int
}

// MaxPlayers is the seat limit per room.
const MaxPlayers = 6

// MinPlayers is the minimum needed to start a game.
const MinPlayers = 2

// TokensToWin returns the round-win threshold for a given player count.
func TokensToWin(playerCount int) int {
	switch playerCount {
	case 2:
		return 6
	case 3:
		return 5
	case 4:
		return 4
	default:
		return 3
	}
}

// NewLobby creates an empty pre-game state.
func NewLobby() *State {
	return &State{
		Phase:   PhaseLobby,
		Players: make([]*Player, 0, MaxPlayers),
		Round:   0,
	}
}

// Clone deep-copies the state so transitions never alias the original.
func (s *State) Clone() *State {
	out := &State{
		Phase:           s.Phase,
		Players:         make([]*Player, len(s.Players)),
		Deck:            append([]Card(nil), s.Deck...),
		SetAside:        append([]Card(nil), s.SetAside...),
		FaceUp:          append([]Card(nil), s.FaceUp...),
		Current:         s.Current,
		Turn:            s.Turn,
		Round:           s.Round,
		ChancellorDrawn: append([]Card(nil), s.ChancellorDrawn...),
		WinnerID:        s.WinnerID,
		TokensToWin:     s.TokensToWin,
	}
	for i, p := range s.Players {
		cp := *p
		cp.Hand = append([]Card(nil), p.Hand...)
		cp.Discards = append([]Card(nil), p.Discards...)
		cp.Known = append([]Knowledge(nil), p.Known...)
		out.Players[i] = &cp
	}
	if s.LastResult != nil {
		res := *s.LastResult
		res.WinnerIDs = append([]string(nil), s.LastResult.WinnerIDs...)
		if s.LastResult.RevealedHands != nil {
			res.RevealedHands = make(map[string]Card, len(s.LastResult.RevealedHands))
			for id, c := range s.LastResult.RevealedHands {
				res.RevealedHands[id] = c
			}
		}
		out.LastResult = &res
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}

// PlayerByID returns the seat with the given id, or nil.
func (s *State) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// CurrentPlayer returns the acting player, or nil outside of a round.
func (s *State) CurrentPlayer() *Player {
	if s.Current < 0 || s.Current >= len(s.Players) {
		return nil
	}
	return s.Players[s.Current]
}

// AliveCount returns the number of players still in the round.
func (s *State) AliveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Alive {
			n++
		}
	}
	return n
}

// nextAliveFrom returns the index of the next alive seat after idx,
// wrapping around and skipping eliminated players.
func (s *State) nextAliveFrom(idx int) int {
	for i := 1; i <= len(s.Players); i++ {
		j := (idx + i) % len(s.Players)
		if s.Players[j].Alive {
			return j
		}
	}
	return idx
}

// forgetHand drops every other player's knowledge about id's hand.
// Called whenever that hand changes in a way observers cannot track.
func (s *State) forgetHand(id string) {
	for _, p := range s.Players {
		kept := p.Known[:0]
		for _, k := range p.Known {
			if k.AboutID != id {
				kept = append(kept, k)
			}
		}
		p.Known = kept
	}
}

// forgetCard drops knowledge entries that named a specific card in id's
// hand, used when that card was just played face-up.
func (s *State) forgetCard(id string, card Card) {
	for _, p := range s.Players {
		kept := p.Known[:0]
		for _, k := range p.Known {
			if k.AboutID == id && k.Card == card {
				continue
			}
			kept = append(kept, k)
		}
		p.Known = kept
	}
}

// learn records fresh knowledge, replacing any stale entry about the same
// player first.
func (p *Player) learn(aboutID string, card Card, source KnowledgeSource) {
	kept := p.Known[:0]
	for _, k := range p.Known {
		if k.AboutID != aboutID {
			kept = append(kept, k)
		}
	}
	p.Known = append(kept, Knowledge{AboutID: aboutID, Card: card, Source: source})
}

// knownCardOf returns what p believes aboutID is holding, if anything.
func (p *Player) knownCardOf(aboutID string) (Card, bool) {
	for _, k := range p.Known {
		if k.AboutID == aboutID {
			return k.Card, true
		}
	}
	return 0, false
}
