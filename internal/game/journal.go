package game

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Journal records every input fed to the engine during one game. Because
// transitions are pure and all randomness flows from the seeded rng, the
// journal plus the seed reproduces the game exactly; a mismatch on replay
// means an engine determinism bug.
type Journal struct {
	Seed    int64
	Players []JournalPlayer
	Entries []JournalEntry
}

// JournalPlayer is the seat list the game started from.
type JournalPlayer struct {
	ID         string
	Name       string
	IsBot      bool
	Difficulty string
}

// Journal operation names.
const (
	OpStartGame      = "startGame"
	OpStartNextRound = "startNextRound"
	OpPlayCard       = "playCard"
	OpSelectTarget   = "selectTarget"
	OpGuessCard      = "guessCard"
	OpChancellorKeep = "chancellorKeep"
	OpResign         = "resign"
)

// JournalEntry is one engine input. Only the fields relevant to Op are
// meaningful.
type JournalEntry struct {
	Op        string
	ActorID   string
	CardIndex int
	TargetID  string
	Guess     Card
	KeepIndex int
}

// NewJournal starts a journal for a lobby about to begin playing under
// the given seed.
func NewJournal(s *State, seed int64) *Journal {
	j := &Journal{Seed: seed}
	for _, p := range s.Players {
		j.Players = append(j.Players, JournalPlayer{
			ID: p.ID, Name: p.Name, IsBot: p.IsBot, Difficulty: p.Difficulty,
		})
	}
	return j
}

// Record appends one input.
func (j *Journal) Record(e JournalEntry) {
	j.Entries = append(j.Entries, e)
}

// Replay rebuilds the lobby and reapplies every recorded input with a
// fresh rng from the journal's seed, returning the final state.
func (j *Journal) Replay() (*State, error) {
	rng := rand.New(rand.NewSource(j.Seed))
	s := NewLobby()
	for _, p := range j.Players {
		s.Players = append(s.Players, &Player{
			ID: p.ID, Name: p.Name, IsBot: p.IsBot, Difficulty: p.Difficulty,
		})
	}
	var err error
	for i, e := range j.Entries {
		switch e.Op {
		case OpStartGame:
			s, _, err = StartGame(s, rng)
		case OpStartNextRound:
			s, _, err = StartNextRound(s, rng)
		case OpPlayCard:
			s, _, err = PlayCard(s, e.ActorID, e.CardIndex, rng)
		case OpSelectTarget:
			s, _, err = SelectTarget(s, e.ActorID, e.TargetID, rng)
		case OpGuessCard:
			s, _, err = GuessCard(s, e.ActorID, e.Guess, rng)
		case OpChancellorKeep:
			s, _, err = ChancellorKeep(s, e.ActorID, e.KeepIndex, rng)
		case OpResign:
			s, _, err = Resign(s, e.ActorID, rng)
		default:
			return nil, fmt.Errorf("journal entry %d: unknown op %q", i, e.Op)
		}
		if err != nil {
			return nil, fmt.Errorf("journal entry %d (%s): %w", i, e.Op, err)
		}
	}
	return s, nil
}

// Fingerprint is a deterministic digest of the full game state,
// independent of map iteration order. Equal fingerprints mean equal
// states.
func (s *State) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "phase:%s turn:%s round:%d current:%d ttw:%d winner:%s\n",
		s.Phase, s.Turn, s.Round, s.Current, s.TokensToWin, s.WinnerID)
	fmt.Fprintf(&b, "deck:%v setAside:%v faceUp:%v chancellor:%v\n",
		s.Deck, s.SetAside, s.FaceUp, s.ChancellorDrawn)
	if s.Pending != nil {
		fmt.Fprintf(&b, "pending:%s/%s/%s\n", s.Pending.Card, s.Pending.ActorID, s.Pending.TargetID)
	}
	for _, p := range s.Players {
		fmt.Fprintf(&b, "player:%s hand:%v discards:%v alive:%t protected:%t tokens:%d spy:%t\n",
			p.ID, p.Hand, p.Discards, p.Alive, p.Protected, p.Tokens, p.PlayedSpy)
		known := append([]Knowledge(nil), p.Known...)
		sort.Slice(known, func(i, j int) bool { return known[i].AboutID < known[j].AboutID })
		for _, k := range known {
			fmt.Fprintf(&b, "  knows:%s=%s via %s\n", k.AboutID, k.Card, k.Source)
		}
	}
	if s.LastResult != nil {
		fmt.Fprintf(&b, "result:%s winners:%v spy:%s\n",
			s.LastResult.Reason, s.LastResult.WinnerIDs, s.LastResult.SpyBonusID)
		ids := make([]string, 0, len(s.LastResult.RevealedHands))
		for id := range s.LastResult.RevealedHands {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "  revealed:%s=%s\n", id, s.LastResult.RevealedHands[id])
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
