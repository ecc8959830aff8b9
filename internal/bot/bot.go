// Package bot implements the computer opponents. A bot is a pure policy
// over the engine's query functions: given a state and a seat it returns
// the action for whatever the turn machine is waiting on. All randomness
// comes from the caller's rng so decisions are reproducible in tests.
package bot

import (
	"math/rand"

	"github.com/loveletter-online/server-go/internal/game"
)

// Difficulty selects the decision tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty normalizes a client-supplied difficulty, defaulting to
// medium on anything unrecognized.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case Easy, Medium, Hard:
		return Difficulty(s)
	default:
		return Medium
	}
}

// Decision carries the answer for the turn phase the engine is in. Only
// the field matching the phase is meaningful.
type Decision struct {
	CardIndex      int
	TargetID       string
	Guess          game.Card
	ChancellorKeep int
}

// chance of a hard bot playing Countess as a bluff when not forced to.
const countessBluffChance = 0.10

// Decide returns the acting seat's move for the current turn phase.
func Decide(s *game.State, actorIndex int, difficulty Difficulty, rng *rand.Rand) Decision {
	switch s.Turn {
	case game.TurnChoosing:
		return Decision{CardIndex: chooseCard(s, actorIndex, difficulty, rng)}
	case game.TurnSelectingTarget:
		return Decision{TargetID: chooseTarget(s, actorIndex, difficulty, rng)}
	case game.TurnGuardGuessing:
		return Decision{Guess: chooseGuess(s, actorIndex, difficulty, rng)}
	case game.TurnChancellorPick:
		return Decision{ChancellorKeep: chooseChancellorKeep(s, actorIndex, difficulty, rng)}
	}
	return Decision{}
}

func chooseCard(s *game.State, actorIndex int, difficulty Difficulty, rng *rand.Rand) int {
	playable := game.PlayableCardIndices(s, actorIndex)
	if len(playable) == 0 {
		return 0
	}
	if len(playable) == 1 {
		return playable[0]
	}
	if difficulty == Easy {
		return playable[rng.Intn(len(playable))]
	}

	actor := s.Players[actorIndex]
	if difficulty == Hard {
		for _, idx := range playable {
			if actor.Hand[idx] == game.Countess && rng.Float64() < countessBluffChance {
				return idx
			}
		}
	}

	best := playable[0]
	bestScore := scoreCardPlay(s, actorIndex, best)
	for _, idx := range playable[1:] {
		if score := scoreCardPlay(s, actorIndex, idx); score > bestScore {
			best, bestScore = idx, score
		}
	}
	return best
}

func chooseTarget(s *game.State, actorIndex int, difficulty Difficulty, rng *rand.Rand) string {
	actor := s.Players[actorIndex]
	targets := game.ValidTargets(s, s.Pending.Card, actor.ID)
	if len(targets) == 0 {
		return ""
	}
	if difficulty == Easy {
		return targets[rng.Intn(len(targets))]
	}

	if difficulty == Hard {
		if id, ok := informedTarget(s, actorIndex, targets); ok {
			return id
		}
	}

	// Medium default: hit the unprotected opponent closest to winning.
	best := ""
	bestTokens := -1
	for _, id := range targets {
		if id == actor.ID {
			continue
		}
		if p := s.PlayerByID(id); p != nil && p.Tokens > bestTokens {
			best, bestTokens = id, p.Tokens
		}
	}
	if best == "" {
		return targets[rng.Intn(len(targets))]
	}
	return best
}

func chooseGuess(s *game.State, actorIndex int, difficulty Difficulty, rng *rand.Rand) game.Card {
	if difficulty == Easy {
		// Uniform over the nine guessable kinds.
		guess := game.Card(rng.Intn(9))
		if guess >= game.Guard {
			guess++
		}
		return guess
	}

	actor := s.Players[actorIndex]
	if difficulty == Hard && s.Pending != nil {
		if known, ok := knownCardOf(actor, s.Pending.TargetID); ok && known != game.Guard {
			return known
		}
	}

	// Guess the most numerous not-yet-seen kind.
	unseen := unseenCounts(s, actorIndex)
	best, bestCount := game.Spy, -1
	for kind := game.Spy; kind <= game.Princess; kind++ {
		if kind == game.Guard {
			continue
		}
		if unseen[kind] > bestCount {
			best, bestCount = kind, unseen[kind]
		}
	}
	return best
}

func chooseChancellorKeep(s *game.State, actorIndex int, difficulty Difficulty, rng *rand.Rand) int {
	actor := s.Players[actorIndex]
	options := game.ChancellorOptions(s, actor.ID)
	if len(options) == 0 {
		return 0
	}
	if difficulty == Easy {
		return rng.Intn(len(options))
	}
	best, bestScore := 0, keepScore(options[0])
	for i, c := range options[1:] {
		if score := keepScore(c); score > bestScore {
			best, bestScore = i+1, score
		}
	}
	return best
}

// keepScore prefers holding high cards but discounts the Princess, which
// is a liability against a Prince.
func keepScore(c game.Card) int {
	if c == game.Princess {
		return c.Value() - 6
	}
	return c.Value()
}

// informedTarget exploits known hands: a certain Guard kill, a Baron
// fight the bot wins, a Prince forcing out the Princess, or a King swap
// for a known high card.
func informedTarget(s *game.State, actorIndex int, targets []string) (string, bool) {
	actor := s.Players[actorIndex]
	switch s.Pending.Card {
	case game.Guard:
		for _, id := range targets {
			if known, ok := knownCardOf(actor, id); ok && known != game.Guard {
				return id, true
			}
		}
	case game.Baron:
		if len(actor.Hand) == 0 {
			return "", false
		}
		kept := actor.Hand[0]
		for _, id := range targets {
			if known, ok := knownCardOf(actor, id); ok && known.Value() < kept.Value() {
				return id, true
			}
		}
	case game.Prince:
		for _, id := range targets {
			if id == actor.ID {
				continue
			}
			if known, ok := knownCardOf(actor, id); ok && known == game.Princess {
				return id, true
			}
		}
	case game.King:
		bestID, bestValue := "", -1
		for _, id := range targets {
			if known, ok := knownCardOf(actor, id); ok && known.Value() > bestValue {
				bestID, bestValue = id, known.Value()
			}
		}
		if bestID != "" && len(actor.Hand) > 0 && bestValue > actor.Hand[0].Value() {
			return bestID, true
		}
	}
	return "", false
}

func knownCardOf(p *game.Player, aboutID string) (game.Card, bool) {
	for _, k := range p.Known {
		if k.AboutID == aboutID {
			return k.Card, true
		}
	}
	return 0, false
}
