package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// playJournaledGame runs a random game while recording every input, and
// returns the final state alongside the journal.
func playJournaledGame(t *testing.T, seed int64, playerCount int) (*State, *Journal) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	s := NewLobby()
	for i := 0; i < playerCount; i++ {
		s.Players = append(s.Players, &Player{
			ID: string(rune('a' + i)), Name: string(rune('a' + i)),
		})
	}
	j := NewJournal(s, seed)

	var err error
	s, _, err = StartGame(s, rng)
	require.NoError(t, err)
	j.Record(JournalEntry{Op: OpStartGame})

	for steps := 0; s.Phase != PhaseGameOver; steps++ {
		require.Less(t, steps, 5000)
		if s.Phase == PhaseRoundEnd {
			s, _, err = StartNextRound(s, rng)
			require.NoError(t, err)
			j.Record(JournalEntry{Op: OpStartNextRound})
			continue
		}
		actor := s.CurrentPlayer()
		if s.Pending != nil {
			actor = s.PlayerByID(s.Pending.ActorID)
		}
		switch s.Turn {
		case TurnChoosing:
			idx := PlayableCardIndices(s, s.Current)[0]
			s, _, err = PlayCard(s, actor.ID, idx, rng)
			j.Record(JournalEntry{Op: OpPlayCard, ActorID: actor.ID, CardIndex: idx})
		case TurnSelectingTarget:
			target := ValidTargets(s, s.Pending.Card, actor.ID)[0]
			s, _, err = SelectTarget(s, actor.ID, target, rng)
			j.Record(JournalEntry{Op: OpSelectTarget, ActorID: actor.ID, TargetID: target})
		case TurnGuardGuessing:
			s, _, err = GuessCard(s, actor.ID, Priest, rng)
			j.Record(JournalEntry{Op: OpGuessCard, ActorID: actor.ID, Guess: Priest})
		case TurnChancellorPick:
			s, _, err = ChancellorKeep(s, actor.ID, 0, rng)
			j.Record(JournalEntry{Op: OpChancellorKeep, ActorID: actor.ID})
		}
		require.NoError(t, err)
	}
	return s, j
}

func TestJournalReplayReproducesGame(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		final, journal := playJournaledGame(t, seed, 4)

		replayed, err := journal.Replay()
		require.NoError(t, err)
		assert.Equal(t, final.Fingerprint(), replayed.Fingerprint(),
			"seed %d must replay to the identical final state", seed)
		assert.Equal(t, final.WinnerID, replayed.WinnerID)
	}
}

func TestJournalRejectsUnknownOp(t *testing.T) {
	_, journal := playJournaledGame(t, 1, 2)
	journal.Entries = append(journal.Entries, JournalEntry{Op: "timeTravel"})
	_, err := journal.Replay()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown op")
}

func TestFingerprintDistinguishesStates(t *testing.T) {
	a, _ := playJournaledGame(t, 1, 3)
	b, _ := playJournaledGame(t, 2, 3)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	clone := a.Clone()
	assert.Equal(t, a.Fingerprint(), clone.Fingerprint())
}
