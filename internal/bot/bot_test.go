package bot

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loveletter-online/server-go/internal/game"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(7))
}

func choosing(deck []game.Card, hands map[string][]game.Card, order ...string) *game.State {
	s := &game.State{
		Phase:       game.PhasePlaying,
		Turn:        game.TurnChoosing,
		Deck:        append([]game.Card(nil), deck...),
		Round:       1,
		TokensToWin: game.TokensToWin(len(order)),
	}
	for _, id := range order {
		p := &game.Player{ID: id, Name: id, Alive: true}
		p.Hand = append([]game.Card(nil), hands[id]...)
		s.Players = append(s.Players, p)
	}
	return s
}

func TestParseDifficulty(t *testing.T) {
	assert.Equal(t, Easy, ParseDifficulty("easy"))
	assert.Equal(t, Hard, ParseDifficulty("hard"))
	assert.Equal(t, Medium, ParseDifficulty("anything"))
}

func TestEasyPlaysOnlyLegalCards(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Countess, game.King},
		"b":   {game.Guard},
	}, "bot", "b")

	rng := testRNG()
	for i := 0; i < 20; i++ {
		d := Decide(s, 0, Easy, rng)
		assert.Equal(t, 0, d.CardIndex, "countess is forced")
	}
}

func TestEasyNeverGuessesGuard(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Baron},
		"b":   {game.Priest},
	}, "bot", "b")
	s.Turn = game.TurnGuardGuessing
	s.Pending = &game.Pending{Card: game.Guard, ActorID: "bot", TargetID: "b"}

	rng := testRNG()
	for i := 0; i < 100; i++ {
		d := Decide(s, 0, Easy, rng)
		assert.NotEqual(t, game.Guard, d.Guess)
	}
}

func TestEasyGuessesUniformlyOverGuessableKinds(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Baron},
		"b":   {game.Priest},
	}, "bot", "b")
	s.Turn = game.TurnGuardGuessing
	s.Pending = &game.Pending{Card: game.Guard, ActorID: "bot", TargetID: "b"}

	const draws = 9000
	counts := make(map[game.Card]int)
	rng := testRNG()
	for i := 0; i < draws; i++ {
		counts[Decide(s, 0, Easy, rng).Guess]++
	}

	require.Zero(t, counts[game.Guard])
	require.Len(t, counts, 9)
	for kind, n := range counts {
		// Each of the nine kinds should land near draws/9.
		assert.InDelta(t, draws/9, n, draws/18, "kind %s over-represented", kind)
	}
}

func TestMediumNeverPlaysPrincessVoluntarily(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Princess, game.Spy},
		"b":   {game.Priest},
	}, "bot", "b")

	d := Decide(s, 0, Medium, testRNG())
	assert.Equal(t, game.Spy, s.Players[0].Hand[d.CardIndex])
}

func TestMediumDiscountsBaronWithWeakKeeper(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Baron, game.Spy},
		"b":   {game.Priest},
	}, "bot", "b")

	// Keeping a Spy (0) makes a Baron fight near-certain death.
	d := Decide(s, 0, Medium, testRNG())
	assert.Equal(t, game.Spy, s.Players[0].Hand[d.CardIndex])
}

func TestMediumTargetsTokenLeader(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Guard, game.Baron},
		"b":   {game.Priest},
		"c":   {game.King},
	}, "bot", "b", "c")
	s.Players[2].Tokens = 2
	s.Turn = game.TurnSelectingTarget
	s.Pending = &game.Pending{Card: game.Guard, ActorID: "bot"}

	d := Decide(s, 0, Medium, testRNG())
	assert.Equal(t, "c", d.TargetID)
}

func TestMediumGuessesMostNumerousUnseen(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Baron},
		"b":   {game.Priest},
	}, "bot", "b")
	s.Turn = game.TurnGuardGuessing
	s.Pending = &game.Pending{Card: game.Guard, ActorID: "bot", TargetID: "b"}

	d := Decide(s, 0, Medium, testRNG())
	// Nothing public is out: every non-Guard kind has at most 2 unseen
	// copies, so the guess is one of the 2-copy kinds.
	assert.Equal(t, 2, d.Guess.Copies())
}

func TestHardGuessesKnownCard(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Baron},
		"b":   {game.Princess},
	}, "bot", "b")
	s.Turn = game.TurnGuardGuessing
	s.Pending = &game.Pending{Card: game.Guard, ActorID: "bot", TargetID: "b"}
	s.Players[0].Known = []game.Knowledge{{AboutID: "b", Card: game.Princess, Source: game.SourcePriest}}

	d := Decide(s, 0, Hard, testRNG())
	assert.Equal(t, game.Princess, d.Guess)
}

func TestHardTargetsKnownHandWithGuard(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Guard, game.Baron},
		"b":   {game.Priest},
		"c":   {game.King},
	}, "bot", "b", "c")
	// b leads on tokens, but the bot knows c's hand: certainty wins.
	s.Players[1].Tokens = 3
	s.Players[0].Known = []game.Knowledge{{AboutID: "c", Card: game.King, Source: game.SourceKing}}
	s.Turn = game.TurnSelectingTarget
	s.Pending = &game.Pending{Card: game.Guard, ActorID: "bot"}

	d := Decide(s, 0, Hard, testRNG())
	assert.Equal(t, "c", d.TargetID)
}

func TestHardBaronPicksBeatableTarget(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.King},
		"b":   {game.Priest},
		"c":   {game.Countess},
	}, "bot", "b", "c")
	s.Players[0].Known = []game.Knowledge{
		{AboutID: "b", Card: game.Priest, Source: game.SourcePriest},
		{AboutID: "c", Card: game.Countess, Source: game.SourcePriest},
	}
	s.Turn = game.TurnSelectingTarget
	s.Pending = &game.Pending{Card: game.Baron, ActorID: "bot"}

	// Holding King (7): Priest (2) is beatable, Countess (8) is not.
	d := Decide(s, 0, Hard, testRNG())
	assert.Equal(t, "b", d.TargetID)
}

func TestChancellorKeepPrefersHighValue(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Spy},
		"b":   {game.Priest},
	}, "bot", "b")
	s.Turn = game.TurnChancellorPick
	s.Pending = &game.Pending{Card: game.Chancellor, ActorID: "bot"}
	s.ChancellorDrawn = []game.Card{game.King, game.Guard}

	d := Decide(s, 0, Medium, testRNG())
	options := game.ChancellorOptions(s, "bot")
	assert.Equal(t, game.King, options[d.ChancellorKeep])
}

func TestChancellorKeepPenalizesPrincess(t *testing.T) {
	s := choosing([]game.Card{game.Guard}, map[string][]game.Card{
		"bot": {game.Handmaid},
		"b":   {game.Priest},
	}, "bot", "b")
	s.Turn = game.TurnChancellorPick
	s.Pending = &game.Pending{Card: game.Chancellor, ActorID: "bot"}
	s.ChancellorDrawn = []game.Card{game.Princess, game.King}

	d := Decide(s, 0, Hard, testRNG())
	options := game.ChancellorOptions(s, "bot")
	assert.Equal(t, game.King, options[d.ChancellorKeep])
}

func TestGuessProbability(t *testing.T) {
	s := choosing(nil, map[string][]game.Card{
		"bot": {game.Guard},
		"b":   {game.Priest},
	}, "bot", "b")
	// Bot sees only its own Guard: 5 of 6 Guards remain among 20 unseen.
	p := GuessProbability(s, 0, game.Guard)
	assert.InDelta(t, 5.0/20.0, p, 1e-9)
}

// Bots of every tier must be able to drive a full game to completion
// with only legal moves.
func TestBotsFinishGames(t *testing.T) {
	for _, difficulty := range []Difficulty{Easy, Medium, Hard} {
		for seed := int64(0); seed < 5; seed++ {
			rng := rand.New(rand.NewSource(seed))
			s := game.NewLobby()
			for _, id := range []string{"p1", "p2", "p3", "p4"} {
				s.Players = append(s.Players, &game.Player{
					ID: id, Name: id, IsBot: true, Difficulty: string(difficulty),
				})
			}
			s, _, err := game.StartGame(s, rng)
			require.NoError(t, err)

			for steps := 0; s.Phase != game.PhaseGameOver; steps++ {
				require.Less(t, steps, 5000)
				if s.Phase == game.PhaseRoundEnd {
					s, _, err = game.StartNextRound(s, rng)
					require.NoError(t, err)
					continue
				}
				actorIdx := s.Current
				actor := s.CurrentPlayer()
				if s.Pending != nil {
					actor = s.PlayerByID(s.Pending.ActorID)
					for i, p := range s.Players {
						if p.ID == actor.ID {
							actorIdx = i
						}
					}
				}
				d := Decide(s, actorIdx, difficulty, rng)
				switch s.Turn {
				case game.TurnChoosing:
					s, _, err = game.PlayCard(s, actor.ID, d.CardIndex, rng)
				case game.TurnSelectingTarget:
					s, _, err = game.SelectTarget(s, actor.ID, d.TargetID, rng)
				case game.TurnGuardGuessing:
					s, _, err = game.GuessCard(s, actor.ID, d.Guess, rng)
				case game.TurnChancellorPick:
					s, _, err = game.ChancellorKeep(s, actor.ID, d.ChancellorKeep, rng)
				}
				require.NoError(t, err, "difficulty=%s turn=%s", difficulty, s.Turn)
			}
		}
	}
}
