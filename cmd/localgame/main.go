// Command localgame runs a bots-only Love Letter match in the terminal.
// It drives the same pure rules engine as the server, which makes it a
// quick way to watch the bot tiers play against each other.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/loveletter-online/server-go/internal/bot"
	"github.com/loveletter-online/server-go/internal/game"
)

var (
	players    = flag.Int("players", 4, "number of bot players (2-6)")
	difficulty = flag.String("difficulty", "medium", "bot difficulty: easy, medium, hard, or a comma list per seat")
	seed       = flag.Int64("seed", 0, "rng seed (0 = time-based)")
	quiet      = flag.Bool("quiet", false, "print only round and game results")
)

func main() {
	flag.Parse()
	if *players < game.MinPlayers || *players > game.MaxPlayers {
		log.Fatalf("players must be between %d and %d", game.MinPlayers, game.MaxPlayers)
	}

	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	// Engine and bot policy draw from separate streams so the journal
	// (which replays engine inputs only) stays reproducible.
	rng := rand.New(rand.NewSource(s))
	botRNG := rand.New(rand.NewSource(s + 1))
	fmt.Printf("Love Letter — %d bots, seed %d\n\n", *players, s)

	tiers := seatDifficulties(*players, *difficulty)
	state := game.NewLobby()
	for i := 0; i < *players; i++ {
		state.Players = append(state.Players, &game.Player{
			ID:         fmt.Sprintf("bot%d", i+1),
			Name:       fmt.Sprintf("Bot %d (%s)", i+1, tiers[i]),
			IsBot:      true,
			Difficulty: string(tiers[i]),
		})
	}

	journal := game.NewJournal(state, s)

	state, events, err := game.StartGame(state, rng)
	if err != nil {
		log.Fatalf("starting game: %v", err)
	}
	journal.Record(game.JournalEntry{Op: game.OpStartGame})
	printEvents(state, events)

	for steps := 0; state.Phase != game.PhaseGameOver; steps++ {
		if steps > 10000 {
			log.Fatal("game did not terminate")
		}
		if state.Phase == game.PhaseRoundEnd {
			state, events, err = game.StartNextRound(state, rng)
			if err != nil {
				log.Fatalf("starting round: %v", err)
			}
			journal.Record(game.JournalEntry{Op: game.OpStartNextRound})
			fmt.Printf("\n--- Round %d ---\n", state.Round)
			printEvents(state, events)
			continue
		}
		state, events, err = step(state, rng, botRNG, journal)
		if err != nil {
			log.Fatalf("bot move rejected: %v", err)
		}
		printEvents(state, events)
	}

	winner := state.PlayerByID(state.WinnerID)
	fmt.Printf("\n%s wins the game with %d tokens!\n", winner.Name, winner.Tokens)

	// Replaying the journal must land on the identical state.
	replayed, err := journal.Replay()
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}
	if replayed.Fingerprint() != state.Fingerprint() {
		log.Fatal("replay diverged from the live game")
	}
	fmt.Printf("Replay verified: %d moves reproduce fingerprint %.12s…\n",
		len(journal.Entries), state.Fingerprint())
}

func step(s *game.State, rng, botRNG *rand.Rand, journal *game.Journal) (*game.State, []game.Event, error) {
	actor := s.CurrentPlayer()
	if s.Pending != nil {
		actor = s.PlayerByID(s.Pending.ActorID)
	}
	idx := 0
	for i, p := range s.Players {
		if p.ID == actor.ID {
			idx = i
		}
	}
	d := bot.Decide(s, idx, bot.Difficulty(actor.Difficulty), botRNG)
	switch s.Turn {
	case game.TurnChoosing:
		journal.Record(game.JournalEntry{Op: game.OpPlayCard, ActorID: actor.ID, CardIndex: d.CardIndex})
		return game.PlayCard(s, actor.ID, d.CardIndex, rng)
	case game.TurnSelectingTarget:
		journal.Record(game.JournalEntry{Op: game.OpSelectTarget, ActorID: actor.ID, TargetID: d.TargetID})
		return game.SelectTarget(s, actor.ID, d.TargetID, rng)
	case game.TurnGuardGuessing:
		journal.Record(game.JournalEntry{Op: game.OpGuessCard, ActorID: actor.ID, Guess: d.Guess})
		return game.GuessCard(s, actor.ID, d.Guess, rng)
	case game.TurnChancellorPick:
		journal.Record(game.JournalEntry{Op: game.OpChancellorKeep, ActorID: actor.ID, KeepIndex: d.ChancellorKeep})
		return game.ChancellorKeep(s, actor.ID, d.ChancellorKeep, rng)
	}
	return nil, nil, fmt.Errorf("unexpected turn phase %q", s.Turn)
}

func printEvents(s *game.State, events []game.Event) {
	name := func(id string) string {
		if p := s.PlayerByID(id); p != nil {
			return p.Name
		}
		return id
	}
	for _, ev := range events {
		if *quiet && ev.Type != game.EventRoundOver && ev.Type != game.EventGameOver {
			continue
		}
		switch ev.Type {
		case game.EventCardPlayed:
			suffix := ""
			if ev.Fizzled {
				suffix = " (no valid target)"
			}
			fmt.Printf("%s plays %s%s\n", name(ev.ActorID), ev.Card, suffix)
		case game.EventGuardReveal:
			verdict := "misses"
			if ev.Hit {
				verdict = "hits"
			}
			fmt.Printf("%s guesses %s against %s and %s\n",
				name(ev.ActorID), ev.Guess, name(ev.TargetID), verdict)
		case game.EventBaronReveal:
			fmt.Printf("%s (%s) duels %s (%s)\n",
				name(ev.ActorID), ev.Card, name(ev.TargetID), ev.Card2)
		case game.EventPrinceDiscard:
			fmt.Printf("%s discards %s\n", name(ev.TargetID), ev.Card)
		case game.EventEliminated:
			fmt.Printf("%s is out of the round\n", name(ev.TargetID))
		case game.EventRoundOver:
			fmt.Printf("Round over (%s): %s", ev.Result.Reason, winnerNames(s, ev.Result))
			if ev.Result.SpyBonusID != "" {
				fmt.Printf("; spy bonus to %s", name(ev.Result.SpyBonusID))
			}
			fmt.Println()
			for _, p := range s.Players {
				fmt.Printf("  %s: %d tokens\n", p.Name, p.Tokens)
			}
		}
	}
}

func winnerNames(s *game.State, res *game.RoundResult) string {
	names := make([]string, 0, len(res.WinnerIDs))
	for _, id := range res.WinnerIDs {
		if p := s.PlayerByID(id); p != nil {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}

// seatDifficulties expands the -difficulty flag: a single tier applies to
// every seat, a comma list assigns per seat and repeats its last entry.
func seatDifficulties(n int, spec string) []bot.Difficulty {
	parts := strings.Split(spec, ",")
	out := make([]bot.Difficulty, n)
	for i := 0; i < n; i++ {
		p := parts[len(parts)-1]
		if i < len(parts) {
			p = parts[i]
		}
		p = strings.TrimSpace(strings.ToLower(p))
		switch p {
		case "easy", "medium", "hard":
			out[i] = bot.ParseDifficulty(p)
		default:
			fmt.Fprintf(os.Stderr, "unknown difficulty %q, using medium\n", p)
			out[i] = bot.Medium
		}
	}
	return out
}
