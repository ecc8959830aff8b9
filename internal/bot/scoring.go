package bot

import "github.com/loveletter-online/server-go/internal/game"

// scoreCardPlay rates playing the card at idx from the seat's two-card
// hand. Higher is better. The heuristic prefers shedding low cards,
// strongly avoids a voluntary Princess, favors Spy and Handmaid, and
// discounts a Baron when the card it would keep is weak.
func scoreCardPlay(s *game.State, actorIndex, idx int) int {
	actor := s.Players[actorIndex]
	card := actor.Hand[idx]
	var kept game.Card
	for i, c := range actor.Hand {
		if i != idx {
			kept = c
		}
	}

	score := 9 - card.Value()
	switch card {
	case game.Princess:
		score -= 100
	case game.Spy, game.Handmaid:
		score += 6
	case game.Baron:
		if kept.Value() < game.Prince.Value() {
			score -= 6
		} else {
			score += 3
		}
	case game.Guard:
		score += 2
	}
	return score
}

// unseenCounts returns, per kind, how many copies the seat has not yet
// seen. Seen cards are every discard pile, the public face-up cards, and
// the seat's own hand; everything else (deck, set-aside, concealed
// hands) is unseen.
func unseenCounts(s *game.State, actorIndex int) map[game.Card]int {
	unseen := make(map[game.Card]int, 10)
	for kind := game.Spy; kind <= game.Princess; kind++ {
		unseen[kind] = kind.Copies()
	}
	sub := func(cards []game.Card) {
		for _, c := range cards {
			unseen[c]--
		}
	}
	for _, p := range s.Players {
		sub(p.Discards)
	}
	sub(s.FaceUp)
	sub(s.Players[actorIndex].Hand)
	sub(s.ChancellorDrawn) // only ever populated for the acting seat
	return unseen
}

// GuessProbability is the card-counting estimate that a concealed card is
// of the given kind: remaining unseen copies over total unseen cards.
func GuessProbability(s *game.State, actorIndex int, kind game.Card) float64 {
	unseen := unseenCounts(s, actorIndex)
	total := 0
	for _, n := range unseen {
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(unseen[kind]) / float64(total)
}
