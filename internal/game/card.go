package game

import (
	"fmt"
	"math/rand"
)

// Card identifies one of the ten card kinds. The numeric value of the
// constant is the card's printed value, so ordering comparisons work
// directly on the type.
type Card int

const (
	Spy Card = iota
	Guard
	Priest
	Baron
	Handmaid
	Prince
	Chancellor
	King
	Countess
	Princess
)

// TargetClass describes what a card needs before it can resolve.
type TargetClass int

const (
	TargetNone TargetClass = iota
	TargetOtherPlayer
	TargetAnyPlayer // may target self
	TargetGuess     // other player plus a named-kind guess
)

var cardNames = map[Card]string{
	Spy:        "Spy",
	Guard:      "Guard",
	Priest:     "Priest",
	Baron:      "Baron",
	Handmaid:   "Handmaid",
	Prince:     "Prince",
	Chancellor: "Chancellor",
	King:       "King",
	Countess:   "Countess",
	Princess:   "Princess",
}

// deckCounts is the fixed number of copies of each kind in the 21-card deck.
var deckCounts = map[Card]int{
	Spy:        2,
	Guard:      6,
	Priest:     2,
	Baron:      2,
	Handmaid:   2,
	Prince:     2,
	Chancellor: 2,
	King:       1,
	Countess:   1,
	Princess:   1,
}

var targetClasses = map[Card]TargetClass{
	Spy:        TargetNone,
	Guard:      TargetGuess,
	Priest:     TargetOtherPlayer,
	Baron:      TargetOtherPlayer,
	Handmaid:   TargetNone,
	Prince:     TargetAnyPlayer,
	Chancellor: TargetNone,
	King:       TargetOtherPlayer,
	Countess:   TargetNone,
	Princess:   TargetNone,
}

func (c Card) String() string {
	if name, ok := cardNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CARD_%d", int(c))
}

// Value returns the card's printed value (0 for Spy through 9 for Princess).
func (c Card) Value() int {
	return int(c)
}

// Copies returns how many copies of this kind the full deck contains.
func (c Card) Copies() int {
	return deckCounts[c]
}

// Targeting returns the card's target-requirement class.
func (c Card) Targeting() TargetClass {
	return targetClasses[c]
}

// CardByName looks up a card kind by its display name. Passing anything
// other than one of the ten kind names is a programming error.
func CardByName(name string) Card {
	for card, n := range cardNames {
		if n == name {
			return card
		}
	}
	panic(fmt.Sprintf("unknown card name %q", name))
}

// ParseCard is the forgiving variant of CardByName for untrusted input.
func ParseCard(name string) (Card, bool) {
	for card, n := range cardNames {
		if n == name {
			return card, true
		}
	}
	return 0, false
}

// NewDeck builds the canonical 21-card deck, unshuffled.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for card := Spy; card <= Princess; card++ {
		for i := 0; i < deckCounts[card]; i++ {
			deck = append(deck, card)
		}
	}
	return deck
}

// DeckSize is the total number of physical cards in play each round.
const DeckSize = 21

// ShuffleCards permutes cards in place with a Fisher-Yates shuffle.
func ShuffleCards(rng *rand.Rand, cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
