// internal/game/card.go
package game

import "github.com/google/uuid"

// CardKind identifies what a card does when drawn. Number cards score their
// face value; the four power kinds score zero and trigger a special action
// instead of being kept.
type CardKind string

const (
	KindNumber  CardKind = "number"
	KindPeek    CardKind = "peek"
	KindSwap    CardKind = "swap"
	KindDrawTwo CardKind = "draw_two"
	KindAddCard CardKind = "add_card"
)

// Card is an immutable deck card. The ID distinguishes two cards of equal
// value within a round; Value is meaningful only for KindNumber.
type Card struct {
	ID    uuid.UUID `json:"id"`
	Kind  CardKind  `json:"kind"`
	Value int       `json:"value"`
}

// Points returns the card's scoring value: the face value for number cards,
// zero for power cards.
func (c *Card) Points() int {
	if c.Kind == KindNumber {
		return c.Value
	}
	return 0
}

// IsPower reports whether the card is one of the four power kinds.
func (c *Card) IsPower() bool {
	return c.Kind != KindNumber
}

// Deck composition: four of each number 0-8, nine 9s, three Peeks, three
// Swaps, three Draw-Twos and two Add-Cards.
const (
	numberCopies  = 4
	nineCopies    = 9
	peekCopies    = 3
	swapCopies    = 3
	drawTwoCopies = 3
	addCardCopies = 2

	// DeckSize is the total number of cards in a fresh deck.
	DeckSize = 9*numberCopies + nineCopies + peekCopies + swapCopies + drawTwoCopies + addCardCopies
)

// newDeck builds the full unshuffled deck with fresh card IDs.
func newDeck() []*Card {
	deck := make([]*Card, 0, DeckSize)
	for v := 0; v <= 8; v++ {
		for i := 0; i < numberCopies; i++ {
			deck = append(deck, &Card{ID: uuid.New(), Kind: KindNumber, Value: v})
		}
	}
	for i := 0; i < nineCopies; i++ {
		deck = append(deck, &Card{ID: uuid.New(), Kind: KindNumber, Value: 9})
	}
	for i := 0; i < peekCopies; i++ {
		deck = append(deck, &Card{ID: uuid.New(), Kind: KindPeek})
	}
	for i := 0; i < swapCopies; i++ {
		deck = append(deck, &Card{ID: uuid.New(), Kind: KindSwap})
	}
	for i := 0; i < drawTwoCopies; i++ {
		deck = append(deck, &Card{ID: uuid.New(), Kind: KindDrawTwo})
	}
	for i := 0; i < addCardCopies; i++ {
		deck = append(deck, &Card{ID: uuid.New(), Kind: KindAddCard})
	}
	return deck
}
