// internal/game/actions.go
package game

import "github.com/google/uuid"

// DrawFromDeck takes the top card of the draw pile and holds it pending.
// The returned card is for the actor's eyes only.
func (m *Match) DrawFromDeck(playerID uuid.UUID) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requireTurn(playerID); err != nil {
		return nil, err
	}
	if m.Pending != nil || m.DrawTwo.Active {
		return nil, ruleErr(CodeAlreadyDrawn, "a drawn card is already pending")
	}
	card, ok := m.draw()
	if !ok {
		return nil, ruleErr(CodeDeckEmpty, "no card available to draw")
	}
	m.Pending = &PendingCard{Card: card}
	return card, nil
}

// DrawFromDiscard takes the visible discard top and holds it pending. A card
// taken this way must be swapped into the hand; power cards never leave the
// discard pile once they land there.
func (m *Match) DrawFromDiscard(playerID uuid.UUID) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requireTurn(playerID); err != nil {
		return nil, err
	}
	if m.Pending != nil || m.DrawTwo.Active {
		return nil, ruleErr(CodeAlreadyDrawn, "a drawn card is already pending")
	}
	if len(m.DiscardPile) == 0 {
		return nil, ruleErr(CodeDiscardEmpty, "discard pile is empty")
	}
	top := m.DiscardPile[len(m.DiscardPile)-1]
	if top.IsPower() {
		return nil, ruleErr(CodePowerCardFromDiscard, "power cards cannot re-enter play from the discard")
	}
	m.DiscardPile = m.DiscardPile[:len(m.DiscardPile)-1]
	m.Pending = &PendingCard{Card: top, FromDiscard: true}
	return top, nil
}

// ReplaceCard swaps the pending card into the actor's hand at index. The old
// card goes to the discard top and is returned; the slot's known flag is left
// untouched (a replaced card is never shown to its owner). Ends the turn.
func (m *Match) ReplaceCard(playerID uuid.UUID, index int) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.requireTurn(playerID)
	if err != nil {
		return nil, err
	}
	if m.DrawTwo.Active {
		return nil, ruleErr(CodeDrawTwoChainActive, "resolve the draw-two chain first")
	}
	if m.Pending == nil {
		return nil, ruleErr(CodeNoCardDrawn, "no drawn card to place")
	}
	if index < 0 || index >= len(p.Hand) {
		return nil, ruleErr(CodeInvalidIndex, "hand index %d out of range", index)
	}

	old := p.Hand[index]
	p.Hand[index] = m.Pending.Card
	m.discard(old)
	m.endTurn()
	return old, nil
}

// DiscardDrawn throws the pending card onto the discard pile unused. Only
// deck-sourced cards may be discarded outright. Ends the turn.
func (m *Match) DiscardDrawn(playerID uuid.UUID) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requireTurn(playerID); err != nil {
		return nil, err
	}
	if m.DrawTwo.Active {
		return nil, ruleErr(CodeDrawTwoChainActive, "resolve the draw-two chain first")
	}
	if m.Pending == nil {
		return nil, ruleErr(CodeNoCardDrawn, "no drawn card to discard")
	}
	if m.Pending.FromDiscard {
		return nil, ruleErr(CodeCannotDiscardFromDiscard, "a card taken from the discard must be played")
	}

	card := m.Pending.Card
	m.discard(card)
	m.endTurn()
	return card, nil
}
