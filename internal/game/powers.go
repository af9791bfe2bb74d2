// internal/game/powers.go
package game

import "github.com/google/uuid"

// DrawTwoAction selects how a chain card is resolved.
type DrawTwoAction string

const (
	DrawTwoUse     DrawTwoAction = "use"
	DrawTwoDiscard DrawTwoAction = "discard"
)

// DrawTwoProgress reports the chain position after UseDrawTwo or
// ResolveDrawTwo. Drawn is private to the actor; Replaced sits on the
// discard top and is public. Chained counts Draw-Twos burned by chain
// resets.
type DrawTwoProgress struct {
	Drawn     *Card `json:"drawn,omitempty"`
	Replaced  *Card `json:"replaced,omitempty"`
	Remaining int   `json:"remaining"`
	Chained   int   `json:"chained,omitempty"`
	Done      bool  `json:"done"`
}

// UsePeek shows the actor their own card at index. The look is transient:
// the slot's known flag stays unset. Discards the Peek card and ends the
// turn.
func (m *Match) UsePeek(playerID uuid.UUID, index int) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.requirePending(playerID, KindPeek)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(p.Hand) {
		return nil, ruleErr(CodeInvalidIndex, "hand index %d out of range", index)
	}

	revealed := p.Hand[index]
	m.discard(m.Pending.Card)
	m.endTurn()
	return revealed, nil
}

// UseSwap blindly exchanges one of the actor's cards with an opponent's.
// Neither side sees either card, and both slots' known flags are cleared
// regardless of prior knowledge. Returns the opponent's display name.
func (m *Match) UseSwap(playerID uuid.UUID, myIndex int, opponentID uuid.UUID, opponentIndex int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.requirePending(playerID, KindSwap)
	if err != nil {
		return "", err
	}
	if opponentID == playerID {
		return "", ruleErr(CodeSelfTarget, "cannot swap with yourself")
	}
	opp := m.playerByID(opponentID)
	if opp == nil {
		return "", ruleErr(CodeInvalidOpponent, "no such player in this match")
	}
	if myIndex < 0 || myIndex >= len(p.Hand) {
		return "", ruleErr(CodeInvalidIndex, "own hand index %d out of range", myIndex)
	}
	if opponentIndex < 0 || opponentIndex >= len(opp.Hand) {
		return "", ruleErr(CodeInvalidIndex, "opponent hand index %d out of range", opponentIndex)
	}

	p.Hand[myIndex], opp.Hand[opponentIndex] = opp.Hand[opponentIndex], p.Hand[myIndex]
	p.Known[myIndex] = false
	opp.Known[opponentIndex] = false

	m.discard(m.Pending.Card)
	m.endTurn()
	return opp.Name, nil
}

// DeclineSwap discards a drawn Swap card without exchanging anything. Swap
// is the only power card with a no-op resolution; every other power must be
// exercised once drawn.
func (m *Match) DeclineSwap(playerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requirePending(playerID, KindSwap); err != nil {
		return err
	}
	m.discard(m.Pending.Card)
	m.endTurn()
	return nil
}

// UseDrawTwo discards the drawn Draw-Two and opens a two-card chain, pulling
// the first chain card immediately. A chained Draw-Two is burned and resets
// the remaining count to 2: the chain restarts, it never stacks.
func (m *Match) UseDrawTwo(playerID uuid.UUID) (*DrawTwoProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requirePending(playerID, KindDrawTwo); err != nil {
		return nil, err
	}
	m.discard(m.Pending.Card)
	m.Pending = nil
	m.DrawTwo = DrawTwoState{Active: true, Remaining: 2}

	prog := &DrawTwoProgress{Remaining: 2}
	m.chainDraw(prog)
	return prog, nil
}

// ResolveDrawTwo settles the pending chain card: "use" places it in the hand
// and forfeits the rest of the chain; "discard" burns it and, while the
// remaining count allows, draws the next.
func (m *Match) ResolveDrawTwo(playerID uuid.UUID, action DrawTwoAction, index int) (*DrawTwoProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.requireTurn(playerID)
	if err != nil {
		return nil, err
	}
	if !m.DrawTwo.Active || m.Pending == nil {
		return nil, ruleErr(CodeNoCardDrawn, "no draw-two chain card awaiting resolution")
	}

	prog := &DrawTwoProgress{Remaining: m.DrawTwo.Remaining}
	switch action {
	case DrawTwoUse:
		if index < 0 || index >= len(p.Hand) {
			return nil, ruleErr(CodeInvalidIndex, "hand index %d out of range", index)
		}
		old := p.Hand[index]
		p.Hand[index] = m.Pending.Card
		m.discard(old)
		prog.Replaced = old
		prog.Remaining = 0
		prog.Done = true
		m.endTurn()
	case DrawTwoDiscard:
		m.discard(m.Pending.Card)
		m.Pending = nil
		m.DrawTwo.Remaining--
		prog.Remaining = m.DrawTwo.Remaining
		if m.DrawTwo.Remaining > 0 {
			m.chainDraw(prog)
		} else {
			prog.Done = true
			m.endTurn()
		}
	default:
		return nil, ruleErr(CodeWrongCardKind, "unsupported draw-two action %q", action)
	}
	return prog, nil
}

// chainDraw pulls the next chain card, burning chained Draw-Twos. Deck
// exhaustion abandons the chain and ends the turn. Assumes the lock is held
// and the chain is active.
func (m *Match) chainDraw(prog *DrawTwoProgress) {
	for {
		card, ok := m.draw()
		if !ok {
			prog.Remaining = 0
			prog.Done = true
			m.endTurn()
			return
		}
		if card.Kind == KindDrawTwo {
			m.discard(card)
			m.DrawTwo.Remaining = 2
			prog.Chained++
			prog.Remaining = 2
			continue
		}
		m.Pending = &PendingCard{Card: card}
		prog.Drawn = card
		prog.Remaining = m.DrawTwo.Remaining
		return
	}
}

// UseAddCard deals the actor one extra face-down card. A dry deck skips the
// add silently; the Add-Card is discarded and the turn ends either way.
// Returns whether a card was actually added.
func (m *Match) UseAddCard(playerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.requirePending(playerID, KindAddCard)
	if err != nil {
		return false, err
	}
	m.discard(m.Pending.Card)
	m.Pending = nil

	added := false
	if card, ok := m.draw(); ok {
		p.Hand = append(p.Hand, card)
		p.Known = append(p.Known, false)
		added = true
	}
	m.endTurn()
	return added, nil
}
