// internal/game/knock.go
package game

import "github.com/google/uuid"

// Knock declares the round's final lap: every other player gets exactly one
// more turn, then the round is scored. The knocker takes no further turns.
// Any undecided drawn card (and a half-finished Draw-Two chain) is forfeited
// to the discard pile.
func (m *Match) Knock(playerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.requireTurn(playerID); err != nil {
		return err
	}
	if m.KnockerID != uuid.Nil {
		return ruleErr(CodeAlreadyKnocked, "somebody already knocked this round")
	}

	if m.Pending != nil {
		m.discard(m.Pending.Card)
		m.Pending = nil
	}
	m.DrawTwo = DrawTwoState{}
	m.KnockerID = playerID
	m.FinalTurnsTaken = 0
	m.advanceTurn()
	return nil
}

// endRound sweeps power cards out of every hand, scores the round, and marks
// it over. A forced end (a departure completing the final round) can land
// here while the current player still holds an undecided drawn card; that
// card is forfeited to the discard pile like a knock forfeits it. Each power
// card in a hand is swapped for cards drawn off the deck until a number card
// lands (burned power draws go to the discard pile), and the refreshed slot
// becomes known. When the deck is exhausted, or no number card remains in
// circulation at all, the slot keeps its power card and scores zero.
// Assumes the lock is held.
func (m *Match) endRound() {
	if m.Pending != nil {
		m.discard(m.Pending.Card)
		m.Pending = nil
	}
	m.DrawTwo = DrawTwoState{}

	for _, p := range m.Players {
		for i, c := range p.Hand {
			if c.Kind == KindNumber {
				continue
			}
			if !m.numberAvailable() {
				continue
			}
			for {
				drawn, ok := m.draw()
				if !ok {
					break
				}
				if drawn.Kind == KindNumber {
					m.discard(p.Hand[i])
					p.Hand[i] = drawn
					p.Known[i] = true
					break
				}
				m.discard(drawn)
			}
		}
	}

	results := make([]RoundResult, 0, len(m.Players))
	for _, p := range m.Players {
		score := 0
		for _, c := range p.Hand {
			score += c.Points()
		}
		p.RoundScore = score
		p.TotalScore += score
		results = append(results, RoundResult{
			PlayerID:   p.ID,
			Name:       p.Name,
			RoundScore: score,
			TotalScore: p.TotalScore,
			Knocked:    p.ID == m.KnockerID,
		})
	}

	m.RoundOver = true
	m.Started = false
	if m.OnRoundEnd != nil {
		m.OnRoundEnd(results)
	}
}

// numberAvailable reports whether any number card remains in the draw or
// discard piles. Without one, the replacement loop would cycle power cards
// through the reshuffle indefinitely.
func (m *Match) numberAvailable() bool {
	for _, c := range m.Deck {
		if c.Kind == KindNumber {
			return true
		}
	}
	for _, c := range m.DiscardPile {
		if c.Kind == KindNumber {
			return true
		}
	}
	return false
}
