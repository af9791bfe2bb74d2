// internal/game/view.go
package game

import "github.com/google/uuid"

// CardView is one card as a given viewer is allowed to see it. Masked cards
// carry no identity at all, so nothing can be tracked across swaps.
type CardView struct {
	ID     string   `json:"id,omitempty"`
	Kind   CardKind `json:"kind,omitempty"`
	Value  *int     `json:"value,omitempty"`
	Hidden bool     `json:"hidden"`
}

// PlayerView is one seat as seen by the viewer.
type PlayerView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Hand       []CardView `json:"hand"`
	HandSize   int        `json:"hand_size"`
	IsCurrent  bool       `json:"is_current"`
	HasKnocked bool       `json:"has_knocked"`
	RoundScore *int       `json:"round_score,omitempty"` // set once the round is over
	TotalScore int        `json:"total_score"`
}

// View is the asymmetric snapshot handed to one player. The canonical match
// state always holds true card identities; masking happens here and only
// here.
type View struct {
	MatchID         string       `json:"match_id"`
	Started         bool         `json:"started"`
	RoundOver       bool         `json:"round_over"`
	CurrentPlayerID string       `json:"current_player_id,omitempty"`
	DeckCount       int          `json:"deck_count"`
	DiscardCount    int          `json:"discard_count"`
	DiscardTop      *CardView    `json:"discard_top,omitempty"`
	Knocked         bool         `json:"knocked"`
	KnockerID       string       `json:"knocker_id,omitempty"`
	FinalRound      bool         `json:"final_round"`
	Pending         *CardView    `json:"pending,omitempty"` // current player only
	Players         []PlayerView `json:"players"`
}

// ViewFor builds the information-hiding snapshot for one player. The
// viewer's own cards show through the known mask, the outer slots (first and
// last) are always visible to their owner, opponents stay fully masked until
// the round ends, and only the current player sees the pending drawn card.
// Discard top, pile counts, turn, knock state and cumulative scores are
// public.
func (m *Match) ViewFor(playerID uuid.UUID) *View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := &View{
		MatchID:      m.ID.String(),
		Started:      m.Started,
		RoundOver:    m.RoundOver,
		DeckCount:    len(m.Deck),
		DiscardCount: len(m.DiscardPile),
		Knocked:      m.KnockerID != uuid.Nil,
		FinalRound:   m.KnockerID != uuid.Nil && !m.RoundOver,
	}
	if m.KnockerID != uuid.Nil {
		v.KnockerID = m.KnockerID.String()
	}
	if m.Started {
		if cur := m.currentPlayer(); cur != nil {
			v.CurrentPlayerID = cur.ID.String()
		}
	}
	if len(m.DiscardPile) > 0 {
		v.DiscardTop = revealedCard(m.DiscardPile[len(m.DiscardPile)-1])
	}

	for i, p := range m.Players {
		pv := PlayerView{
			ID:         p.ID.String(),
			Name:       p.Name,
			HandSize:   len(p.Hand),
			IsCurrent:  m.Started && i == m.CurrentPlayerIndex,
			HasKnocked: m.KnockerID != uuid.Nil && p.ID == m.KnockerID,
			TotalScore: p.TotalScore,
		}
		if m.RoundOver {
			score := p.RoundScore
			pv.RoundScore = &score
		}
		own := p.ID == playerID
		pv.Hand = make([]CardView, 0, len(p.Hand))
		for idx, c := range p.Hand {
			visible := m.RoundOver
			if own && !visible {
				visible = p.Known[idx] || idx == 0 || idx == len(p.Hand)-1
			}
			if visible {
				pv.Hand = append(pv.Hand, *revealedCard(c))
			} else {
				pv.Hand = append(pv.Hand, CardView{Hidden: true})
			}
		}
		v.Players = append(v.Players, pv)
	}

	if m.Pending != nil && m.Started {
		if cur := m.currentPlayer(); cur != nil && cur.ID == playerID {
			v.Pending = revealedCard(m.Pending.Card)
		}
	}
	return v
}

// revealedCard copies a card into an unmasked view.
func revealedCard(c *Card) *CardView {
	cv := &CardView{ID: c.ID.String(), Kind: c.Kind}
	if c.Kind == KindNumber {
		value := c.Value
		cv.Value = &value
	}
	return cv
}
