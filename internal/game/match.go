// internal/game/match.go
package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Seat limits and the fixed deal size.
const (
	MinPlayers = 2
	MaxPlayers = 6
	HandSize   = 4
)

// Player is one seat in a match. Hand and Known always have equal length;
// a hand starts at HandSize and can only grow (Add-Card).
type Player struct {
	ID    uuid.UUID
	Name  string
	Hand  []*Card
	Known []bool

	RoundScore int
	TotalScore int
}

// PendingCard is the single drawn-but-undecided card, tagged with its origin.
// At most one exists per match at any time.
type PendingCard struct {
	Card        *Card
	FromDiscard bool
}

// DrawTwoState tracks the Draw-Two chain: not active, or in a chain with the
// number of chain cards not yet resolved.
type DrawTwoState struct {
	Active    bool
	Remaining int
}

// RoundResult is one player's line in a finished round.
type RoundResult struct {
	PlayerID   uuid.UUID `json:"player_id"`
	Name       string    `json:"name"`
	RoundScore int       `json:"round_score"`
	TotalScore int       `json:"total_score"`
	Knocked    bool      `json:"knocked"`
}

// Match is the full canonical state of one game room. Exported methods lock
// internally and run to completion; the room layer additionally serializes
// actions per match for ordering fairness. The canonical state never hides
// information; masking happens only in ViewFor.
type Match struct {
	ID      uuid.UUID
	Players []*Player // turn order = slice order

	Deck        []*Card // draw pile, top = end
	DiscardPile []*Card // top = end

	CurrentPlayerIndex int
	Pending            *PendingCard
	DrawTwo            DrawTwoState

	Started   bool
	RoundOver bool

	KnockerID       uuid.UUID // uuid.Nil until somebody knocks
	FinalTurnsTaken int

	// TurnSeq increments on every turn handoff. The room layer compares it
	// against a captured value to discard stale idle timers.
	TurnSeq int64

	// OnRoundEnd, if set, is invoked once with the final scores each time a
	// round ends. It runs with the match lock held and must not call back
	// into the match.
	OnRoundEnd func([]RoundResult)

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMatch creates an empty match with a time-seeded shuffle source.
func NewMatch() *Match {
	return &Match{
		ID:  uuid.New(),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AddPlayer seats a new player. Re-adding an existing ID is a no-op, so a
// client retrying a join never errors.
func (m *Match) AddPlayer(id uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playerByID(id) != nil {
		return nil
	}
	if m.Started {
		return ruleErr(CodeGameAlreadyStarted, "round already in progress")
	}
	if len(m.Players) >= MaxPlayers {
		return ruleErr(CodeGameFull, "match already has %d players", MaxPlayers)
	}
	m.Players = append(m.Players, &Player{ID: id, Name: name})
	return nil
}

// RemovePlayer unseats a player. A mid-round leaver's cards (including an
// undecided drawn card) are folded under the discard pile so the round's
// card multiset stays intact. During the final round, a leaver who already
// took their last turn shrinks the completed count along with the seat
// count, and the round ends at once when every remaining non-knocker has
// had their turn. Returns true when the match is now empty.
func (m *Match) RemovePlayer(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.playerIndex(id)
	if idx < 0 {
		return len(m.Players) == 0
	}
	p := m.Players[idx]

	if m.Started {
		if idx == m.CurrentPlayerIndex && m.Pending != nil {
			m.DiscardPile = append(m.DiscardPile, m.Pending.Card)
			m.Pending = nil
			m.DrawTwo = DrawTwoState{}
		}
		if len(p.Hand) > 0 {
			bottom := make([]*Card, 0, len(p.Hand)+len(m.DiscardPile))
			bottom = append(bottom, p.Hand...)
			m.DiscardPile = append(bottom, m.DiscardPile...)
		}
		// The FinalTurnsTaken seats cyclically after the knocker are the
		// ones whose final turn is done. A leaver from that stretch comes
		// off the count, so every seat still owed a final turn keeps it.
		if m.KnockerID != uuid.Nil && id != m.KnockerID {
			if kIdx := m.playerIndex(m.KnockerID); kIdx >= 0 {
				d := (idx - kIdx + len(m.Players)) % len(m.Players)
				if d <= m.FinalTurnsTaken {
					m.FinalTurnsTaken--
				}
			}
		}
	}

	m.Players = append(m.Players[:idx], m.Players[idx+1:]...)
	if len(m.Players) == 0 {
		m.Started = false
		return true
	}

	switch {
	case idx < m.CurrentPlayerIndex:
		m.CurrentPlayerIndex--
	case idx == m.CurrentPlayerIndex:
		m.CurrentPlayerIndex = m.CurrentPlayerIndex % len(m.Players)
		m.TurnSeq++
	}

	if m.Started && m.KnockerID != uuid.Nil {
		if m.FinalTurnsTaken >= len(m.Players)-1 {
			m.endRound()
			return false
		}
		if len(m.Players) > 1 && m.Players[m.CurrentPlayerIndex].ID == m.KnockerID {
			m.advanceTurn()
		}
	}
	return false
}

// StartRound deals a fresh round: new shuffled deck, four unknown cards per
// player, a number card opening the discard, first seat to act. Cumulative
// scores carry over from earlier rounds.
func (m *Match) StartRound() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Started {
		return ruleErr(CodeGameAlreadyStarted, "round already in progress")
	}
	if len(m.Players) < MinPlayers {
		return ruleErr(CodeInsufficientPlayers, "need at least %d players, have %d", MinPlayers, len(m.Players))
	}

	m.Deck = newDeck()
	m.shuffleDeck()
	m.DiscardPile = nil
	m.Pending = nil
	m.DrawTwo = DrawTwoState{}
	m.KnockerID = uuid.Nil
	m.FinalTurnsTaken = 0
	m.RoundOver = false

	for _, p := range m.Players {
		p.Hand = make([]*Card, 0, HandSize)
		p.Known = make([]bool, 0, HandSize)
		p.RoundScore = 0
		for i := 0; i < HandSize; i++ {
			card := m.Deck[len(m.Deck)-1]
			m.Deck = m.Deck[:len(m.Deck)-1]
			p.Hand = append(p.Hand, card)
			p.Known = append(p.Known, false)
		}
	}

	// The opening discard must be a number card; power cards go back in and
	// the deck is reshuffled until one turns up.
	for {
		card := m.Deck[len(m.Deck)-1]
		m.Deck = m.Deck[:len(m.Deck)-1]
		if card.Kind == KindNumber {
			m.DiscardPile = append(m.DiscardPile, card)
			break
		}
		m.Deck = append(m.Deck, card)
		m.shuffleDeck()
	}

	m.CurrentPlayerIndex = 0
	m.TurnSeq++
	m.Started = true
	return nil
}

// Seq returns the current turn sequence number.
func (m *Match) Seq() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TurnSeq
}

// CurrentPlayerID returns the seat whose turn it is, or uuid.Nil when no
// round is running.
func (m *Match) CurrentPlayerID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Started {
		return uuid.Nil
	}
	if cur := m.currentPlayer(); cur != nil {
		return cur.ID
	}
	return uuid.Nil
}

// shuffleDeck permutes the draw pile in place. Assumes the lock is held.
func (m *Match) shuffleDeck() {
	m.rng.Shuffle(len(m.Deck), func(i, j int) {
		m.Deck[i], m.Deck[j] = m.Deck[j], m.Deck[i]
	})
}

// draw pops the top of the draw pile. An empty pile is refilled from the
// discard pile, keeping the current discard top where it is; when that is
// impossible (discard has at most one card) the draw reports false.
// Assumes the lock is held.
func (m *Match) draw() (*Card, bool) {
	if len(m.Deck) == 0 {
		if len(m.DiscardPile) <= 1 {
			return nil, false
		}
		top := m.DiscardPile[len(m.DiscardPile)-1]
		m.Deck = append(m.Deck, m.DiscardPile[:len(m.DiscardPile)-1]...)
		m.DiscardPile = []*Card{top}
		m.shuffleDeck()
	}
	card := m.Deck[len(m.Deck)-1]
	m.Deck = m.Deck[:len(m.Deck)-1]
	return card, true
}

// endTurn closes out the acting player's turn after any terminal action.
// During the final round it counts completions and ends the round once every
// non-knocker has had one. Assumes the lock is held.
func (m *Match) endTurn() {
	m.Pending = nil
	m.DrawTwo = DrawTwoState{}
	if m.KnockerID != uuid.Nil {
		m.FinalTurnsTaken++
		if m.FinalTurnsTaken >= len(m.Players)-1 {
			m.endRound()
			return
		}
	}
	m.advanceTurn()
}

// advanceTurn hands the turn to the next seat, skipping the knocker while
// the final round is on. Assumes the lock is held.
func (m *Match) advanceTurn() {
	n := len(m.Players)
	if n == 0 {
		return
	}
	m.TurnSeq++
	m.CurrentPlayerIndex = (m.CurrentPlayerIndex + 1) % n
	if m.KnockerID == uuid.Nil || n == 1 {
		return
	}
	for m.Players[m.CurrentPlayerIndex].ID == m.KnockerID {
		m.CurrentPlayerIndex = (m.CurrentPlayerIndex + 1) % n
	}
}

func (m *Match) playerByID(id uuid.UUID) *Player {
	for _, p := range m.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Match) playerIndex(id uuid.UUID) int {
	for i, p := range m.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *Match) currentPlayer() *Player {
	if len(m.Players) == 0 || m.CurrentPlayerIndex >= len(m.Players) {
		return nil
	}
	return m.Players[m.CurrentPlayerIndex]
}

// requireTurn validates that a round is running and it is the given player's
// turn. Assumes the lock is held.
func (m *Match) requireTurn(playerID uuid.UUID) (*Player, error) {
	if !m.Started {
		return nil, ruleErr(CodeMatchNotStarted, "no round in progress")
	}
	p := m.currentPlayer()
	if p == nil || p.ID != playerID {
		return nil, ruleErr(CodeNotYourTurn, "it is not your turn")
	}
	return p, nil
}

// requirePending validates turn ownership plus a pending card of the given
// kind, outside any Draw-Two chain. Assumes the lock is held.
func (m *Match) requirePending(playerID uuid.UUID, kind CardKind) (*Player, error) {
	p, err := m.requireTurn(playerID)
	if err != nil {
		return nil, err
	}
	if m.DrawTwo.Active {
		return nil, ruleErr(CodeDrawTwoChainActive, "resolve the draw-two chain first")
	}
	if m.Pending == nil {
		return nil, ruleErr(CodeNoCardDrawn, "no drawn card to act on")
	}
	if m.Pending.Card.Kind != kind {
		return nil, ruleErr(CodeWrongCardKind, "drawn card is %s, not %s", m.Pending.Card.Kind, kind)
	}
	return p, nil
}

func (m *Match) discard(c *Card) {
	m.DiscardPile = append(m.DiscardPile, c)
}
