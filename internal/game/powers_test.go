// internal/game/powers_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeekRevealsTransiently(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	peek := takePending(t, m, KindPeek)
	target := actor.Hand[2]

	revealed, err := m.UsePeek(actor.ID, 2)
	require.NoError(t, err)
	assert.Same(t, target, revealed)
	assert.False(t, actor.Known[2], "a peek is a look, not lasting knowledge")
	assert.Same(t, peek, m.DiscardPile[len(m.DiscardPile)-1])
	assert.Nil(t, m.Pending)
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	assertConservation(t, m)
}

func TestPeekWrongKind(t *testing.T) {
	m := setupTestMatch(t, 2)
	takePending(t, m, KindNumber)
	_, err := m.UsePeek(m.Players[0].ID, 0)
	assert.Equal(t, CodeWrongCardKind, CodeOf(err))
	assert.NotNil(t, m.Pending)
}

func TestPeekWithoutPending(t *testing.T) {
	m := setupTestMatch(t, 2)
	_, err := m.UsePeek(m.Players[0].ID, 0)
	assert.Equal(t, CodeNoCardDrawn, CodeOf(err))
}

func TestPeekInvalidIndex(t *testing.T) {
	m := setupTestMatch(t, 2)
	takePending(t, m, KindPeek)
	_, err := m.UsePeek(m.Players[0].ID, HandSize)
	assert.Equal(t, CodeInvalidIndex, CodeOf(err))
	assert.NotNil(t, m.Pending, "a failed peek keeps the card pending")
}

func TestSwapExchangesAndErasesKnowledge(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor, opp := m.Players[0], m.Players[1]
	actor.Known[1] = true
	opp.Known[3] = true
	mine, theirs := actor.Hand[1], opp.Hand[3]
	takePending(t, m, KindSwap)

	name, err := m.UseSwap(actor.ID, 1, opp.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, opp.Name, name)
	assert.Same(t, theirs, actor.Hand[1])
	assert.Same(t, mine, opp.Hand[3])
	assert.False(t, actor.Known[1])
	assert.False(t, opp.Known[3])
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	assertConservation(t, m)
	assertMaskParity(t, m)
}

func TestSwapSelfTargetRejected(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	swap := takePending(t, m, KindSwap)

	_, err := m.UseSwap(actor.ID, 0, actor.ID, 1)
	require.Error(t, err)
	assert.Equal(t, CodeSelfTarget, CodeOf(err))
	require.NotNil(t, m.Pending, "a failed swap keeps the card pending")
	assert.Same(t, swap, m.Pending.Card)
	assert.Equal(t, 0, m.CurrentPlayerIndex)
}

func TestSwapUnknownOpponent(t *testing.T) {
	m := setupTestMatch(t, 2)
	takePending(t, m, KindSwap)
	_, err := m.UseSwap(m.Players[0].ID, 0, uuid.New(), 0)
	assert.Equal(t, CodeInvalidOpponent, CodeOf(err))
	assert.NotNil(t, m.Pending)
}

func TestSwapIndexOutOfRange(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor, opp := m.Players[0], m.Players[1]
	takePending(t, m, KindSwap)

	_, err := m.UseSwap(actor.ID, HandSize, opp.ID, 0)
	assert.Equal(t, CodeInvalidIndex, CodeOf(err))
	_, err = m.UseSwap(actor.ID, 0, opp.ID, -1)
	assert.Equal(t, CodeInvalidIndex, CodeOf(err))
	assert.NotNil(t, m.Pending)
}

func TestDeclineSwapLeavesHandsAlone(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor, opp := m.Players[0], m.Players[1]
	handA := append([]*Card{}, actor.Hand...)
	handB := append([]*Card{}, opp.Hand...)
	swap := takePending(t, m, KindSwap)
	discardBefore := len(m.DiscardPile)

	require.NoError(t, m.DeclineSwap(actor.ID))
	assert.Equal(t, handA, actor.Hand)
	assert.Equal(t, handB, opp.Hand)
	assert.Len(t, m.DiscardPile, discardBefore+1)
	assert.Same(t, swap, m.DiscardPile[len(m.DiscardPile)-1])
	assert.Nil(t, m.Pending)
	assert.Equal(t, 1, m.CurrentPlayerIndex)
}

func TestDeclineNeedsSwapCard(t *testing.T) {
	m := setupTestMatch(t, 2)
	takePending(t, m, KindPeek)
	err := m.DeclineSwap(m.Players[0].ID)
	assert.Equal(t, CodeWrongCardKind, CodeOf(err))
	assert.NotNil(t, m.Pending)
}

func TestDrawTwoChainDiscardBoth(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	takePending(t, m, KindDrawTwo)
	n1, n2 := numberCard(4), numberCard(8)
	m.Deck = []*Card{n2, n1} // draws come off the end, so n1 first

	prog, err := m.UseDrawTwo(actor.ID)
	require.NoError(t, err)
	assert.True(t, m.DrawTwo.Active)
	assert.Equal(t, 2, m.DrawTwo.Remaining)
	assert.Equal(t, 2, prog.Remaining)
	assert.Same(t, n1, prog.Drawn)
	assert.False(t, prog.Done)
	require.NotNil(t, m.Pending)
	assert.Same(t, n1, m.Pending.Card)

	prog, err = m.ResolveDrawTwo(actor.ID, DrawTwoDiscard, 0)
	require.NoError(t, err)
	assert.Same(t, n2, prog.Drawn)
	assert.Equal(t, 1, prog.Remaining)
	assert.False(t, prog.Done)

	prog, err = m.ResolveDrawTwo(actor.ID, DrawTwoDiscard, 0)
	require.NoError(t, err)
	assert.True(t, prog.Done)
	assert.Equal(t, 0, prog.Remaining)
	assert.False(t, m.DrawTwo.Active)
	assert.Nil(t, m.Pending)
	assert.Same(t, n2, m.DiscardPile[len(m.DiscardPile)-1])
	assert.Equal(t, 1, m.CurrentPlayerIndex)
}

func TestDrawTwoUseForfeitsRemainder(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	takePending(t, m, KindDrawTwo)
	n1, n2 := numberCard(2), numberCard(9)
	m.Deck = []*Card{n2, n1}
	old := actor.Hand[3]

	_, err := m.UseDrawTwo(actor.ID)
	require.NoError(t, err)

	prog, err := m.ResolveDrawTwo(actor.ID, DrawTwoUse, 3)
	require.NoError(t, err)
	assert.True(t, prog.Done)
	assert.Same(t, old, prog.Replaced)
	assert.Same(t, n1, actor.Hand[3])
	assert.False(t, m.DrawTwo.Active)
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	assert.Len(t, m.Deck, 1, "the second chain draw never happens")
}

func TestDrawTwoChainResetsOnChainedDrawTwo(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	takePending(t, m, KindDrawTwo)
	n1 := numberCard(6)
	chained := powerCard(KindDrawTwo)
	m.Deck = []*Card{n1, chained} // the chained Draw-Two comes up first

	prog, err := m.UseDrawTwo(actor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.Chained)
	assert.Equal(t, 2, prog.Remaining, "a chained draw-two resets the count, never stacks")
	assert.Equal(t, 2, m.DrawTwo.Remaining)
	assert.Same(t, n1, prog.Drawn)
	assert.Contains(t, m.DiscardPile, chained)
}

func TestDrawTwoMidChainReset(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	takePending(t, m, KindDrawTwo)
	n3, chained, n1 := numberCard(3), powerCard(KindDrawTwo), numberCard(1)
	m.Deck = []*Card{n3, chained, n1}

	prog, err := m.UseDrawTwo(actor.ID)
	require.NoError(t, err)
	assert.Same(t, n1, prog.Drawn)
	assert.Equal(t, 2, prog.Remaining)

	// burning the first card surfaces the buried Draw-Two, which resets
	prog, err = m.ResolveDrawTwo(actor.ID, DrawTwoDiscard, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.Chained)
	assert.Equal(t, 2, prog.Remaining)
	assert.Same(t, n3, prog.Drawn)

	prog, err = m.ResolveDrawTwo(actor.ID, DrawTwoUse, 0)
	require.NoError(t, err)
	assert.True(t, prog.Done)
	assert.Same(t, n3, actor.Hand[0])
	assert.Equal(t, 1, m.CurrentPlayerIndex)
}

func TestDrawTwoExhaustionAbandonsChain(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	takePending(t, m, KindDrawTwo)
	m.Deck = nil
	m.DiscardPile = nil // after the Draw-Two lands there is nothing to recycle

	prog, err := m.UseDrawTwo(actor.ID)
	require.NoError(t, err)
	assert.True(t, prog.Done)
	assert.Nil(t, prog.Drawn)
	assert.False(t, m.DrawTwo.Active)
	assert.Nil(t, m.Pending)
	assert.Equal(t, 1, m.CurrentPlayerIndex, "an abandoned chain still ends the turn")
}

func TestResolveDrawTwoWithoutChain(t *testing.T) {
	m := setupTestMatch(t, 2)
	_, err := m.ResolveDrawTwo(m.Players[0].ID, DrawTwoDiscard, 0)
	assert.Equal(t, CodeNoCardDrawn, CodeOf(err))
}

func TestResolveDrawTwoBadAction(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	takePending(t, m, KindDrawTwo)
	_, err := m.UseDrawTwo(actor.ID)
	require.NoError(t, err)

	_, err = m.ResolveDrawTwo(actor.ID, DrawTwoAction("burn"), 0)
	assert.Equal(t, CodeWrongCardKind, CodeOf(err))
	assert.True(t, m.DrawTwo.Active, "a bad action leaves the chain untouched")
}

func TestTurnActionsBlockedDuringChain(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	takePending(t, m, KindDrawTwo)
	_, err := m.UseDrawTwo(actor.ID)
	require.NoError(t, err)
	require.True(t, m.DrawTwo.Active)

	_, err = m.ReplaceCard(actor.ID, 0)
	assert.Equal(t, CodeDrawTwoChainActive, CodeOf(err))
	_, err = m.DiscardDrawn(actor.ID)
	assert.Equal(t, CodeDrawTwoChainActive, CodeOf(err))
	_, err = m.UsePeek(actor.ID, 0)
	assert.Equal(t, CodeDrawTwoChainActive, CodeOf(err))
	_, err = m.DrawFromDeck(actor.ID)
	assert.Equal(t, CodeAlreadyDrawn, CodeOf(err))
}

func TestAddCardGrowsHand(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	takePending(t, m, KindAddCard)

	added, err := m.UseAddCard(actor.ID)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, actor.Hand, HandSize+1)
	assert.Len(t, actor.Known, HandSize+1)
	assert.False(t, actor.Known[HandSize], "the extra card arrives face down")
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	assertConservation(t, m)
	assertMaskParity(t, m)
}

func TestAddCardSilentOnEmptyDeck(t *testing.T) {
	m := setupTestMatch(t, 2)
	actor := m.Players[0]
	takePending(t, m, KindAddCard)
	m.Deck = nil
	m.DiscardPile = nil

	added, err := m.UseAddCard(actor.ID)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, actor.Hand, HandSize)
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	require.Len(t, m.DiscardPile, 1, "the Add-Card itself still lands on the pile")
	assert.Equal(t, KindAddCard, m.DiscardPile[0].Kind)
}
