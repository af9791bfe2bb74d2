// internal/handlers/room.go
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/feliskatz/ratatat/internal/database"
	"github.com/feliskatz/ratatat/internal/game"
	"github.com/feliskatz/ratatat/internal/journal"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Room binds one match to the WebSocket connections of its players. The
// engine owns the rules; the room owns delivery: personalized state fanout,
// the action journal, round archiving and the idle turn timer.
type Room struct {
	ID    uuid.UUID
	Match *game.Match
	Log   *logrus.Logger

	// TurnTimeout > 0 auto-resolves a turn left idle for that long.
	TurnTimeout time.Duration

	// actMu serializes actions so each action's state fanout is queued
	// before the next action mutates the match.
	actMu sync.Mutex

	connMu sync.Mutex
	conns  map[uuid.UUID]*websocket.Conn

	// sendMu guards sendDone, the tail of the outbound queue. Each queued
	// batch waits for the one before it, so clients receive snapshots in
	// the order they were taken.
	sendMu   sync.Mutex
	sendDone chan struct{}

	timerMu   sync.Mutex
	idleTimer *time.Timer

	onEmpty func(uuid.UUID)
}

// outbound pairs one marshaled-to-be payload with its destination.
type outbound struct {
	conn    *websocket.Conn
	payload interface{}
}

// NewRoom creates a room around a fresh match. The room shares the match id.
// onEmpty is called with the room id after the last player leaves.
func NewRoom(log *logrus.Logger, turnTimeout time.Duration, onEmpty func(uuid.UUID)) *Room {
	m := game.NewMatch()
	r := &Room{
		ID:          m.ID,
		Match:       m,
		Log:         log,
		TurnTimeout: turnTimeout,
		conns:       make(map[uuid.UUID]*websocket.Conn),
		onEmpty:     onEmpty,
	}
	m.OnRoundEnd = r.handleRoundEnd
	return r
}

// Join seats the player (a rejoin with a known id reclaims the seat) and
// registers the connection, superseding any previous one. The joiner gets an
// ack plus their view; everybody else hears about the arrival.
func (r *Room) Join(playerID uuid.UUID, name string, conn *websocket.Conn) error {
	if err := r.Match.AddPlayer(playerID, name); err != nil {
		return err
	}

	r.connMu.Lock()
	old := r.conns[playerID]
	r.conns[playerID] = conn
	r.connMu.Unlock()
	if old != nil {
		old.Close(websocket.StatusNormalClosure, "superseded by a new connection")
	}

	sendWsMessage(context.Background(), conn, map[string]interface{}{
		"type":      "joined",
		"room_id":   r.ID.String(),
		"player_id": playerID.String(),
		"name":      name,
	})
	r.broadcastEvent(map[string]interface{}{
		"type":      "player_joined",
		"player_id": playerID.String(),
		"name":      name,
	})
	r.broadcastState()
	return nil
}

// Leave drops the connection and unseats the player. A stale call from a
// superseded connection is ignored. Returns true when the room emptied and
// was handed to onEmpty.
func (r *Room) Leave(playerID uuid.UUID, name string, conn *websocket.Conn) bool {
	r.connMu.Lock()
	cur, ok := r.conns[playerID]
	if !ok || cur != conn {
		r.connMu.Unlock()
		return false
	}
	delete(r.conns, playerID)
	r.connMu.Unlock()

	empty := r.Match.RemovePlayer(playerID)
	if empty {
		r.stopIdleTimer()
		if r.onEmpty != nil {
			r.onEmpty(r.ID)
		}
		return true
	}

	r.broadcastEvent(map[string]interface{}{
		"type":      "player_left",
		"player_id": playerID.String(),
		"name":      name,
	})
	r.broadcastState()
	r.scheduleIdleTimer()
	return false
}

// HandleAction routes one client action into the engine, answers the actor
// on their connection, journals the attempt, and fans the new state out.
func (r *Room) HandleAction(playerID uuid.UUID, conn *websocket.Conn, msg ClientMessage) {
	r.actMu.Lock()
	defer r.actMu.Unlock()

	var (
		result  map[string]interface{}
		payload map[string]interface{}
		err     error
	)

	switch msg.Type {
	case "start_round":
		err = r.Match.StartRound()
		if err == nil {
			result = map[string]interface{}{}
		}

	case "draw_deck":
		var card *game.Card
		card, err = r.Match.DrawFromDeck(playerID)
		if err == nil {
			result = map[string]interface{}{"card": card}
		}

	case "draw_discard":
		var card *game.Card
		card, err = r.Match.DrawFromDiscard(playerID)
		if err == nil {
			result = map[string]interface{}{"card": card}
		}

	case "replace":
		payload = map[string]interface{}{"index": msg.Index}
		var old *game.Card
		old, err = r.Match.ReplaceCard(playerID, msg.Index)
		if err == nil {
			result = map[string]interface{}{"discarded": old}
		}

	case "discard_drawn":
		var card *game.Card
		card, err = r.Match.DiscardDrawn(playerID)
		if err == nil {
			result = map[string]interface{}{"discarded": card}
		}

	case "peek":
		payload = map[string]interface{}{"index": msg.Index}
		var card *game.Card
		card, err = r.Match.UsePeek(playerID, msg.Index)
		if err == nil {
			result = map[string]interface{}{"card": card}
		}

	case "swap":
		payload = map[string]interface{}{
			"my_index":       msg.MyIndex,
			"opponent_id":    msg.OpponentID,
			"opponent_index": msg.OpponentIndex,
		}
		oppID, parseErr := uuid.Parse(msg.OpponentID)
		if parseErr != nil {
			err = &game.RuleError{Code: game.CodeInvalidOpponent, Detail: "malformed opponent id"}
		} else {
			var oppName string
			oppName, err = r.Match.UseSwap(playerID, msg.MyIndex, oppID, msg.OpponentIndex)
			if err == nil {
				result = map[string]interface{}{"opponent": oppName}
			}
		}

	case "decline_swap":
		err = r.Match.DeclineSwap(playerID)
		if err == nil {
			result = map[string]interface{}{}
		}

	case "draw_two":
		var prog *game.DrawTwoProgress
		prog, err = r.Match.UseDrawTwo(playerID)
		if err == nil {
			result = map[string]interface{}{"progress": prog}
		}

	case "draw_two_resolve":
		payload = map[string]interface{}{"action": msg.Action, "index": msg.Index}
		var prog *game.DrawTwoProgress
		prog, err = r.Match.ResolveDrawTwo(playerID, game.DrawTwoAction(msg.Action), msg.Index)
		if err == nil {
			result = map[string]interface{}{"progress": prog}
		}

	case "add_card":
		var added bool
		added, err = r.Match.UseAddCard(playerID)
		if err == nil {
			result = map[string]interface{}{"added": added}
		}

	case "knock":
		err = r.Match.Knock(playerID)
		if err == nil {
			result = map[string]interface{}{}
		}

	default:
		sendWsError(context.Background(), conn, "", "unknown action type: "+msg.Type)
		return
	}

	if err != nil {
		code := string(game.CodeOf(err))
		r.journalAction(playerID, msg.Type, payload, code)
		sendWsError(context.Background(), conn, code, err.Error())
		return
	}

	r.journalAction(playerID, msg.Type, payload, "")
	result["type"] = "action_result"
	result["action"] = msg.Type
	sendWsMessage(context.Background(), conn, result)
	r.broadcastState()
	r.scheduleIdleTimer()
}

// broadcastState sends every connected player their own view of the match.
func (r *Room) broadcastState() {
	r.connMu.Lock()
	targets := make(map[uuid.UUID]*websocket.Conn, len(r.conns))
	for id, c := range r.conns {
		targets[id] = c
	}
	r.connMu.Unlock()

	msgs := make([]outbound, 0, len(targets))
	for id, c := range targets {
		msgs = append(msgs, outbound{
			conn: c,
			payload: map[string]interface{}{
				"type": "state",
				"view": r.Match.ViewFor(id),
			},
		})
	}
	r.sendQueued(msgs)
}

// broadcastEvent sends the same payload to every connected player.
func (r *Room) broadcastEvent(payload map[string]interface{}) {
	r.connMu.Lock()
	msgs := make([]outbound, 0, len(r.conns))
	for _, c := range r.conns {
		msgs = append(msgs, outbound{conn: c, payload: payload})
	}
	r.connMu.Unlock()
	r.sendQueued(msgs)
}

// sendQueued hands one batch to the room's outbound chain. Batches go out
// one at a time in the order they were queued; the sender never blocks the
// caller.
func (r *Room) sendQueued(msgs []outbound) {
	r.sendMu.Lock()
	prev := r.sendDone
	done := make(chan struct{})
	r.sendDone = done
	r.sendMu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		for _, m := range msgs {
			sendWsMessage(context.Background(), m.conn, m.payload)
		}
	}()
}

// journalAction pushes one action record to the journal queue, when the
// journal is connected. Never blocks the action path.
func (r *Room) journalAction(actorID uuid.UUID, action string, payload map[string]interface{}, errCode string) {
	if journal.Rdb == nil {
		return
	}
	rec := journal.ActionRecord{
		RoomID:    r.ID,
		Seq:       r.Match.Seq(),
		ActorID:   actorID,
		Action:    action,
		Payload:   payload,
		ErrorCode: errCode,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := journal.Record(ctx, rec); err != nil {
			r.Log.Warnf("journal write failed for room %s: %v", r.ID, err)
		}
	}()
}

// handleRoundEnd runs as the match's OnRoundEnd callback, with the match
// lock held: capture what is needed and get off the lock path.
func (r *Room) handleRoundEnd(results []game.RoundResult) {
	rs := append([]game.RoundResult(nil), results...)
	seq := r.Match.TurnSeq // direct read is safe, the callback holds the match lock
	go r.archiveRound(rs, seq)
}

// archiveRound announces the finished round, journals it, and writes the
// results through to Postgres when a pool is connected.
func (r *Room) archiveRound(results []game.RoundResult, seq int64) {
	r.stopIdleTimer()
	r.broadcastEvent(map[string]interface{}{
		"type":    "round_ended",
		"results": results,
	})
	r.broadcastState()

	if journal.Rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		rec := journal.ActionRecord{
			RoomID:  r.ID,
			Seq:     seq,
			Action:  "round_ended",
			Payload: map[string]interface{}{"results": results},
		}
		if err := journal.Record(ctx, rec); err != nil {
			r.Log.Warnf("journal write failed for room %s: %v", r.ID, err)
		}
		cancel()
	}

	if database.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := database.SaveRoundResults(ctx, r.ID, seq, results); err != nil {
			r.Log.Warnf("failed to archive round results for room %s: %v", r.ID, err)
		}
	}
}

// scheduleIdleTimer arms the auto-resolve timer for the current turn. The
// captured sequence number makes a late-firing timer a no-op once the turn
// has moved on.
func (r *Room) scheduleIdleTimer() {
	if r.TurnTimeout <= 0 {
		return
	}
	current := r.Match.CurrentPlayerID()
	if current == uuid.Nil {
		r.stopIdleTimer()
		return
	}
	seq := r.Match.Seq()

	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.idleTimer != nil {
		r.idleTimer.Stop()
	}
	r.idleTimer = time.AfterFunc(r.TurnTimeout, func() {
		r.idleTimerFired(seq, current)
	})
}

func (r *Room) stopIdleTimer() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	if r.idleTimer != nil {
		r.idleTimer.Stop()
		r.idleTimer = nil
	}
}

func (r *Room) idleTimerFired(seq int64, playerID uuid.UUID) {
	r.actMu.Lock()
	defer r.actMu.Unlock()

	if r.Match.Seq() != seq {
		return
	}
	r.Log.WithFields(logrus.Fields{
		"room_id":   r.ID,
		"player_id": playerID,
	}).Warn("turn timed out, auto-resolving")

	r.forceFinishTurn(playerID)
	r.broadcastState()
	r.scheduleIdleTimer()
}

// forceFinishTurn completes an idle player's turn with the least eventful
// legal resolution: burn through any Draw-Two chain, discard a pending
// drawn card (or swap in a discard-sourced one, which may not be tossed
// back), otherwise draw and toss.
func (r *Room) forceFinishTurn(playerID uuid.UUID) {
	for i := 0; i < game.DeckSize; i++ {
		if _, err := r.Match.ResolveDrawTwo(playerID, game.DrawTwoDiscard, 0); err != nil {
			break
		}
	}

	if _, err := r.Match.DiscardDrawn(playerID); err == nil {
		return
	} else if game.CodeOf(err) == game.CodeCannotDiscardFromDiscard {
		if _, err := r.Match.ReplaceCard(playerID, 0); err == nil {
			return
		}
	}

	if _, err := r.Match.DrawFromDeck(playerID); err != nil {
		r.Log.Warnf("could not auto-resolve turn in room %s: %v", r.ID, err)
		return
	}
	if _, err := r.Match.DiscardDrawn(playerID); err != nil {
		r.Log.Warnf("could not auto-resolve turn in room %s: %v", r.ID, err)
	}
}
