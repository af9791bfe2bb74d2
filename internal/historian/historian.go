// Package historian drains the Redis action journal into Postgres. It runs
// as its own binary (cmd/historian), so the room service can journal to
// Redis only and leave all database writes to this worker.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/feliskatz/ratatat/internal/database"
	"github.com/feliskatz/ratatat/internal/journal"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Service pops action records from the journal queue, accumulates them into
// batches, and flushes each batch to Postgres in one transaction. It also
// tracks per-match activity and marks matches abandoned after a quiet
// period.
type Service struct {
	redisClient *redis.Client
	queueName   string
	batchSize   int
	flushDelay  time.Duration
	inactivity  time.Duration

	lastActivity sync.Map // map[uuid.UUID]time.Time, last record seen per match

	batchMu sync.Mutex
	batch   []journal.ActionRecord

	ctx      context.Context
	cancelFn context.CancelFunc
}

// New constructs a Service around an already-connected Redis client.
// Behavior is tuned with environment variables:
//   - JOURNAL_QUEUE_NAME (default journal.DefaultQueueName)
//   - HISTORIAN_BATCH_SIZE (default 20)
//   - HISTORIAN_FLUSH_MS (default 500)
//   - MATCH_INACTIVITY_TIMEOUT_SEC (default 600)
func New(rdb *redis.Client) *Service {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := getEnvInt("MATCH_INACTIVITY_TIMEOUT_SEC", 600)

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		redisClient: rdb,
		queueName:   getEnv("JOURNAL_QUEUE_NAME", journal.DefaultQueueName),
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]journal.ActionRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run starts the queue reader and the inactivity sweeper and blocks until
// Stop is called. The database pool must be connected before Run.
func (s *Service) Run() {
	go s.readQueueLoop()
	go s.inactivityLoop()

	log.Println("historian started.")
	<-s.ctx.Done()
	log.Println("historian shutting down.")
}

// Stop gracefully stops the service.
func (s *Service) Stop() {
	s.cancelFn()
}

// readQueueLoop blocks on the journal queue and feeds records into the
// batch. The flush ticker bounds how long a partial batch can linger.
func (s *Service) readQueueLoop() {
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.flushBatch()
			return

		case <-ticker.C:
			s.flushBatch()

		default:
			// BLPop with a short timeout so cancellation is noticed.
			res, err := s.redisClient.BLPop(s.ctx, 3*time.Second, s.queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name, res[1] the payload.
			var rec journal.ActionRecord
			if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
				log.Printf("invalid action record: %v", err)
				continue
			}

			s.noteActivity(rec.RoomID)
			s.appendToBatch(rec)
		}
	}
}

// appendToBatch adds a record and flushes once the batch is full.
func (s *Service) appendToBatch(rec journal.ActionRecord) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	s.batch = append(s.batch, rec)
	if len(s.batch) >= s.batchSize {
		s.flushLocked()
	}
}

// flushBatch flushes whatever has accumulated.
func (s *Service) flushBatch() {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.flushLocked()
}

// flushLocked writes the batch out and clears it. A failed write is logged
// and the batch dropped; the journal is an audit trail, not a ledger, and
// blocking the queue on a broken database helps nobody.
func (s *Service) flushLocked() {
	if len(s.batch) == 0 {
		return
	}
	records := make([]journal.ActionRecord, len(s.batch))
	copy(records, s.batch)
	s.batch = s.batch[:0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.SaveActionBatch(ctx, records); err != nil {
		log.Printf("[ERROR] flush action batch: %v", err)
		return
	}
	log.Printf("flushed %d actions.", len(records))
}

func (s *Service) noteActivity(matchID uuid.UUID) {
	s.lastActivity.Store(matchID, time.Now())
}

// inactivityLoop periodically sweeps for matches that stopped producing
// records.
func (s *Service) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweepInactive(time.Now())
		}
	}
}

// sweepInactive marks every match quiet for longer than the inactivity
// window as abandoned and forgets it.
func (s *Service) sweepInactive(now time.Time) {
	s.lastActivity.Range(func(key, val interface{}) bool {
		matchID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if ok1 && ok2 && now.Sub(last) > s.inactivity {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := database.MarkMatchAbandoned(ctx, matchID); err != nil {
				log.Printf("failed to mark match %v abandoned: %v", matchID, err)
			} else {
				log.Printf("marked match %v abandoned after inactivity.", matchID)
			}
			cancel()
			s.lastActivity.Delete(matchID)
		}
		return true
	})
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else a default.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
