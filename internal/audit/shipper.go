// Package audit ships request audit records to the erp_audit_log table.
// Shipping is fire-and-forget: records buffer in memory and flush in the
// background; a failed flush is logged and dropped, never surfaced to the
// request that produced it.
package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Entry struct {
	Actor    string
	Resource string
	Verb     string
	RecordID string
	Status   int
	At       time.Time
}

// Shipper collects entries in memory and periodically flushes them in a
// batch insert. Flush triggers on a timer or when the buffer fills.
type Shipper struct {
	mu      sync.Mutex
	entries []Entry
	pool    *pgxpool.Pool
	log     *zap.Logger
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
}

func NewShipper(pool *pgxpool.Pool, log *zap.Logger, maxSize int, flushInterval time.Duration) *Shipper {
	if maxSize <= 0 {
		maxSize = 500
	}
	if flushInterval <= 0 {
		flushInterval = 100 * time.Millisecond
	}
	s := &Shipper{
		pool:    pool,
		log:     log,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	s.ticker = time.NewTicker(flushInterval)
	go s.run()
	return s
}

func (s *Shipper) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.Flush()
		}
	}
}

// Record implements engine.AuditSink.
func (s *Shipper) Record(actor, resource, verb, recordID string, status int) {
	s.mu.Lock()
	s.entries = append(s.entries, Entry{
		Actor:    actor,
		Resource: resource,
		Verb:     verb,
		RecordID: recordID,
		Status:   status,
		At:       time.Now(),
	})
	shouldFlush := len(s.entries) >= s.maxSize
	s.mu.Unlock()
	if shouldFlush {
		go s.Flush()
	}
}

// Flush writes all buffered entries in a single batch insert.
func (s *Shipper) Flush() {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.entries
	s.entries = nil
	s.mu.Unlock()

	if s.pool == nil {
		return
	}

	var placeholders []string
	var args []any
	for i, e := range batch {
		off := i * 6
		placeholders = append(placeholders, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
			off+1, off+2, off+3, off+4, off+5, off+6))
		args = append(args, e.Actor, e.Resource, e.Verb, e.RecordID, e.Status, e.At)
	}

	sql := "INSERT INTO erp_audit_log (actor, resource, verb, record_id, status, created_at) VALUES " +
		strings.Join(placeholders, ",")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		s.log.Warn("audit flush failed", zap.Int("dropped", len(batch)), zap.Error(err))
	}
}

// Stop flushes remaining entries and stops the background loop.
func (s *Shipper) Stop() {
	s.ticker.Stop()
	close(s.done)
	s.Flush()
}

// Pending returns the number of buffered entries. Test hook.
func (s *Shipper) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
