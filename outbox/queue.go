// Package outbox keeps a till's orders flowing to the hub: every change is
// written locally first, pushed when online and queued otherwise, and the
// queue is drained in FIFO order once the hub is reachable again.
package outbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Request is one queued push.
type Request struct {
	ID           string    `json:"id"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	Payload      []byte    `json:"payload"`
	Timestamp    time.Time `json:"timestamp"`
	RetryCount   int       `json:"retryCount"`
	LastError    string    `json:"lastError,omitempty"`
	DeadLettered bool      `json:"deadLettered,omitempty"`
}

// Queue is the durable push queue.
type Queue interface {
	Enqueue(ctx context.Context, req Request) error
	// Pending lists live requests oldest first.
	Pending(ctx context.Context) ([]Request, error)
	// DeadLetters lists requests that exhausted their retries.
	DeadLetters(ctx context.Context) ([]Request, error)
	Update(ctx context.Context, req Request) error
	Delete(ctx context.Context, id string) error
}

// MemoryQueue keeps requests in process memory.
type MemoryQueue struct {
	mu    sync.Mutex
	seq   int
	items map[string]memoryEntry
}

type memoryEntry struct {
	seq int
	req Request
}

// NewMemoryQueue creates an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{items: make(map[string]memoryEntry)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, req Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	q.items[req.ID] = memoryEntry{seq: q.seq, req: req}
	return nil
}

func (q *MemoryQueue) list(dead bool) []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := make([]memoryEntry, 0, len(q.items))
	for _, e := range q.items {
		if e.req.DeadLettered == dead {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]Request, len(entries))
	for i, e := range entries {
		out[i] = e.req
	}
	return out
}

func (q *MemoryQueue) Pending(_ context.Context) ([]Request, error) {
	return q.list(false), nil
}

func (q *MemoryQueue) DeadLetters(_ context.Context) ([]Request, error) {
	return q.list(true), nil
}

func (q *MemoryQueue) Update(_ context.Context, req Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.items[req.ID]
	if !ok {
		return fmt.Errorf("queue entry %s not found", req.ID)
	}
	e.req = req
	q.items[req.ID] = e
	return nil
}

func (q *MemoryQueue) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, id)
	return nil
}

// QueueRecord is a queued push row. Seq preserves FIFO order.
type QueueRecord struct {
	Seq          uint      `gorm:"primaryKey;autoIncrement"`
	ID           string    `gorm:"size:64;uniqueIndex;not null"`
	Endpoint     string    `gorm:"size:128;not null"`
	Method       string    `gorm:"size:16;not null"`
	Payload      []byte    `gorm:"not null"`
	Timestamp    time.Time `gorm:"not null"`
	RetryCount   int       `gorm:"not null"`
	LastError    string    `gorm:"size:512"`
	DeadLettered bool      `gorm:"index;not null"`
}

// TableName sets the queue table name.
func (QueueRecord) TableName() string { return "sync_queue" }

func (r QueueRecord) request() Request {
	return Request{
		ID:           r.ID,
		Endpoint:     r.Endpoint,
		Method:       r.Method,
		Payload:      r.Payload,
		Timestamp:    r.Timestamp,
		RetryCount:   r.RetryCount,
		LastError:    r.LastError,
		DeadLettered: r.DeadLettered,
	}
}

// GormQueue is the database-backed Queue.
type GormQueue struct {
	db *gorm.DB
}

// NewGormQueue migrates the queue table and returns the queue.
func NewGormQueue(db *gorm.DB) (*GormQueue, error) {
	if err := db.AutoMigrate(&QueueRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sync queue: %w", err)
	}
	return &GormQueue{db: db}, nil
}

func (q *GormQueue) Enqueue(ctx context.Context, req Request) error {
	rec := QueueRecord{
		ID:         req.ID,
		Endpoint:   req.Endpoint,
		Method:     req.Method,
		Payload:    req.Payload,
		Timestamp:  req.Timestamp,
		RetryCount: req.RetryCount,
		LastError:  truncate(req.LastError, 512),
	}
	if err := q.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("enqueue %s: %w", req.ID, err)
	}
	return nil
}

func (q *GormQueue) list(ctx context.Context, dead bool) ([]Request, error) {
	var rows []QueueRecord
	if err := q.db.WithContext(ctx).Where("dead_lettered = ?", dead).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sync queue: %w", err)
	}
	out := make([]Request, len(rows))
	for i, r := range rows {
		out[i] = r.request()
	}
	return out, nil
}

func (q *GormQueue) Pending(ctx context.Context) ([]Request, error) {
	return q.list(ctx, false)
}

func (q *GormQueue) DeadLetters(ctx context.Context) ([]Request, error) {
	return q.list(ctx, true)
}

func (q *GormQueue) Update(ctx context.Context, req Request) error {
	err := q.db.WithContext(ctx).Model(&QueueRecord{}).Where("id = ?", req.ID).Updates(map[string]interface{}{
		"retry_count":   req.RetryCount,
		"last_error":    truncate(req.LastError, 512),
		"dead_lettered": req.DeadLettered,
	}).Error
	if err != nil {
		return fmt.Errorf("update queue entry %s: %w", req.ID, err)
	}
	return nil
}

func (q *GormQueue) Delete(ctx context.Context, id string) error {
	if err := q.db.WithContext(ctx).Where("id = ?", id).Delete(&QueueRecord{}).Error; err != nil {
		return fmt.Errorf("delete queue entry %s: %w", id, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
