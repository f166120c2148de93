package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSnapshots stores terminal snapshots in the database.
type GormSnapshots struct {
	db *gorm.DB
}

// NewGormSnapshots creates a GormSnapshots.
func NewGormSnapshots(db *gorm.DB) *GormSnapshots {
	return &GormSnapshots{db: db}
}

// Save replaces the snapshot stored under key.
func (s *GormSnapshots) Save(ctx context.Context, key string, data []byte) error {
	rec := SnapshotRecord{Key: key, Data: data}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "snapshot_key"}}, DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"})}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// Load returns the snapshot stored under key.
func (s *GormSnapshots) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var rec SnapshotRecord
	err := s.db.WithContext(ctx).First(&rec, "snapshot_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return rec.Data, true, nil
}

// MemorySnapshots keeps snapshots in process memory.
type MemorySnapshots struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemorySnapshots creates an empty MemorySnapshots.
func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{data: make(map[string][]byte)}
}

func (s *MemorySnapshots) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemorySnapshots) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), d...), true, nil
}
