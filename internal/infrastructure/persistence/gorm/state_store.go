package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tablewise/server/internal/ports/outbound"
)

// StateStore keeps device state documents in the state_entries table
type StateStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStateStore creates a database backed state store
func NewStateStore(db *gorm.DB) *StateStore {
	return &StateStore{db: db, now: time.Now}
}

var _ outbound.StateStore = (*StateStore)(nil)

// Get returns the stored document or outbound.ErrStateNotFound
func (s *StateStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry StateEntryModel
	err := s.db.WithContext(ctx).First(&entry, "state_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrStateNotFound
		}
		return nil, fmt.Errorf("get state %q: %w", key, err)
	}
	return entry.Value, nil
}

// Put inserts or replaces a document
func (s *StateStore) Put(ctx context.Context, key string, value []byte) error {
	entry := StateEntryModel{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"state_value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("put state %q: %w", key, err)
	}
	return nil
}

// Delete removes a document. Missing keys are not an error.
func (s *StateStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&StateEntryModel{}, "state_key = ?", key).Error; err != nil {
		return fmt.Errorf("delete state %q: %w", key, err)
	}
	return nil
}

// Keys lists stored keys starting with prefix in ascending order
func (s *StateStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := s.db.WithContext(ctx).
		Model(&StateEntryModel{}).
		Where("state_key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("state_key").
		Pluck("state_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("list state keys: %w", err)
	}
	return keys, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
