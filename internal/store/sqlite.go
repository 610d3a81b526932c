package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// kvEntry is the current value of a key.
type kvEntry struct {
	Key       string    `gorm:"column:entry_key;primaryKey"`
	Value     string    `gorm:"column:value;type:TEXT;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (kvEntry) TableName() string { return "kv_entries" }

// kvChange is one row of the append-only change log other handles poll.
type kvChange struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Key       string    `gorm:"column:entry_key;not null"`
	Value     string    `gorm:"column:value;type:TEXT"`
	Deleted   bool      `gorm:"column:deleted;default:false"`
	Writer    string    `gorm:"column:writer;size:36;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (kvChange) TableName() string { return "kv_changes" }

// SQLiteStore is a Store persisted in a SQLite file. Every opened store is
// its own writer; changes written by other writers are picked up by Poll.
type SQLiteStore struct {
	db     *gorm.DB
	writer string
	logger zerolog.Logger

	pollMu sync.Mutex

	mu     sync.Mutex
	cursor uint64
	subs   listeners
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if err := db.Exec("PRAGMA busy_timeout=5000").Error; err != nil {
		return nil, fmt.Errorf("store: busy timeout: %w", err)
	}

	return NewSQLiteStore(db, logger)
}

// NewSQLiteStore migrates the schema on db and starts reading the change log
// from its current end, so changes made before the store existed are not replayed.
func NewSQLiteStore(db *gorm.DB, logger zerolog.Logger) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&kvEntry{}, &kvChange{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	var last kvChange
	err := db.Order("id DESC").Limit(1).Find(&last).Error
	if err != nil {
		return nil, fmt.Errorf("store: read change cursor: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		writer: uuid.NewString(),
		logger: logger.With().Str("component", "sqlite-store").Logger(),
		cursor: last.ID,
	}
	return s, nil
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(key string) (string, error) {
	var e kvEntry
	err := s.db.First(&e, "entry_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get %s: %w", key, err)
	}
	return e.Value, nil
}

// Set stores value under key and records the change when the value differs.
func (s *SQLiteStore) Set(key, value string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing kvEntry
		res := tx.Where("entry_key = ?", key).Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 && existing.Value == value {
			return nil
		}

		entry := kvEntry{Key: key, Value: value}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error; err != nil {
			return err
		}

		return tx.Create(&kvChange{Key: key, Value: value, Writer: s.writer}).Error
	})
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *SQLiteStore) Remove(key string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("entry_key = ?", key).Delete(&kvEntry{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Create(&kvChange{Key: key, Deleted: true, Writer: s.writer}).Error
	})
	if err != nil {
		return fmt.Errorf("store: remove %s: %w", key, err)
	}
	return nil
}

// Subscribe registers fn for changes made by other writers. Events are
// delivered from Poll.
func (s *SQLiteStore) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.subs.add(fn)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.subs.remove(id)
		s.mu.Unlock()
	}
}

// Poll reads the change log past the cursor and delivers changes made by
// other writers to subscribers. It returns the number of delivered events.
func (s *SQLiteStore) Poll(ctx context.Context) (int, error) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	s.mu.Lock()
	cursor := s.cursor
	s.mu.Unlock()

	var changes []kvChange
	err := s.db.WithContext(ctx).
		Where("id > ?", cursor).
		Order("id ASC").
		Find(&changes).Error
	if err != nil {
		return 0, fmt.Errorf("store: poll changes: %w", err)
	}
	if len(changes) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	if changes[len(changes)-1].ID > s.cursor {
		s.cursor = changes[len(changes)-1].ID
	}
	fns := s.subs.snapshot()
	s.mu.Unlock()

	delivered := 0
	for _, c := range changes {
		if c.Writer == s.writer {
			continue
		}
		ev := Event{Key: c.Key, NewValue: c.Value, Deleted: c.Deleted}
		for _, fn := range fns {
			fn(ev)
		}
		delivered++
	}

	if delivered > 0 {
		s.logger.Debug().Int("events", delivered).Uint64("cursor", changes[len(changes)-1].ID).Msg("delivered external changes")
	}
	return delivered, nil
}

// Prune deletes change log rows older than before.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", before).Delete(&kvChange{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: prune changes: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ Store    = (*SQLiteStore)(nil)
	_ Notifier = (*SQLiteStore)(nil)
)
