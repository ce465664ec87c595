package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/hanaxu/OrderSong-Go/bot"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Repository provides access to the voice cache database.
type Repository struct {
	db *gorm.DB
}

var _ bot.VoiceCache = (*Repository)(nil)

// NewSQLiteRepository creates a repository backed by SQLite.
func NewSQLiteRepository(dsn string, gormLogger logger.Interface) (*Repository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn required")
	}

	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	dbDir := filepath.Dir(dsn)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 gormLogger,
	})
	if err != nil {
		return nil, err
	}

	if err := applySQLitePragmas(db); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&VoiceCacheModel{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return &Repository{db: db}, nil
}

func applySQLitePragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, stmt := range pragmas {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Find returns a cached voice entry, or nil when no row matches.
func (r *Repository) Find(ctx context.Context, source, trackID string, bitrate int) (*bot.VoiceEntry, error) {
	var model VoiceCacheModel
	err := r.db.WithContext(ctx).
		Where("source = ? AND track_id = ? AND bitrate = ?", source, trackID, bitrate).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toInternal(model), nil
}

// Save inserts or replaces a voice entry for its source, track and bitrate.
func (r *Repository) Save(ctx context.Context, entry *bot.VoiceEntry) error {
	if entry == nil {
		return errors.New("entry required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := toModel(entry)
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "source"},
				{Name: "track_id"},
				{Name: "bitrate"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"deleted_at",
				"updated_at",
				"file_id",
				"title",
				"artist",
				"duration",
			}),
		}).Create(model).Error; err != nil {
			return err
		}
		if err := tx.Where("source = ? AND track_id = ? AND bitrate = ?", model.Source, model.TrackID, model.Bitrate).First(model).Error; err != nil {
			return err
		}
		entry.ID = model.ID
		return nil
	})
}

// DeleteByTrack removes all bitrates of a track.
func (r *Repository) DeleteByTrack(ctx context.Context, source, trackID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&VoiceCacheModel{}, "source = ? AND track_id = ?", source, trackID).Error
	})
}

// DeleteAll clears the whole cache and reports how many rows went away.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("repository not configured")
	}
	res := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&VoiceCacheModel{})
	return res.RowsAffected, res.Error
}

// Count returns the number of cached entries.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&VoiceCacheModel{}).Count(&count).Error
	return count, err
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}
