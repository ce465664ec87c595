package db

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/hanaxu/OrderSong-Go/bot"
	logpkg "github.com/hanaxu/OrderSong-Go/bot/logger"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ordersong-test.db")

	base := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	gormLogger := logpkg.NewGormLogger(base, logger.Silent)

	repo, err := NewSQLiteRepository(path, gormLogger)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty db")
	}

	entry := &bot.VoiceEntry{
		Source:   "netease",
		TrackID:  "1001",
		Bitrate:  320,
		FileID:   "file-abc",
		Title:    "Song",
		Artist:   "Artist",
		Duration: 245,
	}
	if err := repo.Save(ctx, entry); err != nil {
		t.Fatalf("save: %v", err)
	}
	if entry.ID == 0 {
		t.Fatalf("expected assigned ID")
	}

	loaded, err := repo.Find(ctx, "netease", "1001", 320)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if loaded == nil || loaded.FileID != "file-abc" {
		t.Fatalf("unexpected entry: %+v", loaded)
	}

	missing, err := repo.Find(ctx, "netease", "1001", 128)
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing bitrate, got %+v", missing)
	}

	entry.FileID = "file-def"
	if err := repo.Save(ctx, entry); err != nil {
		t.Fatalf("save update: %v", err)
	}
	loaded, err = repo.Find(ctx, "netease", "1001", 320)
	if err != nil {
		t.Fatalf("find after update: %v", err)
	}
	if loaded.FileID != "file-def" {
		t.Fatalf("expected updated file id, got %s", loaded.FileID)
	}

	count, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row after upsert, got %d", count)
	}
}

func TestRepositoryDeleteByTrack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, br := range []int{128, 320} {
		entry := &bot.VoiceEntry{Source: "netease", TrackID: "1001", Bitrate: br, FileID: "f"}
		if err := repo.Save(ctx, entry); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	other := &bot.VoiceEntry{Source: "netease", TrackID: "2002", Bitrate: 320, FileID: "g"}
	if err := repo.Save(ctx, other); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := repo.DeleteByTrack(ctx, "netease", "1001"); err != nil {
		t.Fatalf("delete by track: %v", err)
	}

	gone, err := repo.Find(ctx, "netease", "1001", 320)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected deleted track to be gone")
	}

	kept, err := repo.Find(ctx, "netease", "2002", 320)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if kept == nil {
		t.Fatalf("expected other track to survive")
	}
}

func TestRepositoryDeleteAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, trackID := range []string{"1", "2", "3"} {
		entry := &bot.VoiceEntry{Source: "netease", TrackID: trackID, Bitrate: 128 + i, FileID: "f"}
		if err := repo.Save(ctx, entry); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	removed, err := repo.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty cache, got %d", count)
	}
}
