package bot

import "context"

// Logger is the minimal logging abstraction used across modules.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// VoiceCache stores Telegram file IDs of voice messages already uploaded,
// keyed by upstream source, track ID and bitrate.
type VoiceCache interface {
	Find(ctx context.Context, source, trackID string, bitrate int) (*VoiceEntry, error)
	Save(ctx context.Context, entry *VoiceEntry) error
	DeleteByTrack(ctx context.Context, source, trackID string) error
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// VoiceEntry is one cached voice upload.
type VoiceEntry struct {
	ID       uint
	Source   string
	TrackID  string
	Bitrate  int
	FileID   string
	Title    string
	Artist   string
	Duration int
}

// WorkerPool limits concurrency for background tasks.
type WorkerPool interface {
	Submit(task func()) error
	SubmitWait(task func() error) error
	Shutdown(ctx context.Context) error
	Size() int
}
