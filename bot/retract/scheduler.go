package retract

import (
	"context"
	"time"

	"github.com/hanaxu/OrderSong-Go/bot"
)

// Category distinguishes message kinds for the retraction policy.
type Category int

const (
	// CategoryTip is the transient "searching"/"generating" prompt.
	CategoryTip Category = iota

	// CategoryMenu is the song-list menu.
	CategoryMenu
)

// Policy gates which messages get retracted and when.
type Policy struct {
	RetractTip  bool
	RetractMenu bool

	// OnlyAfterSuccess suppresses all retraction when the triggering
	// operation failed.
	OnlyAfterSuccess bool

	// KeepMenuOnFailure suppresses song-list retraction specifically on
	// failure even when retraction is otherwise enabled.
	KeepMenuOnFailure bool

	// Delay before deletion; zero means immediate.
	Delay time.Duration
}

// ShouldRetract evaluates the gate for one message category given the
// outcome of the triggering operation.
func (p Policy) ShouldRetract(category Category, success bool) bool {
	switch category {
	case CategoryTip:
		if !p.RetractTip {
			return false
		}
	case CategoryMenu:
		if !p.RetractMenu {
			return false
		}
		if !success && p.KeepMenuOnFailure {
			return false
		}
	default:
		return false
	}
	if p.OnlyAfterSuccess && !success {
		return false
	}
	return true
}

// Deleter removes one message; errors are expected (the message may
// already be gone) and are swallowed by the scheduler.
type Deleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Scheduler performs best-effort delayed message deletion.
type Scheduler struct {
	deleter Deleter
	logger  bot.Logger

	// after is injectable for tests.
	after func(d time.Duration, fn func()) *time.Timer
}

// NewScheduler creates a Scheduler.
func NewScheduler(deleter Deleter, logger bot.Logger) *Scheduler {
	return &Scheduler{
		deleter: deleter,
		logger:  logger,
		after:   time.AfterFunc,
	}
}

// Schedule deletes the given messages after delay. A zero delay deletes
// immediately on the calling goroutine. Deletion failures are logged at
// debug level and otherwise ignored.
func (s *Scheduler) Schedule(chatID int64, messageIDs []int, delay time.Duration) {
	if s == nil || s.deleter == nil || len(messageIDs) == 0 {
		return
	}

	ids := make([]int, len(messageIDs))
	copy(ids, messageIDs)

	if delay <= 0 {
		s.deleteAll(chatID, ids)
		return
	}
	s.after(delay, func() {
		s.deleteAll(chatID, ids)
	})
}

func (s *Scheduler) deleteAll(chatID int64, messageIDs []int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, id := range messageIDs {
		if err := s.deleter.DeleteMessage(ctx, chatID, id); err != nil && s.logger != nil {
			s.logger.Debug("retract failed", "chat_id", chatID, "message_id", id, "error", err)
		}
	}
}
