package session

import (
	"sync"
	"time"

	"github.com/hanaxu/OrderSong-Go/bot/aggregator"
)

// Key identifies one independent pending selection. UserID is 0 when the
// chat is configured for group-wide selection.
type Key struct {
	ChatID int64
	UserID int64
}

// Selection is the in-flight state of a search conversation.
type Selection struct {
	Key     Key
	Keyword string
	Page    int
	Songs   []aggregator.Song

	// CreatedAt is reset on every successful page turn.
	CreatedAt time.Time

	// MenuMessageIDs are the prompt/menu messages sent for this
	// selection, kept for retraction.
	MenuMessageIDs []int
}

// Clock supplies the current time; injected so tests can advance time
// deterministically.
type Clock func() time.Time

// Scheduler schedules a callback after a delay and returns a cancel
// function.
type Scheduler func(d time.Duration, fn func()) (cancel func())

// Store holds at most one Selection per key. All state is in-memory and
// intentionally lost on restart.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*Selection
	timeout time.Duration
	now     Clock
	after   Scheduler

	// onExpire is invoked outside the store lock when a timer-driven
	// expiry removes a selection.
	onExpire func(Selection)

	// locks serializes handlers per key so two concurrent page-turns or
	// selections cannot corrupt shared state. Striped to stay bounded.
	locks [64]sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now Clock) Option {
	return func(s *Store) { s.now = now }
}

// WithScheduler overrides the timer scheduler.
func WithScheduler(after Scheduler) Option {
	return func(s *Store) { s.after = after }
}

// WithExpiryCallback sets the callback fired on timer-driven expiry.
func WithExpiryCallback(fn func(Selection)) Option {
	return func(s *Store) { s.onExpire = fn }
}

// NewStore creates a store whose selections expire after timeout.
func NewStore(timeout time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[Key]*Selection),
		timeout: timeout,
		now:     time.Now,
		after: func(d time.Duration, fn func()) func() {
			t := time.AfterFunc(d, fn)
			return func() { t.Stop() }
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire takes the per-key handler lock and returns its release func.
func (s *Store) Acquire(key Key) func() {
	lock := &s.locks[keyStripe(key)]
	lock.Lock()
	return lock.Unlock
}

func keyStripe(key Key) int {
	h := uint64(key.ChatID)*31 + uint64(key.UserID)
	return int(h % 64)
}

// Put installs a new selection for its key, replacing any existing one,
// and arms the expiry timer. The timer carries an immutable snapshot of
// key and creation time and re-checks the live state before acting.
func (s *Store) Put(sel *Selection) {
	sel.CreatedAt = s.now()

	s.mu.Lock()
	s.entries[sel.Key] = sel
	s.mu.Unlock()

	if s.timeout <= 0 {
		return
	}
	key, createdAt := sel.Key, sel.CreatedAt
	s.after(s.timeout, func() {
		s.expire(key, createdAt)
	})
}

// expire removes the selection only if it is still the one the timer was
// armed for; a page turn or replacement in the meantime leaves it alone.
func (s *Store) expire(key Key, createdAt time.Time) {
	s.mu.Lock()
	sel, ok := s.entries[key]
	if !ok || !sel.CreatedAt.Equal(createdAt) {
		s.mu.Unlock()
		return
	}
	delete(s.entries, key)
	expired := *sel
	s.mu.Unlock()

	if s.onExpire != nil {
		s.onExpire(expired)
	}
}

// Get returns the live selection for key. A selection past its timeout is
// discarded and treated as absent, regardless of timer delivery.
func (s *Store) Get(key Key) (*Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.timeout > 0 && s.now().Sub(sel.CreatedAt) > s.timeout {
		delete(s.entries, key)
		return nil, false
	}
	return sel, true
}

// Delete removes the selection for key, reporting whether one existed.
func (s *Store) Delete(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Advance replaces the candidate list and page of an existing selection,
// refreshes its timestamp, re-arms expiry and appends new menu messages.
// It is a no-op when the selection is gone.
func (s *Store) Advance(key Key, page int, songs []aggregator.Song, menuMessageIDs ...int) bool {
	s.mu.Lock()
	sel, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	sel.Page = page
	sel.Songs = songs
	sel.CreatedAt = s.now()
	sel.MenuMessageIDs = append(sel.MenuMessageIDs, menuMessageIDs...)
	createdAt := sel.CreatedAt
	s.mu.Unlock()

	if s.timeout > 0 {
		s.after(s.timeout, func() {
			s.expire(key, createdAt)
		})
	}
	return true
}

// Refresh resets the timestamp of an existing selection without touching
// its candidates, used by the keep-on-failure delivery policy.
func (s *Store) Refresh(key Key) bool {
	s.mu.Lock()
	sel, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	sel.CreatedAt = s.now()
	createdAt := sel.CreatedAt
	s.mu.Unlock()

	if s.timeout > 0 {
		s.after(s.timeout, func() {
			s.expire(key, createdAt)
		})
	}
	return true
}

// AppendMenuMessages records extra sent message IDs on a live selection.
func (s *Store) AppendMenuMessages(key Key, messageIDs ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel, ok := s.entries[key]; ok {
		sel.MenuMessageIDs = append(sel.MenuMessageIDs, messageIDs...)
	}
}

// Len reports the number of live selections.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
