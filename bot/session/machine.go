package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanaxu/OrderSong-Go/bot/aggregator"
)

// Machine errors surfaced to the handler layer.
var (
	// ErrNoSelection means no live selection exists for the key.
	ErrNoSelection = errors.New("session: no pending selection")

	// ErrNoMoreResults means a forward page turn found nothing; stored
	// state is unchanged.
	ErrNoMoreResults = errors.New("session: no more results")

	// ErrFirstPage means a backward page turn from page 1.
	ErrFirstPage = errors.New("session: already at first page")

	// ErrInvalidIndex means a numeric selection outside [1, N]; the
	// selection is cleared.
	ErrInvalidIndex = errors.New("session: selection index out of range")
)

// SearchFunc fetches one result page for a keyword.
type SearchFunc func(ctx context.Context, keyword string, page int) ([]aggregator.Song, error)

// Machine applies the selection transition table on top of a Store. Side
// effects (messaging, delivery, retraction) stay with the caller.
type Machine struct {
	store  *Store
	search SearchFunc
}

// NewMachine creates a Machine.
func NewMachine(store *Store, search SearchFunc) *Machine {
	return &Machine{store: store, search: search}
}

// Store exposes the underlying store.
func (m *Machine) Store() *Store { return m.store }

// Begin installs a fresh selection after a successful first-page search.
func (m *Machine) Begin(ctx context.Context, key Key, keyword string) (*Selection, error) {
	songs, err := m.search(ctx, keyword, 1)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, ErrNoMoreResults
	}

	sel := &Selection{Key: key, Keyword: keyword, Page: 1, Songs: songs}
	m.store.Put(sel)
	return sel, nil
}

// TurnPage moves the selection one page forward or backward. A failed or
// empty search leaves the stored page and candidates untouched.
func (m *Machine) TurnPage(ctx context.Context, key Key, delta int) (*Selection, error) {
	sel, ok := m.store.Get(key)
	if !ok {
		return nil, ErrNoSelection
	}

	target := sel.Page + delta
	if target < 1 {
		return nil, ErrFirstPage
	}

	songs, err := m.search(ctx, sel.Keyword, target)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", target, err)
	}
	if len(songs) == 0 {
		return nil, ErrNoMoreResults
	}

	if !m.store.Advance(key, target, songs) {
		return nil, ErrNoSelection
	}
	sel, _ = m.store.Get(key)
	return sel, nil
}

// Pick validates a 1-based index against the current candidates and
// removes the selection, returning the chosen song together with a
// snapshot of the removed selection (for retraction and for the
// keep-on-failure restore). An out-of-range index also clears the
// selection.
func (m *Machine) Pick(key Key, index int) (aggregator.Song, Selection, error) {
	sel, ok := m.store.Get(key)
	if !ok {
		return aggregator.Song{}, Selection{}, ErrNoSelection
	}

	snapshot := *sel
	m.store.Delete(key)

	if index < 1 || index > len(snapshot.Songs) {
		return aggregator.Song{}, snapshot, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(snapshot.Songs))
	}
	return snapshot.Songs[index-1], snapshot, nil
}

// Exit discards the selection, returning its menu messages for
// retraction.
func (m *Machine) Exit(key Key) ([]int, bool) {
	sel, ok := m.store.Get(key)
	if !ok {
		return nil, false
	}
	m.store.Delete(key)
	return sel.MenuMessageIDs, true
}

// Restore reinstalls a selection that a failed delivery should keep, with
// a refreshed timestamp, per the keep-on-failure policy.
func (m *Machine) Restore(sel Selection) {
	restored := sel
	m.store.Put(&restored)
}
