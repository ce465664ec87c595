package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hanaxu/OrderSong-Go/bot/aggregator"
)

// pagedSearch serves canned pages and counts calls.
type pagedSearch struct {
	pages map[int][]aggregator.Song
	err   error
	calls int
}

func (p *pagedSearch) search(ctx context.Context, keyword string, page int) ([]aggregator.Song, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.pages[page], nil
}

func newTestMachine(t *testing.T, search SearchFunc) (*Machine, *fakeTime) {
	t.Helper()
	ft := newFakeTime()
	store := newTestStore(2*time.Minute, ft)
	return NewMachine(store, search), ft
}

func TestMachineBegin(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{1: someSongs("a", "b")}}
	m, _ := newTestMachine(t, src.search)
	key := Key{ChatID: 1}

	sel, err := m.Begin(context.Background(), key, "alpha")
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if sel.Page != 1 || len(sel.Songs) != 2 {
		t.Errorf("unexpected selection: %+v", sel)
	}
	if _, ok := m.Store().Get(key); !ok {
		t.Error("selection not stored")
	}
}

func TestMachineBeginEmpty(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{}}
	m, _ := newTestMachine(t, src.search)

	_, err := m.Begin(context.Background(), Key{ChatID: 1}, "alpha")
	if !errors.Is(err, ErrNoMoreResults) {
		t.Fatalf("expected ErrNoMoreResults, got %v", err)
	}
	if m.Store().Len() != 0 {
		t.Error("empty search must not create state")
	}
}

func TestMachineTurnPageForward(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{
		1: someSongs("a"),
		2: someSongs("b"),
	}}
	m, _ := newTestMachine(t, src.search)
	key := Key{ChatID: 1}
	_, _ = m.Begin(context.Background(), key, "alpha")

	sel, err := m.TurnPage(context.Background(), key, +1)
	if err != nil {
		t.Fatalf("turn page failed: %v", err)
	}
	if sel.Page != 2 || sel.Songs[0].Title != "b" {
		t.Errorf("unexpected selection: %+v", sel)
	}
}

func TestMachineTurnPageEmptyKeepsState(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{1: someSongs("a")}}
	m, _ := newTestMachine(t, src.search)
	key := Key{ChatID: 1}
	_, _ = m.Begin(context.Background(), key, "alpha")

	_, err := m.TurnPage(context.Background(), key, +1)
	if !errors.Is(err, ErrNoMoreResults) {
		t.Fatalf("expected ErrNoMoreResults, got %v", err)
	}

	sel, ok := m.Store().Get(key)
	if !ok || sel.Page != 1 || sel.Songs[0].Title != "a" {
		t.Errorf("state mutated by empty page turn: %+v ok=%v", sel, ok)
	}
}

func TestMachineTurnPageFailureKeepsState(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{1: someSongs("a", "b")}}
	m, _ := newTestMachine(t, src.search)
	key := Key{ChatID: 1}
	_, _ = m.Begin(context.Background(), key, "alpha")

	src.err = fmt.Errorf("boom: %w", aggregator.ErrUpstream)
	_, err := m.TurnPage(context.Background(), key, +1)
	if !errors.Is(err, aggregator.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	sel, ok := m.Store().Get(key)
	if !ok || sel.Page != 1 || len(sel.Songs) != 2 {
		t.Errorf("failed page turn mutated state: %+v ok=%v", sel, ok)
	}
}

func TestMachineTurnPageBackFromFirst(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{1: someSongs("a")}}
	m, _ := newTestMachine(t, src.search)
	key := Key{ChatID: 1}
	_, _ = m.Begin(context.Background(), key, "alpha")
	searchCalls := src.calls

	_, err := m.TurnPage(context.Background(), key, -1)
	if !errors.Is(err, ErrFirstPage) {
		t.Fatalf("expected ErrFirstPage, got %v", err)
	}
	if src.calls != searchCalls {
		t.Error("back from page 1 must not hit the upstream")
	}
}

func TestMachinePickValid(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{1: someSongs("a", "b", "c")}}
	m, _ := newTestMachine(t, src.search)
	key := Key{ChatID: 1}
	_, _ = m.Begin(context.Background(), key, "alpha")

	song, snapshot, err := m.Pick(key, 2)
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if song.Title != "b" {
		t.Errorf("picked %q, want b", song.Title)
	}
	if len(snapshot.Songs) != 3 {
		t.Errorf("snapshot incomplete: %+v", snapshot)
	}
	if m.Store().Len() != 0 {
		t.Error("selection must be removed after pick")
	}
}

func TestMachinePickBounds(t *testing.T) {
	for _, index := range []int{-1, 0, 4, 100} {
		src := &pagedSearch{pages: map[int][]aggregator.Song{1: someSongs("a", "b", "c")}}
		m, _ := newTestMachine(t, src.search)
		key := Key{ChatID: 1}
		_, _ = m.Begin(context.Background(), key, "alpha")

		_, _, err := m.Pick(key, index)
		if !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("Pick(%d): expected ErrInvalidIndex, got %v", index, err)
		}
		if m.Store().Len() != 0 {
			t.Errorf("Pick(%d): invalid index must clear state", index)
		}
	}
}

func TestMachineExitThenNumbersFallThrough(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{1: someSongs("a")}}
	m, _ := newTestMachine(t, src.search)
	key := Key{ChatID: 1}
	_, _ = m.Begin(context.Background(), key, "alpha")

	if _, ok := m.Exit(key); !ok {
		t.Fatal("exit should report a removed selection")
	}
	if _, _, err := m.Pick(key, 1); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection after exit, got %v", err)
	}
}

func TestMachineTimeoutExpiry(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{1: someSongs("a")}}
	m, ft := newTestMachine(t, src.search)
	key := Key{ChatID: 1}
	_, _ = m.Begin(context.Background(), key, "alpha")

	ft.Advance(3 * time.Minute)
	if _, _, err := m.Pick(key, 1); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection after expiry, got %v", err)
	}
}

func TestMachineRestoreAfterFailedDelivery(t *testing.T) {
	src := &pagedSearch{pages: map[int][]aggregator.Song{1: someSongs("a", "b")}}
	m, ft := newTestMachine(t, src.search)
	key := Key{ChatID: 1}
	_, _ = m.Begin(context.Background(), key, "alpha")

	_, snapshot, err := m.Pick(key, 1)
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}

	ft.Advance(time.Second)
	m.Restore(snapshot)

	sel, ok := m.Store().Get(key)
	if !ok {
		t.Fatal("restored selection missing")
	}
	if len(sel.Songs) != 2 || sel.Keyword != "alpha" {
		t.Errorf("restored selection lost candidates: %+v", sel)
	}
	if !sel.CreatedAt.After(snapshot.CreatedAt) {
		t.Error("restore must refresh the timestamp")
	}
}
