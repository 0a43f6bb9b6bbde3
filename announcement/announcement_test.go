package announcement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/billbatista/acasinha-trip/apperror"
	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/eventlogger"
	"github.com/billbatista/acasinha-trip/localstore"
	"github.com/google/go-cmp/cmp"
)

func newTestBoard(t *testing.T) (*Board, *eventlogger.MemoryEventLogger) {
	t.Helper()
	store := docstore.NewMemory()
	t.Cleanup(func() { store.Close() })
	events := eventlogger.NewMemoryEventLogger()
	b := NewBoard(store, events)
	n := 0
	b.newID = func() string {
		n++
		return fmt.Sprintf("ann-%d", n)
	}
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return b, events
}

func historyTexts(doc Document) []string {
	texts := make([]string, len(doc.History))
	for i, h := range doc.History {
		texts[i] = h.Text
	}
	return texts
}

func TestPublishFreshClientSeesAnnouncement(t *testing.T) {
	ctx := context.Background()
	board, events := newTestBoard(t)
	viewer := NewViewer(localstore.NewMemory())

	if _, err := board.Publish(ctx, "  hello  "); err != nil {
		t.Fatalf("publish: %v", err)
	}
	doc, _ := board.Current(ctx)
	if doc.Text != "hello" {
		t.Fatalf("expected trimmed text, got %q", doc.Text)
	}
	if got := viewer.Observe(doc); got != ActiveUndismissed {
		t.Fatalf("expected %v, got %v", ActiveUndismissed, got)
	}
	if diff := cmp.Diff([]string{EventPublished}, events.Types()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestPermanentDismissIsByID(t *testing.T) {
	ctx := context.Background()
	board, _ := newTestBoard(t)
	local := localstore.NewMemory()
	viewer := NewViewer(local)

	board.Publish(ctx, "hello")
	doc, _ := board.Current(ctx)
	viewer.Observe(doc)
	viewer.Dismiss(true)

	if id, _ := local.Get(DismissedKey); id != doc.ID {
		t.Fatalf("expected dismissed id %q, got %q", doc.ID, id)
	}

	// a reload starts a new viewer on the same client
	reloaded := NewViewer(local)
	if got := reloaded.Observe(doc); got != ActiveDismissed {
		t.Fatalf("expected %v after reload, got %v", ActiveDismissed, got)
	}

	board.Publish(ctx, "hello")
	doc, _ = board.Current(ctx)
	if got := reloaded.Observe(doc); got != ActiveUndismissed {
		t.Fatalf("expected republished text to show again, got %v", got)
	}
}

func TestTemporaryDismissLastsForViewer(t *testing.T) {
	ctx := context.Background()
	board, _ := newTestBoard(t)
	local := localstore.NewMemory()
	viewer := NewViewer(local)

	board.Publish(ctx, "bus leaves at 8")
	doc, _ := board.Current(ctx)
	viewer.Observe(doc)
	viewer.Dismiss(false)

	if _, ok := local.Get(DismissedKey); ok {
		t.Fatal("expected nothing persisted for a temporary dismiss")
	}
	if got := viewer.Observe(doc); got != ActiveDismissed {
		t.Fatalf("expected %v for the same viewer, got %v", ActiveDismissed, got)
	}
	if got := NewViewer(local).Observe(doc); got != ActiveUndismissed {
		t.Fatalf("expected a new viewer to see it, got %v", got)
	}
}

func TestCancelKeepsHistory(t *testing.T) {
	ctx := context.Background()
	board, _ := newTestBoard(t)
	viewer := NewViewer(localstore.NewMemory())

	board.Publish(ctx, "dinner at 7")
	if err := board.Cancel(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	doc, _ := board.Current(ctx)
	if doc.ID != "" || doc.Text != "" || len(doc.History) != 1 {
		t.Fatalf("expected no active announcement with history kept, got %+v", doc)
	}
	if got := viewer.Observe(doc); got != NoActive {
		t.Fatalf("expected %v, got %v", NoActive, got)
	}
	if _, ok := viewer.Active(); ok {
		t.Fatal("expected no active announcement")
	}
}

func TestPublishEmptyTextWritesNothing(t *testing.T) {
	ctx := context.Background()
	board, _ := newTestBoard(t)

	_, err := board.Publish(ctx, "   ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	snap, _ := board.store.Get(ctx, Doc)
	if snap.Exists {
		t.Fatal("expected no document written")
	}
}

func TestHistoryRetention(t *testing.T) {
	ctx := context.Background()
	board, _ := newTestBoard(t)

	for _, text := range []string{"one", "two", "three", "four", "five", "six"} {
		if _, err := board.Publish(ctx, text); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	doc, _ := board.Current(ctx)
	if diff := cmp.Diff([]string{"six", "five", "four", "three", "two"}, historyTexts(doc)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	board.Publish(ctx, "four")
	doc, _ = board.Current(ctx)
	if diff := cmp.Diff([]string{"four", "six", "five", "three", "two"}, historyTexts(doc)); diff != "" {
		t.Fatalf("history mismatch after duplicate (-want +got):\n%s", diff)
	}
	if doc.History[0].ID != doc.ID {
		t.Fatalf("expected newest history entry to be the active one, got %+v", doc)
	}
}

func TestDeleteHistoryItemKeepsActive(t *testing.T) {
	ctx := context.Background()
	board, _ := newTestBoard(t)

	board.Publish(ctx, "first")
	a, _ := board.Publish(ctx, "second")
	if err := board.DeleteHistoryItem(ctx, a.ID); err != nil {
		t.Fatalf("delete history item: %v", err)
	}
	doc, _ := board.Current(ctx)
	if doc.ID != a.ID || doc.Text != "second" {
		t.Fatalf("expected active announcement untouched, got %+v", doc)
	}
	if diff := cmp.Diff([]string{"first"}, historyTexts(doc)); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	if err := board.DeleteHistoryItem(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubscribeFeedsViewer(t *testing.T) {
	ctx := context.Background()
	board, _ := newTestBoard(t)
	viewer := NewViewer(localstore.NewMemory())

	states := make(chan State, 16)
	cancel, err := board.Subscribe(ctx, func(doc Document) {
		states <- viewer.Observe(doc)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if got := <-states; got != NoActive {
		t.Fatalf("expected %v initially, got %v", NoActive, got)
	}
	board.Publish(ctx, "hello")
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-states:
			if got == ActiveUndismissed {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for the announcement")
		}
	}
}
