package announcement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/eventlogger"
	"github.com/google/uuid"
)

const (
	EventPublished      = "announcement.published"
	EventCancelled      = "announcement.cancelled"
	EventHistoryDeleted = "announcement.history_deleted"
)

// Board publishes to the shared announcement document.
type Board struct {
	store  docstore.Store
	events eventlogger.Recorder
	now    func() time.Time
	newID  func() string
}

func NewBoard(store docstore.Store, events eventlogger.Recorder) *Board {
	if events == nil {
		events = eventlogger.Discard
	}
	return &Board{
		store:  store,
		events: events,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (b *Board) Current(ctx context.Context) (Document, error) {
	var doc Document
	if err := docstore.Load(ctx, b.store, Doc, defaultDocument(), &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Publish replaces the active announcement. Publishing a text that is
// already in the history gives it a new id, so members who dismissed the
// earlier one see it again.
func (b *Board) Publish(ctx context.Context, text string) (Announcement, error) {
	if strings.TrimSpace(text) == "" {
		return Announcement{}, ErrEmptyText
	}
	cur, err := b.Current(ctx)
	if err != nil {
		return Announcement{}, err
	}
	next, err := cur.Published(text, b.newID(), b.now())
	if err != nil {
		return Announcement{}, err
	}
	if err := b.store.Set(ctx, Doc, next); err != nil {
		return Announcement{}, fmt.Errorf("publishing announcement: %w", err)
	}

	b.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventPublished),
		eventlogger.WithData(Announcement{ID: next.ID, Text: next.Text}),
	))
	return Announcement{ID: next.ID, Text: next.Text}, nil
}

// Cancel clears the active announcement. History is kept.
func (b *Board) Cancel(ctx context.Context) error {
	if _, err := b.Current(ctx); err != nil {
		return err
	}
	if err := b.store.Update(ctx, Doc, map[string]any{"id": "", "text": ""}); err != nil {
		return fmt.Errorf("cancelling announcement: %w", err)
	}

	b.events.Log(eventlogger.NewEvent(eventlogger.WithType(EventCancelled)))
	return nil
}

func (b *Board) DeleteHistoryItem(ctx context.Context, id string) error {
	cur, err := b.Current(ctx)
	if err != nil {
		return err
	}
	next, ok := cur.WithoutHistoryItem(id)
	if !ok {
		return ErrHistoryNotFound
	}
	if err := b.store.Update(ctx, Doc, map[string]any{"history": next.History}); err != nil {
		return fmt.Errorf("deleting history item: %w", err)
	}

	b.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventHistoryDeleted),
		eventlogger.WithData(map[string]string{"id": id}),
	))
	return nil
}

// Subscribe calls fn with every new version of the document.
func (b *Board) Subscribe(ctx context.Context, fn func(Document)) (func(), error) {
	return b.store.Subscribe(ctx, Doc, func(snap docstore.Snapshot) {
		doc := defaultDocument()
		if snap.Exists {
			if err := docstore.Decode(snap, &doc); err != nil {
				return
			}
		}
		fn(doc)
	})
}
