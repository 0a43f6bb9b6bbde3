// Package announcement broadcasts one active announcement to every member and
// keeps a short history of what was published.
package announcement

import (
	"strings"
	"time"

	"github.com/billbatista/acasinha-trip/apperror"
)

const (
	Doc           = "announcement"
	SchemaVersion = 1
	MaxHistory    = 5
)

var (
	ErrEmptyText       = apperror.Validation("announcement text can't be empty")
	ErrHistoryNotFound = apperror.New(apperror.CodeNotFound, "history item not found")
)

type Announcement struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type HistoryItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Document is the shared announcement document. An empty ID and Text mean
// nothing is active; the history is kept either way.
type Document struct {
	SchemaVersion int           `json:"schemaVersion"`
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	History       []HistoryItem `json:"history"`
}

func defaultDocument() Document {
	return Document{SchemaVersion: SchemaVersion, History: []HistoryItem{}}
}

// Active returns the active announcement, if any.
func (d Document) Active() (Announcement, bool) {
	if d.ID == "" || strings.TrimSpace(d.Text) == "" {
		return Announcement{}, false
	}
	return Announcement{ID: d.ID, Text: d.Text}, true
}

// Published makes text the active announcement under a fresh id and moves it
// to the front of the history. An older entry with the same text is dropped
// and the history is cut to MaxHistory.
func (d Document) Published(text, id string, now time.Time) (Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return d, ErrEmptyText
	}
	item := HistoryItem{ID: id, Text: text, Timestamp: now.UnixMilli()}
	history := make([]HistoryItem, 0, MaxHistory)
	history = append(history, item)
	for _, h := range d.History {
		if len(history) == MaxHistory {
			break
		}
		if h.Text != text {
			history = append(history, h)
		}
	}
	return Document{SchemaVersion: SchemaVersion, ID: id, Text: text, History: history}, nil
}

// WithoutHistoryItem drops one history entry. The active announcement is
// untouched even when it has the same id.
func (d Document) WithoutHistoryItem(id string) (Document, bool) {
	history := make([]HistoryItem, 0, len(d.History))
	found := false
	for _, h := range d.History {
		if h.ID == id {
			found = true
			continue
		}
		history = append(history, h)
	}
	d.History = history
	return d, found
}
