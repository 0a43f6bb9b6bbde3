// Package docstore is the shared document store every client reads from and
// writes to. Each logical entity of the trip (wallet, fund, raffle, profiles,
// announcement, ...) is one JSON document addressed by a path.
//
// Writes are last-write-wins at document or field granularity. There are no
// concurrency tokens and no multi-document transactions: a caller that needs
// to touch two documents issues two independent writes.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/billbatista/acasinha-trip/apperror"
)

// Snapshot is the full value of one document at a point in time.
type Snapshot struct {
	Path      string         `json:"path"`
	Exists    bool           `json:"exists"`
	Data      map[string]any `json:"data"`
	Revision  int64          `json:"revision"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Store is implemented by every backend.
type Store interface {
	// Get returns the current snapshot. A missing document is not an error,
	// it comes back with Exists set to false.
	Get(ctx context.Context, path string) (Snapshot, error)
	// Set replaces the whole document, creating it when absent.
	Set(ctx context.Context, path string, value any) error
	// Update merges dotted field paths into an existing document. A field set
	// to DeleteField() is removed. Updating a missing document fails with a
	// not found error.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Subscribe calls fn with the current snapshot and again after every
	// committed change. Calls for one subscription never overlap and may skip
	// intermediate values, always ending on the latest one.
	Subscribe(ctx context.Context, path string, fn func(Snapshot)) (cancel func(), err error)
	Close() error
}

var ErrDocumentNotFound = apperror.New(apperror.CodeNotFound, "document not found")

// Decode copies the snapshot data into v, which should be a pointer to a
// struct with json tags.
func Decode(snap Snapshot, v any) error {
	raw, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", snap.Path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding %s: %w", snap.Path, err)
	}
	return nil
}

func writeFailure(path string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.CodeOf(err); ok {
		return err
	}
	return apperror.Wrap(apperror.CodeWriteFailure, "writing "+path, err)
}

// Load decodes the document at path into out. When the document does not
// exist yet, seed is written as its default value and decoded instead, so
// every reader starts from an explicit schema.
func Load(ctx context.Context, s Store, path string, seed, out any) error {
	snap, err := s.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if !snap.Exists {
		if err := s.Set(ctx, path, seed); err != nil {
			return err
		}
		raw, err := json.Marshal(seed)
		if err != nil {
			return fmt.Errorf("encoding default %s: %w", path, err)
		}
		return json.Unmarshal(raw, out)
	}
	return Decode(snap, out)
}
