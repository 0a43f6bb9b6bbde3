package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

type dialect struct {
	name string
	// selectDoc reads data, revision and updated_at for $1, locking the row
	// inside a transaction when the backend supports it.
	selectDoc string
	getDoc    string
	upsert    string
	// notify, when set, is executed inside the write transaction with the
	// document path. Delivery then happens through the listener rather than
	// a local fan-out.
	notify string
	// serializeWrites guards backends whose transactions upgrade locks late.
	serializeWrites bool
}

// SQLStore keeps one row per document in a SQL database.
type SQLStore struct {
	db      *sql.DB
	d       dialect
	hub     *hub
	now     func() time.Time
	writeMu sync.Mutex

	closeOnce sync.Once
	closers   []func() error
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, d: d, hub: newHub(), now: time.Now}
}

// DB exposes the handle so audit events can live in the same database.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	return s.read(ctx, s.db, s.d.getDoc, path)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) read(ctx context.Context, q queryer, query, path string) (Snapshot, error) {
	var (
		raw      string
		revision int64
		updated  int64
	)
	err := q.QueryRowContext(ctx, query, path).Scan(&raw, &revision, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{Path: path, Data: map[string]any{}}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading %s: %w", path, err)
	}
	data := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Snapshot{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return Snapshot{
		Path:      path,
		Exists:    true,
		Data:      data,
		Revision:  revision,
		UpdatedAt: time.UnixMilli(updated).UTC(),
	}, nil
}

func (s *SQLStore) Set(ctx context.Context, path string, value any) error {
	doc, err := toDocument(value)
	if err != nil {
		return err
	}
	return s.write(ctx, path, func(Snapshot) (map[string]any, error) {
		return doc, nil
	})
}

func (s *SQLStore) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.write(ctx, path, func(cur Snapshot) (map[string]any, error) {
		if !cur.Exists {
			return nil, ErrDocumentNotFound
		}
		if err := applyFields(cur.Data, fields); err != nil {
			return nil, err
		}
		return cur.Data, nil
	})
}

func (s *SQLStore) write(ctx context.Context, path string, mutate func(Snapshot) (map[string]any, error)) error {
	if s.d.serializeWrites {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}

	snap, err := s.commit(ctx, path, mutate)
	if err != nil {
		return writeFailure(path, err)
	}
	if s.d.notify == "" {
		s.hub.publish(snap)
	}
	return nil
}

func (s *SQLStore) commit(ctx context.Context, path string, mutate func(Snapshot) (map[string]any, error)) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback()

	cur, err := s.read(ctx, tx, s.d.selectDoc, path)
	if err != nil {
		return Snapshot{}, err
	}
	next, err := mutate(cur)
	if err != nil {
		return Snapshot{}, err
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encoding %s: %w", path, err)
	}

	now := s.now().UTC()
	snap := Snapshot{
		Path:      path,
		Exists:    true,
		Data:      next,
		Revision:  cur.Revision + 1,
		UpdatedAt: time.UnixMilli(now.UnixMilli()).UTC(),
	}
	if _, err := tx.ExecContext(ctx, s.d.upsert, path, string(raw), snap.Revision, now.UnixMilli()); err != nil {
		return Snapshot{}, err
	}
	if s.d.notify != "" {
		if _, err := tx.ExecContext(ctx, s.d.notify, path); err != nil {
			return Snapshot{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *SQLStore) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	return subscribe(ctx, s.hub, path, fn, s.Get)
}

// refresh re-reads path and hands it to local subscribers.
func (s *SQLStore) refresh(ctx context.Context, path string) error {
	snap, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	s.hub.publish(snap)
	return nil
}

func (s *SQLStore) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.hub.closeAll()
		for _, c := range s.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
