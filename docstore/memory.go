package docstore

import (
	"context"
	"sync"
	"time"
)

type memoryDoc struct {
	data      map[string]any
	revision  int64
	updatedAt time.Time
}

// Memory keeps documents in process. It backs tests and single-process demos.
type Memory struct {
	mu   sync.Mutex
	docs map[string]*memoryDoc
	hub  *hub
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]*memoryDoc),
		hub:  newHub(),
		now:  time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(path), nil
}

func (m *Memory) snapshotLocked(path string) Snapshot {
	d, ok := m.docs[path]
	if !ok {
		return Snapshot{Path: path, Data: map[string]any{}}
	}
	return Snapshot{
		Path:      path,
		Exists:    true,
		Data:      cloneDocument(d.data),
		Revision:  d.revision,
		UpdatedAt: d.updatedAt,
	}
}

func (m *Memory) Set(ctx context.Context, path string, value any) error {
	if err := ctx.Err(); err != nil {
		return writeFailure(path, err)
	}
	doc, err := toDocument(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitLocked(path, doc)
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return writeFailure(path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[path]
	if !ok {
		return ErrDocumentNotFound
	}
	next := cloneDocument(d.data)
	if err := applyFields(next, fields); err != nil {
		return err
	}
	m.commitLocked(path, next)
	return nil
}

// commitLocked stores doc and notifies subscribers while still holding the
// lock, so notifications leave in commit order.
func (m *Memory) commitLocked(path string, doc map[string]any) {
	d, ok := m.docs[path]
	if !ok {
		d = &memoryDoc{}
		m.docs[path] = d
	}
	d.data = doc
	d.revision++
	d.updatedAt = m.now().UTC()
	m.hub.publish(m.snapshotLocked(path))
}

func (m *Memory) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	return subscribe(ctx, m.hub, path, fn, m.Get)
}

func (m *Memory) Close() error {
	m.hub.closeAll()
	return nil
}

// subscribe registers fn before reading the current value, so no change
// committed after the read can be missed.
func subscribe(ctx context.Context, h *hub, path string, fn func(Snapshot), get func(context.Context, string) (Snapshot, error)) (func(), error) {
	s := h.add(path, fn)
	snap, err := get(ctx, path)
	if err != nil {
		h.remove(s)
		return nil, err
	}
	s.offer(snap)

	cancel := func() { h.remove(s) }
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.done:
		}
	}()
	return cancel, nil
}
