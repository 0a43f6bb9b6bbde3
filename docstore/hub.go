package docstore

import (
	"sync"
)

// hub fans snapshots out to subscribers. Each subscriber owns a goroutine and
// a one-slot mailbox holding only the newest undelivered snapshot.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *hub) add(path string, fn func(Snapshot)) *subscriber {
	s := &subscriber{
		path: path,
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	if h.subs[path] == nil {
		h.subs[path] = make(map[*subscriber]struct{})
	}
	h.subs[path][s] = struct{}{}
	h.mu.Unlock()

	go s.run()
	return s
}

func (h *hub) remove(s *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[s.path]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.path)
		}
	}
	h.mu.Unlock()
	s.stop()
}

func (h *hub) publish(snap Snapshot) {
	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subs[snap.Path]))
	for s := range h.subs[snap.Path] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.offer(snap)
	}
}

// paths lists documents that currently have at least one subscriber.
func (h *hub) paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for p := range h.subs {
		out = append(out, p)
	}
	return out
}

func (h *hub) closeAll() {
	h.mu.Lock()
	all := h.subs
	h.subs = make(map[string]map[*subscriber]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for s := range set {
			s.stop()
		}
	}
}

type subscriber struct {
	path string
	fn   func(Snapshot)

	mu        sync.Mutex
	pending   *Snapshot
	delivered int64
	seen      bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// offer replaces the pending snapshot unless it is older than what the
// subscriber already has.
func (s *subscriber) offer(snap Snapshot) {
	s.mu.Lock()
	if s.seen && snap.Revision < s.delivered {
		s.mu.Unlock()
		return
	}
	if s.pending != nil && snap.Revision < s.pending.Revision {
		s.mu.Unlock()
		return
	}
	snap.Data = cloneDocument(snap.Data)
	s.pending = &snap
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			s.mu.Lock()
			snap := s.pending
			s.pending = nil
			if snap != nil {
				s.delivered = snap.Revision
				s.seen = true
			}
			s.mu.Unlock()
			if snap != nil {
				s.fn(*snap)
			}
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}
