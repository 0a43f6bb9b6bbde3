package announcement

import (
	"sync"

	"github.com/billbatista/acasinha-trip/localstore"
)

// DismissedKey is the client key holding the last permanently dismissed id.
const DismissedKey = "announcement.dismissed_id"

type State int

const (
	NoActive State = iota
	ActiveUndismissed
	ActiveDismissed
)

func (s State) String() string {
	switch s {
	case ActiveUndismissed:
		return "active_undismissed"
	case ActiveDismissed:
		return "active_dismissed"
	default:
		return "no_active"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Viewer is one client's view of the announcement. Dismissal is tracked by
// id, so a republished text shows again.
type Viewer struct {
	local localstore.Store

	mu     sync.Mutex
	active Announcement
	hidden string
	state  State
}

func NewViewer(local localstore.Store) *Viewer {
	return &Viewer{local: local}
}

// Observe feeds a new snapshot of the document and returns the client state.
// ActiveUndismissed means the announcement must be shown.
func (v *Viewer) Observe(doc Document) State {
	v.mu.Lock()
	defer v.mu.Unlock()

	dismissed, _ := v.local.Get(DismissedKey)
	active, ok := doc.Active()
	switch {
	case ok && active.ID != dismissed && active.ID != v.hidden:
		v.active, v.state = active, ActiveUndismissed
	case doc.Text != "":
		v.active, v.state = Announcement{ID: doc.ID, Text: doc.Text}, ActiveDismissed
	default:
		v.active, v.state = Announcement{}, NoActive
	}
	return v.state
}

// Dismiss hides the current announcement for this viewer. With permanent the
// id is saved on the client and stays hidden across sessions.
func (v *Viewer) Dismiss(permanent bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == NoActive {
		return
	}
	v.hidden = v.active.ID
	v.state = ActiveDismissed
	if permanent && v.active.ID != "" {
		v.local.Set(DismissedKey, v.active.ID)
	}
}

func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Active returns the announcement the viewer last observed, shown or not.
func (v *Viewer) Active() (Announcement, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active, v.state != NoActive
}
