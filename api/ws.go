package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/billbatista/acasinha-trip/announcement"
	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/middleware"
	"github.com/billbatista/acasinha-trip/raffle"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func validDocPath(path string) bool {
	if path == "" || len(path) > 64 {
		return false
	}
	for _, c := range path {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// isAdminRequest checks the admin code from the header or, for browsers that
// can't set headers on a websocket, the code query parameter.
func (s *Server) isAdminRequest(r *http.Request) bool {
	code := r.Header.Get(middleware.AdminCodeHeader)
	if code == "" {
		code = r.URL.Query().Get("code")
	}
	return code != "" && s.Admin.Verify(code) == nil
}

// watchDocument streams every snapshot of one document to a websocket until
// the client goes away.
func (s *Server) watchDocument(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	if !validDocPath(path) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document path"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Info("websocket upgrade failed", "path", path, "error", err)
		return
	}
	defer conn.Close()

	redact := path == raffle.Doc && !s.isAdminRequest(r)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stop, err := s.Store.Subscribe(ctx, path, func(snap docstore.Snapshot) {
		if redact {
			snap = s.Raffle.RedactSnapshot(snap)
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snap); err != nil {
			slog.Info("websocket write failed", "path", path, "error", err)
			cancel()
		}
	})
	if err != nil {
		slog.Error("failed to subscribe", "path", path, "error", err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
		return
	}
	defer stop()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// watchAnnouncement pushes this client's announcement state every time the
// shared announcement changes.
func (s *Server) watchAnnouncement(w http.ResponseWriter, r *http.Request) {
	viewer := announcement.NewViewer(middleware.Local(r.Context()))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Info("websocket upgrade failed", "path", announcement.Doc, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stop, err := s.Board.Subscribe(ctx, func(doc announcement.Document) {
		viewer.Observe(doc)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(newAnnouncementView(viewer, doc)); err != nil {
			slog.Info("websocket write failed", "path", announcement.Doc, "error", err)
			cancel()
		}
	})
	if err != nil {
		slog.Error("failed to subscribe", "path", announcement.Doc, "error", err)
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
		return
	}
	defer stop()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
