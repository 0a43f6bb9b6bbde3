package api

import (
	"net/http"

	"github.com/billbatista/acasinha-trip/announcement"
	"github.com/billbatista/acasinha-trip/middleware"
	"github.com/go-chi/chi/v5"
)

type announcementView struct {
	State        announcement.State        `json:"state"`
	Announcement announcement.Announcement `json:"announcement"`
	History      []announcement.HistoryItem `json:"history"`
}

func (s *Server) viewAnnouncement(r *http.Request) (*announcement.Viewer, announcement.Document, error) {
	doc, err := s.Board.Current(r.Context())
	if err != nil {
		return nil, announcement.Document{}, err
	}
	v := announcement.NewViewer(middleware.Local(r.Context()))
	v.Observe(doc)
	return v, doc, nil
}

func newAnnouncementView(v *announcement.Viewer, doc announcement.Document) announcementView {
	a, _ := v.Active()
	return announcementView{State: v.State(), Announcement: a, History: doc.History}
}

func (s *Server) announcement(w http.ResponseWriter, r *http.Request) {
	v, doc, err := s.viewAnnouncement(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnnouncementView(v, doc))
}

// dismissAnnouncement hides the active announcement. Only a permanent
// dismissal outlives the request.
func (s *Server) dismissAnnouncement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Permanent bool `json:"permanent"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	v, doc, err := s.viewAnnouncement(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v.Dismiss(body.Permanent)
	writeJSON(w, http.StatusOK, newAnnouncementView(v, doc))
}

func (s *Server) publishAnnouncement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := s.Board.Publish(r.Context(), body.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) cancelAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := s.Board.Cancel(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAnnouncementHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.Board.DeleteHistoryItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
