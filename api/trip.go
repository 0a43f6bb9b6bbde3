package api

import (
	"net/http"
	"time"

	"github.com/billbatista/acasinha-trip/middleware"
	"github.com/billbatista/acasinha-trip/tripconfig"
	"github.com/go-chi/chi/v5"
)

func (s *Server) tripConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Trip.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) countdown(w http.ResponseWriter, r *http.Request) {
	c, err := s.Trip.Countdown(r.Context(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) reminder(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"show": tripconfig.ShouldShowReminder(middleware.Local(r.Context()))})
}

func (s *Server) dismissReminder(w http.ResponseWriter, r *http.Request) {
	tripconfig.DismissReminder(middleware.Local(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setCelebration(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Trip.SetCelebration(r.Context(), body.Enabled); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setTripDates(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Start string `json:"tripStartDate"`
		End   string `json:"tripEndDate"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Trip.SetTripDates(r.Context(), body.Start, body.End); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dailyQuip(w http.ResponseWriter, r *http.Request) {
	q, err := s.Quip.DailyQuip(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"quip": q})
}

func (s *Server) eventsByType(w http.ResponseWriter, r *http.Request) {
	events, err := s.Events.GetByType(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
