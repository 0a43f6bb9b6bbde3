package api

import (
	"net/http"

	"github.com/billbatista/acasinha-trip/middleware"
	"github.com/go-chi/chi/v5"
)

func (s *Server) raffleState(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Raffle.State(r.Context(), middleware.IsAdmin(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) drawBeds(w http.ResponseWriter, r *http.Request) {
	beds, err := s.Raffle.DrawBeds(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, beds)
}

func (s *Server) pinBed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Bed string `json:"bed"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Raffle.PinBed(r.Context(), chi.URLParam(r, "member"), body.Bed); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pinSeat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Car string `json:"car"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Raffle.PinSeat(r.Context(), chi.URLParam(r, "member"), body.Car); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) shuffleCars(w http.ResponseWriter, r *http.Request) {
	res, err := s.Raffle.ShuffleCars(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) spinWheel(w http.ResponseWriter, r *http.Request) {
	winner, err := s.Raffle.SpinWheel()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"winner": winner})
}

func (s *Server) assignSecretPair(w http.ResponseWriter, r *http.Request) {
	pair, err := s.Raffle.AssignSecretPair(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][2]string{"beds": pair})
}
