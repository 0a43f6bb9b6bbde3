// Package api serves the trip over HTTP: a JSON API under /api and a
// websocket feed of document snapshots under /ws/docs.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/billbatista/acasinha-trip/announcement"
	"github.com/billbatista/acasinha-trip/apperror"
	"github.com/billbatista/acasinha-trip/docstore"
	"github.com/billbatista/acasinha-trip/eventlogger"
	"github.com/billbatista/acasinha-trip/ledger"
	"github.com/billbatista/acasinha-trip/member"
	"github.com/billbatista/acasinha-trip/middleware"
	"github.com/billbatista/acasinha-trip/quip"
	"github.com/billbatista/acasinha-trip/raffle"
	"github.com/billbatista/acasinha-trip/tripconfig"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

// Server holds the services behind the routes.
type Server struct {
	Store   docstore.Store
	Ledger  *ledger.Service
	Raffle  *raffle.Service
	Board   *announcement.Board
	Members *member.Service
	Trip    *tripconfig.Service
	Quip    quip.Generator
	Admin   *member.AdminGate
	Events  eventlogger.EventLogger
	Health  eventlogger.Recorder
}

func (s *Server) Routes() http.Handler {
	if s.Health == nil {
		s.Health = eventlogger.Discard
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", s.health)
	router.Get("/ws/docs/{path}", s.watchDocument)
	router.With(middleware.ClientState).Get("/ws/announcement", s.watchAnnouncement)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.ClientState)

		r.Get("/wallet", s.walletSummary)
		r.Post("/wallet/expenses", s.addExpense)
		r.Delete("/wallet/expenses/{id}", s.removeExpense)
		r.Put("/wallet/rate", s.setRate)

		r.Get("/fund", s.fund)
		r.Post("/fund/expenses", s.addFundExpense)
		r.Delete("/fund/expenses/{id}", s.removeFundExpense)
		r.Put("/fund/balance", s.setFundBalance)

		r.Get("/profiles", s.profiles)
		r.Get("/statuses", s.statuses)
		r.Route("/members/{member}", func(r chi.Router) {
			r.Post("/unlock", s.unlock)
			r.Get("/unlocked", s.unlocked)
			r.Put("/status", s.setStatus)
			r.With(s.requirePass(member.ScopeProfile)).Put("/profile", s.saveProfile)
			r.Group(func(r chi.Router) {
				r.Use(s.requirePass(member.ScopeWallet))
				r.Get("/wallet", s.personalWallet)
				r.Post("/wallet/expenses", s.addPersonalExpense)
				r.Delete("/wallet/expenses/{id}", s.removePersonalExpense)
			})
		})

		r.Get("/raffle", s.raffleState)
		r.Post("/raffle/beds/draw", s.drawBeds)
		r.Post("/raffle/cars/shuffle", s.shuffleCars)
		r.Post("/raffle/wheel/spin", s.spinWheel)

		r.Get("/announcement", s.announcement)
		r.Post("/announcement/dismiss", s.dismissAnnouncement)

		r.Get("/config", s.tripConfig)
		r.Get("/countdown", s.countdown)
		r.Get("/reminder", s.reminder)
		r.Post("/reminder/dismiss", s.dismissReminder)
		r.Get("/quip", s.dailyQuip)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.Admin))
			r.Use(s.auditAdmin)

			r.Post("/announcement", s.publishAnnouncement)
			r.Delete("/announcement", s.cancelAnnouncement)
			r.Delete("/announcement/history/{id}", s.deleteAnnouncementHistory)
			r.Post("/members/{member}/reset-pin", s.resetPin)
			r.Post("/members/{member}/unlock-photo", s.unlockPhoto)
			r.Get("/raffle", s.raffleState)
			r.Post("/raffle/secret-pair", s.assignSecretPair)
			r.Put("/raffle/beds/pins/{member}", s.pinBed)
			r.Put("/raffle/seats/pins/{member}", s.pinSeat)
			r.Put("/config/celebration", s.setCelebration)
			r.Put("/config/dates", s.setTripDates)
			r.Get("/events/{type}", s.eventsByType)
		})
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.Health.Log(eventlogger.NewEvent(
		eventlogger.WithType("health_request"),
		eventlogger.WithData(map[string]string{"message": "ok"}),
		eventlogger.WithMetadata(map[string]string{"request_id": chimiddleware.GetReqID(r.Context())}),
	))
	w.Write([]byte("ok"))
}

// auditAdmin records every admin change with the request that made it.
func (s *Server) auditAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.Health.Log(eventlogger.NewEvent(
				eventlogger.WithType("admin_request"),
				eventlogger.WithData(map[string]string{"method": r.Method, "path": r.URL.Path}),
				eventlogger.WithActor("admin"),
				eventlogger.WithMetadata(map[string]string{"request_id": chimiddleware.GetReqID(r.Context())}),
			))
		}
		next.ServeHTTP(w, r)
	})
}

var ErrBadBody = apperror.Validation("invalid request body")

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrAuthMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConfirmationRequired):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrWriteFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		msg = "internal server error"
	} else if status == http.StatusBadGateway {
		slog.Warn("document write failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func confirmed(r *http.Request) bool {
	return r.URL.Query().Get("confirm") == "true"
}
