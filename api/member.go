package api

import (
	"net/http"

	"github.com/billbatista/acasinha-trip/apperror"
	"github.com/billbatista/acasinha-trip/member"
	"github.com/billbatista/acasinha-trip/middleware"
	"github.com/go-chi/chi/v5"
)

var ErrLocked = apperror.New(apperror.CodeAuthMismatch, "enter your pin first")

// requirePass lets the request through when the client holds a pass for the
// member's scope, or the member has no PIN yet.
func (s *Server) requirePass(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := s.Members.IsUnlocked(r.Context(), middleware.Local(r.Context()), scope, chi.URLParam(r, "member"))
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !ok {
				writeError(w, r, ErrLocked)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) profiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.Members.Profiles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) statuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.Members.VisibleStatuses(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"statuses": statuses,
		"options":  s.Members.Roster().StatusOptions,
	})
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Members.SetStatus(r.Context(), chi.URLParam(r, "member"), body.Status); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unlock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Scope string `json:"scope"`
		Pin   string `json:"pin"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Scope != member.ScopeProfile && body.Scope != member.ScopeWallet {
		writeError(w, r, apperror.Validation("unknown scope "+body.Scope))
		return
	}
	err := s.Members.Unlock(r.Context(), middleware.Local(r.Context()), body.Scope, chi.URLParam(r, "member"), body.Pin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unlocked(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = member.ScopeProfile
	}
	ok, err := s.Members.IsUnlocked(r.Context(), middleware.Local(r.Context()), scope, chi.URLParam(r, "member"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"unlocked": ok})
}

func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	var edit member.ProfileEdit
	if err := decode(r, &edit); err != nil {
		writeError(w, r, err)
		return
	}
	name := chi.URLParam(r, "member")
	p, err := s.Members.SaveProfile(r.Context(), name, edit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if edit.Pin != "" {
		// the member just chose this pin, keep both pages open on this client
		local := middleware.Local(r.Context())
		for _, scope := range member.Scopes {
			if err := s.Members.Passes().Issue(local, scope, name); err != nil {
				writeError(w, r, err)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) resetPin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "member")
	if err := s.Members.ResetPin(r.Context(), name); err != nil {
		writeError(w, r, err)
		return
	}
	s.Members.Passes().Revoke(middleware.Local(r.Context()), name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) unlockPhoto(w http.ResponseWriter, r *http.Request) {
	if err := s.Members.UnlockPhoto(r.Context(), chi.URLParam(r, "member")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
