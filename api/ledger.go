package api

import (
	"net/http"

	"github.com/billbatista/acasinha-trip/ledger"
	"github.com/go-chi/chi/v5"
)

func (s *Server) walletSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Ledger.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) addExpense(w http.ResponseWriter, r *http.Request) {
	var in ledger.ExpenseInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.Ledger.AddExpense(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) removeExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.Ledger.RemoveExpense(r.Context(), chi.URLParam(r, "id"), confirmed(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setRate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rate float64 `json:"rate"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Ledger.SetRate(r.Context(), body.Rate); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fundView struct {
	ledger.Fund
	Display map[string]string `json:"display"`
}

func (s *Server) fund(w http.ResponseWriter, r *http.Request) {
	f, err := s.Ledger.Fund(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fundView{
		Fund: f,
		Display: map[string]string{
			"JPY": ledger.Format(f.BalanceJPY, ledger.JPY),
			"TWD": ledger.Format(f.BalanceTWD, ledger.TWD),
		},
	})
}

func (s *Server) addFundExpense(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description string          `json:"description"`
		Amount      float64         `json:"amount"`
		Unit        ledger.Currency `json:"unit"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.Ledger.AddFundExpense(r.Context(), body.Description, body.Amount, body.Unit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) removeFundExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.Ledger.RemoveFundExpense(r.Context(), chi.URLParam(r, "id"), confirmed(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setFundBalance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JPY float64 `json:"jpy"`
		TWD float64 `json:"twd"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Ledger.SetFundBalance(r.Context(), body.JPY, body.TWD); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) personalWallet(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Ledger.PersonalSummary(r.Context(), chi.URLParam(r, "member"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) addPersonalExpense(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.Ledger.AddPersonalExpense(r.Context(), chi.URLParam(r, "member"), body.Description, body.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) removePersonalExpense(w http.ResponseWriter, r *http.Request) {
	err := s.Ledger.RemovePersonalExpense(r.Context(), chi.URLParam(r, "member"), chi.URLParam(r, "id"), confirmed(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
