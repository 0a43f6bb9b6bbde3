package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

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
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
)

type staticQuip string

func (q staticQuip) DailyQuip(ctx context.Context) (string, error) {
	return string(q), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	store := docstore.NewMemory()
	t.Cleanup(func() { store.Close() })

	events := eventlogger.NewMemoryEventLogger()
	roster := member.DefaultRoster()
	gate, err := member.NewAdminGate("1130")
	if err != nil {
		t.Fatal(err)
	}
	s := &Server{
		Store:   store,
		Ledger:  ledger.NewService(store, roster.Members, events),
		Raffle:  raffle.NewService(store, roster.RaffleMembers, roster.Members, roster.SecretPair, events, rand.New(rand.NewPCG(1, 2))),
		Board:   announcement.NewBoard(store, events),
		Members: member.NewService(store, roster, member.NewPasses("test-secret"), events),
		Trip:    tripconfig.NewService(store, time.UTC, events),
		Quip:    quip.NewDaily(staticQuip("大吉 🍀"), time.UTC),
		Admin:   gate,
		Events:  events,
		Health:  events,
	}
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv, s
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func do(t *testing.T, c *http.Client, method, url string, body any, header ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var body bytes.Buffer
		body.ReadFrom(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body.String())
	}
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, s := newTestServer(t)
	resp := do(t, srv.Client(), http.MethodGet, srv.URL+"/health", nil)
	expectStatus(t, resp, http.StatusOK)

	events, _ := s.Events.GetByType(context.Background(), "health_request")
	if len(events) != 1 {
		t.Fatalf("expected a health event, got %d", len(events))
	}
}

func TestAdminChangesAreRecorded(t *testing.T) {
	srv, s := newTestServer(t)
	c := newClient(t)

	expectStatus(t, do(t, c, http.MethodGet, srv.URL+"/api/admin/raffle", nil, middleware.AdminCodeHeader, "1130"), http.StatusOK)
	expectStatus(t, do(t, c, http.MethodPost, srv.URL+"/api/admin/announcement", map[string]string{"text": "集合！"}, middleware.AdminCodeHeader, "1130"), http.StatusCreated)

	events, _ := s.Events.GetByType(context.Background(), "admin_request")
	if len(events) != 1 {
		t.Fatalf("expected 1 admin event, got %d", len(events))
	}
	e := events[0]
	if e.Metadata["actor"] != "admin" || e.Metadata["request_id"] == "" {
		t.Fatalf("expected actor and request id metadata, got %v", e.Metadata)
	}
	want := map[string]string{"method": http.MethodPost, "path": "/api/admin/announcement"}
	if diff := cmp.Diff(want, e.Data); diff != "" {
		t.Fatalf("event data mismatch (-want +got):\n%s", diff)
	}
}

func TestSharedExpenseFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)

	resp := do(t, c, http.MethodPost, srv.URL+"/api/wallet/expenses", ledger.ExpenseInput{
		Description: "拉麵", Amount: 3000, Payer: "Sean", Participants: []string{"Sean", "Ben", "Oedi"},
	})
	expectStatus(t, resp, http.StatusCreated)
	var added ledger.Expense
	decodeBody(t, resp, &added)

	resp = do(t, c, http.MethodGet, srv.URL+"/api/wallet", nil)
	expectStatus(t, resp, http.StatusOK)
	var sum ledger.Summary
	decodeBody(t, resp, &sum)
	if sum.Balances["Sean"] != 2000 || sum.Balances["Ben"] != -1000 {
		t.Fatalf("unexpected balances %v", sum.Balances)
	}

	resp = do(t, c, http.MethodDelete, srv.URL+"/api/wallet/expenses/"+added.ID, nil)
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, c, http.MethodDelete, srv.URL+"/api/wallet/expenses/"+added.ID+"?confirm=true", nil)
	expectStatus(t, resp, http.StatusNoContent)

	resp = do(t, c, http.MethodDelete, srv.URL+"/api/wallet/expenses/"+added.ID+"?confirm=true", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestInvalidExpense(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)

	tests := []struct {
		name string
		body any
	}{
		{"empty description", ledger.ExpenseInput{Amount: 10, Payer: "Sean", Participants: []string{"Sean"}}},
		{"unknown payer", ledger.ExpenseInput{Description: "x", Amount: 10, Payer: "Zed", Participants: []string{"Sean"}}},
		{"malformed body", "not an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, c, http.MethodPost, srv.URL+"/api/wallet/expenses", tt.body)
			expectStatus(t, resp, http.StatusBadRequest)
			var body map[string]string
			decodeBody(t, resp, &body)
			if body["error"] == "" {
				t.Fatalf("expected an error message")
			}
		})
	}
}

func TestFund(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)

	expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/fund/balance", map[string]float64{"jpy": 10000, "twd": 2000}), http.StatusNoContent)
	expectStatus(t, do(t, c, http.MethodPost, srv.URL+"/api/fund/expenses", map[string]any{
		"description": "車票", "amount": 1500, "unit": "JPY",
	}), http.StatusCreated)

	resp := do(t, c, http.MethodGet, srv.URL+"/api/fund", nil)
	expectStatus(t, resp, http.StatusOK)
	var f fundView
	decodeBody(t, resp, &f)
	if f.BalanceJPY != 8500 || len(f.Expenses) != 1 {
		t.Fatalf("unexpected fund %+v", f.Fund)
	}
	if f.Display["JPY"] != "¥8,500" {
		t.Fatalf("unexpected display %q", f.Display["JPY"])
	}
}

func TestAdminRoutesNeedCode(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)

	resp := do(t, c, http.MethodPost, srv.URL+"/api/admin/announcement", map[string]string{"text": "集合！"})
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = do(t, c, http.MethodPost, srv.URL+"/api/admin/announcement", map[string]string{"text": "集合！"}, middleware.AdminCodeHeader, "1130")
	expectStatus(t, resp, http.StatusCreated)
}

func TestAnnouncementDismissal(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)
	admin := []string{middleware.AdminCodeHeader, "1130"}

	expectStatus(t, do(t, c, http.MethodPost, srv.URL+"/api/admin/announcement", map[string]string{"text": "九點大廳集合"}, admin...), http.StatusCreated)

	var view viewBody
	resp := do(t, c, http.MethodGet, srv.URL+"/api/announcement", nil)
	decodeBody(t, resp, &view)
	if view.State != announcement.ActiveUndismissed.String() || view.Announcement.Text != "九點大廳集合" {
		t.Fatalf("expected the announcement to show, got %+v", view)
	}

	// a temporary dismissal does not outlive the request
	expectStatus(t, do(t, c, http.MethodPost, srv.URL+"/api/announcement/dismiss", map[string]bool{"permanent": false}), http.StatusOK)
	resp = do(t, c, http.MethodGet, srv.URL+"/api/announcement", nil)
	decodeBody(t, resp, &view)
	if view.State != announcement.ActiveUndismissed.String() {
		t.Fatalf("expected the announcement to show again, got %s", view.State)
	}

	expectStatus(t, do(t, c, http.MethodPost, srv.URL+"/api/announcement/dismiss", map[string]bool{"permanent": true}), http.StatusOK)
	resp = do(t, c, http.MethodGet, srv.URL+"/api/announcement", nil)
	decodeBody(t, resp, &view)
	if view.State != announcement.ActiveDismissed.String() {
		t.Fatalf("expected dismissed, got %s", view.State)
	}

	// another client still sees it
	resp = do(t, newClient(t), http.MethodGet, srv.URL+"/api/announcement", nil)
	decodeBody(t, resp, &view)
	if view.State != announcement.ActiveUndismissed.String() {
		t.Fatalf("expected a fresh client to see it, got %s", view.State)
	}

	// republishing gives a new id, so it shows again
	expectStatus(t, do(t, c, http.MethodPost, srv.URL+"/api/admin/announcement", map[string]string{"text": "九點大廳集合"}, admin...), http.StatusCreated)
	resp = do(t, c, http.MethodGet, srv.URL+"/api/announcement", nil)
	decodeBody(t, resp, &view)
	if view.State != announcement.ActiveUndismissed.String() {
		t.Fatalf("expected the republished announcement to show, got %s", view.State)
	}
}

// viewBody is the announcement view as a client decodes it.
type viewBody struct {
	State        string                    `json:"state"`
	Announcement announcement.Announcement `json:"announcement"`
}

func TestPersonalWalletNeedsPass(t *testing.T) {
	srv, _ := newTestServer(t)
	owner := newClient(t)
	other := newClient(t)
	wallet := srv.URL + "/api/members/Sean/wallet"

	// no pin yet, open to everyone
	expectStatus(t, do(t, other, http.MethodGet, wallet, nil), http.StatusOK)

	expectStatus(t, do(t, owner, http.MethodPut, srv.URL+"/api/members/Sean/profile", member.ProfileEdit{Title: "隊長", Pin: "1234"}), http.StatusOK)

	expectStatus(t, do(t, owner, http.MethodGet, wallet, nil), http.StatusOK)
	expectStatus(t, do(t, other, http.MethodGet, wallet, nil), http.StatusUnauthorized)

	unlock := srv.URL + "/api/members/Sean/unlock"
	expectStatus(t, do(t, other, http.MethodPost, unlock, map[string]string{"scope": "wallet", "pin": "0000"}), http.StatusUnauthorized)
	expectStatus(t, do(t, other, http.MethodPost, unlock, map[string]string{"scope": "wallet", "pin": "1234"}), http.StatusNoContent)

	resp := do(t, other, http.MethodPost, wallet+"/expenses", map[string]any{"description": "咖啡", "amount": 500})
	expectStatus(t, resp, http.StatusCreated)

	resp = do(t, other, http.MethodGet, wallet, nil)
	var sum ledger.PersonalSummary
	decodeBody(t, resp, &sum)
	if sum.TotalJPY != 500 || len(sum.Items) != 1 {
		t.Fatalf("unexpected personal wallet %+v", sum)
	}
}

func TestResetPinClearsPin(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)

	expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/members/Ben/profile", member.ProfileEdit{Pin: "4321"}), http.StatusOK)
	expectStatus(t, do(t, c, http.MethodPost, srv.URL+"/api/admin/members/Ben/reset-pin", nil, middleware.AdminCodeHeader, "1130"), http.StatusNoContent)

	resp := do(t, c, http.MethodGet, srv.URL+"/api/members/Ben/unlocked?scope=wallet", nil)
	var body map[string]bool
	decodeBody(t, resp, &body)
	if !body["unlocked"] {
		t.Fatalf("expected no pin after reset")
	}
}

func TestRaffleRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)
	admin := []string{middleware.AdminCodeHeader, "1130"}

	// pins are an admin action
	expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/admin/raffle/beds/pins/Sean", map[string]string{"bed": "U2"}), http.StatusUnauthorized)
	expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/admin/raffle/seats/pins/Sean", map[string]string{"car": raffle.Car4}), http.StatusUnauthorized)
	expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/raffle/beds/pins/Sean", map[string]string{"bed": "U2"}), http.StatusNotFound)

	expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/admin/raffle/beds/pins/Sean", map[string]string{"bed": "U1"}, admin...), http.StatusNoContent)
	expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/admin/raffle/beds/pins/Sean", map[string]string{"bed": "X9"}, admin...), http.StatusBadRequest)

	resp := do(t, c, http.MethodPost, srv.URL+"/api/raffle/beds/draw", nil)
	expectStatus(t, resp, http.StatusOK)
	var beds []raffle.BedAssignment
	decodeBody(t, resp, &beds)
	if len(beds) != 10 || beds[0].Member != "Sean" || beds[0].Bed != "U1" {
		t.Fatalf("expected the pinned bed first, got %+v", beds)
	}

	for _, m := range []string{"Sean", "Ben", "Oedi", "Wilson"} {
		expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/admin/raffle/seats/pins/"+m, map[string]string{"car": raffle.Car4}, admin...), http.StatusNoContent)
	}
	expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/admin/raffle/seats/pins/Ethan", map[string]string{"car": raffle.Car4}, admin...), http.StatusBadRequest)

	resp = do(t, c, http.MethodPost, srv.URL+"/api/raffle/cars/shuffle", nil)
	expectStatus(t, resp, http.StatusOK)
	var cars raffle.CarResult
	decodeBody(t, resp, &cars)
	if len(cars.Car4) != 4 || len(cars.Car6) != 6 {
		t.Fatalf("unexpected cars %+v", cars)
	}
}

func TestSecretPairHiddenFromPublicState(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)
	admin := []string{middleware.AdminCodeHeader, "1130"}

	expectStatus(t, do(t, c, http.MethodPost, srv.URL+"/api/admin/raffle/secret-pair", nil, admin...), http.StatusOK)

	var public, revealed raffle.Document
	decodeBody(t, do(t, c, http.MethodGet, srv.URL+"/api/raffle", nil), &public)
	decodeBody(t, do(t, c, http.MethodGet, srv.URL+"/api/admin/raffle", nil, admin...), &revealed)
	if public.FixedBeds["Ethan"] != "" || revealed.FixedBeds["Ethan"] == "" {
		t.Fatalf("expected the pair hidden publicly only, got %v and %v", public.FixedBeds, revealed.FixedBeds)
	}
}

func TestQuipAndCountdown(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)

	var q map[string]string
	decodeBody(t, do(t, c, http.MethodGet, srv.URL+"/api/quip", nil), &q)
	if q["quip"] != "大吉 🍀" {
		t.Fatalf("unexpected quip %q", q["quip"])
	}

	var reminder map[string]bool
	decodeBody(t, do(t, c, http.MethodGet, srv.URL+"/api/reminder", nil), &reminder)
	if !reminder["show"] {
		t.Fatalf("expected the reminder on a fresh client")
	}
	expectStatus(t, do(t, c, http.MethodPost, srv.URL+"/api/reminder/dismiss", nil), http.StatusNoContent)
	decodeBody(t, do(t, c, http.MethodGet, srv.URL+"/api/reminder", nil), &reminder)
	if reminder["show"] {
		t.Fatalf("expected the reminder dismissed")
	}

	expectStatus(t, do(t, c, http.MethodPut, srv.URL+"/api/admin/config/dates", map[string]string{
		"tripStartDate": "2026-03-09T20:00", "tripEndDate": "2026-03-01T02:30",
	}, middleware.AdminCodeHeader, "1130"), http.StatusBadRequest)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperror.Validation("bad"), http.StatusBadRequest},
		{apperror.New(apperror.CodeCapacityExceeded, "full"), http.StatusBadRequest},
		{member.ErrPinMismatch, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", ledger.ErrExpenseNotFound), http.StatusNotFound},
		{apperror.New(apperror.CodeConfirmationRequired, "sure?"), http.StatusConflict},
		{apperror.Wrap(apperror.CodeWriteFailure, "writing wallet", errors.New("offline")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusOf(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWatchDocument(t *testing.T) {
	srv, s := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/docs/" + announcement.Doc
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap docstore.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("reading initial snapshot: %v", err)
	}
	if snap.Exists {
		t.Fatalf("expected no announcement yet")
	}

	if _, err := s.Board.Publish(context.Background(), "出發囉"); err != nil {
		t.Fatal(err)
	}
	// the seeded empty document may arrive first
	for snap.Data["text"] != "出發囉" {
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("reading update: %v", err)
		}
	}
	if snap.Revision == 0 {
		t.Fatalf("expected a revision on the published snapshot")
	}
}

func TestWatchDocumentRejectsBadPath(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, srv.Client(), http.MethodGet, srv.URL+"/ws/docs/a.b", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func dialWS(t *testing.T, srv *httptest.Server, path string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWatchRaffleHidesSecretPair(t *testing.T) {
	srv, s := newTestServer(t)
	if _, err := s.Raffle.AssignSecretPair(context.Background()); err != nil {
		t.Fatal(err)
	}

	fixedBeds := func(conn *websocket.Conn) map[string]any {
		t.Helper()
		var snap docstore.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("reading snapshot: %v", err)
		}
		fixed, _ := snap.Data["fixedBeds"].(map[string]any)
		return fixed
	}

	public := fixedBeds(dialWS(t, srv, "/ws/docs/"+raffle.Doc, nil))
	if public["Ethan"] != "" || public["Alvin"] != "" {
		t.Fatalf("expected the pair hidden, got %v", public)
	}

	header := http.Header{}
	header.Set(middleware.AdminCodeHeader, "1130")
	revealed := fixedBeds(dialWS(t, srv, "/ws/docs/"+raffle.Doc, header))
	if revealed["Ethan"] == "" || revealed["Alvin"] == "" {
		t.Fatalf("expected the pair shown to an admin, got %v", revealed)
	}

	viaQuery := fixedBeds(dialWS(t, srv, "/ws/docs/"+raffle.Doc+"?code=1130", nil))
	if viaQuery["Ethan"] == "" {
		t.Fatalf("expected the pair shown with the code parameter, got %v", viaQuery)
	}
}

func TestWatchAnnouncement(t *testing.T) {
	srv, s := newTestServer(t)
	conn := dialWS(t, srv, "/ws/announcement", nil)

	var view viewBody
	if err := conn.ReadJSON(&view); err != nil {
		t.Fatalf("reading initial view: %v", err)
	}
	if view.State != announcement.NoActive.String() {
		t.Fatalf("expected no announcement, got %s", view.State)
	}

	if _, err := s.Board.Publish(context.Background(), "退房十點"); err != nil {
		t.Fatal(err)
	}
	for view.State != announcement.ActiveUndismissed.String() {
		if err := conn.ReadJSON(&view); err != nil {
			t.Fatalf("reading update: %v", err)
		}
	}
	if view.Announcement.Text != "退房十點" {
		t.Fatalf("unexpected announcement %+v", view.Announcement)
	}
}
