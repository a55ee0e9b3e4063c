package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPanelTicket_Issued(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/panel-ticket", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Ticket == "" {
		t.Error("expected ticket to be non-empty")
	}
	if resp.ExpiresIn != 60 {
		t.Errorf("expires_in = %d, want 60", resp.ExpiresIn)
	}

	if !srv.validatePanelTicket(resp.Ticket) {
		t.Error("freshly issued ticket should validate")
	}
}

func TestPanelTicket_ValidUntilExpiry(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/panel-ticket", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp struct {
		Ticket string `json:"ticket"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// Tickets are stateless bearer tokens: a panel that reconnects within
	// the TTL may spend the same ticket again.
	if !srv.validatePanelTicket(resp.Ticket) {
		t.Error("ticket should be valid on first use")
	}
	if !srv.validatePanelTicket(resp.Ticket) {
		t.Error("ticket should remain valid within its TTL")
	}
}

func TestPanelTicket_Expired(t *testing.T) {
	srv, _ := testServer(t)

	claims := jwt.MapClaims{
		"sub": "panel",
		"iat": time.Now().Add(-2 * time.Minute).Unix(),
		"exp": time.Now().Add(-1 * time.Minute).Unix(),
	}
	ticket, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(srv.secCfg.JWT.Secret))
	if err != nil {
		t.Fatalf("sign ticket: %v", err)
	}

	if srv.validatePanelTicket(ticket) {
		t.Error("expired ticket should not validate")
	}
}

func TestPanelTicket_Garbage(t *testing.T) {
	srv, _ := testServer(t)

	if srv.validatePanelTicket("not-a-ticket") {
		t.Error("garbage ticket should not validate")
	}
	if srv.validatePanelTicket("") {
		t.Error("empty ticket should not validate")
	}
}

func TestPanelTicket_WrongSubject(t *testing.T) {
	srv, _ := testServer(t)

	claims := jwt.MapClaims{
		"sub": "intruder",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	ticket, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(srv.secCfg.JWT.Secret))
	if err != nil {
		t.Fatalf("sign ticket: %v", err)
	}

	if srv.validatePanelTicket(ticket) {
		t.Error("ticket with wrong subject should not validate")
	}
}

func TestPanelTicket_WrongSecret(t *testing.T) {
	srv, _ := testServer(t)

	claims := jwt.MapClaims{
		"sub": "panel",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	ticket, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("a-completely-different-signing-secret-here"))
	if err != nil {
		t.Fatalf("sign ticket: %v", err)
	}

	if srv.validatePanelTicket(ticket) {
		t.Error("ticket signed with wrong secret should not validate")
	}
}

func TestPanelTicket_DefaultTTL(t *testing.T) {
	srv, _ := testServer(t)
	srv.secCfg.JWT.TicketTTL = 0

	if got := srv.ticketTTL(); got != defaultTicketTTL {
		t.Errorf("ticketTTL() = %v, want %v", got, defaultTicketTTL)
	}
}
