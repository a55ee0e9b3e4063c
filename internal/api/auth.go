package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auth constants.
const (
	// defaultTicketTTL applies when security.jwt.ticket_ttl is unset.
	defaultTicketTTL = 60 * time.Second

	// ticketSubject is the subject claim stamped into panel tickets.
	ticketSubject = "panel"
)

// ticketTTL returns the configured panel ticket lifetime.
func (s *Server) ticketTTL() time.Duration {
	ttl := time.Duration(s.secCfg.JWT.TicketTTL) * time.Second
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}
	return ttl
}

// handlePanelTicket issues a short-lived WebSocket ticket for a panel.
//
// The ticket is an HS256 JWT signed with the configured secret. Panels
// request one immediately before opening the WebSocket and spend it in
// the upgrade query string, so a leaked browser history entry goes
// stale within the TTL.
func (s *Server) handlePanelTicket(w http.ResponseWriter, _ *http.Request) {
	ttl := s.ticketTTL()
	now := time.Now()

	claims := jwt.MapClaims{
		"sub": ticketSubject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secCfg.JWT.Secret))
	if err != nil {
		writeInternalError(w, "failed to generate ticket")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     signed,
		"expires_in": int(ttl.Seconds()),
	})
}

// validatePanelTicket verifies a ticket's signature, expiry, and subject.
func (s *Server) validatePanelTicket(ticket string) bool {
	token, err := jwt.Parse(ticket, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secCfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return false
	}
	return sub == ticketSubject
}
