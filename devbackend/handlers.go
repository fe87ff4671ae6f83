package devbackend

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/pool-admin/authapi"
	"github.com/jrsteele09/pool-admin/users"
)

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageBody{Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := s.users.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil || !u.CheckPassword(req.Password) {
		s.log.Info().Str("email", req.Email).Msg("login rejected")
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	tokens, err := s.issuer.Issue(u)
	if err != nil {
		s.log.Error().Err(err).Msg("could not issue tokens")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, authapi.LoginResponse{TokenResponse: *tokens, User: u})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(w, r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	tokens, err := s.issuer.Exchange(req.RefreshToken, s.users.GetByID)
	if err != nil {
		s.log.Info().Err(err).Msg("refresh rejected")
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims := claimsFromContext(r.Context()); claims != nil {
		s.issuer.Revoke(claims)
	}
	http.SetCookie(w, &http.Cookie{Name: s.cookieName, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, publicUser(u))
}

// publicUser strips server-only fields.
func publicUser(u *users.User) *users.User {
	cp := u.Clone()
	cp.PasswordHash = ""
	return cp
}
