package http

import (
	"net/http"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.deps.Users.Signup(r.Context(), req.Username, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.respondWithToken(w, r, http.StatusCreated, user)
}

// handleLogin identifies by username only; there are no passwords.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.deps.Users.Login(r.Context(), req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.respondWithToken(w, r, http.StatusOK, user)
}

func (s *Server) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user core.User) {
	token, expires, err := s.deps.JWT.Generate(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, tokenResponse{User: toUserDTO(user), Token: token, ExpiresAt: expires})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Users.Get(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// currentUserID is only called behind RequireAuth.
func currentUserID(r *http.Request) int64 {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return 0
	}
	return claims.UserID
}
