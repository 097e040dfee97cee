package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"stocktrend/internal/logger"
	"stocktrend/internal/session"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// decodeCredentials accepts an empty body as empty credentials.
func decodeCredentials(r *http.Request) (credentials, error) {
	var c credentials
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&c)
	if err != nil && !errors.Is(err, io.EOF) {
		return c, err
	}
	return c, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	client := clientID(w, r)
	user, err := s.sessions.Login(r.Context(), client, c.Email, c.Password)
	if err != nil {
		s.sessionError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, session.State{User: user, IsAuthenticated: true})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	client := clientID(w, r)
	user, err := s.sessions.Signup(r.Context(), client, c.Email, c.Password, c.Name)
	if err != nil {
		s.sessionError(w, r, "signup", err)
		return
	}
	writeJSON(w, http.StatusOK, session.State{User: user, IsAuthenticated: true})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	client := clientID(w, r)
	if err := s.sessions.Logout(r.Context(), client); err != nil {
		s.sessionError(w, r, "logout", err)
		return
	}
	writeJSON(w, http.StatusOK, session.State{})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	client := clientID(w, r)
	st, err := s.sessions.State(r.Context(), client)
	if err != nil {
		s.sessionError(w, r, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) sessionError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.Error("session operation failed", append(logger.LogWithTrace(r.Context()), "op", op, "error", err)...)
	writeError(w, http.StatusInternalServerError, op+" failed")
}
