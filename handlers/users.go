package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"mini-todos/auth"
	appmw "mini-todos/middleware"
	"mini-todos/store"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthHandler serves signup, login, logout and whoami. User responses are
// sanitized by the model's JSON tags: password hash and token rows never leave
// the server.
type AuthHandler struct {
	users          *store.UserStore
	tokens         *auth.TokenManager
	minPasswordLen int
}

func NewAuthHandler(users *store.UserStore, tokens *auth.TokenManager, minPasswordLen int) *AuthHandler {
	return &AuthHandler{
		users:          users,
		tokens:         tokens,
		minPasswordLen: minPasswordLen,
	}
}

// credentialsRequest is the allow-list for signup and login bodies; any other
// field a client sends is dropped on decode.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates a user and logs it straight in: the first session token is
// issued here and returned in the x-auth header.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRegex.MatchString(email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < h.minPasswordLen {
		writeError(w, http.StatusBadRequest, "password too short")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.users.Create(r.Context(), email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "email already in use")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := h.tokens.Generate(user.ID, auth.PurposeAuth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	if err := h.users.AddToken(r.Context(), user.ID, token, auth.PurposeAuth); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	w.Header().Set(appmw.AuthHeader, token)
	writeJSON(w, http.StatusOK, user)
}

// Login verifies credentials and issues a fresh token on every call, so each
// device gets its own session. Unknown email and wrong password produce the
// same response to prevent user enumeration.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}
	if err := auth.CheckPassword(req.Password, user.PasswordHash); err != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}

	token, err := h.tokens.Generate(user.ID, auth.PurposeAuth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	if err := h.users.AddToken(r.Context(), user.ID, token, auth.PurposeAuth); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	w.Header().Set(appmw.AuthHeader, token)
	writeJSON(w, http.StatusOK, user)
}

// Logout revokes exactly the token used for this request. Other live sessions
// of the same user keep working.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := appmw.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	token, ok := appmw.TokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.users.RemoveToken(r.Context(), user.ID, token); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Me returns the sanitized caller record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := appmw.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
