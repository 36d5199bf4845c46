package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-todos/auth"
	appmw "mini-todos/middleware"
	"mini-todos/models"
	"mini-todos/store"
)

const (
	testSecret        = "test-secret"
	selectUserByEmail = "SELECT id, email, password_hash, created_at FROM users WHERE email = ?"
	selectUserByID    = "SELECT id, email, password_hash, created_at FROM users WHERE id = ?"
	insertUser        = "INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)"
	insertToken       = "INSERT INTO user_tokens (user_id, token, purpose) VALUES (?, ?, ?)"
)

func newAuthHandlerWithMock(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	users := store.NewUserStore(conn)
	tokens := auth.NewTokenManager(testSecret, 0)
	return NewAuthHandler(users, tokens, 6), mock, conn
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestSignup(t *testing.T) {
	h, mock, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertUser)).
		WithArgs(sqlmock.AnyArg(), "a@x.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByID)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("u-1", "a@x.com", "hash", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(insertToken)).
		WithArgs("u-1", sqlmock.AnyArg(), auth.PurposeAuth).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := postJSON(t, h.Signup, "/users", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(appmw.AuthHeader))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "a@x.com", got["email"])
	// The sanitized record never carries credentials.
	assert.NotContains(t, got, "password")
	assert.NotContains(t, got, "password_hash")
	assert.NotContains(t, got, "tokens")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupNormalizesEmail(t *testing.T) {
	h, mock, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertUser)).
		WithArgs(sqlmock.AnyArg(), "a@x.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByID)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("u-1", "a@x.com", "hash", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(insertToken)).
		WithArgs("u-1", sqlmock.AnyArg(), auth.PurposeAuth).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := postJSON(t, h.Signup, "/users", map[string]string{
		"email":    "  A@X.com ",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupRejectsMalformedEmail(t *testing.T) {
	h, _, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	for _, email := range []string{"", "nope", "a@b", "a b@x.com"} {
		rr := postJSON(t, h.Signup, "/users", map[string]string{
			"email":    email,
			"password": "secret123",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code, "email %q", email)
	}
}

func TestSignupRejectsShortPassword(t *testing.T) {
	h, _, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	rr := postJSON(t, h.Signup, "/users", map[string]string{
		"email":    "a@x.com",
		"password": "12345",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignupDuplicateEmail(t *testing.T) {
	h, mock, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertUser)).
		WithArgs(sqlmock.AnyArg(), "a@x.com", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	rr := postJSON(t, h.Signup, "/users", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin(t *testing.T) {
	h, mock, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("u-1", "a@x.com", hash, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(insertToken)).
		WithArgs("u-1", sqlmock.AnyArg(), auth.PurposeAuth).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := postJSON(t, h.Login, "/users/login", map[string]string{
		"email":    "a@x.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(appmw.AuthHeader))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "a@x.com", got["email"])
	assert.NotContains(t, got, "password")
}

func TestLoginFailureIsUniform(t *testing.T) {
	h, mock, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)

	// Unknown email.
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
		WithArgs("ghost@x.com").
		WillReturnError(sql.ErrNoRows)
	unknownEmail := postJSON(t, h.Login, "/users/login", map[string]string{
		"email":    "ghost@x.com",
		"password": "secret123",
	})

	// Wrong password for an existing user.
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByEmail)).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at"}).
			AddRow("u-1", "a@x.com", hash, time.Now()))
	wrongPassword := postJSON(t, h.Login, "/users/login", map[string]string{
		"email":    "a@x.com",
		"password": "wrongpass",
	})

	// Same status and body for both, so callers cannot enumerate users.
	assert.Equal(t, http.StatusBadRequest, unknownEmail.Code)
	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, unknownEmail.Body.String(), wrongPassword.Body.String())
}

func TestLogout(t *testing.T) {
	h, mock, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_tokens WHERE user_id = ? AND token = ?")).
		WithArgs("u-1", "current-token").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("DELETE", "/users/me/token", nil)
	caller := models.User{ID: "u-1", Email: "a@x.com"}
	req = req.WithContext(appmw.WithUser(req.Context(), caller, "current-token"))
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.Logout).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMe(t *testing.T) {
	h, _, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	req := httptest.NewRequest("GET", "/users/me", nil)
	caller := models.User{ID: "u-1", Email: "a@x.com", PasswordHash: "hash"}
	req = req.WithContext(appmw.WithUser(req.Context(), caller, "current-token"))
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.Me).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "u-1", got["id"])
	assert.Equal(t, "a@x.com", got["email"])
	assert.NotContains(t, got, "password")
	assert.NotContains(t, got, "password_hash")
}

func TestMeWithoutIdentity(t *testing.T) {
	h, _, conn := newAuthHandlerWithMock(t)
	defer conn.Close()

	req := httptest.NewRequest("GET", "/users/me", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.Me).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
