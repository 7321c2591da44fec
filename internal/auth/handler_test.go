package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/devconnector/backend/internal/models"
	"github.com/ayush/devconnector/backend/internal/store/storetest"
)

type fakeAudit struct {
	mu     sync.Mutex
	events []models.AuthEvent
	err    error
}

func (f *fakeAudit) Record(_ context.Context, ev models.AuthEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeAudit) kinds() []models.AuthEventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuthEventKind
	for _, ev := range f.events {
		out = append(out, ev.Kind)
	}
	return out
}

type env struct {
	h      *Handler
	users  *storetest.Store
	tokens *TokenManager
	audit  *fakeAudit
}

func newEnv() *env {
	users := storetest.New()
	tokens := NewTokenManager("test-secret", time.Hour)
	audit := &fakeAudit{}
	return &env{
		h:      NewHandler(users, NewHasher(bcrypt.MinCost, 4), tokens, audit),
		users:  users,
		tokens: tokens,
		audit:  audit,
	}
}

func call(h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func errorMsgs(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Errors []struct {
			Msg string `json:"msg"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	var out []string
	for _, e := range body.Errors {
		out = append(out, e.Msg)
	}
	return out
}

func tokenFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestRegister_IssuesTokenForNewUser(t *testing.T) {
	e := newEnv()

	rec := call(e.h.Register, map[string]string{
		"name": "Ada", "email": "Ada@Example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	id, err := e.tokens.VerifyToken(tokenFrom(t, rec))
	require.NoError(t, err)

	u, err := e.users.GetUserByID(context.Background(), id.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.Password)
	assert.True(t, strings.HasPrefix(u.Avatar, "//www.gravatar.com/avatar/"))
	assert.Equal(t, []models.AuthEventKind{models.EventRegister}, e.audit.kinds())
}

func TestRegister_ShortPasswordCreatesNothing(t *testing.T) {
	e := newEnv()

	rec := call(e.h.Register, map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "12345",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Password length needs to be of minimum 6 "}, errorMsgs(t, rec))
	assert.Zero(t, e.users.UserCount())
}

func TestRegister_EmptyBodyReportsEveryField(t *testing.T) {
	e := newEnv()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	e.h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.ElementsMatch(t, []string{
		"Name is Required",
		"Please enter a valid email address",
		"Password length needs to be of minimum 6 ",
	}, errorMsgs(t, rec))
}

func TestRegister_InvalidJSON(t *testing.T) {
	e := newEnv()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	e.h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Invalid request body"}, errorMsgs(t, rec))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newEnv()
	body := map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret1"}

	require.Equal(t, http.StatusOK, call(e.h.Register, body).Code)

	body["email"] = "ADA@example.com"
	rec := call(e.h.Register, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"User already exists"}, errorMsgs(t, rec))
	assert.Equal(t, 1, e.users.UserCount())
}

func TestLogin(t *testing.T) {
	e := newEnv()
	require.Equal(t, http.StatusOK, call(e.h.Register, map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret1",
	}).Code)

	tests := []struct {
		name   string
		body   map[string]string
		status int
		errs   []string
	}{
		{"ok", map[string]string{"email": "ada@example.com", "password": "secret1"}, http.StatusOK, nil},
		{"case insensitive email", map[string]string{"email": "ADA@example.com", "password": "secret1"}, http.StatusOK, nil},
		{"wrong password", map[string]string{"email": "ada@example.com", "password": "secret2"}, http.StatusBadRequest, []string{"Invalid Credentials"}},
		{"unknown email", map[string]string{"email": "bob@example.com", "password": "secret1"}, http.StatusBadRequest, []string{"Invalid Credentials"}},
		{"bad email", map[string]string{"email": "nope", "password": "secret1"}, http.StatusBadRequest, []string{"Please include a valid email"}},
		{"no password", map[string]string{"email": "ada@example.com"}, http.StatusBadRequest, []string{"Password is required"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := call(e.h.Login, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			if tc.errs != nil {
				assert.Equal(t, tc.errs, errorMsgs(t, rec))
				return
			}
			_, err := e.tokens.VerifyToken(tokenFrom(t, rec))
			assert.NoError(t, err)
		})
	}
}

func TestLogin_RecordsFailures(t *testing.T) {
	e := newEnv()
	call(e.h.Register, map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret1"})

	call(e.h.Login, map[string]string{"email": "ada@example.com", "password": "wrong1"})
	call(e.h.Login, map[string]string{"email": "ada@example.com", "password": "secret1"})

	assert.Equal(t, []models.AuthEventKind{
		models.EventRegister, models.EventLoginFailed, models.EventLogin,
	}, e.audit.kinds())
}

func TestLogin_AuditFailureDoesNotFailRequest(t *testing.T) {
	e := newEnv()
	e.audit.err = errors.New("postgres down")

	rec := call(e.h.Register, map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe(t *testing.T) {
	e := newEnv()
	rec := call(e.h.Register, map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret1"})
	id, err := e.tokens.VerifyToken(tokenFrom(t, rec))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), id))
	rec = httptest.NewRecorder()
	e.h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, id.UserID, body["_id"])
	assert.Equal(t, "ada@example.com", body["email"])
	assert.NotContains(t, body, "password")
}

func TestMe_UserGone(t *testing.T) {
	e := newEnv()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "64b7f0c2a1b2c3d4e5f60718"}))
	rec := httptest.NewRecorder()
	e.h.Me(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"msg":"User not found"}`, rec.Body.String())
}

func TestRegister_PasswordOverBcryptLimit(t *testing.T) {
	e := newEnv()

	rec := call(e.h.Register, map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": strings.Repeat("a", MaxPasswordBytes+1),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Password length needs to be of maximum 72 bytes"}, errorMsgs(t, rec))
	assert.Zero(t, e.users.UserCount())

	rec = call(e.h.Register, map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": strings.Repeat("a", MaxPasswordBytes),
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_UnknownEmailStillHashes(t *testing.T) {
	users := storetest.New()
	hasher := NewHasher(bcrypt.MinCost, 1)
	h := NewHandler(users, hasher, NewTokenManager("k", time.Hour), nil)

	require.NoError(t, hasher.sem.Acquire(context.Background(), 1))
	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- call(h.Login, map[string]string{"email": "nobody@example.com", "password": "secret1"})
	}()

	select {
	case <-done:
		t.Fatal("login for an unknown email finished without waiting for a hashing slot")
	case <-time.After(50 * time.Millisecond):
	}
	hasher.sem.Release(1)

	rec := <-done
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Invalid Credentials"}, errorMsgs(t, rec))
}
