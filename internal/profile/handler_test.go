package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/devconnector/backend/internal/auth"
	"github.com/ayush/devconnector/backend/internal/models"
	"github.com/ayush/devconnector/backend/internal/store/storetest"
)

const userHeader = "X-Test-User"

type fakeFiles struct {
	removed []string
	err     error
}

func (f *fakeFiles) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return f.err
}

type env struct {
	db     *storetest.Store
	files  *fakeFiles
	router chi.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := storetest.New()
	files := &fakeFiles{}
	h := NewHandler(db, db, db, files)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get(userHeader); id != "" {
				r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{UserID: id}))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/me", h.Me)
	r.Post("/", h.Upsert)
	r.Get("/", h.List)
	r.Get("/user/{user_id}", h.ByUser)
	r.Delete("/", h.Delete)
	r.Put("/experience", h.AddExperience)
	r.Delete("/experience/{exp_id}", h.RemoveExperience)
	r.Put("/education", h.AddEducation)
	r.Delete("/education/{edu_id}", h.RemoveEducation)

	return &env{db: db, files: files, router: r}
}

func (e *env) user(t *testing.T, name string) string {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Avatar: "//gravatar/" + name}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	return u.ID.Hex()
}

func (e *env) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type profileBody struct {
	ID     string   `json:"_id"`
	Status string   `json:"status"`
	Skills []string `json:"skills"`
	User   struct {
		ID     string `json:"_id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	} `json:"user"`
	Experience []struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
		To    string `json:"to"`
	} `json:"experience"`
	Education []struct {
		ID     string `json:"_id"`
		School string `json:"school"`
	} `json:"education"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestMe_NoProfile(t *testing.T) {
	e := newEnv(t)
	uid := e.user(t, "ada")

	rec := e.do(http.MethodGet, "/me", uid, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"msg":"User Profile does not exist"}`, rec.Body.String())
}

func TestUpsert_CreatesThenUpdates(t *testing.T) {
	e := newEnv(t)
	uid := e.user(t, "ada")

	rec := e.do(http.MethodPost, "/", uid, map[string]string{
		"status": "Developer", "skills": " go, mongo ,,js ",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[profileBody](t, rec)
	assert.Equal(t, []string{"go", "mongo", "js"}, created.Skills)
	assert.Equal(t, "ada", created.User.Name)
	assert.Equal(t, uid, created.User.ID)

	rec = e.do(http.MethodPost, "/", uid, map[string]string{"status": "Lead", "skills": "go"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[profileBody](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Lead", updated.Status)

	rec = e.do(http.MethodGet, "/me", uid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct {
		Profile profileBody `json:"profile"`
	}](t, rec)
	assert.Equal(t, "Lead", me.Profile.Status)
	assert.Equal(t, "//gravatar/ada", me.Profile.User.Avatar)
}

func TestUpsert_Validation(t *testing.T) {
	e := newEnv(t)
	uid := e.user(t, "ada")

	rec := e.do(http.MethodPost, "/", uid, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[struct {
		Errors []struct {
			Msg string `json:"msg"`
		} `json:"errors"`
	}](t, rec)
	var msgs []string
	for _, e := range body.Errors {
		msgs = append(msgs, e.Msg)
	}
	assert.ElementsMatch(t, []string{"Status is required", "Skills is required"}, msgs)
}

func TestListAndByUser(t *testing.T) {
	e := newEnv(t)
	ada, bob := e.user(t, "ada"), e.user(t, "bob")
	e.do(http.MethodPost, "/", ada, map[string]string{"status": "Dev", "skills": "go"})
	e.do(http.MethodPost, "/", bob, map[string]string{"status": "Dev", "skills": "js"})

	rec := e.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]profileBody](t, rec), 2)

	rec = e.do(http.MethodGet, "/user/"+bob, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decode[profileBody](t, rec).User.Name)

	for _, id := range []string{"64b7f0c2a1b2c3d4e5f60718", "not-an-id"} {
		rec = e.do(http.MethodGet, "/user/"+id, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"msg":"Profile not found"}`, rec.Body.String())
	}
}

func TestExperience(t *testing.T) {
	e := newEnv(t)
	uid := e.user(t, "ada")

	rec := e.do(http.MethodPut, "/experience", uid, map[string]string{"title": "Dev", "company": "Acme", "from": "2020-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no profile yet")

	e.do(http.MethodPost, "/", uid, map[string]string{"status": "Dev", "skills": "go"})

	rec = e.do(http.MethodPut, "/experience", uid, map[string]any{"title": "Dev", "company": "Acme"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPut, "/experience", uid, map[string]any{"title": "Dev", "company": "Acme", "from": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPut, "/experience", uid, map[string]any{"title": "Junior", "company": "Acme", "from": "2018-01-01", "to": "2019-06"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodPut, "/experience", uid, map[string]any{"title": "Senior", "company": "Acme", "from": "2019-07-01", "current": true})
	require.Equal(t, http.StatusOK, rec.Code)

	p := decode[profileBody](t, rec)
	require.Len(t, p.Experience, 2)
	assert.Equal(t, "Senior", p.Experience[0].Title)
	assert.Empty(t, p.Experience[0].To)
	assert.NotEmpty(t, p.Experience[1].To)

	rec = e.do(http.MethodDelete, "/experience/"+p.Experience[1].ID, uid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p = decode[profileBody](t, rec)
	require.Len(t, p.Experience, 1)
	assert.Equal(t, "Senior", p.Experience[0].Title)

	rec = e.do(http.MethodDelete, "/experience/64b7f0c2a1b2c3d4e5f60718", uid, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEducation(t *testing.T) {
	e := newEnv(t)
	uid := e.user(t, "ada")
	e.do(http.MethodPost, "/", uid, map[string]string{"status": "Dev", "skills": "go"})

	rec := e.do(http.MethodPut, "/education", uid, map[string]any{"school": "MIT", "degree": "BSc", "from": "2010-09-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Field of study is required")

	rec = e.do(http.MethodPut, "/education", uid, map[string]any{"school": "MIT", "degree": "BSc", "fieldofstudy": "CS", "from": "2010-09-01"})
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[profileBody](t, rec)
	require.Len(t, p.Education, 1)

	rec = e.do(http.MethodDelete, "/education/"+p.Education[0].ID, uid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[profileBody](t, rec).Education)

	rec = e.do(http.MethodDelete, "/education/"+p.Education[0].ID, uid, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelete_RemovesEverything(t *testing.T) {
	e := newEnv(t)
	ada, bob := e.user(t, "ada"), e.user(t, "bob")
	ctx := context.Background()
	require.NoError(t, e.db.SetAvatar(ctx, ada, "/api/profile/avatar/"+ada, ada+"/key"))
	e.do(http.MethodPost, "/", ada, map[string]string{"status": "Dev", "skills": "go"})

	adaUser, err := e.db.GetUserByID(ctx, ada)
	require.NoError(t, err)
	require.NoError(t, e.db.CreatePost(ctx, &models.Post{User: adaUser.ID, Text: "mine"}))
	bobUser, err := e.db.GetUserByID(ctx, bob)
	require.NoError(t, err)
	require.NoError(t, e.db.CreatePost(ctx, &models.Post{User: bobUser.ID, Text: "theirs"}))

	e.files.err = errors.New("minio down")
	rec := e.do(http.MethodDelete, "/", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"msg":"User deleted"}`, rec.Body.String())

	assert.Equal(t, []string{ada + "/key"}, e.files.removed)
	assert.Equal(t, 1, e.db.UserCount())
	_, err = e.db.GetProfileByUser(ctx, ada)
	assert.Error(t, err)
	posts, err := e.db.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "theirs", posts[0].Text)
}
