package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	vals map[string][]byte
	ttls map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{vals: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vals[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[key] = val
	c.ttls[key] = ttl
	return nil
}

func upstream(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/users/octocat/repos":
			assert.Equal(t, "5", r.URL.Query().Get("per_page"))
			assert.Equal(t, "created:asc", r.URL.Query().Get("sort"))
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"name":"hello-world"}]`))
		case "/users/broken/repos":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ReposCachesUpstream(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	cache := newMemCache()
	c := NewClient(srv.URL+"/", "", cache, time.Minute)

	for range 3 {
		body, err := c.Repos(context.Background(), "octocat")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"name":"hello-world"}]`, string(body))
	}
	assert.EqualValues(t, 1, hits.Load())
	assert.Equal(t, time.Minute, cache.ttls["github:repos:octocat"])
}

func TestClient_ReposWithoutCache(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	c := NewClient(srv.URL, "", nil, time.Minute)

	_, err := c.Repos(context.Background(), "octocat")
	require.NoError(t, err)
	_, err = c.Repos(context.Background(), "octocat")
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestClient_ReposErrors(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	c := NewClient(srv.URL, "", newMemCache(), time.Minute)

	_, err := c.Repos(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNoProfile)

	_, err = c.Repos(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoProfile)

	before := hits.Load()
	_, err = c.Repos(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrNoProfile)
	assert.Equal(t, before, hits.Load())
}

func TestClient_SendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "gh-token", nil, time.Minute).Repos(context.Background(), "octocat")
	require.NoError(t, err)
}

func TestHandler_Repos(t *testing.T) {
	var hits atomic.Int32
	srv := upstream(t, &hits)
	h := NewHandler(NewClient(srv.URL, "", nil, time.Minute))

	r := chi.NewRouter()
	r.Get("/github/{username}", h.Repos)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/github/octocat", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"hello-world"}]`, rec.Body.String())

	for _, name := range []string{"nobody", "broken"} {
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/github/"+name, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"msg":"No Github profile found"}`, rec.Body.String())
	}
}
