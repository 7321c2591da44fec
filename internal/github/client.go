// Package github proxies the public repositories of a profile's GitHub
// account, caching upstream answers.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoProfile is returned when GitHub has nothing for the username.
var ErrNoProfile = errors.New("no github profile")

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,38})$`)

// Cache stores raw upstream bodies by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// checkResp returns an error if the status is not 2xx, including the
// upstream body for debugging.
func checkResp(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("github %s returned %d: %s", path, resp.StatusCode, string(body))
}

// Client calls the GitHub REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      Cache
	ttl        time.Duration
}

// NewClient builds a client. cache may be nil, in which case every lookup
// goes upstream.
func NewClient(baseURL, token string, cache Cache, ttl time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		ttl:        ttl,
	}
}

func cacheKey(username string) string {
	return "github:repos:" + strings.ToLower(username)
}

// Repos returns the first five public repositories of username ordered by
// creation date ascending (sort=created:asc, oldest first), as the raw JSON
// array GitHub sent.
func (c *Client) Repos(ctx context.Context, username string) (json.RawMessage, error) {
	if !usernameRe.MatchString(username) {
		return nil, ErrNoProfile
	}

	key := cacheKey(username)
	if c.cache != nil {
		if body, ok, err := c.cache.Get(ctx, key); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("github cache read")
		} else if ok {
			return body, nil
		}
	}

	path := "/users/" + url.PathEscape(username) + "/repos"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?per_page=5&sort=created:asc", nil)
	if err != nil {
		return nil, fmt.Errorf("github %s: %w", path, err)
	}
	req.Header.Set("User-Agent", "node.js")
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoProfile
	}
	if err := checkResp(resp, path); err != nil {
		return nil, err
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("github %s: decode: %w", path, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("github cache write")
		}
	}
	return body, nil
}
