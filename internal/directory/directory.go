// Package directory suggests collaborators from a randomuser.me compatible service.
package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"tasksphere/internal/models"
)

const (
	DefaultBaseURL = "https://randomuser.me/api"
	DefaultTTL     = 5 * time.Minute
	nationalities  = "br,us,gb"
	minFetch       = 20
	searchFetch    = 50
)

// Fallback is served when the service cannot be reached.
var Fallback = []models.User{
	{ID: "1", Name: "Lorenzo Chaves", Email: "lorenzo@tasksphere.com", Avatar: "https://ui-avatars.com/api/?name=Lorenzo%20Chaves&background=ef4444&color=fff"},
	{ID: "2", Name: "Maria Silva", Email: "maria@example.com", Avatar: "https://ui-avatars.com/api/?name=Maria%20Silva&background=ef4444&color=fff"},
	{ID: "3", Name: "Joao Santos", Email: "joao@example.com", Avatar: "https://ui-avatars.com/api/?name=Joao%20Santos&background=ef4444&color=fff"},
}

type person struct {
	Name struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Email string `json:"email"`
	Login struct {
		UUID string `json:"uuid"`
	} `json:"login"`
	Picture struct {
		Medium string `json:"medium"`
	} `json:"picture"`
}

type response struct {
	Results []person `json:"results"`
}

// Client fetches and caches directory users.
type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	cache     []models.User
	fetchedAt time.Time
}

// New returns a Client. Empty baseURL and zero ttl select the defaults.
func New(baseURL string, timeout, ttl time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Suggestions returns up to count users, from the cache while it is fresh.
// Any failure yields the fallback list.
func (c *Client) Suggestions(ctx context.Context, count int) []models.User {
	users, err := c.users(ctx, max(count, minFetch))
	if err != nil {
		c.logger.Error("error fetching collaborators", "error", err)
		return head(Fallback, count)
	}
	return head(users, count)
}

// Search returns up to count users whose name or email contains term.
func (c *Client) Search(ctx context.Context, term string, count int) []models.User {
	users, err := c.users(ctx, searchFetch)
	if err != nil {
		c.logger.Error("error searching collaborators", "error", err)
		users = Fallback
	}
	if count <= 0 {
		return []models.User{}
	}
	term = strings.ToLower(term)
	out := make([]models.User, 0, count)
	for _, u := range users {
		if len(out) == count {
			break
		}
		if strings.Contains(strings.ToLower(u.Name), term) || strings.Contains(strings.ToLower(u.Email), term) {
			out = append(out, u)
		}
	}
	return out
}

// EmailExists reports whether a cached directory user has email. Lookup
// failures report false.
func (c *Client) EmailExists(ctx context.Context, email string) bool {
	users, err := c.users(ctx, searchFetch)
	if err != nil {
		c.logger.Error("error checking collaborator email", "error", err)
		return false
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// ClearCache forgets the cached users.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = nil
	c.fetchedAt = time.Time{}
}

func (c *Client) users(ctx context.Context, n int) ([]models.User, error) {
	c.mu.Lock()
	if len(c.cache) > 0 && c.now().Sub(c.fetchedAt) < c.ttl {
		cached := c.cache
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	users, err := c.fetch(ctx, n)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache = users
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return users, nil
}

func (c *Client) fetch(ctx context.Context, n int) ([]models.User, error) {
	q := url.Values{}
	q.Set("results", strconv.Itoa(n))
	q.Set("nat", nationalities)
	q.Set("inc", "name,email,picture,login")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %s", resp.Status)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode directory response: %w", err)
	}
	if len(body.Results) == 0 {
		return nil, errors.New("directory returned no users")
	}

	users := make([]models.User, 0, len(body.Results))
	for _, r := range body.Results {
		users = append(users, models.User{
			ID:     r.Login.UUID,
			Name:   strings.TrimSpace(r.Name.First + " " + r.Name.Last),
			Email:  r.Email,
			Avatar: r.Picture.Medium,
		})
	}
	return users, nil
}

func head(users []models.User, n int) []models.User {
	if n < 0 {
		n = 0
	}
	return append([]models.User(nil), users[:min(n, len(users))]...)
}
