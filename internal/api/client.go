// Package api is the client for the NanaCaring backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nanacaring/cmsportal/internal/cache"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsStatus reports whether err is an *Error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// Cache holds GET responses. Nil disables caching.
	Cache      *cache.Cache
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the backend API. It is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:   base,
		http:   hc,
		cache:  opts.Cache,
		logger: logger,
	}, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProducts(ctx context.Context, token string) ([]Product, error) {
	var out []Product
	if err := c.get(ctx, "/products", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, token string, p Product) (*Product, error) {
	var out Product
	if err := c.mutate(ctx, http.MethodPost, "/products", "/products", token, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, token string, p Product) (*Product, error) {
	var out Product
	if err := c.mutate(ctx, http.MethodPut, idPath("/products", p.ID), "/products", token, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, token string, id int64) error {
	return c.mutate(ctx, http.MethodDelete, idPath("/products", id), "/products", token, nil, nil)
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var out []User
	if err := c.get(ctx, "/users", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewUser is the payload of CreateUser.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

func (c *Client) CreateUser(ctx context.Context, token string, u NewUser) (*User, error) {
	var out User
	if err := c.mutate(ctx, http.MethodPost, "/users", "/users", token, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, token string, u User) (*User, error) {
	var out User
	if err := c.mutate(ctx, http.MethodPut, idPath("/users", u.ID), "/users", token, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, token string, id int64) error {
	return c.mutate(ctx, http.MethodDelete, idPath("/users", id), "/users", token, nil, nil)
}

func (c *Client) ListAccounts(ctx context.Context, token string) ([]Account, error) {
	var out []Account
	if err := c.get(ctx, "/accounts", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAccount(ctx context.Context, token string, a Account) (*Account, error) {
	var out Account
	if err := c.mutate(ctx, http.MethodPost, "/accounts", "/accounts", token, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAccountStatus(ctx context.Context, token string, id int64, status AccountStatus) (*Account, error) {
	var out Account
	body := map[string]AccountStatus{"status": status}
	if err := c.mutate(ctx, http.MethodPatch, idPath("/accounts", id)+"/status", "/accounts", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTransactions(ctx context.Context, token string, q TransactionQuery) ([]Transaction, error) {
	v := url.Values{}
	if q.AccountID != 0 {
		v.Set("account_id", strconv.FormatInt(q.AccountID, 10))
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	path := "/transactions"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out []Transaction
	if err := c.get(ctx, path, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func idPath(collection string, id int64) string {
	return collection + "/" + strconv.FormatInt(id, 10)
}

// get performs a cached GET. Entries are keyed by path and token so that
// one user's list is never served to another.
func (c *Client) get(ctx context.Context, path, token string, out any) error {
	key := path + "|" + token
	if c.cache != nil {
		if raw, ok := cache.NewTyped[[]byte](c.cache).Get(key); ok {
			return json.Unmarshal(raw, out)
		}
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.Put(key, []byte(raw))
	}
	return json.Unmarshal(raw, out)
}

// mutate performs a write and drops cached reads under invalidate.
func (c *Client) mutate(ctx context.Context, method, path, invalidate, token string, in, out any) error {
	err := c.do(ctx, method, path, token, in, out)
	if c.cache != nil {
		c.cache.DeletePrefix(invalidate)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts a human readable message from an error body: the
// "message" or "error" field of a JSON object, a JSON string, or the body
// text itself.
func errorMessage(status int, data []byte) string {
	data = bytes.TrimSpace(data)

	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
	}

	var s string
	if json.Unmarshal(data, &s) == nil && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}

	if text := string(data); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(status)
}
