package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client exposes the PostgREST table operations used by the store.
type Client interface {
	Select(ctx context.Context, table string, query url.Values, out any) error
	Insert(ctx context.Context, table string, rows any, out any) error
	Upsert(ctx context.Context, table string, onConflict string, rows any) error
	Update(ctx context.Context, table string, filter url.Values, patch any) (int, error)
	Delete(ctx context.Context, table string, filter url.Values) (int, error)
}

// Config holds the project endpoint and key.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a PostgREST client for the project at cfg.URL.
func NewClient(cfg Config) *APIClient {
	base := strings.TrimSuffix(cfg.URL, "/")
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(base+"/rest/v1").
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &APIClient{httpClient: restyClient}
}

// apiError represents a PostgREST error payload.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// Error is returned for non-2xx responses.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase api error: status=%d, code=%s, message=%s", e.Status, e.Code, e.Message)
}

// UniqueViolation reports whether the error is a Postgres unique constraint failure.
func (e *Error) UniqueViolation() bool {
	return e.Code == "23505"
}

func (c *APIClient) request(ctx context.Context) (*resty.Request, *apiError) {
	apiErr := new(apiError)
	return c.httpClient.R().SetContext(ctx).SetError(apiErr), apiErr
}

func check(resp *resty.Response, apiErr *apiError) error {
	if resp.StatusCode() < http.StatusBadRequest {
		return nil
	}
	message := apiErr.Message
	if message == "" {
		message = resp.String()
	}
	return &Error{Status: resp.StatusCode(), Code: apiErr.Code, Message: message}
}

// Select reads rows of table matching query into out.
func (c *APIClient) Select(ctx context.Context, table string, query url.Values, out any) error {
	req, apiErr := c.request(ctx)
	if query == nil {
		query = url.Values{}
	}
	if query.Get("select") == "" {
		query.Set("select", "*")
	}

	resp, err := req.SetQueryParamsFromValues(query).SetResult(out).Get(table)
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	return check(resp, apiErr)
}

// Insert creates rows and decodes the stored representation into out when out is non-nil.
func (c *APIClient) Insert(ctx context.Context, table string, rows any, out any) error {
	req, apiErr := c.request(ctx)
	req.SetBody(rows)
	if out != nil {
		req.SetHeader("Prefer", "return=representation").SetResult(out)
	} else {
		req.SetHeader("Prefer", "return=minimal")
	}

	resp, err := req.Post(table)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return check(resp, apiErr)
}

// Upsert inserts rows, merging on the onConflict column when it already exists.
func (c *APIClient) Upsert(ctx context.Context, table string, onConflict string, rows any) error {
	req, apiErr := c.request(ctx)

	resp, err := req.
		SetQueryParam("on_conflict", onConflict).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetBody(rows).
		Post(table)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return check(resp, apiErr)
}

// Update patches rows matching filter and returns how many were changed.
func (c *APIClient) Update(ctx context.Context, table string, filter url.Values, patch any) (int, error) {
	req, apiErr := c.request(ctx)
	var affected []map[string]any

	resp, err := req.
		SetQueryParamsFromValues(filter).
		SetQueryParam("select", "id").
		SetHeader("Prefer", "return=representation").
		SetBody(patch).
		SetResult(&affected).
		Patch(table)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	if err := check(resp, apiErr); err != nil {
		return 0, err
	}
	return len(affected), nil
}

// Delete removes rows matching filter and returns how many were removed.
func (c *APIClient) Delete(ctx context.Context, table string, filter url.Values) (int, error) {
	req, apiErr := c.request(ctx)
	var affected []map[string]any

	resp, err := req.
		SetQueryParamsFromValues(filter).
		SetQueryParam("select", "id").
		SetHeader("Prefer", "return=representation").
		SetResult(&affected).
		Delete(table)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	if err := check(resp, apiErr); err != nil {
		return 0, err
	}
	return len(affected), nil
}

// Eq builds a PostgREST equality filter.
func Eq(column string, value any) url.Values {
	return url.Values{column: []string{fmt.Sprintf("eq.%v", value)}}
}
