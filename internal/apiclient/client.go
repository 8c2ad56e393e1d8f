// Package apiclient provides typed access to the store API being seeded.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storeseed/internal/models"
	"storeseed/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Resource paths under the base URL.
const (
	ResourceUsers      = "users"
	ResourceCategories = "categories"
	ResourceProducts   = "products"
	resourceLogin      = "auth/login"
)

// ErrMissingID is returned when a creation succeeded but the response has no id.
var ErrMissingID = errors.New("response has no id")

// Client sends creation requests to the store API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:8080/api"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a response whose status is not 200 or 201.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Body)
}

// StatusCode returns the HTTP status of the failed response.
func (e *APIError) StatusCode() int { return e.Status }

// ResponseBody returns the raw body of the failed response.
func (e *APIError) ResponseBody() string { return e.Body }

// Login exchanges credentials for a bearer token and stores it on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp models.LoginResponse
	if err := c.post(ctx, resourceLogin, models.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if strings.TrimSpace(resp.Token) == "" {
		return errors.New("login: response has no token")
	}
	c.token = strings.TrimSpace(resp.Token)
	return nil
}

// CreateUser sends POST /users and returns the assigned id.
func (c *Client) CreateUser(ctx context.Context, u models.User) (models.ID, error) {
	return c.create(ctx, ResourceUsers, u)
}

// CreateCategory sends POST /categories and returns the assigned id.
func (c *Client) CreateCategory(ctx context.Context, cat models.Category) (models.ID, error) {
	return c.create(ctx, ResourceCategories, cat)
}

// CreateProduct sends POST /products and returns the assigned id.
func (c *Client) CreateProduct(ctx context.Context, p models.Product) (models.ID, error) {
	return c.create(ctx, ResourceProducts, p)
}

func (c *Client) create(ctx context.Context, resource string, body any) (id models.ID, err error) {
	start := time.Now()
	defer func() { observability.ObserveRequest(resource, err, start) }()

	var created models.Created
	if err = c.post(ctx, resource, body, &created); err != nil {
		return models.ID{}, err
	}
	if created.ID.IsZero() {
		err = ErrMissingID
		return models.ID{}, err
	}
	return created.ID, nil
}

func (c *Client) post(ctx context.Context, resource string, body, v any) (err error) {
	endpoint := c.baseURL + "/" + resource

	span, ctx := observability.StartAPICall(ctx, http.MethodPost, resource, endpoint)
	defer func() {
		span.SetError(err)
		span.End()
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	span.AddAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
