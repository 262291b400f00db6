/**
 * @description
 * Client for the AllRails REST API. Owner calls carry a bearer token per call;
 * HTTP failures are translated into the domain error kinds so callers never
 * inspect status codes. Nothing is retried.
 */
package pageclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DanstheMan1981/allrails/internal/domain"
)

// PaymentType is one entry of the server's type registry listing.
type PaymentType struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Placeholder string `json:"placeholder"`
	Guidance    string `json:"guidance"`
}

// Client is a client for the AllRails API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client. baseURL is the server root, without /api.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// ShareLink returns the public page URL for username.
func ShareLink(publicBaseURL, username string) string {
	return strings.TrimSuffix(publicBaseURL, "/") + "/p/" + url.PathEscape(username)
}

func (c *Client) PaymentTypes(ctx context.Context) ([]PaymentType, error) {
	var types []PaymentType
	if err := c.do(ctx, http.MethodGet, "/api/payment-types", "", nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// GetProfile returns the caller's profile, or nil when none has been saved.
func (c *Client) GetProfile(ctx context.Context, token string) (*domain.Profile, error) {
	var profile domain.Profile
	if err := c.doOwner(ctx, http.MethodGet, "/api/profile", token, nil, &profile); err != nil {
		return nil, err
	}
	if profile.ID == "" && profile.Username == "" {
		return nil, nil
	}
	return &profile, nil
}

func (c *Client) UpsertProfile(ctx context.Context, token string, input domain.UpsertProfileInput) (*domain.Profile, error) {
	var profile domain.Profile
	if err := c.doOwner(ctx, http.MethodPut, "/api/profile", token, input, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) ListPaymentMethods(ctx context.Context, token string) ([]domain.PaymentMethod, error) {
	methods := make([]domain.PaymentMethod, 0)
	if err := c.doOwner(ctx, http.MethodGet, "/api/payment-methods", token, nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

func (c *Client) CreatePaymentMethod(ctx context.Context, token string, input domain.CreatePaymentMethodInput) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	if err := c.doOwner(ctx, http.MethodPost, "/api/payment-methods", token, input, &method); err != nil {
		return nil, err
	}
	return &method, nil
}

func (c *Client) UpdatePaymentMethod(ctx context.Context, token, id string, patch domain.PaymentMethodPatch) (*domain.PaymentMethod, error) {
	var method domain.PaymentMethod
	if err := c.doOwner(ctx, http.MethodPut, "/api/payment-methods/"+url.PathEscape(id), token, patch, &method); err != nil {
		return nil, err
	}
	return &method, nil
}

func (c *Client) DeletePaymentMethod(ctx context.Context, token, id string) error {
	return c.doOwner(ctx, http.MethodDelete, "/api/payment-methods/"+url.PathEscape(id), token, nil, nil)
}

func (c *Client) ReorderPaymentMethods(ctx context.Context, token string, order []domain.OrderEntry) ([]domain.PaymentMethod, error) {
	methods := make([]domain.PaymentMethod, 0)
	body := domain.ReorderRequest{Order: order}
	if err := c.doOwner(ctx, http.MethodPatch, "/api/payment-methods/reorder", token, body, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// GetPublicPage fetches the visitor view of username. No credentials are sent.
func (c *Client) GetPublicPage(ctx context.Context, username string) (*domain.PublicPage, error) {
	var page domain.PublicPage
	if err := c.do(ctx, http.MethodGet, "/api/p/"+url.PathEscape(username), "", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) doOwner(ctx context.Context, method, path, token string, body, out any) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrUnauthorized
	}
	return c.do(ctx, method, path, token, body, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	if c.baseURL == "" {
		return &domain.TransportError{Message: "API base URL is not configured"}
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.TransportError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}

// statusError maps an error response onto the domain error kinds.
func statusError(status int, raw []byte) error {
	var body struct {
		Message string `json:"message"`
	}
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		message = body.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrUsernameTaken
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &domain.ValidationError{Msg: message}
	default:
		return &domain.TransportError{StatusCode: status, Message: message}
	}
}
