// Package restapi implements the store primitives against a PostgREST
// endpoint such as the one fronting a Supabase project.
package restapi

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

	"github.com/nexsite/internal/db"
)

const (
	contentTable = "website_info"
	leadTable    = "consultations"
	restPrefix   = "/rest/v1/"
)

var (
	// ErrNotFound is returned when a filtered write matched no rows.
	ErrNotFound = errors.New("record not found")
	// ErrMissingAPIKey is returned when the client is built without a key.
	ErrMissingAPIKey = errors.New("api key is required")
)

// APIError carries a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rest api returned status %d", e.Status)
	}
	return fmt.Sprintf("rest api returned status %d: %s", e.Status, e.Message)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the PostgREST tables used by the site.
type Client struct {
	baseURL string
	apiKey  string
	http    Doer
	now     func() time.Time
}

// New builds a client for baseURL authenticated with apiKey.
func New(baseURL, apiKey string, client Doer) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: trimmed, apiKey: key, http: client, now: time.Now}, nil
}

type contentPayload struct {
	Section      string      `json:"section"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	Metadata     db.Metadata `json:"metadata"`
	ImageURL     string      `json:"image_url"`
	DisplayOrder int         `json:"display_order"`
	IsActive     bool        `json:"is_active"`
}

type leadPayload struct {
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone"`
	BusinessName string        `json:"business_name"`
	Website      string        `json:"website"`
	Industry     string        `json:"industry"`
	Message      string        `json:"message"`
	Status       db.LeadStatus `json:"status"`
}

// ListContent returns items matching filter ordered by display order, then creation time.
func (c *Client) ListContent(ctx context.Context, filter db.ContentFilter) ([]db.ContentItem, error) {
	query := url.Values{}
	query.Set("select", "*")
	if filter.Section != "" {
		query.Set("section", "eq."+filter.Section)
	}
	if filter.ActiveOnly {
		query.Set("is_active", "eq.true")
	}
	query.Set("order", "display_order.asc,created_at.asc")

	var items []db.ContentItem
	if err := c.do(ctx, http.MethodGet, contentTable, query, nil, &items); err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return items, nil
}

// CreateContent inserts an item and returns the stored representation.
func (c *Client) CreateContent(ctx context.Context, input db.ContentInput) (*db.ContentItem, error) {
	item := input.Item()
	payload := contentPayload{
		Section:      item.Section,
		Title:        item.Title,
		Content:      item.Content,
		Metadata:     item.Metadata,
		ImageURL:     item.ImageURL,
		DisplayOrder: item.DisplayOrder,
		IsActive:     item.IsActive,
	}

	var created []db.ContentItem
	if err := c.do(ctx, http.MethodPost, contentTable, nil, payload, &created); err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create content: empty representation")
	}
	return &created[0], nil
}

// UpdateContent patches the set fields of an item.
func (c *Client) UpdateContent(ctx context.Context, id string, patch db.ContentPatch) (*db.ContentItem, error) {
	cols := patch.Columns()
	cols["updated_at"] = c.now().UTC()

	var updated []db.ContentItem
	if err := c.do(ctx, http.MethodPatch, contentTable, idFilter(id), cols, &updated); err != nil {
		return nil, fmt.Errorf("update content %s: %w", id, err)
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("update content %s: %w", id, ErrNotFound)
	}
	return &updated[0], nil
}

// DeleteContent removes an item.
func (c *Client) DeleteContent(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, contentTable, idFilter(id), nil, nil); err != nil {
		return fmt.Errorf("delete content %s: %w", id, err)
	}
	return nil
}

// CreateLead inserts a consultation request with status new.
func (c *Client) CreateLead(ctx context.Context, lead db.LeadRequest) (*db.LeadRequest, error) {
	payload := leadPayload{
		Name:         lead.Name,
		Email:        lead.Email,
		Phone:        lead.Phone,
		BusinessName: lead.BusinessName,
		Website:      lead.Website,
		Industry:     lead.Industry,
		Message:      lead.Message,
		Status:       db.LeadStatusNew,
	}

	var created []db.LeadRequest
	if err := c.do(ctx, http.MethodPost, leadTable, nil, payload, &created); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create lead: empty representation")
	}
	return &created[0], nil
}

// ListLeads returns every request, newest first.
func (c *Client) ListLeads(ctx context.Context) ([]db.LeadRequest, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "created_at.desc")

	var leads []db.LeadRequest
	if err := c.do(ctx, http.MethodGet, leadTable, query, nil, &leads); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

// UpdateLeadStatus changes the status of one request.
func (c *Client) UpdateLeadStatus(ctx context.Context, id string, status db.LeadStatus) error {
	var updated []db.LeadRequest
	body := map[string]any{"status": status}
	if err := c.do(ctx, http.MethodPatch, leadTable, idFilter(id), body, &updated); err != nil {
		return fmt.Errorf("update lead %s: %w", id, err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("update lead %s: %w", id, ErrNotFound)
	}
	return nil
}

// Ping issues a minimal read against the content table.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("select", "id")
	query.Set("limit", "1")
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodGet, contentTable, query, nil, &rows); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client owns no per-store resources.
func (c *Client) Close() error {
	return nil
}

func idFilter(id string) url.Values {
	query := url.Values{}
	query.Set("id", "eq."+id)
	return query
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body, out any) error {
	endpoint := c.baseURL + restPrefix + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
