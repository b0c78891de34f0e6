// Package client is a Go client for the booking API. Authentication state lives in an
// explicit Session value passed to each call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
)

// Session is an authenticated API identity.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// IsAdmin reports whether the session belongs to an admin.
func (s *Session) IsAdmin() bool {
	return s != nil && s.User.IsAdmin()
}

// APIError is a non-2xx API response.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return fmt.Sprintf("api: %d %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// IsConflict reports whether the request hit an accepted slot.
func (e *APIError) IsConflict() bool { return e.Status == http.StatusConflict }

// Client talks to one API base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL (e.g. http://localhost:8080).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ListQuery selects a page of the attraction catalog.
type ListQuery struct {
	Province string
	Category string
	Search   string
	Page     int
	PerPage  int
}

// Next returns the query for the following page, or false if p is the last one.
func (q ListQuery) Next(p model.Page[model.Attraction]) (ListQuery, bool) {
	if p.CurrentPage >= p.LastPage {
		return q, false
	}
	q.Page = p.CurrentPage + 1
	return q, true
}

// Prev returns the query for the previous page, or false on the first page.
func (q ListQuery) Prev() (ListQuery, bool) {
	if q.Page <= 1 {
		return q, false
	}
	q.Page--
	return q, true
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("province", q.Province)
	set("category", q.Category)
	set("search", q.Search)
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return v
}

// Register signs up a new user.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"name": name, "email": email, "password": password, "password_confirmation": password}
	if err := c.do(ctx, nil, http.MethodPost, "/auth/register", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	if err := c.do(ctx, nil, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Logout revokes the session token.
func (c *Client) Logout(ctx context.Context, s *Session) error {
	return c.do(ctx, s, http.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the session's user as the API sees it.
func (c *Client) Me(ctx context.Context, s *Session) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, s, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListAttractions fetches one page of the catalog. s may be nil.
func (c *Client) ListAttractions(ctx context.Context, s *Session, q ListQuery) (model.Page[model.Attraction], error) {
	var p model.Page[model.Attraction]
	path := "/attractions"
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	err := c.do(ctx, s, http.MethodGet, path, nil, &p)
	return p, err
}

// GetAttraction fetches one attraction. s may be nil.
func (c *Client) GetAttraction(ctx context.Context, s *Session, id int64) (*model.Attraction, error) {
	var a model.Attraction
	if err := c.do(ctx, s, http.MethodGet, fmt.Sprintf("/attractions/%d", id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListReservations returns the reservations visible to the session.
func (c *Client) ListReservations(ctx context.Context, s *Session) ([]model.Reservation, error) {
	var out struct {
		Data []model.Reservation `json:"data"`
	}
	if err := c.do(ctx, s, http.MethodGet, "/reservations", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateReservation books a slot. date is YYYY-MM-DD, tm is HH:MM.
func (c *Client) CreateReservation(ctx context.Context, s *Session, attractionID int64, date, tm, comment string) (*model.Reservation, error) {
	body := map[string]any{"attraction_id": attractionID, "date": date, "time": tm}
	if comment != "" {
		body["comment"] = comment
	}
	var r model.Reservation
	if err := c.do(ctx, s, http.MethodPost, "/reservations", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SetStatus moderates a reservation. Admin sessions only.
func (c *Client) SetStatus(ctx context.Context, s *Session, id int64, status model.Status) (*model.Reservation, error) {
	var r model.Reservation
	if err := c.do(ctx, s, http.MethodPut, fmt.Sprintf("/reservations/%d/status", id), map[string]string{"status": string(status)}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteReservation removes a reservation.
func (c *Client) DeleteReservation(ctx context.Context, s *Session, id int64) error {
	return c.do(ctx, s, http.MethodDelete, fmt.Sprintf("/reservations/%d", id), nil, nil)
}

func (c *Client) do(ctx context.Context, s *Session, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s != nil && s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string            `json:"message"`
			Errors  map[string]string `json:"errors"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message, apiErr.Fields = payload.Message, payload.Errors
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
