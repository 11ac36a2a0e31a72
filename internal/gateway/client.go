// Package gateway talks to the booking backend: one REST resource per
// booking type, every response wrapped in a {success, data, message}
// envelope.
package gateway

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

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
	"github.com/MrSnakeDoc/tripdesk/internal/logger"
	"github.com/MrSnakeDoc/tripdesk/internal/utils"
)

// MaxBodySize caps how much of a backend response is read.
const MaxBodySize = 10 << 20

// Options configures a Client.
type Options struct {
	BaseURL    string        // ex: "https://api.example.com/api"
	Token      string        // optional bearer token
	Timeout    time.Duration // per call, 0 = none
	HTTPClient *http.Client  // optional, overrides Timeout
}

// Client performs per-type calls against the backend.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger logger.Logger
}

// New validates the base URL and builds a client.
func New(opts Options, log logger.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		base:   base,
		token:  opts.Token,
		http:   hc,
		logger: log,
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// envelope is the backend response wrapper. Older endpoints answer with a
// bare array or with the list under "bookings".
type envelope struct {
	Success  *bool           `json:"success"`
	Data     json.RawMessage `json:"data"`
	Bookings json.RawMessage `json:"bookings"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
}

func (e envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

func (e envelope) errorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// List returns every record of one type in backend order.
func (c *Client) List(ctx context.Context, t domain.BookingType) ([]domain.Record, error) {
	op := "list " + t.Resource()
	body, err := c.do(ctx, op, http.MethodGet, c.resourcePath(t), nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return decodeRecords(op, trimmed)
	}

	env, err := decodeEnvelope(op, trimmed)
	if err != nil {
		return nil, err
	}
	switch {
	case len(env.Data) > 0 && !isNull(env.Data):
		return decodeRecords(op, env.Data)
	case len(env.Bookings) > 0 && !isNull(env.Bookings):
		return decodeRecords(op, env.Bookings)
	default:
		return []domain.Record{}, nil
	}
}

// SearchByKey asks the backend for records whose ticket key matches. The
// route is optional per type; callers treat any error as "fall back to List".
func (c *Client) SearchByKey(ctx context.Context, t domain.BookingType, key string) ([]domain.Record, error) {
	op := "search " + t.Resource()
	body, err := c.do(ctx, op, http.MethodGet, c.resourcePath(t, "search", key), nil)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(op, body)
	if err != nil {
		return nil, err
	}
	if env.Success == nil || isNull(env.Data) || len(env.Data) == 0 {
		return []domain.Record{}, nil
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && data[0] == '[' {
		return decodeRecords(op, data)
	}
	rec, err := decodeRecord(op, data)
	if err != nil {
		return nil, err
	}
	return []domain.Record{rec}, nil
}

// Update sends the edited fields for the record stored under id and returns
// the backend's version of it.
func (c *Client) Update(ctx context.Context, t domain.BookingType, id string, fields domain.Record) (domain.Record, error) {
	op := "update " + t.Resource()
	payload, err := json.Marshal(map[string]any(fields))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal update: %w", err)
	}

	body, err := c.do(ctx, op, http.MethodPut, c.resourcePath(t, id), payload)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(op, body)
	if err != nil {
		return nil, err
	}
	if isNull(env.Data) || len(env.Data) == 0 {
		return domain.Record{}, nil
	}
	return decodeRecord(op, env.Data)
}

// Ping issues the harmless read used to decide the connectivity mode.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.List(ctx, domain.Flight)
	return err
}

func (c *Client) resourcePath(t domain.BookingType, segments ...string) *url.URL {
	u := *c.base
	rawPath := strings.TrimRight(u.EscapedPath(), "/") + "/" + t.Resource()
	path := strings.TrimRight(u.Path, "/") + "/" + t.Resource()
	for _, s := range segments {
		rawPath += "/" + url.PathEscape(s)
		path += "/" + s
	}
	u.Path = path
	u.RawPath = rawPath
	return &u
}

// do performs one request and returns the body of a 2xx response whose
// envelope does not report failure. Everything else is a *RemoteError.
func (c *Client) do(ctx context.Context, op, method string, u *url.URL, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend call failed",
			logger.String("op", op),
			logger.Duration("duration", time.Since(start)),
			logger.Error(err))
		return nil, transportError(op, err)
	}
	defer utils.Close(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, transportError(op, err)
	}

	c.logger.Debug("backend call",
		logger.String("op", op),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseErrorResponse(op, resp.StatusCode, body)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.failed() {
			msg := env.errorMessage()
			if msg == "" {
				msg = "request was not successful"
			}
			return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: msg}
		}
	}
	return trimmed, nil
}

func decodeEnvelope(op string, body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, &RemoteError{Op: op, StatusCode: http.StatusOK, Message: "malformed response body", Err: err}
	}
	return env, nil
}

func decodeRecords(op string, raw []byte) ([]domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var list []map[string]any
	if err := dec.Decode(&list); err != nil {
		return nil, &RemoteError{Op: op, StatusCode: http.StatusOK, Message: "malformed booking list", Err: err}
	}
	out := make([]domain.Record, 0, len(list))
	for _, m := range list {
		if m != nil {
			out = append(out, domain.Record(m))
		}
	}
	return out, nil
}

func decodeRecord(op string, raw []byte) (domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, &RemoteError{Op: op, StatusCode: http.StatusOK, Message: "malformed booking", Err: err}
	}
	return domain.Record(m), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
