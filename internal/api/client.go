package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthHeader is the custom header carrying the bearer token. The name is
// part of the wire contract with the attendance backend.
const AuthHeader = "auth-token"

// TokenSource supplies the current auth token. An empty string means no
// token is held; the request is sent unauthenticated and the server decides.
type TokenSource interface {
	Token() string
}

// Client is the base HTTP client for the attendance backend. All flows go
// through it so that headers, request IDs, and error decoding stay uniform.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     zerolog.Logger
}

// New creates a client for the given base URL. tokens may be nil for a
// client that only calls unauthenticated endpoints.
func New(baseURL string, timeout time.Duration, tokens TokenSource, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends a JSON POST and decodes a 2xx body into out (out may be nil to
// ignore the body). authed controls whether the auth-token header is sent.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}, authed bool) error {
	return c.do(ctx, http.MethodPost, path, body, out, authed)
}

// Get sends a GET and decodes a 2xx body into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}, authed bool) error {
	return c.do(ctx, http.MethodGet, path, nil, out, authed)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	reqID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if authed && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set(AuthHeader, token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("Transport failure")
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    decodeMessage(resp),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Err: err}
	}
	return nil
}

// decodeMessage extracts the {message} error body. Falls back to the HTTP
// status text when the body is empty or not the expected shape.
func decodeMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(resp.Body)

	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return http.StatusText(resp.StatusCode)
}
