// Package backend is the HTTP client for the question-answering service.
// It only speaks the request/response contract; retries, TLS and the like are
// left to the underlying http.Client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

const DefaultBaseURL = "http://localhost:8000"

// maxBodyBytes bounds how much of a response we are willing to decode.
const maxBodyBytes = 8 << 20

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidResponse = errors.New("invalid response")
)

// StatusError is returned for non-2xx responses. Detail is the `detail` field
// of the error body when present.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type QueryRequest struct {
	Question       string  `json:"question"`
	NumResults     int     `json:"num_results"`
	ConversationID *string `json:"conversation_id,omitempty"`
}

type QueryResponse struct {
	ConversationID    string                          `json:"conversation_id"`
	Answer            string                          `json:"answer"`
	References        []conversation.Reference        `json:"references"`
	FollowUpQuestions []conversation.FollowUpQuestion `json:"follow_up_questions"`
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse backend url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("backend url must be http(s), got %q", baseURL)
	}
	c := &Client{baseURL: u, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL.String() }

// Query posts one question. The response must name the conversation it was
// recorded in.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	resp := &QueryResponse{}
	if err := c.do(ctx, http.MethodPost, "/query", req, resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.ConversationID) == "" {
		return nil, errors.Wrap(ErrInvalidResponse, "query response has no conversation_id")
	}
	return resp, nil
}

func (c *Client) ListConversations(ctx context.Context) ([]conversation.Summary, error) {
	var out []conversation.Summary
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &out); err != nil {
		return nil, err
	}
	for i, s := range out {
		if s.ConversationID == "" {
			return nil, errors.Wrapf(ErrInvalidResponse, "summary %d has no conversation_id", i)
		}
	}
	return out, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("empty conversation id")
	}
	out := &conversation.Conversation{}
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil, out); err != nil {
		return nil, err
	}
	if out.ConversationID != id {
		return nil, errors.Wrapf(ErrInvalidResponse, "asked for conversation %s, got %q", id, out.ConversationID)
	}
	if err := out.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidResponse, err.Error())
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, rd)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger := log.With().Str("component", "backend").Str("method", method).Str("path", path).Str("request_id", requestID).Logger()
	logger.Debug().Msg("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrapf(err, "%s %s: read body", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var detail struct {
			Detail any `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil && detail.Detail != nil {
			se.Detail = fmt.Sprint(detail.Detail)
		}
		logger.Warn().Int("status", resp.StatusCode).Str("detail", se.Detail).Msg("backend returned error status")
		return se
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(ErrInvalidResponse, "%s %s: decode body: %v", method, path, err)
	}
	return nil
}
