// Package client calls a running legal-agent server over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stake-plus/legal-agent/src/agents/core"
	"github.com/stake-plus/legal-agent/src/webclient"
)

const documentMarker = "[Extracted PDF Text]"

type Client struct {
	baseURL string
	client  *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client = webclient.NewDefault(d) }
}

// New targets the server at baseURL. Queries wait on the remote agent, so the
// default timeout is generous.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  webclient.NewDefault(5 * time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Error is a non-200 answer from the server.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("legal-agent: status %d", e.Status)
	}
	return fmt.Sprintf("legal-agent: status %d: %s", e.Status, e.Detail)
}

type queryRequest struct {
	Query             string        `json:"query"`
	AdditionalDetails *core.Details `json:"additional_details,omitempty"`
}

type queryResponse struct {
	Response string `json:"response"`
}

// Query posts to /query and returns the agent's reply text. details may be nil.
func (c *Client) Query(ctx context.Context, query string, details *Details) (string, error) {
	payload := queryRequest{Query: query}
	if details != nil {
		if details.err != nil {
			return "", details.err
		}
		if len(details.list) > 0 {
			payload.AdditionalDetails = &details.list
		}
	}

	var out queryResponse
	err := webclient.DoJSON(ctx, c.client, webclient.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/query",
		Header: map[string]string{"X-Request-ID": uuid.NewString()},
		Body:   payload,
	}, &out)
	if err != nil {
		if apiErr, ok := webclient.AsAPIError(err); ok {
			return "", &Error{Status: apiErr.Status, Detail: detailOf(apiErr.Body)}
		}
		return "", err
	}
	return out.Response, nil
}

func detailOf(body string) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil || len(parsed.Detail) == 0 {
		return strings.TrimSpace(body)
	}
	var s string
	if err := json.Unmarshal(parsed.Detail, &s); err == nil {
		return s
	}
	return string(parsed.Detail)
}

// WithDocumentText appends extracted document text to a query the way the
// Teams bot does for PDF attachments. Blank text leaves the query unchanged.
func WithDocumentText(query, text string) string {
	if strings.TrimSpace(text) == "" {
		return query
	}
	return query + "\n\n" + documentMarker + "\n" + text
}
