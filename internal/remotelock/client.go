package remotelock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// perPage is the page size used for every paginated listing call.
const perPage = 50

// acceptHeader pins the lock platform API version.
const acceptHeader = "application/vnd.lockstate+json; version=1"

// APIError is a non-success response from the lock platform. Callers use
// the status code to decide between retrying and giving up; it is kept
// distinct from the scheduling error types so the two are never confused.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remotelock API error (status %d): %s", e.StatusCode, e.Message)
}

// TokenSource supplies a valid OAuth access token for each call. How the
// token is obtained and refreshed is the implementation's concern.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token. Useful for tests and for
// deployments where an external process keeps the token fresh.
type StaticTokenSource string

func (s StaticTokenSource) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// Config holds the lock platform connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the lock platform's REST API.
type Client struct {
	config     Config
	tokens     TokenSource
	httpClient *http.Client

	// replaced in tests to avoid real sleeps during 429 backoff
	sleep func(time.Duration)
}

// NewClient creates a new lock platform client.
func NewClient(config Config, tokens TokenSource) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		config: config,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		sleep: time.Sleep,
	}
}

// envelope is the API's standard response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta *pageMeta       `json:"meta"`
}

type pageMeta struct {
	TotalPages int `json:"total_pages"`
}

// get performs a GET and decodes the data part of the envelope into out.
// The returned meta is nil when the response carries none.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (*pageMeta, error) {
	return c.do(ctx, "GET", path, query, nil, out)
}

// post performs a POST with a JSON body.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, "POST", path, nil, body, out)
	return err
}

// put performs a PUT with a JSON body.
func (c *Client) put(ctx context.Context, path string, body, out any) error {
	_, err := c.do(ctx, "PUT", path, nil, body, out)
	return err
}

// delete performs a DELETE, backing off and retrying while the platform
// answers 429. The retry sleep starts at 3 seconds and doubles.
func (c *Client) delete(ctx context.Context, path string) error {
	sleepTime := 3 * time.Second
	for {
		_, err := c.do(ctx, "DELETE", path, nil, nil, nil)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			log.Printf("remotelock: rate limited on DELETE %s, sleeping %s", path, sleepTime)
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			c.sleep(sleepTime)
			sleepTime *= 2
			continue
		}
		return err
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (*pageMeta, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching access token: %w", err)
	}

	u := c.config.BaseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if !acceptedStatus(method, resp.StatusCode) {
		msg, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(respBody) == 0 {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decoding response data: %w", err)
		}
	}
	return env.Meta, nil
}

func acceptedStatus(method string, status int) bool {
	switch method {
	case "POST":
		return status == http.StatusOK || status == http.StatusCreated
	case "DELETE":
		return status == http.StatusOK || status == http.StatusNoContent
	default:
		return status == http.StatusOK
	}
}
