package httpapi

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

	"github.com/mercatale/story-engine/pkg/config"
	apperrors "github.com/mercatale/story-engine/pkg/errors"
	"github.com/mercatale/story-engine/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Logger logger.Logger
	Config *config.Config
}

// Client is the authenticated HTTP client every repository shares. It owns the
// base URL, auth header and request timeout; repositories own paths and codecs.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

func New(opts Opts) (*Client, error) {
	base := strings.TrimRight(opts.Config.Backend.BaseURL, "/")
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid backend base url %q: %w", base, err)
	}

	client := NewClient(base, opts.Config.Backend.AuthToken, opts.Config.Backend.Timeout)

	opts.LC.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				opts.Logger.Info("Story backend client ready", "base_url", base)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				client.http.CloseIdleConnections()
				return nil
			},
		},
	)

	return client, nil
}

// NewClient builds a client outside the fx graph, mainly for tests.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// NewRequest builds an authenticated request against the backend. body may be
// nil; a JSON body is marshalled and typed for the caller.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)
	return req, nil
}

// NewUpload builds an authenticated request with a caller-provided body and
// content type, used for multipart uploads.
func (c *Client) NewUpload(ctx context.Context, path, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)
	return req, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// DoJSON executes the request, decodes a 2xx JSON body into out (when out is
// non-nil) and returns the status code for error mapping by the caller.
func (c *Client) DoJSON(req *http.Request, out any) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, apperrors.Wrap(apperrors.ErrUnauthorized, "backend rejected credentials")
	case resp.StatusCode == http.StatusForbidden:
		return resp.StatusCode, apperrors.Wrap(apperrors.ErrForbidden, "backend denied access")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// Drain a bounded slice of the body so the error is actionable in logs.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response body: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
