package backend

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

	"github.com/suPer8Hu/assessment-client/internal/common"
	"github.com/suPer8Hu/assessment-client/internal/logger"
)

// Client talks JSON to the assessment backend. Paths are relative to BaseURL.
type Client struct {
	BaseURL string
	Tokens  TokenSource
	Timeout time.Duration
	Client  *http.Client

	log *logger.Logger
}

func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Tokens:  tokens,
		Timeout: timeout,
		Client:  &http.Client{},
		log:     log.With("service", "BackendClient"),
	}
}

// Do performs one request and decodes the JSON object in the response.
// Non-object bodies are wrapped under "data"; empty bodies decode to an empty map.
// A 401 triggers one token refresh and one replay of the request.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	if c.Client == nil {
		return nil, errors.New("backend: http client is nil")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = b
	}

	token := ""
	if c.Tokens != nil {
		t, err := c.Tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("backend: token: %w", err)
		}
		token = t
	}

	resp, err := c.send(ctx, method, path, query, payload, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.Tokens != nil {
		resp.Body.Close()
		fresh, rerr := c.Tokens.Refresh(ctx)
		if rerr != nil {
			c.log.Warn("token refresh failed", "path", path, "error", rerr)
			return nil, &StatusError{Method: method, Path: path, Status: http.StatusUnauthorized, Message: "authentication required"}
		}
		resp, err = c.send(ctx, method, path, query, payload, fresh)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Message: detailFromBody(b)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	if obj, ok := decoded.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"data": decoded}, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, token string) (*http.Response, error) {
	u := fmt.Sprintf("%s/%s", c.BaseURL, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := common.NewRequestID()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		c.log.Debug("backend call failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return nil, err
	}
	c.log.Debug("backend call", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "cost", time.Since(start))
	return resp, nil
}
