// Package client talks to the arcade HTTP API.
package client

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

	"arcade/internal/analytics"
	"arcade/internal/games"
	"arcade/internal/recorder"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("arcade api: status %d", e.Status)
	}
	return fmt.Sprintf("arcade api: status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// RecordResult is the body of a successful run submission.
type RecordResult struct {
	OK              bool `json:"ok"`
	NormalizedScore int  `json:"normalizedScore"`
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return nil, fmt.Errorf("arcade api: base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("arcade api: parsing base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) RecordRun(ctx context.Context, req recorder.Request) (*RecordResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("arcade api: encoding run: %w", err)
	}
	var out RecordResult
	if err := c.do(ctx, http.MethodPost, "/runs", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard fetches the ranked list. An empty difficulty means all.
func (c *Client) Leaderboard(ctx context.Context, difficulty games.Difficulty) ([]analytics.LeaderboardEntry, error) {
	path := "/leaderboard"
	if difficulty != "" {
		path += "?difficulty=" + url.QueryEscape(string(difficulty))
	}
	var out struct {
		Entries []analytics.LeaderboardEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) GameStats(ctx context.Context, gameID string, difficulty games.Difficulty) (*analytics.GameStats, error) {
	path := "/game-stats/" + url.PathEscape(gameID)
	if difficulty != "" {
		path += "?difficulty=" + url.QueryEscape(string(difficulty))
	}
	var out analytics.GameStats
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context, playerID string) (*analytics.Profile, error) {
	var out analytics.Profile
	if err := c.do(ctx, http.MethodGet, "/profile/"+url.PathEscape(playerID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("arcade api: request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("arcade api: call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("arcade api: decode: %w", err)
	}
	return nil
}
