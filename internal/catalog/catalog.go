// Package catalog resolves song identifiers to playable metadata using the
// external song catalog.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sharetube/syncroom/internal/domain"
)

var (
	ErrSongNotFound = domain.ErrSongNotFound
	ErrUnavailable  = errors.New("catalog unavailable")
)

type songResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"duration_ms"`
}

// Client talks to the catalog service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) ResolveSong(ctx context.Context, songID string) (domain.Song, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/songs/"+url.PathEscape(songID), nil)
	if err != nil {
		return domain.Song{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Song{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Song{}, ErrSongNotFound
	case resp.StatusCode != http.StatusOK:
		return domain.Song{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body songResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Song{}, fmt.Errorf("%w: failed to decode song: %w", ErrUnavailable, err)
	}
	if body.DurationMs <= 0 {
		return domain.Song{}, fmt.Errorf("%w: song %q has no duration", ErrUnavailable, songID)
	}

	return domain.Song{
		ID:       songID,
		Title:    body.Title,
		Artist:   body.Artist,
		Duration: time.Duration(body.DurationMs) * time.Millisecond,
	}, nil
}
