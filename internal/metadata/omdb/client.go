// Package omdb implements the OMDb API client used for IMDb ID lookups by
// title and year.
package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("OMDb API key is not configured")
	ErrNotFound      = errors.New("not found on OMDb")
	ErrAPIError      = errors.New("OMDb API error")
)

// Client is an OMDb API client.
type Client struct {
	httpClient *http.Client
	config     config.OMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new OMDb client.
func NewClient(cfg config.OMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "omdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "omdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// GetIMDBID looks up the IMDb ID for a title, optionally narrowed by year.
func (c *Client) GetIMDBID(ctx context.Context, title, year string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrAPIKeyMissing
	}
	if title == "" {
		return "", ErrNotFound
	}

	params := url.Values{}
	params.Set("apikey", c.config.APIKey)
	params.Set("t", title)
	params.Set("type", "movie")
	if year != "" {
		params.Set("y", year)
	}

	reqURL := fmt.Sprintf("%s?%s", c.config.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("title", title).Msg("HTTP request failed")
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	var omdbResp Response
	if err := json.NewDecoder(resp.Body).Decode(&omdbResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if omdbResp.Response == "False" {
		if omdbResp.Error == "Movie not found!" {
			return "", ErrNotFound
		}
		c.logger.Warn().Str("error", omdbResp.Error).Str("title", title).Msg("OMDb API returned error")
		return "", fmt.Errorf("%w: %s", ErrAPIError, omdbResp.Error)
	}

	if omdbResp.ImdbID == "" || omdbResp.ImdbID == "N/A" {
		return "", ErrNotFound
	}

	c.logger.Debug().
		Str("title", title).
		Str("year", year).
		Str("imdbId", omdbResp.ImdbID).
		Msg("Resolved IMDb ID from OMDb")

	return omdbResp.ImdbID, nil
}
