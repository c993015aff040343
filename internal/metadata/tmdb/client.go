// Package tmdb implements the TMDB API client used for movie listings,
// details, credits, reviews, and person profile images.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrMovieNotFound = errors.New("movie not found")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// TopRated fetches one page of the top-rated movie listing.
func (c *Client) TopRated(ctx context.Context, page int) (*TopRatedPage, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/top_rated", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("language", "en-US")
	params.Set("page", strconv.Itoa(page))

	var response TopRatedResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	result := &TopRatedPage{
		Page:       response.Page,
		TotalPages: response.TotalPages,
		Movies:     make([]ListedMovie, 0, len(response.Results)),
	}
	for _, m := range response.Results {
		// Entries without a title, ID, or release year cannot be keyed.
		if m.Title == "" || m.ID == 0 || len(m.ReleaseDate) < 4 {
			continue
		}
		result.Movies = append(result.Movies, ListedMovie{
			ID:    m.ID,
			Title: m.Title,
			Year:  m.ReleaseDate[:4],
		})
	}

	c.logger.Debug().
		Int("page", page).
		Int("movies", len(result.Movies)).
		Int("totalPages", result.TotalPages).
		Msg("Fetched top rated page")

	return result, nil
}

// SearchMovieID searches for a movie by title (and optional year) and
// returns the TMDB ID of the first result.
func (c *Client) SearchMovieID(ctx context.Context, title, year string) (int, error) {
	if !c.IsConfigured() {
		return 0, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/search/movie", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("query", title)
	params.Set("include_adult", "false")
	if year != "" {
		params.Set("year", year)
	}

	var response SearchMoviesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return 0, err
	}

	if len(response.Results) == 0 {
		return 0, ErrMovieNotFound
	}

	c.logger.Debug().
		Str("query", title).
		Str("year", year).
		Int("id", response.Results[0].ID).
		Msg("Movie search resolved")

	return response.Results[0].ID, nil
}

// GetIMDBID fetches the IMDb ID for a movie by TMDB ID.
func (c *Client) GetIMDBID(ctx context.Context, id int) (string, error) {
	if !c.IsConfigured() {
		return "", ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("append_to_response", "external_ids")

	var details MovieDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		return "", err
	}

	imdbID := details.ImdbID
	if imdbID == "" {
		imdbID = details.ExternalIDs.ImdbID
	}
	if imdbID == "" {
		return "", ErrMovieNotFound
	}

	c.logger.Debug().
		Int("id", id).
		Str("imdbId", imdbID).
		Msg("Got IMDb ID from movie details")

	return imdbID, nil
}

// GetCast fetches the cast list for a movie, ordered by billing and capped
// at limit. Entries without a usable character name, actor name, or person
// ID are dropped.
func (c *Client) GetCast(ctx context.Context, id, limit int) ([]catalog.RawCharacter, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%d/credits", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("language", "en-US")

	var response CreditsResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	sort.Slice(response.Cast, func(i, j int) bool {
		return response.Cast[i].Order < response.Cast[j].Order
	})

	cast := make([]catalog.RawCharacter, 0, limit)
	for _, member := range response.Cast {
		if len(cast) >= limit {
			break
		}
		if len(member.Character) < 2 || len(member.Character) > 70 ||
			member.Name == "" || member.ID == 0 {
			continue
		}
		cast = append(cast, catalog.RawCharacter{
			Name:      member.Character,
			ActorName: member.Name,
			PersonID:  member.ID,
		})
	}

	c.logger.Debug().
		Int("id", id).
		Int("cast", len(cast)).
		Msg("Fetched movie credits")

	return cast, nil
}

// GetReviews fetches up to maxCount user review snippets for a movie, each
// truncated to maxLength characters.
func (c *Client) GetReviews(ctx context.Context, id, maxCount, maxLength int) ([]string, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%d/reviews", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("language", "en-US")
	params.Set("page", "1")

	var response ReviewsResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	snippets := make([]string, 0, maxCount)
	for _, review := range response.Results {
		if len(snippets) >= maxCount {
			break
		}
		if review.Content == "" {
			continue
		}
		author := review.Author
		if author == "" {
			author = "Unknown Author"
		}
		content := review.Content
		if maxLength > 0 && len(content) > maxLength {
			content = content[:maxLength] + "..."
		}
		snippets = append(snippets, fmt.Sprintf("Review by %s:\n%s\n---", author, content))
	}

	c.logger.Debug().
		Int("id", id).
		Int("reviews", len(snippets)).
		Msg("Fetched movie reviews")

	return snippets, nil
}

// GetPersonProfilePath fetches the file path of the first profile image for
// a person. An empty path with nil error means no image exists.
func (c *Client) GetPersonProfilePath(ctx context.Context, personID int) (string, error) {
	if !c.IsConfigured() {
		return "", ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/person/%d/images", c.config.BaseURL, personID)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var response PersonImagesResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return "", err
	}

	if len(response.Profiles) == 0 || response.Profiles[0].FilePath == "" {
		return "", nil
	}

	return response.Profiles[0].FilePath, nil
}

// ImageURL returns a full image URL for a given path using the configured
// base URL and size.
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, c.config.ImageSize, path)
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrMovieNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
