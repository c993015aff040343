// Package images downloads portraits and stills for a record's characters
// and relationship pairs, rate-limited to stay a polite client.
package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

var (
	ErrNoToken   = errors.New("no search token in response page")
	ErrSearchAPI = errors.New("image search API error")
)

const (
	searchBaseURL = "https://duckduckgo.com"
	userAgent     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var vqdPattern = regexp.MustCompile(`vqd=['"]?([\d-]+)`)

// Searcher finds image URLs via the DuckDuckGo image search. Each query
// needs a per-query vqd token scraped from the HTML search page before the
// JSON endpoint can be called.
type Searcher struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewSearcher creates an image searcher.
func NewSearcher(timeoutSeconds int, logger zerolog.Logger) *Searcher {
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Searcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "imagesearch").Logger(),
	}
}

// SearchImages returns up to max image URLs for the query.
func (s *Searcher) SearchImages(ctx context.Context, query string, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}

	token, err := s.token(ctx, query)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("l", "us-en")
	params.Set("o", "json")
	params.Set("q", query)
	params.Set("vqd", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchBaseURL+"/i.js?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", searchBaseURL+"/")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSearchAPI, resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Image string `json:"image"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	urls := make([]string, 0, max)
	for _, r := range payload.Results {
		if r.Image == "" {
			continue
		}
		urls = append(urls, r.Image)
		if len(urls) == max {
			break
		}
	}

	s.logger.Debug().Str("query", query).Int("results", len(urls)).Msg("image search done")
	return urls, nil
}

// token scrapes the vqd token for a query from the search page scripts.
func (s *Searcher) token(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("iax", "images")
	params.Set("ia", "images")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchBaseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrSearchAPI, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to parse search page: %w", err)
	}

	var token string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(text, "vqd") {
			return true
		}
		if m := vqdPattern.FindStringSubmatch(text); m != nil {
			token = m[1]
			return false
		}
		return true
	})
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
