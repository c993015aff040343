package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.TMDBConfig{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		ImageBaseURL: "https://img.example.com/t/p",
		ImageSize:    "w500",
		Timeout:      5,
	}, zerolog.Nop())
}

func TestTopRatedSkipsUnkeyableEntries(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/movie/top_rated") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("expected page=2, got %s", r.URL.Query().Get("page"))
		}
		w.Write([]byte(`{
			"page": 2,
			"total_pages": 7,
			"results": [
				{"id": 1, "title": "Good Movie", "release_date": "1999-03-31"},
				{"id": 0, "title": "No ID", "release_date": "2000-01-01"},
				{"id": 2, "title": "", "release_date": "2000-01-01"},
				{"id": 3, "title": "No Date", "release_date": ""},
				{"id": 4, "title": "Also Good", "release_date": "2010-07-16"}
			]
		}`))
	})

	page, err := client.TopRated(context.Background(), 2)
	if err != nil {
		t.Fatalf("TopRated failed: %v", err)
	}
	if page.TotalPages != 7 {
		t.Errorf("expected 7 total pages, got %d", page.TotalPages)
	}
	if len(page.Movies) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(page.Movies))
	}
	if page.Movies[0].Title != "Good Movie" || page.Movies[0].Year != "1999" {
		t.Errorf("unexpected first movie: %+v", page.Movies[0])
	}
}

func TestGetCastFiltersAndOrders(t *testing.T) {
	longName := strings.Repeat("x", 71)
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cast": [
			{"id": 20, "name": "Second Actor", "character": "Second Role", "order": 1},
			{"id": 10, "name": "First Actor", "character": "First Role", "order": 0},
			{"id": 30, "name": "No Role", "character": "x", "order": 2},
			{"id": 40, "name": "Long Role", "character": "` + longName + `", "order": 3},
			{"id": 0, "name": "No ID", "character": "Some Role", "order": 4},
			{"id": 50, "name": "", "character": "Anonymous", "order": 5},
			{"id": 60, "name": "Capped Actor", "character": "Capped Role", "order": 6}
		]}`))
	})

	cast, err := client.GetCast(context.Background(), 603, 2)
	if err != nil {
		t.Fatalf("GetCast failed: %v", err)
	}
	if len(cast) != 2 {
		t.Fatalf("expected cast capped at 2, got %d", len(cast))
	}
	if cast[0].Name != "First Role" || cast[0].PersonID != 10 {
		t.Errorf("expected billing order first, got %+v", cast[0])
	}
	if cast[1].Name != "Second Role" {
		t.Errorf("expected second billed role, got %+v", cast[1])
	}
}

func TestGetReviewsFormatsSnippets(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"author": "alice", "content": "A very long review body"},
			{"author": "", "content": "short"},
			{"author": "bob", "content": ""},
			{"author": "carol", "content": "third"},
			{"author": "dave", "content": "over quota"}
		]}`))
	})

	snippets, err := client.GetReviews(context.Background(), 603, 3, 10)
	if err != nil {
		t.Fatalf("GetReviews failed: %v", err)
	}
	if len(snippets) != 3 {
		t.Fatalf("expected 3 snippets, got %d", len(snippets))
	}
	if snippets[0] != "Review by alice:\nA very lon...\n---" {
		t.Errorf("unexpected truncated snippet: %q", snippets[0])
	}
	if !strings.HasPrefix(snippets[1], "Review by Unknown Author:") {
		t.Errorf("expected author fallback, got %q", snippets[1])
	}
}

func TestGetIMDBIDFallsBackToExternalIDs(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("append_to_response") != "external_ids" {
			t.Errorf("expected external_ids appended")
		}
		w.Write([]byte(`{"id": 603, "imdb_id": "", "external_ids": {"imdb_id": "tt0133093"}}`))
	})

	id, err := client.GetIMDBID(context.Background(), 603)
	if err != nil {
		t.Fatalf("GetIMDBID failed: %v", err)
	}
	if id != "tt0133093" {
		t.Errorf("expected tt0133093, got %q", id)
	}
}

func TestDoRequestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, ErrMovieNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, ErrAPIError},
		{"server error", http.StatusInternalServerError, ErrAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"status_message": "nope"}`))
			})
			_, err := client.GetIMDBID(context.Background(), 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNotConfigured(t *testing.T) {
	client := NewClient(config.TMDBConfig{}, zerolog.Nop())
	if client.IsConfigured() {
		t.Error("expected unconfigured client")
	}
	if _, err := client.TopRated(context.Background(), 1); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestImageURL(t *testing.T) {
	client := NewClient(config.TMDBConfig{
		ImageBaseURL: "https://image.tmdb.org/t/p",
		ImageSize:    "w500",
	}, zerolog.Nop())

	if got := client.ImageURL("/abc.jpg"); got != "https://image.tmdb.org/t/p/w500/abc.jpg" {
		t.Errorf("unexpected image URL %q", got)
	}
	if got := client.ImageURL(""); got != "" {
		t.Errorf("expected empty URL for empty path, got %q", got)
	}
}
