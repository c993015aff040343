package omdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.OMDBConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5,
	}, zerolog.Nop())
}

func TestGetIMDBID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{
			name: "resolved",
			body: `{"Title": "The Matrix", "Year": "1999", "imdbID": "tt0133093", "Type": "movie", "Response": "True"}`,
			want: "tt0133093",
		},
		{
			name:    "movie not found",
			body:    `{"Response": "False", "Error": "Movie not found!"}`,
			wantErr: ErrNotFound,
		},
		{
			name:    "other api error",
			body:    `{"Response": "False", "Error": "Invalid API key!"}`,
			wantErr: ErrAPIError,
		},
		{
			name:    "id is N/A",
			body:    `{"Title": "Obscure", "imdbID": "N/A", "Response": "True"}`,
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("t") != "The Matrix" {
					t.Errorf("expected t=The Matrix, got %q", q.Get("t"))
				}
				if q.Get("type") != "movie" {
					t.Errorf("expected type=movie")
				}
				if q.Get("y") != "1999" {
					t.Errorf("expected y=1999, got %q", q.Get("y"))
				}
				w.Write([]byte(tt.body))
			})

			got, err := client.GetIMDBID(context.Background(), "The Matrix", "1999")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetIMDBID failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetIMDBIDUnconfigured(t *testing.T) {
	client := NewClient(config.OMDBConfig{}, zerolog.Nop())
	if _, err := client.GetIMDBID(context.Background(), "The Matrix", ""); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestGetIMDBIDEmptyTitle(t *testing.T) {
	client := NewClient(config.OMDBConfig{APIKey: "k", BaseURL: "http://unused"}, zerolog.Nop())
	if _, err := client.GetIMDBID(context.Background(), "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
