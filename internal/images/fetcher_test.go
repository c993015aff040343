package images

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinegraph/cinegraph/internal/catalog"
	"github.com/cinegraph/cinegraph/internal/config"
)

type fakeSearch struct {
	urls    map[string][]string
	queries []string
}

func (f *fakeSearch) SearchImages(ctx context.Context, query string, max int) ([]string, error) {
	f.queries = append(f.queries, query)
	urls := f.urls[query]
	if len(urls) > max {
		urls = urls[:max]
	}
	return urls, nil
}

type fakeProfiles struct {
	paths map[int]string
	base  string
}

func (f *fakeProfiles) GetPersonProfilePath(ctx context.Context, personID int) (string, error) {
	return f.paths[personID], nil
}

func (f *fakeProfiles) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return f.base + path
}

func testFetcher(t *testing.T, cfg config.ImagesConfig, search searchClient, profiles profileSource) (*Fetcher, *[]time.Duration) {
	t.Helper()
	f := NewFetcher(cfg, search, profiles, zerolog.Nop())
	var sleeps []time.Duration
	f.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return f, &sleeps
}

func TestAcquireForMovie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	cfg := config.ImagesConfig{
		SavePath:               dir,
		PerCharacter:           1,
		PerRelationship:        1,
		MaxRelationships:       10,
		CharacterGroupDelay:    2,
		RelationshipGroupDelay: 3,
		DownloadDelay:          1,
	}

	search := &fakeSearch{urls: map[string][]string{
		"Neo The Matrix character":     {server.URL + "/neo.png"},
		"Trinity The Matrix character": {server.URL + "/trinity"},
		"Neo and Trinity The Matrix":   {server.URL + "/pair.jpg"},
	}}
	profiles := &fakeProfiles{paths: map[int]string{6384: "/keanu.jpg"}, base: server.URL}

	fetcher, sleeps := testFetcher(t, cfg, search, profiles)

	rec := &catalog.MovieRecord{
		Title: "The Matrix",
		Year:  "1999",
		Characters: []catalog.Character{
			{Name: "Neo", ActorName: "Keanu Reeves", TMDBPersonID: 6384},
			{Name: "Trinity", ActorName: "Carrie-Anne Moss", TMDBPersonID: 530},
		},
		Relationships: []catalog.Relationship{
			{Source: "Neo", Target: "Trinity", Type: "lovers"},
		},
	}

	if err := fetcher.AcquireForMovie(context.Background(), rec); err != nil {
		t.Fatalf("AcquireForMovie failed: %v", err)
	}

	movieDir := filepath.Join(dir, "the_matrix_1999")
	for _, name := range []string{
		"keanu_reeves.jpg", // actor portrait from the metadata provider
		"neo_0.png",        // extension taken from the URL
		"trinity_0.jpg",    // unknown extension falls back to jpg
		"neo_trinity_0.jpg",
	} {
		if _, err := os.Stat(filepath.Join(movieDir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	if rec.Characters[0].ImageFile != "keanu_reeves.jpg" {
		t.Errorf("portrait filename not recorded: %q", rec.Characters[0].ImageFile)
	}
	if rec.Characters[1].ImageFile != "" {
		t.Errorf("character without a portrait should have no image file, got %q", rec.Characters[1].ImageFile)
	}

	// One group delay per character plus one per relationship.
	var char, rel int
	for _, d := range *sleeps {
		switch d {
		case 2 * time.Second:
			char++
		case 3 * time.Second:
			rel++
		}
	}
	if char != 2 || rel != 1 {
		t.Errorf("expected 2 character and 1 relationship delays, got %d and %d (%v)", char, rel, *sleeps)
	}
}

func TestAcquireSkipsExistingFiles(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	movieDir := filepath.Join(dir, "the_matrix_1999")
	if err := os.MkdirAll(movieDir, 0755); err != nil {
		t.Fatal(err)
	}
	// Pre-seed everything the fetcher would download.
	for _, name := range []string{"keanu_reeves.jpg", "neo_0.jpg"} {
		if err := os.WriteFile(filepath.Join(movieDir, name), []byte("cached"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.ImagesConfig{SavePath: dir, PerCharacter: 1}
	search := &fakeSearch{urls: map[string][]string{
		"Neo The Matrix character": {server.URL + "/neo.jpg"},
	}}
	profiles := &fakeProfiles{paths: map[int]string{6384: "/keanu.jpg"}, base: server.URL}

	fetcher, _ := testFetcher(t, cfg, search, profiles)
	rec := &catalog.MovieRecord{
		Title: "The Matrix",
		Year:  "1999",
		Characters: []catalog.Character{
			{Name: "Neo", ActorName: "Keanu Reeves", TMDBPersonID: 6384},
		},
	}

	if err := fetcher.AcquireForMovie(context.Background(), rec); err != nil {
		t.Fatalf("AcquireForMovie failed: %v", err)
	}
	if requests != 0 {
		t.Errorf("expected no downloads for cached files, got %d", requests)
	}
	if rec.Characters[0].ImageFile != "keanu_reeves.jpg" {
		t.Errorf("cached portrait should still be recorded, got %q", rec.Characters[0].ImageFile)
	}
}

func TestAcquireBoundsRelationships(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer server.Close()

	cfg := config.ImagesConfig{
		SavePath:         t.TempDir(),
		PerRelationship:  1,
		MaxRelationships: 2,
	}
	search := &fakeSearch{urls: map[string][]string{}}
	fetcher, _ := testFetcher(t, cfg, search, &fakeProfiles{})

	rec := &catalog.MovieRecord{
		Title:      "Busy Movie",
		Characters: []catalog.Character{{Name: "A"}},
	}
	for i := 0; i < 5; i++ {
		rec.Relationships = append(rec.Relationships, catalog.Relationship{
			Source: "A", Target: fmt.Sprintf("B%d", i), Type: "knows",
		})
	}

	if err := fetcher.AcquireForMovie(context.Background(), rec); err != nil {
		t.Fatalf("AcquireForMovie failed: %v", err)
	}

	relQueries := 0
	for _, q := range search.queries {
		if len(q) > 0 && q[0] == 'A' {
			relQueries++
		}
	}
	if relQueries != 2 {
		t.Errorf("expected 2 relationship searches, got %d (%v)", relQueries, search.queries)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"The Matrix", "the_matrix"},
		{"  Agent Smith!  ", "agent_smith"},
		{"Léon: The Professional", "l_on_the_professional"},
		{"a--b", "a_b"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtensionOf(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://x.com/a.png", ".png"},
		{"https://x.com/a.JPEG", ".jpeg"},
		{"https://x.com/a.png?size=big", ".png"},
		{"https://x.com/no-ext", ".jpg"},
		{"https://x.com/a.exe", ".jpg"},
	}
	for _, tt := range tests {
		if got := extensionOf(tt.in); got != tt.want {
			t.Errorf("extensionOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
