package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterAppendsAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "transcript.log")

	w1, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first := w1.SessionID()
	if first == "" {
		t.Fatal("expected a session ID")
	}
	w1.Record("initial_data", "The Matrix (1999)", "request", "prompt body")
	w1.Record("initial_data", "The Matrix (1999)", "response", "raw response")
	if err := w1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	w2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if w2.SessionID() == first {
		t.Error("expected a fresh session ID per open")
	}
	w2.Record("analytical_data", "The Matrix (1999)", "failure", "timeout")
	w2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"session " + first + " started",
		"session " + first + " finished",
		`stage=initial_data movie="The Matrix (1999)" kind=request`,
		"prompt body",
		"raw response",
		"kind=failure",
		"timeout",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
	if strings.Index(content, "prompt body") > strings.Index(content, "raw response") {
		t.Error("request should be recorded before the response")
	}
}

func TestNilWriterIsSafe(t *testing.T) {
	var w *Writer
	if w.SessionID() != "" {
		t.Error("nil writer should have no session ID")
	}
	w.Record("stage", "movie", "request", "content")
	if err := w.Close(); err != nil {
		t.Errorf("nil Close should be a no-op, got %v", err)
	}
}
