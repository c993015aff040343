// Package transcript appends raw provider exchanges to a session log file.
// The transcript is diagnostic only; nothing reads it back on later runs.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Writer appends entries to the transcript file. Entries are written before
// any decoding happens, so raw content survives decoding failures.
type Writer struct {
	file      *os.File
	sessionID string
}

// Open creates or appends to the transcript file and writes a session
// header. A nil *Writer is safe to use; every method is a no-op on it.
func Open(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create transcript directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}

	w := &Writer{file: f, sessionID: uuid.NewString()}
	w.writeLine("===== session %s started at %s =====", w.sessionID, time.Now().Format(time.RFC3339))
	return w, nil
}

// SessionID returns the unique ID written in the session header.
func (w *Writer) SessionID() string {
	if w == nil {
		return ""
	}
	return w.sessionID
}

// Record appends one provider exchange. kind distinguishes request/response/
// failure, stage and movie identify the originating call.
func (w *Writer) Record(stage, movie, kind, content string) {
	if w == nil || w.file == nil {
		return
	}
	w.writeLine("--- [%s] stage=%s movie=%q kind=%s", time.Now().Format(time.RFC3339), stage, movie, kind)
	fmt.Fprintln(w.file, content)
}

// Close writes a session trailer and closes the file.
func (w *Writer) Close() error {
	if w == nil || w.file == nil {
		return nil
	}
	w.writeLine("===== session %s finished at %s =====", w.sessionID, time.Now().Format(time.RFC3339))
	return w.file.Close()
}

func (w *Writer) writeLine(format string, args ...any) {
	fmt.Fprintf(w.file, format+"\n", args...)
}
