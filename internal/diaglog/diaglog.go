// Package diaglog writes the plain-text update diagnostic log. The file is
// opened append-only because the detached launcher script appends to it too.
// Nothing in this module reads it back except `appupdate logs`.
package diaglog

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// FileName is the diagnostic log's name inside the scratch directory.
const FileName = "update_debug.txt"

// Path returns the diagnostic log location inside dir.
func Path(dir string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, FileName)
}

// Log is an append-only diagnostic logger.
type Log struct {
	*log.Logger
	path string
	f    *os.File
}

// Open opens (creating if needed) the file at path for appending.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Log{Logger: newLogger(f), path: path, f: f}, nil
}

// Discard returns a Log that drops everything.
func Discard() *Log {
	return &Log{Logger: newLogger(io.Discard)}
}

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           log.DebugLevel,
		Prefix:          "update",
	})
}

// Path returns the file path, or "" for a discarding log.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the underlying file.
func (l *Log) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Close()
}
