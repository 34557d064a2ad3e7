package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// ChunkSize is the read/write unit; progress is reported once per chunk.
	ChunkSize = 8 * 1024
	// ConnectTimeout bounds dialing, TLS and waiting for response headers.
	// The body itself streams without a deadline.
	ConnectTimeout = 30 * time.Second
)

// ProgressFunc receives cumulative bytes written and the declared total
// (0 when unknown) after every chunk.
type ProgressFunc func(downloaded, total int64)

// Downloader streams release artifacts to local scratch storage.
type Downloader struct {
	http    HTTPDoer
	log     *log.Logger
	connect time.Duration
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithDownloadDoer replaces the HTTP transport.
func WithDownloadDoer(d HTTPDoer) DownloaderOption {
	return func(dl *Downloader) { dl.http = d }
}

// WithDownloadLogger sets the logger.
func WithDownloadLogger(l *log.Logger) DownloaderOption {
	return func(dl *Downloader) {
		if l != nil {
			dl.log = l
		}
	}
}

// WithConnectTimeout overrides ConnectTimeout for the default transport.
func WithConnectTimeout(t time.Duration) DownloaderOption {
	return func(dl *Downloader) {
		if t > 0 {
			dl.connect = t
		}
	}
}

// NewDownloader returns a Downloader whose default transport applies
// ConnectTimeout to connection setup only.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{log: log.New(io.Discard), connect: ConnectTimeout}
	for _, opt := range opts {
		opt(d)
	}
	if d.http == nil {
		d.http = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: d.connect}).DialContext,
			TLSHandshakeTimeout:   d.connect,
			ResponseHeaderTimeout: d.connect,
		}}
	}
	return d
}

// Download fetches url into dest, truncating any existing file, and returns
// dest. onProgress may be nil. On failure the partially written file is left
// in place; a later call overwrites it.
func (d *Downloader) Download(ctx context.Context, url, dest string, onProgress ProgressFunc) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &DownloadError{URL: url, Path: dest, Err: err}
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", &DownloadError{URL: url, Path: dest, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &DownloadError{URL: url, Path: dest, StatusCode: resp.StatusCode}
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", &DownloadError{URL: url, Path: dest, Err: fmt.Errorf("open destination: %w", err)}
	}
	d.log.Debug("downloading artifact", "url", url, "dest", dest, "total", total)

	written, err := copyChunks(f, resp.Body, total, onProgress)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close destination: %w", cerr)
	}
	if err != nil {
		d.log.Warn("download interrupted", "written", written, "err", err)
		return "", &DownloadError{URL: url, Path: dest, Written: written, Err: err}
	}
	d.log.Info("download complete", "dest", dest, "bytes", written)
	return dest, nil
}

func copyChunks(w io.Writer, r io.Reader, total int64, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("write destination: %w", werr)
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(written, total)
			}
		}
		if errors.Is(rerr, io.EOF) {
			if truncated(written, total) {
				return written, io.ErrUnexpectedEOF
			}
			// An empty body still reports its final state once.
			if written == 0 && onProgress != nil {
				onProgress(0, total)
			}
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// truncated reports whether a declared total was not reached.
func truncated(written, total int64) bool {
	return total > 0 && written < total
}

// ScratchPath returns the deterministic artifact location for repo inside
// dir, so a retried download overwrites the previous file.
func ScratchPath(dir, repo, extension string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, repo)
	return filepath.Join(dir, "update_"+name+extension)
}
