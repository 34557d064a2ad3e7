package update

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// failingReader returns data and then a transport error.
type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestDownload_KnownSize(t *testing.T) {
	data := payload(3*ChunkSize + 123)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "update_app.msi")
	var calls []Progress
	got, err := NewDownloader().Download(context.Background(), server.URL, dest, func(downloaded, total int64) {
		calls = append(calls, Progress{Downloaded: downloaded, Total: total})
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got != dest {
		t.Errorf("Download() path = %q, want %q", got, dest)
	}
	if len(calls) == 0 {
		t.Fatal("progress was never reported")
	}
	for i := 1; i < len(calls); i++ {
		if calls[i].Downloaded <= calls[i-1].Downloaded {
			t.Fatalf("progress not strictly increasing at %d: %v", i, calls)
		}
	}
	last := calls[len(calls)-1]
	if last.Total != int64(len(data)) || last.Downloaded != last.Total {
		t.Errorf("last progress = %+v, want %d/%d", last, len(data), len(data))
	}
	onDisk, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if !bytes.Equal(onDisk, data) {
		t.Errorf("file has %d bytes, want %d identical bytes", len(onDisk), len(data))
	}
}

func TestDownload_UnknownTotal(t *testing.T) {
	data := payload(ChunkSize + 5)
	mock := &mockHTTPDoer{doFunc: func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, ContentLength: -1, Body: io.NopCloser(bytes.NewReader(data))}, nil
	}}
	dest := filepath.Join(t.TempDir(), "a.msi")
	var lastTotal int64 = -1
	var lastDownloaded int64
	_, err := NewDownloader(WithDownloadDoer(mock)).Download(context.Background(), "https://x/a.msi", dest, func(d, total int64) {
		lastDownloaded, lastTotal = d, total
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if lastTotal != 0 {
		t.Errorf("total = %d, want 0 for unknown length", lastTotal)
	}
	if lastDownloaded != int64(len(data)) {
		t.Errorf("downloaded = %d, want %d", lastDownloaded, len(data))
	}
}

func TestDownload_EmptyBodyReportsOnce(t *testing.T) {
	mock := &mockHTTPDoer{doFunc: func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, ContentLength: 0, Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}}
	dest := filepath.Join(t.TempDir(), "empty.msi")
	var calls []Progress
	_, err := NewDownloader(WithDownloadDoer(mock)).Download(context.Background(), "https://x/empty.msi", dest, func(d, total int64) {
		calls = append(calls, Progress{Downloaded: d, Total: total})
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if len(calls) != 1 || calls[0] != (Progress{}) {
		t.Errorf("progress calls = %v, want exactly one {0 0}", calls)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() != 0 {
		t.Errorf("dest = %v (err %v), want empty file", info, err)
	}
}

func TestDownload_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "a.msi")
	_, err := NewDownloader().Download(context.Background(), server.URL, dest, nil)
	var de *DownloadError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want *DownloadError", err)
	}
	if de.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", de.StatusCode)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("destination created for failed response: %v", err)
	}
}

func TestDownload_InterruptedThenRetry(t *testing.T) {
	dir := t.TempDir()
	dest := ScratchPath(dir, "tkinter-app-auto-update", ".msi")

	first := payload(10 * ChunkSize)
	partial := first[:4*ChunkSize+17]
	broken := &mockHTTPDoer{doFunc: func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode:    http.StatusOK,
			ContentLength: int64(len(first)),
			Body:          io.NopCloser(&failingReader{data: partial, err: errors.New("connection reset by peer")}),
		}, nil
	}}

	_, err := NewDownloader(WithDownloadDoer(broken)).Download(context.Background(), "https://x/app.msi", dest, nil)
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("error = %v, want ErrDownload", err)
	}
	var de *DownloadError
	if errors.As(err, &de) && de.Written != int64(len(partial)) {
		t.Errorf("Written = %d, want %d", de.Written, len(partial))
	}
	info, statErr := os.Stat(dest)
	if statErr != nil {
		t.Fatalf("partial file missing: %v", statErr)
	}
	if info.Size() != int64(len(partial)) {
		t.Errorf("partial size = %d, want %d", info.Size(), len(partial))
	}

	// A smaller successful retry must fully replace the partial file.
	second := payload(ChunkSize + 1)
	ok := &mockHTTPDoer{doFunc: func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, ContentLength: int64(len(second)), Body: io.NopCloser(bytes.NewReader(second))}, nil
	}}
	if _, err := NewDownloader(WithDownloadDoer(ok)).Download(context.Background(), "https://x/app.msi", dest, nil); err != nil {
		t.Fatalf("retry Download() error = %v", err)
	}
	onDisk, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if !bytes.Equal(onDisk, second) {
		t.Errorf("after retry file has %d bytes, want %d", len(onDisk), len(second))
	}
}

func TestDownload_ShortBody(t *testing.T) {
	mock := &mockHTTPDoer{doFunc: func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, ContentLength: 100, Body: io.NopCloser(bytes.NewReader(payload(40)))}, nil
	}}
	_, err := NewDownloader(WithDownloadDoer(mock)).Download(context.Background(), "https://x/a.msi", filepath.Join(t.TempDir(), "a.msi"), nil)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestDownload_TransportError(t *testing.T) {
	mock := &mockHTTPDoer{doFunc: func(*http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: no route to host")
	}}
	_, err := NewDownloader(WithDownloadDoer(mock)).Download(context.Background(), "https://x/a.msi", filepath.Join(t.TempDir(), "a.msi"), nil)
	if !errors.Is(err, ErrDownload) {
		t.Errorf("error = %v, want ErrDownload", err)
	}
}

func TestDownload_UnwritableDestination(t *testing.T) {
	mock := &mockHTTPDoer{doFunc: func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader([]byte("x")))}, nil
	}}
	dest := filepath.Join(t.TempDir(), "missing-dir", "a.msi")
	_, err := NewDownloader(WithDownloadDoer(mock)).Download(context.Background(), "https://x/a.msi", dest, nil)
	if !errors.Is(err, ErrDownload) {
		t.Errorf("error = %v, want ErrDownload", err)
	}
}

func TestScratchPath(t *testing.T) {
	tests := []struct {
		repo string
		want string
	}{
		{"tkinter-app-auto-update", "update_tkinter-app-auto-update.msi"},
		{"owner/repo", "update_owner_repo.msi"},
		{"a b:c", "update_a_b_c.msi"},
	}
	for _, tt := range tests {
		got := ScratchPath("/scratch", tt.repo, ".msi")
		if got != filepath.Join("/scratch", tt.want) {
			t.Errorf("ScratchPath(%q) = %q, want %q", tt.repo, got, filepath.Join("/scratch", tt.want))
		}
		if again := ScratchPath("/scratch", tt.repo, ".msi"); again != got {
			t.Errorf("ScratchPath not deterministic: %q vs %q", got, again)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		p    Progress
		want float64
	}{
		{Progress{Downloaded: 50, Total: 200}, 25},
		{Progress{Downloaded: 10, Total: 0}, 0},
		{Progress{Downloaded: 300, Total: 200}, 100},
	}
	for _, tt := range tests {
		if got := tt.p.Percent(); got != tt.want {
			t.Errorf("%+v.Percent() = %v, want %v", tt.p, got, tt.want)
		}
	}
}
