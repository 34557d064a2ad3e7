package update

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrNetwork       = errors.New("release registry unavailable")
	ErrNotFound      = errors.New("release not found")
	ErrAssetNotFound = errors.New("no installable asset")
	ErrDownload      = errors.New("download failed")
)

// NetworkError reports a failed registry query: transport failure,
// timeout, non-2xx status or an unreadable body.
type NetworkError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("release registry %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("release registry %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// NotFoundError reports that the registry has no published release.
// It also matches ErrNetwork so callers can treat it as a failed check.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no releases found at %s", e.URL)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == ErrNetwork
}

// AssetNotFoundError reports a newer release that carries no asset with
// the platform installer extension.
type AssetNotFoundError struct {
	Tag       string
	Extension string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("update %s is available but has no %s installer; it cannot be installed automatically", e.Tag, e.Extension)
}

func (e *AssetNotFoundError) Is(target error) bool { return target == ErrAssetNotFound }

// DownloadError reports a failed artifact transfer. Bytes already written
// stay in Path.
type DownloadError struct {
	URL        string
	Path       string
	Written    int64
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v (%d bytes written to %s)", e.URL, e.Err, e.Written, e.Path)
}

func (e *DownloadError) Unwrap() error { return e.Err }

func (e *DownloadError) Is(target error) bool { return target == ErrDownload }
