package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/purple86a/appupdate/internal/version"
)

const (
	// DefaultRegistryURL is the GitHub REST API base.
	DefaultRegistryURL = "https://api.github.com"
	// CheckTimeout bounds the whole "latest release" query.
	CheckTimeout = 10 * time.Second

	defaultNotes = "No release notes available."
)

// HTTPDoer is the subset of *http.Client used by Client and Downloader.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LatestReleaseURL returns the registry endpoint for owner/repo's latest release.
func LatestReleaseURL(registry, owner, repo string) string {
	if registry == "" {
		registry = DefaultRegistryURL
	}
	return fmt.Sprintf("%s/repos/%s/%s/releases/latest", strings.TrimRight(registry, "/"), owner, repo)
}

// Client queries the release registry for the latest published release.
// It does not cache results.
type Client struct {
	endpoint   string
	current    string
	extension  string
	constraint string
	token      string
	userAgent  string
	timeout    time.Duration
	http       HTTPDoer
	log        *log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPDoer replaces the HTTP transport.
func WithHTTPDoer(d HTTPDoer) ClientOption {
	return func(c *Client) { c.http = d }
}

// WithCheckTimeout overrides CheckTimeout.
func WithCheckTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithToken sends a bearer token, which lifts anonymous rate limits.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithConstraint limits offered releases to those meeting a version constraint.
func WithConstraint(constraint string) ClientOption {
	return func(c *Client) { c.constraint = constraint }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithClientLogger sets the logger.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a client for endpoint that compares releases against
// currentVersion and selects assets ending in extension (e.g. ".msi").
func NewClient(endpoint, currentVersion, extension string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:  endpoint,
		current:   currentVersion,
		extension: extension,
		userAgent: "appupdate",
		timeout:   CheckTimeout,
		log:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// FetchLatestRelease issues a single GET for the latest release and reports
// whether it is newer than the current version. Any transport failure,
// timeout, non-2xx status or malformed body is returned as *NetworkError
// (*NotFoundError for 404).
func (c *Client) FetchLatestRelease(ctx context.Context) (*ReleaseInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, &NetworkError{URL: c.endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Debug("fetching latest release", "url", c.endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: c.endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{URL: c.endpoint}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: c.endpoint, StatusCode: resp.StatusCode}
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, &NetworkError{URL: c.endpoint, Err: fmt.Errorf("failed to parse release: %w", err)}
	}
	if release.TagName == "" {
		return nil, &NetworkError{URL: c.endpoint, Err: fmt.Errorf("release has no tag_name")}
	}

	info := c.evaluate(&release)
	c.log.Info("checked for updates", "current", info.Current, "latest", info.Version, "available", info.Available, "asset", info.AssetName)
	return info, nil
}

func (c *Client) evaluate(release *Release) *ReleaseInfo {
	info := &ReleaseInfo{
		Tag:     release.TagName,
		Version: trimVersionPrefix(release.TagName),
		Current: trimVersionPrefix(c.current),
		Notes:   release.Body,
		HTMLURL: release.HTMLURL,
	}
	if strings.TrimSpace(info.Notes) == "" {
		info.Notes = defaultNotes
	}
	if asset := SelectAsset(release.Assets, c.extension); asset != nil {
		info.AssetName = asset.Name
		info.AssetURL = asset.BrowserDownloadURL
		info.AssetSize = asset.Size
	}

	if release.Draft {
		return info
	}
	latest, err := version.Parse(release.TagName)
	if err != nil {
		c.log.Warn("cannot compare release tag", "tag", release.TagName, "err", err)
		return info
	}
	current, err := version.Parse(c.current)
	if err != nil {
		c.log.Warn("cannot compare current version", "version", c.current, "err", err)
		return info
	}
	if version.Compare(latest, current) <= 0 {
		return info
	}
	ok, err := version.Satisfies(latest, c.constraint)
	if err != nil {
		c.log.Warn("ignoring update constraint", "err", err)
		ok = true
	}
	if !ok {
		c.log.Info("newer release excluded by constraint", "version", info.Version, "constraint", c.constraint)
		return info
	}
	info.Available = true
	return info
}

// SelectAsset returns the first asset whose name ends with extension
// (case-insensitive), or nil. There is no fallback or scoring.
func SelectAsset(assets []Asset, extension string) *Asset {
	if extension == "" {
		return nil
	}
	ext := strings.ToLower(extension)
	for i := range assets {
		if strings.HasSuffix(strings.ToLower(assets[i].Name), ext) {
			return &assets[i]
		}
	}
	return nil
}

// AssetError returns *AssetNotFoundError when info is available but has no
// installable asset, and nil otherwise.
func AssetError(info *ReleaseInfo, extension string) error {
	if info == nil || !info.Available || info.HasAsset() {
		return nil
	}
	return &AssetNotFoundError{Tag: info.Tag, Extension: extension}
}

func trimVersionPrefix(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexFunc(tag, func(r rune) bool { return r >= '0' && r <= '9' }); i > 0 {
		return tag[i:]
	}
	return tag
}
