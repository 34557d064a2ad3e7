package update

// Release is the registry's "latest release" document.
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Body    string  `json:"body"` // release notes, free text (usually markdown)
	Draft   bool    `json:"draft"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// ReleaseInfo is the outcome of one update check. It is produced once per
// check and never mutated afterwards.
type ReleaseInfo struct {
	Tag       string // tag as published, e.g. "v1.1.13"
	Version   string // tag with the prefix stripped, e.g. "1.1.13"
	Current   string // version the check compared against
	Notes     string
	HTMLURL   string
	AssetName string
	AssetURL  string // empty when no installable asset was attached
	AssetSize int64
	Available bool // release is newer than Current
}

// HasAsset reports whether an installable asset was found.
func (r *ReleaseInfo) HasAsset() bool { return r != nil && r.AssetURL != "" }

// Progress is a snapshot of a running download. Total is 0 when the
// server did not declare a content length.
type Progress struct {
	Downloaded int64
	Total      int64
}

// Percent returns completion in [0,100], or 0 when the total is unknown.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Downloaded) / float64(p.Total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
