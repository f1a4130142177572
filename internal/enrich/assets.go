package enrich

import "strings"

// Assets builds fully-qualified asset URLs from stored object keys.
// An empty base URL is a recognized degraded-mode condition: every
// resolution returns nil and notifications go out without asset links.
type Assets struct {
	baseURL string
}

func NewAssets(baseURL string) *Assets {
	return &Assets{baseURL: strings.TrimRight(baseURL, "/")}
}

// Configured reports whether an asset base URL is available.
func (a *Assets) Configured() bool {
	return a.baseURL != ""
}

// URL joins the stored object key with the configured base URL.
// Returns nil when the key is absent or no base URL is configured.
func (a *Assets) URL(key *string) *string {
	if key == nil || *key == "" || a.baseURL == "" {
		return nil
	}
	u := a.baseURL + "/" + strings.TrimLeft(*key, "/")
	return &u
}
