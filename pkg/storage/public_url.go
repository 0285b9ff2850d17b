package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// PublicURLResolver maps stored object paths to stable, publicly
// resolvable locators. The resolved URL string is what gets persisted
// on media rows, so it must never change for a given object path.
type PublicURLResolver struct {
	baseURL string
}

// NewPublicURLResolver validates and normalises the base URL.
func NewPublicURLResolver(baseURL string) (*PublicURLResolver, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("public base URL required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid public base URL %q", baseURL)
	}
	return &PublicURLResolver{baseURL: trimmed}, nil
}

// PublicURL returns the public locator for a stored object path.
func (r *PublicURLResolver) PublicURL(objectPath string) string {
	cleaned := strings.TrimLeft(objectPath, "/")
	segments := strings.Split(cleaned, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return r.baseURL + "/" + strings.Join(segments, "/")
}

// ObjectPath inverts PublicURL: given a locator produced by this
// resolver it returns the stored object path. The second return is
// false for external links that do not live under the base URL.
func (r *PublicURLResolver) ObjectPath(publicURL string) (string, bool) {
	prefix := r.baseURL + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	escaped := strings.TrimPrefix(publicURL, prefix)
	segments := strings.Split(escaped, "/")
	for i, seg := range segments {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return "", false
		}
		segments[i] = decoded
	}
	return strings.Join(segments, "/"), true
}
