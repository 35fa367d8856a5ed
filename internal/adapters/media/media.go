// Package media maps frame and series ids to playable replay URLs.
package media

import (
	"regexp"
	"strings"

	"github.com/okian/varkiosk/pkg/metrics"
)

// DefaultFallbackURL is used when no fallback asset is configured.
const DefaultFallbackURL = "https://assets.varkiosk.local/replays/fallback.mp4"

// demoPattern matches ids that never have a real asset: demo/placeholder/sample
// ids and the RX- frames of the bundled fallback library.
var demoPattern = regexp.MustCompile(`(?i)^(demo|placeholder|sample|rx-)`) //nolint:gochecknoglobals // compiled once

// Resolver resolves ids against an optional asset catalog.
type Resolver struct {
	fallbackURL string
	assets      map[string]string
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithAssets sets the catalog of id -> URL. Blank keys and values are skipped.
func WithAssets(assets map[string]string) Option {
	return func(r *Resolver) {
		for id, url := range assets {
			id, url = strings.TrimSpace(id), strings.TrimSpace(url)
			if id == "" || url == "" {
				continue
			}
			r.assets[id] = url
		}
	}
}

// New creates a Resolver. Every id without a catalog entry maps to fallbackURL.
func New(fallbackURL string, opts ...Option) *Resolver {
	if strings.TrimSpace(fallbackURL) == "" {
		fallbackURL = DefaultFallbackURL
	}
	r := &Resolver{
		fallbackURL: fallbackURL,
		assets:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the URL for id, or the fallback URL.
func (r *Resolver) Resolve(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || demoPattern.MatchString(id) {
		metrics.RecordMediaResolution("fallback")
		return r.fallbackURL
	}
	if url, ok := r.assets[id]; ok {
		metrics.RecordMediaResolution("catalog")
		return url
	}
	metrics.RecordMediaResolution("fallback")
	return r.fallbackURL
}

// FallbackURL returns the safe default asset.
func (r *Resolver) FallbackURL() string { return r.fallbackURL }
