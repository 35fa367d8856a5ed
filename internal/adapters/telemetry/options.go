package telemetry

import (
	"math/rand"
	"time"

	"github.com/okian/varkiosk/pkg/logger"
)

// Option applies a configuration option to the Provider.
type Option func(*Provider)

// WithClient enables live fetches. An unconfigured client is ignored at fetch time.
func WithClient(c *Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// WithRand sets the random source used for every selection.
func WithRand(r *rand.Rand) Option {
	return func(p *Provider) {
		if r != nil {
			p.rng = r
		}
	}
}

// WithSeed seeds the random source. Zero keeps the clock-based seed.
func WithSeed(seed int64) Option {
	return func(p *Provider) {
		if seed != 0 {
			p.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // selection, not security
		}
	}
}

// WithTimeout bounds each live fetch.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithResolver sets the media resolver for VideoURL.
func WithResolver(r MediaResolver) Option {
	return func(p *Provider) {
		if r != nil {
			p.media = r
		}
	}
}

// WithLogger sets a custom logger for the provider.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}
