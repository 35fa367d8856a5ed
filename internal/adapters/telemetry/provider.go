package telemetry

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/varkiosk/internal/adapters/media"
	"github.com/okian/varkiosk/internal/domain/model"
	"github.com/okian/varkiosk/pkg/logger"
	"github.com/okian/varkiosk/pkg/metrics"
)

const defaultTimeout = 5 * time.Second

// Fetch sources and reasons reported to metrics.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"

	ReasonOK            = "ok"
	ReasonNotConfigured = "not_configured"
	ReasonTimeout       = "timeout"
	ReasonCanceled      = "canceled"
	ReasonAuth          = "auth"
	ReasonHTTPStatus    = "http_status"
	ReasonGraphQL       = "graphql"
	ReasonEmpty         = "empty"
	ReasonMalformed     = "malformed"
	ReasonNetwork       = "network"
)

// MediaResolver maps a frame id to a playable URL.
type MediaResolver interface {
	Resolve(id string) string
}

// Provider resolves one EventRecord per round and never fails outward.
type Provider struct {
	client  *Client
	library []model.EventRecord
	timeout time.Duration
	media   MediaResolver
	log     logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewProvider creates a provider over a validated fallback library.
func NewProvider(library []model.EventRecord, opts ...Option) (*Provider, error) {
	if err := ValidateLibrary(library); err != nil {
		return nil, err
	}
	p := &Provider{
		library: append([]model.EventRecord(nil), library...),
		timeout: defaultTimeout,
		media:   media.New(media.DefaultFallbackURL),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // selection, not security
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("telemetry")
	}
	return p, nil
}

// Live reports whether a live fetch will be attempted.
func (p *Provider) Live() bool { return p.client.Configured() }

// FetchEvent returns a live event when possible, otherwise a fallback entry.
func (p *Provider) FetchEvent(ctx context.Context) model.EventRecord {
	rec, source, reason := p.resolve(ctx)
	rec.VideoURL = p.media.Resolve(rec.FrameID)
	metrics.RecordTelemetryFetch(source, reason)
	return rec
}

func (p *Provider) resolve(ctx context.Context) (model.EventRecord, string, string) {
	if !p.client.Configured() {
		return p.fallback(), SourceFallback, ReasonNotConfigured
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	series, err := p.client.RecentSeries(fetchCtx)
	metrics.RecordTelemetryLatency(float64(time.Since(start).Milliseconds()))

	var rec model.EventRecord
	if err == nil {
		rec, err = p.pick(series)
	}
	if err != nil {
		reason := classify(err)
		metrics.RecordErrorByComponent("telemetry", reason)
		p.log.Warn(ctx, "live telemetry unavailable, using fallback library",
			logger.String("reason", reason),
			logger.Error(err),
		)
		return p.fallback(), SourceFallback, reason
	}
	return rec, SourceLive, ReasonOK
}

// pick chooses a random series with events, then a random event of it, and
// fills absent fields from a random library entry.
func (p *Provider) pick(series []Series) (model.EventRecord, error) {
	candidates := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Events) > 0 {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return model.EventRecord{}, ErrEmptyResult
	}

	p.mu.Lock()
	s := candidates[p.rng.Intn(len(candidates))]
	ev := s.Events[p.rng.Intn(len(s.Events))]
	donor := p.library[p.rng.Intn(len(p.library))]
	p.mu.Unlock()

	return recalibrate(s.ID, ev, donor), nil
}

// recalibrate maps a live event onto a record, filling each absent field from donor.
func recalibrate(seriesID string, ev Event, donor model.EventRecord) model.EventRecord {
	rec := model.EventRecord{
		Player:    donor.Player,
		EventType: donor.EventType,
		Timestamp: donor.Timestamp,
		Target:    donor.Target,
		FrameID:   donor.FrameID,
		IsLive:    true,
	}
	if seriesID != "" {
		rec.FrameID = seriesID
	}
	if ev.Type != nil && *ev.Type != "" {
		rec.EventType = *ev.Type
	}
	if ev.Timestamp != nil && *ev.Timestamp != "" {
		rec.Timestamp = *ev.Timestamp
	}
	if ev.Player != nil && ev.Player.Name != nil && *ev.Player.Name != "" {
		rec.Player = *ev.Player.Name
	}
	if ev.Position != nil && ev.Position.X != nil && ev.Position.Y != nil {
		rec.Target = model.Point{X: *ev.Position.X, Y: *ev.Position.Y}
	}
	return rec
}

func (p *Provider) fallback() model.EventRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec := p.library[p.rng.Intn(len(p.library))]
	rec.IsLive = false
	return rec
}

func classify(err error) string {
	var (
		authErr *AuthError
		httpErr *HTTPError
		gqlErr  *GraphQLError
	)
	switch {
	case errors.As(err, &authErr):
		return ReasonAuth
	case errors.As(err, &httpErr):
		return ReasonHTTPStatus
	case errors.As(err, &gqlErr):
		return ReasonGraphQL
	case errors.Is(err, ErrEmptyResult):
		return ReasonEmpty
	case errors.Is(err, ErrMalformedResponse):
		return ReasonMalformed
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonNetwork
	}
}
