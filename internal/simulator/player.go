package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/varkiosk/pkg/logger"
)

const initialsAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// roundResult is the outcome of one simulated round.
type roundResult struct {
	accuracy float64
	grade    string
}

// player plays rounds on one session.
type player struct {
	id     int
	client *Client
	cfg    *Config
	rng    *rand.Rand
	log    logger.Logger
}

// playRound runs start, freeze, click and submit, then resets the session.
func (p *player) playRound(ctx context.Context, sessionID string) (roundResult, error) {
	if _, err := p.client.Start(ctx, sessionID); err != nil {
		return roundResult{}, err
	}
	if err := p.awaitFreeze(ctx, sessionID); err != nil {
		return roundResult{}, err
	}

	x := p.rng.Float64() * p.cfg.Width
	y := p.rng.Float64() * p.cfg.Height
	result, err := p.client.Click(ctx, sessionID, x, y)
	if err != nil {
		return roundResult{}, err
	}

	initials := p.initials()
	if _, err := p.client.Submit(ctx, sessionID, initials); err != nil {
		return roundResult{}, err
	}
	if _, err := p.client.Reset(ctx, sessionID); err != nil {
		return roundResult{}, err
	}

	if p.cfg.Verbose {
		p.log.Info(ctx, "round submitted",
			logger.Int("player", p.id),
			logger.String("initials", initials),
			logger.Float64("accuracy", result.Accuracy),
			logger.String("grade", result.Grade),
		)
	}
	return roundResult{accuracy: result.Accuracy, grade: result.Grade}, nil
}

// awaitFreeze polls the session until the replay freezes.
func (p *player) awaitFreeze(ctx context.Context, sessionID string) error {
	deadline := time.Now().Add(p.cfg.FreezeTimeout)
	for {
		v, err := p.client.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		switch v.Phase {
		case "VAR_FREEZE":
			return nil
		case "PLAYING":
		default:
			return fmt.Errorf("%w: unexpected phase %s", ErrFreezeTimeout, v.Phase)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: still %s after %s", ErrFreezeTimeout, v.Phase, p.cfg.FreezeTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

func (p *player) initials() string {
	b := make([]byte, 3)
	for i := range b {
		b[i] = initialsAlphabet[p.rng.Intn(len(initialsAlphabet))]
	}
	return string(b)
}
