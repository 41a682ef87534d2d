package proactive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/foundermate/foundermate/internal/model"
)

// DefaultDedupWindow is how long a surfaced fingerprint stays suppressed.
const DefaultDedupWindow = 7 * 24 * time.Hour

// SeenStore is the persisted fingerprint seen-set. ClaimSurfaced must be
// atomic: of any number of concurrent claims for the same live fingerprint,
// exactly one returns true.
type SeenStore interface {
	SeenSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (map[string]bool, error)
	ClaimSurfaced(ctx context.Context, userID uuid.UUID, fingerprint string, cutoff time.Time) (bool, error)
}

// Pipeline runs all detectors for a user and returns the deduplicated
// proactive messages ready for display.
type Pipeline struct {
	detectors []Detector
	seen      SeenStore
	window    time.Duration
	logger    *slog.Logger
}

// New creates a pipeline. A non-positive window falls back to the default.
func New(seen SeenStore, logger *slog.Logger, window time.Duration, detectors ...Detector) *Pipeline {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Pipeline{detectors: detectors, seen: seen, window: window, logger: logger}
}

// Process detects events for the user, drops fingerprints already surfaced
// within the dedup window, claims the survivors, and returns their messages.
// The claim is persisted before the message is returned and losing a claim
// suppresses the message, so concurrent calls never surface the same
// fingerprint twice.
//
// A failing detector is logged and skipped; the remaining detectors still
// contribute. A failing seen-set read is a hard error: without it the
// idempotence guarantee would be lost.
func (p *Pipeline) Process(ctx context.Context, userID uuid.UUID) ([]model.ProactiveMessage, error) {
	perDetector := make([][]model.ProactiveEvent, len(p.detectors))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range p.detectors {
		g.Go(func() error {
			events, err := d.Detect(gctx, userID)
			if err != nil {
				// Detector failures degrade, not abort: one broken query must
				// not suppress every other event class.
				p.logger.Warn("proactive: detector failed", "detector", d.Name(), "error", err)
				return nil
			}
			mu.Lock()
			perDetector[i] = events
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-p.window)
	seen, err := p.seen.SeenSince(ctx, userID, cutoff)
	if err != nil {
		return nil, err
	}

	var messages []model.ProactiveMessage
	surfaced := make(map[string]bool)
	for _, events := range perDetector {
		for _, e := range events {
			fp := e.Fingerprint()
			if seen[fp] || surfaced[fp] {
				continue
			}
			// The claim is persisted before surfacing. A lost claim or a
			// failed write both suppress the message rather than risk
			// surfacing it twice.
			claimed, err := p.seen.ClaimSurfaced(ctx, userID, fp, cutoff)
			if err != nil {
				p.logger.Error("proactive: claim surfaced failed", "fingerprint", fp, "error", err)
				continue
			}
			if !claimed {
				continue
			}
			surfaced[fp] = true
			messages = append(messages, model.ProactiveMessage{
				Fingerprint:      fp,
				Type:             e.Type,
				Message:          e.Message,
				SuggestedAgentID: e.SuggestedAgentID,
				Payload:          e.Payload,
			})
		}
	}
	return messages, nil
}
