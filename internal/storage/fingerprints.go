package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ClaimSurfaced atomically claims a fingerprint for surfacing. It returns
// true when this caller won the claim: either no row existed, or the prior
// surfacing is at or before the cutoff and therefore outside the dedup
// window. A false return means another caller holds a live claim, so the
// message must be suppressed. The conditional upsert is the idempotence
// point for the proactive pipeline; concurrent claims of the same
// fingerprint resolve to exactly one winner.
func (db *DB) ClaimSurfaced(ctx context.Context, userID uuid.UUID, fingerprint string, cutoff time.Time) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO proactive_fingerprints (user_id, fingerprint, surfaced_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id, fingerprint) DO UPDATE SET surfaced_at = now()
		 WHERE proactive_fingerprints.surfaced_at <= $3`,
		userID, fingerprint, cutoff,
	)
	if err != nil {
		return false, fmt.Errorf("storage: claim surfaced: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SeenSince returns the set of the user's fingerprints surfaced after the
// given cutoff. Fingerprints older than the cutoff are eligible to surface
// again.
func (db *DB) SeenSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (map[string]bool, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT fingerprint FROM proactive_fingerprints
		 WHERE user_id = $1 AND surfaced_at > $2`,
		userID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: seen since: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("storage: scan fingerprint: %w", err)
		}
		seen[fp] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: seen since: %w", err)
	}
	return seen, nil
}

// PruneFingerprints deletes fingerprints surfaced before the cutoff.
// Run periodically to keep the seen-set bounded.
func (db *DB) PruneFingerprints(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM proactive_fingerprints WHERE surfaced_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: prune fingerprints: %w", err)
	}
	return tag.RowsAffected(), nil
}
