package query

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stake-plus/legal-agent/src/webclient"
)

const sweepBatch = 50

// Janitor deletes threads that a request failed to clean up. It never touches
// a live request; it only works from the orphan ledger.
type Janitor struct {
	svc      *Service
	ledger   OrphanLedger
	interval time.Duration
	log      zerolog.Logger
}

func NewJanitor(svc *Service, ledger OrphanLedger, interval time.Duration, log zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{
		svc:      svc,
		ledger:   ledger,
		interval: interval,
		log:      log.With().Str("component", "janitor").Logger(),
	}
}

// Run sweeps on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.log.Warn().Err(err).Msg("orphan sweep failed")
			}
		}
	}
}

// Sweep deletes pending orphan threads and returns how many were resolved.
// Threads the platform no longer knows about count as resolved.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	pending, err := j.ledger.Pending(ctx, sweepBatch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	client, release, err := j.svc.open(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	resolved := 0
	for _, threadID := range pending {
		delErr := client.DeleteThread(ctx, threadID)
		if delErr != nil && !webclient.IsStatus(delErr, http.StatusNotFound) {
			j.log.Warn().Err(delErr).Str("thread_id", threadID).Msg("orphan thread still present")
			continue
		}
		if err := j.ledger.Resolve(ctx, threadID); err != nil {
			return resolved, err
		}
		resolved++
	}
	j.log.Info().Int("pending", len(pending)).Int("resolved", resolved).Msg("orphan sweep")
	return resolved, nil
}
