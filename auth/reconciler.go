package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fieldcollect/go-session-server/directory"
	"github.com/fieldcollect/go-session-server/internal/metrics"
	"github.com/fieldcollect/go-session-server/principals"
	"github.com/fieldcollect/go-session-server/sessions"
)

// Reconciler copies the directory's authoritative active sessions into the
// cache. It runs once at process start, before traffic is accepted, and may be
// scheduled periodically to heal drift.
type Reconciler struct {
	directory directory.CredentialDirectory
	store     sessions.Store
	metrics   *metrics.Metrics
}

type ReconcilerOption func(*Reconciler)

// WithMetrics wires the reconciler's counters.
func WithMetrics(m *metrics.Metrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

func NewReconciler(dir directory.CredentialDirectory, store sessions.Store, opts ...ReconcilerOption) (*Reconciler, error) {
	if dir == nil {
		return nil, errors.New("[NewReconciler] directory is required")
	}
	if store == nil {
		return nil, errors.New("[NewReconciler] store is required")
	}

	r := &Reconciler{directory: dir, store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunOnce reconciles all three principal kinds sequentially. A per-record
// cache failure is logged and skipped; a failure to reach the directory
// aborts the entire run.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	restored, skipped := 0, 0

	for _, kind := range principals.Kinds() {
		active, err := r.directory.ListActive(ctx, kind)
		if err != nil {
			return errors.Wrapf(err, "[Reconciler.RunOnce] list active %s", kind)
		}

		for _, info := range active {
			if err := r.store.UpsertForPrincipal(ctx, sessions.FromPrincipal(info, info.Token)); err != nil {
				log.Error().Err(err).
					Str("kind", string(kind)).
					Str("username", info.Username).
					Msg("failed to restore session, skipping record")
				skipped++
				if r.metrics != nil {
					r.metrics.ReconcileFailures.Inc()
				}
				continue
			}
			restored++
			if r.metrics != nil {
				r.metrics.SessionsReconciled.Inc()
			}
		}
	}

	log.Info().Int("restored", restored).Int("skipped", skipped).Msg("session reconciliation complete")
	return nil
}

// RunEvery re-runs reconciliation on a fixed interval until ctx is cancelled.
// Failed runs are logged and the schedule continues.
func (r *Reconciler) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("periodic session reconciliation failed")
			}
		}
	}
}
