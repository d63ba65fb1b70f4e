// Package batch implements the pending-update buffer with threshold flushes.
package batch

import (
	"context"
	"sync"

	"github.com/fairyhunter13/plati-repricer/internal/model"
	"github.com/fairyhunter13/plati-repricer/internal/obs"
	"github.com/fairyhunter13/plati-repricer/internal/pricing"
)

// Submitter pushes a consolidated batch to the pricing API.
// It returns the remote submission (task) id on success.
type Submitter interface {
	BulkUpdatePrices(ctx context.Context, updates []model.PriceUpdate) (string, error)
}

// Batcher owns the pending price updates shared by concurrent pipelines.
//
// One mutex guards every read and write of the pending list and serializes
// flushes: the consolidation invariant (last authoritative price wins) only
// holds if flushes never overlap.
type Batcher struct {
	mu        sync.Mutex
	pending   []model.PriceUpdate
	threshold int
	submitter Submitter
	seq       Sequencer
}

// New creates a Batcher flushing after threshold pending updates.
func New(submitter Submitter, threshold int) *Batcher {
	if threshold < 1 {
		threshold = 1
	}
	return &Batcher{threshold: threshold, submitter: submitter}
}

// Add appends an update and flushes when the threshold is reached.
// Ownership of the update transfers to the Batcher.
func (b *Batcher) Add(ctx context.Context, u model.PriceUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, u)
	if len(b.pending) >= b.threshold {
		return b.flushLocked(ctx)
	}
	return nil
}

// Flush submits all pending updates now.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

// Close performs the final flush. Call on scoped teardown so a partially
// filled batch is never lost.
func (b *Batcher) Close(ctx context.Context) error {
	return b.Flush(ctx)
}

// PendingSize returns the number of buffered updates.
func (b *Batcher) PendingSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// flushLocked snapshots and clears pending, consolidates the snapshot and
// submits it. On any failure the whole snapshot is re-inserted at the front
// of pending, preserving earliest-first ordering; there is no partial retry
// of individual items. Caller must hold b.mu.
func (b *Batcher) flushLocked(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	snapshot := b.pending
	b.pending = nil

	flushID := b.seq.Next()
	consolidated := pricing.Consolidate(snapshot)
	obs.BatchSize.Observe(float64(len(consolidated)))
	if len(consolidated) == 0 {
		// all updates were suppressed; nothing to send
		return nil
	}

	taskID, err := b.submitter.BulkUpdatePrices(ctx, consolidated)
	if err != nil {
		b.pending = append(snapshot, b.pending...)
		obs.BatchFlushes.WithLabelValues("failure").Inc()
		obs.Logger.Error("batch_flush_failed",
			"flush_id", flushID,
			"raw_count", len(snapshot),
			"consolidated_count", len(consolidated),
			"error", err,
		)
		return err
	}

	obs.BatchFlushes.WithLabelValues("success").Inc()
	obs.Logger.Info("batch_flushed",
		"flush_id", flushID,
		"raw_count", len(snapshot),
		"consolidated_count", len(consolidated),
		"task_id", taskID,
	)
	return nil
}
