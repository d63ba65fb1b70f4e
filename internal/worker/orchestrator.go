package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/plati-repricer/internal/model"
	"github.com/fairyhunter13/plati-repricer/internal/obs"
	"github.com/fairyhunter13/plati-repricer/internal/pricing"
)

// Row outcome labels reported to metrics and notes.
const (
	outcomeUpdated    = "updated"
	outcomeSuppressed = "suppressed"
	outcomeBelowMin   = "below_min"
	outcomeNoMinPrice = "no_min_price"
	outcomeFailed     = "failed"
)

// CompetitorSource yields marketplace offers for a listing URL.
type CompetitorSource interface {
	FetchOffers(ctx context.Context, listingURL, keywords string) ([]model.Offer, error)
}

// ProductCatalog looks up product base prices from the pricing API.
type ProductCatalog interface {
	ProductDescription(ctx context.Context, productID int64) (pricing.ProductPricing, error)
}

// SheetGateway hydrates auxiliary row data and writes diagnostics back.
type SheetGateway interface {
	HydrateAux(ctx context.Context, reqs []*model.PricingRequest) error
	WriteLogs(ctx context.Context, logs []model.RowLog) error
}

// UpdateSink receives finished price updates.
type UpdateSink interface {
	Add(ctx context.Context, u model.PriceUpdate) error
	Flush(ctx context.Context) error
}

// Config carries the orchestrator tunables.
type Config struct {
	ChunkSize  int
	ChunkPause time.Duration
	Retry      RetryPolicy
}

// Orchestrator partitions pricing requests into bounded concurrent chunks
// and drives each request's pipeline with retry.
type Orchestrator struct {
	cfg     Config
	offers  CompetitorSource
	catalog ProductCatalog
	sheets  SheetGateway
	sink    UpdateSink
	calc    *pricing.Calculator

	shuttingDown atomic.Bool
}

// New creates an Orchestrator.
func New(cfg Config, offers CompetitorSource, catalog ProductCatalog, sheets SheetGateway, sink UpdateSink) *Orchestrator {
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 1
	}
	return &Orchestrator{
		cfg:     cfg,
		offers:  offers,
		catalog: catalog,
		sheets:  sheets,
		sink:    sink,
		calc:    pricing.NewCalculator(),
	}
}

// RequestShutdown asks the orchestrator to stop after the in-flight chunk.
func (o *Orchestrator) RequestShutdown() { o.shuttingDown.Store(true) }

// IsShuttingDown reports whether shutdown has been requested.
func (o *Orchestrator) IsShuttingDown() bool { return o.shuttingDown.Load() }

// Run processes all requests in chunk order, then performs the final flush.
// Row-level failures never abort the run; flushes that fail retryably are
// retried with backoff at the end.
func (o *Orchestrator) Run(ctx context.Context, reqs []model.PricingRequest) error {
	runID := uuid.NewString()
	obs.Logger.Info("run_started", "run_id", runID, "requests", len(reqs), "chunk_size", o.cfg.ChunkSize)

	for start := 0; start < len(reqs); start += o.cfg.ChunkSize {
		if o.shuttingDown.Load() || ctx.Err() != nil {
			obs.Logger.Warn("run_interrupted", "run_id", runID, "processed", start)
			break
		}

		end := start + o.cfg.ChunkSize
		if end > len(reqs) {
			end = len(reqs)
		}
		o.processChunk(ctx, runID, reqs[start:end])

		if end < len(reqs) && o.cfg.ChunkPause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.cfg.ChunkPause):
			}
		}
	}

	// final flush; retryable submission failures back off here
	_, err := retry(ctx, o.cfg.Retry, func() (struct{}, error) {
		return struct{}{}, o.sink.Flush(ctx)
	})
	if err != nil {
		obs.Logger.Error("run_final_flush_failed", "run_id", runID, "error", err)
		return err
	}
	obs.Logger.Info("run_finished", "run_id", runID)
	return nil
}

// processChunk hydrates, runs, and logs one chunk. Tasks within the chunk run
// concurrently; the log writeback happens once after all of them finish.
func (o *Orchestrator) processChunk(ctx context.Context, runID string, chunk []model.PricingRequest) {
	started := time.Now()

	hydrated := make([]*model.PricingRequest, len(chunk))
	for i := range chunk {
		hydrated[i] = &chunk[i]
	}
	_, err := retry(ctx, o.cfg.Retry, func() (struct{}, error) {
		return struct{}{}, o.sheets.HydrateAux(ctx, hydrated)
	})

	logs := make([]model.RowLog, len(chunk))
	if err != nil {
		obs.Logger.Error("chunk_hydration_failed", "run_id", runID, "error", err)
		for i := range chunk {
			logs[i] = rowLog(chunk[i].RowIndex, "error: "+err.Error())
			obs.RowsProcessed.WithLabelValues(outcomeFailed).Inc()
		}
	} else {
		var wg sync.WaitGroup
		for i := range hydrated {
			wg.Add(1)
			go func(idx int, req *model.PricingRequest) {
				defer wg.Done()
				logs[idx] = o.runPipeline(ctx, req)
			}(i, hydrated[i])
		}
		wg.Wait()
	}

	if err := o.sheets.WriteLogs(ctx, logs); err != nil {
		obs.Logger.Error("chunk_log_writeback_failed", "run_id", runID, "error", err)
	}
	obs.ChunkDuration.Observe(time.Since(started).Seconds())
	obs.Logger.Info("chunk_processed", "run_id", runID, "rows", len(chunk), "elapsed_ms", time.Since(started).Milliseconds())
}

// runPipeline executes one request's pipeline under the retry policy and
// converts the outcome into its row log.
func (o *Orchestrator) runPipeline(ctx context.Context, req *model.PricingRequest) model.RowLog {
	note, err := retry(ctx, o.cfg.Retry, func() (string, error) {
		return o.pipeline(ctx, req)
	})
	if err != nil {
		obs.RowsProcessed.WithLabelValues(outcomeFailed).Inc()
		obs.Logger.Error("row_failed", "row", req.RowIndex, "product_id", req.ProductID, "error", err)
		return rowLog(req.RowIndex, "error: "+err.Error())
	}
	return rowLog(req.RowIndex, note)
}

// pipeline is one request's full flow: fetch competitor data, analyze,
// calculate, resolve variants, and enqueue the update.
func (o *Orchestrator) pipeline(ctx context.Context, req *model.PricingRequest) (string, error) {
	var (
		final    float64
		analysis *model.AnalysisResult
	)

	if req.MinPrice == nil {
		obs.RowsProcessed.WithLabelValues(outcomeNoMinPrice).Inc()
		return buildNote(req, nil, nil, outcomeNoMinPrice), nil
	}

	if req.CompareMode == model.CompareModeNone {
		final = *req.MinPrice
	} else {
		offers, err := o.offers.FetchOffers(ctx, req.ListingURL, req.Keywords)
		if err != nil {
			return "", err
		}
		filtered := pricing.FilterOffers(offers, req)

		res, err := pricing.Analyze(filtered, req.MinPrice, req.Blacklist)
		if err != nil {
			return "", err
		}
		analysis = &res

		final, err = o.calc.FinalPrice(res.CompetitivePrice, req.MinPrice, req.MaxPrice, req.Adjustment, req.Precision)
		if err != nil {
			return "", err
		}
	}
	req.TargetPrice = &final

	if final < *req.MinPrice {
		obs.RowsProcessed.WithLabelValues(outcomeBelowMin).Inc()
		return buildNote(req, &final, analysis, outcomeBelowMin), nil
	}

	update, outcome, err := o.prepareUpdate(ctx, req, final)
	if err != nil {
		return "", err
	}

	if err := o.sink.Add(ctx, *update); err != nil {
		// the batcher re-queued the snapshot; the row itself succeeded
		obs.Logger.Warn("update_flush_deferred", "row", req.RowIndex, "product_id", req.ProductID, "error", err)
	}

	obs.RowsProcessed.WithLabelValues(outcome).Inc()
	return buildNote(req, &final, analysis, outcome), nil
}

// prepareUpdate builds the PriceUpdate for the computed target price,
// resolving the variant delta and the conditional-compare suppression.
func (o *Orchestrator) prepareUpdate(ctx context.Context, req *model.PricingRequest, target float64) (*model.PriceUpdate, string, error) {
	if req.VariantID == nil && req.CompareMode != model.CompareModeConditional {
		return &model.PriceUpdate{ProductID: req.ProductID, Price: &target}, outcomeUpdated, nil
	}

	desc, err := o.catalog.ProductDescription(ctx, req.ProductID)
	if err != nil {
		return nil, "", err
	}
	current := desc.BasePrice
	req.CurrentPrice = &current

	if req.CompareMode == model.CompareModeConditional && current <= target {
		// existing price already beats the target; send nothing
		return &model.PriceUpdate{ProductID: req.ProductID, Ignore: true}, outcomeSuppressed, nil
	}

	if req.VariantID == nil {
		return &model.PriceUpdate{ProductID: req.ProductID, Price: &target}, outcomeUpdated, nil
	}

	delta, err := pricing.ResolveVariantDelta(*req.VariantID, target, req.Precision, desc)
	if err != nil {
		return nil, "", err
	}
	base := desc.BasePrice
	return &model.PriceUpdate{
		ProductID: req.ProductID,
		Price:     &base,
		Variants:  []model.VariantDelta{delta},
	}, outcomeUpdated, nil
}

func rowLog(rowIndex int, note string) model.RowLog {
	return model.RowLog{
		RowIndex:  rowIndex,
		Note:      note,
		UpdatedAt: time.Now().Format(noteTimeLayout),
	}
}
