// Package main boots the Plati repricer loop and its observability server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/plati-repricer/internal/batch"
	"github.com/fairyhunter13/plati-repricer/internal/config"
	"github.com/fairyhunter13/plati-repricer/internal/digiseller"
	httpapi "github.com/fairyhunter13/plati-repricer/internal/http"
	"github.com/fairyhunter13/plati-repricer/internal/market"
	"github.com/fairyhunter13/plati-repricer/internal/obs"
	"github.com/fairyhunter13/plati-repricer/internal/sheet"
	"github.com/fairyhunter13/plati-repricer/internal/worker"
)

func main() {
	cfg := config.Load()
	obs.InitLogger()
	obs.InitMetrics()
	obs.Logger.Info("repricer_starting")

	sheetClient, err := sheet.NewClient(cfg.GoogleKeyPath, cfg.HTTPTimeout)
	if err != nil {
		obs.Logger.Error("sheet_client_init_failed", "error", err)
		os.Exit(1)
	}
	sheets := sheet.NewService(sheetClient, cfg.SpreadsheetID, cfg.SheetName, cfg.DefaultPrecision)

	api := digiseller.New(cfg.DigisellerBaseURL, cfg.SellerID, cfg.APIKey, cfg.HTTPTimeout)
	scraper := market.NewScraper(cfg.MarketBaseURL, cfg.HTTPTimeout)
	batcher := batch.New(api, cfg.FlushThreshold)

	orch := worker.New(worker.Config{
		ChunkSize:  cfg.ChunkSize,
		ChunkPause: cfg.ChunkPause,
		Retry: worker.RetryPolicy{
			MaxAttempts:     uint(cfg.RetryMaxAttempts),
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
		},
	}, scraper, api, sheets, batcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := httpapi.NewApp(cfg, orch, batcher)
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		s := <-sigc
		obs.Logger.Info("shutdown_signal", "signal", s.String())
		orch.RequestShutdown()
		cancel()
	}()

	for !orch.IsShuttingDown() {
		runPass(ctx, cfg, sheets, api, orch)
		select {
		case <-ctx.Done():
		case <-time.After(cfg.PassSleep):
		}
	}

	// final flush so a partially filled batch is never lost
	ctxFlush, cancelFlush := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelFlush()
	if err := batcher.Close(ctxFlush); err != nil {
		obs.Logger.Error("final_flush_failed", "error", err)
	}

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	obs.Logger.Info("repricer_stopped")
}

// runPass executes one full repricing cycle: load the tracked rows, process
// them in chunks, then refresh the seller-items export if configured.
func runPass(ctx context.Context, cfg config.Config, sheets *sheet.Service, api *digiseller.Client, orch *worker.Orchestrator) {
	reqs, err := sheets.Requests(ctx)
	if err != nil {
		obs.Logger.Error("pass_load_failed", "error", err)
		return
	}
	if err := orch.Run(ctx, reqs); err != nil {
		obs.Logger.Error("pass_run_failed", "error", err)
	}

	if cfg.ExportSpreadsheetID == "" || orch.IsShuttingDown() {
		return
	}
	items, err := api.SellerItems(ctx)
	if err != nil {
		obs.Logger.Error("export_fetch_failed", "error", err)
		return
	}
	if err := sheets.ExportItems(ctx, cfg.ExportSpreadsheetID, cfg.ExportSheetName, items); err != nil {
		obs.Logger.Error("export_write_failed", "error", err)
	}
}
