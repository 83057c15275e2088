// Package main wires together the document acquisition service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/scribehq/docharvest/internal/api"
	"github.com/scribehq/docharvest/internal/catalog"
	"github.com/scribehq/docharvest/internal/config"
	"github.com/scribehq/docharvest/internal/document"
	"github.com/scribehq/docharvest/internal/extract"
	"github.com/scribehq/docharvest/internal/fetch"
	"github.com/scribehq/docharvest/internal/logging"
	"github.com/scribehq/docharvest/internal/metrics"
	"github.com/scribehq/docharvest/internal/pdftext"
	"github.com/scribehq/docharvest/internal/pipeline"
	pubsubpublisher "github.com/scribehq/docharvest/internal/publisher/pubsub"
	"github.com/scribehq/docharvest/internal/render"
	gcsstore "github.com/scribehq/docharvest/internal/storage/gcs"
	localstore "github.com/scribehq/docharvest/internal/storage/local"
	supabasestore "github.com/scribehq/docharvest/internal/storage/supabase"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}
	defer closeStore()
	storeBase := ""
	if store != nil {
		storeBase = store.BaseURL()
	}

	var cat document.Catalog
	if cfg.DB.DSN != "" {
		pgCatalog, err := catalog.New(ctx, catalog.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			logger.Fatal("catalog init failed", zap.Error(err))
		}
		defer pgCatalog.Close()
		if err := pgCatalog.EnsureSchema(ctx); err != nil {
			logger.Fatal("catalog schema init failed", zap.Error(err))
		}
		cat = pgCatalog
	} else {
		logger.Warn("no database configured, acquisitions will not be cataloged")
	}

	var pub document.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		p, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			logger.Warn("pubsub publisher init failed", zap.Error(err))
		} else {
			defer func() {
				if closeErr := p.Close(); closeErr != nil {
					logger.Warn("pubsub publisher close failed", zap.Error(closeErr))
				}
			}()
			pub = p
		}
	}

	renderer := render.New(render.NewPDFWriter(), store, cfg.Render.OutputDir, logger.Named("render"))

	var acquirer api.Acquirer
	session, err := fetch.NewSession(fetch.SessionConfig{
		UserAgent:   cfg.Fetch.UserAgent,
		Settle:      cfg.Settle(),
		ScrollPause: cfg.ScrollPause(),
	}, logger.Named("chrome"))
	if err != nil {
		logger.Error("browser session init failed, scrape requests will be rejected", zap.Error(err))
	} else {
		defer session.Close()
		static := fetch.NewStaticFetcher(fetch.StaticConfig{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.StaticTimeout(),
		})
		chain := fetch.NewChain(fetch.ChainConfig{
			MaxAttempts:  cfg.Fetch.MaxAttempts,
			RetryBackoff: cfg.RetryBackoff(),
			NavTimeout:   cfg.NavTimeout(),
		}, session, static, logger.Named("fetch"))

		acquisition, err := pipeline.NewAcquisition(pipeline.AcquisitionOptions{
			Fetcher:   chain,
			Clean:     extract.Clean,
			Renderer:  renderer,
			Catalog:   cat,
			Publisher: pub,
			StoreBase: storeBase,
			Logger:    logger.Named("pipeline"),
		})
		if err != nil {
			logger.Fatal("pipeline init failed", zap.Error(err))
		}
		acquirer = acquisition
	}

	var processor api.Processor
	if cat != nil {
		reprocessor, err := pipeline.NewReprocessor(cat, pdftext.New(), nil, logger.Named("reprocess"))
		if err != nil {
			logger.Fatal("reprocessor init failed", zap.Error(err))
		}
		processor = reprocessor
	}

	apiServer := api.NewServer(acquirer, processor, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newBlobStore builds the configured store. A nil store with a nil error
// means no storage is configured; artifacts then land in the local output
// directory and are not cataloged.
func newBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (document.BlobStore, func(), error) {
	noop := func() {}
	switch cfg.Storage.Provider {
	case "supabase":
		if cfg.Storage.Endpoint == "" && cfg.Storage.Key == "" && cfg.Storage.Bucket == "" {
			logger.Warn("no object storage configured, artifacts will be written locally")
			return nil, noop, nil
		}
		store, err := supabasestore.New(supabasestore.Config{
			Endpoint: cfg.Storage.Endpoint,
			Key:      cfg.Storage.Key,
			Bucket:   cfg.Storage.Bucket,
		})
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case "gcs":
		store, err := gcsstore.New(ctx, cfg.Storage.GCSBucket)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Warn("gcs store close failed", zap.Error(closeErr))
			}
		}, nil
	case "local":
		store, err := localstore.New(localstore.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}
