package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recipeharvest/crawler/internal/api"
	"github.com/recipeharvest/crawler/internal/config"
	"github.com/recipeharvest/crawler/internal/database/postgres"
	"github.com/recipeharvest/crawler/internal/fetch"
	"github.com/recipeharvest/crawler/internal/logging"
	"github.com/recipeharvest/crawler/internal/metrics"
	pubsubpublisher "github.com/recipeharvest/crawler/internal/publisher/pubsub"
	"github.com/recipeharvest/crawler/internal/render"
	"github.com/recipeharvest/crawler/internal/scraper"
	gcsstorage "github.com/recipeharvest/crawler/internal/storage/gcs"
	localstorage "github.com/recipeharvest/crawler/internal/storage/local"
	memorystorage "github.com/recipeharvest/crawler/internal/storage/memory"
	"github.com/recipeharvest/crawler/internal/worker"
)

var (
	maxItems    int
	concurrency int
)

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs a full crawl of the configured recipe site",
		Long: `Discovers categories from the A-Z index, gathers recipe URLs across every
listing page, then renders and persists each recipe. Records already present
in the database are left untouched.`,
		RunE: runCrawl,
	}
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "override the configured item cap")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "override the configured worker count")
	return cmd
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if maxItems > 0 {
		cfg.Site.ItemCap = maxItems
	}
	if concurrency > 0 {
		cfg.Crawler.Concurrency = concurrency
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := crawl(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("crawl finished",
		zap.Int("categories", report.Categories),
		zap.Int("urls", report.URLs),
		zap.Int("records_written", report.RecordsWritten),
		zap.Int("records_skipped", report.RecordsSkipped),
		zap.Int("pages_failed", report.PagesFailed),
	)
	return nil
}

func crawl(ctx context.Context, cfg config.Config, logger *zap.Logger) (scraper.RunReport, error) {
	var report scraper.RunReport

	fetchClient := fetch.New(fetch.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})

	indexDoc, err := fetchClient.Document(ctx, cfg.Site.IndexURL)
	if err != nil {
		return report, fmt.Errorf("fetch index page: %w", err)
	}
	categories := scraper.NewDiscoverer(cfg.Selectors, logger.Named("discover")).Discover(indexDoc)
	report.Categories = len(categories)
	logger.Info("categories discovered", zap.Int("count", len(categories)))

	renderCfg := render.Config{
		UserAgent:       cfg.Crawler.UserAgent,
		NavTimeout:      cfg.NavTimeout(),
		Settle:          cfg.Settle(),
		DismissSelector: cfg.Selectors.CookieDismiss,
	}

	urls, err := collectURLs(ctx, cfg, renderCfg, categories, logger)
	if err != nil {
		return report, err
	}
	report.URLs = len(urls)
	logger.Info("recipe urls gathered", zap.Int("count", len(urls)))

	gateway, cleanup, err := buildGateway(ctx, cfg, fetchClient, logger)
	if err != nil {
		return report, err
	}
	defer cleanup()

	pool := worker.New(
		func(context.Context) (scraper.Session, error) {
			return render.NewSession(renderCfg, logger.Named("session"))
		},
		scraper.NewExtractor(cfg.Selectors, logger.Named("extract")),
		gateway,
		worker.Config{Concurrency: cfg.Crawler.Concurrency},
		logger.Named("pool"),
	)

	var statusServer *api.Server
	if cfg.Server.Enabled {
		statusServer = api.NewServer(pool.Snapshot, logger.Named("api"))
		statusServer.Start(fmt.Sprintf(":%d", cfg.Server.Port))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := statusServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown", zap.Error(err))
			}
		}()
	}

	status, err := pool.Run(ctx, urls)
	report.RecordsWritten = int(status.Written)
	report.RecordsSkipped = int(status.Skipped)
	report.PagesFailed = int(status.Failed)
	if err != nil && !errors.Is(err, context.Canceled) {
		return report, fmt.Errorf("run workers: %w", err)
	}
	return report, nil
}

// collectURLs walks every category's listing pages with a single render
// session and returns the gathered recipe URLs.
func collectURLs(
	ctx context.Context,
	cfg config.Config,
	renderCfg render.Config,
	categories []scraper.CategoryLink,
	logger *zap.Logger,
) ([]string, error) {
	session, err := render.NewSession(renderCfg, logger.Named("session"))
	if err != nil {
		return nil, fmt.Errorf("start render session: %w", err)
	}
	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			logger.Warn("close render session", zap.Error(cerr))
		}
	}()

	walker := scraper.NewWalker(session, cfg.Selectors, logger.Named("walk"))
	orch := scraper.NewOrchestrator(walker, cfg.Site.ItemCap, logger.Named("orchestrate"))
	return orch.CollectURLs(ctx, categories)
}

// buildGateway wires the persistence backends selected by configuration. The
// returned cleanup closes every backend it opened.
func buildGateway(
	ctx context.Context,
	cfg config.Config,
	images scraper.ImageFetcher,
	logger *zap.Logger,
) (*scraper.Gateway, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	cloud, closeCloud, err := buildCloudStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if closeCloud != nil {
		closers = append(closers, closeCloud)
	}

	staging, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.StagingDir})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init staging store: %w", err)
	}

	if cfg.DB.DSN == "" {
		cleanup()
		return nil, nil, errors.New("db.dsn is required")
	}
	records, err := postgres.NewRecipeStore(ctx, postgres.RecipeStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init record store: %w", err)
	}
	closers = append(closers, records.Close)

	var publisher scraper.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.Topic != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init pubsub client: %w", err)
		}
		pub := pubsubpublisher.New(client)
		closers = append(closers, func() {
			pub.Stop()
			if cerr := client.Close(); cerr != nil {
				logger.Warn("close pubsub client", zap.Error(cerr))
			}
		})
		publisher = pub
	}

	gateway := scraper.NewGateway(
		images,
		staging,
		cloud,
		records,
		publisher,
		scraper.GatewayConfig{Prefix: cfg.Storage.Prefix, Topic: cfg.PubSub.Topic},
		logger.Named("persist"),
	)
	return gateway, cleanup, nil
}

func buildCloudStore(ctx context.Context, cfg config.Config) (scraper.BlobStore, func(), error) {
	switch cfg.Storage.Backend {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := gcsstorage.New(ctx, client, gcsstorage.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("init gcs store: %w", err)
		}
		return store, func() { _ = client.Close() }, nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local store: %w", err)
		}
		return store, nil, nil
	case "memory":
		return memorystorage.NewBlobStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
