// Package app wires configuration, logging, and the scraping components
// into a single container shared by the CLI commands.
package app

import (
	"go.uber.org/zap"

	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/clock/system"
	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/config"
	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/id/uuid"
	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/logging"
	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/metrics"
	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/scraper"
	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/store"
)

// App holds the fully wired service graph.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Store   *store.Store
	Scraper *scraper.Scraper
	Clock   system.Clock
}

// New builds the application from a config file path. An empty path loads
// defaults plus SCRAPER_* environment overrides.
func New(cfgFile string) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	metrics.Init()

	if cfg.Scraper.EnableLogs {
		logger.Info("configuration loaded",
			zap.Int("retry_attempts", cfg.Request.RetryAttempts),
			zap.Duration("timeout", cfg.RequestTimeout()),
			zap.Duration("delay_between_requests", cfg.RequestDelay()),
			zap.Bool("proxies_enabled", cfg.Proxy.Enabled),
			zap.Int("proxy_count", len(cfg.Proxy.Proxies)),
			zap.Bool("force_rescrape", cfg.Scraper.ForceRescrape),
			zap.String("data_dir", cfg.Storage.DataDir),
			zap.Int("server_port", cfg.Server.Port),
		)
	}

	snapshots, err := store.New(cfg.Storage.DataDir, logger)
	if err != nil {
		return nil, err
	}

	pool := scraper.NewProxyPool(cfg.Proxy.Proxies, cfg.Proxy.Rotation)
	client := scraper.NewClient(scraper.ClientConfig{
		UserAgent:      cfg.Request.UserAgent,
		RetryAttempts:  cfg.Request.RetryAttempts,
		Timeout:        cfg.RequestTimeout(),
		Delay:          cfg.RequestDelay(),
		ProxiesEnabled: cfg.Proxy.Enabled,
		ShowProxyInfo:  cfg.Logging.ShowProxyInfo,
		ShowProgress:   cfg.Logging.ShowProgress,
	}, pool, logger)

	clk := system.Clock{}
	detail := scraper.NewDetailExtractor(client, logger, cfg.Logging.ShowDetailedExtraction)
	listing := scraper.NewListingExtractor(detail, clk, logger, cfg.Logging.ShowDetailedExtraction)

	orchestrator := scraper.New(
		scraper.Settings{
			ForceRescrape: cfg.Scraper.ForceRescrape,
			ShowProgress:  cfg.Logging.ShowProgress,
		},
		client,
		listing,
		snapshots,
		clk,
		uuid.Generator{},
		logger,
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   snapshots,
		Scraper: orchestrator,
		Clock:   clk,
	}, nil
}

// Close flushes buffered log entries.
func (a *App) Close() {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
