package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"madlan-crawler/internal/browser"
	"madlan-crawler/internal/cleanup"
	"madlan-crawler/internal/config"
	"madlan-crawler/internal/extract"
	"madlan-crawler/internal/frontier"
	"madlan-crawler/internal/governor"
	"madlan-crawler/internal/handlers"
	"madlan-crawler/internal/pipeline"
	"madlan-crawler/internal/scheduler"
	"madlan-crawler/internal/storage"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "crawler",
		Short: "Crawl madlan.co.il property listings into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&configPath, "config", "config.yaml", "path to YAML config file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using system environment")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Error().Msg(e.Error())
		}
		log.Fatal().Int("violations", len(errs)).Msg("invalid configuration")
	}

	setupLogging(cfg.Logging.Level)

	if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create storage directory")
		}
	}

	db, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).
			Str("path", cfg.Storage.Path).Msg("failed to open storage")
	}
	defer db.Close()

	log.Info().Str("backend", cfg.Storage.Backend).Str("path", cfg.Storage.Path).
		Str("city", cfg.City).Msg("storage ready")

	fr := frontier.New(db)
	gov := governor.New(governor.Config{
		ConcurrencyMin:    cfg.Crawler.ConcurrencyMin,
		ConcurrencyMax:    cfg.Crawler.ConcurrencyMax,
		RequestsPerMinute: cfg.Crawler.RequestsPerMinute,
		DelayMin:          cfg.Crawler.DelayMin(),
		DelayMax:          cfg.Crawler.DelayMax(),
		RotateSession:     cfg.Crawler.RotateSession,
		SessionDelayMin:   cfg.Crawler.SessionDelayMin(),
		SessionDelayMax:   cfg.Crawler.SessionDelayMax(),
		MaxRetries:        cfg.Crawler.MaxRetries,
	})

	factory := browser.NewChromeFactory(browser.ChromeConfig{
		ExecPath:   cfg.Browser.ExecPath,
		Headless:   cfg.Browser.Headless,
		UserAgent:  cfg.Browser.UserAgent,
		NavTimeout: cfg.Browser.Timeout(),
		APIPattern: regexp.MustCompile(extract.APIPathPattern),
	})

	pipe := pipeline.New(cfg, db, fr, gov, factory)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Admin.Enabled {
		admin := handlers.NewAdmin(fr, gov, cleanup.NewService(db), cfg.City)
		srv := &http.Server{Addr: cfg.Admin.ListenAddr, Handler: admin.Router()}
		go func() {
			log.Info().Str("addr", cfg.Admin.ListenAddr).Msg("admin API listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("admin API stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Scheduler.DailyRunEnabled {
		sched := scheduler.New(pipe, cfg)
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler")
		}
		defer sched.Stop()

		log.Info().Msg("running in daemon mode, waiting for scheduled crawls")
		<-ctx.Done()
		log.Info().Msg("shutting down")
		return nil
	}

	report, err := pipe.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("crawl run failed")
		return err
	}

	log.Info().Str("run_id", report.RunID).Str("city", report.City).
		Int("succeeded", report.Succeeded).Int("failed", report.Failed).
		Dur("duration", report.Duration).Msg("crawl run complete")
	return nil
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
