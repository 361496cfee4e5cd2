package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speedwagon-io/gauge/internal/api"
	"github.com/speedwagon-io/gauge/internal/buffer"
	"github.com/speedwagon-io/gauge/internal/collector"
	"github.com/speedwagon-io/gauge/internal/collector/adapters"
	"github.com/speedwagon-io/gauge/internal/config"
	"github.com/speedwagon-io/gauge/internal/health"
	"github.com/speedwagon-io/gauge/internal/lib/logger/sl"
	"github.com/speedwagon-io/gauge/internal/sender"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dryRun := flag.Bool("dry-run", false, "log readings instead of sending")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	log := sl.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	log.Info("starting gauge collector",
		slog.String("env", cfg.Env),
		slog.Bool("dry_run", *dryRun),
	)

	targetsCfg := config.MustLoadTargets(cfg.Targets.ConfigPath)

	log.Info("loaded targets config",
		slog.String("source_id", targetsCfg.SourceID),
		slog.String("source_name", targetsCfg.SourceName),
		slog.Int("targets", len(targetsCfg.Targets)),
	)

	var coll collector.Collector
	switch targetsCfg.Connection.Adapter {
	case adapters.MetricsAPIName:
		coll = adapters.NewMetricsAPIAdapter(
			log,
			targetsCfg.Connection.BaseURL,
			targetsCfg.Connection.Timeout,
		)
	default:
		log.Error("unknown adapter", slog.String("adapter", targetsCfg.Connection.Adapter))
		os.Exit(1)
	}

	var readingsSender sender.Sender
	if *dryRun {
		readingsSender = sender.NewLogSender(log)
		log.Info("dry-run mode: readings will be logged instead of sent")
	} else {
		readingsSender = sender.NewHTTPSender(log, &cfg.Sender, targetsCfg.SourceID)
	}

	var buf buffer.Buffer
	var sqliteBuf *buffer.SQLiteBuffer
	if cfg.Buffer.Enabled && !*dryRun {
		var err error
		sqliteBuf, err = buffer.NewSQLiteBuffer(log, cfg.Buffer.Path)
		if err != nil {
			log.Error("failed to create buffer", sl.Err(err))
			os.Exit(1)
		}
		buf = sqliteBuf
		log.Info("buffer enabled", slog.String("path", cfg.Buffer.Path))

		if counts, err := sqliteBuf.CountByLevel(context.Background()); err != nil {
			log.Warn("failed to inspect buffer", sl.Err(err))
		} else {
			for level, count := range counts {
				log.Info("envelopes pending from previous run",
					slog.String("worst", level.String()),
					slog.Int64("count", count),
				)
			}
		}
	}

	manager := collector.NewManager(log, cfg, targetsCfg, coll, readingsSender, buf)

	httpServer := health.NewServer(log, cfg.HTTP.Address)
	httpServer.AddChecker(health.NewSenderHealthChecker(readingsSender.Health))
	if sqliteBuf != nil {
		httpServer.AddChecker(health.NewBufferHealthChecker(sqliteBuf.Count, health.DefaultBufferThreshold))
	}
	httpServer.AddChecker(health.NewReadingsHealthChecker(manager.Latest, 3*targetsCfg.Polling.Interval))
	httpServer.SetReadyFunc(func() bool { return len(manager.Latest()) > 0 })
	httpServer.Mount("/api/v1", api.NewHandler(log, manager.Latest).Routes())

	if err := httpServer.Start(); err != nil {
		log.Error("failed to start http server", sl.Err(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	manager.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	manager.Stop()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error("failed to stop http server", sl.Err(err))
	}

	if buf != nil {
		if err := buf.Close(); err != nil {
			log.Error("failed to close buffer", sl.Err(err))
		}
	}

	log.Info("collector stopped")
}
