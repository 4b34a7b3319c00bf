package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fundflow/config"
	"fundflow/logger"
	"fundflow/processor"
	"fundflow/reader/bitfinex"
	"fundflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	interval := flag.Duration("interval", 0, "Refresh interval; zero runs a single cycle and exits")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	env := config.AppEnvironment()
	if config.IsProductionLike(env) && (cfg.Source.Bitfinex.APIKey == "" || cfg.Source.Bitfinex.APISecret == "") {
		log.WithFields(logger.Fields{"environment": env}).Error("API credentials are required outside development")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Fundflow.Name,
		"version":     cfg.Fundflow.Version,
		"environment": env,
	}).Info("starting fundflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := bitfinex.NewReader(cfg)
	pipeline := processor.NewPipeline(cfg)

	var snapshotWriter *writer.SnapshotWriter
	if cfg.Storage.Snapshot.Enabled || cfg.Storage.S3.Enabled {
		snapshotWriter, err = writer.NewSnapshotWriter(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create snapshot writer")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("snapshot storage disabled; reports go to stdout only")
	}

	runCycle := func() {
		asOf := time.Now().UTC()
		fetched := reader.FetchAll(ctx, asOf)

		report, err := pipeline.Run(fetched, asOf)
		if err != nil {
			log.WithError(err).Error("refresh cycle failed")
			return
		}

		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.WithError(err).Error("failed to encode report")
			return
		}
		os.Stdout.Write(append(encoded, '\n'))

		if snapshotWriter != nil {
			if err := snapshotWriter.Write(ctx, report); err != nil {
				log.WithError(err).Warn("failed to persist snapshot")
			}
		}
	}

	runCycle()

	if *interval <= 0 {
		log.Info("fundflow cycle complete")
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
			cancel()
			log.Info("fundflow stopped")
			return
		case <-ticker.C:
			runCycle()
		}
	}
}
