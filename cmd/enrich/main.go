package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"modu-catholic/internal/config"
	"modu-catholic/internal/enrich"
	"modu-catholic/internal/kakao"
	"modu-catholic/internal/logging"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "configuration file")
	maxItems := flag.Int("max-items", 0, "max parishes to enrich (0 = all)")
	force := flag.Bool("force", false, "re-enrich parishes already at the current version")
	dryRun := flag.Bool("dry-run", false, "enrich but do not write the dataset")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log, err := logging.New(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	apiKey := os.Getenv("KAKAO_API_KEY")
	if apiKey == "" {
		log.Fatal("KAKAO_API_KEY environment variable is required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	enricher := enrich.NewEnricher(kakao.NewClient(apiKey, ""), cfg.Pipeline, enrich.Options{
		MaxItems:    *maxItems,
		ForceUpdate: *force,
		DryRun:      *dryRun,
	}, log)

	summary, err := enricher.Run(context.Background())
	if err != nil {
		log.Fatal("enrichment failed", zap.Error(err))
	}
	log.Info("enrichment finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	if summary.Failed > 0 && summary.Processed == summary.Failed {
		os.Exit(1)
	}
}
