package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"modu-catholic/internal/collect"
	"modu-catholic/internal/config"
	"modu-catholic/internal/goodnews"
	"modu-catholic/internal/logging"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "configuration file")
	keyword := flag.String("keyword", "", "search keyword (empty = full listing)")
	startPage := flag.Int("start-page", 1, "first listing page to fetch")
	maxPages := flag.Int("max-pages", 0, "max listing pages (0 = default)")
	pageSize := flag.Int("page-size", 0, "listing page size (0 = default)")
	maxItems := flag.Int("max-items", 0, "max parishes to collect (0 = default)")
	skipDetails := flag.Bool("skip-details", false, "skip detail-page fetches")
	force := flag.Bool("force", false, "re-fetch parishes already in the dataset")
	dryRun := flag.Bool("dry-run", false, "collect but do not write files")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log, err := logging.New(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	client := goodnews.NewClient("", "", log)
	collector := collect.NewCollector(client, cfg.Pipeline, collect.Options{
		Keyword:      *keyword,
		StartPage:    *startPage,
		PageSize:     *pageSize,
		MaxPages:     *maxPages,
		MaxItems:     *maxItems,
		FetchDetails: !*skipDetails,
		ForceUpdate:  *force,
		DryRun:       *dryRun,
	}, log)

	summary, err := collector.Run(context.Background())
	if err != nil {
		log.Fatal("collection failed", zap.Error(err))
	}
	log.Info("collection finished",
		zap.Int("collected", summary.Collected),
		zap.Int("skipped", summary.Skipped),
		zap.Int("missing_mass_times", summary.Missing),
		zap.Int("updated", summary.Updated),
		zap.Int("added", summary.Added),
		zap.Int("total", summary.Total))
}
