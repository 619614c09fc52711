package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"modu-catholic/internal/config"
	"modu-catholic/internal/gemini"
	"modu-catholic/internal/logging"
	"modu-catholic/internal/publish"
	"modu-catholic/internal/store"
	"modu-catholic/internal/wordpress"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "configuration file")
	stateDir := flag.String("state-dir", "data/state", "local directory for the published log")
	maxItems := flag.Int("max-items", 0, "max parishes to publish (0 = all)")
	dryRun := flag.Bool("dry-run", false, "render but do not post")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log, err := logging.New(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	wpURL := os.Getenv("WP_URL")
	wpUser := os.Getenv("WP_USER")
	wpPassword := os.Getenv("WP_APP_PASSWORD")
	if wpURL == "" || wpUser == "" || wpPassword == "" {
		log.Fatal("WP_URL, WP_USER and WP_APP_PASSWORD environment variables are required")
	}

	categoryID := 0
	if v := os.Getenv("WP_CATEGORY_ID"); v != "" {
		categoryID, err = strconv.Atoi(v)
		if err != nil {
			log.Fatal("parsing WP_CATEGORY_ID", zap.String("value", v), zap.Error(err))
		}
	}
	defaultImageID := 0
	if v := os.Getenv("DEFAULT_IMAGE_ID"); v != "" {
		defaultImageID, err = strconv.Atoi(v)
		if err != nil {
			log.Fatal("parsing DEFAULT_IMAGE_ID", zap.String("value", v), zap.Error(err))
		}
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	ctx := context.Background()

	// The published log lives in GCS when a bucket is configured, so
	// runs from different machines see the same log.
	var st store.Store
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		gcs, err := store.NewGCS(ctx, bucket, "pipeline")
		if err != nil {
			log.Fatal("opening GCS store", zap.Error(err))
		}
		defer gcs.Close()
		st = gcs
		log.Info("using GCS store", zap.String("bucket", bucket))
	} else {
		local, err := store.NewLocal(*stateDir)
		if err != nil {
			log.Fatal("opening local store", zap.Error(err))
		}
		st = local
	}

	// An empty GEMINI_API_KEY still builds a client; every generation
	// then fails and the publisher falls back to the template intro.
	gen := gemini.NewClient(os.Getenv("GEMINI_API_KEY"), "")
	site := wordpress.NewClient(wpURL, wpUser, wpPassword)

	publisher := publish.NewPublisher(gen, site, st, cfg.Pipeline, publish.Options{
		MaxItems:       *maxItems,
		DryRun:         *dryRun,
		CategoryID:     categoryID,
		DefaultImageID: defaultImageID,
	}, log)

	summary, err := publisher.Run(ctx)
	if err != nil {
		log.Fatal("publishing failed", zap.Error(err))
	}
	log.Info("publishing finished",
		zap.Int("processed", summary.Processed),
		zap.Int("success", summary.Success),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	if summary.Failed > 0 && summary.Success == 0 {
		os.Exit(1)
	}
}
