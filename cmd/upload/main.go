package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"modu-catholic/internal/collect"
	"modu-catholic/internal/config"
	"modu-catholic/internal/firestore"
	"modu-catholic/internal/logging"
	"modu-catholic/internal/model"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "configuration file")
	collection := flag.String("collection", "parishes", "Firestore collection name")
	name := flag.String("name", "", "replace a single parish document instead of uploading the dataset")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log, err := logging.New(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	projectID := os.Getenv("GCP_PROJECT_ID")
	if projectID == "" {
		log.Fatal("GCP_PROJECT_ID environment variable is required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}

	parishes, err := collect.ReadParishes(cfg.Pipeline.DataFile)
	if err != nil {
		log.Fatal("loading dataset", zap.String("file", cfg.Pipeline.DataFile), zap.Error(err))
	}
	log.Info("dataset loaded",
		zap.String("file", cfg.Pipeline.DataFile),
		zap.Int("parishes", len(parishes)))

	ctx := context.Background()
	client, err := firestore.New(ctx, projectID, *collection)
	if err != nil {
		log.Fatal("connecting to Firestore", zap.Error(err))
	}
	defer client.Close()

	if *name != "" {
		replaceOne(ctx, client, parishes, *name, log)
		return
	}

	written, err := client.UpsertParishes(ctx, parishes)
	if err != nil {
		log.Fatal("upload failed", zap.Int("written", written), zap.Error(err))
	}
	log.Info("upload finished",
		zap.String("collection", *collection),
		zap.Int("written", written))
}

// replaceOne hot-fixes a single parish document: delete then set, so
// stale fields do not survive a merge.
func replaceOne(ctx context.Context, client *firestore.Client, parishes []model.Parish, name string, log *zap.Logger) {
	for _, p := range parishes {
		if p.Name != name {
			continue
		}
		if err := client.ReplaceParish(ctx, p); err != nil {
			log.Fatal("replacing parish", zap.String("name", name), zap.Error(err))
		}
		log.Info("parish replaced", zap.String("name", name))
		return
	}
	log.Fatal("parish not found in dataset", zap.String("name", name))
}
