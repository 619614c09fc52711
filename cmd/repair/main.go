package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"modu-catholic/internal/browser"
	"modu-catholic/internal/config"
	"modu-catholic/internal/logging"
	"modu-catholic/internal/navigator"
	"modu-catholic/internal/repair"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "configuration file")
	testParish := flag.String("test", "", "repair a single parish and print the result")
	diocese := flag.String("diocese", "서울대교구", "diocese for -test mode")
	limit := flag.Int("limit", 0, "max records per batch file (0 = all)")
	headless := flag.Bool("headless", true, "run the browser headless")
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

	session, err := browser.NewSession(context.Background(), *headless)
	if err != nil {
		log.Fatal("starting browser", zap.Error(err))
	}
	defer session.Close()

	registry := navigator.BuildRegistry(cfg)
	orch := repair.NewOrchestrator(repair.NewChromeBrowser(session), registry, cfg.Repair, *limit, log)

	if *testParish != "" {
		repairOne(orch, *diocese, *testParish, log)
		return
	}

	stats, err := orch.Run()
	if err != nil {
		log.Fatal("repair run failed", zap.Error(err))
	}
	log.Info("repair run finished",
		zap.Int("total", stats.Total),
		zap.Int("success", stats.Success),
		zap.Int("failed", stats.Failed))
	fmt.Print(stats.Summary())
}

// repairOne probes a single parish and prints the parsed schedule, for
// checking a navigator against the live site without batch files.
func repairOne(orch *repair.Orchestrator, diocese, name string, log *zap.Logger) {
	result, err := orch.RepairOne(diocese, name)
	if err != nil {
		log.Fatal("repair failed",
			zap.String("diocese", diocese),
			zap.String("church", name),
			zap.Error(err))
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal("encoding result", zap.Error(err))
	}
	fmt.Println(string(out))
}
