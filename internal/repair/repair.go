// Package repair recovers missing mass schedules. It feeds batch files
// of parish records through the per-diocese navigators and writes the
// successfully repaired records back out, batch by batch.
package repair

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"modu-catholic/internal/browser"
	"modu-catholic/internal/config"
	"modu-catholic/internal/model"
	"modu-catholic/internal/navigator"
	"modu-catholic/internal/schedule"
)

// repairSource marks records this crawler repaired.
const repairSource = "repair-crawler"

// Page is a browser tab the orchestrator hands to a navigator and closes
// afterwards.
type Page interface {
	navigator.Page
	Close()
}

// Browser opens tabs. Satisfied by ChromeBrowser in production and by
// fakes in tests.
type Browser interface {
	OpenPage() (Page, error)
}

// ChromeBrowser adapts a browser.Session to the orchestrator.
type ChromeBrowser struct {
	session *browser.Session
}

// NewChromeBrowser wraps a running browser session.
func NewChromeBrowser(s *browser.Session) *ChromeBrowser {
	return &ChromeBrowser{session: s}
}

func (b *ChromeBrowser) OpenPage() (Page, error) {
	return b.session.OpenPage()
}

// Orchestrator runs the repair pass over the input directory.
type Orchestrator struct {
	browser   Browser
	registry  *navigator.Registry
	inputDir  string
	outputDir string
	limit     int
	log       *zap.Logger
	stats     *Stats
}

// NewOrchestrator creates an orchestrator. limit caps the records taken
// from each batch file; zero means no cap.
func NewOrchestrator(b Browser, reg *navigator.Registry, cfg config.RepairConfig, limit int, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		browser:   b,
		registry:  reg,
		inputDir:  cfg.InputDir,
		outputDir: cfg.OutputDir,
		limit:     limit,
		log:       log,
		stats:     newStats(),
	}
}

// Run processes every batch file in the input directory. Batches of
// previously failed records go first so retries happen before new work.
func (o *Orchestrator) Run() (*Stats, error) {
	files, err := o.batchFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		o.log.Warn("no batch files found", zap.String("dir", o.inputDir))
		return o.stats, nil
	}
	o.log.Info("found batch files", zap.Int("count", len(files)), zap.String("dir", o.inputDir))

	for _, f := range files {
		if err := o.processFile(f); err != nil {
			o.log.Error("batch failed", zap.String("file", filepath.Base(f)), zap.Error(err))
		}
	}
	return o.stats, nil
}

// RepairOne runs a single parish through its diocese navigator. Used by
// the command's probe mode.
func (o *Orchestrator) RepairOne(diocese, name string) (*schedule.Result, error) {
	nav, ok := o.registry.Resolve(diocese)
	if !ok {
		return nil, fmt.Errorf("no navigator for diocese %q", diocese)
	}
	return o.attempt(nav, name)
}

func (o *Orchestrator) batchFiles() ([]string, error) {
	failed, err := filepath.Glob(filepath.Join(o.inputDir, "failed_posts_batch_*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	fresh, err := filepath.Glob(filepath.Join(o.inputDir, "posts_batch_*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return append(failed, fresh...), nil
}

func (o *Orchestrator) processFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading batch: %w", err)
	}
	var records []model.RepairRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parsing batch: %w", err)
	}

	if o.limit > 0 && len(records) > o.limit {
		records = records[:o.limit]
	}
	o.log.Info("processing batch",
		zap.String("file", filepath.Base(path)),
		zap.Int("records", len(records)))

	var repaired []model.RepairRecord
	for i := range records {
		if o.repairRecord(&records[i]) {
			repaired = append(repaired, records[i])
		}
	}

	if len(repaired) == 0 {
		return nil
	}
	return o.writeRepaired(path, repaired)
}

// repairRecord runs one record through its navigator and reports whether
// it was repaired. Records without a resolvable name or diocese are
// skipped and stay out of the statistics.
func (o *Orchestrator) repairRecord(rec *model.RepairRecord) bool {
	name := strings.TrimSpace(rec.ChurchName)
	diocese := strings.TrimSpace(rec.Diocese)
	if diocese == "" {
		diocese = navigator.InferDiocese(rec.Address)
	}
	if name == "" || diocese == "" {
		o.log.Debug("skipping record without name or diocese",
			zap.String("church", rec.ChurchName),
			zap.String("address", rec.Address))
		return false
	}

	nav, ok := o.registry.Resolve(diocese)
	if !ok {
		o.stats.fail(diocese)
		o.log.Debug("no navigator for diocese",
			zap.String("diocese", diocese),
			zap.String("church", name))
		return false
	}

	o.log.Info("repairing",
		zap.String("diocese", nav.Diocese()),
		zap.String("church", name))

	result, err := o.attempt(nav, name)
	if err != nil {
		o.stats.fail(nav.Diocese())
		o.log.Warn("repair failed", zap.String("church", name), zap.Error(err))
		return false
	}
	if result == nil || result.Failed || !result.HasEntries() {
		o.stats.fail(nav.Diocese())
		o.log.Warn("no schedule recovered", zap.String("church", name))
		return false
	}

	rec.RepairedTimes = result
	rec.RepairSource = repairSource
	rec.RepairTimestamp = time.Now().Format(time.RFC3339)
	o.stats.succeed(nav.Diocese())
	o.log.Info("repaired",
		zap.String("church", name),
		zap.Int("entries", result.EntryCount()))
	return true
}

// attempt brackets one navigation in a fresh tab. A panicking navigator
// only fails its own record.
func (o *Orchestrator) attempt(nav navigator.Navigator, name string) (result *schedule.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("navigator panic: %v", r)
		}
	}()

	page, err := o.browser.OpenPage()
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()

	return nav.Navigate(page, name)
}

func (o *Orchestrator) writeRepaired(inputPath string, repaired []model.RepairRecord) error {
	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	outPath := filepath.Join(o.outputDir, "repaired_"+filepath.Base(inputPath))

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(repaired); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	o.log.Info("saved repaired batch",
		zap.String("file", filepath.Base(outPath)),
		zap.Int("records", len(repaired)))
	return nil
}
