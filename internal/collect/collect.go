// Package collect builds the parish dataset: page through the
// directory list API, fetch each parish's detail table, merge the
// results into the dataset file. Parishes whose detail page has no
// mass-time table land in a follow-up queue file.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"modu-catholic/internal/config"
	"modu-catholic/internal/goodnews"
	"modu-catholic/internal/model"
	"modu-catholic/internal/navigator"
)

// Paging and volume limits. The absolute caps cover a full national
// crawl (about two thousand parishes).
const (
	defaultMaxPages = 5
	defaultMaxItems = 100
	defaultPageSize = 20

	absoluteMaxPages = 200
	absoluteMaxItems = 3000
)

// Directory is the slice of the goodnews client the collector needs.
type Directory interface {
	ListPage(ctx context.Context, keyword string, page, pageSize int) ([]goodnews.ListItem, int, error)
	Detail(ctx context.Context, orgnum string) ([]model.MassTimeRow, error)
	DetailPageURL(orgnum string) string
}

// Options controls one collection run.
type Options struct {
	Keyword      string
	StartPage    int
	PageSize     int
	MaxPages     int
	MaxItems     int
	FetchDetails bool
	ForceUpdate  bool
	DryRun       bool
}

// Summary reports what a run did.
type Summary struct {
	Collected int
	Skipped   int
	Missing   int
	Updated   int
	Added     int
	Total     int
}

// MissingParish is a follow-up queue entry for a parish whose detail
// page carried no mass-time table.
type MissingParish struct {
	Name      string `json:"name"`
	Orgnum    string `json:"orgnum"`
	DetailURL string `json:"url"`
	Address   string `json:"address"`
}

// Collector drives one collection run.
type Collector struct {
	dir         Directory
	dataFile    string
	missingFile string
	opts        Options
	log         *zap.Logger

	skipOrgnums map[string]bool
	collected   []model.Parish
	missing     []MissingParish
	skipped     int
}

// NewCollector builds a collector. Out-of-range options are clamped to
// the defaults and absolute caps.
func NewCollector(dir Directory, cfg config.PipelineConfig, opts Options, log *zap.Logger) *Collector {
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.MaxPages > absoluteMaxPages {
		opts.MaxPages = absoluteMaxPages
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaultMaxItems
	}
	if opts.MaxItems > absoluteMaxItems {
		opts.MaxItems = absoluteMaxItems
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.StartPage <= 0 {
		opts.StartPage = 1
	}
	return &Collector{
		dir:         dir,
		dataFile:    cfg.DataFile,
		missingFile: cfg.MissingFile,
		opts:        opts,
		log:         log,
		skipOrgnums: make(map[string]bool),
	}
}

// Run executes the collection and persists the merged dataset unless
// DryRun is set.
func (c *Collector) Run(ctx context.Context) (*Summary, error) {
	c.loadExistingOrgnums()
	c.log.Info("collection started",
		zap.Int("max_pages", c.opts.MaxPages),
		zap.Int("max_items", c.opts.MaxItems),
		zap.Bool("force_update", c.opts.ForceUpdate),
		zap.Int("existing", len(c.skipOrgnums)))

	for page := c.opts.StartPage; page < c.opts.StartPage+c.opts.MaxPages; page++ {
		if ctx.Err() != nil {
			break
		}
		if len(c.collected) >= c.opts.MaxItems {
			c.log.Warn("item limit reached", zap.Int("limit", c.opts.MaxItems))
			break
		}

		items, _, err := c.dir.ListPage(ctx, c.opts.Keyword, page, c.opts.PageSize)
		if err != nil {
			c.log.Error("list page failed, stopping", zap.Int("page", page), zap.Error(err))
			break
		}
		if len(items) == 0 {
			c.log.Info("no more data", zap.Int("page", page))
			break
		}

		for _, item := range items {
			if len(c.collected) >= c.opts.MaxItems {
				break
			}
			c.processItem(ctx, item)
		}
	}

	summary := &Summary{
		Collected: len(c.collected),
		Skipped:   c.skipped,
		Missing:   len(c.missing),
	}

	if c.opts.DryRun {
		c.log.Info("dry run, skipping save", zap.Int("collected", summary.Collected))
		return summary, nil
	}

	updated, added, total, err := c.saveDataset()
	if err != nil {
		return summary, err
	}
	summary.Updated, summary.Added, summary.Total = updated, added, total

	if err := c.saveMissing(); err != nil {
		return summary, err
	}

	c.log.Info("collection finished",
		zap.Int("collected", summary.Collected),
		zap.Int("skipped", summary.Skipped),
		zap.Int("missing", summary.Missing),
		zap.Int("total", summary.Total))
	return summary, nil
}

// Collected returns this run's parishes, for dry-run inspection.
func (c *Collector) Collected() []model.Parish { return c.collected }

// MissingList returns this run's follow-up entries.
func (c *Collector) MissingList() []MissingParish { return c.missing }

func (c *Collector) processItem(ctx context.Context, item goodnews.ListItem) {
	orgnum := strings.TrimSpace(item.Orgnum.String())
	name := strings.TrimSpace(item.Title)
	if orgnum == "" || name == "" {
		return
	}

	if !c.opts.ForceUpdate && c.skipOrgnums[orgnum] {
		c.log.Debug("already collected", zap.String("name", name), zap.String("orgnum", orgnum))
		c.skipped++
		return
	}

	address := strings.TrimSpace(item.Address)
	parish := model.Parish{
		Orgnum:    orgnum,
		Name:      name,
		Type:      DetectType(name),
		Diocese:   navigator.InferDiocese(address),
		Address:   address,
		Phone:     strings.TrimSpace(item.Phone),
		Pastor:    strings.TrimSpace(item.Pastor),
		MassTimes: strings.TrimSpace(item.MassTimes),
		ImageURL:  strings.TrimSpace(item.ImageURL),
		DetailURL: c.dir.DetailPageURL(orgnum),
		CrawledAt: time.Now().Format(time.RFC3339),
	}

	if c.opts.FetchDetails {
		rows, err := c.dir.Detail(ctx, orgnum)
		if err != nil {
			c.log.Warn("detail fetch failed", zap.String("name", name), zap.Error(err))
		}
		if len(rows) > 0 {
			parish.MassTimesStructured = rows
			parish.HasMassTimes = true
			if parish.MassTimes == "" {
				parish.MassTimes = goodnews.FormatRows(rows)
			}
		} else {
			c.missing = append(c.missing, MissingParish{
				Name:      name,
				Orgnum:    orgnum,
				DetailURL: parish.DetailURL,
				Address:   parish.Address,
			})
			c.log.Warn("no mass times found", zap.String("name", name))
		}
	}

	c.collected = append(c.collected, parish)
	c.log.Info("collected",
		zap.String("name", name),
		zap.Int("count", len(c.collected)),
		zap.Int("limit", c.opts.MaxItems))
}

// DetectType classifies a parish by its name.
func DetectType(name string) string {
	switch {
	case strings.Contains(name, "공소"):
		return model.TypeGongso
	case strings.Contains(name, "성지"):
		return model.TypeShrine
	default:
		return model.TypeChurch
	}
}

// loadExistingOrgnums seeds the skip set with parishes that already
// have complete mass-time data.
func (c *Collector) loadExistingOrgnums() {
	parishes, err := ReadParishes(c.dataFile)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("could not load existing dataset", zap.Error(err))
		}
		return
	}
	for _, p := range parishes {
		if p.HasMassTimes && p.Orgnum != "" {
			c.skipOrgnums[p.Orgnum] = true
		}
	}
	c.log.Info("loaded existing orgnums", zap.Int("count", len(c.skipOrgnums)))
}

// saveDataset merges this run into the dataset file. Fields only the
// enricher writes survive a re-collect of the same parish.
func (c *Collector) saveDataset() (updated, added, total int, err error) {
	existing, err := ReadParishes(c.dataFile)
	if err != nil && !os.IsNotExist(err) {
		c.log.Warn("could not load existing dataset", zap.Error(err))
	}

	index := make(map[string]int, len(existing))
	for i, p := range existing {
		index[parishKey(p)] = i
	}

	for _, fresh := range c.collected {
		key := parishKey(fresh)
		if i, ok := index[key]; ok {
			existing[i] = mergeParish(existing[i], fresh)
			updated++
		} else {
			index[key] = len(existing)
			existing = append(existing, fresh)
			added++
		}
	}

	if err := writeJSON(c.dataFile, existing); err != nil {
		return updated, added, len(existing), fmt.Errorf("saving dataset: %w", err)
	}
	c.log.Info("dataset saved",
		zap.String("file", c.dataFile),
		zap.Int("updated", updated),
		zap.Int("added", added),
		zap.Int("total", len(existing)))
	return updated, added, len(existing), nil
}

// saveMissing folds this run's follow-up entries into the missing
// file, keyed by orgnum.
func (c *Collector) saveMissing() error {
	if len(c.missing) == 0 {
		return nil
	}

	var existing []MissingParish
	if data, err := os.ReadFile(c.missingFile); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			c.log.Warn("could not load missing file", zap.Error(err))
			existing = nil
		}
	}

	index := make(map[string]int, len(existing))
	for i, m := range existing {
		index[m.Orgnum] = i
	}
	for _, m := range c.missing {
		if i, ok := index[m.Orgnum]; ok {
			existing[i] = m
		} else {
			index[m.Orgnum] = len(existing)
			existing = append(existing, m)
		}
	}

	if err := writeJSON(c.missingFile, existing); err != nil {
		return fmt.Errorf("saving missing file: %w", err)
	}
	c.log.Warn("parishes without mass times recorded",
		zap.String("file", c.missingFile),
		zap.Int("count", len(existing)))
	return nil
}

// mergeParish overlays a freshly collected parish onto its stored
// version. Enrichment output and previously found tables are kept when
// the fresh copy has none.
func mergeParish(stored, fresh model.Parish) model.Parish {
	merged := fresh
	if merged.Diocese == "" {
		merged.Diocese = stored.Diocese
	}
	if len(merged.MassTimesStructured) == 0 {
		merged.MassTimesStructured = stored.MassTimesStructured
	}
	if merged.Location == nil {
		merged.Location = stored.Location
	}
	if len(merged.Landmarks) == 0 {
		merged.Landmarks = stored.Landmarks
	}
	if len(merged.SEOTags) == 0 {
		merged.SEOTags = stored.SEOTags
	}
	if merged.EnrichmentStatus == "" {
		merged.EnrichmentStatus = stored.EnrichmentStatus
	}
	if merged.EnrichmentVersion == "" {
		merged.EnrichmentVersion = stored.EnrichmentVersion
	}
	return merged
}

func parishKey(p model.Parish) string {
	if p.Orgnum != "" {
		return p.Orgnum
	}
	return p.Name
}

// ReadParishes loads a parish dataset file.
func ReadParishes(path string) ([]model.Parish, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parishes []model.Parish
	if err := json.Unmarshal(data, &parishes); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return parishes, nil
}

// WriteParishes saves a parish dataset file.
func WriteParishes(path string, parishes []model.Parish) error {
	return writeJSON(path, parishes)
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
