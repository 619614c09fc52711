// Package enrich adds location, nearby landmarks and SEO tags to
// collected parishes. Landmarks come from the Kakao Local API with a
// wide 1km radius: proximity to a known place is what pulls search
// traffic to a parish page.
package enrich

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"modu-catholic/internal/collect"
	"modu-catholic/internal/config"
	"modu-catholic/internal/kakao"
	"modu-catholic/internal/model"
)

const (
	enrichmentVersion = "v2"

	statusCompleted = "completed"
	statusFailed    = "failed"

	// Kakao rate-limit spacing.
	delayMin = 500 * time.Millisecond
	delayMax = 1500 * time.Millisecond

	maxLandmarks = 5
	tagLandmarks = 3
	saveEvery    = 3
)

// Category groups probed first: tourist attractions, cultural venues,
// subway stations.
var priorityCategories = []string{"AT4", "CT1", "SW8"}

// fallbackKeywords are tried in order when no category yields places;
// the first keyword with results wins.
var fallbackKeywords = []string{
	"수목원", "공원", "유적지", "명소",
	"박물관", "미술관", "전시관", "기념관",
	"해수욕장", "호수", "산", "계곡",
	"기차역", "터미널", "KTX역",
	"대학교", "캠퍼스",
}

// Local is the slice of the kakao client the enricher needs.
type Local interface {
	Geocode(ctx context.Context, address string) (*model.Location, error)
	SearchCategory(ctx context.Context, loc *model.Location, code string) ([]kakao.Place, error)
	SearchKeyword(ctx context.Context, loc *model.Location, keyword string) ([]kakao.Place, error)
}

// Landmark is a discovered place with the search metadata that tag
// generation needs; the stored model keeps a slimmer copy.
type Landmark struct {
	Name         string
	Category     string
	CategoryCode string
	Distance     string
	Address      string
}

// Options controls one enrichment run.
type Options struct {
	MaxItems    int // 0 means no cap
	ForceUpdate bool
	DryRun      bool
}

// Summary reports what a run did.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
}

// Enricher walks the dataset and enriches parishes in place.
type Enricher struct {
	local    Local
	dataFile string
	opts     Options
	log      *zap.Logger

	// pause is replaced in tests so rate limiting does not sleep.
	pause func(ctx context.Context, d time.Duration)
}

// NewEnricher builds an enricher over the dataset file.
func NewEnricher(local Local, cfg config.PipelineConfig, opts Options, log *zap.Logger) *Enricher {
	return &Enricher{
		local:    local,
		dataFile: cfg.DataFile,
		opts:     opts,
		log:      log,
		pause:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func rateLimitDelay() time.Duration {
	return delayMin + rand.N(delayMax-delayMin)
}

// Run enriches the dataset. Progress is saved every few parishes so a
// crash mid-run loses almost nothing.
func (e *Enricher) Run(ctx context.Context) (*Summary, error) {
	parishes, err := collect.ReadParishes(e.dataFile)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	e.log.Info("enrichment started",
		zap.Int("parishes", len(parishes)),
		zap.Bool("force_update", e.opts.ForceUpdate))

	summary := &Summary{}
	dirty := 0
	for i := range parishes {
		if ctx.Err() != nil {
			break
		}
		if e.opts.MaxItems > 0 && summary.Processed >= e.opts.MaxItems {
			e.log.Info("max items reached", zap.Int("max", e.opts.MaxItems))
			break
		}

		p := &parishes[i]
		if !e.opts.ForceUpdate && p.EnrichmentVersion == enrichmentVersion {
			e.log.Debug("already enriched", zap.String("name", p.Name))
			summary.Skipped++
			continue
		}

		if e.enrichParish(ctx, p) {
			summary.Processed++
		} else {
			summary.Failed++
		}

		dirty++
		if dirty%saveEvery == 0 {
			e.save(parishes)
		}
	}

	if dirty > 0 {
		e.save(parishes)
	}
	e.log.Info("enrichment finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (e *Enricher) save(parishes []model.Parish) {
	if e.opts.DryRun {
		return
	}
	if err := collect.WriteParishes(e.dataFile, parishes); err != nil {
		e.log.Error("saving progress failed", zap.Error(err))
		return
	}
	e.log.Info("progress saved", zap.Int("parishes", len(parishes)))
}

// enrichParish fills the enrichment fields of one parish. A transport
// failure during geocoding marks the parish failed so a later run
// retries it; an address the API simply does not know still completes,
// with no location.
func (e *Enricher) enrichParish(ctx context.Context, p *model.Parish) bool {
	e.log.Info("enriching", zap.String("name", p.Name))

	e.pause(ctx, rateLimitDelay())
	loc, err := e.local.Geocode(ctx, p.Address)
	if err != nil {
		e.log.Error("geocoding failed", zap.String("name", p.Name), zap.Error(err))
		p.EnrichmentStatus = statusFailed
		return false
	}
	p.Location = loc
	if loc == nil {
		e.log.Warn("address not geocodable", zap.String("name", p.Name), zap.String("address", p.Address))
	}

	landmarks := e.discoverLandmarks(ctx, loc)
	p.Landmarks = storedLandmarks(landmarks)
	e.log.Info("landmarks found", zap.String("name", p.Name), zap.Int("count", len(landmarks)))

	p.SEOTags = GenerateSEOTags(p.Name, p.Address, landmarks)
	p.EnrichmentStatus = statusCompleted
	p.EnrichmentVersion = enrichmentVersion
	return true
}

// discoverLandmarks probes the priority categories, falling back to
// keyword search when none of them yields a place. Results are
// deduplicated by name and capped.
func (e *Enricher) discoverLandmarks(ctx context.Context, loc *model.Location) []Landmark {
	if loc == nil {
		return nil
	}

	var all []Landmark
	for _, code := range priorityCategories {
		e.pause(ctx, rateLimitDelay())
		places, err := e.local.SearchCategory(ctx, loc, code)
		if err != nil {
			e.log.Debug("category search failed", zap.String("code", code), zap.Error(err))
			continue
		}
		for _, doc := range places {
			all = append(all, fromPlace(doc, code))
		}
	}

	if len(all) == 0 {
		for _, keyword := range fallbackKeywords {
			e.pause(ctx, rateLimitDelay())
			places, err := e.local.SearchKeyword(ctx, loc, keyword)
			if err != nil {
				e.log.Debug("keyword search failed", zap.String("keyword", keyword), zap.Error(err))
				continue
			}
			if len(places) == 0 {
				continue
			}
			for _, doc := range places {
				lm := fromPlace(doc, "KEYWORD")
				if lm.Category == "" {
					lm.Category = keyword
				}
				all = append(all, lm)
			}
			break
		}
	}

	seen := make(map[string]bool, len(all))
	var unique []Landmark
	for _, lm := range all {
		if seen[lm.Name] {
			continue
		}
		seen[lm.Name] = true
		unique = append(unique, lm)
		if len(unique) == maxLandmarks {
			break
		}
	}
	return unique
}

func fromPlace(doc kakao.Place, code string) Landmark {
	address := doc.RoadAddress
	if address == "" {
		address = doc.Address
	}
	return Landmark{
		Name:         doc.Name,
		Category:     doc.CategoryName,
		CategoryCode: code,
		Distance:     doc.Distance,
		Address:      address,
	}
}

func storedLandmarks(landmarks []Landmark) []model.Landmark {
	if len(landmarks) == 0 {
		return nil
	}
	out := make([]model.Landmark, 0, len(landmarks))
	for _, lm := range landmarks {
		out = append(out, model.Landmark{
			Name:     lm.Name,
			Category: lm.Category,
			Distance: lm.Distance,
		})
	}
	return out
}

// GenerateSEOTags builds inflow-search tags from the parish name, its
// neighborhood and the nearby landmarks. Order is deterministic.
func GenerateSEOTags(name, address string, landmarks []Landmark) []string {
	var tags []string
	seen := make(map[string]bool)
	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	add(name)
	if !strings.Contains(name, "성당") {
		add(name + "성당")
	}

	if district := districtOf(address); district != "" {
		add(district + "성당")
		add(district + "미사시간")
		add(district + "천주교")
	}

	for i, lm := range landmarks {
		if i == tagLandmarks {
			break
		}
		if lm.Name == "" {
			continue
		}
		add(lm.Name + "근처성당")
		add(lm.Name + "주변미사")
		if short, _, found := strings.Cut(lm.Name, " "); found && short != "" {
			add(short + "근처성당")
		}
		if strings.Contains(lm.Category, "관광") || lm.CategoryCode == "AT4" {
			add(lm.Name + "앞성당")
			add(lm.Name + "여행")
		}
		if strings.Contains(lm.Category, "문화") || lm.CategoryCode == "CT1" {
			add(lm.Name + "근처미사")
		}
	}
	return tags
}

// districtOf finds the neighborhood token of an address: the first
// word ending in 동, 읍 or 면.
func districtOf(address string) string {
	for _, part := range strings.Fields(address) {
		if strings.HasSuffix(part, "동") || strings.HasSuffix(part, "읍") || strings.HasSuffix(part, "면") {
			return part
		}
	}
	return ""
}
