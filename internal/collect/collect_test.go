package collect

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"modu-catholic/internal/config"
	"modu-catholic/internal/goodnews"
	"modu-catholic/internal/model"
)

type fakeDirectory struct {
	pages       map[int][]goodnews.ListItem
	details     map[string][]model.MassTimeRow
	detailErrs  map[string]error
	detailCalls []string
}

func (f *fakeDirectory) ListPage(_ context.Context, _ string, page, _ int) ([]goodnews.ListItem, int, error) {
	return f.pages[page], 0, nil
}

func (f *fakeDirectory) Detail(_ context.Context, orgnum string) ([]model.MassTimeRow, error) {
	f.detailCalls = append(f.detailCalls, orgnum)
	if err := f.detailErrs[orgnum]; err != nil {
		return nil, err
	}
	return f.details[orgnum], nil
}

func (f *fakeDirectory) DetailPageURL(orgnum string) string {
	return "https://maria.example/view?orgnum=" + orgnum
}

func listItem(orgnum, title, addr string) goodnews.ListItem {
	return goodnews.ListItem{
		Orgnum:  json.Number(orgnum),
		Title:   title,
		Address: addr,
	}
}

func testConfig(t *testing.T) config.PipelineConfig {
	t.Helper()
	dir := t.TempDir()
	return config.PipelineConfig{
		DataFile:    filepath.Join(dir, "parishes.json"),
		MissingFile: filepath.Join(dir, "missing_mass_times.json"),
	}
}

func readDataset(t *testing.T, path string) []model.Parish {
	t.Helper()
	parishes, err := ReadParishes(path)
	if err != nil {
		t.Fatalf("reading dataset: %v", err)
	}
	return parishes
}

func TestCollectorRun(t *testing.T) {
	dir := &fakeDirectory{
		pages: map[int][]goodnews.ListItem{
			1: {
				listItem("1785", "남천성당", "부산광역시 수영구 수영로 427"),
				listItem("2041", "모래네공소", "전라북도 완주군"),
			},
		},
		details: map[string][]model.MassTimeRow{
			"1785": {{Type: "주일미사", Day: "일", Times: "오전 10:00"}},
		},
	}
	cfg := testConfig(t)
	c := NewCollector(dir, cfg, Options{FetchDetails: true}, zap.NewNop())

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Collected != 2 || summary.Missing != 1 || summary.Added != 2 || summary.Total != 2 {
		t.Errorf("summary: got %+v", summary)
	}

	parishes := readDataset(t, cfg.DataFile)
	if len(parishes) != 2 {
		t.Fatalf("dataset: got %d parishes", len(parishes))
	}

	p := parishes[0]
	if p.Name != "남천성당" || p.Orgnum != "1785" {
		t.Errorf("parish: got %+v", p)
	}
	if p.Type != model.TypeChurch {
		t.Errorf("type: got %q", p.Type)
	}
	if p.Diocese != "부산교구" {
		t.Errorf("diocese: got %q", p.Diocese)
	}
	if !p.HasMassTimes || len(p.MassTimesStructured) != 1 {
		t.Errorf("mass times: got has=%v rows=%d", p.HasMassTimes, len(p.MassTimesStructured))
	}
	if p.MassTimes != "[주일미사] 일: 오전 10:00" {
		t.Errorf("formatted mass times: got %q", p.MassTimes)
	}
	if p.DetailURL != "https://maria.example/view?orgnum=1785" {
		t.Errorf("detail url: got %q", p.DetailURL)
	}
	if _, err := time.Parse(time.RFC3339, p.CrawledAt); err != nil {
		t.Errorf("crawled_at not RFC3339: %q", p.CrawledAt)
	}

	gongso := parishes[1]
	if gongso.Type != model.TypeGongso || gongso.HasMassTimes {
		t.Errorf("gongso: got %+v", gongso)
	}

	var missing []MissingParish
	data, err := os.ReadFile(cfg.MissingFile)
	if err != nil {
		t.Fatalf("reading missing file: %v", err)
	}
	if err := json.Unmarshal(data, &missing); err != nil {
		t.Fatal(err)
	}
	if len(missing) != 1 || missing[0].Orgnum != "2041" {
		t.Errorf("missing: got %+v", missing)
	}
}

func TestCollectorSkipsExisting(t *testing.T) {
	cfg := testConfig(t)
	seed := []model.Parish{{
		Orgnum:       "1785",
		Name:         "남천성당",
		HasMassTimes: true,
	}}
	if err := WriteParishes(cfg.DataFile, seed); err != nil {
		t.Fatal(err)
	}

	dir := &fakeDirectory{
		pages: map[int][]goodnews.ListItem{
			1: {
				listItem("1785", "남천성당", "부산광역시"),
				listItem("2041", "정자동성당", "경기도 수원시"),
			},
		},
		details: map[string][]model.MassTimeRow{
			"2041": {{Type: "주일미사", Day: "일", Times: "오전 9:00"}},
		},
	}
	c := NewCollector(dir, cfg, Options{FetchDetails: true}, zap.NewNop())

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Collected != 1 || summary.Skipped != 1 {
		t.Errorf("summary: got %+v", summary)
	}
	if len(dir.detailCalls) != 1 || dir.detailCalls[0] != "2041" {
		t.Errorf("detail calls: got %v", dir.detailCalls)
	}
	if parishes := readDataset(t, cfg.DataFile); len(parishes) != 2 {
		t.Errorf("dataset: got %d parishes", len(parishes))
	}
}

func TestCollectorForceUpdate(t *testing.T) {
	cfg := testConfig(t)
	seed := []model.Parish{{Orgnum: "1785", Name: "남천성당", HasMassTimes: true}}
	if err := WriteParishes(cfg.DataFile, seed); err != nil {
		t.Fatal(err)
	}

	dir := &fakeDirectory{
		pages: map[int][]goodnews.ListItem{
			1: {listItem("1785", "남천성당", "부산광역시")},
		},
		details: map[string][]model.MassTimeRow{
			"1785": {{Type: "주일미사", Day: "일", Times: "오전 10:00"}},
		},
	}
	c := NewCollector(dir, cfg, Options{FetchDetails: true, ForceUpdate: true}, zap.NewNop())

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Collected != 1 || summary.Skipped != 0 || summary.Updated != 1 || summary.Added != 0 {
		t.Errorf("summary: got %+v", summary)
	}
}

func TestCollectorMergePreservesEnrichment(t *testing.T) {
	cfg := testConfig(t)
	seed := []model.Parish{{
		Orgnum:              "1785",
		Name:                "남천성당",
		HasMassTimes:        false,
		MassTimesStructured: []model.MassTimeRow{{Type: "주일미사", Day: "일", Times: "오전 10:00"}},
		Location:            &model.Location{Lat: 35.14, Lng: 129.11},
		SEOTags:             []string{"남천동성당", "남천동미사시간"},
		EnrichmentStatus:    "done",
		EnrichmentVersion:   "v2",
	}}
	if err := WriteParishes(cfg.DataFile, seed); err != nil {
		t.Fatal(err)
	}

	dir := &fakeDirectory{
		pages: map[int][]goodnews.ListItem{
			1: {listItem("1785", "남천성당", "부산광역시 수영구")},
		},
	}
	c := NewCollector(dir, cfg, Options{FetchDetails: true}, zap.NewNop())

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	parishes := readDataset(t, cfg.DataFile)
	if len(parishes) != 1 {
		t.Fatalf("dataset: got %d parishes", len(parishes))
	}
	p := parishes[0]
	if p.Location == nil || p.Location.Lat != 35.14 {
		t.Errorf("location lost: %+v", p.Location)
	}
	if len(p.SEOTags) != 2 {
		t.Errorf("seo tags lost: %v", p.SEOTags)
	}
	if p.EnrichmentStatus != "done" || p.EnrichmentVersion != "v2" {
		t.Errorf("enrichment state lost: %q %q", p.EnrichmentStatus, p.EnrichmentVersion)
	}
	if len(p.MassTimesStructured) != 1 {
		t.Errorf("stored mass-time rows lost: %v", p.MassTimesStructured)
	}
}

func TestCollectorMaxItems(t *testing.T) {
	dir := &fakeDirectory{
		pages: map[int][]goodnews.ListItem{
			1: {
				listItem("1", "가좌동성당", "인천"),
				listItem("2", "나운동성당", "전북"),
				listItem("3", "다대동성당", "부산"),
			},
		},
	}
	c := NewCollector(dir, testConfig(t), Options{MaxItems: 2}, zap.NewNop())

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Collected != 2 {
		t.Errorf("collected: got %d, want 2", summary.Collected)
	}
}

func TestCollectorDryRun(t *testing.T) {
	cfg := testConfig(t)
	dir := &fakeDirectory{
		pages: map[int][]goodnews.ListItem{
			1: {listItem("1785", "남천성당", "부산광역시")},
		},
	}
	c := NewCollector(dir, cfg, Options{DryRun: true}, zap.NewNop())

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Collected != 1 {
		t.Errorf("collected: got %d", summary.Collected)
	}
	if len(c.Collected()) != 1 {
		t.Errorf("Collected(): got %d", len(c.Collected()))
	}
	if _, err := os.Stat(cfg.DataFile); !os.IsNotExist(err) {
		t.Error("dry run wrote the dataset file")
	}
}

func TestCollectorDetailError(t *testing.T) {
	cfg := testConfig(t)
	dir := &fakeDirectory{
		pages: map[int][]goodnews.ListItem{
			1: {listItem("1785", "남천성당", "부산광역시")},
		},
		detailErrs: map[string]error{"1785": os.ErrDeadlineExceeded},
	}
	c := NewCollector(dir, cfg, Options{FetchDetails: true}, zap.NewNop())

	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// The parish is still collected; it just joins the follow-up queue.
	if summary.Collected != 1 || summary.Missing != 1 {
		t.Errorf("summary: got %+v", summary)
	}
}

func TestCollectorMissingMerge(t *testing.T) {
	cfg := testConfig(t)
	prior := []MissingParish{{Name: "옛성당", Orgnum: "0001", Address: "서울"}}
	data, _ := json.Marshal(prior)
	if err := os.MkdirAll(filepath.Dir(cfg.MissingFile), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.MissingFile, data, 0o644); err != nil {
		t.Fatal(err)
	}

	dir := &fakeDirectory{
		pages: map[int][]goodnews.ListItem{
			1: {listItem("1785", "남천성당", "부산광역시")},
		},
	}
	c := NewCollector(dir, cfg, Options{FetchDetails: true}, zap.NewNop())
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var missing []MissingParish
	out, err := os.ReadFile(cfg.MissingFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &missing); err != nil {
		t.Fatal(err)
	}
	if len(missing) != 2 || missing[0].Orgnum != "0001" || missing[1].Orgnum != "1785" {
		t.Errorf("missing: got %+v", missing)
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct{ name, want string }{
		{"남천성당", model.TypeChurch},
		{"모래네공소", model.TypeGongso},
		{"해미순교성지", model.TypeShrine},
	}
	for _, tt := range tests {
		if got := DetectType(tt.name); got != tt.want {
			t.Errorf("DetectType(%q): got %q, want %q", tt.name, got, tt.want)
		}
	}
}
