package repair

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"modu-catholic/internal/config"
	"modu-catholic/internal/navigator"
	"modu-catholic/internal/schedule"
)

type stubPage struct{ closed bool }

func (p *stubPage) Navigate(string, time.Duration) error    { return nil }
func (p *stubPage) WaitReady(time.Duration) error           { return nil }
func (p *stubPage) Settle(time.Duration) error              { return nil }
func (p *stubPage) Exists(string) bool                      { return false }
func (p *stubPage) WaitVisible(string, time.Duration) error { return nil }
func (p *stubPage) Text(string) (string, error)             { return "", nil }
func (p *stubPage) Texts(string) ([]string, error)          { return nil, nil }
func (p *stubPage) BodyText() (string, error)               { return "", nil }
func (p *stubPage) Fill(string, string) error               { return nil }
func (p *stubPage) PressEnter() error                       { return nil }
func (p *stubPage) Click(string) error                      { return nil }
func (p *stubPage) Close()                                  { p.closed = true }

type fakeBrowser struct {
	pages   []*stubPage
	openErr error
}

func (b *fakeBrowser) OpenPage() (Page, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	p := &stubPage{}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) allClosed() bool {
	for _, p := range b.pages {
		if !p.closed {
			return false
		}
	}
	return true
}

// fakeNavigator scripts per-parish outcomes and records call order.
type fakeNavigator struct {
	diocese string
	results map[string]*schedule.Result
	errs    map[string]error
	panicOn string
	calls   []string
}

func (f *fakeNavigator) Diocese() string { return f.diocese }

func (f *fakeNavigator) Navigate(_ navigator.Page, name string) (*schedule.Result, error) {
	f.calls = append(f.calls, name)
	if name == f.panicOn {
		panic("scripted panic")
	}
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.results[name], nil
}

func okResult() *schedule.Result {
	return &schedule.Result{
		Sunday:  []schedule.Entry{{Time: "10:00"}},
		Weekday: []schedule.Entry{{Time: "19:00"}},
	}
}

func writeBatch(t *testing.T, dir, name string, records []map[string]any) {
	t.Helper()
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestOrchestrator(b Browser, reg *navigator.Registry, inputDir string, limit int) *Orchestrator {
	cfg := config.RepairConfig{
		InputDir:  inputDir,
		OutputDir: filepath.Join(inputDir, "out"),
	}
	return NewOrchestrator(b, reg, cfg, limit, zap.NewNop())
}

func seoulRegistry(nav navigator.Navigator) *navigator.Registry {
	reg := navigator.NewRegistry()
	reg.Register("서울", nav)
	return reg
}

func TestOrchestratorRepairsBatch(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "posts_batch_001.json", []map[string]any{
		{"church_name": "명동성당", "diocese": "서울대교구", "orgnum": "1234"},
		{"church_name": "실패성당", "diocese": "서울대교구"},
	})

	nav := &fakeNavigator{
		diocese: "서울대교구",
		results: map[string]*schedule.Result{
			"명동성당": okResult(),
			"실패성당": schedule.FailedResult("쓸 수 없는 페이지", "실패"),
		},
	}
	b := &fakeBrowser{}
	o := newTestOrchestrator(b, seoulRegistry(nav), dir, 0)

	stats, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Total != 2 || stats.Success != 1 || stats.Failed != 1 {
		t.Errorf("stats: got total=%d success=%d failed=%d", stats.Total, stats.Success, stats.Failed)
	}
	if !b.allClosed() {
		t.Error("not every opened page was closed")
	}

	outPath := filepath.Join(dir, "out", "repaired_posts_batch_001.json")
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("repaired records: got %d, want 1", len(out))
	}

	rec := out[0]
	if rec["church_name"] != "명동성당" {
		t.Errorf("church_name: got %v", rec["church_name"])
	}
	if rec["orgnum"] != "1234" {
		t.Errorf("extra field lost: got %v", rec["orgnum"])
	}
	if rec["repair_source"] != "repair-crawler" {
		t.Errorf("repair_source: got %v", rec["repair_source"])
	}
	ts, _ := rec["repair_timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("repair_timestamp not RFC 3339: %q", ts)
	}
	times, ok := rec["repaired_mass_times"].(map[string]any)
	if !ok || times["sunday"] == nil {
		t.Errorf("repaired_mass_times: got %v", rec["repaired_mass_times"])
	}
}

func TestOrchestratorFailedBatchesFirst(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "posts_batch_001.json", []map[string]any{
		{"church_name": "새성당", "diocese": "서울대교구"},
	})
	writeBatch(t, dir, "failed_posts_batch_001.json", []map[string]any{
		{"church_name": "재시도성당", "diocese": "서울대교구"},
	})

	nav := &fakeNavigator{diocese: "서울대교구", results: map[string]*schedule.Result{}}
	o := newTestOrchestrator(&fakeBrowser{}, seoulRegistry(nav), dir, 0)

	if _, err := o.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"재시도성당", "새성당"}
	if len(nav.calls) != len(want) {
		t.Fatalf("calls: got %v", nav.calls)
	}
	for i, name := range want {
		if nav.calls[i] != name {
			t.Errorf("call %d: got %q, want %q", i, nav.calls[i], name)
		}
	}
}

func TestOrchestratorNoOutputWithoutSuccess(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "posts_batch_001.json", []map[string]any{
		{"church_name": "오류성당", "diocese": "서울대교구"},
		{"church_name": "마커성당", "diocese": "서울대교구"},
	})

	nav := &fakeNavigator{
		diocese: "서울대교구",
		errs:    map[string]error{"오류성당": errors.New("site unreachable")},
		results: map[string]*schedule.Result{
			"마커성당": schedule.FailedResult("본문", "마커"),
		},
	}
	o := newTestOrchestrator(&fakeBrowser{}, seoulRegistry(nav), dir, 0)

	stats, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Success != 0 || stats.Failed != 2 {
		t.Errorf("stats: got success=%d failed=%d", stats.Success, stats.Failed)
	}

	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Error("output directory should not exist for an all-failure batch")
	}
}

func TestOrchestratorNoHandlerCounted(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "posts_batch_001.json", []map[string]any{
		{"church_name": "죽림동성당", "diocese": "춘천교구"},
	})

	nav := &fakeNavigator{diocese: "서울대교구"}
	o := newTestOrchestrator(&fakeBrowser{}, seoulRegistry(nav), dir, 0)

	stats, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Total != 1 || stats.Failed != 1 {
		t.Errorf("no-handler record not counted: %+v", stats)
	}
	if len(nav.calls) != 0 {
		t.Errorf("navigator should not run without a handler: %v", nav.calls)
	}
}

func TestOrchestratorSkipsAndInfers(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "posts_batch_001.json", []map[string]any{
		{"church_name": "", "diocese": "서울대교구"},
		{"church_name": "주소없는성당"},
		{"church_name": "명동성당", "address": "서울특별시 중구 명동길 74"},
	})

	nav := &fakeNavigator{
		diocese: "서울대교구",
		results: map[string]*schedule.Result{"명동성당": okResult()},
	}
	o := newTestOrchestrator(&fakeBrowser{}, seoulRegistry(nav), dir, 0)

	stats, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Two records are unprocessable and skipped; the third infers its
	// diocese from the address.
	if stats.Total != 1 || stats.Success != 1 {
		t.Errorf("stats: got %+v", stats)
	}
	if len(nav.calls) != 1 || nav.calls[0] != "명동성당" {
		t.Errorf("calls: got %v", nav.calls)
	}
}

func TestOrchestratorLimit(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "posts_batch_001.json", []map[string]any{
		{"church_name": "하나성당", "diocese": "서울대교구"},
		{"church_name": "둘성당", "diocese": "서울대교구"},
		{"church_name": "셋성당", "diocese": "서울대교구"},
	})

	nav := &fakeNavigator{diocese: "서울대교구", results: map[string]*schedule.Result{}}
	o := newTestOrchestrator(&fakeBrowser{}, seoulRegistry(nav), dir, 2)

	if _, err := o.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(nav.calls) != 2 {
		t.Errorf("limit ignored: %d records processed", len(nav.calls))
	}
}

func TestOrchestratorPanicIsolated(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "posts_batch_001.json", []map[string]any{
		{"church_name": "폭발성당", "diocese": "서울대교구"},
		{"church_name": "명동성당", "diocese": "서울대교구"},
	})

	nav := &fakeNavigator{
		diocese: "서울대교구",
		panicOn: "폭발성당",
		results: map[string]*schedule.Result{"명동성당": okResult()},
	}
	b := &fakeBrowser{}
	o := newTestOrchestrator(b, seoulRegistry(nav), dir, 0)

	stats, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Total != 2 || stats.Success != 1 || stats.Failed != 1 {
		t.Errorf("stats after panic: %+v", stats)
	}
	if !b.allClosed() {
		t.Error("page leaked across a panicking record")
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", "repaired_posts_batch_001.json"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), "명동성당") {
		t.Error("surviving record missing from output")
	}
}

func TestRepairOne(t *testing.T) {
	nav := &fakeNavigator{
		diocese: "서울대교구",
		results: map[string]*schedule.Result{"명동성당": okResult()},
	}
	o := newTestOrchestrator(&fakeBrowser{}, seoulRegistry(nav), t.TempDir(), 0)

	result, err := o.RepairOne("서울대교구", "명동성당")
	if err != nil {
		t.Fatalf("RepairOne failed: %v", err)
	}
	if result == nil || !result.HasEntries() {
		t.Errorf("result: got %+v", result)
	}

	if _, err := o.RepairOne("춘천교구", "죽림동성당"); err == nil {
		t.Error("expected error for a diocese without a navigator")
	}
}

func TestStatsSummary(t *testing.T) {
	s := newStats()
	s.succeed("서울대교구")
	s.succeed("서울대교구")
	s.fail("부산교구")

	summary := s.Summary()
	lines := strings.Split(strings.TrimRight(summary, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("summary lines: got %d\n%s", len(lines), summary)
	}
	if !strings.HasPrefix(lines[0], "diocese") {
		t.Errorf("header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "서울대교구") || !strings.Contains(lines[1], "2") {
		t.Errorf("first row: %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "total") {
		t.Errorf("footer: %q", lines[3])
	}

	// Hangul names are double width; every row must end at the same
	// column when measured by display width.
	for i := 1; i < len(lines); i++ {
		if w1, w2 := runeDisplayWidth(lines[i-1]), runeDisplayWidth(lines[i]); w1 != w2 {
			t.Errorf("misaligned rows %d/%d: %d vs %d", i-1, i, w1, w2)
		}
	}
}

func runeDisplayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r >= 0xAC00 && r <= 0xD7A3 {
			w += 2
			continue
		}
		w++
	}
	return w
}

func TestPad(t *testing.T) {
	if got := pad("abc", 5); got != "abc  " {
		t.Errorf("pad ascii: %q", got)
	}
	// 서울 occupies four columns, so only two spaces are added.
	if got := pad("서울", 6); got != "서울  " {
		t.Errorf("pad hangul: %q", got)
	}
	if got := pad("long-name", 4); got != "long-name" {
		t.Errorf("pad overflow: %q", got)
	}
}
