package schedule

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func checkEntries(t *testing.T, label string, got, want []Entry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d entries %+v, want %d", label, len(got), got, len(want))
	}
	for i := range want {
		if got[i].Time != want[i].Time {
			t.Errorf("%s[%d]: time got %q, want %q", label, i, got[i].Time, want[i].Time)
		}
		if got[i].Description != want[i].Description {
			t.Errorf("%s[%d]: description got %q, want %q", label, i, got[i].Description, want[i].Description)
		}
		if got[i].Weekday != "" {
			t.Errorf("%s[%d]: internal weekday field leaked: %q", label, i, got[i].Weekday)
		}
	}
}

// categorySet renders which categories are populated, for comparing
// parses structurally without comparing entries.
func categorySet(r *Result) string {
	if r == nil {
		return "nil"
	}
	var parts []string
	if len(r.Sunday) > 0 {
		parts = append(parts, "sunday")
	}
	if len(r.Weekday) > 0 {
		parts = append(parts, "weekday")
	}
	if len(r.Saturday) > 0 {
		parts = append(parts, "saturday")
	}
	if len(r.Other) > 0 {
		parts = append(parts, "other")
	}
	return strings.Join(parts, "+")
}

func TestParseSectioned(t *testing.T) {
	text := "[주일미사] 오전 10:00 [평일미사] 오후 7:00"
	res := ParseMassTimes(text)
	if res == nil {
		t.Fatal("got nil result")
	}
	if res.Failed {
		t.Error("parse marked failed")
	}
	checkEntries(t, "sunday", res.Sunday, []Entry{{Time: "10:00"}})
	checkEntries(t, "weekday", res.Weekday, []Entry{{Time: "19:00"}})
	if res.RawText != text {
		t.Errorf("raw text: got %q, want %q", res.RawText, text)
	}
}

func TestParseSectionedSingleSection(t *testing.T) {
	// Unlike the flat grammar, a sectioned text with one category is a
	// real schedule: the marker itself is the evidence.
	res := ParseMassTimes("[주일미사] 오전 10:00")
	if res == nil {
		t.Fatal("got nil result")
	}
	if res.Failed {
		t.Error("parse marked failed")
	}
	checkEntries(t, "sunday", res.Sunday, []Entry{{Time: "10:00"}})
	if len(res.Weekday)+len(res.Saturday)+len(res.Other) != 0 {
		t.Errorf("unexpected extra categories: %s", categorySet(res))
	}
}

func TestParseSectionedDayRange(t *testing.T) {
	res := ParseMassTimes("[평일미사] 월-금 오전 6:30")
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "weekday", res.Weekday, []Entry{
		{Time: "06:30", Description: "월"},
		{Time: "06:30", Description: "화"},
		{Time: "06:30", Description: "수"},
		{Time: "06:30", Description: "목"},
		{Time: "06:30", Description: "금"},
	})
}

func TestParseSectionedAnnotations(t *testing.T) {
	res := ParseMassTimes("[주일미사] 오전 9:00 (교중미사) 오후 7:00 (청년미사)")
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "sunday", res.Sunday, []Entry{
		{Time: "09:00", Description: "교중미사"},
		{Time: "19:00", Description: "청년미사"},
	})
}

func TestParseSectionedExcludedKeywords(t *testing.T) {
	res := ParseMassTimes("[주일미사] 오전 10:00 (교중미사) 오후 2:00 (교리 수업)")
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "sunday", res.Sunday, []Entry{{Time: "10:00", Description: "교중미사"}})
}

func TestParseSectionedSaturdayRebucket(t *testing.T) {
	// Daegu-style listing: Saturday and Sunday lines both live under the
	// Sunday marker, split apart by the day headers.
	res := ParseMassTimes("[주일미사] 토요일 - 오후 6:00 주일 - 오전 9:00")
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "saturday", res.Saturday, []Entry{{Time: "18:00"}})
	checkEntries(t, "sunday", res.Sunday, []Entry{{Time: "09:00"}})
}

func TestParseSectionedWeekendRangeInWeekdaySection(t *testing.T) {
	res := ParseMassTimes("[평일미사] 토-일 오후 7:00")
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "weekday", res.Weekday, []Entry{{Time: "19:00", Description: "토"}})
	checkEntries(t, "sunday", res.Sunday, []Entry{{Time: "19:00"}})
}

func TestParseSectionedDedup(t *testing.T) {
	res := ParseMassTimes("[주일미사] 오전 10:00 (교중) 오전 10:00 (교중)")
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "sunday", res.Sunday, []Entry{{Time: "10:00", Description: "교중"}})
}

func TestParseSectionedDescriptionFolding(t *testing.T) {
	// Weekday entries get their day symbol folded into the description.
	res := ParseMassTimes("[평일미사] 월-금 오전 6:30 (새벽미사)")
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "weekday", res.Weekday, []Entry{
		{Time: "06:30", Description: "월 새벽미사"},
		{Time: "06:30", Description: "화 새벽미사"},
		{Time: "06:30", Description: "수 새벽미사"},
		{Time: "06:30", Description: "목 새벽미사"},
		{Time: "06:30", Description: "금 새벽미사"},
	})

	// No folding when the description already names the day.
	res = ParseMassTimes("[평일미사] 금 오후 8:00 (금요일 성시간)")
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "weekday", res.Weekday, []Entry{{Time: "20:00", Description: "금요일 성시간"}})
}

func TestParseSectionedNoEntries(t *testing.T) {
	text := "[주일미사] 준비중입니다"
	res := ParseMassTimes(text)
	if res == nil {
		t.Fatal("got nil result")
	}
	if !res.Failed {
		t.Error("expected failed parse marker")
	}
	if res.HasEntries() {
		t.Errorf("expected no entries, got %s", categorySet(res))
	}
	if res.RawText != text {
		t.Errorf("raw text: got %q, want %q", res.RawText, text)
	}
}

func TestParseFlatKeywordClassification(t *testing.T) {
	text := "06:30 (평일미사)\n10:00 (교중미사)\n18:00 (토요 특전미사)"
	res := ParseMassTimes(text)
	if res == nil {
		t.Fatal("got nil result")
	}
	if res.Failed {
		t.Error("parse marked failed")
	}
	checkEntries(t, "sunday", res.Sunday, []Entry{{Time: "10:00", Description: "교중미사"}})
	checkEntries(t, "weekday", res.Weekday, []Entry{{Time: "06:30", Description: "평일미사"}})
	checkEntries(t, "saturday", res.Saturday, []Entry{{Time: "18:00", Description: "토요 특전미사"}})
}

func TestParseFlatDayLines(t *testing.T) {
	text := "주일 06:30 10:00\n월 06:00\n토 16:00"
	res := ParseMassTimes(text)
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "sunday", res.Sunday, []Entry{
		{Time: "06:30", Description: "주일요일 06:30 미사"},
		{Time: "10:00", Description: "주일요일 10:00 미사"},
	})
	checkEntries(t, "weekday", res.Weekday, []Entry{{Time: "06:00", Description: "월요일 06:00 미사"}})
	checkEntries(t, "saturday", res.Saturday, []Entry{{Time: "16:00", Description: "토요일 16:00 미사"}})
}

func TestParseFlatSingleIsolatedTime(t *testing.T) {
	// An isolated time mention is office hours, not a schedule.
	if res := ParseMassTimes("사무실 운영시간 9:00"); res != nil {
		t.Errorf("got %s, want nil", categorySet(res))
	}
}

func TestParseFlatSingleCategory(t *testing.T) {
	// One populated category alone is below the evidence threshold for
	// the flat grammar.
	if res := ParseMassTimes("10:00 (교중미사)"); res != nil {
		t.Errorf("got %s, want nil", categorySet(res))
	}
}

func TestParseFlatDedup(t *testing.T) {
	res := ParseMassTimes("10:00 (교중미사)\n10:00 (교중미사)\n월 06:00")
	if res == nil {
		t.Fatal("got nil result")
	}
	checkEntries(t, "sunday", res.Sunday, []Entry{{Time: "10:00", Description: "교중미사"}})
	checkEntries(t, "weekday", res.Weekday, []Entry{{Time: "06:00", Description: "월요일 06:00 미사"}})
}

func TestParseIdempotence(t *testing.T) {
	texts := []string{
		"[주일미사] 오전 10:00 [평일미사] 오후 7:00",
		"06:30 (평일미사)\n10:00 (교중미사)",
	}
	for _, text := range texts {
		first := ParseMassTimes(text)
		if first == nil {
			t.Fatalf("first parse of %q is nil", text)
		}
		second := ParseMassTimes(first.RawText)
		if categorySet(second) != categorySet(first) {
			t.Errorf("re-parse of %q: got %s, want %s", text, categorySet(second), categorySet(first))
		}
	}
}

func TestParseRawTextExcerpt(t *testing.T) {
	long := strings.Repeat("가", 600) + "[주일미사] 오전 10:00"
	res := ParseMassTimes(long)
	if res == nil {
		t.Fatal("got nil result")
	}
	// Parsing covers the whole text; only the retained excerpt is cut.
	checkEntries(t, "sunday", res.Sunday, []Entry{{Time: "10:00"}})
	if n := utf8.RuneCountInString(res.RawText); n != 500 {
		t.Errorf("excerpt length: got %d runes, want 500", n)
	}
	if !strings.HasPrefix(long, res.RawText) {
		t.Error("excerpt is not a prefix of the input")
	}
}

func TestFailedResult(t *testing.T) {
	res := FailedResult("안내문 전체", "명동")
	if !res.Failed {
		t.Error("marker not flagged as failed")
	}
	if res.RawText != "안내문 전체" {
		t.Errorf("raw text: got %q", res.RawText)
	}
	if res.SearchTerm != "명동" {
		t.Errorf("search term: got %q, want %q", res.SearchTerm, "명동")
	}
	if res.HasEntries() || res.EntryCount() != 0 {
		t.Error("marker should carry no entries")
	}
}

func TestResultNilSafety(t *testing.T) {
	var r *Result
	if r.HasEntries() {
		t.Error("nil result reports entries")
	}
	if r.EntryCount() != 0 {
		t.Errorf("nil result entry count: got %d", r.EntryCount())
	}
}
