package schedule

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ParseMassTimes extracts a structured schedule from page text. Text
// carrying bracketed section markers uses the sectioned grammar; all
// other text uses the flat keyword grammar, which returns nil unless it
// finds enough structure to rule out incidental time mentions.
func ParseMassTimes(text string) *Result {
	if strings.Contains(text, "[주일미사]") || strings.Contains(text, "[평일미사]") {
		return parseSectioned(text)
	}
	return parseFlat(text)
}

// Sectioned grammar. One logical line per schedule fragment after break
// injection; tokens in priority order: meridiem, day range, single day,
// H:MM time, parenthesized annotation. A single day token is rejected
// when a particle or 요(일) suffix follows, so prose like 월요일 or 주일은
// does not register a stray day.
var sectionTokenRe = regexp.MustCompile(`(오전|오후)|([월화수목금토일주]-[월화수목금토일주])|([월화수목금토일주][요은는]?)|(\d{1,2}:\d{2})|(\([^)]+\))`)

var (
	saturdayHeaderRe = regexp.MustCompile(`(토요일\s*-)`)
	sundayHeaderRe   = regexp.MustCompile(`(주일\s*-)`)
)

// dayWordReplacer collapses full day words to their grammar symbols.
var dayWordReplacer = strings.NewReplacer("토요일", "토", "일요일", daySunday)

// Administrative (non-worship) items dropped from parsed schedules.
var excludedKeywords = []string{"후원회", "교리", "교정사목"}

// sectionState is the live parser state. Section persists across lines;
// meridiem and days reset on every line.
type sectionState struct {
	section  string
	meridiem string
	days     []string
}

// entryRef points into the working buckets so a trailing annotation can
// amend the entries emitted by the preceding time token.
type entryRef struct {
	category string
	index    int
}

func parseSectioned(text string) *Result {
	work := make(map[string][]Entry, len(categoryOrder))
	state := sectionState{section: categoryOther}

	for _, line := range strings.Split(injectLineBreaks(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "[주일미사]") {
			state.section = categorySunday
			continue
		}
		if strings.Contains(line, "[평일미사]") {
			state.section = categoryWeekday
			continue
		}

		state.meridiem = ""
		state.days = nil
		var lastAdded []entryRef

		clean := dayWordReplacer.Replace(line)
		for _, tok := range sectionTokenRe.FindAllStringSubmatch(clean, -1) {
			switch {
			case tok[1] != "":
				state.meridiem = tok[1]
			case tok[2] != "":
				state.days = ExpandDayRange(tok[2])
			case tok[3] != "":
				if utf8.RuneCountInString(tok[3]) == 1 {
					state.days = []string{canonicalDay(tok[3])}
				}
			case tok[4] != "":
				lastAdded = emitEntries(work, state, tok[4])
			case tok[5] != "":
				annotate(work, lastAdded, strings.Trim(tok[5], "()"))
			}
		}
	}

	return finalizeSectioned(work, text)
}

// injectLineBreaks isolates section markers and day headers onto their
// own logical lines so the line scanner sees one fragment at a time.
func injectLineBreaks(text string) string {
	normalized := strings.ReplaceAll(text, "[주일미사]", "\n[주일미사]\n")
	normalized = strings.ReplaceAll(normalized, "[평일미사]", "\n[평일미사]\n")
	normalized = saturdayHeaderRe.ReplaceAllString(normalized, "\n$1")
	normalized = sundayHeaderRe.ReplaceAllString(normalized, "\n$1")
	return normalized
}

// emitEntries emits one entry per active day for a time token and
// returns references to them. A Sunday section with no day context
// implies Sunday itself; a weekday section emits a single day-less
// entry. Outside the marked sections a bare time is noise (office
// hours, phone numbers with colons) and emits nothing.
func emitEntries(work map[string][]Entry, state sectionState, timeToken string) []entryRef {
	final := NormalizeClockTime(timeToken, state.meridiem)

	days := state.days
	if len(days) == 0 {
		switch state.section {
		case categorySunday:
			days = []string{daySunday}
		case categoryWeekday:
			days = []string{""}
		}
	}

	refs := make([]entryRef, 0, len(days))
	for _, d := range days {
		category := state.section
		if d == daySaturday && state.section == categorySunday {
			category = categorySaturday
		}
		if category == categoryWeekday && d == daySunday {
			category = categorySunday
		}
		work[category] = append(work[category], Entry{Time: final, Weekday: d})
		refs = append(refs, entryRef{category, len(work[category]) - 1})
	}
	return refs
}

func annotate(work map[string][]Entry, refs []entryRef, desc string) {
	for _, ref := range refs {
		e := &work[ref.category][ref.index]
		if e.Description != "" {
			e.Description += " " + desc
		} else {
			e.Description = desc
		}
	}
}

// finalizeSectioned filters administrative entries, folds weekday
// symbols into descriptions, deduplicates on (time, description) and
// drops the internal day field.
func finalizeSectioned(work map[string][]Entry, text string) *Result {
	res := &Result{RawText: excerpt(text)}

	for _, category := range categoryOrder {
		seen := make(map[string]bool)
		for _, e := range work[category] {
			if containsAny(e.Description, excludedKeywords) {
				continue
			}
			if category == categoryWeekday && e.Weekday != "" && !strings.Contains(e.Description, e.Weekday) {
				e.Description = strings.TrimSpace(e.Weekday + " " + e.Description)
			}
			key := e.Time + "|" + e.Description
			if seen[key] {
				continue
			}
			seen[key] = true
			e.Weekday = ""
			bucket := res.bucket(category)
			*bucket = append(*bucket, e)
		}
	}

	if !res.HasEntries() {
		res.Failed = true
	}
	return res
}

// Flat grammar. Two independent passes: explicit "H:MM (description)"
// pairs, then day-prefixed lines with any number of times on them.
var (
	timeDescRe = regexp.MustCompile(`(\d{1,2}:\d{2})\s*\(([^)]+)\)`)
	clockRe    = regexp.MustCompile(`\d{1,2}:\d{2}`)
)

// flatDays lists day prefixes in probe order; 주일 must come before the
// bare 일 so a 주일 line is not claimed by the shorter symbol.
var flatDays = []string{"월", "화", "수", "목", "금", "토", daySunday, "일"}

var (
	sundayKeywords   = []string{"주일", "일요일", "교중", "청년", "청소년"}
	saturdayKeywords = []string{"토요", "토", "특전"}
	weekdayKeywords  = []string{"평일", "월", "화", "수", "목", "금"}
)

func parseFlat(text string) *Result {
	res := &Result{RawText: excerpt(text)}

	for _, m := range timeDescRe.FindAllStringSubmatch(text, -1) {
		classify(res, Entry{Time: m[1], Description: m[2]}, m[2])
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		day := lineDayPrefix(line)
		if day == "" {
			continue
		}
		for _, t := range clockRe.FindAllString(line, -1) {
			desc := fmt.Sprintf("%s요일 %s 미사", day, t)
			classify(res, Entry{Time: t, Description: desc}, desc)
		}
	}

	dedupe(res)

	// A single category is not enough evidence of a schedule; unrelated
	// page text routinely contains isolated time mentions.
	if res.categoryCount() < 2 {
		return nil
	}
	return res
}

func lineDayPrefix(line string) string {
	for _, d := range flatDays {
		if strings.HasPrefix(line, d) {
			return d
		}
	}
	return ""
}

// classify routes an entry by keyword evidence, most specific first.
func classify(res *Result, e Entry, keywordSource string) {
	k := strings.ToLower(keywordSource)
	switch {
	case containsAny(k, sundayKeywords):
		res.Sunday = append(res.Sunday, e)
	case containsAny(k, saturdayKeywords):
		res.Saturday = append(res.Saturday, e)
	case containsAny(k, weekdayKeywords):
		res.Weekday = append(res.Weekday, e)
	default:
		res.Other = append(res.Other, e)
	}
}

func dedupe(res *Result) {
	for _, category := range categoryOrder {
		bucket := res.bucket(category)
		seen := make(map[string]bool, len(*bucket))
		unique := (*bucket)[:0]
		for _, e := range *bucket {
			key := e.Time + "|" + e.Description
			if seen[key] {
				continue
			}
			seen[key] = true
			unique = append(unique, e)
		}
		*bucket = unique
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
