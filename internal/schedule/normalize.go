package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// dayCycle is the ordered week used for range expansion. Sunday is the
// canonical 주일; the bare 일 is normalized at range endpoints.
var dayCycle = []string{"월", "화", "수", "목", "금", "토", daySunday}

// dailyDays is what "매일" expands to. Sunday is excluded: Sunday mass
// is its own category, never part of a daily schedule.
var dailyDays = []string{"월", "화", "수", "목", "금", "토"}

// ExpandDayRange expands a day expression into individual day symbols.
// "매일" covers Monday through Saturday; "a-b" is the inclusive slice of
// the week cycle from a to b. Anything unresolvable, including a
// reversed range, falls back to the expression itself as a single
// element. Never fails.
func ExpandDayRange(expr string) []string {
	if strings.Contains(expr, "매일") {
		return append([]string(nil), dailyDays...)
	}
	if strings.Contains(expr, "-") {
		parts := strings.Split(expr, "-")
		if len(parts) != 2 {
			return []string{expr}
		}
		start := cycleIndex(canonicalDay(parts[0]))
		end := cycleIndex(canonicalDay(parts[1]))
		if start < 0 || end < 0 || start > end {
			return []string{expr}
		}
		return append([]string(nil), dayCycle[start:end+1]...)
	}
	return []string{expr}
}

func canonicalDay(day string) string {
	if day == "일" {
		return daySunday
	}
	return day
}

func cycleIndex(day string) int {
	for i, d := range dayCycle {
		if d == day {
			return i
		}
	}
	return -1
}

// NormalizeClockTime converts an H:MM string with a 오전/오후 qualifier
// to zero-padded 24-hour form. 오후 adds 12 to hours 1-11 (12 stays);
// 오전 maps hour 12 to 0. Without a qualifier the input passes through
// untouched: ambiguity is preserved, not guessed. Malformed input is
// returned unchanged.
func NormalizeClockTime(t, meridiem string) string {
	if meridiem == "" {
		return t
	}
	parts := strings.Split(t, ":")
	if len(parts) != 2 {
		return t
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return t
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return t
	}
	switch {
	case meridiem == "오후" && hour < 12:
		hour += 12
	case meridiem == "오전" && hour == 12:
		hour = 0
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// The 19 Hangul leading consonants in Unicode order.
var leadingConsonants = []string{
	"ㄱ", "ㄲ", "ㄴ", "ㄷ", "ㄸ", "ㄹ", "ㅁ", "ㅂ", "ㅃ",
	"ㅅ", "ㅆ", "ㅇ", "ㅈ", "ㅉ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ",
}

// LeadingConsonant returns the leading consonant of the first rune of a
// Hangul string. Syllable blocks decompose arithmetically: 588 syllables
// share each leading consonant. The second return is false when the
// first rune is not a Hangul syllable.
func LeadingConsonant(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(s)
	code := int(r) - 0xAC00
	if code < 0 || code > 11171 {
		return "", false
	}
	return leadingConsonants[code/588], true
}
