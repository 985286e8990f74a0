package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
)

// Query heuristics for the structured analytics engine. All matching is on
// the lower-cased query.

var (
	scheduleMarkers    = []string{"jadwal", "krs", "hari"}
	lowGradeMarkers    = []string{"nilai rendah", "nilai jelek", "yang rendah", "tidak lulus", "ngulang", "ulang matkul"}
	recapMarkers       = []string{"rekap", "ringkas", "rangkum", "semua", "daftar"}
	statsMarkers       = []string{"ipk", "ips", "sks", "total sks", "hasil studi", "progress studi", "statistik studi", "belum dinilai"}
	strictMarkers      = []string{"transkrip", "khs", "tabel mentah", "data mentah"}
	todayMarkers       = []string{"hari ini", "today"}
	evaluativeMarkers  = []string{"bagaimana", "gimana", "evaluasi", "analisis", "progress", "perkembangan", "saran", "rekomendasi", "kelebihan", "kekurangan", "perbaiki", "strategi"}
	factualMarkers     = []string{"berapa", "nilai", "ipk", "ips", "sks", "semester", "daftar", "rekap", "matakuliah", "mata kuliah", "khs", "transkrip"}
	queryDayAliasOrder = []string{
		"senin", "selasa", "rabu", "kamis", "jumat", "jum'at", "sabtu", "minggu",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	}

	semesterFilterRe = regexp.MustCompile(`\bsemester\s*(\d{1,2})\b`)
	quotedTermRe     = regexp.MustCompile(`['"]([^'"]{3,120})['"]`)
	courseTermRes    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:nilai|matakuliah|mata kuliah|mk)\s+(?:untuk|dari|pada)?\s*([a-z0-9 .\-]{4,120})`),
		regexp.MustCompile(`(?i)(?:bagaimana|gimana|rekap)\s+(?:nilai|hasil)\s+([a-z0-9 .\-]{4,120})`),
	}
	courseTermStopSuffixes = []string{" saya berapa", " berapa", " saya", " ku", " ini", " dong", " ya", " sekarang", " ?", ","}
	courseTermPrefixRe     = regexp.MustCompile(`(?i)^(mata\s+kuliah|matakuliah)\s+`)
)

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// IsScheduleQuery reports whether the query asks about a class schedule.
func IsScheduleQuery(query string) bool {
	return containsAny(strings.ToLower(query), scheduleMarkers)
}

// IsLowGradeQuery reports whether the query asks for low or failed grades.
func IsLowGradeQuery(query string) bool {
	return containsAny(strings.ToLower(query), lowGradeMarkers)
}

// IsFullRecapQuery reports whether the query asks for every row.
func IsFullRecapQuery(query string) bool {
	return containsAny(strings.ToLower(query), recapMarkers)
}

// IsCourseRecapQuery reports whether the query is a generic course listing.
func IsCourseRecapQuery(query string) bool {
	ql := strings.ToLower(query)
	return strings.Contains(ql, "mata kuliah") || strings.Contains(ql, "matakuliah") || containsAny(ql, recapMarkers)
}

// IsStatsOnlyQuery reports whether the query only asks for study statistics.
func IsStatsOnlyQuery(query string) bool {
	return containsAny(strings.ToLower(query), statsMarkers) && !IsCourseRecapQuery(query)
}

// IsStrictTranscriptQuery reports whether a transcript query asks for raw data,
// which disables polishing.
func IsStrictTranscriptQuery(query string, docType domain.DocType) bool {
	if docType != domain.DocTypeTranscript {
		return false
	}
	return containsAny(strings.ToLower(query), strictMarkers)
}

// ClassifyTranscriptAnswerMode picks the presentation tone for transcript data.
func ClassifyTranscriptAnswerMode(query string) domain.AnswerMode {
	ql := strings.ToLower(query)
	switch {
	case containsAny(ql, evaluativeMarkers):
		return domain.AnswerModeEvaluative
	case containsAny(ql, factualMarkers):
		return domain.AnswerModeFactual
	default:
		return domain.AnswerModeGeneral
	}
}

// ExtractSemesterFilter returns the semester named in the query.
func ExtractSemesterFilter(query string) (int, bool) {
	m := semesterFilterRe.FindStringSubmatch(strings.ToLower(query))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractDayFilter returns the canonical day named in the query. "hari ini"
// resolves against now in loc.
func ExtractDayFilter(query string, now time.Time, loc *time.Location) string {
	ql := strings.ToLower(query)
	aliases := domain.DayAliases()
	for _, raw := range queryDayAliasOrder {
		if strings.Contains(ql, raw) {
			return aliases[raw]
		}
	}
	if containsAny(ql, todayMarkers) {
		if loc != nil {
			now = now.In(loc)
		}
		// time.Weekday is Sunday-first; Weekdays is Monday-first.
		return domain.Weekdays[(int(now.Weekday())+6)%7]
	}
	return ""
}

// ExtractCourseTerm pulls a course name fragment from quotes or phrasing such
// as "nilai basis data saya berapa".
func ExtractCourseTerm(query string) string {
	q := strings.TrimSpace(query)
	if q == "" {
		return ""
	}
	if m := quotedTermRe.FindStringSubmatch(q); m != nil {
		return strings.TrimSpace(m[1])
	}

	ql := strings.ToLower(q)
	for _, re := range courseTermRes {
		m := re.FindStringSubmatch(ql)
		if m == nil {
			continue
		}
		term := strings.TrimSpace(m[1])
		if term == "" {
			continue
		}
		for _, suffix := range courseTermStopSuffixes {
			if strings.HasSuffix(term, suffix) {
				term = strings.TrimSpace(strings.TrimSuffix(term, suffix))
			}
		}
		term = strings.TrimSpace(courseTermPrefixRe.ReplaceAllString(term, ""))
		if len([]rune(term)) >= 4 {
			return term
		}
	}
	return ""
}
