package services

import (
	"strings"

	"github.com/arah-ai/arah/internal/core/domain"
)

var (
	personalMarkers   = []string{"saya", "aku", "punya saya", "milik saya", "ipk saya", "ips saya", "transkrip saya", "jadwal saya", "nilai saya"}
	scheduleTypeWords = []string{"jadwal", "jam", "hari", "ruang", "kelas"}
	transcriptWords   = []string{"transkrip", "nilai", "grade", "bobot", "ipk", "ips"}
	docTargetMarkers  = []string{"rekap nilai", "nilai saya", "ipk saya", "ips saya", "transkrip", "jadwal saya", "jadwal kelas", "mata kuliah", "khs", "krs", "sks", "ruang", "jam", "semester"}
)

// abstainAnswer is returned instead of a model answer when a personal
// question has no supporting evidence.
const abstainAnswer = "Maaf, data dokumen belum cukup untuk menjawab pertanyaan personal ini secara akurat."

// IsPersonalQuery reports whether the query is about the asker's own records.
func IsPersonalQuery(query string) bool {
	return containsAny(strings.ToLower(query), personalMarkers)
}

// InferDocType guesses the document type a query is about. Schedule words
// win over transcript words; "krs" alone implies a schedule.
func InferDocType(query string) domain.DocType {
	ql := strings.ToLower(query)
	switch {
	case containsAny(ql, scheduleTypeWords):
		return domain.DocTypeSchedule
	case containsAny(ql, transcriptWords):
		return domain.DocTypeTranscript
	case strings.Contains(ql, "krs"):
		return domain.DocTypeSchedule
	default:
		return domain.DocTypeGeneral
	}
}

// ClassifyQueryIntent separates questions about the user's own records from
// general academic questions.
func ClassifyQueryIntent(query string) domain.QueryIntent {
	if containsAny(strings.ToLower(query), docTargetMarkers) {
		return domain.IntentDocTargeted
	}
	return domain.IntentGeneralAcademic
}

// ShouldAbstain is true iff there is no evidence, the question is personal
// and the document type needs grounding.
func ShouldAbstain(candidateCount int, docType domain.DocType, personal bool) bool {
	return candidateCount <= 0 && personal && docType.NeedsGrounding()
}
