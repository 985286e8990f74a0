package services

import (
	"regexp"
	"strings"
)

// typoFixes are informal spellings corrected in every outgoing answer.
// Applied in order; each replacement is a whole-word, case-insensitive match.
var typoFixes = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?i)\bkiatar\b`), "maksud"},
	{regexp.MustCompile(`(?i)\bprosfek\b`), "prospek"},
	{regexp.MustCompile(`(?i)\bkarir\b`), "karier"},
	{regexp.MustCompile(`(?i)\bdi karenakan\b`), "dikarenakan"},
}

var (
	inlineSpaceRun = regexp.MustCompile(`[ \t]{2,}`)
	blankLineRun   = regexp.MustCompile(`\n{3,}`)
)

// PolishLight applies typo fixes and whitespace collapsing. It is idempotent.
func PolishLight(answer string) string {
	text := strings.TrimSpace(answer)
	if text == "" {
		return text
	}
	for _, fix := range typoFixes {
		text = fix.re.ReplaceAllString(text, fix.with)
	}
	text = inlineSpaceRun.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// LooksLikeMarkdownTable reports whether answer contains a pipe table.
func LooksLikeMarkdownTable(answer string) bool {
	return strings.Contains(answer, "|") && strings.Contains(answer, "---")
}

// HasInteractiveSections reports whether answer already carries the insight
// and follow-up sections added by table enrichment.
func HasInteractiveSections(answer string) bool {
	a := strings.ToLower(answer)
	return strings.Contains(a, "insight singkat") &&
		(strings.Contains(a, "pertanyaan lanjutan") || strings.Contains(a, "opsi cepat"))
}

// HasCitation reports whether answer carries a [source: ...] marker.
func HasCitation(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "[source:")
}

const unresolvedNotePrefix = "Catatan rujukan: ada file yang tidak ditemukan"

// appendUnresolvedNote adds the missing-file disclaimer for unresolved
// mentions. An answer that already carries it is returned unchanged.
func appendUnresolvedNote(answer string, unresolved []string) string {
	if len(unresolved) == 0 || strings.Contains(answer, unresolvedNotePrefix) {
		return answer
	}
	tagged := make([]string, len(unresolved))
	for i, m := range unresolved {
		tagged[i] = "@" + m
	}
	return strings.TrimSpace(answer + "\n\n" + unresolvedNotePrefix + " (" + strings.Join(tagged, ", ") + ").")
}

// appendWeakContextNote marks referenced-document answers that found no context.
func appendWeakContextNote(answer, mode string, contextCount int) string {
	if mode != "doc_referenced" || contextCount > 0 {
		return answer
	}
	return strings.TrimSpace(answer + "\n\nCatatan: Aku belum menemukan konteks kuat dari file rujukan, jadi jawaban ini " +
		"lebih bersifat panduan umum.")
}
