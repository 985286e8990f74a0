package services

import (
	"regexp"
	"strings"

	"github.com/arah-ai/arah/internal/core/domain"
)

// patternSet is an ordered list of case-insensitive patterns.
type patternSet struct {
	sources []string
	res     []*regexp.Regexp
}

func newPatternSet(patterns ...string) patternSet {
	ps := patternSet{sources: patterns, res: make([]*regexp.Regexp, len(patterns))}
	for i, p := range patterns {
		ps.res[i] = regexp.MustCompile(`(?i)` + p)
	}
	return ps
}

// hits returns the source of every pattern matching text, in order.
func (ps patternSet) hits(text string) []string {
	var out []string
	for i, re := range ps.res {
		if re.MatchString(text) {
			out = append(out, ps.sources[i])
		}
	}
	return out
}

var (
	crimePatterns = newPatternSet(
		`\bjudi\b`,
		`\bjudi online\b`,
		`\bslot\b`,
		`\btaruhan\b`,
		`\bphishing\b`,
		`\bcarding\b`,
		`\bscam\b`,
		`\bpenipuan\b`,
		`\bhack(?:ing)?\b`,
		`\bmeretas?\b`,
		`\bbobol\b`,
		`\bbypass\b`,
		`\bexploit\b`,
		`\bnarkoba\b`,
	)

	politicalPatterns = newPatternSet(
		`\bkampanye\b`,
		`\bpropaganda\b`,
		`\bmanipulasi opini\b`,
		`\bblack campaign\b`,
		`\bmenangkan calon\b`,
		`\bserang lawan politik\b`,
	)

	weirdMarkers = []string{
		"ramalan hoki",
		"cara jadi dukun",
		"santet",
		"pesugihan",
		"cara hipnotis orang",
	}
)

// ClassifySafety runs the ordered guard pattern sets. The first matching set
// decides; an empty query is allowed.
func ClassifySafety(query string) domain.SafetyResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return domain.SafetyResult{Decision: domain.SafetyAllow, Reason: "empty_query"}
	}
	if tags := crimePatterns.hits(q); len(tags) > 0 {
		return domain.SafetyResult{Decision: domain.SafetyRefuseCrime, Reason: "crime_or_harmful_request", Tags: tags}
	}
	if tags := politicalPatterns.hits(q); len(tags) > 0 {
		return domain.SafetyResult{Decision: domain.SafetyRefusePolitical, Reason: "political_persuasion_request", Tags: tags}
	}
	for _, m := range weirdMarkers {
		if strings.Contains(q, m) {
			return domain.SafetyResult{Decision: domain.SafetyRedirectWeird, Reason: "out_of_scope_weird_query", Tags: weirdMarkers}
		}
	}
	return domain.SafetyResult{Decision: domain.SafetyAllow, Reason: "safe"}
}

const (
	weirdAnswer = "## Ringkasan\n" +
		"Pertanyaan tadi agak di luar fokus akademik kampus. Biar tetap berguna, Aku bantu arahkan ke hal yang lebih relevan untuk kuliah dan karier Kamu.\n\n" +
		"- Kita bisa ubah jadi pertanyaan yang hasilnya benar-benar kepakai.\n" +
		"- Aku siap bantu dengan jawaban yang ringkas dan konkret.\n\n" +
		"## Opsi Lanjut\n" +
		"- Mau Aku bantu pilih jurusan sesuai minat dan target kerja?\n" +
		"- Atau Aku buatin rencana belajar singkat biar IPK dan skill kamu naik?"

	crimeAnswer = "## Ringkasan\n" +
		"Aku paham Kamu lagi cari arah, dan itu valid. Tapi Aku tidak bisa bantu hal yang melanggar hukum atau berpotensi membahayakan.\n\n" +
		"- Aku bisa bantu Kamu cari jalur akademik yang legal dan tetap realistis buat masa depan.\n" +
		"- Kita bisa ubah fokus ke skill yang benar-benar kepakai di dunia kerja.\n\n" +
		"## Opsi Lanjut\n" +
		"- Kalau goal Kamu di HR/Tech/Bisnis, Aku bisa rekomendasikan jurusan dan roadmap skill yang valid.\n" +
		"- Aku juga bisa bantu rencana semester singkat 3-6 bulan biar progres kamu jelas.\n" +
		"- Kalau mau, kirim target kariermu, nanti Aku bikinin langkah konkretnya."

	politicalAnswer = "## Ringkasan\n" +
		"Aku tidak bisa bantu strategi propaganda atau manipulasi politik praktis. Namun, Aku tetap bisa bantu dari sisi akademik yang netral dan edukatif.\n\n" +
		"- Fokusku adalah membantu Kamu memahami topik secara objektif.\n" +
		"- Kita tetap bisa bahas jalur studi dan prospek karier yang relevan.\n\n" +
		"## Opsi Lanjut\n" +
		"- Aku bisa jelaskan jurusan Ilmu Politik, Hukum, Administrasi Publik, dan prospek kariernya.\n" +
		"- Aku juga bisa bantu ringkas konsep sistem politik secara objektif untuk belajar."

	outOfDomainAnswer = "## Ringkasan\n" +
		"Maaf, saya hanya asisten akademik kampus.\n\n" +
		"## Opsi Lanjut\n" +
		"- Saya bisa bantu jadwal kuliah, rekap nilai, KRS/KHS, dan strategi studi.\n" +
		"- Coba tulis ulang pertanyaan dalam konteks akademik."
)

// GuardResponse builds the fixed answer for a terminal safety decision.
func GuardResponse(decision domain.SafetyDecision) domain.AnswerEnvelope {
	var answer string
	switch decision {
	case domain.SafetyRedirectWeird:
		answer = weirdAnswer
	case domain.SafetyRefuseCrime:
		answer = crimeAnswer
	default:
		answer = politicalAnswer
	}
	return domain.AnswerEnvelope{
		Answer:  PolishLight(answer),
		Sources: []domain.Source{},
		Meta: domain.AnswerMeta{
			Mode:           domain.MetaModeGuard,
			Pipeline:       domain.PipelineRouteGuard,
			IntentRoute:    domain.RouteDefaultRAG,
			Validation:     domain.ValidationNotApplicable,
			Safety:         decision,
			AnalyticsStats: &domain.AnalyticsStats{},
		},
	}
}

// OutOfDomainResponse builds the fixed "academic assistant only" answer.
func OutOfDomainResponse(route domain.IntentRoute) domain.AnswerEnvelope {
	return domain.AnswerEnvelope{
		Answer:  PolishLight(outOfDomainAnswer),
		Sources: []domain.Source{},
		Meta: domain.AnswerMeta{
			Mode:           domain.MetaModeGuard,
			Pipeline:       domain.PipelineRouteGuard,
			IntentRoute:    route,
			Validation:     domain.ValidationNotApplicable,
			AnalyticsStats: &domain.AnalyticsStats{},
		},
	}
}
