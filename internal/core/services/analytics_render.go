package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arah-ai/arah/internal/core/domain"
)

// TranscriptProfile is the student summary pulled from transcript text chunks.
type TranscriptProfile struct {
	Name           string   `json:"nama"`
	StudentID      string   `json:"nim"`
	Program        string   `json:"program_studi"`
	CreditsTaken   *int     `json:"sks_ditempuh"`
	CreditsNeeded  *int     `json:"sks_wajib"`
	GPA            string   `json:"ipk"`
	PendingCourses []string `json:"pending_courses"`
}

var (
	profileNameRe        = regexp.MustCompile(`(?i)Nama\s*:\s*([A-Z ]+?)\s+Dosen\s+PA`)
	profileNIMRe         = regexp.MustCompile(`(?i)\bNIM\s*:?\s*(\d+)\b`)
	profileProgramNIMRe  = regexp.MustCompile(`(?i)Program\s+NIM\s*:?\s*\d+\s*:?\s*([A-Za-z ]+?)\s+Studi`)
	profileProgramRe     = regexp.MustCompile(`(?i)Program\s+Studi\s*:?\s*([A-Za-z ]+)`)
	profileTakenRe       = regexp.MustCompile(`(?i)Jumlah\s+SKS\s+yang\s+telah\s+ditempuh\s*:?\s*(\d+)`)
	profileNeededRe      = regexp.MustCompile(`(?i)SKS\s+yang\s+harus\s+ditempuh\s*:?\s*(\d+)`)
	profileGPARe         = regexp.MustCompile(`(?i)\bIPK\s*:?\s*([0-9]+(?:\.[0-9]+)?)`)
	profileQuestionnaire = regexp.MustCompile(`(?i)Isi\s+Kuisioner|Isi\s+Kuesioner`)
	anyWhitespaceRun     = regexp.MustCompile(`\s+`)

	// pendingCandidates are courses graded only after the questionnaire is filled.
	pendingCandidates = []string{"Pembelajaran Mendalam", "Skripsi"}
)

// ExtractTranscriptProfile scans transcript text chunks for the student's
// identity and study totals. Missing fields stay "-" or nil.
func ExtractTranscriptProfile(chunks []string) TranscriptProfile {
	out := TranscriptProfile{Name: "-", StudentID: "-", Program: "-", PendingCourses: []string{}}

	var parts []string
	for _, c := range chunks {
		if s := strings.TrimSpace(c); s != "" {
			parts = append(parts, s)
		}
	}
	merged := strings.TrimSpace(anyWhitespaceRun.ReplaceAllString(strings.Join(parts, " "), " "))
	if merged == "" {
		return out
	}

	if m := profileNameRe.FindStringSubmatch(merged); m != nil {
		out.Name = strings.TrimSpace(m[1])
	}
	if m := profileNIMRe.FindStringSubmatch(merged); m != nil {
		out.StudentID = strings.TrimSpace(m[1])
	}
	if m := profileProgramNIMRe.FindStringSubmatch(merged); m != nil {
		out.Program = strings.TrimSpace(m[1])
	}
	if out.Program == "-" {
		if m := profileProgramRe.FindStringSubmatch(merged); m != nil {
			out.Program = strings.TrimSpace(m[1])
		}
	}
	if m := profileTakenRe.FindStringSubmatch(merged); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out.CreditsTaken = &n
		}
	}
	if m := profileNeededRe.FindStringSubmatch(merged); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out.CreditsNeeded = &n
		}
	}
	if m := profileGPARe.FindStringSubmatch(merged); m != nil {
		out.GPA = strings.TrimSpace(m[1])
	}

	if profileQuestionnaire.MatchString(merged) {
		lower := strings.ToLower(merged)
		for _, course := range pendingCandidates {
			if strings.Contains(lower, strings.ToLower(course)) {
				out.PendingCourses = append(out.PendingCourses, course)
			}
		}
	}
	return out
}

const (
	transcriptNotFound = "## Ringkasan\n" +
		"Maaf, data tidak ditemukan di dokumen Anda.\n\n" +
		"## Opsi Lanjut\n" +
		"- Pastikan dokumen KHS/Transkrip sudah terunggah.\n" +
		"- Jika ingin, sebutkan semester spesifik yang ingin direkap."

	rowsNotFound = "## Ringkasan\n" +
		"Maaf, data tidak ditemukan di dokumen Anda.\n\n" +
		"## Opsi Lanjut\n" +
		"- Pastikan dokumen akademik sudah terunggah.\n" +
		"- Jika sudah upload, coba sebutkan detail semester/hari."

	strictTranscriptNotFound = "## Ringkasan\n" +
		"Maaf, data tidak ditemukan di dokumen Anda.\n\n" +
		"## Opsi Lanjut\n" +
		"- Pastikan dokumen KHS/Transkrip sudah terunggah.\n" +
		"- Jika sudah, coba re-ingest dokumen lalu ulangi pertanyaan."
)

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func totalCredits(facts []domain.TranscriptFact) int {
	total := 0
	for _, f := range facts {
		total += f.Credits
	}
	return total
}

// RenderTranscript renders transcript facts as deterministic markdown. The
// layout depends on whether the query asks for low grades, statistics only,
// or a full recap.
func RenderTranscript(facts []domain.TranscriptFact, query string, profile TranscriptProfile) string {
	if len(facts) == 0 {
		return transcriptNotFound
	}

	if IsLowGradeQuery(query) {
		lines := []string{
			"## Ringkasan Nilai Rendah",
			fmt.Sprintf("- Total mata kuliah: **%d**", len(facts)),
			fmt.Sprintf("- Total SKS: **%d**", totalCredits(facts)),
			"",
			"## Tabel",
			"| Semester | Mata Kuliah | SKS | Nilai Huruf |",
			"|---|---|---:|---|",
		}
		for _, f := range facts {
			lines = append(lines, fmt.Sprintf("| %d | %s | %d | %s |", f.Semester, f.Course, f.Credits, f.Grade))
		}
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}

	taken := totalCredits(facts)
	if profile.CreditsTaken != nil {
		taken = *profile.CreditsTaken
	}
	needed := "-"
	if profile.CreditsNeeded != nil {
		needed = strconv.Itoa(*profile.CreditsNeeded)
	}
	pendingLine := "- Mata kuliah belum dinilai: **-**"
	if len(profile.PendingCourses) > 0 {
		pendingLine = fmt.Sprintf("- Mata kuliah belum dinilai: **%s** (menunggu isi kuesioner)", strings.Join(profile.PendingCourses, ", "))
	}

	intro := "Berdasarkan Kartu Hasil Studi, berikut rekap hasil studi kamu."
	statsOnly := IsStatsOnlyQuery(query)
	if statsOnly {
		intro = "Berdasarkan Kartu Hasil Studi, berikut ringkasan hasil studi kamu."
	}
	lines := []string{
		intro,
		"",
		"## Informasi Umum",
		fmt.Sprintf("- Nama: **%s**", dash(profile.Name)),
		fmt.Sprintf("- NIM: **%s**", dash(profile.StudentID)),
		fmt.Sprintf("- Program Studi: **%s**", dash(profile.Program)),
		"",
		"## Statistik Studi",
		fmt.Sprintf("- Total mata kuliah terdata: **%d**", len(facts)),
		fmt.Sprintf("- Total SKS ditempuh: **%d SKS**", taken),
		fmt.Sprintf("- SKS wajib: **%s SKS**", needed),
		fmt.Sprintf("- IPK: **%s**", dash(profile.GPA)),
		pendingLine,
	}
	if statsOnly {
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}

	pending := make(map[string]struct{}, len(profile.PendingCourses))
	for _, c := range profile.PendingCourses {
		pending[strings.ToLower(c)] = struct{}{}
	}
	lines = append(lines,
		"",
		"## Daftar Mata Kuliah",
		"| No | Mata Kuliah | SKS | Nilai |",
		"|---:|---|---:|---|",
	)
	for i, f := range facts {
		grade := strings.ToUpper(f.Grade)
		if _, ok := pending[strings.ToLower(f.Course)]; ok {
			grade = "(Isi Kuesioner Terlebih Dahulu)"
		}
		lines = append(lines, fmt.Sprintf("| %d | %s | %d | %s |", i+1, f.Course, f.Credits, grade))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// RenderSchedule renders schedule facts, titled with the day filter if any.
func RenderSchedule(facts []domain.ScheduleFact, day string) string {
	if len(facts) == 0 {
		suffix := ""
		if day != "" {
			suffix = " untuk **" + day + "**"
		}
		return "## Ringkasan\n" +
			"Maaf, data tidak ditemukan di dokumen Anda" + suffix + ".\n\n" +
			"## Opsi Lanjut\n" +
			"- Pastikan dokumen KRS/Jadwal sudah terunggah.\n" +
			"- Coba sebutkan hari yang ingin dicek, contoh: `jadwal hari senin`."
	}

	title := "## Ringkasan Jadwal"
	if day != "" {
		title += " " + day
	}
	lines := []string{
		title,
		fmt.Sprintf("- Total kelas: **%d**", len(facts)),
		"",
		"## Tabel",
		"| Hari | Jam | Mata Kuliah | Ruangan | Semester |",
		"|---|---|---|---|---:|",
	}
	for _, f := range facts {
		semester := "-"
		if f.Semester > 0 {
			semester = strconv.Itoa(f.Semester)
		}
		lines = append(lines, fmt.Sprintf("| %s | %s-%s | %s | %s | %s |",
			f.Day, f.Start, f.End, f.Course, dash(f.Room), semester))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// maxFactSources caps the citations attached to a structured answer.
const maxFactSources = 8

// RenderFactSources builds one citation per distinct "source (p.N)" label.
func RenderFactSources[F domain.Fact](facts []F) []domain.Source {
	out := []domain.Source{}
	seen := make(map[string]struct{})
	for _, f := range facts {
		label := f.Origin().Label()
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, domain.Source{Source: label, Snippet: f.Snippet()})
		if len(out) >= maxFactSources {
			break
		}
	}
	return out
}
