package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// Templates use Go text/template fields, listed per prompt.
const (
	// PromptAnswer is the grounded answer prompt.
	// Fields: .Query, .Context.
	PromptAnswer = "answer"

	// PromptCitation asks a model to add [source: ...] markers without new facts.
	// Fields: .Answer.
	PromptCitation = "citation"

	// PromptTableEnrichment adds interactive sections around a markdown table.
	// Fields: .Answer.
	PromptTableEnrichment = "table_enrichment"

	// PromptPolish rewrites a deterministic structured answer fluently.
	// Fields: .Style, .StyleInstruction, .DocType, .Query, .Facts, .Draft.
	PromptPolish = "polish"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
// Services implementing this interface can have their prompt templates customised
// by injecting a PromptStore after construction.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}

// DefaultPrompts returns the built-in template for every well-known prompt.
// File-backed stores seed user-editable copies from it and services fall back
// to it when no store is configured.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptAnswer: `Anda adalah asisten akademik. Jawab ringkas, akurat, dan hanya berdasarkan konteks.
Jika konteks tidak cukup, katakan data tidak cukup.

Pertanyaan:
{{.Query}}

Konteks:
{{.Context}}

Jawaban:`,

		PromptCitation: "Perbaiki jawaban agar setiap klaim faktual spesifik menyertakan sitasi `[source: ...]` berdasarkan konteks yang sama. Jangan tambah fakta baru.\n\nJawaban saat ini:\n{{.Answer}}",

		PromptTableEnrichment: `Tambahkan lapisan interaktif TANPA mengubah isi tabel & tanpa menambah data baru.

Aturan:
- Pertahankan tabel apa adanya.
- Pastikan ada heading wajib (persis):
  ## Ringkasan
  ## Tabel
  ## Insight Singkat
  ## Pertanyaan Lanjutan
  ## Opsi Cepat
- Tambahkan Insight Singkat (2-4 bullet)
- Tambahkan Pertanyaan Lanjutan
- Tambahkan Opsi Cepat (2 opsi)

JAWABAN:
{{.Answer}}`,

		PromptPolish: `Anda adalah Asisten Akademik.
Data JSON di bawah ini adalah FAKTA MUTLAK dari sistem database terstruktur.
Tugas Anda HANYA menyusun data ini menjadi kalimat yang ramah untuk pengguna.
DILARANG KERAS menambah, mengurangi, atau mengubah nama mata kuliah/nilai/jam.
Jika data JSON kosong, katakan: 'Maaf, data tidak ditemukan di dokumen Anda'.
Pertahankan format markdown dengan tabel.

Gaya jawaban: {{.Style}}
Instruksi gaya: {{.StyleInstruction}}

Jenis data: {{.DocType}}
Pertanyaan user: {{.Query}}
Data JSON: {{.Facts}}

Draf jawaban deterministik:
{{.Draft}}`,
	}
}
