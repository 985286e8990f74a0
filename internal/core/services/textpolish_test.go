package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolishLight(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  prosfek karir bagus  ", "prospek karier bagus"},
		{"Apa KIATAR kamu?", "Apa maksud kamu?"},
		{"di karenakan   hujan", "dikarenakan hujan"},
		{"a\n\n\n\nb", "a\n\nb"},
		{"karirnya tetap", "karirnya tetap"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := PolishLight(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, PolishLight(got))
		})
	}
}

func TestAnswerShapeChecks(t *testing.T) {
	assert.True(t, LooksLikeMarkdownTable("| a |\n|---|"))
	assert.False(t, LooksLikeMarkdownTable("a | b"))
	assert.True(t, HasInteractiveSections("## Insight Singkat\n## Opsi Cepat"))
	assert.False(t, HasInteractiveSections("## Insight Singkat"))
	assert.True(t, HasCitation("x [SOURCE: a.pdf]"))
}

func TestAppendNotes(t *testing.T) {
	assert.Equal(t, "x", appendUnresolvedNote("x", nil))
	assert.Equal(t, "x\n\nCatatan rujukan: ada file yang tidak ditemukan (@a, @b).", appendUnresolvedNote("x", []string{"a", "b"}))

	assert.Equal(t, "x", appendWeakContextNote("x", "doc_background", 0))
	assert.Equal(t, "x", appendWeakContextNote("x", "doc_referenced", 2))
	assert.Contains(t, appendWeakContextNote("x", "doc_referenced", 0), "panduan umum")
}
