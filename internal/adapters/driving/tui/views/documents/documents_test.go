package documents

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arah-ai/arah/internal/adapters/driving/tui/messages"
	"github.com/arah-ai/arah/internal/core/domain"
)

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	ListFunc   func(ctx context.Context, userID string) ([]domain.Document, error)
	DeleteFunc func(ctx context.Context, userID, docID string) error
	deleted    []string
}

func (m *MockDocumentService) List(ctx context.Context, userID string) ([]domain.Document, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return []domain.Document{}, nil
}

func (m *MockDocumentService) Ingest(_ context.Context, chunks []domain.Chunk) (int, error) {
	return len(chunks), nil
}

func (m *MockDocumentService) Delete(ctx context.Context, userID, docID string) error {
	m.deleted = append(m.deleted, userID+"/"+docID)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, docID)
	}
	return nil
}

func sampleDocs() []domain.Document {
	return []domain.Document{
		{ID: "krs", UserID: "u1", Title: "KRS.pdf", DocType: domain.DocTypeSchedule, ChunkCount: 12},
		{ID: "khs", UserID: "u1", Title: "KHS.pdf", DocType: domain.DocTypeTranscript, ChunkCount: 30},
	}
}

func loaded(t *testing.T, svc *MockDocumentService) *View {
	t.Helper()
	v := NewView(nil, svc, "u1")
	v.SetDimensions(100, 30)
	msg := v.Load()()
	v, _ = v.Update(msg)
	require.NoError(t, v.Err())
	return v
}

func TestView_LoadListsUserDocuments(t *testing.T) {
	var gotUser string
	svc := &MockDocumentService{ListFunc: func(_ context.Context, userID string) ([]domain.Document, error) {
		gotUser = userID
		return sampleDocs(), nil
	}}

	v := loaded(t, svc)

	assert.Equal(t, "u1", gotUser)
	assert.Len(t, v.Documents(), 2)
	out := v.View()
	assert.Contains(t, out, "Dokumen (2)")
	assert.Contains(t, out, "KRS.pdf")
	assert.Contains(t, out, "transcript")
}

func TestView_Navigation(t *testing.T) {
	v := loaded(t, &MockDocumentService{ListFunc: func(context.Context, string) ([]domain.Document, error) {
		return sampleDocs(), nil
	}})

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "khs", v.SelectedDocument().ID)
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "khs", v.SelectedDocument().ID)
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	assert.Equal(t, "krs", v.SelectedDocument().ID)
}

func TestView_DeleteNeedsConfirmation(t *testing.T) {
	svc := &MockDocumentService{ListFunc: func(context.Context, string) ([]domain.Document, error) {
		return sampleDocs(), nil
	}}
	v := loaded(t, svc)

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.Nil(t, cmd)
	assert.True(t, v.Confirming())
	assert.Contains(t, v.View(), "Hapus KRS.pdf?")

	v, cmd = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Nil(t, cmd)
	assert.False(t, v.Confirming())
	assert.Empty(t, svc.deleted)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	v, cmd = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, messages.DocumentDeleted{DocumentID: "krs"}, msg)
	assert.Equal(t, []string{"u1/krs"}, svc.deleted)

	_, cmd = v.Update(msg)
	assert.NotNil(t, cmd, "successful delete reloads the list")
}

func TestView_Errors(t *testing.T) {
	v := NewView(nil, nil, "u1")
	v, _ = v.Update(v.Load()())
	assert.Error(t, v.Err())
	assert.Contains(t, v.View(), "document service not available")

	svc := &MockDocumentService{ListFunc: func(context.Context, string) ([]domain.Document, error) {
		return nil, errors.New("db down")
	}}
	v = NewView(nil, svc, "u1")
	v, _ = v.Update(v.Load()())
	assert.EqualError(t, v.Err(), "db down")
}

func TestView_EmptyAndBack(t *testing.T) {
	v := loaded(t, &MockDocumentService{})

	assert.Contains(t, v.View(), "Belum ada dokumen")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewChat}, cmd())
}
