package mcp

import (
	"context"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driving"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	env                      domain.AnswerEnvelope
	userID, query, requestID string
}

func (m *mockAnswerService) Answer(_ context.Context, userID, query, requestID string) domain.AnswerEnvelope {
	m.userID, m.query, m.requestID = userID, query, requestID
	return m.env
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	docs   []domain.Document
	err    error
	userID string
}

func (m *mockDocumentService) List(_ context.Context, userID string) ([]domain.Document, error) {
	m.userID = userID
	return m.docs, m.err
}

func (m *mockDocumentService) Ingest(_ context.Context, chunks []domain.Chunk) (int, error) {
	return len(chunks), m.err
}

func (m *mockDocumentService) Delete(context.Context, string, string) error {
	return m.err
}

// mockGradeService is a mock implementation of driving.GradeService.
type mockGradeService struct {
	query domain.GradeQuery
	plan  domain.RescuePlan
	risks []driving.GradeRisk
	err   error
}

func (m *mockGradeService) Rescue(string) (domain.GradeQuery, domain.RescuePlan, error) {
	return m.query, m.plan, m.err
}

func (m *mockGradeService) Risks([]domain.TranscriptFact) []driving.GradeRisk {
	return m.risks
}

func (m *mockGradeService) UserRisks(context.Context, string) ([]driving.GradeRisk, error) {
	return m.risks, m.err
}
