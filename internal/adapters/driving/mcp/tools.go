package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driving"
)

// AnswerInput is the input schema for the answer tool.
type AnswerInput struct {
	UserID    string `json:"user_id,omitempty" jsonschema:"the student whose documents are searched"`
	Query     string `json:"query" jsonschema:"the question; mention a document with @Title to restrict it"`
	RequestID string `json:"request_id,omitempty" jsonschema:"optional id recorded with the request metrics"`
}

// AnswerOutput is the output schema for the answer tool.
type AnswerOutput struct {
	Answer      string         `json:"answer"`
	Sources     []SourceOutput `json:"sources"`
	Pipeline    string         `json:"pipeline"`
	IntentRoute string         `json:"intent_route"`
	Validation  string         `json:"validation"`
	AnswerMode  string         `json:"answer_mode"`
	Fallback    bool           `json:"fallback_used"`
	StatusCode  int            `json:"status_code"`
	RequestID   string         `json:"request_id"`
}

// SourceOutput is one citation.
type SourceOutput struct {
	Source  string `json:"source"`
	Page    int    `json:"page,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"the student whose documents are listed"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput describes one uploaded document.
type DocumentOutput struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	DocType    string `json:"doc_type"`
	ChunkCount int    `json:"chunk_count"`
}

// GradeRescueInput is the input schema for the grade_rescue tool.
type GradeRescueInput struct {
	Question string `json:"question" jsonschema:"e.g. nilai uts 60 bobot 40% target 75"`
}

// GradeRescueOutput is the output schema for the grade_rescue tool.
type GradeRescueOutput struct {
	Current       float64  `json:"current"`
	Weight        float64  `json:"weight"`
	Target        float64  `json:"target"`
	Required      *float64 `json:"required,omitempty"`
	Possible      bool     `json:"possible"`
	AchievedSoFar float64  `json:"achieved_so_far"`
	Reason        string   `json:"reason,omitempty"`
}

// GradeRisksInput is the input schema for the grade_risks tool.
type GradeRisksInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"the student whose transcript is checked"`
}

// GradeRisksOutput is the output schema for the grade_risks tool.
type GradeRisksOutput struct {
	Risks []driving.GradeRisk `json:"risks"`
	Count int                 `json:"count"`
}

// registerTools registers the tools whose services are configured.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer",
		Description: "Answer an academic question from the student's uploaded documents, with citations",
	}, s.handleAnswer)

	if s.ports.Documents != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List the documents a student has uploaded",
		}, s.handleListDocuments)
	}

	if s.ports.Grade != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "grade_rescue",
			Description: "Compute the score still needed on remaining assessments to reach a target grade",
		}, s.handleGradeRescue)
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "grade_risks",
			Description: "List courses on the student's transcript that are at risk of failing",
		}, s.handleGradeRisks)
	}
}

func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	user, err := s.ports.user(input.UserID)
	if err != nil {
		return nil, AnswerOutput{}, err
	}
	reqID := input.RequestID
	if reqID == "" {
		reqID = "mcp-" + uuid.NewString()
	}

	env := s.ports.Answer.Answer(ctx, user, input.Query, reqID)
	return nil, answerOutput(env, reqID), nil
}

func answerOutput(env domain.AnswerEnvelope, reqID string) AnswerOutput {
	out := AnswerOutput{
		Answer:      env.Answer,
		Sources:     make([]SourceOutput, len(env.Sources)),
		Pipeline:    string(env.Meta.Pipeline),
		IntentRoute: string(env.Meta.IntentRoute),
		Validation:  string(env.Meta.Validation),
		AnswerMode:  string(env.Meta.AnswerMode),
		Fallback:    env.Meta.FallbackUsed,
		StatusCode:  env.Meta.StatusCode,
		RequestID:   reqID,
	}
	for i, src := range env.Sources {
		out.Sources[i] = SourceOutput{Source: src.Source, Page: src.Page, Snippet: src.Snippet}
	}
	return out
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Documents == nil {
		return nil, ListDocumentsOutput{}, ErrToolUnavailable
	}
	user, err := s.ports.user(input.UserID)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	docs, err := s.ports.Documents.List(ctx, user)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	out := ListDocumentsOutput{
		Documents: documentOutputs(docs),
		Count:     len(docs),
	}
	return nil, out, nil
}

func documentOutputs(docs []domain.Document) []DocumentOutput {
	out := make([]DocumentOutput, len(docs))
	for i := range docs {
		out[i] = DocumentOutput{
			ID:         docs[i].ID,
			Title:      docs[i].Title,
			DocType:    string(docs[i].DocType),
			ChunkCount: docs[i].ChunkCount,
		}
	}
	return out
}

func (s *Server) handleGradeRescue(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GradeRescueInput,
) (*mcp.CallToolResult, GradeRescueOutput, error) {
	if s.ports.Grade == nil {
		return nil, GradeRescueOutput{}, ErrToolUnavailable
	}
	q, plan, err := s.ports.Grade.Rescue(input.Question)
	if err != nil {
		return nil, GradeRescueOutput{}, err
	}
	return nil, GradeRescueOutput{
		Current:       q.Current,
		Weight:        q.Weight,
		Target:        q.Target,
		Required:      plan.Required,
		Possible:      plan.Possible,
		AchievedSoFar: plan.AchievedSoFar,
		Reason:        plan.Reason,
	}, nil
}

func (s *Server) handleGradeRisks(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GradeRisksInput,
) (*mcp.CallToolResult, GradeRisksOutput, error) {
	if s.ports.Grade == nil {
		return nil, GradeRisksOutput{}, ErrToolUnavailable
	}
	user, err := s.ports.user(input.UserID)
	if err != nil {
		return nil, GradeRisksOutput{}, err
	}
	risks, err := s.ports.Grade.UserRisks(ctx, user)
	if err != nil {
		return nil, GradeRisksOutput{}, err
	}
	if risks == nil {
		risks = []driving.GradeRisk{}
	}
	return nil, GradeRisksOutput{Risks: risks, Count: len(risks)}, nil
}
