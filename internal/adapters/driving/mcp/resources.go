package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for arah resources.
const uriScheme = "arah://"

// registerResources registers the document listing resource.
func (s *Server) registerResources() {
	if s.ports.Documents == nil {
		return
	}
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "users/{userId}/documents",
		Name:        "user-documents",
		Description: "Documents uploaded by a student",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)
}

// handleDocumentsResource returns a user's documents as JSON.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Documents == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	userID := extractUserID(req.Params.URI)
	if userID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docs, err := s.ports.Documents.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	data, err := json.MarshalIndent(documentOutputs(docs), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractUserID extracts the user from a URI like arah://users/{userId}/documents.
func extractUserID(uri string) string {
	const prefix = uriScheme + "users/"
	const suffix = "/documents"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}
	return strings.TrimSuffix(uri, suffix)
}
