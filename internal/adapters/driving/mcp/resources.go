package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for Movement Lens resources.
	uriScheme = "lens://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the most tweeted movements.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "movements",
		Name:        "movements",
		Description: "The most tweeted movements in the dataset",
		MIMEType:    "application/json",
	}, s.handleMovementsResource)

	// Static resource for the whole dataset as a table.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "context",
		Name:        "full-context",
		Description: "Every movement as a pipe-delimited table",
		MIMEType:    "text/plain",
	}, s.handleContextResource)

	// Template for a single movement.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "movements/{movementId}",
		Name:        "movement",
		Description: "One movement with all coded attributes",
		MIMEType:    "application/json",
	}, s.handleMovementResource)
}

// handleMovementsResource returns the movements listed for the empty query.
func (s *Server) handleMovementsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	movements, err := s.ports.Dataset.Search(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}

	infos := make([]MovementOutput, len(movements))
	for i := range movements {
		infos[i] = toMovementOutput(&movements[i])
	}

	return jsonResource(req.Params.URI, infos)
}

// handleContextResource returns the full-dataset table.
func (s *Server) handleContextResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	table, err := s.ports.Dataset.FullContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("building context: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     table,
		}},
	}, nil
}

// handleMovementResource returns a single movement.
func (s *Server) handleMovementResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract movementId from URI: lens://movements/{movementId}
	id := extractMovementID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	movement, err := s.ports.Dataset.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting movement: %w", err)
	}

	return jsonResource(req.Params.URI, movement)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractMovementID extracts the movement ID from a URI like lens://movements/{movementId}.
func extractMovementID(uri string) string {
	const prefix = uriScheme + "movements/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
