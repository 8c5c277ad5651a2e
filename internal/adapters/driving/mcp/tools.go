package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// SearchInput is the input schema for the search_movements tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"keywords, a hashtag, a region or a year; empty lists the most tweeted movements"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default all returned by the dataset)"`
}

// SearchOutput is the output schema for the search_movements tool.
type SearchOutput struct {
	Movements []MovementOutput `json:"movements"`
	Count     int              `json:"count"`
}

// MovementOutput represents a single movement.
type MovementOutput struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Hashtag     string   `json:"hashtag,omitempty"`
	Year        string   `json:"year,omitempty"`
	Region      string   `json:"region,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	TweetsCount string   `json:"tweets_count,omitempty"`
	Outcome     string   `json:"outcome,omitempty"`
	Description string   `json:"description,omitempty"`
	Similarity  *float64 `json:"similarity,omitempty"`
}

// AnalyseInput is the input schema for the analyse_movements tool.
type AnalyseInput struct {
	Query    string `json:"query" jsonschema:"the search whose results are analysed"`
	Question string `json:"question,omitempty" jsonschema:"a question about the results; empty asks for a summary of key themes"`
}

// AnalyseOutput is the output schema for the analyse_movements tool.
type AnalyseOutput struct {
	Analysis   string `json:"analysis"`
	Considered int    `json:"movements_considered"`
}

// ContextInput is the input schema for the get_full_database_context tool.
type ContextInput struct{}

// ContextOutput is the output schema for the get_full_database_context tool.
type ContextOutput struct {
	Context string `json:"context"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_movements",
		Description: "Search the dataset of online social movements",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyse_movements",
		Description: "Search the movements and write an analysis of the results",
	}, s.handleAnalyse)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_full_database_context",
		Description: "Return every movement in the dataset as a pipe-delimited table. " +
			"Use for global statistics or movements not found by search",
	}, s.handleFullContext)
}

// handleSearch handles the search_movements tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Dataset.Search(ctx, input.Query)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if input.Limit > 0 && len(results) > input.Limit {
		results = results[:input.Limit]
	}

	output := SearchOutput{
		Movements: make([]MovementOutput, len(results)),
		Count:     len(results),
	}
	for i := range results {
		output.Movements[i] = toMovementOutput(&results[i])
	}

	return nil, output, nil
}

// handleAnalyse handles the analyse_movements tool invocation.
func (s *Server) handleAnalyse(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyseInput,
) (*mcp.CallToolResult, AnalyseOutput, error) {
	if s.ports.Synthesis == nil || !s.ports.Synthesis.Available() {
		return nil, AnalyseOutput{}, domain.ErrLLMUnavailable
	}

	results, err := s.ports.Dataset.Search(ctx, input.Query)
	if err != nil {
		return nil, AnalyseOutput{}, fmt.Errorf("searching movements: %w", err)
	}

	var req domain.AnalysisRequest
	if question := strings.TrimSpace(input.Question); question != "" {
		req = domain.NewFollowUpRequest(question, results, domain.DefaultContextDescriptionRunes)
	} else {
		if len(results) == 0 {
			return nil, AnalyseOutput{Analysis: "No movements matched the search."}, nil
		}
		req = domain.NewSummaryRequest(input.Query, results, domain.DefaultContextDescriptionRunes)
	}

	analysis, err := s.ports.Synthesis.Answer(ctx, req)
	if err != nil {
		return nil, AnalyseOutput{}, fmt.Errorf("analysing movements: %w", err)
	}

	return nil, AnalyseOutput{Analysis: analysis, Considered: len(results)}, nil
}

// handleFullContext handles the get_full_database_context tool invocation.
func (s *Server) handleFullContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ContextInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	table, err := s.ports.Dataset.FullContext(ctx)
	if err != nil {
		return nil, ContextOutput{}, err
	}
	return nil, ContextOutput{Context: table}, nil
}

func toMovementOutput(m *domain.Movement) MovementOutput {
	return MovementOutput{
		ID:          m.ID,
		Name:        m.Name,
		Hashtag:     m.Hashtag,
		Year:        m.Year,
		Region:      m.Region,
		Tags:        m.Tags,
		TweetsCount: m.TweetsCount,
		Outcome:     m.Outcome,
		Description: m.Description,
		Similarity:  m.Similarity,
	}
}
