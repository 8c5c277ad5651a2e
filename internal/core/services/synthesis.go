package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driven"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// Ensure SynthesisService implements the interface.
var _ driving.SynthesisService = (*SynthesisService)(nil)

// Markers framing the movements the user is looking at.
const (
	screenContextStart = "--- CURRENT SEARCH RESULTS (VISIBLE TO USER) ---"
	screenContextEnd   = "--- END OF SEARCH RESULTS ---"
	noScreenContext    = "No specific movements currently displayed."
)

// SynthesisService answers questions about the movements on the user's screen.
type SynthesisService struct {
	llmService   driven.LLMService
	prompts      driven.PromptStore
	contextLimit int
	opts         driven.ChatOptions
}

// NewSynthesisService creates a new synthesis service.
// The llmService parameter is optional; without it every call reports
// domain.ErrLLMUnavailable.
func NewSynthesisService(
	llmService driven.LLMService,
	prompts driven.PromptStore,
	settings domain.ServerSettings,
) *SynthesisService {
	if settings.ContextLimit <= 0 {
		settings.ContextLimit = domain.DefaultAppSettings().Server.ContextLimit
	}
	return &SynthesisService{
		llmService:   llmService,
		prompts:      prompts,
		contextLimit: settings.ContextLimit,
		opts:         driven.ChatOptions{MaxTokens: 1500, Temperature: 0.4},
	}
}

// Available reports whether an LLM is configured.
func (s *SynthesisService) Available() bool {
	return s.llmService != nil
}

// Stream answers req, calling emit with each text delta in order.
func (s *SynthesisService) Stream(
	ctx context.Context, req domain.AnalysisRequest, emit func(delta string) error,
) error {
	messages, err := s.messages(req)
	if err != nil {
		return err
	}
	logger.Debug("synthesis: streaming answer with %s", s.llmService.ModelName())
	if err := s.llmService.ChatStream(ctx, messages, s.opts, emit); err != nil {
		return fmt.Errorf("chat stream: %w", err)
	}
	return nil
}

// Answer returns the complete answer to req.
func (s *SynthesisService) Answer(ctx context.Context, req domain.AnalysisRequest) (string, error) {
	messages, err := s.messages(req)
	if err != nil {
		return "", err
	}
	logger.Debug("synthesis: answering with %s", s.llmService.ModelName())
	reply, err := s.llmService.Chat(ctx, messages, s.opts)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return reply, nil
}

// messages builds the system prompt and the user turn carrying the screen context.
func (s *SynthesisService) messages(req domain.AnalysisRequest) ([]driven.ChatMessage, error) {
	if s.llmService == nil {
		return nil, domain.ErrLLMUnavailable
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	system, err := s.prompts.Load(driven.PromptSynthesisSystem)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}

	user := screenContext(req.ContextMovements, s.contextLimit) + "\n\nUser Question: " + query
	return []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, nil
}

// screenContext frames at most limit context lines between the result markers.
func screenContext(lines []string, limit int) string {
	if len(lines) > limit {
		lines = lines[:limit]
	}

	var b strings.Builder
	b.WriteString(screenContextStart)
	b.WriteByte('\n')
	if len(lines) == 0 {
		b.WriteString(noScreenContext)
	} else {
		b.WriteString(strings.Join(lines, "\n"))
	}
	b.WriteByte('\n')
	b.WriteString(screenContextEnd)
	b.WriteByte('\n')
	return b.String()
}
