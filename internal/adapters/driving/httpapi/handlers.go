package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// Rationale is the coding rationale of one movement.
type Rationale struct {
	MovementID      string  `json:"movementId"`
	Dimension       string  `json:"dimension"`
	Rationale       string  `json:"rationale"`
	ConfidenceScore float64 `json:"confidenceScore"`
	CoderID         string  `json:"coderId"`
	EvidenceSource  string  `json:"evidenceSource"`
}

func (s *Server) search(c *gin.Context) {
	movements, err := s.dataset.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		logger.Warn("httpapi: search %q: %v", c.Query("q"), err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, movements)
}

// chatStream writes each synthesis delta as soon as it arrives. The status
// line is sent with the first delta, so errors before it get a JSON reply.
// A failure after it aborts the connection; the client sees a broken stream
// rather than a clean end.
func (s *Server) chatStream(c *gin.Context) {
	req, ok := s.analysisRequest(c)
	if !ok {
		return
	}

	started := false
	err := s.synthesis.Stream(c.Request.Context(), req, func(delta string) error {
		if !started {
			started = true
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Content-Type-Options", "nosniff")
			c.Status(http.StatusOK)
		}
		if _, err := c.Writer.WriteString(delta); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})

	switch {
	case err == nil && !started:
		// The model produced nothing; an empty stream is a complete answer.
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		c.Writer.Flush()
	case err == nil:
	case !started:
		s.synthesisFailed(c, err)
	default:
		logger.Warn("httpapi: chat stream broke mid-answer: %v", err)
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) chat(c *gin.Context) {
	req, ok := s.analysisRequest(c)
	if !ok {
		return
	}

	answer, err := s.synthesis.Answer(c.Request.Context(), req)
	if err != nil {
		s.synthesisFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

// analysisRequest decodes the body and applies the availability and rate
// checks shared by both chat routes.
func (s *Server) analysisRequest(c *gin.Context) (domain.AnalysisRequest, bool) {
	var req domain.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		fail(c, http.StatusBadRequest, "query is required")
		return req, false
	}
	if !s.synthesis.Available() {
		fail(c, http.StatusServiceUnavailable, "no LLM provider is configured")
		return req, false
	}
	if !s.limiter.Allow() {
		c.Header("Retry-After", "1")
		fail(c, http.StatusTooManyRequests, "too many analysis requests")
		return req, false
	}
	return req, true
}

func (s *Server) synthesisFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrLLMUnavailable):
		fail(c, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Warn("httpapi: synthesis failed: %v", err)
		fail(c, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) movement(c *gin.Context) {
	m, err := s.dataset.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		fail(c, http.StatusNotFound, "movement not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, m)
}

// rationales returns the qualitative rationale of a movement. An unknown ID
// yields an empty list.
func (s *Server) rationales(c *gin.Context) {
	id := c.Query("id")
	out := []Rationale{}

	m, err := s.dataset.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("httpapi: no rationale for movement %q", id)
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
		return
	case m.Description != "":
		out = append(out, Rationale{
			MovementID:      id,
			Dimension:       "Qualitative Analysis",
			Rationale:       m.Description,
			ConfidenceScore: 0.95,
			CoderID:         "Expert_01",
			EvidenceSource:  "Research Data",
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) fullContext(c *gin.Context) {
	table, err := s.dataset.FullContext(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.String(http.StatusOK, table)
}

func (s *Server) health(c *gin.Context) {
	count, err := s.dataset.Count(c.Request.Context())
	if err != nil {
		fail(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"movements": count,
		"llm":       s.synthesis.Available(),
	})
}

// fail aborts the request with a {"detail": message} body.
func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": message})
}
