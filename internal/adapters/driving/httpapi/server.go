// Package httpapi serves the movement dataset and the streaming analysis
// endpoint consumed by the lens client.
//
// Routes (all under /api):
//
//	GET  /search?q=        movement records for a query (empty: most tweeted)
//	POST /chat_stream      chunked text/plain synthesis
//	POST /chat             complete synthesis as {"response": "..."}
//	GET  /movements/:id    one movement
//	GET  /rationales?id=   coding rationale of one movement
//	GET  /context          the whole dataset as a pipe-delimited table
//	GET  /health           liveness and dataset size
//
// Errors are JSON objects with a "detail" field.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
	"github.com/custodia-labs/movement-lens/internal/logger"
)

// shutdownTimeout bounds graceful shutdown once the run context ends.
const shutdownTimeout = 5 * time.Second

// Server is the analysis service HTTP server.
type Server struct {
	dataset   driving.DatasetService
	synthesis driving.SynthesisService
	limiter   *rate.Limiter
	router    *gin.Engine
	addr      string
}

// NewServer creates a server for the given services.
func NewServer(
	dataset driving.DatasetService,
	synthesis driving.SynthesisService,
	settings domain.ServerSettings,
) *Server {
	if settings.Addr == "" {
		settings.Addr = domain.DefaultAppSettings().Server.Addr
	}

	s := &Server{
		dataset:   dataset,
		synthesis: synthesis,
		limiter:   rate.NewLimiter(chatLimit(settings.ChatRatePerSecond), settings.ChatBurst),
		addr:      settings.Addr,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(recoverer(), requestLog())

	api := router.Group("/api")
	{
		api.GET("/search", s.search)
		api.POST("/chat_stream", s.chatStream)
		api.POST("/chat", s.chat)
		api.GET("/movements/:id", s.movement)
		api.GET("/rationales", s.rationales)
		api.GET("/context", s.fullContext)
		api.GET("/health", s.health)
	}

	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "API endpoint not found")
	})

	return router
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ApplySettings updates the settings that can change while serving.
// Only the chat rate limit is hot-applied.
func (s *Server) ApplySettings(settings domain.ServerSettings) {
	s.limiter.SetLimit(chatLimit(settings.ChatRatePerSecond))
	s.limiter.SetBurst(settings.ChatBurst)
	logger.Debug("httpapi: chat limit now %.2f/s burst %d", settings.ChatRatePerSecond, settings.ChatBurst)
}

// Run listens on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("httpapi: listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("httpapi: stopped")
	return nil
}

// chatLimit maps a non-positive rate to "unlimited".
func chatLimit(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

// recoverer turns handler panics into 500 responses. http.ErrAbortHandler is
// re-raised so net/http drops the connection.
func recoverer() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
				panic(r)
			}
			logger.Error("httpapi: panic serving %s: %v", c.Request.URL.Path, r)
			if !c.Writer.Written() {
				fail(c, http.StatusInternalServerError, "internal error")
			}
			c.Abort()
		}()
		c.Next()
	}
}

// requestLog writes one debug line per request.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("httpapi: %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
