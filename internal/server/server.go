// Package server exposes the lot, recommendations, analytics and the spot
// locator over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/parkwise/pkg/analytics"
	"github.com/menta2k/parkwise/pkg/locator"
	"github.com/menta2k/parkwise/pkg/types"
)

// Options configures the HTTP server
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	// MaxBodyBytes caps POST bodies. Zero derives it from the locator image limit.
	MaxBodyBytes int64
}

// Server serves one immutable lot and a locator pipeline
type Server struct {
	opts     Options
	engine   *gin.Engine
	spots    []types.ParkingSpot
	report   analytics.Report
	pipeline *locator.Pipeline
	logger   *zap.Logger
}

// New builds the router. Spots are shared read-only across requests.
func New(opts Options, spots []types.ParkingSpot, pipeline *locator.Pipeline, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		limit := locator.DefaultMaxImageBytes
		if pipeline != nil {
			limit = pipeline.Config().MaxImageBytes
		}
		// base64 expansion plus room for the JSON envelope and data URI header
		opts.MaxBodyBytes = int64(limit)*4/3 + 4096
	}

	s := &Server{
		opts:     opts,
		spots:    spots,
		report:   analytics.Build(spots),
		pipeline: pipeline,
		logger:   logger,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(s.logger))

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/spots", s.listSpots)
		api.GET("/spots/recommended", s.recommended)
		api.GET("/analytics", s.analytics)
		api.GET("/lot.png", s.lotMap)
		api.POST("/locate", s.locate)
	}
	return r
}

// Run listens on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
