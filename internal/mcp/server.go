// Package mcp provides an MCP (Model Context Protocol) server exposing
// geometry diagnostics of stored event-graph runs.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bcqm-vi/spacetime/internal/geometry"
	"github.com/bcqm-vi/spacetime/internal/logging"
	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
	"github.com/bcqm-vi/spacetime/internal/ratelimit"
	"github.com/bcqm-vi/spacetime/internal/store"
)

// Server wraps the MCP SDK server and serves runs from a RunStore.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger

	spectral    geometry.Config
	ball        geometry.BallConfig
	orderParams orderparam.Config
	minR2       float64
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "bcqmvi")
	Version string // Server version

	// Store is required. The server owns it and closes it on shutdown.
	Store store.RunStore

	// AuditDir receives mcp_audit.jsonl. Empty disables auditing.
	AuditDir string

	// Zero values fall back to the package defaults.
	Spectral    geometry.Config
	Ball        geometry.BallConfig
	OrderParams orderparam.Config

	// MinR2 is the fit quality required for ds_valid. Nil uses
	// metrics.DefaultMinR2; zero accepts every successful fit.
	MinR2 *float64

	// Limits overrides the per-tool rate limits. Nil uses the defaults.
	Limits map[string]ratelimit.Limit

	Logger *slog.Logger
}

// NewServer creates a new MCP server with the geometry tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("mcp server requires a run store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        cfg.Store,
		toolLimiters: ratelimit.NewToolLimiters(cfg.Limits),
		logger:       logger,
		spectral:     cfg.Spectral,
		ball:         cfg.Ball,
		orderParams:  cfg.OrderParams,
		minR2:        metrics.DefaultMinR2,
	}
	if s.spectral == (geometry.Config{}) {
		s.spectral = geometry.DefaultConfig()
	}
	if s.ball == (geometry.BallConfig{}) {
		s.ball = geometry.DefaultBallConfig()
	}
	if s.orderParams == (orderparam.Config{}) {
		s.orderParams = orderparam.DefaultConfig()
	}
	if cfg.MinR2 != nil {
		s.minR2 = *cfg.MinR2
	}

	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			s.logger.Info("mcp server shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close closes the run store and the audit log.
func (s *Server) Close() error {
	auditErr := s.auditLogger.Close()
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close run store: %w", err)
	}
	return auditErr
}
