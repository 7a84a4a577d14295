// Package mcpserver exposes the knowledge base over the Model Context
// Protocol so an MCP-aware assistant can ask questions and check
// readiness without going through the HTTP transport. It wraps the
// same rag.Service the HTTP handlers call; there is no separate
// query path to keep in sync.
package mcpserver

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/onboardrag/core/internal/rag"
	"github.com/onboardrag/core/pkg/logger_i"
)

const Version = "1.0.0"

// Server is the MCP front door onto a rag.Service.
type Server struct {
	ragService rag.Service
	server     *mcp.Server
	logger     *logger_i.Logger
}

func NewServer(ragService rag.Service) *Server {
	s := &Server{
		ragService: ragService,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "onboarding-rag",
			Version: Version,
		}, nil),
		logger: logger_i.NewLogger("mcp_server"),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server over stdio and blocks until ctx is
// cancelled or the transport errors.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server as a streamable HTTP handler, for
// assistants that connect over the network instead of stdio.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Serve is the fire-and-forget entry point main wires up: stdio when
// MCP_TRANSPORT is unset or "stdio", streamable HTTP on MCP_HTTP_ADDR
// otherwise. It logs and returns on error or stop rather than
// crashing the process, since the MCP surface is optional.
func Serve(ctx context.Context, ragService rag.Service, stop <-chan struct{}) {
	s := NewServer(ragService)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-stop
		cancel()
	}()

	var err error
	switch os.Getenv("MCP_TRANSPORT") {
	case "", "stdio":
		err = s.Run(runCtx)
	default:
		err = s.RunHTTP(runCtx, os.Getenv("MCP_HTTP_ADDR"))
	}
	if err != nil && runCtx.Err() == nil {
		s.logger.Error("mcp server stopped with error", "error", err)
	}
}
