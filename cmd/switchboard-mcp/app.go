package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	mcpGoServer "github.com/mark3labs/mcp-go/server"

	"github.com/i2y/switchboard-mcp/configs"
	"github.com/i2y/switchboard-mcp/internal/adapter/inbound/mcphttp"
	"github.com/i2y/switchboard-mcp/internal/adapter/outbound/catalog"
	"github.com/i2y/switchboard-mcp/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/switchboard-mcp/internal/adapter/outbound/memrepo"
	"github.com/i2y/switchboard-mcp/internal/adapter/outbound/schema"
	"github.com/i2y/switchboard-mcp/internal/adapter/outbound/security"
	"github.com/i2y/switchboard-mcp/internal/usecase"
)

// app holds the wired server and what the transports need to run it.
type app struct {
	cfg    *configs.Config
	mcp    *mcpGoServer.MCPServer
	tools  *usecase.ServeToolsUseCase
	logger *slog.Logger
}

func loadCatalog(cfg *configs.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile != "" {
		return catalog.LoadFile(cfg.CatalogFile)
	}
	return catalog.LoadEmbedded()
}

func newApp(ctx context.Context, cfg *configs.Config, logger *slog.Logger) (*app, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}
	baseURL := cat.BaseURL
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	logger.Info("Tool catalog loaded.",
		slog.String("catalog", cat.Name),
		slog.Int("tools", len(cat.Tools)),
		slog.String("base_url", baseURL))

	repo := memrepo.NewInMemoryToolRepository(logger)
	if err := repo.Save(ctx, cat.Tools); err != nil {
		return nil, fmt.Errorf("failed to store tools: %w", err)
	}

	compiler := schema.NewCompiler(logger)
	if fallbacks := compiler.Warm(cat.Tools); len(fallbacks) > 0 {
		logger.Warn("Some input schemas could not be compiled, arguments for these tools are passed through unchecked.",
			slog.Any("tools", fallbacks))
	}

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	logger.Debug("HTTP Client configured.", slog.Duration("timeout", cfg.HTTPClientTimeout))

	creds := security.LoadCredentials(cat.SecuritySchemes, os.LookupEnv, cfg.BaseCredentials())
	tokens := security.NewTokenProvider(httpClient, security.NewTokenCache(time.Now), logger)
	resolver := security.NewResolver(cat.SecuritySchemes, creds, tokens, logger)
	if !resolver.AnySatisfiable(cat.Tools) {
		logger.Warn("No credentials satisfy the security requirements of any tool; authenticated calls will be sent without credentials.")
	}

	builder := httpinvoker.NewBuilder(baseURL, logger)
	invoker := httpinvoker.New(httpClient, logger, httpinvoker.WithStrictUpstreamStatus(cfg.StrictUpstreamStatus))

	invokeUC := usecase.NewInvokeToolUseCase(repo, compiler, builder, resolver, invoker, logger)

	var mcpSrv *mcpGoServer.MCPServer
	unknownTools := usecase.NewUnknownToolRouting(invokeUC, func(name string) bool {
		return mcpSrv.GetTool(name) != nil
	}, logger)
	opts := append([]mcpGoServer.ServerOption{mcpGoServer.WithToolCapabilities(true)}, unknownTools.ServerOptions()...)
	mcpSrv = mcpGoServer.NewMCPServer(serverName, serverVersion, opts...)
	if _, err := usecase.NewRegisterToolsUseCase(repo, mcpSrv, invokeUC, logger).Execute(ctx); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	unknownTools.Register(mcpSrv)

	return &app{
		cfg:    cfg,
		mcp:    mcpSrv,
		tools:  usecase.NewServeToolsUseCase(repo, logger),
		logger: logger,
	}, nil
}

func (a *app) serveStdio(ctx context.Context) error {
	a.logger.Info("Starting in STDIO mode")
	err := mcpGoServer.NewStdioServer(a.mcp).Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}

func (a *app) serveHTTP(ctx context.Context) error {
	streamable := mcpGoServer.NewStreamableHTTPServer(a.mcp, mcpGoServer.WithStateLess(true))
	router := mcphttp.NewHandlers(a.tools, a.logger).NewRouter(streamable)

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	a.logger.Info("MCP streamable HTTP server listening.",
		slog.String("address", ln.Addr().String()),
		slog.String("path", mcphttp.MCPPath))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.logger.Info("Server shut down gracefully.")
	return nil
}
