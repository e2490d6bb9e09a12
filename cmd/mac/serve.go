package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	macmcp "github.com/deixis/mac/internal/mcp"
	"github.com/deixis/mac/internal/metrics"
)

func newServeCmd() *cobra.Command {
	var (
		httpMode     bool
		httpAddr     string
		instructions bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), macmcp.Instructions)
				return nil
			}

			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			server := macmcp.NewServer(a.system,
				macmcp.WithHistory(a.history),
				macmcp.WithLogger(a.logger),
			)

			if !httpMode && httpAddr == "" {
				return server.Run(cmd.Context(), &mcpsdk.StdioTransport{})
			}
			if httpAddr == "" {
				httpAddr = a.cfg.HTTPAddr()
			}
			return a.serveHTTP(cmd.Context(), server, httpAddr)
		},
	}
	cmd.Flags().BoolVar(&httpMode, "http", false, "serve streamable HTTP on the configured address instead of stdio")
	cmd.Flags().StringVar(&httpAddr, "addr", "", "HTTP listen address (implies --http)")
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	return cmd
}

// serveHTTP serves MCP at / and prometheus metrics at /metrics until ctx
// is cancelled.
func (a *app) serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
