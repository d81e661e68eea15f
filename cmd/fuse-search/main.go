// Package main provides the fuse-search binary: the hybrid retrieval server
// and a small client CLI for querying a running instance.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fusesearch/fuse-search/internal/client"
	"github.com/fusesearch/fuse-search/internal/config"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/retrieval"
	"github.com/fusesearch/fuse-search/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fuse-search",
		Short: "Fuse Search - hybrid retrieval orchestrator",
		Long: `Fuse Search fans a query out across web search, vector search, and
knowledge-graph lanes in parallel, fuses the results into a single ranked
list, and tolerates partial lane failures.

Run 'fuse-search serve' to start the server.
Run 'fuse-search query "..."' to query a running instance.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		serveCmd(),
		queryCmd(),
		seedCmd(),
		healthCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the fuse-search server",
		Long: `Start the retrieval server:
  - HTTP API on :8080 (configurable) with POST /v1/retrieve
  - Prometheus metrics on /metrics (when enabled)

Lane upstreams (web providers, Qdrant, embedder, graph store) are
configured via config file or FUSE_* environment variables.`,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 0, "HTTP server port (overrides config)")
	cmd.Flags().String("host", "", "HTTP server host (overrides config)")
	cmd.Flags().String("bus", "", "event bus type (memory, kafka, none)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	busType, _ := cmd.Flags().GetString("bus")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags override file and environment.
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if host != "" {
		cfg.Host = host
	}
	if busType != "" {
		cfg.Bus.Type = busType
	}

	logLevel := cfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.Log.Format)

	log.Info("Starting fuse-search",
		"version", version,
		"address", cfg.Address(),
		"bus", cfg.Bus.Type,
	)

	srv, err := server.New(cfg, version, log)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Stop(ctx)
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Run a retrieval query against a running server",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().String("server", "http://localhost:8080", "server base URL")
	cmd.Flags().IntP("max-results", "n", 10, "maximum fused results")
	cmd.Flags().Bool("json", false, "print the raw JSON response")
	cmd.Flags().Duration("timeout", 30*time.Second, "request timeout")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	serverURL, _ := cmd.Flags().GetString("server")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	asJSON, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	c := client.New(client.Config{BaseURL: serverURL, Timeout: timeout})

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	resp, err := c.Retrieve(ctx, retrieval.Request{
		Query:      args[0],
		MaxResults: maxResults,
	})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(resp)
	return nil
}

func printResponse(resp *retrieval.Response) {
	fmt.Printf("method: %s  lanes: %v  results: %d  latency: %dms\n\n",
		resp.Method, resp.LanesExecuted, resp.TotalResults, resp.LatencyMs)

	for i, src := range resp.Sources {
		fmt.Printf("%2d. [%.3f] %s\n", i+1, src.CombinedScore, titleOrID(src))
		if src.Meta.URL != "" {
			fmt.Printf("    %s\n", src.Meta.URL)
		}
		fmt.Printf("    sources: %v\n", src.SourceTypes)
		if src.Content != "" {
			fmt.Printf("    %s\n", snippet(src.Content, 160))
		}
		fmt.Println()
	}
}

func titleOrID(src retrieval.FusedResult) string {
	if src.Meta.Title != "" {
		return src.Meta.Title
	}
	return src.DocumentID
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server's health and lane availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			serverURL, _ := cmd.Flags().GetString("server")

			c := client.New(client.Config{BaseURL: serverURL, Timeout: 5 * time.Second})
			h, err := c.CheckHealth(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("status:  %s\nversion: %s\n", h.Status, h.Version)
			for lane, status := range h.Lanes {
				fmt.Printf("  %-16s %s\n", lane, status)
			}
			return nil
		},
	}

	cmd.Flags().String("server", "http://localhost:8080", "server base URL")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("fuse-search %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
