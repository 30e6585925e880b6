package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/custodia-labs/llmserver/internal/adapters/driving/http"
	"github.com/custodia-labs/llmserver/internal/adapters/driving/mcp"
	"github.com/custodia-labs/llmserver/internal/config"
	"github.com/custodia-labs/llmserver/internal/runtime"
)

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "llmserver",
		Short: "Course document retrieval and LLM orchestration server",
		Long: `llmserver indexes course PDF documents into a vector index, ranks them
against free-text questions and forwards questions to language model providers.

Configuration comes from the environment, an optional .env file and an
optional YAML file named by --config or CONFIG_FILE.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("CONFIG_FILE", configFile)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML configuration file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newProvidersCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// bootstrap loads configuration and wires every service
func bootstrap(ctx context.Context, logOutput io.Writer) (*config.Config, *runtime.Services, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := config.NewLogger(cfg.Log, logOutput)
	slog.SetDefault(logger)

	svc, err := runtime.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build services: %w", err)
	}
	return cfg, svc, logger, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Start the HTTP API and serve until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, svc, logger, err := bootstrap(ctx, os.Stdout)
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Close(); err != nil {
					logger.Warn("failed to close services", "error", err)
				}
			}()

			logger.Info("llmserver starting",
				"version", version,
				"vector_backend", cfg.Vector.Backend,
				"context_provider", cfg.LLM.ContextProvider,
			)

			server := http.NewServer(http.Config{
				Host:         cfg.HTTP.Host,
				Port:         cfg.HTTP.Port,
				Version:      version,
				CORSOrigins:  cfg.HTTP.CORSOrigins,
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout,
			}, http.Services{
				Documents: svc.Documents,
				Search:    svc.Search,
				Context:   svc.Context,
				Chat:      svc.Chat,
				Index:     svc.Index,
				Lock:      svc.Lock,
			}, logger)

			return server.Start(ctx)
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Expose search, ranking and chat as Model Context Protocol tools over stdio.

Logs go to stderr so stdout carries only protocol messages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, svc, logger, err := bootstrap(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer svc.Close()

			handlers := mcp.NewHandlers(svc.Search, svc.Context, svc.Chat, logger)
			server := mcp.NewServer(version, handlers)

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- mcpserver.ServeStdio(server)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutdown signal received")
				return nil
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("mcp server error: %w", err)
				}
				return nil
			}
		},
	}
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured language model providers",
		Long:  `List every registered provider with its model and whether credentials are set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range cfg.LLM.Providers {
				status := "configured"
				if !p.IsConfigured() {
					status = "missing api key"
				}
				marker := ""
				if p.Key == cfg.LLM.ContextProvider {
					marker = " (context)"
				}
				fmt.Fprintf(out, "%-12s %-28s %s%s\n", p.Key, p.Model, status, marker)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the llmserver build version.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "llmserver %s\n", version)
		},
	}
}
