package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saimjr/accounting-assistant/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the chart of accounts, categorization, company and auth endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newLLMClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	defer client.Close()

	srv, err := server.New(cfg, store, client)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	zap.L().Info("starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("store", store.Driver()),
		zap.String("llm_provider", cfg.LLM.Provider),
	)
	return srv.Start(ctx)
}
