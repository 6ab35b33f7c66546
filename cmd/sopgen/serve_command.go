package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sopgen/internal/api"
	"sopgen/internal/logging"
	"sopgen/internal/pipeline"
	"sopgen/internal/progress"
	"sopgen/internal/services"
)

const version = "0.1.0"

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and websocket progress stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireLLMKey(); err != nil {
				return services.Wrap(services.ErrConfiguration, "config", "credentials", "", err)
			}
			logger, closer, err := ctx.newLogger(cmd, "serve")
			if err != nil {
				return err
			}
			defer closer.Close()

			hub := api.NewHub(logger)
			pipeOpts := []pipeline.Option{
				pipeline.WithLogger(logger),
				pipeline.WithReporter(progress.Multi(progress.NewLogReporter(logger), hub)),
			}
			serverCfg := api.ServerConfig{
				Bind:    cfg.API.Bind,
				Token:   cfg.API.Token,
				Version: version,
				Hub:     hub,
				Logger:  logger,
			}
			if b := strings.TrimSpace(bind); b != "" {
				serverCfg.Bind = b
			}

			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				pipeOpts = append(pipeOpts, pipeline.WithRecorder(store))
				serverCfg.Runs = store
			}

			p, err := pipeline.New(cfg, pipeOpts...)
			if err != nil {
				return err
			}
			serverCfg.Runner = p
			server, err := api.NewServer(serverCfg)
			if err != nil {
				return err
			}

			logger.Info("sopgen serve starting",
				logging.String("bind", serverCfg.Bind),
				logging.Bool("auth", serverCfg.Token != ""),
				logging.Bool("history", store != nil),
			)
			if err := server.Start(cmd.Context()); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default api.bind)")
	return cmd
}
