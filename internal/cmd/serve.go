package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/server"
	"github.com/Iron-Ham/quorum/internal/settings"
	"github.com/Iron-Ham/quorum/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the council API server",
	Long: `Start the HTTP server exposing conversations, runtime settings, and
the streamed council pipeline.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "bind address (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logger.Close()

	store := storage.NewStore(cfg.Storage.DataDir, logger)
	settingsStore := settings.NewStore(*cfg, logger)

	pipelineCfg := settingsStore.Effective().PipelineConfig(*cfg)
	if err := pipelineCfg.ValidateForPipeline(); err != nil {
		logger.Warn("council not ready; message endpoints will reject until settings are completed",
			"error", err.Error())
	}

	srv := server.New(*cfg, store, settingsStore, logger)
	return srv.Listen()
}
