package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/internal/config"
	"docqa/internal/logger"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool

	currentConfig *config.AppConfig
	log           logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "docqa",
	Short:         "docqa: ask questions about legal documents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()

		var err error
		if cfgFile == "" {
			currentConfig, _, err = config.LoadDefault()
		} else {
			currentConfig, err = config.Load(cfgFile)
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			currentConfig.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-json") {
			currentConfig.Logging.JSON = logJSON
		}
		if err := currentConfig.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		log = logger.New(&logger.Config{
			Level:      currentConfig.Logging.Level,
			Output:     os.Stderr,
			JSON:       currentConfig.Logging.JSON,
			TimeFormat: "15:04:05",
		})
		return nil
	},
}

// Execute runs the root command and exits non-zero on error. Interrupts
// cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML config (default ./config.yaml or ~/.config/docqa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")

	rootCmd.AddCommand(processCmd, askCmd, summarizeCmd, chunksCmd, listCmd, deleteCmd, chatCmd)
}
