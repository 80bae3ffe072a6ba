package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/rename-agent/internal/cli"
	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/config"
)

var (
	cfgFile   string
	version   = "dev"
	appConfig config.Config
	rootCmd   = &cobra.Command{
		Use:   "renamer",
		Short: "📄 Consistent, learnable file names for your documents",
		Long: `renamer turns classified documents into predictable file names.

Each document type has naming patterns such as "{Date:YYYY-MM-DD} - {Merchant} - {Amount}".
The best pattern for a document's fields is chosen, rendered, made filesystem safe
and checked for collisions. Patterns you use or teach are remembered.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/renamer/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding patterns.json and history (default: ~/.rename-agent)")
	rootCmd.PersistentFlags().String("history-backend", "", "history storage: json or sqlite")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag(config.KeyDataDir, rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag(config.KeyHistory, rootCmd.PersistentFlags().Lookup("history-backend"))
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))

	// Add commands
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(renameCmd())
	rootCmd.AddCommand(patternsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(typesCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, finishing the current document...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, formatCommandError(err))
		os.Exit(1)
	}
}

// formatCommandError renders a failed command for the terminal. User errors
// lead with their message and show the cause on its own line.
func formatCommandError(err error) string {
	lines := []string{cli.FormatError(err.Error())}

	var userErr *common.UserError
	if errors.As(err, &userErr) {
		lines = []string{cli.FormatError(userErr.UserMessage)}
		if userErr.Err != nil {
			lines = append(lines, cli.SubtleStyle.Render("  "+userErr.Err.Error()))
		}
	}

	if errors.Is(err, common.ErrStoreCorrupted) {
		lines = append(lines, cli.FormatInfo("The file was left untouched. Repair it or run: renamer backup restore <id>"))
	}
	return strings.Join(lines, "\n")
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/renamer", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables, e.g. RENAMER_NAMING_MAX_LENGTH
	viper.SetEnvPrefix("RENAMER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return common.NewUserError("Invalid configuration", err)
	}
	appConfig = cfg

	// Set up logging
	level, err := common.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if err := common.SetupLogger(os.Stderr, level, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "renamer %s\n", version)
		},
	}
}
