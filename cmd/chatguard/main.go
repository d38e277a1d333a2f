package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/chatguard/internal/common"
	"github.com/Veraticus/chatguard/internal/config"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "chatguard",
		Short: "🛡️  Cyberbullying detection client",
		Long: `chatguard: a resilient command-line client for a cyberbullying detection service.

It screens messages one at a time or in batches, watches backend availability,
and runs a moderated chat session that records its history locally.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/chatguard/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "detection service base URL")
	rootCmd.PersistentFlags().Duration("timeout", 0, "per-attempt request timeout")
	rootCmd.PersistentFlags().Int("max-retries", 0, "maximum attempts per request")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag(config.KeyBaseURL, rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag(config.KeyTimeout, rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag(config.KeyMaxRetries, rootCmd.PersistentFlags().Lookup("max-retries"))
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))

	config.SetDefaults(viper.GetViper())

	// Add commands
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(addWordsCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage renders err for the terminal. User errors show their message
// alone; the underlying cause goes to the debug log.
func errorMessage(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		if userErr.Err != nil {
			slog.Debug("Command failed", "error", userErr.Err)
		}
		return "Error: " + userErr.UserMessage
	}
	return "Error: " + err.Error()
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
		viper.AddConfigPath(fmt.Sprintf("%s/.config/chatguard", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := common.SetupLogger(viper.GetString(config.KeyLogLevel), viper.GetString(config.KeyLogFormat)); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatguard %s\n", version)
		},
	}
}
