package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rewired-gh/volwatch/internal/config"
	"github.com/rewired-gh/volwatch/internal/logger"
)

// Exit statuses. A monitor run that raised alerts exits with exitAlerts so
// schedulers can escalate on it.
const (
	exitOK      = 0
	exitAlerts  = 1
	exitFailure = 2
)

var (
	cfgFile string
	version = "dev"
	v       = viper.New()
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:   "volwatch",
		Short: "Weekly message volume monitoring",
		Long: `volwatch learns how often each (application, message type) category reports,
derives a dynamic lower bound for its weekly volume and raises alerts when a
period comes in below that bound or does not arrive at all.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

// exitError carries a specific exit status out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: defaults and VOLWATCH_* environment only)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().String("input", "", "input CSV file")
	rootCmd.PersistentFlags().String("sensitivity", "", "alert sensitivity (high, medium, low)")
	rootCmd.PersistentFlags().String("output-dir", "", "output directory for reports")

	// Bind flags to viper
	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("input.path", rootCmd.PersistentFlags().Lookup("input"))
	_ = v.BindPFlag("monitor.sensitivity", rootCmd.PersistentFlags().Lookup("sensitivity"))
	_ = v.BindPFlag("output.dir", rootCmd.PersistentFlags().Lookup("output-dir"))

	// Add commands
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
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
		logger.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	os.Exit(exitCode(err))
}

// exitCode maps a command error onto the process exit status, reporting
// it on stderr.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(os.Stderr, ee.msg)
		}
		return ee.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return exitFailure
}

func initConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.LoadWith(v, cfgFile)
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	logger.InitWithFile(cfg.Logging.Level, cfg.Logging.Format, logger.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if cfgFile != "" {
		logger.Debug("Configuration loaded from %s", cfgFile)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "volwatch %s\n", version)
		},
	}
}
