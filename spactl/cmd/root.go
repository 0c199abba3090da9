// Package cmd provides the command-line interface for spacore.
package cmd

import (
	"fmt"
	"os"

	"github.com/cubium/spacore/config"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
)

var (
	cfg    = config.Default()
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spactl",
	Short: "Spactl runs components that exchange data by subscription.",
	Long: `Spactl runs components that exchange data by subscription. ` +
		`It can run the whole demo in one process, or a subnet manager ` +
		`and single components that connect to it over TCP.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSlice("env", []string{".env"},
		"Files to read SPA_* settings from. Missing files are skipped.")
	flags.String("log-level", "", "Log level (debug, info, warn, error).")
	flags.Bool("dev-log", false, "Use human-readable development logging.")
}

func setup(cmd *cobra.Command, _ []string) error {
	envFiles, _ := cmd.Flags().GetStringSlice("env")

	loaded, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		loaded.LogLevel, _ = cmd.Flags().GetString("log-level")
	}

	if cmd.Flags().Changed("dev-log") {
		loaded.DevLog, _ = cmd.Flags().GetBool("dev-log")
	}

	if err := loaded.Validate(); err != nil {
		return err
	}

	l, err := newLogger(loaded)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	cfg = loaded
	logger = l

	return nil
}

func newLogger(c config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.DevLog {
		zc = zap.NewDevelopmentConfig()
	}

	zc.Level = zap.NewAtomicLevelAt(c.Level())

	return zc.Build()
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It runs the exit handlers before the process ends.
func Execute() {
	err := rootCmd.Execute()

	_ = logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
