// Package cmd provides the CLI commands for Imparable.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/output"
	"github.com/imparable/imparable/internal/runtime"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagConfig string
	flagFormat string
	flagColor  string
	flagDebug  bool
)

// ctx is the shared runtime context.
var ctx *runtime.Context

// Commands that run without opening the store. status and stop must not
// take the Badger lock a running server holds.
var noRuntime = map[string]bool{
	"completion":   true,
	"help":         true,
	"version":      true,
	"status":       true,
	"stop":         true,
	"set-password": true,
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "imparable",
	Short: "Goal tracking with deadline reminders",
	Long: `Imparable tracks objectives made of milestones and emails their owners
as deadlines approach: three days before, the day before, on the day, and
weekly once overdue. Finishing the last milestone sends a congratulation.

Examples:
  imparable user add ana@example.com
  imparable objective add "Run a half marathon" --owner ana@example.com \
      --milestone "Run 10k" --milestone "Run 15k" --deadline "next friday"
  imparable objective toggle 3f2a... 0
  imparable check --dry-run
  imparable serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noRuntime[cmd.Name()] {
			return nil
		}

		opts := runtime.DefaultOptions()
		opts.ConfigPath = flagConfig
		opts.Debug = flagDebug
		opts.Format = parseFormat(flagFormat)
		opts.ColorMode = parseColor(flagColor)
		if opts.Format == output.FormatPlain {
			opts.ColorMode = output.ColorNever
		}

		var err error
		ctx, err = runtime.New(cmd.Context(), opts)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if ctx != nil {
			return ctx.Close()
		}
		return nil
	},
}

func parseFormat(s string) output.Format {
	switch s {
	case "json":
		return output.FormatJSON
	case "plain":
		return output.FormatPlain
	default:
		return output.FormatCLI
	}
}

func parseColor(s string) output.ColorMode {
	switch s {
	case "always":
		return output.ColorAlways
	case "never":
		return output.ColorNever
	default:
		return output.ColorAuto
	}
}

// Execute runs the root command and reports any error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
		if ctx != nil {
			ctx.Close()
		}
	}
	return err
}

func printError(err error) {
	if ctx != nil && ctx.IsJSON() {
		var suggestion string
		if ue, ok := errors.AsUserError(err); ok {
			suggestion = ue.Suggestion
		}
		_ = ctx.JSONFormatter().PrintError(err.Error(), suggestion)
		return
	}
	os.Stderr.WriteString("Error: " + errors.FormatByCategory(err) + "\n")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file (default $XDG_CONFIG_HOME/imparable/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json, plain")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("imparable %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
	},
}
