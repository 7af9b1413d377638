package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/imparable/imparable/internal/mail"
	"github.com/imparable/imparable/internal/output"
)

// Check command flags.
var checkFlagDryRun bool

// checkCmd runs one deadline check now.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the deadline check once",
	Long: `Classify every objective by days to its deadline, email the matching
reminders and print the report.

With --dry-run the emails are rendered but not delivered.

Examples:
  imparable check
  imparable check --dry-run
  imparable check -f json`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFlagDryRun, "dry-run", false, "Render reminders without sending them")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	var recorder *mail.RecordingSender
	if checkFlagDryRun {
		recorder = mail.NewRecordingSender()
		ctx.UseSender(recorder)
	}

	start := time.Now()
	report, err := ctx.Checker.Check(cmd.Context())
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintReport(report)
	}

	f := ctx.CLIFormatter()
	f.PrintReport(report)
	f.Muted("Took " + output.FormatDuration(time.Since(start)))
	if recorder != nil {
		f.Warning("Dry run: nothing was delivered")
		for _, m := range recorder.Sent() {
			f.Muted("  would send \"" + m.Subject + "\" to " + m.To)
		}
	}
	return nil
}
