package cmd

import (
	"github.com/spf13/cobra"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/model"
)

// Notify command flags.
var (
	notifyFlagEmail     string
	notifyFlagObjective string
	notifyFlagCategory  string
)

// notifyCompleteCmd sends the completion notice.
var notifyCompleteCmd = &cobra.Command{
	Use:   "notify-complete",
	Short: "Email a completion notice",
	Long: `Send the "objective completed" email to a recipient.

Examples:
  imparable notify-complete --email ana@example.com --objective "Run a half marathon"`,
	Args: cobra.NoArgs,
	RunE: runNotifyComplete,
}

// notifyTestCmd sends a sample of any reminder.
var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "Email a sample reminder to check templates and transport",
	Long: `Render a reminder with sample data and send it with a [TEST] subject.

Categories: DueToday, DueTomorrow, ThreeDayReminder, OverdueWeekly, Completed

Examples:
  imparable notify-test --email me@example.com --category OverdueWeekly`,
	Args: cobra.NoArgs,
	RunE: runNotifyTest,
}

func init() {
	notifyCompleteCmd.Flags().StringVarP(&notifyFlagEmail, "email", "e", "", "Recipient email")
	notifyCompleteCmd.Flags().StringVarP(&notifyFlagObjective, "objective", "o", "", "Objective text")
	_ = notifyCompleteCmd.MarkFlagRequired("email")
	_ = notifyCompleteCmd.MarkFlagRequired("objective")

	notifyTestCmd.Flags().StringVarP(&notifyFlagEmail, "email", "e", "", "Recipient email")
	notifyTestCmd.Flags().StringVarP(&notifyFlagCategory, "category", "c", string(model.CategoryDueToday), "Reminder category")
	_ = notifyTestCmd.MarkFlagRequired("email")
	_ = notifyTestCmd.RegisterFlagCompletionFunc("category", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(model.AllCategories))
		for i, c := range model.AllCategories {
			names[i] = string(c)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(notifyCompleteCmd)
	rootCmd.AddCommand(notifyTestCmd)
}

func runNotifyComplete(cmd *cobra.Command, args []string) error {
	id, err := ctx.Notifier.SendCompletionNotice(cmd.Context(), notifyFlagEmail, notifyFlagObjective)
	if err != nil {
		return err
	}
	return printSent("Completion notice sent to "+notifyFlagEmail, id)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	category, ok := model.ParseCategory(notifyFlagCategory)
	if !ok {
		return errors.NewUserErrorWithField("category", notifyFlagCategory,
			"Unknown email category", "Use one of: DueToday, DueTomorrow, ThreeDayReminder, OverdueWeekly, Completed")
	}
	id, err := ctx.Notifier.SendTestNotice(cmd.Context(), notifyFlagEmail, category)
	if err != nil {
		return err
	}
	return printSent("Test email sent to "+notifyFlagEmail, id)
}

func printSent(message, deliveryID string) error {
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintMessage(message, deliveryID)
	}
	f := ctx.CLIFormatter()
	f.Success(message)
	f.Muted("Delivery id: " + deliveryID)
	return nil
}
