package cmd

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imparable/imparable/internal/config"
	"github.com/imparable/imparable/internal/errors"
)

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg"},
	Short:   "Inspect configuration and store credentials",
	Long: `Configuration is read from $XDG_CONFIG_HOME/imparable/config.yaml (or
--config), then from IMPARABLE_* environment variables and a local .env file.

Examples:
  imparable config show
  echo "s3cret" | imparable config set-password`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetPasswordCmd = &cobra.Command{
	Use:   "set-password [KEY]",
	Short: "Save the SMTP password from stdin in the system keyring",
	Long: `Read the SMTP password from stdin, save it in the system keyring under KEY
(default "smtp") and print the reference to put in mail.smtp.password_ref.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigSetPassword,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetPasswordCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := *ctx.Config
	if cfg.Mail.SMTP.Password != "" {
		cfg.Mail.SMTP.Password = "********"
	}
	if cfg.Mail.Webhook.APIKey != "" {
		cfg.Mail.Webhook.APIKey = "********"
	}
	return ctx.Formatter.JSON(cfg)
}

func runConfigSetPassword(cmd *cobra.Command, args []string) error {
	key := "smtp"
	if len(args) == 1 {
		key = args[0]
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		if err != nil {
			return errors.NewUserError("No password on stdin", "Pipe the password in: echo \"...\" | imparable config set-password")
		}
		return errors.NewUserError("Password cannot be empty", "")
	}

	ref, err := config.StoreSecret(key, password)
	if err != nil {
		return err
	}
	cmd.Println("Saved. Add this to your config:")
	cmd.Println("  mail:")
	cmd.Println("    smtp:")
	cmd.Println("      password_ref: " + ref)
	return nil
}
