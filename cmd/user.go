package cmd

import (
	"github.com/spf13/cobra"

	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/service"
)

// User command flags.
var userAddFlagAdmin bool

// userCmd groups user management.
var userCmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"users"},
	Short:   "Manage users",
	Long: `Register users and look them up.

Examples:
  imparable user add ana@example.com
  imparable user add ops@example.com --admin
  imparable user list
  imparable user lookup ana@example.com`,
	RunE: runUserList,
}

var userAddCmd = &cobra.Command{
	Use:   "add EMAIL",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	Args:    cobra.NoArgs,
	RunE:    runUserList,
}

var userLookupCmd = &cobra.Command{
	Use:   "lookup EMAIL",
	Short: "Print the id of the user with EMAIL",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserLookup,
}

func init() {
	userAddCmd.Flags().BoolVar(&userAddFlagAdmin, "admin", false, "Give the user the admin role")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userLookupCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	role := model.RoleUser
	if userAddFlagAdmin {
		role = model.RoleAdmin
	}
	u, err := ctx.Users.Register(cmd.Context(), nil, service.RegisterUserRequest{Email: args[0], Role: string(role)})
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(u)
	}
	ctx.CLIFormatter().Success("Registered " + u.Email + " (" + u.ID + ")")
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	users, err := ctx.Users.List(cmd.Context(), nil)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintUsers(users)
	}
	ctx.CLIFormatter().PrintUsers(users)
	return nil
}

func runUserLookup(cmd *cobra.Command, args []string) error {
	u, err := ctx.Users.Lookup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]string{"id": u.ID, "email": u.Email})
	}
	ctx.Formatter.Println(u.ID)
	return nil
}
