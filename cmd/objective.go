package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/parser"
	"github.com/imparable/imparable/internal/service"
)

// Objective command flags.
var (
	objectiveFlagOwner      string
	objectiveFlagMilestones []string
	objectiveFlagDeadline   string
	objectiveFlagAuthor     string
	objectiveFlagText       string
)

// objectiveCmd groups objective management.
var objectiveCmd = &cobra.Command{
	Use:     "objective",
	Aliases: []string{"objectives", "obj", "o"},
	Short:   "Manage objectives, milestones and comments",
	Long: `Create objectives, tick off milestones and leave comments.

Deadlines accept dates (2026-06-30), offsets (+3d, +2w) and natural
language ("next friday", "in 2 weeks").

Examples:
  imparable objective add Ship v1 by next friday --owner ana@example.com
  imparable objective add "Learn Go" --owner ana@example.com --milestone "Tour" --milestone "Project" --deadline "+2w"
  imparable objective list --owner ana@example.com
  imparable objective toggle <id> 0
  imparable objective comment <id> --author coach@example.com --text "Keep going"`,
	RunE: runObjectiveList,
}

var objectiveAddCmd = &cobra.Command{
	Use:   "add TEXT...",
	Short: "Create an objective",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runObjectiveAdd,
}

var objectiveListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List objectives",
	Args:    cobra.NoArgs,
	RunE:    runObjectiveList,
}

var objectiveShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one objective with its milestones and comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runObjectiveShow,
}

var objectiveToggleCmd = &cobra.Command{
	Use:   "toggle ID INDEX",
	Short: "Mark a milestone done or not done",
	Long: `Flip the milestone at INDEX (starting at 0). Completing the last open
milestone emails the owner a completion notice.`,
	Args: cobra.ExactArgs(2),
	RunE: runObjectiveToggle,
}

var objectiveCommentCmd = &cobra.Command{
	Use:   "comment ID",
	Short: "Add a comment to an objective",
	Args:  cobra.ExactArgs(1),
	RunE:  runObjectiveComment,
}

var objectiveDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm"},
	Short:   "Delete an objective",
	Args:    cobra.ExactArgs(1),
	RunE:    runObjectiveDelete,
}

func init() {
	objectiveAddCmd.Flags().StringVar(&objectiveFlagOwner, "owner", "", "Owner email")
	objectiveAddCmd.Flags().StringArrayVarP(&objectiveFlagMilestones, "milestone", "m", nil, "Milestone title (repeatable)")
	objectiveAddCmd.Flags().StringVarP(&objectiveFlagDeadline, "deadline", "d", "", "Deadline")
	_ = objectiveAddCmd.MarkFlagRequired("owner")

	objectiveListCmd.Flags().StringVar(&objectiveFlagOwner, "owner", "", "Only this owner's objectives")

	objectiveCommentCmd.Flags().StringVar(&objectiveFlagAuthor, "author", "", "Author email")
	objectiveCommentCmd.Flags().StringVar(&objectiveFlagText, "text", "", "Comment text")
	_ = objectiveCommentCmd.MarkFlagRequired("author")
	_ = objectiveCommentCmd.MarkFlagRequired("text")

	objectiveCmd.AddCommand(objectiveAddCmd)
	objectiveCmd.AddCommand(objectiveListCmd)
	objectiveCmd.AddCommand(objectiveShowCmd)
	objectiveCmd.AddCommand(objectiveToggleCmd)
	objectiveCmd.AddCommand(objectiveCommentCmd)
	objectiveCmd.AddCommand(objectiveDeleteCmd)
	rootCmd.AddCommand(objectiveCmd)
}

func runObjectiveAdd(cmd *cobra.Command, args []string) error {
	text, deadline := strings.Join(args, " "), objectiveFlagDeadline
	if deadline == "" {
		text, deadline = parser.SplitDeadline(args)
	}

	o, owner, err := ctx.Objectives.Create(cmd.Context(), nil, service.CreateObjectiveRequest{
		OwnerEmail: objectiveFlagOwner,
		Text:       text,
		Milestones: objectiveFlagMilestones,
		Deadline:   deadline,
	})
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintObjective(o, owner)
	}
	f := ctx.CLIFormatter()
	f.Success("Created objective " + o.ID)
	f.PrintObjective(o, owner)
	return nil
}

func runObjectiveList(cmd *cobra.Command, args []string) error {
	list, owners, err := ctx.Objectives.List(cmd.Context(), nil, objectiveFlagOwner, objectiveFlagOwner == "")
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintObjectives(list, owners)
	}
	ctx.CLIFormatter().PrintObjectives(list, owners)
	return nil
}

func runObjectiveShow(cmd *cobra.Command, args []string) error {
	o, owner, err := ctx.Objectives.Get(cmd.Context(), nil, args[0])
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintObjective(o, owner)
	}
	ctx.CLIFormatter().PrintObjective(o, owner)
	return nil
}

func runObjectiveToggle(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.NewUserErrorWithField("index", args[1],
			"Invalid milestone index", "Use the milestone's position, starting at 0")
	}
	res, err := ctx.Objectives.ToggleMilestone(cmd.Context(), nil, args[0], index)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintObjective(res.Objective, res.Owner)
	}

	f := ctx.CLIFormatter()
	m := res.Objective.Milestones[index]
	state := "open"
	if m.Completed {
		state = "done"
	}
	f.Success(fmt.Sprintf("Milestone %q is %s", m.Title, state))
	switch {
	case res.NoticeSent:
		f.Success("Objective complete, notice sent to " + res.Owner.Email)
	case res.NoticeErr != nil:
		f.Warning("Objective complete, but the notice failed: " + res.NoticeErr.Error())
	}
	return nil
}

func runObjectiveComment(cmd *cobra.Command, args []string) error {
	c, err := ctx.Objectives.AddComment(cmd.Context(), nil, args[0], objectiveFlagAuthor, objectiveFlagText)
	if err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.Formatter.JSON(c)
	}
	ctx.CLIFormatter().Success("Comment " + c.ID + " added")
	return nil
}

func runObjectiveDelete(cmd *cobra.Command, args []string) error {
	if err := ctx.Objectives.Delete(cmd.Context(), nil, args[0]); err != nil {
		return err
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintMessage("Objective deleted", "")
	}
	ctx.CLIFormatter().Success("Deleted objective " + args[0])
	return nil
}
