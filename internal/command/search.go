package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dicklesworth/agentmail/internal/types"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search messages in --project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Core.Close()

			if ctx.ProjectSlug == "" {
				return writeCommandError(cmd, fmt.Errorf("--project is required"))
			}

			importance, _ := cmd.Flags().GetString("importance")
			since, _ := cmd.Flags().GetInt64("since")
			limit, _ := cmd.Flags().GetInt("limit")

			project, err := ctx.Core.Store.GetProjectBySlug(cmd.Context(), ctx.ProjectSlug)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			result, err := ctx.Core.Search.Search(cmd.Context(), project.ID, args[0], types.Importance(importance), since, limit)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return emitJSON(cmd.OutOrStdout(), result)
			}
			out := cmd.OutOrStdout()
			for _, m := range result.Messages {
				fmt.Fprintf(out, "#%d: %s\n", m.ID, m.Subject)
				fmt.Fprintln(out, renderMarkdown(m.BodyMD))
			}
			fmt.Fprintf(out, "%d result(s) via %s\n", len(result.Messages), result.Method)
			return nil
		},
	}

	cmd.Flags().String("importance", "", "restrict to one importance level")
	cmd.Flags().Int64("since", 0, "only messages created at or after this microsecond timestamp")
	cmd.Flags().Int("limit", 50, "maximum results to return")

	return cmd
}
