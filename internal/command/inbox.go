package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInboxCmd creates the inbox command.
func NewInboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox <agent>",
		Short: "Show an agent's priority-bucketed inbox",
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

			limit, _ := cmd.Flags().GetInt("limit")
			bucket, _ := cmd.Flags().GetInt("bucket")

			project, err := ctx.Core.Store.GetProjectBySlug(cmd.Context(), ctx.ProjectSlug)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			agent, err := ctx.Core.Store.GetAgentByName(cmd.Context(), project.ID, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}

			now := nowMicros()
			entries, err := ctx.Core.Search.FetchInbox(cmd.Context(), project.ID, agent.ID, now, ctx.Core.Config.AckSLA.Microseconds(), bucket, limit)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			ctx.Core.Archive.For(project.Slug).ClearSignal(agent.Name)

			if ctx.JSONMode {
				return emitJSON(cmd.OutOrStdout(), entries)
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "[%d] #%d from %s: %s\n", e.Bucket, e.Message.ID, e.From, e.Message.Subject)
				fmt.Fprintln(out, renderMarkdown(e.Message.BodyMD))
			}
			fmt.Fprintf(out, "%d entries\n", len(entries))
			return nil
		},
	}

	cmd.Flags().Int("limit", 50, "maximum entries to return")
	cmd.Flags().Int("bucket", 0, "restrict to one priority bucket (0 = all)")

	return cmd
}
