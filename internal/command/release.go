package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewReleaseCmd creates the release command.
func NewReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release <agent> <path-pattern...>",
		Short: "Release the agent's own reservations matching the given patterns",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Core.Close()

			if ctx.ProjectSlug == "" {
				return writeCommandError(cmd, fmt.Errorf("--project is required"))
			}

			project, err := ctx.Core.Store.GetProjectBySlug(cmd.Context(), ctx.ProjectSlug)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			agent, err := ctx.Core.Store.GetAgentByName(cmd.Context(), project.ID, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}

			n, err := ctx.Core.Reservation.Release(cmd.Context(), project.ID, agent.ID, args[1:], nowMicros())
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return emitJSON(cmd.OutOrStdout(), map[string]any{"released": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "released %d reservation(s)\n", n)
			return nil
		},
	}

	return cmd
}
