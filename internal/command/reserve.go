package command

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dicklesworth/agentmail/internal/types"
)

// NewReserveCmd creates the reserve command.
func NewReserveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reserve <agent> <path-pattern...>",
		Short: "Reserve one or more glob path patterns against collision",
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

			exclusive, _ := cmd.Flags().GetBool("exclusive")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			project, err := ctx.Core.Store.EnsureProject(cmd.Context(), ctx.ProjectSlug, ctx.ProjectSlug, nowMicros())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			agent, _, err := ctx.Core.Store.ResolveOrRegisterAgent(cmd.Context(), project.ID, args[0], true, types.Agent{}, nowMicros())
			if err != nil {
				return writeCommandError(cmd, err)
			}

			rows, err := ctx.Core.Reservation.Reserve(cmd.Context(), project.ID, agent.ID, project.Slug, args[1:], exclusive, ttl.Microseconds(), nowMicros())
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return emitJSON(cmd.OutOrStdout(), rows)
			}
			out := cmd.OutOrStdout()
			for _, r := range rows {
				fmt.Fprintf(out, "reserved %s (exclusive=%v, expires %s)\n", r.PathPattern, r.Exclusive, time.UnixMicro(r.ExpiresTS).Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().Bool("exclusive", true, "reserve exclusively rather than as a shared hint")
	cmd.Flags().Duration("ttl", time.Hour, "how long the reservation lasts before it expires")

	return cmd
}
