package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewEnsureProjectCmd creates the ensure-project command.
func NewEnsureProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensure-project <slug>",
		Short: "Create a project if it doesn't exist, or return the existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Core.Close()

			humanKey, _ := cmd.Flags().GetString("human-key")
			if humanKey == "" {
				humanKey = args[0]
			}

			project, err := ctx.Core.Store.EnsureProject(cmd.Context(), args[0], humanKey, nowMicros())
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return emitJSON(cmd.OutOrStdout(), project)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "project %s (id=%d, key=%s)\n", project.Slug, project.ID, project.HumanKey)
			return nil
		},
	}

	cmd.Flags().String("human-key", "", "human-readable project key (defaults to the slug)")
	return cmd
}
