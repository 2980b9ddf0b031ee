package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dicklesworth/agentmail/internal/types"
)

// NewContactsCmd creates the contacts command: lists an agent's approved
// links, or with --set-policy, updates that agent's contact policy.
func NewContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts <agent>",
		Short: "List an agent's contacts, or change their contact policy",
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

			project, err := ctx.Core.Store.GetProjectBySlug(cmd.Context(), ctx.ProjectSlug)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			agent, err := ctx.Core.Store.GetAgentByName(cmd.Context(), project.ID, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if policy, _ := cmd.Flags().GetString("set-policy"); policy != "" {
				if err := ctx.Core.Store.SetContactPolicy(cmd.Context(), agent.ID, types.ContactPolicy(policy)); err != nil {
					return writeCommandError(cmd, err)
				}
				if ctx.JSONMode {
					return emitJSON(cmd.OutOrStdout(), map[string]any{"agent": agent.Name, "contact_policy": policy})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s contact policy set to %s\n", agent.Name, policy)
				return nil
			}

			links, err := ctx.Core.Store.ListContacts(cmd.Context(), project.ID, agent.ID)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return emitJSON(cmd.OutOrStdout(), links)
			}
			out := cmd.OutOrStdout()
			for _, l := range links {
				fmt.Fprintf(out, "%d <-> %d: %s\n", l.AAgentID, l.BAgentID, l.Status)
			}
			return nil
		},
	}

	cmd.Flags().String("set-policy", "", "open|auto|contacts_only|block_all")
	return cmd
}
