package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dicklesworth/agentmail/internal/types"
)

// NewRegisterAgentCmd creates the register-agent command.
func NewRegisterAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register-agent <name>",
		Short: "Register (or update) an agent identity in --project",
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

			program, _ := cmd.Flags().GetString("program")
			model, _ := cmd.Flags().GetString("model")
			task, _ := cmd.Flags().GetString("task")
			policy, _ := cmd.Flags().GetString("contact-policy")
			attachPolicy, _ := cmd.Flags().GetString("attachments-policy")

			now := nowMicros()
			project, err := ctx.Core.Store.EnsureProject(cmd.Context(), ctx.ProjectSlug, ctx.ProjectSlug, now)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			agent, err := ctx.Core.Store.RegisterAgent(
				cmd.Context(), project.ID, args[0], program, model, task,
				types.ContactPolicy(policy), types.AttachmentsPolicy(attachPolicy), now,
			)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return emitJSON(cmd.OutOrStdout(), agent)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "agent %s registered in %s (id=%d, policy=%s)\n", agent.Name, project.Slug, agent.ID, agent.ContactPolicy)
			return nil
		},
	}

	cmd.Flags().String("program", "", "the agent's program/CLI name")
	cmd.Flags().String("model", "", "the agent's model identifier")
	cmd.Flags().String("task", "", "a short description of the agent's current task")
	cmd.Flags().String("contact-policy", string(types.PolicyAuto), "open|auto|contacts_only|block_all")
	cmd.Flags().String("attachments-policy", string(types.AttachmentsAuto), "auto|inline|file")

	return cmd
}
