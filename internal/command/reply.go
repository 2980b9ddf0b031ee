package command

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dicklesworth/agentmail/internal/mail"
)

// NewReplyCmd creates the reply command.
func NewReplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reply <from-agent> <original-message-id>",
		Short: "Reply to a message, inheriting its thread, subject, and importance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Core.Close()

			if ctx.ProjectSlug == "" {
				return writeCommandError(cmd, fmt.Errorf("--project is required"))
			}

			originalID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return writeCommandError(cmd, fmt.Errorf("invalid message id %q: %w", args[1], err))
			}

			to, _ := cmd.Flags().GetString("to")
			cc, _ := cmd.Flags().GetString("cc")
			bcc, _ := cmd.Flags().GetString("bcc")
			body, _ := cmd.Flags().GetString("body")

			envelope, err := ctx.Core.Mail.ReplyMessage(cmd.Context(), mail.ReplyInput{
				ProjectSlug:     ctx.ProjectSlug,
				ProjectHumanKey: ctx.ProjectSlug,
				SenderName:      args[0],
				OriginalID:      originalID,
				To:              splitCommaList(to),
				CC:              splitCommaList(cc),
				BCC:             splitCommaList(bcc),
				BodyMD:          body,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return emitJSON(cmd.OutOrStdout(), envelope)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replied with message %d (thread %s)\n", envelope.Message.ID, envelope.Message.ThreadID)
			return nil
		},
	}

	cmd.Flags().String("to", "", "comma-separated recipient names (defaults to the original sender)")
	cmd.Flags().String("cc", "", "comma-separated cc names")
	cmd.Flags().String("bcc", "", "comma-separated bcc names")
	cmd.Flags().String("body", "", "reply body (markdown)")

	return cmd
}
