package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dicklesworth/agentmail/internal/mail"
	"github.com/dicklesworth/agentmail/internal/types"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <from-agent>",
		Short: "Send a message",
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

			to, _ := cmd.Flags().GetString("to")
			cc, _ := cmd.Flags().GetString("cc")
			bcc, _ := cmd.Flags().GetString("bcc")
			subject, _ := cmd.Flags().GetString("subject")
			body, _ := cmd.Flags().GetString("body")
			importance, _ := cmd.Flags().GetString("importance")
			ackRequired, _ := cmd.Flags().GetBool("ack-required")
			threadID, _ := cmd.Flags().GetString("thread")
			attachments, _ := cmd.Flags().GetString("attach")

			envelope, err := ctx.Core.Mail.SendMessage(cmd.Context(), mail.SendInput{
				ProjectSlug:     ctx.ProjectSlug,
				ProjectHumanKey: ctx.ProjectSlug,
				SenderName:      args[0],
				To:              splitCommaList(to),
				CC:              splitCommaList(cc),
				BCC:             splitCommaList(bcc),
				Subject:         subject,
				BodyMD:          body,
				Importance:      types.Importance(importance),
				AckRequired:     ackRequired,
				ThreadID:        threadID,
				AttachmentPaths: splitCommaList(attachments),
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return emitJSON(cmd.OutOrStdout(), envelope)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent message %d (thread %s) to %d recipient(s)\n", envelope.Message.ID, envelope.Message.ThreadID, envelope.Count)
			return nil
		},
	}

	cmd.Flags().String("to", "", "comma-separated recipient names")
	cmd.Flags().String("cc", "", "comma-separated cc names")
	cmd.Flags().String("bcc", "", "comma-separated bcc names")
	cmd.Flags().String("subject", "", "message subject")
	cmd.Flags().String("body", "", "message body (markdown)")
	cmd.Flags().String("importance", string(types.ImportanceNormal), "low|normal|high|urgent")
	cmd.Flags().Bool("ack-required", false, "require the recipient(s) to acknowledge")
	cmd.Flags().String("thread", "", "thread id to append to (new thread if omitted)")
	cmd.Flags().String("attach", "", "comma-separated filesystem paths to attach")

	return cmd
}
