package command

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the amailctl root command and every subcommand.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "amailctl - operator CLI for the agent mail core",
		Long:          "amailctl drives the agent mail and file-reservation core from a terminal, for operators and scripted checks rather than agents themselves.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "path to a TOML config file")
	cmd.PersistentFlags().String("project", "", "project slug to operate in")
	cmd.PersistentFlags().Bool("json", false, "emit JSON instead of text")

	cmd.AddCommand(
		NewEnsureProjectCmd(),
		NewRegisterAgentCmd(),
		NewSendCmd(),
		NewReplyCmd(),
		NewInboxCmd(),
		NewReserveCmd(),
		NewReleaseCmd(),
		NewContactsCmd(),
		NewSearchCmd(),
	)

	return cmd
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCmd(Version).Execute()
}
