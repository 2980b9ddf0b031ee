package command

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dicklesworth/agentmail/internal/app"
)

// AppName is the CLI's invocation name.
const AppName = "amailctl"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// CommandContext bundles the running core plus the per-invocation flags
// every subcommand reads: which project it's scoped to and whether
// output should be JSON or human text.
type CommandContext struct {
	Core        *app.Core
	ProjectSlug string
	JSONMode    bool
}

// GetContext builds the engines and resolves the --project/--json
// persistent flags shared by every subcommand. Callers must Close the
// returned context's Core when done.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	configPath, _ := cmd.Flags().GetString("config")
	project, _ := cmd.Flags().GetString("project")
	jsonMode, _ := cmd.Flags().GetBool("json")

	core, err := app.Build(configPath)
	if err != nil {
		return nil, err
	}

	return &CommandContext{Core: core, ProjectSlug: project, JSONMode: jsonMode}, nil
}

func nowMicros() int64 { return time.Now().UnixMicro() }

// writeCommandError suppresses cobra's usage dump and returns err
// unchanged (printing it is left to main), so RunE can simply
// `return writeCommandError(cmd, err)`.
func writeCommandError(cmd *cobra.Command, err error) error {
	cmd.SilenceUsage = true
	return err
}
