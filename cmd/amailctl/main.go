// Command amailctl is an operator CLI over the agent mail core, for
// scripted checks and terminal use rather than agent-driven MCP calls.
package main

import (
	"fmt"
	"os"

	"github.com/dicklesworth/agentmail/internal/command"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func main() {
	command.Version = Version
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
