package mcpshell

import (
	"context"
	"fmt"
	"time"

	"github.com/dicklesworth/agentmail/internal/mail"
	"github.com/dicklesworth/agentmail/internal/types"
)

func nowMicros() int64 { return time.Now().UnixMicro() }

// resolveProjectAgent looks up the project by slug and the agent by name
// within it — the common lookup every tool that isn't send/reply (which
// resolve through the mail engine's own EnsureProject/auto-registration
// path) needs before delegating to an engine that works in surrogate ids.
func (h *handlers) resolveProjectAgent(ctx context.Context, projectKey, agentName string) (types.Project, types.Agent, error) {
	project, err := h.deps.Store.GetProjectBySlug(ctx, projectKey)
	if err != nil {
		return types.Project{}, types.Agent{}, &mail.Error{Type: mail.ErrNotFound, Message: fmt.Sprintf("no such project: %q", projectKey)}
	}
	agent, err := h.deps.Store.GetAgentByName(ctx, project.ID, agentName)
	if err != nil {
		return types.Project{}, types.Agent{}, &mail.Error{Type: mail.ErrNotFound, Message: fmt.Sprintf("no such agent: %q", agentName)}
	}
	return project, agent, nil
}
