package mcpshell

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerResources registers every resource URI from the external
// interface (spec §6): one static listing and several URI templates keyed
// by slug/agent/thread/message id, in the pack's AddResource/
// AddResourceTemplate idiom.
func registerResources(server *mcp.Server, h *handlers) {
	server.AddResource(&mcp.Resource{
		URI:         "resource://projects",
		Name:        "projects",
		Title:       "Known projects",
		Description: "Every project this core has seen, newest first.",
		MIMEType:    "application/json",
	}, h.readProjects)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "resource://agents/{slug}",
		Name:        "project_agents",
		Title:       "Agents in a project",
		Description: "Every agent registered in the project named by slug.",
		MIMEType:    "application/json",
	}, h.readProjectAgents)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "resource://inbox/{agent}",
		Name:        "agent_inbox",
		Title:       "Agent inbox",
		Description: "Priority-bucketed inbox for agent, formatted as project_key/agent.",
		MIMEType:    "application/json",
	}, h.readInbox)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "resource://mailbox/{agent}",
		Name:        "agent_mailbox",
		Title:       "Agent mailbox (all received)",
		Description: "Every message addressed to agent, independent of read/ack state.",
		MIMEType:    "application/json",
	}, h.readMailbox)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "resource://outbox/{agent}",
		Name:        "agent_outbox",
		Title:       "Agent outbox (all sent)",
		Description: "Every message sent by agent.",
		MIMEType:    "application/json",
	}, h.readOutbox)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "resource://thread/{id}",
		Name:        "thread",
		Title:       "Thread messages",
		Description: "Every message in a thread, oldest first, formatted as project_key/thread_id.",
		MIMEType:    "application/json",
	}, h.readThread)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "resource://message/{id}",
		Name:        "message",
		Title:       "Single message",
		Description: "One message by id, formatted as project_key/message_id.",
		MIMEType:    "application/json",
	}, h.readMessage)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "resource://file_reservations/{slug}",
		Name:        "project_reservations",
		Title:       "Active file reservations",
		Description: "Every unreleased, unexpired reservation in the project named by slug.",
		MIMEType:    "application/json",
	}, h.readReservations)
}

func jsonContents(uri string, v any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: string(body)}},
	}, nil
}

func (h *handlers) readProjects(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	projects, err := h.deps.Store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]wireProject, 0, len(projects))
	for _, p := range projects {
		out = append(out, viewProject(p))
	}
	return jsonContents(req.Params.URI, out)
}

func (h *handlers) readProjectAgents(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	slug, err := resourceParam(req, "resource://agents/")
	if err != nil {
		return nil, err
	}
	project, err := h.deps.Store.GetProjectBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("no such project: %q", slug)
	}
	agents, err := h.deps.Store.ListAgents(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	out := make([]wireAgent, 0, len(agents))
	for _, a := range agents {
		out = append(out, viewAgent(a))
	}
	return jsonContents(req.Params.URI, out)
}

func (h *handlers) readInbox(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	projectKey, agentName, err := splitResourcePair(req, "resource://inbox/")
	if err != nil {
		return nil, err
	}
	project, agent, err := h.resolveProjectAgent(ctx, projectKey, agentName)
	if err != nil {
		return nil, err
	}
	entries, err := h.deps.Search.FetchInbox(ctx, project.ID, agent.ID, nowMicros(), h.deps.Config.AckSLA.Microseconds(), 0, 200)
	if err != nil {
		return nil, err
	}
	if h.deps.Archive != nil {
		h.deps.Archive.For(project.Slug).ClearSignal(agent.Name)
	}
	return jsonContents(req.Params.URI, viewInbox(entries))
}

func (h *handlers) readMailbox(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	projectKey, agentName, err := splitResourcePair(req, "resource://mailbox/")
	if err != nil {
		return nil, err
	}
	project, agent, err := h.resolveProjectAgent(ctx, projectKey, agentName)
	if err != nil {
		return nil, err
	}
	msgs, err := h.deps.Store.MessagesReceived(ctx, project.ID, agent.ID, 200)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, viewMessages(msgs))
}

func (h *handlers) readOutbox(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	projectKey, agentName, err := splitResourcePair(req, "resource://outbox/")
	if err != nil {
		return nil, err
	}
	project, agent, err := h.resolveProjectAgent(ctx, projectKey, agentName)
	if err != nil {
		return nil, err
	}
	msgs, err := h.deps.Store.MessagesSent(ctx, project.ID, agent.ID, 200)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, viewMessages(msgs))
}

func (h *handlers) readThread(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	projectKey, threadID, err := splitResourcePair(req, "resource://thread/")
	if err != nil {
		return nil, err
	}
	project, err := h.deps.Store.GetProjectBySlug(ctx, projectKey)
	if err != nil {
		return nil, fmt.Errorf("no such project: %q", projectKey)
	}
	msgs, err := h.deps.Store.MessagesByThread(ctx, project.ID, threadID, 200)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, viewMessages(msgs))
}

func (h *handlers) readMessage(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	_, idStr, err := splitResourcePair(req, "resource://message/")
	if err != nil {
		return nil, err
	}
	var id int64
	if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
		return nil, fmt.Errorf("invalid message id: %q", idStr)
	}
	msg, err := h.deps.Store.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, viewMessage(msg))
}

func (h *handlers) readReservations(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	slug, err := resourceParam(req, "resource://file_reservations/")
	if err != nil {
		return nil, err
	}
	project, err := h.deps.Store.GetProjectBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("no such project: %q", slug)
	}
	rows, err := h.deps.Store.ActiveReservations(ctx, project.ID, nil, nowMicros())
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, viewReservations(rows))
}

// resourceParam strips a literal URI prefix to recover a single path
// segment, the {slug}/{agent}/{id} style template parameter.
func resourceParam(req *mcp.ReadResourceRequest, prefix string) (string, error) {
	uri := req.Params.URI
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", fmt.Errorf("malformed resource uri: %q", uri)
	}
	return uri[len(prefix):], nil
}

// splitResourcePair strips prefix and splits the remainder on "/" into
// two segments, for templates like inbox/{project_key}/{agent}.
func splitResourcePair(req *mcp.ReadResourceRequest, prefix string) (string, string, error) {
	rest, err := resourceParam(req, prefix)
	if err != nil {
		return "", "", err
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("expected two path segments in resource uri: %q", req.Params.URI)
}
