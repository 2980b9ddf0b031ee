package mcpshell

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dicklesworth/agentmail/internal/eventbus"
	"github.com/dicklesworth/agentmail/internal/mail"
	"github.com/dicklesworth/agentmail/internal/search"
	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
	"github.com/dicklesworth/agentmail/internal/wiretime"
)

// registerTools registers every tool name from the external interface
// (spec §6) against h, in the teacher's mcp.AddTool idiom.
func registerTools(server *mcp.Server, h *handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_message",
		Description: "Send a mail message to one or more agents in a project, subject to contact policy and size limits.",
	}, h.sendMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reply_message",
		Description: "Reply to a message, inheriting its thread, importance, and ack_required.",
	}, h.replyMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_inbox",
		Description: "Fetch an agent's priority-bucketed inbox.",
	}, h.fetchInbox)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_message_read",
		Description: "Mark a message as read by the calling agent. Idempotent.",
	}, h.markMessageRead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "acknowledge_message",
		Description: "Acknowledge a message, also marking it read if not already. Idempotent.",
	}, h.acknowledgeMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_reservation_paths",
		Description: "Declare exclusive or shared intent over one or more path glob patterns.",
	}, h.fileReservationPaths)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "release_file_reservations",
		Description: "Release the calling agent's active reservations matching the given patterns.",
	}, h.releaseFileReservations)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "renew_file_reservations",
		Description: "Extend the expiry of the calling agent's active reservations matching the given patterns.",
	}, h.renewFileReservations)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "force_release_file_reservation",
		Description: "Administrative override: release reservations by id regardless of holder.",
	}, h.forceReleaseFileReservation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "request_contact",
		Description: "Request approval to message an agent whose contact policy requires it.",
	}, h.requestContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "respond_contact",
		Description: "Approve or decline a pending contact request.",
	}, h.respondContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_contacts",
		Description: "List an agent's contact edges, either direction.",
	}, h.listContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_contact_policy",
		Description: "Update an agent's contact policy.",
	}, h.setContactPolicy)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_messages",
		Description: "Full-text search over message subject/body, with a LIKE fallback when FTS finds nothing.",
	}, h.searchMessages)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "summarize_thread",
		Description: "Fetch every message in a thread, oldest first.",
	}, h.summarizeThread)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ensure_project",
		Description: "Create the project if it doesn't exist yet, or return it unchanged.",
	}, h.ensureProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "register_agent",
		Description: "Register a new agent identity within a project.",
	}, h.registerAgent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "whois",
		Description: "Look up an agent's registered identity and policies.",
	}, h.whois)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "health_check",
		Description: "Report store circuit-breaker state and reachability.",
	}, h.healthCheck)
}

func (h *handlers) sendMessage(_ context.Context, _ *mcp.CallToolRequest, args sendMessageArgs) (*mcp.CallToolResult, any, error) {
	importance := types.Importance(args.Importance)
	env, err := h.deps.Mail.SendMessage(context.Background(), mail.SendInput{
		ProjectSlug: args.ProjectKey, ProjectHumanKey: args.ProjectPath,
		SenderName: args.Sender, SenderProgram: args.SenderProgram, SenderModel: args.SenderModel,
		To: args.To, CC: args.CC, BCC: args.BCC,
		Subject: args.Subject, BodyMD: args.BodyMD,
		Importance: importance, AckRequired: args.AckRequired,
		ThreadID: args.ThreadID, Topic: args.Topic,
		AttachmentPaths: args.AttachmentPaths, Broadcast: args.Broadcast,
	})
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(viewDelivery(env)), nil, nil
}

func (h *handlers) replyMessage(_ context.Context, _ *mcp.CallToolRequest, args replyMessageArgs) (*mcp.CallToolResult, any, error) {
	env, err := h.deps.Mail.ReplyMessage(context.Background(), mail.ReplyInput{
		ProjectSlug: args.ProjectKey, ProjectHumanKey: args.ProjectPath,
		SenderName: args.Sender, OriginalID: args.MessageID,
		To: args.To, CC: args.CC, BCC: args.BCC, BodyMD: args.BodyMD,
	})
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(viewDelivery(env)), nil, nil
}

func (h *handlers) fetchInbox(ctx context.Context, _ *mcp.CallToolRequest, args fetchInboxArgs) (*mcp.CallToolResult, any, error) {
	project, agent, err := h.resolveProjectAgent(ctx, args.ProjectKey, args.Agent)
	if err != nil {
		return errResult(err), nil, nil
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 200
	}
	entries, err := h.deps.Search.FetchInbox(ctx, project.ID, agent.ID, nowMicros(), h.deps.Config.AckSLA.Microseconds(), args.Bucket, limit)
	if err != nil {
		return errResult(err), nil, nil
	}
	if h.deps.Archive != nil {
		h.deps.Archive.For(project.Slug).ClearSignal(agent.Name)
	}
	return jsonResult(viewInbox(entries)), nil, nil
}

func (h *handlers) markMessageRead(ctx context.Context, _ *mcp.CallToolRequest, args messageRefArgs) (*mcp.CallToolResult, any, error) {
	readTS, err := h.deps.Mail.MarkMessageRead(ctx, args.ProjectKey, args.Agent, args.MessageID)
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(map[string]any{"read_at": wiretime.ToISO(readTS)}), nil, nil
}

func (h *handlers) acknowledgeMessage(ctx context.Context, _ *mcp.CallToolRequest, args messageRefArgs) (*mcp.CallToolResult, any, error) {
	readTS, ackTS, err := h.deps.Mail.AcknowledgeMessage(ctx, args.ProjectKey, args.Agent, args.MessageID)
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(map[string]any{"read_at": wiretime.ToISO(readTS), "ack_at": wiretime.ToISO(ackTS)}), nil, nil
}

func (h *handlers) fileReservationPaths(ctx context.Context, _ *mcp.CallToolRequest, args reservePathsArgs) (*mcp.CallToolResult, any, error) {
	now := nowMicros()
	project, err := h.deps.Store.EnsureProject(ctx, args.ProjectKey, args.ProjectPath, now)
	if err != nil {
		return errResult(err), nil, nil
	}
	agent, _, err := h.deps.Store.ResolveOrRegisterAgent(ctx, project.ID, args.Agent, true, types.Agent{}, now)
	if err != nil {
		return errResult(err), nil, nil
	}
	ttlMicros := h.deps.Config.ReservationDefaultTTL.Microseconds()
	if args.TTLMinutes > 0 {
		ttlMicros = minutesToMicros(args.TTLMinutes)
	}
	rows, err := h.deps.Reservation.Reserve(ctx, project.ID, agent.ID, project.Slug, args.Paths, args.Exclusive, ttlMicros, now)
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(viewReservations(rows)), nil, nil
}

func (h *handlers) releaseFileReservations(ctx context.Context, _ *mcp.CallToolRequest, args releasePathsArgs) (*mcp.CallToolResult, any, error) {
	project, agent, err := h.resolveProjectAgent(ctx, args.ProjectKey, args.Agent)
	if err != nil {
		return errResult(err), nil, nil
	}
	n, err := h.deps.Reservation.Release(ctx, project.ID, agent.ID, args.Paths, nowMicros())
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(map[string]any{"released": n}), nil, nil
}

func (h *handlers) renewFileReservations(ctx context.Context, _ *mcp.CallToolRequest, args renewPathsArgs) (*mcp.CallToolResult, any, error) {
	project, agent, err := h.resolveProjectAgent(ctx, args.ProjectKey, args.Agent)
	if err != nil {
		return errResult(err), nil, nil
	}
	extendMicros := h.deps.Config.ReservationDefaultTTL.Microseconds()
	if args.ExtendMinutes > 0 {
		extendMicros = minutesToMicros(args.ExtendMinutes)
	}
	n, err := h.deps.Reservation.Renew(ctx, project.ID, agent.ID, project.Slug, args.Paths, extendMicros, nowMicros())
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(map[string]any{"renewed": n}), nil, nil
}

func (h *handlers) forceReleaseFileReservation(ctx context.Context, _ *mcp.CallToolRequest, args forceReleaseArgs) (*mcp.CallToolResult, any, error) {
	n, err := h.deps.Reservation.ForceRelease(ctx, args.ReservationIDs, nowMicros())
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(map[string]any{"released": n}), nil, nil
}

func (h *handlers) requestContact(ctx context.Context, _ *mcp.CallToolRequest, args requestContactArgs) (*mcp.CallToolResult, any, error) {
	now := nowMicros()
	project, err := h.deps.Store.EnsureProject(ctx, args.ProjectKey, args.ProjectPath, now)
	if err != nil {
		return errResult(err), nil, nil
	}
	requester, _, err := h.deps.Store.ResolveOrRegisterAgent(ctx, project.ID, args.Requester, true, types.Agent{}, now)
	if err != nil {
		return errResult(err), nil, nil
	}
	target, err := h.deps.Store.GetAgentByName(ctx, project.ID, args.Target)
	if err != nil {
		return errResult(&mail.Error{Type: mail.ErrNotFound, Message: fmt.Sprintf("no such agent: %q", args.Target)}), nil, nil
	}
	link, err := h.deps.Store.UpsertLink(ctx, project.ID, requester.ID, target.ID, types.LinkRequested, now)
	if err != nil {
		return errResult(err), nil, nil
	}
	if h.deps.Bus != nil {
		publishContactRequested(h.deps, project.ID, requester.ID, target.ID)
	}
	return jsonResult(wireLink{Requester: requester.Name, Target: target.Name, Status: string(link.Status), UpdatedAt: wiretime.ToISO(link.UpdatedTS)}), nil, nil
}

func (h *handlers) respondContact(ctx context.Context, _ *mcp.CallToolRequest, args respondContactArgs) (*mcp.CallToolResult, any, error) {
	project, requester, err := h.resolveProjectAgent(ctx, args.ProjectKey, args.Requester)
	if err != nil {
		return errResult(err), nil, nil
	}
	target, err := h.deps.Store.GetAgentByName(ctx, project.ID, args.Target)
	if err != nil {
		return errResult(&mail.Error{Type: mail.ErrNotFound, Message: fmt.Sprintf("no such agent: %q", args.Target)}), nil, nil
	}
	status := types.LinkDeclined
	if args.Approve {
		status = types.LinkApproved
	}
	now := nowMicros()
	link, err := h.deps.Store.UpsertLink(ctx, project.ID, requester.ID, target.ID, status, now)
	if err != nil {
		return errResult(err), nil, nil
	}
	if h.deps.Bus != nil && args.Approve {
		publishContactApproved(h.deps, project.ID, requester.ID, target.ID)
	}
	return jsonResult(wireLink{Requester: requester.Name, Target: target.Name, Status: string(link.Status), UpdatedAt: wiretime.ToISO(link.UpdatedTS)}), nil, nil
}

func (h *handlers) listContacts(ctx context.Context, _ *mcp.CallToolRequest, args listContactsArgs) (*mcp.CallToolResult, any, error) {
	project, agent, err := h.resolveProjectAgent(ctx, args.ProjectKey, args.Agent)
	if err != nil {
		return errResult(err), nil, nil
	}
	links, err := h.deps.Store.ListContacts(ctx, project.ID, agent.ID)
	if err != nil {
		return errResult(err), nil, nil
	}
	out := make([]wireLink, 0, len(links))
	for _, l := range links {
		a, _ := h.deps.Store.GetAgent(ctx, l.AAgentID)
		b, _ := h.deps.Store.GetAgent(ctx, l.BAgentID)
		out = append(out, wireLink{Requester: a.Name, Target: b.Name, Status: string(l.Status), UpdatedAt: wiretime.ToISO(l.UpdatedTS)})
	}
	return jsonResult(out), nil, nil
}

func (h *handlers) setContactPolicy(ctx context.Context, _ *mcp.CallToolRequest, args setContactPolicyArgs) (*mcp.CallToolResult, any, error) {
	_, agent, err := h.resolveProjectAgent(ctx, args.ProjectKey, args.Agent)
	if err != nil {
		return errResult(err), nil, nil
	}
	policy := types.ContactPolicy(args.Policy)
	switch policy {
	case types.PolicyOpen, types.PolicyAuto, types.PolicyContactsOnly, types.PolicyBlockAll:
	default:
		return errResult(&mail.Error{Type: mail.ErrInvalidArgument, Message: fmt.Sprintf("unknown contact policy %q", args.Policy)}), nil, nil
	}
	if err := h.deps.Store.SetContactPolicy(ctx, agent.ID, policy); err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(map[string]any{"agent": agent.Name, "contact_policy": string(policy)}), nil, nil
}

func (h *handlers) searchMessages(ctx context.Context, _ *mcp.CallToolRequest, args searchMessagesArgs) (*mcp.CallToolResult, any, error) {
	project, err := h.deps.Store.GetProjectBySlug(ctx, args.ProjectKey)
	if err != nil {
		return errResult(&mail.Error{Type: mail.ErrNotFound, Message: fmt.Sprintf("no such project: %q", args.ProjectKey)}), nil, nil
	}
	var since int64
	if args.SinceISO != "" {
		since, err = wiretime.FromISO(args.SinceISO)
		if err != nil {
			return errResult(&mail.Error{Type: mail.ErrInvalidTimestamp, Message: fmt.Sprintf("invalid since timestamp %q", args.SinceISO)}), nil, nil
		}
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	result, err := h.deps.Search.Search(ctx, project.ID, args.Query, types.Importance(args.Importance), since, limit)
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(viewSearchResult(result)), nil, nil
}

func (h *handlers) summarizeThread(ctx context.Context, _ *mcp.CallToolRequest, args summarizeThreadArgs) (*mcp.CallToolResult, any, error) {
	project, err := h.deps.Store.GetProjectBySlug(ctx, args.ProjectKey)
	if err != nil {
		return errResult(&mail.Error{Type: mail.ErrNotFound, Message: fmt.Sprintf("no such project: %q", args.ProjectKey)}), nil, nil
	}
	threadID := mail.SanitizeThreadID(args.ThreadID, args.ThreadID)
	limit := args.Limit
	if limit <= 0 {
		limit = 50
	}
	msgs, err := h.deps.Store.MessagesByThread(ctx, project.ID, threadID, limit)
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(map[string]any{"thread_id": threadID, "messages": viewMessages(msgs)}), nil, nil
}

func (h *handlers) ensureProject(ctx context.Context, _ *mcp.CallToolRequest, args ensureProjectArgs) (*mcp.CallToolResult, any, error) {
	project, err := h.deps.Store.EnsureProject(ctx, args.ProjectKey, args.ProjectPath, nowMicros())
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(viewProject(project)), nil, nil
}

func (h *handlers) registerAgent(ctx context.Context, _ *mcp.CallToolRequest, args registerAgentArgs) (*mcp.CallToolResult, any, error) {
	now := nowMicros()
	project, err := h.deps.Store.EnsureProject(ctx, args.ProjectKey, args.ProjectPath, now)
	if err != nil {
		return errResult(err), nil, nil
	}
	policy := types.ContactPolicy(args.ContactPolicy)
	attachPolicy := types.AttachmentsPolicy(args.AttachmentsPolicy)
	agent, err := h.deps.Store.RegisterAgent(ctx, project.ID, args.Name, args.Program, args.Model, args.TaskDescription, policy, attachPolicy, now)
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(viewAgent(agent)), nil, nil
}

func (h *handlers) whois(ctx context.Context, _ *mcp.CallToolRequest, args whoisArgs) (*mcp.CallToolResult, any, error) {
	_, agent, err := h.resolveProjectAgent(ctx, args.ProjectKey, args.Agent)
	if err != nil {
		return errResult(err), nil, nil
	}
	return jsonResult(viewAgent(agent)), nil, nil
}

func (h *handlers) healthCheck(ctx context.Context, _ *mcp.CallToolRequest, args healthCheckArgs) (*mcp.CallToolResult, any, error) {
	pingErr := h.deps.Store.Ping(ctx)
	pressure, pressureErr := store.CheckDiskPressure(h.deps.Config.DataRoot, h.deps.Config.DiskPressureCriticalPercent, h.deps.Config.DiskPressureFatalPercent)

	status := "ok"
	if pingErr != nil {
		status = "degraded"
	}

	out := map[string]any{
		"status":                status,
		"breakers":              h.deps.Store.BreakerStates(),
		"contact_bypass_count":  h.deps.Contact.BypassCount(),
	}
	if pingErr != nil {
		out["db_error"] = pingErr.Error()
	}
	if pressureErr == nil {
		out["disk_pressure"] = diskPressureString(pressure)
	}

	if args.ProjectKey != "" {
		if cards, err := h.buildAnomalies(ctx, args.ProjectKey); err == nil {
			out["anomalies"] = cards
		}
	}

	return jsonResult(out), nil, nil
}

// buildAnomalies assembles AnomalyInputs from the engines health_check
// already has access to and runs the anomaly-card heuristics for one
// project. Errors are swallowed by the caller (anomaly synthesis is an
// observability extra, never a reason to fail health_check itself).
func (h *handlers) buildAnomalies(ctx context.Context, projectKey string) ([]types.AnomalyCard, error) {
	project, err := h.deps.Store.GetProjectBySlug(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	agents, err := h.deps.Store.ListAgents(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	return h.deps.Search.BuildAnomalies(ctx, search.AnomalyInputs{
		ProjectID:                project.ID,
		Now:                      nowMicros(),
		AckSLAMicros:             h.deps.Config.AckSLA.Microseconds(),
		Agents:                   agents,
		ReservationEngine:        h.deps.Reservation,
		ContactBypassCount:       h.deps.Contact.BypassCount(),
		AgentIdleThreshold:       h.deps.Config.AgentIdleThreshold,
		ReservationExpiryWarning: h.deps.Config.ReservationExpiryWarning,
	})
}

func diskPressureString(p store.DiskPressure) string {
	switch p {
	case store.PressureFatal:
		return "fatal"
	case store.PressureCritical:
		return "critical"
	default:
		return "ok"
	}
}

func minutesToMicros(m int) int64 { return int64(m) * 60 * 1_000_000 }

func publishContactRequested(deps Deps, projectID, requesterID, targetID int64) {
	deps.Bus.Publish(eventbus.Event{
		Kind: eventbus.KindContactRequested, ProjectID: projectID,
		Payload: map[string]int64{"requester_id": requesterID, "target_id": targetID},
	})
}

func publishContactApproved(deps Deps, projectID, requesterID, targetID int64) {
	deps.Bus.Publish(eventbus.Event{
		Kind: eventbus.KindContactApproved, ProjectID: projectID,
		Payload: map[string]int64{"requester_id": requesterID, "target_id": targetID},
	})
}
