// Package mail implements the messaging engine: send_message,
// reply_message, mark_message_read, and acknowledge_message, plus the
// size/thread/attachment validation helpers and the wire-level error
// taxonomy those operations fail with.
package mail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dicklesworth/agentmail/internal/archive"
	"github.com/dicklesworth/agentmail/internal/config"
	"github.com/dicklesworth/agentmail/internal/contact"
	"github.com/dicklesworth/agentmail/internal/eventbus"
	"github.com/dicklesworth/agentmail/internal/reservation"
	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

// Engine orchestrates a send or reply: argument normalization, size and
// thread-id validation, the disk-pressure gate, recipient resolution,
// contact-policy enforcement, attachment processing, atomic persistence,
// and the best-effort post-commit side effects (archive mirror, event
// publication).
type Engine struct {
	store       *store.Store
	contact     *contact.Engine
	reservation *reservation.Engine
	archive     *archive.Manager
	bus         *eventbus.Bus
	attachments *AttachmentPipeline
	cfg         config.Config
}

func New(s *store.Store, c *contact.Engine, r *reservation.Engine, a *archive.Manager, bus *eventbus.Bus, attachments *AttachmentPipeline, cfg config.Config) *Engine {
	return &Engine{store: s, contact: c, reservation: r, archive: a, bus: bus, attachments: attachments, cfg: cfg}
}

// SendInput carries the raw, caller-supplied fields of a send_message
// call, prior to any validation or normalization.
type SendInput struct {
	ProjectSlug     string
	ProjectHumanKey string
	SenderName      string
	SenderProgram   string
	SenderModel     string
	To, CC, BCC     []string
	Subject         string
	BodyMD          string
	Importance      types.Importance
	AckRequired     bool
	ThreadID        string
	AttachmentPaths []string

	// Topic is validated against the thread_id grammar for forward
	// compatibility but is not persisted anywhere; no column backs it.
	Topic string

	// Broadcast is accepted for wire compatibility with callers that
	// still send it, but its expansion to "all agents in the project"
	// is not implemented — see ValidateBroadcast.
	Broadcast bool
}

// ValidateBroadcast rejects the broadcast flag: set alongside a non-empty
// to list it is an outright contradiction (a parity error), and set
// alone it still names a feature this core does not implement. Kept as
// a distinct, named check rather than silently ignored so callers get a
// clear, stable error rather than a broadcast send that silently became
// a send to nobody.
func ValidateBroadcast(broadcast bool, to []string) error {
	if !broadcast {
		return nil
	}
	if len(to) > 0 {
		return invalidArgument("broadcast=true is incompatible with a non-empty to list (got %d recipients)", len(to))
	}
	return invalidArgument("broadcast is not implemented; address recipients explicitly")
}

func nowMicros() int64 { return time.Now().UnixMicro() }

func (e *Engine) limits() SizeLimits {
	return SizeLimits{
		MaxSubjectBytes:    e.cfg.MaxSubjectBytes,
		MaxBodyBytes:       e.cfg.MaxBodyBytes,
		MaxAttachmentBytes: e.cfg.MaxAttachmentBytes,
		MaxTotalBytes:      e.cfg.MaxTotalBytes,
	}
}

// SendMessage runs the full send pipeline and returns the delivery
// envelope on success.
func (e *Engine) SendMessage(ctx context.Context, in SendInput) (types.DeliveryEnvelope, error) {
	if in.Importance == "" {
		in.Importance = types.ImportanceNormal
	}
	if err := ValidateBroadcast(in.Broadcast, in.To); err != nil {
		return types.DeliveryEnvelope{}, err
	}
	if !HasAnyRecipients(in.To, in.CC, in.BCC) {
		return types.DeliveryEnvelope{}, newError(ErrNoRecipients, "at least one of to/cc/bcc is required", nil)
	}

	subject := TruncateSubject(in.Subject)

	threadID := in.ThreadID
	if threadID != "" && !IsValidThreadID(threadID) {
		return types.DeliveryEnvelope{}, newError(ErrInvalidThreadID, fmt.Sprintf("invalid thread_id: %q", threadID), nil)
	}
	if in.Topic != "" && !IsValidThreadID(in.Topic) {
		return types.DeliveryEnvelope{}, newError(ErrInvalidThreadID, fmt.Sprintf("invalid topic: %q", in.Topic), nil)
	}

	now := nowMicros()

	pressure, err := store.CheckDiskPressure(e.cfg.DataRoot, e.cfg.DiskPressureCriticalPercent, e.cfg.DiskPressureFatalPercent)
	if err == nil && pressure == store.PressureFatal {
		return types.DeliveryEnvelope{}, newError(ErrDiskFull, "disk is critically full; message not accepted", nil)
	}

	project, err := e.store.EnsureProject(ctx, in.ProjectSlug, in.ProjectHumanKey, now)
	if err != nil {
		return types.DeliveryEnvelope{}, err
	}

	sender, _, err := e.store.ResolveOrRegisterAgent(ctx, project.ID, in.SenderName, true,
		types.Agent{Program: in.SenderProgram, Model: in.SenderModel}, now)
	if err != nil {
		return types.DeliveryEnvelope{}, err
	}
	_ = e.store.TouchLastActive(ctx, sender.ID, now)

	recipients, unknown, err := e.resolveRecipients(ctx, project.ID, sender, in.To, in.CC, in.BCC, now)
	if err != nil {
		return types.DeliveryEnvelope{}, err
	}
	if len(unknown) > 0 {
		suggestions := e.collectSuggestions(ctx, project.ID, unknown)
		return types.DeliveryEnvelope{}, recipientNotFound(unknown, suggestions)
	}

	if err := e.enforceContactPolicy(ctx, project.ID, sender, recipients, threadID); err != nil {
		return types.DeliveryEnvelope{}, err
	}

	body := in.BodyMD
	var attachments []types.Attachment
	if e.attachments != nil {
		body, attachments, err = e.attachments.Process(body, in.AttachmentPaths, sender.AttachmentsPolicy)
		if err != nil {
			return types.DeliveryEnvelope{}, invalidArgument("attachment processing failed: %v", err)
		}
	}

	if v, total := ValidateSizeLimits(e.limits(), subject, body, attachments); v != nil {
		return types.DeliveryEnvelope{}, sizeViolationError(v, total)
	}

	recipientRows := make([]types.MessageRecipient, 0, len(recipients.to)+len(recipients.cc)+len(recipients.bcc))
	recipientNames := make(map[int64]string)
	appendRows := func(agents []resolvedRecipient, kind types.RecipientKind) {
		for _, r := range agents {
			recipientRows = append(recipientRows, types.MessageRecipient{AgentID: r.agent.ID, Kind: kind})
			recipientNames[r.agent.ID] = r.agent.Name
		}
	}
	appendRows(recipients.to, types.KindTo)
	appendRows(recipients.cc, types.KindCC)
	appendRows(recipients.bcc, types.KindBCC)

	msg, err := e.store.CreateMessage(ctx, store.NewMessageInput{
		ProjectID:   project.ID,
		SenderID:    sender.ID,
		Subject:     subject,
		BodyMD:      body,
		Importance:  in.Importance,
		AckRequired: in.AckRequired,
		ThreadID:    threadID,
		Attachments: attachments,
		Recipients:  recipientRows,
		CreatedTS:   now,
	})
	if err != nil {
		return types.DeliveryEnvelope{}, err
	}

	e.postCommit(project, sender, msg, recipientRows, recipientNames)

	names := make([]string, 0, len(recipientRows))
	for _, r := range recipientRows {
		names = append(names, recipientNames[r.AgentID])
	}
	return types.DeliveryEnvelope{
		ProjectKey: project.Slug,
		Message:    msg,
		Recipients: names,
		Count:      len(names),
	}, nil
}

// ReplyInput carries reply_message's raw fields. Recipients default to
// the original message's sender when To is empty.
type ReplyInput struct {
	ProjectSlug     string
	ProjectHumanKey string
	SenderName      string
	SenderProgram   string
	SenderModel     string
	OriginalID      int64
	To, CC, BCC     []string
	BodyMD          string
}

// ReplyMessage derives subject, thread_id, importance, and ack_required
// from the original message, enforces a body-only size gate, and never
// carries attachments.
func (e *Engine) ReplyMessage(ctx context.Context, in ReplyInput) (types.DeliveryEnvelope, error) {
	original, err := e.store.GetMessage(ctx, in.OriginalID)
	if err != nil {
		return types.DeliveryEnvelope{}, newError(ErrNotFound, fmt.Sprintf("no such message: %d", in.OriginalID), nil)
	}

	project, err := e.store.EnsureProject(ctx, in.ProjectSlug, in.ProjectHumanKey, nowMicros())
	if err != nil {
		return types.DeliveryEnvelope{}, err
	}
	if original.ProjectID != project.ID {
		return types.DeliveryEnvelope{}, newError(ErrNotFound, fmt.Sprintf("no such message: %d", in.OriginalID), nil)
	}

	if v := ValidateReplyBodyLimit(e.cfg.MaxBodyBytes, in.BodyMD); v != nil {
		return types.DeliveryEnvelope{}, sizeViolationError(v, v.SizeBytes)
	}

	to := in.To
	if len(to) == 0 {
		originalSender, err := e.store.GetAgent(ctx, original.SenderID)
		if err != nil {
			return types.DeliveryEnvelope{}, err
		}
		to = []string{originalSender.Name}
	}

	threadID := original.ThreadID
	if threadID == "" {
		threadID = strconv.FormatInt(original.ID, 10)
	}

	return e.SendMessage(ctx, SendInput{
		ProjectSlug:     in.ProjectSlug,
		ProjectHumanKey: in.ProjectHumanKey,
		SenderName:      in.SenderName,
		SenderProgram:   in.SenderProgram,
		SenderModel:     in.SenderModel,
		To:              to,
		CC:              in.CC,
		BCC:             in.BCC,
		Subject:         ApplyPrefix(original.Subject, e.cfg.SubjectPrefixDefault),
		BodyMD:          in.BodyMD,
		Importance:      original.Importance,
		AckRequired:     original.AckRequired,
		ThreadID:        threadID,
	})
}

// MarkMessageRead records messageID as read by agentName, idempotently.
func (e *Engine) MarkMessageRead(ctx context.Context, projectSlug, agentName string, messageID int64) (int64, error) {
	agent, project, err := e.resolveCaller(ctx, projectSlug, agentName)
	if err != nil {
		return 0, err
	}
	readTS, err := e.store.MarkRead(ctx, messageID, agent.ID, nowMicros())
	if err != nil {
		return 0, err
	}
	e.bus.Publish(eventbus.Event{Kind: eventbus.KindMessageRead, ProjectID: project.ID, Payload: map[string]any{"message_id": messageID, "agent_id": agent.ID}})
	return readTS, nil
}

// AcknowledgeMessage records messageID as acknowledged (and read, if not
// already) by agentName, idempotently.
func (e *Engine) AcknowledgeMessage(ctx context.Context, projectSlug, agentName string, messageID int64) (readTS, ackTS int64, err error) {
	agent, project, err := e.resolveCaller(ctx, projectSlug, agentName)
	if err != nil {
		return 0, 0, err
	}
	readTS, ackTS, err = e.store.Acknowledge(ctx, messageID, agent.ID, nowMicros())
	if err != nil {
		return 0, 0, err
	}
	e.bus.Publish(eventbus.Event{Kind: eventbus.KindMessageAcked, ProjectID: project.ID, Payload: map[string]any{"message_id": messageID, "agent_id": agent.ID}})
	return readTS, ackTS, nil
}

func (e *Engine) resolveCaller(ctx context.Context, projectSlug, agentName string) (types.Agent, types.Project, error) {
	project, err := e.store.GetProjectBySlug(ctx, projectSlug)
	if err != nil {
		return types.Agent{}, types.Project{}, newError(ErrNotFound, fmt.Sprintf("no such project: %q", projectSlug), nil)
	}
	agent, err := e.store.GetAgentByName(ctx, project.ID, agentName)
	if err != nil {
		return types.Agent{}, types.Project{}, newError(ErrNotFound, fmt.Sprintf("no such agent: %q", agentName), nil)
	}
	return agent, project, nil
}

func (e *Engine) postCommit(project types.Project, sender types.Agent, msg types.Message, recipientRows []types.MessageRecipient, recipientNames map[int64]string) {
	if e.archive != nil {
		e.archive.For(project.Slug).EnqueueMessage(archive.MessageBundle{Message: msg, SenderName: sender.Name}, recipientRows, recipientNames)
	}
	if e.bus != nil {
		e.bus.Publish(eventbus.Event{Kind: eventbus.KindMessageSent, ProjectID: project.ID, Payload: map[string]any{
			"message_id": msg.ID, "sender_id": sender.ID, "thread_id": msg.ThreadID,
		}})
	}
}
