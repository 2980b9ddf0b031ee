package mail

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/dicklesworth/agentmail/internal/archive"
	"github.com/dicklesworth/agentmail/internal/config"
	"github.com/dicklesworth/agentmail/internal/contact"
	"github.com/dicklesworth/agentmail/internal/eventbus"
	"github.com/dicklesworth/agentmail/internal/reservation"
	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

func newTestEngine(t *testing.T, cfg config.Config) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	q := archive.NewManager(filepath.Join(t.TempDir(), "archive"), 0.90, 0.98, s)
	t.Cleanup(q.StopAll)

	bus := eventbus.New(64)
	c := contact.New(s, cfg.ContactTTL, cfg.RecentThreadWindow)
	r := reservation.New(s, q)

	if cfg.DataRoot == "" {
		cfg.DataRoot = t.TempDir()
	}
	return New(s, c, r, q, bus, nil, cfg), s
}

// registerOpenAgents pre-registers the given names with an open contact
// policy, so a send between them exercises the pipeline under test
// without also exercising the contact-policy gate.
func registerOpenAgents(t *testing.T, s *store.Store, names ...string) {
	t.Helper()
	ctx := context.Background()
	p, err := s.EnsureProject(ctx, "demo", "/demo", 1000)
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}
	for _, name := range names {
		if _, err := s.RegisterAgent(ctx, p.ID, name, "", "", "", types.PolicyOpen, types.AttachmentsAuto, 1000); err != nil {
			t.Fatalf("RegisterAgent %q: %v", name, err)
		}
	}
}

func TestReplyMessagePreservesThreadAndAppliesPrefix(t *testing.T) {
	e, s := newTestEngine(t, config.Defaults())
	registerOpenAgents(t, s, "BlueLake", "RedFox")
	ctx := context.Background()

	sent, err := e.SendMessage(ctx, SendInput{
		ProjectSlug: "demo", ProjectHumanKey: "/demo",
		SenderName: "BlueLake", To: []string{"RedFox"},
		Subject: "Status update", BodyMD: "progress so far",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	reply, err := e.ReplyMessage(ctx, ReplyInput{
		ProjectSlug: "demo", ProjectHumanKey: "/demo",
		SenderName: "RedFox", OriginalID: sent.Message.ID,
		BodyMD: "thanks, looks good",
	})
	if err != nil {
		t.Fatalf("ReplyMessage: %v", err)
	}

	wantThread := strconv.FormatInt(sent.Message.ID, 10)
	if reply.Message.ThreadID != wantThread {
		t.Fatalf("expected reply thread_id %q derived from the original message id, got %q", wantThread, reply.Message.ThreadID)
	}
	if reply.Message.Subject != "Re: Status update" {
		t.Fatalf("expected Re: prefix applied once, got %q", reply.Message.Subject)
	}
	if len(reply.Recipients) != 1 || reply.Recipients[0] != "BlueLake" {
		t.Fatalf("expected reply to default to original sender, got %v", reply.Recipients)
	}

	// Replying again in the same thread must not double the prefix.
	reply2, err := e.ReplyMessage(ctx, ReplyInput{
		ProjectSlug: "demo", ProjectHumanKey: "/demo",
		SenderName: "BlueLake", OriginalID: reply.Message.ID,
		BodyMD: "great, shipping it",
	})
	if err != nil {
		t.Fatalf("ReplyMessage (second): %v", err)
	}
	if reply2.Message.Subject != "Re: Status update" {
		t.Fatalf("expected idempotent Re: prefix, got %q", reply2.Message.Subject)
	}
	if reply2.Message.ThreadID != wantThread {
		t.Fatalf("expected the thread id to carry forward across replies, got %q want %q", reply2.Message.ThreadID, wantThread)
	}
}

func TestSendMessageContactRequiredBlocksSendAndSuggestsHandshake(t *testing.T) {
	e, s := newTestEngine(t, config.Defaults())
	ctx := context.Background()

	p, err := s.EnsureProject(ctx, "demo", "/demo", 1000)
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}
	if _, err := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}
	if _, err := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.PolicyContactsOnly, types.AttachmentsAuto, 1000); err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	_, err = e.SendMessage(ctx, SendInput{
		ProjectSlug: "demo", ProjectHumanKey: "/demo",
		SenderName: "BlueLake", To: []string{"RedFox"},
		Subject: "Hi", BodyMD: "intro",
	})
	if err == nil {
		t.Fatal("expected CONTACT_REQUIRED, got nil error")
	}
	mailErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *mail.Error, got %T: %v", err, err)
	}
	if mailErr.Type != ErrContactRequired {
		t.Fatalf("expected CONTACT_REQUIRED, got %s", mailErr.Type)
	}
	blocked, _ := mailErr.Data["recipients_blocked"].([]string)
	if len(blocked) != 1 || blocked[0] != "RedFox" {
		t.Fatalf("expected recipients_blocked=[RedFox], got %v", mailErr.Data["recipients_blocked"])
	}
	calls, _ := mailErr.Data["suggested_tool_calls"].([]map[string]any)
	if len(calls) != 1 || calls[0]["tool"] != "request_contact" {
		t.Fatalf("expected a request_contact suggestion, got %v", mailErr.Data["suggested_tool_calls"])
	}
}

func TestSendMessageOverflowSafeTotalSizeLimitReported(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxTotalBytes = 100
	e, s := newTestEngine(t, cfg)
	registerOpenAgents(t, s, "BlueLake", "RedFox")
	ctx := context.Background()

	body := make([]byte, 150)
	for i := range body {
		body[i] = 'x'
	}

	_, err := e.SendMessage(ctx, SendInput{
		ProjectSlug: "demo", ProjectHumanKey: "/demo",
		SenderName: "BlueLake", To: []string{"RedFox"},
		Subject: "Subject", BodyMD: string(body),
	})
	if err == nil {
		t.Fatal("expected INVALID_ARGUMENT for oversized total, got nil")
	}
	mailErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *mail.Error, got %T: %v", err, err)
	}
	if mailErr.Type != ErrInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT, got %s", mailErr.Type)
	}
	size, _ := mailErr.Data["size_bytes"].(int64)
	if size < 110 {
		t.Fatalf("expected size_bytes >= 110, got %d", size)
	}
}

func TestMarkMessageReadThenAcknowledgeAreIdempotent(t *testing.T) {
	e, s := newTestEngine(t, config.Defaults())
	registerOpenAgents(t, s, "BlueLake", "RedFox")
	ctx := context.Background()

	sent, err := e.SendMessage(ctx, SendInput{
		ProjectSlug: "demo", ProjectHumanKey: "/demo",
		SenderName: "BlueLake", To: []string{"RedFox"},
		Subject: "Hi", BodyMD: "body", AckRequired: true,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	readTS1, err := e.MarkMessageRead(ctx, "demo", "RedFox", sent.Message.ID)
	if err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	readTS2, err := e.MarkMessageRead(ctx, "demo", "RedFox", sent.Message.ID)
	if err != nil {
		t.Fatalf("MarkMessageRead (again): %v", err)
	}
	if readTS1 != readTS2 {
		t.Fatalf("expected idempotent read_ts, got %d then %d", readTS1, readTS2)
	}

	readTS3, ackTS1, err := e.AcknowledgeMessage(ctx, "demo", "RedFox", sent.Message.ID)
	if err != nil {
		t.Fatalf("AcknowledgeMessage: %v", err)
	}
	if readTS3 != readTS1 {
		t.Fatalf("expected Acknowledge to preserve the original read_ts, got %d want %d", readTS3, readTS1)
	}
	_, ackTS2, err := e.AcknowledgeMessage(ctx, "demo", "RedFox", sent.Message.ID)
	if err != nil {
		t.Fatalf("AcknowledgeMessage (again): %v", err)
	}
	if ackTS1 != ackTS2 {
		t.Fatalf("expected idempotent ack_ts, got %d then %d", ackTS1, ackTS2)
	}
}

func TestSendMessageNoRecipientsRejected(t *testing.T) {
	e, _ := newTestEngine(t, config.Defaults())
	ctx := context.Background()

	_, err := e.SendMessage(ctx, SendInput{
		ProjectSlug: "demo", ProjectHumanKey: "/demo",
		SenderName: "BlueLake", Subject: "Hi", BodyMD: "body",
	})
	mailErr, ok := err.(*Error)
	if !ok || mailErr.Type != ErrNoRecipients {
		t.Fatalf("expected NO_RECIPIENTS, got %v", err)
	}
}
