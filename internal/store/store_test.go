package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dicklesworth/agentmail/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureProjectIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1, err := s.EnsureProject(ctx, "demo", "/home/demo", 1000)
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}
	p2, err := s.EnsureProject(ctx, "demo", "/home/demo", 2000)
	if err != nil {
		t.Fatalf("EnsureProject (second call): %v", err)
	}
	if p1.ID != p2.ID {
		t.Fatalf("expected same project id, got %d and %d", p1.ID, p2.ID)
	}
}

func TestRegisterAndResolveAgent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.EnsureProject(ctx, "demo", "/home/demo", 1000)
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}

	a, err := s.RegisterAgent(ctx, p.ID, "BlueLake", "claude", "sonnet", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	if err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	found, err := s.GetAgentByName(ctx, p.ID, "bluelake")
	if err != nil {
		t.Fatalf("GetAgentByName (case-insensitive): %v", err)
	}
	if found.ID != a.ID {
		t.Fatalf("expected case-insensitive lookup to find %d, got %d", a.ID, found.ID)
	}

	again, err := s.RegisterAgent(ctx, p.ID, "BlueLake", "other", "other", "", types.PolicyAuto, types.AttachmentsAuto, 2000)
	if err != nil {
		t.Fatalf("RegisterAgent (race path): %v", err)
	}
	if again.ID != a.ID {
		t.Fatalf("expected duplicate registration to return existing agent %d, got %d", a.ID, again.ID)
	}
}

func TestMessageRoundTripAndIdempotentMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.EnsureProject(ctx, "demo", "/home/demo", 1000)
	sender, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	recipient, _ := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	msg, err := s.CreateMessage(ctx, NewMessageInput{
		ProjectID: p.ID, SenderID: sender.ID, Subject: "Hello", BodyMD: "body",
		Importance: types.ImportanceHigh, AckRequired: true,
		Recipients: []types.MessageRecipient{{AgentID: recipient.ID, Kind: types.KindTo}},
		CreatedTS:  5000,
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	recipients, err := s.GetRecipients(ctx, msg.ID)
	if err != nil || len(recipients) != 1 {
		t.Fatalf("GetRecipients: %v, %d rows", err, len(recipients))
	}

	readTS, err := s.MarkRead(ctx, msg.ID, recipient.ID, 6000)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if readTS != 6000 {
		t.Fatalf("expected read_ts 6000, got %d", readTS)
	}

	again, err := s.MarkRead(ctx, msg.ID, recipient.ID, 7000)
	if err != nil {
		t.Fatalf("MarkRead (idempotent): %v", err)
	}
	if again != 6000 {
		t.Fatalf("expected idempotent MarkRead to return original 6000, got %d", again)
	}

	gotRead, gotAck, err := s.Acknowledge(ctx, msg.ID, recipient.ID, 8000)
	if err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if gotRead != 6000 {
		t.Fatalf("Acknowledge should not move an already-set read_ts, got %d", gotRead)
	}
	if gotAck != 8000 {
		t.Fatalf("expected ack_ts 8000, got %d", gotAck)
	}

	_, gotAck2, err := s.Acknowledge(ctx, msg.ID, recipient.ID, 9000)
	if err != nil {
		t.Fatalf("Acknowledge (idempotent): %v", err)
	}
	if gotAck2 != 8000 {
		t.Fatalf("expected idempotent Acknowledge to return original 8000, got %d", gotAck2)
	}
}

func TestReservationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.EnsureProject(ctx, "demo", "/home/demo", 1000)
	a, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	r, err := s.CreateReservation(ctx, p.ID, a.ID, "src/auth/**", true, 1000, 5000)
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}

	active, err := s.ActiveReservations(ctx, p.ID, nil, 2000)
	if err != nil || len(active) != 1 {
		t.Fatalf("ActiveReservations: %v, %d rows", err, len(active))
	}

	if _, err := s.RenewReservations(ctx, []int64{r.ID}, 1000, 2000); err != nil {
		t.Fatalf("RenewReservations: %v", err)
	}
	renewed, _ := s.ActiveReservations(ctx, p.ID, nil, 5500)
	if len(renewed) != 1 {
		t.Fatalf("expected reservation still active after renewal, got %d active", len(renewed))
	}

	if _, err := s.ReleaseReservations(ctx, []int64{r.ID}, a.ID, false, 6000); err != nil {
		t.Fatalf("ReleaseReservations: %v", err)
	}
	afterRelease, _ := s.ActiveReservations(ctx, p.ID, nil, 6500)
	if len(afterRelease) != 0 {
		t.Fatalf("expected 0 active reservations after release, got %d", len(afterRelease))
	}
}
