package contact

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDecideSelfSendAlwaysAllowed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	a, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyBlockAll, types.AttachmentsAuto, 1000)

	e := New(s, time.Hour, 500)
	got := e.Decide(ctx, p.ID, a, a, "", nil, nil)
	if got != Allow {
		t.Fatalf("self-send with block_all policy: got %v, want Allow", got)
	}
}

func TestDecideBlockAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	sender, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	recipient, _ := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.PolicyBlockAll, types.AttachmentsAuto, 1000)

	e := New(s, time.Hour, 500)
	got := e.Decide(ctx, p.ID, sender, recipient, "", nil, nil)
	if got != BlockAll {
		t.Fatalf("got %v, want BlockAll", got)
	}
}

func TestDecideOpenAlwaysAllows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	sender, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	recipient, _ := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.PolicyOpen, types.AttachmentsAuto, 1000)

	e := New(s, time.Hour, 500)
	got := e.Decide(ctx, p.ID, sender, recipient, "", nil, nil)
	if got != Allow {
		t.Fatalf("got %v, want Allow", got)
	}
}

func TestDecideContactsOnlyRequiresApproval(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	sender, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	recipient, _ := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.PolicyContactsOnly, types.AttachmentsAuto, 1000)

	e := New(s, time.Hour, 500)
	got := e.Decide(ctx, p.ID, sender, recipient, "", nil, nil)
	if got != RequireApproval {
		t.Fatalf("contacts_only with no approved link: got %v, want RequireApproval", got)
	}

	if _, err := s.UpsertLink(ctx, p.ID, sender.ID, recipient.ID, types.LinkApproved, 2000); err != nil {
		t.Fatalf("UpsertLink: %v", err)
	}
	got = e.Decide(ctx, p.ID, sender, recipient, "", nil, nil)
	if got != Allow {
		t.Fatalf("contacts_only with approved link: got %v, want Allow", got)
	}
}

func TestDecideUnknownPolicyTreatedAsAuto(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	sender, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	recipient, _ := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.ContactPolicy("something-weird"), types.AttachmentsAuto, 1000)

	e := New(s, time.Hour, 500)
	got := e.Decide(ctx, p.ID, sender, recipient, "", nil, nil)
	if got != RequireApproval {
		t.Fatalf("unknown policy with no signals: got %v, want RequireApproval (auto with no recent_ok/approved)", got)
	}
}

func TestDecideAutoWithOverlappingReservations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	sender, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	recipient, _ := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	e := New(s, time.Hour, 500)
	senderRes := []types.FileReservation{{PathPattern: "src/auth/**"}}
	recipientRes := []types.FileReservation{{PathPattern: "src/auth/jwt.rs"}}
	got := e.Decide(ctx, p.ID, sender, recipient, "", senderRes, recipientRes)
	if got != Allow {
		t.Fatalf("auto with overlapping reservations: got %v, want Allow", got)
	}
}
