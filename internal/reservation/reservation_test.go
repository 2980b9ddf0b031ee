package reservation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store, int64) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	p, err := s.EnsureProject(ctx, "demo", "/demo", 1000)
	if err != nil {
		t.Fatalf("EnsureProject: %v", err)
	}
	return New(s, nil), s, p.ID
}

func TestConflictDetectionBetweenDifferentAgentsExclusiveOverlap(t *testing.T) {
	e, s, projectID := newTestEngine(t)
	ctx := context.Background()

	a, _ := s.RegisterAgent(ctx, projectID, "A", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	b, _ := s.RegisterAgent(ctx, projectID, "B", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	if _, err := e.Reserve(ctx, projectID, a.ID, "demo", []string{"src/auth/**"}, true, 3600_000_000, 1000); err != nil {
		t.Fatalf("Reserve A: %v", err)
	}
	if _, err := e.Reserve(ctx, projectID, b.ID, "demo", []string{"src/auth/jwt.rs"}, true, 3600_000_000, 1000); err != nil {
		t.Fatalf("Reserve B: %v", err)
	}

	conflicts, err := e.ListConflicts(ctx, projectID, 2000)
	if err != nil {
		t.Fatalf("ListConflicts: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected exactly one conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if !((c.A.AgentID == a.ID && c.B.AgentID == b.ID) || (c.A.AgentID == b.ID && c.B.AgentID == a.ID)) {
		t.Fatalf("conflict does not reference both agents: %+v", c)
	}
}

func TestNoConflictWhenNotBothExclusive(t *testing.T) {
	e, s, projectID := newTestEngine(t)
	ctx := context.Background()

	a, _ := s.RegisterAgent(ctx, projectID, "A", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	b, _ := s.RegisterAgent(ctx, projectID, "B", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	if _, err := e.Reserve(ctx, projectID, a.ID, "demo", []string{"src/**"}, false, 3600_000_000, 1000); err != nil {
		t.Fatalf("Reserve A: %v", err)
	}
	if _, err := e.Reserve(ctx, projectID, b.ID, "demo", []string{"src/main.go"}, true, 3600_000_000, 1000); err != nil {
		t.Fatalf("Reserve B: %v", err)
	}

	conflicts, err := e.ListConflicts(ctx, projectID, 2000)
	if err != nil {
		t.Fatalf("ListConflicts: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts when one side is shared, got %d", len(conflicts))
	}
}

func TestNoConflictForDisjointPrefixes(t *testing.T) {
	e, s, projectID := newTestEngine(t)
	ctx := context.Background()

	a, _ := s.RegisterAgent(ctx, projectID, "A", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	b, _ := s.RegisterAgent(ctx, projectID, "B", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	if _, err := e.Reserve(ctx, projectID, a.ID, "demo", []string{"src/auth/**"}, true, 3600_000_000, 1000); err != nil {
		t.Fatalf("Reserve A: %v", err)
	}
	if _, err := e.Reserve(ctx, projectID, b.ID, "demo", []string{"docs/**"}, true, 3600_000_000, 1000); err != nil {
		t.Fatalf("Reserve B: %v", err)
	}

	conflicts, err := e.ListConflicts(ctx, projectID, 2000)
	if err != nil {
		t.Fatalf("ListConflicts: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts for disjoint literal prefixes, got %d", len(conflicts))
	}
}

func TestReleaseThenRenewFails(t *testing.T) {
	e, s, projectID := newTestEngine(t)
	ctx := context.Background()
	a, _ := s.RegisterAgent(ctx, projectID, "A", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	if _, err := e.Reserve(ctx, projectID, a.ID, "demo", []string{"src/**"}, true, 3600_000_000, 1000); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if n, err := e.Release(ctx, projectID, a.ID, []string{"src/**"}, 2000); err != nil || n != 1 {
		t.Fatalf("Release: n=%d err=%v", n, err)
	}
	if _, err := e.Renew(ctx, projectID, a.ID, "demo", []string{"src/**"}, 1000, 3000); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound renewing a released reservation, got %v", err)
	}
}
