package search

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

func TestSanitizeFTSQueryDropsOperatorsAndQuotesTokens(t *testing.T) {
	got := SanitizeFTSQuery("JWT AND refresh OR token")
	want := `"JWT" "refresh" "token"`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSanitizeFTSQueryEmptyInputYieldsEmpty(t *testing.T) {
	if got := SanitizeFTSQuery("   "); got != "" {
		t.Fatalf("expected empty sanitized query, got %q", got)
	}
}

func TestSearchFTSThenLikeFallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	a, _ := s.RegisterAgent(ctx, p.ID, "A", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	b, _ := s.RegisterAgent(ctx, p.ID, "B", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	_, err := s.CreateMessage(ctx, store.NewMessageInput{
		ProjectID: p.ID, SenderID: a.ID, Subject: "auth", BodyMD: "authenticate via JWT",
		Importance: types.ImportanceNormal, CreatedTS: 1000,
		Recipients: []types.MessageRecipient{{AgentID: b.ID, Kind: types.KindTo}},
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	_, err = s.CreateMessage(ctx, store.NewMessageInput{
		ProjectID: p.ID, SenderID: a.ID, Subject: "token", BodyMD: "refresh token",
		Importance: types.ImportanceNormal, CreatedTS: 2000,
		Recipients: []types.MessageRecipient{{AgentID: b.ID, Kind: types.KindTo}},
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	e := New(s)
	result, err := e.Search(ctx, p.ID, "JWT", "", 0, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Method != types.SearchMethodFTS || len(result.Messages) != 1 {
		t.Fatalf("expected one FTS hit, got method=%v count=%d", result.Method, len(result.Messages))
	}

	empty, err := e.Search(ctx, p.ID, "zzzqqq", "", 0, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if empty.Method != types.SearchMethodLikeFallback || len(empty.Messages) != 0 {
		t.Fatalf("expected empty like_fallback result, got method=%v count=%d", empty.Method, len(empty.Messages))
	}
}

func TestBucketOfAckOverdueTakesPrecedence(t *testing.T) {
	now := int64(2 * time.Hour / time.Microsecond)
	sla := int64(30 * time.Minute / time.Microsecond)
	row := store.InboxRow{
		Message: types.Message{AckRequired: true, Importance: types.ImportanceUrgent, CreatedTS: 0},
	}
	if got := BucketOf(row, now, sla); got != BucketAckOverdue {
		t.Fatalf("expected BucketAckOverdue, got %d", got)
	}
}

func TestFetchInboxSingleHighAckRequiredEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, _ := s.EnsureProject(ctx, "demo", "/demo", 1000)
	blue, _ := s.RegisterAgent(ctx, p.ID, "BlueLake", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)
	red, _ := s.RegisterAgent(ctx, p.ID, "RedFox", "", "", "", types.PolicyAuto, types.AttachmentsAuto, 1000)

	_, err := s.CreateMessage(ctx, store.NewMessageInput{
		ProjectID: p.ID, SenderID: blue.ID, Subject: "Hello", BodyMD: "body",
		Importance: types.ImportanceHigh, AckRequired: true, CreatedTS: 5_000_000,
		Recipients: []types.MessageRecipient{{AgentID: red.ID, Kind: types.KindTo}},
	})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	e := New(s)
	entries, err := e.FetchInbox(ctx, p.ID, red.ID, 6_000_000, int64(30*time.Minute/time.Microsecond), 0, 10)
	if err != nil {
		t.Fatalf("FetchInbox: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one inbox entry, got %d", len(entries))
	}
	if entries[0].Priority != "high" || entries[0].AckStatus != "required" || entries[0].From != "BlueLake" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}
