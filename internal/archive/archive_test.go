package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

func newTestBreaker(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "breaker.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	root := t.TempDir()
	q := New(root, 0.90, 0.98, newTestBreaker(t))
	t.Cleanup(q.Stop)
	return q
}

func waitFor(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
}

func TestEnqueueMessageWritesCanonicalOutboxInboxAndSignal(t *testing.T) {
	q := newTestQueue(t)

	msg := types.Message{ID: 42, Subject: "Hi", BodyMD: "body", Importance: types.ImportanceNormal, CreatedTS: time.Now().UnixMicro()}
	bundle := MessageBundle{Message: msg, SenderName: "BlueLake"}
	recipients := []types.MessageRecipient{{AgentID: 1, Kind: types.KindTo}, {AgentID: 2, Kind: types.KindBCC}}
	names := map[int64]string{1: "RedFox", 2: "GhostAgent"}

	result := q.EnqueueMessage(bundle, recipients, names)
	if result != Enqueued {
		t.Fatalf("expected Enqueued, got %v", result)
	}

	created := time.UnixMicro(msg.CreatedTS).UTC()
	canonical := filepath.Join(q.Root(), "messages", created.Format("2006"), created.Format("01"), "42.md")
	waitFor(t, canonical)
	waitFor(t, filepath.Join(q.Root(), "mailbox", "BlueLake", "outbox", "42.md"))
	waitFor(t, filepath.Join(q.Root(), "mailbox", "RedFox", "inbox", "42.md"))
	waitFor(t, filepath.Join(q.Root(), "mailbox", "RedFox", ".signal"))

	if _, err := os.Stat(filepath.Join(q.Root(), "mailbox", "GhostAgent", "inbox", "42.md")); err == nil {
		t.Fatalf("bcc recipient must not receive an inbox copy")
	}
}

func TestStoreAttachmentDedupesByContent(t *testing.T) {
	q := newTestQueue(t)

	p1, err := q.StoreAttachment([]byte("hello world"), ".txt")
	if err != nil {
		t.Fatalf("StoreAttachment: %v", err)
	}
	p2, err := q.StoreAttachment([]byte("hello world"), ".txt")
	if err != nil {
		t.Fatalf("StoreAttachment: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("expected identical content to produce the same path, got %q and %q", p1, p2)
	}
}

func TestEnqueueSkipsOnCriticalDiskPressure(t *testing.T) {
	root := t.TempDir()
	// A criticalPercent of 0 puts any filesystem usage fraction in the
	// critical tier; fatalPercent 1.0 keeps it below fatal.
	q := New(root, 0, 1.0, newTestBreaker(t))
	t.Cleanup(q.Stop)

	result := q.signal("SomeAgent")
	if result != SkippedDiskCritical {
		t.Fatalf("expected SkippedDiskCritical, got %v", result)
	}
}

func TestEnqueueUnavailableAfterStop(t *testing.T) {
	q := newTestQueue(t)
	q.Stop()

	result := q.signal("SomeAgent")
	if result != QueueUnavailable {
		t.Fatalf("expected QueueUnavailable after Stop, got %v", result)
	}
}
