// Package archive implements the write-behind queue (WBQ) that mirrors
// committed messages to a content-addressed per-project file archive:
// canonical message files, sender outbox copies, per-recipient inbox
// copies, reservation lock-signal files, and notification-presence
// signals. The queue is best-effort and runs after the DB commit — it
// must never block message visibility on filesystem throughput.
package archive

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

// EnqueueResult reports what happened to an enqueued op: `enqueue(op) ->
// {Enqueued | SkippedDiskCritical | QueueUnavailable}`.
type EnqueueResult string

const (
	Enqueued           EnqueueResult = "enqueued"
	SkippedDiskCritical EnqueueResult = "skipped_disk_critical"
	QueueUnavailable    EnqueueResult = "queue_unavailable"
)

// Op is one unit of archive work. Ops are coalesced where possible by the
// drain worker (same dest path within a batch keeps only the latest).
type Op struct {
	kind string // "message" | "signal"
	dest string
	data []byte
}

// Queue is the write-behind archive queue. One Queue per project root.
type Queue struct {
	root    string
	pending chan Op
	closed  chan struct{}
	wg      sync.WaitGroup

	criticalPercent float64
	fatalPercent    float64
	breaker         *store.Store

	// running is false once the drain worker has been stopped (or never
	// started), the signal behind QueueUnavailable.
	running bool
	mu      sync.Mutex
}

// New creates a queue rooted at archiveRoot (a project's archive
// directory, e.g. ".../data/archive/<project-slug>") and starts its
// background drain worker. breaker is the store's SubsystemArchive
// circuit breaker: every batched flush runs through it, so a run of
// filesystem failures opens the breaker and skips writeOp entirely
// instead of retrying into a wedged disk flush after flush.
func New(archiveRoot string, criticalPercent, fatalPercent float64, breaker *store.Store) *Queue {
	q := &Queue{
		root:            archiveRoot,
		pending:         make(chan Op, 256),
		closed:          make(chan struct{}),
		criticalPercent: criticalPercent,
		fatalPercent:    fatalPercent,
		breaker:         breaker,
		running:         true,
	}
	q.wg.Add(1)
	go q.drainLoop()
	return q
}

// Stop drains remaining ops and stops the background worker.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	close(q.pending)
	<-q.closed
	q.wg.Wait()
}

func (q *Queue) drainLoop() {
	defer q.wg.Done()
	defer close(q.closed)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	batch := make(map[string]Op)
	flush := func() {
		for _, op := range batch {
			_, _ = q.breaker.Do(context.Background(), store.SubsystemArchive, func(ctx context.Context) (any, error) {
				return nil, writeOp(op)
			})
		}
		batch = make(map[string]Op)
	}

	for {
		select {
		case op, ok := <-q.pending:
			if !ok {
				flush()
				return
			}
			batch[op.kind+"|"+op.dest] = op
			if len(batch) >= 64 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func writeOp(op Op) error {
	if err := os.MkdirAll(filepath.Dir(op.dest), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(op.dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	if _, err := f.Write(op.data); err != nil {
		return err
	}
	return f.Sync()
}

// enqueue applies the disk-pressure gate and the queue-availability gate, then hands the
// op to the background worker.
func (q *Queue) enqueue(op Op) EnqueueResult {
	q.mu.Lock()
	running := q.running
	q.mu.Unlock()
	if !running {
		return QueueUnavailable
	}

	pressure, err := store.CheckDiskPressure(q.root, q.criticalPercent, q.fatalPercent)
	if err == nil && pressure >= store.PressureCritical {
		return SkippedDiskCritical
	}

	select {
	case q.pending <- op:
		return Enqueued
	default:
		return QueueUnavailable
	}
}

// MessageBundle is the canonical serialized form of a sent message,
// written to messages/YYYY/MM/<id>.md, the sender's outbox, and each
// to/cc recipient's inbox.
type MessageBundle struct {
	Message    types.Message `json:"message"`
	SenderName string        `json:"sender_name"`
}

func (b MessageBundle) render() []byte {
	header := fmt.Sprintf("# %s\n\nFrom: %s\nDate: %s\nImportance: %s\nThread: %s\n\n",
		b.Message.Subject, b.SenderName, time.UnixMicro(b.Message.CreatedTS).UTC().Format(time.RFC3339),
		b.Message.Importance, b.Message.ThreadID)
	return append([]byte(header), []byte(b.Message.BodyMD)...)
}

// EnqueueMessage writes the canonical message, the sender's outbox copy,
// and every to/cc recipient's inbox copy (never bcc, matching
// notification semantics elsewhere), plus a presence signal for each
// to/cc recipient.
func (q *Queue) EnqueueMessage(bundle MessageBundle, recipients []types.MessageRecipient, recipientNames map[int64]string) EnqueueResult {
	body := bundle.render()
	created := time.UnixMicro(bundle.Message.CreatedTS).UTC()

	worst := Enqueued
	note := func(r EnqueueResult) {
		if r == QueueUnavailable {
			worst = QueueUnavailable
		} else if r == SkippedDiskCritical && worst != QueueUnavailable {
			worst = SkippedDiskCritical
		}
	}

	canonical := filepath.Join(q.root, "messages", fmt.Sprintf("%04d", created.Year()), fmt.Sprintf("%02d", created.Month()),
		fmt.Sprintf("%d.md", bundle.Message.ID))
	note(q.enqueue(Op{kind: "message", dest: canonical, data: body}))

	outbox := filepath.Join(q.root, "mailbox", bundle.SenderName, "outbox", fmt.Sprintf("%d.md", bundle.Message.ID))
	note(q.enqueue(Op{kind: "message", dest: outbox, data: body}))

	for _, r := range recipients {
		if r.Kind == types.KindBCC {
			continue
		}
		name := recipientNames[r.AgentID]
		if name == "" {
			continue
		}
		inbox := filepath.Join(q.root, "mailbox", name, "inbox", fmt.Sprintf("%d.md", bundle.Message.ID))
		note(q.enqueue(Op{kind: "message", dest: inbox, data: body}))
		note(q.signal(name))
	}
	return worst
}

// signal enqueues the zero-byte/small presence file at
// mailbox/<agent>/.signal whose existence is the unread-mail signal.
// Content is a small JSON blob for debuggability; only presence is
// semantically meaningful.
func (q *Queue) signal(agentName string) EnqueueResult {
	payload, _ := json.Marshal(map[string]any{"ts": time.Now().UTC().Format(time.RFC3339)})
	dest := filepath.Join(q.root, "mailbox", agentName, ".signal")
	return q.enqueue(Op{kind: "signal", dest: dest, data: payload})
}

// ClearSignal removes the presence signal once an agent has fetched
// their inbox (best effort — a stale signal is a false positive, not a
// correctness violation).
func (q *Queue) ClearSignal(agentName string) {
	_ = os.Remove(filepath.Join(q.root, "mailbox", agentName, ".signal"))
}

// EnqueueReservationSignal writes a lock-signal file reflecting an
// active reservation, content-addressed by pattern+agent so repeated
// renewals coalesce to the same path.
func (q *Queue) EnqueueReservationSignal(projectSlug string, r types.FileReservation) EnqueueResult {
	name := contentAddress(fmt.Sprintf("%d:%s", r.AgentID, r.PathPattern))
	payload, _ := json.Marshal(r)
	dest := filepath.Join(q.root, "file_reservations", name+".lock.signal")
	return q.enqueue(Op{kind: "signal", dest: dest, data: payload})
}

// StoreAttachment writes raw attachment bytes under attachments/ keyed by
// content hash, returning the archive-relative path. Used by the
// messaging engine's attachment pipeline.
func (q *Queue) StoreAttachment(data []byte, ext string) (relPath string, err error) {
	sum := contentAddress(string(data))
	rel := filepath.Join("attachments", sum[:2], sum+ext)
	dest := filepath.Join(q.root, rel)
	if _, err := os.Stat(dest); err == nil {
		return rel, nil // already stored, content-addressed dedup
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

// contentAddress hashes filenames and attachment bytes with blake2b
// rather than sha256: it's not a security boundary, just a dedup key,
// and blake2b is faster at this volume.
func contentAddress(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Root returns the archive's root directory, for components (search,
// fsnotify watchers) that need to locate files directly.
func (q *Queue) Root() string { return q.root }
