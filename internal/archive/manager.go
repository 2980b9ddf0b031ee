package archive

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dicklesworth/agentmail/internal/store"
)

// Manager lazily creates and caches one Queue per project slug, each
// rooted at <dataRoot>/archive/<slug> — the spec's "each project has a
// content-addressed file archive rooted at a configured directory"
// requirement. Projects are discovered at runtime (ensure_project can
// create one at any time), so queues cannot be pre-created at startup;
// For creates one on first use and reuses it afterward.
type Manager struct {
	root            string
	criticalPercent float64
	fatalPercent    float64
	breaker         *store.Store

	mu             sync.Mutex
	queues         map[string]*Queue
	queueWatchStop map[string]func()
	watchLog       *zap.Logger
}

// NewManager builds a Manager rooted at archiveRoot (typically
// <data-root>/archive). breaker is handed to every Queue it creates so
// archive flushes share the store's SubsystemArchive circuit breaker.
func NewManager(archiveRoot string, criticalPercent, fatalPercent float64, breaker *store.Store) *Manager {
	return &Manager{
		root:            archiveRoot,
		criticalPercent: criticalPercent,
		fatalPercent:    fatalPercent,
		breaker:         breaker,
		queues:          make(map[string]*Queue),
		queueWatchStop:  make(map[string]func()),
	}
}

// For returns the Queue for projectSlug, creating and starting it on
// first use. If WatchExternalEdits has been called, the new queue's own
// root is also watched for out-of-band edits.
func (m *Manager) For(projectSlug string) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q, ok := m.queues[projectSlug]; ok {
		return q
	}
	q := New(filepath.Join(m.root, projectSlug), m.criticalPercent, m.fatalPercent, m.breaker)
	m.queues[projectSlug] = q
	if m.watchLog != nil {
		if stop, err := q.WatchExternalEdits(m.watchLog); err == nil {
			m.queueWatchStop[projectSlug] = stop
		} else {
			m.watchLog.Warn("per-project archive watch disabled", zap.String("project", projectSlug), zap.Error(err))
		}
	}
	return q
}

// StopAll stops every queue this manager has created, draining pending
// ops first, and stops any per-project watchers. Called once at process
// shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stop := range m.queueWatchStop {
		stop()
	}
	for _, q := range m.queues {
		q.Stop()
	}
}

// WatchExternalEdits watches the manager's top-level archive root for
// changes made outside the write-behind queue, and arranges for every
// project queue (existing or future, via For) to be watched too.
// fsnotify is non-recursive, so the top-level watch only observes
// project directories appearing or disappearing directly under root;
// per-project edits are covered by each queue's own watch. Observability
// only; nothing here feeds back into the engines.
func (m *Manager) WatchExternalEdits(log *zap.Logger) (stop func(), err error) {
	m.mu.Lock()
	m.watchLog = log
	for slug, q := range m.queues {
		if _, already := m.queueWatchStop[slug]; already {
			continue
		}
		if qstop, qerr := q.WatchExternalEdits(log); qerr == nil {
			m.queueWatchStop[slug] = qstop
		}
	}
	m.mu.Unlock()

	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(m.root); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				log.Debug("archive external edit", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("archive watch error", zap.Error(werr))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = watcher.Close()
	}, nil
}
