package archive

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchExternalEdits watches the archive root for changes made outside
// the write-behind queue (an operator editing a canonical message file
// by hand, a signal file removed by a foreign process) and logs them.
// This is observability only — the DB remains authoritative and nothing
// here feeds back into the engines.
func (q *Queue) WatchExternalEdits(log *zap.Logger) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(q.root); err != nil {
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
