package tokens

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay debounces bursts of file events into one reload.
const reloadDelay = 500 * time.Millisecond

// FileSource reads a JWKS document from disk. It is meant for offline
// development and for pinning keys when the provider is unreachable.
type FileSource struct {
	path string
	log  *zap.Logger
}

func NewFileSource(path string, log *zap.Logger) *FileSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSource{path: filepath.Clean(path), log: log}
}

func (s *FileSource) Fetch(ctx context.Context) (*KeySet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}
	set, err := ParseKeySet(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnreachable, s.path, err)
	}
	return set, nil
}

// Watch calls onChange after the file is written, replaced or removed,
// until ctx is done. The parent directory is watched so editors that
// replace the file by rename are still seen.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	reload := make(chan struct{}, 1)
	go s.scheduleReload(ctx, reload, onChange)
	go s.handleWatcher(ctx, watcher, reload)
	return nil
}

func (s *FileSource) handleWatcher(
	ctx context.Context,
	watcher *fsnotify.Watcher,
	reload chan<- struct{},
) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("jwks file watcher error", zap.String("path", s.path), zap.Error(err))
		}
	}
}

func (s *FileSource) scheduleReload(
	ctx context.Context,
	reload <-chan struct{},
	callback func(),
) {
	var timer *time.Timer
	var c <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-reload:
			if timer != nil {
				timer.Reset(reloadDelay)
			} else {
				timer = time.NewTimer(reloadDelay)
				c = timer.C
			}
		case <-c:
			c = nil
			timer = nil
			s.log.Info("jwks file changed", zap.String("path", s.path))
			callback()
		}
	}
}
