package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileToken reads an API token from a file and reloads it when the
// file changes. It satisfies github.TokenSource.
type FileToken struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	cached  string
	loaded  bool
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// NewFileToken creates a token source over the given file and starts
// watching its directory for rotation events. Watching the directory
// rather than the file survives the rename-and-replace pattern used by
// Kubernetes secret mounts.
func NewFileToken(path string, logger *slog.Logger) (*FileToken, error) {
	if path == "" {
		return nil, fmt.Errorf("token file path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &FileToken{
		path:   path,
		logger: logger.With("component", "secrets"),
		stopCh: make(chan struct{}),
	}

	// Fail fast on an unreadable file.
	if _, err := t.read(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch token directory: %w", err)
	}
	t.watcher = watcher
	go t.watchLoop()

	t.logger.Info("token file watcher started", "path", path)
	return t, nil
}

// Token returns the current token, reading the file on first use and
// after each rotation event.
func (t *FileToken) Token() (string, error) {
	t.mu.RLock()
	if t.loaded {
		cached := t.cached
		t.mu.RUnlock()
		return cached, nil
	}
	t.mu.RUnlock()

	return t.read()
}

// read loads the token from disk and caches it.
func (t *FileToken) read() (string, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return "", fmt.Errorf("failed to stat token file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("token path is not a regular file: %s", t.path)
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("token file %s is empty", t.path)
	}

	t.mu.Lock()
	t.cached = value
	t.loaded = true
	t.mu.Unlock()

	return value, nil
}

// invalidate drops the cached token so the next Token call re-reads.
func (t *FileToken) invalidate() {
	t.mu.Lock()
	t.loaded = false
	t.cached = ""
	t.mu.Unlock()
}

// watchLoop reacts to rotation events on the token file.
func (t *FileToken) watchLoop() {
	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(t.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				t.logger.Info("token file changed, reloading", "op", event.Op.String())
				t.invalidate()
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Error("token file watcher error", "error", err)

		case <-t.stopCh:
			return
		}
	}
}

// Close stops the watcher.
func (t *FileToken) Close() error {
	if t.watcher != nil {
		close(t.stopCh)
		return t.watcher.Close()
	}
	return nil
}
