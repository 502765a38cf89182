// ABOUTME: Drop folder watching for the review tool
// ABOUTME: Lists audio files in a directory and reports new ones via fsnotify
package dropfolder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mixroom/mixcheck/pkg/audio/decode"
)

// IsAudioFile reports whether path has a decodable audio extension
func IsAudioFile(path string) bool {
	return decode.SupportedExtension(path)
}

// Scan returns the audio files directly inside dir, sorted by name
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsAudioFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Watcher reports audio files created in a directory
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  *zap.SugaredLogger
}

// New starts watching dir. Files created after New returns are reported
// by Run.
func New(dir string, logger *zap.SugaredLogger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{dir: dir, watcher: watcher, logger: logger}, nil
}

// Run calls onFile for each new audio file until ctx ends or the watcher
// is closed
func (w *Watcher) Run(ctx context.Context, onFile func(path string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create && IsAudioFile(event.Name) {
				w.logger.Debugw("new file in drop folder", "path", event.Name)
				onFile(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("drop folder watcher error", "dir", w.dir, "error", err)
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
