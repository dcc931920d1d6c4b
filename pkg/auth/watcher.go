package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReadSecretFile reads a password file
func ReadSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read gate password file: %w", err)
	}
	return string(data), nil
}

// SecretWatcher reloads the gate secret when its file changes
type SecretWatcher struct {
	path    string
	gate    *PasswordGate
	logger  *zap.Logger
	watcher *fsnotify.Watcher
}

// NewSecretWatcher loads path into gate and starts watching it. The parent
// directory is watched so that atomic replaces (rename over) are seen.
func NewSecretWatcher(path string, gate *PasswordGate, logger *zap.Logger) (*SecretWatcher, error) {
	secret, err := ReadSecretFile(path)
	if err != nil {
		return nil, err
	}
	gate.SetSecret(secret)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	return &SecretWatcher{path: filepath.Clean(path), gate: gate, logger: logger, watcher: w}, nil
}

// Run processes file events until ctx is done or the watcher is closed
func (s *SecretWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Gate password watcher error", zap.Error(err))
		}
	}
}

func (s *SecretWatcher) reload() {
	secret, err := ReadSecretFile(s.path)
	if err != nil {
		s.logger.Warn("Keeping previous gate password", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.gate.SetSecret(secret)
	s.logger.Info("Gate password reloaded", zap.String("path", s.path))
}

// Close stops watching
func (s *SecretWatcher) Close() error {
	return s.watcher.Close()
}
