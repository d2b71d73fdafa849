package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"live-stats/src/config"
	"live-stats/src/interfaces"
	"live-stats/src/logger"

	"github.com/fsnotify/fsnotify"
)

// -----------------------------------------------------------------------------
// StaticCredentials
// -----------------------------------------------------------------------------

// StaticCredentials never change. An empty token means no credential.
type StaticCredentials struct {
	Token string
}

func (s StaticCredentials) CurrentCredential() string { return s.Token }

// Changes returns a nil channel, which never fires.
func (s StaticCredentials) Changes() <-chan struct{} { return nil }

// -----------------------------------------------------------------------------
// FileCredentials
// -----------------------------------------------------------------------------

// FileCredentials reads the token from a file and reloads it when the file is
// written or replaced. The directory is watched so atomic renames are seen.
type FileCredentials struct {
	Path   string
	Logger *logger.Logger

	mu      sync.RWMutex
	token   string
	changes chan struct{}
}

// -----------------------------------------------------------------------------

func NewFileCredentials(path string) (*FileCredentials, error) {
	f := &FileCredentials{
		Path:    filepath.Clean(path),
		Logger:  logger.NewLogger(nil, "Credentials"),
		changes: make(chan struct{}, 1),
	}
	if _, err := f.reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// -----------------------------------------------------------------------------

func (f *FileCredentials) CurrentCredential() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.token
}

func (f *FileCredentials) Changes() <-chan struct{} {
	return f.changes
}

// -----------------------------------------------------------------------------

// Watch follows the file until ctx ends.
func (f *FileCredentials) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create token watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(f.Path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(f.Path), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != f.Path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				changed, err := f.reload()
				if err != nil {
					f.Logger.Warning("Token reload failed: %v", err)
					continue
				}
				if changed {
					f.Logger.Info("Token file changed")
					f.notify()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.Logger.Warning("Token watcher error: %v", err)
			}
		}
	}()
	return nil
}

// -----------------------------------------------------------------------------

// reload reads the file. A missing file clears the credential.
func (f *FileCredentials) reload() (bool, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read token file '%s': %w", f.Path, err)
	}
	token := strings.TrimSpace(string(data))

	f.mu.Lock()
	defer f.mu.Unlock()
	if token == f.token {
		return false, nil
	}
	f.token = token
	return true, nil
}

func (f *FileCredentials) notify() {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// NewProvider picks the credential source configured under auth.
func NewProvider(cfg *config.Config) (interfaces.ICredentialProvider, error) {
	if cfg.Auth.TokenFile != "" {
		f, err := NewFileCredentials(cfg.Auth.TokenFile)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return StaticCredentials{Token: cfg.Auth.Token}, nil
}
