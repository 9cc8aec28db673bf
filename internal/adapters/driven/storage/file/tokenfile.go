// Package file persists the token mapping as a JSON file and watches it for
// changes made by other processes.
package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	configfile "github.com/unifiedhub/unifiedhub/internal/adapters/driven/config/file"
	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driven"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// Ensure TokenFile implements the interfaces.
var (
	_ driven.TokenPersister = (*TokenFile)(nil)
	_ driven.TokenWatcher   = (*TokenFile)(nil)
)

// DefaultFileName is the token file created in the config directory.
const DefaultFileName = "tokens.json"

// watchDebounce coalesces the burst of events a single atomic write produces.
var watchDebounce = 100 * time.Millisecond

// TokenFile stores tokens as {"google": {"access_token": ...}, ...}.
type TokenFile struct {
	path string

	mu sync.Mutex
	// fingerprint of the content last written or read by this process.
	// Watch skips events whose content matches it.
	fingerprint string
}

// NewTokenFile creates a persister for path. The file and its directory are
// created on first Save.
func NewTokenFile(path string) *TokenFile {
	return &TokenFile{path: path}
}

// Save replaces the file contents via temp file and rename, mode 0600.
func (f *TokenFile) Save(_ context.Context, tokens map[domain.ProviderID]domain.TokenPair) error {
	if tokens == nil {
		tokens = map[domain.ProviderID]domain.TokenPair{}
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := configfile.WriteFileAtomic(f.path, data, 0600); err != nil {
		return err
	}
	f.fingerprint = fingerprint(data, true)
	return nil
}

// Load reads the file. A missing or empty file is an empty mapping.
func (f *TokenFile) Load(_ context.Context) (map[domain.ProviderID]domain.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, exists, err := f.read()
	if err != nil {
		return nil, err
	}
	f.fingerprint = fingerprint(data, exists)

	tokens := make(map[domain.ProviderID]domain.TokenPair)
	if len(bytes.TrimSpace(data)) == 0 {
		return tokens, nil
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	return tokens, nil
}

// Location returns the file path.
func (f *TokenFile) Location() string {
	return f.path
}

// Close is a no-op.
func (f *TokenFile) Close() error {
	return nil
}

// Watch calls onChange after another process modifies or removes the file.
// The parent directory is watched because atomic writes replace the file.
func (f *TokenFile) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Debug("watching %s for token changes", f.path)

	name := filepath.Base(f.path)
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("token watcher: %v", err)

		case <-timer.C:
			if f.changedExternally() {
				logger.Debug("token file %s changed externally", f.path)
				onChange()
			}
		}
	}
}

// changedExternally reports whether the file differs from what this process
// last wrote or read.
func (f *TokenFile) changedExternally() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, exists, err := f.read()
	if err != nil {
		logger.Warn("read %s: %v", f.path, err)
		return false
	}
	return fingerprint(data, exists) != f.fingerprint
}

// read returns the file contents; a missing file is not an error (caller
// must hold mu).
func (f *TokenFile) read() ([]byte, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read tokens: %w", err)
	}
	return data, true, nil
}

func fingerprint(data []byte, exists bool) string {
	if !exists {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
