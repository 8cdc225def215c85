package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/peterbourgon/diskv/v3"

	countdown "timeblocks/internal/modules/countdown/domain"
	"timeblocks/internal/modules/reconcile/domain"
	reconcileout "timeblocks/internal/modules/reconcile/port/out"
)

const documentExt = ".json"

// DirRemoteStore keeps one JSON file per document under a shared directory
// (for example a synced folder) and watches it for changes.
type DirRemoteStore struct {
	base   string
	d      *diskv.Diskv
	logger hclog.Logger
	mu     sync.Mutex
}

func NewDirRemoteStore(base string, logger hclog.Logger) reconcileout.RemoteStore {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &DirRemoteStore{
		base: base,
		d: diskv.New(diskv.Options{
			BasePath:          base,
			TempDir:           filepath.Join(base, ".tmp"),
			AdvancedTransform: documentPathTransform,
			InverseTransform:  documentKeyTransform,
			CacheSizeMax:      0,
		}),
		logger: logger,
	}
}

func documentPathTransform(key string) *diskv.PathKey {
	parts := strings.Split(key, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1] + documentExt,
	}
}

func documentKeyTransform(pathKey *diskv.PathKey) string {
	name := strings.TrimSuffix(pathKey.FileName, documentExt)
	return strings.Join(append(append([]string{}, pathKey.Path...), name), "/")
}

// Write merges patch into the stored document. The lock only serializes
// writers in this process.
func (s *DirRemoteStore) Write(_ context.Context, path string, patch countdown.Patch) error {
	if _, _, err := splitPath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.read(path)
	if err != nil {
		return err
	}
	merged := current.Patch.Overlay(patch)
	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.d.Write(path, payload); err != nil {
		return fmt.Errorf("write document %s: %w", path, err)
	}
	return nil
}

func (s *DirRemoteStore) Subscribe(ctx context.Context, path string, onSnapshot func(domain.RemoteSnapshot), onError func(error)) (func(), error) {
	namespace, _, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.base, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure document dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	target := documentPathTransform(path).FileName
	go func() {
		defer watcher.Close()
		var last []byte
		deliver := func() {
			payload, err := s.readRaw(path)
			if err != nil {
				s.logger.Debug("skip unreadable document", "path", path, "error", err)
				return
			}
			if last != nil && bytes.Equal(payload, last) {
				return
			}
			last = append([]byte{}, payload...)
			snapshot, err := decodeSnapshot(payload)
			if err != nil {
				s.logger.Debug("skip undecodable document", "path", path, "error", err)
				return
			}
			onSnapshot(snapshot)
		}
		deliver()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					deliver()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if watchCtx.Err() == nil {
					onError(fmt.Errorf("watch %s: %w", dir, err))
				}
				return
			}
		}
	}()
	return cancel, nil
}

func (s *DirRemoteStore) read(path string) (domain.RemoteSnapshot, error) {
	payload, err := s.readRaw(path)
	if err != nil {
		return domain.RemoteSnapshot{}, err
	}
	return decodeSnapshot(payload)
}

// readRaw returns "null" for a missing document.
func (s *DirRemoteStore) readRaw(path string) ([]byte, error) {
	if !s.d.Has(path) {
		return []byte("null"), nil
	}
	payload, err := s.d.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("null"), nil
		}
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	return payload, nil
}
