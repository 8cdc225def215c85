package service

import (
	"context"
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"timeblocks/internal/modules/docstore/domain"
	docstoreout "timeblocks/internal/modules/docstore/port/out"
	"timeblocks/internal/platform/clock"
	apperrors "timeblocks/internal/platform/errors"
)

const subscriberBuffer = 8

// DocumentService persists merged documents and fans each stored version
// out to the subscribers of its path.
type DocumentService struct {
	repo   docstoreout.Repository
	clock  clock.Clock
	logger hclog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[domain.Path]map[int]chan domain.Snapshot
}

func NewDocumentService(repo docstoreout.Repository, clk clock.Clock, logger hclog.Logger) *DocumentService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &DocumentService{
		repo:   repo,
		clock:  clk,
		logger: logger,
		subs:   map[domain.Path]map[int]chan domain.Snapshot{},
	}
}

func (s *DocumentService) Get(ctx context.Context, path domain.Path) (domain.Document, error) {
	doc, ok, err := s.repo.Get(ctx, path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load document %s: %w", path, err)
	}
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w", path, apperrors.ErrNotFound)
	}
	return doc, nil
}

// Merge applies fields to the stored document and publishes the result
// once it is persisted. Merges are serialized so revisions stay ordered.
func (s *DocumentService) Merge(ctx context.Context, path domain.Path, fields domain.Fields) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok, err := s.repo.Get(ctx, path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load document %s: %w", path, err)
	}
	if !ok {
		current = domain.Document{Path: path}
	}
	merged := current.Merge(fields, s.clock.Now())
	if err := s.repo.Put(ctx, merged); err != nil {
		return domain.Document{}, fmt.Errorf("store document %s: %w", path, err)
	}
	s.publishLocked(domain.Snapshot{Document: merged, Exists: true})
	s.logger.Debug("document merged", "path", path.String(), "revision", merged.Revision, "fields", len(fields))
	return merged, nil
}

// Subscribe registers before reading the current value, under the same
// lock Merge holds, so no stored version is missed between the two.
func (s *DocumentService) Subscribe(ctx context.Context, path domain.Path) (<-chan domain.Snapshot, func(), error) {
	s.mu.Lock()
	current, ok, err := s.repo.Get(ctx, path)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("load document %s: %w", path, err)
	}
	if !ok {
		current = domain.Document{Path: path}
	}
	ch := make(chan domain.Snapshot, subscriberBuffer)
	ch <- domain.Snapshot{Document: current, Exists: ok}
	if s.subs[path] == nil {
		s.subs[path] = map[int]chan domain.Snapshot{}
	}
	id := s.nextID
	s.nextID++
	s.subs[path][id] = ch
	s.mu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stop)
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[path], id)
			if len(s.subs[path]) == 0 {
				delete(s.subs, path)
			}
			close(ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-stop:
		}
	}()
	return ch, cancel, nil
}

// Subscribers reports how many streams are open for path.
func (s *DocumentService) Subscribers(path domain.Path) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[path])
}

// publishLocked never blocks. A slow subscriber loses its oldest queued
// snapshot; each snapshot carries the whole document.
func (s *DocumentService) publishLocked(snapshot domain.Snapshot) {
	for _, ch := range s.subs[snapshot.Document.Path] {
		select {
		case ch <- snapshot:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}
