package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"timeblocks/internal/modules/docstore/domain"
	"timeblocks/internal/modules/docstore/service"
	"timeblocks/internal/platform/clock/clocktest"
	apperrors "timeblocks/internal/platform/errors"
)

type memoryRepo struct {
	mu     sync.Mutex
	docs   map[domain.Path]domain.Document
	putErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{docs: map[domain.Path]domain.Document{}}
}

func (m *memoryRepo) Get(_ context.Context, path domain.Path) (domain.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	return doc, ok, nil
}

func (m *memoryRepo) Put(_ context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.docs[doc.Path] = doc
	return nil
}

func mustPath(t *testing.T, uid string) domain.Path {
	t.Helper()
	path, err := domain.NewPath("time-blocks-app", uid)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	return path
}

func fields(t *testing.T, raw string) domain.Fields {
	t.Helper()
	f, err := domain.DecodeFields([]byte(raw))
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	return f
}

func next(t *testing.T, ch <-chan domain.Snapshot) domain.Snapshot {
	t.Helper()
	select {
	case snapshot, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed")
		}
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return domain.Snapshot{}
}

func TestGetMissingDocumentIsNotFound(t *testing.T) {
	t.Parallel()

	svc := service.NewDocumentService(newMemoryRepo(), clocktest.NewManual(time.Unix(0, 0)), nil)
	if _, err := svc.Get(context.Background(), mustPath(t, "u1")); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMergeAccumulatesFieldsAndStampsRevision(t *testing.T) {
	t.Parallel()

	clk := clocktest.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := service.NewDocumentService(newMemoryRepo(), clk, nil)
	ctx := context.Background()
	path := mustPath(t, "u1")

	if _, err := svc.Merge(ctx, path, fields(t, `{"topic":"Exam"}`)); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	clk.Advance(time.Minute)
	doc, err := svc.Merge(ctx, path, fields(t, `{"targetDate":"2025-06-01"}`))
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	body, _ := doc.Fields.Encode()
	if string(body) != `{"targetDate":"2025-06-01","topic":"Exam"}` {
		t.Fatalf("unexpected document: %s", body)
	}
	if doc.Revision != 2 || !doc.UpdatedAt.Equal(clk.Now()) {
		t.Fatalf("unexpected metadata: %+v", doc)
	}
}

func TestSubscribeDeliversCurrentThenMerges(t *testing.T) {
	t.Parallel()

	svc := service.NewDocumentService(newMemoryRepo(), clocktest.NewManual(time.Unix(0, 0)), nil)
	ctx := context.Background()
	path := mustPath(t, "u1")
	other := mustPath(t, "u2")

	ch, cancel, err := svc.Subscribe(ctx, path)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if first := next(t, ch); first.Exists {
		t.Fatalf("expected absent first snapshot, got %+v", first)
	}
	if _, err := svc.Merge(ctx, other, fields(t, `{"topic":"Other"}`)); err != nil {
		t.Fatalf("merge other: %v", err)
	}
	if _, err := svc.Merge(ctx, path, fields(t, `{"topic":"Mine"}`)); err != nil {
		t.Fatalf("merge: %v", err)
	}
	got := next(t, ch)
	if !got.Exists || string(got.Document.Fields["topic"]) != `"Mine"` {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestSlowSubscriberKeepsLatestDocument(t *testing.T) {
	t.Parallel()

	svc := service.NewDocumentService(newMemoryRepo(), clocktest.NewManual(time.Unix(0, 0)), nil)
	ctx := context.Background()
	path := mustPath(t, "u1")

	ch, cancel, err := svc.Subscribe(ctx, path)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	for i := 0; i < 50; i++ {
		raw, _ := json.Marshal(map[string]int{"n": i})
		if _, err := svc.Merge(ctx, path, fields(t, string(raw))); err != nil {
			t.Fatalf("merge %d: %v", i, err)
		}
	}
	var last domain.Snapshot
	for len(ch) > 0 {
		last = next(t, ch)
	}
	if string(last.Document.Fields["n"]) != "49" {
		t.Fatalf("latest document lost: %+v", last)
	}
}

func TestCancelClosesStreamAndUnregisters(t *testing.T) {
	t.Parallel()

	svc := service.NewDocumentService(newMemoryRepo(), clocktest.NewManual(time.Unix(0, 0)), nil)
	path := mustPath(t, "u1")
	ctx, stop := context.WithCancel(context.Background())

	ch, cancel, err := svc.Subscribe(ctx, path)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if svc.Subscribers(path) != 1 {
		t.Fatalf("expected one subscriber")
	}
	stop()
	deadline := time.After(2 * time.Second)
	for svc.Subscribers(path) != 0 {
		select {
		case <-deadline:
			t.Fatalf("subscriber not removed after context cancel")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	next(t, ch)
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
}

func TestMergeStoreFailureDoesNotPublish(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := service.NewDocumentService(repo, clocktest.NewManual(time.Unix(0, 0)), nil)
	ctx := context.Background()
	path := mustPath(t, "u1")
	ch, cancel, _ := svc.Subscribe(ctx, path)
	defer cancel()
	next(t, ch)

	repo.putErr = errors.New("disk full")
	if _, err := svc.Merge(ctx, path, fields(t, `{"topic":"x"}`)); err == nil {
		t.Fatalf("expected store error")
	}
	if len(ch) != 0 {
		t.Fatalf("failed merge was published")
	}
}
