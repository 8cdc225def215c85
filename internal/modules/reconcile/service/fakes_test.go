package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	countdown "timeblocks/internal/modules/countdown/domain"
	identity "timeblocks/internal/modules/identity/domain"
	"timeblocks/internal/modules/reconcile/domain"
	"timeblocks/internal/modules/reconcile/service"
	"timeblocks/internal/platform/clock/clocktest"
	"timeblocks/internal/platform/logging"
)

const namespace = "time-blocks-app"

var epoch = time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC)

type fakeIdentity struct {
	mu       sync.Mutex
	handlers map[int]func(identity.Event)
	next     int
	current  identity.Identity
	starts   atomic.Int32
	loginErr error
	loginAs  identity.Identity
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{handlers: map[int]func(identity.Event){}}
}

func (f *fakeIdentity) Start(context.Context) error {
	f.starts.Add(1)
	return nil
}

func (f *fakeIdentity) Current() identity.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeIdentity) OnChanged(handler func(identity.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.handlers[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *fakeIdentity) Login(context.Context) error {
	if f.loginErr != nil {
		f.emit(identity.Event{Identity: f.Current(), Op: identity.OpLogin, Err: f.loginErr})
		return f.loginErr
	}
	f.resolve(f.loginAs)
	return nil
}

func (f *fakeIdentity) Logout(context.Context) error {
	f.resolve(identity.Identity{})
	f.resolve(identity.Anonymous("anon-after-logout"))
	return nil
}

func (f *fakeIdentity) resolve(next identity.Identity) {
	f.mu.Lock()
	f.current = next
	f.mu.Unlock()
	f.emit(identity.Event{Identity: next, Op: identity.OpResolve})
}

func (f *fakeIdentity) emit(event identity.Event) {
	f.mu.Lock()
	handlers := make([]func(identity.Event), 0, len(f.handlers))
	for _, handler := range f.handlers {
		handlers = append(handlers, handler)
	}
	f.mu.Unlock()
	for _, handler := range handlers {
		handler(event)
	}
}

type subscription struct {
	onSnapshot func(domain.RemoteSnapshot)
	onError    func(error)
	cancelled  bool
}

type fakeRemote struct {
	mu           sync.Mutex
	subs         map[string]*subscription
	subscribeErr error
	writeErr     error
	stallWrites  bool
	writes       []write
}

type write struct {
	path  string
	patch countdown.Patch
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{subs: map[string]*subscription{}}
}

func (f *fakeRemote) Subscribe(_ context.Context, path string, onSnapshot func(domain.RemoteSnapshot), onError func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	sub := &subscription{onSnapshot: onSnapshot, onError: onError}
	f.subs[path] = sub
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		sub.cancelled = true
	}, nil
}

func (f *fakeRemote) Write(ctx context.Context, path string, patch countdown.Patch) error {
	f.mu.Lock()
	f.writes = append(f.writes, write{path: path, patch: patch})
	err, stall := f.writeErr, f.stallWrites
	f.mu.Unlock()
	if stall {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeRemote) active(path string) *subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[path]
	if !ok || sub.cancelled {
		return nil
	}
	return sub
}

func (f *fakeRemote) writeLog() []write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]write{}, f.writes...)
}

type memorySnapshot struct {
	mu    sync.Mutex
	cfg   countdown.Configuration
	ok    bool
	saves int
	err   error
}

func (m *memorySnapshot) Save(cfg countdown.Configuration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cfg, m.ok = cfg, true
	m.saves++
	return nil
}

func (m *memorySnapshot) Load() (countdown.Configuration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg, m.ok, nil
}

func (m *memorySnapshot) stored() countdown.Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

type harness struct {
	t        *testing.T
	clock    *clocktest.Manual
	identity *fakeIdentity
	remote   *fakeRemote
	local    *memorySnapshot
	opts     service.Options
	rec      *service.Reconciler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		clock:    clocktest.NewManual(epoch),
		identity: newFakeIdentity(),
		remote:   newFakeRemote(),
		local:    &memorySnapshot{},
		opts:     service.Options{Namespace: namespace, Location: time.UTC},
	}
	return h
}

func (h *harness) start() {
	h.t.Helper()
	h.rec = service.NewReconciler(h.opts, h.clock, h.identity, h.remote, h.local, logging.Discard())
	if err := h.rec.Start(context.Background()); err != nil {
		h.t.Fatalf("start reconciler: %v", err)
	}
	h.t.Cleanup(func() { _ = h.rec.Close() })
}

// online resolves an anonymous identity and waits for the subscription.
func (h *harness) online(uid string) *subscription {
	h.t.Helper()
	h.identity.resolve(identity.Anonymous(uid))
	if mode := h.rec.State().Mode; mode != domain.ModeOnline {
		h.t.Fatalf("expected online after identity, got %s", mode)
	}
	return h.subscribed(domain.DocumentPath(namespace, uid))
}

func (h *harness) subscribed(path string) *subscription {
	h.t.Helper()
	var sub *subscription
	eventually(h.t, func() bool {
		sub = h.remote.active(path)
		return sub != nil
	})
	return sub
}

func (h *harness) edit(patch countdown.Patch) domain.SessionState {
	h.t.Helper()
	state, err := h.rec.Edit(context.Background(), patch)
	if err != nil {
		h.t.Fatalf("edit: %v", err)
	}
	return state
}

func (h *harness) waitIdle() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.rec.WaitIdle(ctx); err != nil {
		h.t.Fatalf("wait idle: %v", err)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func date(raw string) countdown.Date {
	d, err := countdown.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func topic(v string) countdown.Patch { return countdown.Patch{Topic: countdown.StringPtr(v)} }

var errBoom = errors.New("boom")

func h0Config() countdown.Configuration {
	return countdown.Configuration{Topic: "t", StartDate: date("2024-01-01"), TargetDate: date("2024-02-01")}
}
