package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	hclog "github.com/hashicorp/go-hclog"

	countdown "timeblocks/internal/modules/countdown/domain"
	identity "timeblocks/internal/modules/identity/domain"
	"timeblocks/internal/modules/reconcile/domain"
	reconcileout "timeblocks/internal/modules/reconcile/port/out"
	"timeblocks/internal/platform/clock"
	apperrors "timeblocks/internal/platform/errors"
)

const (
	DefaultBootstrapTimeout = 3 * time.Second
	DefaultDebounceWindow   = time.Second
	DefaultSavingHold       = 800 * time.Millisecond
	DefaultWriteTimeout     = 10 * time.Second

	eventQueueSize = 256
)

var errNotStarted = errors.New("reconciler is not running")

type Options struct {
	Namespace        string
	BootstrapTimeout time.Duration
	DebounceWindow   time.Duration
	SavingHold       time.Duration
	// WriteTimeout bounds a single push.
	WriteTimeout time.Duration
	// Location decides which calendar day "today" is. Defaults to time.Local.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.BootstrapTimeout <= 0 {
		o.BootstrapTimeout = DefaultBootstrapTimeout
	}
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = DefaultDebounceWindow
	}
	if o.SavingHold <= 0 {
		o.SavingHold = DefaultSavingHold
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Reconciler owns the in-memory configuration and decides between the
// local snapshot and the remote document. Every input is an event on one
// queue handled by a single goroutine; I/O runs in helper goroutines that
// post their results back.
type Reconciler struct {
	opts     Options
	clock    clock.Clock
	logger   hclog.Logger
	identity reconcileout.IdentitySession
	remote   reconcileout.RemoteStore
	local    *LocalSnapshot

	events    chan event
	done      chan struct{}
	stopped   chan struct{}
	started   atomic.Bool
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	published domain.SessionState

	// Loop-owned.
	state        domain.SessionState
	bootstrap    *ConnectivityMonitor
	debounce     genTimer
	saving       genTimer
	channel      *RemoteChannel
	channelGen   uint64
	inflight     int
	lastEdit     time.Time
	identitySeen bool
	idleWaiters  []chan struct{}
	watchers     map[int]chan domain.SessionState
	nextWatcher  int
	unsubscribe  func()
}

func NewReconciler(opts Options, clk clock.Clock, session reconcileout.IdentitySession, remote reconcileout.RemoteStore, local reconcileout.SnapshotStore, logger hclog.Logger) *Reconciler {
	opts = opts.withDefaults()
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Reconciler{
		opts:      opts,
		clock:     clk,
		logger:    logger,
		identity:  session,
		remote:    remote,
		local:     NewLocalSnapshot(local, logger),
		events:    make(chan event, eventQueueSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		published: domain.SessionState{Mode: domain.ModeBootstrapping},
		bootstrap: NewConnectivityMonitor(clk, opts.BootstrapTimeout),
		debounce:  genTimer{clock: clk},
		saving:    genTimer{clock: clk},
		watchers:  map[int]chan domain.SessionState{},
	}
}

// Start seeds memory from the local snapshot (or defaults), arms the
// bootstrap deadline and starts identity resolution.
func (r *Reconciler) Start(ctx context.Context) error {
	select {
	case <-r.done:
		return apperrors.ErrClosed
	default:
	}
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}
	r.ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))

	cfg, ok := r.local.Load()
	if !ok {
		cfg = countdown.Defaults(r.today())
	}
	r.state = domain.SessionState{Config: cfg, Mode: domain.ModeBootstrapping}
	r.publish()

	r.unsubscribe = r.identity.OnChanged(func(ev identity.Event) {
		r.post(identityChanged{event: ev})
	})
	r.bootstrap.Arm(r.postBootstrapExpired)
	r.logger.Debug("reconciler started", "bootstrap_timeout", r.opts.BootstrapTimeout, "from_snapshot", ok)

	go r.run()
	go r.resolveIdentity(r.ctx)
	return nil
}

// State returns the latest session state.
func (r *Reconciler) State() domain.SessionState {
	if r.started.Load() {
		reply := make(chan domain.SessionState, 1)
		select {
		case r.events <- stateQuery{reply: reply}:
			select {
			case state := <-reply:
				return state
			case <-r.stopped:
			}
		case <-r.done:
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.published
}

// Watch streams state changes until ctx ends or the reconciler closes. The
// current state is delivered first; slow readers only see the latest state.
func (r *Reconciler) Watch(ctx context.Context) <-chan domain.SessionState {
	ch := make(chan domain.SessionState, 1)
	reply := make(chan int, 1)
	if err := r.send(ctx, watchRequest{ch: ch, reply: reply}); err != nil {
		close(ch)
		return ch
	}
	var id int
	select {
	case id = <-reply:
	case <-r.stopped:
		return ch
	}
	go func() {
		select {
		case <-ctx.Done():
			r.post(unwatchRequest{id: id})
		case <-r.stopped:
		}
	}()
	return ch
}

// Edit applies a user edit to memory and the local snapshot immediately and
// schedules the debounced remote write when online.
func (r *Reconciler) Edit(ctx context.Context, patch countdown.Patch) (domain.SessionState, error) {
	if err := patch.Validate(); err != nil {
		return domain.SessionState{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	reply := make(chan domain.SessionState, 1)
	if err := r.send(ctx, editRequest{patch: patch, reply: reply}); err != nil {
		return domain.SessionState{}, err
	}
	select {
	case state := <-reply:
		return state, nil
	case <-r.stopped:
		return domain.SessionState{}, apperrors.ErrClosed
	case <-ctx.Done():
		return domain.SessionState{}, ctx.Err()
	}
}

func (r *Reconciler) Login(ctx context.Context) error {
	if !r.started.Load() {
		return errNotStarted
	}
	return r.identity.Login(ctx)
}

func (r *Reconciler) Logout(ctx context.Context) error {
	if !r.started.Load() {
		return errNotStarted
	}
	return r.identity.Logout(ctx)
}

// Reload tears down the remote channel and runs bootstrap again.
func (r *Reconciler) Reload(ctx context.Context) error {
	return r.send(ctx, reloadRequest{})
}

func (r *Reconciler) DismissNotice(ctx context.Context) error {
	return r.send(ctx, dismissRequest{})
}

// WaitIdle blocks until bootstrap has settled, no debounce is pending and no
// write is in flight.
func (r *Reconciler) WaitIdle(ctx context.Context) error {
	reply := make(chan struct{})
	if err := r.send(ctx, idleQuery{reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-r.stopped:
		return apperrors.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops every timer and the subscription. A pending debounce is
// dropped rather than written.
func (r *Reconciler) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		if r.started.Load() {
			<-r.stopped
			r.cancel()
		}
	})
	return nil
}

func (r *Reconciler) send(ctx context.Context, ev event) error {
	if !r.started.Load() {
		return errNotStarted
	}
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return apperrors.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) post(ev event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Reconciler) postBootstrapExpired(gen uint64) { r.post(bootstrapExpired{gen: gen}) }
func (r *Reconciler) postDebounceFired(gen uint64)    { r.post(debounceFired{gen: gen}) }
func (r *Reconciler) postSavingExpired(gen uint64)    { r.post(savingExpired{gen: gen}) }

func (r *Reconciler) resolveIdentity(ctx context.Context) {
	if err := r.identity.Start(ctx); err != nil {
		r.logger.Debug("identity start failed", "error", err)
	}
}

func (r *Reconciler) run() {
	defer close(r.stopped)
	for {
		select {
		case <-r.done:
			r.teardown()
			return
		case ev := <-r.events:
			r.handle(ev)
			r.publish()
			r.releaseIdle()
		}
	}
}

func (r *Reconciler) handle(ev event) {
	switch ev := ev.(type) {
	case identityChanged:
		r.onIdentity(ev.event)
	case bootstrapExpired:
		r.onBootstrapExpired(ev.gen)
	case remoteSnapshot:
		if ev.gen == r.channelGen && r.state.Mode == domain.ModeOnline {
			r.applyRemote(ev.snapshot)
		}
	case remoteFailed:
		r.onRemoteFailed(ev.gen, ev.err)
	case debounceFired:
		if r.debounce.Accept(ev.gen) {
			r.flush()
		}
	case writeDone:
		r.onWriteDone(ev.err)
	case savingExpired:
		if r.saving.Accept(ev.gen) && r.inflight == 0 {
			r.state.Saving = false
		}
	case editRequest:
		r.applyEdit(ev.patch)
		ev.reply <- r.snapshot()
	case reloadRequest:
		r.reload()
	case dismissRequest:
		r.state.Notice = domain.Notice{}
	case stateQuery:
		ev.reply <- r.snapshot()
	case idleQuery:
		r.idleWaiters = append(r.idleWaiters, ev.reply)
	case watchRequest:
		id := r.nextWatcher
		r.nextWatcher++
		r.watchers[id] = ev.ch
		ev.ch <- r.snapshot()
		ev.reply <- id
	case unwatchRequest:
		if ch, ok := r.watchers[ev.id]; ok {
			delete(r.watchers, ev.id)
			close(ch)
		}
	}
}

func (r *Reconciler) onIdentity(ev identity.Event) {
	if ev.Err != nil {
		r.logger.Warn("identity operation failed", "op", ev.Op, "error", ev.Err)
		if ev.Op == identity.OpLogin {
			r.state.Notice = domain.Notice{Kind: domain.NoticeLoginFailed, Message: "Sign-in failed. Your countdown is kept on this device."}
			r.enterOffline()
			return
		}
		r.state.Notice = domain.Notice{Kind: domain.NoticeIdentityError, Message: fmt.Sprintf("Account %s failed. You can keep editing.", ev.Op)}
		return
	}

	next := ev.Identity
	prev := r.state.Identity
	r.state.Identity = next
	switch r.state.Mode {
	case domain.ModeBootstrapping:
		if next.IsAbsent() {
			return
		}
		r.identitySeen = true
		r.bootstrap.Cancel()
		r.enterOnline()
	case domain.ModeOnline:
		if next == prev {
			return
		}
		r.logger.Debug("identity switched while online", "kind", next.Kind)
		r.debounce.Stop()
		r.closeChannel()
		r.openChannel()
		if r.state.Dirty {
			r.armDebounce()
		}
	case domain.ModeOffline:
		initial := !r.identitySeen
		if !next.IsAbsent() {
			r.identitySeen = true
		}
		if next.IsAbsent() || initial || next == prev {
			return
		}
		r.enterOnline()
	}
}

func (r *Reconciler) onBootstrapExpired(gen uint64) {
	if !r.bootstrap.Expired(gen) || r.state.Mode != domain.ModeBootstrapping {
		return
	}
	r.logger.Info("identity not resolved in time, working offline", "timeout", r.opts.BootstrapTimeout)
	r.state.Notice = domain.Notice{Kind: domain.NoticeOffline, Message: "Could not reach sync in time. Working offline; reload to retry."}
	r.enterOffline()
	if cfg, ok := r.local.Load(); ok {
		r.state.Config = cfg
	}
}

func (r *Reconciler) onRemoteFailed(gen uint64, err error) {
	if gen != r.channelGen || r.state.Mode != domain.ModeOnline {
		return
	}
	r.logger.Warn("remote subscription failed, working offline", "error", err)
	r.state.Notice = domain.Notice{Kind: domain.NoticeOffline, Message: "Sync unavailable. Working offline; reload to retry."}
	r.enterOffline()
}

func (r *Reconciler) enterOnline() {
	r.state.Mode = domain.ModeOnline
	if r.state.Notice.Kind == domain.NoticeOffline {
		r.state.Notice = domain.Notice{}
	}
	r.openChannel()
	if r.state.Dirty {
		r.armDebounce()
	}
}

func (r *Reconciler) enterOffline() {
	r.bootstrap.Cancel()
	r.debounce.Stop()
	r.closeChannel()
	r.state.Mode = domain.ModeOffline
}

func (r *Reconciler) openChannel() {
	r.closeChannel()
	if r.state.Identity.IsAbsent() {
		return
	}
	gen := r.channelGen
	ch := NewRemoteChannel(r.remote, domain.DocumentPath(r.opts.Namespace, r.state.Identity.ID), r.logger)
	r.channel = ch
	ctx := r.ctx
	go ch.Open(ctx,
		func(snapshot domain.RemoteSnapshot) { r.post(remoteSnapshot{gen: gen, snapshot: snapshot}) },
		func(err error) { r.post(remoteFailed{gen: gen, err: err}) },
	)
}

func (r *Reconciler) closeChannel() {
	if r.channel != nil {
		r.channel.Close()
		r.channel = nil
	}
	r.channelGen++
}

// applyRemote merges a notification into memory. While local edits are
// unpushed, a snapshot stamped at or before the last edit is ignored.
func (r *Reconciler) applyRemote(snapshot domain.RemoteSnapshot) {
	if !snapshot.Exists {
		r.logger.Debug("remote document absent, filling from memory")
		r.state.Dirty = true
		r.armDebounce()
		return
	}
	if r.state.Dirty || r.inflight > 0 {
		if stamp := snapshot.Patch.UpdatedAt; stamp != nil && !stamp.After(r.lastEdit) {
			r.logger.Debug("remote snapshot older than local edit", "remote", *stamp, "local", r.lastEdit)
			return
		}
	}
	patch := snapshot.Patch.WithoutBlanks()
	merged := r.state.Config.Merge(patch)
	r.state.Config = merged
	r.local.Save(merged)
	if patch.Complete() {
		r.debounce.Stop()
		r.state.Dirty = false
		return
	}
	r.state.Dirty = true
	r.armDebounce()
}

func (r *Reconciler) applyEdit(patch countdown.Patch) {
	patch.UpdatedAt = nil
	if patch.IsEmpty() {
		return
	}
	now := r.clock.Now()
	cfg := r.state.Config.Merge(patch)
	cfg.UpdatedAt = now
	r.state.Config = cfg
	r.local.Save(cfg)
	r.state.Dirty = true
	r.lastEdit = now
	r.armDebounce()
}

// armDebounce (re)starts the quiet window. Offline or without a channel the
// edit stays local.
func (r *Reconciler) armDebounce() {
	if r.state.Mode != domain.ModeOnline || r.channel == nil {
		return
	}
	r.debounce.Arm(r.opts.DebounceWindow, r.postDebounceFired)
}

func (r *Reconciler) flush() {
	if r.state.Mode != domain.ModeOnline || r.channel == nil {
		return
	}
	r.state.Config.UpdatedAt = r.clock.Now()
	cfg := r.state.Config
	r.local.Save(cfg)
	r.state.Dirty = false
	r.state.Saving = true
	r.saving.Stop()
	r.inflight++

	ch, ctx, timeout := r.channel, r.ctx, r.opts.WriteTimeout
	r.logger.Debug("pushing configuration", "path", ch.Path())
	go func() {
		pushCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		r.post(writeDone{err: ch.Push(pushCtx, cfg)})
	}()
}

func (r *Reconciler) onWriteDone(err error) {
	r.inflight--
	if err != nil {
		r.logger.Warn("remote write failed", "error", err)
		r.state.Dirty = true
	}
	if r.inflight == 0 {
		r.saving.Arm(r.opts.SavingHold, r.postSavingExpired)
	}
}

func (r *Reconciler) reload() {
	r.logger.Info("reloading session")
	r.debounce.Stop()
	r.closeChannel()
	r.bootstrap.Cancel()
	r.state.Mode = domain.ModeBootstrapping
	r.state.Notice = domain.Notice{}
	r.identitySeen = false
	r.bootstrap.Arm(r.postBootstrapExpired)
	go r.resolveIdentity(r.ctx)
}

func (r *Reconciler) idle() bool {
	return r.state.Mode != domain.ModeBootstrapping && !r.debounce.Armed() && r.inflight == 0
}

func (r *Reconciler) releaseIdle() {
	if len(r.idleWaiters) == 0 || !r.idle() {
		return
	}
	for _, waiter := range r.idleWaiters {
		close(waiter)
	}
	r.idleWaiters = nil
}

func (r *Reconciler) today() countdown.Date {
	return countdown.DateOf(r.clock.Now().In(r.opts.Location))
}

func (r *Reconciler) snapshot() domain.SessionState {
	state := r.state
	state.Stats = countdown.Project(state.Config, r.today())
	return state
}

func (r *Reconciler) publish() {
	state := r.snapshot()
	r.mu.Lock()
	changed := state != r.published
	r.published = state
	r.mu.Unlock()
	if !changed {
		return
	}
	for _, ch := range r.watchers {
		select {
		case ch <- state:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

func (r *Reconciler) teardown() {
	r.bootstrap.Cancel()
	r.debounce.Stop()
	r.saving.Stop()
	r.closeChannel()
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.state.Saving = false
	r.publish()
	for id, ch := range r.watchers {
		delete(r.watchers, id)
		close(ch)
	}
	r.idleWaiters = nil
	r.logger.Debug("reconciler closed")
}
