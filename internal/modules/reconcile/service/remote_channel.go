package service

import (
	"context"
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	countdown "timeblocks/internal/modules/countdown/domain"
	"timeblocks/internal/modules/reconcile/domain"
	reconcileout "timeblocks/internal/modules/reconcile/port/out"
	apperrors "timeblocks/internal/platform/errors"
)

// RemoteChannel is one subscription to one document path. It reports at
// most one error and delivers nothing after Close or after that error.
type RemoteChannel struct {
	store  reconcileout.RemoteStore
	path   string
	logger hclog.Logger

	mu     sync.Mutex
	cancel func()
	closed bool
	failed bool
}

func NewRemoteChannel(store reconcileout.RemoteStore, path string, logger hclog.Logger) *RemoteChannel {
	return &RemoteChannel{store: store, path: path, logger: logger}
}

func (c *RemoteChannel) Path() string { return c.path }

// Open subscribes and blocks only for as long as the store's Subscribe does.
func (c *RemoteChannel) Open(ctx context.Context, onSnapshot func(domain.RemoteSnapshot), onError func(error)) {
	report := func(err error) {
		c.mu.Lock()
		if c.closed || c.failed {
			c.mu.Unlock()
			return
		}
		c.failed = true
		c.mu.Unlock()
		onError(fmt.Errorf("%w: %s: %w", apperrors.ErrSubscriptionFailed, c.path, err))
	}
	deliver := func(snapshot domain.RemoteSnapshot) {
		c.mu.Lock()
		skip := c.closed || c.failed
		c.mu.Unlock()
		if !skip {
			onSnapshot(snapshot)
		}
	}

	cancel, err := c.store.Subscribe(ctx, c.path, deliver, report)
	if err != nil {
		report(err)
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancel = cancel
	c.mu.Unlock()
	c.logger.Debug("remote subscription open", "path", c.path)
}

// Push performs exactly one merge write of cfg.
func (c *RemoteChannel) Push(ctx context.Context, cfg countdown.Configuration) error {
	if err := c.store.Write(ctx, c.path, cfg.AsPatch()); err != nil {
		return fmt.Errorf("write remote document %s: %w", c.path, err)
	}
	return nil
}

func (c *RemoteChannel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
