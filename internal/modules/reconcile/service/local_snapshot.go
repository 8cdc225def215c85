package service

import (
	hclog "github.com/hashicorp/go-hclog"

	countdown "timeblocks/internal/modules/countdown/domain"
	reconcileout "timeblocks/internal/modules/reconcile/port/out"
)

// LocalSnapshot is the best-effort cache in front of a SnapshotStore.
// Failures are logged and never reach the caller.
type LocalSnapshot struct {
	store  reconcileout.SnapshotStore
	logger hclog.Logger
}

func NewLocalSnapshot(store reconcileout.SnapshotStore, logger hclog.Logger) *LocalSnapshot {
	return &LocalSnapshot{store: store, logger: logger}
}

func (l *LocalSnapshot) Save(cfg countdown.Configuration) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(cfg); err != nil {
		l.logger.Debug("local snapshot save failed", "error", err)
	}
}

func (l *LocalSnapshot) Load() (countdown.Configuration, bool) {
	if l.store == nil {
		return countdown.Configuration{}, false
	}
	cfg, ok, err := l.store.Load()
	if err != nil {
		l.logger.Debug("local snapshot unreadable", "error", err)
		return countdown.Configuration{}, false
	}
	return cfg, ok
}
