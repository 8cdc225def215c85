package out

import (
	"context"
	"errors"

	countdown "timeblocks/internal/modules/countdown/domain"
	"timeblocks/internal/modules/reconcile/domain"
	reconcileout "timeblocks/internal/modules/reconcile/port/out"
)

var errNoRemote = errors.New("no remote store configured")

// NoRemoteStore makes every session fall back to offline-local.
type NoRemoteStore struct{}

func NewNoRemoteStore() reconcileout.RemoteStore {
	return NoRemoteStore{}
}

func (NoRemoteStore) Subscribe(context.Context, string, func(domain.RemoteSnapshot), func(error)) (func(), error) {
	return nil, errNoRemote
}

func (NoRemoteStore) Write(context.Context, string, countdown.Patch) error {
	return errNoRemote
}
