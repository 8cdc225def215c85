package out

import (
	"context"

	countdown "timeblocks/internal/modules/countdown/domain"
	identity "timeblocks/internal/modules/identity/domain"
	"timeblocks/internal/modules/reconcile/domain"
)

// SnapshotStore is the device-local copy of the configuration. Load reports
// ok=false when nothing usable is stored.
type SnapshotStore interface {
	Save(cfg countdown.Configuration) error
	Load() (cfg countdown.Configuration, ok bool, err error)
}

// RemoteStore is a document store addressed by namespace/userID. Write
// merges the present fields into the stored document.
type RemoteStore interface {
	Subscribe(ctx context.Context, path string, onSnapshot func(domain.RemoteSnapshot), onError func(error)) (cancel func(), err error)
	Write(ctx context.Context, path string, patch countdown.Patch) error
}

// IdentitySession is the identity collaborator of the reconciler.
type IdentitySession interface {
	Start(ctx context.Context) error
	Current() identity.Identity
	OnChanged(handler func(identity.Event)) (cancel func())
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
}
