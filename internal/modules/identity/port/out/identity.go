package out

import (
	"context"

	"timeblocks/internal/modules/identity/domain"
)

// Provider is the identity backend. ResolveCurrent returns the absent
// identity when nothing is stored. Subscribe fires on every transition.
type Provider interface {
	ResolveCurrent(ctx context.Context) (domain.Identity, error)
	EstablishAnonymous(ctx context.Context) (domain.Identity, error)
	BeginInteractiveUpgrade(ctx context.Context, mode domain.LoginMode) (domain.Identity, error)
	Clear(ctx context.Context) error
	Subscribe(handler func(domain.Identity)) (cancel func())
}

// Authenticator runs the interactive part of an upgrade.
type Authenticator interface {
	Authenticate(ctx context.Context, mode domain.LoginMode, current domain.Identity) (domain.Identity, error)
}
