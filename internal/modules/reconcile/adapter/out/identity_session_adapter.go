package out

import (
	"context"

	identity "timeblocks/internal/modules/identity/domain"
	identitydto "timeblocks/internal/modules/identity/dto"
	identityin "timeblocks/internal/modules/identity/port/in"
	reconcileout "timeblocks/internal/modules/reconcile/port/out"
)

type IdentitySessionAdapter struct {
	identity identityin.Usecase
}

func NewIdentitySessionAdapter(usecase identityin.Usecase) reconcileout.IdentitySession {
	return &IdentitySessionAdapter{identity: usecase}
}

func (a *IdentitySessionAdapter) Start(ctx context.Context) error {
	_, err := a.identity.Start(ctx)
	return err
}

func (a *IdentitySessionAdapter) Current() identity.Identity {
	return toIdentity(a.identity.Current(context.Background()))
}

func (a *IdentitySessionAdapter) OnChanged(handler func(identity.Event)) func() {
	return a.identity.Subscribe(func(event identitydto.IdentityEvent) {
		handler(identity.Event{Identity: toIdentity(event.Identity), Op: identity.Op(event.Op), Err: event.Err})
	})
}

func (a *IdentitySessionAdapter) Login(ctx context.Context) error {
	_, err := a.identity.Login(ctx)
	return err
}

func (a *IdentitySessionAdapter) Logout(ctx context.Context) error {
	_, err := a.identity.Logout(ctx)
	return err
}

func toIdentity(out identitydto.IdentityOutput) identity.Identity {
	return identity.Identity{
		Kind:        identity.Kind(out.Kind),
		ID:          out.ID,
		DisplayName: out.DisplayName,
		AvatarRef:   out.AvatarRef,
	}.Normalize()
}
