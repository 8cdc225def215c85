package usecase

import (
	"context"

	"timeblocks/internal/modules/identity/domain"
	identitydto "timeblocks/internal/modules/identity/dto"
	identityin "timeblocks/internal/modules/identity/port/in"
	"timeblocks/internal/modules/identity/service"
)

type Interactor struct {
	session *service.Session
}

func NewInteractor(session *service.Session) identityin.Usecase {
	return &Interactor{session: session}
}

func (i *Interactor) Start(ctx context.Context) (identitydto.IdentityOutput, error) {
	current, err := i.session.Start(ctx)
	return toOutput(current), err
}

func (i *Interactor) Current(_ context.Context) identitydto.IdentityOutput {
	return toOutput(i.session.CurrentIdentity())
}

func (i *Interactor) Subscribe(handler func(identitydto.IdentityEvent)) func() {
	return i.session.OnIdentityChanged(func(event domain.Event) {
		handler(identitydto.IdentityEvent{Identity: toOutput(event.Identity), Op: string(event.Op), Err: event.Err})
	})
}

func (i *Interactor) Login(ctx context.Context) (identitydto.IdentityOutput, error) {
	current, err := i.session.LoginInteractive(ctx)
	return toOutput(current), err
}

func (i *Interactor) Logout(ctx context.Context) (identitydto.IdentityOutput, error) {
	current, err := i.session.Logout(ctx)
	return toOutput(current), err
}

func toOutput(current domain.Identity) identitydto.IdentityOutput {
	return identitydto.IdentityOutput{
		Kind:        string(current.Kind),
		ID:          current.ID,
		DisplayName: current.DisplayName,
		AvatarRef:   current.AvatarRef,
	}
}
