package in

import (
	"context"

	"timeblocks/internal/modules/reconcile/dto"
)

type Usecase interface {
	Start(ctx context.Context) error
	State(ctx context.Context) dto.StateOutput
	Watch(ctx context.Context) <-chan dto.StateOutput
	Edit(ctx context.Context, input dto.EditInput) (dto.StateOutput, error)
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Reload(ctx context.Context) error
	DismissNotice(ctx context.Context) error
	WaitIdle(ctx context.Context) error
	Close() error
}
