package in

import (
	"context"

	"timeblocks/internal/modules/identity/dto"
)

type Usecase interface {
	Start(ctx context.Context) (dto.IdentityOutput, error)
	Current(ctx context.Context) dto.IdentityOutput
	Subscribe(handler func(dto.IdentityEvent)) (cancel func())
	Login(ctx context.Context) (dto.IdentityOutput, error)
	Logout(ctx context.Context) (dto.IdentityOutput, error)
}
