package in

import (
	"context"

	identitydto "timeblocks/internal/modules/identity/dto"
	identityin "timeblocks/internal/modules/identity/port/in"
)

type CLIHandler struct {
	usecase identityin.Usecase
}

func NewCLIHandler(usecase identityin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

// Whoami resolves the stored identity, creating an anonymous one if needed.
func (h CLIHandler) Whoami(ctx context.Context) (identitydto.IdentityOutput, error) {
	return h.usecase.Start(ctx)
}
