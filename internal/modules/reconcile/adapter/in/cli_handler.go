package in

import (
	"context"

	reconciledto "timeblocks/internal/modules/reconcile/dto"
	reconcilein "timeblocks/internal/modules/reconcile/port/in"
)

// CLIHandler runs one command against a started session and waits for it
// to settle before reporting, so pending writes are not lost on exit.
type CLIHandler struct {
	usecase reconcilein.Usecase
}

func NewCLIHandler(usecase reconcilein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Status(ctx context.Context) (reconciledto.StateOutput, error) {
	if err := h.settle(ctx); err != nil {
		return reconciledto.StateOutput{}, err
	}
	return h.usecase.State(ctx), nil
}

func (h CLIHandler) Set(ctx context.Context, input reconciledto.EditInput) (reconciledto.StateOutput, error) {
	if err := h.usecase.Start(ctx); err != nil {
		return reconciledto.StateOutput{}, err
	}
	if _, err := h.usecase.Edit(ctx, input); err != nil {
		return reconciledto.StateOutput{}, err
	}
	if err := h.usecase.WaitIdle(ctx); err != nil {
		return reconciledto.StateOutput{}, err
	}
	return h.usecase.State(ctx), nil
}

func (h CLIHandler) Login(ctx context.Context) (reconciledto.StateOutput, error) {
	if err := h.settle(ctx); err != nil {
		return reconciledto.StateOutput{}, err
	}
	loginErr := h.usecase.Login(ctx)
	if err := h.usecase.WaitIdle(ctx); err != nil {
		return reconciledto.StateOutput{}, err
	}
	return h.usecase.State(ctx), loginErr
}

func (h CLIHandler) Logout(ctx context.Context) (reconciledto.StateOutput, error) {
	if err := h.settle(ctx); err != nil {
		return reconciledto.StateOutput{}, err
	}
	logoutErr := h.usecase.Logout(ctx)
	if err := h.usecase.WaitIdle(ctx); err != nil {
		return reconciledto.StateOutput{}, err
	}
	return h.usecase.State(ctx), logoutErr
}

func (h CLIHandler) settle(ctx context.Context) error {
	if err := h.usecase.Start(ctx); err != nil {
		return err
	}
	return h.usecase.WaitIdle(ctx)
}
