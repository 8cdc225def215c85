package usecase

import (
	"context"
	"fmt"

	countdown "timeblocks/internal/modules/countdown/domain"
	"timeblocks/internal/modules/reconcile/domain"
	reconciledto "timeblocks/internal/modules/reconcile/dto"
	reconcilein "timeblocks/internal/modules/reconcile/port/in"
	"timeblocks/internal/modules/reconcile/service"
	apperrors "timeblocks/internal/platform/errors"
)

type Interactor struct {
	rec *service.Reconciler
}

func NewInteractor(rec *service.Reconciler) reconcilein.Usecase {
	return &Interactor{rec: rec}
}

func (i *Interactor) Start(ctx context.Context) error {
	return i.rec.Start(ctx)
}

func (i *Interactor) State(_ context.Context) reconciledto.StateOutput {
	return ToOutput(i.rec.State())
}

func (i *Interactor) Watch(ctx context.Context) <-chan reconciledto.StateOutput {
	states := i.rec.Watch(ctx)
	out := make(chan reconciledto.StateOutput, 1)
	go func() {
		defer close(out)
		for state := range states {
			select {
			case out <- ToOutput(state):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (i *Interactor) Edit(ctx context.Context, input reconciledto.EditInput) (reconciledto.StateOutput, error) {
	patch, err := toPatch(input)
	if err != nil {
		return reconciledto.StateOutput{}, err
	}
	state, err := i.rec.Edit(ctx, patch)
	if err != nil {
		return reconciledto.StateOutput{}, err
	}
	return ToOutput(state), nil
}

func (i *Interactor) Login(ctx context.Context) error  { return i.rec.Login(ctx) }
func (i *Interactor) Logout(ctx context.Context) error { return i.rec.Logout(ctx) }
func (i *Interactor) Reload(ctx context.Context) error { return i.rec.Reload(ctx) }

func (i *Interactor) DismissNotice(ctx context.Context) error {
	return i.rec.DismissNotice(ctx)
}

func (i *Interactor) WaitIdle(ctx context.Context) error {
	return i.rec.WaitIdle(ctx)
}

func (i *Interactor) Close() error {
	return i.rec.Close()
}

func toPatch(input reconciledto.EditInput) (countdown.Patch, error) {
	patch := countdown.Patch{Topic: input.Topic}
	if input.StartDate != nil {
		start, err := countdown.ParseDate(*input.StartDate)
		if err != nil {
			return countdown.Patch{}, fmt.Errorf("%w: start date: %w", apperrors.ErrInvalidInput, err)
		}
		patch.StartDate = &start
	}
	if input.TargetDate != nil {
		target, err := countdown.ParseDate(*input.TargetDate)
		if err != nil {
			return countdown.Patch{}, fmt.Errorf("%w: target date: %w", apperrors.ErrInvalidInput, err)
		}
		patch.TargetDate = &target
	}
	return patch, nil
}

func ToOutput(state domain.SessionState) reconciledto.StateOutput {
	return reconciledto.StateOutput{
		Topic:         state.Config.Topic,
		StartDate:     state.Config.StartDate.String(),
		TargetDate:    state.Config.TargetDate.String(),
		UpdatedAt:     state.Config.UpdatedAt,
		TotalDays:     state.Stats.TotalDays,
		PassedDays:    state.Stats.PassedDays,
		RemainingDays: state.Stats.RemainingDays,
		IsValid:       state.Stats.IsValid,
		Mode:          string(state.Mode),
		ModeLabel:     state.ModeLabel(),
		IdentityKind:  string(state.Identity.Kind),
		IdentityID:    state.Identity.ID,
		DisplayName:   state.Identity.DisplayName,
		AvatarRef:     state.Identity.AvatarRef,
		Saving:        state.Saving,
		Dirty:         state.Dirty,
		NoticeKind:    string(state.Notice.Kind),
		Notice:        state.Notice.Message,
	}
}
