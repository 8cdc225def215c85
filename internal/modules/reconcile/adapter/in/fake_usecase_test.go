package in_test

import (
	"context"
	"errors"
	"sync"

	reconciledto "timeblocks/internal/modules/reconcile/dto"
)

var errBoom = errors.New("boom")

type fakeUsecase struct {
	mu       sync.Mutex
	calls    []string
	state    reconciledto.StateOutput
	edits    []reconciledto.EditInput
	editErr  error
	loginErr error
	waitErr  error
}

func (f *fakeUsecase) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeUsecase) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeUsecase) Start(context.Context) error {
	f.record("start")
	return nil
}

func (f *fakeUsecase) State(context.Context) reconciledto.StateOutput {
	f.record("state")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeUsecase) Watch(context.Context) <-chan reconciledto.StateOutput {
	ch := make(chan reconciledto.StateOutput)
	close(ch)
	return ch
}

func (f *fakeUsecase) Edit(_ context.Context, input reconciledto.EditInput) (reconciledto.StateOutput, error) {
	f.record("edit")
	if f.editErr != nil {
		return reconciledto.StateOutput{}, f.editErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, input)
	if input.Topic != nil {
		f.state.Topic = *input.Topic
	}
	if input.StartDate != nil {
		f.state.StartDate = *input.StartDate
	}
	if input.TargetDate != nil {
		f.state.TargetDate = *input.TargetDate
	}
	return f.state, nil
}

func (f *fakeUsecase) Login(context.Context) error {
	f.record("login")
	return f.loginErr
}

func (f *fakeUsecase) Logout(context.Context) error {
	f.record("logout")
	return nil
}

func (f *fakeUsecase) Reload(context.Context) error {
	f.record("reload")
	return nil
}

func (f *fakeUsecase) DismissNotice(context.Context) error {
	f.record("dismiss")
	return nil
}

func (f *fakeUsecase) WaitIdle(context.Context) error {
	f.record("wait")
	return f.waitErr
}

func (f *fakeUsecase) Close() error {
	f.record("close")
	return nil
}
