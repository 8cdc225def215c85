package out_test

import (
	"context"
	"testing"
	"time"

	countdown "timeblocks/internal/modules/countdown/domain"
	reconcileout "timeblocks/internal/modules/reconcile/adapter/out"
	"timeblocks/internal/modules/reconcile/domain"
)

func TestDirRemoteStoreMergesAndNotifies(t *testing.T) {
	t.Parallel()
	store := reconcileout.NewDirRemoteStore(t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan domain.RemoteSnapshot, 16)
	stop, err := store.Subscribe(ctx, "app/u-1", func(s domain.RemoteSnapshot) { snapshots <- s }, func(err error) {
		t.Errorf("unexpected watch error: %v", err)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	first := receive(t, snapshots)
	if first.Exists {
		t.Fatalf("missing document must be reported absent")
	}

	full := countdown.Configuration{Topic: "Y", StartDate: countdown.NewDate(2024, 1, 1), TargetDate: countdown.NewDate(2024, 6, 1)}
	if err := store.Write(ctx, "app/u-1", full.AsPatch()); err != nil {
		t.Fatalf("write full: %v", err)
	}
	if err := store.Write(ctx, "app/u-1", countdown.Patch{Topic: countdown.StringPtr("X")}); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-snapshots:
			if s.Exists && s.Patch.Topic != nil && *s.Patch.Topic == "X" {
				if s.Patch.StartDate == nil || s.Patch.StartDate.String() != "2024-01-01" {
					t.Fatalf("merge must keep untouched fields, got %+v", s.Patch)
				}
				return
			}
		case <-deadline:
			t.Fatalf("merged document was never delivered")
		}
	}
}

func TestDirRemoteStoreRejectsBadPath(t *testing.T) {
	t.Parallel()
	store := reconcileout.NewDirRemoteStore(t.TempDir(), nil)
	if err := store.Write(context.Background(), "no-user", countdown.Patch{}); err == nil {
		t.Fatalf("expected path error")
	}
}

func receive(t *testing.T, ch <-chan domain.RemoteSnapshot) domain.RemoteSnapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(5 * time.Second):
		t.Fatalf("no snapshot delivered")
		return domain.RemoteSnapshot{}
	}
}
