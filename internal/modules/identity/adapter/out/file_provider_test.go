package out_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	identityout "timeblocks/internal/modules/identity/adapter/out"
	"timeblocks/internal/modules/identity/domain"
)

type sequenceID struct{ n int }

func (s *sequenceID) New() string {
	s.n++
	return fmt.Sprintf("anon-%d", s.n)
}

type stubAuthenticator struct {
	identity domain.Identity
	err      error
	mode     domain.LoginMode
}

func (s *stubAuthenticator) Authenticate(_ context.Context, mode domain.LoginMode, _ domain.Identity) (domain.Identity, error) {
	s.mode = mode
	return s.identity, s.err
}

func TestFileProviderLifecycle(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "profile", "identity.yaml")
	auth := &stubAuthenticator{identity: domain.Verified("user-1", "Ada", "")}
	provider := identityout.NewFileProvider(path, &sequenceID{}, auth)
	ctx := context.Background()

	var seen []domain.Identity
	cancel := provider.Subscribe(func(current domain.Identity) { seen = append(seen, current) })
	defer cancel()

	current, err := provider.ResolveCurrent(ctx)
	if err != nil || !current.IsAbsent() {
		t.Fatalf("expected absent identity on empty profile, got %+v err=%v", current, err)
	}
	anon, err := provider.EstablishAnonymous(ctx)
	if err != nil {
		t.Fatalf("establish anonymous: %v", err)
	}
	if resolved, _ := provider.ResolveCurrent(ctx); resolved != anon {
		t.Fatalf("expected persisted %+v, got %+v", anon, resolved)
	}
	verified, err := provider.BeginInteractiveUpgrade(ctx, domain.LoginRedirect)
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if !verified.IsVerified() || auth.mode != domain.LoginRedirect {
		t.Fatalf("unexpected upgrade result %+v mode=%s", verified, auth.mode)
	}
	if err := provider.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("identity file should be removed, stat err=%v", err)
	}
	if len(seen) != 3 || !seen[0].IsAnonymous() || !seen[1].IsVerified() || !seen[2].IsAbsent() {
		t.Fatalf("unexpected transitions %+v", seen)
	}
}

func TestFileProviderUpgradeFailureKeepsIdentity(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "identity.yaml")
	auth := &stubAuthenticator{err: errors.New("popup closed")}
	provider := identityout.NewFileProvider(path, &sequenceID{}, auth)
	ctx := context.Background()
	anon, err := provider.EstablishAnonymous(ctx)
	if err != nil {
		t.Fatalf("establish anonymous: %v", err)
	}
	if _, err := provider.BeginInteractiveUpgrade(ctx, domain.LoginPopup); err == nil {
		t.Fatalf("expected upgrade failure")
	}
	if resolved, _ := provider.ResolveCurrent(ctx); resolved != anon {
		t.Fatalf("identity must be unchanged after failure, got %+v", resolved)
	}
}

func TestFileProviderCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "identity.yaml")
	if err := os.WriteFile(path, []byte("kind: [unterminated"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	provider := identityout.NewFileProvider(path, &sequenceID{}, nil)
	if _, err := provider.ResolveCurrent(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}
