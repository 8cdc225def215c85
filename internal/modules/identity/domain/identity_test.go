package domain_test

import (
	"testing"

	"timeblocks/internal/modules/identity/domain"
)

func TestDetectLoginMode(t *testing.T) {
	t.Parallel()
	cases := map[string]domain.LoginMode{
		"": domain.LoginPopup,
		"Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0":                   domain.LoginPopup,
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)":          domain.LoginRedirect,
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) Mobile Safari/537.36":   domain.LoginRedirect,
		"Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1": domain.LoginRedirect,
	}
	for agent, want := range cases {
		if got := (domain.UserAgentDetector{UserAgent: agent}).LoginMode(); got != want {
			t.Fatalf("agent %q: expected %s, got %s", agent, want, got)
		}
	}
}

func TestIdentityNormalize(t *testing.T) {
	t.Parallel()
	if !(domain.Identity{Kind: domain.KindVerified}).IsAbsent() {
		t.Fatalf("identity without id must be absent")
	}
	if got := (domain.Identity{Kind: "robot", ID: "x"}).Normalize(); !got.IsAbsent() {
		t.Fatalf("unknown kind must normalize to absent, got %+v", got)
	}
	anon := domain.Anonymous("a-1")
	if !anon.IsAnonymous() || anon.IsVerified() {
		t.Fatalf("unexpected anonymous classification %+v", anon)
	}
	if got := anon.Normalize(); got != anon {
		t.Fatalf("valid identity must survive normalize")
	}
}
