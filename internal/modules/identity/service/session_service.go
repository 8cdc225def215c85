package service

import (
	"context"
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"timeblocks/internal/modules/identity/domain"
	identityout "timeblocks/internal/modules/identity/port/out"
	apperrors "timeblocks/internal/platform/errors"
)

// Session tracks the current identity and fans transitions out to
// subscribers. Handlers run on the goroutine that caused the transition and
// must not block.
type Session struct {
	provider identityout.Provider
	detector domain.DeviceDetector
	logger   hclog.Logger

	mu          sync.Mutex
	current     domain.Identity
	handlers    map[int]func(domain.Event)
	nextHandler int
	unsubscribe func()
}

func NewSession(provider identityout.Provider, detector domain.DeviceDetector, logger hclog.Logger) *Session {
	if detector == nil {
		detector = domain.UserAgentDetector{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Session{
		provider: provider,
		detector: detector,
		logger:   logger,
		handlers: map[int]func(domain.Event){},
	}
}

// Start resolves the stored identity, falling back to a fresh anonymous one.
// The resolution is always published, even when it matches the last one.
func (s *Session) Start(ctx context.Context) (domain.Identity, error) {
	resolved, err := s.provider.ResolveCurrent(ctx)
	if err != nil {
		s.logger.Debug("resolve identity failed, establishing anonymous", "error", err)
		resolved = domain.Identity{}
	}
	resolved = resolved.Normalize()
	if resolved.IsAbsent() {
		resolved, err = s.provider.EstablishAnonymous(ctx)
		if err != nil {
			err = fmt.Errorf("establish anonymous identity: %w", err)
			s.emit(domain.Event{Identity: s.CurrentIdentity(), Op: domain.OpResolve, Err: err})
			return domain.Identity{}, err
		}
	}

	s.mu.Lock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.provider.Subscribe(s.observe)
	}
	s.mu.Unlock()

	s.transition(resolved, true)
	return resolved, nil
}

func (s *Session) CurrentIdentity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnIdentityChanged registers handler and returns its cancel func.
func (s *Session) OnIdentityChanged(handler func(domain.Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextHandler
	s.nextHandler++
	s.handlers[id] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

// LoginInteractive upgrades the current identity through the provider. A
// failure leaves the identity unchanged, is published as an error event and
// is returned wrapping ErrLoginFailed.
func (s *Session) LoginInteractive(ctx context.Context) (domain.Identity, error) {
	current := s.CurrentIdentity()
	if current.IsVerified() {
		return current, nil
	}
	mode := s.detector.LoginMode()
	s.logger.Debug("interactive login", "mode", mode)
	upgraded, err := s.provider.BeginInteractiveUpgrade(ctx, mode)
	if err == nil && upgraded.Normalize().IsAbsent() {
		err = apperrors.ErrNoIdentity
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", apperrors.ErrLoginFailed, err)
		s.logger.Warn("interactive login failed", "error", err)
		s.emit(domain.Event{Identity: current, Op: domain.OpLogin, Err: err})
		return current, err
	}
	s.transition(upgraded, false)
	return upgraded, nil
}

// Logout clears the stored identity and establishes a new anonymous one.
func (s *Session) Logout(ctx context.Context) (domain.Identity, error) {
	if err := s.provider.Clear(ctx); err != nil {
		err = fmt.Errorf("clear identity: %w", err)
		s.emit(domain.Event{Identity: s.CurrentIdentity(), Op: domain.OpLogout, Err: err})
		return s.CurrentIdentity(), err
	}
	s.transition(domain.Identity{}, false)
	anon, err := s.provider.EstablishAnonymous(ctx)
	if err != nil {
		err = fmt.Errorf("establish anonymous identity: %w", err)
		s.emit(domain.Event{Op: domain.OpLogout, Err: err})
		return domain.Identity{}, err
	}
	s.transition(anon, false)
	return anon, nil
}

func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) observe(next domain.Identity) {
	s.transition(next.Normalize(), false)
}

func (s *Session) transition(next domain.Identity, force bool) {
	s.mu.Lock()
	if !force && next == s.current {
		s.mu.Unlock()
		return
	}
	s.current = next
	s.mu.Unlock()
	s.logger.Debug("identity changed", "kind", next.Kind, "id", next.ID)
	s.emit(domain.Event{Identity: next, Op: domain.OpResolve})
}

func (s *Session) emit(event domain.Event) {
	s.mu.Lock()
	handlers := make([]func(domain.Event), 0, len(s.handlers))
	for _, handler := range s.handlers {
		handlers = append(handlers, handler)
	}
	s.mu.Unlock()
	for _, handler := range handlers {
		handler(event)
	}
}
