package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"timeblocks/internal/modules/identity/domain"
	identityout "timeblocks/internal/modules/identity/port/out"
	"timeblocks/internal/platform/id"
)

// FileProvider keeps the current identity in a YAML file. Interactive
// upgrades are delegated to an Authenticator.
type FileProvider struct {
	path  string
	idGen id.Generator
	auth  identityout.Authenticator

	mu       sync.Mutex
	handlers map[int]func(domain.Identity)
	next     int
}

func NewFileProvider(path string, idGen id.Generator, auth identityout.Authenticator) identityout.Provider {
	if auth == nil {
		auth = UnavailableAuthenticator{}
	}
	return &FileProvider{path: path, idGen: idGen, auth: auth, handlers: map[int]func(domain.Identity){}}
}

func (p *FileProvider) ResolveCurrent(_ context.Context) (domain.Identity, error) {
	payload, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Identity{}, nil
		}
		return domain.Identity{}, fmt.Errorf("read identity: %w", err)
	}
	current := domain.Identity{}
	if err := yaml.Unmarshal(payload, &current); err != nil {
		return domain.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return current.Normalize(), nil
}

func (p *FileProvider) EstablishAnonymous(_ context.Context) (domain.Identity, error) {
	anon := domain.Anonymous(p.idGen.New())
	if err := p.save(anon); err != nil {
		return domain.Identity{}, err
	}
	p.notify(anon)
	return anon, nil
}

func (p *FileProvider) BeginInteractiveUpgrade(ctx context.Context, mode domain.LoginMode) (domain.Identity, error) {
	current, err := p.ResolveCurrent(ctx)
	if err != nil {
		current = domain.Identity{}
	}
	verified, err := p.auth.Authenticate(ctx, mode, current)
	if err != nil {
		return domain.Identity{}, err
	}
	verified.Kind = domain.KindVerified
	if verified.IsAbsent() {
		return domain.Identity{}, fmt.Errorf("authenticator returned an empty subject")
	}
	if err := p.save(verified); err != nil {
		return domain.Identity{}, err
	}
	p.notify(verified)
	return verified, nil
}

func (p *FileProvider) Clear(_ context.Context) error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear identity: %w", err)
	}
	p.notify(domain.Identity{})
	return nil
}

func (p *FileProvider) Subscribe(handler func(domain.Identity)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.next
	p.next++
	p.handlers[key] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, key)
	}
}

func (p *FileProvider) save(current domain.Identity) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	payload, err := yaml.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := os.WriteFile(p.path, payload, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

func (p *FileProvider) notify(current domain.Identity) {
	p.mu.Lock()
	handlers := make([]func(domain.Identity), 0, len(p.handlers))
	for _, handler := range p.handlers {
		handlers = append(handlers, handler)
	}
	p.mu.Unlock()
	for _, handler := range handlers {
		handler(current)
	}
}
