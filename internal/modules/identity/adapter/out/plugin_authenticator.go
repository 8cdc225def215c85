package out

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	authrpc "timeblocks/internal/modules/identity/adapter/out/rpc"
	"timeblocks/internal/modules/identity/domain"
	identityout "timeblocks/internal/modules/identity/port/out"
	apperrors "timeblocks/internal/platform/errors"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultLoginTimeout = 2 * time.Minute
)

// PluginAuthenticator runs the interactive login in an external binary
// speaking the authenticator plugin protocol.
type PluginAuthenticator struct {
	binary string
	logger hclog.Logger
}

func NewPluginAuthenticator(binary string, logger hclog.Logger) identityout.Authenticator {
	if binary == "" {
		return UnavailableAuthenticator{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &PluginAuthenticator{binary: binary, logger: logger}
}

func (a *PluginAuthenticator) Authenticate(ctx context.Context, mode domain.LoginMode, current domain.Identity) (domain.Identity, error) {
	client, closeFn, err := a.connect()
	if err != nil {
		return domain.Identity{}, err
	}
	defer closeFn()

	callCtx, cancel := callContext(ctx, defaultLoginTimeout)
	defer cancel()
	response, err := client.Authenticate(callCtx, &authrpc.AuthenticateRequest{
		Mode:        string(mode),
		CurrentKind: string(current.Kind),
		CurrentID:   current.ID,
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("authenticate: %w", err)
	}
	return domain.Verified(response.UID, response.DisplayName, response.AvatarRef), nil
}

func (a *PluginAuthenticator) connect() (authrpc.AuthenticatorClient, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  authrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          authrpc.PluginMap(nil),
		Cmd:              exec.Command(a.binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           a.logger.Named("authenticator"),
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("start authenticator plugin: %w", err)
	}
	raw, err := rpcClient.Dispense(authrpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense authenticator plugin: %w", err)
	}
	typed, ok := raw.(authrpc.AuthenticatorClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("authenticator rpc client type mismatch")
	}
	return typed, closeFn, nil
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// UnavailableAuthenticator is used when no authenticator plugin is configured.
type UnavailableAuthenticator struct{}

func (UnavailableAuthenticator) Authenticate(context.Context, domain.LoginMode, domain.Identity) (domain.Identity, error) {
	return domain.Identity{}, apperrors.ErrLoginUnavailable
}
