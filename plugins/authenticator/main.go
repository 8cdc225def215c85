package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/hashicorp/go-plugin"

	authrpc "timeblocks/internal/modules/identity/adapter/out/rpc"
)

type server struct{}

// Authenticate stands in for a real browser flow: the verified subject comes
// from the environment the host was started with.
func (s *server) Authenticate(_ context.Context, in *authrpc.AuthenticateRequest) (*authrpc.AuthenticateResponse, error) {
	if os.Getenv("TIMEBLOCKS_AUTH_DENY") != "" {
		return nil, errors.New("login cancelled by user")
	}
	uid := strings.TrimSpace(os.Getenv("TIMEBLOCKS_AUTH_UID"))
	if uid == "" {
		if in.CurrentID == "" {
			return nil, errors.New("no subject available")
		}
		uid = "verified-" + in.CurrentID
	}
	name := os.Getenv("TIMEBLOCKS_AUTH_NAME")
	if name == "" {
		name = uid
	}
	return &authrpc.AuthenticateResponse{
		UID:         uid,
		DisplayName: name,
		AvatarRef:   os.Getenv("TIMEBLOCKS_AUTH_AVATAR"),
	}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: authrpc.HandshakeConfig,
		Plugins:         authrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
