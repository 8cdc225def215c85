package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey       = "authenticator"
	serviceName        = "timeblocks.auth.v1.Authenticator"
	jsonCodecName      = "json"
	methodAuthenticate = "/" + serviceName + "/Authenticate"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "TIMEBLOCKS_AUTH_PLUGIN",
	MagicCookieValue: "timeblocks",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type AuthenticateRequest struct {
	Mode        string `json:"mode"`
	CurrentKind string `json:"current_kind"`
	CurrentID   string `json:"current_id"`
}

type AuthenticateResponse struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref"`
}

type AuthenticatorServer interface {
	Authenticate(ctx context.Context, in *AuthenticateRequest) (*AuthenticateResponse, error)
}

type AuthenticatorClient interface {
	Authenticate(ctx context.Context, in *AuthenticateRequest) (*AuthenticateResponse, error)
}

type authenticatorClient struct {
	conn *grpc.ClientConn
}

func NewAuthenticatorClient(conn *grpc.ClientConn) AuthenticatorClient {
	return &authenticatorClient{conn: conn}
}

func (c *authenticatorClient) Authenticate(ctx context.Context, in *AuthenticateRequest) (*AuthenticateResponse, error) {
	out := &AuthenticateResponse{}
	if err := c.conn.Invoke(ctx, methodAuthenticate, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterAuthenticatorServer(server grpc.ServiceRegistrar, impl AuthenticatorServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*AuthenticatorServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Authenticate",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &AuthenticateRequest{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Authenticate(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAuthenticate}
					handler := func(ctx context.Context, req any) (any, error) {
						typed, ok := req.(*AuthenticateRequest)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Authenticate(ctx, typed)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "timeblocks/auth/v1",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl AuthenticatorServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterAuthenticatorServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewAuthenticatorClient(conn), nil
}

func PluginMap(impl AuthenticatorServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
