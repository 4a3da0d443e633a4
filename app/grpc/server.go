package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vibast-solutions/ms-go-todo/app/dto"
	"github.com/vibast-solutions/ms-go-todo/app/entity"
	"github.com/vibast-solutions/ms-go-todo/app/service"
)

const (
	SessionServiceName    = "todo.auth.v1.SessionService"
	ValidateSessionMethod = "/" + SessionServiceName + "/ValidateSession"
)

// SessionValidator is the server API of todo.auth.v1.SessionService.
type SessionValidator interface {
	ValidateSession(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var SessionServiceDesc = gogrpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionValidator)(nil),
	Methods: []gogrpc.MethodDesc{
		{
			MethodName: "ValidateSession",
			Handler:    validateSessionHandler,
		},
	},
	Streams:  []gogrpc.StreamDesc{},
	Metadata: "todo/auth/v1/session.proto",
}

func RegisterSessionServer(registrar gogrpc.ServiceRegistrar, srv SessionValidator) {
	registrar.RegisterService(&SessionServiceDesc, srv)
}

func validateSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionValidator).ValidateSession(ctx, in)
	}
	info := &gogrpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ValidateSessionMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionValidator).ValidateSession(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type accountFinder interface {
	FindAccount(ctx context.Context, id string) (*entity.Account, error)
}

type SessionServer struct {
	sessions service.SessionService
	accounts accountFinder
}

func NewSessionServer(sessions service.SessionService, accounts accountFinder) *SessionServer {
	return &SessionServer{
		sessions: sessions,
		accounts: accounts,
	}
}

// ValidateSession reports whether a session token is currently accepted. Rejections are answered with
// valid=false rather than an error status.
func (s *SessionServer) ValidateSession(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	raw := strings.TrimSpace(req.GetValue())
	if raw == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	caller := CallerServiceFromContext(ctx)

	claims, err := s.sessions.Verify(raw)
	if err != nil {
		logrus.WithError(err).WithField("caller", caller).Debug("Session rejected (grpc)")
		return invalidSession(), nil
	}

	account, err := s.accounts.FindAccount(ctx, claims.Identity())
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			return invalidSession(), nil
		}
		logrus.WithError(err).Error("Failed to load session account (grpc)")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return sessionInfoStruct(&dto.SessionInfo{
		AccountID: account.ID,
		Email:     account.Email,
		ExpiresAt: claims.Expiry(),
	})
}

func invalidSession() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"valid": structpb.NewBoolValue(false),
	}}
}

func sessionInfoStruct(info *dto.SessionInfo) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"account_id": info.AccountID,
		"email":      info.Email,
		"expires_at": info.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

// SessionClient calls todo.auth.v1.SessionService on a remote connection.
type SessionClient struct {
	cc gogrpc.ClientConnInterface
}

func NewSessionClient(cc gogrpc.ClientConnInterface) *SessionClient {
	return &SessionClient{cc: cc}
}

func (c *SessionClient) ValidateSession(ctx context.Context, raw string, opts ...gogrpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ValidateSessionMethod, wrapperspb.String(raw), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
