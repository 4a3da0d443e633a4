package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vibast-solutions/ms-go-todo/app/service"
)

const apiKeyMetadataKey = "x-api-key"

type callerServiceKey struct{}

type apiKeyValidator interface {
	ValidateInternalAPIKey(ctx context.Context, apiKey string) (string, error)
}

// APIKeyUnaryInterceptor rejects calls that do not carry an active internal API key.
func APIKeyUnaryInterceptor(keys apiKeyValidator) gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		apiKey := incomingAPIKeyFromMetadata(ctx)
		if apiKey == "" {
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}

		serviceName, err := keys.ValidateInternalAPIKey(ctx, apiKey)
		if err != nil {
			if errors.Is(err, service.ErrInvalidInternalAPIKey) {
				logrus.WithField("method", info.FullMethod).Debug("Invalid x-api-key metadata")
				return nil, status.Error(codes.Unauthenticated, "unauthorized")
			}
			logrus.WithError(err).Error("API key validation failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}

		return handler(context.WithValue(ctx, callerServiceKey{}, serviceName), req)
	}
}

// CallerServiceFromContext returns the name of the service that authenticated the current call.
func CallerServiceFromContext(ctx context.Context) string {
	name, _ := ctx.Value(callerServiceKey{}).(string)
	return name
}

func incomingAPIKeyFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(apiKeyMetadataKey)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
