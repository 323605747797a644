package grpc

import (
	"context"
	"time"

	"github.com/EMe-U/plotsure/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Checker reports whether one dependency is usable.
type Checker func(ctx context.Context) error

// Server is the gRPC side of the service. It only exposes the standard
// health protocol and reflection.
type Server struct {
	*grpc.Server
	health  *health.Server
	service string
	logger  *logger.Logger
}

func NewServer(serviceName string, appLogger *logger.Logger) *Server {
	log := appLogger.Named("GRPCServer")
	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(LoggingInterceptor(log)),
	)
	reflection.Register(gs)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &Server{Server: gs, health: hs, service: serviceName, logger: log}
}

// SetServing marks the process and the named service as SERVING.
func (s *Server) SetServing() {
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(s.service, grpc_health_v1.HealthCheckResponse_SERVING)
	s.logger.Info("Health status set to SERVING", zap.String("service", s.service))
}

// Shutdown flips every status to NOT_SERVING and stops accepting new
// health checks, then drains in-flight RPCs.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.GracefulStop()
	s.logger.Info("gRPC server stopped")
}

// WatchDependencies re-runs checks every interval and reports the named
// service as NOT_SERVING while any of them fails. It returns when ctx ends.
func (s *Server) WatchDependencies(ctx context.Context, interval time.Duration, checks map[string]Checker) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		failed := ""
		for name, check := range checks {
			checkCtx, cancel := context.WithTimeout(ctx, interval/2)
			err := check(checkCtx)
			cancel()
			if err != nil {
				failed = name
				s.logger.Warn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
				break
			}
		}

		switch {
		case failed != "" && healthy:
			s.health.SetServingStatus(s.service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			healthy = false
		case failed == "" && !healthy:
			s.health.SetServingStatus(s.service, grpc_health_v1.HealthCheckResponse_SERVING)
			s.logger.Info("Dependencies recovered", zap.String("service", s.service))
			healthy = true
		}
	}
}

// LoggingInterceptor logs every unary call with its duration and status code.
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			log.Warn("gRPC request failed", append(fields, zap.Error(err))...)
		} else {
			log.Debug("gRPC request handled", fields...)
		}
		return resp, err
	}
}
