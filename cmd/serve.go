package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/vibast-solutions/ms-go-todo/app/controller"
	"github.com/vibast-solutions/ms-go-todo/app/database"
	todogrpc "github.com/vibast-solutions/ms-go-todo/app/grpc"
	"github.com/vibast-solutions/ms-go-todo/app/middleware"
	"github.com/vibast-solutions/ms-go-todo/config"
)

const shutdownTimeout = 10 * time.Second

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  `Start the HTTP (Echo) API, the internal gRPC session API and the revocation sweeper.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply pending database migrations before serving (overridden by DB_AUTO_MIGRATE=false)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.InsecureSecret {
		logrus.Warn("SESSION_SECRET is not set: sessions are signed with a publicly known default secret and can be forged. Set SESSION_SECRET before exposing this service.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer app.Close()

	if serveMigrate && cfg.Database.AutoMigrate {
		if err = database.Migrate(ctx, app.db, cfg.Database.Driver); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.registry.Run(gctx, cfg.Session.SweepInterval)
	})

	e := newHTTPServer(cfg, app)
	g.Go(func() error {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logrus.Info("Shutting down HTTP server")
		return e.Shutdown(shutdownCtx)
	})

	if cfg.GRPC.Enabled {
		grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("listen on gRPC port: %w", err)
		}

		grpcServer := grpc.NewServer(grpc.UnaryInterceptor(todogrpc.APIKeyUnaryInterceptor(app.internalAuth)))
		todogrpc.RegisterSessionServer(grpcServer, todogrpc.NewSessionServer(app.sessions, app.auth))

		g.Go(func() error {
			logrus.WithField("addr", grpcAddr).Info("Starting gRPC server")
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			logrus.Info("Shutting down gRPC server")
			grpcServer.GracefulStop()
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		logrus.WithError(err).Error("Server stopped with error")
		return err
	}
	logrus.Info("Server stopped")
	return nil
}

func newHTTPServer(cfg *config.Config, app *application) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"user_agent": v.UserAgent,
			}
			if account := middleware.AccountFromContext(c); account != nil {
				fields["account_id"] = account.ID
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "0",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         hstsMaxAge(cfg),
		ReferrerPolicy:     "no-referrer",
	}))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomiddleware.Gzip())
	e.Use(echomiddleware.BodyLimit("1M"))

	controller.RegisterRoutes(
		e,
		controller.NewAuthController(app.auth, app.todos, cfg.Cookie),
		controller.NewTodoController(app.todos),
		middleware.NewAuthMiddleware(app.sessions, app.auth, cfg.Cookie),
	)

	return e
}

func hstsMaxAge(cfg *config.Config) int {
	if cfg.Cookie.Secure {
		return 31536000
	}
	return 0
}
