package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime"

	"log/slog"

	printapp "github.com/astro-web3/print-gateway/internal/app/printing"
	"github.com/astro-web3/print-gateway/internal/config"
	"github.com/astro-web3/print-gateway/internal/domain/authz"
	"github.com/astro-web3/print-gateway/internal/domain/printing"
	"github.com/astro-web3/print-gateway/internal/infra/cups"
	"github.com/astro-web3/print-gateway/internal/infra/imagemagick"
	"github.com/astro-web3/print-gateway/internal/infra/revocation"
	"github.com/astro-web3/print-gateway/internal/infra/spooler"
	"github.com/astro-web3/print-gateway/internal/infra/token"
	"github.com/astro-web3/print-gateway/pkg/logger"
	"github.com/astro-web3/print-gateway/pkg/otel"
	"github.com/astro-web3/print-gateway/pkg/tracer"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	httpServer  *http.Server
	redisClient *redis.Client
}

const (
	idleTimeoutMultiplier = 2
	serviceName           = "print-gateway"
)

func NewServer(cfg *config.Config) (*Server, error) {
	logger.Init(logger.Options{
		Level:     cfg.Observability.LogLevel,
		Format:    cfg.Observability.Format,
		AddSource: cfg.Observability.LogSource,
		Service:   serviceName,
	})

	otelCfg := otel.DefaultConfig(serviceName)
	otelCfg.EndpointURL = cfg.Observability.TracingEndpointURL
	otelCfg.Enabled = cfg.Observability.TraceEnabled
	if err := tracer.InitTracer(otelCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	dispatcher, err := newDispatcher(cfg)
	if err != nil {
		return nil, err
	}

	var revocations authz.RevocationList
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = revocation.NewRedisClient(cfg.Redis.URL, cfg.Redis.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		revocations = revocation.NewList(redisClient)
	}

	authenticator := authz.NewAuthenticator(token.NewVerifier(cfg.Auth.Secret), revocations)
	appService := printapp.NewService(dispatcher)

	handler := NewHandler(appService)
	router := NewRouter(handler, NewAuthMiddleware(authenticator, cfg.Auth.Security), cfg)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * idleTimeoutMultiplier,
	}

	logger.L().Info("print gateway configured",
		slog.String("addr", httpServer.Addr),
		slog.String("backend", cfg.Printing.Backend),
		slog.Bool("security", cfg.Auth.Security),
		slog.Bool("revocation", revocations != nil),
	)

	return &Server{
		httpServer:  httpServer,
		redisClient: redisClient,
	}, nil
}

// newDispatcher picks the printer backend and, when the host spooler cannot
// take PDF, the EMF converter. A missing converter binary is a startup error.
func newDispatcher(cfg *config.Config) (*printing.Dispatcher, error) {
	var printer printing.Printer
	switch cfg.Printing.Backend {
	case config.BackendSpooler:
		printer = spooler.New(cfg.Printing.Spooler.BaseURL, cfg.Printing.Spooler.Token, cfg.Printing.Spooler.Timeout)
	default:
		lp, err := cups.New(cfg.Printing.LP.LPBin, cfg.Printing.LP.LPStatBin)
		if err != nil {
			return nil, fmt.Errorf("failed to set up lp backend: %w", err)
		}
		printer = lp
	}

	var converter printing.Converter = printing.Passthrough{}
	if printing.NeedsEMF(cfg.Printing.Convert, runtime.GOOS) {
		magick, err := imagemagick.New(cfg.Printing.ImageMagick.Bin, cfg.Printing.ImageMagick.Density)
		if err != nil {
			return nil, fmt.Errorf("failed to set up EMF conversion: %w", err)
		}
		converter = magick
	}

	return printing.NewDispatcher(converter, printer), nil
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.redisClient != nil {
		if cerr := s.redisClient.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
