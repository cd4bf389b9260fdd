package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/courierhq/courier/internal/config"
	"github.com/courierhq/courier/internal/contact"
	"github.com/courierhq/courier/internal/db"
	"github.com/courierhq/courier/internal/handlers"
	"github.com/courierhq/courier/internal/ingest"
	"github.com/courierhq/courier/internal/logger"
	"github.com/courierhq/courier/internal/message"
	"github.com/courierhq/courier/internal/refresh"
	"github.com/courierhq/courier/internal/relay"
	"github.com/courierhq/courier/internal/relay/providers/localfs"
	"github.com/courierhq/courier/internal/server"
	"github.com/courierhq/courier/internal/tenant"
	"github.com/courierhq/courier/internal/version"
	"github.com/courierhq/courier/internal/webhook"
	"github.com/courierhq/courier/internal/whatsapp"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			tenant.NewStore,
			contact.NewStore,
			message.NewStore,
			provideWhatsAppClient,
			provideStorageProvider,
			provideURLSigner,
			provideRelayService,
			provideIngestProcessor,
			provideRefreshService,
			provideSweeper,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideWebhookHandler),
			provideServerHandler(provideRefreshHandler),
			provideServerHandler(provideAssetsHandler),
			provideServerHandler(provideConversationsHandler),
			provideServerHandler(provideTenantsHandler),
			provideServer,
		),
		fx.Invoke(
			runMigrations,
			startSweeper,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideWhatsAppClient(log *slog.Logger, cfg config.Config) *whatsapp.Client {
	return whatsapp.NewClient(log, cfg.Provider.BaseURL, cfg.Provider.APIVersion, cfg.Provider.FetchTimeoutDuration())
}

func provideStorageProvider(cfg config.Config) (*localfs.Provider, error) {
	provider, err := localfs.New(cfg.Storage.DataRoot)
	if err != nil {
		return nil, fmt.Errorf("init storage provider: %w", err)
	}
	return provider, nil
}

func provideURLSigner(cfg config.Config) (*relay.URLSigner, error) {
	return relay.NewURLSigner(cfg.Auth.JWTSecret, cfg.Server.PublicBaseURL, cfg.Storage.SignedURLTTLDuration())
}

func provideRelayService(log *slog.Logger, provider *localfs.Provider, client *whatsapp.Client, signer *relay.URLSigner) *relay.Service {
	return relay.NewService(log, provider, &mediaFetcherAdapter{client: client}, signer)
}

func provideIngestProcessor(log *slog.Logger, contacts *contact.Store, messages *message.Store, relayService *relay.Service) *ingest.Processor {
	return ingest.NewProcessor(log, contacts, messages, relayService)
}

func provideRefreshService(log *slog.Logger, messages *message.Store, relayService *relay.Service) *refresh.Service {
	return refresh.NewService(log, messages, relayService)
}

func provideSweeper(log *slog.Logger, cfg config.Config, messages *message.Store, relayService *relay.Service) *refresh.Sweeper {
	return refresh.NewSweeper(log, messages, relayService, cfg.Sweep.Schedule, cfg.Sweep.MaxURLAgeDuration())
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log)
}

func provideWebhookHandler(log *slog.Logger, tenants *tenant.Store, processor *ingest.Processor) *webhook.Handler {
	return webhook.NewHandler(log, tenants, processor)
}

func provideRefreshHandler(log *slog.Logger, service *refresh.Service) *handlers.RefreshHandler {
	return handlers.NewRefreshHandler(log, service)
}

func provideAssetsHandler(log *slog.Logger, provider *localfs.Provider, signer *relay.URLSigner) *handlers.AssetsHandler {
	return handlers.NewAssetsHandler(log, provider, signer)
}

func provideConversationsHandler(log *slog.Logger, messages *message.Store) *handlers.ConversationsHandler {
	return handlers.NewConversationsHandler(log, messages)
}

func provideTenantsHandler(log *slog.Logger, tenants *tenant.Store) *handlers.TenantsHandler {
	return handlers.NewTenantsHandler(log, tenants)
}

type serverParams struct {
	fx.In
	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.New(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.Handlers)
}

func runMigrations(cfg config.Config, log *slog.Logger, _ *pgxpool.Pool) error {
	if err := db.Migrate(cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("database schema up to date")
	return nil
}

func startSweeper(lc fx.Lifecycle, cfg config.Config, sweeper *refresh.Sweeper) {
	if !cfg.Sweep.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return sweeper.Start() },
		OnStop:  func(ctx context.Context) error { sweeper.Stop(); return nil },
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting Courier %s\n", version.GetInfo())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

// mediaFetcherAdapter bridges the whatsapp client to the relay's fetcher
// interface so the relay package stays provider-agnostic.
type mediaFetcherAdapter struct {
	client *whatsapp.Client
}

func (a *mediaFetcherAdapter) ResolveMedia(ctx context.Context, mediaID, accessToken string) (relay.MediaInfo, error) {
	info, err := a.client.ResolveMedia(ctx, mediaID, accessToken)
	if err != nil {
		return relay.MediaInfo{}, err
	}
	return relay.MediaInfo{
		URL:      info.URL,
		MimeType: info.MimeType,
		SHA256:   info.SHA256,
		FileSize: info.FileSize,
	}, nil
}

func (a *mediaFetcherAdapter) Download(ctx context.Context, url, accessToken string) (io.ReadCloser, error) {
	return a.client.Download(ctx, url, accessToken)
}
