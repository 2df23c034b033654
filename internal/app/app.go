// Package app assembles the relay from its configuration. Binaries and
// transport tests share it so they run the exact same graph.
package app

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/plugins"
	"chat-relay/protocol"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/sink"
	"context"
	"fmt"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"google.golang.org/grpc"
)

// App holds every long-lived component. Nothing here is global: two apps
// in the same process do not see each other.
type App struct {
	log    *slog.Logger
	config internal.Config

	Registry   *runtime.ConnectionRegistry
	Membership *runtime.GroupMembership
	Router     *runtime.Router
	Lifecycle  *runtime.SessionLifecycle
	Plugins    *plugins.Manager
	Tokens     *auth.TokenIssuer
	Documents  *services.DocumentService
	Chat       *services.ChatService
	Health     *domain.GlobalMonitoring
	Monitoring *observability.MonitoringManager
	Pump       *sink.Pump
	GRPC       *grpc.Server
	HTTP       *ws.Server
}

func New(ctx context.Context, log *slog.Logger, config internal.Config, db *badger.DB, writer *bluge.Writer) (*App, error) {
	censoredChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(config.AuthTokenSecret, config.AuthTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	pluginIDs := config.PluginIDs()
	var censored *runtime.CensoredData
	if len(pluginIDs) > 0 {
		censored, err = runtime.NewCensoredLoader(runtime.CensoredFolder).LoadAll("censored")
		if err != nil {
			return nil, fmt.Errorf("censored words: %w", err)
		}
	}
	manager, err := plugins.DefaultRegistry().Load(ctx, pluginIDs, plugins.Deps{
		Log:          log,
		Censored:     censored,
		CensoredChar: censoredChar,
	})
	if err != nil {
		return nil, err
	}

	registry := runtime.NewConnectionRegistry()
	membership := runtime.NewGroupMembership(registry)
	router := runtime.NewRouter(log, registry, membership)
	authService := services.NewAuthService(log, repositories.NewUserRepository(db))
	lifecycle := runtime.NewSessionLifecycle(log, authService, registry, membership, router, tokens)

	documents := services.NewDocumentService(log,
		repositories.NewDocumentRepository(db, log),
		repositories.NewDocumentIndex(writer, log),
		config.MaxDocumentSize, config.SearchLimit)
	chat := services.NewChatService(log, lifecycle, membership, router, runtime.NewPluginRelay(log, router), manager, documents)

	health := domain.NewGlobalMonitoring(3 * config.MetricInterval)
	monitoring := observability.NewMonitoringManager(log, config.MetricInterval, registry, membership, router, health)
	pump := sink.NewPump(log, lifecycle, protocol.NewDispatcher(log, chat), monitoring,
		config.ConnectionBufferSize, config.DeliveryTimeout)

	return &App{
		log:        log,
		config:     config,
		Registry:   registry,
		Membership: membership,
		Router:     router,
		Lifecycle:  lifecycle,
		Plugins:    manager,
		Tokens:     tokens,
		Documents:  documents,
		Chat:       chat,
		Health:     health,
		Monitoring: monitoring,
		Pump:       pump,
		GRPC:       server.NewGRPCServer(log, server.NewRelayServer(log, pump, monitoring), tokens, config.MaxFrameSize),
		HTTP:       ws.NewServer(log, pump, monitoring, documents, tokens, config.MaxFrameSize),
	}, nil
}

// Workers lists what the supervisor runs: both transports, the sampling
// loops and every loaded plugin.
func (a *App) Workers() []contract.Worker {
	w := []contract.Worker{
		server.NewWorker(a.log, a.GRPC, a.config.GrpcAddress()),
		ws.NewWorker(a.log, a.HTTP.Router(), a.config.HttpAddress()),
		workers.NewHealthMonitoringWorker(a.log, a.Health, a.config.MetricInterval),
		workers.NewChannelCapacityWorker(a.log, a.Registry, a.config.MetricInterval, a.config.LowCapacityThreshold),
		a.Monitoring,
	}
	return append(w, a.Plugins.Workers()...)
}

// Shutdown releases plugin resources once the workers are stopped.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Plugins.Shutdown(ctx)
}
