package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	llmx "github.com/lamnv/todoagent/agent/llm"
	orchestratorx "github.com/lamnv/todoagent/agent/orchestrator"
	todox "github.com/lamnv/todoagent/agent/todo"
	toolx "github.com/lamnv/todoagent/agent/tool"
	configx "github.com/lamnv/todoagent/pkg/config"
	_ "github.com/lamnv/todoagent/pkg/logger/autoload"
	openrouterx "github.com/lamnv/todoagent/pkg/openrouter"
	serverx "github.com/lamnv/todoagent/server"
)

type AppConfig struct {
	Addr          string `envconfig:"ADDR" default:":3000"`
	DataFile      string `envconfig:"DATA_FILE" split_words:"true" default:"data.json"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN" split_words:"true"`
	MaxIterations int    `envconfig:"MAX_ITERATIONS" split_words:"true" default:"5"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")

	snapshot, closeSnapshot := newSnapshot(ctx, appCfg)
	defer closeSnapshot()

	store, err := todox.NewStore(snapshot, todox.WithLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("create todo store")
	}

	catalog, err := toolx.NewCatalog(store)
	if err != nil {
		log.Fatal().Err(err).Msg("create tool catalog")
	}

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")
	openRouterClient := openrouterx.NewClient(*openRouterCfg)
	if openRouterClient == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}

	gateway, err := llmx.NewGateway(openRouterClient, *openRouterCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create model gateway")
	}

	agent, err := orchestratorx.New(gateway, catalog, orchestratorx.Config{
		MaxIterations: appCfg.MaxIterations,
		Logger:        log.Logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create orchestrator")
	}

	srv, err := serverx.New(store, agent, serverx.WithLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("create server")
	}

	httpServer := &http.Server{
		Addr:    appCfg.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		log.Info().Str("addr", appCfg.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

func newSnapshot(ctx context.Context, cfg *AppConfig) (todox.Snapshot, func()) {
	if cfg.PostgresDSN != "" {
		snap, err := todox.NewPostgresSnapshot(ctx, cfg.PostgresDSN, todox.WithPostgresLogger(log.Logger))
		if err != nil {
			log.Fatal().Err(err).Msg("create postgres snapshot")
		}
		log.Info().Msg("using postgres snapshot backend")
		return snap, func() {
			if err := snap.Close(); err != nil {
				log.Error().Err(err).Msg("close postgres snapshot")
			}
		}
	}

	snap, err := todox.NewFileSnapshot(cfg.DataFile, todox.WithFileLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("create file snapshot")
	}
	log.Info().Str("path", cfg.DataFile).Msg("using file snapshot backend")
	return snap, func() {}
}
