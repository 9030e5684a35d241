package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"savedanalysis/internal/gateway/config"
	"savedanalysis/internal/gateway/handler"
	"savedanalysis/internal/gateway/handler/rpc"
	"savedanalysis/internal/gateway/server"
	"savedanalysis/internal/gateway/service/loader"
)

type App struct {
	server  *server.Server
	handler http.Handler
	loader  *loader.Service
	closer  io.Closer
}

func New(ctx context.Context, cfg *config.Config, opts ...loader.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Dependencies
	store, closer, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	loaderSvc, err := loader.New(store, cfg.AppVersion, opts...)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	analysisHandler := handler.NewAnalysisHandler(loaderSvc)
	schemaHandler := rpc.NewSchemaHandler()

	// Routing & Server
	mux := server.NewMux(analysisHandler, schemaHandler)
	srv := server.New(cfg.Port, mux)

	return &App{
		server:  srv,
		handler: mux,
		loader:  loaderSvc,
		closer:  closer,
	}, nil
}

func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Loader() *loader.Service { return a.loader }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.closer.Close(); err == nil {
		err = cerr
	}
	return err
}
