package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgconfig"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgrouter"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkguid"
	"github.com/rs/cors"
)

func (a *App) initConfig() {
	path := "/config/config.yaml"
	if os.Getenv("LOCAL") == "true" {
		path = "./config/config.yaml"
	}
	if custom := os.Getenv("CONFIG_PATH"); custom != "" {
		path = custom
	}

	cfg, err := pkgconfig.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "path", path, "error", err)
		os.Exit(1)
	}

	if tz := cfg.GetString("app.tz"); tz != "" {
		//nolint:errcheck,gosec // ignore error
		os.Setenv("TZ", tz)
	}

	a.config = cfg
}

func (a *App) initHTTPServer() {
	a.uuid = pkguid.NewUUID()
	a.router = pkgrouter.NewRouter(a.uuid)
	a.router.GET("/healthz", func(context.Context, *http.Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})

	origins := a.config.GetStringSlice("app.server.cors.allowed_origins")
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{pkgrouter.HeaderRequestID, "Retry-After"},
		AllowCredentials: true,
	})

	address := a.config.GetString("app.server.address.http")
	if address == "" {
		address = ":8080"
	}

	a.httpServer = &http.Server{
		Addr:              address,
		Handler:           corsHandler.Handler(a.router),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      a.config.GetDuration("app.server.write_timeout"),
	}
}

func (a *App) initClosers() {
	a.addCloser("Config", func(context.Context) error {
		return a.config.Close()
	})
}
