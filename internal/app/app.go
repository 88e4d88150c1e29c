package app

import (
	"context"
	"net/http"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgconfig"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkglog"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgrouter"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkguid"
)

type closer struct {
	name string
	fn   func(context.Context) error
}

type App struct {
	config     pkgconfig.Config
	uuid       pkguid.StringID
	router     *pkgrouter.Router
	httpServer *http.Server
	// closers run in reverse registration order on Stop.
	closers []closer
}

func New() *App {
	app := &App{}
	pkglog.InitLogging()
	app.initConfig()
	app.initClosers()
	app.initHTTPServer()
	app.initModules()
	return app
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}
