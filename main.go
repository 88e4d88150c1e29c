package main

import (
	"context"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/app"
)

func main() {
	application := app.New()
	<-application.Start() // blocks until SIGINT/SIGTERM/SIGHUP

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	application.Stop(ctx)
}
