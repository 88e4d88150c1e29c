package app

import (
	"log/slog"
	"os"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards"
)

func (a *App) initModules() {
	if !a.config.GetBool("modules.rewards.enabled") {
		slog.Warn("module rewards is disabled")
		return
	}

	m, err := rewards.New(rewards.Dependency{
		Config: a.config,
		Router: a.router,
	})
	if err != nil {
		slog.Error("failed to init module rewards", "error", err)
		os.Exit(1)
	}
	a.addCloser("Rewards", m.Close)
}
