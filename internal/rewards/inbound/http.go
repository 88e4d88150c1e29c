package inbound

import (
	"context"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgrouter"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/usecase"
)

type uc interface {
	Evaluate(ctx context.Context, in usecase.EvaluateInput) (*usecase.EvaluateOutput, error)
	Optimize(ctx context.Context, in usecase.OptimizeInput) (*usecase.OptimizeOutput, error)
	FindDeals(ctx context.Context, in usecase.DealsInput) (*usecase.DealsOutput, error)
	Providers(ctx context.Context, typ entity.ProviderType) (*usecase.ProvidersOutput, error)
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/valuations", end.Evaluate)
	r.POST("/valuations/optimize", end.Optimize)
	r.GET("/deals", end.Deals)
	r.GET("/providers", end.Providers)
}
