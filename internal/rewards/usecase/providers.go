package usecase

import (
	"context"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/provider"
)

type ProvidersOutput struct {
	Type      entity.ProviderType
	Providers []provider.ProviderHealth
}

func (u *Usecase) Providers(_ context.Context, typ entity.ProviderType) (*ProvidersOutput, error) {
	return &ProvidersOutput{Type: typ, Providers: u.registry.Snapshot(typ)}, nil
}
