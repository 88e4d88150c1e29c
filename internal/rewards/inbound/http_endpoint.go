package inbound

import (
	"context"
	"net/http"
	"strings"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgerror"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/provider"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/usecase"
)

type HTTPEndpoint struct {
	uc uc
}

func (h *HTTPEndpoint) Evaluate(ctx context.Context, r *http.Request) (any, error) {
	var req EvaluateRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	it, err := parseItinerary(req.Itinerary)
	if err != nil {
		return nil, err
	}

	output, err := h.uc.Evaluate(ctx, usecase.EvaluateInput{Itinerary: it, Award: req.Award, Cash: req.Cash})
	if err != nil {
		return nil, mapError(err)
	}

	return ValuationResponse{Calculation: output.Calculation, Instructions: output.Instructions}, nil
}

func (h *HTTPEndpoint) Optimize(ctx context.Context, r *http.Request) (any, error) {
	var req OptimizeRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	it, err := parseItinerary(req.Itinerary)
	if err != nil {
		return nil, err
	}
	opts, err := parseOptions(req.Options)
	if err != nil {
		return nil, err
	}

	output, err := h.uc.Optimize(ctx, usecase.OptimizeInput{
		Itinerary: it,
		Award:     req.Award,
		Cash:      req.Cash,
		Partners:  req.Partners,
		Options:   opts,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return OptimizeResponse{
		Calculation:  output.Calculation,
		Baseline:     output.Baseline,
		Itinerary:    output.Itinerary,
		Multiplier:   output.Multiplier,
		TransferFrom: output.TransferFrom,
		Bonus:        output.Bonus,
		Evaluated:    output.Evaluated,
		Summary:      output.Summary,
		Instructions: output.Instructions,
	}, nil
}

func (h *HTTPEndpoint) Deals(ctx context.Context, r *http.Request) (any, error) {
	input, err := parseDealsInput(r)
	if err != nil {
		return nil, err
	}

	output, err := h.uc.FindDeals(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	var returnDate *string
	if output.Query.ReturnDate != nil {
		value := formatDate(*output.Query.ReturnDate)
		returnDate = &value
	}

	return DealsResponse{
		Query: DealsQueryResponse{
			Origin:      output.Query.Origin,
			Destination: output.Query.Destination,
			DepartDate:  formatDate(output.Query.DepartDate),
			ReturnDate:  returnDate,
			Cabin:       string(output.Query.Cabin),
			Passengers:  output.Query.Passengers,
			Program:     output.Query.Program,
		},
		Metadata: DealsMetadataResponse{
			Provider:      output.Metadata.Provider,
			AwardsFound:   output.Metadata.AwardsFound,
			QuotesFetched: output.Metadata.QuotesFetched,
			QuotesFailed:  output.Metadata.QuotesFailed,
			QuotesSkipped: output.Metadata.QuotesSkipped,
			SkippedAwards: output.Metadata.SkippedAwards,
			Evaluated:     output.Metadata.EvaluatedTotal,
			SearchTimeMs:  output.Metadata.SearchTimeMs,
			CacheHit:      output.Metadata.CacheHit,
		},
		Deals: mapDealResponses(output.Deals),
	}, nil
}

func (h *HTTPEndpoint) Providers(ctx context.Context, r *http.Request) (any, error) {
	typ := entity.ProviderTypeFlight
	if value := strings.TrimSpace(r.URL.Query().Get("type")); value != "" {
		parsed, err := entity.ParseProviderType(value)
		if err != nil {
			return nil, pkgerror.NewBusiness("invalid provider type", pkgerror.CodeInvalidInput)
		}
		typ = parsed
	}

	output, err := h.uc.Providers(ctx, typ)
	if err != nil {
		return nil, mapError(err)
	}

	return ProvidersResponse{Type: string(output.Type), Providers: mapProviderResponses(output.Providers)}, nil
}

func mapDealResponses(deals []usecase.Deal) []DealResponse {
	resp := make([]DealResponse, 0, len(deals))
	for _, deal := range deals {
		resp = append(resp, DealResponse{
			Provider:     deal.Provider,
			Program:      deal.Calculation.Award.Program,
			Itinerary:    deal.Itinerary,
			Calculation:  deal.Calculation,
			BaselineCPP:  deal.BaselineCPP,
			TransferFrom: deal.TransferFrom,
			Bonus:        deal.Bonus,
			Summary:      deal.Summary,
			Instructions: deal.Instructions,
		})
	}
	return resp
}

func mapProviderResponses(providers []provider.ProviderHealth) []ProviderResponse {
	resp := make([]ProviderResponse, 0, len(providers))
	for _, p := range providers {
		resp = append(resp, ProviderResponse{
			Name:                p.Name,
			State:               string(p.Health.State),
			Degraded:            p.Health.Degraded,
			ConsecutiveFailures: p.Health.ConsecutiveFailures,
			LastCheck:           formatOptionalTime(p.Health.LastCheck),
			LastLatencyMs:       p.Health.LastLatency.Milliseconds(),
			LastError:           p.Health.LastError,
		})
	}
	return resp
}
