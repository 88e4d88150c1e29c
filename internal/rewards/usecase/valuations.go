package usecase

import (
	"context"
	"log/slog"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
)

type EvaluateInput struct {
	Itinerary entity.FlightItinerary
	Award     entity.AwardPricing
	Cash      entity.CashPricing
}

type EvaluateOutput struct {
	Calculation  entity.ValueCalculation
	Instructions entity.BookingInstructions
}

func (u *Usecase) Evaluate(ctx context.Context, in EvaluateInput) (*EvaluateOutput, error) {
	calc, err := u.engine.Evaluate(in.Itinerary, in.Award, in.Cash)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "redemption evaluated",
		"program", in.Award.Program, "cpp", calc.CPP, "rating", calc.Rating.String())

	return &EvaluateOutput{
		Calculation:  calc,
		Instructions: valuation.BuildInstructions(in.Itinerary, calc, u.programs),
	}, nil
}

type OptimizeInput struct {
	Itinerary entity.FlightItinerary
	Award     entity.AwardPricing
	Cash      entity.CashPricing
	// Partners replaces the configured transfer partners when not nil.
	Partners []entity.TransferPartner
	Options  valuation.Options
}

type OptimizeOutput struct {
	Calculation  entity.ValueCalculation
	Baseline     entity.ValueCalculation
	Itinerary    entity.FlightItinerary
	Multiplier   float64
	TransferFrom *string
	Bonus        *string
	Evaluated    int
	Summary      string
	Instructions entity.BookingInstructions
}

func (u *Usecase) Optimize(ctx context.Context, in OptimizeInput) (*OptimizeOutput, error) {
	partners := in.Partners
	if partners == nil {
		partners = u.partners
	}

	res, err := u.optimizer.Search(in.Itinerary, in.Award, in.Cash, partners, in.Options)
	if err != nil {
		return nil, err
	}
	baseline, err := u.engine.Evaluate(in.Itinerary, in.Award, in.Cash)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "redemption optimized",
		"program", in.Award.Program, "evaluated", res.Evaluated,
		"baseline_cpp", baseline.CPP, "best_cpp", res.Best.CPP)

	return &OptimizeOutput{
		Calculation:  res.Best,
		Baseline:     baseline,
		Itinerary:    res.Itinerary,
		Multiplier:   res.Multiplier,
		TransferFrom: transferSource(res),
		Bonus:        bonusDescription(res),
		Evaluated:    res.Evaluated,
		Summary:      res.Summary,
		Instructions: valuation.BuildInstructions(res.Itinerary, res.Best, u.programs),
	}, nil
}

func transferSource(res valuation.OptimizationResult) *string {
	if res.Partner == nil {
		return nil
	}
	source := res.Partner.SourceProgram
	return &source
}

func bonusDescription(res valuation.OptimizationResult) *string {
	if res.Bonus == nil {
		return nil
	}
	description := res.Bonus.Description
	return &description
}
