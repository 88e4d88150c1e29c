package valuation

import (
	"errors"
	"fmt"
	"math"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
)

var ErrInvalidInput = errors.New("invalid valuation input")

// Thresholds are the minimum cents per point for each rating above poor.
type Thresholds struct {
	Exceptional float64 `json:"exceptional" mapstructure:"exceptional"`
	Excellent   float64 `json:"excellent" mapstructure:"excellent"`
	VeryGood    float64 `json:"very_good" mapstructure:"very_good"`
	Good        float64 `json:"good" mapstructure:"good"`
	Fair        float64 `json:"fair" mapstructure:"fair"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Exceptional: 3.0, Excellent: 2.0, VeryGood: 1.5, Good: 1.0, Fair: 0.7}
}

// Validate requires positive, strictly decreasing thresholds so every cpp
// value lands in exactly one rating.
func (t Thresholds) Validate() error {
	steps := t.ordered()
	for i, step := range steps {
		if math.IsNaN(step.min) || math.IsInf(step.min, 0) || step.min <= 0 {
			return fmt.Errorf("%w: %s threshold must be a positive number", ErrInvalidInput, step.rating)
		}
		if i > 0 && step.min >= steps[i-1].min {
			return fmt.Errorf("%w: %s threshold %.2f must be below %s threshold %.2f",
				ErrInvalidInput, step.rating, step.min, steps[i-1].rating, steps[i-1].min)
		}
	}
	return nil
}

// Rate maps cpp to its rating.
func (t Thresholds) Rate(cpp float64) entity.ValueRating {
	for _, step := range t.ordered() {
		if cpp >= step.min {
			return step.rating
		}
	}
	return entity.RatingPoor
}

// Min returns the cpp needed for rating. Poor needs nothing.
func (t Thresholds) Min(rating entity.ValueRating) float64 {
	for _, step := range t.ordered() {
		if step.rating == rating {
			return step.min
		}
	}
	return math.Inf(-1)
}

type step struct {
	rating entity.ValueRating
	min    float64
}

func (t Thresholds) ordered() []step {
	return []step{
		{entity.RatingExceptional, t.Exceptional},
		{entity.RatingExcellent, t.Excellent},
		{entity.RatingVeryGood, t.VeryGood},
		{entity.RatingGood, t.Good},
		{entity.RatingFair, t.Fair},
	}
}

// Engine scores award redemptions against the cash fare they replace. It
// holds no mutable state and is safe for concurrent use.
type Engine struct {
	thresholds      Thresholds
	cabinThresholds map[entity.CabinClass]Thresholds
	cutoff          entity.ValueRating
}

type Option func(*Engine)

func WithThresholds(t Thresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// WithCabinThresholds rates awards in cabin against t instead of the defaults.
func WithCabinThresholds(cabin entity.CabinClass, t Thresholds) Option {
	return func(e *Engine) { e.cabinThresholds[cabin] = t }
}

// WithGoodDealCutoff sets the lowest rating that can count as a good deal.
func WithGoodDealCutoff(r entity.ValueRating) Option {
	return func(e *Engine) { e.cutoff = r }
}

func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		thresholds:      DefaultThresholds(),
		cabinThresholds: make(map[entity.CabinClass]Thresholds),
		cutoff:          entity.RatingGood,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.thresholds.Validate(); err != nil {
		return nil, err
	}
	for cabin, t := range e.cabinThresholds {
		if _, err := entity.ParseCabinClass(string(cabin)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%s thresholds: %w", cabin, err)
		}
	}
	if e.cutoff < entity.RatingPoor || e.cutoff > entity.RatingExceptional {
		return nil, fmt.Errorf("%w: good deal cutoff %s", ErrInvalidInput, e.cutoff)
	}
	return e, nil
}

// ThresholdsFor returns the thresholds used for awards flown in cabin.
func (e *Engine) ThresholdsFor(cabin entity.CabinClass) Thresholds {
	if t, ok := e.cabinThresholds[cabin]; ok {
		return t
	}
	return e.thresholds
}

// Evaluate rates one redemption. A redemption that costs more than cash is a
// valid, poorly rated result and never an error.
func (e *Engine) Evaluate(it entity.FlightItinerary, award entity.AwardPricing, cash entity.CashPricing) (entity.ValueCalculation, error) {
	if err := validate(it, award, cash); err != nil {
		return entity.ValueCalculation{}, err
	}

	cpp := centsPerPoint(award, cash)
	savings := cash.TotalCost - award.TotalCash
	savingsPercent := 0.0
	if cash.TotalCost != 0 {
		savingsPercent = savings / cash.TotalCost
	}

	thresholds := e.ThresholdsFor(it.Cabin)
	rating := thresholds.Rate(cpp)

	calc := entity.ValueCalculation{
		CPP:            cpp,
		TotalValue:     savings,
		Rating:         rating,
		Award:          award,
		Cash:           cash,
		Savings:        savings,
		SavingsPercent: savingsPercent,
		IsGoodDeal:     rating >= e.cutoff && savings > 0 && savingsPercent > 0,
		Quality:        rating.Quality(),
	}
	calc.Reasons = e.reasons(it, calc, thresholds)

	return calc, nil
}

// centsPerPoint is the cash displaced per point redeemed, in hundredths of
// the itinerary currency.
func centsPerPoint(award entity.AwardPricing, cash entity.CashPricing) float64 {
	if award.PointsCost == 0 {
		return 0
	}
	return (cash.TotalCost - award.CashComponent()) * 100 / float64(award.PointsCost)
}

func validate(it entity.FlightItinerary, award entity.AwardPricing, cash entity.CashPricing) error {
	if err := it.Validate(); err != nil {
		return fmt.Errorf("%w: itinerary: %w", ErrInvalidInput, err)
	}
	if err := award.Validate(); err != nil {
		return fmt.Errorf("%w: award: %w", ErrInvalidInput, err)
	}
	if err := cash.Validate(); err != nil {
		return fmt.Errorf("%w: cash: %w", ErrInvalidInput, err)
	}

	amounts := []float64{
		award.Surcharges, award.Taxes, award.Fees, award.TotalCash,
		cash.TotalCost, cash.BaseFare, cash.Taxes, cash.Fees,
	}
	for _, amount := range amounts {
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return fmt.Errorf("%w: amounts must be finite", ErrInvalidInput)
		}
	}
	return nil
}
