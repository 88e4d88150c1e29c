package valuation

import (
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"golang.org/x/sync/errgroup"
)

const (
	MaxFlexDays = 14
	cppEpsilon  = 1e-9
)

// QuoteKey identifies award and cash pricing for one cabin on one day.
type QuoteKey struct {
	Cabin entity.CabinClass
	Date  string
}

func NewQuoteKey(cabin entity.CabinClass, date time.Time) QuoteKey {
	return QuoteKey{Cabin: cabin, Date: date.Format(time.DateOnly)}
}

type Quote struct {
	Award entity.AwardPricing
	Cash  entity.CashPricing
}

type Options struct {
	IncludeTransferBonuses bool
	// TransferBonusScenarios are hypothetical bonus percentages, 25 means +25%.
	TransferBonusScenarios []float64
	AlternativeCabins      []entity.CabinClass
	FlexDays               int
	// EvaluationDate decides which bonuses are active. Zero means now.
	EvaluationDate time.Time
	// Quotes prices cabin and date combinations other than the one being
	// optimized. Combinations without a quote are skipped.
	Quotes map[QuoteKey]Quote
}

// OptimizationResult is the winning combination of a search.
type OptimizationResult struct {
	Best       entity.ValueCalculation
	Itinerary  entity.FlightItinerary
	Multiplier float64
	Partner    *entity.TransferPartner
	Bonus      *entity.TransferBonus
	Evaluated  int
	Summary    string
}

// Optimizer searches cabins, dates and transfer scenarios for the best
// redemption. It is stateless apart from its configuration.
type Optimizer struct {
	engine  *Engine
	now     func() time.Time
	workers int
}

type OptimizerOption func(*Optimizer)

func WithOptimizerClock(now func() time.Time) OptimizerOption {
	return func(o *Optimizer) { o.now = now }
}

// WithWorkers bounds how many combinations are evaluated at once.
func WithWorkers(n int) OptimizerOption {
	return func(o *Optimizer) {
		if n > 0 {
			o.workers = n
		}
	}
}

func NewOptimizer(engine *Engine, opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{
		engine:  engine,
		now:     time.Now,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize returns the best calculation across the whole search space.
func (o *Optimizer) Optimize(
	it entity.FlightItinerary,
	award entity.AwardPricing,
	cash entity.CashPricing,
	partners []entity.TransferPartner,
	opts Options,
) (entity.ValueCalculation, error) {
	res, err := o.Search(it, award, cash, partners, opts)
	if err != nil {
		return entity.ValueCalculation{}, err
	}
	return res.Best, nil
}

type scenario struct {
	itinerary  entity.FlightItinerary
	award      entity.AwardPricing
	cash       entity.CashPricing
	multiplier float64
	partner    *entity.TransferPartner
	bonus      *entity.TransferBonus
}

type outcome struct {
	calc entity.ValueCalculation
	ok   bool
}

// Search evaluates every cabin, date and transfer combination and reports
// the winner. The unchanged itinerary paid directly is always part of the
// search, so the result never rates below it.
func (o *Optimizer) Search(
	it entity.FlightItinerary,
	award entity.AwardPricing,
	cash entity.CashPricing,
	partners []entity.TransferPartner,
	opts Options,
) (OptimizationResult, error) {
	if award.PointsCost <= 0 {
		return OptimizationResult{}, fmt.Errorf("%w: points cost must be positive to optimize", ErrInvalidInput)
	}
	if opts.FlexDays < 0 || opts.FlexDays > MaxFlexDays {
		return OptimizationResult{}, fmt.Errorf("%w: flex days must be between 0 and %d", ErrInvalidInput, MaxFlexDays)
	}
	for _, p := range partners {
		if p.Ratio <= 0 || math.IsNaN(p.Ratio) || math.IsInf(p.Ratio, 0) {
			return OptimizationResult{}, fmt.Errorf("%w: partner %s to %s ratio must be positive",
				ErrInvalidInput, p.SourceProgram, p.DestinationProgram)
		}
	}
	for _, pct := range opts.TransferBonusScenarios {
		if pct <= -100 || math.IsNaN(pct) || math.IsInf(pct, 0) {
			return OptimizationResult{}, fmt.Errorf("%w: bonus scenario %g%%", ErrInvalidInput, pct)
		}
	}

	baseline, err := o.engine.Evaluate(it, award, cash)
	if err != nil {
		return OptimizationResult{}, err
	}

	evalDate := opts.EvaluationDate
	if evalDate.IsZero() {
		evalDate = o.now()
	}

	scenarios := o.scenarios(it, award, cash, partners, opts, evalDate)
	results := make([]outcome, len(scenarios))
	results[0] = outcome{calc: baseline, ok: true}

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i := 1; i < len(scenarios); i++ {
		i := i
		g.Go(func() error {
			s := scenarios[i]
			calc, err := o.engine.Evaluate(s.itinerary, s.award, s.cash)
			if err != nil {
				// a malformed quote only removes its own combination
				return nil
			}
			results[i] = outcome{calc: calc, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	best, count := 0, 0
	for i, r := range results {
		if !r.ok {
			continue
		}
		count++
		if i > 0 && better(r.calc, scenarios[i], results[best].calc, scenarios[best]) {
			best = i
		}
	}

	winner := scenarios[best]
	return OptimizationResult{
		Best:       results[best].calc,
		Itinerary:  winner.itinerary,
		Multiplier: winner.multiplier,
		Partner:    winner.partner,
		Bonus:      winner.bonus,
		Evaluated:  count,
		Summary:    summary(winner, best == 0, count),
	}, nil
}

// scenarios lists the search space in a fixed order. Index 0 is always the
// unchanged itinerary paid directly.
func (o *Optimizer) scenarios(
	it entity.FlightItinerary,
	award entity.AwardPricing,
	cash entity.CashPricing,
	partners []entity.TransferPartner,
	opts Options,
	evalDate time.Time,
) []scenario {
	var out []scenario

	for _, cabin := range cabins(it.Cabin, opts.AlternativeCabins) {
		for offset := -opts.FlexDays; offset <= opts.FlexDays; offset++ {
			variant := it.Shift(offset).WithCabin(cabin)
			base, price := award, cash
			if cabin != it.Cabin || offset != 0 {
				q, ok := opts.Quotes[NewQuoteKey(cabin, variant.DepartDate)]
				if !ok {
					continue
				}
				base, price = q.Award, q.Cash
			}

			direct := scenario{itinerary: variant, award: base, cash: price, multiplier: 1}
			if cabin == it.Cabin && offset == 0 {
				out = append([]scenario{direct}, out...)
			} else {
				out = append(out, direct)
			}
			if base.PointsCost <= 0 {
				continue
			}

			dest := destinationPricing(base)
			for i := range partners {
				partner := partners[i]
				if !strings.EqualFold(partner.DestinationProgram, base.Program) {
					continue
				}
				out = append(out, transferScenario(variant, dest, price, &partner, nil))

				if opts.IncludeTransferBonuses {
					for j := range partner.Bonuses {
						bonus := partner.Bonuses[j]
						if bonus.Multiplier <= 0 || !bonus.ActiveAt(evalDate) {
							continue
						}
						s := transferScenario(variant, dest, price, &partner, &bonus)
						if !bonus.Applies(s.award.PointsCost) {
							continue
						}
						out = append(out, s)
					}
				}
				for _, pct := range opts.TransferBonusScenarios {
					bonus := entity.SimulatedBonus(pct)
					out = append(out, transferScenario(variant, dest, price, &partner, &bonus))
				}
			}

			// an award that names its own transfer still gets bonus
			// scenarios when no configured partner covers that route
			if own, ok := quotedPartner(base, partners); ok {
				for _, pct := range opts.TransferBonusScenarios {
					bonus := entity.SimulatedBonus(pct)
					out = append(out, transferScenario(variant, dest, price, &own, &bonus))
				}
			}
		}
	}
	return out
}

// destinationPricing expresses an award in destination program points. An
// award that already requires a transfer quotes the source points sent.
func destinationPricing(award entity.AwardPricing) entity.AwardPricing {
	if !award.TransferRequired || award.TransferRatio == nil || *award.TransferRatio <= 0 {
		return award
	}
	award.PointsCost = int(math.Round(float64(award.PointsCost) * *award.TransferRatio))
	award.TransferRequired = false
	award.TransferFrom, award.TransferRatio, award.TransferTime = nil, nil, nil
	return award
}

// quotedPartner builds the transfer partner an award names itself, when
// none of partners already moves points along that route.
func quotedPartner(award entity.AwardPricing, partners []entity.TransferPartner) (entity.TransferPartner, bool) {
	if !award.TransferRequired || award.TransferFrom == nil || award.TransferRatio == nil || *award.TransferRatio <= 0 {
		return entity.TransferPartner{}, false
	}
	for _, p := range partners {
		if strings.EqualFold(p.SourceProgram, *award.TransferFrom) && strings.EqualFold(p.DestinationProgram, award.Program) {
			return entity.TransferPartner{}, false
		}
	}

	own := entity.TransferPartner{
		SourceProgram:      *award.TransferFrom,
		DestinationProgram: award.Program,
		Ratio:              *award.TransferRatio,
	}
	if award.TransferTime != nil {
		own.TransferTime = *award.TransferTime
	}
	return own, true
}

// transferScenario prices base when the points come from partner's source
// program. Adjusted points are the source points that must be sent.
func transferScenario(
	it entity.FlightItinerary,
	base entity.AwardPricing,
	cash entity.CashPricing,
	partner *entity.TransferPartner,
	bonus *entity.TransferBonus,
) scenario {
	multiplier := partner.Ratio
	if bonus != nil {
		multiplier *= bonus.Multiplier
	}

	award := base
	award.PointsCost = int(math.Ceil(float64(base.PointsCost) / multiplier))
	award.TransferRequired = true
	from := partner.SourceProgram
	award.TransferFrom = &from
	ratio := multiplier
	award.TransferRatio = &ratio
	if partner.TransferTime != "" {
		transferTime := partner.TransferTime
		award.TransferTime = &transferTime
	}

	return scenario{
		itinerary:  it,
		award:      award,
		cash:       cash,
		multiplier: multiplier,
		partner:    partner,
		bonus:      bonus,
	}
}

// better reports whether a beats b: higher cpp, then fewer points, then an
// earlier departure. Remaining ties keep the earlier scenario.
func better(a entity.ValueCalculation, as scenario, b entity.ValueCalculation, bs scenario) bool {
	if diff := a.CPP - b.CPP; math.Abs(diff) > cppEpsilon {
		return diff > 0
	}
	if a.Award.PointsCost != b.Award.PointsCost {
		return a.Award.PointsCost < b.Award.PointsCost
	}
	return as.itinerary.DepartDate.Before(bs.itinerary.DepartDate)
}

func cabins(primary entity.CabinClass, alternatives []entity.CabinClass) []entity.CabinClass {
	out := []entity.CabinClass{primary}
	for _, c := range alternatives {
		dup := false
		for _, seen := range out {
			if seen == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

func summary(s scenario, baseline bool, evaluated int) string {
	if baseline {
		return fmt.Sprintf("original booking is the best of %d combinations", evaluated)
	}

	parts := []string{}
	if s.partner != nil {
		transfer := "transfer from " + s.partner.SourceProgram
		if s.bonus != nil {
			transfer += " with " + s.bonus.Description
		}
		parts = append(parts, transfer)
	}
	parts = append(parts,
		fmt.Sprintf("%s on %s", cabinLabel(s.itinerary.Cabin), s.itinerary.DepartDate.Format(time.DateOnly)))
	return fmt.Sprintf("best of %d combinations: %s", evaluated, strings.Join(parts, ", "))
}
