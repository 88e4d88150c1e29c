package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgerror"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/provider"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/usecase"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
)

const maxBodyBytes = 1 << 20

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerror.NewBusiness("request body is required", pkgerror.CodeInvalidInput)
		}
		return pkgerror.NewBusiness("invalid request body: "+err.Error(), pkgerror.CodeInvalidInput)
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, pkgerror.NewBusiness("invalid "+field, pkgerror.CodeInvalidInput)
	}
	return parsed, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseItinerary(req ItineraryRequest) (entity.FlightItinerary, error) {
	if strings.TrimSpace(req.DepartDate) == "" {
		return entity.FlightItinerary{}, pkgerror.NewBusiness("itinerary.depart_date is required", pkgerror.CodeInvalidInput)
	}
	depart, err := parseDate("itinerary.depart_date", req.DepartDate)
	if err != nil {
		return entity.FlightItinerary{}, err
	}
	ret, err := parseOptionalDate("itinerary.return_date", req.ReturnDate)
	if err != nil {
		return entity.FlightItinerary{}, err
	}

	cabin := entity.CabinEconomy
	if strings.TrimSpace(req.Cabin) != "" {
		cabin, err = entity.ParseCabinClass(req.Cabin)
		if err != nil {
			return entity.FlightItinerary{}, pkgerror.NewBusiness("invalid itinerary.cabin", pkgerror.CodeInvalidInput)
		}
	}

	passengers := req.Passengers
	if passengers == 0 {
		passengers = 1
	}

	return entity.FlightItinerary{
		Origin:      strings.ToUpper(strings.TrimSpace(req.Origin)),
		Destination: strings.ToUpper(strings.TrimSpace(req.Destination)),
		DepartDate:  depart,
		ReturnDate:  ret,
		Cabin:       cabin,
		Passengers:  passengers,
		Segments:    req.Segments,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
	}, nil
}

func parseOptions(req OptionsRequest) (valuation.Options, error) {
	cabins, err := parseCabins(req.AlternativeCabins)
	if err != nil {
		return valuation.Options{}, err
	}
	evaluation, err := parseOptionalDate("options.evaluation_date", req.EvaluationDate)
	if err != nil {
		return valuation.Options{}, err
	}

	opts := valuation.Options{
		IncludeTransferBonuses: req.IncludeTransferBonuses,
		TransferBonusScenarios: req.TransferBonusScenarios,
		AlternativeCabins:      cabins,
		FlexDays:               req.FlexDays,
	}
	if evaluation != nil {
		opts.EvaluationDate = *evaluation
	}

	if len(req.Quotes) > 0 {
		opts.Quotes = make(map[valuation.QuoteKey]valuation.Quote, len(req.Quotes))
		for _, q := range req.Quotes {
			cabin, err := entity.ParseCabinClass(q.Cabin)
			if err != nil {
				return valuation.Options{}, pkgerror.NewBusiness("invalid quote cabin", pkgerror.CodeInvalidInput)
			}
			date, err := parseDate("quote date", q.Date)
			if err != nil {
				return valuation.Options{}, err
			}
			opts.Quotes[valuation.NewQuoteKey(cabin, date)] = valuation.Quote{Award: q.Award, Cash: q.Cash}
		}
	}
	return opts, nil
}

func parseCabins(values []string) ([]entity.CabinClass, error) {
	if len(values) == 0 {
		return nil, nil
	}
	cabins := make([]entity.CabinClass, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		cabin, err := entity.ParseCabinClass(value)
		if err != nil {
			return nil, pkgerror.NewBusiness("invalid cabin "+strconv.Quote(value), pkgerror.CodeInvalidInput)
		}
		cabins = append(cabins, cabin)
	}
	return cabins, nil
}

func parseDealsInput(r *http.Request) (usecase.DealsInput, error) {
	q := r.URL.Query()

	origin := strings.TrimSpace(q.Get("origin"))
	destination := strings.TrimSpace(q.Get("destination"))
	if origin == "" || destination == "" {
		return usecase.DealsInput{}, pkgerror.NewBusiness("origin and destination are required", pkgerror.CodeInvalidInput)
	}

	departStr := strings.TrimSpace(firstNotEmpty(q.Get("depart_date"), q.Get("departDate")))
	if departStr == "" {
		return usecase.DealsInput{}, pkgerror.NewBusiness("depart_date is required", pkgerror.CodeInvalidInput)
	}
	depart, err := parseDate("depart_date", departStr)
	if err != nil {
		return usecase.DealsInput{}, err
	}

	returnStr := firstNotEmpty(q.Get("return_date"), q.Get("returnDate"))
	ret, err := parseOptionalDate("return_date", &returnStr)
	if err != nil {
		return usecase.DealsInput{}, err
	}

	passengers := 1
	if err := parseIntParam(q, "passengers", "pax", "invalid passengers", &passengers); err != nil {
		return usecase.DealsInput{}, err
	}
	if passengers <= 0 {
		return usecase.DealsInput{}, pkgerror.NewBusiness("invalid passengers", pkgerror.CodeInvalidInput)
	}

	flexDays := 0
	if err := parseIntParam(q, "flex_days", "flexDays", "invalid flex_days", &flexDays); err != nil {
		return usecase.DealsInput{}, err
	}

	cabin := entity.CabinEconomy
	if value := strings.TrimSpace(firstNotEmpty(q.Get("cabin"), q.Get("cabin_class"))); value != "" {
		cabin, err = entity.ParseCabinClass(value)
		if err != nil {
			return usecase.DealsInput{}, pkgerror.NewBusiness("invalid cabin", pkgerror.CodeInvalidInput)
		}
	}

	alternatives, err := parseCabins(parseList(q, "alternative_cabins", "alt_cabins"))
	if err != nil {
		return usecase.DealsInput{}, err
	}

	includeBonuses := false
	if value := strings.TrimSpace(firstNotEmpty(q.Get("include_transfer_bonuses"), q.Get("include_bonuses"))); value != "" {
		includeBonuses, err = strconv.ParseBool(value)
		if err != nil {
			return usecase.DealsInput{}, pkgerror.NewBusiness("invalid include_transfer_bonuses", pkgerror.CodeInvalidInput)
		}
	}

	var scenarios []float64
	for _, value := range parseList(q, "bonus_scenarios", "transfer_bonus_scenarios") {
		pct, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return usecase.DealsInput{}, pkgerror.NewBusiness("invalid bonus_scenarios", pkgerror.CodeInvalidInput)
		}
		scenarios = append(scenarios, pct)
	}

	return usecase.DealsInput{
		Origin:                 origin,
		Destination:            destination,
		DepartDate:             depart,
		ReturnDate:             ret,
		Cabin:                  cabin,
		Passengers:             passengers,
		Program:                strings.TrimSpace(q.Get("program")),
		Provider:               strings.TrimSpace(q.Get("provider")),
		FlexDays:               flexDays,
		AlternativeCabins:      alternatives,
		IncludeTransferBonuses: includeBonuses,
		TransferBonusScenarios: scenarios,
	}, nil
}

func parseIntParam(q url.Values, key, altKey, errMsg string, target *int) error {
	value := strings.TrimSpace(firstNotEmpty(q.Get(key), q.Get(altKey)))
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return pkgerror.NewBusiness(errMsg, pkgerror.CodeInvalidInput)
	}
	*target = parsed
	return nil
}

func parseList(q url.Values, key, altKey string) []string {
	value := strings.TrimSpace(firstNotEmpty(q.Get(key), q.Get(altKey)))
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

func firstNotEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// mapError turns usecase errors into pkgerror values so the router can pick
// the status code. Anything unrecognised stays a server error.
func mapError(err error) error {
	var rateLimited *provider.RateLimitedError
	switch {
	case errors.Is(err, valuation.ErrInvalidInput):
		return pkgerror.NewBusiness(err.Error(), pkgerror.CodeInvalidInput).WithCause(err)
	case errors.As(err, &rateLimited):
		seconds := int(math.Ceil(rateLimited.RetryAfter.Seconds()))
		return pkgerror.NewBusiness("provider "+rateLimited.Provider+" is rate limited", pkgerror.CodeRateLimited).
			WithCause(err).
			WithMeta("retry_after_seconds", strconv.Itoa(max(seconds, 1)))
	case errors.Is(err, provider.ErrRateLimited):
		return pkgerror.NewBusiness("provider is rate limited", pkgerror.CodeRateLimited).WithCause(err)
	case errors.Is(err, provider.ErrProviderNotFound):
		return pkgerror.NewBusiness("provider not found", pkgerror.CodeNotFound).WithCause(err)
	case errors.Is(err, provider.ErrDuplicateProvider):
		return pkgerror.NewBusiness("provider already registered", pkgerror.CodeConflict).WithCause(err)
	case errors.Is(err, provider.ErrNoHealthyProvider):
		return pkgerror.NewBusiness("no healthy provider available", pkgerror.CodeUnavailable).WithCause(err)
	case errors.Is(err, provider.ErrProviderUnreachable),
		errors.Is(err, provider.ErrTemporary),
		errors.Is(err, context.DeadlineExceeded):
		return pkgerror.NewBusiness("provider unavailable, try again later", pkgerror.CodeUnavailable).WithCause(err)
	default:
		return pkgerror.NewServer(err)
	}
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func formatOptionalTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	value := t.Format(time.RFC3339)
	return &value
}
