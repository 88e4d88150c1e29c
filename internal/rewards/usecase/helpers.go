package usecase

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
)

func buildCacheKey(in DealsInput, q entity.AvailabilityQuery) string {
	return fmt.Sprintf(
		"%s|%s|%s|%s|%d|%s|%s|%s|%d|%s|%t|%s",
		q.Origin,
		q.Destination,
		q.DepartDate.Format(time.DateOnly),
		formatOptionalDate(q.ReturnDate),
		q.Passengers,
		q.Cabin,
		q.Program,
		strings.ToLower(strings.TrimSpace(in.Provider)),
		in.FlexDays,
		formatCabins(in.AlternativeCabins),
		in.IncludeTransferBonuses,
		formatScenarios(in.TransferBonusScenarios),
	)
}

func formatOptionalDate(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format(time.DateOnly)
}

func formatCabins(values []entity.CabinClass) string {
	if len(values) == 0 {
		return ""
	}
	clean := make([]string, 0, len(values))
	for _, value := range values {
		clean = append(clean, string(value))
	}
	sort.Strings(clean)
	return strings.Join(clean, ",")
}

func formatScenarios(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	parts := make([]string, 0, len(sorted))
	for _, v := range sorted {
		parts = append(parts, fmt.Sprintf("%g", v))
	}
	return strings.Join(parts, ",")
}

// itineraryFor fills whatever the provider left out of its itinerary from the
// query that produced it.
func itineraryFor(q entity.AvailabilityQuery, it entity.FlightItinerary) entity.FlightItinerary {
	if it.Origin == "" {
		it.Origin = q.Origin
	}
	if it.Destination == "" {
		it.Destination = q.Destination
	}
	if it.DepartDate.IsZero() {
		it.DepartDate = q.DepartDate
	}
	if it.ReturnDate == nil {
		it.ReturnDate = q.ReturnDate
	}
	if it.Cabin == "" {
		it.Cabin = q.Cabin
	}
	if it.Passengers < 1 {
		it.Passengers = q.Passengers
	}
	return it
}

// CloneDealsOutput copies the parts of an output a caller may change.
func CloneDealsOutput(value *DealsOutput) *DealsOutput {
	if value == nil {
		return nil
	}
	clone := &DealsOutput{
		Query:    value.Query,
		Metadata: value.Metadata,
		Deals:    make([]Deal, len(value.Deals)),
	}
	copy(clone.Deals, value.Deals)
	return clone
}
