package inbound

import (
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
)

type ItineraryRequest struct {
	Origin      string                 `json:"origin"`
	Destination string                 `json:"destination"`
	DepartDate  string                 `json:"depart_date"`
	ReturnDate  *string                `json:"return_date"`
	Cabin       string                 `json:"cabin"`
	Passengers  int                    `json:"passengers"`
	Currency    string                 `json:"currency"`
	Segments    []entity.FlightSegment `json:"segments"`
}

type EvaluateRequest struct {
	Itinerary ItineraryRequest    `json:"itinerary"`
	Award     entity.AwardPricing `json:"award"`
	Cash      entity.CashPricing  `json:"cash"`
}

type OptimizeRequest struct {
	Itinerary ItineraryRequest         `json:"itinerary"`
	Award     entity.AwardPricing      `json:"award"`
	Cash      entity.CashPricing       `json:"cash"`
	Partners  []entity.TransferPartner `json:"partners"`
	Options   OptionsRequest           `json:"options"`
}

type OptionsRequest struct {
	IncludeTransferBonuses bool           `json:"include_transfer_bonuses"`
	TransferBonusScenarios []float64      `json:"transfer_bonus_scenarios"`
	AlternativeCabins      []string       `json:"alternative_cabins"`
	FlexDays               int            `json:"flex_days"`
	EvaluationDate         *string        `json:"evaluation_date"`
	Quotes                 []QuoteRequest `json:"quotes"`
}

type QuoteRequest struct {
	Cabin string              `json:"cabin"`
	Date  string              `json:"date"`
	Award entity.AwardPricing `json:"award"`
	Cash  entity.CashPricing  `json:"cash"`
}

type ValuationResponse struct {
	Calculation  entity.ValueCalculation    `json:"calculation"`
	Instructions entity.BookingInstructions `json:"instructions"`
}

type OptimizeResponse struct {
	Calculation  entity.ValueCalculation    `json:"calculation"`
	Baseline     entity.ValueCalculation    `json:"baseline"`
	Itinerary    entity.FlightItinerary     `json:"itinerary"`
	Multiplier   float64                    `json:"multiplier"`
	TransferFrom *string                    `json:"transfer_from,omitempty"`
	Bonus        *string                    `json:"bonus,omitempty"`
	Evaluated    int                        `json:"evaluated"`
	Summary      string                     `json:"summary"`
	Instructions entity.BookingInstructions `json:"instructions"`
}

type DealsResponse struct {
	Query    DealsQueryResponse    `json:"query"`
	Metadata DealsMetadataResponse `json:"metadata"`
	Deals    []DealResponse        `json:"deals"`
}

type DealsQueryResponse struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	DepartDate  string  `json:"depart_date"`
	ReturnDate  *string `json:"return_date,omitempty"`
	Cabin       string  `json:"cabin"`
	Passengers  int     `json:"passengers"`
	Program     string  `json:"program,omitempty"`
}

type DealsMetadataResponse struct {
	Provider      string `json:"provider"`
	AwardsFound   int    `json:"awards_found"`
	QuotesFetched int    `json:"quotes_fetched"`
	QuotesFailed  int    `json:"quotes_failed"`
	QuotesSkipped int    `json:"quotes_skipped"`
	SkippedAwards int    `json:"skipped_awards"`
	Evaluated     int    `json:"combinations_evaluated"`
	SearchTimeMs  int64  `json:"search_time_ms"`
	CacheHit      bool   `json:"cache_hit"`
}

type DealResponse struct {
	Provider     string                     `json:"provider"`
	Program      string                     `json:"program"`
	Itinerary    entity.FlightItinerary     `json:"itinerary"`
	Calculation  entity.ValueCalculation    `json:"calculation"`
	BaselineCPP  float64                    `json:"baseline_cpp"`
	TransferFrom *string                    `json:"transfer_from,omitempty"`
	Bonus        *string                    `json:"bonus,omitempty"`
	Summary      string                     `json:"summary"`
	Instructions entity.BookingInstructions `json:"instructions"`
}

type ProvidersResponse struct {
	Type      string             `json:"type"`
	Providers []ProviderResponse `json:"providers"`
}

type ProviderResponse struct {
	Name                string  `json:"name"`
	State               string  `json:"state"`
	Degraded            bool    `json:"degraded"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	LastCheck           *string `json:"last_check,omitempty"`
	LastLatencyMs       int64   `json:"last_latency_ms"`
	LastError           string  `json:"last_error,omitempty"`
}
