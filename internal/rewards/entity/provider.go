package entity

import (
	"fmt"
	"strings"
	"time"
)

type ProviderType string

const (
	ProviderTypeFlight ProviderType = "flight"
	ProviderTypeHotel  ProviderType = "hotel"
)

func ParseProviderType(value string) (ProviderType, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(value))) {
	case ProviderTypeFlight:
		return ProviderTypeFlight, nil
	case ProviderTypeHotel:
		return ProviderTypeHotel, nil
	default:
		return "", fmt.Errorf("unknown provider type %q", value)
	}
}

const (
	ProviderKindHTTP    = "http"
	ProviderKindFixture = "fixture"
)

type ProviderConfig struct {
	Name              string        `mapstructure:"name"`
	Type              ProviderType  `mapstructure:"type"`
	Kind              string        `mapstructure:"kind"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	RequestsPerHour   int           `mapstructure:"requests_per_hour"`
	Programs          []string      `mapstructure:"programs"`
	FixturePath       string        `mapstructure:"fixture_path"`
	// SimulatedLatency and FailureRate only apply to fixture providers.
	SimulatedLatency  time.Duration `mapstructure:"simulated_latency"`
	FailureRate       float64       `mapstructure:"failure_rate"`
}

type HealthState string

const (
	HealthUnknown     HealthState = "unknown"
	HealthHealthy     HealthState = "healthy"
	HealthUnreachable HealthState = "unreachable"
)

type HealthStatus struct {
	State               HealthState   `json:"state"`
	LastCheck           time.Time     `json:"last_check"`
	LastLatency         time.Duration `json:"last_latency"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Degraded            bool          `json:"degraded"`
}

type AvailabilityQuery struct {
	Origin      string
	Destination string
	DepartDate  time.Time
	ReturnDate  *time.Time
	Cabin       CabinClass
	Passengers  int
	Program     string
}

// Key identifies the query for caching.
func (q AvailabilityQuery) Key() string {
	ret := ""
	if q.ReturnDate != nil {
		ret = q.ReturnDate.Format(time.DateOnly)
	}
	return strings.Join([]string{
		strings.ToUpper(q.Origin),
		strings.ToUpper(q.Destination),
		q.DepartDate.Format(time.DateOnly),
		ret,
		string(q.Cabin),
		fmt.Sprintf("%d", q.Passengers),
		strings.ToLower(q.Program),
	}, "|")
}

// Availability is what a provider found for one query, already translated
// from the upstream wire format.
type Availability struct {
	Provider  string          `json:"provider"`
	Itinerary FlightItinerary `json:"itinerary"`
	Awards    []AwardPricing  `json:"awards"`
	Cash      CashPricing     `json:"cash"`
	FetchedAt time.Time       `json:"fetched_at"`
}
