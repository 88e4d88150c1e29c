package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"
)

const DefaultCurrency = "USD"

type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

func ParseCabinClass(value string) (CabinClass, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch CabinClass(normalized) {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return CabinClass(normalized), nil
	case "premium":
		return CabinPremiumEconomy, nil
	default:
		return "", fmt.Errorf("unknown cabin class %q", value)
	}
}

// Premium reports whether award charts price the cabin well above economy.
func (c CabinClass) Premium() bool {
	return c == CabinBusiness || c == CabinFirst
}

type FlightSegment struct {
	Origin       string     `json:"origin"`
	Destination  string     `json:"destination"`
	Date         time.Time  `json:"date"`
	Airline      string     `json:"airline"`
	FlightNumber string     `json:"flight_number"`
	Duration     int        `json:"duration_minutes"`
	Cabin        CabinClass `json:"cabin"`
	Aircraft     *string    `json:"aircraft,omitempty"`
}

type FlightItinerary struct {
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	DepartDate  time.Time       `json:"depart_date"`
	ReturnDate  *time.Time      `json:"return_date,omitempty"`
	Cabin       CabinClass      `json:"cabin"`
	Passengers  int             `json:"passengers"`
	Segments    []FlightSegment `json:"segments,omitempty"`
	Currency    string          `json:"currency,omitempty"`
}

func (it FlightItinerary) Validate() error {
	var errs []error
	if strings.TrimSpace(it.Origin) == "" {
		errs = append(errs, errors.New("origin is required"))
	}
	if strings.TrimSpace(it.Destination) == "" {
		errs = append(errs, errors.New("destination is required"))
	}
	if it.DepartDate.IsZero() {
		errs = append(errs, errors.New("depart date is required"))
	}
	if it.ReturnDate != nil && it.ReturnDate.Before(it.DepartDate) {
		errs = append(errs, errors.New("return date precedes depart date"))
	}
	if it.Passengers < 1 {
		errs = append(errs, errors.New("passengers must be at least 1"))
	}
	if _, err := ParseCabinClass(string(it.Cabin)); err != nil {
		errs = append(errs, err)
	}
	if it.Currency != "" {
		if _, err := currency.ParseISO(it.Currency); err != nil {
			errs = append(errs, fmt.Errorf("currency %q: %w", it.Currency, err))
		}
	}
	return errors.Join(errs...)
}

// CurrencyCode returns the stated currency, falling back to USD.
func (it FlightItinerary) CurrencyCode() string {
	if it.Currency == "" {
		return DefaultCurrency
	}
	return strings.ToUpper(it.Currency)
}

// Contiguous reports whether each segment departs from where the previous one
// landed and the chain runs from Origin to Destination.
func (it FlightItinerary) Contiguous() bool {
	if len(it.Segments) == 0 {
		return true
	}
	if !strings.EqualFold(it.Segments[0].Origin, it.Origin) {
		return false
	}
	for i := 1; i < len(it.Segments); i++ {
		if !strings.EqualFold(it.Segments[i-1].Destination, it.Segments[i].Origin) {
			return false
		}
	}
	// round trips land back at the origin
	last := it.Segments[len(it.Segments)-1].Destination
	return strings.EqualFold(last, it.Destination) || (it.ReturnDate != nil && strings.EqualFold(last, it.Origin))
}

// Shift moves every date in the itinerary by days. Segments are copied.
func (it FlightItinerary) Shift(days int) FlightItinerary {
	shifted := it
	shifted.DepartDate = it.DepartDate.AddDate(0, 0, days)
	if it.ReturnDate != nil {
		ret := it.ReturnDate.AddDate(0, 0, days)
		shifted.ReturnDate = &ret
	}
	if it.Segments != nil {
		shifted.Segments = make([]FlightSegment, len(it.Segments))
		for i, seg := range it.Segments {
			seg.Date = seg.Date.AddDate(0, 0, days)
			shifted.Segments[i] = seg
		}
	}
	return shifted
}

// WithCabin returns a copy flown in cabin, segments included.
func (it FlightItinerary) WithCabin(cabin CabinClass) FlightItinerary {
	changed := it
	changed.Cabin = cabin
	if it.Segments != nil {
		changed.Segments = make([]FlightSegment, len(it.Segments))
		for i, seg := range it.Segments {
			seg.Cabin = cabin
			changed.Segments[i] = seg
		}
	}
	return changed
}
