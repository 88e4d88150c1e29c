package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
)

// dealFile is the JSON document both commands read. Dates are plain
// YYYY-MM-DD strings.
type dealFile struct {
	Itinerary struct {
		Origin      string                 `json:"origin"`
		Destination string                 `json:"destination"`
		DepartDate  string                 `json:"depart_date"`
		ReturnDate  string                 `json:"return_date"`
		Cabin       string                 `json:"cabin"`
		Passengers  int                    `json:"passengers"`
		Currency    string                 `json:"currency"`
		Segments    []entity.FlightSegment `json:"segments"`
	} `json:"itinerary"`
	Award    entity.AwardPricing      `json:"award"`
	Cash     entity.CashPricing       `json:"cash"`
	Partners []entity.TransferPartner `json:"partners"`
	Programs []entity.Program         `json:"programs"`
	Quotes   []struct {
		Cabin string              `json:"cabin"`
		Date  string              `json:"date"`
		Award entity.AwardPricing `json:"award"`
		Cash  entity.CashPricing  `json:"cash"`
	} `json:"quotes"`
}

func loadDealFile(path string) (*dealFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deal file: %w", err)
	}
	var df dealFile
	if err := json.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("parse deal file %s: %w", path, err)
	}
	return &df, nil
}

func (df *dealFile) itinerary() (entity.FlightItinerary, error) {
	in := df.Itinerary

	depart, err := time.Parse(time.DateOnly, strings.TrimSpace(in.DepartDate))
	if err != nil {
		return entity.FlightItinerary{}, fmt.Errorf("itinerary depart_date: %w", err)
	}

	it := entity.FlightItinerary{
		Origin:      strings.ToUpper(in.Origin),
		Destination: strings.ToUpper(in.Destination),
		DepartDate:  depart,
		Cabin:       entity.CabinEconomy,
		Passengers:  max(in.Passengers, 1),
		Segments:    in.Segments,
		Currency:    strings.ToUpper(in.Currency),
	}
	if in.Cabin != "" {
		if it.Cabin, err = entity.ParseCabinClass(in.Cabin); err != nil {
			return entity.FlightItinerary{}, err
		}
	}
	if in.ReturnDate != "" {
		ret, err := time.Parse(time.DateOnly, in.ReturnDate)
		if err != nil {
			return entity.FlightItinerary{}, fmt.Errorf("itinerary return_date: %w", err)
		}
		it.ReturnDate = &ret
	}
	return it, nil
}

func (df *dealFile) quotes() (map[valuation.QuoteKey]valuation.Quote, error) {
	if len(df.Quotes) == 0 {
		return nil, nil
	}
	quotes := make(map[valuation.QuoteKey]valuation.Quote, len(df.Quotes))
	for _, q := range df.Quotes {
		cabin, err := entity.ParseCabinClass(q.Cabin)
		if err != nil {
			return nil, fmt.Errorf("quote: %w", err)
		}
		date, err := time.Parse(time.DateOnly, q.Date)
		if err != nil {
			return nil, fmt.Errorf("quote date: %w", err)
		}
		quotes[valuation.NewQuoteKey(cabin, date)] = valuation.Quote{Award: q.Award, Cash: q.Cash}
	}
	return quotes, nil
}
