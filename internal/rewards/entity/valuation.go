package entity

import (
	"fmt"
	"strings"
)

// ValueRating is ordered: a higher value is a better redemption.
type ValueRating int

const (
	RatingPoor ValueRating = iota
	RatingFair
	RatingGood
	RatingVeryGood
	RatingExcellent
	RatingExceptional
)

var ratingNames = [...]string{"poor", "fair", "good", "very_good", "excellent", "exceptional"}

func (r ValueRating) String() string {
	if r < RatingPoor || r > RatingExceptional {
		return fmt.Sprintf("rating(%d)", int(r))
	}
	return ratingNames[r]
}

// Title is the rating as shown to people ("very_good" -> "Very Good").
func (r ValueRating) Title() string {
	words := strings.Split(r.String(), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func ParseValueRating(value string) (ValueRating, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for i, name := range ratingNames {
		if name == normalized {
			return ValueRating(i), nil
		}
	}
	return RatingPoor, fmt.Errorf("unknown value rating %q", value)
}

func (r ValueRating) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *ValueRating) UnmarshalText(text []byte) error {
	parsed, err := ParseValueRating(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Quality collapses the six ratings into the four coarse deal tiers.
func (r ValueRating) Quality() DealQuality {
	switch {
	case r >= RatingExcellent:
		return QualityExcellent
	case r >= RatingGood:
		return QualityGood
	case r == RatingFair:
		return QualityFair
	default:
		return QualityPoor
	}
}

type DealQuality string

const (
	QualityExcellent DealQuality = "excellent"
	QualityGood      DealQuality = "good"
	QualityFair      DealQuality = "fair"
	QualityPoor      DealQuality = "poor"
)

// ValueCalculation is built once by the valuation engine and then only read.
type ValueCalculation struct {
	CPP            float64      `json:"cpp"`
	TotalValue     float64      `json:"total_value"`
	Rating         ValueRating  `json:"rating"`
	Award          AwardPricing `json:"award"`
	Cash           CashPricing  `json:"cash"`
	Savings        float64      `json:"savings"`
	SavingsPercent float64      `json:"savings_percent"`
	IsGoodDeal     bool         `json:"is_good_deal"`
	Quality        DealQuality  `json:"deal_quality"`
	Reasons        []string     `json:"reasons"`
}

type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

type BookingStep struct {
	Order      int     `json:"order"`
	Action     string  `json:"action"`
	Detail     *string `json:"detail,omitempty"`
	URL        *string `json:"url,omitempty"`
	Screenshot *string `json:"screenshot,omitempty"`
}

type BookingInstructions struct {
	Steps            []BookingStep `json:"steps"`
	EstimatedMinutes int           `json:"estimated_minutes"`
	Difficulty       Difficulty    `json:"difficulty"`
	Tips             []string      `json:"tips"`
	PhoneNumber      *string       `json:"phone_number,omitempty"`
	TypicalWait      *string       `json:"typical_wait,omitempty"`
}
