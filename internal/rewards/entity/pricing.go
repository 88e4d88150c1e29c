package entity

import (
	"errors"
	"fmt"
	"strings"
)

type AwardPricing struct {
	Program          string   `json:"program"`
	PointsCost       int      `json:"points_cost"`
	Surcharges       float64  `json:"surcharges"`
	Taxes            float64  `json:"taxes"`
	Fees             float64  `json:"fees"`
	TotalCash        float64  `json:"total_cash"`
	TransferRequired bool     `json:"transfer_required"`
	TransferFrom     *string  `json:"transfer_from,omitempty"`
	TransferRatio    *float64 `json:"transfer_ratio,omitempty"`
	TransferTime     *string  `json:"transfer_time,omitempty"`
}

// Validate checks the award on its own. A transfer-required award must name
// its source program and a positive ratio; nothing is inferred when they are
// missing.
func (a AwardPricing) Validate() error {
	var errs []error
	if strings.TrimSpace(a.Program) == "" {
		errs = append(errs, errors.New("award program is required"))
	}
	if a.PointsCost < 0 {
		errs = append(errs, fmt.Errorf("points cost %d is negative", a.PointsCost))
	}
	amounts := []struct {
		name  string
		value float64
	}{
		{"surcharges", a.Surcharges},
		{"taxes", a.Taxes},
		{"fees", a.Fees},
		{"total cash", a.TotalCash},
	}
	for _, amount := range amounts {
		if amount.value < 0 {
			errs = append(errs, fmt.Errorf("award %s is negative", amount.name))
		}
	}
	if a.TransferRequired {
		if a.TransferFrom == nil || strings.TrimSpace(*a.TransferFrom) == "" {
			errs = append(errs, errors.New("transfer required but transfer source is missing"))
		}
		if a.TransferRatio == nil {
			errs = append(errs, errors.New("transfer required but transfer ratio is missing"))
		} else if *a.TransferRatio <= 0 {
			errs = append(errs, fmt.Errorf("transfer ratio %.2f must be positive", *a.TransferRatio))
		}
	}
	return errors.Join(errs...)
}

// CashComponent is the cash still owed when redeeming points.
func (a AwardPricing) CashComponent() float64 {
	return a.Surcharges + a.Taxes + a.Fees
}

type CashPricing struct {
	TotalCost float64 `json:"total_cost"`
	BaseFare  float64 `json:"base_fare"`
	Taxes     float64 `json:"taxes"`
	Fees      float64 `json:"fees"`
	Source    string  `json:"source"`
}

func (c CashPricing) Validate() error {
	var errs []error
	if c.TotalCost < 0 {
		errs = append(errs, errors.New("cash total cost is negative"))
	}
	if c.BaseFare < 0 || c.Taxes < 0 || c.Fees < 0 {
		errs = append(errs, errors.New("cash fare components must not be negative"))
	}
	return errors.Join(errs...)
}
