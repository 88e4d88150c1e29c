package entity

import (
	"fmt"
	"strings"
	"time"
)

// TransferPartner describes moving points from SourceProgram into
// DestinationProgram. Ratio is destination points received per source point
// sent, so 1.0 is a 1:1 partner and 0.5 a 2:1 partner.
type TransferPartner struct {
	SourceProgram      string          `json:"source_program"`
	DestinationProgram string          `json:"destination_program"`
	Ratio              float64         `json:"ratio"`
	TransferTime       string          `json:"transfer_time"`
	Bonuses            []TransferBonus `json:"bonuses,omitempty"`
}

type TransferBonus struct {
	Multiplier      float64    `json:"multiplier"`
	MinimumTransfer *int       `json:"minimum_transfer,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Description     string     `json:"description"`
}

// ActiveAt reports whether the bonus can still be used on t.
func (b TransferBonus) ActiveAt(t time.Time) bool {
	return b.ExpiresAt == nil || t.Before(*b.ExpiresAt)
}

// Applies reports whether a transfer of sourcePoints qualifies for the bonus.
func (b TransferBonus) Applies(sourcePoints int) bool {
	return b.MinimumTransfer == nil || sourcePoints >= *b.MinimumTransfer
}

// SimulatedBonus builds a hypothetical bonus of percent (25 means +25%).
func SimulatedBonus(percent float64) TransferBonus {
	return TransferBonus{
		Multiplier:  1 + percent/100,
		Description: fmt.Sprintf("hypothetical %g%% transfer bonus", percent),
	}
}

// Instant reports whether the transfer time reads as immediate.
func (p TransferPartner) Instant() bool {
	return InstantTransfer(p.TransferTime)
}

func InstantTransfer(transferTime string) bool {
	switch strings.ToLower(strings.TrimSpace(transferTime)) {
	case "", "instant", "immediate", "instantly":
		return true
	default:
		return false
	}
}

// Program is a loyalty-program directory entry used when writing booking
// instructions.
type Program struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	URL         string `json:"url" mapstructure:"url"`
	Phone       string `json:"phone,omitempty" mapstructure:"phone"`
	TypicalWait string `json:"typical_wait,omitempty" mapstructure:"typical_wait"`
}
