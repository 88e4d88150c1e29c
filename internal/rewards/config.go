package rewards

import (
	"fmt"
	"strings"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/pkg/pkgconfig"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
)

const prefix = "modules.rewards."

type partnerConfig struct {
	SourceProgram      string        `mapstructure:"source_program"`
	DestinationProgram string        `mapstructure:"destination_program"`
	Ratio              float64       `mapstructure:"ratio"`
	TransferTime       string        `mapstructure:"transfer_time"`
	Bonuses            []bonusConfig `mapstructure:"bonuses"`
}

type bonusConfig struct {
	Multiplier      float64 `mapstructure:"multiplier"`
	MinimumTransfer int     `mapstructure:"minimum_transfer"`
	ExpiresAt       string  `mapstructure:"expires_at"`
	Description     string  `mapstructure:"description"`
}

func loadProviders(cfg pkgconfig.Config) ([]entity.ProviderConfig, error) {
	var providers []entity.ProviderConfig
	if err := cfg.UnmarshalKey(prefix+"providers", &providers); err != nil {
		return nil, fmt.Errorf("read providers: %w", err)
	}
	return providers, nil
}

func loadPartners(cfg pkgconfig.Config) ([]entity.TransferPartner, error) {
	var raw []partnerConfig
	if err := cfg.UnmarshalKey(prefix+"transfer_partners", &raw); err != nil {
		return nil, fmt.Errorf("read transfer partners: %w", err)
	}

	partners := make([]entity.TransferPartner, 0, len(raw))
	for _, p := range raw {
		if p.Ratio <= 0 {
			return nil, fmt.Errorf("transfer partner %s -> %s: ratio must be positive", p.SourceProgram, p.DestinationProgram)
		}
		partner := entity.TransferPartner{
			SourceProgram:      p.SourceProgram,
			DestinationProgram: p.DestinationProgram,
			Ratio:              p.Ratio,
			TransferTime:       p.TransferTime,
		}
		for _, b := range p.Bonuses {
			bonus := entity.TransferBonus{Multiplier: b.Multiplier, Description: b.Description}
			if b.MinimumTransfer > 0 {
				minimum := b.MinimumTransfer
				bonus.MinimumTransfer = &minimum
			}
			if s := strings.TrimSpace(b.ExpiresAt); s != "" {
				expires, err := parseExpiry(s)
				if err != nil {
					return nil, fmt.Errorf("transfer bonus %q: %w", b.Description, err)
				}
				bonus.ExpiresAt = &expires
			}
			partner.Bonuses = append(partner.Bonuses, bonus)
		}
		partners = append(partners, partner)
	}
	return partners, nil
}

// parseExpiry accepts a full timestamp or a bare date, which expires at the
// end of that day in UTC.
func parseExpiry(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expires_at %q", value)
	}
	return day.Add(24*time.Hour - time.Nanosecond), nil
}

func loadPrograms(cfg pkgconfig.Config) ([]entity.Program, error) {
	var programs []entity.Program
	if err := cfg.UnmarshalKey(prefix+"programs", &programs); err != nil {
		return nil, fmt.Errorf("read programs: %w", err)
	}
	return programs, nil
}

func loadEngineOptions(cfg pkgconfig.Config) ([]valuation.Option, error) {
	var opts []valuation.Option

	if cfg.IsSet(prefix + "valuation.thresholds") {
		thresholds := valuation.DefaultThresholds()
		if err := cfg.UnmarshalKey(prefix+"valuation.thresholds", &thresholds); err != nil {
			return nil, fmt.Errorf("read thresholds: %w", err)
		}
		opts = append(opts, valuation.WithThresholds(thresholds))
	}

	var cabins map[string]valuation.Thresholds
	if err := cfg.UnmarshalKey(prefix+"valuation.cabins", &cabins); err != nil {
		return nil, fmt.Errorf("read cabin thresholds: %w", err)
	}
	for name, thresholds := range cabins {
		cabin, err := entity.ParseCabinClass(name)
		if err != nil {
			return nil, fmt.Errorf("cabin thresholds: %w", err)
		}
		opts = append(opts, valuation.WithCabinThresholds(cabin, thresholds))
	}

	if s := cfg.GetString(prefix + "valuation.good_deal_cutoff"); s != "" {
		cutoff, err := entity.ParseValueRating(s)
		if err != nil {
			return nil, fmt.Errorf("good deal cutoff: %w", err)
		}
		opts = append(opts, valuation.WithGoodDealCutoff(cutoff))
	}

	return opts, nil
}

func durationOr(cfg pkgconfig.Config, key string, fallback time.Duration) time.Duration {
	if d := cfg.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
