package valuation

import (
	"math"
	"strconv"
	"strings"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// reasons explains a calculation. Order is fixed: cpp, savings, cabin,
// transfer, segments.
func (e *Engine) reasons(it entity.FlightItinerary, calc entity.ValueCalculation, thresholds Thresholds) []string {
	p := message.NewPrinter(language.English)
	money := moneyFormat(p, it.CurrencyCode())

	out := []string{
		cppReason(p, calc, thresholds),
		savingsReason(p, money, calc),
	}
	if reason := e.cabinReason(it.Cabin, calc.Rating); reason != "" {
		out = append(out, reason)
	}
	if reason := transferReason(calc.Award); reason != "" {
		out = append(out, reason)
	}
	if !it.Contiguous() {
		out = append(out, p.Sprintf("segments do not form a continuous route from %s to %s; check every connection before booking",
			strings.ToUpper(it.Origin), strings.ToUpper(it.Destination)))
	}
	return out
}

func cppReason(p *message.Printer, calc entity.ValueCalculation, thresholds Thresholds) string {
	if calc.Award.PointsCost == 0 {
		return "no points are redeemed, so value per point cannot be rated"
	}
	if calc.Rating == entity.RatingPoor {
		return p.Sprintf("%.2f cents/point is below the %.2f threshold for %s",
			calc.CPP, thresholds.Fair, entity.RatingFair.Title())
	}

	verb := "meets"
	if calc.CPP > thresholds.Min(calc.Rating) {
		verb = "exceeds"
	}
	return p.Sprintf("%.2f cents/point %s the %.2f threshold for %s",
		calc.CPP, verb, thresholds.Min(calc.Rating), calc.Rating.Title())
}

func savingsReason(p *message.Printer, money func(float64) string, calc entity.ValueCalculation) string {
	switch {
	case calc.Cash.TotalCost == 0:
		return "no cash fare to compare against"
	case calc.Savings > 0:
		return p.Sprintf("saves %s versus cash (%.1f%%)", money(calc.Savings), calc.SavingsPercent*100)
	case calc.Savings == 0:
		return "costs the same as paying cash"
	default:
		return p.Sprintf("costs %s more than paying cash; the cash fare is the better buy", money(-calc.Savings))
	}
}

func (e *Engine) cabinReason(cabin entity.CabinClass, rating entity.ValueRating) string {
	label := cabinLabel(cabin)
	if _, ok := e.cabinThresholds[cabin]; ok {
		return "rated against " + label + " thresholds"
	}
	switch {
	case cabin.Premium():
		return label + " awards usually return more per point than economy"
	case cabin == entity.CabinEconomy && rating >= entity.RatingVeryGood:
		return "strong value for an economy award"
	default:
		return ""
	}
}

func transferReason(award entity.AwardPricing) string {
	if !award.TransferRequired || award.TransferFrom == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("requires a points transfer from ")
	b.WriteString(*award.TransferFrom)
	if award.TransferRatio != nil {
		b.WriteString(" at " + ratioText(*award.TransferRatio))
	}
	if award.TransferTime != nil && !entity.InstantTransfer(*award.TransferTime) {
		b.WriteString(" (" + *award.TransferTime + ")")
	}
	b.WriteString("; confirm award space before transferring")
	return b.String()
}

// ratioText renders destination points per source point as "1:1", "2:1"
// or "1:1.25".
func ratioText(ratio float64) string {
	if ratio >= 1 {
		return "1:" + trimFloat(ratio)
	}
	return trimFloat(1/ratio) + ":1"
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func cabinLabel(cabin entity.CabinClass) string {
	return strings.ReplaceAll(string(cabin), "_", " ")
}

// moneyFormat prints amounts with the currency symbol and locale grouping.
func moneyFormat(p *message.Printer, code string) func(float64) string {
	symbol := code + " "
	if unit, err := currency.ParseISO(code); err == nil {
		symbol = p.Sprint(currency.Symbol(unit))
	}
	return func(v float64) string {
		return symbol + p.Sprintf("%.2f", v)
	}
}

// FormatMoney prints amount in the currency named by code, e.g. "$1,760.00".
func FormatMoney(code string, amount float64) string {
	return moneyFormat(message.NewPrinter(language.English), code)(amount)
}
