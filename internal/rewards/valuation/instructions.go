package valuation

import (
	"strings"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Directory looks up loyalty programs by id, case-insensitively.
type Directory map[string]entity.Program

func NewDirectory(programs []entity.Program) Directory {
	d := make(Directory, len(programs))
	for _, p := range programs {
		d[strings.ToLower(strings.TrimSpace(p.ID))] = p
	}
	return d
}

// Lookup returns the program for id, or a bare entry named after id.
func (d Directory) Lookup(id string) entity.Program {
	if p, ok := d[strings.ToLower(strings.TrimSpace(id))]; ok {
		return p
	}
	return entity.Program{ID: id, Name: id}
}

const (
	baseMinutes       = 15
	transferMinutes   = 10
	slowTransferExtra = 15
	segmentMinutes    = 5
)

// BuildInstructions turns a calculation into the steps needed to book it.
func BuildInstructions(it entity.FlightItinerary, calc entity.ValueCalculation, programs Directory) entity.BookingInstructions {
	p := message.NewPrinter(language.English)
	money := moneyFormat(p, it.CurrencyCode())
	award := calc.Award
	dest := programs.Lookup(award.Program)

	transfer := award.TransferRequired && award.TransferFrom != nil
	instant := award.TransferTime == nil || entity.InstantTransfer(*award.TransferTime)

	var steps []entity.BookingStep
	add := func(action, detail, url string) {
		steps = append(steps, entity.BookingStep{
			Order:  len(steps) + 1,
			Action: action,
			Detail: optional(detail),
			URL:    optional(url),
		})
	}

	if transfer {
		source := programs.Lookup(*award.TransferFrom)
		detail := p.Sprintf("Move %d points to %s", award.PointsCost, dest.Name)
		if award.TransferRatio != nil {
			detail += " at " + ratioText(*award.TransferRatio)
		}
		if !instant {
			detail += "; transfers usually take " + *award.TransferTime
		}
		add("Transfer points from "+source.Name+" to "+dest.Name, detail, source.URL)
	}

	search := p.Sprintf("%s to %s on %s in %s for %d passenger",
		strings.ToUpper(it.Origin), strings.ToUpper(it.Destination),
		it.DepartDate.Format(time.DateOnly), cabinLabel(it.Cabin), it.Passengers)
	if it.Passengers != 1 {
		search += "s"
	}
	add("Search award space on "+dest.Name, search, dest.URL)

	add("Select the flights", flightsDetail(it), "")

	if cash := award.CashComponent(); cash > 0 {
		add("Pay taxes and fees", money(cash)+" is due in cash on top of the points", "")
	}

	add("Confirm the booking", "Save the confirmation code and check the ticket shows up with the operating airline", "")

	minutes := baseMinutes + segmentMinutes*max(len(it.Segments)-1, 0)
	difficulty := entity.DifficultyEasy
	if transfer {
		minutes += transferMinutes
		difficulty = entity.DifficultyModerate
		if !instant {
			minutes += slowTransferExtra
		}
	}
	if (transfer && !instant) || len(it.Segments) > 2 {
		difficulty = entity.DifficultyHard
	}

	return entity.BookingInstructions{
		Steps:            steps,
		EstimatedMinutes: minutes,
		Difficulty:       difficulty,
		Tips:             tips(it, calc, transfer),
		PhoneNumber:      optional(dest.Phone),
		TypicalWait:      optional(dest.TypicalWait),
	}
}

func flightsDetail(it entity.FlightItinerary) string {
	if len(it.Segments) == 0 {
		return "Pick the itinerary that matches the searched dates and cabin"
	}
	flights := make([]string, 0, len(it.Segments))
	for _, s := range it.Segments {
		flights = append(flights, s.FlightNumber+" "+strings.ToUpper(s.Origin)+"-"+strings.ToUpper(s.Destination))
	}
	return "Book " + strings.Join(flights, ", ")
}

func tips(it entity.FlightItinerary, calc entity.ValueCalculation, transfer bool) []string {
	var out []string
	if transfer {
		out = append(out, "Transfers cannot be reversed, so hold or confirm award space before moving points")
	}
	if !calc.IsGoodDeal {
		out = append(out, "This redemption is below the good deal cutoff; paying cash and earning points may be better")
	}
	if it.Cabin.Premium() {
		out = append(out, "Premium cabin award seats are released in small numbers; book soon after finding space")
	}
	if len(it.Segments) > 1 {
		out = append(out, "Check minimum connection times between segments")
	}
	return out
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
