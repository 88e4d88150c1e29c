package main

import (
	"fmt"
	"io"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func ratingColor(r entity.ValueRating) *color.Color {
	switch {
	case r >= entity.RatingExcellent:
		return color.New(color.FgGreen, color.Bold)
	case r >= entity.RatingGood:
		return color.New(color.FgGreen)
	case r == entity.RatingFair:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func printItinerary(w io.Writer, it entity.FlightItinerary) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "%s -> %s", it.Origin, it.Destination)
	fmt.Fprintf(w, "  %s  %s  %d pax\n", it.DepartDate.Format(time.DateOnly), it.Cabin, it.Passengers)
}

func printCalculation(w io.Writer, code string, calc entity.ValueCalculation) {
	fmt.Fprintf(w, "Award:  %s points on %s + %s\n",
		printer.Sprintf("%d", calc.Award.PointsCost), calc.Award.Program, valuation.FormatMoney(code, calc.Award.TotalCash))
	fmt.Fprintf(w, "Cash:   %s\n", valuation.FormatMoney(code, calc.Cash.TotalCost))
	fmt.Fprintf(w, "Value:  %.2f cents/point  %s\n", calc.CPP, ratingColor(calc.Rating).Sprint(calc.Rating.Title()))

	verdict := color.New(color.FgRed).Sprint("no")
	if calc.IsGoodDeal {
		verdict = color.New(color.FgGreen, color.Bold).Sprint("yes")
	}
	fmt.Fprintf(w, "Good deal: %s (saves %s, %.1f%%)\n", verdict, valuation.FormatMoney(code, calc.Savings), calc.SavingsPercent*100)

	for _, reason := range calc.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
}

func printInstructions(w io.Writer, in entity.BookingInstructions) {
	fmt.Fprintf(w, "\nHow to book (%s, about %d minutes):\n", in.Difficulty, in.EstimatedMinutes)
	for _, step := range in.Steps {
		fmt.Fprintf(w, "  %d. %s\n", step.Order, step.Action)
		if step.Detail != nil {
			fmt.Fprintf(w, "     %s\n", *step.Detail)
		}
	}
	for _, tip := range in.Tips {
		fmt.Fprintf(w, "  * %s\n", tip)
	}
	if in.PhoneNumber != nil {
		fmt.Fprintf(w, "  Phone: %s", *in.PhoneNumber)
		if in.TypicalWait != nil {
			fmt.Fprintf(w, " (wait %s)", *in.TypicalWait)
		}
		fmt.Fprintln(w)
	}
}
