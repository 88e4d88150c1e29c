package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/entity"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/usecase"
	"github.com/ehfuzzz/Mile-Buy-Club-sub002/internal/rewards/valuation"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	file    string
	cutoff  string
	asJSON  bool
	noColor bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "dealcalc",
		Short:         "Values award redemptions against their cash fare",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVarP(&flags.file, "file", "f", "", "path to the JSON deal file")
	root.PersistentFlags().StringVar(&flags.cutoff, "cutoff", "", "lowest rating that counts as a good deal (default good)")
	root.PersistentFlags().BoolVar(&flags.asJSON, "json", false, "print the result as JSON")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable coloured output")
	_ = root.MarkPersistentFlagRequired("file")

	root.AddCommand(newEvaluateCmd(flags), newOptimizeCmd(flags))
	return root
}

func newEvaluateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Rate one award booking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			df, uc, err := prepare(flags)
			if err != nil {
				return err
			}
			it, err := df.itinerary()
			if err != nil {
				return err
			}

			out, err := uc.Evaluate(cmd.Context(), usecase.EvaluateInput{Itinerary: it, Award: df.Award, Cash: df.Cash})
			if err != nil {
				return err
			}
			if flags.asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			printItinerary(w, it)
			printCalculation(w, it.CurrencyCode(), out.Calculation)
			printInstructions(w, out.Instructions)
			return nil
		},
	}
}

type optimizeFlags struct {
	flexDays          int
	alternativeCabins []string
	bonusScenarios    []float64
	includeBonuses    bool
	evaluationDate    string
}

func newOptimizeCmd(flags *rootFlags) *cobra.Command {
	opt := &optimizeFlags{}

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search transfers, bonuses, cabins and dates for the best redemption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			df, uc, err := prepare(flags)
			if err != nil {
				return err
			}
			it, err := df.itinerary()
			if err != nil {
				return err
			}
			options, err := opt.options(df)
			if err != nil {
				return err
			}

			out, err := uc.Optimize(cmd.Context(), usecase.OptimizeInput{
				Itinerary: it,
				Award:     df.Award,
				Cash:      df.Cash,
				Partners:  df.Partners,
				Options:   options,
			})
			if err != nil {
				return err
			}
			if flags.asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			printItinerary(w, out.Itinerary)
			fmt.Fprintf(w, "%s\n", out.Summary)
			fmt.Fprintf(w, "Baseline: %.2f cents/point (%s)\n", out.Baseline.CPP, ratingColor(out.Baseline.Rating).Sprint(out.Baseline.Rating.Title()))
			printCalculation(w, out.Itinerary.CurrencyCode(), out.Calculation)
			printInstructions(w, out.Instructions)
			return nil
		},
	}

	cmd.Flags().IntVar(&opt.flexDays, "flex-days", 0, "days either side of the departure to consider")
	cmd.Flags().StringSliceVar(&opt.alternativeCabins, "alt-cabin", nil, "other cabins to consider")
	cmd.Flags().Float64SliceVar(&opt.bonusScenarios, "bonus", nil, "hypothetical transfer bonus percentages, e.g. 25,40")
	cmd.Flags().BoolVar(&opt.includeBonuses, "include-bonuses", false, "apply the active bonuses listed in the deal file")
	cmd.Flags().StringVar(&opt.evaluationDate, "on", "", "date (YYYY-MM-DD) that decides which bonuses are active")
	return cmd
}

func (o *optimizeFlags) options(df *dealFile) (valuation.Options, error) {
	cabins := make([]entity.CabinClass, 0, len(o.alternativeCabins))
	for _, value := range o.alternativeCabins {
		cabin, err := entity.ParseCabinClass(value)
		if err != nil {
			return valuation.Options{}, err
		}
		cabins = append(cabins, cabin)
	}

	quotes, err := df.quotes()
	if err != nil {
		return valuation.Options{}, err
	}

	opts := valuation.Options{
		IncludeTransferBonuses: o.includeBonuses,
		TransferBonusScenarios: o.bonusScenarios,
		AlternativeCabins:      cabins,
		FlexDays:               o.flexDays,
		Quotes:                 quotes,
	}
	if o.evaluationDate != "" {
		on, err := time.Parse(time.DateOnly, o.evaluationDate)
		if err != nil {
			return valuation.Options{}, fmt.Errorf("--on: %w", err)
		}
		opts.EvaluationDate = on
	}
	return opts, nil
}

func prepare(flags *rootFlags) (*dealFile, *usecase.Usecase, error) {
	if flags.file == "" {
		return nil, nil, errors.New("a deal file is required (--file)")
	}
	df, err := loadDealFile(flags.file)
	if err != nil {
		return nil, nil, err
	}

	var opts []valuation.Option
	if flags.cutoff != "" {
		cutoff, err := entity.ParseValueRating(flags.cutoff)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, valuation.WithGoodDealCutoff(cutoff))
	}
	engine, err := valuation.NewEngine(opts...)
	if err != nil {
		return nil, nil, err
	}

	uc := usecase.New(usecase.Dependency{
		Engine:    engine,
		Optimizer: valuation.NewOptimizer(engine),
		Partners:  df.Partners,
		Programs:  valuation.NewDirectory(df.Programs),
	})
	return df, uc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
