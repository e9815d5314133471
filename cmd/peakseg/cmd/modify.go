package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/peakseg/pkg/config"
)

func (a *app) newBaselineCmd() *cobra.Command {
	var (
		name   string
		amount float64
		save   bool
		rng    rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Subtract a constant baseline from a range of peaks",
		Long: `Subtract a constant from the intensity of every peak in a range, selected
by index (--from/--to) or by m/z (--min-mz/--max-mz). The whole spectrum is
used when no range is given. Intensities that drop below zero are clamped.

Without --save the result is only reported. With --save the stored spectrum
is replaced and the change is recorded in its history.

Examples:
  peakseg baseline --name caffeine --amount 50
  peakseg baseline --name caffeine --amount 20 --min-mz 100 --max-mz 150 --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount < 0 {
				return fmt.Errorf("amount must be non-negative, got %g", amount)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			prof, err := a.loadProfile(store, name)
			if err != nil {
				return err
			}

			l, r := rng.resolve(cmd, prof)
			if err := prof.SubtractBaseline(l, r, amount); err != nil {
				return err
			}
			clamped, err := prof.ClampNegative()
			if err != nil {
				return err
			}
			if clamped > 0 {
				a.log.Warn().Str("spectrum", name).Int("peaks", clamped).Msg("Clamped negative intensities to zero")
			}

			span, err := prof.Intensity(l, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s [%d, %d) after baseline %g: %s\n", name, l, r, amount, formatSpan(span))

			if !save {
				return nil
			}

			spec, err := prof.Spectrum()
			if err != nil {
				return err
			}
			if err := store.SaveSpectrum(spec); err != nil {
				return err
			}
			detail := fmt.Sprintf("amount=%g range=[%d,%d) clamped=%d", amount, l, r, clamped)
			if err := store.LogOperation(name, "baseline", detail); err != nil {
				return err
			}
			a.log.Info().Str("spectrum", name).Str("detail", detail).Msg("Saved baseline-corrected spectrum")
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Spectrum name (required)")
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "Intensity to subtract from each peak (required)")
	cmd.Flags().BoolVar(&save, "save", false, "Write the corrected spectrum back to the database")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("amount")
	rng.register(cmd)

	return cmd
}

func (a *app) newFilterCmd() *cobra.Command {
	var name, outName string

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Filter the peaks of a stored spectrum",
		Long: `Filter a stored spectrum and store the result. Filters run in order:
baseline subtraction, percent-of-base-peak cutoff, then top-N selection.
Defaults come from the filter section of the config file or PEAKSEG_FILTER_*
environment variables; flags override both.

Examples:
  # Keep the 20 most intense peaks above 1% of the base peak
  peakseg filter --name caffeine --cutoff 1 --top-n 20

  # Store the result under a new name
  peakseg filter --name caffeine --baseline 10 --out caffeine-clean`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filterConfig := a.cfg.Filter()
			if err := filterConfig.Validate(); err != nil {
				return fmt.Errorf("invalid filter configuration: %w", err)
			}
			if outName == "" {
				outName = name
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			spec, err := store.LoadSpectrum(name)
			if err != nil {
				return err
			}
			before := len(spec.Peaks)

			if err := filterConfig.Apply(spec); err != nil {
				return fmt.Errorf("failed to filter %s: %w", name, err)
			}
			if len(spec.Peaks) == 0 {
				return fmt.Errorf("filter removed every peak from %s", name)
			}
			spec.Name = outName

			if err := store.SaveSpectrum(spec); err != nil {
				return err
			}
			detail := fmt.Sprintf("from=%s baseline=%g cutoff=%g top_n=%d kept=%d/%d",
				name, filterConfig.Baseline, filterConfig.IntensityCutoff, filterConfig.TopN, len(spec.Peaks), before)
			if err := store.LogOperation(outName, "filter", detail); err != nil {
				return err
			}

			a.log.Info().Str("spectrum", outName).Int("before", before).Int("after", len(spec.Peaks)).Msg("Filtered spectrum")
			fmt.Fprintf(cmd.OutOrStdout(), "Filtered %s -> %s: kept %d of %d peaks\n", name, outName, len(spec.Peaks), before)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Spectrum name (required)")
	cmd.Flags().StringVarP(&outName, "out", "o", "", "Name for the filtered spectrum (default: replace input)")
	cmd.Flags().Float64("baseline", 0, "Subtract from every peak, clamping at zero")
	cmd.Flags().Float64("cutoff", 0, "Keep peaks at or above this % of base peak")
	cmd.Flags().Int("top-n", 0, "Keep only the N most intense peaks (0 = no limit)")
	cmd.MarkFlagRequired("name")
	a.bind(config.KeyFilterBaseline, cmd.Flags().Lookup("baseline"))
	a.bind(config.KeyFilterCutoff, cmd.Flags().Lookup("cutoff"))
	a.bind(config.KeyFilterTopN, cmd.Flags().Lookup("top-n"))

	return cmd
}

func (a *app) newDeleteCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stored spectrum and its history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteSpectrum(name); err != nil {
				return fmt.Errorf("failed to delete %s: %w", name, err)
			}

			a.log.Info().Str("spectrum", name).Msg("Deleted spectrum")
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Spectrum name (required)")
	cmd.MarkFlagRequired("name")

	return cmd
}
