package cmd

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/peakseg/pkg/core"
	"github.com/ChrisMcGann/peakseg/pkg/profile"
)

// rangeFlags selects peaks either by index or by m/z window
type rangeFlags struct {
	from, to     int
	minMZ, maxMZ float64
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.from, "from", 0, "First peak index (inclusive)")
	cmd.Flags().IntVar(&f.to, "to", -1, "Last peak index (exclusive, -1 = end)")
	cmd.Flags().Float64Var(&f.minMZ, "min-mz", 0, "Lower m/z bound (inclusive)")
	cmd.Flags().Float64Var(&f.maxMZ, "max-mz", 0, "Upper m/z bound (inclusive)")
	cmd.MarkFlagsMutuallyExclusive("from", "min-mz")
	cmd.MarkFlagsMutuallyExclusive("to", "max-mz")
}

// resolve returns the half-open index range the flags describe
func (f *rangeFlags) resolve(cmd *cobra.Command, prof *profile.Profile) (l, r int) {
	flags := cmd.Flags()
	if flags.Changed("min-mz") || flags.Changed("max-mz") {
		minMZ, maxMZ := f.minMZ, f.maxMZ
		if !flags.Changed("max-mz") {
			maxMZ = math.Inf(1)
		}
		return prof.IndexRange(minMZ, maxMZ)
	}

	r = f.to
	if r < 0 {
		r = prof.Len()
	}
	return f.from, r
}

func formatSpan(span core.IntensitySpan) string {
	if span.Size == 0 {
		return "peaks=0 sum=0 max=n/a"
	}
	return fmt.Sprintf("peaks=%d sum=%.4f max=%.4f", span.Size, span.Sum, span.Max)
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored spectra",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.ListSpectra()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No spectra stored")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPEAKS\tPRECURSOR\tSOURCE\tMODIFIED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%.4f\t%s\t%s\n", e.Name, e.NumPeaks, e.PrecursorMZ, e.SourceFile, e.ModifiedDate)
			}
			return w.Flush()
		},
	}
}

func (a *app) newQueryCmd() *cobra.Command {
	var (
		name string
		rng  rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Report summed and maximum intensity over a peak range",
		Long: `Report the number of peaks, summed intensity and maximum intensity over a
range of peaks, selected by index (--from/--to) or by m/z (--min-mz/--max-mz).

Examples:
  peakseg query --name caffeine
  peakseg query --name caffeine --from 10 --to 20
  peakseg query --name caffeine --min-mz 100 --max-mz 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			span, err := prof.Intensity(l, r)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s [%d, %d): %s\n", name, l, r, formatSpan(span))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Spectrum name (required)")
	cmd.MarkFlagRequired("name")
	rng.register(cmd)

	return cmd
}

func (a *app) newFindCmd() *cobra.Command {
	var (
		name     string
		fraction float64
		fromEnd  bool
	)

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find the peak where cumulative intensity reaches a fraction of the total",
		Long: `Walk the spectrum in m/z order and report the first peak at which the
running intensity reaches the given fraction of the total. --fraction 0.5
gives the intensity-weighted median peak. --from-end walks down from the
highest m/z instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			prof, err := a.loadProfile(store, name)
			if err != nil {
				return err
			}

			find := prof.CumulativeMZ
			if fromEnd {
				find = prof.TrailingMZ
			}
			peak, index, err := find(fraction)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: index=%d m/z=%.4f intensity=%.4f\n", name, index, peak.MZ, peak.Intensity)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Spectrum name (required)")
	cmd.Flags().Float64VarP(&fraction, "fraction", "f", 0.5, "Fraction of total intensity, in (0, 1]")
	cmd.Flags().BoolVar(&fromEnd, "from-end", false, "Accumulate from the highest m/z down")
	cmd.MarkFlagRequired("name")

	return cmd
}

func (a *app) newBasePeakCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "basepeak",
		Short: "Report the most intense peak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			prof, err := a.loadProfile(store, name)
			if err != nil {
				return err
			}

			peak, index, err := prof.BasePeak()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: index=%d m/z=%.4f intensity=%.4f\n", name, index, peak.MZ, peak.Intensity)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Spectrum name (required)")
	cmd.MarkFlagRequired("name")

	return cmd
}

func (a *app) newSummarizeCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Print summary statistics and change history for a spectrum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			prof, err := a.loadProfile(store, name)
			if err != nil {
				return err
			}

			s, err := prof.Summary()
			if err != nil {
				return err
			}
			ops, err := store.Operations(name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:            %s\n", s.Name)
			fmt.Fprintf(out, "Peaks:           %d\n", s.Peaks)
			fmt.Fprintf(out, "m/z range:       %.4f - %.4f\n", s.MinMZ, s.MaxMZ)
			fmt.Fprintf(out, "Total intensity: %.4f\n", s.Total)
			fmt.Fprintf(out, "Base peak:       m/z %.4f, intensity %.4f (index %d)\n", s.BasePeak.MZ, s.BasePeak.Intensity, s.BaseIndex)
			if s.Total > 0 {
				fmt.Fprintf(out, "Weighted m/z:    %.4f +/- %.4f\n", s.MeanMZ, s.StdDevMZ)
			}
			if len(ops) > 0 {
				fmt.Fprintln(out, "History:")
				for _, op := range ops {
					fmt.Fprintf(out, "  %s  %-9s %s\n", op.CreationDate, op.Operation, op.Detail)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Spectrum name (required)")
	cmd.MarkFlagRequired("name")

	return cmd
}
