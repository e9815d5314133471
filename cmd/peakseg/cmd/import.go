package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/peakseg/pkg/reader/peaklist"
)

func (a *app) newImportCmd() *cobra.Command {
	var (
		inputFile   string
		name        string
		precursorMZ float64
		rt          float64
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a peak list into the database",
		Long: `Import a two-column peak list (m/z and intensity per line, separated by
whitespace, comma or tab) as a named spectrum. Importing under an existing
name replaces the stored spectrum.

Examples:
  # Import using the file name as the spectrum name
  peakseg import --in caffeine.txt

  # Import with an explicit name and precursor
  peakseg import --in scan42.csv --name caffeine --precursor 195.0877`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate input file exists
			if _, err := os.Stat(inputFile); os.IsNotExist(err) {
				return fmt.Errorf("input file does not exist: %s", inputFile)
			}

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
			}

			inFile, err := os.Open(inputFile)
			if err != nil {
				return fmt.Errorf("failed to open input file: %w", err)
			}
			defer inFile.Close()

			spec, err := peaklist.Read(inFile, name)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", inputFile, err)
			}
			spec.SourceFile = inputFile
			spec.PrecursorMZ = precursorMZ
			if cmd.Flags().Changed("rt") {
				spec.RetentionTime = &rt
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SaveSpectrum(spec); err != nil {
				return err
			}
			if err := store.LogOperation(name, "import", fmt.Sprintf("in=%s peaks=%d", inputFile, len(spec.Peaks))); err != nil {
				return err
			}

			a.log.Info().Str("spectrum", name).Int("peaks", len(spec.Peaks)).Str("db", store.Path()).Msg("Imported spectrum")
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d peaks\n", name, len(spec.Peaks))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "in", "i", "", "Input peak list path (required)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Spectrum name (default: input file name)")
	cmd.Flags().Float64Var(&precursorMZ, "precursor", 0, "Precursor m/z (0 = unknown)")
	cmd.Flags().Float64Var(&rt, "rt", 0, "Retention time in minutes")
	cmd.MarkFlagRequired("in")

	return cmd
}
