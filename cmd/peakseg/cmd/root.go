// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ChrisMcGann/peakseg/pkg/config"
	"github.com/ChrisMcGann/peakseg/pkg/profile"
	"github.com/ChrisMcGann/peakseg/pkg/store/sqlite"
)

// app carries state shared by every subcommand of one invocation
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	cfgFile string
}

// Execute runs the CLI with os.Args
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree with fresh flag state
func NewRootCmd() *cobra.Command {
	a := &app{cfg: config.New()}

	rootCmd := &cobra.Command{
		Use:   "peakseg",
		Short: "PeakSeg - Spectrum intensity range query and baseline tool",
		Long: `PeakSeg stores centroided spectra in a SQLite database and answers
intensity questions over them in logarithmic time:

- Summed and maximum intensity over index ranges or m/z windows
- Baseline subtraction over index ranges or m/z windows
- Cumulative-intensity boundaries (e.g. the intensity-weighted median m/z)
- Base peak lookup and peak filtering (baseline, % cutoff, top-N)`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfgFile != "" {
				if err := a.cfg.LoadFromFile(a.cfgFile); err != nil {
					return fmt.Errorf("failed to load config %s: %w", a.cfgFile, err)
				}
			}
			a.log = a.cfg.CreateLoggerTo(cmd.ErrOrStderr())
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (YAML, TOML or JSON)")
	flags.String("db", "peakseg.db", "SQLite database path (env PEAKSEG_STORE_PATH)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	a.bind(config.KeyStorePath, flags.Lookup("db"))
	a.bind(config.KeyLogLevel, flags.Lookup("log-level"))

	rootCmd.AddCommand(
		a.newImportCmd(),
		a.newListCmd(),
		a.newQueryCmd(),
		a.newFindCmd(),
		a.newBasePeakCmd(),
		a.newSummarizeCmd(),
		a.newBaselineCmd(),
		a.newFilterCmd(),
		a.newDeleteCmd(),
	)

	return rootCmd
}

// bind ties a flag to a config key. Keys and flags are static, so a
// failure is a programming error.
func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.cfg.BindFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

// openStore opens the configured database
func (a *app) openStore() (*sqlite.Store, error) {
	path := a.cfg.StorePath()
	a.log.Debug().Str("path", path).Msg("Opening store")

	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	return store, nil
}

// loadProfile loads a stored spectrum and indexes it
func (a *app) loadProfile(store *sqlite.Store, name string) (*profile.Profile, error) {
	spec, err := store.LoadSpectrum(name)
	if err != nil {
		return nil, err
	}

	prof, err := profile.New(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to index spectrum %s: %w", name, err)
	}
	a.log.Debug().Str("spectrum", name).Int("peaks", prof.Len()).Msg("Loaded spectrum")
	return prof, nil
}
