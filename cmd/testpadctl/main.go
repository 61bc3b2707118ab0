// Command testpadctl works on measurement files without the desktop app:
// it checks CSV imports, produces reports and upgrades saved state.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user/testpad_go/internal/config"
	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/logging"
	"github.com/user/testpad_go/internal/model"
	"github.com/user/testpad_go/internal/report"
	"github.com/user/testpad_go/internal/schema"
	"github.com/user/testpad_go/internal/state"
	"github.com/user/testpad_go/internal/viewstate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(afero.NewOsFs(), model.SystemClock{}).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs once flags are parsed.
type env struct {
	fs    afero.Fs
	clock model.Clock
	cfg   config.Config
	spec  *device.Spec
	log   *logrus.Logger
}

func newRootCmd(fs afero.Fs, clock model.Clock) *cobra.Command {
	var configPath, logLevel string
	e := &env{fs: fs, clock: clock}

	root := &cobra.Command{
		Use:           "testpadctl",
		Short:         "Headless tools for Testpad measurement sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(e.fs, configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			spec, err := cfg.DeviceModel(e.fs)
			if err != nil {
				return err
			}
			e.cfg, e.log, e.spec = cfg, log, spec
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(newValidateCmd(e), newReportCmd(e), newMigrateCmd(e))
	return root
}

func (e *env) newModel() *model.Model {
	return model.New(e.spec, model.WithFs(e.fs), model.WithClock(e.clock), model.WithPrecision(e.cfg.CSVPrecision))
}

func newValidateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <csv>",
		Short: "Import a CSV into an empty session and print what was read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := e.newModel()
			snap, err := m.LoadFromCSV(args[0])
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), e.spec, viewstate.Build(snap))
			return nil
		},
	}
}

func printSummary(w io.Writer, spec *device.Spec, vs viewstate.ViewState) {
	_, _ = fmt.Fprintf(w, "%s: %d of %d readings\n", vs.Device, vs.PointsFilled, vs.TotalSlots)
	for _, row := range vs.SeriesTable {
		value := row.Value
		if !row.Filled {
			value = "--"
		}
		_, _ = fmt.Fprintf(w, "  %3d  %s\n", row.Index, value)
	}
	if vs.Ambient != nil {
		_, _ = fmt.Fprintf(w, "%s: %s %s\n", spec.Ambient.Label, vs.AmbientText, spec.Ambient.Unit)
	} else {
		_, _ = fmt.Fprintf(w, "%s: not recorded\n", spec.Ambient.Label)
	}
	if s := vs.Summary; s != nil {
		_, _ = fmt.Fprintf(w, "mean %s  std %s  min %s  max %s\n", s.Mean, s.StdDev, s.Min, s.Max)
		for _, c := range s.Crossings {
			if c.Reached {
				_, _ = fmt.Fprintf(w, "reached %s %s at minute %d\n", c.Threshold, spec.Reading.Unit, c.Index)
			} else {
				_, _ = fmt.Fprintf(w, "never reached %s %s\n", c.Threshold, spec.Reading.Unit)
			}
		}
	}
}

func newReportCmd(e *env) *cobra.Command {
	var csvPath, statePath, outDir string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a PDF report from saved state and/or a CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if csvPath == "" && statePath == "" {
				return fmt.Errorf("at least one of --csv and --state is required")
			}
			m := e.newModel()
			if statePath != "" {
				rec, ok, err := state.Load(e.fs, statePath)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("state file %s does not exist", statePath)
				}
				if _, err := m.Restore(rec); err != nil {
					return err
				}
			}
			if csvPath != "" {
				if _, err := m.LoadFromCSV(csvPath); err != nil {
					return err
				}
			}
			if missing := m.ValidateForReport(); len(missing) > 0 {
				e.log.WithField("missing", strings.Join(missing, ", ")).Warn("Report will have blank fields")
			}

			dir := outDir
			if dir == "" {
				dir = e.cfg.OutputDir
			}
			producer := report.Producer{Fs: e.fs, Charts: report.GonumChart{}, Log: e.log}
			out, err := producer.Produce(cmd.Context(), report.NewInput(e.spec, m.GetState(), e.clock.Now()), dir)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages)\n", out.Path, out.Pages)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "time-series CSV to import")
	cmd.Flags().StringVar(&statePath, "state", "", "saved session (JSON)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default: configured output_dir)")
	return cmd
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <in> <out>",
		Short: "Upgrade a saved session to the current schema version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := state.Migrate(e.fs, args[0], args[1], e.spec.Name)
			if err != nil {
				return err
			}
			e.log.WithFields(logrus.Fields{"in": args[0], "out": args[1]}).Debug("Migrated state")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s from v%d to v%d\n", args[0], from, schema.CurrentVersion)
			return nil
		},
	}
}
