package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/microgrid/app"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/orchestrator"
	"github.com/kilianp07/microgrid/pkg/export"
)

var (
	exportPath string
	exportKind string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured window schedule on the simulator",
	RunE:  runWindows,
}

func init() {
	runCmd.Flags().StringVarP(&exportPath, "export", "o", "", "write traces to a .csv or .json file (- for stdout csv)")
	runCmd.Flags().StringVar(&exportKind, "kind", "", "export only this trace kind (load, solar, battery, accumulator)")
	rootCmd.AddCommand(runCmd)
}

func runWindows(cmd *cobra.Command, args []string) error {
	if err := checkKind(exportKind); err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	return withService(func(svc *app.Service) error {
		run, runErr := svc.RunWindows(ctx)
		if run == nil {
			return runErr
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d/%d windows\n", run.ID, run.Completed(), len(run.Windows))
		if exportPath != "" {
			if err := exportRun(cmd.OutOrStdout(), run, exportPath, exportKind); err != nil {
				return errors.Join(runErr, err)
			}
		}
		var re *orchestrator.RunError
		if errors.As(runErr, &re) {
			fmt.Fprintf(cmd.ErrOrStderr(), "stopped at window %d (%s)\n", re.Window, re.Kind())
		}
		return runErr
	})
}

func checkKind(kind string) error {
	if kind != "" && !model.TraceKind(kind).Valid() {
		return fmt.Errorf("%w: unknown trace kind %q", model.ErrConfiguration, kind)
	}
	return nil
}

func exportRun(stdout io.Writer, run *model.SimulationRun, path, kind string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	traces := orchestrator.AllTraces(run)
	if kind != "" {
		traces = orchestrator.TracesByKind(run, model.TraceKind(kind))
	}
	if path == "-" {
		return export.WriteCSV(stdout, traces)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = export.WriteJSON(f, traces)
	default:
		err = export.WriteCSV(f, traces)
	}
	if err != nil {
		return err
	}
	return f.Close()
}
