package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/microgrid/app"
	"github.com/kilianp07/microgrid/app/plugins"
	"github.com/kilianp07/microgrid/core/runlog"
)

var (
	runsStatus string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Stored run commands",
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored runs",
	RunE:  listRuns,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id> <file>",
	Short: "Export the traces of a stored run",
	Args:  cobra.ExactArgs(2),
	RunE:  exportStoredRun,
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List simulator backends and metrics sinks",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "simulators: %v\nsinks: %v\n", plugins.Simulators(), plugins.Sinks())
	},
}

func init() {
	runsLsCmd.Flags().StringVar(&runsStatus, "status", "", "filter by status (done, failed)")
	runsLsCmd.Flags().IntVar(&runsLimit, "limit", 20, "show at most this many runs")
	runsExportCmd.Flags().StringVar(&exportKind, "kind", "", "export only this trace kind")
	runsCmd.AddCommand(runsLsCmd, runsExportCmd)
	rootCmd.AddCommand(runsCmd, backendsCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	return withService(func(svc *app.Service) error {
		recs, err := svc.Store().Query(cmd.Context(), runlog.RunQuery{Status: runsStatus, Limit: runsLimit})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tWINDOWS\tSTATUS\tERROR")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n", r.RunID, r.StartedAt.Format(time.RFC3339), r.Completed, len(r.Windows), r.Status(), r.ErrorKind)
		}
		return w.Flush()
	})
}

func exportStoredRun(cmd *cobra.Command, args []string) error {
	return withService(func(svc *app.Service) error {
		rec, err := svc.Store().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return exportRun(cmd.OutOrStdout(), rec.Run(), args[1], exportKind)
	})
}
