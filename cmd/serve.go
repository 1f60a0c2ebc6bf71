package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/microgrid/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs and the dispatch endpoint over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return withService(func(svc *app.Service) error {
			return svc.Serve(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
