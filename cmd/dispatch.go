package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/microgrid/app"
)

var (
	demand      float64
	solar       float64
	batteryMax  float64
	gridCost    float64
	batteryCost float64
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Solve one grid/battery dispatch decision",
	RunE:  solveDispatch,
}

func init() {
	f := dispatchCmd.Flags()
	f.Float64Var(&demand, "demand", 20, "load demand (A)")
	f.Float64Var(&solar, "solar", 12, "available solar current (A)")
	f.Float64Var(&batteryMax, "battery-max", 10, "battery capacity limit (A)")
	f.Float64Var(&gridCost, "grid-cost", -1, "grid unit cost, configured value when negative")
	f.Float64Var(&batteryCost, "battery-cost", -1, "battery unit cost, configured value when negative")
	rootCmd.AddCommand(dispatchCmd)
}

func solveDispatch(cmd *cobra.Command, args []string) error {
	return withService(func(svc *app.Service) error {
		p := svc.Problem(demand, solar, batteryMax)
		if gridCost >= 0 {
			p.GridUnitCost = gridCost
		}
		if batteryCost >= 0 {
			p.BatteryUnitCost = batteryCost
		}
		sol, err := svc.Solve(p)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(struct {
			Problem  any `json:"problem"`
			Solution any `json:"solution"`
		}{p, sol}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	})
}
