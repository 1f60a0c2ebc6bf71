// Package export writes per-window traces in formats plotting tools read.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/microgrid/core/orchestrator"
)

// WriteJSON writes the traces to w in JSON format.
func WriteJSON(w io.Writer, traces []orchestrator.WindowTrace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(traces)
}

// WriteCSV writes one row per sample: window, kind, tick, value.
func WriteCSV(w io.Writer, traces []orchestrator.WindowTrace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"window", "kind", "tick", "value"}); err != nil {
		return err
	}
	for _, tr := range traces {
		window := strconv.Itoa(tr.Window)
		for i, v := range tr.Samples {
			rec := []string{window, tr.Kind, strconv.Itoa(i), formatFloat(v)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOpeningsCSV writes the first sample of every trace, one row per window.
func WriteOpeningsCSV(w io.Writer, openings []orchestrator.OpeningSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"window", "load", "solar", "battery", "accumulator"}); err != nil {
		return err
	}
	for _, o := range openings {
		rec := []string{
			strconv.Itoa(o.Window),
			formatFloat(o.Load),
			formatFloat(o.Solar),
			formatFloat(o.Battery),
			formatFloat(o.Accumulator),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
