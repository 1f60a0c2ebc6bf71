package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kilianp07/microgrid/core/orchestrator"
)

func traces() []orchestrator.WindowTrace {
	return []orchestrator.WindowTrace{
		{Window: 0, Kind: "load", Samples: []float64{1.5, 2}},
		{Window: 1, Kind: "load", Selector: 14400, Samples: []float64{3}},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, traces()); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "window,kind,tick,value\n0,load,0,1.5\n0,load,1,2\n1,load,0,3\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, traces()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[1]["demand_selector"] != 14400.0 {
		t.Fatalf("unexpected json: %s", buf.String())
	}
}

func TestWriteOpeningsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteOpeningsCSV(&buf, []orchestrator.OpeningSample{{Window: 2, Load: 10, Solar: 0.25, Battery: -1, Accumulator: 5}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "window,load,solar,battery,accumulator\n2,10,0.25,-1,5\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}
