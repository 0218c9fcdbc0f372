// Package testutil builds experiment output trees for tests.
//
// A run written by WriteRun looks like the output of one training job:
//
//	<dir>/data/sacred/train/1/config.json
//	<dir>/data/baselines/<stamp>/rl/tb/events.out.tfevents.<n>.host
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/signalnine/highwin/internal/tfevents"
)

// Run describes one training job.
type Run struct {
	Env         string
	VictimIndex int
	VictimType  string
	VictimPath  string
	LoadPolicy  map[string]any
	// Win0, Win1 are per-episode outcomes for slots 0 and 1.
	Win0, Win1 []float64
}

// WriteRun lays out a run under dir and returns the event file path.
func WriteRun(t testing.TB, dir string, run Run) string {
	t.Helper()

	cfgDir := filepath.Join(dir, "data", "sacred", "train", "1")
	mkdir(t, cfgDir)
	victimType := run.VictimType
	if victimType == "" {
		victimType = "zoo"
	}
	cfg := map[string]any{
		"env_name":     run.Env,
		"victim_index": run.VictimIndex,
		"victim_type":  victimType,
		"victim_path":  run.VictimPath,
		"load_policy":  run.LoadPolicy,
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshaling run config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), data, 0o644); err != nil {
		t.Fatalf("writing run config: %v", err)
	}

	tbDir := filepath.Join(dir, "data", "baselines", "20190501_000000", "rl", "tb")
	mkdir(t, tbDir)
	mkdir(t, filepath.Join(dir, "data", "baselines", "20190501_000000", "checkpoint", "000001"))

	n := max(len(run.Win0), len(run.Win1))
	events := make([]tfevents.Event, 0, n)
	for i := range n {
		ev := tfevents.Event{Step: int64((i + 1) * 2048)}
		if i < len(run.Win0) {
			ev.Scalars = append(ev.Scalars, tfevents.Scalar{Tag: "game_win0", Value: run.Win0[i]})
		}
		if i < len(run.Win1) {
			ev.Scalars = append(ev.Scalars, tfevents.Scalar{Tag: "game_win1", Value: run.Win1[i]})
		}
		ev.Scalars = append(ev.Scalars, tfevents.Scalar{Tag: "game_tie", Value: 0})
		events = append(events, ev)
	}
	path := filepath.Join(tbDir, fmt.Sprintf("events.out.tfevents.%d.host", 1556668800))
	if err := tfevents.WriteFile(path, events); err != nil {
		t.Fatalf("writing events: %v", err)
	}
	return path
}

// Repeat returns v repeated n times.
func Repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mkdir(t testing.TB, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating %s: %v", dir, err)
	}
}
