package runner_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/highwin/internal/config"
	"github.com/signalnine/highwin/internal/pathseg"
	"github.com/signalnine/highwin/internal/result"
	"github.com/signalnine/highwin/internal/runner"
	"github.com/signalnine/highwin/internal/testutil"
)

func newPipeline(parallel int) *runner.Pipeline {
	return &runner.Pipeline{
		Config:   config.Default(),
		Window:   50,
		Parallel: parallel,
		Logger:   testutil.Logger(),
	}
}

// corpus builds a batch dir with several runs and returns its path.
func corpus(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "multi_train", "sweep")
	// Env1 vs zoo/3 in slot 0: two runs, B wins.
	testutil.WriteRun(t, filepath.Join(root, "a"), testutil.Run{
		Env: "Env1", VictimIndex: 0, VictimPath: "zoo/3",
		Win1: append(testutil.Repeat(0, 100), testutil.Repeat(1, 25)...),
	})
	testutil.WriteRun(t, filepath.Join(root, "b"), testutil.Run{
		Env: "Env1", VictimIndex: 0, VictimPath: "zoo/3",
		Win1: testutil.Repeat(1, 50),
	})
	// Env1 vs zoo/1 in slot 1: we play slot 0.
	testutil.WriteRun(t, filepath.Join(root, "c"), testutil.Run{
		Env: "Env1", VictimIndex: 1, VictimPath: "zoo/1",
		Win0: []float64{1, 0, 0, 0}, Win1: testutil.Repeat(1, 4),
	})
	// Fine-tuning zoo/2 against an adversary: keyed by zoo/2.
	testutil.WriteRun(t, filepath.Join(root, "d"), testutil.Run{
		Env: "Env2", VictimIndex: 0, VictimType: "ppo2", VictimPath: "adv/model.pkl",
		LoadPolicy: map[string]any{"type": "zoo", "path": "2"},
		Win1:       []float64{1, 1, 0, 1},
	})
	// Never recorded our win tag: excluded.
	testutil.WriteRun(t, filepath.Join(root, "e"), testutil.Run{
		Env: "Env3", VictimIndex: 0, VictimPath: "zoo/1",
		Win0: testutil.Repeat(1, 10),
	})
	return root
}

func TestFindBest(t *testing.T) {
	root := corpus(t)
	doc, err := newPipeline(1).FindBest(context.Background(), []string{root})
	require.NoError(t, err)

	assert.Equal(t, 1.0, doc.Winrates["Env1"]["0"]["zoo/3"])
	assert.Equal(t, filepath.FromSlash("multi_train/sweep/b/data/baselines/20190501_000000/final_model"),
		doc.Policies["Env1"]["0"]["zoo/3"])
	assert.Equal(t, 0.25, doc.Winrates["Env1"]["1"]["zoo/1"])
	assert.Equal(t, 0.75, doc.Winrates["Env2"]["0"]["2"])
	assert.NotContains(t, doc.Winrates, "Env3")
	assert.NotContains(t, doc.Policies, "Env3")
}

func TestFindBestWindow(t *testing.T) {
	root := corpus(t)
	p := newPipeline(1)
	p.Window = 200
	doc, err := p.FindBest(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, 1.0, doc.Winrates["Env1"]["0"]["zoo/3"])

	p.Window = 1
	doc, err = p.FindBest(context.Background(), []string{root})
	require.NoError(t, err)
	// Both runs end on a win; a is discovered first and ties keep it.
	assert.Equal(t, 1.0, doc.Winrates["Env1"]["0"]["zoo/3"])
	assert.Equal(t, filepath.FromSlash("multi_train/sweep/a/data/baselines/20190501_000000/final_model"),
		doc.Policies["Env1"]["0"]["zoo/3"])
}

func TestFindBestIsIdempotentAndParallelSafe(t *testing.T) {
	root := corpus(t)
	var outputs [][]byte
	for _, parallel := range []int{1, 1, 4} {
		doc, err := newPipeline(parallel).FindBest(context.Background(), []string{root})
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, result.Write(&buf, doc))
		outputs = append(outputs, buf.Bytes())
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestFindBestMultipleDirs(t *testing.T) {
	first := filepath.Join(t.TempDir(), "multi_train", "one")
	second := filepath.Join(t.TempDir(), "multi_train", "two")
	testutil.WriteRun(t, first, testutil.Run{Env: "E", VictimIndex: 1, VictimPath: "1", Win0: []float64{0, 1}})
	testutil.WriteRun(t, second, testutil.Run{Env: "E", VictimIndex: 1, VictimPath: "1", Win0: []float64{1, 1}})

	doc, err := newPipeline(1).FindBest(context.Background(), []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1.0, doc.Winrates["E"]["1"]["1"])
	assert.Equal(t, filepath.FromSlash("multi_train/two/data/baselines/20190501_000000/final_model"), doc.Policies["E"]["1"]["1"])
}

func TestFindBestIgnoresCheckpointDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "multi_train")
	testutil.WriteRun(t, filepath.Join(root, "checkpoint", "x"), testutil.Run{
		Env: "E", VictimPath: "1", Win1: []float64{1},
	})
	doc, err := newPipeline(1).FindBest(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Empty(t, doc.Winrates)
}

func TestFindBestMissingAnchorAborts(t *testing.T) {
	root := t.TempDir()
	tb := filepath.Join(root, "loose", "rl", "tb")
	require.NoError(t, os.MkdirAll(tb, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tb, "events.out.tfevents.1.host"), nil, 0o644))

	for _, parallel := range []int{1, 3} {
		_, err := newPipeline(parallel).FindBest(context.Background(), []string{root})
		assert.ErrorIs(t, err, pathseg.ErrAnchorNotFound)
	}
}

func TestFindBestMissingConfigAborts(t *testing.T) {
	root := filepath.Join(t.TempDir(), "multi_train")
	event := testutil.WriteRun(t, root, testutil.Run{Env: "E", VictimPath: "1", Win1: []float64{1}})
	require.NoError(t, os.Remove(filepath.Join(root, "data", "sacred", "train", "1", "config.json")))
	require.FileExists(t, event)

	_, err := newPipeline(1).FindBest(context.Background(), []string{root})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
