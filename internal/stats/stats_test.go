package stats_test

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/highwin/internal/stats"
	"github.com/signalnine/highwin/internal/tfevents"
)

var tags = []string{"game_win0", "game_win1", "game_tie"}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWindowMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
		want   float64
	}{
		{"fewer than window", []float64{1, 0, 1, 0}, 50, 0.5},
		{"exactly window", []float64{1, 1, 0, 0}, 4, 0.5},
		{"only the tail counts", []float64{0, 0, 0, 1, 1}, 2, 1},
		{"window of one", []float64{0.25, 0.75}, 1, 0.75},
		{"single value", []float64{0.3}, 10, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, stats.WindowMean(tt.values, tt.window), 1e-12)
		})
	}
}

func TestWindowMeanEmptyIsNaN(t *testing.T) {
	got := stats.WindowMean(nil, 50)
	assert.True(t, math.IsNaN(got))
	assert.False(t, got > 0)
}

func TestRateTreatsUndefinedAsNegativeInfinity(t *testing.T) {
	m := stats.Means{"a": math.NaN(), "b": 0.4}
	assert.True(t, math.IsInf(m.Rate("a"), -1))
	assert.True(t, math.IsInf(m.Rate("missing"), -1))
	assert.Equal(t, 0.4, m.Rate("b"))
}

func scalarEvents(step int64, pairs ...any) tfevents.Event {
	ev := tfevents.Event{Step: step}
	for i := 0; i < len(pairs); i += 2 {
		ev.Scalars = append(ev.Scalars, tfevents.Scalar{Tag: pairs[i].(string), Value: pairs[i+1].(float64)})
	}
	return ev
}

func TestExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.out.tfevents.1.host")
	require.NoError(t, tfevents.WriteFile(path, []tfevents.Event{
		scalarEvents(1, "game_win0", 0.0, "game_win1", 1.0, "game_tie", 0.0),
		scalarEvents(2, "game_win0", 1.0, "game_win1", 0.0, "game_tie", 0.0, "loss", 3.0),
		scalarEvents(3, "game_win0", 1.0, "game_win1", 0.0, "game_tie", 0.0),
		scalarEvents(4, "entropy", 0.5),
	}))

	means, err := stats.Extract(path, 2, tags, discard())
	require.NoError(t, err)
	assert.Len(t, means, 3)
	assert.Equal(t, 1.0, means["game_win0"])
	assert.Equal(t, 0.0, means["game_win1"])
	assert.Equal(t, 0.0, means["game_tie"])
	assert.NotContains(t, means, "loss")

	means, err = stats.Extract(path, 50, tags, discard())
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, means["game_win0"], 1e-9)
}

func TestExtractMissingTagIsNaN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.out.tfevents.1.host")
	require.NoError(t, tfevents.WriteFile(path, []tfevents.Event{
		scalarEvents(1, "game_win0", 1.0),
	}))

	means, err := stats.Extract(path, 50, tags, discard())
	require.NoError(t, err)
	assert.Equal(t, 1.0, means["game_win0"])
	assert.True(t, math.IsNaN(means["game_win1"]))
	assert.True(t, math.IsInf(means.Rate("game_win1"), -1))
}

func TestExtractTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.out.tfevents.1.host")
	require.NoError(t, tfevents.WriteFile(path, []tfevents.Event{
		scalarEvents(1, "game_win0", 1.0),
		scalarEvents(2, "game_win0", 0.0),
	}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-2))

	means, err := stats.Extract(path, 50, tags, discard())
	require.NoError(t, err)
	assert.Equal(t, 1.0, means["game_win0"])
}

func TestExtractCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.out.tfevents.1.host")
	require.NoError(t, os.WriteFile(path, []byte("this is not a tfrecord file"), 0o644))

	_, err := stats.Extract(path, 50, tags, discard())
	assert.ErrorIs(t, err, tfevents.ErrCorrupt)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := stats.Extract(filepath.Join(t.TempDir(), "absent"), 50, tags, discard())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
