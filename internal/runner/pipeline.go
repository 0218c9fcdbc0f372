package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/signalnine/highwin/internal/aggregate"
	"github.com/signalnine/highwin/internal/config"
	"github.com/signalnine/highwin/internal/discovery"
	"github.com/signalnine/highwin/internal/layout"
	"github.com/signalnine/highwin/internal/result"
	"github.com/signalnine/highwin/internal/runconfig"
	"github.com/signalnine/highwin/internal/stats"
)

type Pipeline struct {
	Config   *config.Config
	Window   int
	Parallel int
	Logger   *slog.Logger
}

// FindBest scans every log dir in order and returns the best policy and
// win rate per matchup. Any resolution or decoding error aborts the scan.
func (p *Pipeline) FindBest(ctx context.Context, logDirs []string) (*result.Document, error) {
	best := aggregate.New(p.Config.Metrics.WinTags)
	for _, dir := range logDirs {
		n, err := p.foldDir(ctx, best, dir)
		if err != nil {
			return nil, err
		}
		p.Logger.Info("scanned log dir", "dir", dir, "event_files", n)
	}
	p.Logger.Info("aggregation complete", "matchups", best.Len())
	return best.Document(), nil
}

func (p *Pipeline) extract(path string) (stats.Means, error) {
	return stats.Extract(path, p.Window, p.Config.Metrics.Tags(), p.Logger)
}

func (p *Pipeline) foldDir(ctx context.Context, best *aggregate.Best, dir string) (int, error) {
	files := discovery.EventFiles(dir, p.Config.Layout, p.Logger)

	if p.Parallel <= 1 {
		var n int
		for path, err := range files {
			if err != nil {
				return n, err
			}
			means, err := p.extract(path)
			if err != nil {
				return n, err
			}
			if err := p.fold(best, path, means); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	}

	var paths []string
	for path, err := range files {
		if err != nil {
			return 0, err
		}
		paths = append(paths, path)
	}
	all, err := Map(ctx, p.Parallel, paths, func(_ context.Context, path string) (stats.Means, error) {
		return p.extract(path)
	})
	if err != nil {
		return 0, err
	}
	for i, path := range paths {
		if err := p.fold(best, path, all[i]); err != nil {
			return i, err
		}
	}
	return len(paths), nil
}

func (p *Pipeline) fold(best *aggregate.Best, path string, means stats.Means) error {
	cfg, err := runconfig.ForEvent(path, p.Config.Layout)
	if err != nil {
		return fmt.Errorf("event file %s: %w", path, err)
	}
	if !best.Improves(cfg, means) {
		return nil
	}
	model, err := layout.ModelPath(path, p.Config.Layout)
	if err != nil {
		return fmt.Errorf("event file %s: %w", path, err)
	}
	best.Fold(cfg, means, model)
	p.Logger.Debug("new best",
		"env", cfg.EnvName,
		"opponent_index", cfg.VictimIndex,
		"opponent", cfg.OpponentPath(),
		"winrate", means[p.Config.Metrics.WinTags[cfg.OurIndex()]],
		"tie_rate", means[p.Config.Metrics.TieTag],
		"policy", model)
	return nil
}
