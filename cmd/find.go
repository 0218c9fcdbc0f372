package cmd

import (
	"fmt"
	"os"

	"github.com/signalnine/highwin/internal/config"
	"github.com/signalnine/highwin/internal/layout"
	"github.com/signalnine/highwin/internal/result"
	"github.com/signalnine/highwin/internal/runner"
	"github.com/spf13/cobra"
)

var (
	flagEpisodeWindow int
	flagOutputPath    string
	flagParallel      int
)

func newFindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find LOGDIR...",
		Short: "Scan experiment logs for the best policy per matchup",
		Long: "Walk each LOGDIR for TensorBoard event files, average the last --episode-window " +
			"episodes of each run, and write the best policy and win rate per environment, " +
			"opponent slot and opponent as JSON.",
		Args: cobra.MatchAll(cobra.MinimumNArgs(1), directoryArgs),
		RunE: findBest,
	}
	cmd.Flags().IntVar(&flagEpisodeWindow, "episode-window", 50, "number of trailing episodes averaged per run")
	cmd.Flags().StringVar(&flagOutputPath, "output_path", "", "output JSON path (default <logdir>/"+config.DefaultOutputName+" for a single logdir)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "event files decoded concurrently (default from settings)")
	return cmd
}

func directoryArgs(cmd *cobra.Command, args []string) error {
	for _, dir := range args {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("'%s' does not exist or is not a directory", dir)
		}
	}
	return nil
}

func outputPath(logDirs []string, explicit, defaultName string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if len(logDirs) > 1 {
		return "", fmt.Errorf("must specify --output_path when using multiple log directories")
	}
	return result.DefaultPath(logDirs[0], defaultName), nil
}

func findBest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	window := cfg.EpisodeWindow
	if cmd.Flags().Changed("episode-window") {
		window = flagEpisodeWindow
	}
	if window < 1 {
		return fmt.Errorf("--episode-window must be a positive integer, got %d", window)
	}
	parallel := cfg.Parallel
	if flagParallel > 0 {
		parallel = flagParallel
	}

	out, err := outputPath(args, flagOutputPath, cfg.OutputName)
	if err != nil {
		return err
	}
	for _, dir := range args {
		if !layout.Portable(dir, cfg.Layout) {
			logger.Warn("log dir is outside a batch directory, policy paths will be absolute and may not be portable",
				"logdir", dir, "marker", cfg.Layout.PortableMarker)
		}
	}
	logger.Info("starting scan", "output", out, "logdirs", args, "episode_window", window, "parallel", parallel)

	f, err := result.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	p := &runner.Pipeline{
		Config:   cfg,
		Window:   window,
		Parallel: parallel,
		Logger:   logger,
	}
	doc, err := p.FindBest(cmd.Context(), args)
	if err != nil {
		return err
	}
	if err := result.Write(f, doc); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	logger.Info("wrote result", "output", out)
	return nil
}
