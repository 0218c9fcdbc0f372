package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultOutputName = "highest_win_policies_and_rates.json"

type Config struct {
	Layout        Layout  `yaml:"layout"`
	Metrics       Metrics `yaml:"metrics"`
	EpisodeWindow int     `yaml:"episode_window"`
	OutputName    string  `yaml:"output_name"`
	Parallel      int     `yaml:"parallel"`
}

// Layout describes where experiment runs keep their artifacts.
type Layout struct {
	CheckpointDir  string   `yaml:"checkpoint_dir"`
	TBSuffix       []string `yaml:"tb_suffix"`
	EventMarker    string   `yaml:"event_marker"`
	ConfigAnchor   string   `yaml:"config_anchor"`
	ConfigRelPath  []string `yaml:"config_rel_path"`
	ModelAnchor    string   `yaml:"model_anchor"`
	ModelDir       string   `yaml:"model_dir"`
	PortableMarker string   `yaml:"portable_marker"`
}

// Metrics names the scalar tags read from event logs. WinTags is indexed
// by player slot.
type Metrics struct {
	WinTags []string `yaml:"win_tags"`
	TieTag  string   `yaml:"tie_tag"`
}

// Tags returns every tracked tag.
func (m Metrics) Tags() []string {
	return append(append([]string(nil), m.WinTags...), m.TieTag)
}

func Default() *Config {
	return &Config{
		Layout: Layout{
			CheckpointDir:  "checkpoint",
			TBSuffix:       []string{"rl", "tb"},
			EventMarker:    "tfevents",
			ConfigAnchor:   "baselines",
			ConfigRelPath:  []string{"sacred", "train", "1", "config.json"},
			ModelAnchor:    "rl",
			ModelDir:       "final_model",
			PortableMarker: "multi_train",
		},
		Metrics: Metrics{
			WinTags: []string{"game_win0", "game_win1"},
			TieTag:  "game_tie",
		},
		EpisodeWindow: 50,
		OutputName:    DefaultOutputName,
		Parallel:      1,
	}
}

// Load reads a YAML settings file over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	l := &cfg.Layout
	for name, v := range map[string]string{
		"checkpoint_dir":  l.CheckpointDir,
		"event_marker":    l.EventMarker,
		"config_anchor":   l.ConfigAnchor,
		"model_anchor":    l.ModelAnchor,
		"model_dir":       l.ModelDir,
		"portable_marker": l.PortableMarker,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("layout.%s is required", name)
		}
	}
	if len(l.TBSuffix) == 0 {
		return fmt.Errorf("layout.tb_suffix is required")
	}
	if len(l.ConfigRelPath) == 0 {
		return fmt.Errorf("layout.config_rel_path is required")
	}
	if len(cfg.Metrics.WinTags) != 2 {
		return fmt.Errorf("metrics.win_tags must name exactly 2 tags, got %d", len(cfg.Metrics.WinTags))
	}
	if cfg.Metrics.TieTag == "" {
		return fmt.Errorf("metrics.tie_tag is required")
	}
	if cfg.EpisodeWindow < 1 {
		return fmt.Errorf("episode_window must be at least 1")
	}
	if cfg.OutputName == "" {
		cfg.OutputName = DefaultOutputName
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}
	return nil
}
