// Package runconfig loads the Sacred config.json written for each training
// run and exposes the fields used to key results.
package runconfig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/signalnine/highwin/internal/config"
	"github.com/signalnine/highwin/internal/layout"
)

// ZooType marks a fixed pre-trained opponent.
const ZooType = "zoo"

//go:embed runconfig.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("runconfig.schema.json", schemaJSON)

type RunConfig struct {
	EnvName     string  `json:"env_name"`
	VictimIndex int     `json:"victim_index"`
	VictimType  string  `json:"victim_type"`
	VictimPath  Text    `json:"victim_path"`
	LoadPolicy  *Policy `json:"load_policy"`
}

// Policy describes the policy a run was initialised from.
type Policy struct {
	Type Text `json:"type"`
	Path Text `json:"path"`
}

// Text decodes a JSON string, number or null into a string. Zoo policies
// are sometimes recorded as bare integers.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*t = Text(n.String())
	}
	return nil
}

// OpponentPath identifies the opponent a run was evaluated against. A run
// that fine-tunes a zoo policy against a non-zoo opponent is keyed by the
// zoo policy it started from.
func (c *RunConfig) OpponentPath() string {
	if c.VictimType != ZooType && c.LoadPolicy != nil && c.LoadPolicy.Type == ZooType {
		return string(c.LoadPolicy.Path)
	}
	return string(c.VictimPath)
}

// OurIndex is the slot played by the policy being trained.
func (c *RunConfig) OurIndex() int {
	return 1 - c.VictimIndex
}

// Load reads and validates a config.json.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	if err := validate(data); err != nil {
		return nil, fmt.Errorf("invalid run config %s: %w", path, err)
	}
	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing run config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}

// ForEvent loads the config of the run that wrote eventPath.
func ForEvent(eventPath string, l config.Layout) (*RunConfig, error) {
	path, err := layout.ConfigPath(eventPath, l)
	if err != nil {
		return nil, fmt.Errorf("locating run config: %w", err)
	}
	return Load(path)
}
