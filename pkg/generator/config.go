package generator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/dungeontower/pkg/anneal"
	"github.com/matzehuels/dungeontower/pkg/chain"
	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/operations"
	"github.com/matzehuels/dungeontower/pkg/planner"
)

// DefaultSeed is the seed used until InjectRandomSource is called.
const DefaultSeed = uint64(42)

// Config is the generation configuration. Start from [DefaultConfig] and
// override fields; zero-valued fields are filled by ValidateAndSetDefaults,
// except Annealing.MaxIterations where zero is a valid budget.
type Config struct {
	Annealing  anneal.Config     `toml:"annealing" json:"annealing"`
	Chains     chain.Options     `toml:"chains" json:"chains"`
	Planner    planner.Config    `toml:"planner" json:"planner"`
	Operations operations.Config `toml:"operations" json:"operations"`

	// TouchConstraint penalizes rooms that touch without being connected.
	TouchConstraint bool `toml:"touch_constraint" json:"touch_constraint"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Annealing:  anneal.DefaultConfig(),
		Chains:     chain.Options{Policy: chain.PolicyEars, MaxTreeSize: chain.DefaultMaxTreeSize},
		Planner:    planner.DefaultConfig(),
		Operations: operations.DefaultConfig(),
	}
}

// ValidateAndSetDefaults validates every section and fills unset fields.
func (c *Config) ValidateAndSetDefaults() error {
	if err := c.Annealing.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if err := c.Chains.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if err := c.Planner.ValidateAndSetDefaults(); err != nil {
		return err
	}
	return c.Operations.ValidateAndSetDefaults()
}

// LoadConfig reads a TOML or, for .json files, JSON configuration on top of
// [DefaultConfig]. Unknown TOML keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := DecodeConfig(data, strings.ToLower(filepath.Ext(path)) == ".json", &cfg); err != nil {
		return DefaultConfig(), errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}
	return cfg, nil
}

// DecodeConfig decodes TOML, or JSON when isJSON is set, into cfg, keeping
// fields the data does not mention, and validates the result.
func DecodeConfig(data []byte, isJSON bool, cfg *Config) error {
	if isJSON {
		if err := json.Unmarshal(data, cfg); err != nil {
			return err
		}
	} else {
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
		}
	}
	return cfg.ValidateAndSetDefaults()
}
