// Package config loads competition settings from YAML and validates them.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/applied-statistics/competitions/batch"
	"github.com/applied-statistics/competitions/experiments"
	"github.com/applied-statistics/competitions/meta"
	"github.com/applied-statistics/competitions/params"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields by their JSON/YAML name
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "yaml"} {
			name, _, _ := strings.Cut(f.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

type Server struct {
	Addr           string   `yaml:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxTrials      int      `yaml:"max_trials" validate:"gte=1"`
	RateLimit      float64  `yaml:"rate_limit" validate:"gte=0"` // requests per second on /v1, 0 for none
	Burst          int      `yaml:"burst" validate:"gte=1"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes" validate:"gte=1"`
}

type Config struct {
	Goroutines  int                           `yaml:"goroutines" validate:"gte=1"`
	Checkpoint  int                           `yaml:"checkpoint" validate:"gte=1"`
	Seed        *uint64                       `yaml:"seed"`
	Lab         string                        `yaml:"lab"`
	OutputDir   string                        `yaml:"output_dir" validate:"required"`
	Server      Server                        `yaml:"server"`
	Race        experiments.RaceConfig        `yaml:"race"`
	Leaderboard experiments.LeaderboardConfig `yaml:"leaderboard"`
}

func Default() *Config {
	return &Config{
		Goroutines: meta.GO_ROUTINES,
		Checkpoint: meta.CHECKPOINT_TRIALS,
		OutputDir:  "results",
		Server: Server{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			MaxTrials:      1_000_000,
			Burst:          10,
			MaxBodyBytes:   1 << 20,
		},
		Race:        experiments.DefaultRaceConfig(),
		Leaderboard: experiments.DefaultLeaderboardConfig("boom"),
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	return Struct(c)
}

// RunnerOptions translates the config into batch runner options. A config
// without a seed leaves the runner to draw a random one.
func (c *Config) RunnerOptions() []batch.Option {
	options := []batch.Option{
		batch.WithGoroutines(c.Goroutines),
		batch.WithCheckpoint(c.Checkpoint, nil),
	}
	if c.Seed != nil {
		options = append(options, batch.WithSeed(*c.Seed))
	}
	return options
}

// Struct validates the tags of v and reports the first failure as a
// *params.Error naming the offending field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := fe.Namespace()
	if _, rest, ok := strings.Cut(name, "."); ok {
		name = rest // drop the root type
	}
	return &params.Error{Name: name, Value: fe.Value(), Range: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "set"
	case "gte":
		return ">= " + fe.Param()
	case "gt":
		return "> " + fe.Param()
	case "lte":
		return "<= " + fe.Param()
	case "lt":
		return "< " + fe.Param()
	case "min":
		return "at least " + fe.Param() + " long"
	case "max":
		return "at most " + fe.Param() + " long"
	default:
		return fe.Tag() + "=" + fe.Param()
	}
}
