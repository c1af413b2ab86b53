// Package config loads the process configuration of the hyperbuild server
// from the environment, after an optional .env file.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/mcuadros/go-defaults"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/warriorguo/hyperbuild/store/postgres"
	"github.com/warriorguo/hyperbuild/types"
)

type Config struct {
	Addr string `default:":8080"`

	// Provider is the registry key of the provider runs use by default.
	Provider    string `default:"fetch"`
	ArtifactDir string
	PostgresDSN string
	// StaticPages is a JSON file mapping urls to markdown, served by the
	// "static" provider.
	StaticPages string

	MaxRuns      int    `default:"16"`
	WhileCap     int    `default:"10"`
	DetectCycles bool   `default:"false"`
	MergeInputs  bool   `default:"false"`
	CORSOrigin   string `default:"*"`

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	LogLevel  string `default:"info"`
	LogFormat string `default:"text"`
}

type LookupFunc func(key string) (string, bool)

type setter func(c *Config, value string) error

func stringVar(field func(c *Config) *string) setter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

func intVar(key string, field func(c *Config) *int) setter {
	return func(c *Config, value string) error {
		n, err := cast.ToIntE(value)
		if err != nil || n <= 0 {
			return errors.NotValidf("%s=%q", key, value)
		}
		*field(c) = n
		return nil
	}
}

func boolVar(key string, field func(c *Config) *bool) setter {
	return func(c *Config, value string) error {
		b, err := cast.ToBoolE(value)
		if err != nil {
			return errors.NotValidf("%s=%q", key, value)
		}
		*field(c) = b
		return nil
	}
}

var envKeys = []struct {
	key string
	set setter
}{
	{"HYPERBUILD_ADDR", stringVar(func(c *Config) *string { return &c.Addr })},
	{"HYPERBUILD_PROVIDER", stringVar(func(c *Config) *string { return &c.Provider })},
	{"HYPERBUILD_ARTIFACT_DIR", stringVar(func(c *Config) *string { return &c.ArtifactDir })},
	{"HYPERBUILD_POSTGRES_DSN", stringVar(func(c *Config) *string { return &c.PostgresDSN })},
	{"HYPERBUILD_STATIC_PAGES", stringVar(func(c *Config) *string { return &c.StaticPages })},
	{"HYPERBUILD_MAX_RUNS", intVar("HYPERBUILD_MAX_RUNS", func(c *Config) *int { return &c.MaxRuns })},
	{"HYPERBUILD_WHILE_CAP", intVar("HYPERBUILD_WHILE_CAP", func(c *Config) *int { return &c.WhileCap })},
	{"HYPERBUILD_DETECT_CYCLES", boolVar("HYPERBUILD_DETECT_CYCLES", func(c *Config) *bool { return &c.DetectCycles })},
	{"HYPERBUILD_MERGE_INPUTS", boolVar("HYPERBUILD_MERGE_INPUTS", func(c *Config) *bool { return &c.MergeInputs })},
	{"HYPERBUILD_CORS_ORIGIN", stringVar(func(c *Config) *string { return &c.CORSOrigin })},
	{"OPENAI_API_KEY", stringVar(func(c *Config) *string { return &c.OpenAIAPIKey })},
	{"OPENAI_API_BASE_URL", stringVar(func(c *Config) *string { return &c.OpenAIBaseURL })},
	{"OPENAI_MODEL", stringVar(func(c *Config) *string { return &c.OpenAIModel })},
	{"HYPERBUILD_LOG_LEVEL", stringVar(func(c *Config) *string { return &c.LogLevel })},
	{"HYPERBUILD_LOG_FORMAT", stringVar(func(c *Config) *string { return &c.LogFormat })},
}

// Load reads the given env files (".env" when none is given, missing files
// are skipped) and then the process environment. Variables already set in the
// environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Annotatef(err, "load env file %s", f)
		}
		log.Debugf("loaded env file %s", f)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from defaults overridden by lookup.
func FromLookup(lookup LookupFunc) (*Config, error) {
	c := &Config{}
	defaults.SetDefaults(c)

	for _, env := range envKeys {
		value, exists := lookup(env.key)
		if !exists {
			continue
		}
		if value = strings.TrimSpace(value); value == "" {
			continue
		}
		if err := env.set(c, value); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if err := c.validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NotValidf("log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.NotValidf("log format %q", c.LogFormat)
	}
	if c.PostgresDSN != "" {
		if _, err := postgres.ParseDSN(c.PostgresDSN); err != nil {
			return errors.Annotatef(err, "HYPERBUILD_POSTGRES_DSN")
		}
	}
	return nil
}

// ConfigureLogging applies the log level and format to the standard logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// EngineOptions translates the configuration into engine options. The
// provider registry and the LLM are wired by the caller.
func (c *Config) EngineOptions() ([]types.EngineOption, error) {
	opts := []types.EngineOption{
		types.SetMaxConcurrentRuns(c.MaxRuns),
		types.SetMaxWhileIterations(c.WhileCap),
		types.WithProviderKey(c.Provider),
	}
	if c.DetectCycles {
		opts = append(opts, types.EnableCycleDetection())
	}
	if c.MergeInputs {
		opts = append(opts, types.EnableInputMerge())
	}

	switch {
	case c.PostgresDSN != "":
		pgConfig, err := postgres.ParseDSN(c.PostgresDSN)
		if err != nil {
			return nil, errors.Trace(err)
		}
		opts = append(opts, types.WithPostgresConfig(pgConfig.ToOptions()))
	case c.ArtifactDir != "":
		opts = append(opts, types.WithArtifactDir(c.ArtifactDir))
	default:
		opts = append(opts, types.EnableMemStore())
	}
	return opts, nil
}
