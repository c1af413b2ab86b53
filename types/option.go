package types

import (
	"context"

	"github.com/mcuadros/go-defaults"
)

func NewEngineOptions() *EngineOptions {
	opts := &EngineOptions{Ctx: context.Background()}
	defaults.SetDefaults(opts)
	return opts
}

type EngineOptions struct {
	// Ctx bounds the engine lifetime, runs stop at their next node once it is done.
	Ctx context.Context
	/**
	 * default: 16
	 * at most this many runs execute at the same time, further runs wait.
	 */
	MaxConcurrentRuns int `default:"16"`
	/**
	 * default: 10
	 * a While node stops after this many iterations whatever its condition says.
	 */
	MaxWhileIterations int `default:"10"`
	/**
	 * default: 12000
	 * LLM nodes truncate their input to this many runes.
	 */
	LLMInputLimit int `default:"12000"`
	/**
	 * provider key used when a run does not name one.
	 * empty means the registry default.
	 */
	ProviderKey string
	/**
	 * default: false, when true a graph whose nodes can not all be ordered
	 * aborts the run instead of silently skipping the unordered nodes.
	 */
	DetectCycles bool `default:"false"`
	/**
	 * default: false, when true a node with several incoming edges gets the
	 * list of its upstream values instead of the first one.
	 */
	MergeInputs bool `default:"false"`
	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`

	// ArtifactDir stores artifacts on the local disk under this directory.
	ArtifactDir string

	// PostgreSQL store configuration
	// PostgresConfig takes precedence over ArtifactDir and MemStore
	PostgresConfig *PostgresConfig

	Registry ProviderRegistry
	LLM      LLM
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}
type EngineOption func(*EngineOptions)

func WithContext(ctx context.Context) EngineOption {
	return func(opts *EngineOptions) {
		opts.Ctx = ctx
	}
}

func SetMaxConcurrentRuns(n int) EngineOption {
	return func(opts *EngineOptions) {
		opts.MaxConcurrentRuns = n
	}
}

func SetMaxWhileIterations(n int) EngineOption {
	return func(opts *EngineOptions) {
		opts.MaxWhileIterations = n
	}
}

func SetLLMInputLimit(n int) EngineOption {
	return func(opts *EngineOptions) {
		opts.LLMInputLimit = n
	}
}

func WithProviderKey(key string) EngineOption {
	return func(opts *EngineOptions) {
		opts.ProviderKey = key
	}
}

func EnableCycleDetection() EngineOption {
	return func(opts *EngineOptions) {
		opts.DetectCycles = true
	}
}

func EnableInputMerge() EngineOption {
	return func(opts *EngineOptions) {
		opts.MergeInputs = true
	}
}

func EnableMemStore() EngineOption {
	return func(opts *EngineOptions) {
		opts.MemStore = true
	}
}

func WithArtifactDir(dir string) EngineOption {
	return func(opts *EngineOptions) {
		opts.ArtifactDir = dir
	}
}

// WithPostgresConfig configures the engine to keep artifacts in PostgreSQL
func WithPostgresConfig(config *PostgresConfig) EngineOption {
	return func(opts *EngineOptions) {
		opts.PostgresConfig = config
	}
}

func WithRegistry(registry ProviderRegistry) EngineOption {
	return func(opts *EngineOptions) {
		opts.Registry = registry
	}
}

func WithLLM(llm LLM) EngineOption {
	return func(opts *EngineOptions) {
		opts.LLM = llm
	}
}
