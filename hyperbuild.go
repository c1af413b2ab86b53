package hyperbuild

import (
	"github.com/juju/errors"

	"github.com/warriorguo/hyperbuild/provider"
	"github.com/warriorguo/hyperbuild/runtime"
	"github.com/warriorguo/hyperbuild/store"
	"github.com/warriorguo/hyperbuild/store/file"
	"github.com/warriorguo/hyperbuild/store/mem"
	"github.com/warriorguo/hyperbuild/store/postgres"
	"github.com/warriorguo/hyperbuild/types"
)

// NewEngine creates a new engine with the given options
func NewEngine(opts ...types.EngineOption) (types.Engine, error) {
	options := types.NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	s, err := newStore(options)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if options.Registry == nil {
		options.Registry = provider.Default
	}
	return runtime.NewEngine(s, options), nil
}

// PostgresConfig takes precedence over ArtifactDir, then MemStore
func newStore(options *types.EngineOptions) (store.Store, error) {
	switch {
	case options.PostgresConfig != nil:
		s, err := postgres.NewPostgresStore(postgres.FromOptions(options.PostgresConfig))
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
		return s, nil

	case options.ArtifactDir != "" && !options.MemStore:
		s, err := file.NewFileStore(options.ArtifactDir)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create file store at %s", options.ArtifactDir)
		}
		return s, nil

	default:
		return mem.NewMemStore(), nil
	}
}
