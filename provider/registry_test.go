package provider_test

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warriorguo/hyperbuild/provider"
	"github.com/warriorguo/hyperbuild/provider/static"
	"github.com/warriorguo/hyperbuild/types"
)

func TestRegistryActive(t *testing.T) {
	r := provider.NewRegistry()

	_, err := r.Active("")
	require.NotNil(t, err)
	var cfgErr *types.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "no provider registered for key: fetch")

	first := static.New(nil)
	r.Register(provider.DefaultKey, first)
	p, err := r.Active("")
	require.Nil(t, err)
	assert.Same(t, first, p)

	_, err = r.Active("other")
	assert.NotNil(t, err)
}

func TestRegistryOverwrite(t *testing.T) {
	r := provider.NewRegistry()
	first := static.New(nil)
	second := static.New(map[string]string{"https://a.example": "a"})

	r.Register("static", first)
	r.Register("static", second)

	p, err := r.Active("static")
	require.Nil(t, err)
	assert.Same(t, second, p)
	assert.Equal(t, []string{"static"}, r.Keys())
}

func TestDefaultRegistry(t *testing.T) {
	impl := static.New(nil)
	provider.Register("default-registry-test", impl)

	p, err := provider.Active("default-registry-test")
	require.Nil(t, err)
	assert.Same(t, impl, p)
}
