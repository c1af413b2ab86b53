package static

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	p := New(map[string]string{
		"https://a.example": "alpha",
		"https://b.example": "beta",
	})

	md, err := p.ScrapeMarkdown(ctx, "https://a.example")
	require.Nil(t, err)
	assert.Equal(t, "alpha", md)

	_, err = p.ScrapeMarkdown(ctx, "https://missing.example")
	assert.NotNil(t, err)

	v, err := p.ExtractStructured(ctx, "https://a.example", nil)
	assert.Nil(t, err)
	assert.Nil(t, v)

	p.SetStructured("https://a.example", map[string]any{"name": "alpha"})
	v, err = p.ExtractStructured(ctx, "https://a.example", nil)
	assert.Nil(t, err)
	assert.Equal(t, map[string]any{"name": "alpha"}, v)

	md, err = p.CrawlMarkdown(ctx, []string{"https://a.example", "https://missing.example", "https://b.example"}, 0)
	require.Nil(t, err)
	assert.Equal(t, "# https://a.example\n\nalpha\n\n# https://b.example\n\nbeta", md)

	md, err = p.CrawlMarkdown(ctx, []string{"https://a.example", "https://b.example"}, 1)
	require.Nil(t, err)
	assert.Equal(t, "# https://a.example\n\nalpha", md)

	_, err = p.CrawlMarkdown(ctx, []string{"https://missing.example"}, 0)
	assert.NotNil(t, err)
}

func TestLoadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "pages.json")
	require.NoError(t, os.WriteFile(name, []byte(`{"https://a.example": "alpha"}`), 0o644))

	p, err := LoadFile(name)
	require.NoError(t, err)
	md, err := p.ScrapeMarkdown(context.Background(), "https://a.example")
	require.NoError(t, err)
	assert.Equal(t, "alpha", md)

	require.NoError(t, os.WriteFile(name, []byte(`["not", "a", "map"]`), 0o644))
	_, err = LoadFile(name)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
