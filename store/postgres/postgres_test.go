package postgres

import (
	"context"
	"os"
	"sort"
	"testing"

	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warriorguo/hyperbuild/store"
)

// testStore connects using POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER,
// POSTGRES_PASSWORD and POSTGRES_DB, and skips when the server is unreachable.
func testStore(t *testing.T) store.Store {
	config := DefaultConfig()
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		config.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		config.Port = cast.ToInt(v)
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		config.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		config.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		config.Database = v
	}

	s, err := NewPostgresStore(config)
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	t.Cleanup(func() {
		if closer, ok := s.(interface{ Close() error }); ok {
			closer.Close()
		}
	})
	return s
}

func listKeys(t *testing.T, s store.Store, prefix string) []string {
	keys := []string{}
	require.NoError(t, s.List(context.Background(), prefix, func(key string) bool {
		keys = append(keys, key)
		return true
	}))
	sort.Strings(keys)
	return keys
}

func TestPostgresStore_Artifacts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	prefix, other := "/run/pg-artifacts", "/run/pg-artifacts-other"
	t.Cleanup(func() {
		for _, name := range []string{"output.json", "state.json", "trace.json", "blob.bin"} {
			s.Remove(ctx, prefix, name)
		}
		s.Remove(ctx, other, "output.json")
	})

	require.NoError(t, s.Set(ctx, prefix, "output.json", []byte(`"first"`)))
	require.NoError(t, s.Set(ctx, prefix, "output.json", []byte(`"second"`)))
	require.NoError(t, s.Set(ctx, prefix, "state.json", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, prefix, "trace.json", []byte(`{}`)))
	require.NoError(t, s.Set(ctx, other, "output.json", []byte(`"other"`)))

	value, err := s.Get(ctx, prefix, "output.json")
	require.NoError(t, err)
	assert.Equal(t, `"second"`, string(value))

	value, err = s.Get(ctx, prefix, "missing.json")
	require.NoError(t, err)
	assert.Nil(t, value)

	// a prefix never matches a longer run id
	assert.Equal(t, []string{"output.json", "state.json", "trace.json"}, listKeys(t, s, prefix))
	assert.Equal(t, []string{"output.json"}, listKeys(t, s, other))
	assert.Empty(t, listKeys(t, s, "/run/pg-none"))

	count := 0
	require.NoError(t, s.List(ctx, prefix, func(string) bool {
		count++
		return count < 2
	}))
	assert.Equal(t, 2, count)

	blob := []byte{0x00, 0x01, 0xFF, 0xFE}
	require.NoError(t, s.Set(ctx, prefix, "blob.bin", blob))
	value, err = s.Get(ctx, prefix, "blob.bin")
	require.NoError(t, err)
	assert.Equal(t, blob, value)

	require.NoError(t, s.Remove(ctx, prefix, "output.json"))
	require.NoError(t, s.Remove(ctx, prefix, "output.json"))
	value, err = s.Get(ctx, prefix, "output.json")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(c *Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"no host", func(c *Config) { c.Host = "" }, false},
		{"zero port", func(c *Config) { c.Port = 0 }, false},
		{"port too large", func(c *Config) { c.Port = 70000 }, false},
		{"no user", func(c *Config) { c.User = "" }, false},
		{"no database", func(c *Config) { c.Database = "" }, false},
		{"bad sslmode", func(c *Config) { c.SSLMode = "sometimes" }, false},
		{"verify-full", func(c *Config) { c.SSLMode = "verify-full" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			tc.modify(c)
			if tc.valid {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}

	c := DefaultConfig()
	c.SSLMode = ""
	require.NoError(t, c.Validate())
	assert.Equal(t, "disable", c.SSLMode)
}

func TestConfig_DSN(t *testing.T) {
	c := &Config{Host: "db.internal", Port: 5433, User: "builder", Password: "pw", Database: "artifacts", SSLMode: "require"}
	assert.Equal(t, "host=db.internal port=5433 user=builder password=pw dbname=artifacts sslmode=require", c.DSN())

	parsed, err := ParseDSN(c.DSN())
	require.NoError(t, err)
	assert.Equal(t, c, parsed)

	// unknown and malformed parts are ignored, missing ones keep defaults
	parsed, err = ParseDSN("host=elsewhere application_name=x junk")
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", parsed.Host)
	assert.Equal(t, DefaultConfig().Port, parsed.Port)

	_, err = ParseDSN("sslmode=nope")
	assert.Error(t, err)
}

func TestConfig_Options(t *testing.T) {
	c := &Config{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, c, FromOptions(c.ToOptions()))
	assert.Equal(t, DefaultConfig(), FromOptions(nil))
}
