package props

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate_CreatesAndRewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "local.properties")

	require.NoError(t, Update(path, "user.name", "Leanne Graham"))
	require.NoError(t, Update(path, "api.key", "k1"))
	require.NoError(t, Update(path, "user.name", "Ervin Howell"))

	v, ok, err := Lookup(path, "user.name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ervin Howell", v)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Less(t, strings.Index(text, "user.name"), strings.Index(text, "api.key"), "existing keys keep their order")
	assert.Equal(t, 1, strings.Count(text, "user.name"))
}

func TestLookup_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.properties")
	require.NoError(t, Update(path, "base-uri", "http://file"))

	t.Setenv("APICONTRACT_BASE_URI", "http://env")
	v, ok, err := Lookup(path, "base-uri")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://env", v)
}

func TestLookup_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.properties")
	_, ok, err := Lookup(path, "nothing.here")
	require.NoError(t, err)
	assert.False(t, ok)

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())
}
