package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"auth_and_users", "auth-and-users", "AuthAndUsers", "authAndUsers", "authandusers"} {
		c, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, AuthAndUsers, c, in)
	}

	_, err := ParseCategory("browser_history")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  web-server:
    - /srv/www/
  TempSuspicious:
    - xmrig
`), 0o600))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[Category][]string{
		WebServer:      {"/srv/www/"},
		TempSuspicious: {"xmrig"},
	}, got)
}

func TestLoadFile_UnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  nope: [x]\n"), 0o600))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestMerge(t *testing.T) {
	base := []MatchRule{
		{Category: AuthAndUsers, Patterns: []string{"passwd"}},
		{Category: WebServer, Patterns: []string{"nginx"}},
	}
	extra := map[Category][]string{
		WebServer: {"caddy", "nginx"},
		Hashes:    {"/hash_executables/"},
	}

	extended, err := Merge(base, extra, MergeExtend)
	require.NoError(t, err)
	assert.Equal(t, []MatchRule{
		{Category: AuthAndUsers, Patterns: []string{"passwd"}},
		{Category: WebServer, Patterns: []string{"nginx", "caddy"}},
		{Category: Hashes, Patterns: []string{"/hash_executables/"}},
	}, extended)

	replaced, err := Merge(base, extra, MergeReplace)
	require.NoError(t, err)
	assert.Equal(t, []string{"caddy", "nginx"}, replaced[1].Patterns)

	_, err = Merge(base, extra, "append")
	assert.Error(t, err)
}

func TestMarshalYAML(t *testing.T) {
	b, err := MarshalYAML(Default())
	require.NoError(t, err)
	assert.Contains(t, string(b), "auth_and_users:")
	assert.Contains(t, string(b), "- /hash_executables/")
}
