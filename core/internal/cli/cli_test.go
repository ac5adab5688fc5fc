package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"uac-triage/core/internal/config"
	"uac-triage/core/internal/version"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error", "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
}

func TestRulesCmd(t *testing.T) {
	out, err := execute(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "auth_and_users:")
	assert.Contains(t, out, "- /hash_executables/")

	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesFile, []byte("categories:\n  temp_suspicious: [xmrig]\n"), 0o600))
	out, err = execute(t, "rules", "--rules-file", rulesFile)
	require.NoError(t, err)
	assert.Contains(t, out, "- xmrig")
	assert.Contains(t, out, "- binwalk")
}

func TestClassifyCmd(t *testing.T) {
	out, err := execute(t, "classify", "/tmp/auth.log", "[root]/etc/hostname")
	require.NoError(t, err)
	assert.Regexp(t, `/tmp/auth\.log\s+system_and_auth_logs,temp_suspicious`, out)
	assert.Regexp(t, `\[root\]/etc/hostname\s+-`, out)

	out, err = execute(t, "classify", "--json", "/var/tmp/access.log")
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp/access.log", gjson.Get(out, "0.path").String())
	assert.Equal(t, `["temp_suspicious","web_server"]`, gjson.Get(out, "0.categories|@ugly").String())
}

func TestOrganize(t *testing.T) {
	bundle := filepath.Join(t.TempDir(), "uac-web01-linux-20240101120000")
	require.NoError(t, os.MkdirAll(filepath.Join(bundle, "[root]", "etc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "[root]", "etc", "passwd"), []byte("alice:x:1000:1000:Alice:/home/alice:/bin/bash\n"), 0o644))
	out := t.TempDir()

	stdout, err := execute(t, "--path", bundle, "--output", out, "--run-id", "0badc0de")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Run uac_triage_")
	assert.Regexp(t, `web01\s+1\s+0\s+0\s+ok`, stdout)
	assert.Contains(t, stdout, "completed without problems")

	matches, err := filepath.Glob(filepath.Join(out, "uac_triage_*_0badc0de", "parsed", "web01", "auth_and_users", "[[]root]", "etc", "passwd.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	b, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "alice", gjson.GetBytes(b, "0.username").String())
}

func TestOrganize_ConfigErrors(t *testing.T) {
	_, err := execute(t)
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = execute(t, "--path", t.TempDir(), "--copy-mode", "move")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = execute(t, "--path", t.TempDir(), "--workers", "0")
	assert.ErrorIs(t, err, config.ErrInvalid)
}
