package rules

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Defaults(t *testing.T) {
	c := NewClassifier(Default())

	tests := []struct {
		name string
		path string
		want []Category
	}{
		{"passwd", "[root]/etc/passwd", []Category{AuthAndUsers}},
		{"bash history", "[root]/home/alice/.bash_history", []Category{AuthAndUsers}},
		{"zsh history", "[root]/home/alice/.zsh_history", []Category{AuthAndUsers}},
		{"sudoers drop-in", "[root]/etc/sudoers.d/90-cloud", []Category{AuthAndUsers}},
		{"crontab", "[root]/etc/crontab", []Category{CronPersistence}},
		{"cron.d", "[root]/etc/cron.d/backup", []Category{CronPersistence}},
		{"timer unit", "[root]/etc/systemd/system/evil.timer", []Category{CronPersistence}},
		{"sshd config", "[root]/etc/ssh/sshd_config", []Category{SSHConfig}},
		{"authorized keys", "[root]/root/.ssh/authorized_keys", []Category{SSHConfig}},
		{"syslog", "[root]/var/log/syslog", []Category{SystemAndAuthLogs}},
		{"tmp auth.log", "/tmp/auth.log", []Category{SystemAndAuthLogs, TempSuspicious}},
		{"var tmp access log", "/var/tmp/access.log", []Category{TempSuspicious, WebServer}},
		{"var tmp binary", "/var/tmp/badbin", []Category{TempSuspicious}},
		{"nginx dir", "[root]/var/log/nginx/other.log.1", []Category{WebServer}},
		{"hash list", "hash_executables/hash_executables.md5", []Category{Hashes}},
		{"sshd drop-in", "[root]/etc/ssh/sshd_config.d/50-cloud-init.conf", []Category{SSHConfig}},
		{"ssh client drop-in", "[root]/etc/ssh/ssh_config.d/20-systemd.conf", []Category{SSHConfig}},
		{"nginx site", "[root]/etc/nginx/sites-enabled/default", []Category{WebServer}},
		{"apache site", "[root]/etc/apache2/sites-available/000-default.conf", []Category{WebServer}},
		{"httpd conf.d", "[root]/etc/httpd/conf.d/ssl.conf", []Category{WebServer}},
		{"at allow", "[root]/etc/at.allow", []Category{CronPersistence}},
		{"short at keyword not used", "[root]/var/lib/state/data", nil},
		{"uncategorized", "[root]/etc/hostname", nil},
		{"case insensitive", "[root]/VAR/LOG/SYSLOG", []Category{SystemAndAuthLogs}},
		{"absolute", "/data/etc/shadow", []Category{AuthAndUsers}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.path))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier(Default())
	paths := []string{
		"/tmp/auth.log",
		"[root]/etc/group",
		"[root]/var/log/apache2/access.log",
		"[root]/usr/bin/ls",
		"hash_executables/list_to_hash.txt",
	}

	first := make(map[string][]Category)
	for _, p := range paths {
		first[p] = c.Classify(p)
	}

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		r.Shuffle(len(paths), func(a, b int) { paths[a], paths[b] = paths[b], paths[a] })
		for _, p := range paths {
			assert.Equal(t, first[p], c.Classify(p), p)
		}
	}
}

func TestClassify_CustomRuleSet(t *testing.T) {
	rs, err := NewRuleSet([]MatchRule{
		{Category: WebServer, Patterns: []string{"/srv/www/**", "*.PHP"}},
	})
	require.NoError(t, err)
	c := NewClassifier(rs)

	assert.Equal(t, []Category{WebServer}, c.Classify("/srv/www/html/index.html"))
	assert.Equal(t, []Category{WebServer}, c.Classify("/opt/app/shell.php"))
	assert.Nil(t, c.Classify("/etc/passwd"))
}

func TestClassify_EmptyRuleSet(t *testing.T) {
	c := NewClassifier(nil)
	assert.Nil(t, c.Classify("/etc/passwd"))
}

func TestNewRuleSet_Errors(t *testing.T) {
	_, err := NewRuleSet([]MatchRule{{Category: "browser", Patterns: []string{"x"}}})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = NewRuleSet([]MatchRule{{Category: Hashes, Patterns: []string{"/a/[b"}}})
	assert.Error(t, err)
}

func TestRuleSet_RulesRoundTrip(t *testing.T) {
	rs := Default()
	again, err := NewRuleSet(rs.Rules())
	require.NoError(t, err)
	assert.Equal(t, rs.Rules(), again.Rules())
	assert.Len(t, rs.Rules(), len(Categories()))
}
