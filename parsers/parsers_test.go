package parsers

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAll(t *testing.T, p Parser, input string) []Record {
	t.Helper()
	var out []Record
	err := p.Parse(strings.NewReader(input), func(r Record) error {
		out = append(out, r)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestPasswd(t *testing.T) {
	recs := parseAll(t, Passwd{}, "alice:x:1000:1000:Alice:/home/alice:/bin/bash\n")
	require.Len(t, recs, 1)
	assert.Equal(t, Record{
		"username":             "alice",
		"password_placeholder": "x",
		"uid":                  "1000",
		"gid":                  "1000",
		"gecos":                "Alice",
		"home":                 "/home/alice",
		"shell":                "/bin/bash",
	}, recs[0])
	assert.False(t, recs[0].Warning())
}

func TestPasswd_Malformed(t *testing.T) {
	recs := parseAll(t, Passwd{}, "# comment\n\nroot:x:0:0:root:/root:/bin/bash\nbroken:x:1\n")
	require.Len(t, recs, 2)
	assert.Equal(t, Record{"raw_line": "broken:x:1", "line_number": 4, "parse_warning": true}, recs[1])
	assert.True(t, recs[1].Warning())
}

func TestShadow(t *testing.T) {
	input := strings.Join([]string{
		"root:$6$salt$0123456789abcdef:19000:0:99999:7:::",
		"daemon:*:19000:0:99999:7:::",
		"bob:!$y$j9T$salt$hash:19000:0:99999:7:::",
		"guest::19000:0:99999:7:::",
		"old:abCDefGHijKLm:19000:0:99999:7:::",
	}, "\n")
	recs := parseAll(t, Shadow{}, input)
	require.Len(t, recs, 5)

	assert.Equal(t, "hash", recs[0]["password_state"])
	assert.Equal(t, "sha512", recs[0]["hash_algorithm"])
	assert.Equal(t, "19000", recs[0]["last_change"])
	assert.Equal(t, "", recs[0]["expire_date"])

	assert.Equal(t, "no_login", recs[1]["password_state"])
	assert.NotContains(t, recs[1], "hash_algorithm")

	assert.Equal(t, "locked", recs[2]["password_state"])
	assert.Equal(t, "yescrypt", recs[2]["hash_algorithm"])

	assert.Equal(t, "empty", recs[3]["password_state"])
	assert.Equal(t, "des", recs[4]["hash_algorithm"])

	for _, r := range recs {
		for _, v := range r {
			s, _ := v.(string)
			assert.NotContains(t, s, "$salt$")
			assert.NotEqual(t, "abCDefGHijKLm", s)
		}
	}
}

func TestGroup(t *testing.T) {
	recs := parseAll(t, Group{}, "sudo:x:27:alice,bob\nnogroup:x:65534:\n")
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"alice", "bob"}, recs[0]["members"])
	assert.Equal(t, "27", recs[0]["gid"])
	assert.Equal(t, []string{}, recs[1]["members"])
}

func TestGShadow(t *testing.T) {
	recs := parseAll(t, GShadow{}, "sudo:*:root:alice\n")
	require.Len(t, recs, 1)
	assert.Equal(t, Record{
		"group_name":     "sudo",
		"password_state": "no_login",
		"administrators": []string{"root"},
		"members":        []string{"alice"},
	}, recs[0])
}

func TestSudoers(t *testing.T) {
	input := "Defaults env_reset\n#includedir /etc/sudoers.d\nroot ALL=(ALL:ALL) ALL\nalice ALL=(ALL) \\\n    NOPASSWD: ALL\n# comment\n"
	recs := parseAll(t, Sudoers{}, input)
	assert.Equal(t, []Record{
		{"rule": "Defaults env_reset"},
		{"directive": "includedir", "include": "/etc/sudoers.d"},
		{"rule": "root ALL=(ALL:ALL) ALL"},
		{"rule": "alice ALL=(ALL) NOPASSWD: ALL"},
	}, recs)
}

func TestSudoers_UnterminatedContinuation(t *testing.T) {
	recs := parseAll(t, Sudoers{}, "root ALL=(ALL) ALL\nbob ALL=(ALL) \\\n    NOPASSWD: \\\n")
	assert.Equal(t, []Record{
		{"rule": "root ALL=(ALL) ALL"},
		{"raw_line": "bob ALL=(ALL) \\\n    NOPASSWD: \\", "line_number": 2, "parse_warning": true},
	}, recs)
}

func TestHistory(t *testing.T) {
	recs := parseAll(t, History{}, "#1700000000\nls -la\n: 1700000100:0;whoami\n\ncd /tmp\n")
	assert.Equal(t, []Record{
		{"raw_command": "ls -la", "line_number": 2, "timestamp": "2023-11-14T22:13:20Z"},
		{"raw_command": "whoami", "line_number": 3, "timestamp": "2023-11-14T22:15:00Z"},
		{"raw_command": "cd /tmp", "line_number": 5},
	}, recs)
}

func TestCron(t *testing.T) {
	input := strings.Join([]string{
		"# m h dom mon dow command",
		"MAILTO=root",
		"*/5 * * * * /usr/bin/backup --full  >/dev/null 2>&1",
		"@reboot /tmp/.x",
		"0 1 /bin/x",
		"ab * * * * cmd",
	}, "\n")
	recs := parseAll(t, Cron{}, input)
	require.Len(t, recs, 5)

	assert.Equal(t, Record{"variable": "MAILTO", "value": "root"}, recs[0])
	assert.Equal(t, Record{
		"minute":       "*/5",
		"hour":         "*",
		"day_of_month": "*",
		"month":        "*",
		"day_of_week":  "*",
		"command":      "/usr/bin/backup --full  >/dev/null 2>&1",
	}, recs[1])
	assert.Equal(t, Record{"schedule": "@reboot", "command": "/tmp/.x"}, recs[2])
	assert.Equal(t, Record{"raw_line": "0 1 /bin/x", "line_number": 5, "parse_warning": true}, recs[3])
	assert.True(t, recs[4].Warning())
}

func TestCron_System(t *testing.T) {
	recs := parseAll(t, Cron{System: true}, "17 * * * * root cd / && run-parts --report /etc/cron.hourly\n@daily www-data /srv/rotate\n")
	require.Len(t, recs, 2)
	assert.Equal(t, "root", recs[0]["user"])
	assert.Equal(t, "cd / && run-parts --report /etc/cron.hourly", recs[0]["command"])
	assert.Equal(t, Record{"schedule": "@daily", "user": "www-data", "command": "/srv/rotate"}, recs[1])
}

func TestSSHConfig(t *testing.T) {
	input := "# comment\nPort 22\nPermitRootLogin=yes\nListenAddress = 0.0.0.0\nMatch User alice\n    PasswordAuthentication yes\nBanner\n"
	recs := parseAll(t, SSHConfig{}, input)
	assert.Equal(t, []Record{
		{"directive": "Port", "value": "22"},
		{"directive": "PermitRootLogin", "value": "yes"},
		{"directive": "ListenAddress", "value": "0.0.0.0"},
		{"directive": "Match", "value": "User alice"},
		{"directive": "PasswordAuthentication", "value": "yes", "match": "Match User alice"},
		{"raw_line": "Banner", "line_number": 7, "parse_warning": true},
	}, recs)
}

func TestSSHKeys(t *testing.T) {
	recs := parseAll(t, SSHKeys{}, "command=\"/bin/backup\",no-pty ssh-ed25519 AAAAC3Nz alice@laptop\nssh-rsa AAAAB3Nz\ngarbage\n")
	assert.Equal(t, []Record{
		{"options": "command=\"/bin/backup\",no-pty", "key_type": "ssh-ed25519", "key": "AAAAC3Nz", "comment": "alice@laptop"},
		{"key_type": "ssh-rsa", "key": "AAAAB3Nz", "comment": ""},
		{"raw_line": "garbage", "line_number": 3, "parse_warning": true},
	}, recs)

	hosts := parseAll(t, SSHKeys{KnownHosts: true}, "github.com,140.82.112.3 ecdsa-sha2-nistp256 AAAAE2Vj\n")
	require.Len(t, hosts, 1)
	assert.Equal(t, "github.com,140.82.112.3", hosts[0]["hosts"])
	assert.Equal(t, "ecdsa-sha2-nistp256", hosts[0]["key_type"])
}

func TestSyslog(t *testing.T) {
	input := strings.Join([]string{
		"Jan  5 12:00:01 web01 sshd[1234]: Accepted publickey for root from 10.0.0.1 port 51515 ssh2",
		"2024-01-05T12:00:01.123456+00:00 web01 CRON[99]: (root) CMD (run-parts /etc/cron.hourly)",
		"Jan 15 08:10:00 web01 kernel: [    0.000000] Linux version 6.1.0",
		"-- Logs begin at Mon 2024-01-01 --",
	}, "\n")
	recs := parseAll(t, Syslog{}, input)
	require.Len(t, recs, 4)

	assert.Equal(t, Record{
		"timestamp":       "Jan  5 12:00:01",
		"hostname":        "web01",
		"process_and_pid": "sshd[1234]",
		"message":         "Accepted publickey for root from 10.0.0.1 port 51515 ssh2",
	}, recs[0])
	assert.Equal(t, "2024-01-05T12:00:01.123456+00:00", recs[1]["timestamp"])
	assert.Equal(t, "CRON[99]", recs[1]["process_and_pid"])
	assert.Equal(t, "kernel", recs[2]["process_and_pid"])
	assert.Equal(t, Record{"raw_line": "-- Logs begin at Mon 2024-01-01 --", "line_number": 4, "parse_warning": true}, recs[3])
}

func TestAccessLog(t *testing.T) {
	input := `10.0.0.5 - bob [10/Oct/2024:13:55:36 +0000] "GET /index.php?cmd=id HTTP/1.1" 200 2326 "-" "curl/8.0"
10.0.0.6 - - [10/Oct/2024:13:55:37 +0000] "POST /upload HTTP/1.1" 500 -
not a log line`
	recs := parseAll(t, AccessLog{}, input)
	require.Len(t, recs, 3)
	assert.Equal(t, Record{
		"remote_addr": "10.0.0.5",
		"ident":       "-",
		"user":        "bob",
		"time":        "10/Oct/2024:13:55:36 +0000",
		"request":     "GET /index.php?cmd=id HTTP/1.1",
		"status":      "200",
		"bytes":       "2326",
		"referer":     "-",
		"user_agent":  "curl/8.0",
	}, recs[0])
	assert.NotContains(t, recs[1], "user_agent")
	assert.Equal(t, "-", recs[1]["bytes"])
	assert.True(t, recs[2].Warning())
}

func TestLinesAndVerbatim(t *testing.T) {
	recs := parseAll(t, Lines{}, "first\n\n  \nthird\r\n")
	assert.Equal(t, []Record{
		{"line_number": 1, "line": "first"},
		{"line_number": 4, "line": "third"},
	}, recs)

	assert.True(t, IsVerbatim(Verbatim{}))
	assert.False(t, IsVerbatim(Lines{}))
	assert.Empty(t, parseAll(t, Verbatim{}, "anything"))
}

func TestParse_EmitErrorStops(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := Lines{}.Parse(strings.NewReader("a\nb\nc\n"), func(Record) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestIsText(t *testing.T) {
	assert.True(t, IsText(strings.NewReader("Jan  5 12:00:01 host sshd[1]: hi\n")))
	assert.False(t, IsText(strings.NewReader("")))
	assert.False(t, IsText(bytes.NewReader([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0})))

	mostlyText := append(bytes.Repeat([]byte("a"), 95), 0, 0, 0, 0, 0)
	assert.True(t, IsText(bytes.NewReader(mostlyText)))
}

func TestSelect(t *testing.T) {
	tests := []struct {
		cat  string
		path string
		want string
	}{
		{"auth_and_users", "[root]/etc/passwd", "passwd"},
		{"auth_and_users", "[root]/etc/passwd-", "passwd"},
		{"auth_and_users", "[root]/etc/shadow", "shadow"},
		{"auth_and_users", "[root]/etc/gshadow", "gshadow"},
		{"auth_and_users", "[root]/etc/group", "group"},
		{"auth_and_users", "[root]/etc/sudoers", "sudoers"},
		{"auth_and_users", "[root]/etc/sudoers.d/90-cloud", "sudoers"},
		{"auth_and_users", "[root]/root/.bash_history", "history"},
		{"auth_and_users", "[root]/etc/login.defs", "lines"},
		{"cron_persistence", "[root]/etc/crontab", "system_crontab"},
		{"cron_persistence", "[root]/etc/cron.d/backup", "system_crontab"},
		{"cron_persistence", "[root]/var/spool/cron/crontabs/alice", "crontab"},
		{"cron_persistence", "[root]/etc/cron.daily/logrotate", "lines"},
		{"cron_persistence", "[root]/etc/systemd/system/evil.timer", "verbatim"},
		{"cron_persistence", "[root]/var/log/cron", "syslog"},
		{"ssh_config", "[root]/etc/ssh/sshd_config", "ssh_config"},
		{"ssh_config", "[root]/root/.ssh/authorized_keys", "authorized_keys"},
		{"ssh_config", "[root]/root/.ssh/known_hosts", "known_hosts"},
		{"system_and_auth_logs", "[root]/var/log/auth.log", "syslog"},
		{"web_server", "[root]/var/log/nginx/access.log", "access_log"},
		{"web_server", "[root]/var/log/nginx/error.log", "lines"},
		{"hashes", "hash_executables/hash_executables.sha1", "verbatim"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, ok := Select(rulesCategory(t, tt.cat), tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.want, p.Name())
		})
	}

	_, ok := Select(rulesCategory(t, "temp_suspicious"), "/tmp/x")
	assert.False(t, ok)
}
