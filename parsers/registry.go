package parsers

import (
	"path"
	"strings"

	"uac-triage/rules"
)

// Select returns the parser for a file of category c at relPath (slash form,
// relative to the system root). Categories without structured formats report
// false.
func Select(c rules.Category, relPath string) (Parser, bool) {
	full := "/" + strings.TrimPrefix(strings.ToLower(relPath), "/")
	base := path.Base(full)

	switch c {
	case rules.AuthAndUsers:
		switch {
		case strings.HasPrefix(base, "gshadow"):
			return GShadow{}, true
		case strings.HasPrefix(base, "shadow"):
			return Shadow{}, true
		case strings.HasPrefix(base, "passwd"):
			return Passwd{}, true
		case strings.HasPrefix(base, "group"):
			return Group{}, true
		case strings.HasPrefix(base, "sudoers"), strings.Contains(full, "/etc/sudoers.d/"):
			return Sudoers{}, true
		case strings.HasSuffix(base, "history"):
			return History{}, true
		}
		return Lines{}, true

	case rules.CronPersistence:
		switch {
		case strings.HasSuffix(base, ".timer"), strings.HasSuffix(base, ".service"):
			return Verbatim{}, true
		case strings.Contains(full, "/var/log/"):
			return Syslog{}, true
		case strings.Contains(base, "systemd-timers"), cronScriptDir(full):
			return Lines{}, true
		}
		return Cron{System: strings.Contains(full, "/etc/crontab") || strings.Contains(full, "/etc/cron.d/")}, true

	case rules.SSHConfig:
		switch {
		case strings.Contains(base, "authorized_keys"):
			return SSHKeys{}, true
		case strings.Contains(base, "known_hosts"):
			return SSHKeys{KnownHosts: true}, true
		}
		return SSHConfig{}, true

	case rules.SystemAndAuthLogs:
		return Syslog{}, true

	case rules.WebServer:
		if strings.Contains(base, "access") {
			return AccessLog{}, true
		}
		return Lines{}, true

	case rules.Hashes:
		return Verbatim{}, true
	}
	return nil, false
}

func cronScriptDir(full string) bool {
	for _, d := range []string{"/etc/cron.hourly/", "/etc/cron.daily/", "/etc/cron.weekly/", "/etc/cron.monthly/"} {
		if strings.Contains(full, d) {
			return true
		}
	}
	return false
}
