package rules

// DefaultRules is the built-in keyword table. It is a starting set and is meant
// to be extended through configuration.
func DefaultRules() []MatchRule {
	return []MatchRule{
		{Category: AuthAndUsers, Patterns: []string{
			"passwd", "shadow", "group", "login", "who", "lastlog",
			"bash_history", ".bash_history", "*_history",
			"sudoers", "/etc/sudoers.d/",
		}},
		{Category: CronPersistence, Patterns: []string{
			"cron", "crontab", "anacrontab", "at.allow", "at.deny",
			"/etc/cron", "/var/spool/cron/", "/var/spool/at/",
			"systemd-timers", "*.timer",
		}},
		{Category: SSHConfig, Patterns: []string{
			"sshd_config", "ssh_config", "authorized_keys", "known_hosts",
		}},
		{Category: SystemAndAuthLogs, Patterns: []string{
			"syslog", "auth.log", "secure", "messages", "dmesg", "kern.log",
		}},
		{Category: TempSuspicious, Patterns: []string{
			"/tmp/", "/var/tmp/", "/dev/shm/",
			"tmp", "temp", "suspicious", "malware", "binwalk",
		}},
		{Category: WebServer, Patterns: []string{
			"apache", "nginx", "httpd", "access.log", "error.log",
			"/var/log/apache2/", "/var/log/nginx/", "/var/log/httpd/",
		}},
		{Category: Hashes, Patterns: []string{
			"/hash_executables/",
		}},
	}
}

func Default() *RuleSet {
	rs, err := NewRuleSet(DefaultRules())
	if err != nil {
		panic(err)
	}
	return rs
}
