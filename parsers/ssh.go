package parsers

import (
	"io"
	"strings"
)

// SSHConfig parses sshd_config and ssh_config style "Keyword value" lines.
// Directives that follow a Match or Host line carry that block in "match".
type SSHConfig struct{}

func (SSHConfig) Name() string { return "ssh_config" }

func (SSHConfig) Parse(r io.Reader, emit func(Record) error) error {
	var block string
	return scanLines(r, func(line string, n int) error {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return nil
		}

		i := strings.IndexAny(trimmed, " \t=")
		if i <= 0 {
			return emit(fallback(line, n))
		}
		key := trimmed[:i]
		value := strings.TrimSpace(trimmed[i:])
		value = strings.TrimSpace(strings.TrimPrefix(value, "="))
		if value == "" {
			return emit(fallback(line, n))
		}

		rec := Record{"directive": key, "value": value}
		switch strings.ToLower(key) {
		case "match", "host":
			block = key + " " + value
		default:
			if block != "" {
				rec["match"] = block
			}
		}
		return emit(rec)
	})
}

// SSHKeys parses authorized_keys and known_hosts lines. Everything before the
// key type is reported as options (authorized_keys) or hosts (known_hosts).
type SSHKeys struct {
	KnownHosts bool
}

func (k SSHKeys) Name() string {
	if k.KnownHosts {
		return "known_hosts"
	}
	return "authorized_keys"
}

func isKeyType(s string) bool {
	for _, p := range []string{"ssh-", "ecdsa-", "sk-ssh-", "sk-ecdsa-"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (k SSHKeys) Parse(r io.Reader, emit func(Record) error) error {
	prefixKey := "options"
	if k.KnownHosts {
		prefixKey = "hosts"
	}
	return scanLines(r, func(line string, n int) error {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return nil
		}

		fields := strings.Fields(trimmed)
		at := -1
		for i, f := range fields {
			if isKeyType(f) {
				at = i
				break
			}
		}
		if at < 0 || at+1 >= len(fields) {
			return emit(fallback(line, n))
		}

		rec := Record{
			"key_type": fields[at],
			"key":      fields[at+1],
			"comment":  strings.Join(fields[at+2:], " "),
		}
		if at > 0 {
			rec[prefixKey] = strings.Join(fields[:at], " ")
		}
		return emit(rec)
	})
}
