package parsers

import (
	"io"
	"regexp"
	"strings"
)

var (
	// Jan  5 12:00:01 web01 sshd[1234]: Accepted publickey for root
	bsdSyslog = regexp.MustCompile(`^([A-Z][a-z]{2} [ 0-9][0-9] [0-9]{2}:[0-9]{2}:[0-9]{2})\s+(\S+)\s+([^\s:\[]+(?:\[[^\]]*\])?):\s?(.*)$`)
	// 2024-01-05T12:00:01.123456+00:00 web01 sshd[1234]: Accepted publickey for root
	isoSyslog = regexp.MustCompile(`^([0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}(?:\.[0-9]+)?(?:Z|[+-][0-9]{2}:?[0-9]{2}))\s+(\S+)\s+([^\s:\[]+(?:\[[^\]]*\])?):\s?(.*)$`)
)

// Syslog parses syslog/auth.log style lines into
// {timestamp, hostname, process_and_pid, message}.
type Syslog struct{}

func (Syslog) Name() string { return "syslog" }

func (Syslog) Parse(r io.Reader, emit func(Record) error) error {
	return scanLines(r, func(line string, n int) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		m := bsdSyslog.FindStringSubmatch(line)
		if m == nil {
			m = isoSyslog.FindStringSubmatch(line)
		}
		if m == nil {
			return emit(fallback(line, n))
		}
		return emit(Record{
			"timestamp":       m[1],
			"hostname":        m[2],
			"process_and_pid": m[3],
			"message":         m[4],
		})
	})
}
