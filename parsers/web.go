package parsers

import (
	"io"
	"regexp"
	"strings"
)

// 10.0.0.5 - bob [10/Oct/2024:13:55:36 +0000] "GET /x HTTP/1.1" 200 2326 "-" "curl/8.0"
var accessLine = regexp.MustCompile(`^(\S+) (\S+) (\S+) \[([^\]]+)\] "((?:[^"\\]|\\.)*)" ([0-9]{3}) (\S+)(?: "((?:[^"\\]|\\.)*)" "((?:[^"\\]|\\.)*)")?`)

// AccessLog parses Apache/nginx common and combined log format lines.
type AccessLog struct{}

func (AccessLog) Name() string { return "access_log" }

func (AccessLog) Parse(r io.Reader, emit func(Record) error) error {
	return scanLines(r, func(line string, n int) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		m := accessLine.FindStringSubmatch(line)
		if m == nil {
			return emit(fallback(line, n))
		}
		rec := Record{
			"remote_addr": m[1],
			"ident":       m[2],
			"user":        m[3],
			"time":        m[4],
			"request":     m[5],
			"status":      m[6],
			"bytes":       m[7],
		}
		if m[8] != "" || m[9] != "" {
			rec["referer"] = m[8]
			rec["user_agent"] = m[9]
		}
		return emit(rec)
	})
}
