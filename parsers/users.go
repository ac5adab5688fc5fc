package parsers

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/structs"
)

type passwdEntry struct {
	Username            string `structs:"username"`
	PasswordPlaceholder string `structs:"password_placeholder"`
	UID                 string `structs:"uid"`
	GID                 string `structs:"gid"`
	Gecos               string `structs:"gecos"`
	Home                string `structs:"home"`
	Shell               string `structs:"shell"`
}

type shadowEntry struct {
	Username       string `structs:"username"`
	PasswordState  string `structs:"password_state"`
	HashAlgorithm  string `structs:"hash_algorithm,omitempty"`
	LastChange     string `structs:"last_change"`
	MinAge         string `structs:"min_age"`
	MaxAge         string `structs:"max_age"`
	WarnPeriod     string `structs:"warn_period"`
	InactivePeriod string `structs:"inactive_period"`
	ExpireDate     string `structs:"expire_date"`
}

type groupEntry struct {
	GroupName           string   `structs:"group_name"`
	PasswordPlaceholder string   `structs:"password_placeholder"`
	GID                 string   `structs:"gid"`
	Members             []string `structs:"members"`
}

type gshadowEntry struct {
	GroupName      string   `structs:"group_name"`
	PasswordState  string   `structs:"password_state"`
	Administrators []string `structs:"administrators"`
	Members        []string `structs:"members"`
}

// colonFile drives the /etc/passwd family: one entry per line, ':' separated,
// a fixed field count. Comments and blank lines are skipped.
func colonFile(r io.Reader, fields int, build func([]string) any, emit func(Record) error) error {
	return scanLines(r, func(line string, n int) error {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return nil
		}
		parts := strings.Split(line, ":")
		if len(parts) != fields {
			return emit(fallback(line, n))
		}
		return emit(Record(structs.Map(build(parts))))
	})
}

type Passwd struct{}

func (Passwd) Name() string { return "passwd" }

func (Passwd) Parse(r io.Reader, emit func(Record) error) error {
	return colonFile(r, 7, func(p []string) any {
		return passwdEntry{
			Username:            p[0],
			PasswordPlaceholder: p[1],
			UID:                 p[2],
			GID:                 p[3],
			Gecos:               p[4],
			Home:                p[5],
			Shell:               p[6],
		}
	}, emit)
}

// Shadow never emits the password hash, only its state and algorithm.
type Shadow struct{}

func (Shadow) Name() string { return "shadow" }

func (Shadow) Parse(r io.Reader, emit func(Record) error) error {
	return colonFile(r, 9, func(p []string) any {
		state, alg := passwordState(p[1])
		return shadowEntry{
			Username:       p[0],
			PasswordState:  state,
			HashAlgorithm:  alg,
			LastChange:     p[2],
			MinAge:         p[3],
			MaxAge:         p[4],
			WarnPeriod:     p[5],
			InactivePeriod: p[6],
			ExpireDate:     p[7],
		}
	}, emit)
}

type Group struct{}

func (Group) Name() string { return "group" }

func (Group) Parse(r io.Reader, emit func(Record) error) error {
	return colonFile(r, 4, func(p []string) any {
		return groupEntry{
			GroupName:           p[0],
			PasswordPlaceholder: p[1],
			GID:                 p[2],
			Members:             splitList(p[3]),
		}
	}, emit)
}

type GShadow struct{}

func (GShadow) Name() string { return "gshadow" }

func (GShadow) Parse(r io.Reader, emit func(Record) error) error {
	return colonFile(r, 4, func(p []string) any {
		state, _ := passwordState(p[1])
		return gshadowEntry{
			GroupName:      p[0],
			PasswordState:  state,
			Administrators: splitList(p[2]),
			Members:        splitList(p[3]),
		}
	}, emit)
}

func splitList(s string) []string {
	out := []string{}
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

var hashAlgorithms = map[string]string{
	"1":  "md5",
	"2a": "bcrypt",
	"2b": "bcrypt",
	"2y": "bcrypt",
	"5":  "sha256",
	"6":  "sha512",
	"7":  "scrypt",
	"y":  "yescrypt",
	"gy": "gost-yescrypt",
}

func passwordState(field string) (state, algorithm string) {
	locked := strings.HasPrefix(field, "!")
	hash := strings.TrimLeft(field, "!")

	switch {
	case field == "":
		return "empty", ""
	case hash == "" || hash == "*":
		if locked {
			return "locked", ""
		}
		return "no_login", ""
	}

	if strings.HasPrefix(hash, "$") {
		if parts := strings.SplitN(hash[1:], "$", 2); len(parts) == 2 {
			algorithm = hashAlgorithms[parts[0]]
			if algorithm == "" {
				algorithm = parts[0]
			}
		}
	} else if len(hash) == 13 {
		algorithm = "des"
	}
	if locked {
		return "locked", algorithm
	}
	return "hash", algorithm
}

// Sudoers emits one {rule} per statement, joining backslash continued lines.
// A continuation still open at EOF becomes a fallback record.
type Sudoers struct{}

func (Sudoers) Name() string { return "sudoers" }

func (Sudoers) Parse(r io.Reader, emit func(Record) error) error {
	var (
		pending strings.Builder
		raw     []string
		start   int
	)
	err := scanLines(r, func(line string, n int) error {
		trimmed := strings.TrimSpace(line)
		if pending.Len() == 0 {
			for _, kw := range []string{"#includedir", "@includedir", "#include", "@include"} {
				if strings.HasPrefix(trimmed, kw+" ") {
					return emit(Record{
						"directive": strings.TrimLeft(kw, "#@"),
						"include":   strings.TrimSpace(trimmed[len(kw):]),
					})
				}
			}
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				return nil
			}
		}
		if strings.HasSuffix(trimmed, "\\") {
			if pending.Len() == 0 {
				start = n
			}
			raw = append(raw, line)
			pending.WriteString(strings.TrimSuffix(trimmed, "\\"))
			pending.WriteString(" ")
			return nil
		}
		pending.WriteString(trimmed)
		rule := strings.Join(strings.Fields(pending.String()), " ")
		pending.Reset()
		raw = raw[:0]
		return emit(Record{"rule": rule})
	})
	if err != nil {
		return err
	}
	if pending.Len() > 0 {
		return emit(fallback(strings.Join(raw, "\n"), start))
	}
	return nil
}

var (
	bashTimestamp = regexp.MustCompile(`^#(\d{9,11})$`)
	zshExtended   = regexp.MustCompile(`^: (\d{9,11}):\d+;(.*)$`)
)

// History emits one {raw_command, line_number} per command line of a shell
// history file. Bash HISTTIMEFORMAT markers and zsh extended entries add a
// timestamp.
type History struct{}

func (History) Name() string { return "history" }

func (History) Parse(r io.Reader, emit func(Record) error) error {
	var stamp string
	return scanLines(r, func(line string, n int) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		if m := bashTimestamp.FindStringSubmatch(line); m != nil {
			stamp = epoch(m[1])
			return nil
		}
		rec := Record{"raw_command": line, "line_number": n}
		if m := zshExtended.FindStringSubmatch(line); m != nil {
			rec["raw_command"] = m[2]
			rec["timestamp"] = epoch(m[1])
		} else if stamp != "" {
			rec["timestamp"] = stamp
		}
		stamp = ""
		return emit(rec)
	})
}

func epoch(s string) string {
	sec, _ := strconv.ParseInt(s, 10, 64)
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
