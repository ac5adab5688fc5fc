package parsers

import (
	"io"
	"regexp"
	"strings"

	"github.com/fatih/structs"
)

type cronEntry struct {
	Minute     string `structs:"minute"`
	Hour       string `structs:"hour"`
	DayOfMonth string `structs:"day_of_month"`
	Month      string `structs:"month"`
	DayOfWeek  string `structs:"day_of_week"`
	User       string `structs:"user,omitempty"`
	Command    string `structs:"command"`
}

var (
	cronClock = regexp.MustCompile(`^[0-9*/,-]+$`)
	cronDate  = regexp.MustCompile(`^[0-9A-Za-z*/,?#-]+$`)
	cronEnv   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)$`)
)

// Cron parses crontab lines. System crontabs (/etc/crontab, /etc/cron.d)
// carry a user column between the schedule and the command.
type Cron struct {
	System bool
}

func (c Cron) Name() string {
	if c.System {
		return "system_crontab"
	}
	return "crontab"
}

func (c Cron) Parse(r io.Reader, emit func(Record) error) error {
	want := 6
	if c.System {
		want = 7
	}
	return scanLines(r, func(line string, n int) error {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			return nil
		}

		if strings.HasPrefix(trimmed, "@") {
			f := splitFields(trimmed, want-4)
			if len(f) != want-4 {
				return emit(fallback(line, n))
			}
			rec := Record{"schedule": f[0], "command": f[len(f)-1]}
			if c.System {
				rec["user"] = f[1]
			}
			return emit(rec)
		}

		if m := cronEnv.FindStringSubmatch(trimmed); m != nil {
			return emit(Record{"variable": m[1], "value": m[2]})
		}

		f := splitFields(trimmed, want)
		if len(f) != want || !validSchedule(f[:5]) {
			return emit(fallback(line, n))
		}
		e := cronEntry{
			Minute:     f[0],
			Hour:       f[1],
			DayOfMonth: f[2],
			Month:      f[3],
			DayOfWeek:  f[4],
			Command:    f[len(f)-1],
		}
		if c.System {
			e.User = f[5]
		}
		return emit(Record(structs.Map(e)))
	})
}

func validSchedule(f []string) bool {
	return cronClock.MatchString(f[0]) &&
		cronClock.MatchString(f[1]) &&
		cronDate.MatchString(f[2]) &&
		cronDate.MatchString(f[3]) &&
		cronDate.MatchString(f[4])
}
