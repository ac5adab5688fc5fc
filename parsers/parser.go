package parsers

import (
	"bufio"
	"io"
	"strings"
)

// Record is one structured entry extracted from a source file.
type Record map[string]any

// Warning reports whether the record is a fallback for a line that did not
// match the expected format.
func (r Record) Warning() bool {
	w, _ := r["parse_warning"].(bool)
	return w
}

// Parser is the interface every artifact format must implement. Parse streams
// records to emit and only fails on read errors or when emit fails; malformed
// lines become fallback records.
type Parser interface {
	Name() string
	Parse(r io.Reader, emit func(Record) error) error
}

type verbatim interface {
	Verbatim() bool
}

// IsVerbatim reports whether the parsed form of the format is the source file
// itself.
func IsVerbatim(p Parser) bool {
	v, ok := p.(verbatim)
	return ok && v.Verbatim()
}

func fallback(line string, n int) Record {
	return Record{"raw_line": line, "line_number": n, "parse_warning": true}
}

const maxLineBytes = 4 * 1024 * 1024

// scanLines calls fn for each line with its 1-based number. Trailing carriage
// returns are dropped.
func scanLines(r io.Reader, fn func(line string, n int) error) error {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for s.Scan() {
		n++
		if err := fn(strings.TrimRight(s.Text(), "\r"), n); err != nil {
			return err
		}
	}
	return s.Err()
}

// splitFields splits s on runs of blanks into at most n fields; the last field
// keeps the remainder of the line verbatim.
func splitFields(s string, n int) []string {
	var out []string
	s = strings.TrimLeft(s, " \t")
	for len(out) < n-1 {
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			break
		}
		out = append(out, s[:i])
		s = strings.TrimLeft(s[i:], " \t")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// IsText sniffs the first KiB of r: empty input or more than 10% bytes outside
// printable text is treated as binary.
func IsText(r io.Reader) bool {
	buf := make([]byte, 1024)
	n, _ := io.ReadFull(r, buf)
	if n == 0 {
		return false
	}
	nontext := 0
	for _, b := range buf[:n] {
		switch {
		case b == 7, b == 8, b == 9, b == 10, b == 12, b == 13, b == 27:
		case b >= 0x20:
		default:
			nontext++
		}
	}
	return float64(nontext)/float64(n) < 0.10
}

// Lines emits every non-blank line as {line_number, line}.
type Lines struct{}

func (Lines) Name() string { return "lines" }

func (Lines) Parse(r io.Reader, emit func(Record) error) error {
	return scanLines(r, func(line string, n int) error {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		return emit(Record{"line_number": n, "line": line})
	})
}

// Verbatim marks formats that are copied unchanged into the parsed tree.
type Verbatim struct{}

func (Verbatim) Name() string { return "verbatim" }

func (Verbatim) Verbatim() bool { return true }

func (Verbatim) Parse(r io.Reader, emit func(Record) error) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
