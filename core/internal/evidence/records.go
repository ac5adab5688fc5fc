package evidence

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"uac-triage/collectors"
	"uac-triage/rules"
)

// RecordWriter streams records into a JSON array file so a large log is never
// held in memory. The array only appears under its final name after Close.
type RecordWriter struct {
	fs   afero.Fs
	f    afero.File
	w    *bufio.Writer
	tmp  string
	path string
	n    int
}

func (r *Run) CreateParsed(a collectors.ArtifactFile, c rules.Category) (*RecordWriter, error) {
	dst := r.ParsedPath(a, c, false)
	if err := EnsureParent(r.Fs, dst); err != nil {
		return nil, err
	}
	tmp := dst + ".tmp"
	f, err := r.Fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString("["); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &RecordWriter{fs: r.Fs, f: f, w: w, tmp: tmp, path: dst}, nil
}

func (w *RecordWriter) Path() string { return w.path }

func (w *RecordWriter) Count() int { return w.n }

func (w *RecordWriter) Write(rec any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}

	sep := "\n  "
	if w.n > 0 {
		sep = ",\n  "
	}
	if _, err := w.w.WriteString(sep); err != nil {
		return err
	}
	if _, err := w.w.Write(bytes.TrimRight(buf.Bytes(), "\n")); err != nil {
		return err
	}
	w.n++
	return nil
}

// Close terminates the array and moves the file to its final name.
func (w *RecordWriter) Close() error {
	tail := "]\n"
	if w.n > 0 {
		tail = "\n]\n"
	}
	if _, err := w.w.WriteString(tail); err != nil {
		w.Abort()
		return err
	}
	if err := w.w.Flush(); err != nil {
		w.Abort()
		return err
	}
	if err := w.f.Close(); err != nil {
		_ = w.fs.Remove(w.tmp)
		return err
	}
	return w.fs.Rename(w.tmp, w.path)
}

// Abort discards a partially written output.
func (w *RecordWriter) Abort() {
	_ = w.f.Close()
	_ = w.fs.Remove(w.tmp)
}
