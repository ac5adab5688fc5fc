package evidence

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"uac-triage/rules"
)

const (
	KindOriginal = "original"
	KindParsed   = "parsed"
	KindAnalysis = "analysis"
)

// runStamp is the compact timestamp used in run directory names.
const runStamp = "20060102T150405"

var ErrRunExists = errors.New("run directory already exists")

type RunOptions struct {
	Base   string
	Prefix string
	ID     string
	Now    time.Time
	Mode   CopyMode
}

// Run is one output tree. It is created exclusively and never reused.
type Run struct {
	Fs        afero.Fs
	ID        string
	Name      string
	Dir       string
	CreatedAt time.Time
	Mode      CopyMode
}

func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func RunName(prefix string, ts time.Time, id string) string {
	return fmt.Sprintf("%s_%s_%s", prefix, ts.UTC().Format(runStamp), id)
}

// CreateRun makes <base>/<prefix>_<ts>_<id> with its original/ and parsed/
// trees. An existing directory of the same name is an error.
func CreateRun(fs afero.Fs, opts RunOptions) (*Run, error) {
	if opts.ID == "" {
		opts.ID = NewRunID()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Mode == "" {
		opts.Mode = CopyModeCopy
	}

	if err := fs.MkdirAll(opts.Base, 0o755); err != nil {
		return nil, fmt.Errorf("create output base: %w", err)
	}

	name := RunName(opts.Prefix, opts.Now, opts.ID)
	dir := filepath.Join(opts.Base, name)
	if err := fs.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunExists, dir)
		}
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	for _, kind := range []string{KindOriginal, KindParsed} {
		if err := fs.Mkdir(filepath.Join(dir, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create %s tree: %w", kind, err)
		}
	}

	return &Run{
		Fs:        fs,
		ID:        opts.ID,
		Name:      name,
		Dir:       dir,
		CreatedAt: opts.Now.UTC(),
		Mode:      opts.Mode,
	}, nil
}

// Destination builds <root>/<kind>/<system>/<category>/<rel>. The relative
// path is cleaned so the result always stays inside the category directory.
func Destination(root, kind, systemID string, c rules.Category, rel string) string {
	return filepath.Join(root, kind, safeSegment(systemID), string(c), filepath.FromSlash(cleanRel(rel)))
}

func cleanRel(rel string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(rel)), "/")
}

func safeSegment(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// Rel returns p relative to the run directory in slash form.
func (r *Run) Rel(p string) string {
	rel, err := filepath.Rel(r.Dir, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func (r *Run) Path(elem ...string) string {
	return filepath.Join(append([]string{r.Dir}, elem...)...)
}
