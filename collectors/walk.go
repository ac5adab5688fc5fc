package collectors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotDirectory = errors.New("not a directory")

type WalkOptions struct {
	// SkipDirs are directory names directly under a system root that are not descended.
	SkipDirs []string
}

type Walker struct {
	opts WalkOptions
}

func NewWalker(opts WalkOptions) *Walker { return &Walker{opts: opts} }

type walkState struct {
	ctx     context.Context
	sys     System
	root    string
	skipSet map[string]bool
	visited map[string]bool
	fn      func(ArtifactFile) error
	skips   []Skip
}

// Walk emits every regular file below sys.Root to fn. Entries that cannot be
// read are returned as skips; only an unusable root, a cancelled ctx or an
// error from fn stop the walk.
func (w *Walker) Walk(ctx context.Context, sys System, fn func(ArtifactFile) error) ([]Skip, error) {
	abs, err := filepath.Abs(sys.Root)
	if err != nil {
		return nil, err
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, sys.Root)
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, err
	}

	s := &walkState{
		ctx:     ctx,
		sys:     sys,
		root:    root,
		skipSet: make(map[string]bool, len(w.opts.SkipDirs)),
		visited: make(map[string]bool),
		fn:      fn,
	}
	for _, d := range w.opts.SkipDirs {
		s.skipSet[d] = true
	}

	err = s.walkDir(root, "")
	return s.skips, err
}

func (s *walkState) skip(path, reason string) {
	s.skips = append(s.skips, Skip{Path: path, Reason: reason})
}

func (s *walkState) walkDir(dir, relBase string) error {
	s.visited[dir] = true

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			s.skip(path, walkErr.Error())
			return nil
		}
		if path == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			s.skip(path, err.Error())
			return nil
		}
		rel = filepath.ToSlash(filepath.Join(relBase, rel))

		switch {
		case d.IsDir():
			if relBase == "" && filepath.Dir(path) == s.root && s.skipSet[d.Name()] {
				return filepath.SkipDir
			}
			s.visited[path] = true
			return nil
		case d.Type()&fs.ModeSymlink != 0:
			return s.followLink(path, rel)
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				s.skip(path, err.Error())
				return nil
			}
			return s.emit(path, rel, info)
		default:
			s.skip(path, "not a regular file ("+d.Type().String()+")")
			return nil
		}
	})
}

func (s *walkState) followLink(path, rel string) error {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		s.skip(path, "dangling symlink: "+err.Error())
		return nil
	}
	if target != s.root && !strings.HasPrefix(target, s.root+string(os.PathSeparator)) {
		s.skip(path, "symlink points outside the collection: "+target)
		return nil
	}

	info, err := os.Stat(target)
	if err != nil {
		s.skip(path, err.Error())
		return nil
	}
	switch {
	case info.IsDir():
		if s.visited[target] {
			s.skip(path, "symlink loop: "+target+" already visited")
			return nil
		}
		return s.walkDir(target, rel)
	case info.Mode().IsRegular():
		return s.emit(path, rel, info)
	default:
		s.skip(path, "symlink to non-regular file")
		return nil
	}
}

func (s *walkState) emit(path, rel string, info fs.FileInfo) error {
	return s.fn(ArtifactFile{
		SystemID:     s.sys.ID,
		SourcePath:   path,
		RelativePath: rel,
		SizeBytes:    info.Size(),
		ModTime:      info.ModTime(),
		Mode:         info.Mode(),
	})
}
