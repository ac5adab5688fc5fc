package evidence

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"uac-triage/collectors"
	"uac-triage/rules"
)

type CopyMode string

const (
	CopyModeCopy     CopyMode = "copy"
	CopyModeSymlink  CopyMode = "symlink"
	CopyModeHardlink CopyMode = "hardlink"
)

var ErrLinkUnsupported = errors.New("output filesystem does not support links")

func ParseCopyMode(s string) (CopyMode, error) {
	switch m := CopyMode(s); m {
	case CopyModeCopy, CopyModeSymlink, CopyModeHardlink:
		return m, nil
	case "":
		return CopyModeCopy, nil
	}
	return "", fmt.Errorf("invalid copy mode %q (want copy, symlink or hardlink)", s)
}

func (r *Run) OriginalPath(a collectors.ArtifactFile, c rules.Category) string {
	return Destination(r.Dir, KindOriginal, a.SystemID, c, a.RelativePath)
}

// ParsedPath is where the parsed form of a lands. Verbatim outputs keep the
// source name, structured outputs get a .json suffix.
func (r *Run) ParsedPath(a collectors.ArtifactFile, c rules.Category, verbatim bool) string {
	p := Destination(r.Dir, KindParsed, a.SystemID, c, a.RelativePath)
	if verbatim {
		return p
	}
	return p + ".json"
}

// CopyArtifact places a under original/ for category c using the run's copy
// mode and returns the destination path.
func (r *Run) CopyArtifact(a collectors.ArtifactFile, c rules.Category) (string, error) {
	dst := r.OriginalPath(a, c)
	if err := EnsureParent(r.Fs, dst); err != nil {
		return "", err
	}

	switch r.Mode {
	case CopyModeSymlink:
		linker, ok := r.Fs.(afero.Linker)
		if !ok {
			return "", ErrLinkUnsupported
		}
		if err := linker.SymlinkIfPossible(a.SourcePath, dst); err != nil {
			return "", fmt.Errorf("symlink %s: %w", a.RelativePath, err)
		}
	case CopyModeHardlink:
		if _, ok := r.Fs.(*afero.OsFs); !ok {
			return "", ErrLinkUnsupported
		}
		if err := os.Link(a.SourcePath, dst); err != nil {
			return "", fmt.Errorf("hardlink %s: %w", a.RelativePath, err)
		}
	default:
		if err := r.copyFile(a, dst); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// CopyVerbatim copies a unchanged into parsed/ for formats whose parsed form
// is the file itself. Always a physical copy.
func (r *Run) CopyVerbatim(a collectors.ArtifactFile, c rules.Category) (string, error) {
	dst := r.ParsedPath(a, c, true)
	if err := EnsureParent(r.Fs, dst); err != nil {
		return "", err
	}
	if err := r.copyFile(a, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (r *Run) copyFile(a collectors.ArtifactFile, dst string) error {
	src, err := os.Open(a.SourcePath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	tmp := dst + ".tmp"
	out, err := r.Fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = r.Fs.Remove(tmp)
		return fmt.Errorf("copy %s: %w", a.RelativePath, err)
	}
	if err := out.Close(); err != nil {
		_ = r.Fs.Remove(tmp)
		return err
	}
	if err := r.Fs.Rename(tmp, dst); err != nil {
		_ = r.Fs.Remove(tmp)
		return err
	}

	perm := a.Mode.Perm()
	if perm == 0 {
		perm = 0o600
	}
	if err := r.Fs.Chmod(dst, perm); err != nil {
		return err
	}
	if !a.ModTime.IsZero() {
		if err := r.Fs.Chtimes(dst, a.ModTime, a.ModTime); err != nil {
			return err
		}
	}
	return nil
}
