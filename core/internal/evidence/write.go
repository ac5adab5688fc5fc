package evidence

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

func EnsureParent(fs afero.Fs, path string) error {
	return fs.MkdirAll(filepath.Dir(path), 0o755)
}

func WriteFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	if err := EnsureParent(fs, path); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, perm); err != nil {
		return err
	}
	return fs.Rename(tmp, path)
}

func WriteJSON(fs afero.Fs, path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(fs, path, append(b, '\n'), 0o600)
}
