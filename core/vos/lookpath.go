package vos

import (
	"errors"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

func findExecutable(fsys afero.Fs, file string) error {
	d, err := fsys.Stat(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case err != nil:
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the colon separated
// directories of search. If file contains a slash, it is tried directly and
// search is not consulted. Relative results are resolved against wd.
func LookPath(fsys afero.Fs, search, wd, file string) (string, error) {
	if strings.Contains(file, "/") {
		file = absolute(wd, file)
		if err := findExecutable(fsys, file); err != nil {
			return "", err
		}
		return file, nil
	}

	for _, dir := range filepath.SplitList(search) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := absolute(wd, filepath.Join(dir, file))
		if err := findExecutable(fsys, path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

func absolute(wd, name string) string {
	if filepath.IsAbs(name) || wd == "" {
		return name
	}
	return filepath.Join(wd, name)
}
