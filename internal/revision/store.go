package revision

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// writeAtomic writes name through a temporary sibling and renames it into
// place, so a crash never leaves a half-written data file.
func writeAtomic(fs billy.Filesystem, name string, write func(io.Writer) error) (err error) {
	tmp := name + ".tmp"
	f, err := fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = fs.Remove(tmp)
		}
	}()
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, name); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// copyTree copies every file below src into dst, creating directories as
// needed.
func copyTree(fs billy.Filesystem, src, dst string) error {
	if err := fs.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := fs.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(fs, from, to); err != nil {
				return err
			}
			continue
		}
		data, err := util.ReadFile(fs, from)
		if err != nil {
			return err
		}
		if err := util.WriteFile(fs, to, data, entry.Mode().Perm()|0o600); err != nil {
			return err
		}
	}
	return nil
}

func exists(fs billy.Filesystem, name string) (bool, error) {
	_, err := fs.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
