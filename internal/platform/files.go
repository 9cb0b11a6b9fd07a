package platform

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// OSFiles is the filesystem adapter. It is portable and used as-is on
// every platform.
type OSFiles struct{}

func (OSFiles) Copy(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}
	out, err := os.Create(destination)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s to %s: %w", source, destination, err)
	}
	return out.Close()
}

func (f OSFiles) CopyTree(source, destination string) error {
	return filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destination, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return f.Copy(path, target)
	})
}

func (OSFiles) RemovePath(path string) error {
	return os.RemoveAll(path)
}

func (OSFiles) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
