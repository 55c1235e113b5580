package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// FsyncDir flushes the directory at path so that files created or renamed
// inside it survive a power cut.
func FsyncDir(path string) error {
	d, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dir %s: %w", path, err)
	}
	return syncClose(d)
}

// syncClose fsyncs f and closes it, reporting the first failure.
func syncClose(f *os.File) error {
	syncErr := f.Sync()
	closeErr := f.Close()
	if syncErr != nil {
		return fmt.Errorf("fsync %s: %w", f.Name(), syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", f.Name(), closeErr)
	}
	return nil
}

// AtomicWriteFile replaces finalPath with data. A reader, or the next boot
// after a power cut, sees either the previous file or all of data.
func AtomicWriteFile(finalPath string, data []byte) (err error) {
	dir := filepath.Dir(finalPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(finalPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", finalPath, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, werr := tmp.Write(data); werr != nil {
		tmp.Close()
		return fmt.Errorf("atomic write %s: %w", finalPath, werr)
	}
	if err := syncClose(tmp); err != nil {
		return fmt.Errorf("atomic write %s: %w", finalPath, err)
	}
	if err := os.Chmod(tmp.Name(), FilePerm); err != nil {
		return fmt.Errorf("atomic write %s: %w", finalPath, err)
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return fmt.Errorf("atomic write %s: %w", finalPath, err)
	}
	return FsyncDir(dir)
}

// EnsureDir creates path and its parents if needed.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirPerm)
}

// imageExists reports whether a device image is already present at path.
// When it is not, the parent directory is created so the caller can create
// the image and then make its directory entry durable with FsyncDir.
func imageExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		if err := EnsureDir(filepath.Dir(path)); err != nil {
			return false, fmt.Errorf("image dir: %w", err)
		}
		return false, nil
	default:
		return false, fmt.Errorf("stat image %s: %w", path, err)
	}
}
