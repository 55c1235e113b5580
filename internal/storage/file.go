package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileDevice keeps the device image in a regular file. Every Write is
// followed by fsync so a returned nil means the bytes are durable.
type FileDevice struct {
	f    *os.File
	path string
	size int64
}

// OpenFileDevice opens the image at path, creating an erased image of size
// bytes if it does not exist. An existing image of a different size is
// rejected.
func OpenFileDevice(path string, size int64) (*FileDevice, error) {
	if size <= 0 {
		return nil, fmt.Errorf("file device size must be positive, got %d", size)
	}
	existed, err := imageExists(path)
	if err != nil {
		return nil, fmt.Errorf("file device: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FilePerm)
	if err != nil {
		return nil, fmt.Errorf("open file device %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file device %s: %w", path, err)
	}

	switch {
	case !existed || info.Size() == 0:
		if _, err := f.WriteAt(erased(int(size)), 0); err != nil {
			f.Close()
			return nil, fmt.Errorf("erase new file device %s: %w", path, err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("sync new file device %s: %w", path, err)
		}
		if err := FsyncDir(filepath.Dir(path)); err != nil {
			f.Close()
			return nil, fmt.Errorf("new file device: %w", err)
		}
	case info.Size() != size:
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrSizeMismatch, path, info.Size(), size)
	}

	return &FileDevice{f: f, path: path, size: size}, nil
}

func (d *FileDevice) Read(addr uint32, p []byte) error {
	if err := checkRange(addr, len(p), d.size); err != nil {
		return err
	}
	if _, err := d.f.ReadAt(p, int64(addr)); err != nil {
		return fmt.Errorf("read %s at %d: %w", d.path, addr, err)
	}
	return nil
}

func (d *FileDevice) Write(addr uint32, p []byte) error {
	if err := checkRange(addr, len(p), d.size); err != nil {
		return err
	}
	if _, err := d.f.WriteAt(p, int64(addr)); err != nil {
		return fmt.Errorf("write %s at %d: %w", d.path, addr, err)
	}
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", d.path, err)
	}
	return nil
}

func (d *FileDevice) Close() error {
	if err := d.f.Close(); err != nil {
		return fmt.Errorf("close file device %s: %w", d.path, err)
	}
	return nil
}
