//go:build darwin || linux

package storage

import (
	"fmt"
	"path/filepath"
	"runtime/debug"

	"golang.org/x/sys/unix"
)

// MmapDevice maps the image read-only and writes through pwrite, so
// reads never page-fault a write and the kernel keeps the mapping
// coherent. Each Write is fsynced before returning.
type MmapDevice struct {
	fd   int
	data []byte
	size int64
}

// OpenMmapDevice opens or creates an image of exactly size bytes. A new
// image is filled with ErasedByte.
func OpenMmapDevice(path string, size int64) (*MmapDevice, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap device size must be positive, got %d", size)
	}
	existed, err := imageExists(path)
	if err != nil {
		return nil, fmt.Errorf("mmap device: %w", err)
	}

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, uint32(FilePerm))
	if err != nil {
		return nil, fmt.Errorf("open mmap device %s: %w", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat mmap device %s: %w", path, err)
	}

	if !existed || stat.Size == 0 {
		if err := unix.Ftruncate(fd, size); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("truncate mmap device to %d bytes: %w", size, err)
		}
		if err := pwriteAll(fd, erased(int(size)), 0); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("erase new mmap device: %w", err)
		}
		if err := unix.Fsync(fd); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("sync new mmap device: %w", err)
		}
		if err := FsyncDir(filepath.Dir(path)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("new mmap device: %w", err)
		}
	} else if stat.Size != size {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %s is %d bytes, want %d", ErrSizeMismatch, path, stat.Size, size)
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap device %s: %w", path, err)
	}

	return &MmapDevice{fd: fd, data: data, size: size}, nil
}

func (d *MmapDevice) Read(addr uint32, p []byte) (err error) {
	if err := checkRange(addr, len(p), d.size); err != nil {
		return err
	}

	// An I/O error on the backing file surfaces as SIGBUS on access.
	old := debug.SetPanicOnFault(true)
	defer func() {
		debug.SetPanicOnFault(old)
		if r := recover(); r != nil {
			err = fmt.Errorf("page fault reading mmap device at %d: %v", addr, r)
		}
	}()

	copy(p, d.data[addr:])
	return nil
}

func (d *MmapDevice) Write(addr uint32, p []byte) error {
	if err := checkRange(addr, len(p), d.size); err != nil {
		return err
	}
	if err := pwriteAll(d.fd, p, int64(addr)); err != nil {
		return err
	}
	if err := unix.Fsync(d.fd); err != nil {
		return fmt.Errorf("fsync mmap device: %w", err)
	}
	return nil
}

func (d *MmapDevice) Close() error {
	var firstErr error
	if err := unix.Munmap(d.data); err != nil {
		firstErr = fmt.Errorf("unmap mmap device: %w", err)
	}
	if err := unix.Close(d.fd); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close mmap device fd: %w", err)
	}
	d.data = nil
	d.fd = -1
	return firstErr
}

func pwriteAll(fd int, p []byte, off int64) error {
	for len(p) > 0 {
		n, err := unix.Pwrite(fd, p, off)
		if err != nil {
			return fmt.Errorf("pwrite at %d: %w", off, err)
		}
		p = p[n:]
		off += int64(n)
	}
	return nil
}
