//go:build !(darwin || linux)

package storage

import (
	"errors"
	"fmt"
)

var errMmapUnsupported = errors.New("mmap device is not supported on this platform")

// MmapDevice is unavailable on this platform.
type MmapDevice struct{}

func OpenMmapDevice(path string, size int64) (*MmapDevice, error) {
	return nil, fmt.Errorf("%w: %s", errMmapUnsupported, path)
}

func (d *MmapDevice) Read(addr uint32, p []byte) error  { return errMmapUnsupported }
func (d *MmapDevice) Write(addr uint32, p []byte) error { return errMmapUnsupported }
func (d *MmapDevice) Close() error                      { return nil }
