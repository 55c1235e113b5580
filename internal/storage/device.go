package storage

import (
	"errors"
	"fmt"
)

// ErasedByte is the value of a never-programmed flash cell.
const ErasedByte byte = 0xFF

var (
	// ErrOutOfRange is returned when an access extends past the end of the device.
	ErrOutOfRange = errors.New("access outside device range")

	// ErrSizeMismatch is returned when an existing image has a different size
	// than the one requested.
	ErrSizeMismatch = errors.New("device image size mismatch")

	// ErrUnknownKind is returned by Open for an unrecognized device kind.
	ErrUnknownKind = errors.New("unknown device kind")
)

// Device is a fixed-size, byte-addressable non-volatile store.
// Read and Write either transfer the whole range or return an error.
type Device interface {
	Read(addr uint32, p []byte) error
	Write(addr uint32, p []byte) error
}

// Kind names a Device implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindMmap   Kind = "mmap"
)

// Closer is implemented by devices that hold OS resources.
type Closer interface {
	Close() error
}

// Open returns a device of the given kind backed by path. Memory devices
// ignore path.
func Open(kind Kind, path string, size int64) (Device, error) {
	switch kind {
	case KindMemory:
		if size <= 0 {
			return nil, fmt.Errorf("memory device size must be positive, got %d", size)
		}
		return NewMemDevice(int(size)), nil
	case KindFile, "":
		dev, err := OpenFileDevice(path, size)
		if err != nil {
			return nil, err
		}
		return dev, nil
	case KindMmap:
		dev, err := OpenMmapDevice(path, size)
		if err != nil {
			return nil, err
		}
		return dev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Close releases dev if it holds resources.
func Close(dev Device) error {
	if c, ok := dev.(Closer); ok {
		return c.Close()
	}
	return nil
}

func checkRange(addr uint32, n int, size int64) error {
	end := int64(addr) + int64(n)
	if end > size {
		return fmt.Errorf("%w: [%d, %d) exceeds size %d", ErrOutOfRange, addr, end, size)
	}
	return nil
}

func erased(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = ErasedByte
	}
	return buf
}
