package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

// openAll returns one fresh device of every kind, each of size bytes.
func openAll(t *testing.T, size int64) map[Kind]Device {
	t.Helper()
	dir := t.TempDir()
	devs := make(map[Kind]Device)
	for _, kind := range []Kind{KindMemory, KindFile, KindMmap} {
		dev, err := Open(kind, filepath.Join(dir, string(kind)+".img"), size)
		if err != nil {
			t.Fatalf("Open(%s): %v", kind, err)
		}
		t.Cleanup(func() { Close(dev) })
		devs[kind] = dev
	}
	return devs
}

func TestDevice_StartsErased(t *testing.T) {
	for kind, dev := range openAll(t, 1024) {
		buf := make([]byte, 16)
		if err := dev.Read(512, buf); err != nil {
			t.Fatalf("%s: Read: %v", kind, err)
		}
		if !bytes.Equal(buf, erased(16)) {
			t.Errorf("%s: new device = %x, want all 0xff", kind, buf)
		}
	}
}

func TestDevice_WriteRead(t *testing.T) {
	for kind, dev := range openAll(t, 1024) {
		want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		if err := dev.Write(512, want); err != nil {
			t.Fatalf("%s: Write: %v", kind, err)
		}
		got := make([]byte, len(want))
		if err := dev.Read(512, got); err != nil {
			t.Fatalf("%s: Read: %v", kind, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s: Read = %x, want %x", kind, got, want)
		}

		// Neighbouring bytes are untouched.
		before := make([]byte, 4)
		if err := dev.Read(508, before); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(before, erased(4)) {
			t.Errorf("%s: bytes before write = %x, want erased", kind, before)
		}
	}
}

func TestDevice_OutOfRange(t *testing.T) {
	for kind, dev := range openAll(t, 1024) {
		if err := dev.Read(1020, make([]byte, 8)); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("%s: Read past end error = %v, want ErrOutOfRange", kind, err)
		}
		if err := dev.Write(1024, []byte{0}); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("%s: Write past end error = %v, want ErrOutOfRange", kind, err)
		}
	}
}

func TestFileDevice_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nv", "image.bin")

	dev, err := OpenFileDevice(path, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Write(0, []byte("main")); err != nil {
		t.Fatal(err)
	}
	if err := dev.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenFileDevice(path, 1024)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got := make([]byte, 4)
	if err := reopened.Read(0, got); err != nil {
		t.Fatal(err)
	}
	if string(got) != "main" {
		t.Errorf("reopened Read = %q, want %q", got, "main")
	}
}

func TestFileDevice_SizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")
	dev, err := OpenFileDevice(path, 1024)
	if err != nil {
		t.Fatal(err)
	}
	dev.Close()

	_, err = OpenFileDevice(path, 2048)
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("reopen with other size error = %v, want ErrSizeMismatch", err)
	}
}

func TestMmapDevice_SeesFileWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.bin")

	fileDev, err := OpenFileDevice(path, 1024)
	if err != nil {
		t.Fatal(err)
	}
	defer fileDev.Close()

	mmapDev, err := OpenMmapDevice(path, 1024)
	if err != nil {
		t.Fatal(err)
	}
	defer mmapDev.Close()

	if err := fileDev.Write(512, []byte("backup")); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 6)
	if err := mmapDev.Read(512, got); err != nil {
		t.Fatal(err)
	}
	if string(got) != "backup" {
		t.Errorf("mmap Read = %q, want %q", got, "backup")
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open("eeprom", "", 1024)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Open(eeprom) error = %v, want ErrUnknownKind", err)
	}
}

func TestOpen_NonPositiveSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")
	for _, kind := range []Kind{KindMemory, KindFile, KindMmap} {
		for _, size := range []int64{0, -1} {
			dev, err := Open(kind, path, size)
			if err == nil {
				Close(dev)
				t.Errorf("Open(%s, size=%d) succeeded, want error", kind, size)
			}
		}
	}
}

func TestMemDevice_Corrupt(t *testing.T) {
	dev := NewMemDevice(16)
	if err := dev.Write(0, []byte{0x0F}); err != nil {
		t.Fatal(err)
	}
	dev.Corrupt(0)
	if got := dev.Bytes()[0]; got != 0xF0 {
		t.Errorf("corrupted byte = %#x, want 0xf0", got)
	}

	dev.Erase()
	if !bytes.Equal(dev.Bytes(), erased(16)) {
		t.Error("Erase did not restore erased state")
	}
}
