package testutil

import (
	"testing"

	"nvconfig/internal/checksum"
	"nvconfig/internal/record"
	"nvconfig/internal/storage"
)

// DeviceSize is large enough for a main slot at 0 and a backup at 512.
const DeviceSize = 1024

// WithTempDir creates a temporary directory, calls fn with its path,
// and cleans up afterwards.
func WithTempDir(t *testing.T, fn func(dir string)) {
	t.Helper()
	dir := t.TempDir()
	fn(dir)
}

// Write is one write observed by a RecordingDevice.
type Write struct {
	Addr uint32
	Data []byte
}

// RecordingDevice wraps a MemDevice and logs every write.
type RecordingDevice struct {
	*storage.MemDevice
	Writes []Write
	Reads  int
}

// NewRecordingDevice returns an erased recording device of DeviceSize bytes.
func NewRecordingDevice() *RecordingDevice {
	return &RecordingDevice{MemDevice: storage.NewMemDevice(DeviceSize)}
}

func (d *RecordingDevice) Read(addr uint32, p []byte) error {
	d.Reads++
	return d.MemDevice.Read(addr, p)
}

func (d *RecordingDevice) Write(addr uint32, p []byte) error {
	d.Writes = append(d.Writes, Write{Addr: addr, Data: append([]byte(nil), p...)})
	return d.MemDevice.Write(addr, p)
}

// WrittenAddrs returns the address of every logged write, in order.
func (d *RecordingDevice) WrittenAddrs() []uint32 {
	var addrs []uint32
	for _, w := range d.Writes {
		addrs = append(addrs, w.Addr)
	}
	return addrs
}

// ResetLog forgets previously observed reads and writes.
func (d *RecordingDevice) ResetLog() {
	d.Writes = nil
	d.Reads = 0
}

// PutRecord seals data and stores it at addr without logging the write.
func PutRecord(t *testing.T, dev *RecordingDevice, addr uint32, data record.Data) record.Record {
	t.Helper()
	rec := record.Seal(checksum.NewTable(), data)
	if err := record.WriteSlot(dev.MemDevice, addr, rec); err != nil {
		t.Fatalf("PutRecord(%d): %v", addr, err)
	}
	return rec
}

// PutCorrupt stores a record at addr whose CRC does not match its data.
func PutCorrupt(t *testing.T, dev *RecordingDevice, addr uint32, data record.Data) {
	t.Helper()
	rec := record.Seal(checksum.NewTable(), data)
	rec.CRC = ^rec.CRC
	if err := record.WriteSlot(dev.MemDevice, addr, rec); err != nil {
		t.Fatalf("PutCorrupt(%d): %v", addr, err)
	}
}

// ReadRecord reads addr and fails the test if the slot is not valid.
func ReadRecord(t *testing.T, dev storage.Device, addr uint32) record.Record {
	t.Helper()
	rec, ok, err := record.ReadSlot(dev, checksum.NewTable(), addr)
	if err != nil {
		t.Fatalf("ReadRecord(%d): %v", addr, err)
	}
	if !ok {
		t.Fatalf("slot %d is not valid: %+v", addr, rec)
	}
	return rec
}
