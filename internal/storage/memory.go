package storage

// MemDevice is an in-memory device image. It starts fully erased.
type MemDevice struct {
	buf []byte
}

func NewMemDevice(size int) *MemDevice {
	return &MemDevice{buf: erased(size)}
}

func (d *MemDevice) Read(addr uint32, p []byte) error {
	if err := checkRange(addr, len(p), int64(len(d.buf))); err != nil {
		return err
	}
	copy(p, d.buf[addr:])
	return nil
}

func (d *MemDevice) Write(addr uint32, p []byte) error {
	if err := checkRange(addr, len(p), int64(len(d.buf))); err != nil {
		return err
	}
	copy(d.buf[addr:], p)
	return nil
}

// Bytes returns a copy of the whole image.
func (d *MemDevice) Bytes() []byte {
	out := make([]byte, len(d.buf))
	copy(out, d.buf)
	return out
}

// Corrupt inverts the byte at addr, simulating a torn or decayed cell.
func (d *MemDevice) Corrupt(addr uint32) {
	d.buf[addr] ^= 0xFF
}

// Erase returns the whole image to the erased state.
func (d *MemDevice) Erase() {
	for i := range d.buf {
		d.buf[i] = ErasedByte
	}
}
