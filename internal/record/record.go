package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"nvconfig/internal/checksum"
	"nvconfig/internal/storage"
)

// On-device layout, little endian:
//
//	[0:4]   OptionA  int32
//	[4:12]  OptionB  int64
//	[12:16] CRC      uint32, covers [0:12] only
const (
	// DataSize is the number of bytes fed to the checksum.
	DataSize = 12
	// Size is the full on-device footprint of one record.
	Size = DataSize + 4
)

// ErrShortRecord is returned when a buffer is smaller than Size.
var ErrShortRecord = errors.New("record shorter than fixed layout")

// Defaults is the compiled-in configuration used whenever no valid copy
// survives on the device.
var Defaults = Data{
	OptionA: 64,
	OptionB: 1024,
}

// Data holds the user-visible settings.
type Data struct {
	OptionA int32 `json:"option_a"`
	OptionB int64 `json:"option_b"`
}

// Record is Data paired with its stored checksum.
type Record struct {
	Data Data
	CRC  uint32
}

// Bytes serializes d in the fixed layout.
func (d Data) Bytes() []byte {
	buf := make([]byte, DataSize)
	d.put(buf)
	return buf
}

func (d Data) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(d.OptionA))
	binary.LittleEndian.PutUint64(buf[4:12], uint64(d.OptionB))
}

// Seal computes the checksum of d and returns the resulting record.
func Seal(p checksum.Provider, d Data) Record {
	return Record{Data: d, CRC: p.Calc(d.Bytes(), checksum.Seed)}
}

// Valid reports whether the stored CRC matches the data.
func (r Record) Valid(p checksum.Provider) bool {
	return r.CRC == p.Calc(r.Data.Bytes(), checksum.Seed)
}

// Encode serializes the record, CRC included.
func (r Record) Encode() []byte {
	buf := make([]byte, Size)
	r.Data.put(buf)
	binary.LittleEndian.PutUint32(buf[DataSize:Size], r.CRC)
	return buf
}

// Decode parses the first Size bytes of buf. The checksum is not checked.
func Decode(buf []byte) (Record, error) {
	if len(buf) < Size {
		return Record{}, fmt.Errorf("%w: %d bytes, want %d", ErrShortRecord, len(buf), Size)
	}
	return Record{
		Data: Data{
			OptionA: int32(binary.LittleEndian.Uint32(buf[0:4])),
			OptionB: int64(binary.LittleEndian.Uint64(buf[4:12])),
		},
		CRC: binary.LittleEndian.Uint32(buf[DataSize:Size]),
	}, nil
}

// Validate decodes raw and checks its checksum.
func Validate(p checksum.Provider, raw []byte) (Record, bool, error) {
	rec, err := Decode(raw)
	if err != nil {
		return Record{}, false, err
	}
	return rec, rec.Valid(p), nil
}

// ReadSlot reads the record stored at addr and validates it.
func ReadSlot(dev storage.Device, p checksum.Provider, addr uint32) (Record, bool, error) {
	buf := make([]byte, Size)
	if err := dev.Read(addr, buf); err != nil {
		return Record{}, false, fmt.Errorf("read slot %d: %w", addr, err)
	}
	return Validate(p, buf)
}

// WriteSlot stores rec at addr.
func WriteSlot(dev storage.Device, addr uint32, rec Record) error {
	if err := dev.Write(addr, rec.Encode()); err != nil {
		return fmt.Errorf("write slot %d: %w", addr, err)
	}
	return nil
}
