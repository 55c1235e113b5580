package snapshot

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"nvconfig/internal/checksum"
	"nvconfig/internal/record"
	"nvconfig/internal/storage"
)

// Version is the snapshot format version written by this package.
const Version = 1

var (
	// ErrUnsupportedVersion is returned when a snapshot was written by a
	// newer or unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrChecksumMismatch is returned when a snapshot's CRC does not match
	// its settings.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

// Snapshot is the on-disk form of one configuration record. CRC is the
// record checksum computed the same way as on the device, so a snapshot
// can be checked before it is applied.
type Snapshot struct {
	Version int    `cbor:"version" json:"version"`
	OptionA int32  `cbor:"option_a" json:"option_a"`
	OptionB int64  `cbor:"option_b" json:"option_b"`
	CRC     uint32 `cbor:"crc" json:"crc"`
}

// Settings is the subset of the store a snapshot needs.
type Settings interface {
	Data() (record.Data, error)
	Replace(record.Data) error
}

// FromRecord builds a snapshot of rec.
func FromRecord(rec record.Record) Snapshot {
	return Snapshot{
		Version: Version,
		OptionA: rec.Data.OptionA,
		OptionB: rec.Data.OptionB,
		CRC:     rec.CRC,
	}
}

// Data returns the settings held by s.
func (s Snapshot) Data() record.Data {
	return record.Data{OptionA: s.OptionA, OptionB: s.OptionB}
}

// Verify checks the version and the checksum.
func (s Snapshot) Verify(p checksum.Provider) error {
	if s.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}
	rec := record.Record{Data: s.Data(), CRC: s.CRC}
	if !rec.Valid(p) {
		return fmt.Errorf("%w: stored %#08x", ErrChecksumMismatch, s.CRC)
	}
	return nil
}

// Marshal encodes s with CBOR Core Deterministic Encoding, so equal
// settings always produce identical bytes.
func Marshal(s Snapshot) ([]byte, error) {
	return encMode.Marshal(s)
}

// Unmarshal decodes a snapshot. It does not verify it.
func Unmarshal(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := decMode.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// Write atomically stores s at path.
func Write(path string, s Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := storage.AtomicWriteFile(path, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// Read loads and verifies the snapshot at path.
func Read(path string, p checksum.Provider) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	s, err := Unmarshal(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", path, err)
	}
	if err := s.Verify(p); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return s, nil
}

// Export writes the current settings of st to path.
func Export(path string, st Settings, p checksum.Provider) (Snapshot, error) {
	d, err := st.Data()
	if err != nil {
		return Snapshot{}, err
	}
	s := FromRecord(record.Seal(p, d))
	if err := Write(path, s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Import reads and verifies path, then applies it to st.
func Import(path string, st Settings, p checksum.Provider) (Snapshot, error) {
	s, err := Read(path, p)
	if err != nil {
		return Snapshot{}, err
	}
	if err := st.Replace(s.Data()); err != nil {
		return Snapshot{}, fmt.Errorf("apply snapshot %s: %w", path, err)
	}
	return s, nil
}
