package store

import (
	"nvconfig/internal/checksum"
	"nvconfig/internal/record"
)

// SlotReport describes one slot as it is currently stored on the device.
type SlotReport struct {
	Name        string      `json:"name"`
	Addr        uint32      `json:"addr"`
	Data        record.Data `json:"data"`
	StoredCRC   uint32      `json:"stored_crc"`
	ComputedCRC uint32      `json:"computed_crc"`
	Valid       bool        `json:"valid"`
}

// Report is a read-only view of the device, independent of the mirror.
type Report struct {
	Redundant bool         `json:"redundant"`
	Slots     []SlotReport `json:"slots"`
}

// Inspect reads every slot without reconciling or writing anything.
func (s *Store) Inspect() (*Report, error) {
	report := &Report{Redundant: s.opts.Redundant}

	main, err := s.inspectSlot("main", s.opts.MainAddr)
	if err != nil {
		return nil, err
	}
	report.Slots = append(report.Slots, main)

	if s.opts.Redundant {
		backup, err := s.inspectSlot("backup", s.opts.BackupAddr)
		if err != nil {
			return nil, err
		}
		report.Slots = append(report.Slots, backup)
	}
	return report, nil
}

func (s *Store) inspectSlot(name string, addr uint32) (SlotReport, error) {
	rec, ok, err := record.ReadSlot(s.dev, s.crc, addr)
	if err != nil {
		return SlotReport{}, err
	}
	return SlotReport{
		Name:        name,
		Addr:        addr,
		Data:        rec.Data,
		StoredCRC:   rec.CRC,
		ComputedCRC: s.crc.Calc(rec.Data.Bytes(), checksum.Seed),
		Valid:       ok,
	}, nil
}
