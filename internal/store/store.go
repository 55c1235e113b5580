package store

import (
	"errors"
	"fmt"
	"log/slog"

	"nvconfig/internal/checksum"
	"nvconfig/internal/record"
	"nvconfig/internal/recovery"
	"nvconfig/internal/storage"
)

// ErrNotInitialized is returned by set operations called before Init.
var ErrNotInitialized = errors.New("config store not initialized")

// ErrorHandler is called synchronously by Init for every outcome other than
// recovery.NoErrors, after the recovery writes have completed.
type ErrorHandler func(recovery.Outcome)

// Store holds the mirror of the persisted configuration. Every change is
// written straight through to the device.
//
// A Store is not safe for concurrent use. Callers that share one across
// goroutines must serialize Init, get and set themselves.
type Store struct {
	dev     storage.Device
	crc     checksum.Provider
	opts    Options
	logger  *slog.Logger
	onError ErrorHandler

	initialized bool
	main        record.Record
	backup      record.Record
}

// New returns a Store over dev. Nothing is read until Init.
func New(dev storage.Device, crc checksum.Provider, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dev:    dev,
		crc:    crc,
		opts:   opts,
		logger: logger,
	}
}

// SetErrorHandler registers h. A nil h disables notification.
func (s *Store) SetErrorHandler(h ErrorHandler) {
	s.onError = h
}

// Init reads and validates every slot and reconciles them. Calling it again
// on unchanged storage returns recovery.NoErrors and writes nothing.
func (s *Store) Init() (recovery.Outcome, error) {
	s.crc.Init()

	ropts := recovery.Options{
		MainAddr:   s.opts.MainAddr,
		BackupAddr: s.opts.BackupAddr,
		Default:    record.Seal(s.crc, s.opts.Defaults),
		Logger:     s.logger,
	}

	main, err := s.readSlot(s.opts.MainAddr)
	if err != nil {
		return recovery.NoErrors, fmt.Errorf("config init: %w", err)
	}

	var result *recovery.Result
	if s.opts.Redundant {
		backup, err := s.readSlot(s.opts.BackupAddr)
		if err != nil {
			return recovery.NoErrors, fmt.Errorf("config init: %w", err)
		}
		result, err = recovery.ReconcilePair(main, backup, ropts, s.persist)
		if err != nil {
			return recovery.NoErrors, fmt.Errorf("config init: %w", err)
		}
	} else {
		result, err = recovery.ReconcileSingle(main, ropts, s.persist)
		if err != nil {
			return recovery.NoErrors, fmt.Errorf("config init: %w", err)
		}
	}

	s.main = result.Main
	s.backup = result.Backup
	s.initialized = true

	s.logger.Info("config store initialized",
		"outcome", result.Outcome.String(),
		"redundant", s.opts.Redundant,
		"writes", len(result.Written),
	)

	if result.Outcome != recovery.NoErrors && s.onError != nil {
		s.onError(result.Outcome)
	}
	return result.Outcome, nil
}

// GetOptionA stores OptionA in dst. It returns false if dst is nil, the
// store is not initialized, or revalidation is enabled and the persisted
// slot no longer matches. A false return leaves all state untouched.
func (s *Store) GetOptionA(dst *int32) bool {
	if dst == nil || !s.readable() {
		return false
	}
	*dst = s.main.Data.OptionA
	return true
}

// GetOptionB is GetOptionA for OptionB.
func (s *Store) GetOptionB(dst *int64) bool {
	if dst == nil || !s.readable() {
		return false
	}
	*dst = s.main.Data.OptionB
	return true
}

// SetOptionA updates OptionA, reseals the record and writes it to every
// slot. The mirror is updated even when the device write fails.
func (s *Store) SetOptionA(v int32) error {
	return s.update(func(d *record.Data) { d.OptionA = v })
}

// SetOptionB is SetOptionA for OptionB.
func (s *Store) SetOptionB(v int64) error {
	return s.update(func(d *record.Data) { d.OptionB = v })
}

// Replace sets every option at once with a single write per slot.
func (s *Store) Replace(d record.Data) error {
	return s.update(func(cur *record.Data) { *cur = d })
}

// Data returns a copy of the current settings.
func (s *Store) Data() (record.Data, error) {
	if !s.initialized {
		return record.Data{}, ErrNotInitialized
	}
	return s.main.Data, nil
}

func (s *Store) update(mutate func(*record.Data)) error {
	if !s.initialized {
		return ErrNotInitialized
	}

	d := s.main.Data
	mutate(&d)
	s.main = record.Seal(s.crc, d)

	if err := s.persist(s.opts.MainAddr, s.main); err != nil {
		return fmt.Errorf("config set: %w", err)
	}
	if !s.opts.Redundant {
		return nil
	}

	s.backup = s.main
	if err := s.persist(s.opts.BackupAddr, s.backup); err != nil {
		return fmt.Errorf("config set: %w", err)
	}
	return nil
}

func (s *Store) readable() bool {
	if !s.initialized {
		return false
	}
	if !s.opts.RevalidateOnRead {
		return true
	}

	stored, ok, err := record.ReadSlot(s.dev, s.crc, s.opts.MainAddr)
	switch {
	case err != nil:
		s.logger.Error("revalidate read failed", "addr", s.opts.MainAddr, "error", err)
		return false
	case !ok:
		s.logger.Warn("revalidate: stored checksum mismatch", "addr", s.opts.MainAddr, "crc", stored.CRC)
		return false
	case stored.CRC != s.main.CRC:
		s.logger.Warn("revalidate: stored record differs from mirror",
			"addr", s.opts.MainAddr,
			"stored_crc", stored.CRC,
			"mirror_crc", s.main.CRC,
		)
		return false
	}
	return true
}

func (s *Store) readSlot(addr uint32) (recovery.Slot, error) {
	rec, ok, err := record.ReadSlot(s.dev, s.crc, addr)
	if err != nil {
		return recovery.Slot{}, err
	}
	s.logger.Debug("slot read", "addr", addr, "valid", ok, "crc", rec.CRC)
	return recovery.Slot{Record: rec, Valid: ok}, nil
}

func (s *Store) persist(addr uint32, rec record.Record) error {
	return record.WriteSlot(s.dev, addr, rec)
}
