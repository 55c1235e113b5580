package recovery

import (
	"fmt"

	"nvconfig/internal/record"
)

// Action is one of the four reconciliation procedures for a main/backup
// pair.
type Action int

const (
	// ActionResetBoth writes the default record to main and backup.
	ActionResetBoth Action = iota
	// ActionRestoreMain copies backup into main.
	ActionRestoreMain
	// ActionBackupMain copies main into backup.
	ActionBackupMain
	// ActionCompare copies main into backup only if their CRCs differ.
	ActionCompare
)

func (a Action) String() string {
	switch a {
	case ActionResetBoth:
		return "reset_both"
	case ActionRestoreMain:
		return "restore_main"
	case ActionBackupMain:
		return "backup_main"
	case ActionCompare:
		return "compare"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// decisionTable is indexed by Code(mainValid, backupValid).
var decisionTable = [4]Action{
	0b00: ActionResetBoth,
	0b01: ActionRestoreMain,
	0b10: ActionBackupMain,
	0b11: ActionCompare,
}

// Code packs the two validity bits as (main << 1) | backup.
func Code(mainValid, backupValid bool) int {
	code := 0
	if mainValid {
		code |= 0b10
	}
	if backupValid {
		code |= 0b01
	}
	return code
}

// Decide returns the action for the given validity bits.
func Decide(mainValid, backupValid bool) Action {
	return decisionTable[Code(mainValid, backupValid)]
}

// Slot is a record read from the device together with its validity bit.
type Slot struct {
	Record record.Record
	Valid  bool
}

// PersistFunc writes rec to the device at addr.
type PersistFunc func(addr uint32, rec record.Record) error

// Result is the state after reconciliation.
type Result struct {
	Outcome Outcome

	// Action is the procedure that ran. Zero in single-slot mode.
	Action Action

	// Main is the in-memory mirror of the main (or only) slot.
	Main record.Record

	// Backup is the in-memory mirror of the backup slot. Zero in
	// single-slot mode.
	Backup record.Record

	// Written lists the addresses written, in order.
	Written []uint32
}

// ReconcileSingle handles single-slot mode: a corrupt slot is replaced by
// opts.Default.
func ReconcileSingle(slot Slot, opts Options, persist PersistFunc) (*Result, error) {
	logger := opts.logger()
	result := &Result{Outcome: NoErrors, Main: slot.Record}

	if slot.Valid {
		logger.Debug("recovery: slot valid", "addr", opts.MainAddr, "crc", slot.Record.CRC)
		return result, nil
	}

	logger.Warn("recovery: slot corrupt, restoring defaults", "addr", opts.MainAddr)
	result.Main = opts.Default
	if err := result.persist(persist, opts.MainAddr, opts.Default); err != nil {
		return nil, err
	}
	result.Outcome = InitDefaulted
	return result, nil
}

// ReconcilePair handles dual-slot mode. The validity bits select an Action
// via the decision table; the action's writes go through persist.
func ReconcilePair(main, backup Slot, opts Options, persist PersistFunc) (*Result, error) {
	logger := opts.logger()
	action := Decide(main.Valid, backup.Valid)
	result := &Result{Action: action, Main: main.Record, Backup: backup.Record}

	logger.Debug("recovery: decided",
		"main_valid", main.Valid,
		"backup_valid", backup.Valid,
		"action", action.String(),
	)

	var err error
	switch action {
	case ActionResetBoth:
		err = result.resetBoth(opts, persist)
	case ActionRestoreMain:
		err = result.restoreMain(opts, persist)
	case ActionBackupMain:
		err = result.backupMain(opts, persist)
	case ActionCompare:
		err = result.compare(opts, persist)
	}
	if err != nil {
		return nil, err
	}

	if result.Outcome != NoErrors {
		logger.Warn("recovery: reconciled",
			"outcome", result.Outcome.String(),
			"written", result.Written,
		)
	}
	return result, nil
}

func (r *Result) resetBoth(opts Options, persist PersistFunc) error {
	r.Main = opts.Default
	r.Backup = opts.Default
	if err := r.persist(persist, opts.MainAddr, r.Main); err != nil {
		return err
	}
	if err := r.persist(persist, opts.BackupAddr, r.Backup); err != nil {
		return err
	}
	r.Outcome = BothCorrupted
	return nil
}

func (r *Result) restoreMain(opts Options, persist PersistFunc) error {
	r.Main = r.Backup
	if err := r.persist(persist, opts.MainAddr, r.Main); err != nil {
		return err
	}
	r.Outcome = RecoveredFromBackup
	return nil
}

func (r *Result) backupMain(opts Options, persist PersistFunc) error {
	r.Backup = r.Main
	if err := r.persist(persist, opts.BackupAddr, r.Backup); err != nil {
		return err
	}
	r.Outcome = BackedUpFromMain
	return nil
}

func (r *Result) compare(opts Options, persist PersistFunc) error {
	if r.Main.CRC == r.Backup.CRC {
		r.Outcome = NoErrors
		return nil
	}
	return r.backupMain(opts, persist)
}

func (r *Result) persist(persist PersistFunc, addr uint32, rec record.Record) error {
	if err := persist(addr, rec); err != nil {
		return fmt.Errorf("recovery persist slot %d: %w", addr, err)
	}
	r.Written = append(r.Written, addr)
	return nil
}
