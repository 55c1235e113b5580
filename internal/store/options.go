package store

import (
	"log/slog"

	"nvconfig/internal/record"
	"nvconfig/internal/recovery"
)

// Options configures a Store.
type Options struct {
	// Redundant keeps a backup copy of the record and reconciles the pair
	// on Init. When false a single slot at MainAddr is used.
	Redundant bool

	// RevalidateOnRead re-reads the persisted slot on every get and fails
	// the get if it no longer matches the in-memory mirror. When false the
	// mirror is trusted after Init.
	RevalidateOnRead bool

	// MainAddr is the address of the main (or only) slot. Default: 0.
	MainAddr uint32

	// BackupAddr is the address of the backup slot. Default: 512.
	BackupAddr uint32

	// Defaults replaces the stored settings when no valid copy survives.
	Defaults record.Data

	// Logger for store events. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultOptions returns the redundant layout with trust-after-init reads.
func DefaultOptions() Options {
	return Options{
		Redundant:  true,
		MainAddr:   recovery.DefaultMainAddr,
		BackupAddr: recovery.DefaultBackupAddr,
		Defaults:   record.Defaults,
	}
}

// SingleSlotOptions returns the non-redundant layout, which revalidates the
// slot on every read.
func SingleSlotOptions() Options {
	return Options{
		RevalidateOnRead: true,
		MainAddr:         recovery.DefaultMainAddr,
		Defaults:         record.Defaults,
	}
}
