package recovery

import (
	"log/slog"

	"nvconfig/internal/record"
)

const (
	// DefaultMainAddr is the device offset of the main slot (and of the
	// only slot in single-slot mode).
	DefaultMainAddr uint32 = 0

	// DefaultBackupAddr is the device offset of the backup slot.
	DefaultBackupAddr uint32 = 512
)

// Options configures reconciliation.
type Options struct {
	// MainAddr is the address of the main slot. Default: 0.
	MainAddr uint32

	// BackupAddr is the address of the backup slot. Ignored in
	// single-slot mode. Default: 512.
	BackupAddr uint32

	// Default is the sealed record written when no valid copy exists.
	Default record.Record

	// Logger for recovery events. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultOptions returns Options with the standard slot addresses. The
// caller still has to seal Default with its checksum provider.
func DefaultOptions() Options {
	return Options{
		MainAddr:   DefaultMainAddr,
		BackupAddr: DefaultBackupAddr,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
