package recovery

import "fmt"

// Outcome is the status reported by initialization.
type Outcome int

const (
	// NoErrors: every slot was valid and consistent; nothing was written.
	NoErrors Outcome = iota
	// InitDefaulted: the single slot was corrupt and was reset to defaults.
	InitDefaulted
	// BothCorrupted: main and backup were corrupt and were reset to defaults.
	BothCorrupted
	// RecoveredFromBackup: main was corrupt and was restored from backup.
	RecoveredFromBackup
	// BackedUpFromMain: backup was corrupt or stale and was rewritten from main.
	BackedUpFromMain
)

var outcomeNames = [...]string{
	NoErrors:            "no_errors",
	InitDefaulted:       "init_defaulted",
	BothCorrupted:       "both_corrupted",
	RecoveredFromBackup: "recovered_from_backup",
	BackedUpFromMain:    "backed_up_from_main",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// SettingsReset reports whether the outcome replaced the stored settings
// with defaults. Dependent application state may need reinitializing.
func (o Outcome) SettingsReset() bool {
	return o == InitDefaulted || o == BothCorrupted
}
