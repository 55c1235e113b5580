package integration

import (
	"errors"
	"path/filepath"
	"testing"

	"nvconfig/internal/checksum"
	"nvconfig/internal/record"
	"nvconfig/internal/recovery"
	"nvconfig/internal/storage"
	"nvconfig/internal/store"
	"nvconfig/internal/testutil"
)

var errPowerLost = errors.New("power lost")

// tornDevice passes through the first budget bytes of writes, then programs
// only the part of the current write that fits and fails every later call,
// as if power was cut mid-write.
type tornDevice struct {
	storage.Device
	budget int
}

func (d *tornDevice) Write(addr uint32, p []byte) error {
	if d.budget >= len(p) {
		d.budget -= len(p)
		return d.Device.Write(addr, p)
	}
	if d.budget > 0 {
		if err := d.Device.Write(addr, p[:d.budget]); err != nil {
			return err
		}
		d.budget = 0
	}
	return errPowerLost
}

func openFileDevice(t *testing.T, dir string) *storage.FileDevice {
	t.Helper()
	dev, err := storage.OpenFileDevice(filepath.Join(dir, "flash.img"), testutil.DeviceSize)
	if err != nil {
		t.Fatalf("OpenFileDevice: %v", err)
	}
	return dev
}

func initStore(t *testing.T, dev storage.Device) (*store.Store, recovery.Outcome) {
	t.Helper()
	s := store.New(dev, checksum.NewTable(), store.DefaultOptions())
	outcome, err := s.Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s, outcome
}

// TestCrashRecovery_PowerCutDuringSet cuts power after every possible number
// of programmed bytes while SetOptionA rewrites main and backup. After the
// next boot both slots must be valid and equal, holding the old or the new
// value.
func TestCrashRecovery_PowerCutDuringSet(t *testing.T) {
	const oldA, newA = int32(100), int32(-200)

	for cut := 0; cut <= 2*record.Size; cut++ {
		testutil.WithTempDir(t, func(dir string) {
			dev := openFileDevice(t, dir)
			s, _ := initStore(t, dev)
			if err := s.SetOptionA(oldA); err != nil {
				t.Fatal(err)
			}
			dev.Close()

			// Boot normally, then lose power after cut bytes of the set.
			dev = openFileDevice(t, dir)
			torn := store.New(&tornDevice{Device: dev, budget: cut}, checksum.NewTable(), store.DefaultOptions())
			if _, err := torn.Init(); err != nil {
				t.Fatalf("cut=%d: Init on healthy image: %v", cut, err)
			}
			err := torn.SetOptionA(newA)
			if cut < 2*record.Size && !errors.Is(err, errPowerLost) {
				t.Fatalf("cut=%d: SetOptionA error = %v, want power loss", cut, err)
			}
			dev.Close()

			// Reboot.
			dev = openFileDevice(t, dir)
			defer dev.Close()
			rebooted, outcome := initStore(t, dev)

			var a int32
			if !rebooted.GetOptionA(&a) {
				t.Fatalf("cut=%d: GetOptionA failed", cut)
			}
			if a != oldA && a != newA {
				t.Errorf("cut=%d: OptionA = %d, want %d or %d", cut, a, oldA, newA)
			}
			if cut == 0 && (a != oldA || outcome != recovery.NoErrors) {
				t.Errorf("cut=0: OptionA=%d outcome=%s, want %d no_errors", a, outcome, oldA)
			}
			if cut >= record.Size && a != newA {
				t.Errorf("cut=%d: main was complete but OptionA = %d, want %d", cut, a, newA)
			}

			mainRec := testutil.ReadRecord(t, dev, recovery.DefaultMainAddr)
			backupRec := testutil.ReadRecord(t, dev, recovery.DefaultBackupAddr)
			if mainRec != backupRec {
				t.Errorf("cut=%d: slots differ after reboot: %+v vs %+v", cut, mainRec, backupRec)
			}
		})
	}
}

// TestCrashRecovery_PowerCutDuringRecovery interrupts the reset that follows
// a doubly corrupted image. The next boot finishes the job.
func TestCrashRecovery_PowerCutDuringRecovery(t *testing.T) {
	for cut := 0; cut < 2*record.Size; cut++ {
		testutil.WithTempDir(t, func(dir string) {
			dev := openFileDevice(t, dir)
			torn := store.New(&tornDevice{Device: dev, budget: cut}, checksum.NewTable(), store.DefaultOptions())
			if _, err := torn.Init(); !errors.Is(err, errPowerLost) {
				t.Fatalf("cut=%d: Init error = %v, want power loss", cut, err)
			}
			dev.Close()

			dev = openFileDevice(t, dir)
			defer dev.Close()
			s, outcome := initStore(t, dev)
			if outcome == recovery.NoErrors {
				t.Errorf("cut=%d: outcome = no_errors after interrupted reset", cut)
			}

			got, err := s.Data()
			if err != nil {
				t.Fatal(err)
			}
			if got != record.Defaults {
				t.Errorf("cut=%d: data = %+v, want defaults", cut, got)
			}
			if _, outcome := initStore(t, dev); outcome != recovery.NoErrors {
				t.Errorf("cut=%d: third boot outcome = %s, want no_errors", cut, outcome)
			}
		})
	}
}

func TestCrashRecovery_BitRot(t *testing.T) {
	for addr := uint32(0); addr < record.Size; addr++ {
		dev := testutil.NewRecordingDevice()
		s, _ := initStore(t, dev)
		if err := s.SetOptionB(123456789); err != nil {
			t.Fatal(err)
		}

		for _, slot := range []uint32{recovery.DefaultMainAddr, recovery.DefaultBackupAddr} {
			dev.Corrupt(slot + addr)
			_, outcome := initStore(t, dev)
			want := recovery.RecoveredFromBackup
			if slot == recovery.DefaultBackupAddr {
				want = recovery.BackedUpFromMain
			}
			if outcome != want {
				t.Errorf("flip at slot %d + %d: outcome = %s, want %s", slot, addr, outcome, want)
			}
		}

		rebooted, _ := initStore(t, dev)
		var b int64
		if !rebooted.GetOptionB(&b) || b != 123456789 {
			t.Errorf("flip at +%d: OptionB = %d, want 123456789", addr, b)
		}
	}
}
