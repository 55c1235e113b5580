package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"nvconfig/internal/recovery"
	"nvconfig/internal/snapshot"
)

var errRevalidate = errors.New("stored record failed validation")

type command struct {
	args int
	run  func(e *env, args []string) error
}

var commands = map[string]command{
	"init":    {args: 0, run: runInit},
	"get":     {args: 1, run: runGet},
	"set":     {args: 2, run: runSet},
	"inspect": {args: 0, run: runInspect},
	"export":  {args: 1, run: runExport},
	"import":  {args: 1, run: runImport},
}

func (e *env) open() (recovery.Outcome, error) {
	e.store.SetErrorHandler(func(o recovery.Outcome) {
		if o.SettingsReset() {
			e.logger.Warn("settings were reset to defaults", "outcome", o.String())
		}
	})
	return e.store.Init()
}

func (e *env) print(v any, text string) error {
	if e.json {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(e.out, text)
	return err
}

func runInit(e *env, _ []string) error {
	outcome, err := e.open()
	if err != nil {
		return err
	}
	return e.print(map[string]string{"outcome": outcome.String()}, outcome.String())
}

func runGet(e *env, args []string) error {
	if _, err := e.open(); err != nil {
		return err
	}

	var value int64
	switch args[0] {
	case "a":
		var a int32
		if !e.store.GetOptionA(&a) {
			return fmt.Errorf("option a: %w", errRevalidate)
		}
		value = int64(a)
	case "b":
		if !e.store.GetOptionB(&value) {
			return fmt.Errorf("option b: %w", errRevalidate)
		}
	default:
		return fmt.Errorf("%w: unknown option %q (want a or b)", errUsage, args[0])
	}

	return e.print(map[string]int64{args[0]: value}, strconv.FormatInt(value, 10))
}

func runSet(e *env, args []string) error {
	var set func() error
	switch args[0] {
	case "a":
		v, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: option a: %v", errUsage, err)
		}
		set = func() error { return e.store.SetOptionA(int32(v)) }
	case "b":
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: option b: %v", errUsage, err)
		}
		set = func() error { return e.store.SetOptionB(v) }
	default:
		return fmt.Errorf("%w: unknown option %q (want a or b)", errUsage, args[0])
	}

	if _, err := e.open(); err != nil {
		return err
	}
	if err := set(); err != nil {
		return err
	}
	e.logger.Info("option updated", "option", args[0], "value", args[1])
	return nil
}

func runInspect(e *env, _ []string) error {
	report, err := e.store.Inspect()
	if err != nil {
		return err
	}
	if e.json {
		return e.print(report, "")
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tADDR\tOPTION A\tOPTION B\tSTORED CRC\tCOMPUTED CRC\tVALID")
	for _, slot := range report.Slots {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%#08x\t%#08x\t%v\n",
			slot.Name, slot.Addr,
			slot.Data.OptionA, slot.Data.OptionB,
			slot.StoredCRC, slot.ComputedCRC, slot.Valid)
	}
	if report.Redundant && len(report.Slots) == 2 {
		fmt.Fprintf(tw, "\nnext init: %s\n",
			recovery.Decide(report.Slots[0].Valid, report.Slots[1].Valid))
	}
	return tw.Flush()
}

func runExport(e *env, args []string) error {
	if _, err := e.open(); err != nil {
		return err
	}
	s, err := snapshot.Export(args[0], e.store, e.crc)
	if err != nil {
		return err
	}
	return e.print(s, fmt.Sprintf("exported to %s (crc %#08x)", args[0], s.CRC))
}

func runImport(e *env, args []string) error {
	if _, err := e.open(); err != nil {
		return err
	}
	s, err := snapshot.Import(args[0], e.store, e.crc)
	if err != nil {
		return err
	}
	return e.print(s, fmt.Sprintf("imported %s (a=%d b=%d)", args[0], s.OptionA, s.OptionB))
}
