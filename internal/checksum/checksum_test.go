package checksum

import (
	"errors"
	"hash/crc32"
	"testing"
)

func providers() map[string]Provider {
	return map[string]Provider{
		"table": NewTable(),
		"ieee":  NewIEEE(),
	}
}

func TestCalc_ReferenceVector(t *testing.T) {
	for name, p := range providers() {
		t.Run(name, func(t *testing.T) {
			p.Init()
			got := p.Calc([]byte("123456789"), Seed)
			if got != 0xCBF43926 {
				t.Errorf("Calc(123456789) = %#08x, want 0xcbf43926", got)
			}
		})
	}
}

func TestCalc_Empty(t *testing.T) {
	// With seed 0xFFFFFFFF the final xor cancels the seed.
	for name, p := range providers() {
		if got := p.Calc(nil, Seed); got != 0 {
			t.Errorf("%s: Calc(nil) = %#08x, want 0", name, got)
		}
	}
}

func TestCalc_ProvidersAgree(t *testing.T) {
	table, ieee := NewTable(), NewIEEE()
	inputs := [][]byte{
		{0x00},
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		[]byte("optionA optionB"),
		make([]byte, 512),
	}
	seeds := []uint32{Seed, 0, 0x12345678}
	for _, in := range inputs {
		for _, seed := range seeds {
			a, b := table.Calc(in, seed), ieee.Calc(in, seed)
			if a != b {
				t.Errorf("len=%d seed=%#x: table=%#08x ieee=%#08x", len(in), seed, a, b)
			}
		}
	}
}

func TestCalc_MatchesStdlib(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	want := crc32.ChecksumIEEE(data)
	if got := NewTable().Calc(data, Seed); got != want {
		t.Errorf("table Calc = %#08x, want %#08x", got, want)
	}
}

func TestCalc_Deterministic(t *testing.T) {
	p := NewTable()
	data := []byte{1, 2, 3, 4}
	first := p.Calc(data, Seed)
	p.Init()
	if second := p.Calc(data, Seed); second != first {
		t.Errorf("Calc changed after Init: %#08x then %#08x", first, second)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "table", "ieee"} {
		p, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if p == nil {
			t.Fatalf("ByName(%q) returned nil provider", name)
		}
	}

	_, err := ByName("stm32")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("ByName(stm32) error = %v, want ErrUnknownProvider", err)
	}
}
