package checksum

import (
	"errors"
	"fmt"
)

// Seed is the initial register value used for every configuration record.
const Seed uint32 = 0xFFFFFFFF

// poly is the reflected CRC-32/ISO-HDLC polynomial.
const poly uint32 = 0xEDB88320

// ErrUnknownProvider is returned by ByName for an unrecognized provider name.
var ErrUnknownProvider = errors.New("unknown checksum provider")

// Provider computes a CRC-32/ISO-HDLC checksum over a byte range.
// Calc("123456789", Seed) must equal 0xCBF43926.
type Provider interface {
	// Init resets any peripheral or cached state. Calling Calc without
	// Init is allowed for providers that hold no state.
	Init()

	// Calc returns the final (xor'ed) CRC of p, starting the shift
	// register at seed.
	Calc(p []byte, seed uint32) uint32
}

// ByName returns the provider registered under name.
// Known names are "table" and "ieee".
func ByName(name string) (Provider, error) {
	switch name {
	case "", "table":
		return NewTable(), nil
	case "ieee":
		return NewIEEE(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}
