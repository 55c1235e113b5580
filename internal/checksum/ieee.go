package checksum

import "hash/crc32"

// IEEE delegates to hash/crc32, which dispatches to the CPU's CRC32 or
// carry-less multiply instructions when available.
type IEEE struct {
	tab *crc32.Table
}

func NewIEEE() *IEEE {
	return &IEEE{tab: crc32.IEEETable}
}

// Init is a no-op; the runtime selects the accelerated path on first use.
func (c *IEEE) Init() {}

// Calc implements Provider. crc32.Update complements its input before
// shifting, so the seed is passed pre-complemented.
func (c *IEEE) Calc(p []byte, seed uint32) uint32 {
	return crc32.Update(^seed, c.tab, p)
}
