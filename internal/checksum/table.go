package checksum

// Table is a portable, table-driven software CRC-32.
type Table struct {
	tab [256]uint32
}

// NewTable builds the 256-entry lookup table.
func NewTable() *Table {
	t := &Table{}
	t.Init()
	return t
}

// Init (re)builds the lookup table.
func (t *Table) Init() {
	for i := range t.tab {
		crc := uint32(i)
		for j := 0; j < 8; j++ {
			if crc&1 == 1 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		t.tab[i] = crc
	}
}

// Calc implements Provider.
func (t *Table) Calc(p []byte, seed uint32) uint32 {
	crc := seed
	for _, b := range p {
		crc = t.tab[byte(crc)^b] ^ crc>>8
	}
	return ^crc
}
