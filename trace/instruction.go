package trace

import "fmt"

// Instruction is a single fixed-width instruction access: an address and the
// number of bits it occupies (always a positive multiple of 8).
type Instruction struct {
	Address    uint64
	LengthBits uint64
}

// Bytes returns the number of consecutive byte addresses this instruction occupies.
func (i Instruction) Bytes() uint64 {
	return i.LengthBits / 8
}

func (i Instruction) String() string {
	return fmt.Sprintf("0x%x/%db", i.Address, i.LengthBits)
}
