package proc

import "fmt"

// Registers is a point in time copy of the registers of a stopped
// inferior. It is only valid until the inferior is resumed.
//
// Field names follow the x86 convention used by the report line, on other
// architectures they hold the closest equivalent (on arm64 BP is x29 and
// AX, BX, CX, DX are x0 to x3).
type Registers struct {
	PC uint64
	SP uint64
	BP uint64
	AX uint64
	BX uint64
	CX uint64
	DX uint64

	// WordSize is the size in bytes of a register word of the
	// architecture the snapshot was taken on.
	WordSize int
}

// Register is a named register value.
type Register struct {
	Name  string
	Value uint64
}

// Slice returns the registers as a list of (name, value) pairs, in the
// order they appear in the report line.
func (r *Registers) Slice() []Register {
	return []Register{
		{"eip", r.PC},
		{"esp", r.SP},
		{"ebp", r.BP},
		{"eax", r.AX},
		{"ebx", r.BX},
		{"ecx", r.CX},
		{"edx", r.DX},
	}
}

func (r Registers) String() string {
	return fmt.Sprintf("pc=%#x sp=%#x bp=%#x", r.PC, r.SP, r.BP)
}
