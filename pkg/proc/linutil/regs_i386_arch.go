package linutil

import (
	"encoding/binary"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc"
)

// I386PtraceRegs is the struct used by the linux kernel to return the
// general purpose registers for I386 CPUs.
type I386PtraceRegs struct {
	Ebx      uint32
	Ecx      uint32
	Edx      uint32
	Esi      uint32
	Edi      uint32
	Ebp      uint32
	Eax      uint32
	Xds      uint32
	Xes      uint32
	Xfs      uint32
	Xgs      uint32
	Orig_eax uint32
	Eip      uint32
	Xcs      uint32
	Eflags   uint32
	Esp      uint32
	Xss      uint32
}

// I386Arch is the register set of linux/386.
var I386Arch = &Arch{
	Name:       "386",
	RegsetSize: binary.Size(I386PtraceRegs{}),
	Decode:     DecodeI386Registers,
}

// DecodeI386Registers decodes a linux/386 NT_PRSTATUS register set.
func DecodeI386Registers(raw []byte) (proc.Registers, error) {
	var regs I386PtraceRegs
	if err := decodeRegset("386", raw, &regs); err != nil {
		return proc.Registers{}, err
	}
	return regs.Registers(), nil
}

// Registers returns the snapshot of r.
func (r *I386PtraceRegs) Registers() proc.Registers {
	return proc.Registers{
		PC:       uint64(r.Eip),
		SP:       uint64(r.Esp),
		BP:       uint64(r.Ebp),
		AX:       uint64(r.Eax),
		BX:       uint64(r.Ebx),
		CX:       uint64(r.Ecx),
		DX:       uint64(r.Edx),
		WordSize: 4,
	}
}
