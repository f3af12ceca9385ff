package linutil

import (
	"encoding/binary"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc"
)

// AMD64PtraceRegs is the struct used by the linux kernel to return the
// general purpose registers for AMD64 CPUs.
type AMD64PtraceRegs struct {
	R15      uint64
	R14      uint64
	R13      uint64
	R12      uint64
	Rbp      uint64
	Rbx      uint64
	R11      uint64
	R10      uint64
	R9       uint64
	R8       uint64
	Rax      uint64
	Rcx      uint64
	Rdx      uint64
	Rsi      uint64
	Rdi      uint64
	Orig_rax uint64
	Rip      uint64
	Cs       uint64
	Eflags   uint64
	Rsp      uint64
	Ss       uint64
	Fs_base  uint64
	Gs_base  uint64
	Ds       uint64
	Es       uint64
	Fs       uint64
	Gs       uint64
}

// AMD64Arch is the register set of linux/amd64.
var AMD64Arch = &Arch{
	Name:       "amd64",
	RegsetSize: binary.Size(AMD64PtraceRegs{}),
	Decode:     DecodeAMD64Registers,
}

// DecodeAMD64Registers decodes a linux/amd64 NT_PRSTATUS register set.
func DecodeAMD64Registers(raw []byte) (proc.Registers, error) {
	var regs AMD64PtraceRegs
	if err := decodeRegset("amd64", raw, &regs); err != nil {
		return proc.Registers{}, err
	}
	return regs.Registers(), nil
}

// Registers returns the snapshot of r.
func (r *AMD64PtraceRegs) Registers() proc.Registers {
	return proc.Registers{
		PC:       r.Rip,
		SP:       r.Rsp,
		BP:       r.Rbp,
		AX:       r.Rax,
		BX:       r.Rbx,
		CX:       r.Rcx,
		DX:       r.Rdx,
		WordSize: 8,
	}
}
