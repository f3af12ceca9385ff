package linutil

import (
	"encoding/binary"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc"
)

// ARM64PtraceRegs is the struct used by the linux kernel to return the
// general purpose registers for ARM64 CPUs.
// copy from sys/unix/ztypes_linux_arm64.go:735
type ARM64PtraceRegs struct {
	Regs   [31]uint64
	Sp     uint64
	Pc     uint64
	Pstate uint64
}

// ARM64Arch is the register set of linux/arm64.
var ARM64Arch = &Arch{
	Name:       "arm64",
	RegsetSize: binary.Size(ARM64PtraceRegs{}),
	Decode:     DecodeARM64Registers,
}

// DecodeARM64Registers decodes a linux/arm64 NT_PRSTATUS register set.
func DecodeARM64Registers(raw []byte) (proc.Registers, error) {
	var regs ARM64PtraceRegs
	if err := decodeRegset("arm64", raw, &regs); err != nil {
		return proc.Registers{}, err
	}
	return regs.Registers(), nil
}

// Registers returns the snapshot of r. The frame pointer is x29, the
// first four argument registers take the place of the x86 accumulators.
func (r *ARM64PtraceRegs) Registers() proc.Registers {
	return proc.Registers{
		PC:       r.Pc,
		SP:       r.Sp,
		BP:       r.Regs[29],
		AX:       r.Regs[0],
		BX:       r.Regs[1],
		CX:       r.Regs[2],
		DX:       r.Regs[3],
		WordSize: 8,
	}
}
