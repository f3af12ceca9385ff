// Package linutil decodes the register sets returned by the Linux kernel.
package linutil

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc"
)

// Arch describes the general purpose register set (NT_PRSTATUS) of one
// architecture.
type Arch struct {
	Name string
	// RegsetSize is the size in bytes of the register set, the length of
	// the buffer passed to PTRACE_GETREGSET.
	RegsetSize int
	// Decode converts the raw register set into a register snapshot.
	Decode func(raw []byte) (proc.Registers, error)
}

var archs = map[string]*Arch{
	"amd64": AMD64Arch,
	"386":   I386Arch,
	"arm64": ARM64Arch,
}

// ArchByName returns the architecture with the given GOARCH name.
func ArchByName(goarch string) (*Arch, error) {
	arch, ok := archs[goarch]
	if !ok {
		return nil, fmt.Errorf("unsupported architecture %q", goarch)
	}
	return arch, nil
}

// ErrShortRegset is returned when the kernel returned fewer bytes than the
// register set of the architecture.
type ErrShortRegset struct {
	Arch string
	Got  int
	Want int
}

func (e *ErrShortRegset) Error() string {
	return fmt.Sprintf("%s register set too short: got %d bytes, want %d", e.Arch, e.Got, e.Want)
}

// decodeRegset reads the little endian register set raw into regs, which
// must be a pointer to a fixed size struct.
func decodeRegset(arch string, raw []byte, regs interface{}) error {
	if want := binary.Size(regs); len(raw) < want {
		return &ErrShortRegset{Arch: arch, Got: len(raw), Want: want}
	}
	return binary.Read(bytes.NewReader(raw), binary.LittleEndian, regs)
}
