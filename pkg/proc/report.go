package proc

import (
	"fmt"
	"strconv"
	"strings"
)

// RegisterWidth selects how many bits of every register the report line
// shows.
type RegisterWidth int

const (
	// Width32 shows the low 32 bits of every register as 8 hex digits,
	// whatever the native register size.
	Width32 RegisterWidth = 32
	// Width64 shows every register as 16 hex digits.
	Width64 RegisterWidth = 64
)

// ParseRegisterWidth parses the textual form of a RegisterWidth.
func ParseRegisterWidth(s string) (RegisterWidth, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid register width %q", s)
	}
	w := RegisterWidth(n)
	if err := w.Validate(); err != nil {
		return 0, err
	}
	return w, nil
}

// Validate returns an error if w is not a supported width.
func (w RegisterWidth) Validate() error {
	if w != Width32 && w != Width64 {
		return fmt.Errorf("invalid register width %d (must be 32 or 64)", int(w))
	}
	return nil
}

func (w RegisterWidth) String() string {
	return strconv.Itoa(int(w))
}

// FormatRegisters returns the report line for regs, without the trailing
// newline. Field order and padding do not depend on the register values.
func FormatRegisters(regs *Registers, width RegisterWidth) string {
	var sb strings.Builder
	for i, reg := range regs.Slice() {
		if i > 0 {
			sb.WriteByte('\t')
		}
		if width == Width64 {
			fmt.Fprintf(&sb, "%s=0x%016X", reg.Name, reg.Value)
		} else {
			fmt.Fprintf(&sb, "%s=0x%08X", reg.Name, uint32(reg.Value))
		}
	}
	return sb.String()
}
