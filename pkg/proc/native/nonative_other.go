//go:build !linux
// +build !linux

package native

import (
	"errors"
	"syscall"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc"
)

// ErrNativeBackendDisabled is returned when the native backend is
// not supported on the current platform.
var ErrNativeBackendDisabled = errors.New("native backend disabled during compilation")

// Launch returns ErrNativeBackendDisabled.
func Launch(cmd []string, opts LaunchOptions) (*Process, error) {
	return nil, ErrNativeBackendDisabled
}

func (dbp *Process) Wait() (proc.WaitStatus, error) {
	return proc.WaitStatus{}, ErrNativeBackendDisabled
}

func (dbp *Process) Registers() (proc.Registers, error) {
	return proc.Registers{}, ErrNativeBackendDisabled
}

func (dbp *Process) SingleStep(sig syscall.Signal) error {
	return ErrNativeBackendDisabled
}

func (dbp *Process) Kill() error {
	return ErrNativeBackendDisabled
}

func (dbp *Process) Detach(kill bool) error {
	return ErrNativeBackendDisabled
}
