package proc

import (
	"fmt"
	"syscall"
)

// ProcessState is the state of the inferior as reported by a wait.
type ProcessState uint8

const (
	StateUnknown   ProcessState = iota // no status has been observed
	StateStopped                       // stopped by a signal, registers can be read
	StateExited                        // exited normally
	StateSignaled                      // terminated by a signal
	StateContinued                     // resumed by SIGCONT
)

// String maps ProcessState to string representation.
func (s ProcessState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateStopped:
		return "stopped"
	case StateExited:
		return "exited"
	case StateSignaled:
		return "signaled"
	case StateContinued:
		return "continued"
	}
	return fmt.Sprintf("ProcessState(%d)", uint8(s))
}

// WaitStatus is the decoded result of waiting on the inferior.
type WaitStatus struct {
	State ProcessState
	// Signal is the stop signal if State is StateStopped and the
	// terminating signal if State is StateSignaled.
	Signal syscall.Signal
	// ExitCode is the exit code of the inferior if State is StateExited.
	ExitCode int
}

// Stopped returns true if the inferior is stopped by a signal.
func (ws WaitStatus) Stopped() bool {
	return ws.State == StateStopped
}

// Terminated returns true if the inferior no longer exists.
func (ws WaitStatus) Terminated() bool {
	return ws.State == StateExited || ws.State == StateSignaled
}

// ShellExitCode returns the exit code a shell would report for the
// inferior: the exit code if it exited, 128 plus the signal number if it
// was killed and 0 otherwise.
func (ws WaitStatus) ShellExitCode() int {
	switch ws.State {
	case StateExited:
		return ws.ExitCode
	case StateSignaled:
		return 128 + int(ws.Signal)
	}
	return 0
}

func (ws WaitStatus) String() string {
	switch ws.State {
	case StateStopped:
		return fmt.Sprintf("stopped by %v", ws.Signal)
	case StateExited:
		return fmt.Sprintf("exited with status %d", ws.ExitCode)
	case StateSignaled:
		return fmt.Sprintf("killed by %v", ws.Signal)
	}
	return ws.State.String()
}

// ErrProcessExited indicates that the process has exited and contains both
// process id and exit status.
type ErrProcessExited struct {
	Pid    int
	Status int
}

func (pe ErrProcessExited) Error() string {
	return fmt.Sprintf("Process %d has exited with status %d", pe.Pid, pe.Status)
}

// ProcessDetachedError indicates that we detached from the target process.
type ProcessDetachedError struct {
}

func (pe ProcessDetachedError) Error() string {
	return "detached from the process"
}
