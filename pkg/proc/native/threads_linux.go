package native

import (
	"fmt"
	"syscall"

	sys "golang.org/x/sys/unix"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc"
)

var _ proc.Inferior = (*Process)(nil)

// Wait blocks until the process changes state. Once a wait observes that
// the process exited or was killed the ptrace goroutine is stopped and
// further calls return proc.ErrProcessExited.
func (dbp *Process) Wait() (proc.WaitStatus, error) {
	if err := dbp.checkUsable(); err != nil {
		return proc.WaitStatus{}, err
	}
	var s sys.WaitStatus
	wpid, err := sys.Wait4(dbp.pid, &s, sys.WALL, nil)
	if err != nil {
		return proc.WaitStatus{}, err
	}
	if wpid != dbp.pid {
		return proc.WaitStatus{}, fmt.Errorf("wait returned unexpected pid %d", wpid)
	}
	ws := convertWaitStatus(s)
	dbp.log.Debugf("wait %d: %v", dbp.pid, ws)
	if ws.Terminated() {
		dbp.postExit(ws.ShellExitCode())
	}
	return ws, nil
}

func convertWaitStatus(s sys.WaitStatus) proc.WaitStatus {
	switch {
	case s.Exited():
		return proc.WaitStatus{State: proc.StateExited, ExitCode: s.ExitStatus()}
	case s.Signaled():
		return proc.WaitStatus{State: proc.StateSignaled, Signal: s.Signal()}
	case s.Stopped():
		return proc.WaitStatus{State: proc.StateStopped, Signal: s.StopSignal()}
	case s.Continued():
		return proc.WaitStatus{State: proc.StateContinued}
	}
	return proc.WaitStatus{State: proc.StateUnknown}
}

// Registers reads the general purpose registers of the stopped process.
func (dbp *Process) Registers() (proc.Registers, error) {
	if err := dbp.checkUsable(); err != nil {
		return proc.Registers{}, err
	}
	var (
		n   int
		err error
		buf = make([]byte, dbp.arch.RegsetSize)
	)
	dbp.execPtraceFunc(func() { n, err = ptraceGetRegset(dbp.pid, _NT_PRSTATUS, buf) })
	if err != nil {
		return proc.Registers{}, fmt.Errorf("could not get registers of %d: %w", dbp.pid, err)
	}
	return dbp.arch.Decode(buf[:n])
}

// SingleStep resumes the stopped process for a single instruction,
// delivering sig unless it is zero.
func (dbp *Process) SingleStep(sig syscall.Signal) (err error) {
	if err := dbp.checkUsable(); err != nil {
		return err
	}
	dbp.execPtraceFunc(func() { err = ptraceSingleStep(dbp.pid, int(sig)) })
	return
}

// Kill sends SIGKILL to the process. It can be called from any goroutine,
// the termination is observed by the next Wait.
func (dbp *Process) Kill() error {
	if dbp.Exited() {
		return nil
	}
	if err := sys.Kill(dbp.pid, sys.SIGKILL); err != nil && err != sys.ESRCH {
		return fmt.Errorf("could not deliver signal: %w", err)
	}
	return nil
}

// Detach ends the trace session. If kill is true the process is killed and
// reaped, otherwise it must be stopped and continues running untraced.
func (dbp *Process) Detach(kill bool) error {
	if dbp.Exited() || dbp.detached {
		return nil
	}
	if kill {
		if err := dbp.Kill(); err != nil {
			return err
		}
		for {
			ws, err := dbp.Wait()
			if err != nil {
				return err
			}
			if ws.Terminated() {
				return nil
			}
		}
	}
	var err error
	dbp.execPtraceFunc(func() { err = ptraceDetach(dbp.pid, 0) })
	if err != nil {
		return fmt.Errorf("could not detach from %d: %w", dbp.pid, err)
	}
	dbp.detached = true
	dbp.Close()
	return nil
}
