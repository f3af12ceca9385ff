package native

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/logflags"
	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc"
	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc/linutil"
)

// Process represents the traced process and the ptrace session used to
// control it. It implements proc.Inferior.
type Process struct {
	pid  int
	arch *linutil.Arch

	ptraceChan     chan func()
	ptraceDoneChan chan interface{}
	closeOnce      sync.Once

	exited     atomic.Bool
	exitStatus int
	detached   bool

	log logflags.Logger
}

// newProcess returns an initialized Process struct. Before returning,
// it will also launch a goroutine in order to handle ptrace(2)
// functions. For more information, see the documentation on
// `handlePtraceFuncs`.
func newProcess(pid int, arch *linutil.Arch) *Process {
	dbp := &Process{
		pid:            pid,
		arch:           arch,
		ptraceChan:     make(chan func()),
		ptraceDoneChan: make(chan interface{}),
		log:            logflags.PtraceLogger(),
	}
	go dbp.handlePtraceFuncs()
	return dbp
}

// Pid returns the process ID.
func (dbp *Process) Pid() int {
	return dbp.pid
}

// Exited returns whether the debugged
// process has exited.
func (dbp *Process) Exited() bool {
	return dbp.exited.Load()
}

func (dbp *Process) handlePtraceFuncs() {
	// We must ensure here that we are running on the same thread during
	// while invoking the ptrace(2) syscall. This is due to the fact that ptrace(2) expects
	// all commands after PTRACE_TRACEME to come from the thread that started the tracee.
	// The thread is never unlocked, it exits with this goroutine.
	runtime.LockOSThread()

	for fn := range dbp.ptraceChan {
		fn()
		dbp.ptraceDoneChan <- nil
	}
}

func (dbp *Process) execPtraceFunc(fn func()) {
	dbp.ptraceChan <- fn
	<-dbp.ptraceDoneChan
}

// postExit marks the process as exited and stops the ptrace goroutine.
func (dbp *Process) postExit(status int) {
	dbp.exitStatus = status
	dbp.exited.Store(true)
	dbp.Close()
}

// Close stops the goroutine serving ptrace requests. It does not kill or
// detach from the process, see Detach.
func (dbp *Process) Close() {
	dbp.closeOnce.Do(func() {
		close(dbp.ptraceChan)
	})
}

// checkUsable returns an error if the process can no longer be addressed
// through the trace session.
func (dbp *Process) checkUsable() error {
	if dbp.Exited() {
		return proc.ErrProcessExited{Pid: dbp.pid, Status: dbp.exitStatus}
	}
	if dbp.detached {
		return proc.ProcessDetachedError{}
	}
	return nil
}
