package native

import (
	"errors"
	"os/exec"
	"runtime"
	"syscall"

	sys "golang.org/x/sys/unix"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/logflags"
	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc/linutil"
)

const (
	personalityGetPersonality = 0xffffffff // argument to pass to personality syscall to get the current personality
	_ADDR_NO_RANDOMIZE        = 0x0040000  // ADDR_NO_RANDOMIZE linux constant
)

// Launch creates a new process traced by the calling process. First entry
// in `cmd` is the program to run, looked up in PATH if it does not contain
// a slash, and cmd is the argument vector of that program.
// The child requests to be traced and replaces its image with the program,
// the kernel stops it on its first instruction. Launch does not wait for
// that stop, the first Wait on the returned process observes it.
func Launch(cmd []string, opts LaunchOptions) (*Process, error) {
	if len(cmd) == 0 {
		return nil, &LaunchError{Err: errors.New("no command specified")}
	}
	if opts.TTY != "" && opts.Redirects != [3]string{} {
		return nil, &LaunchError{Path: cmd[0], Err: errRedirectsAndTTY}
	}
	arch, err := linutil.ArchByName(runtime.GOARCH)
	if err != nil {
		return nil, &LaunchError{Path: cmd[0], Err: err}
	}

	log := logflags.LaunchLogger()
	dbp := newProcess(0, arch)

	var process *exec.Cmd
	attempts, err := retryTransient(opts.ForkRetries, opts.ForkBackoff, func() error {
		var err error
		dbp.execPtraceFunc(func() { process, err = startTraced(cmd, &opts) })
		return err
	})
	if err != nil {
		dbp.Close()
		return nil, &LaunchError{Path: cmd[0], Attempts: attempts, Err: err}
	}
	dbp.pid = process.Process.Pid
	log.Debugf("launched %q as %d", cmd, dbp.pid)
	return dbp, nil
}

// startTraced starts cmd with PTRACE_TRACEME set, it must be called from the
// ptrace goroutine.
func startTraced(cmd []string, opts *LaunchOptions) (*exec.Cmd, error) {
	stdin, stdout, stderr, closefn, err := openRedirects(opts.Redirects)
	if err != nil {
		return nil, err
	}
	defer closefn()

	if opts.DisableASLR {
		oldPersonality, _, err := syscall.Syscall(sys.SYS_PERSONALITY, personalityGetPersonality, 0, 0)
		if err == syscall.Errno(0) {
			newPersonality := oldPersonality | _ADDR_NO_RANDOMIZE
			syscall.Syscall(sys.SYS_PERSONALITY, newPersonality, 0, 0)
			defer syscall.Syscall(sys.SYS_PERSONALITY, oldPersonality, 0, 0)
		}
	}

	process := exec.Command(cmd[0])
	process.Args = cmd
	process.Stdin = stdin
	process.Stdout = stdout
	process.Stderr = stderr
	process.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
	if opts.TTY != "" {
		ctty, err := attachProcessToTTY(process, opts.TTY)
		if err != nil {
			return nil, err
		}
		defer ctty.Close()
	}
	if opts.WorkingDir != "" {
		process.Dir = opts.WorkingDir
	}
	if err := process.Start(); err != nil {
		return nil, err
	}
	return process, nil
}
