package native

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"

	"github.com/creack/pty"
	sys "golang.org/x/sys/unix"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc"
)

func mustHave(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Skipf("%s not available: %v", path, err)
	}
}

// launchOrSkip launches cmd, skipping the test if the environment does not
// allow tracing.
func launchOrSkip(t *testing.T, cmd []string, opts LaunchOptions) *Process {
	t.Helper()
	p, err := Launch(cmd, opts)
	if err != nil {
		if errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOSYS) {
			t.Skipf("tracing not permitted: %v", err)
		}
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := p.Detach(true); err != nil {
			t.Logf("cleanup: %v", err)
		}
	})
	return p
}

func waitStop(t *testing.T, p *Process) proc.WaitStatus {
	t.Helper()
	ws, err := p.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if !ws.Stopped() || ws.Signal != syscall.SIGTRAP {
		t.Fatalf("expected SIGTRAP stop, got %v", ws)
	}
	return ws
}

func TestLaunchStopsAtFirstInstruction(t *testing.T) {
	mustHave(t, "/bin/true")
	p := launchOrSkip(t, []string{"/bin/true"}, LaunchOptions{})
	if p.Pid() <= 0 {
		t.Fatalf("invalid pid %d", p.Pid())
	}
	waitStop(t, p)

	regs, err := p.Registers()
	if err != nil {
		t.Fatal(err)
	}
	if regs.PC == 0 || regs.SP == 0 {
		t.Errorf("implausible registers at entry point: %v", regs)
	}

	if err := p.SingleStep(0); err != nil {
		t.Fatal(err)
	}
	waitStop(t, p)
	next, err := p.Registers()
	if err != nil {
		t.Fatal(err)
	}
	if next.PC == regs.PC {
		t.Errorf("program counter did not move after a single step: %#x", next.PC)
	}
}

func TestTraceTrue(t *testing.T) {
	if testing.Short() {
		t.Skip("single stepping a whole program is slow")
	}
	mustHave(t, "/bin/true")
	p := launchOrSkip(t, []string{"/bin/true"}, LaunchOptions{})

	var out strings.Builder
	stats, err := proc.NewController(proc.Config{Out: &out}).Run(p)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Reports == 0 {
		t.Fatal("no report lines")
	}
	if n := strings.Count(out.String(), "\n"); n != stats.Reports {
		t.Errorf("%d lines written for %d reports", n, stats.Reports)
	}
	if stats.Waits != stats.Reports+1 || stats.Resumes != stats.Reports {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.RegisterErrors != 0 || stats.ResumeErrors != 0 || stats.WaitErrors != 0 {
		t.Errorf("unexpected errors %+v", stats)
	}
	if stats.Exit.State != proc.StateExited || stats.Exit.ExitCode != 0 {
		t.Errorf("unexpected exit status %v", stats.Exit)
	}
	if !p.Exited() {
		t.Error("process not marked as exited")
	}
	if _, err := p.Wait(); !errors.As(err, &proc.ErrProcessExited{}) {
		t.Errorf("expected ErrProcessExited after exit, got %v", err)
	}
}

func TestLaunchNonexistent(t *testing.T) {
	_, err := Launch([]string{"/nonexistent/sdb-target"}, LaunchOptions{ForkRetries: 3})
	if err == nil {
		t.Fatal("expected error")
	}
	var lerr *LaunchError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *LaunchError, got %T: %v", err, err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not exist error, got %v", err)
	}
	if lerr.Attempts != 1 || lerr.Transient() {
		t.Errorf("non transient failure retried: %+v", lerr)
	}
}

func TestLaunchNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte("not a program"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Launch([]string{path}, LaunchOptions{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLaunchEmptyCommand(t *testing.T) {
	if _, err := Launch(nil, LaunchOptions{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLaunchRedirectsAndTTY(t *testing.T) {
	_, err := Launch([]string{"/bin/true"}, LaunchOptions{TTY: "/dev/tty", Redirects: [3]string{"", "out.txt", ""}})
	if !errors.Is(err, errRedirectsAndTTY) {
		t.Fatalf("expected %v, got %v", errRedirectsAndTTY, err)
	}
}

func TestLaunchRedirects(t *testing.T) {
	mustHave(t, "/bin/echo")
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.txt")
	p := launchOrSkip(t, []string{"/bin/echo", "hello", "world"}, LaunchOptions{
		WorkingDir: dir,
		Redirects:  [3]string{"", outPath, ""},
	})
	waitStop(t, p)
	pid := p.Pid()
	if err := p.Detach(false); err != nil {
		t.Fatal(err)
	}
	var s sys.WaitStatus
	if _, err := sys.Wait4(pid, &s, 0, nil); err != nil {
		t.Fatal(err)
	}
	if !s.Exited() || s.ExitStatus() != 0 {
		t.Fatalf("unexpected status %v", s)
	}
	buf, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "hello world\n" {
		t.Errorf("unexpected output %q", buf)
	}
	if _, err := p.Registers(); !errors.As(err, &proc.ProcessDetachedError{}) {
		t.Errorf("expected ProcessDetachedError, got %v", err)
	}
}

func TestLaunchWithTTY(t *testing.T) {
	mustHave(t, "/bin/true")
	ptm, tty, err := pty.Open()
	if err != nil {
		t.Skipf("could not open pty: %v", err)
	}
	defer ptm.Close()
	defer tty.Close()

	p := launchOrSkip(t, []string{"/bin/true"}, LaunchOptions{TTY: tty.Name()})
	waitStop(t, p)
	link, err := os.Readlink(filepath.Join("/proc", strconv.Itoa(p.Pid()), "fd", "0"))
	if err != nil {
		t.Fatal(err)
	}
	if link != tty.Name() {
		t.Errorf("expected stdin to be %s, got %s", tty.Name(), link)
	}
}

func TestLaunchTTYNotATerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notatty")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Launch([]string{"/bin/true"}, LaunchOptions{TTY: path})
	if err == nil || !strings.Contains(err.Error(), "is not a terminal") {
		t.Fatalf("expected not a terminal error, got %v", err)
	}
}

func TestKill(t *testing.T) {
	mustHave(t, "/bin/sleep")
	p := launchOrSkip(t, []string{"/bin/sleep", "30"}, LaunchOptions{})
	waitStop(t, p)
	if err := p.Kill(); err != nil {
		t.Fatal(err)
	}
	ws, err := p.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if ws.State != proc.StateSignaled || ws.Signal != syscall.SIGKILL {
		t.Fatalf("expected SIGKILL termination, got %v", ws)
	}
	if err := p.Kill(); err != nil {
		t.Errorf("kill after exit: %v", err)
	}
	if err := p.SingleStep(0); !errors.As(err, &proc.ErrProcessExited{}) {
		t.Errorf("expected ErrProcessExited, got %v", err)
	}
}

func TestConvertWaitStatus(t *testing.T) {
	for _, tc := range []struct {
		raw  sys.WaitStatus
		want proc.WaitStatus
	}{
		{0x0000, proc.WaitStatus{State: proc.StateExited, ExitCode: 0}},
		{0x0300, proc.WaitStatus{State: proc.StateExited, ExitCode: 3}},
		{0x0009, proc.WaitStatus{State: proc.StateSignaled, Signal: syscall.SIGKILL}},
		{0x057f, proc.WaitStatus{State: proc.StateStopped, Signal: syscall.SIGTRAP}},
		{0xffff, proc.WaitStatus{State: proc.StateContinued}},
	} {
		if got := convertWaitStatus(tc.raw); got != tc.want {
			t.Errorf("%#x: expected %v, got %v", uint32(tc.raw), tc.want, got)
		}
	}
}
