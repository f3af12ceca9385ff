package native

import (
	"syscall"
	"unsafe"

	sys "golang.org/x/sys/unix"
)

const _NT_PRSTATUS = 1

// ptraceDetach calls ptrace(PTRACE_DETACH).
func ptraceDetach(tid, sig int) error {
	_, _, err := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_DETACH, uintptr(tid), 1, uintptr(sig), 0, 0)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// ptraceSingleStep executes ptrace PTRACE_SINGLESTEP
func ptraceSingleStep(pid, sig int) error {
	_, _, e1 := sys.Syscall6(sys.SYS_PTRACE, uintptr(sys.PTRACE_SINGLESTEP), uintptr(pid), uintptr(0), uintptr(sig), 0, 0)
	if e1 != 0 {
		return e1
	}
	return nil
}

// ptraceGetRegset reads the register set identified by the note type
// regset into buf, returning the number of bytes filled in by the kernel.
func ptraceGetRegset(tid, regset int, buf []byte) (int, error) {
	iov := sys.Iovec{Base: &buf[0]}
	iov.SetLen(len(buf))
	_, _, err := syscall.Syscall6(syscall.SYS_PTRACE, sys.PTRACE_GETREGSET, uintptr(tid), uintptr(regset), uintptr(unsafe.Pointer(&iov)), 0, 0)
	if err != syscall.Errno(0) {
		return 0, err
	}
	return int(iov.Len), nil
}
