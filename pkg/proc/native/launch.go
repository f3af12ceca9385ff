package native

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/logflags"
)

const maxForkBackoff = time.Second

// LaunchOptions configures how Launch creates the traced process.
type LaunchOptions struct {
	// WorkingDir is the working directory of the process, the current one
	// if empty.
	WorkingDir string
	// Redirects are the paths of the files used as stdin, stdout and
	// stderr of the process. Empty entries inherit the debugger's.
	Redirects [3]string
	// TTY is the path of a terminal the process runs on, as its
	// controlling terminal. It can not be combined with Redirects.
	TTY string
	// DisableASLR disables address space randomization for the process.
	DisableASLR bool
	// ForkRetries is how many times process creation is retried when the
	// system is temporarily out of resources.
	ForkRetries int
	// ForkBackoff is the delay before the first retry, it doubles on every
	// further retry.
	ForkBackoff time.Duration
}

// LaunchError is returned when the traced process could not be created.
type LaunchError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *LaunchError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("could not launch %s after %d attempts: %v", e.Path, e.Attempts, e.Err)
	}
	return fmt.Sprintf("could not launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Transient returns true if the launch failed because the system was
// temporarily out of resources.
func (e *LaunchError) Transient() bool {
	return isTransient(e.Err)
}

var errRedirectsAndTTY = errors.New("redirects can not be used together with a tty")

func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN)
}

// sleep is replaced by tests.
var sleep = time.Sleep

// retryTransient calls fn until it succeeds, fails with a non transient
// error or has been retried retries times. The delay between attempts
// starts at backoff and doubles every time, up to maxForkBackoff.
func retryTransient(retries int, backoff time.Duration, fn func() error) (attempts int, err error) {
	log := logflags.LaunchLogger()
	for {
		attempts++
		err = fn()
		if err == nil || !isTransient(err) || attempts > retries {
			return attempts, err
		}
		log.Warnf("attempt %d failed: %v, retrying in %v", attempts, err, backoff)
		sleep(backoff)
		backoff *= 2
		if backoff > maxForkBackoff {
			backoff = maxForkBackoff
		}
	}
}
