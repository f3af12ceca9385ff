package proc

import (
	"fmt"
	"io"
	"syscall"

	"github.com/AlbertoFDR/simple-linux-debugger/pkg/logflags"
)

// Inferior is the traced process as seen by the Controller.
type Inferior interface {
	// Pid returns the process id of the inferior.
	Pid() int
	// Wait blocks until the inferior changes state.
	Wait() (WaitStatus, error)
	// Registers returns the registers of the stopped inferior.
	Registers() (Registers, error)
	// SingleStep resumes the stopped inferior for exactly one instruction,
	// delivering sig to it if it is not zero.
	SingleStep(sig syscall.Signal) error
}

// WaitErrorPolicy decides what the Controller does when waiting on the
// inferior fails.
type WaitErrorPolicy uint8

const (
	// WaitErrorStop ends the loop and returns the wait error.
	WaitErrorStop WaitErrorPolicy = iota
	// WaitErrorContinue reports the error and keeps going with the last
	// status observed: if that was a stop the registers are read and the
	// inferior is stepped again.
	WaitErrorContinue
)

// ParseWaitErrorPolicy parses the textual form of a WaitErrorPolicy.
func ParseWaitErrorPolicy(s string) (WaitErrorPolicy, error) {
	switch s {
	case "stop", "":
		return WaitErrorStop, nil
	case "continue":
		return WaitErrorContinue, nil
	}
	return 0, fmt.Errorf("invalid wait error policy %q (must be stop or continue)", s)
}

func (p WaitErrorPolicy) String() string {
	switch p {
	case WaitErrorStop:
		return "stop"
	case WaitErrorContinue:
		return "continue"
	}
	return fmt.Sprintf("WaitErrorPolicy(%d)", uint8(p))
}

// Config contains the configuration of a Controller.
type Config struct {
	// Out receives one report line per stop.
	Out io.Writer
	// Width is the register width of the report lines, Width32 if zero.
	Width RegisterWidth
	// WaitErrorPolicy decides whether a failed wait ends the loop.
	WaitErrorPolicy WaitErrorPolicy
	// ForwardSignals delivers signals that stopped the inferior, other
	// than SIGTRAP, when it is resumed. If false they are suppressed.
	ForwardSignals bool
}

// Stats counts the events of one Controller run.
type Stats struct {
	Waits          int
	WaitErrors     int
	Stops          int
	Reports        int
	RegisterErrors int
	Resumes        int
	ResumeErrors   int

	// Exit is the last status observed, the one that ended the loop.
	Exit WaitStatus
}

// Controller drives the wait/read/report/step cycle of an inferior.
type Controller struct {
	conf Config
	log  logflags.Logger
}

// NewController returns a Controller for the given configuration.
func NewController(conf Config) *Controller {
	if conf.Out == nil {
		conf.Out = io.Discard
	}
	if conf.Width == 0 {
		conf.Width = Width32
	}
	return &Controller{conf: conf, log: logflags.ControllerLogger()}
}

// Run single-steps inf until a wait observes a status other than a stop.
// Failures to read registers or to resume the inferior are reported and
// do not end the loop. A failed wait ends the loop, returning the error,
// unless the policy is WaitErrorContinue.
// A non-nil error is also returned if a report line can not be written.
func (c *Controller) Run(inf Inferior) (Stats, error) {
	var (
		stats Stats
		last  WaitStatus
		regs  Registers
	)
	pid := inf.Pid()
	log := c.log.WithField("pid", pid)
	out := c.conf.Out

	for {
		ws, err := inf.Wait()
		stats.Waits++
		if err != nil {
			stats.WaitErrors++
			log.Errorf("wait: %v", err)
			if c.conf.WaitErrorPolicy == WaitErrorStop {
				stats.Exit = last
				return stats, fmt.Errorf("waiting for process %d: %w", pid, err)
			}
			ws = last
		}
		last = ws

		if !ws.Stopped() {
			stats.Exit = ws
			log.Debugf("process %s after %d steps", ws, stats.Resumes)
			return stats, nil
		}
		stats.Stops++

		r, err := inf.Registers()
		if err != nil {
			stats.RegisterErrors++
			log.Errorf("could not read registers: %v", err)
		} else {
			regs = r
		}

		if _, err := fmt.Fprintln(out, FormatRegisters(&regs, c.conf.Width)); err != nil {
			return stats, fmt.Errorf("writing report: %w", err)
		}
		stats.Reports++

		var sig syscall.Signal
		if c.conf.ForwardSignals && ws.Signal != syscall.SIGTRAP {
			sig = ws.Signal
			log.Debugf("forwarding %v", sig)
		}
		stats.Resumes++
		if err := inf.SingleStep(sig); err != nil {
			stats.ResumeErrors++
			log.Errorf("could not single step: %v", err)
		}
	}
}
