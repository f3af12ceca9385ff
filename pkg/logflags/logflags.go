package logflags

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var controller = false
var ptrace = false
var launch = false

var logOut io.WriteCloser

var textFormatterInstance = &logrus.TextFormatter{FullTimestamp: true}

func makeLogger(level logrus.Level, fields Fields) Logger {
	if lf := loggerFactory; lf != nil {
		return lf(level, fields, logOut)
	}
	logger := logrus.New().WithFields(logrus.Fields(fields))
	logger.Logger.Formatter = DefaultFormatter()
	if logOut != nil {
		logger.Logger.Out = logOut
	}
	logger.Logger.Level = level
	return &logrusLogger{logger}
}

// makeFlaggableLogger returns a logger that always reports errors and only
// reports debug output when flag is set.
func makeFlaggableLogger(flag bool, fields Fields) Logger {
	if !flag {
		return makeLogger(logrus.ErrorLevel, fields)
	}
	return makeLogger(logrus.DebugLevel, fields)
}

// Controller returns true if the trace controller loop should log every
// wait, register read and resume.
func Controller() bool {
	return controller
}

// ControllerLogger returns a logger for the trace controller.
func ControllerLogger() Logger {
	return makeFlaggableLogger(controller, Fields{"layer": "controller"})
}

// Ptrace returns true if the native backend should log ptrace requests.
func Ptrace() bool {
	return ptrace
}

// PtraceLogger returns a logger for the native ptrace backend.
func PtraceLogger() Logger {
	return makeFlaggableLogger(ptrace, Fields{"layer": "native", "kind": "ptrace"})
}

// Launch returns true if process creation should be logged.
func Launch() bool {
	return launch
}

// LaunchLogger returns a logger for the process launcher.
func LaunchLogger() Logger {
	return makeFlaggableLogger(launch, Fields{"layer": "native", "kind": "launch"})
}

// DefaultFormatter returns the formatter used by loggers created by this
// package when no LoggerFactory is set.
func DefaultFormatter() logrus.Formatter {
	return textFormatterInstance
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr.
// If logDest is not empty logs will be redirected to the file descriptor or
// file path specified by logDest.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		textFormatterInstance.ForceColors = false
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "sdb-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %v", err)
			}
			logOut = fh
		}
	} else {
		logOut = nopCloser{colorable.NewColorableStderr()}
		textFormatterInstance.ForceColors = isatty.IsTerminal(os.Stderr.Fd())
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(logOut)
	if !logFlag {
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "controller"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "controller":
			controller = true
		case "ptrace":
			ptrace = true
		case "launch":
			launch = true
		default:
			return fmt.Errorf("unknown log component %q", logcmd)
		}
	}
	return nil
}

// Close closes the logger output.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
