package cmds

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cosiner/argv"
	"github.com/spf13/cobra"

	"github.com/AlbertoFDR/simple-linux-debugger/cmd/sdb/cmds/helphelpers"
	"github.com/AlbertoFDR/simple-linux-debugger/pkg/config"
	"github.com/AlbertoFDR/simple-linux-debugger/pkg/logflags"
	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc"
	"github.com/AlbertoFDR/simple-linux-debugger/pkg/proc/native"
	"github.com/AlbertoFDR/simple-linux-debugger/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string

	// waitError is what to do when waiting on the target fails.
	waitError string
	// registerWidth is the number of bits shown for every register.
	registerWidth int
	// forwardSignals is whether signals stopping the target are delivered to it.
	forwardSignals bool
	// propagateExit is whether sdb exits with the exit code of the target.
	propagateExit bool
	// disableASLR is used to disable ASLR
	disableASLR bool
	// workingDir is the working directory for running the program.
	workingDir string
	// tty is used to provide an alternate TTY for the program you wish to debug.
	tty string
	// redirects specifies redirect rules for stdin, stdout and stderr
	redirects []string
	forkRetries int
	forkBackoff time.Duration
	// commandLine is the command line of the target as a single string.
	commandLine string

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const sdbCommandLongDesc = `sdb runs a program one machine instruction at a time.

The program is started under ptrace control and stopped on its first
instruction. At every stop sdb prints one line with the program counter,
stack pointer, frame pointer and four general purpose registers, then
single steps the program until it terminates.

Flags after the program name are passed to the program:

` + "`sdb --register-width=64 /bin/ls -l /tmp`" + `

The --command flag accepts the whole command line of the program as a
single string, with shell-like quoting and redirects:

` + "`sdb -c 'grep -n \"main\" <input.txt >matches.txt'`"

const sdbLogDesc = `Logging is enabled with --log, the components that produce debug output
are selected with --log-output, a comma separated list of:

	controller	Log every stop, register read and resume (default)
	ptrace		Log ptrace requests and wait statuses
	launch		Log process creation

Errors are always logged. Logs go to stderr unless --log-dest names a file
or a file descriptor number.`

// New returns an initialized command tree.
func New(docCall bool) *cobra.Command {
	// Config setup and load.
	if docCall {
		conf = &config.Config{}
	} else {
		conf = config.LoadConfig()
	}
	return newRootCommand()
}

// newRootCommand builds the command tree, the defaults of the tracing flags
// come from conf.
func newRootCommand() *cobra.Command {
	registerWidthDefault := conf.RegisterWidth
	if registerWidthDefault == 0 {
		registerWidthDefault = int(proc.Width32)
	}
	waitErrorDefault := conf.WaitError
	if waitErrorDefault == "" {
		waitErrorDefault = proc.WaitErrorStop.String()
	}

	// Main sdb root command.
	rootCommand = &cobra.Command{
		Use:   "sdb [flags] <program> [program args...]",
		Short: "sdb is a single stepping register tracer.",
		Long:  sdbCommandLongDesc,
		Args:  targetArgs,
		Run:   traceCmd,
	}
	rootCommand.Flags().SetInterspersed(false)

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'sdb help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'sdb help log').")

	rootCommand.Flags().StringVar(&waitError, "wait-error", waitErrorDefault, `What to do when waiting on the program fails, "stop" or "continue".`)
	rootCommand.Flags().IntVar(&registerWidth, "register-width", registerWidthDefault, "Number of bits shown for every register, 32 or 64.")
	rootCommand.Flags().BoolVar(&forwardSignals, "forward-signals", conf.GetForwardSignals(), "Deliver signals that stop the program back to it.")
	rootCommand.Flags().BoolVar(&propagateExit, "propagate-exit", conf.PropagateExit, "Exit with the exit code of the program.")
	rootCommand.Flags().BoolVar(&disableASLR, "disable-aslr", conf.DisableASLR, "Disables address space randomization")
	rootCommand.Flags().StringVar(&workingDir, "wd", "", "Working directory for running the program.")
	rootCommand.Flags().StringVarP(&tty, "tty", "t", "", "TTY to use for the target program")
	rootCommand.Flags().StringArrayVarP(&redirects, "redirect", "r", []string{}, "Specifies redirect rules for target process (see 'sdb help redirect')")
	rootCommand.Flags().IntVar(&forkRetries, "fork-retries", conf.GetForkRetries(), "Retries of process creation when the system is temporarily out of resources.")
	rootCommand.Flags().DurationVar(&forkBackoff, "fork-backoff", conf.GetForkBackoff(), "Delay before the first retry of process creation, doubled on every retry.")
	rootCommand.Flags().StringVarP(&commandLine, "command", "c", "", "Command line of the program as a single string, instead of positional arguments.")

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sdb\n%s\n", version.SdbVersion)
			if log {
				fmt.Printf("%s\n", version.BuildInfo())
			}
		},
	}
	rootCommand.AddCommand(versionCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long:  sdbLogDesc,
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "redirect",
		Short: "Help about file redirection.",
		Long: `The standard file descriptors of the target process can be controlled using the '-r' and '--tty' arguments.

The --tty argument allows redirecting all standard descriptors to a terminal, specified as an argument to --tty.

The syntax for '-r' argument is:

		-r [source:]destination

Where source is one of 'stdin', 'stdout' or 'stderr' and destination is the path to a file. If the source is omitted stdin is used implicitly.

File redirects can be specified multiple times and can not be combined with --tty.

Example:

	sdb -r stdin:input.txt -r stdout:output.txt ./a.out
`,
	})

	defaultHelp := rootCommand.HelpFunc()
	rootCommand.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helphelpers.Prepare(cmd)
		defaultHelp(cmd, args)
	})

	return rootCommand
}

// targetArgs checks that the program is specified exactly once, either
// with positional arguments or with --command.
func targetArgs(cmd *cobra.Command, args []string) error {
	if commandLine != "" {
		if len(args) > 0 {
			return errors.New("positional arguments can not be used together with --command")
		}
		return nil
	}
	if len(args) == 0 {
		return errors.New("you must provide a program to trace")
	}
	return nil
}

func traceCmd(cmd *cobra.Command, args []string) {
	os.Exit(execute(args))
}

func execute(processArgs []string) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()

	opts, ctrlConf, err := buildOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if commandLine != "" {
		var cmdRedirects [3]string
		processArgs, cmdRedirects, err = parseCommandLine(commandLine)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		if err := mergeRedirects(&opts.Redirects, cmdRedirects); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	}

	p, err := native.Launch(processArgs, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	done := make(chan struct{})
	defer close(done)
	go killOnSignal(p, done)

	stats, err := proc.NewController(ctrlConf).Run(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if err := p.Detach(true); err != nil {
			logflags.ControllerLogger().Errorf("could not kill process %d: %v", p.Pid(), err)
		}
		return 1
	}
	logflags.ControllerLogger().Debugf("process %d %v after %d steps", p.Pid(), stats.Exit, stats.Reports)

	if propagateExit {
		return stats.Exit.ShellExitCode()
	}
	return 0
}

// buildOptions validates the tracing flags and converts them into the
// launcher and controller configurations.
func buildOptions() (native.LaunchOptions, proc.Config, error) {
	policy, err := proc.ParseWaitErrorPolicy(waitError)
	if err != nil {
		return native.LaunchOptions{}, proc.Config{}, err
	}
	width := proc.RegisterWidth(registerWidth)
	if err := width.Validate(); err != nil {
		return native.LaunchOptions{}, proc.Config{}, err
	}
	if forkRetries < 0 {
		return native.LaunchOptions{}, proc.Config{}, fmt.Errorf("invalid fork retries %d", forkRetries)
	}
	redirs, err := parseRedirects(redirects)
	if err != nil {
		return native.LaunchOptions{}, proc.Config{}, err
	}
	opts := native.LaunchOptions{
		WorkingDir:  workingDir,
		Redirects:   redirs,
		TTY:         tty,
		DisableASLR: disableASLR,
		ForkRetries: forkRetries,
		ForkBackoff: forkBackoff,
	}
	ctrlConf := proc.Config{
		Out:             os.Stdout,
		Width:           width,
		WaitErrorPolicy: policy,
		ForwardSignals:  forwardSignals,
	}
	return opts, ctrlConf, nil
}

// killOnSignal kills p when sdb receives SIGINT or SIGTERM, the controller
// then observes the termination of p and returns.
func killOnSignal(p *native.Process, done <-chan struct{}) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)
	select {
	case sig := <-ch:
		logflags.ControllerLogger().Debugf("received %v, killing process %d", sig, p.Pid())
		if err := p.Kill(); err != nil {
			logflags.ControllerLogger().Errorf("could not kill process %d: %v", p.Pid(), err)
		}
	case <-done:
	}
}

var redirectNames = []string{"stdin", "stdout", "stderr"}

func parseRedirects(redirects []string) ([3]string, error) {
	r := [3]string{}
	for _, redirect := range redirects {
		idx := 0
		for i, name := range redirectNames {
			if strings.HasPrefix(redirect, name+":") {
				idx = i
				redirect = redirect[len(name)+1:]
				break
			}
		}
		if r[idx] != "" {
			return r, fmt.Errorf("redirect error: %s redirected twice", redirectNames[idx])
		}
		r[idx] = redirect
	}
	return r, nil
}

func mergeRedirects(dst *[3]string, src [3]string) error {
	for i := range src {
		if src[i] == "" {
			continue
		}
		if dst[i] != "" {
			return fmt.Errorf("redirect error: %s redirected twice", redirectNames[i])
		}
		dst[i] = src[i]
	}
	return nil
}

// parseCommandLine splits a shell-like command line into the argument
// vector of the program and the redirects that follow it.
func parseCommandLine(s string) ([]string, [3]string, error) {
	v, err := argv.Argv(s,
		func(s string) (string, error) {
			return "", fmt.Errorf("Backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, [3]string{}, err
	}
	if len(v) != 1 {
		return nil, [3]string{}, fmt.Errorf("illegal commandline '%s'", s)
	}
	w := v[0]
	redirs := [3]string{}
	for len(w) > 0 {
		var found bool
		w, found, err = parseOneRedirect(w, &redirs)
		if err != nil {
			return nil, [3]string{}, err
		}
		if !found {
			break
		}
	}
	if len(w) == 0 {
		return nil, [3]string{}, fmt.Errorf("no program in commandline '%s'", s)
	}
	return w, redirs, nil
}

func parseOneRedirect(w []string, redirs *[3]string) ([]string, bool, error) {
	prefixes := []string{"<", ">", "2>"}
	if len(w) >= 2 {
		for _, prefix := range prefixes {
			if w[len(w)-2] == prefix {
				w[len(w)-2] += w[len(w)-1]
				w = w[:len(w)-1]
				break
			}
		}
	}
	for i, prefix := range prefixes {
		if strings.HasPrefix(w[len(w)-1], prefix) {
			if redirs[i] != "" {
				return nil, false, fmt.Errorf("redirect error: %s redirected twice", redirectNames[i])
			}
			redirs[i] = w[len(w)-1][len(prefix):]
			return w[:len(w)-1], true, nil
		}
	}
	return w, false, nil
}
