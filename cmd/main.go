// Command advtblock is a command-line tool for the content-blocking engine.  It
// checks requests and pages against filter lists and runs a filtering MITM
// proxy.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	goFlags "github.com/jessevdk/go-flags"
)

// options are the global command-line options.
type options struct {
	// ConfigPath is the path to the YAML configuration file.
	ConfigPath string `short:"c" long:"config" description:"Path to the YAML configuration file."`

	// LogOutput is the path to the log file.
	LogOutput string `short:"o" long:"output" description:"Path to the log file. If not set, it writes to stderr."`

	// FilterLists are the paths to the filter lists, in addition to the ones
	// from the configuration file.
	FilterLists []string `short:"f" long:"filter" description:"Path to the filter list. Can be specified multiple times."`

	// Verbose defines whether the debug-level log should be written.
	Verbose bool `short:"v" long:"verbose" description:"Verbose output (optional)." optional:"yes" optional-value:"true"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args and runs the command.  It returns the exit code.
func run(args []string, stdout, stderr io.Writer) (code int) {
	opts := &options{}
	env := &environment{
		opts:   opts,
		stdout: stdout,
		stderr: stderr,
	}

	parser := goFlags.NewParser(opts, goFlags.HelpFlag|goFlags.PassDoubleDash)
	err := addCommands(parser, env)
	if err != nil {
		// Don't wrap the error, because it's informative enough as is.
		_, _ = fmt.Fprintln(stderr, err)

		return 1
	}

	defer env.close()

	_, err = parser.ParseArgs(args)
	if err == nil {
		return 0
	}

	var flagsErr *goFlags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == goFlags.ErrHelp {
		_, _ = fmt.Fprintln(stdout, err)

		return 0
	}

	_, _ = fmt.Fprintln(stderr, err)

	return 1
}
