package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/locvowork/wage_calculator/internal/wage"
)

// exitError carries the process exit code of a failed command. reported is
// set when the failure was already printed.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, wage.ErrRateTableInconsistency) {
		return 2
	}
	return 1
}

func run(args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || !ee.reported {
			fmt.Fprintln(errOut, "Error:", err)
		}
		return exitCode(err)
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
