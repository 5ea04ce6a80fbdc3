package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/loykin/apicontract/internal/common"
)

// Process exit codes.
const (
	exitCasesFailed = 1
	exitError       = 2
)

// ExitHandler terminates the process; tests swap it for a recorder.
type ExitHandler interface {
	Exit(code int)
}

type osExitHandler struct{}

func (osExitHandler) Exit(code int) { os.Exit(code) }

var exitHandler ExitHandler = osExitHandler{}

// finish reports err and exits with the matching code. A nil err returns
// without exiting.
func finish(err error, stderr io.Writer) {
	switch {
	case err == nil:
		return
	case errors.Is(err, errCasesFailed):
		_, _ = fmt.Fprintln(stderr, err)
		exitHandler.Exit(exitCasesFailed)
	default:
		common.GetLogger().WithComponent("main").Error("command execution failed", "error", err)
		exitHandler.Exit(exitError)
	}
}
