// Package panicerr converts panics and runtime.Goexit calls within a
// function into ordinary error returns.
package panicerr

import (
	"errors"
	"fmt"
)

// Recover runs f in a new goroutine, wrapped in defer logic that turns any
// panic or abnormal goroutine exit into a non-nil error return. Panics with
// an error value remain reachable through errors.Is and errors.As.
func Recover(name string, f func() error) error {
	errch := make(chan error, 1)
	go func() {
		defer close(errch)
		defer recoverExitError(name, errch)
		defer recoverPanicError(name, errch)
		errch <- f()
	}()
	return <-errch
}

func recoverExitError(name string, errch chan<- error) {
	select {
	case errch <- exitError(name):
	default:
		// the happy path and the panic path have already sent
	}
}

type exitError string

func (name exitError) Error() string {
	if name == "" {
		return "runtime.Goexit called"
	}
	return fmt.Sprintf("%v called runtime.Goexit", string(name))
}

// IsExit returns true if err indicates a recovered goroutine exit.
func IsExit(err error) bool {
	var xe exitError
	return errors.As(err, &xe)
}
