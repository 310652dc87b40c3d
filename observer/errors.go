package observer

import (
	"errors"
	"fmt"
)

var (
	// ErrInfiniteUpdateLoop is reported for a watcher that keeps running
	// again during a single flush, directly or through other watchers.
	ErrInfiniteUpdateLoop = errors.New("observer: infinite update loop")

	// ErrInvalidPath is reported when a watch path contains characters other
	// than word characters, dots and dollar signs.
	ErrInvalidPath = errors.New("observer: invalid watch path")
)

// WatcherError carries the watcher that failed along with the phase it failed in.
type WatcherError struct {
	WatcherID  int
	Expression string
	Info       string
	Err        error
}

func (e *WatcherError) Error() string {
	return fmt.Sprintf("watcher %d %q: %s: %v", e.WatcherID, e.Expression, e.Info, e.Err)
}

func (e *WatcherError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking getter, callback or hook.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// protect runs fn, turning a panic into a *PanicError.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
