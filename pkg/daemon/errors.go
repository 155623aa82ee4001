package daemon

import "errors"

var (
	ErrAlreadyRunning = errors.New("tuptime daemon is already running")
	ErrNotRunning     = errors.New("tuptime daemon is not running")
	ErrNoServices     = errors.New("no services configured")

	errStopTimeout = errors.New("daemon did not exit in time")
)
