//go:build unix

package daemon

import "syscall"

// detachAttr puts the child in its own session, severing it from the
// invoking terminal.
func detachAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
