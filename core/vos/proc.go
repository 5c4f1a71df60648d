package vos

import (
	"os"

	"golang.org/x/sys/unix"
)

// VProc is the slice of process control the shell performs on itself and
// on the process groups it manages.
type VProc interface {
	// Getwd returns the current working directory.
	Getwd() (string, error)

	// Chdir changes the current working directory.
	Chdir(dir string) error

	// Kill sends sig to pid. A negative pid addresses every process in the
	// process group -pid.
	Kill(pid int, sig unix.Signal) error

	// Exit terminates the process with the given status. Implementations
	// backed by a real process never return.
	Exit(code int)
}

// HostProc is the VProc of the running process.
type HostProc struct {
	// BeforeExit, if set, runs just before the process exits.
	BeforeExit func()
}

var _ VProc = (*HostProc)(nil)

// Getwd implements VProc.Getwd.
func (*HostProc) Getwd() (string, error) {
	return os.Getwd()
}

// Chdir implements VProc.Chdir.
func (*HostProc) Chdir(dir string) error {
	return os.Chdir(dir)
}

// Kill implements VProc.Kill.
func (*HostProc) Kill(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

// Exit implements VProc.Exit.
func (h *HostProc) Exit(code int) {
	if h.BeforeExit != nil {
		h.BeforeExit()
	}
	os.Exit(code)
}
