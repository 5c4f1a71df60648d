// Package vostest contains deterministic fakes of the vos capabilities.
package vostest

import (
	"bytes"
	"fmt"
	"path"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"

	"github.com/josephlewis42/bigshell/core/vos"
)

// Signal records a single VProc.Kill call.
type Signal struct {
	PID    int
	Signal unix.Signal
}

// Proc is a VProc backed by an in-memory filesystem. Exit records the code
// instead of terminating.
type Proc struct {
	Fs  afero.Fs
	Dir string

	Signals  []Signal
	KillErr  error
	Exited   bool
	ExitCode int
}

var _ vos.VProc = (*Proc)(nil)

// NewProc creates a Proc rooted at / with the given directories created.
func NewProc(dirs ...string) *Proc {
	fs := afero.NewMemMapFs()
	for _, d := range dirs {
		if err := fs.MkdirAll(d, 0755); err != nil {
			panic(err)
		}
	}
	return &Proc{Fs: fs, Dir: "/"}
}

// Getwd implements VProc.Getwd.
func (p *Proc) Getwd() (string, error) {
	return p.Dir, nil
}

// Chdir implements VProc.Chdir.
func (p *Proc) Chdir(dir string) error {
	if !path.IsAbs(dir) {
		dir = path.Clean(path.Join(p.Dir, dir))
	}

	stat, err := p.Fs.Stat(dir)
	switch {
	case err != nil:
		return err
	case !stat.IsDir():
		return fmt.Errorf("%s: Not a directory", dir)
	default:
		p.Dir = dir
		return nil
	}
}

// Kill implements VProc.Kill.
func (p *Proc) Kill(pid int, sig unix.Signal) error {
	if p.KillErr != nil {
		return p.KillErr
	}
	p.Signals = append(p.Signals, Signal{PID: pid, Signal: sig})
	return nil
}

// Exit implements VProc.Exit.
func (p *Proc) Exit(code int) {
	p.Exited = true
	p.ExitCode = code
}

// Files is an FDTable whose stdout and stderr are captured in buffers.
type Files struct {
	*vos.FDTable

	Stdout bytes.Buffer
	Stderr bytes.Buffer
}

// NewFiles creates an empty Files.
func NewFiles() *Files {
	f := &Files{}
	f.FDTable = vos.NewFDTable(&f.Stdout, &f.Stderr)
	return f
}
