package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/josephlewis42/bigshell/core/builtins"
	"github.com/josephlewis42/bigshell/core/vos"
)

// Exit statuses the shell itself produces.
const (
	StatusSyntaxError     = 2
	StatusCannotExecute   = 126
	StatusCommandNotFound = 127
)

// Execute runs a single command line and returns its status, which also
// becomes $?. Like a wait status the result is truncated to eight bits.
func (s *Shell) Execute(line string) int {
	cmd, err := parse(line, &expander{lookup: s.Vars.Lookup, lastStatus: s.Status.Last})
	if err != nil {
		fmt.Fprintf(s.stderr, "bigshell: %v\n", err)
		s.Status.Last = StatusSyntaxError
		return s.Status.Last
	}
	if cmd.empty() {
		return s.Status.Last
	}

	for _, a := range cmd.assignments {
		if err := s.Vars.Set(a.name, a.value); err != nil {
			fmt.Fprintf(s.stderr, "bigshell: %v\n", err)
			s.Status.Last = 1
			return s.Status.Last
		}
	}

	var status int
	if _, ok := builtins.Lookup(builtins.Command{Words: cmd.words}); ok {
		if cmd.background {
			s.log.Debug().Strs("words", cmd.words).Msg("builtins always run in the foreground")
		}
		status = s.runBuiltin(cmd)
	} else {
		status = s.runExternal(cmd, line)
	}

	s.log.Debug().Str("line", line).Int("status", status).Msg("command finished")
	s.Status.Last = status & 0xff
	return s.Status.Last
}

func (s *Shell) runBuiltin(cmd *simpleCommand) int {
	redirs, opened, err := s.builtinRedirections(cmd.redirections)
	defer func() {
		for _, fd := range opened {
			if err := s.Files.Close(fd); err != nil {
				s.log.Warn().Err(err).Int("fd", fd).Msg("closing redirection")
			}
		}
	}()
	if err != nil {
		fmt.Fprintf(s.stderr, "bigshell: %v\n", err)
		return 1
	}

	status, _ := s.builtin.Run(builtins.Command{Words: cmd.words}, redirs)
	return status
}

// builtinRedirections opens every file target into the descriptor table and
// returns the pairs a builtin resolves its streams through. The caller must
// close the returned descriptors.
func (s *Shell) builtinRedirections(list []redirection) (builtins.Redirections, []int, error) {
	var out builtins.Redirections
	var opened []int

	for _, r := range list {
		switch r.op {
		case redirectDup:
			// The copy never shares a number with a standard stream, so the
			// stream being duplicated stays writable.
			fd := s.Files.Dup(out.Resolve(r.dupFd))
			opened = append(opened, fd)
			out = append(out, builtins.Redirect{Pseudo: r.fd, Real: fd})

		case redirectIn:
			// Builtins don't read, but a missing file is still an error.
			f, err := s.fs.Open(s.abs(r.target))
			if err != nil {
				return out, opened, err
			}
			f.Close()

		default:
			f, err := s.openOutput(r)
			if err != nil {
				return out, opened, err
			}
			fd := s.Files.Open(f)
			opened = append(opened, fd)
			out = append(out, builtins.Redirect{Pseudo: r.fd, Real: fd})
		}
	}
	return out, opened, nil
}

func (s *Shell) openOutput(r redirection) (io.WriteCloser, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if r.op == redirectAppend {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	return s.fs.OpenFile(s.abs(r.target), flags, 0644)
}

func (s *Shell) abs(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	wd, err := s.proc.Getwd()
	if err != nil {
		return name
	}
	return filepath.Join(wd, name)
}

// externalIO is the standard streams of a child process.
type externalIO struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	toClose        []io.Closer
}

func (e *externalIO) close() {
	for _, c := range e.toClose {
		c.Close()
	}
}

func (e *externalIO) set(fd int, v interface{}) error {
	switch fd {
	case vos.Stdin:
		r, ok := v.(io.Reader)
		if !ok {
			return fmt.Errorf("%d: %w", fd, errBadDescriptor)
		}
		e.stdin = r
	case vos.Stdout, vos.Stderr:
		w, ok := v.(io.Writer)
		if !ok {
			return fmt.Errorf("%d: %w", fd, errBadDescriptor)
		}
		if fd == vos.Stdout {
			e.stdout = w
		} else {
			e.stderr = w
		}
	default:
		return fmt.Errorf("%d: %w", fd, errBadDescriptor)
	}
	return nil
}

func (e *externalIO) get(fd int) interface{} {
	switch fd {
	case vos.Stdin:
		return e.stdin
	case vos.Stdout:
		return e.stdout
	case vos.Stderr:
		return e.stderr
	default:
		return nil
	}
}

func (s *Shell) externalRedirections(list []redirection) (*externalIO, error) {
	out := &externalIO{stdin: s.stdin, stdout: s.stdout, stderr: s.stderr}

	for _, r := range list {
		var target interface{}
		switch r.op {
		case redirectDup:
			target = out.get(r.dupFd)
		case redirectIn:
			f, err := s.fs.Open(s.abs(r.target))
			if err != nil {
				return out, err
			}
			out.toClose = append(out.toClose, f)
			target = f
		default:
			f, err := s.openOutput(r)
			if err != nil {
				return out, err
			}
			out.toClose = append(out.toClose, f)
			target = f
		}

		if err := out.set(r.fd, target); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *Shell) runExternal(cmd *simpleCommand, line string) int {
	name := cmd.words[0]
	wd, _ := s.proc.Getwd()

	path, err := vos.LookPath(s.fs, s.lookup(EnvPath), wd, name)
	switch {
	case errors.Is(err, vos.ErrNotFound):
		fmt.Fprintf(s.stderr, "%s: command not found\n", name)
		return StatusCommandNotFound
	case err != nil:
		fmt.Fprintf(s.stderr, "%s: %v\n", name, err)
		return StatusCannotExecute
	}

	stdio, err := s.externalRedirections(cmd.redirections)
	defer stdio.close()
	if err != nil {
		fmt.Fprintf(s.stderr, "bigshell: %v\n", err)
		return 1
	}

	proc := &exec.Cmd{
		Path:        path,
		Args:        cmd.words,
		Env:         s.env.Environ(),
		Dir:         wd,
		Stdin:       stdio.stdin,
		Stdout:      stdio.stdout,
		Stderr:      stdio.stderr,
		SysProcAttr: &syscall.SysProcAttr{Setpgid: true},
	}
	if err := proc.Start(); err != nil {
		fmt.Fprintf(s.stderr, "%s: %v\n", name, err)
		return StatusCannotExecute
	}
	pid := proc.Process.Pid
	// The job table waits on the process group, not exec.Cmd.
	defer proc.Process.Release()

	s.log.Debug().Str("path", path).Int("pid", pid).Bool("background", cmd.background).Msg("started process")

	if cmd.background {
		job := s.Jobs.Add(pid, line)
		fmt.Fprintf(s.stderr, "[%d] %d\n", job.ID, pid)
		return 0
	}

	status, stopped, err := s.fg.waitProcess(pid, line)
	if err != nil {
		fmt.Fprintf(s.stderr, "%s: %v\n", name, err)
		return 1
	}
	if stopped != nil {
		fmt.Fprintf(s.stderr, "\n[%d]+  Stopped\t%s\n", stopped.ID, stopped.Command)
	}
	return status
}
