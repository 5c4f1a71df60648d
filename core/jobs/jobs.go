// Package jobs tracks the process groups the shell has put in the
// background or that were stopped while in the foreground.
package jobs

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// ErrNoSuchJob is returned for job ids that aren't in the table.
var ErrNoSuchJob = errors.New("no such job")

// Job is a process group under job control.
type Job struct {
	// ID is the small, user facing job number. It is stable until the job
	// completes.
	ID int
	// PGID is the operating system process group id.
	PGID int
	// Command is the command line that started the job.
	Command string
}

// Controller is the view of job control that builtins consume.
type Controller interface {
	// Jobs lists jobs, most recent first.
	Jobs() []Job

	// ProcessGroup resolves a job id to its process group.
	ProcessGroup(id int) (pgid int, ok bool)

	// WaitForeground blocks until the job stops or every process in it has
	// exited.
	WaitForeground(id int) error
}

// WaitFunc waits on pid like wait4(2).
type WaitFunc func(pid int, status *unix.WaitStatus, options int) (int, error)

func sysWait(pid int, status *unix.WaitStatus, options int) (int, error) {
	for {
		wpid, err := unix.Wait4(pid, status, options, nil)
		if err != unix.EINTR {
			return wpid, err
		}
	}
}

// Table is an in-memory job table.
type Table struct {
	jobs []Job // oldest first
	wait WaitFunc
	log  zerolog.Logger

	lastStatus int
}

var _ Controller = (*Table)(nil)

// NewTable creates an empty table that waits with wait4(2).
func NewTable(log zerolog.Logger) *Table {
	return NewTableWithWait(log, sysWait)
}

// NewTableWithWait creates an empty table using wait for process status.
func NewTableWithWait(log zerolog.Logger, wait WaitFunc) *Table {
	return &Table{wait: wait, log: log}
}

// Add records a new job for pgid using the smallest unused id.
func (t *Table) Add(pgid int, command string) Job {
	id := 1
	for t.indexOf(id) >= 0 {
		id++
	}
	job := Job{ID: id, PGID: pgid, Command: command}
	t.jobs = append(t.jobs, job)
	t.log.Debug().Int("job", id).Int("pgid", pgid).Str("command", command).Msg("job added")
	return job
}

// Remove drops the job from the table, it is a no-op if the job doesn't exist.
func (t *Table) Remove(id int) {
	if i := t.indexOf(id); i >= 0 {
		t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
		t.log.Debug().Int("job", id).Msg("job removed")
	}
}

func (t *Table) indexOf(id int) int {
	for i, j := range t.jobs {
		if j.ID == id {
			return i
		}
	}
	return -1
}

// Jobs implements Controller.Jobs.
func (t *Table) Jobs() []Job {
	out := make([]Job, 0, len(t.jobs))
	for i := len(t.jobs) - 1; i >= 0; i-- {
		out = append(out, t.jobs[i])
	}
	return out
}

// ProcessGroup implements Controller.ProcessGroup.
func (t *Table) ProcessGroup(id int) (int, bool) {
	if i := t.indexOf(id); i >= 0 {
		return t.jobs[i].PGID, true
	}
	return 0, false
}

// LastStatus is the exit status of the last job that completed in
// WaitForeground.
func (t *Table) LastStatus() int {
	return t.lastStatus
}

// WaitForeground implements Controller.WaitForeground. Jobs that stop stay in
// the table, jobs that exit are removed.
func (t *Table) WaitForeground(id int) error {
	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%d: %w", id, ErrNoSuchJob)
	}
	job := t.jobs[i]

	stopped, status, err := t.waitGroup(job.PGID, unix.WUNTRACED)
	if err != nil {
		return err
	}
	if stopped {
		t.log.Debug().Int("job", id).Msg("job stopped")
		return nil
	}

	t.lastStatus = status
	t.Remove(id)
	return nil
}

// WaitProcess waits on a single foreground process that hasn't been given a
// job yet. If it stops, it is added to the table and returned.
func (t *Table) WaitProcess(pid int, command string) (status int, stopped *Job, err error) {
	isStopped, status, err := t.waitGroup(pid, unix.WUNTRACED)
	if err != nil {
		return 0, nil, err
	}
	if isStopped {
		job := t.Add(pid, command)
		return status, &job, nil
	}
	t.lastStatus = status
	return status, nil, nil
}

// waitGroup waits on the group led by pgid until a member stops or no
// members remain. The status is that of the group leader.
func (t *Table) waitGroup(pgid int, options int) (stopped bool, status int, err error) {
	for {
		var ws unix.WaitStatus
		wpid, err := t.wait(-pgid, &ws, options)
		switch {
		case err == unix.ECHILD:
			return false, status, nil
		case err != nil:
			return false, 0, fmt.Errorf("wait: %w", err)
		case wpid == 0:
			// WNOHANG and nothing changed.
			return false, status, errStillRunning
		}

		switch {
		case ws.Stopped():
			return true, 128 + int(ws.StopSignal()), nil
		case wpid == pgid && ws.Exited():
			status = ws.ExitStatus()
		case wpid == pgid && ws.Signaled():
			status = 128 + int(ws.Signal())
		}
	}
}

var errStillRunning = errors.New("still running")

// Reap collects background jobs that have finished and writes a notice for
// each to w.
func (t *Table) Reap(w io.Writer) {
	for _, job := range t.Jobs() {
		_, _, err := t.waitGroup(job.PGID, unix.WNOHANG)
		switch {
		case errors.Is(err, errStillRunning):
			continue
		case err != nil:
			t.log.Warn().Err(err).Int("job", job.ID).Msg("reaping job")
			continue
		}
		fmt.Fprintf(w, "[%d] Done\t%s\n", job.ID, job.Command)
		t.Remove(job.ID)
	}
}
