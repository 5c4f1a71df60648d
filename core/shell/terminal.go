package shell

import (
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/josephlewis42/bigshell/core/jobs"
)

// terminal hands the controlling terminal between the shell and the job in
// the foreground. A nil terminal does nothing.
type terminal struct {
	fd  int
	log zerolog.Logger
}

func (t *terminal) handTo(pgid int) {
	if t == nil {
		return
	}
	if err := unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid); err != nil {
		t.log.Debug().Err(err).Int("pgid", pgid).Msg("couldn't set terminal process group")
	}
}

func (t *terminal) reclaim() {
	if t == nil {
		return
	}
	t.handTo(unix.Getpgrp())
}

// foregroundJobs gives a job the terminal while the shell waits on it.
type foregroundJobs struct {
	*jobs.Table
	term *terminal
}

var _ jobs.Controller = (*foregroundJobs)(nil)

func (f *foregroundJobs) WaitForeground(id int) error {
	if pgid, ok := f.ProcessGroup(id); ok {
		f.term.handTo(pgid)
		defer f.term.reclaim()
	}
	return f.Table.WaitForeground(id)
}

func (f *foregroundJobs) waitProcess(pid int, command string) (int, *jobs.Job, error) {
	f.term.handTo(pid)
	defer f.term.reclaim()
	return f.Table.WaitProcess(pid, command)
}
