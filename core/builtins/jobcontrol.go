package builtins

import (
	"fmt"
	"strconv"

	"golang.org/x/sys/unix"
)

// resolveJob picks the job a fg or bg invocation refers to: the most recent
// job when no id is given, otherwise the parsed id.
func resolveJob(inv *invocation) (id int, err error) {
	switch len(inv.args) {
	case 0:
		all := inv.ctx.Jobs.Jobs()
		if len(all) == 0 {
			return 0, ErrNoJobs
		}
		return all[0].ID, nil
	case 1:
		arg := inv.args[0]
		// Atoi rejects values beyond the platform's int.
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("`%s': %w", arg, ErrInvalidArgument)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrTooManyArguments)
	}
}

// continueJob resolves the job and sends SIGCONT to its whole process group.
func continueJob(inv *invocation) (id int, ok bool) {
	id, err := resolveJob(inv)
	if err != nil {
		inv.fail(err)
		return 0, false
	}

	pgid, found := inv.ctx.Jobs.ProcessGroup(id)
	if !found {
		inv.fail(fmt.Errorf("%d: %w", id, ErrInvalidJob))
		return 0, false
	}

	inv.ctx.Log.Debug().Int("job", id).Int("pgid", pgid).Msg("continuing job")
	if err := inv.ctx.Proc.Kill(-pgid, unix.SIGCONT); err != nil {
		inv.fail(fmt.Errorf("kill: %w", err))
		return 0, false
	}
	return id, true
}

// Fg is the fg builtin. It continues a job and waits for it to leave the
// foreground.
func Fg(ctx *Context, cmd Command, redirs Redirections) int {
	inv := newInvocation(ctx, cmd, redirs)

	id, ok := continueJob(inv)
	if !ok {
		return Failure
	}
	if err := ctx.Jobs.WaitForeground(id); err != nil {
		return inv.fail(err)
	}
	return Success
}

// Bg is the bg builtin. It continues a stopped job without waiting for it.
func Bg(ctx *Context, cmd Command, redirs Redirections) int {
	inv := newInvocation(ctx, cmd, redirs)

	if _, ok := continueJob(inv); !ok {
		return Failure
	}
	return Success
}

// Jobs is the jobs builtin. It lists every job as "[id] pgid" on the
// diagnostic stream.
func Jobs(ctx *Context, cmd Command, redirs Redirections) int {
	inv := newInvocation(ctx, cmd, redirs)

	w := inv.stderr()
	for _, job := range ctx.Jobs.Jobs() {
		fmt.Fprintf(w, "[%d] %d\n", job.ID, job.PGID)
	}
	return Success
}
