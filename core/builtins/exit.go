package builtins

import (
	"fmt"
	"strconv"
)

// Exit is the exit builtin. With no argument it exits with the status of the
// last foreground command.
//
// On success it records the status and terminates through Context.Proc, so
// it only returns when argument checking fails or Proc.Exit returns (which
// real processes never do).
func Exit(ctx *Context, cmd Command, redirs Redirections) int {
	inv := newInvocation(ctx, cmd, redirs)

	code := ctx.Status.Last
	switch len(inv.args) {
	case 0:
	case 1:
		n, err := parseStatus(inv.args[0])
		if err != nil {
			return inv.fail(err)
		}
		code = n
	default:
		return inv.fail(ErrTooManyArguments)
	}

	ctx.Status.Last = code
	ctx.Log.Debug().Int("status", code).Msg("exiting")
	ctx.Proc.Exit(code)
	return Failure
}

// parseStatus accepts a base 10 integer with at least one digit and nothing
// after it.
func parseStatus(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("`%s': %w", arg, ErrNonNumericArgument)
	}
	return n, nil
}
