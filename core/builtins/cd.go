package builtins

import (
	"fmt"

	"github.com/josephlewis42/bigshell/core/vars"
)

const (
	envHome = "HOME"
	envPWD  = "PWD"
)

// Cd is the cd builtin.
//
// With no argument the target is $HOME. A single argument must be a valid
// variable name. Either way PWD is updated before the directory change is
// attempted. A failed change is only reported when Context.StrictCd is set.
func Cd(ctx *Context, cmd Command, redirs Redirections) int {
	inv := newInvocation(ctx, cmd, redirs)

	switch len(inv.args) {
	case 0:
		home, ok := ctx.Vars.Lookup(envHome)
		if !ok {
			return inv.fail(ErrHomeNotSet)
		}
		if err := ctx.Vars.Set(envPWD, home); err != nil {
			return inv.fail(fmt.Errorf("error setting PWD: %w", err))
		}
	case 1:
		dir := inv.args[0]
		if !vars.IsValidName(dir) {
			return inv.fail(fmt.Errorf("`%s': %w", dir, vars.ErrInvalidName))
		}
		if err := ctx.Vars.Set(envPWD, dir); err != nil {
			return inv.fail(fmt.Errorf("error setting PWD: %w", err))
		}
	default:
		return inv.fail(ErrTooManyArguments)
	}

	target, _ := ctx.Vars.Lookup(envPWD)
	if err := ctx.Proc.Chdir(target); err != nil {
		if ctx.StrictCd {
			return inv.fail(err)
		}
		ctx.Log.Warn().Err(err).Str("dir", target).Msg("cd: ignoring failed directory change")
	}
	return Success
}
