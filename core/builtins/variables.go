package builtins

import (
	"fmt"
	"strings"

	"github.com/pborman/getopt/v2"
)

// Export is the export builtin.
//
// Each operand is either NAME, which marks NAME for export, or NAME=value,
// which assigns and then exports. The first failure stops processing.
// Without operands, or with -p, exported variables are listed.
func Export(ctx *Context, cmd Command, redirs Redirections) int {
	inv := newInvocation(ctx, cmd, redirs)

	opts := getopt.New()
	printOpt := opts.Bool('p', "print exported variables")
	if err := opts.Getopt(cmd.Words, nil); err != nil {
		w := inv.stderr()
		fmt.Fprintf(w, "%s: %v\n", inv.name, err)
		fmt.Fprintln(w, "usage: export [-p] name[=value]...")
		return Failure
	}

	operands := opts.Args()
	if *printOpt || len(operands) == 0 {
		w := inv.stdout()
		for _, v := range ctx.Vars.ExportedVariables() {
			if v.HasValue {
				fmt.Fprintf(w, "export %s=%s\n", v.Name, shellQuote(v.Value))
			} else {
				fmt.Fprintf(w, "export %s\n", v.Name)
			}
		}
		if len(operands) == 0 {
			return Success
		}
	}

	for _, operand := range operands {
		name, value, assign := strings.Cut(operand, "=")
		if assign {
			if err := ctx.Vars.Set(name, value); err != nil {
				return inv.fail(err)
			}
		}
		if err := ctx.Vars.Export(name); err != nil {
			return inv.fail(err)
		}
	}
	return Success
}

// Unset is the unset builtin. It always succeeds, unsetting a variable that
// doesn't exist included. The shell has no functions so -f has no effect.
func Unset(ctx *Context, cmd Command, redirs Redirections) int {
	inv := newInvocation(ctx, cmd, redirs)

	opts := getopt.New()
	opts.Bool('f', "treat NAME as a function")
	opts.Bool('v', "treat NAME as a variable")
	if err := opts.Getopt(cmd.Words, nil); err != nil {
		w := inv.stderr()
		fmt.Fprintf(w, "%s: %v\n", inv.name, err)
		fmt.Fprintln(w, "usage: unset [-fv] name...")
		return Success
	}

	for _, name := range opts.Args() {
		if err := ctx.Vars.Unset(name); err != nil {
			fmt.Fprintf(inv.stderr(), "%s: %v\n", inv.name, err)
		}
	}
	return Success
}

// shellQuote single quotes s so it reads back as the same word.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
