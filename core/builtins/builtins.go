// Package builtins runs the commands the shell executes in its own process.
//
// Builtins receive the shell's state explicitly through a Context and write
// through the shell's virtual descriptor table, so a redirected builtin can
// never disturb the descriptors the shell itself holds.
package builtins

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"

	"github.com/josephlewis42/bigshell/core/jobs"
	"github.com/josephlewis42/bigshell/core/vars"
	"github.com/josephlewis42/bigshell/core/vos"
)

// Exit statuses returned by builtins.
const (
	Success = 0
	Failure = -1
)

// Errors reported by builtins on their diagnostic stream.
var (
	ErrTooManyArguments   = errors.New("too many arguments")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrHomeNotSet         = errors.New("HOME not set")
	ErrNonNumericArgument = errors.New("numeric argument required")
	ErrNoJobs             = errors.New("No jobs")
	ErrInvalidJob         = errors.New("no such job")
)

// Command is a parsed simple command. Words[0] is the command name, a command
// made only of assignments and redirections has no words.
type Command struct {
	Words []string
}

// Status is the shell state shared between the command pipeline and builtins.
type Status struct {
	// Last is the status of the most recently completed foreground command.
	Last int
}

// Context is everything a builtin may read or change.
type Context struct {
	Vars   *vars.Store
	Jobs   jobs.Controller
	Proc   vos.VProc
	Files  vos.Descriptors
	Status *Status

	// StrictCd makes cd report a failed directory change instead of
	// ignoring it.
	StrictCd bool

	Log zerolog.Logger
}

// Builtin is a command run inside the shell process.
type Builtin interface {
	Main(ctx *Context, cmd Command, redirs Redirections) int
}

// BuiltinFunc adapts a function to a Builtin.
type BuiltinFunc func(ctx *Context, cmd Command, redirs Redirections) int

// Main implements Builtin.Main.
func (f BuiltinFunc) Main(ctx *Context, cmd Command, redirs Redirections) int {
	return f(ctx, cmd, redirs)
}

var _ Builtin = (BuiltinFunc)(nil)

// Kind identifies a builtin.
type Kind int

const (
	KindNull Kind = iota
	KindCd
	KindExit
	KindExport
	KindUnset
	KindFg
	KindBg
	KindJobs
)

type entry struct {
	name  string
	usage string
	fn    BuiltinFunc
}

var registry = [...]entry{
	KindNull:   {"", "", Null},
	KindCd:     {"cd", "cd [dir]", Cd},
	KindExit:   {"exit", "exit [n]", Exit},
	KindExport: {"export", "export [-p] name[=value]...", Export},
	KindUnset:  {"unset", "unset [-fv] name...", Unset},
	KindFg:     {"fg", "fg [job_id]", Fg},
	KindBg:     {"bg", "bg [job_id]", Bg},
	KindJobs:   {"jobs", "jobs", Jobs},
}

var byName = func() map[string]Kind {
	out := make(map[string]Kind)
	for k, e := range registry {
		if e.name != "" {
			out[e.name] = Kind(k)
		}
	}
	return out
}()

// String returns the builtin's command name.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return registry[k].name
}

// Usage returns a one line synopsis of the builtin.
func (k Kind) Usage() string {
	if !k.valid() {
		return ""
	}
	return registry[k].usage
}

// Builtin returns the implementation of k, or nil if k isn't a builtin.
func (k Kind) Builtin() Builtin {
	if !k.valid() {
		return nil
	}
	return registry[k].fn
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(registry)
}

// KindOf returns the builtin named name.
func KindOf(name string) (Kind, bool) {
	k, ok := byName[name]
	return k, ok
}

// Names lists every builtin name, sorted.
func Names() []string {
	var out []string
	for name := range byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the builtin that runs cmd. Commands without words resolve
// to Null so that assignment-only commands succeed.
func Lookup(cmd Command) (Builtin, bool) {
	if len(cmd.Words) == 0 {
		return KindNull.Builtin(), true
	}
	k, ok := KindOf(cmd.Words[0])
	if !ok {
		return nil, false
	}
	return k.Builtin(), true
}

// Run looks up and runs cmd. ok is false if cmd isn't a builtin.
func (ctx *Context) Run(cmd Command, redirs Redirections) (status int, ok bool) {
	b, ok := Lookup(cmd)
	if !ok {
		return 0, false
	}
	status = b.Main(ctx, cmd, redirs)
	ctx.Log.Debug().Strs("words", cmd.Words).Int("status", status).Msg("builtin finished")
	return status, true
}

// Null does nothing and succeeds.
func Null(ctx *Context, cmd Command, redirs Redirections) int {
	return Success
}

// invocation bundles a running builtin with its streams.
type invocation struct {
	ctx    *Context
	name   string
	args   []string
	redirs Redirections
}

func newInvocation(ctx *Context, cmd Command, redirs Redirections) *invocation {
	return &invocation{
		ctx:    ctx,
		name:   cmd.Words[0],
		args:   cmd.Words[1:],
		redirs: redirs,
	}
}

func (inv *invocation) stdout() io.Writer {
	return inv.redirs.Writer(inv.ctx.Files, vos.Stdout)
}

func (inv *invocation) stderr() io.Writer {
	return inv.redirs.Writer(inv.ctx.Files, vos.Stderr)
}

// fail writes "name: err" to the diagnostic stream and returns Failure.
func (inv *invocation) fail(err error) int {
	fmt.Fprintf(inv.stderr(), "%s: %v\n", inv.name, err)
	return Failure
}
