// Package shell reads command lines and runs them as builtins or external
// processes.
package shell

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/josephlewis42/bigshell/core/builtins"
	"github.com/josephlewis42/bigshell/core/config"
	"github.com/josephlewis42/bigshell/core/jobs"
	"github.com/josephlewis42/bigshell/core/vars"
	"github.com/josephlewis42/bigshell/core/vos"
)

const (
	EnvHome     = "HOME"
	EnvPath     = "PATH"
	EnvPrompt   = "PS1"
	EnvHostname = "HOSTNAME"
	EnvUser     = "USER"
)

// Options configures a Shell. Zero values fall back to the host process.
type Options struct {
	Config *config.Configuration

	Env  vos.VEnv
	Proc vos.VProc
	Fs   afero.Fs

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Terminal is the controlling terminal, if the shell is interactive.
	Terminal *os.File

	// Wait replaces wait4(2) for job control.
	Wait jobs.WaitFunc

	// Getuid returns the effective user id shown in the prompt.
	Getuid func() int

	Log zerolog.Logger
}

// Shell is a single interactive or scripted session.
type Shell struct {
	Vars   *vars.Store
	Jobs   *jobs.Table
	Files  *vos.FDTable
	Status builtins.Status

	cfg    *config.Configuration
	env    vos.VEnv
	proc   vos.VProc
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getuid func() int
	log    zerolog.Logger

	fg      *foregroundJobs
	builtin *builtins.Context
}

// New creates a shell and applies the configured variables and exports.
func New(opts Options) (*Shell, error) {
	s := &Shell{
		cfg:    opts.Config,
		env:    opts.Env,
		proc:   opts.Proc,
		fs:     opts.Fs,
		stdin:  opts.Stdin,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
		getuid: opts.Getuid,
		log:    opts.Log,
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.env == nil {
		s.env = vos.ProcessEnv{}
	}
	if s.proc == nil {
		s.proc = &vos.HostProc{}
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.stdin == nil {
		s.stdin = os.Stdin
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	if s.getuid == nil {
		s.getuid = os.Geteuid
	}

	if opts.Wait != nil {
		s.Jobs = jobs.NewTableWithWait(s.log, opts.Wait)
	} else {
		s.Jobs = jobs.NewTable(s.log)
	}
	s.fg = &foregroundJobs{Table: s.Jobs}
	if opts.Terminal != nil {
		s.fg.term = &terminal{fd: int(opts.Terminal.Fd()), log: s.log}
	}

	s.Vars = vars.New(s.env, s.log)
	s.Files = vos.NewFDTable(s.stdout, s.stderr)
	s.builtin = &builtins.Context{
		Vars:     s.Vars,
		Jobs:     s.fg,
		Proc:     s.proc,
		Files:    s.Files,
		Status:   &s.Status,
		StrictCd: s.cfg.StrictCd,
		Log:      s.log,
	}

	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

// init sets up variables similar to sourcing ~/.bashrc.
func (s *Shell) init() error {
	var names []string
	for name := range s.cfg.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.Vars.Set(name, s.cfg.Variables[name]); err != nil {
			return err
		}
	}
	for _, name := range s.cfg.Export {
		if err := s.Vars.Export(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) lookup(name string) string {
	v, _ := s.Vars.Lookup(name)
	return v
}

// Prompt expands PS1, or the configured prompt if PS1 isn't set.
//
//	\u  user name
//	\h  host name up to the first dot
//	\w  working directory, with $HOME abbreviated to ~
//	\$  # for root, $ otherwise
func (s *Shell) Prompt() string {
	prompt, ok := s.Vars.Lookup(EnvPrompt)
	if !ok {
		prompt = s.cfg.PromptOrDefault()
	}

	host := s.lookup(EnvHostname)
	if host == "" {
		host, _ = os.Hostname()
	}
	host, _, _ = strings.Cut(host, ".")

	prompt = strings.ReplaceAll(prompt, `\u`, s.lookup(EnvUser))
	prompt = strings.ReplaceAll(prompt, `\h`, host)

	pwd, _ := s.proc.Getwd()
	if home := s.lookup(EnvHome); home != "" && strings.HasPrefix(pwd, home) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}
	prompt = strings.ReplaceAll(prompt, `\w`, pwd)

	if s.getuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	return prompt
}

// LineReader supplies lines of input. *readline.Instance implements it.
type LineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
}

var _ LineReader = (*readline.Instance)(nil)

// Run executes lines from lr until it is exhausted and returns the last
// status. Finished background jobs are reported before each prompt.
func (s *Shell) Run(lr LineReader) int {
	for {
		s.Jobs.Reap(s.stderr)
		lr.SetPrompt(s.Prompt())
		line, err := lr.Readline()

		switch {
		case err == io.EOF:
			return s.Status.Last // Input closed, quit.

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			s.log.Error().Err(err).Msg("reading input")
			return s.Status.Last

		case strings.TrimSpace(line) == "":
			continue // empty line

		default:
			s.Execute(line)
		}
	}
}

// Close releases the shell's variables.
func (s *Shell) Close() error {
	return s.Vars.Close()
}

// ScriptReader is a LineReader over a non-interactive stream; it never
// prints a prompt.
type ScriptReader struct {
	scanner *bufio.Scanner
}

var _ LineReader = (*ScriptReader)(nil)

// NewScriptReader reads lines from r.
func NewScriptReader(r io.Reader) *ScriptReader {
	return &ScriptReader{scanner: bufio.NewScanner(r)}
}

// SetPrompt implements LineReader.SetPrompt.
func (*ScriptReader) SetPrompt(string) {}

// Readline implements LineReader.Readline.
func (sr *ScriptReader) Readline() (string, error) {
	if sr.scanner.Scan() {
		return sr.scanner.Text(), nil
	}
	if err := sr.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
