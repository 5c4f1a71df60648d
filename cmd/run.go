package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/josephlewis42/bigshell/core/config"
	"github.com/josephlewis42/bigshell/core/logging"
	"github.com/josephlewis42/bigshell/core/shell"
	"github.com/josephlewis42/bigshell/core/vos"
)

var commandString string

// runCmd runs the shell, it's also what the root command does.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the shell interactively, on a script from stdin, or on -c.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(logging.NewRuntime(""))
	if err != nil {
		return err
	}
	log := logging.NewRuntime(cfg.LogLevel)

	prompt, err := promptColor(colorMode, term.IsTerminal(int(os.Stdout.Fd())))
	if err != nil {
		return err
	}

	interactive := commandString == "" && term.IsTerminal(int(os.Stdin.Fd()))

	proc := &vos.HostProc{}
	opts := shell.Options{
		Config: cfg,
		Proc:   proc,
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Log:    log,
	}
	if interactive {
		opts.Terminal = os.Stdin
		// Taking the terminal back from a finished job must not stop the shell.
		signal.Ignore(unix.SIGTTOU)
	}

	sh, err := shell.New(opts)
	if err != nil {
		return err
	}

	var rl *readline.Instance
	proc.BeforeExit = func() {
		if rl != nil {
			rl.Close()
		}
		if err := sh.Close(); err != nil {
			log.Warn().Err(err).Msg("closing shell")
		}
	}

	switch {
	case commandString != "":
		proc.Exit(sh.Execute(commandString))

	case interactive:
		rl, err = readline.NewEx(&readline.Config{
			Prompt:          sh.Prompt(),
			HistoryFile:     historyPath(cfg),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("starting line editor: %w", err)
		}
		proc.Exit(sh.Run(&coloredPrompt{LineReader: rl, color: prompt}))

	default:
		proc.Exit(sh.Run(shell.NewScriptReader(cmd.InOrStdin())))
	}
	return nil
}

// historyPath resolves the configured history file against $HOME.
func historyPath(cfg *config.Configuration) string {
	if cfg.HistoryFile == "" || filepath.IsAbs(cfg.HistoryFile) {
		return cfg.HistoryFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, cfg.HistoryFile)
}

func promptColor(mode string, isTTY bool) (*color.Color, error) {
	c := color.New(color.FgGreen, color.Bold)
	switch {
	case mode == colorAlways:
		c.EnableColor()
	case mode == colorNever, mode == colorAuto && !isTTY:
		c.DisableColor()
	case mode == colorAuto:
		c.EnableColor()
	default:
		return nil, fmt.Errorf("invalid --color %q, must be one of %s, %s or %s", mode, colorAlways, colorAuto, colorNever)
	}
	return c, nil
}

// coloredPrompt colors every prompt set on the wrapped LineReader.
type coloredPrompt struct {
	shell.LineReader
	color *color.Color
}

func (c *coloredPrompt) SetPrompt(prompt string) {
	c.LineReader.SetPrompt(c.color.Sprint(prompt))
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringVarP(&commandString, "command", "c", "", "run a single command line and exit with its status")
	}
	rootCmd.AddCommand(runCmd)
}
