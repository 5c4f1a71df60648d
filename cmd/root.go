package cmd

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/josephlewis42/bigshell/core/config"
)

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

var (
	cfgPath   string
	colorMode string
)

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "bigshell")
}

func loadConfig(log zerolog.Logger) (*config.Configuration, error) {
	return config.LoadOrDefault(afero.NewOsFs(), cfgPath, log)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bigshell",
	Short: "A small interactive POSIX-style shell",
	Long: `bigshell runs simple commands, keeps shell variables apart from the
environment until they're exported, and supports basic job control.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "config file or directory")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", colorAuto, "colorize the prompt (always|auto|never)")
}
