package config

import (
	_ "embed"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"

	"github.com/josephlewis42/bigshell/core/logging"
	"github.com/josephlewis42/bigshell/core/vars"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName     = "config.yaml"
	TOMLConfigurationName = "config.toml"

	DefaultPrompt = `\u@\h:\w\$ `
)

type Configuration struct {
	// Prompt is the PS1 style prompt, see the shell package for escapes.
	Prompt string `json:"prompt" toml:"prompt"`
	// HistoryFile is where interactive history is kept, blank disables it.
	HistoryFile string `json:"history_file" toml:"history_file"`
	// StrictCd makes cd fail when the directory change fails.
	StrictCd bool `json:"strict_cd" toml:"strict_cd"`
	// LogLevel is the default log level, the environment can override it.
	LogLevel string `json:"log_level" toml:"log_level" validate:"loglevel"`

	// Variables are private shell variables set at startup.
	Variables map[string]string `json:"variables" toml:"variables" validate:"omitempty,dive,keys,varname,endkeys"`
	// Export lists variables to export at startup, after Variables are set.
	Export []string `json:"export" toml:"export" validate:"omitempty,dive,varname"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})
	if err := validate.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
		return vars.IsValidName(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		return logging.ValidLevel(fl.Field().String())
	}); err != nil {
		return err
	}

	return validate.Struct(c)
}

// PromptOrDefault returns the configured prompt, or DefaultPrompt if unset.
func (c *Configuration) PromptOrDefault() string {
	if c.Prompt == "" {
		return DefaultPrompt
	}
	return c.Prompt
}

// Default returns the built in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
