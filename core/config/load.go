package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads and validates the configuration at path.
//
// path may name a config.yaml or config.toml file directly, or a directory
// holding one of them; config.yaml is preferred when both exist.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	file, err := locate(fsys, path)
	if err != nil {
		return nil, err
	}

	configContents, err := afero.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}

	var out Configuration
	switch filepath.Ext(file) {
	case ".toml":
		md, err := toml.Decode(string(configContents), &out)
		if err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", file, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			var keys []string
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("config parse failed (%s): unknown fields %s", file, strings.Join(keys, ", "))
		}
	default:
		if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", file, err)
		}
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("config invalid (%s): %w", file, err)
	}
	return &out, nil
}

func locate(fsys afero.Fs, path string) (string, error) {
	isDir, err := afero.IsDir(fsys, path)
	if err != nil {
		return "", err
	}
	if !isDir {
		return path, nil
	}

	for _, name := range []string{ConfigurationName, TOMLConfigurationName} {
		candidate := filepath.Join(path, name)
		ok, err := afero.Exists(fsys, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s: no %s or %s: %w", path, ConfigurationName, TOMLConfigurationName, fs.ErrNotExist)
}

// LoadOrDefault is Load, falling back to the built in configuration when no
// configuration exists at path.
func LoadOrDefault(fsys afero.Fs, path string, log zerolog.Logger) (*Configuration, error) {
	cfg, err := Load(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("no configuration found, using defaults")
		return Default(), nil
	}
	return cfg, err
}

// Initialize writes the default configuration into dir unless one already
// exists there, then loads it.
func Initialize(fsys afero.Fs, dir string, log zerolog.Logger) (*Configuration, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, ConfigurationName)
	exists, err := afero.Exists(fsys, path)
	switch {
	case err != nil:
		return nil, err
	case exists:
		log.Info().Str("path", path).Msg("configuration already exists")
	default:
		if err := afero.WriteFile(fsys, path, defaultConfigData, 0644); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Msg("wrote default configuration")
	}

	return Load(fsys, dir)
}
