// Package vars implements the shell's variable store.
//
// Variables live in one of two places. Unexported variables are kept in a
// private table and are never visible to child processes. Exported variables
// live in the environment block and the environment is the only copy, so
// the two can never disagree about an exported value.
package vars

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/josephlewis42/bigshell/core/vos"
)

var (
	// ErrInvalidName is returned for names outside the POSIX portable
	// name grammar.
	ErrInvalidName = errors.New("not a valid identifier")

	// ErrEnvironmentWrite is returned when the environment rejected a write.
	ErrEnvironmentWrite = errors.New("environment write failed")
)

// IsValidName reports whether name matches [A-Za-z_][A-Za-z0-9_]*.
//
// https://pubs.opengroup.org/onlinepubs/9699919799/basedefs/V1_chap03.html#tag_03_235
func IsValidName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && '0' <= c && c <= '9':
		default:
			return false
		}
	}
	return true
}

func invalidName(name string) error {
	return fmt.Errorf("`%s': %w", name, ErrInvalidName)
}

type variable struct {
	value    string
	hasValue bool
	exported bool
}

// Store holds shell variables for one shell instance.
//
// A Store is owned by a single control flow and is not safe for concurrent
// use.
type Store struct {
	env  vos.VEnv
	log  zerolog.Logger
	vars map[string]*variable
}

// New creates an empty Store layered over env.
func New(env vos.VEnv, log zerolog.Logger) *Store {
	return &Store{
		env:  env,
		log:  log,
		vars: make(map[string]*variable),
	}
}

// ensure returns the record for name, creating it if needed. A new record
// is exported if the environment already carries the name.
func (s *Store) ensure(name string) *variable {
	if v, ok := s.vars[name]; ok {
		return v
	}
	_, inEnv := s.env.LookupEnv(name)
	v := &variable{exported: inEnv}
	s.vars[name] = v
	s.log.Trace().Str("name", name).Bool("exported", inEnv).Msg("created variable")
	return v
}

// Set assigns value to name. Exported variables are written straight to the
// environment.
func (s *Store) Set(name, value string) error {
	if !IsValidName(name) {
		return invalidName(name)
	}
	s.log.Debug().Str("name", name).Str("value", value).Msg("set")

	v := s.ensure(name)
	if v.exported {
		s.log.Debug().Str("name", name).Msg("variable is exported, updating environment")
		if err := s.env.Setenv(name, value); err != nil {
			return fmt.Errorf("%s: %w: %w", name, ErrEnvironmentWrite, err)
		}
		return nil
	}

	v.value = value
	v.hasValue = true
	return nil
}

// Get looks up name. ok is false if the variable is not found or is declared
// without a value.
func (s *Store) Get(name string) (value string, ok bool, err error) {
	if !IsValidName(name) {
		return "", false, invalidName(name)
	}

	if v, found := s.vars[name]; found && !v.exported {
		s.log.Trace().Str("name", name).Bool("set", v.hasValue).Msg("found private variable")
		return v.value, v.hasValue, nil
	}

	value, ok = s.env.LookupEnv(name)
	s.log.Trace().Str("name", name).Bool("found", ok).Msg("searched environment")
	return value, ok, nil
}

// Lookup is Get for callers that already know name is valid, such as
// parameter expansion. Invalid names are reported as not found.
func (s *Store) Lookup(name string) (string, bool) {
	value, ok, err := s.Get(name)
	if err != nil {
		return "", false
	}
	return value, ok
}

// Unset removes name from both the private table and the environment.
// Unsetting a variable that doesn't exist is not an error.
func (s *Store) Unset(name string) error {
	if !IsValidName(name) {
		return invalidName(name)
	}
	s.log.Debug().Str("name", name).Msg("unset")

	delete(s.vars, name)
	if err := s.env.Unsetenv(name); err != nil {
		return fmt.Errorf("%s: %w: %w", name, ErrEnvironmentWrite, err)
	}
	return nil
}

// Export marks name for export, pushing its current value (if any) into the
// environment. The variable only becomes exported once the environment has
// accepted the value.
func (s *Store) Export(name string) error {
	if !IsValidName(name) {
		return invalidName(name)
	}
	s.log.Debug().Str("name", name).Msg("marking for export")

	v := s.ensure(name)
	if v.exported {
		return nil
	}

	if v.hasValue {
		s.log.Debug().Str("name", name).Str("value", v.value).Msg("exporting value")
		if err := s.env.Setenv(name, v.value); err != nil {
			return fmt.Errorf("%s: %w: %w", name, ErrEnvironmentWrite, err)
		}
	}

	v.exported = true
	v.value, v.hasValue = "", false
	return nil
}

// IsExported reports whether name is exported, either explicitly or because
// it was inherited through the environment.
func (s *Store) IsExported(name string) bool {
	if v, ok := s.vars[name]; ok {
		return v.exported
	}
	_, ok := s.env.LookupEnv(name)
	return ok
}

// Exported is a single exported variable, HasValue is false for names marked
// for export that were never assigned.
type Exported struct {
	Name     string
	Value    string
	HasValue bool
}

// ExportedVariables lists every exported variable with a valid name, sorted
// by name.
func (s *Store) ExportedVariables() []Exported {
	seen := make(map[string]bool)
	var out []Exported

	for _, entry := range s.env.Environ() {
		name, value, _ := strings.Cut(entry, "=")
		if !IsValidName(name) || seen[name] {
			continue
		}
		if v, ok := s.vars[name]; ok && !v.exported {
			// Shadowed by a private variable created after the env was changed
			// underneath the store.
			continue
		}
		seen[name] = true
		out = append(out, Exported{Name: name, Value: value, HasValue: true})
	}

	for name, v := range s.vars {
		if v.exported && !seen[name] {
			out = append(out, Exported{Name: name})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of records in the private table.
func (s *Store) Len() int {
	return len(s.vars)
}

// Close releases every record. The environment is left untouched so exported
// values survive for whatever runs next.
func (s *Store) Close() error {
	s.log.Debug().Int("records", len(s.vars)).Msg("releasing variables")
	s.vars = make(map[string]*variable)
	return nil
}
