package vars

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephlewis42/bigshell/core/vos"
)

// failingEnv rejects every write.
type failingEnv struct {
	*vos.MapEnv
}

var errReadOnly = errors.New("read-only environment")

func (failingEnv) Setenv(key, value string) error { return errReadOnly }
func (failingEnv) Unsetenv(key string) error      { return errReadOnly }

func newTestStore(t *testing.T, environ ...string) (*Store, *vos.MapEnv) {
	t.Helper()
	env := vos.NewMapEnvFromEnvList(environ)
	return New(env, zerolog.Nop()), env
}

func TestIsValidName(t *testing.T) {
	cases := map[string]bool{
		"_a1":   true,
		"A":     true,
		"a_B2":  true,
		"_":     true,
		"PATH":  true,
		"1abc":  false,
		"":      false,
		"a-b":   false,
		"a b":   false,
		"a=b":   false,
		"é":     false,
		"$HOME": false,
	}

	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, IsValidName(name))
		})
	}
}

func TestInvalidNames(t *testing.T) {
	store, _ := newTestStore(t)

	for _, name := range []string{"1abc", "", "a-b"} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, store.Set(name, "v"), ErrInvalidName)
			_, _, err := store.Get(name)
			assert.ErrorIs(t, err, ErrInvalidName)
			assert.ErrorIs(t, store.Unset(name), ErrInvalidName)
			assert.ErrorIs(t, store.Export(name), ErrInvalidName)
			assert.Zero(t, store.Len())
		})
	}
}

func TestSetGet(t *testing.T) {
	cases := map[string]struct {
		environ  []string
		exported bool
	}{
		"private":       {},
		"inherited":     {environ: []string{"NAME=old"}, exported: true},
		"exported-late": {exported: true},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			store, env := newTestStore(t, tc.environ...)
			if tc.exported {
				require.NoError(t, store.Export("NAME"))
			}

			require.NoError(t, store.Set("NAME", "value"))

			got, ok, err := store.Get("NAME")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "value", got)

			envValue, inEnv := env.LookupEnv("NAME")
			assert.Equal(t, tc.exported, inEnv)
			if tc.exported {
				assert.Equal(t, "value", envValue)
			}
		})
	}
}

func TestSetPrivateNeverLeaks(t *testing.T) {
	store, env := newTestStore(t)

	require.NoError(t, store.Set("SECRET", "1"))
	require.NoError(t, store.Set("SECRET", "2"))

	_, inEnv := env.LookupEnv("SECRET")
	assert.False(t, inEnv)
	assert.False(t, store.IsExported("SECRET"))

	got, _, _ := store.Get("SECRET")
	assert.Equal(t, "2", got)
}

func TestGetFallsBackToEnvironment(t *testing.T) {
	store, env := newTestStore(t, "HOME=/home/u")

	got, ok, err := store.Get("HOME")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/home/u", got)

	// Reads of exported variables always go to the environment.
	require.NoError(t, env.Setenv("HOME", "/elsewhere"))
	got, _, _ = store.Get("HOME")
	assert.Equal(t, "/elsewhere", got)

	_, ok, err = store.Get("MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExportTracksEnvironment(t *testing.T) {
	store, env := newTestStore(t)

	require.NoError(t, store.Set("FOO", "bar"))
	require.NoError(t, store.Export("FOO"))

	check := func(want string) {
		t.Helper()
		got, ok, err := store.Get("FOO")
		require.NoError(t, err)
		require.True(t, ok)
		envValue, _ := env.LookupEnv("FOO")
		assert.Equal(t, want, got)
		assert.Equal(t, envValue, got)
	}

	check("bar")
	require.NoError(t, store.Set("FOO", "baz"))
	check("baz")
}

func TestExportWithoutValue(t *testing.T) {
	store, env := newTestStore(t)

	require.NoError(t, store.Export("LATER"))
	assert.True(t, store.IsExported("LATER"))

	_, inEnv := env.LookupEnv("LATER")
	assert.False(t, inEnv, "declared but unset variables are not pushed")

	_, ok, err := store.Get("LATER")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("LATER", "now"))
	got, _ := env.LookupEnv("LATER")
	assert.Equal(t, "now", got)
}

func TestExportKeepsExistingValue(t *testing.T) {
	store, _ := newTestStore(t, "FOO=inherited")

	require.NoError(t, store.Export("FOO"))
	got, _, _ := store.Get("FOO")
	assert.Equal(t, "inherited", got)
}

func TestUnsetIsIdempotent(t *testing.T) {
	store, env := newTestStore(t, "GONE=1")

	require.NoError(t, store.Set("GONE", "2"))
	require.NoError(t, store.Unset("GONE"))
	require.NoError(t, store.Unset("GONE"))

	_, ok, err := store.Get("GONE")
	require.NoError(t, err)
	assert.False(t, ok)
	_, inEnv := env.LookupEnv("GONE")
	assert.False(t, inEnv)
	assert.Zero(t, store.Len())
}

func TestUnsetThenSetIsPrivate(t *testing.T) {
	store, env := newTestStore(t, "X=1")

	require.NoError(t, store.Unset("X"))
	require.NoError(t, store.Set("X", "2"))

	_, inEnv := env.LookupEnv("X")
	assert.False(t, inEnv)
}

func TestEnvironmentWriteFailures(t *testing.T) {
	env := failingEnv{vos.NewMapEnvFromEnvList([]string{"INHERITED=1"})}
	store := New(env, zerolog.Nop())

	t.Run("set exported", func(t *testing.T) {
		err := store.Set("INHERITED", "2")
		assert.ErrorIs(t, err, ErrEnvironmentWrite)
		assert.ErrorIs(t, err, errReadOnly)

		got, _, _ := store.Get("INHERITED")
		assert.Equal(t, "1", got)
	})

	t.Run("export with value", func(t *testing.T) {
		require.NoError(t, store.Set("LOCAL", "v"))
		assert.ErrorIs(t, store.Export("LOCAL"), ErrEnvironmentWrite)

		// The failed export was not applied.
		assert.False(t, store.IsExported("LOCAL"))
		got, ok, _ := store.Get("LOCAL")
		assert.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("unset", func(t *testing.T) {
		assert.ErrorIs(t, store.Unset("LOCAL"), ErrEnvironmentWrite)
	})
}

func TestExportedVariables(t *testing.T) {
	store, _ := newTestStore(t, "B=2", "A=1", "bad-name=x")

	require.NoError(t, store.Set("PRIVATE", "p"))
	require.NoError(t, store.Export("DECLARED"))

	assert.Equal(t, []Exported{
		{Name: "A", Value: "1", HasValue: true},
		{Name: "B", Value: "2", HasValue: true},
		{Name: "DECLARED"},
	}, store.ExportedVariables())
}

func TestClose(t *testing.T) {
	store, env := newTestStore(t)

	require.NoError(t, store.Set("A", "1"))
	require.NoError(t, store.Set("B", "2"))
	require.NoError(t, store.Export("B"))
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Close())
	assert.Zero(t, store.Len())

	_, ok := store.Lookup("A")
	assert.False(t, ok)
	got, _ := env.LookupEnv("B")
	assert.Equal(t, "2", got)
}
