package linker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgsFromEnv(t *testing.T) {
	t.Setenv("WASMLD_GLOBAL_BASE", "4096")
	t.Setenv("WASMLD_JOBS", "3")
	t.Setenv("WASMLD_LOG_LEVEL", "debug")
	t.Setenv("WASMLD_LOG_FORMAT", "json")
	t.Setenv("WASMLD_LIBRARY_PATH", "/opt/a"+string(os.PathListSeparator)+"/opt/b")

	args, err := ArgsFromEnv()
	require.NoError(t, err)
	require.Equal(t, uint32(4096), args.GlobalBase)
	require.Equal(t, 3, args.Jobs)
	require.Equal(t, "debug", args.LogLevel)
	require.Equal(t, "json", args.LogFormat)
	require.Equal(t, []string{"/opt/a", "/opt/b"}, args.LibraryPaths)
	require.Equal(t, "a.out", args.Output)
}

func TestArgsFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"WASMLD_GLOBAL_BASE", "WASMLD_JOBS", "WASMLD_LOG_LEVEL", "WASMLD_LOG_FORMAT", "WASMLD_LIBRARY_PATH"} {
		t.Setenv(key, "")
	}
	args, err := ArgsFromEnv()
	require.NoError(t, err)
	require.Equal(t, DefaultArgs(), args)
}

func TestArgsFromEnvInvalid(t *testing.T) {
	t.Setenv("WASMLD_GLOBAL_BASE", "-1")
	_, err := ArgsFromEnv()
	require.ErrorContains(t, err, "WASMLD_GLOBAL_BASE")

	t.Setenv("WASMLD_GLOBAL_BASE", "")
	t.Setenv("WASMLD_JOBS", "0")
	_, err = ArgsFromEnv()
	require.ErrorContains(t, err, "jobs must be at least 1")
}

func TestLoadConfig(t *testing.T) {
	args := DefaultArgs()
	err := LoadConfig([]byte(`
output = "app.wasm"
log-level = "warn"
whole-archive = true
jobs = 2
global-base = 65536
library-paths = ["lib", "/usr/lib/wasm32"]
`), &args)
	require.NoError(t, err)
	require.Equal(t, "app.wasm", args.Output)
	require.Equal(t, "warn", args.LogLevel)
	require.Equal(t, "plain", args.LogFormat)
	require.True(t, args.WholeArchive)
	require.Equal(t, 2, args.Jobs)
	require.Equal(t, uint32(65536), args.GlobalBase)
	require.Equal(t, []string{"lib", "/usr/lib/wasm32"}, args.LibraryPaths)
}

func TestLoadConfigErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":  `colour = "blue"`,
		"wrong type":   `jobs = "many"`,
		"bad list":     `library-paths = [1, 2]`,
		"out of range": `global-base = -4`,
		"invalid":      `jobs = 0`,
		"syntax":       `output = `,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			args := DefaultArgs()
			require.Error(t, LoadConfig([]byte(data), &args))
		})
	}
}

func TestLoadConfigErrorKeepsArgs(t *testing.T) {
	for _, data := range []string{
		`global-base = "x"`,
		`output = 7`,
		"log-level = \"debug\"\njobs = 0",
	} {
		args := DefaultArgs()
		require.Error(t, LoadConfig([]byte(data), &args), data)
		require.Equal(t, DefaultArgs(), args, data)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wasmld.toml")
	require.NoError(t, os.WriteFile(path, []byte("log-format = \"json\"\n"), 0o644))

	args := DefaultArgs()
	require.NoError(t, LoadConfigFile(path, &args))
	require.Equal(t, "json", args.LogFormat)

	require.Error(t, LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"), &args))
}
