package linker

import (
	"math"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
)

const DefaultGlobalBase = 1024

func DefaultArgs() ContextArgs {
	return ContextArgs{
		Output:     "a.out",
		GlobalBase: DefaultGlobalBase,
		Jobs:       runtime.NumCPU(),
		LogLevel:   "info",
		LogFormat:  "plain",
	}
}

// ArgsFromEnv returns the defaults overridden by WASMLD_* environment
// variables.
func ArgsFromEnv() (ContextArgs, error) {
	args := DefaultArgs()

	base := env.Int("WASMLD_GLOBAL_BASE", int(args.GlobalBase))
	if base < 0 || int64(base) > math.MaxUint32 {
		return args, errors.Errorf("WASMLD_GLOBAL_BASE out of range: %d", base)
	}
	args.GlobalBase = uint32(base)
	args.Jobs = env.Int("WASMLD_JOBS", args.Jobs)
	args.LogLevel = env.Str("WASMLD_LOG_LEVEL", args.LogLevel)
	args.LogFormat = env.Str("WASMLD_LOG_FORMAT", args.LogFormat)
	if paths := env.Str("WASMLD_LIBRARY_PATH"); paths != "" {
		args.LibraryPaths = filepath.SplitList(paths)
	}

	return args, args.Validate()
}

// LoadConfigFile applies the keys present in a TOML file on top of args.
// Keys that are absent leave args untouched.
func LoadConfigFile(path string, args *ContextArgs) error {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	return applyConfigTree(tree, args)
}

func LoadConfig(data []byte, args *ContextArgs) error {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return errors.Wrap(err, "parse config")
	}
	return applyConfigTree(tree, args)
}

// applyConfigTree updates args only if every key is valid.
func applyConfigTree(tree *toml.Tree, args *ContextArgs) error {
	next := *args
	for _, key := range tree.Keys() {
		val := tree.Get(key)
		var ok bool
		switch key {
		case "output":
			next.Output, ok = val.(string)
		case "log-level":
			next.LogLevel, ok = val.(string)
		case "log-format":
			next.LogFormat, ok = val.(string)
		case "whole-archive":
			next.WholeArchive, ok = val.(bool)
		case "jobs":
			var n int64
			if n, ok = val.(int64); ok {
				next.Jobs = int(n)
			}
		case "global-base":
			var n int64
			if n, ok = val.(int64); ok {
				if n < 0 || n > math.MaxUint32 {
					return errors.Errorf("config: global-base out of range: %d", n)
				}
				next.GlobalBase = uint32(n)
			}
		case "library-paths":
			next.LibraryPaths, ok = stringList(val)
		default:
			return errors.Errorf("config: unknown key %q", key)
		}
		if !ok {
			return errors.Errorf("config: %s has the wrong type (%T)", key, val)
		}
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*args = next
	return nil
}

func stringList(val interface{}) ([]string, bool) {
	switch val := val.(type) {
	case []string:
		return val, true
	case []interface{}:
		list := make([]string, 0, len(val))
		for _, v := range val {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			list = append(list, s)
		}
		return list, true
	}
	return nil, false
}

func (a *ContextArgs) Validate() error {
	if a.Jobs < 1 {
		return errors.Errorf("jobs must be at least 1, got %d", a.Jobs)
	}
	if a.Output == "" {
		return errors.New("output path is empty")
	}
	return nil
}
