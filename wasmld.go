package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"wasmld/pkg/linker"
	"wasmld/pkg/logging"
)

var version = "0.1.0-dev"

var cmd = &cobra.Command{
	Use:     "wasmld",
	Short:   "Inspect and lay out WebAssembly object files",
	Version: version,
}

var flagRoot = struct {
	Config       string
	LogLevel     string
	LogFormat    string
	Jobs         int
	GlobalBase   uint32
	WholeArchive bool
	LibraryPaths []string
}{}

func init() {
	f := cmd.PersistentFlags()
	f.StringVar(&flagRoot.Config, "config", "", "Read settings from a TOML file")
	f.StringVar(&flagRoot.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	f.StringVar(&flagRoot.LogFormat, "log-format", "", "Log format (plain, json)")
	f.IntVarP(&flagRoot.Jobs, "jobs", "j", 0, "Number of parallel workers")
	f.Uint32Var(&flagRoot.GlobalBase, "global-base", 0, "Address of the first data segment")
	f.BoolVar(&flagRoot.WholeArchive, "whole-archive", false, "Keep every archive member alive")
	f.StringSliceVarP(&flagRoot.LibraryPaths, "library-path", "L", nil, "Add a directory to the -l search path")
}

func main() {
	_ = cmd.Execute()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%+v", err)
	}
}

func checkf(err error, format string, otherArgs ...interface{}) {
	if err != nil {
		fatalf(format+": %+v", append(otherArgs, err)...)
	}
}

// loadArgs layers the configuration sources: defaults, then WASMLD_*
// variables, then the --config file, then flags set on the command line.
func loadArgs(flags *pflag.FlagSet) (linker.ContextArgs, error) {
	args, err := linker.ArgsFromEnv()
	if err != nil {
		return args, err
	}
	if flagRoot.Config != "" {
		if err := linker.LoadConfigFile(flagRoot.Config, &args); err != nil {
			return args, err
		}
	}

	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "log-level":
			args.LogLevel = flagRoot.LogLevel
		case "log-format":
			args.LogFormat = flagRoot.LogFormat
		case "jobs":
			args.Jobs = flagRoot.Jobs
		case "global-base":
			args.GlobalBase = flagRoot.GlobalBase
		case "whole-archive":
			args.WholeArchive = flagRoot.WholeArchive
		case "library-path":
			args.LibraryPaths = append(args.LibraryPaths, flagRoot.LibraryPaths...)
		}
	})
	return args, args.Validate()
}

func newContext(cmd *cobra.Command) *linker.Context {
	args, err := loadArgs(cmd.Flags())
	checkf(err, "configuration")

	logger, err := logging.New(cmd.ErrOrStderr(), args.LogFormat, args.LogLevel)
	check(err)

	ctx := linker.NewContext()
	ctx.Args = args
	ctx.Logger = logger
	return ctx
}
