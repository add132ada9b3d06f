package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	code, err := voz(context.Background(), os.Args[1:], stdio{os.Stdin, os.Stdout, os.Stderr})
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
	}
	os.Exit(code)
}

type stdio struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// app is the state shared by every command of one invocation.
type app struct {
	stdio
	cfg config
	log commonlog.Logger
}

type command struct {
	usage string
	run   func(ctx context.Context, app *app, args []string) (int, error)
}

const (
	runUsage   = "run [-in file]... [program | -- args...]"
	buildUsage = "build [-o out.asm] [program | -- args...]"
	packUsage  = "pack -o out.vozc [program | -- args...]"
)

var commands = map[string]command{
	"run":   {runUsage, runCommand},
	"build": {buildUsage, buildCommand},
	"pack":  {packUsage, packCommand},
}

var errUsage = errors.New("usage error")

// voz runs one command line, returning the process exit status.
func voz(ctx context.Context, args []string, std stdio) (int, error) {
	flags := flag.NewFlagSet("voz", flag.ContinueOnError)
	flags.SetOutput(std.err)

	var (
		configPath string
		verbosity  countFlag
		trace      bool
		dump       bool
		timeout    time.Duration
	)
	flags.StringVar(&configPath, "config", "", "configuration file (default "+defaultConfigFile+" when present)")
	flags.Var(&verbosity, "v", "increase log verbosity; may be repeated")
	flags.BoolVar(&trace, "trace", false, "log every executed instruction")
	flags.BoolVar(&dump, "dump", false, "dump machine state to stderr after run")
	flags.DurationVar(&timeout, "timeout", 0, "specify a time limit for run")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "usage: voz [global flags] <command> [flags] [program | -- args...]\n\ncommands:\n")
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(flags.Output(), "  voz %v\n", commands[name].usage)
		}
		fmt.Fprintf(flags.Output(), "\nglobal flags:\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2, err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return 2, err
	}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Log.Verbosity += int(verbosity)
		case "trace":
			cfg.Run.Trace = trace
		case "dump":
			cfg.Run.Dump = dump
		case "timeout":
			cfg.Run.Timeout.Duration = timeout
		}
	})

	logVerbosity := cfg.Log.Verbosity
	if cfg.Run.Trace && logVerbosity < 2 {
		// trace lines are debug messages
		logVerbosity = 2
	}
	var logFile *string
	if cfg.Log.File != "" {
		logFile = &cfg.Log.File
	}
	commonlog.Configure(logVerbosity, logFile)

	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return 2, errUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		flags.Usage()
		return 2, fmt.Errorf("%w: unknown command %q", errUsage, rest[0])
	}

	a := &app{
		stdio: std,
		cfg:   cfg,
		log:   commonlog.GetLogger("voz"),
	}
	if configPath != "" {
		a.log.Debugf("loaded configuration from %v", configPath)
	}
	return cmd.run(ctx, a, rest[1:])
}

// countFlag counts occurrences of a boolean flag like -v, or takes an
// explicit count like -v=3.
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) IsBoolFlag() bool { return true }

func (c *countFlag) Set(s string) error {
	if s == "true" {
		*c++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*c = countFlag(n)
	return nil
}

// stringsFlag collects every value of a repeatable flag.
type stringsFlag []string

func (s *stringsFlag) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringsFlag) Set(val string) error {
	*s = append(*s, val)
	return nil
}
